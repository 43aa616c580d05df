// Package search answers "which archetypes have this combination of types"
// queries and keeps the answers live. Cached entries are maintained by
// observer callbacks on archetype creation and destruction instead of
// rescanning the graph per query.
package search

import (
	"github.com/rs/zerolog"

	"github.com/strataforge/strata/events"
	"github.com/strataforge/strata/filter"
	"github.com/strataforge/strata/log"
	"github.com/strataforge/strata/storage"
	"github.com/strataforge/strata/types"
)

// Engine owns the filter cache for one store.
type Engine struct {
	store  *storage.Store
	bus    *events.Bus
	cache  map[string]*Cached
	logger zerolog.Logger

	resetSub events.HandlerID
}

// NewEngine creates an engine bound to the store's bus. A world reset drops
// every cached filter.
func NewEngine(store *storage.Store, logger zerolog.Logger) *Engine {
	e := &Engine{
		store:  store,
		bus:    store.Bus(),
		cache:  make(map[string]*Cached),
		logger: logger,
	}
	e.resetSub = e.bus.Register(events.WorldReset, func(events.Signal) {
		e.dropAll()
	})
	return e
}

// FindMatching recomputes the archetypes matching the terms from scratch. The
// include type with the fewest referencing archetypes is the scan base, so
// the scan is bounded by the smallest plausible candidate set; an include
// type with no referencing archetypes short-circuits to no matches, as does
// an empty include set.
func (e *Engine) FindMatching(terms filter.Terms) ([]types.ArchetypeID, error) {
	if err := terms.Validate(); err != nil {
		return nil, err
	}
	include := terms.Include()
	if len(include) == 0 {
		return nil, nil
	}
	var base []types.ArchetypeID
	for _, t := range include {
		records := e.store.RecordsFor(t)
		if len(records) == 0 {
			return nil, nil
		}
		if base == nil || len(records) < len(base) {
			base = records
		}
	}
	var matches []types.ArchetypeID
	for _, archID := range base {
		arch, ok := e.store.Archetype(archID)
		if !ok {
			continue
		}
		if terms.Matches(arch.Has) {
			matches = append(matches, archID)
		}
	}
	return matches, nil
}

// Ensure returns the cached entry for the terms, creating it on first query.
// The entry subscribes to archetype lifecycle events and stays correct
// without rescans until it evicts itself.
func (e *Engine) Ensure(terms filter.Terms) (*Cached, error) {
	if err := terms.Validate(); err != nil {
		return nil, err
	}
	key := terms.CanonicalKey()
	if c, ok := e.cache[key]; ok {
		return c, nil
	}
	matches, err := e.FindMatching(terms)
	if err != nil {
		return nil, err
	}
	c := &Cached{
		engine:     e,
		terms:      terms,
		key:        key,
		archetypes: matches,
	}
	c.createdSub = e.bus.Register(events.ArchetypeCreated, c.onArchetypeCreated)
	c.destroyedSub = e.bus.Register(events.ArchetypeDestroyed, c.onArchetypeDestroyed)
	e.cache[key] = c
	e.bus.Fire(events.FilterCreated, events.Signal{})
	log.Filter(&e.logger, zerolog.DebugLevel, key, len(matches))
	return c, nil
}

// CacheLen reports the number of live cached filters.
func (e *Engine) CacheLen() int {
	return len(e.cache)
}

func (e *Engine) dropAll() {
	for _, c := range e.cache {
		c.unsubscribe()
	}
	e.cache = make(map[string]*Cached)
}

// Cached is one live filter: its terms, the currently matching archetypes,
// and the two standing subscriptions that keep the list correct.
type Cached struct {
	engine     *Engine
	terms      filter.Terms
	key        string
	archetypes []types.ArchetypeID

	createdSub   events.HandlerID
	destroyedSub events.HandlerID
	evicted      bool
}

// Terms returns the filter's match criteria.
func (c *Cached) Terms() filter.Terms {
	return c.terms
}

// Archetypes returns the currently matching archetype handles. Callers must
// not mutate the slice.
func (c *Cached) Archetypes() []types.ArchetypeID {
	return c.archetypes
}

func (c *Cached) onArchetypeCreated(sig events.Signal) {
	arch, ok := c.engine.store.Archetype(sig.Archetype)
	if !ok {
		return
	}
	if len(c.terms.Include()) == 0 {
		return
	}
	if c.terms.Matches(arch.Has) {
		c.archetypes = append(c.archetypes, sig.Archetype)
	}
}

// onArchetypeDestroyed drops the archetype from the match list. A cache entry
// whose list empties this way evicts itself: both subscriptions are released
// and the entry is deleted, so repeated create/query/destroy cycles never
// leak observer callbacks.
func (c *Cached) onArchetypeDestroyed(sig events.Signal) {
	before := len(c.archetypes)
	c.archetypes = dropArchID(c.archetypes, sig.Archetype)
	if before > 0 && len(c.archetypes) == 0 {
		c.evict()
	}
}

func (c *Cached) evict() {
	if c.evicted {
		return
	}
	c.evicted = true
	c.unsubscribe()
	delete(c.engine.cache, c.key)
	c.engine.bus.Fire(events.FilterDestroyed, events.Signal{})
	c.engine.logger.Debug().Str("filter", c.key).Msg("filter evicted")
}

func (c *Cached) unsubscribe() {
	if err := c.engine.bus.Unregister(events.ArchetypeCreated, c.createdSub); err != nil {
		c.engine.logger.Warn().Err(err).Msg("filter subscription already gone")
	}
	if err := c.engine.bus.Unregister(events.ArchetypeDestroyed, c.destroyedSub); err != nil {
		c.engine.logger.Warn().Err(err).Msg("filter subscription already gone")
	}
	c.evicted = true
}

func dropArchID(ids []types.ArchetypeID, id types.ArchetypeID) []types.ArchetypeID {
	for i := range ids {
		if ids[i] == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}
