// Package storage implements the archetype graph, its columnar storage, and
// the entity table. A Store classifies entities by their exact set of
// attached types, keeps component data contiguous per type set, and announces
// every structural change on its observer bus so caches stay live without
// rescans.
package storage

import (
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/strataforge/strata/events"
	"github.com/strataforge/strata/log"
	"github.com/strataforge/strata/types"
)

// TypeSource is the slice of the type registry the store consumes: schema
// lookups for column allocation and relation traits for pair semantics.
type TypeSource interface {
	SchemaFor(id types.ID) (*types.Schema, bool)
	IsExclusive(relationRaw uint32) bool
	Name(id types.ID) string
}

// placement binds an identity to its current storage slot.
type placement struct {
	arch types.ArchetypeID
	row  int
}

// Store owns one world's archetype arena, entity table and placements. It is
// single-threaded: every operation runs to completion before returning and no
// partial state is ever observable.
type Store struct {
	src    TypeSource
	bus    *events.Bus
	tick   func() types.Tick
	logger zerolog.Logger

	archetypes []*Archetype // arena; destroyed slots are nil
	byKey      map[string]types.ArchetypeID

	// records lists, per type id, the archetypes that contain it. They back
	// the rarest-type-first search strategy and cascade removal.
	records map[types.ID][]types.ArchetypeID

	placements map[types.ID]placement
	entities   entityTable
}

// NewStore creates a store with an empty root archetype at handle 0. The tick
// function is the external scheduler's counter used for change stamps.
func NewStore(src TypeSource, bus *events.Bus, tick func() types.Tick, logger zerolog.Logger) *Store {
	s := &Store{
		src:    src,
		bus:    bus,
		tick:   tick,
		logger: logger,
	}
	s.init()
	return s
}

func (s *Store) init() {
	s.archetypes = nil
	s.byKey = make(map[string]types.ArchetypeID)
	s.records = make(map[types.ID][]types.ArchetypeID)
	s.placements = make(map[types.ID]placement)
	s.entities = newEntityTable()
	s.getOrCreateArchetype(nil) // root: the empty type set
}

// Bus returns the observer bus the store fires lifecycle events on.
func (s *Store) Bus() *events.Bus {
	return s.bus
}

// Reset drops all entities, archetypes and placements and fires WorldReset.
// Type identities are process-wide and are deliberately not renumbered.
func (s *Store) Reset() {
	s.init()
	s.bus.Fire(events.WorldReset, events.Signal{})
	s.logger.Debug().Msg("store reset")
}

// Archetype returns the archetype for a live handle.
func (s *Store) Archetype(id types.ArchetypeID) (*Archetype, bool) {
	if id < 0 || int(id) >= len(s.archetypes) || s.archetypes[id] == nil {
		return nil, false
	}
	return s.archetypes[id], true
}

// ArchetypeCount reports the number of handles ever issued, including
// destroyed ones. Handles are never reused.
func (s *Store) ArchetypeCount() int {
	return len(s.archetypes)
}

// RecordsFor returns the handles of archetypes currently containing the type.
// Callers must not mutate the slice.
func (s *Store) RecordsFor(t types.ID) []types.ArchetypeID {
	return s.records[t]
}

// CreateEntity mints an entity in the root archetype, recycling a raw id
// (with its generation bumped) when one is available.
func (s *Store) CreateEntity() (types.ID, error) {
	id, err := s.entities.allocate()
	if err != nil {
		return types.Nil, err
	}
	root := s.archetypes[0]
	row := root.appendEntity(id)
	s.placements[id] = placement{arch: root.id, row: row}
	s.bus.Fire(events.EntityCreated, events.Signal{Entity: id, Archetype: root.id})
	log.Entity(&s.logger, zerolog.DebugLevel, id, root.id)
	return id, nil
}

// DestroyEntity removes the entity's row (swap-remove, back-patching the
// relocated entity's record) and recycles its raw id.
func (s *Store) DestroyEntity(id types.ID) error {
	if id.Category() != types.CategoryEntity || !s.entities.alive(id) {
		return eris.Wrapf(ErrEntityDoesNotExist, "%s", id)
	}
	p, ok := s.placements[id]
	if !ok {
		return eris.Wrapf(ErrEntityDoesNotExist, "%s", id)
	}
	arch := s.archetypes[p.arch]
	s.removeRow(arch, p.row)
	delete(s.placements, id)
	s.entities.release(id)
	s.bus.Fire(events.EntityDestroyed, events.Signal{Entity: id, Archetype: arch.id})
	s.logger.Debug().Stringer("entity", id).Msg("entity destroyed")
	return nil
}

// Alive reports whether the identity currently names a live entity. Type
// identities with a lazily created self-placement also report true.
func (s *Store) Alive(id types.ID) bool {
	_, ok := s.placements[id]
	return ok
}

// PlacementOf reports the identity's current archetype and row.
func (s *Store) PlacementOf(id types.ID) (types.ArchetypeID, int, bool) {
	p, ok := s.resolve(id, false)
	if !ok {
		return types.BadArchetypeID, 0, false
	}
	return p.arch, p.row, true
}

// resolve returns the identity's current placement. Entity identities must be
// live. Tag, component and relation identities may carry data of their own
// (the component-on-self resource pattern); when create is set they receive a
// lazy placement in the root archetype.
func (s *Store) resolve(id types.ID, create bool) (placement, bool) {
	if !id.Valid() || id.IsPair() {
		return placement{}, false
	}
	if p, ok := s.placements[id]; ok {
		if id.Category() == types.CategoryEntity && !s.entities.alive(id) {
			return placement{}, false
		}
		return p, true
	}
	if id.Category() == types.CategoryEntity || !create {
		return placement{}, false
	}
	root := s.archetypes[0]
	row := root.appendEntity(id)
	p := placement{arch: root.id, row: row}
	s.placements[id] = p
	return p, true
}

// getOrCreateArchetype canonicalizes the type set and returns the one
// archetype for it, creating it lazily on first use. The input must be sorted
// and is retained.
func (s *Store) getOrCreateArchetype(sorted []types.ID) *Archetype {
	key := canonicalKey(sorted)
	if id, ok := s.byKey[key]; ok {
		return s.archetypes[id]
	}
	id := types.ArchetypeID(len(s.archetypes))
	arch := newArchetype(id, key, sorted, s.src)
	s.archetypes = append(s.archetypes, arch)
	s.byKey[key] = id
	for _, t := range sorted {
		s.records[t] = append(s.records[t], id)
	}
	s.bus.Fire(events.ArchetypeCreated, events.Signal{Archetype: id})
	log.Archetype(&s.logger, zerolog.DebugLevel, id, sorted)
	return arch
}

// addTransition returns the archetype for from's type set plus t, memoizing
// the edge in both directions. Adding a type already present returns from
// itself; callers detect the no-op by reference equality.
func (s *Store) addTransition(from *Archetype, t types.ID) *Archetype {
	if from.Has(t) {
		return from
	}
	if to, ok := from.addEdge[t]; ok {
		if arch, live := s.Archetype(to); live {
			return arch
		}
		delete(from.addEdge, t)
	}
	to := s.getOrCreateArchetype(withType(from.typeIDs, t))
	from.addEdge[t] = to.id
	to.removeEdge[t] = from.id
	return to
}

// removeTransition is the set-difference mirror of addTransition. Removing an
// absent type is a no-op returning from.
func (s *Store) removeTransition(from *Archetype, t types.ID) *Archetype {
	if !from.Has(t) {
		return from
	}
	if to, ok := from.removeEdge[t]; ok {
		if arch, live := s.Archetype(to); live {
			return arch
		}
		delete(from.removeEdge, t)
	}
	to := s.getOrCreateArchetype(withoutType(from.typeIDs, t))
	from.removeEdge[t] = to.id
	to.addEdge[t] = from.id
	return to
}

// moveEntity relocates the identity's row from its current archetype into to:
// shared column values are copied, the entity is appended to to, and the
// vacated row is closed by swap-remove.
func (s *Store) moveEntity(id types.ID, to *Archetype) {
	p := s.placements[id]
	from := s.archetypes[p.arch]
	newRow := to.appendEntity(id)
	for i, t := range from.typeIDs {
		src := from.columns[i]
		if src == nil {
			continue
		}
		if dst := to.columnFor(t); dst != nil {
			dst.copyRowFrom(src, p.row, newRow)
		}
	}
	s.removeRow(from, p.row)
	s.placements[id] = placement{arch: to.id, row: newRow}
}

// removeRow swap-removes a row and back-patches the relocated entity's
// placement so no gap or stale row reference survives.
func (s *Store) removeRow(arch *Archetype, row int) {
	moved := arch.swapRemoveRow(row)
	if moved != types.Nil {
		s.placements[moved] = placement{arch: arch.id, row: row}
	}
}

// destroyArchetype unlinks a permanently invalid archetype: its canonical
// key, its type records, and every memoized edge pointing at it. The root
// archetype is never destroyed.
func (s *Store) destroyArchetype(id types.ArchetypeID) {
	arch, ok := s.Archetype(id)
	if !ok || id == 0 {
		return
	}
	delete(s.byKey, arch.key)
	for _, t := range arch.typeIDs {
		s.records[t] = dropArchID(s.records[t], id)
		if len(s.records[t]) == 0 {
			delete(s.records, t)
		}
	}
	for _, other := range s.archetypes {
		if other == nil || other == arch {
			continue
		}
		for t, target := range other.addEdge {
			if target == id {
				delete(other.addEdge, t)
			}
		}
		for t, target := range other.removeEdge {
			if target == id {
				delete(other.removeEdge, t)
			}
		}
	}
	s.archetypes[id] = nil
	s.bus.Fire(events.ArchetypeDestroyed, events.Signal{Archetype: id})
	s.logger.Debug().Int("archetype_id", int(id)).Msg("archetype destroyed")
}

func dropArchID(ids []types.ArchetypeID, id types.ArchetypeID) []types.ArchetypeID {
	for i := range ids {
		if ids[i] == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}
