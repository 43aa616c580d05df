package strata

import (
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/strataforge/strata/codec"
	"github.com/strataforge/strata/cql"
	"github.com/strataforge/strata/events"
	"github.com/strataforge/strata/filter"
	"github.com/strataforge/strata/registry"
	"github.com/strataforge/strata/search"
	"github.com/strataforge/strata/storage"
	"github.com/strataforge/strata/types"
)

// World is one store instance: an archetype graph, an entity table, a filter
// cache and the observer bus that binds them. A world is meant to be accessed
// from one logical thread of control at a time; type identities live in the
// shared registry and survive world resets.
type World struct {
	instanceID uuid.UUID
	cfg        WorldConfig
	logger     zerolog.Logger

	registry *registry.Registry
	bus      *events.Bus
	store    *storage.Store
	engine   *search.Engine

	tickFn      func() types.Tick
	currentTick types.Tick
}

// NewWorld creates a world wired to the process-wide registry unless options
// say otherwise.
func NewWorld(opts ...WorldOption) (*World, error) {
	cfg, err := GetWorldConfig()
	if err != nil {
		return nil, err
	}
	w := &World{
		instanceID: uuid.New(),
		cfg:        cfg,
		registry:   registry.Default(),
		bus:        events.NewBus(),
	}
	w.logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	for _, opt := range opts {
		opt(w)
	}
	level, err := zerolog.ParseLevel(w.cfg.LogLevel)
	if err != nil {
		return nil, eris.Wrapf(types.ErrInvalidArgument, "unknown log level %q", w.cfg.LogLevel)
	}
	w.logger = w.logger.Level(level).With().
		Str("world_id", w.cfg.WorldID).
		Str("instance", w.instanceID.String()).
		Logger()
	if w.tickFn == nil {
		w.tickFn = func() types.Tick { return w.currentTick }
	}
	w.store = storage.NewStore(w.registry, w.bus, w.tickFn, w.logger)
	w.engine = search.NewEngine(w.store, w.logger)
	w.logger.Debug().Msg("world created")
	return w, nil
}

// Registry returns the type registry the world resolves schemas through.
func (w *World) Registry() *registry.Registry {
	return w.registry
}

// Bus returns the world's observer bus.
func (w *World) Bus() *events.Bus {
	return w.bus
}

// Store returns the underlying storage for callers that need direct archetype
// access.
func (w *World) Store() *storage.Store {
	return w.store
}

// Tick advances the world's own change counter. Worlds driven by an external
// scheduler via WithTickSource never call this.
func (w *World) Tick() types.Tick {
	w.currentTick++
	return w.currentTick
}

// CreateEntity mints an entity and attaches the given types, dataless.
func (w *World) CreateEntity(typeIDs ...types.ID) (types.ID, error) {
	id, err := w.store.CreateEntity()
	if err != nil {
		return types.Nil, err
	}
	for _, t := range typeIDs {
		if err := w.store.AddComponent(id, t, nil); err != nil {
			if destroyErr := w.store.DestroyEntity(id); destroyErr != nil {
				w.logger.Warn().Err(destroyErr).Stringer("entity", id).Msg("orphaned entity cleanup failed")
			}
			return types.Nil, err
		}
	}
	return id, nil
}

// DestroyEntity removes the entity and recycles its raw id.
func (w *World) DestroyEntity(e types.ID) error {
	return w.store.DestroyEntity(e)
}

// AddComponent attaches a type to an entity. Data may be nil, a
// map[string]any of field values, or a struct whose fields mirror the
// registered schema. A second add of a present type is ignored, data
// included.
func (w *World) AddComponent(e types.ID, t types.ID, data any) error {
	fields, err := codec.FieldMap(data)
	if err != nil {
		return err
	}
	return w.store.AddComponent(e, t, fields)
}

// RemoveComponent detaches a type; absent types are a no-op.
func (w *World) RemoveComponent(e types.ID, t types.ID) error {
	return w.store.RemoveComponent(e, t)
}

// HasComponent reports membership; it never errors.
func (w *World) HasComponent(e types.ID, t types.ID) bool {
	return w.store.HasComponent(e, t)
}

// GetComponentValue reads one field of the entity's component data.
func (w *World) GetComponentValue(e types.ID, t types.ID, field string) (any, bool) {
	return w.store.GetComponentValue(e, t, field)
}

// SetComponentValue writes one field, stamping the change tick. Missing
// components and fields are a silent no-op.
func (w *World) SetComponentValue(e types.ID, t types.ID, field string, value any) {
	w.store.SetComponentValue(e, t, field, value)
}

// EmitComponentChanged signals an in-place mutation for change detection.
func (w *World) EmitComponentChanged(e types.ID, t types.ID) {
	w.store.EmitComponentChanged(e, t)
}

// CascadeRemoveComponent removes the type from every holder and destroys the
// archetypes that contained it.
func (w *World) CascadeRemoveComponent(t types.ID) error {
	return w.store.CascadeRemoveComponent(t)
}

// Pair binds a relation to a target.
func (w *World) Pair(relation types.ID, target types.ID) (types.ID, error) {
	return types.EncodePair(relation, target)
}

// Query returns the live cached filter for the terms.
func (w *World) Query(terms filter.Terms) (*search.Cached, error) {
	return w.engine.Ensure(terms)
}

// QueryString compiles a CQL expression and returns its live cached filter.
func (w *World) QueryString(query string) (*search.Cached, error) {
	terms, err := cql.Parse(query, w.registry.Lookup)
	if err != nil {
		return nil, err
	}
	return w.engine.Ensure(terms)
}

// FindMatching recomputes matching archetypes from scratch, bypassing the
// cache.
func (w *World) FindMatching(terms filter.Terms) ([]types.ArchetypeID, error) {
	return w.engine.FindMatching(terms)
}

// Reset drops all world-local state: entities, archetypes and cached
// filters. Registry identities are intentionally untouched, since type ids
// are process-wide.
func (w *World) Reset() {
	w.store.Reset()
	w.currentTick = 0
}

// DumpEntity renders an entity's components as JSON, field by field, for
// debugging.
func (w *World) DumpEntity(e types.ID) ([]byte, error) {
	archID, _, ok := w.store.PlacementOf(e)
	if !ok {
		return nil, eris.Wrapf(storage.ErrEntityDoesNotExist, "%s", e)
	}
	arch, ok := w.store.Archetype(archID)
	if !ok {
		return nil, eris.Wrapf(storage.ErrArchetypeNotFound, "entity %s points at archetype %d", e, archID)
	}
	out := make(map[string]any)
	for _, t := range arch.Types() {
		name := w.registry.Name(t)
		if name == "" {
			name = t.String()
		}
		schema, hasData := w.registry.SchemaFor(t)
		if !hasData {
			out[name] = nil
			continue
		}
		fields := make(map[string]any, len(schema.Fields))
		for _, f := range schema.Fields {
			if v, ok := w.store.GetComponentValue(e, t, f.Name); ok {
				fields[f.Name] = v
			}
		}
		out[name] = fields
	}
	return codec.Encode(out)
}
