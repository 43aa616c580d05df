// Package registry is the process-wide type catalog. It allocates raw ids per
// category and stores field schemas and relation traits. Type identities are
// shared across store instances by design, so the registry's reset lifecycle
// is separate from any one world's reset.
package registry

import (
	"github.com/rotisserie/eris"

	"github.com/strataforge/strata/types"
)

// Raw id 0 is never issued, so the zero ID stays invalid. The top raw id of
// every space is reserved for the wildcard encoding.
const (
	firstRawID       = uint32(1)
	maxTypeRawID     = types.MaxRawID - 1
	maxRelationRawID = types.MaxRelationRawID - 1
)

type typeEntry struct {
	id        types.ID
	name      string
	schema    *types.Schema // nil for tags and data-less relations
	exclusive bool
}

// Registry allocates type identities and answers schema and trait lookups.
type Registry struct {
	byName map[string]*typeEntry
	byID   map[types.ID]*typeEntry

	// relations indexed by raw id, for pair schema lookups on hot paths
	relationsByRaw map[uint32]*typeEntry

	nextTag       uint32
	nextComponent uint32
	nextRelation  uint32
}

// New creates an empty registry. Most programs use the package-level default;
// tests create their own for isolation.
func New() *Registry {
	return &Registry{
		byName:         make(map[string]*typeEntry),
		byID:           make(map[types.ID]*typeEntry),
		relationsByRaw: make(map[uint32]*typeEntry),
		nextTag:        firstRawID,
		nextComponent:  firstRawID,
		nextRelation:   firstRawID,
	}
}

// RelationOption configures a relation at registration time.
type RelationOption func(*relationConfig)

type relationConfig struct {
	exclusive bool
	prototype types.Component
}

// Exclusive marks the relation as allowing at most one live target per
// entity. Adding a second pair of the relation displaces the first.
func Exclusive() RelationOption {
	return func(cfg *relationConfig) { cfg.exclusive = true }
}

// WithPairData declares that pairs of this relation carry the prototype's
// fields as column data.
func WithPairData(prototype types.Component) RelationOption {
	return func(cfg *relationConfig) { cfg.prototype = prototype }
}

// RegisterComponent allocates (or finds) the component id for the prototype.
// Re-registering the same name with an identical schema returns the existing
// id; a different schema is a duplicate error.
func (r *Registry) RegisterComponent(prototype types.Component) (types.ID, error) {
	name := prototype.Name()
	schema, err := types.SchemaOf(prototype)
	if err != nil {
		return types.Nil, err
	}
	if existing, ok := r.byName[name]; ok {
		if existing.id.Category() != types.CategoryComponent {
			return types.Nil, eris.Wrapf(types.ErrDuplicate, "%q is already registered as a %s", name, existing.id.Category())
		}
		same, err := types.IsSchemaValid(existing.schema.JSONSchema(), schema.JSONSchema())
		if err != nil {
			return types.Nil, err
		}
		if !same {
			return types.Nil, eris.Wrapf(types.ErrDuplicate, "component %q re-registered with a different schema", name)
		}
		return existing.id, nil
	}
	if r.nextComponent > maxTypeRawID {
		return types.Nil, eris.Wrapf(types.ErrLimitExceeded,
			"component id %d exceeds limit %d", r.nextComponent, maxTypeRawID)
	}
	raw := r.nextComponent
	r.nextComponent++
	entry := &typeEntry{id: types.EncodeComponent(raw), name: name, schema: schema}
	r.insert(entry)
	return entry.id, nil
}

// RegisterTag allocates (or finds) a zero-data marker type.
func (r *Registry) RegisterTag(name string) (types.ID, error) {
	if existing, ok := r.byName[name]; ok {
		if existing.id.Category() != types.CategoryTag {
			return types.Nil, eris.Wrapf(types.ErrDuplicate, "%q is already registered as a %s", name, existing.id.Category())
		}
		return existing.id, nil
	}
	if r.nextTag > maxTypeRawID {
		return types.Nil, eris.Wrapf(types.ErrLimitExceeded,
			"tag id %d exceeds limit %d", r.nextTag, maxTypeRawID)
	}
	raw := r.nextTag
	r.nextTag++
	entry := &typeEntry{id: types.EncodeTag(raw), name: name}
	r.insert(entry)
	return entry.id, nil
}

// RegisterRelation allocates (or finds) a relation type. Relations draw from
// the small 8-bit id space; exhausting it is a hard limit.
func (r *Registry) RegisterRelation(name string, opts ...RelationOption) (types.ID, error) {
	cfg := relationConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if existing, ok := r.byName[name]; ok {
		if existing.id.Category() != types.CategoryRelation {
			return types.Nil, eris.Wrapf(types.ErrDuplicate, "%q is already registered as a %s", name, existing.id.Category())
		}
		if existing.exclusive != cfg.exclusive {
			return types.Nil, eris.Wrapf(types.ErrDuplicate, "relation %q re-registered with different traits", name)
		}
		return existing.id, nil
	}
	if r.nextRelation > maxRelationRawID {
		return types.Nil, eris.Wrapf(types.ErrLimitExceeded,
			"relation id %d exceeds limit %d", r.nextRelation, maxRelationRawID)
	}
	var schema *types.Schema
	if cfg.prototype != nil {
		var err error
		schema, err = types.SchemaOf(cfg.prototype)
		if err != nil {
			return types.Nil, err
		}
	}
	raw := r.nextRelation
	r.nextRelation++
	entry := &typeEntry{
		id:        types.EncodeRelation(raw),
		name:      name,
		schema:    schema,
		exclusive: cfg.exclusive,
	}
	r.insert(entry)
	r.relationsByRaw[raw] = entry
	return entry.id, nil
}

func (r *Registry) insert(entry *typeEntry) {
	r.byName[entry.name] = entry
	r.byID[entry.id] = entry
}

// Lookup finds a registered type id by name.
func (r *Registry) Lookup(name string) (types.ID, error) {
	entry, ok := r.byName[name]
	if !ok {
		return types.Nil, eris.Wrapf(types.ErrNotFound, "no type registered under %q", name)
	}
	return entry.id, nil
}

// Name reports the registered name of a type id, or empty.
func (r *Registry) Name(id types.ID) string {
	if entry, ok := r.byID[id]; ok {
		return entry.name
	}
	return ""
}

// SchemaFor returns the column schema carried by the given type id: the
// component's own schema, or for a pair the relation's pair-data schema.
// Wildcard-bearing pairs never carry data; they exist only for matching.
func (r *Registry) SchemaFor(id types.ID) (*types.Schema, bool) {
	if id.IsPair() {
		if id.HasWildcard() {
			return nil, false
		}
		entry, ok := r.relationsByRaw[id.PairRelationRaw()]
		if !ok || entry.schema == nil {
			return nil, false
		}
		return entry.schema, true
	}
	entry, ok := r.byID[id]
	if !ok || entry.schema == nil {
		return nil, false
	}
	return entry.schema, true
}

// IsExclusive reports whether the relation with the given raw id is marked
// exclusive.
func (r *Registry) IsExclusive(relationRaw uint32) bool {
	entry, ok := r.relationsByRaw[relationRaw]
	return ok && entry.exclusive
}

// Reset renumbers the registry from scratch. This is a test-scoped operation:
// world resets must never re-number already-issued type identities.
func (r *Registry) Reset() {
	*r = *New()
}

var defaultRegistry = New()

// Default returns the shared process-wide registry.
func Default() *Registry {
	return defaultRegistry
}
