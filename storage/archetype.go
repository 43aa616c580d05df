package storage

import (
	"sort"
	"strconv"
	"strings"

	"github.com/strataforge/strata/types"
)

// Archetype is the storage unit for one exact set of attached types: the
// canonical sorted type list, an O(1) membership index, one column per
// data-bearing type, the dense row-to-entity list, and memoized add/remove
// transition edges to neighboring archetypes.
type Archetype struct {
	id  types.ArchetypeID
	key string

	typeIDs    []types.ID
	membership map[types.ID]int // type id -> index into typeIDs
	columns    []*column        // parallel to typeIDs; nil for data-less types
	entities   []types.ID       // row -> owning entity

	addEdge    map[types.ID]types.ArchetypeID
	removeEdge map[types.ID]types.ArchetypeID
}

func newArchetype(id types.ArchetypeID, key string, typeIDs []types.ID, src TypeSource) *Archetype {
	a := &Archetype{
		id:         id,
		key:        key,
		typeIDs:    typeIDs,
		membership: make(map[types.ID]int, len(typeIDs)),
		columns:    make([]*column, len(typeIDs)),
		addEdge:    make(map[types.ID]types.ArchetypeID),
		removeEdge: make(map[types.ID]types.ArchetypeID),
	}
	for i, t := range typeIDs {
		a.membership[t] = i
		if schema, ok := src.SchemaFor(t); ok {
			a.columns[i] = newColumn(t, schema)
		}
	}
	return a
}

// ID returns the archetype's arena handle.
func (a *Archetype) ID() types.ArchetypeID {
	return a.id
}

// Types returns the archetype's canonical sorted type list. Callers must not
// mutate it.
func (a *Archetype) Types() []types.ID {
	return a.typeIDs
}

// Has reports membership of the exact type id in O(1).
func (a *Archetype) Has(t types.ID) bool {
	_, ok := a.membership[t]
	return ok
}

// Entities returns the dense row-to-entity list. Callers must not mutate it.
func (a *Archetype) Entities() []types.ID {
	return a.entities
}

// Len reports the number of entities stored.
func (a *Archetype) Len() int {
	return len(a.entities)
}

func (a *Archetype) columnFor(t types.ID) *column {
	i, ok := a.membership[t]
	if !ok {
		return nil
	}
	return a.columns[i]
}

// appendEntity grows every column by one zero row and returns the new row
// index.
func (a *Archetype) appendEntity(e types.ID) int {
	row := len(a.entities)
	a.entities = append(a.entities, e)
	for _, c := range a.columns {
		if c != nil {
			c.appendRow()
		}
	}
	return row
}

// swapRemoveRow removes the row by moving the last row into its slot. It
// returns the entity that now occupies the vacated row, or Nil when the
// removed row was the last one.
func (a *Archetype) swapRemoveRow(row int) types.ID {
	last := len(a.entities) - 1
	moved := types.Nil
	if row != last {
		a.entities[row] = a.entities[last]
		moved = a.entities[row]
	}
	a.entities = a.entities[:last]
	for _, c := range a.columns {
		if c != nil {
			c.swapRemove(row)
		}
	}
	return moved
}

// canonicalKey digests a type set into an order-independent, collision-free
// string. The input must already be sorted.
func canonicalKey(sorted []types.ID) string {
	var sb strings.Builder
	for i, t := range sorted {
		if i > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString(strconv.FormatUint(uint64(t), 10))
	}
	return sb.String()
}

// sortTypeSet orders type ids ascending by their packed representation. Any
// stable total order works; the packed value is cheap and collision-free.
func sortTypeSet(ids []types.ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

// withType returns a sorted copy of the set with t inserted. The receiver set
// must not already contain t.
func withType(sorted []types.ID, t types.ID) []types.ID {
	out := make([]types.ID, 0, len(sorted)+1)
	inserted := false
	for _, existing := range sorted {
		if !inserted && t < existing {
			out = append(out, t)
			inserted = true
		}
		out = append(out, existing)
	}
	if !inserted {
		out = append(out, t)
	}
	return out
}

// withoutType returns a copy of the set with t removed.
func withoutType(sorted []types.ID, t types.ID) []types.ID {
	out := make([]types.ID, 0, len(sorted)-1)
	for _, existing := range sorted {
		if existing != t {
			out = append(out, existing)
		}
	}
	return out
}
