package storage

import (
	"github.com/rotisserie/eris"

	"github.com/strataforge/strata/types"
)

// The top raw id is reserved for the wildcard encoding in pair targets, so
// the usable entity space ends one short of the codec maximum.
const maxEntityRawID = types.MaxRawID - 1

// entityTable owns entity raw-id allocation and recycling. Generations are
// stamped into the identity's meta bits and bump (mod 256) on reuse, so two
// identities with the same raw id but different generations never compare
// equal.
type entityTable struct {
	generations []uint8 // indexed by raw id; raw 0 never issued
	free        []uint32
	next        uint32
}

func newEntityTable() entityTable {
	return entityTable{
		generations: make([]uint8, 1),
		next:        1,
	}
}

// allocate returns a fresh or recycled entity identity.
func (t *entityTable) allocate() (types.ID, error) {
	if n := len(t.free); n > 0 {
		raw := t.free[n-1]
		t.free = t.free[:n-1]
		return types.EncodeEntity(raw, uint32(t.generations[raw])), nil
	}
	if t.next > maxEntityRawID {
		return types.Nil, eris.Wrapf(types.ErrLimitExceeded,
			"entity id %d exceeds limit %d", t.next, maxEntityRawID)
	}
	raw := t.next
	t.next++
	t.generations = append(t.generations, 0)
	return types.EncodeEntity(raw, 0), nil
}

// release recycles the raw id of a destroyed entity, bumping its generation.
func (t *entityTable) release(id types.ID) {
	raw := id.RawID()
	t.generations[raw]++ // wraps mod 256 by uint8 arithmetic
	t.free = append(t.free, raw)
}

// alive reports whether the identity names the current incarnation of its raw
// id.
func (t *entityTable) alive(id types.ID) bool {
	raw := id.RawID()
	if raw == 0 || raw >= t.next {
		return false
	}
	return uint32(t.generations[raw]) == id.Meta()
}
