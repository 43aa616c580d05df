package types

import "github.com/rotisserie/eris"

// EncodePair packs a relation and a target into a pair identity. The relation
// operand must be a relation identity or the Wildcard; the target may be an
// entity, tag, component or relation, but never another pair (pairs do not
// nest).
func EncodePair(relation ID, target ID) (ID, error) {
	if target.IsPair() {
		return Nil, eris.Wrapf(ErrInvalidArgument, "pair target %s must not itself be a pair", target)
	}
	var relRaw uint32
	switch {
	case relation == Wildcard:
		relRaw = WildcardRelationRawID
	case !relation.IsPair() && relation.Category() == CategoryRelation:
		relRaw = relation.RawID()
	default:
		return Nil, eris.Wrapf(ErrInvalidArgument, "pair relation %s must be a relation identity or the wildcard", relation)
	}
	packed := pairFlag |
		uint32(target.Category())<<categoryShift |
		(target.RawID()&rawBits)<<rawShift |
		relRaw&metaBits
	return ID(packed), nil
}

// MustEncodePair is EncodePair for operands already known to be well formed.
// It panics on a malformed operand, which indicates a corrupted identity.
func MustEncodePair(relation ID, target ID) ID {
	id, err := EncodePair(relation, target)
	if err != nil {
		panic(err)
	}
	return id
}
