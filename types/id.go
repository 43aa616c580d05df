package types

import "strconv"

// Category is the 3-bit tag embedded in every non-pair ID. Pairs do not carry
// their own category tag; Category() reports CategoryPair for them based on
// the pair flag alone.
type Category uint32

const (
	CategoryEntity Category = iota
	CategoryTag
	CategoryComponent
	CategoryRelation

	// CategoryPair is virtual: it is reported for pair IDs but never encoded
	// in the category tag bits.
	CategoryPair
)

func (c Category) String() string {
	switch c {
	case CategoryEntity:
		return "entity"
	case CategoryTag:
		return "tag"
	case CategoryComponent:
		return "component"
	case CategoryRelation:
		return "relation"
	case CategoryPair:
		return "pair"
	}
	return "invalid"
}

// ID is a 32-bit tagged identity. Bit 31 is the pair flag. Non-pair IDs carry
// a 3-bit category tag in bits 28-30. Entity, tag and component IDs pack a
// 20-bit raw id in bits 8-27 and 8 bits of meta in bits 0-7 (entities use meta
// as their generation). Relation IDs pack an 8-bit raw id in bits 0-7 and must
// keep bits 8-27 zero. Pair IDs pack the target category in bits 28-30, the
// target raw id in bits 8-27 and the relation raw id in bits 0-7.
type ID uint32

const (
	pairFlag      = uint32(1) << 31
	categoryShift = 28
	categoryBits  = uint32(0x7)
	rawShift      = 8
	rawBits       = uint32(0xFFFFF)
	metaBits      = uint32(0xFF)

	// MaxRawID is the largest raw id for entities, tags and components.
	MaxRawID = uint32(0xFFFFF)
	// MaxRelationRawID is the largest raw id for relations.
	MaxRelationRawID = uint32(0xFF)
	// MaxMeta is the largest meta value (entity generation).
	MaxMeta = uint32(0xFF)

	// WildcardRawID is the reserved raw id that stands for "any" in the
	// target position of a pair. It is never issued by the registry.
	WildcardRawID = MaxRawID
	// WildcardRelationRawID is the reserved relation raw id that stands for
	// "any" in the relation position of a pair.
	WildcardRelationRawID = MaxRelationRawID
)

// Nil is the zero ID. It decodes as an entity with raw id 0 and generation 0,
// a combination that is never issued, so the zero value is always invalid.
const Nil ID = 0

// Wildcard is the reserved identity that matches "any" in pair queries. It
// may appear in either position of a pair.
const Wildcard = ID(uint32(CategoryTag)<<categoryShift | WildcardRawID<<rawShift)

// Encode packs a non-pair identity. Inputs are masked to their field widths;
// range enforcement belongs to the registry and entity table, which own id
// allocation.
func Encode(cat Category, rawID uint32, meta uint32) ID {
	if cat == CategoryRelation {
		return ID(uint32(cat)<<categoryShift | rawID&metaBits)
	}
	return ID(uint32(cat)<<categoryShift | (rawID&rawBits)<<rawShift | meta&metaBits)
}

// EncodeEntity packs an entity identity with the given generation.
func EncodeEntity(rawID uint32, generation uint32) ID {
	return Encode(CategoryEntity, rawID, generation)
}

// EncodeTag packs a tag identity.
func EncodeTag(rawID uint32) ID {
	return Encode(CategoryTag, rawID, 0)
}

// EncodeComponent packs a component identity.
func EncodeComponent(rawID uint32) ID {
	return Encode(CategoryComponent, rawID, 0)
}

// EncodeRelation packs a relation identity.
func EncodeRelation(rawID uint32) ID {
	return Encode(CategoryRelation, rawID, 0)
}

// IsPair reports whether the identity is a relation/target pair.
func (id ID) IsPair() bool {
	return uint32(id)&pairFlag != 0
}

// Category reports the identity's category. Pairs report CategoryPair.
func (id ID) Category() Category {
	if id.IsPair() {
		return CategoryPair
	}
	return Category(uint32(id) >> categoryShift & categoryBits)
}

// RawID reports the raw numeric id of a non-pair identity. For pairs it
// reports the target raw id.
func (id ID) RawID() uint32 {
	if !id.IsPair() && id.Category() == CategoryRelation {
		return uint32(id) & metaBits
	}
	return uint32(id) >> rawShift & rawBits
}

// Meta reports the meta field of a non-pair identity: the generation for
// entities, zero for tags and components. Relations reserve bits 8-27 as meta
// and keep them zero.
func (id ID) Meta() uint32 {
	if id.Category() == CategoryRelation {
		return uint32(id) >> rawShift & rawBits
	}
	return uint32(id) & metaBits
}

// PairRelationRaw reports the relation raw id of a pair.
func (id ID) PairRelationRaw() uint32 {
	return uint32(id) & metaBits
}

// PairTargetRaw reports the target raw id of a pair.
func (id ID) PairTargetRaw() uint32 {
	return uint32(id) >> rawShift & rawBits
}

// PairTargetCategory reports the category of a pair's target.
func (id ID) PairTargetCategory() Category {
	return Category(uint32(id) >> categoryShift & categoryBits)
}

// HasWildcard reports whether either position of a pair is the wildcard.
// Non-pair identities report true only for Wildcard itself.
func (id ID) HasWildcard() bool {
	if !id.IsPair() {
		return id == Wildcard
	}
	return id.PairRelationRaw() == WildcardRelationRawID || id.PairTargetRaw() == WildcardRawID
}

// Valid reports whether the identity is structurally well formed: non-nil,
// with a known category tag, and with relation meta bits zeroed. A raw
// numeric value that never went through Encode typically fails this check.
func (id ID) Valid() bool {
	if id == Nil {
		return false
	}
	if id.IsPair() {
		cat := id.PairTargetCategory()
		return cat <= CategoryRelation
	}
	cat := id.Category()
	if cat > CategoryRelation {
		return false
	}
	if cat == CategoryRelation && uint32(id)>>rawShift&rawBits != 0 {
		return false
	}
	return true
}

// String renders the identity for logs and error messages.
func (id ID) String() string {
	if id == Wildcard {
		return "*"
	}
	if id.IsPair() {
		rel := strconv.FormatUint(uint64(id.PairRelationRaw()), 10)
		if id.PairRelationRaw() == WildcardRelationRawID {
			rel = "*"
		}
		tgt := strconv.FormatUint(uint64(id.PairTargetRaw()), 10)
		if id.PairTargetRaw() == WildcardRawID {
			tgt = "*"
		}
		return "pair(" + rel + "," + tgt + ")"
	}
	s := id.Category().String() + ":" + strconv.FormatUint(uint64(id.RawID()), 10)
	if id.Category() == CategoryEntity {
		s += "v" + strconv.FormatUint(uint64(id.Meta()), 10)
	}
	return s
}
