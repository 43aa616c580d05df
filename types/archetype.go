package types

// ArchetypeID is the handle of an archetype inside a store's arena. Entities
// and filters reference archetypes by handle rather than by pointer.
type ArchetypeID int

// BadArchetypeID is the handle of no archetype.
const BadArchetypeID = ArchetypeID(-1)

// Tick is the change-detection counter stamped on component rows at the
// moment of modification. It is supplied by the external scheduler.
type Tick = uint64
