package search

import (
	"github.com/rotisserie/eris"

	"github.com/strataforge/strata/types"
)

// CallbackFn receives one matching entity. Return false to stop iterating.
type CallbackFn func(types.ID) bool

// Each walks every entity currently matching the filter. It is a restartable
// lazy sequence over the filter's current cached archetype list, not a frozen
// snapshot, and each archetype's entity list is walked back-to-front so the
// callback may destroy entities (including the one it was handed) without
// skipping the entity swapped into the freed slot.
func (c *Cached) Each(callback CallbackFn) {
	for i := 0; i < len(c.archetypes); i++ {
		arch, ok := c.engine.store.Archetype(c.archetypes[i])
		if !ok {
			continue
		}
		ents := arch.Entities()
		for j := len(ents) - 1; j >= 0; j-- {
			ents = arch.Entities()
			if j >= len(ents) {
				j = len(ents)
				continue
			}
			if !callback(ents[j]) {
				return
			}
		}
	}
}

// Count reports the number of entities currently matching the filter.
func (c *Cached) Count() int {
	total := 0
	for _, archID := range c.archetypes {
		if arch, ok := c.engine.store.Archetype(archID); ok {
			total += arch.Len()
		}
	}
	return total
}

// First returns some entity matching the filter.
func (c *Cached) First() (types.ID, error) {
	for _, archID := range c.archetypes {
		arch, ok := c.engine.store.Archetype(archID)
		if !ok {
			continue
		}
		if ents := arch.Entities(); len(ents) > 0 {
			return ents[len(ents)-1], nil
		}
	}
	return types.Nil, eris.Wrap(types.ErrNotFound, "no entity matches the filter")
}
