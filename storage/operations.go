package storage

import (
	"github.com/rotisserie/eris"

	"github.com/strataforge/strata/events"
	"github.com/strataforge/strata/types"
)

// attachable screens the type ids that may appear in an entity's type set:
// tags, components and pairs. Bare relations only ever attach through pairs,
// and entities are not types.
func attachable(t types.ID) bool {
	if !t.Valid() {
		return false
	}
	if t.IsPair() {
		return true
	}
	cat := t.Category()
	return cat == types.CategoryTag || cat == types.CategoryComponent
}

// AddComponent attaches the type to the entity, moving its row to the
// neighboring archetype. Adding a type already present is a no-op: the stored
// value keeps its first-attach data and the second data argument is ignored,
// never merged. Data fields, if supplied, are written after the row move so
// observers of ComponentAdded can read them.
func (s *Store) AddComponent(e types.ID, t types.ID, data map[string]any) error {
	if !attachable(t) {
		return eris.Wrapf(types.ErrInvalidArgument, "%s is not an attachable type", t)
	}
	p, ok := s.resolve(e, true)
	if !ok {
		return eris.Wrapf(ErrEntityDoesNotExist, "%s", e)
	}
	from := s.archetypes[p.arch]
	if from.Has(t) {
		return nil
	}

	// An exclusive relation holds at most one live concrete target. The
	// displaced pair goes away before the new transition is computed. An
	// observer of the displacement may have attached the incoming type
	// already; re-check before moving, as RemoveComponent does.
	if t.IsPair() && !t.HasWildcard() && s.src.IsExclusive(t.PairRelationRaw()) {
		if prior := findPairWithRelation(from.typeIDs, t.PairRelationRaw(), t); prior != types.Nil {
			if err := s.RemoveComponent(e, prior); err != nil {
				return err
			}
			from = s.archetypes[s.placements[e].arch]
			if from.Has(t) {
				return nil
			}
		}
	}

	to := s.addTransition(from, t)
	s.moveEntity(e, to)

	// Concrete pairs keep two bookkeeping pairs alive so wildcard queries
	// ("any relation to X", "any target of R") match without enumerating
	// concrete pairs.
	if t.IsPair() && !t.HasWildcard() {
		relWildcard := types.ID(uint32(t) | types.WildcardRelationRawID)
		if err := s.AddComponent(e, relWildcard, nil); err != nil {
			return err
		}
		targetWildcard, err := types.EncodePair(types.EncodeRelation(t.PairRelationRaw()), types.Wildcard)
		if err != nil {
			return err
		}
		if err := s.AddComponent(e, targetWildcard, nil); err != nil {
			return err
		}
	}

	if data != nil {
		s.writeFields(e, t, data)
	}
	s.bus.Fire(events.ComponentAdded, events.Signal{
		Entity:    e,
		Type:      t,
		Archetype: s.placements[e].arch,
	})
	return nil
}

// RemoveComponent detaches the type from the entity. Removing an absent type
// is a no-op. ComponentRemoved fires before the row move so observers can
// still read the value.
func (s *Store) RemoveComponent(e types.ID, t types.ID) error {
	if !attachable(t) {
		return eris.Wrapf(types.ErrInvalidArgument, "%s is not an attachable type", t)
	}
	p, ok := s.resolve(e, false)
	if !ok {
		return nil
	}
	from := s.archetypes[p.arch]
	if !from.Has(t) {
		return nil
	}

	s.bus.Fire(events.ComponentRemoved, events.Signal{Entity: e, Type: t, Archetype: from.id})

	// An observer may have already restructured the entity; re-resolve and
	// re-check before moving.
	p, ok = s.resolve(e, false)
	if !ok {
		return nil
	}
	from = s.archetypes[p.arch]
	if !from.Has(t) {
		return nil
	}
	to := s.removeTransition(from, t)
	s.moveEntity(e, to)

	// Bookkeeping pairs stay only while some other concrete pair on the
	// entity still needs them.
	if t.IsPair() && !t.HasWildcard() {
		remaining := s.archetypes[s.placements[e].arch].typeIDs
		if !anyPairWithTarget(remaining, t.PairTargetRaw(), t.PairTargetCategory()) {
			relWildcard := types.ID(uint32(t) | types.WildcardRelationRawID)
			if err := s.RemoveComponent(e, relWildcard); err != nil {
				return err
			}
		}
		if !anyPairWithRelation(remaining, t.PairRelationRaw()) {
			targetWildcard, err := types.EncodePair(types.EncodeRelation(t.PairRelationRaw()), types.Wildcard)
			if err != nil {
				return err
			}
			if err := s.RemoveComponent(e, targetWildcard); err != nil {
				return err
			}
		}
	}
	return nil
}

// HasComponent reports exact membership of the type in the entity's current
// archetype. It never errors: unknown entities and absent types report false.
func (s *Store) HasComponent(e types.ID, t types.ID) bool {
	p, ok := s.resolve(e, false)
	if !ok {
		return false
	}
	return s.archetypes[p.arch].Has(t)
}

// GetComponentValue reads one field of the entity's component. A missing
// entity, component or field reports (nil, false).
func (s *Store) GetComponentValue(e types.ID, t types.ID, field string) (any, bool) {
	p, ok := s.resolve(e, false)
	if !ok {
		return nil, false
	}
	col := s.archetypes[p.arch].columnFor(t)
	if col == nil {
		return nil, false
	}
	return col.get(p.row, field)
}

// SetComponentValue writes one field, stamps the change tick and fires
// ComponentChanged. Writing to a missing entity, component or field is a
// silent no-op.
func (s *Store) SetComponentValue(e types.ID, t types.ID, field string, value any) {
	p, ok := s.resolve(e, false)
	if !ok {
		return
	}
	col := s.archetypes[p.arch].columnFor(t)
	if col == nil || !col.set(p.row, field, value) {
		return
	}
	col.changed[p.row] = s.tick()
	s.bus.Fire(events.ComponentChanged, events.Signal{Entity: e, Type: t, Archetype: p.arch})
}

// EmitComponentChanged stamps the change tick and fires ComponentChanged
// without touching data, for callers that mutate in place.
func (s *Store) EmitComponentChanged(e types.ID, t types.ID) {
	p, ok := s.resolve(e, false)
	if !ok {
		return
	}
	arch := s.archetypes[p.arch]
	if !arch.Has(t) {
		return
	}
	if col := arch.columnFor(t); col != nil {
		col.changed[p.row] = s.tick()
	}
	s.bus.Fire(events.ComponentChanged, events.Signal{Entity: e, Type: t, Archetype: p.arch})
}

// ChangedTick reports the tick stamped on the entity's component by the last
// explicit mutation, zero if it was never mutated after attach.
func (s *Store) ChangedTick(e types.ID, t types.ID) (types.Tick, bool) {
	p, ok := s.resolve(e, false)
	if !ok {
		return 0, false
	}
	col := s.archetypes[p.arch].columnFor(t)
	if col == nil {
		return 0, false
	}
	return col.changed[p.row], true
}

// CascadeRemoveComponent removes the type from every entity currently holding
// it, then destroys every archetype that contained it; those archetypes are
// permanently invalid. The affected archetype list is snapshotted first since
// removal mutates membership mid-iteration, and each entity list is walked
// back-to-front so the swap-remove shrinkage never skips an entity.
func (s *Store) CascadeRemoveComponent(t types.ID) error {
	if !attachable(t) {
		return eris.Wrapf(types.ErrInvalidArgument, "%s is not an attachable type", t)
	}
	affected := append([]types.ArchetypeID(nil), s.records[t]...)
	for _, archID := range affected {
		arch, ok := s.Archetype(archID)
		if !ok {
			continue
		}
		for i := len(arch.entities) - 1; i >= 0; i-- {
			if i >= len(arch.entities) {
				i = len(arch.entities)
				continue
			}
			if err := s.RemoveComponent(arch.entities[i], t); err != nil {
				return err
			}
		}
	}
	for _, archID := range affected {
		s.destroyArchetype(archID)
	}
	s.logger.Debug().Stringer("type", t).Int("archetypes", len(affected)).Msg("cascade removal")
	return nil
}

// writeFields writes first-attach data through the entity's current column.
func (s *Store) writeFields(e types.ID, t types.ID, data map[string]any) {
	p := s.placements[e]
	col := s.archetypes[p.arch].columnFor(t)
	if col == nil {
		return
	}
	for field, value := range data {
		col.set(p.row, field, value)
	}
}

func findPairWithRelation(typeIDs []types.ID, relationRaw uint32, except types.ID) types.ID {
	for _, t := range typeIDs {
		if !t.IsPair() || t == except {
			continue
		}
		if t.PairRelationRaw() == relationRaw && t.PairTargetRaw() != types.WildcardRawID {
			return t
		}
	}
	return types.Nil
}

func anyPairWithRelation(typeIDs []types.ID, relationRaw uint32) bool {
	for _, t := range typeIDs {
		if t.IsPair() && t.PairRelationRaw() == relationRaw && t.PairTargetRaw() != types.WildcardRawID {
			return true
		}
	}
	return false
}

func anyPairWithTarget(typeIDs []types.ID, targetRaw uint32, targetCat types.Category) bool {
	for _, t := range typeIDs {
		if t.IsPair() &&
			t.PairTargetRaw() == targetRaw &&
			t.PairTargetCategory() == targetCat &&
			t.PairRelationRaw() != types.WildcardRelationRawID {
			return true
		}
	}
	return false
}
