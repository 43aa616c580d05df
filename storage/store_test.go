package storage_test

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"gotest.tools/v3/assert"

	"github.com/strataforge/strata/events"
	"github.com/strataforge/strata/registry"
	"github.com/strataforge/strata/storage"
	"github.com/strataforge/strata/types"
)

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (Position) Name() string { return "Position" }

type Velocity struct {
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
}

func (Velocity) Name() string { return "Velocity" }

type Strength struct {
	Value float64 `json:"value"`
}

func (Strength) Name() string { return "Strength" }

type fixture struct {
	store *storage.Store
	reg   *registry.Registry
	bus   *events.Bus
	tick  uint64

	position types.ID
	velocity types.ID
	frozen   types.ID
	childOf  types.ID
	likes    types.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		reg: registry.New(),
		bus: events.NewBus(),
	}
	f.store = storage.NewStore(f.reg, f.bus, func() types.Tick { return f.tick }, zerolog.Nop())

	var err error
	f.position, err = f.reg.RegisterComponent(Position{})
	assert.NilError(t, err)
	f.velocity, err = f.reg.RegisterComponent(Velocity{})
	assert.NilError(t, err)
	f.frozen, err = f.reg.RegisterTag("Frozen")
	assert.NilError(t, err)
	f.childOf, err = f.reg.RegisterRelation("ChildOf", registry.Exclusive())
	assert.NilError(t, err)
	f.likes, err = f.reg.RegisterRelation("Likes", registry.WithPairData(Strength{}))
	assert.NilError(t, err)
	return f
}

func (f *fixture) pair(t *testing.T, rel, target types.ID) types.ID {
	t.Helper()
	p, err := types.EncodePair(rel, target)
	assert.NilError(t, err)
	return p
}

func TestCreateAndDestroyEntity(t *testing.T) {
	f := newFixture(t)
	e, err := f.store.CreateEntity()
	assert.NilError(t, err)
	assert.Check(t, f.store.Alive(e))

	assert.NilError(t, f.store.DestroyEntity(e))
	assert.Check(t, !f.store.Alive(e))

	err = f.store.DestroyEntity(e)
	assert.Check(t, eris.Is(eris.Cause(err), storage.ErrEntityDoesNotExist))
}

func TestEntityIDRecyclingBumpsGeneration(t *testing.T) {
	f := newFixture(t)
	e1, err := f.store.CreateEntity()
	assert.NilError(t, err)
	assert.NilError(t, f.store.DestroyEntity(e1))

	e2, err := f.store.CreateEntity()
	assert.NilError(t, err)
	assert.Equal(t, e1.RawID(), e2.RawID())
	assert.Check(t, e1 != e2)
	assert.Equal(t, (e1.Meta()+1)%256, e2.Meta())

	// the stale identity never reads as the new one
	assert.Check(t, !f.store.HasComponent(e1, f.position))
	assert.NilError(t, f.store.AddComponent(e2, f.position, nil))
	assert.Check(t, !f.store.HasComponent(e1, f.position))
}

func TestAddComponentIsIdempotent(t *testing.T) {
	f := newFixture(t)
	e, err := f.store.CreateEntity()
	assert.NilError(t, err)

	assert.NilError(t, f.store.AddComponent(e, f.position, map[string]any{"x": 1.0, "y": 2.0}))
	archBefore, _, _ := f.store.PlacementOf(e)

	// second add is ignored, data included
	assert.NilError(t, f.store.AddComponent(e, f.position, map[string]any{"x": 9.0, "y": 9.0}))
	archAfter, _, _ := f.store.PlacementOf(e)
	assert.Equal(t, archBefore, archAfter)

	x, ok := f.store.GetComponentValue(e, f.position, "x")
	assert.Check(t, ok)
	assert.Equal(t, 1.0, x)
}

func TestRemoveComponentIsIdempotent(t *testing.T) {
	f := newFixture(t)
	e, err := f.store.CreateEntity()
	assert.NilError(t, err)
	assert.NilError(t, f.store.AddComponent(e, f.position, nil))

	archBefore, _, _ := f.store.PlacementOf(e)
	assert.NilError(t, f.store.RemoveComponent(e, f.velocity))
	archAfter, _, _ := f.store.PlacementOf(e)
	assert.Equal(t, archBefore, archAfter)
}

func TestConvergenceAcrossAddOrders(t *testing.T) {
	f := newFixture(t)
	e1, err := f.store.CreateEntity()
	assert.NilError(t, err)
	e2, err := f.store.CreateEntity()
	assert.NilError(t, err)

	assert.NilError(t, f.store.AddComponent(e1, f.position, nil))
	assert.NilError(t, f.store.AddComponent(e1, f.velocity, nil))
	assert.NilError(t, f.store.AddComponent(e1, f.frozen, nil))

	assert.NilError(t, f.store.AddComponent(e2, f.frozen, nil))
	assert.NilError(t, f.store.AddComponent(e2, f.velocity, nil))
	assert.NilError(t, f.store.AddComponent(e2, f.position, nil))

	arch1, _, ok := f.store.PlacementOf(e1)
	assert.Check(t, ok)
	arch2, _, ok := f.store.PlacementOf(e2)
	assert.Check(t, ok)
	assert.Equal(t, arch1, arch2)
}

func TestConvergenceViaRemoval(t *testing.T) {
	f := newFixture(t)
	e1, err := f.store.CreateEntity()
	assert.NilError(t, err)
	e2, err := f.store.CreateEntity()
	assert.NilError(t, err)

	assert.NilError(t, f.store.AddComponent(e1, f.position, nil))

	assert.NilError(t, f.store.AddComponent(e2, f.velocity, nil))
	assert.NilError(t, f.store.AddComponent(e2, f.position, nil))
	assert.NilError(t, f.store.RemoveComponent(e2, f.velocity))

	arch1, _, _ := f.store.PlacementOf(e1)
	arch2, _, _ := f.store.PlacementOf(e2)
	assert.Equal(t, arch1, arch2)
}

func TestSwapRemoveKeepsRowsDense(t *testing.T) {
	f := newFixture(t)
	var ents []types.ID
	for i := 0; i < 3; i++ {
		e, err := f.store.CreateEntity()
		assert.NilError(t, err)
		assert.NilError(t, f.store.AddComponent(e, f.position, map[string]any{"x": float64(i + 1)}))
		ents = append(ents, e)
	}

	// destroy the middle entity; the last row backfills its slot
	assert.NilError(t, f.store.DestroyEntity(ents[1]))

	x0, ok := f.store.GetComponentValue(ents[0], f.position, "x")
	assert.Check(t, ok)
	assert.Equal(t, 1.0, x0)
	x2, ok := f.store.GetComponentValue(ents[2], f.position, "x")
	assert.Check(t, ok)
	assert.Equal(t, 3.0, x2)

	archID, _, _ := f.store.PlacementOf(ents[0])
	arch, ok := f.store.Archetype(archID)
	assert.Check(t, ok)
	assert.Equal(t, 2, arch.Len())
}

func TestGetSetComponentValue(t *testing.T) {
	f := newFixture(t)
	e, err := f.store.CreateEntity()
	assert.NilError(t, err)
	assert.NilError(t, f.store.AddComponent(e, f.position, map[string]any{"x": 4.0, "y": 5.0}))

	y, ok := f.store.GetComponentValue(e, f.position, "y")
	assert.Check(t, ok)
	assert.Equal(t, 5.0, y)

	// missing component and missing field read as absent, never error
	_, ok = f.store.GetComponentValue(e, f.velocity, "vx")
	assert.Check(t, !ok)
	_, ok = f.store.GetComponentValue(e, f.position, "z")
	assert.Check(t, !ok)

	f.store.SetComponentValue(e, f.position, "x", 42.0)
	x, ok := f.store.GetComponentValue(e, f.position, "x")
	assert.Check(t, ok)
	assert.Equal(t, 42.0, x)

	// writes to absent slots are silent no-ops
	f.store.SetComponentValue(e, f.velocity, "vx", 1.0)
	f.store.SetComponentValue(e, f.position, "z", 1.0)
}

func TestChangeTicksStampOnlyOnMutation(t *testing.T) {
	f := newFixture(t)
	e, err := f.store.CreateEntity()
	assert.NilError(t, err)

	f.tick = 7
	assert.NilError(t, f.store.AddComponent(e, f.position, map[string]any{"x": 1.0}))
	tick, ok := f.store.ChangedTick(e, f.position)
	assert.Check(t, ok)
	assert.Equal(t, types.Tick(0), tick) // present but never modified

	f.tick = 9
	f.store.SetComponentValue(e, f.position, "x", 2.0)
	tick, _ = f.store.ChangedTick(e, f.position)
	assert.Equal(t, types.Tick(9), tick)

	f.tick = 12
	f.store.EmitComponentChanged(e, f.position)
	tick, _ = f.store.ChangedTick(e, f.position)
	assert.Equal(t, types.Tick(12), tick)
}

func TestComponentChangedEventFires(t *testing.T) {
	f := newFixture(t)
	e, err := f.store.CreateEntity()
	assert.NilError(t, err)
	assert.NilError(t, f.store.AddComponent(e, f.position, nil))

	changed := 0
	f.bus.Register(events.ComponentChanged, func(events.Signal) { changed++ })
	f.store.SetComponentValue(e, f.position, "x", 1.0)
	f.store.EmitComponentChanged(e, f.position)
	// silent no-ops never fire
	f.store.SetComponentValue(e, f.velocity, "vx", 1.0)
	assert.Equal(t, 2, changed)
}

func TestHasComponentNeverErrors(t *testing.T) {
	f := newFixture(t)
	ghost := types.EncodeEntity(999, 5)
	assert.Check(t, !f.store.HasComponent(ghost, f.position))
	assert.Check(t, !f.store.HasComponent(types.Nil, f.position))
}

func TestExclusiveRelationDisplacesPriorTarget(t *testing.T) {
	f := newFixture(t)
	e, err := f.store.CreateEntity()
	assert.NilError(t, err)
	t1, err := f.store.CreateEntity()
	assert.NilError(t, err)
	t2, err := f.store.CreateEntity()
	assert.NilError(t, err)

	p1 := f.pair(t, f.childOf, t1)
	p2 := f.pair(t, f.childOf, t2)

	assert.NilError(t, f.store.AddComponent(e, p1, nil))
	assert.Check(t, f.store.HasComponent(e, p1))

	assert.NilError(t, f.store.AddComponent(e, p2, nil))
	assert.Check(t, !f.store.HasComponent(e, p1))
	assert.Check(t, f.store.HasComponent(e, p2))
}

func TestExclusiveDisplacementObserverMayReAddThePair(t *testing.T) {
	f := newFixture(t)
	e, err := f.store.CreateEntity()
	assert.NilError(t, err)
	t1, err := f.store.CreateEntity()
	assert.NilError(t, err)
	t2, err := f.store.CreateEntity()
	assert.NilError(t, err)

	p1 := f.pair(t, f.childOf, t1)
	p2 := f.pair(t, f.childOf, t2)
	assert.NilError(t, f.store.AddComponent(e, p1, nil))

	// an observer of the displacement attaches the incoming pair itself
	reAdded := false
	f.bus.Register(events.ComponentRemoved, func(sig events.Signal) {
		if sig.Type == p1 && !reAdded {
			reAdded = true
			assert.NilError(t, f.store.AddComponent(sig.Entity, p2, nil))
		}
	})

	assert.NilError(t, f.store.AddComponent(e, p2, nil))
	assert.Check(t, !f.store.HasComponent(e, p1))
	assert.Check(t, f.store.HasComponent(e, p2))

	// placement stayed coherent through the re-entrant mutation
	archID, row, ok := f.store.PlacementOf(e)
	assert.Check(t, ok)
	arch, ok := f.store.Archetype(archID)
	assert.Check(t, ok)
	assert.Check(t, row < arch.Len())
	assert.NilError(t, f.store.DestroyEntity(e))
}

func TestNonExclusiveRelationKeepsAllTargets(t *testing.T) {
	f := newFixture(t)
	e, err := f.store.CreateEntity()
	assert.NilError(t, err)
	t1, err := f.store.CreateEntity()
	assert.NilError(t, err)
	t2, err := f.store.CreateEntity()
	assert.NilError(t, err)

	assert.NilError(t, f.store.AddComponent(e, f.pair(t, f.likes, t1), nil))
	assert.NilError(t, f.store.AddComponent(e, f.pair(t, f.likes, t2), nil))
	assert.Check(t, f.store.HasComponent(e, f.pair(t, f.likes, t1)))
	assert.Check(t, f.store.HasComponent(e, f.pair(t, f.likes, t2)))
}

func TestWildcardBookkeeping(t *testing.T) {
	f := newFixture(t)
	e, err := f.store.CreateEntity()
	assert.NilError(t, err)
	target, err := f.store.CreateEntity()
	assert.NilError(t, err)

	concrete := f.pair(t, f.likes, target)
	anyRelation := f.pair(t, types.Wildcard, target)
	anyTarget := f.pair(t, f.likes, types.Wildcard)

	assert.NilError(t, f.store.AddComponent(e, concrete, nil))
	assert.Check(t, f.store.HasComponent(e, anyRelation))
	assert.Check(t, f.store.HasComponent(e, anyTarget))

	assert.NilError(t, f.store.RemoveComponent(e, concrete))
	assert.Check(t, !f.store.HasComponent(e, anyRelation))
	assert.Check(t, !f.store.HasComponent(e, anyTarget))
}

func TestWildcardBookkeepingSurvivesWhileNeeded(t *testing.T) {
	f := newFixture(t)
	e, err := f.store.CreateEntity()
	assert.NilError(t, err)
	t1, err := f.store.CreateEntity()
	assert.NilError(t, err)
	t2, err := f.store.CreateEntity()
	assert.NilError(t, err)

	assert.NilError(t, f.store.AddComponent(e, f.pair(t, f.likes, t1), nil))
	assert.NilError(t, f.store.AddComponent(e, f.pair(t, f.likes, t2), nil))

	assert.NilError(t, f.store.RemoveComponent(e, f.pair(t, f.likes, t1)))
	// second pair of the relation still needs pair(Likes, *)
	assert.Check(t, f.store.HasComponent(e, f.pair(t, f.likes, types.Wildcard)))
	// nothing points at t1 anymore
	assert.Check(t, !f.store.HasComponent(e, f.pair(t, types.Wildcard, t1)))
	assert.Check(t, f.store.HasComponent(e, f.pair(t, types.Wildcard, t2)))
}

func TestPairDataLivesInColumns(t *testing.T) {
	f := newFixture(t)
	e, err := f.store.CreateEntity()
	assert.NilError(t, err)
	target, err := f.store.CreateEntity()
	assert.NilError(t, err)

	p := f.pair(t, f.likes, target)
	assert.NilError(t, f.store.AddComponent(e, p, map[string]any{"value": 0.8}))
	v, ok := f.store.GetComponentValue(e, p, "value")
	assert.Check(t, ok)
	assert.Equal(t, 0.8, v)
}

func TestComponentOnSelfResourcePattern(t *testing.T) {
	f := newFixture(t)
	// the component id doubles as an entity carrying its own data
	assert.NilError(t, f.store.AddComponent(f.position, f.position, map[string]any{"x": 3.0}))
	assert.Check(t, f.store.HasComponent(f.position, f.position))
	x, ok := f.store.GetComponentValue(f.position, f.position, "x")
	assert.Check(t, ok)
	assert.Equal(t, 3.0, x)
}

func TestAttachableScreening(t *testing.T) {
	f := newFixture(t)
	e, err := f.store.CreateEntity()
	assert.NilError(t, err)

	err = f.store.AddComponent(e, f.childOf, nil) // bare relation, not a pair
	assert.Check(t, eris.Is(eris.Cause(err), types.ErrInvalidArgument))
	err = f.store.AddComponent(e, types.Nil, nil)
	assert.Check(t, eris.Is(eris.Cause(err), types.ErrInvalidArgument))
}

func TestCascadeRemoveComponent(t *testing.T) {
	f := newFixture(t)
	var ents []types.ID
	for i := 0; i < 4; i++ {
		e, err := f.store.CreateEntity()
		assert.NilError(t, err)
		assert.NilError(t, f.store.AddComponent(e, f.position, nil))
		if i%2 == 0 {
			assert.NilError(t, f.store.AddComponent(e, f.velocity, nil))
		}
		ents = append(ents, e)
	}

	assert.NilError(t, f.store.CascadeRemoveComponent(f.position))

	for _, e := range ents {
		assert.Check(t, !f.store.HasComponent(e, f.position))
	}
	assert.Equal(t, 0, len(f.store.RecordsFor(f.position)))
	// entities keep their other components
	assert.Check(t, f.store.HasComponent(ents[0], f.velocity))
	assert.Check(t, f.store.HasComponent(ents[2], f.velocity))
}

func TestCascadeDestroysArchetypes(t *testing.T) {
	f := newFixture(t)
	e, err := f.store.CreateEntity()
	assert.NilError(t, err)
	assert.NilError(t, f.store.AddComponent(e, f.position, nil))

	archID, _, _ := f.store.PlacementOf(e)
	assert.NilError(t, f.store.CascadeRemoveComponent(f.position))
	_, ok := f.store.Archetype(archID)
	assert.Check(t, !ok)
}

func TestComponentRemovedFiresBeforeMove(t *testing.T) {
	f := newFixture(t)
	e, err := f.store.CreateEntity()
	assert.NilError(t, err)
	assert.NilError(t, f.store.AddComponent(e, f.position, map[string]any{"x": 6.0}))

	var seen any
	f.bus.Register(events.ComponentRemoved, func(sig events.Signal) {
		seen, _ = f.store.GetComponentValue(sig.Entity, sig.Type, "x")
	})
	assert.NilError(t, f.store.RemoveComponent(e, f.position))
	assert.Equal(t, 6.0, seen)
}

func TestReset(t *testing.T) {
	f := newFixture(t)
	e, err := f.store.CreateEntity()
	assert.NilError(t, err)
	assert.NilError(t, f.store.AddComponent(e, f.position, nil))

	resets := 0
	f.bus.Register(events.WorldReset, func(events.Signal) { resets++ })
	f.store.Reset()

	assert.Equal(t, 1, resets)
	assert.Check(t, !f.store.Alive(e))
	assert.Equal(t, 1, f.store.ArchetypeCount()) // just the root again
}
