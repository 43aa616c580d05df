package registry_test

import (
	"testing"

	"github.com/rotisserie/eris"
	"gotest.tools/v3/assert"

	"github.com/strataforge/strata/registry"
	"github.com/strataforge/strata/types"
)

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (Position) Name() string { return "Position" }

type PositionConflicting struct {
	X string `json:"x"`
}

func (PositionConflicting) Name() string { return "Position" }

type Strength struct {
	Value float64 `json:"value"`
}

func (Strength) Name() string { return "Strength" }

func TestRegisterComponent(t *testing.T) {
	reg := registry.New()
	id, err := reg.RegisterComponent(Position{})
	assert.NilError(t, err)
	assert.Equal(t, types.CategoryComponent, id.Category())
	assert.Equal(t, "Position", reg.Name(id))

	found, err := reg.Lookup("Position")
	assert.NilError(t, err)
	assert.Equal(t, id, found)

	schema, ok := reg.SchemaFor(id)
	assert.Check(t, ok)
	assert.Equal(t, 2, len(schema.Fields))
	assert.Equal(t, "x", schema.Fields[0].Name)
	assert.Equal(t, types.FieldFloat64, schema.Fields[0].Kind)
}

func TestRegisterComponentIsIdempotent(t *testing.T) {
	reg := registry.New()
	first, err := reg.RegisterComponent(Position{})
	assert.NilError(t, err)
	second, err := reg.RegisterComponent(Position{})
	assert.NilError(t, err)
	assert.Equal(t, first, second)
}

func TestRegisterComponentSchemaConflict(t *testing.T) {
	reg := registry.New()
	_, err := reg.RegisterComponent(Position{})
	assert.NilError(t, err)
	_, err = reg.RegisterComponent(PositionConflicting{})
	assert.Check(t, eris.Is(eris.Cause(err), types.ErrDuplicate))
}

func TestRegisterTagAndRelation(t *testing.T) {
	reg := registry.New()
	tag, err := reg.RegisterTag("Frozen")
	assert.NilError(t, err)
	assert.Equal(t, types.CategoryTag, tag.Category())

	rel, err := reg.RegisterRelation("ChildOf", registry.Exclusive())
	assert.NilError(t, err)
	assert.Equal(t, types.CategoryRelation, rel.Category())
	assert.Check(t, reg.IsExclusive(rel.RawID()))

	likes, err := reg.RegisterRelation("Likes", registry.WithPairData(Strength{}))
	assert.NilError(t, err)
	assert.Check(t, !reg.IsExclusive(likes.RawID()))
	target := types.EncodeTag(3)
	pair, err := types.EncodePair(likes, target)
	assert.NilError(t, err)
	schema, ok := reg.SchemaFor(pair)
	assert.Check(t, ok)
	assert.Equal(t, "value", schema.Fields[0].Name)
}

func TestCrossCategoryNameIsDuplicate(t *testing.T) {
	reg := registry.New()
	_, err := reg.RegisterTag("Position")
	assert.NilError(t, err)
	_, err = reg.RegisterComponent(Position{})
	assert.Check(t, eris.Is(eris.Cause(err), types.ErrDuplicate))
}

func TestLookupUnknownName(t *testing.T) {
	reg := registry.New()
	_, err := reg.Lookup("nope")
	assert.Check(t, eris.Is(eris.Cause(err), types.ErrNotFound))
}

func TestWildcardPairCarriesNoData(t *testing.T) {
	reg := registry.New()
	likes, err := reg.RegisterRelation("Likes", registry.WithPairData(Strength{}))
	assert.NilError(t, err)
	pair, err := types.EncodePair(likes, types.Wildcard)
	assert.NilError(t, err)
	_, ok := reg.SchemaFor(pair)
	assert.Check(t, !ok)
}
