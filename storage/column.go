package storage

import "github.com/strataforge/strata/types"

// fieldArray is the dense storage for one field of one column, dispatched on
// the field kind once at column creation.
type fieldArray struct {
	name string
	kind types.FieldKind

	f64  []float64
	i64  []int64
	bits []bool
	str  []string
}

func (f *fieldArray) appendZero() {
	switch f.kind {
	case types.FieldFloat64:
		f.f64 = append(f.f64, 0)
	case types.FieldInt64:
		f.i64 = append(f.i64, 0)
	case types.FieldBool:
		f.bits = append(f.bits, false)
	case types.FieldString:
		f.str = append(f.str, "")
	}
}

func (f *fieldArray) swapRemove(row int, last int) {
	switch f.kind {
	case types.FieldFloat64:
		f.f64[row] = f.f64[last]
		f.f64 = f.f64[:last]
	case types.FieldInt64:
		f.i64[row] = f.i64[last]
		f.i64 = f.i64[:last]
	case types.FieldBool:
		f.bits[row] = f.bits[last]
		f.bits = f.bits[:last]
	case types.FieldString:
		f.str[row] = f.str[last]
		f.str = f.str[:last]
	}
}

func (f *fieldArray) copyFrom(src *fieldArray, srcRow int, dstRow int) {
	switch f.kind {
	case types.FieldFloat64:
		f.f64[dstRow] = src.f64[srcRow]
	case types.FieldInt64:
		f.i64[dstRow] = src.i64[srcRow]
	case types.FieldBool:
		f.bits[dstRow] = src.bits[srcRow]
	case types.FieldString:
		f.str[dstRow] = src.str[srcRow]
	}
}

func (f *fieldArray) get(row int) any {
	switch f.kind {
	case types.FieldFloat64:
		return f.f64[row]
	case types.FieldInt64:
		return f.i64[row]
	case types.FieldBool:
		return f.bits[row]
	case types.FieldString:
		return f.str[row]
	}
	return nil
}

// set coerces the value to the field kind and reports whether it was written.
func (f *fieldArray) set(row int, value any) bool {
	switch f.kind {
	case types.FieldFloat64:
		v, ok := asFloat64(value)
		if !ok {
			return false
		}
		f.f64[row] = v
	case types.FieldInt64:
		v, ok := asInt64(value)
		if !ok {
			return false
		}
		f.i64[row] = v
	case types.FieldBool:
		v, ok := value.(bool)
		if !ok {
			return false
		}
		f.bits[row] = v
	case types.FieldString:
		v, ok := value.(string)
		if !ok {
			return false
		}
		f.str[row] = v
	}
	return true
}

func asFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func asInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case uint32:
		return int64(v), true
	case float64:
		// json-decoded numbers arrive as float64
		return int64(v), true
	}
	return 0, false
}

// column is the struct-of-arrays storage for one data-bearing type in one
// archetype, with a changed tick per row for change detection. Ticks are
// stamped only on explicit mutation, never on add, so "present" and "modified
// this tick" stay distinguishable.
type column struct {
	typeID  types.ID
	schema  *types.Schema
	fields  []fieldArray
	changed []types.Tick
}

func newColumn(typeID types.ID, schema *types.Schema) *column {
	c := &column{typeID: typeID, schema: schema}
	c.fields = make([]fieldArray, len(schema.Fields))
	for i, f := range schema.Fields {
		c.fields[i] = fieldArray{name: f.Name, kind: f.Kind}
	}
	return c
}

func (c *column) len() int {
	return len(c.changed)
}

func (c *column) appendRow() {
	for i := range c.fields {
		c.fields[i].appendZero()
	}
	c.changed = append(c.changed, 0)
}

func (c *column) swapRemove(row int) {
	last := c.len() - 1
	for i := range c.fields {
		c.fields[i].swapRemove(row, last)
	}
	c.changed[row] = c.changed[last]
	c.changed = c.changed[:last]
}

// copyRowFrom copies one row from a column of the same type in another
// archetype. Schemas are identical because the type id is identical.
func (c *column) copyRowFrom(src *column, srcRow int, dstRow int) {
	for i := range c.fields {
		c.fields[i].copyFrom(&src.fields[i], srcRow, dstRow)
	}
	c.changed[dstRow] = src.changed[srcRow]
}

func (c *column) fieldIndex(name string) int {
	for i := range c.fields {
		if c.fields[i].name == name {
			return i
		}
	}
	return -1
}

func (c *column) get(row int, field string) (any, bool) {
	i := c.fieldIndex(field)
	if i < 0 {
		return nil, false
	}
	return c.fields[i].get(row), true
}

func (c *column) set(row int, field string, value any) bool {
	i := c.fieldIndex(field)
	if i < 0 {
		return false
	}
	return c.fields[i].set(row, value)
}
