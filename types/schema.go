package types

import (
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/rotisserie/eris"
	"github.com/wI2L/jsondiff"
)

// Component is the interface user code implements to declare a data-bearing
// type. The declared struct's fields become the component's column layout.
type Component interface {
	// Name returns the unique name of the component.
	Name() string
}

// FieldKind is the closed set of primitive kinds a component field may have.
// Column storage dispatches on the kind once, at type-definition time.
type FieldKind uint8

const (
	FieldFloat64 FieldKind = iota
	FieldInt64
	FieldBool
	FieldString
)

func (k FieldKind) String() string {
	switch k {
	case FieldFloat64:
		return "float64"
	case FieldInt64:
		return "int64"
	case FieldBool:
		return "bool"
	case FieldString:
		return "string"
	}
	return "invalid"
}

// Field is one named slot in a component's schema.
type Field struct {
	Name string
	Kind FieldKind
}

// Schema is the runtime description of a component's field layout plus the
// reflected JSON schema used to detect conflicting re-registrations.
type Schema struct {
	Fields []Field

	jsonSchema []byte
}

// FieldNamed returns the index of the named field, or -1.
func (s *Schema) FieldNamed(name string) int {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return i
		}
	}
	return -1
}

// JSONSchema returns the reflected JSON schema bytes.
func (s *Schema) JSONSchema() []byte {
	return s.jsonSchema
}

// SchemaOf reflects a component prototype into its runtime schema. Only
// float, integer, bool and string fields are supported; anything else is an
// invalid argument. Field names honor json tags.
func SchemaOf(prototype Component) (*Schema, error) {
	t := reflect.TypeOf(prototype)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, eris.Wrapf(ErrInvalidArgument, "component %q must be declared as a struct", prototype.Name())
	}
	schema := &Schema{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		kind, ok := fieldKindOf(f.Type.Kind())
		if !ok {
			return nil, eris.Wrapf(ErrInvalidArgument,
				"component %q field %q has unsupported kind %s", prototype.Name(), f.Name, f.Type.Kind())
		}
		schema.Fields = append(schema.Fields, Field{Name: fieldName(f), Kind: kind})
	}
	js, err := serializeJSONSchema(prototype)
	if err != nil {
		return nil, err
	}
	schema.jsonSchema = js
	return schema, nil
}

func fieldKindOf(k reflect.Kind) (FieldKind, bool) {
	switch k {
	case reflect.Float32, reflect.Float64:
		return FieldFloat64, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return FieldInt64, true
	case reflect.Bool:
		return FieldBool, true
	case reflect.String:
		return FieldString, true
	}
	return 0, false
}

func fieldName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" || tag == "-" {
		return f.Name
	}
	if idx := strings.Index(tag, ","); idx >= 0 {
		tag = tag[:idx]
	}
	if tag == "" {
		return f.Name
	}
	return tag
}

func serializeJSONSchema(prototype Component) ([]byte, error) {
	reflected := jsonschema.Reflect(prototype)
	bz, err := reflected.MarshalJSON()
	if err != nil {
		return nil, eris.Wrapf(err, "component %q must be json serializable", prototype.Name())
	}
	return bz, nil
}

// IsSchemaValid reports whether two reflected JSON schemas describe the same
// shape.
func IsSchemaValid(a []byte, b []byte) (bool, error) {
	patch, err := jsondiff.CompareJSON(a, b)
	if err != nil {
		return false, eris.Wrap(err, "")
	}
	return patch.String() == "", nil
}
