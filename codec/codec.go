// Package codec centralizes JSON conversion for snapshot export and data
// coercion at the public API boundary.
package codec

import (
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

// Decode unmarshals bytes into T.
func Decode[T any](bz []byte) (T, error) {
	out := new(T)
	if err := json.Unmarshal(bz, out); err != nil {
		return *out, eris.Wrap(err, "")
	}
	return *out, nil
}

// Encode marshals a value to JSON bytes.
func Encode(value any) ([]byte, error) {
	bz, err := json.Marshal(value)
	if err != nil {
		return nil, eris.Wrap(err, "")
	}
	return bz, nil
}

// FieldMap flattens a component value into field name to value form, the
// shape the column store writes. Maps pass through; structs round-trip
// through JSON so field names honor json tags the same way schema reflection
// does.
func FieldMap(value any) (map[string]any, error) {
	if value == nil {
		return nil, nil
	}
	if m, ok := value.(map[string]any); ok {
		return m, nil
	}
	bz, err := Encode(value)
	if err != nil {
		return nil, eris.Wrap(err, "component data must be json serializable")
	}
	return Decode[map[string]any](bz)
}
