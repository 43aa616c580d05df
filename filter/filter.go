// Package filter defines the include/exclude terms that classify archetypes
// for queries.
package filter

import (
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/strataforge/strata/types"
)

// Terms is a query's match criteria: every include type must be present in an
// archetype's set and no exclude type may be. Terms are value objects; the
// constructors copy their inputs.
type Terms struct {
	include []types.ID
	exclude []types.ID
}

// Contains matches archetypes that contain all the given types.
func Contains(ids ...types.ID) Terms {
	return Terms{include: normalize(ids)}
}

// Without matches archetypes that contain none of the given types.
func Without(ids ...types.ID) Terms {
	return Terms{exclude: normalize(ids)}
}

// And merges two terms into one.
func (t Terms) And(other Terms) Terms {
	return Terms{
		include: normalize(append(append([]types.ID(nil), t.include...), other.include...)),
		exclude: normalize(append(append([]types.ID(nil), t.exclude...), other.exclude...)),
	}
}

// Include returns the sorted include set. Callers must not mutate it.
func (t Terms) Include() []types.ID {
	return t.include
}

// Exclude returns the sorted exclude set. Callers must not mutate it.
func (t Terms) Exclude() []types.ID {
	return t.exclude
}

// Validate fails fast on malformed identities, such as raw numeric values
// that never went through the codec, rather than silently matching nothing.
func (t Terms) Validate() error {
	for _, id := range append(append([]types.ID(nil), t.include...), t.exclude...) {
		if !id.Valid() {
			return eris.Wrapf(types.ErrInvalidArgument, "malformed identity %d in filter terms", uint32(id))
		}
	}
	return nil
}

// Matches reports whether a type set, presented through its membership test,
// satisfies the terms.
func (t Terms) Matches(has func(types.ID) bool) bool {
	for _, id := range t.include {
		if !has(id) {
			return false
		}
	}
	for _, id := range t.exclude {
		if has(id) {
			return false
		}
	}
	return true
}

// CanonicalKey digests the terms into a cache key that is independent of the
// order the terms were written in: sorted include ids, then sorted exclude
// ids, joined with a fixed delimiter.
func (t Terms) CanonicalKey() string {
	var sb strings.Builder
	for i, id := range t.include {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatUint(uint64(id), 10))
	}
	sb.WriteByte('/')
	for i, id := range t.exclude {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatUint(uint64(id), 10))
	}
	return sb.String()
}

// normalize sorts and dedupes a term list.
func normalize(ids []types.ID) []types.ID {
	if len(ids) == 0 {
		return nil
	}
	out := append([]types.ID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	dedup := out[:1]
	for _, id := range out[1:] {
		if id != dedup[len(dedup)-1] {
			dedup = append(dedup, id)
		}
	}
	return dedup
}
