// Package log loads engine objects into zerolog events with consistent field
// names.
package log

import (
	"github.com/rs/zerolog"

	"github.com/strataforge/strata/types"
)

func loadTypesIntoArray(typeIDs []types.ID, arr *zerolog.Array) *zerolog.Array {
	for _, t := range typeIDs {
		arr = arr.Str(t.String())
	}
	return arr
}

// Archetype logs an archetype's handle and type set at the given level.
func Archetype(logger *zerolog.Logger, level zerolog.Level, archID types.ArchetypeID, typeIDs []types.ID) {
	e := logger.WithLevel(level)
	e.Int("archetype_id", int(archID))
	e.Array("types", loadTypesIntoArray(typeIDs, zerolog.Arr()))
	e.Msg("archetype")
}

// Entity logs an entity's identity and placement at the given level.
func Entity(logger *zerolog.Logger, level zerolog.Level, id types.ID, archID types.ArchetypeID) {
	e := logger.WithLevel(level)
	e.Str("entity", id.String())
	e.Int("archetype_id", int(archID))
	e.Msg("entity")
}

// Filter logs a filter's canonical key and match count at the given level.
func Filter(logger *zerolog.Logger, level zerolog.Level, key string, matches int) {
	e := logger.WithLevel(level)
	e.Str("filter", key)
	e.Int("matches", matches)
	e.Msg("filter")
}
