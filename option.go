package strata

import (
	"github.com/rs/zerolog"

	"github.com/strataforge/strata/registry"
	"github.com/strataforge/strata/types"
)

// WorldOption configures a world at construction time.
type WorldOption func(*World)

// WithConfig overrides the environment-derived configuration.
func WithConfig(cfg WorldConfig) WorldOption {
	return func(w *World) {
		w.cfg = cfg
	}
}

// WithLogger replaces the world's logger.
func WithLogger(logger zerolog.Logger) WorldOption {
	return func(w *World) {
		w.logger = logger
	}
}

// WithRegistry binds the world to a registry other than the process-wide
// default. Tests use this for isolation.
func WithRegistry(reg *registry.Registry) WorldOption {
	return func(w *World) {
		w.registry = reg
	}
}

// WithTickSource supplies the external scheduler's tick counter for change
// stamps. Without it the world keeps its own counter, advanced by Tick.
func WithTickSource(tick func() types.Tick) WorldOption {
	return func(w *World) {
		w.tickFn = tick
	}
}
