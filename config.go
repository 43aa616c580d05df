package strata

import (
	"github.com/JeremyLoy/config"
	"github.com/rotisserie/eris"
)

// WorldConfig carries the environment-driven settings of a world instance.
type WorldConfig struct {
	WorldID  string `config:"STRATA_WORLD_ID"`
	LogLevel string `config:"STRATA_LOG_LEVEL"`
}

// DefaultConfig is the configuration used when the environment is silent.
func DefaultConfig() WorldConfig {
	return WorldConfig{
		WorldID:  "world",
		LogLevel: "info",
	}
}

// GetWorldConfig reads the world configuration from the environment, falling
// back to defaults for unset variables.
func GetWorldConfig() (WorldConfig, error) {
	cfg := DefaultConfig()
	if err := config.FromEnv().To(&cfg); err != nil {
		return cfg, eris.Wrap(err, "")
	}
	return cfg, nil
}
