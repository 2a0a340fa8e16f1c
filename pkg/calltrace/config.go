package calltrace

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds the probe's thresholds.
type Config struct {
	Enabled       bool   `env:"CALLTRACE_ENABLED" env-default:"true" env-description:"record slow calls"`
	MinDurationUS uint64 `env:"CALLTRACE_MIN_DURATION_US" env-default:"1000" env-description:"calls at or below this many microseconds are dropped"`
	MaxDepth      int    `env:"CALLTRACE_MAX_DEPTH" env-default:"3" env-description:"calls nested this deep or deeper are dropped"`
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		MinDurationUS: 1000,
		MaxDepth:      3,
	}
}

// LoadConfig reads the configuration from the environment, falling back to
// the defaults for unset variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("cannot read calltrace config: %w", err)
	}
	return cfg, nil
}
