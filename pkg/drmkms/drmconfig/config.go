// Package drmconfig loads the environment-driven configuration for the
// drmkms-inspect CLI and similar embedders, following the same
// envconfig.Process pattern the rest of the host project uses for its
// own config tree.
package drmconfig

import (
	"log/slog"

	"github.com/kelseyhightower/envconfig"
)

// Config is the full set of environment-tunable knobs for a drmkms
// embedder. Devices, log level and dry-run mode are the only things
// that vary between a developer's laptop, CI and a real target board.
type Config struct {
	DevicePath string `envconfig:"DRMKMS_DEVICE" default:"/dev/dri/card0"`
	LogLevel   string `envconfig:"DRMKMS_LOG_LEVEL" default:"info"`
	DryRun     bool   `envconfig:"DRMKMS_DRY_RUN" default:"false"`
}

// Load reads Config from the environment, applying the defaults above
// for anything unset.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SlogLevel parses LogLevel into a slog.Level, falling back to Info for
// an empty or unrecognized value.
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
