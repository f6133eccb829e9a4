package drmconfig

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "/dev/dri/card0", cfg.DevicePath)
	require.Equal(t, "info", cfg.LogLevel)
	require.False(t, cfg.DryRun)
}

func TestSlogLevel(t *testing.T) {
	require.Equal(t, slog.LevelInfo, Config{LogLevel: "info"}.SlogLevel())
	require.Equal(t, slog.LevelDebug, Config{LogLevel: "debug"}.SlogLevel())
	require.Equal(t, slog.LevelWarn, Config{LogLevel: "warn"}.SlogLevel())
	require.Equal(t, slog.LevelInfo, Config{LogLevel: "not-a-level"}.SlogLevel())
}
