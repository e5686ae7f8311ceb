package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{EnvLogLevel, EnvChannelSize, EnvPluginTimeout, EnvAudit} {
		t.Setenv(key, "")
	}

	s := Load()
	assert.Equal(t, slog.LevelWarn, s.LogLevel)
	assert.Equal(t, 1024, s.ChannelSize)
	assert.Equal(t, 5*time.Second, s.PluginTimeout)
	assert.False(t, s.Audit)
	assert.False(t, s.Metrics)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvChannelSize, "16")
	t.Setenv(EnvPluginTimeout, "250ms")
	t.Setenv(EnvAudit, "true")
	t.Setenv(EnvMetrics, "1")

	s := Load()
	assert.Equal(t, slog.LevelDebug, s.LogLevel)
	assert.Equal(t, 16, s.ChannelSize)
	assert.Equal(t, 250*time.Millisecond, s.PluginTimeout)
	assert.True(t, s.Audit)
	assert.True(t, s.Metrics)
}

func TestMalformedValuesFallBack(t *testing.T) {
	t.Setenv(EnvChannelSize, "lots")
	t.Setenv(EnvPluginTimeout, "soon")
	t.Setenv(EnvAudit, "maybe")

	s := Load()
	assert.Equal(t, 1024, s.ChannelSize)
	assert.Equal(t, 5*time.Second, s.PluginTimeout)
	assert.False(t, s.Audit)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelError, ParseLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(" info "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TALLY_TEST_ONLY=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("TALLY_TEST_ONLY") })

	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "from-file", GetEnv("TALLY_TEST_ONLY", "default"))

	assert.Error(t, LoadEnv(filepath.Join(t.TempDir(), "missing.env")))
}
