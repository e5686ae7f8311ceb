// Package config reads CLI settings from the environment, optionally seeded
// from a .env file.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvLogLevel      = "TALLY_LOG_LEVEL"
	EnvChannelSize   = "TALLY_CHANNEL_SIZE"
	EnvPluginTimeout = "TALLY_PLUGIN_TIMEOUT"
	EnvAudit         = "TALLY_AUDIT"
	EnvMetrics       = "TALLY_METRICS"
)

// Settings are the resolved CLI settings.
type Settings struct {
	LogLevel      slog.Level
	ChannelSize   int
	PluginTimeout time.Duration
	Audit         bool
	Metrics       bool
}

// LoadEnv loads variables from a .env file if present. Variables already set
// in the environment are not overridden.
func LoadEnv(files ...string) error {
	return godotenv.Load(files...)
}

// Load resolves Settings from the environment.
func Load() Settings {
	return Settings{
		LogLevel:      ParseLevel(GetEnv(EnvLogLevel, "warn")),
		ChannelSize:   GetIntEnv(EnvChannelSize, 1024),
		PluginTimeout: GetDurationEnv(EnvPluginTimeout, 5*time.Second),
		Audit:         GetBoolEnv(EnvAudit, false),
		Metrics:       GetBoolEnv(EnvMetrics, false),
	}
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// GetBoolEnv returns a bool environment variable or a default value.
func GetBoolEnv(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// GetDurationEnv returns a duration environment variable ("250ms", "5s")
// or a default value.
func GetDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// ParseLevel maps debug, info, warn and error to slog levels. Anything else
// is treated as info.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}
