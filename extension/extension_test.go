package extension

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/tally"
	"github.com/xraph/tally/store/memory"
)

type namedPlugin struct{}

func (namedPlugin) Name() string { return "named" }

func TestNewAppliesOptions(t *testing.T) {
	s := memory.New()
	e := New(
		WithStore(s),
		WithDisableMigrate(),
		WithPluginTimeout(time.Second),
		WithRequireConfig(true),
		WithPlugin(namedPlugin{}),
		WithManagerOption(tally.WithPluginTimeout(2*time.Second)),
	)

	assert.Same(t, s, e.store)
	assert.True(t, e.config.DisableMigrate)
	assert.True(t, e.config.RequireConfig)
	assert.Equal(t, time.Second, e.config.PluginTimeout)
	assert.Len(t, e.managerOpts, 2)
	assert.Nil(t, e.Manager())
}

func TestWithConfigReplacesConfig(t *testing.T) {
	e := New(WithDisableMigrate(), WithConfig(Config{PluginTimeout: 3 * time.Second}))
	assert.False(t, e.config.DisableMigrate)
	assert.Equal(t, 3*time.Second, e.config.PluginTimeout)
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := mergeWithDefaults(Config{})
	assert.Equal(t, DefaultConfig().PluginTimeout, cfg.PluginTimeout)

	cfg = mergeWithDefaults(Config{PluginTimeout: time.Millisecond})
	assert.Equal(t, time.Millisecond, cfg.PluginTimeout)
}

func TestMergeConfigurations(t *testing.T) {
	tests := []struct {
		name         string
		yaml         Config
		programmatic Config
		want         Config
	}{
		{
			name: "yaml wins",
			yaml: Config{PluginTimeout: time.Second},
			programmatic: Config{
				PluginTimeout: time.Minute,
			},
			want: Config{PluginTimeout: time.Second},
		},
		{
			name:         "programmatic fills gaps",
			programmatic: Config{PluginTimeout: time.Minute},
			want:         Config{PluginTimeout: time.Minute},
		},
		{
			name:         "disable migrate sticks",
			programmatic: Config{DisableMigrate: true},
			want:         Config{DisableMigrate: true, PluginTimeout: 5 * time.Second},
		},
		{
			name:         "require config comes from code",
			yaml:         Config{RequireConfig: false},
			programmatic: Config{RequireConfig: true},
			want:         Config{RequireConfig: true, PluginTimeout: 5 * time.Second},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mergeConfigurations(tt.yaml, tt.programmatic))
		})
	}
}

func TestBuildManagerOpts(t *testing.T) {
	e := New(WithPlugin(namedPlugin{}))
	assert.Len(t, e.buildManagerOpts(), 1)

	e.config = mergeWithDefaults(e.config)
	opts := e.buildManagerOpts()
	require.Len(t, opts, 2)

	m := tally.New(memory.New(), opts...)
	assert.Equal(t, 1, m.Plugins().Count())
}

func TestStartBeforeRegister(t *testing.T) {
	e := New()
	assert.Error(t, e.Start(context.Background()))
	assert.Error(t, e.Health(context.Background()))
}

func TestHealthPingsStore(t *testing.T) {
	e := New(WithStore(memory.New()))
	assert.NoError(t, e.Health(context.Background()))
}
