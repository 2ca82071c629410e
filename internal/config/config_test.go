package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setup       func()
		expectError bool
		check       func(t *testing.T, config *Config)
	}{
		{
			name: "successful load with defaults",
			setup: func() {
				viper.Reset()
			},
			check: func(t *testing.T, config *Config) {
				assert.Equal(t, "localhost", config.Server.Host)
				assert.Equal(t, 8000, config.Server.Port)
				assert.Equal(t, "development", config.Server.Environment)
				assert.Equal(t, time.Second, config.Watch.Debounce)
				assert.Equal(t, DefaultExtensions, config.Watch.Extensions)
				assert.Equal(t, 8000, config.Watch.ReloadPort)
				assert.Equal(t, "flashflow-build", config.Build.Command)
				assert.Equal(t, "all", config.Build.Scope)
				assert.Equal(t, 5*time.Minute, config.Build.Timeout)
				assert.Equal(t, ".flashflow", config.Build.HistoryDir)
				assert.Equal(t, "flashflow-engine", config.Engine.Command)
				assert.Equal(t, 8012, config.Engine.Port)
				assert.True(t, config.Engine.AutoStart)
				assert.Equal(t, "info", config.Log.Level)
			},
		},
		{
			name: "custom server settings",
			setup: func() {
				viper.Reset()
				viper.Set("server.host", "0.0.0.0")
				viper.Set("server.port", 3000)
			},
			check: func(t *testing.T, config *Config) {
				assert.Equal(t, "0.0.0.0", config.Server.Host)
				assert.Equal(t, 3000, config.Server.Port)
				// reload target follows the server port unless overridden
				assert.Equal(t, 3000, config.Watch.ReloadPort)
			},
		},
		{
			name: "reload port override",
			setup: func() {
				viper.Reset()
				viper.Set("server.port", 3000)
				viper.Set("watch.reload_port", 9999)
			},
			check: func(t *testing.T, config *Config) {
				assert.Equal(t, 9999, config.Watch.ReloadPort)
			},
		},
		{
			name: "custom watch settings",
			setup: func() {
				viper.Reset()
				viper.Set("watch.debounce", "250ms")
				viper.Set("watch.extensions", []string{".flow", ".css"})
			},
			check: func(t *testing.T, config *Config) {
				assert.Equal(t, 250*time.Millisecond, config.Watch.Debounce)
				assert.Equal(t, []string{".flow", ".css"}, config.Watch.Extensions)
			},
		},
		{
			name: "engine autostart disabled",
			setup: func() {
				viper.Reset()
				viper.Set("engine.auto_start", false)
			},
			check: func(t *testing.T, config *Config) {
				assert.False(t, config.Engine.AutoStart)
			},
		},
		{
			name: "invalid port rejected",
			setup: func() {
				viper.Reset()
				viper.Set("server.port", 70000)
			},
			expectError: true,
		},
		{
			name: "dangerous host rejected",
			setup: func() {
				viper.Reset()
				viper.Set("server.host", "localhost;rm -rf /")
			},
			expectError: true,
		},
		{
			name: "debounce out of range rejected",
			setup: func() {
				viper.Reset()
				viper.Set("watch.debounce", "2ms")
			},
			expectError: true,
		},
		{
			name: "bad extension rejected",
			setup: func() {
				viper.Reset()
				viper.Set("watch.extensions", []string{"flow"})
			},
			expectError: true,
		},
		{
			name: "unknown build scope rejected",
			setup: func() {
				viper.Reset()
				viper.Set("build.scope", "desktop")
			},
			expectError: true,
		},
		{
			name: "unknown build environment rejected",
			setup: func() {
				viper.Reset()
				viper.Set("build.environment", "staging")
			},
			expectError: true,
		},
		{
			name: "history dir traversal rejected",
			setup: func() {
				viper.Reset()
				viper.Set("build.history_dir", "../outside")
			},
			expectError: true,
		},
		{
			name: "absolute history dir rejected",
			setup: func() {
				viper.Reset()
				viper.Set("build.history_dir", "/var/lib/flashflow")
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()

			config, err := Load()

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, config)
			} else {
				require.NoError(t, err)
				require.NotNil(t, config)
				if tt.check != nil {
					tt.check(t, config)
				}
			}
		})
	}
}

func TestValidateHost(t *testing.T) {
	assert.NoError(t, validateHost("localhost"))
	assert.NoError(t, validateHost("127.0.0.1"))
	assert.NoError(t, validateHost("dev.example.com"))

	for _, host := range []string{"host;ls", "host|cat", "host$PATH", "host`id`"} {
		assert.Error(t, validateHost(host), "host %q should be rejected", host)
	}
}

func TestValidScope(t *testing.T) {
	for _, scope := range BuildScopes {
		assert.True(t, validScope(scope))
	}
	assert.False(t, validScope("everything"))
	assert.False(t, validScope(""))
}
