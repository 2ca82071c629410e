// Package config provides configuration management for the flashflow
// orchestrator using Viper for flexible configuration loading from files,
// environment variables, and command-line flags.
//
// The configuration system supports YAML files and environment variable
// overrides with the FLASHFLOW_ prefix, plus the legacy variable names the
// project has always honored (FLASHFLOW_HOST, FLASHFLOW_PORT,
// FLASHFLOW_DIRECT_PORT, FLASHFLOW_RELOAD_PORT). It manages the dev server,
// the file watcher, the build pipeline invocation, and the rendering-engine
// subprocess.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Watch  WatchConfig  `yaml:"watch"`
	Build  BuildConfig  `yaml:"build"`
	Engine EngineConfig `yaml:"engine"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Environment string `yaml:"environment"`
}

type WatchConfig struct {
	Debounce   time.Duration `yaml:"debounce"`
	Extensions []string      `yaml:"extensions"`
	ReloadPort int           `yaml:"reload_port"`
}

type BuildConfig struct {
	Command     string        `yaml:"command"`
	Scope       string        `yaml:"scope"`
	Environment string        `yaml:"environment"`
	Timeout     time.Duration `yaml:"timeout"`
	HistoryDir  string        `yaml:"history_dir"`
}

type EngineConfig struct {
	Command   string `yaml:"command"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	AutoStart bool   `yaml:"auto_start"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// BuildScopes are the platform subsets a build invocation may target.
var BuildScopes = []string{"all", "backend", "frontend", "mobile"}

// DefaultExtensions is the relevance allow-list for the watcher: the
// definition-file extension plus the asset extensions a rebuild cares about.
var DefaultExtensions = []string{".flow", ".css", ".js", ".html", ".json", ".yaml", ".yml"}

func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Apply server defaults
	if config.Server.Host == "" {
		config.Server.Host = "localhost"
	}
	if config.Server.Port == 0 && !viper.IsSet("server.port") {
		config.Server.Port = 8000
	}
	if config.Server.Environment == "" {
		config.Server.Environment = "development"
	}

	// Handle watch settings set via viper (workaround for viper slice and
	// snake_case handling)
	if viper.IsSet("watch.debounce") {
		config.Watch.Debounce = viper.GetDuration("watch.debounce")
	}
	if config.Watch.Debounce <= 0 {
		config.Watch.Debounce = time.Second
	}
	if viper.IsSet("watch.extensions") && len(config.Watch.Extensions) == 0 {
		config.Watch.Extensions = viper.GetStringSlice("watch.extensions")
	}
	if len(config.Watch.Extensions) == 0 {
		config.Watch.Extensions = append([]string(nil), DefaultExtensions...)
	}
	if viper.IsSet("watch.reload_port") {
		config.Watch.ReloadPort = viper.GetInt("watch.reload_port")
	}
	if config.Watch.ReloadPort == 0 {
		config.Watch.ReloadPort = config.Server.Port
	}

	// Apply build defaults
	if config.Build.Command == "" {
		config.Build.Command = "flashflow-build"
	}
	if config.Build.Scope == "" {
		config.Build.Scope = "all"
	}
	if config.Build.Environment == "" {
		config.Build.Environment = "development"
	}
	if viper.IsSet("build.timeout") {
		config.Build.Timeout = viper.GetDuration("build.timeout")
	}
	if config.Build.Timeout <= 0 {
		config.Build.Timeout = 5 * time.Minute
	}
	if viper.IsSet("build.history_dir") {
		config.Build.HistoryDir = viper.GetString("build.history_dir")
	}
	if config.Build.HistoryDir == "" {
		config.Build.HistoryDir = ".flashflow"
	}

	// Apply engine defaults
	if config.Engine.Command == "" {
		config.Engine.Command = "flashflow-engine"
	}
	if config.Engine.Host == "" {
		config.Engine.Host = "localhost"
	}
	if config.Engine.Port == 0 {
		config.Engine.Port = 8012
	}
	if viper.IsSet("engine.auto_start") {
		config.Engine.AutoStart = viper.GetBool("engine.auto_start")
	} else {
		config.Engine.AutoStart = true
	}

	// Apply log defaults
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := validateWatchConfig(&config.Watch); err != nil {
		return fmt.Errorf("watch config: %w", err)
	}

	if err := validateBuildConfig(&config.Build); err != nil {
		return fmt.Errorf("build config: %w", err)
	}

	if err := validateEngineConfig(&config.Engine); err != nil {
		return fmt.Errorf("engine config: %w", err)
	}

	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Allow 0 for system-assigned ports in testing
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	if config.Host != "" {
		if err := validateHost(config.Host); err != nil {
			return err
		}
	}

	return nil
}

// validateWatchConfig validates watcher configuration values
func validateWatchConfig(config *WatchConfig) error {
	if config.Debounce < 10*time.Millisecond || config.Debounce > time.Minute {
		return fmt.Errorf("debounce %s is not in valid range 10ms-1m", config.Debounce)
	}

	for _, ext := range config.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("extension %q must start with a dot", ext)
		}
	}

	if config.ReloadPort < 0 || config.ReloadPort > 65535 {
		return fmt.Errorf("reload_port %d is not in valid range 0-65535", config.ReloadPort)
	}

	return nil
}

// validateBuildConfig validates build configuration values
func validateBuildConfig(config *BuildConfig) error {
	if strings.TrimSpace(config.Command) == "" {
		return fmt.Errorf("build command is empty")
	}

	if !validScope(config.Scope) {
		return fmt.Errorf("scope %q is not one of %s", config.Scope, strings.Join(BuildScopes, ", "))
	}

	if config.Environment != "development" && config.Environment != "production" {
		return fmt.Errorf("environment %q is not development or production", config.Environment)
	}

	if config.HistoryDir != "" {
		cleanPath := filepath.Clean(config.HistoryDir)

		if strings.Contains(cleanPath, "..") {
			return fmt.Errorf("history_dir contains path traversal: %s", config.HistoryDir)
		}

		if filepath.IsAbs(cleanPath) {
			return fmt.Errorf("history_dir should be relative path: %s", config.HistoryDir)
		}
	}

	return nil
}

// validateEngineConfig validates rendering-engine configuration values
func validateEngineConfig(config *EngineConfig) error {
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	if config.Host != "" {
		if err := validateHost(config.Host); err != nil {
			return err
		}
	}

	return nil
}

// validateHost rejects hosts carrying shell metacharacters, since host
// values end up in subprocess argument lists.
func validateHost(host string) error {
	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
	for _, char := range dangerousChars {
		if strings.Contains(host, char) {
			return fmt.Errorf("host contains dangerous character: %s", char)
		}
	}
	return nil
}

func validScope(scope string) bool {
	for _, s := range BuildScopes {
		if scope == s {
			return true
		}
	}
	return false
}
