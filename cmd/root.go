// Package cmd provides the command-line interface for the FlashFlow
// development orchestrator.
//
// Configuration System:
//
//	The CLI supports flexible configuration through multiple sources with clear precedence:
//	1. Command-line flags (--config, --port, etc.) - highest priority
//	2. FLASHFLOW_CONFIG_FILE environment variable - custom config file path
//	3. Individual environment variables (FLASHFLOW_SERVER_PORT, etc.)
//	4. Configuration files (.flashflow.yml) - lowest priority
//
// Environment Variables:
//
//	FLASHFLOW_CONFIG_FILE: Path to custom configuration file
//	FLASHFLOW_SERVER_PORT: Override server port
//	FLASHFLOW_SERVER_HOST: Override server host
//	And the short names the project has always honored:
//	FLASHFLOW_HOST, FLASHFLOW_PORT, FLASHFLOW_DIRECT_PORT, FLASHFLOW_RELOAD_PORT
//
// A .env file in the working directory is loaded before anything else, so
// project-local overrides travel with the project.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/boifagusy/flashflow-sub000/internal/config"
	"github.com/boifagusy/flashflow-sub000/internal/logging"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "flashflow",
	Short: "Development orchestrator for FlashFlow projects",
	Long: `FlashFlow is the development orchestrator for FlashFlow projects: it
watches your source tree, rebuilds on change, reloads connected browsers,
and serves pages straight from .flow definition files.

Key Features:
  • Debounced file watching with rebuild coalescing
  • Live browser reload over WebSocket
  • Direct rendering of .flow pages, no build step needed
  • Supervised rendering-engine subprocess
  • Build history and project dashboard

Quick Start:
  flashflow serve                 Start the development server
  flashflow build                 Run a one-shot build
  flashflow doctor                Diagnose the project and environment
  flashflow version               Show version information`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .flashflow.yml, can also use FLASHFLOW_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig initializes the configuration system.
//
// Configuration Loading Priority (highest to lowest):
//  1. --config flag: Explicitly specified config file path
//  2. FLASHFLOW_CONFIG_FILE environment variable: Custom config file path
//  3. Default: .flashflow.yml in current directory
func initConfig() {
	// Project-local .env first so its values are visible to the env
	// bindings below. A missing file is the normal case.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("FLASHFLOW_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".flashflow")
	}

	// FLASHFLOW_SERVER_PORT style bindings for every key.
	viper.SetEnvPrefix("FLASHFLOW")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// The short variable names predate the structured ones and still win
	// with users, so both forms stay bound.
	viper.BindEnv("server.host", "FLASHFLOW_SERVER_HOST", "FLASHFLOW_HOST")
	viper.BindEnv("server.port", "FLASHFLOW_SERVER_PORT", "FLASHFLOW_PORT")
	viper.BindEnv("engine.port", "FLASHFLOW_ENGINE_PORT", "FLASHFLOW_DIRECT_PORT")
	viper.BindEnv("watch.reload_port", "FLASHFLOW_WATCH_RELOAD_PORT", "FLASHFLOW_RELOAD_PORT")

	// A missing or unreadable config file falls back to defaults.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the process logger from the loaded configuration.
func newLogger(cfg *config.Config) logging.Logger {
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}
