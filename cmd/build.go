package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/boifagusy/flashflow-sub000/internal/builder"
	"github.com/boifagusy/flashflow-sub000/internal/config"
	"github.com/boifagusy/flashflow-sub000/internal/history"
	"github.com/boifagusy/flashflow-sub000/internal/project"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run a one-shot build of the project",
	Long: `Run the project's build pipeline once, without starting the development
server. The result is recorded in the build history shown on the dashboard.

Examples:
  flashflow build                        # Build everything
  flashflow build --scope frontend       # Build one platform subset
  flashflow build --env production       # Production build`,
	RunE: runBuild,
}

var (
	buildScope string
	buildEnv   string
)

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVarP(&buildScope, "scope", "s", "", "Build scope (all, backend, frontend, mobile)")
	buildCmd.Flags().StringVarP(&buildEnv, "env", "e", "", "Build environment (development, production)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := newLogger(cfg)

	root, err := os.Getwd()
	if err != nil {
		return err
	}
	proj, err := project.Load(root)
	if err != nil {
		return fmt.Errorf("not a FlashFlow project: %w (run inside a directory containing flashflow.json)", err)
	}

	scope := cfg.Build.Scope
	if buildScope != "" {
		scope = buildScope
	}
	if !validBuildScope(scope) {
		return fmt.Errorf("scope %q is not one of %s", scope, strings.Join(config.BuildScopes, ", "))
	}

	environment := cfg.Build.Environment
	if buildEnv != "" {
		environment = buildEnv
	}
	if environment != "development" && environment != "production" {
		return fmt.Errorf("environment %q is not development or production", environment)
	}

	ctx := context.Background()
	fmt.Printf("🔨 Building %s (scope %s, %s)...\n", proj.Name(), scope, environment)

	trigger := builder.NewTrigger(proj.Root, cfg.Build.Command, cfg.Build.Timeout, logger)
	result := trigger.Run(ctx, scope, environment)

	if output := strings.TrimSpace(result.Log); output != "" {
		fmt.Println(output)
	}

	// Best-effort history record so one-shot builds show up on the
	// dashboard too.
	if store, openErr := history.Open(ctx, filepath.Join(proj.Root, cfg.Build.HistoryDir)); openErr == nil {
		if _, recordErr := store.Record(ctx, result); recordErr != nil {
			logger.Warn(ctx, recordErr, "recording build result")
		}
		store.Close()
	} else {
		logger.Warn(ctx, openErr, "build history unavailable")
	}

	if !result.Success {
		return fmt.Errorf("build failed after %s: %w", result.Duration.Round(time.Millisecond), result.Err)
	}

	fmt.Printf("✅ Build completed in %s\n", result.Duration.Round(time.Millisecond))
	return nil
}

func validBuildScope(scope string) bool {
	for _, s := range config.BuildScopes {
		if scope == s {
			return true
		}
	}
	return false
}
