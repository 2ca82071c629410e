package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/boifagusy/flashflow-sub000/internal/builder"
	"github.com/boifagusy/flashflow-sub000/internal/config"
	"github.com/boifagusy/flashflow-sub000/internal/engine"
	"github.com/boifagusy/flashflow-sub000/internal/flow"
	"github.com/boifagusy/flashflow-sub000/internal/history"
	"github.com/boifagusy/flashflow-sub000/internal/hub"
	"github.com/boifagusy/flashflow-sub000/internal/project"
	"github.com/boifagusy/flashflow-sub000/internal/renderer"
	"github.com/boifagusy/flashflow-sub000/internal/server"
	"github.com/boifagusy/flashflow-sub000/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the development server with live reload",
	Long: `Start the development server for the FlashFlow project in the current
directory. Watches the source tree, rebuilds on change, reloads connected
browsers, and renders .flow pages directly.

Examples:
  flashflow serve                  # Serve on the configured host and port
  flashflow serve --port 3000      # Serve on another port
  flashflow serve --no-engine      # Skip the rendering-engine subprocess
  flashflow serve --no-watch       # Serve without the file watcher`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8000, "Port to serve on")
	serveCmd.Flags().String("host", "localhost", "Host to bind to")
	serveCmd.Flags().Bool("no-engine", false, "Don't start the rendering-engine subprocess")
	serveCmd.Flags().Bool("no-watch", false, "Don't watch files or trigger builds")

	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))

	addFlagValidation(serveCmd, "port", validatePort)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := newLogger(cfg)

	// The project must be valid before any port opens or process starts.
	root, err := os.Getwd()
	if err != nil {
		return err
	}
	proj, err := project.Load(root)
	if err != nil {
		return fmt.Errorf("not a FlashFlow project: %w (run inside a directory containing flashflow.json)", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache, err := flow.NewCache(flow.DefaultCacheSize)
	if err != nil {
		return fmt.Errorf("failed to create flow cache: %w", err)
	}
	resolver := flow.NewResolver(proj.FlowsDir, cache)
	pages := renderer.New(proj.Name())
	reloadHub := hub.New(logger)

	// Build history is a convenience; a broken state dir must not stop
	// the server.
	stateDir := filepath.Join(proj.Root, cfg.Build.HistoryDir)
	store, err := history.Open(ctx, stateDir)
	if err != nil {
		logger.Warn(ctx, err, "build history disabled")
		store = nil
	} else {
		defer store.Close()
		if err := store.Trim(ctx, 200); err != nil {
			logger.Warn(ctx, err, "trimming build history")
		}
	}

	// The rendering engine is best-effort: without it the direct
	// renderer still serves every page.
	var engineHandle *engine.Handle
	if noEngine, _ := cmd.Flags().GetBool("no-engine"); cfg.Engine.AutoStart && !noEngine {
		engineHandle, err = engine.Start(ctx, engine.Options{
			Command: cfg.Engine.Command,
			Root:    proj.Root,
			Host:    cfg.Engine.Host,
			Port:    cfg.Engine.Port,
		}, logger)
		if err != nil {
			logger.Warn(ctx, err, "rendering engine not started")
			engineHandle = nil
		} else {
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				engineHandle.Stop(stopCtx)
			}()
		}
	}

	trigger := builder.NewTrigger(proj.Root, cfg.Build.Command, cfg.Build.Timeout, logger)
	notifier := watcher.NewNotifier(cfg.Server.Host, cfg.Watch.ReloadPort, logger)
	coalescer := builder.NewCoalescer(func() {
		result := trigger.Run(ctx, cfg.Build.Scope, cfg.Build.Environment)
		if store != nil {
			if _, err := store.Record(ctx, result); err != nil {
				logger.Warn(ctx, err, "recording build result")
			}
		}
		// Browsers reload after every build, failed ones included, so a
		// fixed page replaces its own error overlay.
		notifier.Notify(ctx)
	})

	var fileWatcher *watcher.FileWatcher
	if noWatch, _ := cmd.Flags().GetBool("no-watch"); !noWatch {
		fileWatcher, err = watcher.NewFileWatcher(cfg.Watch.Debounce, logger)
		if err != nil {
			return fmt.Errorf("failed to create file watcher: %w", err)
		}

		fileWatcher.AddFilter(watcher.ExtensionFilter(cfg.Watch.Extensions))
		fileWatcher.AddFilter(watcher.NoHiddenFilter(proj.Root))
		fileWatcher.Exclude(proj.DistDir)
		fileWatcher.Exclude(stateDir)

		for _, watchRoot := range proj.WatchRoots() {
			if err := fileWatcher.AddRecursive(watchRoot); err != nil {
				return fmt.Errorf("failed to watch %s: %w", watchRoot, err)
			}
		}
		// Manifest edits rebuild too.
		if err := fileWatcher.AddPath(proj.ManifestPath); err != nil {
			logger.Warn(ctx, err, "watching manifest")
		}

		fileWatcher.AddHandler(func(events []watcher.ChangeEvent) error {
			logger.Debug(ctx, "change detected", "files", len(events), "first", events[0].Path)
			coalescer.Trigger()
			return nil
		})

		fileWatcher.Start(ctx)
	}

	srvOpts := server.Options{
		Config:   cfg,
		Project:  proj,
		Resolver: resolver,
		Cache:    cache,
		Renderer: pages,
		Hub:      reloadHub,
		History:  store,
		Builds:   coalescer,
		Logger:   logger,
	}
	if engineHandle != nil {
		srvOpts.Engine = engineHandle
	}
	srv, err := server.New(srvOpts)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	fmt.Printf("FlashFlow dev server for %s at http://%s\n", proj.Name(), srv.Addr())
	fmt.Printf("Dashboard: http://%s/dashboard\n", srv.Addr())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		fmt.Println("\nShutting down...")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Stop feeding the build loop, let an in-flight build finish, then
	// close the HTTP front.
	if fileWatcher != nil {
		if err := fileWatcher.Stop(); err != nil {
			logger.Warn(shutdownCtx, err, "stopping file watcher")
		}
	}
	coalescer.Wait()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn(shutdownCtx, err, "server shutdown")
	}
	if runErr == nil {
		runErr = <-errCh
	}
	return runErr
}
