// Package server provides the HTTP front of the development workflow: the
// dashboard surfaces, the JSON API, static file mounts, the live-reload
// endpoints, and the catch-all route that renders flow files directly.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/boifagusy/flashflow-sub000/internal/config"
	"github.com/boifagusy/flashflow-sub000/internal/flow"
	"github.com/boifagusy/flashflow-sub000/internal/history"
	"github.com/boifagusy/flashflow-sub000/internal/hub"
	"github.com/boifagusy/flashflow-sub000/internal/logging"
	"github.com/boifagusy/flashflow-sub000/internal/project"
	"github.com/boifagusy/flashflow-sub000/internal/renderer"
)

// EngineStatus reports the state of the optional engine subprocess. The
// server only reads it; supervision stays with the command layer.
type EngineStatus interface {
	Running() bool
	PID() int
	Uptime() time.Duration
}

// BuildStatus reports whether a build is currently in flight.
type BuildStatus interface {
	Busy() bool
}

// Options carries the collaborators a DevServer needs. Config, Project,
// Resolver, Cache, Renderer, Hub, and Logger are required; the rest are
// optional and absent features degrade to "not available" responses.
type Options struct {
	Config   *config.Config
	Project  *project.Descriptor
	Resolver *flow.Resolver
	Cache    *flow.Cache
	Renderer *renderer.Renderer
	Hub      *hub.Hub
	History  *history.Store
	Engine   EngineStatus
	Builds   BuildStatus
	Logger   logging.Logger
}

// DevServer serves the project over HTTP during development.
type DevServer struct {
	cfg      *config.Config
	project  *project.Descriptor
	resolver *flow.Resolver
	cache    *flow.Cache
	renderer *renderer.Renderer
	hub      *hub.Hub
	history  *history.Store
	engine   EngineStatus
	builds   BuildStatus
	logger   logging.Logger

	httpServer   *http.Server
	serverMutex  sync.Mutex
	shutdownOnce sync.Once
}

// New creates a development server from its collaborators.
func New(opts Options) (*DevServer, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("server: config is required")
	}
	if opts.Project == nil {
		return nil, fmt.Errorf("server: project is required")
	}
	if opts.Resolver == nil || opts.Cache == nil {
		return nil, fmt.Errorf("server: flow resolver and cache are required")
	}
	if opts.Renderer == nil {
		return nil, fmt.Errorf("server: renderer is required")
	}
	if opts.Hub == nil {
		return nil, fmt.Errorf("server: reload hub is required")
	}
	if opts.Logger == nil {
		return nil, fmt.Errorf("server: logger is required")
	}

	return &DevServer{
		cfg:      opts.Config,
		project:  opts.Project,
		resolver: opts.Resolver,
		cache:    opts.Cache,
		renderer: opts.Renderer,
		hub:      opts.Hub,
		history:  opts.History,
		engine:   opts.Engine,
		builds:   opts.Builds,
		logger:   opts.Logger.WithComponent("server"),
	}, nil
}

// Handler builds the full route table wrapped in the server middleware.
// It is the handler Start serves and what tests mount directly.
func (s *DevServer) Handler() http.Handler {
	mux := http.NewServeMux()
	s.routes(mux)
	return s.addMiddleware(mux)
}

// Addr returns the address the server binds to.
func (s *DevServer) Addr() string {
	return net.JoinHostPort(s.cfg.Server.Host, fmt.Sprintf("%d", s.cfg.Server.Port))
}

// Start runs the HTTP server until it is shut down. It blocks, so callers
// normally run it in its own goroutine and stop it through Shutdown.
func (s *DevServer) Start(ctx context.Context) error {
	addr := s.Addr()

	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	s.logger.Info(ctx, "dev server listening",
		"addr", addr,
		"project", s.project.Name(),
		"environment", s.cfg.Server.Environment)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server and closes the reload hub. It is safe to
// call more than once; later calls return nil.
func (s *DevServer) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "shutting down dev server")

		// Closing the hub first ends every websocket write loop, so the
		// HTTP shutdown below is not held open by idle reload sockets.
		s.hub.Close()

		s.serverMutex.Lock()
		server := s.httpServer
		s.serverMutex.Unlock()

		if server != nil {
			err = server.Shutdown(ctx)
		}
	})
	return err
}

// routes registers every endpoint. Paths under /api, /admin, /preview,
// /backend, /dashboard, and the static mounts are reserved; everything
// else falls through to the flow renderer.
func (s *DevServer) routes(mux *http.ServeMux) {
	mux.HandleFunc("/dashboard", s.handleDashboard)
	mux.HandleFunc("/admin/", s.handleAdmin)
	mux.HandleFunc("/backend", s.handleBackend)
	mux.HandleFunc("/preview/", s.handlePreview)

	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/flows", s.handleFlows)
	mux.HandleFunc("/api/builds", s.handleBuilds)
	mux.HandleFunc("/api/render/component", s.handleRenderComponent)
	mux.HandleFunc("/api/docs", s.handleAPIDocs)
	mux.HandleFunc("/api/tester", s.handleAPITester)

	mux.HandleFunc(ReloadPath, s.handleReload)
	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.Handle("/dist/", http.StripPrefix("/dist/", http.FileServer(http.Dir(s.project.DistDir))))
	mux.Handle("/assets/", http.StripPrefix("/assets/", http.FileServer(http.Dir(s.project.AssetsDir))))
	mux.Handle("/flows/", http.StripPrefix("/flows/", http.FileServer(http.Dir(s.project.FlowsDir))))

	mux.HandleFunc("/", s.handleRoot)
}

// addMiddleware wraps the handler with CORS headers and request logging.
// CORS stays wide open in development so local tools can poke the API.
func (s *DevServer) addMiddleware(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Server.Environment == "development" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		start := time.Now()
		handler.ServeHTTP(w, r)
		s.logger.Debug(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds())
	})
}
