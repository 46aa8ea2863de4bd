package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"mercator-hq/conditional/pkg/config"
	"mercator-hq/conditional/pkg/journal"
	"mercator-hq/conditional/pkg/service"
	"mercator-hq/conditional/pkg/telemetry/health"
)

// Engine is the part of *service.Service the server needs.
type Engine interface {
	Evaluate(ctx context.Context, name string, req service.Request) (*service.Result, error)
	Names() []string
	Describe(name string) (rendered, description string, err error)
	Run(ctx context.Context, id string) (*journal.Run, error)
	Runs(ctx context.Context, filter journal.Filter) ([]*journal.Run, error)
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics mounts handler at path.
func WithMetrics(path string, handler http.Handler) Option {
	return func(s *Server) {
		s.metricsPath = path
		s.metrics = handler
	}
}

// WithHealthCheck adds a readiness check.
func WithHealthCheck(name string, check health.CheckFunc) Option {
	return func(s *Server) { s.health.RegisterCheck(name, check) }
}

// WithVersion sets the build information served at /version.
func WithVersion(version, commit, buildTime string) Option {
	return func(s *Server) { s.version = [3]string{version, commit, buildTime} }
}

// WithMiddleware wraps the router in mw, outermost first.
func WithMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(s *Server) { s.middleware = append(s.middleware, mw...) }
}

// WithAuth guards the /v1 routes with mw. Health, version and metrics
// routes stay open.
func WithAuth(mw func(http.Handler) http.Handler) Option {
	return func(s *Server) { s.auth = mw }
}

// WithLimiter throttles the /v1 routes with mw, inside WithAuth.
func WithLimiter(mw func(http.Handler) http.Handler) Option {
	return func(s *Server) { s.limiter = mw }
}

// WithTLS serves HTTPS with cfg.
func WithTLS(cfg *tls.Config) Option {
	return func(s *Server) { s.tlsConfig = cfg }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// Server is the HTTP API.
type Server struct {
	config      *config.ServerConfig
	engine      Engine
	metricsPath string
	metrics     http.Handler
	health      *health.Checker
	version     [3]string
	middleware  []func(http.Handler) http.Handler
	auth        func(http.Handler) http.Handler
	limiter     func(http.Handler) http.Handler
	tlsConfig   *tls.Config
	logger      *slog.Logger

	httpServer   *http.Server
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// New creates a server.
func New(cfg *config.ServerConfig, engine Engine, opts ...Option) *Server {
	s := &Server{
		config:  cfg,
		engine:  engine,
		health:  health.New(0),
		version: [3]string{"dev", "unknown", "unknown"},
	}
	s.health.RegisterCheck("definitions", func(ctx context.Context) error {
		if len(engine.Names()) == 0 {
			return errors.New("no definitions loaded")
		}
		return nil
	})
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "server")
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.middleware...)
	r.Use(requestIDMiddleware, s.loggingMiddleware, s.recoveryMiddleware)

	r.Get("/healthz", s.health.LivenessHandler())
	r.Get("/readyz", s.health.ReadinessHandler())
	r.Get("/version", health.VersionHandler(s.version[0], s.version[1], s.version[2]))
	if s.metrics != nil {
		path := s.metricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, s.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		if s.auth != nil {
			r.Use(s.auth)
		}
		if s.limiter != nil {
			r.Use(s.limiter)
		}
		r.Get("/conditions", s.handleListConditions)
		r.Post("/conditions/{name}/evaluate", s.handleEvaluate)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" is not allowed on "+r.URL.Path)
	})
	return r
}

// Start listens on the configured address and blocks until ctx is done or
// the server fails.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.ListenAddress, err)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		listener.Close()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
		TLSConfig:    s.tlsConfig,
	}
	if s.tlsConfig != nil {
		listener = tls.NewListener(listener, s.tlsConfig)
	}
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting API server", "address", listener.Addr().String(), "tls", s.tlsConfig != nil)
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully stops the server within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.RLock()
		httpServer := s.httpServer
		s.mu.RUnlock()
		if httpServer == nil {
			return
		}

		shutdownCtx := ctx
		if s.config.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
			defer cancel()
		}

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		s.logger.Info("API server stopped")
	})

	return shutdownErr
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
