// Package server exposes the layout pipeline over HTTP.
//
// Routes:
//
//	GET    /healthz                        build info
//	POST   /v1/layout                      initial layout of a scene
//	POST   /v1/simulate                    replay a scene's script
//	GET    /v1/runs                        archived run summaries
//	GET    /v1/runs/{id}                   one archived run
//	GET    /v1/runs/{id}/frames/{step}     render one frame of a run
//	DELETE /v1/runs/{id}                   remove a run
//
// Scenes are posted as YAML or JSON. The run routes are only mounted when
// the server has an archive.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/bubblemap/pkg/archive"
	"github.com/matzehuels/bubblemap/pkg/bubble"
	"github.com/matzehuels/bubblemap/pkg/pipeline"
)

const (
	// DefaultMaxBody bounds request bodies.
	DefaultMaxBody = 1 << 20

	// DefaultTimeout bounds a single request.
	DefaultTimeout = 30 * time.Second

	shutdownTimeout = 10 * time.Second
)

// Server serves the HTTP API.
type Server struct {
	runner  *pipeline.Runner
	store   archive.Store
	engine  *bubble.Config
	logger  *log.Logger
	maxBody int64
	timeout time.Duration
	ttl     time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithArchive enables the run routes backed by store.
func WithArchive(store archive.Store, ttl time.Duration) Option {
	return func(s *Server) {
		s.store = store
		s.ttl = ttl
	}
}

// WithEngine sets the engine configuration used for every request.
func WithEngine(cfg bubble.Config) Option {
	return func(s *Server) { s.engine = &cfg }
}

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxBody overrides DefaultMaxBody.
func WithMaxBody(n int64) Option {
	return func(s *Server) { s.maxBody = n }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// New creates a server running scenes through runner.
func New(runner *pipeline.Runner, opts ...Option) *Server {
	s := &Server{
		runner:  runner,
		logger:  log.Default(),
		maxBody: DefaultMaxBody,
		timeout: DefaultTimeout,
		ttl:     archive.DefaultTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/layout", s.handleLayout)
		r.Post("/simulate", s.handleSimulate)
		if s.store != nil {
			r.Get("/runs", s.handleListRuns)
			r.Get("/runs/{id}", s.handleGetRun)
			r.Get("/runs/{id}/frames/{step}", s.handleRunFrame)
			r.Delete("/runs/{id}", s.handleDeleteRun)
		}
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, notFound(r.URL.Path))
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr, "archive", s.store != nil)

	select {
	case err := <-errc:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	}
}

func (s *Server) options(r *http.Request) pipeline.Options {
	q := r.URL.Query()
	opts := pipeline.Options{
		Engine:  s.engine,
		Refresh: q.Get("refresh") == "true",
		Hidden:  q.Get("hidden") == "true",
		Logger:  s.logger,
	}
	if q.Get("labels") == "false" {
		off := false
		opts.Labels = &off
	}
	return opts
}
