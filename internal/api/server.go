// Package api serves flowcharts, diagram rendering and step-through
// sessions over HTTP.
//
// Routes:
//
//	POST /v1/flowchart                 source → graph JSON
//	POST /v1/render                    graph or source → diagram
//	POST /v1/sessions                  source (+ trace) → session
//	GET  /v1/sessions/{id}             session summary
//	GET  /v1/sessions/{id}/steps/{n}   view of step n (zero-based)
//	POST /v1/sessions/{id}/next        advance and return the view
//	POST /v1/sessions/{id}/prev        go back and return the view
//	GET  /v1/sessions/{id}/stream      websocket stepping
//	GET  /healthz                      liveness
//
// Errors are JSON bodies {"error":{"code","message"}} with the status
// derived from the error code.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/matzehuels/codeflow/pkg/pipeline"
	"github.com/matzehuels/codeflow/pkg/session"
)

const (
	// DefaultRequestTimeout bounds non-streaming requests.
	DefaultRequestTimeout = 2 * time.Minute

	// maxBodyBytes bounds request bodies.
	maxBodyBytes = 2 << 20
)

// Config wires a Server to its collaborators.
type Config struct {
	Runner   *pipeline.Runner
	Sessions session.Store
	Logger   *log.Logger

	// RequestTimeout bounds each non-streaming request. Zero uses
	// DefaultRequestTimeout.
	RequestTimeout time.Duration

	// SessionTTL is the lifetime of new sessions. Zero uses session.DefaultTTL.
	SessionTTL time.Duration

	// AllowedOrigins lists browser origins, besides the server's own host,
	// that may open a session stream. "*" allows any origin.
	AllowedOrigins []string
}

// Server is the HTTP API.
type Server struct {
	runner   *pipeline.Runner
	sessions session.Store
	logger   *log.Logger
	timeout  time.Duration
	ttl      time.Duration
	upgrader *websocket.Upgrader
}

// New creates a server. A nil runner gets a cache-less runner without a
// trace provider; nil sessions get an in-memory store.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	runner := cfg.Runner
	if runner == nil {
		runner = pipeline.NewRunner(nil, nil, logger)
	}
	sessions := cfg.Sessions
	if sessions == nil {
		sessions = session.NewMemoryStore()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = session.DefaultTTL
	}
	return &Server{
		runner:   runner,
		sessions: sessions,
		logger:   logger,
		timeout:  timeout,
		ttl:      ttl,
		upgrader: newUpgrader(cfg.AllowedOrigins),
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.timeout))
			r.Post("/flowchart", s.handleFlowchart)
			r.Post("/render", s.handleRender)
			r.Post("/sessions", s.handleCreateSession)
			r.Get("/sessions/{id}", s.handleGetSession)
			r.Get("/sessions/{id}/steps/{n}", s.handleGetStep)
			r.Post("/sessions/{id}/next", s.handleMove(moveNext))
			r.Post("/sessions/{id}/prev", s.handleMove(movePrev))
		})
		r.Get("/sessions/{id}/stream", s.handleStream)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, errNotFound(r.URL.Path))
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

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting API server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down API server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := s.sessions.Cleanup(shutdownCtx); err != nil {
		s.logger.Warn("session cleanup", "err", err)
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
