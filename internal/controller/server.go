// Package controller contains the HTTP API of the load service.
package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"loadgen/internal/config"
	"loadgen/internal/controller/handlers"
	"loadgen/internal/controller/middleware"
)

// Server is the HTTP server for the load API.
type Server struct {
	httpServer *http.Server
	handlers   *handlers.Handlers
}

// New creates a new server. metricsHandler may be nil, in which case /metrics is not served.
func New(addr string, loads handlers.LoadManager, cfg *config.Config, metricsHandler http.Handler, log *slog.Logger) *Server {
	h := handlers.New(loads, log)
	limit := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateLimitBurst).Middleware()

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	// Job creation is throttled; queries and stops are not.
	mux.Handle("POST /load/cpu", limit(http.HandlerFunc(h.StartCPU)))
	mux.Handle("POST /load/memory", limit(http.HandlerFunc(h.StartMemory)))
	mux.HandleFunc("POST /load/{jobId}/stop", h.StopJob)
	mux.HandleFunc("GET /load/status", h.ListJobs)
	mux.HandleFunc("GET /load/history", h.History)
	mux.HandleFunc("GET /load/limits", h.Limits)
	mux.HandleFunc("GET /load/{jobId}", h.GetJob)

	var handler http.Handler = mux
	handler = middleware.AccessLog(log)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Trace(handler)

	return &Server{
		handlers: h,
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown marks the server as not ready and gracefully shuts it down.
func (s *Server) Shutdown(ctx context.Context) error {
	s.handlers.Drain()
	return s.httpServer.Shutdown(ctx)
}
