// Package core provides the HTTP chassis for the WeatherNow API: the chi
// router, the cross-cutting middleware chain, the JSON response envelope,
// health probes and request metrics. Domain handlers mount themselves under
// /v1 through V1RouteRegistrars.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"weathernow/internal/config"
)

// MetricsCollector records API telemetry.
type MetricsCollector interface {
	// RecordRequest records one completed request. endpoint is the matched
	// route pattern, not the raw path.
	RecordRequest(method, endpoint, status string, duration time.Duration)
}

// Server holds the dependencies of the HTTP API.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator
	Metrics   MetricsCollector
	// RateLimitStore limits /v1 requests per client; nil disables limiting.
	RateLimitStore RateLimitStore
	// TrustProxyHeaders keys the limiter on X-Forwarded-For instead of the
	// peer address.
	TrustProxyHeaders bool

	// HealthProbes are checked concurrently by GET /health.
	HealthProbes []HealthProbe
	// V1RouteRegistrars mount domain handlers under /v1. They are set by the
	// entry point to keep core free of handler imports.
	V1RouteRegistrars []func(chi.Router)

	router *chi.Mux
}

// NewServer prepares a Server. Routes are mounted separately with
// MountRoutes once probes and registrars are in place.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// flusher is implemented by collectors that buffer datapoints.
type flusher interface {
	Flush(ctx context.Context) error
}

// Shutdown releases server-held resources. Buffered metrics are flushed so
// the last interval is not lost.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")

	var errs []error
	if f, ok := s.Metrics.(flusher); ok {
		if err := f.Flush(ctx); err != nil {
			s.Logger.Error("error flushing metrics", "error", err)
			errs = append(errs, fmt.Errorf("flushing metrics: %w", err))
		}
	}

	s.Logger.Info("server shutdown complete")
	return errors.Join(errs...)
}
