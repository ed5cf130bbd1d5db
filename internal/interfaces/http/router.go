// Package http assembles the molfp HTTP API.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/molfp/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molfp/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/molfp/internal/interfaces/http/handlers"
	"github.com/turtacn/molfp/internal/interfaces/http/middleware"
)

// RouterConfig holds the handlers and middleware of the route tree. Nil
// handlers leave their routes unregistered.
type RouterConfig struct {
	DescriptorHandler *handlers.DescriptorHandler
	HealthHandler     *handlers.HealthHandler

	Logger  logging.Logger
	Logging middleware.LoggingConfig
	// CORS is applied when set.
	CORS *middleware.CORSConfig
	// RateLimiter is applied when set.
	RateLimiter *middleware.ClientLimiter
	RateLimit   middleware.RateLimitConfig

	Metrics *prometheus.AppMetrics
	// MetricsHandler is served at MetricsPath when set.
	MetricsHandler http.Handler
	MetricsPath    string
}

// NewRouter builds the route tree. Middleware order is request id, real ip,
// recovery, metrics, logging, CORS, then rate limiting.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(middleware.RequestLogging(cfg.Logger, cfg.Logging))
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}
	if cfg.RateLimiter != nil {
		r.Use(middleware.RateLimit(cfg.RateLimiter, cfg.RateLimit))
	}

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterRoutes(r)
	}
	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, cfg.MetricsHandler)
	}

	if cfg.DescriptorHandler != nil {
		r.Route("/api/v1", cfg.DescriptorHandler.RegisterRoutes)
	}

	return r
}

//Personal.AI order the ending
