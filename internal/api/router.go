// Package api provides the HTTP API for AlpineRisk.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/alpinerisk/alpinerisk/internal/api/handler"
	"github.com/alpinerisk/alpinerisk/internal/api/middleware"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version      string
	BuildTime    string
	Logger       zerolog.Logger
	ServiceName  string
	Metrics      *middleware.Metrics
	QueryService handler.QueryService
}

// NewRouter creates a new chi router exposing the three façade operations
// (predict, map, recompute) behind ops/health endpoints. There is no
// authentication layer: /v1/recompute is expected to sit behind
// network-level access control, per spec Non-goals.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "alpinerisk-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.ContentTypeJSON)

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime)
	predictHandler := handler.NewPredictHandler(cfg.QueryService)
	recomputeHandler := handler.NewRecomputeHandler(cfg.QueryService)

	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)
	bulkRateLimit := middleware.RateLimitByIP(middleware.BulkRateLimit)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		r.With(standardRateLimit).Get("/predict/{routeId}", predictHandler.PredictOne)
		r.With(bulkRateLimit).Post("/map", predictHandler.MapBulk)
		r.With(standardRateLimit).Post("/recompute", recomputeHandler.Recompute)
	})

	return r
}
