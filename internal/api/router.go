// Package api provides the HTTP API for StormWatch.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/stormwatch/stormwatch/internal/api/handler"
	"github.com/stormwatch/stormwatch/internal/api/middleware"
	"github.com/stormwatch/stormwatch/internal/provider/resilience"
	"github.com/stormwatch/stormwatch/internal/weather"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	// RateLimit is the per-IP request budget per minute for weather lookups.
	// Zero uses middleware.LookupRateLimit.
	RateLimit int

	// RequireTLS rejects plain HTTP requests.
	RequireTLS bool

	Dashboard handler.Dashboard
	Alerts    handler.AlertsHandlerConfig

	Providers    *resilience.Registry
	CacheStats   func() weather.CacheStats
	RefreshStats func() map[string]interface{}
	ReadyChecks  map[string]handler.ReadinessCheck
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "stormwatch-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction, before rate limiting
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement
	r.Use(middleware.ContentTypeJSON)            // JSON content type

	opsHandler := handler.NewOpsHandler(handler.OpsHandlerConfig{
		Version:      cfg.Version,
		BuildTime:    cfg.BuildTime,
		Providers:    cfg.Providers,
		CacheStats:   cfg.CacheStats,
		RefreshStats: cfg.RefreshStats,
		Checks:       cfg.ReadyChecks,
	})
	weatherHandler := handler.NewWeatherHandler(cfg.Dashboard)
	favoritesHandler := handler.NewFavoritesHandler(cfg.Dashboard, cfg.Logger)
	alertsHandler := handler.NewAlertsHandler(cfg.Alerts)
	metadataHandler := handler.NewMetadataHandler()

	lookupLimit := middleware.LookupRateLimit
	if cfg.RateLimit > 0 {
		lookupLimit = middleware.PerMinute(cfg.RateLimit)
	}
	lookupRateLimit := middleware.RateLimitByIP(lookupLimit)
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		// Weather lookups call the upstream provider.
		r.Route("/weather", func(r chi.Router) {
			r.Use(lookupRateLimit)
			r.Get("/", weatherHandler.GetWeather)
			r.Post("/refresh", weatherHandler.RefreshWeather)
		})

		r.Route("/favorites", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/", favoritesHandler.ListFavorites)
			r.Put("/{city}", favoritesHandler.ToggleFavorite)
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/", alertsHandler.GetAlerts)
			r.With(middleware.RequireJSON).Put("/permission", alertsHandler.UpdatePermission)
			r.Delete("/pending", alertsHandler.CancelPending)
			r.Delete("/banner", alertsHandler.DismissBanner)
		})

		r.Route("/metadata", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/icons", metadataHandler.GetIcons)
			r.Get("/schemas", metadataHandler.ListSchemas)
			r.Get("/schemas/{name}", metadataHandler.GetSchema)
		})
	})

	return r
}
