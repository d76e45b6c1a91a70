// Package api provides the HTTP API for AQI Beacon.
package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/aqibeacon/aqibeacon/internal/api/handler"
	"github.com/aqibeacon/aqibeacon/internal/api/middleware"
	"github.com/aqibeacon/aqibeacon/internal/forecast"
	"github.com/aqibeacon/aqibeacon/internal/history"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version  string
	Logger   zerolog.Logger
	Recorder handler.Recorder
	Store    history.Store

	// Sensor is nil when no indoor sensor is configured.
	Sensor handler.SnapshotProvider

	// BeaconOwner is the owner key device location reports are stored under.
	BeaconOwner string

	// TimeZone is the reporting timezone (default: UTC).
	TimeZone *time.Location

	// RateLimit is requests per minute per client IP. Default: 60
	RateLimit int
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if cfg.RateLimit == 0 {
		cfg.RateLimit = 60
	}
	tz := cfg.TimeZone
	if tz == nil {
		tz = time.UTC
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing())            // Distributed tracing
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	predictor := forecast.Predictor{TimeZone: tz}

	airHandler := handler.NewAirHandler(cfg.Recorder, cfg.Store, predictor, tz, cfg.Logger)
	locationHandler := handler.NewLocationHandler(cfg.Store, cfg.BeaconOwner, cfg.Logger)
	sensorHandler := handler.NewSensorHandler(cfg.Sensor)
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.Store)

	rateLimit := middleware.RateLimitByIP(cfg.RateLimit)

	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (unthrottled so health checks never trip the limiter)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
		})

		r.Route("/air", func(r chi.Router) {
			r.Use(rateLimit)
			r.Get("/current", airHandler.GetCurrent)
			r.Get("/history/{date}", airHandler.GetHistory)
			r.Get("/daily", airHandler.GetDaily)
			r.Get("/outlook", airHandler.GetOutlook)
		})

		r.Route("/location", func(r chi.Router) {
			r.Use(rateLimit)
			r.Use(middleware.RequireJSON)
			r.Post("/", locationHandler.UpdateBeacon)
		})

		r.With(rateLimit).Get("/sensor/indoor", sensorHandler.GetIndoor)
	})

	return r
}
