// Package api provides the HTTP API for the storefront.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/wokexpress/storefront/internal/animator"
	"github.com/wokexpress/storefront/internal/api/handler"
	"github.com/wokexpress/storefront/internal/api/middleware"
	"github.com/wokexpress/storefront/internal/delivery"
	"github.com/wokexpress/storefront/internal/order"
	"github.com/wokexpress/storefront/internal/provider/resilience"
	"github.com/wokexpress/storefront/internal/routing"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	// Policy holds the delivery thresholds and pricing.
	Policy delivery.PolicyConfig
	// Origin is the restaurant location.
	Origin routing.Coordinate
	// Router resolves driving routes, normally a cached *routing.Service.
	Router routing.Provider
	// Geocoder resolves addresses. Optional.
	Geocoder routing.Geocoder
	// Animator configures live route playback.
	Animator     animator.Config
	OrderService *order.Service
	Registry     *resilience.Registry
	// Database backs the readiness check. Optional.
	Database handler.Pinger
	// RequireTLS rejects plain-HTTP requests forwarded by the load balancer.
	RequireTLS bool
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "storefront-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Registry, cfg.Database)
	deliveryHandler := handler.NewDeliveryHandler(handler.DeliveryHandlerConfig{
		Policy:   cfg.Policy,
		Origin:   cfg.Origin,
		Router:   cfg.Router,
		Geocoder: cfg.Geocoder,
		Logger:   cfg.Logger,
	})
	orderHandler := handler.NewOrderHandler(cfg.OrderService, cfg.Policy, cfg.Logger)
	liveHandler := handler.NewLiveHandler(handler.LiveHandlerConfig{
		Router:   cfg.Router,
		Origin:   cfg.Origin,
		Animator: cfg.Animator,
		Logger:   cfg.Logger,
	})

	// Create rate limit middleware for different endpoint categories
	orderRateLimit := middleware.RateLimitByIP(middleware.OrderRateLimit)         // 10 req/min
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Use(middleware.ContentTypeJSON)
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		r.Route("/delivery", func(r chi.Router) {
			// Pure policy evaluation - standard rate limiting
			r.With(standardRateLimit, middleware.RequireJSON).Post("/quote", deliveryHandler.Quote)
			r.With(standardRateLimit, middleware.RequireJSON).Post("/assistant-prompt", deliveryHandler.AssistantPrompt)

			// Calls the routing provider - strict rate limiting
			r.With(expensiveRateLimit, middleware.RequireJSON).Post("/resolve", deliveryHandler.Resolve)

			// Websocket; each route message costs a provider call
			r.With(expensiveRateLimit).Get("/live", liveHandler.Live)
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(orderRateLimit, middleware.RequireJSON).Post("/", orderHandler.CreateOrder)
			r.With(standardRateLimit).Get("/{orderId}", orderHandler.GetOrder)
		})
	})

	return r
}
