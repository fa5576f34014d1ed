// Package main provides the entrypoint for the storefront API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/wokexpress/storefront/internal/animator"
	"github.com/wokexpress/storefront/internal/api"
	"github.com/wokexpress/storefront/internal/api/handler"
	"github.com/wokexpress/storefront/internal/api/middleware"
	"github.com/wokexpress/storefront/internal/database"
	"github.com/wokexpress/storefront/internal/delivery"
	"github.com/wokexpress/storefront/internal/notify"
	"github.com/wokexpress/storefront/internal/notify/pubsub"
	"github.com/wokexpress/storefront/internal/notify/telegram"
	"github.com/wokexpress/storefront/internal/order"
	"github.com/wokexpress/storefront/internal/provider/resilience"
	"github.com/wokexpress/storefront/internal/routing"
	"github.com/wokexpress/storefront/internal/routing/mapbox"
	"github.com/wokexpress/storefront/internal/routing/openrouteservice"
	"github.com/wokexpress/storefront/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Restaurant location used when RESTAURANT_LAT/RESTAURANT_LNG are unset.
var defaultOrigin = routing.Coordinate{Lat: 52.2297, Lng: 21.0122}

func main() {
	const serviceName = "storefront-api"

	envErr := godotenv.Load()

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	if envErr != nil {
		log.Debug().Msg("no .env file found, using process environment")
	}

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting storefront API")

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryCfg := telemetry.ConfigFromEnv(serviceName, Version)

	tp, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryCfg.Enabled {
		log.Info().
			Str("otlp_endpoint", telemetryCfg.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	// Delivery policy
	policy, err := delivery.LoadPolicyConfig(os.Getenv("DELIVERY_POLICY_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load delivery policy")
	}
	log.Info().
		Float64("max_distance_km", policy.MaxDistanceKm).
		Int64("min_order_cents", policy.MinOrderCents).
		Int64("free_from_cents", policy.FreeDeliveryFromCents).
		Msg("delivery policy loaded")

	origin, err := originFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid restaurant location")
	}

	// Routing provider, wrapped in a cache
	registry := resilience.NewRegistry()
	provider, geocoder, err := newRoutingProvider(registry, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure routing provider")
	}
	router := routing.NewService(routing.ServiceConfig{
		Provider: provider,
		Logger:   log,
	})
	log.Info().
		Str("provider", provider.Name()).
		Bool("geocoding", geocoder != nil).
		Msg("routing service initialized")

	// Orders: Postgres when configured, otherwise in memory
	var (
		repo     order.Repository
		pinger   handler.Pinger
		dbConfig = database.ConfigFromEnv()
	)
	if dbConfig.Configured() {
		pool, err := database.Connect(ctx, dbConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()

		pgRepo := order.NewPostgresRepository(pool)
		if err := pgRepo.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to ensure order schema")
		}
		repo = pgRepo
		pinger = pool
		log.Info().
			Str("host", dbConfig.Host).
			Int("port", dbConfig.Port).
			Str("database", dbConfig.Database).
			Msg("database connected")
	} else {
		repo = order.NewInMemoryRepository()
		log.Warn().Msg("DB_HOST not set, orders are kept in memory")
	}

	notifier, closeNotifier, err := newNotifier(ctx, registry, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure order notifications")
	}
	defer closeNotifier()

	orderService := order.NewService(order.ServiceConfig{
		Repo:     repo,
		Router:   router,
		Origin:   origin,
		Policy:   policy,
		Notifier: notifier,
		Logger:   log,
	})

	handlerRouter := api.NewRouter(api.RouterConfig{
		Version:      Version,
		BuildTime:    BuildTime,
		Logger:       log,
		ServiceName:  serviceName,
		Metrics:      metrics,
		Policy:       policy,
		Origin:       origin,
		Router:       router,
		Geocoder:     geocoder,
		Animator:     animator.Config{Logger: log},
		OrderService: orderService,
		Registry:     registry,
		Database:     pinger,
		RequireTLS:   os.Getenv("REQUIRE_TLS") == "true",
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      handlerRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("server stopped")
}

// newRoutingProvider selects the directions provider from ROUTING_PROVIDER.
// The geocoder is nil when the provider cannot resolve addresses.
func newRoutingProvider(registry *resilience.Registry, log zerolog.Logger) (routing.Provider, routing.Geocoder, error) {
	switch name := os.Getenv("ROUTING_PROVIDER"); name {
	case "", openrouteservice.ProviderName:
		key := os.Getenv("ORS_API_KEY")
		if key == "" {
			return nil, nil, errors.New("ORS_API_KEY is required for openrouteservice")
		}
		country := os.Getenv("GEOCODE_COUNTRY")
		if country == "" {
			country = "PL"
		}
		client := openrouteservice.NewClient(openrouteservice.ClientConfig{
			APIKey:         key,
			Registry:       registry,
			GeocodeCountry: country,
			Logger:         log,
		})
		return client, client, nil
	case mapbox.ProviderName:
		token := os.Getenv("MAPBOX_ACCESS_TOKEN")
		if token == "" {
			return nil, nil, errors.New("MAPBOX_ACCESS_TOKEN is required for mapbox")
		}
		client := mapbox.NewClient(mapbox.ClientConfig{
			AccessToken: token,
			Registry:    registry,
			Logger:      log,
		})
		return client, nil, nil
	default:
		return nil, nil, errors.New("unknown ROUTING_PROVIDER " + strconv.Quote(name))
	}
}

// newNotifier publishes orders to Pub/Sub when PUBSUB_PROJECT_ID is set and
// falls back to messaging Telegram directly. With neither configured orders
// are stored without a notification.
func newNotifier(ctx context.Context, registry *resilience.Registry, log zerolog.Logger) (notify.Notifier, func(), error) {
	if projectID := os.Getenv("PUBSUB_PROJECT_ID"); projectID != "" {
		topic := os.Getenv("PUBSUB_ORDER_TOPIC")
		if topic == "" {
			topic = "orders"
		}
		publisher, err := pubsub.NewPublisher(ctx, pubsub.PublisherConfig{
			ProjectID: projectID,
			Topic:     topic,
			Logger:    log,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("topic", topic).Msg("order events published to Pub/Sub")
		return publisher, func() {
			if err := publisher.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close publisher")
			}
		}, nil
	}

	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		log.Info().Msg("order events sent to Telegram directly")
		return telegram.NewClient(telegram.ClientConfig{
			BotToken: token,
			ChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
			Registry: registry,
			Logger:   log,
		}), func() {}, nil
	}

	log.Warn().Msg("no order notifier configured")
	return nil, func() {}, nil
}

func originFromEnv() (routing.Coordinate, error) {
	latRaw, lngRaw := os.Getenv("RESTAURANT_LAT"), os.Getenv("RESTAURANT_LNG")
	if latRaw == "" && lngRaw == "" {
		return defaultOrigin, nil
	}
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		return routing.Coordinate{}, errors.New("RESTAURANT_LAT must be a number")
	}
	lng, err := strconv.ParseFloat(lngRaw, 64)
	if err != nil {
		return routing.Coordinate{}, errors.New("RESTAURANT_LNG must be a number")
	}
	c := routing.Coordinate{Lat: lat, Lng: lng}
	if !c.Valid() {
		return routing.Coordinate{}, errors.New("restaurant location is out of range")
	}
	return c, nil
}
