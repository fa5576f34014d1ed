// Package main provides the entrypoint for the order notification worker.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/wokexpress/storefront/internal/api/handler"
	"github.com/wokexpress/storefront/internal/notify/telegram"
	"github.com/wokexpress/storefront/internal/provider/resilience"
	"github.com/wokexpress/storefront/internal/telemetry"
	"github.com/wokexpress/storefront/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "storefront-worker"

	envErr := godotenv.Load()

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
		Msg("starting order worker")

	// Worker also exposes health endpoints for Cloud Run
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	cfg := worker.ConfigFromEnv()
	if cfg.ProjectID == "" {
		log.Fatal().Msg("PUBSUB_PROJECT_ID is required")
	}
	botToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	chatID := os.Getenv("TELEGRAM_CHAT_ID")
	if botToken == "" || chatID == "" {
		log.Fatal().Msg("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryCfg := telemetry.ConfigFromEnv(serviceName, Version)
	tp, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()

	registry := resilience.NewRegistry()
	notifier := telegram.NewClient(telegram.ClientConfig{
		BotToken: botToken,
		ChatID:   chatID,
		Registry: registry,
		Logger:   log,
	})

	orders := worker.NewOrderHandler(notifier, cfg, log)
	subscriber, err := worker.NewSubscriber(ctx, cfg, orders, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create subscriber")
	}
	defer func() {
		if err := subscriber.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close subscriber")
		}
	}()

	ops := handler.NewOpsHandler(Version, BuildTime, registry, nil)
	mux := chi.NewRouter()
	mux.Get("/health", ops.HealthCheck)

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	done := make(chan error, 1)
	go func() {
		done <- subscriber.Start(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("shutting down worker")
		cancel()
		if err := <-done; err != nil {
			log.Error().Err(err).Msg("subscriber stopped with error")
		}
	case err := <-done:
		if err != nil {
			log.Error().Err(err).Msg("subscriber stopped unexpectedly")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
