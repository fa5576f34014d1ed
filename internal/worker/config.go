// Package worker processes order events in the background.
package worker

import (
	"os"
	"strconv"
	"time"
)

// Config holds configuration for the order notification worker.
type Config struct {
	// ProjectID is the Google Cloud project hosting the subscription.
	ProjectID string

	// SubscriptionName is the Pub/Sub subscription carrying order events.
	SubscriptionName string

	// MaxOutstandingMessages bounds concurrent message handling.
	// Default: 10
	MaxOutstandingMessages int

	// MaxExtension is how long a message lease is extended while handling.
	// Default: 10 minutes
	MaxExtension time.Duration

	// HandleTimeout bounds delivery of a single notification.
	// Default: 30 seconds
	HandleTimeout time.Duration

	// DedupWindow is how long a delivered order id is remembered so
	// redelivered messages are not forwarded twice.
	// Default: 1 hour
	DedupWindow time.Duration
}

// DefaultConfig returns the default worker configuration.
func DefaultConfig() Config {
	return Config{
		SubscriptionName:       "order-notifications",
		MaxOutstandingMessages: 10,
		MaxExtension:           10 * time.Minute,
		HandleTimeout:          30 * time.Second,
		DedupWindow:            time.Hour,
	}
}

// ConfigFromEnv overlays PUBSUB_* and WORKER_* environment variables on the defaults.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.ProjectID = os.Getenv("PUBSUB_PROJECT_ID")
	if v := os.Getenv("PUBSUB_ORDER_SUBSCRIPTION"); v != "" {
		cfg.SubscriptionName = v
	}
	if v, err := strconv.Atoi(os.Getenv("WORKER_MAX_OUTSTANDING")); err == nil && v > 0 {
		cfg.MaxOutstandingMessages = v
	}
	if v, err := time.ParseDuration(os.Getenv("WORKER_HANDLE_TIMEOUT")); err == nil && v > 0 {
		cfg.HandleTimeout = v
	}
	if v, err := time.ParseDuration(os.Getenv("WORKER_DEDUP_WINDOW")); err == nil && v > 0 {
		cfg.DedupWindow = v
	}
	return cfg
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.MaxOutstandingMessages <= 0 {
		c.MaxOutstandingMessages = d.MaxOutstandingMessages
	}
	if c.MaxExtension <= 0 {
		c.MaxExtension = d.MaxExtension
	}
	if c.HandleTimeout <= 0 {
		c.HandleTimeout = d.HandleTimeout
	}
	if c.DedupWindow <= 0 {
		c.DedupWindow = d.DedupWindow
	}
}
