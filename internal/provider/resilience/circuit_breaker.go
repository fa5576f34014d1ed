// Package resilience wraps outbound provider calls (routing, geocoding, order
// notifications) with timeouts, retries and a circuit breaker, and tracks
// provider health for the ops status endpoint.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig holds configuration for the circuit breaker.
type CircuitBreakerConfig struct {
	// Name is the provider the breaker guards. It appears in logs and in
	// the ops status report.
	Name string

	// MaxRequests is the number of trial requests let through while half-open.
	// Default: 1
	MaxRequests uint32

	// Interval clears the closed-state counts periodically so a long run of
	// successes cannot mask a fresh outage. Zero never clears them.
	// Default: 60 seconds
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing again.
	// Default: 30 seconds
	Timeout time.Duration

	// ReadyToTrip decides when to open the breaker.
	// Default: DefaultReadyToTrip
	ReadyToTrip func(counts gobreaker.Counts) bool

	// IsSuccessful classifies an error as a provider failure or not.
	// Default: DefaultIsSuccessful
	IsSuccessful func(err error) bool

	// OnStateChange is called when the circuit breaker state changes.
	OnStateChange func(name string, from gobreaker.State, to gobreaker.State)
}

// DefaultCircuitBreakerConfig returns the breaker settings used for provider clients.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		ReadyToTrip:  DefaultReadyToTrip,
		IsSuccessful: DefaultIsSuccessful,
	}
}

// DefaultReadyToTrip opens the breaker after five consecutive failures, or
// once at least five requests were made and half of them failed.
func DefaultReadyToTrip(counts gobreaker.Counts) bool {
	if counts.ConsecutiveFailures >= 5 {
		return true
	}
	if counts.Requests < 5 {
		return false
	}
	failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
	return failureRatio >= 0.5
}

// DefaultIsSuccessful does not count caller cancellation against the
// provider. A superseded route lookup or a closed live session cancels its
// request, and that says nothing about provider health.
func DefaultIsSuccessful(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

// NewCircuitBreaker creates a new circuit breaker with the given configuration.
func NewCircuitBreaker[T any](cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[T] {
	isSuccessful := cfg.IsSuccessful
	if isSuccessful == nil {
		isSuccessful = DefaultIsSuccessful
	}
	readyToTrip := cfg.ReadyToTrip
	if readyToTrip == nil {
		readyToTrip = DefaultReadyToTrip
	}

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:          cfg.Name,
		MaxRequests:   cfg.MaxRequests,
		Interval:      cfg.Interval,
		Timeout:       cfg.Timeout,
		ReadyToTrip:   readyToTrip,
		IsSuccessful:  isSuccessful,
		OnStateChange: cfg.OnStateChange,
	})
}
