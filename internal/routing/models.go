// Package routing resolves driving routes from the restaurant to a customer.
package routing

import (
	"context"
	"errors"
	"math"

	"github.com/wokexpress/storefront/internal/delivery"
)

// Sentinel errors for routing operations.
var (
	// ErrProviderUnavailable indicates the routing provider is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	// ErrNoRouteFound indicates no drivable route exists between the given points.
	ErrNoRouteFound = errors.New("no route found between the given points")
	// ErrRateLimitExceeded indicates the API quota has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidCoordinates indicates the provided coordinates are invalid or out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrAddressNotFound indicates geocoding returned no match for an address.
	ErrAddressNotFound = errors.New("address not found")
	// ErrSuperseded indicates a newer route request replaced this one before it finished.
	ErrSuperseded = errors.New("route request superseded")
)

// Provider resolves a driving route between two points.
type Provider interface {
	Route(ctx context.Context, origin, destination Coordinate) (*Route, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// Geocoder turns a free-text delivery address into a coordinate.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Coordinate, error)
}

// Coordinate is a point in WGS84 degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether c is finite and within latitude/longitude range.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Route is a provider-resolved driving route. Path runs from origin to
// destination; its endpoints are close to, but not necessarily equal to,
// Origin and Destination. Path may be empty if the provider returned no geometry.
type Route struct {
	Origin          Coordinate
	Destination     Coordinate
	Path            []Coordinate
	DistanceMeters  float64
	DurationSeconds float64
	Provider        string
}

// DistanceKm returns the route length in kilometres.
func (r *Route) DistanceKm() float64 {
	return r.DistanceMeters / 1000
}

// TravelMinutes returns the provider's driving time rounded up to whole minutes.
func (r *Route) TravelMinutes() int {
	return delivery.TravelMinutesFromSeconds(r.DurationSeconds)
}

// Error provides detailed error information from the routing provider.
type Error struct {
	Provider string // Provider that generated the error
	Code     string // Error code from the provider
	Message  string // Human-readable error message
	Err      error  // Underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient and the request can be retried.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}
