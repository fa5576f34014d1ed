package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/wokexpress/storefront/internal/routing"

// ServiceConfig holds configuration for the routing service.
type ServiceConfig struct {
	// Provider is the directions provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long a resolved route is reused (default: 10 minutes).
	CacheTTL time.Duration

	// CacheGridSize is the cache cell size in degrees (default: 0.0005, roughly 50m).
	// Destinations inside the same cell share a cached route.
	CacheGridSize float64

	// CleanupInterval is how often expired entries are dropped (default: 5 minutes).
	CleanupInterval time.Duration

	// Meter records provider latency and cache effectiveness. Defaults to the global meter.
	Meter metric.Meter
}

// Service resolves routes through a Provider with a short-lived cache.
// Provider failures are always surfaced; an expired or default route is
// never substituted for a failed lookup.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	cacheTTL        time.Duration
	cacheGridSize   float64
	cleanupInterval time.Duration

	requestDuration metric.Float64Histogram
	cacheLookups    metric.Int64Counter

	mu          sync.RWMutex
	cache       map[string]*cachedRoute
	lastCleanup time.Time
}

type cachedRoute struct {
	route     *Route
	expiresAt time.Time
}

// NewService creates a new routing service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 10 * time.Minute
	}

	cacheGridSize := cfg.CacheGridSize
	if cacheGridSize == 0 {
		cacheGridSize = 0.0005
	}

	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval == 0 {
		cleanupInterval = 5 * time.Minute
	}

	meter := cfg.Meter
	if meter == nil {
		meter = otel.Meter(meterName)
	}

	s := &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger,
		cacheTTL:        cacheTTL,
		cacheGridSize:   cacheGridSize,
		cleanupInterval: cleanupInterval,
		cache:           make(map[string]*cachedRoute),
	}

	var err error
	s.requestDuration, err = meter.Float64Histogram(
		"routing.provider.request.duration",
		metric.WithDescription("Duration of route provider calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		s.logger.Warn().Err(err).Msg("routing duration histogram unavailable")
	}
	s.cacheLookups, err = meter.Int64Counter(
		"routing.cache.lookups",
		metric.WithDescription("Route cache lookups by result"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		s.logger.Warn().Err(err).Msg("routing cache counter unavailable")
	}
	_, err = meter.Int64ObservableGauge(
		"routing.cache.entries",
		metric.WithDescription("Routes held in the cache, including expired entries awaiting cleanup"),
		metric.WithUnit("{route}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(s.CacheSize()))
			return nil
		}),
	)
	if err != nil {
		s.logger.Warn().Err(err).Msg("routing cache gauge unavailable")
	}

	return s
}

// Route returns a driving route between origin and destination.
func (s *Service) Route(ctx context.Context, origin, destination Coordinate) (*Route, error) {
	if !origin.Valid() {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "INVALID_ORIGIN",
			Message:  "invalid origin coordinates",
			Err:      ErrInvalidCoordinates,
		}
	}
	if !destination.Valid() {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "INVALID_DESTINATION",
			Message:  "invalid destination coordinates",
			Err:      ErrInvalidCoordinates,
		}
	}

	key := s.cacheKey(origin, destination)

	s.mu.RLock()
	cached, ok := s.cache[key]
	s.mu.RUnlock()
	if ok && time.Now().Before(cached.expiresAt) {
		s.recordLookup(ctx, "hit")
		s.logger.Debug().Str("cache_key", key).Msg("cache hit for route")
		return cached.route, nil
	}
	s.recordLookup(ctx, "miss")

	s.logger.Debug().
		Float64("origin_lat", origin.Lat).
		Float64("origin_lng", origin.Lng).
		Float64("dest_lat", destination.Lat).
		Float64("dest_lng", destination.Lng).
		Str("provider", s.provider.Name()).
		Msg("fetching route from provider")

	start := time.Now()
	route, err := s.provider.Route(ctx, origin, destination)
	s.recordDuration(ctx, time.Since(start), err)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		s.logger.Error().Err(err).
			Float64("dest_lat", destination.Lat).
			Float64("dest_lng", destination.Lng).
			Str("provider", s.provider.Name()).
			Msg("failed to fetch route")
		return nil, err
	}

	now := time.Now()
	s.mu.Lock()
	s.cache[key] = &cachedRoute{route: route, expiresAt: now.Add(s.cacheTTL)}
	s.cleanupIfNeeded(now)
	s.mu.Unlock()

	s.logger.Debug().
		Str("cache_key", key).
		Float64("distance_m", route.DistanceMeters).
		Float64("duration_s", route.DurationSeconds).
		Int("path_points", len(route.Path)).
		Msg("cached route")

	return route, nil
}

// Name returns the name of the underlying provider.
func (s *Service) Name() string {
	return s.provider.Name()
}

// cacheKey quantises both endpoints onto the cache grid.
// Format: {gridOriginLat},{gridOriginLng}:{gridDestLat},{gridDestLng}.
func (s *Service) cacheKey(origin, destination Coordinate) string {
	g := s.cacheGridSize
	return fmt.Sprintf("%.4f,%.4f:%.4f,%.4f",
		math.Floor(origin.Lat/g)*g, math.Floor(origin.Lng/g)*g,
		math.Floor(destination.Lat/g)*g, math.Floor(destination.Lng/g)*g,
	)
}

// cleanupIfNeeded drops expired entries. Caller holds s.mu.
func (s *Service) cleanupIfNeeded(now time.Time) {
	if now.Sub(s.lastCleanup) < s.cleanupInterval {
		return
	}
	s.lastCleanup = now

	expired := 0
	for key, c := range s.cache {
		if now.After(c.expiresAt) {
			delete(s.cache, key)
			expired++
		}
	}
	if expired > 0 {
		s.logger.Debug().Int("expired_entries", expired).Msg("cleaned up expired route cache entries")
	}
}

// CacheSize returns the number of cached routes, including expired ones not yet cleaned up.
func (s *Service) CacheSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

func (s *Service) recordLookup(ctx context.Context, result string) {
	if s.cacheLookups == nil {
		return
	}
	s.cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (s *Service) recordDuration(ctx context.Context, d time.Duration, err error) {
	if s.requestDuration == nil {
		return
	}
	s.requestDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("provider", s.provider.Name()),
		attribute.Bool("error", err != nil),
	))
}
