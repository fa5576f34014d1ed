package routing

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

var (
	restaurant = Coordinate{Lat: 52.2297, Lng: 21.0122}
	customer   = Coordinate{Lat: 52.2551, Lng: 21.0352}
)

// mockProvider is a routing provider for tests.
type mockProvider struct {
	name      string
	route     *Route
	err       error
	callCount atomic.Int32
	// block, when set, makes the first call wait until it is closed or ctx ends.
	block chan struct{}
}

func (m *mockProvider) Route(ctx context.Context, origin, destination Coordinate) (*Route, error) {
	if n := m.callCount.Add(1); n == 1 && m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	r := *m.route
	r.Origin, r.Destination = origin, destination
	return &r, nil
}

func (m *mockProvider) Name() string {
	return m.name
}

func sampleRoute() *Route {
	return &Route{
		Path: []Coordinate{
			{Lat: 52.2297, Lng: 21.0122},
			{Lat: 52.2400, Lng: 21.0200},
			{Lat: 52.2551, Lng: 21.0352},
		},
		DistanceMeters:  4000,
		DurationSeconds: 540,
		Provider:        "mock",
	}
}

func newTestService(p Provider) *Service {
	return NewService(ServiceConfig{Provider: p, Logger: zerolog.Nop()})
}

func TestService_Route_CacheMiss(t *testing.T) {
	provider := &mockProvider{name: "mock", route: sampleRoute()}
	service := newTestService(provider)

	route, err := service.Route(context.Background(), restaurant, customer)
	require.NoError(t, err)

	assert.Equal(t, int32(1), provider.callCount.Load())
	assert.InDelta(t, 4.0, route.DistanceKm(), 1e-9)
	assert.Len(t, route.Path, 3)
	assert.Equal(t, customer, route.Destination)
}

func TestRoute_TravelMinutes(t *testing.T) {
	tests := []struct {
		seconds float64
		want    int
	}{
		{0, 0},
		{-5, 0},
		{60, 1},
		{61, 2},
		{470, 8},
	}
	for _, tt := range tests {
		r := &Route{DurationSeconds: tt.seconds}
		assert.Equal(t, tt.want, r.TravelMinutes(), "%v seconds", tt.seconds)
	}
}

func TestService_Route_CacheHit(t *testing.T) {
	provider := &mockProvider{name: "mock", route: sampleRoute()}
	service := newTestService(provider)

	_, err := service.Route(context.Background(), restaurant, customer)
	require.NoError(t, err)

	// a few metres away lands in the same grid cell
	nearby := Coordinate{Lat: customer.Lat + 0.00001, Lng: customer.Lng + 0.00001}
	_, err = service.Route(context.Background(), restaurant, nearby)
	require.NoError(t, err)

	assert.Equal(t, int32(1), provider.callCount.Load(), "second lookup should be served from cache")
	assert.Equal(t, 1, service.CacheSize())
}

func TestService_Route_DifferentCellMisses(t *testing.T) {
	provider := &mockProvider{name: "mock", route: sampleRoute()}
	service := newTestService(provider)

	_, err := service.Route(context.Background(), restaurant, customer)
	require.NoError(t, err)
	_, err = service.Route(context.Background(), restaurant, Coordinate{Lat: 52.27, Lng: 21.05})
	require.NoError(t, err)

	assert.Equal(t, int32(2), provider.callCount.Load())
}

func TestService_Route_CacheExpiry(t *testing.T) {
	provider := &mockProvider{name: "mock", route: sampleRoute()}
	service := NewService(ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
		CacheTTL: 10 * time.Millisecond,
	})

	_, err := service.Route(context.Background(), restaurant, customer)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, err = service.Route(context.Background(), restaurant, customer)
	require.NoError(t, err)

	assert.Equal(t, int32(2), provider.callCount.Load())
}

func TestService_Route_ProviderErrorNotMaskedByExpiredEntry(t *testing.T) {
	provider := &mockProvider{name: "mock", route: sampleRoute()}
	service := NewService(ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
		CacheTTL: 10 * time.Millisecond,
	})

	_, err := service.Route(context.Background(), restaurant, customer)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	provider.err = &Error{Provider: "mock", Code: "SERVER_503", Message: "down", Err: ErrProviderUnavailable}
	route, err := service.Route(context.Background(), restaurant, customer)

	assert.Nil(t, route, "an expired route must not be served on failure")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestService_Route_InvalidCoordinates(t *testing.T) {
	provider := &mockProvider{name: "mock", route: sampleRoute()}
	service := newTestService(provider)

	tests := []struct {
		name        string
		origin      Coordinate
		destination Coordinate
		code        string
	}{
		{"latitude out of range", Coordinate{Lat: 91, Lng: 0}, customer, "INVALID_ORIGIN"},
		{"longitude out of range", restaurant, Coordinate{Lat: 0, Lng: -181}, "INVALID_DESTINATION"},
		{"NaN destination", restaurant, Coordinate{Lat: math.NaN(), Lng: 21}, "INVALID_DESTINATION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Route(context.Background(), tt.origin, tt.destination)
			require.ErrorIs(t, err, ErrInvalidCoordinates)

			var routingErr *Error
			require.True(t, errors.As(err, &routingErr))
			assert.Equal(t, tt.code, routingErr.Code)
		})
	}
	assert.Zero(t, provider.callCount.Load())
}

func TestService_CacheEntriesGauge(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := &mockProvider{name: "mock", route: sampleRoute()}
	service := NewService(ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
		Meter:    sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"),
	})

	_, err := service.Route(context.Background(), restaurant, customer)
	require.NoError(t, err)
	_, err = service.Route(context.Background(), restaurant, Coordinate{Lat: 52.26, Lng: 21.04})
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var entries *metricdata.Gauge[int64]
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == "routing.cache.entries" {
				g, ok := m.Data.(metricdata.Gauge[int64])
				require.True(t, ok)
				entries = &g
			}
		}
	}
	require.NotNil(t, entries, "cache gauge not reported")
	require.Len(t, entries.DataPoints, 1)
	assert.Equal(t, int64(2), entries.DataPoints[0].Value)
	assert.Equal(t, "mock", service.Name())
}

func TestCoordinate_Valid(t *testing.T) {
	assert.True(t, Coordinate{Lat: 90, Lng: 180}.Valid())
	assert.True(t, Coordinate{Lat: -90, Lng: -180}.Valid())
	assert.False(t, Coordinate{Lat: 90.0001, Lng: 0}.Valid())
	assert.False(t, Coordinate{Lat: 0, Lng: math.Inf(-1)}.Valid())
}

func TestError_IsRetryable(t *testing.T) {
	assert.True(t, (&Error{Err: ErrProviderUnavailable}).IsRetryable())
	assert.True(t, (&Error{Err: ErrRateLimitExceeded}).IsRetryable())
	assert.False(t, (&Error{Err: ErrNoRouteFound}).IsRetryable())

	err := &Error{Message: "no route", Err: ErrNoRouteFound}
	assert.Equal(t, "no route: no route found between the given points", err.Error())
}
