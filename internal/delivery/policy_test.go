package delivery_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wokexpress/storefront/internal/delivery"
)

func intPtr(v int) *int { return &v }

func mustQuote(t *testing.T, distanceKm float64, cartTotalCents int64, travel *int, cfg delivery.PolicyConfig) delivery.Quote {
	t.Helper()
	q, err := delivery.QuoteFor(distanceKm, cartTotalCents, travel, cfg)
	require.NoError(t, err)
	return q
}

func TestQuoteFor_Scenario(t *testing.T) {
	cfg := delivery.DefaultPolicyConfig()

	t.Run("paid delivery", func(t *testing.T) {
		q := mustQuote(t, 4.0, 6000, nil, cfg)

		assert.True(t, q.Allowed)
		assert.Nil(t, q.Reason)
		assert.False(t, q.IsFree)
		require.NotNil(t, q.PriceCents)
		assert.Equal(t, int64(1100), *q.PriceCents)
		require.NotNil(t, q.TravelMinutes)
		assert.Equal(t, 8, *q.TravelMinutes)
		require.NotNil(t, q.TotalMinutes)
		assert.Equal(t, 28, *q.TotalMinutes)
		assert.Equal(t, 20, q.PreparationMinutes)
		assert.InDelta(t, 4.0, q.DistanceKm, 1e-9)
	})

	t.Run("free delivery", func(t *testing.T) {
		q := mustQuote(t, 4.0, 10000, nil, cfg)

		assert.True(t, q.Allowed)
		assert.True(t, q.IsFree)
		require.NotNil(t, q.PriceCents)
		assert.Equal(t, int64(0), *q.PriceCents)
	})

	t.Run("too far", func(t *testing.T) {
		q := mustQuote(t, 12.0, 6000, nil, cfg)

		assert.False(t, q.Allowed)
		require.NotNil(t, q.Reason)
		assert.Equal(t, delivery.ReasonTooFar, *q.Reason)
		assert.Nil(t, q.PriceCents)
		assert.Nil(t, q.TravelMinutes)
		assert.Nil(t, q.TotalMinutes)
		assert.False(t, q.IsFree)
	})

	t.Run("below minimum", func(t *testing.T) {
		q := mustQuote(t, 4.0, 2000, nil, cfg)

		assert.False(t, q.Allowed)
		require.NotNil(t, q.Reason)
		assert.Equal(t, delivery.ReasonBelowMinimum, *q.Reason)
		assert.Nil(t, q.PriceCents)
	})
}

func TestQuoteFor_TooFarWinsOverBelowMinimum(t *testing.T) {
	q := mustQuote(t, 25, 100, nil, delivery.DefaultPolicyConfig())

	require.NotNil(t, q.Reason)
	assert.Equal(t, delivery.ReasonTooFar, *q.Reason)
}

func TestQuoteFor_DistanceBoundary(t *testing.T) {
	cfg := delivery.DefaultPolicyConfig()

	atLimit := mustQuote(t, cfg.MaxDistanceKm, 6000, nil, cfg)
	assert.True(t, atLimit.Allowed, "max distance is inclusive")

	beyond := mustQuote(t, math.Nextafter(cfg.MaxDistanceKm, math.Inf(1)), 6000, nil, cfg)
	assert.False(t, beyond.Allowed)
	require.NotNil(t, beyond.Reason)
	assert.Equal(t, delivery.ReasonTooFar, *beyond.Reason)
}

func TestQuoteFor_OrderMinimumBoundary(t *testing.T) {
	cfg := delivery.DefaultPolicyConfig()

	atMinimum := mustQuote(t, 3, cfg.MinOrderCents, nil, cfg)
	assert.True(t, atMinimum.Allowed, "order minimum is inclusive")

	under := mustQuote(t, 3, cfg.MinOrderCents-1, nil, cfg)
	assert.False(t, under.Allowed)
	require.NotNil(t, under.Reason)
	assert.Equal(t, delivery.ReasonBelowMinimum, *under.Reason)
}

func TestQuoteFor_FreeDeliveryThresholdIsExact(t *testing.T) {
	cfg := delivery.DefaultPolicyConfig()

	for _, d := range []float64{0, 0.5, 3.3, 7.25, 10} {
		free := mustQuote(t, d, cfg.FreeDeliveryFromCents, nil, cfg)
		paid := mustQuote(t, d, cfg.FreeDeliveryFromCents-1, nil, cfg)

		assert.True(t, free.IsFree, "distance %v", d)
		assert.False(t, paid.IsFree, "distance %v", d)
		assert.Positive(t, *paid.PriceCents, "distance %v", d)
	}
}

func TestQuoteFor_MonotonicPricing(t *testing.T) {
	cfg := delivery.DefaultPolicyConfig()

	var prev int64 = -1
	for d := 0.0; d <= cfg.MaxDistanceKm; d += 0.05 {
		q := mustQuote(t, d, 5000, nil, cfg)
		require.True(t, q.Allowed)
		assert.GreaterOrEqual(t, *q.PriceCents, prev, "price decreased at %v km", d)
		prev = *q.PriceCents
	}
}

func TestQuoteFor_KnownTravelMinutesOverride(t *testing.T) {
	slow := delivery.DefaultPolicyConfig()
	slow.AverageSpeedKmPerHour = 5
	fast := delivery.DefaultPolicyConfig()
	fast.AverageSpeedKmPerHour = 90

	for _, cfg := range []delivery.PolicyConfig{slow, fast} {
		q := mustQuote(t, 6, 5000, intPtr(30), cfg)
		assert.Equal(t, 30, *q.TravelMinutes)
		assert.Equal(t, cfg.PreparationMinutes+30, *q.TotalMinutes)
	}

	assert.Equal(t, 72, *mustQuote(t, 6, 5000, nil, slow).TravelMinutes)
	assert.Equal(t, 4, *mustQuote(t, 6, 5000, nil, fast).TravelMinutes)
}

func TestQuoteFor_KnownTravelZeroIsUsed(t *testing.T) {
	q := mustQuote(t, 6, 5000, intPtr(0), delivery.DefaultPolicyConfig())
	assert.Equal(t, 0, *q.TravelMinutes)
	assert.Equal(t, 20, *q.TotalMinutes)
}

func TestQuoteFor_TotalIsPreparationPlusTravel(t *testing.T) {
	cfg := delivery.DefaultPolicyConfig()
	cfg.PreparationMinutes = 35

	for _, d := range []float64{0, 1.1, 2.9, 9.99} {
		q := mustQuote(t, d, 4000, nil, cfg)
		assert.Equal(t, cfg.PreparationMinutes+*q.TravelMinutes, *q.TotalMinutes)
	}
}

func TestQuoteFor_RoundsDistanceAndPrice(t *testing.T) {
	cfg := delivery.DefaultPolicyConfig()

	q := mustQuote(t, 3.46, 5000, nil, cfg)
	assert.InDelta(t, 3.5, q.DistanceKm, 1e-9)
	// 500 + 3.46*150 = 1019
	assert.Equal(t, int64(1019), *q.PriceCents)
	// 3.46 km at 30 km/h = 6.92 min
	assert.Equal(t, 7, *q.TravelMinutes)

	denied := mustQuote(t, 13.46, 5000, nil, cfg)
	assert.InDelta(t, 13.46, denied.DistanceKm, 1e-9)
}

func TestQuoteFor_Deterministic(t *testing.T) {
	cfg := delivery.DefaultPolicyConfig()
	a := mustQuote(t, 5.55, 7777, nil, cfg)
	b := mustQuote(t, 5.55, 7777, nil, cfg)
	assert.Equal(t, a, b)
}

func TestQuoteFor_InvalidInput(t *testing.T) {
	cfg := delivery.DefaultPolicyConfig()

	tests := []struct {
		name     string
		distance float64
		cart     int64
		travel   *int
		field    string
	}{
		{name: "negative distance", distance: -1, cart: 5000, field: "distance_km"},
		{name: "NaN distance", distance: math.NaN(), cart: 5000, field: "distance_km"},
		{name: "infinite distance", distance: math.Inf(1), cart: 5000, field: "distance_km"},
		{name: "negative cart", distance: 1, cart: -1, field: "cart_total_cents"},
		{name: "negative travel", distance: 1, cart: 5000, travel: intPtr(-3), field: "travel_minutes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := delivery.QuoteFor(tt.distance, tt.cart, tt.travel, cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, delivery.ErrInvalidInput)

			var inputErr *delivery.InputError
			require.ErrorAs(t, err, &inputErr)
			assert.Equal(t, tt.field, inputErr.Field)
		})
	}
}

func TestQuote_FreeDeliveryShortfall(t *testing.T) {
	cfg := delivery.DefaultPolicyConfig()

	paid := mustQuote(t, 2, 6500, nil, cfg)
	assert.Equal(t, int64(3500), paid.FreeDeliveryShortfall(6500, cfg))

	free := mustQuote(t, 2, 12000, nil, cfg)
	assert.Zero(t, free.FreeDeliveryShortfall(12000, cfg))

	refused := mustQuote(t, 2, 100, nil, cfg)
	assert.Zero(t, refused.FreeDeliveryShortfall(100, cfg))
}

func TestTravelMinutesFromSeconds(t *testing.T) {
	assert.Equal(t, 0, delivery.TravelMinutesFromSeconds(0))
	assert.Equal(t, 1, delivery.TravelMinutesFromSeconds(59))
	assert.Equal(t, 1, delivery.TravelMinutesFromSeconds(60))
	assert.Equal(t, 2, delivery.TravelMinutesFromSeconds(61))
	assert.Equal(t, 0, delivery.TravelMinutesFromSeconds(math.NaN()))
}
