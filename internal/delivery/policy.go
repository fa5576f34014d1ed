// Package delivery decides whether an order can be delivered and what it costs.
//
// All call sites (checkout validation, assistant prompts, order totals) go through
// QuoteFor so the thresholds and pricing formula live in exactly one place.
package delivery

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is wrapped by InputError when QuoteFor receives values a real
// route provider or cart can never produce.
var ErrInvalidInput = errors.New("invalid delivery quote input")

// ReasonCode explains why a delivery was refused.
type ReasonCode string

const (
	// ReasonTooFar means the destination lies beyond the maximum delivery distance.
	ReasonTooFar ReasonCode = "TOO_FAR"
	// ReasonBelowMinimum means the cart total is under the minimum order value.
	ReasonBelowMinimum ReasonCode = "BELOW_MINIMUM"
)

// Quote is the outcome of a delivery decision. A new Quote is produced for
// every distance or cart change; callers never mutate one in place.
type Quote struct {
	Allowed            bool
	Reason             *ReasonCode
	DistanceKm         float64
	TravelMinutes      *int
	PreparationMinutes int
	TotalMinutes       *int
	PriceCents         *int64
	IsFree             bool
}

// InputError reports a precondition violation in QuoteFor.
type InputError struct {
	Field string
	Value float64
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s must be non-negative, got %v", ErrInvalidInput, e.Field, e.Value)
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

// QuoteFor evaluates the delivery rules in order: distance limit, then order
// minimum, then pricing. The first failing rule decides the reason code.
//
// knownTravelMinutes, when non-nil, is taken verbatim from the route provider;
// otherwise travel time is derived from the configured average speed.
func QuoteFor(distanceKm float64, cartTotalCents int64, knownTravelMinutes *int, cfg PolicyConfig) (Quote, error) {
	if math.IsNaN(distanceKm) || math.IsInf(distanceKm, 0) || distanceKm < 0 {
		return Quote{}, &InputError{Field: "distance_km", Value: distanceKm}
	}
	if cartTotalCents < 0 {
		return Quote{}, &InputError{Field: "cart_total_cents", Value: float64(cartTotalCents)}
	}
	if knownTravelMinutes != nil && *knownTravelMinutes < 0 {
		return Quote{}, &InputError{Field: "travel_minutes", Value: float64(*knownTravelMinutes)}
	}

	if distanceKm > cfg.MaxDistanceKm {
		return denied(ReasonTooFar, distanceKm, cfg), nil
	}
	if cartTotalCents < cfg.MinOrderCents {
		return denied(ReasonBelowMinimum, distanceKm, cfg), nil
	}

	isFree := cartTotalCents >= cfg.FreeDeliveryFromCents

	var price int64
	if !isFree {
		price = int64(math.Round(float64(cfg.BasePriceCents) + distanceKm*float64(cfg.PricePerKmCents)))
	}

	var travel int
	if knownTravelMinutes != nil {
		travel = *knownTravelMinutes
	} else {
		travel = int(math.Ceil(distanceKm * 60 / cfg.AverageSpeedKmPerHour))
	}
	total := cfg.PreparationMinutes + travel

	return Quote{
		Allowed:            true,
		DistanceKm:         math.Round(distanceKm*10) / 10,
		TravelMinutes:      &travel,
		PreparationMinutes: cfg.PreparationMinutes,
		TotalMinutes:       &total,
		PriceCents:         &price,
		IsFree:             isFree,
	}, nil
}

func denied(reason ReasonCode, distanceKm float64, cfg PolicyConfig) Quote {
	return Quote{
		Allowed:            false,
		Reason:             &reason,
		DistanceKm:         distanceKm,
		PreparationMinutes: cfg.PreparationMinutes,
	}
}

// FreeDeliveryShortfall returns how many cents the cart is missing to reach
// free delivery. Zero when the quote is already free or delivery is refused.
func (q Quote) FreeDeliveryShortfall(cartTotalCents int64, cfg PolicyConfig) int64 {
	if !q.Allowed || q.IsFree {
		return 0
	}
	if missing := cfg.FreeDeliveryFromCents - cartTotalCents; missing > 0 {
		return missing
	}
	return 0
}

// TravelMinutesFromSeconds converts a provider duration to whole minutes,
// rounding up so a 61 second trip is quoted as 2 minutes.
func TravelMinutesFromSeconds(seconds float64) int {
	if seconds <= 0 || math.IsNaN(seconds) {
		return 0
	}
	return int(math.Ceil(seconds / 60))
}
