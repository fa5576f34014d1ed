package models

// DeliveryQuoteRequest is the request body for POST /v1/delivery/quote.
type DeliveryQuoteRequest struct {
	DistanceKm     float64 `json:"distanceKm"`
	CartTotalCents int64   `json:"cartTotalCents"`
	TravelMinutes  *int    `json:"travelMinutes,omitempty"`
}

// DeliveryQuote is the wire form of a delivery decision.
type DeliveryQuote struct {
	Allowed            bool    `json:"allowed"`
	Reason             *string `json:"reason,omitempty"`
	DistanceKm         float64 `json:"distanceKm"`
	TravelMinutes      *int    `json:"travelMinutes,omitempty"`
	PreparationMinutes int     `json:"preparationMinutes"`
	TotalMinutes       *int    `json:"totalMinutes,omitempty"`
	PriceCents         *int64  `json:"priceCents,omitempty"`
	IsFree             bool    `json:"isFree"`

	// Window is the customer-facing arrival window, e.g. "23–33 min".
	Window *string `json:"window,omitempty"`
	// PriceFormatted is the delivery fee in złoty, e.g. "11.00 zł".
	PriceFormatted *string `json:"priceFormatted,omitempty"`
	// FreeDeliveryShortfallCents is what the cart still needs for free delivery.
	FreeDeliveryShortfallCents int64 `json:"freeDeliveryShortfallCents"`
}

// DeliveryResolveRequest is the request body for POST /v1/delivery/resolve.
// Exactly one of Destination and Address is expected.
type DeliveryResolveRequest struct {
	Destination    *Point  `json:"destination,omitempty"`
	Address        *string `json:"address,omitempty"`
	CartTotalCents int64   `json:"cartTotalCents"`
}

// RouteSummary describes the resolved driving route.
type RouteSummary struct {
	Provider        string  `json:"provider"`
	Origin          Point   `json:"origin"`
	Destination     Point   `json:"destination"`
	DistanceMeters  float64 `json:"distanceMeters"`
	DurationSeconds float64 `json:"durationSeconds"`
	// Polyline is the route geometry in Google encoded polyline format (precision 5).
	Polyline string `json:"polyline"`
}

// DeliveryResolveResponse is the response for POST /v1/delivery/resolve.
type DeliveryResolveResponse struct {
	Route RouteSummary  `json:"route"`
	Quote DeliveryQuote `json:"quote"`
}

// AssistantPromptRequest is the request body for POST /v1/delivery/assistant-prompt.
type AssistantPromptRequest struct {
	DistanceKm     float64 `json:"distanceKm"`
	CartTotalCents int64   `json:"cartTotalCents"`
	TravelMinutes  *int    `json:"travelMinutes,omitempty"`
	Language       string  `json:"language,omitempty"`
}

// AssistantPromptResponse carries the prompt for the language model and the
// reply to show if the model is unavailable.
type AssistantPromptResponse struct {
	Language string         `json:"language"`
	System   string         `json:"system"`
	User     string         `json:"user"`
	Fallback AssistantReply `json:"fallback"`
}

// AssistantReply is a short assistant message with quick-reply suggestions.
type AssistantReply struct {
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions"`
}
