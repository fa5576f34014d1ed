package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/wokexpress/storefront/internal/api/models"
	"github.com/wokexpress/storefront/internal/api/response"
	"github.com/wokexpress/storefront/internal/assistant"
	"github.com/wokexpress/storefront/internal/delivery"
	"github.com/wokexpress/storefront/internal/routing"
	"github.com/wokexpress/storefront/pkg/polyline"
)

// DeliveryHandlerConfig holds dependencies for DeliveryHandler.
type DeliveryHandlerConfig struct {
	Policy delivery.PolicyConfig
	// Origin is the restaurant location every route starts from.
	Origin routing.Coordinate
	Router routing.Provider
	// Geocoder resolves free-text addresses. Optional; without it
	// /v1/delivery/resolve only accepts coordinates.
	Geocoder routing.Geocoder
	Logger   zerolog.Logger
}

// DeliveryHandler serves delivery feasibility and pricing endpoints.
type DeliveryHandler struct {
	policy   delivery.PolicyConfig
	origin   routing.Coordinate
	router   routing.Provider
	geocoder routing.Geocoder
	logger   zerolog.Logger
}

// NewDeliveryHandler creates a new DeliveryHandler.
func NewDeliveryHandler(cfg DeliveryHandlerConfig) *DeliveryHandler {
	return &DeliveryHandler{
		policy:   cfg.Policy,
		origin:   cfg.Origin,
		router:   cfg.Router,
		geocoder: cfg.Geocoder,
		logger:   cfg.Logger,
	}
}

// Quote handles POST /v1/delivery/quote - price a known distance.
func (h *DeliveryHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var input models.DeliveryQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	q, err := delivery.QuoteFor(input.DistanceKm, input.CartTotalCents, input.TravelMinutes, h.policy)
	if err != nil {
		writeQuoteInputError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, quoteResponse(q, input.CartTotalCents, h.policy))
}

// Resolve handles POST /v1/delivery/resolve - route to a destination and price it.
func (h *DeliveryHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var input models.DeliveryResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	destination, ok := h.destination(w, r, input)
	if !ok {
		return
	}

	route, err := h.router.Route(r.Context(), h.origin, destination)
	if err != nil {
		h.writeRoutingError(w, r, err)
		return
	}

	travel := route.TravelMinutes()
	q, err := delivery.QuoteFor(route.DistanceKm(), input.CartTotalCents, &travel, h.policy)
	if err != nil {
		writeQuoteInputError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.DeliveryResolveResponse{
		Route: routeSummary(route),
		Quote: quoteResponse(q, input.CartTotalCents, h.policy),
	})
}

// AssistantPrompt handles POST /v1/delivery/assistant-prompt - build the
// delivery assistant prompt and its offline fallback reply.
func (h *DeliveryHandler) AssistantPrompt(w http.ResponseWriter, r *http.Request) {
	var input models.AssistantPromptRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	q, err := delivery.QuoteFor(input.DistanceKm, input.CartTotalCents, input.TravelMinutes, h.policy)
	if err != nil {
		writeQuoteInputError(w, r, err)
		return
	}
	if !q.Allowed {
		writeDenied(w, r, q, h.policy)
		return
	}

	in := assistant.PromptInput{
		Quote:          q,
		CartTotalCents: input.CartTotalCents,
		Language:       assistant.ParseLanguage(input.Language),
		Policy:         h.policy,
	}
	prompt, err := assistant.BuildDeliveryPrompt(in)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to build assistant prompt")
		response.InternalError(w, r, "failed to build assistant prompt")
		return
	}
	fallback := assistant.FallbackReply(in)

	response.JSON(w, r, http.StatusOK, models.AssistantPromptResponse{
		Language: string(in.Language),
		System:   prompt.System,
		User:     prompt.User,
		Fallback: models.AssistantReply{
			Message:     fallback.Message,
			Suggestions: fallback.Suggestions,
		},
	})
}

// destination picks coordinates from the request, geocoding the address
// when no coordinates were sent. It writes the error response itself.
func (h *DeliveryHandler) destination(w http.ResponseWriter, r *http.Request, input models.DeliveryResolveRequest) (routing.Coordinate, bool) {
	if input.Destination != nil {
		c := routing.Coordinate{Lat: input.Destination.Lat, Lng: input.Destination.Lng}
		if !c.Valid() {
			response.BadRequest(w, r, "destination is out of range", []models.FieldError{
				{Field: "destination", Message: "lat must be within [-90, 90] and lng within [-180, 180]", Code: "OUT_OF_RANGE"},
			})
			return routing.Coordinate{}, false
		}
		return c, true
	}

	address := ""
	if input.Address != nil {
		address = strings.TrimSpace(*input.Address)
	}
	if address == "" {
		response.BadRequest(w, r, "destination or address is required", []models.FieldError{
			{Field: "destination", Message: "required if address not provided", Code: "REQUIRED"},
			{Field: "address", Message: "required if destination not provided", Code: "REQUIRED"},
		})
		return routing.Coordinate{}, false
	}
	if h.geocoder == nil {
		response.BadRequest(w, r, "address lookup is not enabled, send coordinates", []models.FieldError{
			{Field: "destination", Message: "required", Code: "REQUIRED"},
		})
		return routing.Coordinate{}, false
	}

	c, err := h.geocoder.Geocode(r.Context(), address)
	if err != nil {
		h.writeRoutingError(w, r, err)
		return routing.Coordinate{}, false
	}
	return c, true
}

func (h *DeliveryHandler) writeRoutingError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	log := zerolog.Ctx(r.Context())
	if log.GetLevel() == zerolog.Disabled {
		log = &h.logger
	}
	writeRoutingError(w, r, log, err)
}

func writeRoutingError(w http.ResponseWriter, r *http.Request, log *zerolog.Logger, err error) {
	switch {
	case errors.Is(err, routing.ErrInvalidCoordinates):
		response.BadRequest(w, r, "destination coordinates were rejected", nil)
	case errors.Is(err, routing.ErrAddressNotFound):
		response.RouteNotFound(w, r, "address not found")
	case errors.Is(err, routing.ErrNoRouteFound):
		response.RouteNotFound(w, r, "no drivable route to this destination")
	case errors.Is(err, routing.ErrRateLimitExceeded):
		log.Warn().Err(err).Msg("routing provider quota exceeded")
		response.ServiceUnavailable(w, r, "route lookups are temporarily limited, please retry", 60)
	case errors.Is(err, routing.ErrProviderUnavailable):
		log.Warn().Err(err).Msg("routing provider unavailable")
		response.ServiceUnavailable(w, r, "route lookup is temporarily unavailable, please retry", 30)
	default:
		log.Error().Err(err).Msg("route lookup failed")
		response.InternalError(w, r, "route lookup failed")
	}
}

func writeQuoteInputError(w http.ResponseWriter, r *http.Request, err error) {
	var inputErr *delivery.InputError
	if errors.As(err, &inputErr) {
		field := inputErr.Field
		if name, ok := quoteFieldNames[field]; ok {
			field = name
		}
		response.BadRequest(w, r, err.Error(), []models.FieldError{
			{Field: field, Message: "must be a non-negative finite number", Code: "OUT_OF_RANGE"},
		})
		return
	}
	response.InternalError(w, r, "failed to compute delivery quote")
}

// quoteFieldNames maps policy input names to request JSON fields.
var quoteFieldNames = map[string]string{
	"distance_km":      "distanceKm",
	"cart_total_cents": "cartTotalCents",
	"travel_minutes":   "travelMinutes",
}

func writeDenied(w http.ResponseWriter, r *http.Request, q delivery.Quote, cfg delivery.PolicyConfig) {
	reason := ""
	if q.Reason != nil {
		reason = string(*q.Reason)
	}
	response.DeliveryNotAvailable(w, r, reason, deniedDetail(reason, cfg))
}

func deniedDetail(reason string, cfg delivery.PolicyConfig) string {
	switch delivery.ReasonCode(reason) {
	case delivery.ReasonTooFar:
		return "delivery is limited to " + formatKm(cfg.MaxDistanceKm)
	case delivery.ReasonBelowMinimum:
		return "minimum order for delivery is " + delivery.FormatPrice(cfg.MinOrderCents)
	default:
		return "delivery is not available"
	}
}

func formatKm(km float64) string {
	return strconv.FormatFloat(km, 'f', -1, 64) + " km"
}

func quoteResponse(q delivery.Quote, cartTotalCents int64, cfg delivery.PolicyConfig) models.DeliveryQuote {
	out := models.DeliveryQuote{
		Allowed:                    q.Allowed,
		DistanceKm:                 q.DistanceKm,
		TravelMinutes:              q.TravelMinutes,
		PreparationMinutes:         q.PreparationMinutes,
		TotalMinutes:               q.TotalMinutes,
		PriceCents:                 q.PriceCents,
		IsFree:                     q.IsFree,
		FreeDeliveryShortfallCents: q.FreeDeliveryShortfall(cartTotalCents, cfg),
	}
	if q.Reason != nil {
		reason := string(*q.Reason)
		out.Reason = &reason
	}
	if q.TotalMinutes != nil {
		window := delivery.FormatWindow(*q.TotalMinutes)
		out.Window = &window
	}
	if q.PriceCents != nil {
		price := delivery.FormatPrice(*q.PriceCents)
		out.PriceFormatted = &price
	}
	return out
}

func routeSummary(route *routing.Route) models.RouteSummary {
	coords := make([]polyline.Coordinate, len(route.Path))
	for i, c := range route.Path {
		coords[i] = polyline.Coordinate{Lat: c.Lat, Lng: c.Lng}
	}
	return models.RouteSummary{
		Provider:        route.Provider,
		Origin:          toPoint(route.Origin),
		Destination:     toPoint(route.Destination),
		DistanceMeters:  route.DistanceMeters,
		DurationSeconds: route.DurationSeconds,
		Polyline:        polyline.Encode(coords),
	}
}

func toPoint(c routing.Coordinate) models.Point {
	return models.Point{Lat: c.Lat, Lng: c.Lng}
}
