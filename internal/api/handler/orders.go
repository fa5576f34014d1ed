package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/wokexpress/storefront/internal/api/models"
	"github.com/wokexpress/storefront/internal/api/response"
	"github.com/wokexpress/storefront/internal/delivery"
	"github.com/wokexpress/storefront/internal/order"
	"github.com/wokexpress/storefront/internal/routing"
)

// OrderHandler handles order endpoints.
type OrderHandler struct {
	service *order.Service
	policy  delivery.PolicyConfig
	logger  zerolog.Logger
}

// NewOrderHandler creates a new OrderHandler. policy is only used to explain
// refused deliveries to the customer.
func NewOrderHandler(service *order.Service, policy delivery.PolicyConfig, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{service: service, policy: policy, logger: logger}
}

// CreateOrder handles POST /v1/orders - place an order.
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var input models.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	o, err := h.service.Checkout(r.Context(), checkoutInput(input))
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	response.Created(w, r, "/v1/orders/"+o.ID, orderResponse(o))
}

// GetOrder handles GET /v1/orders/{orderId} - get a placed order.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	if orderID == "" {
		response.BadRequest(w, r, "orderId is required", nil)
		return
	}

	o, err := h.service.Get(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			response.NotFound(w, r, "order not found")
			return
		}
		h.logger.Error().Err(err).Str("order_id", orderID).Msg("failed to load order")
		response.InternalError(w, r, "failed to load order")
		return
	}

	response.JSON(w, r, http.StatusOK, orderResponse(o))
}

func (h *OrderHandler) writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *order.ValidationError
	if errors.As(err, &validationErr) {
		fieldErrors := make([]models.FieldError, len(validationErr.Errors))
		for i, fe := range validationErr.Errors {
			fieldErrors[i] = models.FieldError{Field: fe.Field, Message: fe.Message}
		}
		response.BadRequest(w, r, "order validation failed", fieldErrors)
		return
	}

	var deniedErr *order.DeliveryDeniedError
	if errors.As(err, &deniedErr) {
		writeDenied(w, r, deniedErr.Quote, h.policy)
		return
	}

	var inputErr *delivery.InputError
	if errors.As(err, &inputErr) {
		writeQuoteInputError(w, r, err)
		return
	}

	if isRoutingError(err) {
		writeRoutingError(w, r, &h.logger, err)
		return
	}

	h.logger.Error().Err(err).Msg("checkout failed")
	response.InternalError(w, r, "failed to place order")
}

func isRoutingError(err error) bool {
	for _, target := range []error{
		routing.ErrProviderUnavailable,
		routing.ErrNoRouteFound,
		routing.ErrRateLimitExceeded,
		routing.ErrInvalidCoordinates,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func checkoutInput(in models.CreateOrderRequest) order.CheckoutInput {
	items := make([]order.Item, len(in.Items))
	for i, item := range in.Items {
		items[i] = order.Item{
			MenuItemID: item.MenuItemID,
			Title:      item.Title,
			PriceCents: item.PriceCents,
			Quantity:   item.Quantity,
		}
	}
	out := order.CheckoutInput{
		Items: items,
		Customer: order.Customer{
			Name:    in.Customer.Name,
			Phone:   in.Customer.Phone,
			Address: in.Customer.Address,
			Comment: in.Customer.Comment,
		},
	}
	if in.Destination != nil {
		out.Destination = &routing.Coordinate{Lat: in.Destination.Lat, Lng: in.Destination.Lng}
	}
	return out
}

func orderResponse(o *order.Order) models.Order {
	items := make([]models.OrderItem, len(o.Items))
	for i, item := range o.Items {
		items[i] = models.OrderItem{
			MenuItemID: item.MenuItemID,
			Title:      item.Title,
			PriceCents: item.PriceCents,
			Quantity:   item.Quantity,
		}
	}
	return models.Order{
		ID:     o.ID,
		Status: string(o.Status),
		Items:  items,
		Customer: models.CustomerInput{
			Name:    o.Customer.Name,
			Phone:   o.Customer.Phone,
			Address: o.Customer.Address,
			Comment: o.Customer.Comment,
		},
		Destination:   toPoint(o.Destination),
		DistanceKm:    o.DistanceKm,
		TotalMinutes:  o.TotalMinutes,
		Window:        delivery.FormatWindow(o.TotalMinutes),
		ItemsCents:    o.ItemsCents,
		DeliveryCents: o.DeliveryCents,
		TotalCents:    o.TotalCents,
		FreeDelivery:  o.FreeDelivery,
		CreatedAt:     models.Timestamp(o.CreatedAt),
	}
}
