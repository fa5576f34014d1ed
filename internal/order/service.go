package order

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wokexpress/storefront/internal/delivery"
	"github.com/wokexpress/storefront/internal/notify"
	"github.com/wokexpress/storefront/internal/routing"
)

// Validation constants.
const (
	MinPhoneDigits   = 9
	MaxNameLength    = 100
	MaxAddressLength = 300
	MaxCommentLength = 500
	MaxItems         = 50
	MaxQuantity      = 99
	MaxPriceCents    = 1_000_000
)

var (
	phoneNoise   = regexp.MustCompile(`[\s\-\(\)]`)
	phonePattern = regexp.MustCompile(`^\+?\d+$`)
)

// CheckoutInput is a customer's checkout request. Prices and quantities come
// from the cart; the delivery fee is always recomputed.
type CheckoutInput struct {
	Items       []Item
	Customer    Customer
	Destination *routing.Coordinate
}

// ServiceConfig holds configuration for the order service.
type ServiceConfig struct {
	Repo Repository

	// Router resolves the driving distance from Origin to the customer.
	Router routing.Provider

	// Origin is the restaurant location.
	Origin routing.Coordinate

	Policy delivery.PolicyConfig

	// Notifier is told about every stored order (optional).
	Notifier notify.Notifier

	Logger zerolog.Logger
}

// Service provides checkout operations.
type Service struct {
	repo     Repository
	router   routing.Provider
	origin   routing.Coordinate
	policy   delivery.PolicyConfig
	notifier notify.Notifier
	logger   zerolog.Logger
}

// NewService creates a new order service.
func NewService(cfg ServiceConfig) *Service {
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.Nop
	}
	return &Service{
		repo:     cfg.Repo,
		router:   cfg.Router,
		origin:   cfg.Origin,
		policy:   cfg.Policy,
		notifier: notifier,
		logger:   cfg.Logger,
	}
}

// Checkout validates the input, quotes delivery from a freshly resolved route,
// stores the order and notifies the restaurant. A failed notification is
// logged; the order stays stored.
func (s *Service) Checkout(ctx context.Context, in CheckoutInput) (*Order, error) {
	in.Customer.Phone = phoneNoise.ReplaceAllString(in.Customer.Phone, "")
	in.Customer.Name = strings.TrimSpace(in.Customer.Name)
	in.Customer.Address = strings.TrimSpace(in.Customer.Address)

	if fieldErrors := validateCheckout(in); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	var itemsCents int64
	for _, item := range in.Items {
		itemsCents += item.PriceCents * int64(item.Quantity)
	}

	route, err := s.router.Route(ctx, s.origin, *in.Destination)
	if err != nil {
		return nil, err
	}
	travel := route.TravelMinutes()

	quote, err := delivery.QuoteFor(route.DistanceKm(), itemsCents, &travel, s.policy)
	if err != nil {
		return nil, err
	}
	if !quote.Allowed {
		s.logger.Info().
			Str("reason_code", string(*quote.Reason)).
			Float64("distance_km", quote.DistanceKm).
			Int64("cart_total_cents", itemsCents).
			Msg("checkout refused by delivery policy")
		return nil, &DeliveryDeniedError{Reason: *quote.Reason, Quote: quote}
	}

	totals, err := delivery.Totals(itemsCents, quote)
	if err != nil {
		return nil, err
	}

	o := &Order{
		ID:            "ord_" + uuid.New().String(),
		Items:         in.Items,
		Customer:      in.Customer,
		Destination:   *in.Destination,
		DistanceKm:    quote.DistanceKm,
		TotalMinutes:  *quote.TotalMinutes,
		ItemsCents:    totals.ItemsCents,
		DeliveryCents: totals.DeliveryCents,
		TotalCents:    totals.GrandTotalCents,
		FreeDelivery:  quote.IsFree,
		Status:        StatusPending,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", o.ID).
		Int("items", len(o.Items)).
		Int64("total_cents", o.TotalCents).
		Float64("distance_km", o.DistanceKm).
		Msg("order created")

	if err := s.notifier.NotifyOrder(ctx, EventFor(o)); err != nil {
		s.logger.Error().Err(err).Str("order_id", o.ID).Msg("order notification failed")
	}

	return o, nil
}

// Get retrieves an order by ID.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.repo.Get(ctx, id)
}

// EventFor builds the notification payload for o.
func EventFor(o *Order) notify.OrderEvent {
	items := make([]notify.EventItem, len(o.Items))
	for i, item := range o.Items {
		items[i] = notify.EventItem{Title: item.Title, PriceCents: item.PriceCents, Quantity: item.Quantity}
	}
	return notify.OrderEvent{
		OrderID:   o.ID,
		CreatedAt: o.CreatedAt,
		Customer: notify.Customer{
			Name:    o.Customer.Name,
			Phone:   o.Customer.Phone,
			Address: o.Customer.Address,
			Comment: o.Customer.Comment,
		},
		Items:          items,
		ItemsCents:     o.ItemsCents,
		DeliveryCents:  o.DeliveryCents,
		TotalCents:     o.TotalCents,
		DistanceKm:     o.DistanceKm,
		TotalMinutes:   o.TotalMinutes,
		IsFreeDelivery: o.FreeDelivery,
	}
}

func validateCheckout(in CheckoutInput) []FieldError {
	var errs []FieldError

	switch {
	case len(in.Items) == 0:
		errs = append(errs, FieldError{Field: "items", Message: "cart is empty"})
	case len(in.Items) > MaxItems:
		errs = append(errs, FieldError{Field: "items", Message: "too many items"})
	}
	for _, item := range in.Items {
		if item.Quantity < 1 {
			errs = append(errs, FieldError{Field: "items.quantity", Message: "must be at least 1"})
			break
		}
		if item.Quantity > MaxQuantity {
			errs = append(errs, FieldError{Field: "items.quantity", Message: "must be at most 99"})
			break
		}
		if item.PriceCents < 0 {
			errs = append(errs, FieldError{Field: "items.priceCents", Message: "must not be negative"})
			break
		}
		if item.PriceCents > MaxPriceCents {
			errs = append(errs, FieldError{Field: "items.priceCents", Message: "is too large"})
			break
		}
		if strings.TrimSpace(item.Title) == "" {
			errs = append(errs, FieldError{Field: "items.title", Message: "is required"})
			break
		}
	}

	c := in.Customer
	switch {
	case c.Name == "":
		errs = append(errs, FieldError{Field: "customer.name", Message: "is required"})
	case utf8.RuneCountInString(c.Name) > MaxNameLength:
		errs = append(errs, FieldError{Field: "customer.name", Message: "is too long"})
	}
	switch {
	case c.Address == "":
		errs = append(errs, FieldError{Field: "customer.address", Message: "is required"})
	case utf8.RuneCountInString(c.Address) > MaxAddressLength:
		errs = append(errs, FieldError{Field: "customer.address", Message: "is too long"})
	}
	switch {
	case c.Phone == "":
		errs = append(errs, FieldError{Field: "customer.phone", Message: "is required"})
	case !phonePattern.MatchString(c.Phone) || len(strings.TrimPrefix(c.Phone, "+")) < MinPhoneDigits:
		errs = append(errs, FieldError{Field: "customer.phone", Message: "must contain at least 9 digits"})
	}
	if c.Comment != nil && utf8.RuneCountInString(*c.Comment) > MaxCommentLength {
		errs = append(errs, FieldError{Field: "customer.comment", Message: "is too long"})
	}

	switch {
	case in.Destination == nil:
		errs = append(errs, FieldError{Field: "destination", Message: "is required"})
	case !in.Destination.Valid():
		errs = append(errs, FieldError{Field: "destination", Message: "invalid coordinates"})
	}

	return errs
}
