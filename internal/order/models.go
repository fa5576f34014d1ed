// Package order validates and records checkouts.
package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wokexpress/storefront/internal/delivery"
	"github.com/wokexpress/storefront/internal/routing"
)

// Repository errors.
var (
	ErrOrderNotFound = errors.New("order not found")
)

// Status is the lifecycle state of an order.
type Status string

// StatusPending is the state of every newly placed order.
const StatusPending Status = "PENDING"

// Order is a placed order with server-computed totals.
type Order struct {
	ID          string
	Items       []Item
	Customer    Customer
	Destination routing.Coordinate

	DistanceKm    float64
	TotalMinutes  int
	ItemsCents    int64
	DeliveryCents int64
	TotalCents    int64
	FreeDelivery  bool

	Status    Status
	CreatedAt time.Time
}

// Item is one order line. PriceCents is the unit price.
type Item struct {
	MenuItemID string
	Title      string
	PriceCents int64
	Quantity   int
}

// Customer is who receives the order.
type Customer struct {
	Name    string
	Phone   string
	Address string
	Comment *string
}

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// DeliveryDeniedError is returned when the delivery policy refuses an order.
type DeliveryDeniedError struct {
	Reason delivery.ReasonCode
	Quote  delivery.Quote
}

func (e *DeliveryDeniedError) Error() string {
	return fmt.Sprintf("delivery not allowed: %s", e.Reason)
}

func (e *DeliveryDeniedError) Unwrap() error {
	return delivery.ErrDeliveryNotAllowed
}
