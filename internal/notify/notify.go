// Package notify tells the restaurant about new orders.
package notify

import (
	"context"
	"errors"
	"time"
)

// OrderEvent is the payload published for every accepted order.
type OrderEvent struct {
	OrderID        string      `json:"orderId"`
	CreatedAt      time.Time   `json:"createdAt"`
	Customer       Customer    `json:"customer"`
	Items          []EventItem `json:"items"`
	ItemsCents     int64       `json:"itemsCents"`
	DeliveryCents  int64       `json:"deliveryCents"`
	TotalCents     int64       `json:"totalCents"`
	DistanceKm     float64     `json:"distanceKm"`
	TotalMinutes   int         `json:"totalMinutes"`
	IsFreeDelivery bool        `json:"isFreeDelivery"`
}

// Customer identifies who ordered and where to deliver.
type Customer struct {
	Name    string  `json:"name"`
	Phone   string  `json:"phone"`
	Address string  `json:"address"`
	Comment *string `json:"comment,omitempty"`
}

// EventItem is one order line.
type EventItem struct {
	Title      string `json:"title"`
	PriceCents int64  `json:"priceCents"`
	Quantity   int    `json:"quantity"`
}

// Validate reports whether the event carries enough to act on.
func (e OrderEvent) Validate() error {
	var errs []error
	if e.OrderID == "" {
		errs = append(errs, errors.New("orderId is required"))
	}
	if len(e.Items) == 0 {
		errs = append(errs, errors.New("items are required"))
	}
	if e.Customer.Phone == "" {
		errs = append(errs, errors.New("customer phone is required"))
	}
	return errors.Join(errs...)
}

// Notifier delivers order events.
type Notifier interface {
	NotifyOrder(ctx context.Context, event OrderEvent) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, event OrderEvent) error

// NotifyOrder calls f.
func (f NotifierFunc) NotifyOrder(ctx context.Context, event OrderEvent) error {
	return f(ctx, event)
}

// Nop discards events.
var Nop Notifier = NotifierFunc(func(context.Context, OrderEvent) error { return nil })
