package order

import "context"

// Repository defines the interface for order persistence.
type Repository interface {
	// Get retrieves an order with its items.
	// Returns ErrOrderNotFound if the order doesn't exist.
	Get(ctx context.Context, id string) (*Order, error)

	// Create stores a new order and its items atomically.
	Create(ctx context.Context, order *Order) error
}
