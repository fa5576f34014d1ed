package order

import (
	"context"
	"slices"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// It backs tests and local runs without a database.
type InMemoryRepository struct {
	mu     sync.RWMutex
	orders map[string]*Order
}

// NewInMemoryRepository creates a new in-memory order repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		orders: make(map[string]*Order),
	}
}

// Get retrieves an order by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return clone(o), nil
}

// Create stores a new order.
func (r *InMemoryRepository) Create(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.orders[o.ID] = clone(o)
	return nil
}

// Count returns the number of stored orders.
func (r *InMemoryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orders)
}

func clone(o *Order) *Order {
	cpy := *o
	cpy.Items = slices.Clone(o.Items)
	return &cpy
}

var _ Repository = (*InMemoryRepository)(nil)
