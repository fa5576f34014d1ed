package routing

import (
	"context"
	"sync"
)

// Resolver serialises route lookups for one interactive session (a map where
// the customer clicks, drags a pin or types addresses). Each call supersedes
// the previous one: the older call's context is cancelled and, should its
// provider still answer, the result is discarded with ErrSuperseded.
type Resolver struct {
	provider Provider

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// NewResolver creates a Resolver backed by provider.
func NewResolver(provider Provider) *Resolver {
	return &Resolver{provider: provider}
}

// Resolve fetches a route, cancelling any lookup still in flight.
func (r *Resolver) Resolve(ctx context.Context, origin, destination Coordinate) (*Route, error) {
	return r.Begin(ctx).Route(origin, destination)
}

// Lookup is one route request issued through a Resolver.
type Lookup struct {
	r      *Resolver
	id     uint64
	ctx    context.Context
	cancel context.CancelFunc
}

// Begin cancels any lookup in flight and reserves the next one. Lookups are
// ordered by Begin, not by when their provider answers.
func (r *Resolver) Begin(ctx context.Context) *Lookup {
	ctx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
	r.seq++
	r.cancel = cancel
	return &Lookup{r: r, id: r.seq, ctx: ctx, cancel: cancel}
}

// Route asks the provider for the route. It returns ErrSuperseded when a
// newer lookup began before the provider answered.
func (l *Lookup) Route(origin, destination Coordinate) (*Route, error) {
	defer l.cancel()

	route, err := l.r.provider.Route(l.ctx, origin, destination)

	l.r.mu.Lock()
	latest := l.r.seq == l.id
	if latest {
		l.r.cancel = nil
	}
	l.r.mu.Unlock()

	if !latest {
		return nil, ErrSuperseded
	}
	return route, err
}

// Latest reports whether no newer lookup has begun since l.
func (l *Lookup) Latest() bool {
	l.r.mu.Lock()
	defer l.r.mu.Unlock()
	return l.r.seq == l.id
}

// Cancel aborts the in-flight lookup, if any. Its caller receives ErrSuperseded.
func (r *Resolver) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.seq++
}
