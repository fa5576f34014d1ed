package animator

import (
	"errors"
	"sync"

	"github.com/wokexpress/storefront/internal/routing"
)

// ErrNoRoute is returned by PlayCourier when no route is attached.
var ErrNoRoute = errors.New("no route attached")

// ErrDetached is returned once a MapView has been detached.
var ErrDetached = errors.New("map view detached")

// Renderer draws animator output. Implementations must not call back into the
// owning MapView synchronously.
type Renderer interface {
	FitBounds(box BoundingBox)
	RenderRoute(partial []routing.Coordinate)
	FlyTo(target routing.Coordinate)
	RenderCourier(frame CourierFrame)
	ShowDelivered()
}

// MapView owns the animation state of one map. Renderers are looked up on
// every tick, so SetRenderer takes effect immediately without restarting an
// animation.
type MapView struct {
	animator *Animator

	// opMu serialises attach, play and detach. Sinks never take it.
	opMu sync.Mutex

	mu       sync.RWMutex
	renderer Renderer
	route    *routing.Route
	detached bool
}

// NewMapView creates a MapView that draws through r.
func NewMapView(cfg Config, r Renderer) *MapView {
	return &MapView{animator: New(cfg), renderer: r}
}

// SetRenderer swaps the renderer used by subsequent ticks.
func (v *MapView) SetRenderer(r Renderer) {
	v.mu.Lock()
	v.renderer = r
	v.mu.Unlock()
}

// AttachRoute replaces the current route and starts its reveal. A running
// courier playback belongs to the old route and is stopped.
func (v *MapView) AttachRoute(route *routing.Route) error {
	v.opMu.Lock()
	defer v.opMu.Unlock()

	v.mu.Lock()
	if v.detached {
		v.mu.Unlock()
		return ErrDetached
	}
	v.route = route
	v.mu.Unlock()

	v.animator.Stop()

	path := Sanitize(route.Path)
	if box, ok := Bounds(path); ok {
		if r := v.current(); r != nil {
			r.FitBounds(box)
		}
	}
	v.animator.StartReveal(path, v.renderRoute)
	return nil
}

// PlayCourier starts (or restarts) courier playback on the attached route.
func (v *MapView) PlayCourier() error {
	v.opMu.Lock()
	defer v.opMu.Unlock()

	v.mu.RLock()
	detached, route := v.detached, v.route
	v.mu.RUnlock()

	if detached {
		return ErrDetached
	}
	if route == nil {
		return ErrNoRoute
	}
	v.animator.PlayCourier(route.Path, courierSink{v})
	return nil
}

// Detach stops all animation and drops the route. Later calls return ErrDetached.
func (v *MapView) Detach() {
	v.opMu.Lock()
	defer v.opMu.Unlock()

	v.mu.Lock()
	v.detached = true
	v.route = nil
	v.mu.Unlock()

	v.animator.Stop()
}

// State returns the current animation state.
func (v *MapView) State() State {
	return v.animator.State()
}

func (v *MapView) current() Renderer {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.detached {
		return nil
	}
	return v.renderer
}

func (v *MapView) renderRoute(partial []routing.Coordinate) {
	if r := v.current(); r != nil {
		r.RenderRoute(partial)
	}
}

// courierSink forwards playback events to whichever renderer is current.
type courierSink struct {
	v *MapView
}

func (s courierSink) FlyTo(target routing.Coordinate) {
	if r := s.v.current(); r != nil {
		r.FlyTo(target)
	}
}

func (s courierSink) CourierFrame(frame CourierFrame) {
	if r := s.v.current(); r != nil {
		r.RenderCourier(frame)
	}
}

func (s courierSink) Delivered() {
	if r := s.v.current(); r != nil {
		r.ShowDelivered()
	}
}
