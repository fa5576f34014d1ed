// Package animator turns a route's path into two timed effects for a live map:
// a progressive reveal of the route line and a fixed-duration courier playback.
//
// Each effect owns at most one ticker at a time. Starting an effect again
// cancels the previous run before the new one begins, and once a cancel
// function returns no further sink call for that run will start.
package animator

import (
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/wokexpress/storefront/internal/routing"
)

// Default timings.
const (
	DefaultRevealInterval    = 25 * time.Millisecond
	DefaultCourierDuration   = 10 * time.Second
	DefaultCameraFollowEvery = 3
)

// Phase is the lifecycle position of one effect.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRevealingLine
	PhaseFlyingToDestination
	PhasePlayingCourier
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRevealingLine:
		return "revealing_line"
	case PhaseFlyingToDestination:
		return "flying_to_destination"
	case PhasePlayingCourier:
		return "playing_courier"
	case PhaseCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// State is a snapshot of the animator. The reveal and courier effects are
// independent, so each keeps its own phase.
type State struct {
	FullPath      []routing.Coordinate
	RevealedCount int
	CourierIndex  int
	RevealPhase   Phase
	CourierPhase  Phase
}

// CancelFunc stops an effect. It is safe to call more than once and from any
// goroutine except from inside a sink callback of the same run.
type CancelFunc func()

// Config configures an Animator. Zero values select the defaults.
type Config struct {
	RevealInterval    time.Duration
	CourierDuration   time.Duration
	CameraFollowEvery int
	NewTicker         TickerFactory
	Logger            zerolog.Logger
}

// Animator drives the reveal and courier effects for one map view.
type Animator struct {
	cfg Config

	// startMu serialises Start/Play/Stop so a replaced run is always cancelled.
	startMu sync.Mutex

	mu      sync.Mutex
	state   State
	reveal  *run
	courier *run
}

// New creates an Animator.
func New(cfg Config) *Animator {
	if cfg.RevealInterval <= 0 {
		cfg.RevealInterval = DefaultRevealInterval
	}
	if cfg.CourierDuration <= 0 {
		cfg.CourierDuration = DefaultCourierDuration
	}
	if cfg.CameraFollowEvery <= 0 {
		cfg.CameraFollowEvery = DefaultCameraFollowEvery
	}
	if cfg.NewTicker == nil {
		cfg.NewTicker = NewRealTicker
	}
	return &Animator{cfg: cfg}
}

// State returns a copy of the current animation state.
func (a *Animator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.state
	s.FullPath = slices.Clone(a.state.FullPath)
	return s
}

// Stop cancels both effects and waits for their tickers to be released.
func (a *Animator) Stop() {
	a.startMu.Lock()
	defer a.startMu.Unlock()

	a.mu.Lock()
	reveal, courier := a.reveal, a.courier
	a.reveal, a.courier = nil, nil
	a.mu.Unlock()

	reveal.cancelAndWait()
	courier.cancelAndWait()

	a.mu.Lock()
	if a.state.RevealPhase == PhaseRevealingLine {
		a.state.RevealPhase = PhaseIdle
	}
	if a.state.CourierPhase != PhaseCompleted {
		a.state.CourierPhase = PhaseIdle
	}
	a.mu.Unlock()
}

// cancelFunc wraps r for the caller of StartReveal or PlayCourier. Once r has
// finished, the effect goes back to idle unless r already completed or a newer
// run took its slot.
func (a *Animator) cancelFunc(r *run, slot **run, reset func(*State)) CancelFunc {
	return func() {
		r.cancelAndWait()

		a.mu.Lock()
		defer a.mu.Unlock()
		if *slot != r {
			return
		}
		*slot = nil
		reset(&a.state)
	}
}

// run is one cancellable execution of an effect.
type run struct {
	mu        sync.Mutex
	cancelled bool
	stop      chan struct{}
	done      chan struct{}
	once      sync.Once
}

func newRun() *run {
	return &run{stop: make(chan struct{}), done: make(chan struct{})}
}

// cancel marks the run cancelled. It blocks while a sink call is in
// progress, so no new sink call can begin after it returns.
func (r *run) cancel() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.cancelled = true
	r.mu.Unlock()
	r.once.Do(func() { close(r.stop) })
}

func (r *run) cancelAndWait() {
	if r == nil {
		return
	}
	r.cancel()
	<-r.done
}

// step runs fn unless the run has been cancelled.
func (r *run) step(fn func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelled {
		return false
	}
	fn()
	return true
}

// wait blocks for the next tick. It returns false once the run is stopped.
func (r *run) wait(t Ticker) bool {
	select {
	case <-r.stop:
		return false
	case <-t.C():
		return true
	}
}
