package animator

import (
	"slices"
	"time"

	"github.com/wokexpress/storefront/internal/routing"
)

// CourierFrame is one step of a courier playback.
type CourierFrame struct {
	Index     int
	Total     int
	Position  routing.Coordinate
	Traveled  []routing.Coordinate
	Remaining []routing.Coordinate
	// Bearing orients the marker, in degrees (see Bearing).
	Bearing float64
	// FollowCamera asks the view to re-centre smoothly on Position.
	FollowCamera bool
	IsComplete   bool
}

// CourierSink receives courier playback events.
type CourierSink interface {
	// FlyTo moves the camera to the courier start before playback begins.
	FlyTo(target routing.Coordinate)
	CourierFrame(frame CourierFrame)
	// Delivered is called once, right after the final frame.
	Delivered()
}

// PlayCourier moves a courier along path over the configured duration,
// emitting exactly one frame per valid point. Any playback already in flight
// is cancelled first; a new call always restarts from the first point.
// An empty path is a no-op.
func (a *Animator) PlayCourier(path []routing.Coordinate, sink CourierSink) CancelFunc {
	a.startMu.Lock()
	defer a.startMu.Unlock()

	a.mu.Lock()
	prev := a.courier
	a.courier = nil
	a.mu.Unlock()
	prev.cancelAndWait()

	clean := Sanitize(path)

	a.mu.Lock()
	a.state.CourierIndex = 0
	a.state.CourierPhase = PhaseIdle
	if len(clean) == 0 {
		a.mu.Unlock()
		return func() {}
	}
	r := newRun()
	a.courier = r
	a.mu.Unlock()

	step := a.cfg.CourierDuration / time.Duration(len(clean))
	if step <= 0 {
		step = time.Millisecond
	}

	a.cfg.Logger.Debug().
		Int("points", len(clean)).
		Dur("step", step).
		Msg("starting courier playback")

	ticker := a.cfg.NewTicker(step)
	go a.runCourier(r, ticker, clean, sink)
	return a.cancelFunc(r, &a.courier, func(s *State) { s.CourierPhase = PhaseIdle })
}

func (a *Animator) runCourier(r *run, t Ticker, path []routing.Coordinate, sink CourierSink) {
	defer close(r.done)
	defer t.Stop()

	ok := r.step(func() {
		a.mu.Lock()
		a.state.CourierPhase = PhaseFlyingToDestination
		a.mu.Unlock()
		sink.FlyTo(path[0])
	})
	if !ok {
		return
	}

	for i := range path {
		if !r.wait(t) {
			return
		}
		frame := a.frameAt(path, i)

		ok := r.step(func() {
			a.mu.Lock()
			a.state.CourierIndex = i
			a.state.CourierPhase = PhasePlayingCourier
			if frame.IsComplete {
				a.state.CourierPhase = PhaseCompleted
				if a.courier == r {
					a.courier = nil
				}
			}
			a.mu.Unlock()

			sink.CourierFrame(frame)
			if frame.IsComplete {
				sink.Delivered()
			}
		})
		if !ok {
			return
		}
	}
}

func (a *Animator) frameAt(path []routing.Coordinate, i int) CourierFrame {
	var bearing float64
	switch {
	case i > 0:
		bearing = Bearing(path[i-1], path[i])
	case len(path) > 1:
		bearing = Bearing(path[0], path[1])
	}

	return CourierFrame{
		Index:        i,
		Total:        len(path),
		Position:     path[i],
		Traveled:     slices.Clone(path[:i+1]),
		Remaining:    slices.Clone(path[i:]),
		Bearing:      bearing,
		FollowCamera: i%a.cfg.CameraFollowEvery == 0,
		IsComplete:   i == len(path)-1,
	}
}
