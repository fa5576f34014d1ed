package animator

import (
	"slices"

	"github.com/wokexpress/storefront/internal/routing"
)

// RevealSink receives each partial path of a reveal. Every emission is a
// prefix of the route path with at least two points; the last one is the
// whole path.
type RevealSink func(partial []routing.Coordinate)

// StartReveal draws path progressively, one point per reveal interval.
// Invalid points are skipped up front. A path with fewer than two valid
// points emits nothing. Any reveal already in flight is cancelled first.
func (a *Animator) StartReveal(path []routing.Coordinate, sink RevealSink) CancelFunc {
	a.startMu.Lock()
	defer a.startMu.Unlock()

	a.mu.Lock()
	prev := a.reveal
	a.reveal = nil
	a.mu.Unlock()
	prev.cancelAndWait()

	clean := Sanitize(path)

	a.mu.Lock()
	a.state.FullPath = clean
	a.state.RevealedCount = 0
	a.state.RevealPhase = PhaseIdle
	if len(clean) < 2 {
		a.mu.Unlock()
		return func() {}
	}
	r := newRun()
	a.reveal = r
	a.state.RevealPhase = PhaseRevealingLine
	a.mu.Unlock()

	if dropped := len(path) - len(clean); dropped > 0 {
		a.cfg.Logger.Warn().Int("dropped_points", dropped).Msg("skipped invalid route points")
	}

	ticker := a.cfg.NewTicker(a.cfg.RevealInterval)
	go a.runReveal(r, ticker, clean, sink)
	return a.cancelFunc(r, &a.reveal, func(s *State) { s.RevealPhase = PhaseIdle })
}

func (a *Animator) runReveal(r *run, t Ticker, path []routing.Coordinate, sink RevealSink) {
	defer close(r.done)
	defer t.Stop()

	for revealed := 2; revealed <= len(path); revealed++ {
		if !r.wait(t) {
			return
		}
		last := revealed == len(path)
		partial := slices.Clone(path[:revealed])

		ok := r.step(func() {
			a.mu.Lock()
			a.state.RevealedCount = revealed
			if last {
				a.state.RevealPhase = PhaseIdle
				if a.reveal == r {
					a.reveal = nil
				}
			}
			a.mu.Unlock()

			sink(partial)
		})
		if !ok {
			return
		}
	}
}
