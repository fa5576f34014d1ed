package animator

import "time"

// Ticker delivers animation ticks. It mirrors time.Ticker so tests can drive
// an animation step by step.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a Ticker firing every d.
type TickerFactory func(d time.Duration) Ticker

type realTicker struct {
	t *time.Ticker
}

// NewRealTicker wraps time.NewTicker.
func NewRealTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }

func (r *realTicker) Stop() { r.t.Stop() }
