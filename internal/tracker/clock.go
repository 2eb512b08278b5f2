package tracker

import "time"

// Clock creates the tick source that drives elapsed time.
type Clock interface {
	NewTicker(d time.Duration) Ticker
}

// Ticker is the subset of *time.Ticker the tracker uses.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// SystemClock ticks on wall-clock time.
type SystemClock struct{}

// NewTicker implements Clock.
func (SystemClock) NewTicker(d time.Duration) Ticker {
	return &systemTicker{t: time.NewTicker(d)}
}

type systemTicker struct {
	t *time.Ticker
}

func (s *systemTicker) C() <-chan time.Time { return s.t.C }
func (s *systemTicker) Stop()               { s.t.Stop() }
