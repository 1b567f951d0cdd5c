package tick

import (
	"errors"
	"time"
)

// ErrStopped is returned by Await once the underlying channel is closed.
var ErrStopped = errors.New("tick: source stopped")

// Ticker is a continuously re-arming periodic timer. Tick boundaries are
// measured from Start, not from when the consumer wakes up, and ticks the
// consumer was too slow to observe are dropped rather than replayed.
type Ticker struct {
	Chan
	period time.Duration
	t      *time.Ticker
}

// Start arms a ticker with the given base period.
func Start(period time.Duration) *Ticker {
	t := time.NewTicker(period)
	return &Ticker{Chan: Chan(t.C), period: period, t: t}
}

// Period returns the base period.
func (t *Ticker) Period() time.Duration {
	return t.period
}

// Stop disarms the timer. A blocked Await keeps waiting until its context ends.
func (t *Ticker) Stop() {
	t.t.Stop()
}
