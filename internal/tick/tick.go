// Package tick provides the control loop's only timing primitive: a source
// that blocks until the next base-period tick.
package tick

import (
	"context"
	"time"
)

// Source delivers periodic ticks.
type Source interface {
	// Await blocks until the next tick or until ctx is done.
	// A tick that fired before Await was called is discarded.
	Await(ctx context.Context) error
}

// Chan adapts a tick channel (such as time.Ticker.C) to a Source.
type Chan <-chan time.Time

// Await clears any tick left over from a previous period, then waits for a
// fresh one.
func (c Chan) Await(ctx context.Context) error {
	select {
	case <-c:
	default:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case _, ok := <-c:
		if !ok {
			return ErrStopped
		}
		return nil
	}
}
