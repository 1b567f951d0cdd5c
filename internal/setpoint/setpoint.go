// Package setpoint carries setpoint adjustment requests from asynchronous
// producers (button edges, MQTT commands, HTTP posts) to the setpoint task.
//
// Each direction is a single pending cell. Producers only ever set a cell;
// the setpoint task is the only consumer and takes-and-clears it. Any number
// of same-direction requests between two drains collapse into one step.
package setpoint

import "sync/atomic"

// Cell is a single-word pending flag. Set never blocks.
type Cell struct {
	pending atomic.Bool
}

// Set marks the cell pending.
func (c *Cell) Set() {
	c.pending.Store(true)
}

// Take reports whether the cell was pending and clears it in the same step.
// A Set racing with Take is either observed now or left for the next Take.
func (c *Cell) Take() bool {
	return c.pending.Swap(false)
}

// Pending peeks at the cell without clearing it.
func (c *Cell) Pending() bool {
	return c.pending.Load()
}

// Request is a point-in-time view of both cells.
type Request struct {
	IncreasePending bool
	DecreasePending bool
}

// Channel holds the increase and decrease cells.
type Channel struct {
	increase Cell
	decrease Cell
}

// RequestIncrease is safe to call from any goroutine, including edge
// handlers.
func (ch *Channel) RequestIncrease() {
	ch.increase.Set()
}

// RequestDecrease is safe to call from any goroutine, including edge
// handlers.
func (ch *Channel) RequestDecrease() {
	ch.decrease.Set()
}

// Drain applies pending requests to value: +1 if an increase was pending,
// -1 if a decrease was pending. Both may apply in one drain. No bounds are
// enforced on the result.
func (ch *Channel) Drain(value int) int {
	if ch.increase.Take() {
		value++
	}
	if ch.decrease.Take() {
		value--
	}
	return value
}

// Pending returns the cells' current state without consuming them.
func (ch *Channel) Pending() Request {
	return Request{
		IncreasePending: ch.increase.Pending(),
		DecreasePending: ch.decrease.Pending(),
	}
}
