package gpio

import "sync"

// FakeButtons is a test double that fires the handlers on demand, the way
// an edge interrupt would.
type FakeButtons struct {
	handlers Handlers

	// Single mirrors a one-button board: decrease presses are ignored.
	Single bool

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeButtons creates FakeButtons wired to h.
func NewFakeButtons(h Handlers) *FakeButtons {
	return &FakeButtons{handlers: h}
}

// PressIncrease simulates a falling edge on the increase input.
func (f *FakeButtons) PressIncrease() {
	if f.Closed || f.handlers.Increase == nil {
		return
	}
	f.handlers.Increase()
}

// PressDecrease simulates a falling edge on the decrease input.
func (f *FakeButtons) PressDecrease() {
	if f.Closed || f.Single || f.handlers.Decrease == nil {
		return
	}
	f.handlers.Decrease()
}

// Close stops delivering presses.
func (f *FakeButtons) Close() error {
	f.Closed = true
	return nil
}

// FakeLED records every level written to it.
type FakeLED struct {
	mu sync.Mutex

	// Values contains every level passed to Set, in order.
	Values []bool

	// SetError, if set, will be returned by Set (the value is still recorded).
	SetError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeLED creates a FakeLED.
func NewFakeLED() *FakeLED {
	return &FakeLED{}
}

// Set records the level.
func (f *FakeLED) Set(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Values = append(f.Values, on)
	return f.SetError
}

// On reports the last level written; false before any write.
func (f *FakeLED) On() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Values) == 0 {
		return false
	}
	return f.Values[len(f.Values)-1]
}

// Close marks the line as closed.
func (f *FakeLED) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}
