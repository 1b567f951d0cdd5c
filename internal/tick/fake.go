package tick

import "context"

// Fake is a Source that ticks immediately, so tests can drive N ticks
// without real time passing.
type Fake struct {
	// Ticks counts completed Await calls.
	Ticks int

	// OnTick, if set, runs inside Await just before it returns for tick n
	// (1-based). Tests use it to inject input events between ticks.
	OnTick func(n int)

	// Err, if set, is returned by Await instead of ticking.
	Err error
}

// Await returns at once, counting the tick.
func (f *Fake) Await(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.Err != nil {
		return f.Err
	}
	f.Ticks++
	if f.OnTick != nil {
		f.OnTick(f.Ticks)
	}
	return nil
}
