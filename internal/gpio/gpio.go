// Package gpio provides the setpoint buttons and the heater output line
// with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Handlers are called from the edge-event goroutine on a falling edge.
// They must not block or perform I/O.
type Handlers struct {
	Increase func()
	Decrease func()
}

// Buttons is a set of watched inputs.
type Buttons interface {
	// Close stops edge detection and releases the lines.
	Close() error
}

// Output drives a binary actuator line.
type Output interface {
	// Set drives the line to its active level when on is true.
	Set(on bool) error

	// Close releases the line.
	Close() error
}

// Default line offsets on gpiochip0 (BCM numbering).
const (
	DefaultPinIncrease = 17
	DefaultPinDecrease = 27
	DefaultPinLED      = 22
)
