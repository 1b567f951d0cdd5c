//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealButtons watches the setpoint buttons on a Linux GPIO character device.
type RealButtons struct {
	chip  *gpiocdev.Chip
	lines []*gpiocdev.Line
}

// WatchButtons requests the button lines as pulled-up inputs with
// falling-edge detection and installs the handlers. When decPin is negative
// or equal to incPin the board has a single button and only the increase
// handler is installed.
func WatchButtons(chipName string, incPin, decPin int, h Handlers) (*RealButtons, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	b := &RealButtons{chip: chip}

	inc, err := requestButton(chip, incPin, h.Increase)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("request increase pin %d: %w", incPin, err)
	}
	b.lines = append(b.lines, inc)

	if decPin >= 0 && decPin != incPin {
		dec, err := requestButton(chip, decPin, h.Decrease)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("request decrease pin %d: %w", decPin, err)
		}
		b.lines = append(b.lines, dec)
	}

	return b, nil
}

func requestButton(chip *gpiocdev.Chip, pin int, fn func()) (*gpiocdev.Line, error) {
	if fn == nil {
		fn = func() {}
	}
	return chip.RequestLine(pin,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) { fn() }),
	)
}

// Close releases the button lines and the chip.
func (b *RealButtons) Close() error {
	var errs []error

	for _, l := range b.lines {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close button line: %w", err))
		}
	}
	b.lines = nil
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		b.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealLED drives the heater indicator line.
type RealLED struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealLED requests pin as an output driven to initial.
func NewRealLED(chipName string, pin int, activeLow, initial bool) (*RealLED, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(level(initial))}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	line, err := chip.RequestLine(pin, opts...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request LED pin %d: %w", pin, err)
	}

	return &RealLED{chip: chip, line: line}, nil
}

// Set drives the line.
func (l *RealLED) Set(on bool) error {
	if err := l.line.SetValue(level(on)); err != nil {
		return fmt.Errorf("set LED: %w", err)
	}
	return nil
}

// Close drives the line off, then reconfigures it to input with pull-down
// (matching Pi boot defaults) before releasing it.
func (l *RealLED) Close() error {
	var errs []error

	if l.line != nil {
		if err := l.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("drive LED off: %w", err))
		}
		if err := l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure LED pin: %w", err))
		}
		if err := l.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close LED pin: %w", err))
		}
		l.line = nil
	}
	if l.chip != nil {
		if err := l.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		l.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func level(on bool) int {
	if on {
		return 1
	}
	return 0
}
