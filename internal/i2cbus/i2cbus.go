// Package i2cbus provides I2C buses that satisfy tinygo.org/x/drivers.I2C.
// The real implementation uses the Linux i2c-dev character device.
// The fake implementation allows testing without hardware.
package i2cbus

import (
	"errors"

	"tinygo.org/x/drivers"
)

var (
	// ErrClosed is returned by Tx after Close.
	ErrClosed = errors.New("i2cbus: bus closed")

	// ErrNACK is returned when no device acknowledges the address.
	ErrNACK = errors.New("i2cbus: address not acknowledged")
)

// Bus is a drivers.I2C that owns an OS resource.
type Bus interface {
	drivers.I2C
	Close() error
}
