// Package sensor reads TMP1xx-family temperature sensors over I2C.
package sensor

import (
	"errors"
	"fmt"
	"io"

	"tinygo.org/x/drivers"
)

// Scale is degrees Celsius per least significant bit of the result register.
const Scale = 0.0078125 // 1/128

// ErrNotFound is returned by Probe when no candidate acknowledges.
var ErrNotFound = errors.New("sensor: temperature sensor not found")

// Candidate is an address/result-register pair tried during autodetection.
type Candidate struct {
	Address  uint16
	Register byte
	ID       string
}

// DefaultCandidates are the sensors the reference boards shipped with,
// in probe order.
var DefaultCandidates = []Candidate{
	{Address: 0x48, Register: 0x00, ID: "11X"},
	{Address: 0x49, Register: 0x00, ID: "116"},
	{Address: 0x41, Register: 0x01, ID: "006"},
}

// Decode converts the two result-register bytes to whole degrees Celsius.
// The raw value is scaled by 1/128 with truncation toward zero; when the
// high byte's MSB is set the result is negative and its upper nibble is
// sign-extended. Readings between -1 and 0 truncate to 0 and are left
// unextended.
func Decode(hi, lo byte) int {
	raw := int16(uint16(hi)<<8 | uint16(lo))
	t := int16(float64(raw) * Scale)
	if hi&0x80 != 0 && t != 0 {
		t |= -0x1000 // 0xF000
	}
	return int(t)
}

// Device is an identified sensor on a bus.
type Device struct {
	bus  drivers.I2C
	cand Candidate
	tx   [1]byte
	rx   [2]byte
}

// New binds a known candidate without probing.
func New(bus drivers.I2C, c Candidate) *Device {
	d := &Device{bus: bus, cand: c}
	d.tx[0] = c.Register
	return d
}

// Probe tries each candidate in order with a register-select write and
// returns the first that acknowledges. Progress is written to out in the
// console's "Is this <id>? Found/No" form; out may be nil.
func Probe(bus drivers.I2C, candidates []Candidate, out io.Writer) (*Device, error) {
	if out == nil {
		out = io.Discard
	}
	for _, c := range candidates {
		fmt.Fprintf(out, "Is this %s? ", c.ID)
		if err := bus.Tx(c.Address, []byte{c.Register}, nil); err != nil {
			fmt.Fprintf(out, "No\n")
			continue
		}
		fmt.Fprintf(out, "Found\n")
		fmt.Fprintf(out, "Detected TMP%s I2C address: %x\n", c.ID, c.Address)
		return New(bus, c), nil
	}
	fmt.Fprintf(out, "Temperature sensor not found, contact professor\n")
	return nil, ErrNotFound
}

// Candidate returns the identified sensor.
func (d *Device) Candidate() Candidate {
	return d.cand
}

// ReadRaw performs one transaction: write the register selector, read two
// bytes.
func (d *Device) ReadRaw() (hi, lo byte, err error) {
	if err := d.bus.Tx(d.cand.Address, d.tx[:], d.rx[:]); err != nil {
		return 0, 0, fmt.Errorf("read TMP%s at 0x%02x: %w", d.cand.ID, d.cand.Address, err)
	}
	return d.rx[0], d.rx[1], nil
}

// ReadTemperature reads and decodes one sample.
func (d *Device) ReadTemperature() (int, error) {
	hi, lo, err := d.ReadRaw()
	if err != nil {
		return 0, err
	}
	return Decode(hi, lo), nil
}
