// Package console is the text channel status records and diagnostics are
// written to: a UART on the device, stdout otherwise.
package console

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"go.bug.st/serial"
)

// DefaultBaudRate matches the reference board's UART.
const DefaultBaudRate = 115200

// Console serialises writes to one underlying writer.
type Console struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	diag   *color.Color
}

// New wraps w. Diagnostics are coloured only when w is a terminal.
func New(w io.Writer) *Console {
	c := &Console{w: w}
	if f, ok := w.(*os.File); ok && (f == os.Stdout || f == os.Stderr) && !color.NoColor {
		c.diag = color.New(color.FgYellow)
	}
	return c
}

// Stdout returns a console on the process's standard output.
func Stdout() *Console {
	return New(os.Stdout)
}

// OpenSerial opens a UART at baud 8N1.
func OpenSerial(port string, baud int) (*Console, error) {
	if baud == 0 {
		baud = DefaultBaudRate
	}
	p, err := serial.Open(port, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", port, err)
	}
	c := New(p)
	c.closer = p
	return c, nil
}

// Write implements io.Writer.
func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w.Write(p)
}

// Printf writes formatted text.
func (c *Console) Printf(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, format, args...)
}

// WriteRecord writes one status record line verbatim.
func (c *Console) WriteRecord(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := io.WriteString(c.w, line)
	return err
}

// Diagnostic writes a fault report line.
func (c *Console) Diagnostic(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.diag != nil {
		c.diag.Fprintf(c.w, format, args...)
		return
	}
	fmt.Fprintf(c.w, format, args...)
}

// Close closes the serial port, if any.
func (c *Console) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}
