//go:build linux

package i2cbus

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ioctl numbers and flags from <linux/i2c-dev.h> and <linux/i2c.h>.
const (
	ioctlRDWR = 0x0707
	flagRead  = 0x0001
)

// i2cMsg mirrors struct i2c_msg.
type i2cMsg struct {
	addr  uint16
	flags uint16
	len   uint16
	_     uint16
	buf   uintptr
}

// rdwrData mirrors struct i2c_rdwr_ioctl_data.
type rdwrData struct {
	msgs  uintptr
	nmsgs uint32
}

// Dev is an I2C bus backed by /dev/i2c-N.
type Dev struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// Open opens an i2c-dev bus such as "/dev/i2c-1".
func Open(path string) (*Dev, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %s: %w", path, err)
	}
	return &Dev{f: f, path: path}, nil
}

// Tx writes w then reads len(r) bytes from addr as one combined
// transaction with a repeated start. Either buffer may be empty.
func (d *Dev) Tx(addr uint16, w, r []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.f == nil {
		return ErrClosed
	}

	msgs := make([]i2cMsg, 0, 2)
	if len(w) > 0 {
		msgs = append(msgs, i2cMsg{
			addr: addr,
			len:  uint16(len(w)),
			buf:  uintptr(unsafe.Pointer(&w[0])),
		})
	}
	if len(r) > 0 {
		msgs = append(msgs, i2cMsg{
			addr:  addr,
			flags: flagRead,
			len:   uint16(len(r)),
			buf:   uintptr(unsafe.Pointer(&r[0])),
		})
	}
	if len(msgs) == 0 {
		return nil
	}

	data := rdwrData{
		msgs:  uintptr(unsafe.Pointer(&msgs[0])),
		nmsgs: uint32(len(msgs)),
	}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), ioctlRDWR, uintptr(unsafe.Pointer(&data)))
	runtime.KeepAlive(w)
	runtime.KeepAlive(r)
	runtime.KeepAlive(msgs)

	switch errno {
	case 0:
		return nil
	case unix.ENXIO, unix.EREMOTEIO:
		return fmt.Errorf("%w: 0x%02x on %s", ErrNACK, addr, d.path)
	default:
		return fmt.Errorf("i2c transfer 0x%02x on %s: %w", addr, d.path, errno)
	}
}

// Close releases the bus device.
func (d *Dev) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	if err != nil {
		return fmt.Errorf("close i2c bus %s: %w", d.path, err)
	}
	return nil
}
