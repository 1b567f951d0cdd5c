package i2cbus

import (
	"fmt"
	"sync"
)

// Response is one scripted answer to a read transaction.
type Response struct {
	Data []byte
	Err  error
}

// Transfer records one Tx call.
type Transfer struct {
	Addr  uint16
	Write []byte
	Read  int
}

// FakeBus is a test double that answers reads from a script.
type FakeBus struct {
	mu sync.Mutex

	// Present lists addresses that acknowledge. Tx to any other address
	// fails with ErrNACK.
	Present map[uint16]bool

	// Script contains responses for transactions that read. Each read
	// consumes the next response; once exhausted the last one repeats.
	Script []Response

	// Transfers records every Tx call in order.
	Transfers []Transfer

	// Closed tracks if Close was called.
	Closed bool

	index int
}

// NewFakeBus creates a FakeBus with devices at the given addresses.
func NewFakeBus(addrs ...uint16) *FakeBus {
	present := make(map[uint16]bool, len(addrs))
	for _, a := range addrs {
		present[a] = true
	}
	return &FakeBus{Present: present}
}

// Tx records the transfer and serves the next scripted response.
func (f *FakeBus) Tx(addr uint16, w, r []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Closed {
		return ErrClosed
	}

	f.Transfers = append(f.Transfers, Transfer{
		Addr:  addr,
		Write: append([]byte(nil), w...),
		Read:  len(r),
	})

	if !f.Present[addr] {
		return fmt.Errorf("%w: 0x%02x", ErrNACK, addr)
	}
	if len(r) == 0 {
		return nil
	}
	if len(f.Script) == 0 {
		return fmt.Errorf("i2cbus: no response scripted for 0x%02x", addr)
	}

	resp := f.Script[f.index]
	if f.index < len(f.Script)-1 {
		f.index++
	}
	if resp.Err != nil {
		return resp.Err
	}
	copy(r, resp.Data)
	return nil
}

// Close marks the bus as closed.
func (f *FakeBus) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Reads returns the number of transactions that requested data.
func (f *FakeBus) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.Transfers {
		if t.Read > 0 {
			n++
		}
	}
	return n
}
