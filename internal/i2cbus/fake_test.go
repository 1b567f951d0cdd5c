package i2cbus

import (
	"errors"
	"testing"

	"tinygo.org/x/drivers"
)

var _ drivers.I2C = (*FakeBus)(nil)
var _ Bus = (*FakeBus)(nil)

func TestFakeBusScript(t *testing.T) {
	f := NewFakeBus(0x48)
	f.Script = []Response{
		{Data: []byte{0x0c, 0x80}},
		{Err: errors.New("arbitration lost")},
		{Data: []byte{0x0b, 0x00}},
	}

	buf := make([]byte, 2)
	if err := f.Tx(0x48, []byte{0x00}, buf); err != nil {
		t.Fatalf("read 0: unexpected error: %v", err)
	}
	if buf[0] != 0x0c || buf[1] != 0x80 {
		t.Errorf("read 0: got % x", buf)
	}

	if err := f.Tx(0x48, []byte{0x00}, buf); err == nil {
		t.Error("read 1: expected scripted error")
	}

	if err := f.Tx(0x48, []byte{0x00}, buf); err != nil {
		t.Fatalf("read 2: unexpected error: %v", err)
	}
	// Exhausted script repeats the last response.
	if err := f.Tx(0x48, []byte{0x00}, buf); err != nil {
		t.Fatalf("read 3: unexpected error: %v", err)
	}
	if buf[0] != 0x0b || buf[1] != 0x00 {
		t.Errorf("read 3: got % x", buf)
	}

	if f.Reads() != 4 {
		t.Errorf("expected 4 reads, got %d", f.Reads())
	}
}

func TestFakeBusNACK(t *testing.T) {
	f := NewFakeBus(0x48)

	err := f.Tx(0x49, []byte{0x00}, nil)
	if !errors.Is(err, ErrNACK) {
		t.Errorf("expected ErrNACK, got %v", err)
	}
	if err := f.Tx(0x48, []byte{0x00}, nil); err != nil {
		t.Errorf("write-only probe to present device: %v", err)
	}
	if len(f.Transfers) != 2 {
		t.Fatalf("expected 2 transfers, got %d", len(f.Transfers))
	}
	if f.Transfers[0].Addr != 0x49 || f.Transfers[1].Read != 0 {
		t.Errorf("unexpected transfers: %+v", f.Transfers)
	}
}

func TestFakeBusClosed(t *testing.T) {
	f := NewFakeBus(0x48)
	f.Close()

	if !f.Closed {
		t.Error("should be closed after Close()")
	}
	if err := f.Tx(0x48, nil, make([]byte, 2)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
