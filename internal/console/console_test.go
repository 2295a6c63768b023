package console

import (
	"bytes"
	"testing"

	"golang.org/x/term"

	"github.com/ndouglas/rv32ima/internal/core"
	"github.com/ndouglas/rv32ima/internal/log"
)

// newTestConsole builds a Console whose registers can be exercised without a real
// terminal: no fd, no reader goroutine, just the rxCh queue and a buffer standing in
// for the terminal the data register echoes to.
func newTestConsole(t *testing.T) (*Console, *bytes.Buffer) {
	t.Helper()

	var out bytes.Buffer

	c := &Console{
		out:  term.NewTerminal(&readWriter{Buffer: &out}, ""),
		rxCh: make(chan byte, 8),
		log:  log.DefaultLogger(),
	}

	return c, &out
}

// readWriter adapts a bytes.Buffer to the io.ReadWriter term.NewTerminal wants; reads
// are never exercised in these tests.
type readWriter struct{ *bytes.Buffer }

func (readWriter) Read([]byte) (int, error) { return 0, nil }

func TestStatusReflectsRXBuffer(t *testing.T) {
	c, _ := newTestConsole(t)

	status, err := c.LoadMMIO(StatusAddr, 4)
	if err != nil {
		t.Fatalf("LoadMMIO(status): %v", err)
	}
	if status&StatusRXReady != 0 {
		t.Errorf("status = %#x, RX ready bit should be clear with an empty buffer", status)
	}
	if status&StatusTXReady == 0 {
		t.Errorf("status = %#x, TX ready bit should always be set", status)
	}

	c.rxCh <- 'a'

	status, _ = c.LoadMMIO(StatusAddr, 4)
	if status&StatusRXReady == 0 {
		t.Errorf("status = %#x, RX ready bit should be set once a byte is queued", status)
	}
}

func TestDataRegisterDrainsQueue(t *testing.T) {
	c, _ := newTestConsole(t)

	c.rxCh <- 'x'

	v, err := c.LoadMMIO(DataAddr, 4)
	if err != nil {
		t.Fatalf("LoadMMIO(data): %v", err)
	}
	if v != 'x' {
		t.Errorf("data = %q, want 'x'", v)
	}

	v, err = c.LoadMMIO(DataAddr, 4)
	if err != nil {
		t.Fatalf("LoadMMIO(data) on empty queue: %v", err)
	}
	if v != 0 {
		t.Errorf("data = %#x, want 0 on an empty queue", v)
	}
}

func TestUnmappedAddressErrors(t *testing.T) {
	c, _ := newTestConsole(t)

	if _, err := c.LoadMMIO(StatusAddr+8, 4); err == nil {
		t.Error("expected an error loading an unmapped console address")
	}
	if err := c.StoreMMIO(StatusAddr+8, 4, 0); err == nil {
		t.Error("expected an error storing to an unmapped console address")
	}
}

func TestStoreToDataEchoesToTerminal(t *testing.T) {
	c, out := newTestConsole(t)

	if err := c.StoreMMIO(DataAddr, 4, core.Word('q')); err != nil {
		t.Fatalf("StoreMMIO(data): %v", err)
	}
	if out.Len() == 0 {
		t.Error("expected the data register write to produce terminal output")
	}
}

func TestStoreToStatusIsANoop(t *testing.T) {
	c, _ := newTestConsole(t)

	if err := c.StoreMMIO(StatusAddr, 4, 0xFFFFFFFF); err != nil {
		t.Fatalf("StoreMMIO(status): %v", err)
	}
}
