package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ndouglas/rv32ima/internal/core"
	"github.com/ndouglas/rv32ima/internal/encoding"
)

func TestLoadRaw(t *testing.T) {
	mach := core.NewMachine(core.DefaultSize, nil)
	dir := t.TempDir()
	fn := filepath.Join(dir, "rom.bin")

	rom := []byte{0x93, 0x00, 0x50, 0x00, 0x13, 0x01, 0x00, 0x01}
	if err := os.WriteFile(fn, rom, 0o644); err != nil {
		t.Fatal(err)
	}

	n, err := New(mach).LoadFile(fn)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if n != len(rom) {
		t.Errorf("loaded %d bytes, want %d", n, len(rom))
	}

	for i, b := range rom {
		if mach.RAM()[i] != b {
			t.Errorf("RAM[%d] = %#x, want %#x", i, mach.RAM()[i], b)
		}
	}
}

func TestLoadHex(t *testing.T) {
	mach := core.NewMachine(core.DefaultSize, nil)
	dir := t.TempDir()
	fn := filepath.Join(dir, "rom.hex")

	enc := encoding.HexEncoding{Code: []encoding.ObjectCode{
		{Addr: core.RAMBase, Code: []byte{0x93, 0x00, 0x50, 0x00}},
		{Addr: core.RAMBase + 4, Code: []byte{0x13, 0x01, 0x00, 0x01}},
	}}

	text, err := enc.MarshalText()
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(fn, text, 0o644); err != nil {
		t.Fatal(err)
	}

	n, err := New(mach).LoadFile(fn)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if n != 8 {
		t.Errorf("loaded %d bytes, want 8", n)
	}

	want := []byte{0x93, 0x00, 0x50, 0x00, 0x13, 0x01, 0x00, 0x01}
	for i, b := range want {
		if mach.RAM()[i] != b {
			t.Errorf("RAM[%d] = %#x, want %#x", i, mach.RAM()[i], b)
		}
	}
}

func TestLoadOutOfBounds(t *testing.T) {
	mach := core.NewMachine(64, nil)

	_, err := New(mach).Load(encoding.ObjectCode{Addr: core.RAMBase + 60, Code: make([]byte, 16)})
	if err == nil {
		t.Fatal("expected out-of-bounds error")
	}
}
