package encoding

import (
	"bytes"
	"testing"

	"github.com/ndouglas/rv32ima/internal/core"
)

func TestRoundTrip(t *testing.T) {
	want := []ObjectCode{
		{Addr: core.RAMBase, Code: []byte{0x93, 0x00, 0x50, 0x00}},
		{Addr: core.RAMBase + 0x10, Code: []byte{0xAB, 0xCD}},
	}

	enc := HexEncoding{Code: want}

	text, err := enc.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}

	var got HexEncoding
	if err := got.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText: %v\n%s", err, text)
	}

	if len(got.Code) != len(want) {
		t.Fatalf("got %d records, want %d", len(got.Code), len(want))
	}

	for i := range want {
		if got.Code[i].Addr != want[i].Addr {
			t.Errorf("record %d: addr = %#x, want %#x", i, got.Code[i].Addr, want[i].Addr)
		}
		if !bytes.Equal(got.Code[i].Code, want[i].Code) {
			t.Errorf("record %d: code = %x, want %x", i, got.Code[i].Code, want[i].Code)
		}
	}
}

func TestUnmarshalEmpty(t *testing.T) {
	var h HexEncoding
	if err := h.UnmarshalText([]byte(":000000000001ff\n")); err == nil {
		t.Fatal("expected error decoding an object with no data records")
	}
}

func TestUnmarshalBadChecksum(t *testing.T) {
	var h HexEncoding
	if err := h.UnmarshalText([]byte(":0180000000000000\n")); err == nil {
		t.Fatal("expected checksum error")
	}
}

func TestUnmarshalBadPrefix(t *testing.T) {
	var h HexEncoding
	if err := h.UnmarshalText([]byte("nope\n")); err == nil {
		t.Fatal("expected prefix error")
	}
}
