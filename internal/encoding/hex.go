// Package encoding includes implementations of encoding.TextMarshaler and encoding.TextUnmarshaler
// to encode and decode binary object code. It is based on Intel Hex file encoding.
//
// Each record is a line composed of a prefix, length, address, type, (optional data), and a
// checksum. In shorthand:
//
//	:LLAAAAAAAATT[DD...]CC
//	0123456789
//
// See [Grammar] for a formal grammar.
//
// # Bugs
//
// This is not a complete implementation of Intel Hex encoding; it is for internal use, only. It
// supports minimal record types, specifically just the data and end-of-file record types, and
// widens the address field from 16 to 32 bits to address RV32's full byte range rather than
// LC-3's word-addressed 16-bit space.
package encoding

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/ndouglas/rv32ima/internal/core"
)

const Grammar = `
file  = { line } ;
line  = ':' len addr type data check nl ;
len   = byte ;
addr  = byte byte byte byte ;
type  = byte ;
data  = { byte }
byte  = hex hex ;
hex   = '0' | '1' | '2' | '3' | '4' | '5' | '6' | '7' | '8' | '9'
      | 'a' | 'b' | 'c' | 'd' | 'e' | 'f' | 'A' | 'B' | 'C' | 'D' | 'E' | 'F' ;
nl    = '\n' ;
`

// ObjectCode is a load address plus the bytes to be stored there. Code may be instructions,
// data, or both, exactly as they are to appear in RAM.
type ObjectCode struct {
	Addr core.Word
	Code []byte
}

// HexEncoding implements marshalling and unmarshalling of object code as Intel-Hex-style files.
type HexEncoding struct {
	Code []ObjectCode
}

func (h *HexEncoding) MarshalText() ([]byte, error) {
	var (
		buf   bytes.Buffer
		check byte
	)

	enc := hex.NewEncoder(&buf)

	for i := range h.Code {
		obj := h.Code[i]
		check = 0

		buf.WriteByte(':')

		var lenByte [1]byte

		lenByte[0] = byte(len(obj.Code))
		check += lenByte[0]

		if _, err := enc.Write(lenByte[:]); err != nil {
			return buf.Bytes(), err
		}

		var addr [4]byte
		addr[0] = byte(obj.Addr >> 24)
		addr[1] = byte(obj.Addr >> 16)
		addr[2] = byte(obj.Addr >> 8)
		addr[3] = byte(obj.Addr)

		for _, b := range addr {
			check += b
		}

		if _, err := enc.Write(addr[:]); err != nil {
			return buf.Bytes(), err
		}

		check += byte(kindData)

		if _, err := enc.Write([]byte{byte(kindData)}); err != nil {
			return buf.Bytes(), err
		}

		if _, err := enc.Write(obj.Code); err != nil {
			return buf.Bytes(), err
		}

		for _, b := range obj.Code {
			check += b
		}

		checksum := [1]byte{1 + ^check}
		if _, err := enc.Write(checksum[:]); err != nil {
			return buf.Bytes(), err
		}

		buf.WriteByte('\n')
	}

	buf.WriteString(":000000000001ff\n")

	return buf.Bytes(), nil
}

func (h *HexEncoding) UnmarshalText(bs []byte) error {
	lines := bufio.NewScanner(bytes.NewReader(bs))

	for lines.Scan() {
		rec := lines.Bytes()

		var (
			recLen   byte
			recAddr  uint32
			recKind  kind
			recCheck byte
			check    byte
			dec      [4]byte
		)

		if len(rec) == 0 {
			continue
		} else if rec[0] != ':' {
			return fmt.Errorf("%w: line does not start with ':'", ErrDecode)
		}

		if len(rec) < 1+2+8+2+2 {
			return fmt.Errorf("%w: record too short", ErrDecode)
		}

		if _, err := hex.Decode(dec[:1], rec[1:3]); err != nil {
			return fmt.Errorf("%w: len: %s", ErrDecode, err)
		}

		recLen = dec[0]
		check += dec[0]

		if _, err := hex.Decode(dec[:4], rec[3:11]); err != nil {
			return fmt.Errorf("%w: addr: %s", ErrDecode, err)
		}

		recAddr = binary.BigEndian.Uint32(dec[:4])

		for _, b := range dec[:4] {
			check += b
		}

		if _, err := hex.Decode(dec[:1], rec[11:13]); err != nil {
			return fmt.Errorf("%w: type: %s", ErrDecode, err)
		}

		recKind = kind(dec[0])
		check += dec[0]

		if _, err := hex.Decode(dec[:1], rec[len(rec)-2:]); err != nil {
			return fmt.Errorf("%w: check: %s", ErrDecode, err)
		}

		recCheck = dec[0]

		switch recKind {
		case kindData:
			data := make([]byte, recLen)

			if recLen > 0 {
				if _, err := hex.Decode(data, rec[13:13+int(recLen)*2]); err != nil {
					return fmt.Errorf("%w: data: %s", ErrDecode, err)
				}
			}

			for _, b := range data {
				check += b
			}

			check = 1 + ^check
			if check != recCheck {
				return fmt.Errorf("%w: checksum invalid: %02x != %02x", ErrDecode, check, recCheck)
			}

			h.Code = append(h.Code, ObjectCode{Addr: core.Word(recAddr), Code: data})
		case kindEOF:
			check = 1 + ^check
			if check != recCheck {
				return fmt.Errorf("%w: checksum invalid: %02x != %02x", ErrDecode, check, recCheck)
			}

			if len(h.Code) == 0 {
				return errEmpty
			}

			return nil
		default:
			return fmt.Errorf("%w: unexpected record type: %d", ErrDecode, recKind)
		}
	}

	if len(h.Code) == 0 {
		return errEmpty
	}

	return nil
}

// kind represents the type of an encoded record. Only the subset of Intel Hex record types this
// package supports are defined.
type kind byte

const (
	kindData kind = 0
	kindEOF  kind = 1
)

// ErrDecode is a wrapped error returned when decoding fails.
var ErrDecode = fmt.Errorf("encoding: decode error")

var errEmpty = fmt.Errorf("%w: no data decoded", ErrDecode)
