// Package loader reads ROM images from disk and copies them into a machine's RAM. It is
// explicitly out of the core's scope (spec.md §1, §6: "the core does not load files") but is the
// minimal harness piece every front end needs, so it lives alongside the CLI rather than inside
// internal/core.
package loader

import (
	"errors"
	"fmt"
	"os"

	"github.com/ndouglas/rv32ima/internal/core"
	"github.com/ndouglas/rv32ima/internal/encoding"
	"github.com/ndouglas/rv32ima/internal/log"
)

// ErrLoader is the sentinel wrapped by every error this package returns.
var ErrLoader = errors.New("loader error")

// Loader copies object code into a machine's RAM image.
type Loader struct {
	mach *core.Machine
	log  *log.Logger
}

// New creates a loader for the given machine.
func New(mach *core.Machine) *Loader {
	return &Loader{mach: mach, log: log.DefaultLogger()}
}

// Load copies obj.Code into RAM starting at obj.Addr. The destination range must lie entirely
// within RAM; it may not touch the MMIO window.
func (l *Loader) Load(obj encoding.ObjectCode) (int, error) {
	if len(obj.Code) == 0 {
		return 0, fmt.Errorf("%w: object too small", ErrLoader)
	}

	if obj.Addr < core.RAMBase {
		return 0, fmt.Errorf("%w: address %s below RAM base", ErrLoader, obj.Addr)
	}

	ram := l.mach.RAM()
	ofs := int(obj.Addr - core.RAMBase)

	if ofs < 0 || ofs+len(obj.Code) > len(ram) {
		return 0, fmt.Errorf("%w: object does not fit in RAM", ErrLoader)
	}

	n := copy(ram[ofs:], obj.Code)

	l.log.Debug("Loaded object", "addr", obj.Addr, "bytes", n)

	return n, nil
}

// LoadFile reads fn and loads it into RAM. A file whose first byte is ':' is treated as a
// hex-encoded object (see internal/encoding) and each record is loaded at its own address;
// anything else is loaded as a raw binary ROM image at core.RAMBase, matching spec.md §6's
// loading contract.
func (l *Loader) LoadFile(fn string) (int, error) {
	data, err := os.ReadFile(fn)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrLoader, err)
	}

	l.log.Debug("Read ROM file", "file", fn, "bytes", len(data))

	if len(data) > 0 && data[0] == ':' {
		return l.loadHex(data)
	}

	return l.Load(encoding.ObjectCode{Addr: core.RAMBase, Code: data})
}

func (l *Loader) loadHex(data []byte) (int, error) {
	var hex encoding.HexEncoding

	if err := hex.UnmarshalText(data); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrLoader, err)
	}

	var count int

	for _, obj := range hex.Code {
		n, err := l.Load(obj)
		count += n

		if err != nil {
			return count, err
		}
	}

	return count, nil
}
