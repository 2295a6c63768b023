package core

// cpu.go assembles the machine from its smaller parts: registers, CSRs, and
// the memory and MMIO hook a harness supplies.

import (
	"fmt"

	"github.com/ndouglas/rv32ima/internal/log"
)

// MMIOHandler services loads and stores that land in the reserved MMIO
// window (spec.md §4.A, §6). A harness implements this and passes it to
// NewMachine; the core never decides for itself what a device does with a
// memory-mapped register. size is the access width in bytes (1, 2, or 4).
type MMIOHandler interface {
	LoadMMIO(addr Word, size int) (Word, error)
	StoreMMIO(addr Word, size int, val Word) error
}

// noMMIO is the default handler installed when a harness doesn't supply one:
// every access faults, which is the conservative, predictable behavior for a
// core built without any harness wiring.
type noMMIO struct{}

var errNoMMIOHandler = fmt.Errorf("core: no MMIO handler installed")

func (noMMIO) LoadMMIO(Word, int) (Word, error) { return 0, errNoMMIOHandler }
func (noMMIO) StoreMMIO(Word, int, Word) error  { return errNoMMIOHandler }

// Machine is the architectural state of one RV32IMA hart: general-purpose
// registers, program counter, the implemented CSRs, and the privilege/WFI
// bookkeeping the spec calls extraflags. Machine owns its RAM image for its
// lifetime; RAM exposes it by reference so a harness can load ROMs or
// service MMIO between Step calls (spec.md §5).
type Machine struct {
	Regs RegisterFile
	PC   Word
	CSR  CSRFile

	extraflags   Word
	reservedAddr Word // Valid iff extraflags&extraflagsReservedValid != 0.

	mem  Memory
	mmio MMIOHandler

	log *log.Logger
}

// NewMachine constructs a reset machine with a RAM image of ramSize bytes,
// mapped at RAMBase, and the given MMIO handler. If mmio is nil, every MMIO
// access faults.
func NewMachine(ramSize int, mmio MMIOHandler) *Machine {
	if mmio == nil {
		mmio = noMMIO{}
	}

	m := &Machine{
		mem:  NewMemory(RAMBase, make([]byte, ramSize)),
		mmio: mmio,
		log:  log.DefaultLogger(),
	}

	m.reset(ramSize)

	return m
}

// reset initializes architectural state per spec.md §4.B: registers to
// zero, x2 (sp) to the top of RAM minus a 16-byte-aligned red zone, pc to
// the RAM base, privilege to machine, and every CSR to zero.
func (m *Machine) reset(ramSize int) {
	m.Regs = RegisterFile{}
	m.CSR = CSRFile{}
	m.extraflags = Word(PrivilegeMachine)

	m.PC = RAMBase
	m.Regs[SP] = (RAMBase + Word(ramSize)) &^ 0xF
	m.Regs[SP] -= 16
}

// RAM returns the machine's RAM image by reference so a harness may load a
// ROM or inspect memory between Step calls.
func (m *Machine) RAM() []byte {
	return m.mem.Bytes
}

// Reg reads a general-purpose register. x0 always reads as zero.
func (m *Machine) Reg(r GPR) Word {
	if r == X0 {
		return 0
	}

	return m.Regs[r]
}

// SetReg writes a general-purpose register. A write to x0 is silently
// discarded.
func (m *Machine) SetReg(r GPR, val Word) {
	if r == X0 {
		return
	}

	m.Regs[r] = val
}

// AdvancePC moves the program counter by delta, wrapping modulo 2^32.
func (m *Machine) AdvancePC(delta int32) {
	m.PC = Word(int64(m.PC) + int64(delta))
}

// MTVec returns the trap vector base.
func (m *Machine) MTVec() Word {
	return m.CSR.MTVec
}

// privilege returns the hart's current privilege level.
func (m *Machine) privilege() Privilege {
	return Privilege(m.extraflags & extraflagsPrivilegeMask)
}

// setPrivilege sets the hart's current privilege level.
func (m *Machine) setPrivilege(p Privilege) {
	m.extraflags = (m.extraflags &^ extraflagsPrivilegeMask) | Word(p)
}

func (m *Machine) wfi() bool {
	return m.extraflags&extraflagsWFI != 0
}

func (m *Machine) setWFI(v bool) {
	if v {
		m.extraflags |= extraflagsWFI
	} else {
		m.extraflags &^= extraflagsWFI
	}
}

// ClearWFI ends a wait-for-interrupt quiescence. A harness calls this after
// setting bits in mip to simulate delivering an interrupt (spec.md §4.F).
func (m *Machine) ClearWFI() {
	m.setWFI(false)
}

func (m *Machine) String() string {
	return fmt.Sprintf("PC: %s MCAUSE: %s MTVAL: %s PRIV: %s",
		m.PC, m.CSR.MCause, m.CSR.MTVal, m.privilege())
}
