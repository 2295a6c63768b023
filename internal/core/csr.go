package core

// csr.go is the CSR file: the small, fixed set of machine-mode control and
// status registers this core exposes, and the privilege-gated read/write
// path the Zicsr instructions and the trap engine share.

// CSRAddr is a 12-bit CSR address.
type CSRAddr Word

// The CSRs this core implements. Any other address is illegal-instruction
// (spec.md §3's CSR table).
const (
	CSRMStatus   CSRAddr = 0x300
	CSRMISA      CSRAddr = 0x301
	CSRMIE       CSRAddr = 0x304
	CSRMTVec     CSRAddr = 0x305
	CSRMScratch  CSRAddr = 0x340
	CSRMEPC      CSRAddr = 0x341
	CSRMCause    CSRAddr = 0x342
	CSRMTVal     CSRAddr = 0x343
	CSRMIP       CSRAddr = 0x344
	CSRMVendorID CSRAddr = 0xF11
)

// mstatus bit layout. Only MIE and MPIE are meaningful; MPP is derived from
// extraflags on read and written back to extraflags by MRET.
const (
	mstatusMIE  = Word(1 << 3)
	mstatusMPIE = Word(1 << 7)
	mstatusMPP  = Word(0x3 << 11)
)

// Read-only constant CSR values.
const (
	misaValue      = Word(0x4040_1101) // XLEN=32, extensions I, M, A, X.
	mvendoridValue = Word(0xff0f_f0ff)
)

// CSRFile holds the mutable machine CSRs. misa and mvendorid are read-only
// constants and are not stored.
type CSRFile struct {
	MStatus  Word
	MIE      Word
	MTVec    Word
	MScratch Word
	MEPC     Word
	MCause   Word
	MTVal    Word
	MIP      Word
}

// Read returns the value of a CSR and whether the address is implemented.
func (c *CSRFile) Read(addr CSRAddr) (Word, bool) {
	switch addr {
	case CSRMStatus:
		return c.MStatus, true
	case CSRMISA:
		return misaValue, true
	case CSRMIE:
		return c.MIE, true
	case CSRMTVec:
		return c.MTVec, true
	case CSRMScratch:
		return c.MScratch, true
	case CSRMEPC:
		return c.MEPC, true
	case CSRMCause:
		return c.MCause, true
	case CSRMTVal:
		return c.MTVal, true
	case CSRMIP:
		return c.MIP, true
	case CSRMVendorID:
		return mvendoridValue, true
	default:
		return 0, false
	}
}

// Write sets a CSR's value and reports whether the address is implemented
// and writable. misa and mvendorid are read-only: a write to either is
// accepted by real hardware as a no-op, not an illegal instruction, so Write
// returns true for them without changing anything.
func (c *CSRFile) Write(addr CSRAddr, val Word) bool {
	switch addr {
	case CSRMStatus:
		c.MStatus = val
	case CSRMIE:
		c.MIE = val
	case CSRMTVec:
		c.MTVec = val
	case CSRMScratch:
		c.MScratch = val
	case CSRMEPC:
		c.MEPC = val
	case CSRMCause:
		c.MCause = val
	case CSRMTVal:
		c.MTVal = val
	case CSRMIP:
		c.MIP = val
	case CSRMISA, CSRMVendorID:
		// Read-only; writes are silently discarded.
	default:
		return false
	}

	return true
}

func (c *CSRFile) mie() bool  { return c.MStatus&mstatusMIE != 0 }
func (c *CSRFile) mpie() bool { return c.MStatus&mstatusMPIE != 0 }

func (c *CSRFile) setMIE(v bool) {
	if v {
		c.MStatus |= mstatusMIE
	} else {
		c.MStatus &^= mstatusMIE
	}
}

func (c *CSRFile) setMPIE(v bool) {
	if v {
		c.MStatus |= mstatusMPIE
	} else {
		c.MStatus &^= mstatusMPIE
	}
}

// mpp returns the privilege recorded in mstatus.MPP.
func (c *CSRFile) mpp() Privilege {
	return Privilege((c.MStatus & mstatusMPP) >> 11)
}

// setMPP writes a privilege into mstatus.MPP.
func (c *CSRFile) setMPP(p Privilege) {
	c.MStatus = (c.MStatus &^ mstatusMPP) | (Word(p)<<11)&mstatusMPP
}
