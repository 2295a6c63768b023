package core

// trap.go is the trap engine (spec.md §4.E). It performs all six steps on
// every trap; the source this core is modeled on ships this logic partially
// commented out and returns early, skipping CSR updates. This implementation
// does not replicate that: a trap always finishes all six steps before the
// next fetch.

// Synchronous exception causes, numbered per the RISC-V privileged
// specification (spec.md §7, tier 1). The executor and decoder report these
// as "trap codes" one greater than the cause (see causeOf), mirroring the
// convention of the source this core is modeled on.
const (
	CauseInstrMisaligned  Word = 0
	CauseInstrAccessFault Word = 1
	CauseIllegalInstr     Word = 2
	CauseBreakpoint       Word = 3
	CauseLoadMisaligned   Word = 4
	CauseLoadAccessFault  Word = 5
	CauseStoreMisaligned  Word = 6
	CauseStoreAccessFault Word = 7
	CauseECallFromU       Word = 8
	CauseECallFromM       Word = 11
)

// trapInterruptBit marks an asynchronous cause in a raw trap code, per
// spec.md §4.E step 2. This core has no interrupt controller (spec.md §1
// Non-goals) and never sets it internally; the bit is honored here only so a
// harness that injects an interrupt by writing a trap code directly gets
// correct mcause/mtval behavior.
const trapInterruptBit = Word(1 << 31)

// causeOf converts a trap code (as produced by the executor: cause+1 for
// synchronous exceptions) into the architectural cause value stored in
// mcause.
func causeOf(trap Word) Word {
	if trap&trapInterruptBit != 0 {
		return trap
	}

	return trap - 1
}

// isMemoryFault reports whether a cause is one of the four memory-access
// exceptions, which get the faulting address in mtval instead of pc.
func isMemoryFault(cause Word) bool {
	return cause >= CauseLoadMisaligned && cause <= CauseStoreAccessFault
}

// raiseTrap performs the six steps of spec.md §4.E: it records the faulting
// pc, cause, and value, snapshots interrupt-enable state, raises privilege to
// machine, and redirects pc to the trap vector. faultPC is the address of
// the instruction that trapped; faultAddr is the memory address for a memory
// fault (ignored otherwise).
func (m *Machine) raiseTrap(trap Word, faultPC, faultAddr Word) {
	cause := causeOf(trap)

	m.CSR.MEPC = faultPC
	m.CSR.MCause = cause

	if isMemoryFault(cause) {
		m.CSR.MTVal = faultAddr
	} else {
		m.CSR.MTVal = faultPC
	}

	m.CSR.setMPIE(m.CSR.mie())
	m.CSR.setMIE(false)
	m.CSR.setMPP(m.privilege())

	m.setPrivilege(PrivilegeMachine)

	m.PC = m.CSR.MTVec

	m.log.Debug("trap raised", "CAUSE", cause, "MEPC", m.CSR.MEPC, "MTVAL", m.CSR.MTVal, "MTVEC", m.PC)
}

// mret implements the MRET instruction (spec.md §3 invariant 4): restores
// MIE from MPIE, sets MPIE, restores privilege from MPP, and resets MPP to
// user.
func (m *Machine) mret() {
	m.CSR.setMIE(m.CSR.mpie())
	m.CSR.setMPIE(true)
	m.setPrivilege(m.CSR.mpp())
	m.CSR.setMPP(PrivilegeUser)

	m.PC = m.CSR.MEPC

	m.log.Debug("mret", "PRIV", m.privilege(), "PC", m.PC)
}
