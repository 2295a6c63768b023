package core

// ops.go is the executor (spec.md §4.D): per-opcode semantics dispatched by
// direct tagged switch on the fields decode.go extracted, not by a table of
// closures or an operation interface — the switch is the hot path and stays
// a switch.

import "math"

// Step runs up to count instructions and returns a status code:
//
//	StatusContinue — ran count instructions without event; call Step again.
//	StatusWFI      — entered wait-for-interrupt.
//	StatusECall    — an ECALL was executed; inspect Reg(A7).
//	other nonzero  — a fatal trap code (architectural cause + 1).
func (m *Machine) Step(count int32) int32 {
	for i := int32(0); i < count; i++ {
		if status := m.step1(); status != StatusContinue {
			return status
		}
	}

	return StatusContinue
}

// step1 fetches, decodes, and executes a single instruction. While the
// WFI-quiescent flag is set, it fetches nothing and reports StatusWFI
// immediately: the hart stays parked at the instruction after WFI until the
// harness calls ClearWFI, per spec.md §4.F's idle-until-interrupt contract.
func (m *Machine) step1() int32 {
	if m.wfi() {
		return StatusWFI
	}

	pc := m.PC

	// ofs wraps modulo 2^32 for pc < RAMBase, landing far outside the RAM
	// image and falling into the access-fault case below rather than
	// misalignment, matching the bounds-then-alignment order spec.md §4.D
	// specifies.
	ofs := pc - RAMBase
	if int(ofs) >= len(m.mem.Bytes) {
		m.raiseTrap(CauseInstrAccessFault+1, pc, pc)
		return int32(CauseInstrAccessFault + 1)
	}

	if pc&3 != 0 {
		m.raiseTrap(CauseInstrMisaligned+1, pc, pc)
		return int32(CauseInstrMisaligned + 1)
	}

	ir := m.mem.load4(ofs)
	m.log.Debug("fetched", "PC", pc, "IR", ir)

	d := Decode(ir)
	m.log.Debug("decoded", "OPCODE", d.Opcode, "RD", d.Rd, "RS1", d.Rs1, "RS2", d.Rs2)

	switch d.Opcode {
	case OpSystem:
		return m.execSystem(d, pc)
	case OpAMO:
		return m.execAMO(d, pc)
	}

	var rval Word
	writeRd := true
	nextPC := pc + 4

	switch d.Opcode {
	case OpLUI:
		rval = Word(d.ImmU)
	case OpAUIPC:
		rval = pc + Word(d.ImmU)
	case OpJAL:
		rval = pc + 4
		nextPC = Word(int64(pc) + int64(d.ImmJ))
	case OpJALR:
		rval = pc + 4
		nextPC = (m.Reg(d.Rs1) + Word(d.ImmI)) &^ 1
	case OpBranch:
		writeRd = false
		taken, trap := evalBranch(d, m.Reg(d.Rs1), m.Reg(d.Rs2))
		if trap != 0 {
			m.raiseTrap(trap, pc, pc)
			return int32(trap)
		}
		if taken {
			nextPC = Word(int64(pc) + int64(d.ImmB))
		}
	case OpLoad:
		v, trap := m.execLoad(d)
		if trap != 0 {
			m.raiseTrap(trap, pc, m.Reg(d.Rs1)+Word(d.ImmI))
			return int32(trap)
		}
		rval = v
	case OpStore:
		writeRd = false
		if trap := m.execStore(d); trap != 0 {
			m.raiseTrap(trap, pc, m.Reg(d.Rs1)+Word(d.ImmS))
			return int32(trap)
		}
	case OpImm, OpReg:
		rval = m.execALU(d)
	case OpMiscMem:
		// FENCE: accepted, no effect; rd forced to 0 (spec.md §4.D).
		writeRd = false
	default:
		m.raiseTrap(CauseIllegalInstr+1, pc, pc)
		return int32(CauseIllegalInstr + 1)
	}

	if writeRd && d.Rd != X0 {
		m.SetReg(d.Rd, rval)
	}

	m.PC = nextPC

	m.log.Debug("executed", "OPCODE", d.Opcode, "RD", d.Rd, "RVAL", rval, "PC", m.PC)

	return StatusContinue
}

// evalBranch evaluates a BRANCH instruction's condition. funct3 values 2 and
// 3 are reserved and illegal.
func evalBranch(d Decoded, a, b Word) (bool, Word) {
	switch d.Funct3 {
	case F3BEQ:
		return a == b, 0
	case F3BNE:
		return a != b, 0
	case F3BLT:
		return int32(a) < int32(b), 0
	case F3BGE:
		return int32(a) >= int32(b), 0
	case F3BLTU:
		return a < b, 0
	case F3BGEU:
		return a >= b, 0
	default:
		return false, CauseIllegalInstr + 1
	}
}

// execLoad computes the effective address and performs a sign- or
// zero-extended load per funct3.
func (m *Machine) execLoad(d Decoded) (Word, Word) {
	addr := m.Reg(d.Rs1) + Word(d.ImmI)

	switch d.Funct3 {
	case F3LB:
		v, trap := m.readMem(addr, 1)
		return Word(int32(int8(v))), trap
	case F3LH:
		v, trap := m.readMem(addr, 2)
		return Word(int32(int16(v))), trap
	case F3LW:
		return m.readMem(addr, 4)
	case F3LBU:
		return m.readMem(addr, 1)
	case F3LHU:
		return m.readMem(addr, 2)
	default:
		return 0, CauseIllegalInstr + 1
	}
}

// execStore computes the effective address and performs a store per
// funct3; funct3 values 3-7 are reserved and illegal.
func (m *Machine) execStore(d Decoded) Word {
	addr := m.Reg(d.Rs1) + Word(d.ImmS)
	val := m.Reg(d.Rs2)

	var trap Word

	switch d.Funct3 {
	case F3SB:
		trap = m.writeMem(addr, 1, val)
	case F3SH:
		trap = m.writeMem(addr, 2, val)
	case F3SW:
		trap = m.writeMem(addr, 4, val)
	default:
		return CauseIllegalInstr + 1
	}

	if trap == 0 {
		m.clearReservationIfMatches(addr)
	}

	return trap
}

// execALU performs the OP-IMM/OP arithmetic, logic, shift, comparison, and
// (for OP with the M-extension funct7 bit set) multiply/divide families.
// SUB/SRA are distinguished from ADD/SRL by bit 30 of the instruction word
// (funct7 bit 5). SRA/SRAI use it under both OP and OP-IMM; SUB exists only
// under OP, since for ADDI that bit belongs to the immediate.
func (m *Machine) execALU(d Decoded) Word {
	a := m.Reg(d.Rs1)

	var b Word
	if d.Opcode == OpReg {
		b = m.Reg(d.Rs2)
	} else {
		b = Word(d.ImmI)
	}

	if d.Opcode == OpReg && d.Funct7&0x01 != 0 {
		return mulDiv(d.Funct3, a, b)
	}

	alt := d.Funct7&0x20 != 0
	shamt := b & 0x1f

	switch d.Funct3 {
	case F3ADDSUB:
		if alt && d.Opcode == OpReg {
			return a - b
		}
		return a + b
	case F3SLL:
		return a << shamt
	case F3SLT:
		return boolWord(int32(a) < int32(b))
	case F3SLTU:
		return boolWord(a < b)
	case F3XOR:
		return a ^ b
	case F3SRLSRA:
		if alt {
			return Word(int32(a) >> shamt)
		}
		return a >> shamt
	case F3OR:
		return a | b
	default: // F3AND
		return a & b
	}
}

func boolWord(cond bool) Word {
	if cond {
		return 1
	}

	return 0
}

// mulDiv implements the M-extension. MULH/MULHSU take the upper 32 bits of
// a full 64-bit product; DIV/REM follow the RISC-V-defined results for
// division by zero and signed overflow rather than panicking or trapping.
func mulDiv(funct3, a, b Word) Word {
	switch funct3 {
	case F3MUL:
		return a * b
	case F3MULH:
		return Word((int64(int32(a)) * int64(int32(b))) >> 32)
	case F3MULHSU:
		return Word((int64(int32(a)) * int64(b)) >> 32)
	case F3MULHU:
		return Word((uint64(a) * uint64(b)) >> 32)
	case F3DIV:
		return divSigned(a, b)
	case F3DIVU:
		if b == 0 {
			return 0xFFFF_FFFF
		}
		return a / b
	case F3REM:
		return remSigned(a, b)
	default: // F3REMU
		if b == 0 {
			return a
		}
		return a % b
	}
}

func divSigned(a, b Word) Word {
	ai, bi := int32(a), int32(b)

	if bi == 0 {
		return 0xFFFF_FFFF
	}

	if ai == math.MinInt32 && bi == -1 {
		return a
	}

	return Word(ai / bi)
}

func remSigned(a, b Word) Word {
	ai, bi := int32(a), int32(b)

	if bi == 0 {
		return a
	}

	if ai == math.MinInt32 && bi == -1 {
		return 0
	}

	return Word(ai % bi)
}

// execSystem dispatches SYSTEM: the priv sub-instructions (ECALL, EBREAK,
// MRET, WFI) and the six Zicsr forms. Unlike the rest of the executor, it
// owns its own PC update and writeback, since MRET and the event codes
// don't follow the generic advance-by-4-then-writeback shape.
func (m *Machine) execSystem(d Decoded, pc Word) int32 {
	switch d.Funct3 {
	case F3PRIV:
		return m.execPriv(d, pc)
	case F3CSRRW, F3CSRRS, F3CSRRC, F3CSRRWI, F3CSRRSI, F3CSRRCI:
		return m.execCSR(d, pc)
	default:
		m.raiseTrap(CauseIllegalInstr+1, pc, pc)
		return int32(CauseIllegalInstr + 1)
	}
}

func (m *Machine) execPriv(d Decoded, pc Word) int32 {
	switch (d.Raw >> 20) & 0xfff {
	case PrivECALL:
		// ECALL is a driver-reported event, not routed through the trap
		// engine (spec.md §4.F): the harness inspects a7 and decides
		// whether and how to resume.
		m.log.Debug("executed", "OPCODE", "ECALL", "A7", m.Reg(A7), "PC", pc)
		return StatusECall
	case PrivEBREAK:
		m.raiseTrap(CauseBreakpoint+1, pc, pc)
		return int32(CauseBreakpoint + 1)
	case PrivMRET:
		m.mret()
		m.log.Debug("executed", "OPCODE", "MRET", "PC", m.PC)
		return StatusContinue
	case PrivWFI:
		m.CSR.setMIE(true)
		m.setWFI(true)
		m.PC = pc + 4
		m.log.Debug("executed", "OPCODE", "WFI", "PC", m.PC)
		return StatusWFI
	default:
		m.raiseTrap(CauseIllegalInstr+1, pc, pc)
		return int32(CauseIllegalInstr + 1)
	}
}

// execCSR implements the six Zicsr read-modify-write forms: the register
// forms (CSRRW/CSRRS/CSRRC) combine the old CSR value with rs1; the
// immediate forms (CSRRWI/CSRRSI/CSRRCI) combine it with the 5-bit rs1
// field read as an immediate. rd always receives the CSR's value before
// the write.
func (m *Machine) execCSR(d Decoded, pc Word) int32 {
	addr := CSRAddr((d.Raw >> 20) & 0xfff)

	old, ok := m.CSR.Read(addr)
	if !ok {
		m.raiseTrap(CauseIllegalInstr+1, pc, pc)
		return int32(CauseIllegalInstr + 1)
	}

	var writeval Word

	switch d.Funct3 {
	case F3CSRRW:
		writeval = m.Reg(d.Rs1)
	case F3CSRRS:
		writeval = old | m.Reg(d.Rs1)
	case F3CSRRC:
		writeval = old &^ m.Reg(d.Rs1)
	case F3CSRRWI:
		writeval = Word(d.Rs1)
	case F3CSRRSI:
		writeval = old | Word(d.Rs1)
	default: // F3CSRRCI
		writeval = old &^ Word(d.Rs1)
	}

	if !m.CSR.Write(addr, writeval) {
		m.raiseTrap(CauseIllegalInstr+1, pc, pc)
		return int32(CauseIllegalInstr + 1)
	}

	if d.Rd != X0 {
		m.SetReg(d.Rd, old)
	}

	m.PC = pc + 4

	m.log.Debug("executed", "OPCODE", "CSR", "ADDR", addr, "OLD", old, "NEW", writeval, "PC", m.PC)

	return StatusContinue
}
