package core

// amo.go implements RV32A, the atomic-memory-operation extension the source
// this core is modeled on leaves as a todo!() stub. A single hart never
// races itself, so LR/SC reservation tracking only needs to detect a store
// — by any instruction, not only SC — to the reserved word.

// The funct5 values (instruction bits 27-31) selecting each AMO operation.
// Only the .W (word) width exists in this core; funct3 must be F3LW (010).
const (
	Funct5LR      Word = 0x02
	Funct5SC      Word = 0x03
	Funct5AMOSWAP Word = 0x01
	Funct5AMOADD  Word = 0x00
	Funct5AMOXOR  Word = 0x04
	Funct5AMOAND  Word = 0x0C
	Funct5AMOOR   Word = 0x08
	Funct5AMOMIN  Word = 0x10
	Funct5AMOMAX  Word = 0x14
	Funct5AMOMINU Word = 0x18
	Funct5AMOMAXU Word = 0x1C
)

// execAMO dispatches the eleven RV32A word-wide atomics. Every form reads
// rs1 as an unoffset address (no immediate, unlike LOAD/STORE) and requires
// 4-byte alignment.
func (m *Machine) execAMO(d Decoded, pc Word) int32 {
	if d.Funct3 != F3LW {
		m.raiseTrap(CauseIllegalInstr+1, pc, pc)
		return int32(CauseIllegalInstr + 1)
	}

	addr := m.Reg(d.Rs1)

	if addr&3 != 0 {
		cause := CauseStoreMisaligned
		if d.Funct5 == Funct5LR {
			cause = CauseLoadMisaligned
		}

		m.raiseTrap(cause+1, pc, addr)

		return int32(cause + 1)
	}

	switch d.Funct5 {
	case Funct5LR:
		return m.execLR(d, pc, addr)
	case Funct5SC:
		return m.execSC(d, pc, addr)
	case Funct5AMOSWAP, Funct5AMOADD, Funct5AMOXOR, Funct5AMOAND, Funct5AMOOR,
		Funct5AMOMIN, Funct5AMOMAX, Funct5AMOMINU, Funct5AMOMAXU:
		return m.execAMORMW(d, pc, addr)
	default:
		m.raiseTrap(CauseIllegalInstr+1, pc, pc)
		return int32(CauseIllegalInstr + 1)
	}
}

func (m *Machine) execLR(d Decoded, pc, addr Word) int32 {
	v, trap := m.readMem(addr, 4)
	if trap != 0 {
		m.raiseTrap(trap, pc, addr)
		return int32(trap)
	}

	m.extraflags |= extraflagsReservedValid
	m.reservedAddr = addr

	m.amoWriteback(d, pc, v)

	return StatusContinue
}

// execSC writes rs2 to the reserved word only if the reservation set by a
// prior LR is still valid for this address; rd gets 0 on success, 1 on
// failure, per the RISC-V convention.
func (m *Machine) execSC(d Decoded, pc, addr Word) int32 {
	if !m.hasReservation(addr) {
		m.clearReservation()
		m.amoWriteback(d, pc, 1)

		return StatusContinue
	}

	if trap := m.writeMem(addr, 4, m.Reg(d.Rs2)); trap != 0 {
		m.raiseTrap(trap, pc, addr)
		return int32(trap)
	}

	m.clearReservation()
	m.amoWriteback(d, pc, 0)

	return StatusContinue
}

// execAMORMW implements AMOSWAP/AMOADD/AMOXOR/AMOAND/AMOOR/AMOMIN/AMOMAX/
// AMOMINU/AMOMAXU: read the old value, combine it with rs2, write the
// result back, and return the old value in rd.
func (m *Machine) execAMORMW(d Decoded, pc, addr Word) int32 {
	old, trap := m.readMem(addr, 4)
	if trap != 0 {
		m.raiseTrap(trap, pc, addr)
		return int32(trap)
	}

	rs2 := m.Reg(d.Rs2)
	result := old

	switch d.Funct5 {
	case Funct5AMOSWAP:
		result = rs2
	case Funct5AMOADD:
		result = old + rs2
	case Funct5AMOXOR:
		result = old ^ rs2
	case Funct5AMOAND:
		result = old & rs2
	case Funct5AMOOR:
		result = old | rs2
	case Funct5AMOMIN:
		if int32(rs2) < int32(old) {
			result = rs2
		}
	case Funct5AMOMAX:
		if int32(rs2) > int32(old) {
			result = rs2
		}
	case Funct5AMOMINU:
		if rs2 < old {
			result = rs2
		}
	case Funct5AMOMAXU:
		if rs2 > old {
			result = rs2
		}
	}

	if trap := m.writeMem(addr, 4, result); trap != 0 {
		m.raiseTrap(trap, pc, addr)
		return int32(trap)
	}

	m.clearReservationIfMatches(addr)
	m.amoWriteback(d, pc, old)

	return StatusContinue
}

func (m *Machine) amoWriteback(d Decoded, pc, rval Word) {
	if d.Rd != X0 {
		m.SetReg(d.Rd, rval)
	}

	m.PC = pc + 4

	m.log.Debug("executed", "OPCODE", "AMO", "FUNCT5", d.Funct5, "RD", d.Rd, "RVAL", rval, "PC", m.PC)
}

func (m *Machine) hasReservation(addr Word) bool {
	return m.extraflags&extraflagsReservedValid != 0 && m.reservedAddr == addr
}

func (m *Machine) clearReservation() {
	m.extraflags &^= extraflagsReservedValid
}

// clearReservationIfMatches invalidates a live reservation when any store
// — AMO or plain SW/SH/SB — touches the reserved word.
func (m *Machine) clearReservationIfMatches(addr Word) {
	if m.hasReservation(addr) {
		m.clearReservation()
	}
}
