package core

// mmio.go routes a load or store to RAM or to the harness's MMIO handler,
// depending only on the address (spec.md §4.A, §6): the core never models
// what a device does with its registers, only where the boundary is.

// readMem performs a width-sized (1, 2, or 4 byte) load, zero-extended into
// a Word, from RAM or MMIO as addr dictates. The caller sign-extends for
// LB/LH; LW, LBU, and LHU use the result directly.
func (m *Machine) readMem(addr Word, width int) (Word, Word) {
	if IsMMIO(addr) {
		v, err := m.mmio.LoadMMIO(addr, width)
		if err != nil {
			return 0, CauseLoadAccessFault + 1
		}

		return v, 0
	}

	if addr < RAMBase {
		return 0, CauseLoadAccessFault + 1
	}

	ofs := addr - RAMBase
	if int(ofs)+width > len(m.mem.Bytes) {
		return 0, CauseLoadAccessFault + 1
	}

	switch width {
	case 1:
		return Word(m.mem.load1(ofs)), 0
	case 2:
		return Word(m.mem.load2(ofs)), 0
	default:
		return m.mem.load4(ofs), 0
	}
}

// writeMem performs a width-sized store to RAM or MMIO as addr dictates.
func (m *Machine) writeMem(addr Word, width int, val Word) Word {
	if IsMMIO(addr) {
		if err := m.mmio.StoreMMIO(addr, width, val); err != nil {
			return CauseStoreAccessFault + 1
		}

		return 0
	}

	if addr < RAMBase {
		return CauseStoreAccessFault + 1
	}

	ofs := addr - RAMBase
	if int(ofs)+width > len(m.mem.Bytes) {
		return CauseStoreAccessFault + 1
	}

	switch width {
	case 1:
		m.mem.store1(ofs, byte(val))
	case 2:
		m.mem.store2(ofs, uint16(val))
	default:
		m.mem.store4(ofs, val)
	}

	return 0
}
