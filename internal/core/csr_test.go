package core

import "testing"

func TestCSRReadUnknownIsIllegal(t *testing.T) {
	var c CSRFile
	if _, ok := c.Read(CSRAddr(0x7FF)); ok {
		t.Error("Read(0x7FF) ok = true, want false")
	}
	if ok := c.Write(CSRAddr(0x7FF), 1); ok {
		t.Error("Write(0x7FF) ok = true, want false")
	}
}

func TestCSRMISAReadOnly(t *testing.T) {
	var c CSRFile
	if !c.Write(CSRMISA, 0xffffffff) {
		t.Error("Write(misa) ok = false, want true (silently discarded)")
	}
	v, _ := c.Read(CSRMISA)
	if v != misaValue {
		t.Errorf("misa = %s, want %s (unchanged)", v, misaValue)
	}
}

func TestCSRRSReadOnlyWithZeroRs1(t *testing.T) {
	m := NewMachine(DefaultSize, nil)
	m.CSR.MScratch = 0x1234

	load(m, encI(OpSystem, GPR(5), F3CSRRS, X0, int32(CSRMScratch)))

	if status := m.Step(1); status != StatusContinue {
		t.Fatalf("Step = %d, want 0", status)
	}
	if got := m.Reg(GPR(5)); got != 0x1234 {
		t.Errorf("x5 = %s, want 0x1234", got)
	}
	if m.CSR.MScratch != 0x1234 {
		t.Errorf("mscratch mutated by CSRRS x0: now %s", m.CSR.MScratch)
	}
}

func TestCSRRWWithRdZeroWritesOnly(t *testing.T) {
	m := NewMachine(DefaultSize, nil)
	m.CSR.MScratch = 0xAAAA
	m.SetReg(GPR(1), 0xBBBB)

	load(m, encI(OpSystem, X0, F3CSRRW, GPR(1), int32(CSRMScratch)))

	if status := m.Step(1); status != StatusContinue {
		t.Fatalf("Step = %d, want 0", status)
	}
	if m.CSR.MScratch != 0xBBBB {
		t.Errorf("mscratch = %s, want 0xBBBB", m.CSR.MScratch)
	}
}

func TestCSRUnknownAddressTraps(t *testing.T) {
	m := NewMachine(DefaultSize, nil)
	load(m, encI(OpSystem, GPR(1), F3CSRRS, X0, 0x7FF))

	status := m.Step(1)
	if status != int32(CauseIllegalInstr+1) {
		t.Fatalf("Step = %d, want %d", status, CauseIllegalInstr+1)
	}
}

func TestMPPRoundTrip(t *testing.T) {
	var c CSRFile

	c.setMPP(PrivilegeMachine)
	if got := c.mpp(); got != PrivilegeMachine {
		t.Errorf("mpp = %s, want M", got)
	}

	c.setMPP(PrivilegeUser)
	if got := c.mpp(); got != PrivilegeUser {
		t.Errorf("mpp = %s, want U", got)
	}
}
