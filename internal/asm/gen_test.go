package asm

import (
	"io"
	"strings"
	"testing"

	"github.com/ndouglas/rv32ima/internal/core"
)

func assemble(t *testing.T, src string) []byte {
	t.Helper()

	objs, err := Assemble(io.NopCloser(strings.NewReader(src)))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(objs) != 1 {
		t.Fatalf("got %d object records, want 1", len(objs))
	}

	return objs[0].Code
}

func word(b []byte, i int) core.Word {
	return core.Word(b[i]) | core.Word(b[i+1])<<8 | core.Word(b[i+2])<<16 | core.Word(b[i+3])<<24
}

func TestAssembleADDIChain(t *testing.T) {
	code := assemble(t, `
		.org 0x80000000
		addi x1, x0, 5
		addi x1, x1, -2
		addi x2, x1, 0x10
	`)

	if len(code) != 12 {
		t.Fatalf("got %d bytes, want 12", len(code))
	}

	m := core.NewMachine(core.DefaultSize, nil)
	copy(m.RAM(), code)

	for i := 0; i < 3; i++ {
		if status := m.Step(1); status != core.StatusContinue {
			t.Fatalf("step %d: status = %d", i, status)
		}
	}

	if got := m.Reg(1); got != 3 {
		t.Errorf("x1 = %d, want 3", int32(got))
	}
	if got := m.Reg(2); got != 19 {
		t.Errorf("x2 = %d, want 19", int32(got))
	}
}

func TestAssembleBranchRelative(t *testing.T) {
	code := assemble(t, `
		.org 0x80000000
		addi x1, x0, -1
		addi x2, x0, 1
		blt  x1, x2, done
		addi x3, x0, 7
		done:
		addi x4, x0, 9
	`)

	m := core.NewMachine(core.DefaultSize, nil)
	copy(m.RAM(), code)

	for i := 0; i < 4; i++ {
		if status := m.Step(1); status != core.StatusContinue {
			t.Fatalf("step %d: status = %d", i, status)
		}
	}

	if got := m.Reg(3); got != 0 {
		t.Errorf("x3 = %d, want 0 (branch should have skipped it)", got)
	}
	if got := m.Reg(4); got != 9 {
		t.Errorf("x4 = %d, want 9", got)
	}
}

func TestAssembleJumpLabel(t *testing.T) {
	code := assemble(t, `
		.org 0x80000000
		jal  x1, target
		addi x2, x0, 1
		target:
		addi x3, x0, 2
	`)

	m := core.NewMachine(core.DefaultSize, nil)
	copy(m.RAM(), code)

	sp := m.Reg(2) // x2 is sp, preset at reset; the skipped addi must leave it alone.

	for i := 0; i < 2; i++ {
		if status := m.Step(1); status != core.StatusContinue {
			t.Fatalf("step %d: status = %d", i, status)
		}
	}

	if got := m.Reg(1); got != core.RAMBase+4 {
		t.Errorf("x1 (ra) = %s, want %s", got, core.RAMBase+4)
	}
	if got := m.Reg(2); got != sp {
		t.Errorf("x2 = %s, want %s (jump should have skipped it)", got, sp)
	}
	if got := m.Reg(3); got != 2 {
		t.Errorf("x3 = %d, want 2", got)
	}
}

func TestAssembleLoadStore(t *testing.T) {
	code := assemble(t, `
		.org 0x80000000
		lui  x5, 0x80000
		addi x1, x0, 0x55
		sw   x1, 64(x5)
		lw   x2, 64(x5)
	`)

	m := core.NewMachine(core.DefaultSize, nil)
	copy(m.RAM(), code)

	for i := 0; i < 4; i++ {
		if status := m.Step(1); status != core.StatusContinue {
			t.Fatalf("step %d: status = %d", i, status)
		}
	}

	if got := m.Reg(2); got != 0x55 {
		t.Errorf("x2 = %#x, want 0x55", got)
	}
}

func TestAssembleMExtension(t *testing.T) {
	code := assemble(t, `
		.org 0x80000000
		addi x1, x0, -6
		addi x2, x0, 4
		div  x3, x1, x2
		rem  x4, x1, x2
	`)

	m := core.NewMachine(core.DefaultSize, nil)
	copy(m.RAM(), code)

	for i := 0; i < 4; i++ {
		m.Step(1)
	}

	if got := int32(m.Reg(3)); got != -1 {
		t.Errorf("x3 = %d, want -1", got)
	}
	if got := int32(m.Reg(4)); got != -2 {
		t.Errorf("x4 = %d, want -2", got)
	}
}

func TestAssembleECALL(t *testing.T) {
	code := assemble(t, `
		.org 0x80000000
		lui  x17, 0x1000
		ecall
	`)

	m := core.NewMachine(core.DefaultSize, nil)
	copy(m.RAM(), code)

	m.Step(1)

	if status := m.Step(1); status != core.StatusECall {
		t.Fatalf("status = %d, want StatusECall", status)
	}
	if got := m.Reg(17); got != core.SyscallHalt {
		t.Errorf("x17 = %#x, want %#x", got, core.SyscallHalt)
	}
}

func TestAssembleWFI(t *testing.T) {
	code := assemble(t, `
		.org 0x80000000
		addi x1, x0, 1
		csrrw x0, mie, x1
		wfi
	`)

	m := core.NewMachine(core.DefaultSize, nil)
	copy(m.RAM(), code)

	m.Step(1)
	m.Step(1)

	if status := m.Step(1); status != core.StatusWFI {
		t.Fatalf("status = %d, want StatusWFI", status)
	}
}

func TestAssembleAMO(t *testing.T) {
	code := assemble(t, `
		.org 0x80000000
		lui      x5, 0x80000
		addi     x1, x0, 0x55
		sw       x1, 64(x5)
		lr.w     x2, (x5)
		sc.w     x3, x1, (x5)
		amoadd.w x4, x1, (x5)
	`)

	d := core.Decode(word(code, 12))
	if d.Opcode != core.OpAMO || d.Funct5 != core.Funct5LR {
		t.Fatalf("lr.w decoded wrong: %+v", d)
	}

	d = core.Decode(word(code, 16))
	if d.Opcode != core.OpAMO || d.Funct5 != core.Funct5SC {
		t.Fatalf("sc.w decoded wrong: %+v", d)
	}

	d = core.Decode(word(code, 20))
	if d.Opcode != core.OpAMO || d.Funct5 != core.Funct5AMOADD {
		t.Fatalf("amoadd.w decoded wrong: %+v", d)
	}
}

func TestAssembleDataDirectives(t *testing.T) {
	code := assemble(t, `
		.org 0x80000000
		.word 1, 2
		.byte 0xAA, 0xBB
	`)

	if len(code) != 10 {
		t.Fatalf("got %d bytes, want 10", len(code))
	}
	if word(code, 0) != 1 || word(code, 4) != 2 {
		t.Errorf("words = %d, %d", word(code, 0), word(code, 4))
	}
	if code[8] != 0xAA || code[9] != 0xBB {
		t.Errorf("bytes = %x %x", code[8], code[9])
	}
}

func TestAssembleUnknownMnemonic(t *testing.T) {
	_, err := Assemble(io.NopCloser(strings.NewReader(".org 0x80000000\nnope x1, x2, x3\n")))
	if err == nil {
		t.Fatal("expected a syntax error")
	}
}
