package asm

// gen.go is the assembler's second pass: now that Parser has seen every label, Generator walks
// the statement list again and encodes each instruction or data directive to bytes. Splitting
// the passes this way is the same shape as the teacher's asm.Generator, just retargeted from
// 16-bit LC-3 words to RV32's 32-bit, variable-format instruction words.

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/ndouglas/rv32ima/internal/core"
	"github.com/ndouglas/rv32ima/internal/encoding"
	"github.com/ndouglas/rv32ima/internal/log"
)

// Generator resolves symbols and emits machine code for a parsed program.
type Generator struct {
	symbols SymbolTable
	stmts   []Stmt
	log     *log.Logger
}

// NewGenerator creates a generator over a parsed program's symbol table and statement list.
func NewGenerator(symbols SymbolTable, stmts []Stmt) *Generator {
	return &Generator{symbols: symbols, stmts: stmts, log: log.DefaultLogger()}
}

// Assemble reads RV32IMA assembly from src and returns the object code it produces, one record
// per contiguous run of addresses (a program with a single .org has exactly one).
func Assemble(src io.ReadCloser) ([]encoding.ObjectCode, error) {
	p := NewParser()
	p.Parse(src)

	if err := p.Err(); err != nil {
		return nil, err
	}

	return NewGenerator(p.Symbols(), p.Statements()).Generate()
}

// Generate encodes every statement and coalesces the results into object-code records.
func (g *Generator) Generate() ([]encoding.ObjectCode, error) {
	stmts := append([]Stmt(nil), g.stmts...)
	sort.Slice(stmts, func(i, j int) bool { return stmts[i].Addr < stmts[j].Addr })

	var (
		out  []encoding.ObjectCode
		errs []error
	)

	for _, s := range stmts {
		data, err := g.encode(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: %q: %w", s.Line, s.Text, err))
			continue
		}

		if n := len(out); n > 0 && out[n-1].Addr+core.Word(len(out[n-1].Code)) == s.Addr {
			out[n-1].Code = append(out[n-1].Code, data...)
		} else {
			out = append(out, encoding.ObjectCode{Addr: s.Addr, Code: data})
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return out, nil
}

func (g *Generator) encode(s Stmt) ([]byte, error) {
	switch s.Kind {
	case stmtBytes:
		return s.Bytes, nil
	case stmtWord:
		return g.encodeWords(s)
	default:
		return g.encodeInstr(s)
	}
}

func (g *Generator) encodeWords(s Stmt) ([]byte, error) {
	out := make([]byte, 0, 4*len(s.Operands))

	for _, op := range s.Operands {
		v, err := g.resolve(op)
		if err != nil {
			return nil, err
		}

		out = append(out, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
	}

	return out, nil
}

// resolve evaluates an operand as either a label reference or a numeric literal.
func (g *Generator) resolve(tok string) (core.Word, error) {
	if addr, ok := g.symbols[tok]; ok {
		return addr, nil
	}

	n, err := parseInt(tok)
	if err != nil {
		return 0, fmt.Errorf("%w: undefined symbol %q", ErrSyntax, tok)
	}

	return core.Word(n), nil
}

func (g *Generator) encodeInstr(s Stmt) ([]byte, error) {
	spec, ok := ops[s.Mnemonic]
	if !ok {
		return nil, fmt.Errorf("%w: unknown mnemonic %q", ErrSyntax, s.Mnemonic)
	}

	var word core.Word

	var err error

	switch spec.fmt {
	case fmtR:
		word, err = g.encodeR(spec, s.Operands)
	case fmtI:
		word, err = g.encodeI(spec, s.Operands)
	case fmtShift:
		word, err = g.encodeShift(spec, s.Operands)
	case fmtLoad:
		word, err = g.encodeLoad(spec, s.Operands)
	case fmtJALR:
		word, err = g.encodeJALR(spec, s.Operands)
	case fmtStore:
		word, err = g.encodeStore(spec, s.Operands)
	case fmtBranch:
		word, err = g.encodeBranch(spec, s)
	case fmtU:
		word, err = g.encodeU(spec, s.Operands)
	case fmtJ:
		word, err = g.encodeJ(spec, s)
	case fmtFence:
		word = core.Word(spec.opcode)
	case fmtPriv:
		word = core.Word(spec.opcode) | spec.funct3<<12 | spec.priv<<20
	case fmtCSR:
		word, err = g.encodeCSR(spec, s.Operands)
	case fmtCSRI:
		word, err = g.encodeCSRI(spec, s.Operands)
	case fmtAMOLoad:
		word, err = g.encodeAMOLoad(spec, s.Operands)
	case fmtAMORMW:
		word, err = g.encodeAMORMW(spec, s.Operands)
	default:
		return nil, fmt.Errorf("%w: unhandled format for %q", ErrSyntax, s.Mnemonic)
	}

	if err != nil {
		return nil, err
	}

	return []byte{byte(word), byte(word >> 8), byte(word >> 16), byte(word >> 24)}, nil
}

func packR(opcode core.Opcode, rd core.GPR, funct3 core.Word, rs1, rs2 core.GPR, funct7 core.Word) core.Word {
	return core.Word(opcode) | core.Word(rd)<<7 | funct3<<12 | core.Word(rs1)<<15 |
		core.Word(rs2)<<20 | funct7<<25
}

func packI(opcode core.Opcode, rd core.GPR, funct3 core.Word, rs1 core.GPR, imm int32) core.Word {
	return core.Word(opcode) | core.Word(rd)<<7 | funct3<<12 | core.Word(rs1)<<15 |
		(core.Word(imm)&0xfff)<<20
}

func packS(opcode core.Opcode, funct3 core.Word, rs1, rs2 core.GPR, imm int32) core.Word {
	u := core.Word(imm)
	lo := u & 0x1f
	hi := (u >> 5) & 0x7f

	return core.Word(opcode) | lo<<7 | funct3<<12 | core.Word(rs1)<<15 | core.Word(rs2)<<20 | hi<<25
}

func packB(opcode core.Opcode, funct3 core.Word, rs1, rs2 core.GPR, imm int32) core.Word {
	u := core.Word(imm)
	b11 := (u >> 11) & 0x1
	b4_1 := (u >> 1) & 0xf
	b10_5 := (u >> 5) & 0x3f
	b12 := (u >> 12) & 0x1

	return core.Word(opcode) | b11<<7 | b4_1<<8 | funct3<<12 | core.Word(rs1)<<15 |
		core.Word(rs2)<<20 | b10_5<<25 | b12<<31
}

func packU(opcode core.Opcode, rd core.GPR, imm20 int32) core.Word {
	return core.Word(opcode) | core.Word(rd)<<7 | (core.Word(imm20)&0xfffff)<<12
}

func packJ(opcode core.Opcode, rd core.GPR, imm int32) core.Word {
	u := core.Word(imm)
	b19_12 := (u >> 12) & 0xff
	b11 := (u >> 11) & 0x1
	b10_1 := (u >> 1) & 0x3ff
	b20 := (u >> 20) & 0x1

	return core.Word(opcode) | core.Word(rd)<<7 | b19_12<<12 | b11<<20 | b10_1<<21 | b20<<31
}

func (g *Generator) regs(operands []string, n int) ([]core.GPR, error) {
	if len(operands) != n {
		return nil, fmt.Errorf("%w: expected %d operands, got %d", ErrSyntax, n, len(operands))
	}

	out := make([]core.GPR, n)

	for i, o := range operands {
		r, err := parseRegister(o)
		if err != nil {
			return nil, err
		}

		out[i] = r
	}

	return out, nil
}

func (g *Generator) encodeR(spec opSpec, operands []string) (core.Word, error) {
	r, err := g.regs(operands, 3)
	if err != nil {
		return 0, err
	}

	return packR(spec.opcode, r[0], spec.funct3, r[1], r[2], spec.funct7), nil
}

func (g *Generator) encodeI(spec opSpec, operands []string) (core.Word, error) {
	if len(operands) != 3 {
		return 0, fmt.Errorf("%w: expected rd, rs1, imm", ErrSyntax)
	}

	rd, err := parseRegister(operands[0])
	if err != nil {
		return 0, err
	}

	rs1, err := parseRegister(operands[1])
	if err != nil {
		return 0, err
	}

	imm, err := g.resolve(operands[2])
	if err != nil {
		return 0, err
	}

	return packI(spec.opcode, rd, spec.funct3, rs1, int32(imm)), nil
}

func (g *Generator) encodeShift(spec opSpec, operands []string) (core.Word, error) {
	if len(operands) != 3 {
		return 0, fmt.Errorf("%w: expected rd, rs1, shamt", ErrSyntax)
	}

	rd, err := parseRegister(operands[0])
	if err != nil {
		return 0, err
	}

	rs1, err := parseRegister(operands[1])
	if err != nil {
		return 0, err
	}

	shamt, err := parseInt(operands[2])
	if err != nil {
		return 0, fmt.Errorf("%w: shamt: %w", ErrSyntax, err)
	}

	return packI(spec.opcode, rd, spec.funct3, rs1, int32(shamt&0x1f)|int32(spec.funct7)<<5), nil
}

func (g *Generator) encodeLoad(spec opSpec, operands []string) (core.Word, error) {
	if len(operands) != 2 {
		return 0, fmt.Errorf("%w: expected rd, imm(rs1)", ErrSyntax)
	}

	rd, err := parseRegister(operands[0])
	if err != nil {
		return 0, err
	}

	immTok, regTok, ok := splitOffset(operands[1])
	if !ok {
		return 0, fmt.Errorf("%w: expected imm(rs1), got %q", ErrSyntax, operands[1])
	}

	rs1, err := parseRegister(regTok)
	if err != nil {
		return 0, err
	}

	imm, err := g.resolve(immTok)
	if err != nil {
		return 0, err
	}

	return packI(spec.opcode, rd, spec.funct3, rs1, int32(imm)), nil
}

// encodeJALR accepts either "rd, rs1, imm" or "rd, imm(rs1)".
func (g *Generator) encodeJALR(spec opSpec, operands []string) (core.Word, error) {
	switch len(operands) {
	case 2:
		return g.encodeLoad(opSpec{opcode: spec.opcode, funct3: 0}, operands)
	case 3:
		rd, err := parseRegister(operands[0])
		if err != nil {
			return 0, err
		}

		rs1, err := parseRegister(operands[1])
		if err != nil {
			return 0, err
		}

		imm, err := g.resolve(operands[2])
		if err != nil {
			return 0, err
		}

		return packI(spec.opcode, rd, 0, rs1, int32(imm)), nil
	default:
		return 0, fmt.Errorf("%w: expected rd, rs1, imm or rd, imm(rs1)", ErrSyntax)
	}
}

func (g *Generator) encodeStore(spec opSpec, operands []string) (core.Word, error) {
	if len(operands) != 2 {
		return 0, fmt.Errorf("%w: expected rs2, imm(rs1)", ErrSyntax)
	}

	rs2, err := parseRegister(operands[0])
	if err != nil {
		return 0, err
	}

	immTok, regTok, ok := splitOffset(operands[1])
	if !ok {
		return 0, fmt.Errorf("%w: expected imm(rs1), got %q", ErrSyntax, operands[1])
	}

	rs1, err := parseRegister(regTok)
	if err != nil {
		return 0, err
	}

	imm, err := g.resolve(immTok)
	if err != nil {
		return 0, err
	}

	return packS(spec.opcode, spec.funct3, rs1, rs2, int32(imm)), nil
}

func (g *Generator) encodeBranch(spec opSpec, s Stmt) (core.Word, error) {
	if len(s.Operands) != 3 {
		return 0, fmt.Errorf("%w: expected rs1, rs2, label", ErrSyntax)
	}

	rs1, err := parseRegister(s.Operands[0])
	if err != nil {
		return 0, err
	}

	rs2, err := parseRegister(s.Operands[1])
	if err != nil {
		return 0, err
	}

	target, err := g.resolve(s.Operands[2])
	if err != nil {
		return 0, err
	}

	return packB(spec.opcode, spec.funct3, rs1, rs2, int32(target-s.Addr)), nil
}

func (g *Generator) encodeU(spec opSpec, operands []string) (core.Word, error) {
	if len(operands) != 2 {
		return 0, fmt.Errorf("%w: expected rd, imm20", ErrSyntax)
	}

	rd, err := parseRegister(operands[0])
	if err != nil {
		return 0, err
	}

	imm, err := g.resolve(operands[1])
	if err != nil {
		return 0, err
	}

	return packU(spec.opcode, rd, int32(imm)), nil
}

func (g *Generator) encodeJ(spec opSpec, s Stmt) (core.Word, error) {
	if len(s.Operands) != 2 {
		return 0, fmt.Errorf("%w: expected rd, label", ErrSyntax)
	}

	rd, err := parseRegister(s.Operands[0])
	if err != nil {
		return 0, err
	}

	target, err := g.resolve(s.Operands[1])
	if err != nil {
		return 0, err
	}

	return packJ(spec.opcode, rd, int32(target-s.Addr)), nil
}

func (g *Generator) encodeCSR(spec opSpec, operands []string) (core.Word, error) {
	if len(operands) != 3 {
		return 0, fmt.Errorf("%w: expected rd, csr, rs1", ErrSyntax)
	}

	rd, err := parseRegister(operands[0])
	if err != nil {
		return 0, err
	}

	csr, err := parseCSR(operands[1])
	if err != nil {
		return 0, err
	}

	rs1, err := parseRegister(operands[2])
	if err != nil {
		return 0, err
	}

	return packI(spec.opcode, rd, spec.funct3, rs1, int32(csr)), nil
}

func (g *Generator) encodeCSRI(spec opSpec, operands []string) (core.Word, error) {
	if len(operands) != 3 {
		return 0, fmt.Errorf("%w: expected rd, csr, uimm", ErrSyntax)
	}

	rd, err := parseRegister(operands[0])
	if err != nil {
		return 0, err
	}

	csr, err := parseCSR(operands[1])
	if err != nil {
		return 0, err
	}

	uimm, err := parseInt(operands[2])
	if err != nil {
		return 0, fmt.Errorf("%w: uimm: %w", ErrSyntax, err)
	}

	return core.Word(spec.opcode) | core.Word(rd)<<7 | spec.funct3<<12 | (core.Word(uimm)&0x1f)<<15 |
		core.Word(csr)<<20, nil
}

func (g *Generator) encodeAMOLoad(spec opSpec, operands []string) (core.Word, error) {
	if len(operands) != 2 {
		return 0, fmt.Errorf("%w: expected rd, (rs1)", ErrSyntax)
	}

	rd, err := parseRegister(operands[0])
	if err != nil {
		return 0, err
	}

	_, regTok, ok := splitOffset(operands[1])
	if !ok {
		return 0, fmt.Errorf("%w: expected (rs1), got %q", ErrSyntax, operands[1])
	}

	rs1, err := parseRegister(regTok)
	if err != nil {
		return 0, err
	}

	return packR(spec.opcode, rd, spec.funct3, rs1, 0, spec.funct5<<2), nil
}

func (g *Generator) encodeAMORMW(spec opSpec, operands []string) (core.Word, error) {
	if len(operands) != 3 {
		return 0, fmt.Errorf("%w: expected rd, rs2, (rs1)", ErrSyntax)
	}

	rd, err := parseRegister(operands[0])
	if err != nil {
		return 0, err
	}

	rs2, err := parseRegister(operands[1])
	if err != nil {
		return 0, err
	}

	_, regTok, ok := splitOffset(operands[2])
	if !ok {
		return 0, fmt.Errorf("%w: expected (rs1), got %q", ErrSyntax, operands[2])
	}

	rs1, err := parseRegister(regTok)
	if err != nil {
		return 0, err
	}

	return packR(spec.opcode, rd, spec.funct3, rs1, rs2, spec.funct5<<2), nil
}
