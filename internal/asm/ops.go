package asm

import "github.com/ndouglas/rv32ima/internal/core"

// format is the operand shape an instruction's mnemonic expects. It drives both parsing (how
// many operands, what kind) and encoding (which instruction-word bits they fill), mirroring
// internal/core's own choice of tagged dispatch over one type per opcode (spec.md §9): RV32's
// mnemonics fall into a handful of shared shapes, so a table beats 60-some near-identical structs.
type format int

const (
	fmtR       format = iota // rd, rs1, rs2
	fmtI                     // rd, rs1, imm
	fmtShift                 // rd, rs1, shamt (OP-IMM, funct7 selects SLLI/SRLI/SRAI)
	fmtLoad                  // rd, imm(rs1)
	fmtJALR                  // rd, rs1, imm  -- also accepted as rd, imm(rs1)
	fmtStore                 // rs2, imm(rs1)
	fmtBranch                // rs1, rs2, label
	fmtU                     // rd, imm20
	fmtJ                     // rd, label
	fmtFence                 // no operands
	fmtPriv                  // no operands (ecall, ebreak, mret, wfi)
	fmtCSR                   // rd, csr, rs1
	fmtCSRI                  // rd, csr, uimm5
	fmtAMOLoad               // rd, (rs1)          -- lr.w
	fmtAMORMW                // rd, rs2, (rs1)     -- sc.w, amo*.w
)

// opSpec is one mnemonic's encoding: the fixed instruction-word fields that don't come from
// operands.
type opSpec struct {
	fmt    format
	opcode core.Opcode
	funct3 core.Word
	funct7 core.Word // OP/OP-IMM alt bit, or the M-extension marker
	funct5 core.Word // AMO only
	priv   core.Word // SYSTEM/F3PRIV only: the 12-bit selector
}

// ops is the mnemonic table. Every instruction spec.md §4.D and §4.L name is here.
var ops = map[string]opSpec{
	"lui":   {fmt: fmtU, opcode: core.OpLUI},
	"auipc": {fmt: fmtU, opcode: core.OpAUIPC},

	"jal":  {fmt: fmtJ, opcode: core.OpJAL},
	"jalr": {fmt: fmtJALR, opcode: core.OpJALR},

	"beq":  {fmt: fmtBranch, opcode: core.OpBranch, funct3: core.F3BEQ},
	"bne":  {fmt: fmtBranch, opcode: core.OpBranch, funct3: core.F3BNE},
	"blt":  {fmt: fmtBranch, opcode: core.OpBranch, funct3: core.F3BLT},
	"bge":  {fmt: fmtBranch, opcode: core.OpBranch, funct3: core.F3BGE},
	"bltu": {fmt: fmtBranch, opcode: core.OpBranch, funct3: core.F3BLTU},
	"bgeu": {fmt: fmtBranch, opcode: core.OpBranch, funct3: core.F3BGEU},

	"lb":  {fmt: fmtLoad, opcode: core.OpLoad, funct3: core.F3LB},
	"lh":  {fmt: fmtLoad, opcode: core.OpLoad, funct3: core.F3LH},
	"lw":  {fmt: fmtLoad, opcode: core.OpLoad, funct3: core.F3LW},
	"lbu": {fmt: fmtLoad, opcode: core.OpLoad, funct3: core.F3LBU},
	"lhu": {fmt: fmtLoad, opcode: core.OpLoad, funct3: core.F3LHU},

	"sb": {fmt: fmtStore, opcode: core.OpStore, funct3: core.F3SB},
	"sh": {fmt: fmtStore, opcode: core.OpStore, funct3: core.F3SH},
	"sw": {fmt: fmtStore, opcode: core.OpStore, funct3: core.F3SW},

	"addi":  {fmt: fmtI, opcode: core.OpImm, funct3: core.F3ADDSUB},
	"slti":  {fmt: fmtI, opcode: core.OpImm, funct3: core.F3SLT},
	"sltiu": {fmt: fmtI, opcode: core.OpImm, funct3: core.F3SLTU},
	"xori":  {fmt: fmtI, opcode: core.OpImm, funct3: core.F3XOR},
	"ori":   {fmt: fmtI, opcode: core.OpImm, funct3: core.F3OR},
	"andi":  {fmt: fmtI, opcode: core.OpImm, funct3: core.F3AND},

	"slli": {fmt: fmtShift, opcode: core.OpImm, funct3: core.F3SLL},
	"srli": {fmt: fmtShift, opcode: core.OpImm, funct3: core.F3SRLSRA},
	"srai": {fmt: fmtShift, opcode: core.OpImm, funct3: core.F3SRLSRA, funct7: 0x20},

	"add":  {fmt: fmtR, opcode: core.OpReg, funct3: core.F3ADDSUB},
	"sub":  {fmt: fmtR, opcode: core.OpReg, funct3: core.F3ADDSUB, funct7: 0x20},
	"sll":  {fmt: fmtR, opcode: core.OpReg, funct3: core.F3SLL},
	"slt":  {fmt: fmtR, opcode: core.OpReg, funct3: core.F3SLT},
	"sltu": {fmt: fmtR, opcode: core.OpReg, funct3: core.F3SLTU},
	"xor":  {fmt: fmtR, opcode: core.OpReg, funct3: core.F3XOR},
	"srl":  {fmt: fmtR, opcode: core.OpReg, funct3: core.F3SRLSRA},
	"sra":  {fmt: fmtR, opcode: core.OpReg, funct3: core.F3SRLSRA, funct7: 0x20},
	"or":   {fmt: fmtR, opcode: core.OpReg, funct3: core.F3OR},
	"and":  {fmt: fmtR, opcode: core.OpReg, funct3: core.F3AND},

	"mul":    {fmt: fmtR, opcode: core.OpReg, funct3: core.F3MUL, funct7: 0x01},
	"mulh":   {fmt: fmtR, opcode: core.OpReg, funct3: core.F3MULH, funct7: 0x01},
	"mulhsu": {fmt: fmtR, opcode: core.OpReg, funct3: core.F3MULHSU, funct7: 0x01},
	"mulhu":  {fmt: fmtR, opcode: core.OpReg, funct3: core.F3MULHU, funct7: 0x01},
	"div":    {fmt: fmtR, opcode: core.OpReg, funct3: core.F3DIV, funct7: 0x01},
	"divu":   {fmt: fmtR, opcode: core.OpReg, funct3: core.F3DIVU, funct7: 0x01},
	"rem":    {fmt: fmtR, opcode: core.OpReg, funct3: core.F3REM, funct7: 0x01},
	"remu":   {fmt: fmtR, opcode: core.OpReg, funct3: core.F3REMU, funct7: 0x01},

	"fence": {fmt: fmtFence, opcode: core.OpMiscMem},

	"ecall":  {fmt: fmtPriv, opcode: core.OpSystem, priv: core.PrivECALL},
	"ebreak": {fmt: fmtPriv, opcode: core.OpSystem, priv: core.PrivEBREAK},
	"mret":   {fmt: fmtPriv, opcode: core.OpSystem, priv: core.PrivMRET},
	"wfi":    {fmt: fmtPriv, opcode: core.OpSystem, priv: core.PrivWFI},

	"csrrw": {fmt: fmtCSR, opcode: core.OpSystem, funct3: core.F3CSRRW},
	"csrrs": {fmt: fmtCSR, opcode: core.OpSystem, funct3: core.F3CSRRS},
	"csrrc": {fmt: fmtCSR, opcode: core.OpSystem, funct3: core.F3CSRRC},

	"csrrwi": {fmt: fmtCSRI, opcode: core.OpSystem, funct3: core.F3CSRRWI},
	"csrrsi": {fmt: fmtCSRI, opcode: core.OpSystem, funct3: core.F3CSRRSI},
	"csrrci": {fmt: fmtCSRI, opcode: core.OpSystem, funct3: core.F3CSRRCI},

	"lr.w": {fmt: fmtAMOLoad, opcode: core.OpAMO, funct3: core.F3LW, funct5: core.Funct5LR},
	"sc.w": {fmt: fmtAMORMW, opcode: core.OpAMO, funct3: core.F3LW, funct5: core.Funct5SC},

	"amoswap.w": {fmt: fmtAMORMW, opcode: core.OpAMO, funct3: core.F3LW, funct5: core.Funct5AMOSWAP},
	"amoadd.w":  {fmt: fmtAMORMW, opcode: core.OpAMO, funct3: core.F3LW, funct5: core.Funct5AMOADD},
	"amoxor.w":  {fmt: fmtAMORMW, opcode: core.OpAMO, funct3: core.F3LW, funct5: core.Funct5AMOXOR},
	"amoand.w":  {fmt: fmtAMORMW, opcode: core.OpAMO, funct3: core.F3LW, funct5: core.Funct5AMOAND},
	"amoor.w":   {fmt: fmtAMORMW, opcode: core.OpAMO, funct3: core.F3LW, funct5: core.Funct5AMOOR},
	"amomin.w":  {fmt: fmtAMORMW, opcode: core.OpAMO, funct3: core.F3LW, funct5: core.Funct5AMOMIN},
	"amomax.w":  {fmt: fmtAMORMW, opcode: core.OpAMO, funct3: core.F3LW, funct5: core.Funct5AMOMAX},
	"amominu.w": {fmt: fmtAMORMW, opcode: core.OpAMO, funct3: core.F3LW, funct5: core.Funct5AMOMINU},
	"amomaxu.w": {fmt: fmtAMORMW, opcode: core.OpAMO, funct3: core.F3LW, funct5: core.Funct5AMOMAXU},
}
