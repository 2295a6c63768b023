package asm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ndouglas/rv32ima/internal/core"
	"github.com/ndouglas/rv32ima/internal/log"
)

// ErrSyntax is the sentinel wrapped by every parse error this package returns.
var ErrSyntax = errors.New("asm: syntax error")

// SymbolTable maps a label to the address it names.
type SymbolTable map[string]core.Word

// stmtKind distinguishes the handful of things a line can produce.
type stmtKind int

const (
	stmtInstr stmtKind = iota
	stmtWord           // .word: operands may be labels, resolved in pass 2
	stmtBytes          // .byte/.ascii/.asciz/.align: bytes are already known in pass 1
)

// Stmt is one assembled unit: an instruction or a data directive, at a fixed address.
type Stmt struct {
	Addr     core.Word
	Line     int
	Text     string
	Kind     stmtKind
	Mnemonic string
	Operands []string
	Bytes    []byte
}

// Parser performs the first pass over source: it tracks location, builds the symbol table, and
// produces the statement list a Generator resolves and encodes in the second pass. It does not
// itself compute instruction words — operand resolution needs the complete symbol table, which
// only exists once every line has been seen.
type Parser struct {
	pc      core.Word
	symbols SymbolTable
	stmts   []Stmt
	errs    []error
	log     *log.Logger
}

// NewParser creates a parser with RAM base as the default origin.
func NewParser() *Parser {
	return &Parser{
		pc:      core.RAMBase,
		symbols: make(SymbolTable),
		log:     log.DefaultLogger(),
	}
}

// Symbols returns the symbol table accumulated so far.
func (p *Parser) Symbols() SymbolTable { return p.symbols }

// Statements returns the parsed statement list.
func (p *Parser) Statements() []Stmt { return p.stmts }

// Err returns every syntax error accumulated during Parse, joined, or nil if there were none.
func (p *Parser) Err() error {
	return errors.Join(p.errs...)
}

// Parse reads source from in, which the parser takes ownership of and closes.
func (p *Parser) Parse(in io.ReadCloser) {
	defer func() { _ = in.Close() }()

	lines := bufio.NewScanner(in)

	for lineNo := 1; lines.Scan(); lineNo++ {
		p.parseLine(lineNo, lines.Text())
	}
}

func (p *Parser) syntaxError(lineNo int, text string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%w: line %d: %q: %w", ErrSyntax, lineNo, text, err))
}

func (p *Parser) parseLine(lineNo int, line string) {
	text := line
	rest := stripComment(line)
	rest = strings.TrimSpace(rest)

	if rest == "" {
		return
	}

	if label, remain, ok := splitLabel(rest); ok {
		p.symbols[label] = p.pc
		rest = strings.TrimSpace(remain)
	}

	if rest == "" {
		return
	}

	if rest[0] == '.' {
		if err := p.parseDirective(lineNo, text, rest); err != nil {
			p.syntaxError(lineNo, text, err)
		}

		return
	}

	mnemonic, operands := splitInstruction(rest)
	mnemonic = strings.ToLower(mnemonic)

	if _, ok := ops[mnemonic]; !ok {
		p.syntaxError(lineNo, text, fmt.Errorf("%w: unknown mnemonic %q", ErrSyntax, mnemonic))
		return
	}

	p.stmts = append(p.stmts, Stmt{
		Addr: p.pc, Line: lineNo, Text: text,
		Kind: stmtInstr, Mnemonic: mnemonic, Operands: operands,
	})
	p.pc += 4
}

// parseDirective handles .org, .word, .byte, .ascii, .asciz, and .align.
func (p *Parser) parseDirective(lineNo int, text, rest string) error {
	name, operands := splitInstruction(rest)
	name = strings.ToLower(strings.TrimPrefix(name, "."))

	switch name {
	case "org":
		if len(operands) != 1 {
			return fmt.Errorf("%w: .org takes one operand", ErrSyntax)
		}

		addr, err := parseInt(operands[0])
		if err != nil {
			return fmt.Errorf("%w: .org: %w", ErrSyntax, err)
		}

		p.pc = core.Word(addr)

		return nil

	case "word":
		p.stmts = append(p.stmts, Stmt{
			Addr: p.pc, Line: lineNo, Text: text,
			Kind: stmtWord, Operands: operands,
		})
		p.pc += core.Word(4 * len(operands))

		return nil

	case "byte":
		data := make([]byte, 0, len(operands))

		for _, op := range operands {
			v, err := parseInt(op)
			if err != nil {
				return fmt.Errorf("%w: .byte: %w", ErrSyntax, err)
			}

			data = append(data, byte(v))
		}

		p.emitBytes(lineNo, text, data)

		return nil

	case "ascii", "asciz", "string":
		s, err := parseQuoted(rest)
		if err != nil {
			return err
		}

		data := []byte(s)
		if name != "ascii" {
			data = append(data, 0)
		}

		p.emitBytes(lineNo, text, data)

		return nil

	case "align":
		if len(operands) != 1 {
			return fmt.Errorf("%w: .align takes one operand", ErrSyntax)
		}

		n, err := parseInt(operands[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: .align: %w", ErrSyntax, err)
		}

		align := core.Word(n)
		if rem := p.pc % align; rem != 0 {
			pad := align - rem
			p.emitBytes(lineNo, text, make([]byte, pad))
		}

		return nil

	default:
		return fmt.Errorf("%w: unknown directive %q", ErrSyntax, name)
	}
}

func (p *Parser) emitBytes(lineNo int, text string, data []byte) {
	p.stmts = append(p.stmts, Stmt{
		Addr: p.pc, Line: lineNo, Text: text,
		Kind: stmtBytes, Bytes: data,
	})
	p.pc += core.Word(len(data))
}

// stripComment removes a trailing '#' or ';' comment, ignoring either character inside a
// double-quoted string.
func stripComment(line string) string {
	inQuote := false

	for i, r := range line {
		switch r {
		case '"':
			inQuote = !inQuote
		case '#', ';':
			if !inQuote {
				return line[:i]
			}
		}
	}

	return line
}

// splitLabel recognizes a leading "label:" and returns the label and the remainder of the line.
func splitLabel(line string) (label, remain string, ok bool) {
	i := strings.IndexByte(line, ':')
	if i < 0 {
		return "", line, false
	}

	candidate := strings.TrimSpace(line[:i])
	if candidate == "" || !isIdent(candidate) {
		return "", line, false
	}

	return candidate, line[i+1:], true
}

func isIdent(s string) bool {
	for i, r := range s {
		switch {
		case r == '_' || r == '.':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}

	return s != ""
}

// splitInstruction splits "mnemonic op1, op2, op3" into the mnemonic and trimmed operand list.
func splitInstruction(rest string) (string, []string) {
	fields := strings.SplitN(rest, " ", 2)
	mnemonic := fields[0]

	if mnemonic == "" {
		return "", nil
	}

	if len(fields) == 1 || strings.TrimSpace(fields[1]) == "" {
		return mnemonic, nil
	}

	parts := strings.Split(fields[1], ",")
	operands := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			operands = append(operands, p)
		}
	}

	return mnemonic, operands
}

// parseQuoted extracts the double-quoted string argument of a .ascii/.asciz/.string directive,
// interpreting the common backslash escapes.
func parseQuoted(rest string) (string, error) {
	start := strings.IndexByte(rest, '"')
	end := strings.LastIndexByte(rest, '"')

	if start < 0 || end <= start {
		return "", fmt.Errorf("%w: expected a quoted string", ErrSyntax)
	}

	raw := rest[start+1 : end]

	var b strings.Builder

	for i := 0; i < len(raw); i++ {
		if raw[i] == '\\' && i+1 < len(raw) {
			i++

			switch raw[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '0':
				b.WriteByte(0)
			default:
				b.WriteByte(raw[i])
			}

			continue
		}

		b.WriteByte(raw[i])
	}

	return b.String(), nil
}

// splitOffset parses an "imm(reg)" operand, as used by loads, stores, and jalr.
func splitOffset(operand string) (imm string, reg string, ok bool) {
	open := strings.IndexByte(operand, '(')
	if open < 0 || !strings.HasSuffix(operand, ")") {
		return "", "", false
	}

	return strings.TrimSpace(operand[:open]), strings.TrimSpace(operand[open+1 : len(operand)-1]), true
}
