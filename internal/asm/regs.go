package asm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ndouglas/rv32ima/internal/core"
)

// abiNames maps the ABI register names to their xN index, mirroring the names the RISC-V
// calling convention gives each of the 32 general-purpose registers.
var abiNames = map[string]core.GPR{
	"zero": 0, "ra": 1, "sp": 2, "gp": 3, "tp": 4,
	"t0": 5, "t1": 6, "t2": 7,
	"s0": 8, "fp": 8, "s1": 9,
	"a0": 10, "a1": 11, "a2": 12, "a3": 13, "a4": 14, "a5": 15, "a6": 16, "a7": 17,
	"s2": 18, "s3": 19, "s4": 20, "s5": 21, "s6": 22, "s7": 23, "s8": 24, "s9": 25,
	"s10": 26, "s11": 27,
	"t3": 28, "t4": 29, "t5": 30, "t6": 31,
}

// parseRegister accepts either an ABI name (ra, sp, a0, ...) or the raw xN form.
func parseRegister(tok string) (core.GPR, error) {
	tok = strings.ToLower(strings.TrimSpace(tok))

	if r, ok := abiNames[tok]; ok {
		return r, nil
	}

	if strings.HasPrefix(tok, "x") {
		n, err := strconv.Atoi(tok[1:])
		if err == nil && n >= 0 && n < core.NGP {
			return core.GPR(n), nil
		}
	}

	return 0, fmt.Errorf("%w: not a register: %q", ErrSyntax, tok)
}

// csrNames maps the symbolic CSR names spec.md §3 lists to their addresses, so source doesn't
// need to spell out "0x300" for mstatus.
var csrNames = map[string]core.CSRAddr{
	"mstatus":   core.CSRMStatus,
	"misa":      core.CSRMISA,
	"mie":       core.CSRMIE,
	"mtvec":     core.CSRMTVec,
	"mscratch":  core.CSRMScratch,
	"mepc":      core.CSRMEPC,
	"mcause":    core.CSRMCause,
	"mtval":     core.CSRMTVal,
	"mip":       core.CSRMIP,
	"mvendorid": core.CSRMVendorID,
}

// parseCSR accepts a symbolic CSR name or a numeric address.
func parseCSR(tok string) (core.CSRAddr, error) {
	tok = strings.ToLower(strings.TrimSpace(tok))

	if addr, ok := csrNames[tok]; ok {
		return addr, nil
	}

	n, err := parseInt(tok)
	if err != nil {
		return 0, fmt.Errorf("%w: not a CSR: %q", ErrSyntax, tok)
	}

	return core.CSRAddr(n), nil
}

// parseInt parses a decimal or 0x-prefixed hex integer, signed.
func parseInt(tok string) (int64, error) {
	tok = strings.TrimSpace(tok)
	return strconv.ParseInt(tok, 0, 64)
}
