package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ndouglas/rv32ima/internal/asm"
	"github.com/ndouglas/rv32ima/internal/cli"
	"github.com/ndouglas/rv32ima/internal/encoding"
	"github.com/ndouglas/rv32ima/internal/log"
)

// Assembler is the command that translates RV32IMA assembly into a hex-encoded object file.
//
//	rv32ima asm -o a.hex file.s
func Assembler() cli.Command {
	return &assembler{output: "a.hex"}
}

type assembler struct {
	output string
}

func (assembler) Description() string {
	return "assemble source into a hex-encoded object file"
}

func (assembler) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `asm [-o file.hex] file.s

Assemble RV32IMA source into object code, written in the Intel-Hex-style
encoding internal/encoding defines.`)

	return err
}

func (a *assembler) FlagSet() *cli.FlagSet {
	fs := flag.NewFlagSet("asm", flag.ExitOnError)
	fs.StringVar(&a.output, "o", "a.hex", "output `filename`")

	return fs
}

// Run assembles args[0] and writes the resulting object code to a.output.
func (a *assembler) Run(_ context.Context, args []string, _ io.Writer, logger *log.Logger) int {
	if len(args) != 1 {
		logger.Error("asm: expected exactly one source file argument")
		return 1
	}

	src, err := os.Open(args[0])
	if err != nil {
		logger.Error("open failed", "file", args[0], "err", err)
		return 1
	}

	objs, err := asm.Assemble(src)
	if err != nil {
		logger.Error("assemble failed", "file", args[0], "err", err)
		return 1
	}

	out, err := os.Create(a.output)
	if err != nil {
		logger.Error("open failed", "out", a.output, "err", err)
		return 1
	}
	defer out.Close()

	hex := encoding.HexEncoding{Code: objs}

	text, err := hex.MarshalText()
	if err != nil {
		logger.Error("encode failed", "err", err)
		return 1
	}

	if _, err := out.Write(text); err != nil {
		logger.Error("write failed", "out", a.output, "err", err)
		return 1
	}

	logger.Debug("assembled", "file", args[0], "out", a.output, "records", len(objs))

	return 0
}
