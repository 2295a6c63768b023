// rv32ima is a RISC-V RV32IMA interpreter and tool suite.
package main

import (
	"context"
	"os"

	"github.com/ndouglas/rv32ima/internal/cli"
	"github.com/ndouglas/rv32ima/internal/cli/cmd"
)

var commands = []cli.Command{
	cmd.Runner(),
	cmd.Assembler(),
}

func main() {
	result :=
		cli.New(context.Background()).
			WithLogger(os.Stderr).
			WithCommands(commands).
			WithHelp(cmd.Help(commands)).
			Execute(os.Args[1:])

	os.Exit(result)
}
