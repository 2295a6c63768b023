package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/ndouglas/rv32ima/internal/cli"
	"github.com/ndouglas/rv32ima/internal/console"
	"github.com/ndouglas/rv32ima/internal/core"
	"github.com/ndouglas/rv32ima/internal/loader"
	"github.com/ndouglas/rv32ima/internal/log"
)

// Runner is the command that loads a ROM and runs it to completion.
//
//	rv32ima run [-timeout 10s] [-mem 65536] program.bin
func Runner() cli.Command {
	return &runner{}
}

type runner struct {
	memSize int
	timeout time.Duration
}

func (runner) Description() string {
	return "run a ROM image"
}

func (runner) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `run [-mem bytes] [-timeout duration] rom.bin

Load a ROM image into RAM and run it until it halts, traps, or the timeout
elapses. A ROM file beginning with ':' is read as hex-encoded object code
(see internal/encoding); anything else is loaded as a raw binary image at
the machine's RAM base.`)

	return err
}

func (r *runner) FlagSet() *cli.FlagSet {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	fs.IntVar(&r.memSize, "mem", core.DefaultSize, "RAM size in `bytes`")
	fs.DurationVar(&r.timeout, "timeout", 10*time.Second, "give up after `duration`")

	return fs
}

// Run loads the ROM named in args[0] and steps the machine until it halts via the
// UVM32_SYSCALL_HALT convention, traps fatally, is cancelled, or the timeout elapses.
func (r *runner) Run(ctx context.Context, args []string, stdout io.Writer, logger *log.Logger) int {
	if len(args) != 1 {
		logger.Error("run: expected exactly one ROM file argument")
		return 1
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var mmio core.MMIOHandler

	term, err := console.New()
	if err == nil {
		mmio = term
		defer term.Close()
	} else if !errors.Is(err, console.ErrNoTTY) {
		logger.Error("console init failed", "err", err)
		return 1
	} else {
		logger.Debug("no TTY attached; MMIO console disabled")
	}

	machine := core.NewMachine(r.memSize, mmio)

	rom := loader.New(machine)

	n, err := rom.LoadFile(args[0])
	if err != nil {
		logger.Error("load failed", "file", args[0], "err", err)
		return 1
	}

	logger.Debug("loaded ROM", "file", args[0], "bytes", n)

	if err := machine.Run(ctx); err != nil {
		var trap *core.TrapError
		if errors.As(err, &trap) {
			logger.Error("fatal trap", "trap", trap.Trap, "cause", trap.Cause, "pc", trap.PC)
			return 2
		}

		if errors.Is(err, context.DeadlineExceeded) {
			logger.Error("run: timed out", "timeout", r.timeout)
			return 2
		}

		logger.Error("run error", "err", err)

		return 2
	}

	fmt.Fprintf(stdout, "halted: a0=%s\n", machine.Reg(core.A0))

	return 0
}
