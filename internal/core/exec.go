package core

// exec.go is the harness-facing run loop built atop Step: it turns the
// per-batch status codes into a context-cancellable error return, the shape
// a CLI command or test driver actually wants instead of polling Step
// itself (spec.md §5: cancellation is cooperative, driven by the count
// argument the harness chooses).

import (
	"context"
	"fmt"
)

// TrapError reports a fatal architectural trap surfaced by Step or Run: one
// of the ten synchronous exception causes this core implements.
type TrapError struct {
	Trap  int32
	PC    Word
	Cause Word
}

func (e *TrapError) Error() string {
	return fmt.Sprintf("core: trap %d (cause %d) at pc %s", e.Trap, e.Cause, e.PC)
}

// Run steps the machine in batches of 1024 instructions until ctx
// is cancelled, the hart halts on the UVM32_SYSCALL_HALT sentinel, or a
// fatal trap occurs. It is a convenience wrapper a harness can use instead
// of driving Step directly; the CLI's run command is one such harness (see
// internal/cli/cmd).
func (m *Machine) Run(ctx context.Context) error {
	const batch = int32(1024)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		status := m.Step(batch)

		switch status {
		case StatusContinue:
			continue
		case StatusWFI:
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				continue
			}
		case StatusECall:
			if m.Reg(A7) == SyscallHalt {
				return nil
			}
			// Not the halt sentinel: advance past the ECALL and resume.
			// A harness wanting to service other syscall numbers itself
			// should drive Step directly instead of Run.
			m.AdvancePC(4)
		default:
			return &TrapError{Trap: status, PC: m.PC, Cause: causeOf(Word(status))}
		}
	}
}
