package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/ndouglas/rv32ima/internal/cli"
	"github.com/ndouglas/rv32ima/internal/log"
)

func TestHelpUsageListsCommands(t *testing.T) {
	cmds := []cli.Command{Assembler(), Runner()}
	h := Help(cmds)

	var out bytes.Buffer
	if err := h.Usage(&out); err != nil {
		t.Fatalf("Usage: %v", err)
	}

	for _, c := range cmds {
		if !strings.Contains(out.String(), c.FlagSet().Name()) {
			t.Errorf("usage text missing command %q:\n%s", c.FlagSet().Name(), out.String())
		}
	}
}

func TestHelpRunForUnknownCommandFallsBackToUsage(t *testing.T) {
	h := Help([]cli.Command{Assembler()})

	var out bytes.Buffer
	if code := h.Run(context.Background(), []string{"bogus"}, &out, log.DefaultLogger()); code != 0 {
		t.Fatalf("Run = %d, want 0", code)
	}

	if !strings.Contains(out.String(), "Usage:") {
		t.Errorf("expected top-level usage text, got:\n%s", out.String())
	}
}
