package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ndouglas/rv32ima/internal/asm"
	"github.com/ndouglas/rv32ima/internal/log"
)

func assembleToFile(t *testing.T, dir, src string) string {
	t.Helper()

	objs, err := asm.Assemble(io.NopCloser(strings.NewReader(src)))
	if err != nil {
		t.Fatalf("asm.Assemble: %v", err)
	}

	fn := filepath.Join(dir, "prog.bin")

	var buf bytes.Buffer
	for _, obj := range objs {
		buf.Write(obj.Code)
	}

	if err := os.WriteFile(fn, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	return fn
}

func TestRunnerHalts(t *testing.T) {
	dir := t.TempDir()

	fn := assembleToFile(t, dir, `
		.org 0x80000000
		lui  x17, 0x1000
		addi x10, x0, 7
		ecall
	`)

	r := Runner()
	fs := r.FlagSet()
	if err := fs.Parse([]string{"-timeout", "2s", fn}); err != nil {
		t.Fatalf("FlagSet.Parse: %v", err)
	}

	var stdout bytes.Buffer
	if code := r.Run(context.Background(), fs.Args(), &stdout, log.DefaultLogger()); code != 0 {
		t.Fatalf("Run = %d, want 0, stdout = %q", code, stdout.String())
	}

	if !strings.Contains(stdout.String(), "halted") {
		t.Errorf("stdout = %q, want a halt message", stdout.String())
	}
}

func TestRunnerMissingArg(t *testing.T) {
	r := Runner()

	var stdout bytes.Buffer
	if code := r.Run(context.Background(), nil, &stdout, log.DefaultLogger()); code == 0 {
		t.Fatal("Run with no ROM argument should fail")
	}
}

func TestRunnerLoadFailure(t *testing.T) {
	r := Runner()
	fs := r.FlagSet()
	if err := fs.Parse([]string{"/nonexistent/rom.bin"}); err != nil {
		t.Fatalf("FlagSet.Parse: %v", err)
	}

	var stdout bytes.Buffer
	if code := r.Run(context.Background(), fs.Args(), &stdout, log.DefaultLogger()); code == 0 {
		t.Fatal("Run with a missing ROM file should fail")
	}
}
