package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/exprvm/compiler"
	"github.com/chazu/exprvm/manifest"
	"github.com/chazu/exprvm/pkg/bytecode"
)

func newTestRunner(t *testing.T, cfg *manifest.Manifest) (*runner, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	r, err := newRunner(context.Background(), cfg, &out)
	if err != nil {
		t.Fatalf("newRunner failed: %v", err)
	}
	t.Cleanup(r.Close)
	return r, &out
}

func TestRunSource(t *testing.T) {
	r, out := newTestRunner(t, manifest.Defaults())

	if code := r.runSource(context.Background(), "-e", "2 - 6 / 2 + 2 * 4 ;"); code != exitOK {
		t.Fatalf("runSource exit = %d, want 0", code)
	}
	if got := strings.TrimSpace(out.String()); got != "7" {
		t.Errorf("output = %q, want 7", got)
	}
}

func TestRunSourceExitCodes(t *testing.T) {
	r, _ := newTestRunner(t, manifest.Defaults())
	ctx := context.Background()

	tests := []struct {
		source string
		want   int
	}{
		{`2 + "a"`, exitDataErr},
		{"1 + x", exitDataErr},
		{`(1) + "a"`, exitSoftware},
		{`"ok"`, exitOK},
	}
	for _, tt := range tests {
		if got := r.runSource(ctx, "test", tt.source); got != tt.want {
			t.Errorf("runSource(%q) = %d, want %d", tt.source, got, tt.want)
		}
	}
}

func TestExitCode(t *testing.T) {
	if got := exitCode(nil); got != exitOK {
		t.Errorf("exitCode(nil) = %d", got)
	}
	if got := exitCode(&bytecode.RuntimeFault{Kind: bytecode.FaultStackUnderflow}); got != exitSoftware {
		t.Errorf("exitCode(fault) = %d, want %d", got, exitSoftware)
	}
	if got := exitCode(&compiler.CompileError{Message: "x"}); got != exitDataErr {
		t.Errorf("exitCode(compile) = %d, want %d", got, exitDataErr)
	}
	if got := exitCode(errors.New("disk full")); got != exitFailure {
		t.Errorf("exitCode(other) = %d, want %d", got, exitFailure)
	}
}

func TestDisassemblyOutput(t *testing.T) {
	cfg := manifest.Defaults()
	cfg.Compiler.Disassemble = true
	r, out := newTestRunner(t, cfg)

	r.runSource(context.Background(), "-e", `"ab" + "cd"`)
	output := out.String()
	for _, want := range []string{"; === -e ===", "PUSH_STRING 1", "ADD", "abcd"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestRunFile(t *testing.T) {
	r, out := newTestRunner(t, manifest.Defaults())
	path := filepath.Join(t.TempDir(), "prog.expr")
	if err := os.WriteFile(path, []byte("// comment\n(2*3 + (2+3)) * ((2+4) * 2) ;\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if code := r.runFile(context.Background(), path); code != exitOK {
		t.Fatalf("runFile exit = %d", code)
	}
	if got := strings.TrimSpace(out.String()); got != "132" {
		t.Errorf("output = %q, want 132", got)
	}
	if code := r.runFile(context.Background(), filepath.Join(t.TempDir(), "missing")); code != exitFailure {
		t.Errorf("runFile(missing) = %d, want %d", code, exitFailure)
	}
}

func TestRunnerWithCache(t *testing.T) {
	cfg := manifest.Defaults()
	cfg.Cache.Enabled = true
	cfg.Cache.Path = filepath.Join(t.TempDir(), "cache.db")
	r, out := newTestRunner(t, cfg)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if code := r.runSource(ctx, "-e", "1 + 2"); code != exitOK {
			t.Fatalf("run %d exit = %d", i, code)
		}
	}
	if got := out.String(); got != "3\n3\n" {
		t.Errorf("output = %q", got)
	}

	entries, err := r.cache.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("cache holds %d entries, want 1", len(entries))
	}
}

func TestRunnerStackSize(t *testing.T) {
	cfg := manifest.Defaults()
	cfg.VM.StackSize = 2
	r, _ := newTestRunner(t, cfg)

	// 1 + (2 + 3) needs three slots.
	if code := r.runSource(context.Background(), "-e", "1 + (2 + 3)"); code != exitSoftware {
		t.Errorf("exit = %d, want stack overflow (%d)", code, exitSoftware)
	}
}

func TestReplCommands(t *testing.T) {
	r, out := newTestRunner(t, manifest.Defaults())

	if r.command(":disasm") {
		t.Error(":disasm should not exit")
	}
	if !r.disasm {
		t.Error(":disasm did not enable disassembly")
	}
	if !strings.Contains(out.String(), "disassembly on") {
		t.Errorf("output = %q", out.String())
	}
	if r.command(":nope") {
		t.Error("unknown command should not exit")
	}
	if !r.command(":quit") {
		t.Error(":quit should exit")
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	content := "[vm]\nstack-size = 16\n"
	if err := os.WriteFile(filepath.Join(dir, manifest.FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{dir, filepath.Join(dir, manifest.FileName)} {
		cfg, err := loadConfig(path)
		if err != nil {
			t.Fatalf("loadConfig(%q) failed: %v", path, err)
		}
		if cfg.VM.StackSize != 16 {
			t.Errorf("loadConfig(%q) stack-size = %d, want 16", path, cfg.VM.StackSize)
		}
	}
}
