// exprvm CLI - compiles and runs expressions on the bytecode VM
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/exprvm/compiler"
	"github.com/chazu/exprvm/manifest"
	"github.com/chazu/exprvm/pkg/bytecode"
	"github.com/chazu/exprvm/store"
	"github.com/peterh/liner"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

// Exit codes, following sysexits.h.
const (
	exitOK       = 0
	exitFailure  = 1
	exitDataErr  = 65 // source does not compile
	exitSoftware = 70 // runtime fault
)

const historyFile = ".exprvm_history"

var log = commonlog.GetLogger("exprvm.cli")

func main() {
	expr := flag.String("e", "", "Evaluate an expression and print its value")
	disasm := flag.Bool("d", false, "Print the disassembly of each compiled fragment")
	trace := flag.Bool("trace", false, "Log every executed instruction at debug level")
	configPath := flag.String("config", "", "Path to exprvm.toml (default: search upward from the working directory)")
	useCache := flag.Bool("cache", false, "Cache compiled fragments on disk")
	verbosity := flag.Int("v", manifest.DefaultVerbosity, "Log verbosity (-4 to 5)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: exprvm [options] [files...]\n\n")
		fmt.Fprintf(os.Stderr, "Compiles and evaluates expressions. With no -e and no files, starts a REPL.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  exprvm -e '2 - 6 / 2 + 2 * 4'   # Prints 7\n")
		fmt.Fprintf(os.Stderr, "  exprvm -d -e '\"ab\" + \"cd\"'      # Show bytecode, then the result\n")
		fmt.Fprintf(os.Stderr, "  exprvm prog.expr                # Evaluate a file\n")
		fmt.Fprintf(os.Stderr, "  exprvm -cache prog.expr         # Reuse compiled fragments\n")
	}
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitFailure)
	}

	// Flags given on the command line override the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "d":
			cfg.Compiler.Disassemble = *disasm
		case "trace":
			cfg.VM.Trace = *trace
		case "cache":
			cfg.Cache.Enabled = *useCache
		case "v":
			cfg.Log.Verbosity = *verbosity
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitFailure)
	}

	if logFile := cfg.LogFile(); logFile != "" {
		commonlog.Configure(cfg.Log.Verbosity, &logFile)
	} else {
		commonlog.Configure(cfg.Log.Verbosity, nil)
	}

	ctx := context.Background()
	r, err := newRunner(ctx, cfg, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitFailure)
	}
	defer r.Close()

	code := exitOK
	switch {
	case *expr != "":
		code = r.runSource(ctx, "-e", *expr)
	case flag.NArg() > 0:
		for _, path := range flag.Args() {
			if code = r.runFile(ctx, path); code != exitOK {
				break
			}
		}
	default:
		code = r.repl(ctx)
	}

	r.Close()
	os.Exit(code)
}

// loadConfig reads the file named by path, or searches upward from the
// working directory. With no file found the defaults apply.
func loadConfig(path string) (*manifest.Manifest, error) {
	if path != "" {
		if filepath.Base(path) == manifest.FileName {
			path = filepath.Dir(path)
		}
		return manifest.Load(path)
	}
	cfg, err := manifest.FindAndLoad(".")
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = manifest.Defaults()
	}
	return cfg, nil
}

// runner compiles and executes sources with one configuration.
type runner struct {
	cfg    *manifest.Manifest
	vm     *bytecode.VM
	cache  *store.Store
	out    io.Writer
	disasm bool
}

func newRunner(ctx context.Context, cfg *manifest.Manifest, out io.Writer) (*runner, error) {
	vm := bytecode.NewVMWithStackSize(cfg.VM.StackSize)
	vm.Trace = cfg.VM.Trace

	r := &runner{cfg: cfg, vm: vm, out: out, disasm: cfg.Compiler.Disassemble}
	if cfg.Cache.Enabled {
		cache, err := store.Open(ctx, cfg.CachePath())
		if err != nil {
			return nil, fmt.Errorf("opening fragment cache: %w", err)
		}
		r.cache = cache
	}
	return r, nil
}

// Close releases the cache. It is safe to call more than once.
func (r *runner) Close() {
	if r.cache != nil {
		if err := r.cache.Close(); err != nil {
			log.Errorf("closing fragment cache: %s", err)
		}
		r.cache = nil
	}
}

// compile returns the fragment for source, going through the cache when one
// is open.
func (r *runner) compile(ctx context.Context, source string) (*bytecode.Fragment, error) {
	if r.cache == nil {
		return compiler.CompileSource(source)
	}
	frag, hit, err := r.cache.GetOrCompile(ctx, source, compiler.CompileSource)
	if err != nil {
		return nil, err
	}
	if hit {
		log.Debugf("fragment cache hit for %s", store.Key(source)[:12])
	}
	return frag, nil
}

// eval compiles and runs source, printing the disassembly first if enabled.
func (r *runner) eval(ctx context.Context, name, source string) (bytecode.Value, error) {
	frag, err := r.compile(ctx, source)
	if err != nil {
		return bytecode.Nil, err
	}
	if r.disasm {
		fmt.Fprint(r.out, frag.DisassembleWithName(name))
	}
	return r.vm.Interpret(frag)
}

// runSource evaluates source, prints the result and returns an exit code.
func (r *runner) runSource(ctx context.Context, name, source string) int {
	v, err := r.eval(ctx, name, source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		return exitCode(err)
	}
	fmt.Fprintln(r.out, v.String())
	return exitOK
}

func (r *runner) runFile(ctx context.Context, path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}
	return r.runSource(ctx, path, string(data))
}

// exitCode maps an evaluation error to a process exit code.
func exitCode(err error) int {
	var lexErr *compiler.LexError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &lexErr), errors.Is(err, compiler.ErrCompile):
		return exitDataErr
	case errors.Is(err, bytecode.ErrRuntimeFault):
		return exitSoftware
	default:
		return exitFailure
	}
}

// repl runs an interactive loop until EOF or :quit.
func (r *runner) repl(ctx context.Context) int {
	fmt.Println("exprvm REPL. Type :quit to exit, :disasm to toggle disassembly.")

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	for {
		line, err := ln.Prompt("> ")
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Println()
			return exitOK
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitFailure
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		ln.AppendHistory(input)

		if strings.HasPrefix(input, ":") {
			if r.command(input) {
				return exitOK
			}
			continue
		}

		v, err := r.eval(ctx, "repl", input)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		fmt.Fprintln(r.out, v.Inspect())
	}
}

// command handles a REPL command and reports whether to exit.
func (r *runner) command(input string) (exit bool) {
	switch strings.ToLower(input) {
	case ":quit", ":q":
		return true
	case ":disasm":
		r.disasm = !r.disasm
		fmt.Fprintf(r.out, "disassembly %s\n", onOff(r.disasm))
	default:
		fmt.Fprintf(r.out, "unknown command %s. Type :quit to exit.\n", input)
	}
	return false
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
