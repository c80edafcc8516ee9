// Package cliapp implements the loxvm command-line front end: a REPL when
// invoked with no arguments, or a script runner when given a single file
// path, following the reference implementation's argv convention and exit
// codes (0 success, 64 usage, 65 a compile-time error, 70 a runtime error).
package cliapp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mna/mainer"
	"github.com/rs/zerolog"

	"github.com/loxlang/loxvm/internal/config"
	"github.com/loxlang/loxvm/lang/compiler"
	"github.com/loxlang/loxvm/lang/vm"
)

const binName = "loxvm"

const (
	exitUsage     mainer.ExitCode = 64
	exitDataError mainer.ExitCode = 65
	exitSoftware  mainer.ExitCode = 70
)

var longUsage = fmt.Sprintf(`usage: %s [script]
       %[1]s -h|--help
       %[1]s -v|--version

With no arguments, starts an interactive REPL. With one argument, runs the
script at that path and exits.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
`, binName)

// Cmd is the entry point mainer.Parser populates from argv and environment
// variables, mirroring the shape of the reference toolchain's own Cmd.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	args []string
}

func (c *Cmd) SetArgs(args []string) { c.args = args }
func (c *Cmd) SetFlags(map[string]bool) {}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) > 1 {
		return fmt.Errorf("expected at most one script argument, got %d", len(c.args))
	}
	return nil
}

// Main runs the CLI and returns the process exit code.
func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{EnvVars: true, EnvPrefix: "LOXVM_"}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, longUsage)
		return exitUsage
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "loading configuration: %s\n", err)
		return exitSoftware
	}
	log := newLogger(stdio.Stderr, cfg.LogLevel)

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)

	if len(c.args) == 0 {
		runREPL(ctx, stdio, cfg, log)
		return mainer.Success
	}

	return runFile(stdio, cfg, log, c.args[0])
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.WarnLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

func runREPL(ctx context.Context, stdio mainer.Stdio, cfg config.Config, log zerolog.Logger) {
	heap := vm.NewHeap(cfg, log)
	machine := vm.New(heap, stdio.Stdout, cfg)

	scanner := bufio.NewScanner(stdio.Stdin)
	for {
		fmt.Fprint(stdio.Stdout, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(stdio.Stdout)
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := scanner.Text()
		if line == "" {
			continue
		}
		if err := interpret(heap, machine, line); err != nil {
			fmt.Fprintln(stdio.Stderr, err)
		}
	}
}

func runFile(stdio mainer.Stdio, cfg config.Config, log zerolog.Logger, path string) mainer.ExitCode {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "cannot read '%s': %s\n", path, err)
		return exitDataError
	}

	heap := vm.NewHeap(cfg, log)
	machine := vm.New(heap, stdio.Stdout, cfg)

	fn, err := compiler.Compile(string(source), heap)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return exitDataError
	}
	if err := machine.Interpret(fn); err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return exitSoftware
	}
	return mainer.Success
}

func interpret(heap *vm.Heap, machine *vm.VM, source string) error {
	fn, err := compiler.Compile(source, heap)
	if err != nil {
		return err
	}
	return machine.Interpret(fn)
}
