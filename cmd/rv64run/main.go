// Command rv64run loads a 64-bit RISC-V object file and runs it on the
// RV64I core until it halts, traps into an unset vector forever, or
// exhausts its instruction budget.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/wuyijing-dev/RivOS/internal/config"
	"github.com/wuyijing-dev/RivOS/internal/loader"
	"github.com/wuyijing-dev/RivOS/internal/rv64"
)

// exitError carries the process exit code a failure should produce.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func usageError(format string, args ...any) error {
	return &exitError{code: 2, err: fmt.Errorf(format, args...)}
}

func loadError(format string, args ...any) error {
	return &exitError{code: 1, err: fmt.Errorf(format, args...)}
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			fmt.Fprintf(os.Stderr, "rv64run: %v\n", ee.err)
			os.Exit(ee.code)
		}
		fmt.Fprintf(os.Stderr, "rv64run: %v\n", err)
		os.Exit(1)
	}
}

// run is the testable core of the command: it owns its own flag set rather
// than the package-global flag.CommandLine, and writes guest console output
// to stdout instead of reaching for os.Stdout directly, so tests can drive
// it end to end without touching the process's real argv or stdio.
func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("rv64run", flag.ContinueOnError)
	var (
		configPath = fs.String("config", "", "optional YAML machine configuration file")
		logLevel   = fs.String("log-level", "info", "log level: debug, info, warn, error")
		quiet      = fs.Bool("quiet", false, "suppress progress reporting")
	)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: rv64run [flags] <image> [budget]\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return usageError("%w", err)
	}

	level, err := parseLogLevel(*logLevel)
	if err != nil {
		return usageError("%w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	positional := fs.Args()
	if len(positional) < 1 || len(positional) > 2 {
		fs.Usage()
		return usageError("expected 1 or 2 positional arguments, got %d", len(positional))
	}

	cfg := config.Default()
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			return usageError("%w", err)
		}
	}

	budget := cfg.Budget
	if len(positional) == 2 {
		budget, err = parseBudget(positional[1])
		if err != nil {
			return usageError("invalid instruction budget %q: %w", positional[1], err)
		}
	}

	imagePath := positional[0]
	f, err := os.Open(imagePath)
	if err != nil {
		return loadError("open %q: %w", imagePath, err)
	}
	defer f.Close()

	console := &writerConsole{w: stdout}
	machine := rv64.NewMachine(cfg.RAMBase, cfg.RAMSize, cfg.UARTBase, 0, console)

	entry, err := loader.Load(f, loader.Target{Base: cfg.RAMBase, Size: cfg.RAMSize, Bus: machine.Bus})
	if err != nil {
		return loadError("load %q: %w", imagePath, err)
	}
	machine.Hart.PC = entry

	slog.Debug("loaded image", "path", imagePath, "entry", fmt.Sprintf("0x%x", entry), "budget", budget)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	onProgress := newProgressReporter(budget, *quiet)
	executed, err := machine.Run(ctx, budget, onProgress)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	slog.Debug("run finished", "executed", executed, "halted", machine.Hart.Halted)
	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

func parseBudget(s string) (uint64, error) {
	return strconv.ParseUint(s, 0, 64)
}

// writerConsole implements rv64.Console by writing straight through to w.
type writerConsole struct{ w io.Writer }

func (c *writerConsole) WriteByte(b byte) error {
	_, err := c.w.Write([]byte{b})
	return err
}

// newProgressReporter builds the rv64.Machine.Run progress callback: a
// terminal-aware progress bar on stderr, or nothing when quiet or stderr
// isn't a terminal. Purely cosmetic — never touches stdout.
func newProgressReporter(budget uint64, quiet bool) func(executed, budget uint64) {
	if quiet || !term.IsTerminal(int(os.Stderr.Fd())) {
		return nil
	}

	bar := progressbar.NewOptions64(
		int64(budget),
		progressbar.OptionSetDescription("executing"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
	)
	return func(executed, _ uint64) {
		bar.Set64(int64(executed))
	}
}
