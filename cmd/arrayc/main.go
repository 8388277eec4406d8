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

	"github.com/tinyrange/arrayc/internal/assemble"
	"github.com/tinyrange/arrayc/internal/ast"
	"github.com/tinyrange/arrayc/internal/config"
	"github.com/tinyrange/arrayc/internal/ir"
	"github.com/tinyrange/arrayc/internal/runtime"
	"golang.org/x/term"
)

// errTrapped is returned after the program halted on a runtime check. The
// diagnostic has already been written by the program itself.
var errTrapped = errors.New("program trapped")

func main() {
	if err := run(); err != nil {
		if !errors.Is(err, errTrapped) {
			fmt.Fprintf(os.Stderr, "arrayc: %v\n", err)
		}
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to a YAML compiler configuration")
	lang := flag.String("lang", "", "Language tier to accept (array, loop)")
	emit := flag.Bool("emit", false, "Print the module listing instead of running it")
	noColor := flag.Bool("no-color", false, "Disable colored listings")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <program.yaml>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Compile an array-language program for the structured stack machine and run it.\n\n")
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "  %s examples/sum.yaml\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -emit -lang loop examples/count.yaml\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	args := flag.Args()
	if len(args) != 1 {
		flag.Usage()
		return fmt.Errorf("exactly one program file required")
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *lang != "" {
		cfg.Lang = *lang
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	src, err := readProgram(args[0])
	if err != nil {
		return err
	}
	mod, err := ast.Decode(src)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	slog.Debug("Decoded program", "file", args[0], "statements", len(mod.Stmts), "lang", cfg.Lang)

	prog, err := assemble.Assemble(mod, cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	if *emit {
		color := !*noColor && term.IsTerminal(int(os.Stdout.Fd()))
		return writeListing(os.Stdout, prog, color)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return execute(ctx, prog, os.Stdin, os.Stdout, os.Stderr)
}

func readProgram(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read program from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}
	return data, nil
}

func execute(ctx context.Context, prog *ir.Program, stdin io.Reader, stdout, stderr io.Writer) error {
	host := &runtime.Host{Stdout: stdout, Stderr: stderr, Stdin: stdin}
	m, err := ir.NewMachine(prog, host.Funcs())
	if err != nil {
		return fmt.Errorf("load module: %w", err)
	}
	if err := m.Run(ctx); err != nil {
		if ir.IsTrap(err) {
			slog.Debug("Program trapped", "error", err)
			return errTrapped
		}
		return fmt.Errorf("run: %w", err)
	}
	return nil
}
