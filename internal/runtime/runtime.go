// Package runtime declares the host intrinsics generated programs import and
// provides their reference implementations.
package runtime

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tinyrange/arrayc/internal/ir"
)

// Module is the import namespace every intrinsic lives under.
const Module = "env"

// MemoryName is the name of the imported linear memory.
const MemoryName = "memory"

// Intrinsic names.
const (
	PrintInt    = "print_i64"
	PrintBool   = "print_bool"
	PrintRef    = "print_i32"
	ReadInt     = "input_i64"
	ReportError = "print_err"
)

// Imports returns the intrinsic table in declaration order.
func Imports() []ir.Import {
	return []ir.Import{
		{Module: Module, Name: PrintInt, Params: []ir.ValType{ir.I64}},
		{Module: Module, Name: PrintBool, Params: []ir.ValType{ir.I32}},
		{Module: Module, Name: PrintRef, Params: []ir.ValType{ir.I32}},
		{Module: Module, Name: ReadInt, Results: []ir.ValType{ir.I64}},
		{Module: Module, Name: ReportError, Params: []ir.ValType{ir.I32, ir.I32}},
	}
}

// Host implements the intrinsics over plain streams.
type Host struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader

	scanner *bufio.Scanner
}

// Funcs binds every intrinsic for use with ir.NewMachine.
func (h *Host) Funcs() map[string]ir.HostFunc {
	return map[string]ir.HostFunc{
		PrintInt:    h.printInt,
		PrintBool:   h.printBool,
		PrintRef:    h.printRef,
		ReadInt:     h.readInt,
		ReportError: h.reportError,
	}
}

func (h *Host) printInt(_ []byte, args []uint64) ([]uint64, error) {
	_, err := fmt.Fprintf(h.Stdout, "%d\n", int64(args[0]))
	return nil, err
}

func (h *Host) printBool(_ []byte, args []uint64) ([]uint64, error) {
	s := "False"
	if uint32(args[0]) != 0 {
		s = "True"
	}
	_, err := fmt.Fprintln(h.Stdout, s)
	return nil, err
}

func (h *Host) printRef(_ []byte, args []uint64) ([]uint64, error) {
	_, err := fmt.Fprintf(h.Stdout, "%d\n", int32(uint32(args[0])))
	return nil, err
}

func (h *Host) readInt(_ []byte, _ []uint64) ([]uint64, error) {
	if h.Stdin == nil {
		return nil, fmt.Errorf("runtime: no input stream")
	}
	if h.scanner == nil {
		h.scanner = bufio.NewScanner(h.Stdin)
	}
	for h.scanner.Scan() {
		line := strings.TrimSpace(h.scanner.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("runtime: invalid integer input %q: %w", line, err)
		}
		return []uint64{uint64(v)}, nil
	}
	if err := h.scanner.Err(); err != nil {
		return nil, fmt.Errorf("runtime: read input: %w", err)
	}
	return nil, fmt.Errorf("runtime: unexpected end of input")
}

func (h *Host) reportError(mem []byte, args []uint64) ([]uint64, error) {
	off, n := uint64(uint32(args[0])), uint64(uint32(args[1]))
	if off+n > uint64(len(mem)) {
		return nil, fmt.Errorf("runtime: message at %d+%d is outside memory", off, n)
	}
	_, err := fmt.Fprintf(h.Stderr, "Error: %s\n", mem[off:off+n])
	return nil, err
}
