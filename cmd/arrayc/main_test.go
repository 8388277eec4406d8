package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/tinyrange/arrayc/internal/assemble"
	"github.com/tinyrange/arrayc/internal/ast"
	"github.com/tinyrange/arrayc/internal/config"
	"github.com/tinyrange/arrayc/internal/ir"
)

func build(t *testing.T, src string) *ir.Program {
	t.Helper()
	mod, err := ast.Decode([]byte(src))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	prog, err := assemble.Assemble(mod, config.Default())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	return prog
}

func TestExecute(t *testing.T) {
	prog := build(t, `
- assign: n
  value: {call: input_int}
- assign: a
  value: {array: {len: n, fill: 2}}
- expr: {call: print, args: [{mul: [{call: len, args: [a]}, {index: [a, 0]}]}]}
`)
	var stdout, stderr bytes.Buffer
	if err := execute(context.Background(), prog, strings.NewReader("4\n"), &stdout, &stderr); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if stdout.String() != "8\n" {
		t.Fatalf("stdout %q", stdout.String())
	}

	stdout.Reset()
	err := execute(context.Background(), prog, strings.NewReader("0\n"), &stdout, &stderr)
	if !errors.Is(err, errTrapped) {
		t.Fatalf("expected trap, got %v", err)
	}
	if stderr.String() != "Error: IndexError\n" {
		t.Fatalf("stderr %q", stderr.String())
	}
}

func TestListingColor(t *testing.T) {
	prog := build(t, `[{expr: {call: print, args: [{index: [{array: [1]}, 0]}]}}]`)

	var plain, colored bytes.Buffer
	if err := writeListing(&plain, prog, false); err != nil {
		t.Fatalf("plain listing: %v", err)
	}
	if err := writeListing(&colored, prog, true); err != nil {
		t.Fatalf("colored listing: %v", err)
	}
	if strings.Contains(plain.String(), "\x1b[") {
		t.Fatalf("plain listing contains escape sequences")
	}
	if !strings.Contains(colored.String(), "\x1b[") {
		t.Fatalf("colored listing has no escape sequences")
	}
	if got := ansi.Strip(colored.String()); got != plain.String() {
		t.Fatalf("stripping colours must give the plain listing:\n%s\nwant:\n%s", got, plain.String())
	}
}

func TestHighlight(t *testing.T) {
	tests := []struct {
		line   string
		styled bool
	}{
		{"    i64.const 5", true},
		{"    call $print_i64", true},
		{"    local.get $x", true},
		{"    br_if $while_exit_1", true},
		{"    unreachable", true},
		{"  (func $main (export \"main\")", true},
		{"    i64.add", false},
		{"", false},
	}
	for _, tt := range tests {
		got := highlight(tt.line)
		if styled := got != tt.line; styled != tt.styled {
			t.Errorf("highlight(%q) styled=%v, want %v", tt.line, styled, tt.styled)
		}
		if ansi.Strip(got) != tt.line {
			t.Errorf("highlight(%q) changed the text: %q", tt.line, ansi.Strip(got))
		}
	}
}

func TestExamples(t *testing.T) {
	tests := []struct {
		file   string
		lang   string
		stdin  string
		stdout string
		stderr string
		trap   bool
	}{
		{file: "sum.yaml", stdin: "4\n", stdout: "12\n"},
		{file: "matrix.yaml", stdout: "30\n7\nFalse\n"},
		{file: "count.yaml", lang: config.LangLoop, stdin: "3\n", stdout: "3\n2\n1\n"},
		{file: "bounds.yaml", stderr: "Error: IndexError\n", trap: true},
	}

	cfg, err := config.Load(filepath.Join("..", "..", "examples", "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			src, err := os.ReadFile(filepath.Join("..", "..", "examples", tt.file))
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			mod, err := ast.Decode(src)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			c := cfg
			if tt.lang != "" {
				c.Lang = tt.lang
			}
			prog, err := assemble.Assemble(mod, c)
			if err != nil {
				t.Fatalf("Assemble: %v", err)
			}

			var stdout, stderr bytes.Buffer
			err = execute(context.Background(), prog, strings.NewReader(tt.stdin), &stdout, &stderr)
			if tt.trap != errors.Is(err, errTrapped) {
				t.Fatalf("execute: %v", err)
			}
			if !tt.trap && err != nil {
				t.Fatalf("execute: %v", err)
			}
			if stdout.String() != tt.stdout {
				t.Errorf("stdout %q, want %q", stdout.String(), tt.stdout)
			}
			if stderr.String() != tt.stderr {
				t.Errorf("stderr %q, want %q", stderr.String(), tt.stderr)
			}
		})
	}
}
