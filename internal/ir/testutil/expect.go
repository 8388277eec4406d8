package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/tinyrange/arrayc/internal/ir"
)

// Expectation describes a single instruction that should appear in a
// rendered block.
type Expectation struct {
	Name     string
	Mnemonic string
	Contains []string
}

// Is builds an expectation matching one exact mnemonic.
func Is(mnemonic string) Expectation {
	return Expectation{Name: mnemonic, Mnemonic: mnemonic}
}

// Seq builds exact expectations for a run of mnemonics.
func Seq(mnemonics ...string) []Expectation {
	out := make([]Expectation, len(mnemonics))
	for i, m := range mnemonics {
		out[i] = Is(m)
	}
	return out
}

func (e Expectation) match(line ir.Line) error {
	if e.Mnemonic != "" && line.Text != e.Mnemonic {
		return fmt.Errorf("mnemonic=%s, want %s", line.Text, e.Mnemonic)
	}
	for _, needle := range e.Contains {
		if !strings.Contains(line.Text, needle) {
			return fmt.Errorf("missing %q in %q", needle, line.Text)
		}
	}
	return nil
}

// VerifyExpectations ensures each expectation is satisfied in order starting
// at the first line. Lines after the last expectation are ignored.
func VerifyExpectations(t *testing.T, lines []ir.Line, expect []Expectation) {
	t.Helper()
	if len(lines) < len(expect) {
		t.Fatalf("listing has %d instructions, want at least %d\n%s", len(lines), len(expect), render(lines))
	}
	for idx, exp := range expect {
		if err := exp.match(lines[idx]); err != nil {
			t.Fatalf("instruction %q mismatch at line %d: %v\n%s", exp.Name, idx, err, render(lines))
		}
	}
}

// VerifySequence ensures the expectations match a contiguous run of lines
// somewhere in the listing and returns the index of the first matched line.
func VerifySequence(t *testing.T, lines []ir.Line, expect []Expectation) int {
	t.Helper()
	for start := 0; start+len(expect) <= len(lines); start++ {
		ok := true
		for idx, exp := range expect {
			if exp.match(lines[start+idx]) != nil {
				ok = false
				break
			}
		}
		if ok {
			return start
		}
	}
	t.Fatalf("sequence starting with %q not found in listing\n%s", firstName(expect), render(lines))
	return -1
}

// Count returns how many lines render exactly as mnemonic.
func Count(lines []ir.Line, mnemonic string) int {
	n := 0
	for _, line := range lines {
		if line.Text == mnemonic {
			n++
		}
	}
	return n
}

func firstName(expect []Expectation) string {
	if len(expect) == 0 {
		return ""
	}
	return expect[0].Name
}

func render(lines []ir.Line) string {
	var sb strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&sb, "%4d %s%s\n", i, strings.Repeat("  ", line.Depth), line.Text)
	}
	return sb.String()
}
