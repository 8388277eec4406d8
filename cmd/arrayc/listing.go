package main

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/tinyrange/arrayc/internal/ir"
)

var (
	structureStyle = ansi.NewStyle().Bold()
	controlStyle   = ansi.NewStyle().ForegroundColor(ansi.Magenta)
	callStyle      = ansi.NewStyle().ForegroundColor(ansi.Cyan)
	constStyle     = ansi.NewStyle().ForegroundColor(ansi.Yellow)
	slotStyle      = ansi.NewStyle().ForegroundColor(ansi.Green)
	trapStyle      = ansi.NewStyle().Bold().ForegroundColor(ansi.Red)
)

func writeListing(w io.Writer, prog *ir.Program, color bool) error {
	if !color {
		return ir.Format(w, prog)
	}
	var buf bytes.Buffer
	if err := ir.Format(&buf, prog); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	for _, line := range strings.SplitAfter(buf.String(), "\n") {
		body := strings.TrimSuffix(line, "\n")
		bw.WriteString(highlight(body))
		if len(body) != len(line) {
			bw.WriteByte('\n')
		}
	}
	return bw.Flush()
}

// highlight colours one listing line by its leading mnemonic, keeping the
// indentation unstyled.
func highlight(line string) string {
	text := strings.TrimLeft(line, " ")
	if text == "" {
		return line
	}
	indent := line[:len(line)-len(text)]
	op, _, _ := strings.Cut(text, " ")

	var style ansi.Style
	switch {
	case strings.HasPrefix(text, "(") || text == ")":
		style = structureStyle
	case op == "unreachable":
		style = trapStyle
	case op == "call":
		style = callStyle
	case strings.HasSuffix(op, ".const"):
		style = constStyle
	case strings.HasPrefix(op, "local.") || strings.HasPrefix(op, "global."):
		style = slotStyle
	case op == "if" || op == "else" || op == "end" || op == "block" || op == "loop" || op == "br" || op == "br_if":
		style = controlStyle
	default:
		return line
	}
	return indent + style.Styled(text)
}
