package ir

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Mnemonic renders a single fragment in text syntax. Structured regions
// render as their opening line only.
func Mnemonic(f Fragment) string {
	switch frag := f.(type) {
	case Int64:
		return fmt.Sprintf("i64.const %d", int64(frag))
	case Int32:
		return fmt.Sprintf("i32.const %d", int32(frag))
	case Var:
		return "local.get $" + string(frag)
	case LocalSetFragment:
		if frag.Tee {
			return "local.tee $" + string(frag.Var)
		}
		return "local.set $" + string(frag.Var)
	case GlobalVar:
		return "global.get $" + string(frag)
	case GlobalSetFragment:
		return "global.set $" + string(frag.Global)
	case OpFragment:
		return frag.Type.String() + "." + frag.Kind.String()
	case CompareFragment:
		return frag.Type.String() + "." + frag.Kind.String()
	case ConvertFragment:
		return frag.Kind.String()
	case LoadFragment:
		return frag.Type.String() + ".load"
	case StoreFragment:
		return frag.Type.String() + ".store"
	case CallFragment:
		return "call $" + frag.Target
	case IfFragment:
		if frag.Result != NoResult {
			return fmt.Sprintf("if (result %s)", frag.Result)
		}
		return "if"
	case BlockFragment:
		return "block $" + string(frag.Label)
	case LoopFragment:
		return "loop $" + string(frag.Label)
	case BranchFragment:
		if frag.Conditional {
			return "br_if $" + string(frag.Label)
		}
		return "br $" + string(frag.Label)
	case DropFragment:
		return "drop"
	case TrapFragment:
		return "unreachable"
	default:
		return fmt.Sprintf(";; unsupported %T", f)
	}
}

// Line is one rendered instruction with its nesting depth.
type Line struct {
	Depth int
	Text  string
}

// Lines flattens a block into rendered lines, emitting else/end markers for
// structured regions.
func Lines(b Block) []Line {
	var out []Line
	appendLines(&out, b, 0)
	return out
}

func appendLines(out *[]Line, b Block, depth int) {
	for _, f := range b {
		*out = append(*out, Line{Depth: depth, Text: Mnemonic(f)})
		switch frag := f.(type) {
		case IfFragment:
			appendLines(out, frag.Then, depth+1)
			if len(frag.Otherwise) > 0 {
				*out = append(*out, Line{Depth: depth, Text: "else"})
				appendLines(out, frag.Otherwise, depth+1)
			}
			*out = append(*out, Line{Depth: depth, Text: "end"})
		case BlockFragment:
			appendLines(out, frag.Body, depth+1)
			*out = append(*out, Line{Depth: depth, Text: "end"})
		case LoopFragment:
			appendLines(out, frag.Body, depth+1)
			*out = append(*out, Line{Depth: depth, Text: "end"})
		}
	}
}

// FormatBlock renders a block one instruction per line.
func FormatBlock(b Block) string {
	var sb strings.Builder
	for _, line := range Lines(b) {
		sb.WriteString(strings.Repeat("  ", line.Depth))
		sb.WriteString(line.Text)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Format writes the program as a text-format module.
func Format(w io.Writer, p *Program) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "(module")

	if p.Memory.Module != "" {
		fmt.Fprintf(bw, "  (import %q %q (memory %d))\n", p.Memory.Module, p.Memory.Name, p.Memory.Pages)
	}
	for _, imp := range p.Imports {
		fmt.Fprintf(bw, "  (import %q %q (func $%s%s%s))\n",
			imp.Module, imp.Name, imp.Name, valTypeList(" (param", imp.Params), valTypeList(" (result", imp.Results))
	}
	if p.Memory.Module == "" {
		fmt.Fprintf(bw, "  (memory %d)\n", p.Memory.Pages)
	}
	for _, g := range p.Globals {
		typ := g.Type.String()
		if g.Mutable {
			typ = "(mut " + typ + ")"
		}
		fmt.Fprintf(bw, "  (global $%s %s (%s.const %d))\n", g.Name, typ, g.Type, g.Init)
	}
	for _, seg := range p.Data {
		fmt.Fprintf(bw, "  (data (i32.const %d) \"%s\")\n", seg.Offset, escapeData(seg.Bytes))
	}
	for _, fn := range p.Funcs {
		fmt.Fprintf(bw, "  (func $%s", fn.Name)
		if fn.Export != "" {
			fmt.Fprintf(bw, " (export %q)", fn.Export)
		}
		fmt.Fprintln(bw)
		for _, l := range fn.Locals {
			fmt.Fprintf(bw, "    (local $%s %s)\n", l.Name, l.Type)
		}
		for _, line := range Lines(fn.Body) {
			bw.WriteString(strings.Repeat("  ", line.Depth+2))
			bw.WriteString(line.Text)
			bw.WriteByte('\n')
		}
		fmt.Fprintln(bw, "  )")
	}

	fmt.Fprintln(bw, ")")
	return bw.Flush()
}

func (p *Program) String() string {
	var sb strings.Builder
	_ = Format(&sb, p)
	return sb.String()
}

func valTypeList(prefix string, types []ValType) string {
	if len(types) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(prefix)
	for _, t := range types {
		sb.WriteByte(' ')
		sb.WriteString(t.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

func escapeData(data []byte) string {
	var sb strings.Builder
	for _, b := range data {
		switch {
		case b == '"' || b == '\\':
			fmt.Fprintf(&sb, "\\%02x", b)
		case b >= 0x20 && b < 0x7f:
			sb.WriteByte(b)
		default:
			fmt.Fprintf(&sb, "\\%02x", b)
		}
	}
	return sb.String()
}
