package ir

import "fmt"

// PageSize is the granularity of linear memory.
const PageSize = 65536

type Local struct {
	Name Var
	Type ValType
}

// Import describes a host function the program calls by Name.
type Import struct {
	Module  string
	Name    string
	Params  []ValType
	Results []ValType
}

type GlobalConfig struct {
	Name    GlobalVar
	Type    ValType
	Mutable bool
	Init    int64
}

// DataSegment is copied into linear memory at Offset before the entry
// function runs.
type DataSegment struct {
	Offset int32
	Bytes  []byte
}

type Memory struct {
	// Module and Name identify an imported memory. Both empty means the
	// program defines its own.
	Module string
	Name   string
	Pages  uint32
}

// Func is a zero-argument procedure with a fixed local-slot table.
type Func struct {
	Name   string
	Export string
	Locals []Local
	Body   Block
}

type Program struct {
	Entrypoint string
	Imports    []Import
	Memory     Memory
	Globals    []GlobalConfig
	Data       []DataSegment
	Funcs      []Func
}

// Func returns the function with the given name.
func (p *Program) Func(name string) (*Func, bool) {
	for i := range p.Funcs {
		if p.Funcs[i].Name == name {
			return &p.Funcs[i], true
		}
	}
	return nil, false
}

// Import returns the import with the given name.
func (p *Program) Import(name string) (*Import, bool) {
	for i := range p.Imports {
		if p.Imports[i].Name == name {
			return &p.Imports[i], true
		}
	}
	return nil, false
}

// Validate checks that every name referenced by the program resolves and
// that branches target an enclosing region.
func (p *Program) Validate() error {
	if p == nil {
		return fmt.Errorf("ir: program must be non-nil")
	}
	if _, ok := p.Func(p.Entrypoint); !ok {
		return fmt.Errorf("ir: entrypoint %q not found", p.Entrypoint)
	}
	globals := make(map[GlobalVar]bool, len(p.Globals))
	for _, g := range p.Globals {
		if globals[g.Name] {
			return fmt.Errorf("ir: duplicate global %q", g.Name)
		}
		globals[g.Name] = true
	}
	for _, seg := range p.Data {
		end := int64(seg.Offset) + int64(len(seg.Bytes))
		if seg.Offset < 0 || end > int64(p.Memory.Pages)*PageSize {
			return fmt.Errorf("ir: data segment at %d does not fit in memory", seg.Offset)
		}
	}
	for _, fn := range p.Funcs {
		locals := make(map[Var]bool, len(fn.Locals))
		for _, l := range fn.Locals {
			if locals[l.Name] {
				return fmt.Errorf("ir: %s: duplicate local %q", fn.Name, l.Name)
			}
			locals[l.Name] = true
		}
		v := validator{prog: p, locals: locals, globals: globals}
		if err := v.block(fn.Body); err != nil {
			return fmt.Errorf("ir: %s: %w", fn.Name, err)
		}
	}
	return nil
}

type validator struct {
	prog    *Program
	locals  map[Var]bool
	globals map[GlobalVar]bool
	labels  []Label
}

func (v *validator) block(b Block) error {
	for _, f := range b {
		if err := v.fragment(f); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) region(label Label, body Block) error {
	v.labels = append(v.labels, label)
	defer func() { v.labels = v.labels[:len(v.labels)-1] }()
	return v.block(body)
}

func (v *validator) fragment(f Fragment) error {
	switch frag := f.(type) {
	case Var:
		if !v.locals[frag] {
			return fmt.Errorf("unknown local %q", frag)
		}
	case LocalSetFragment:
		if !v.locals[frag.Var] {
			return fmt.Errorf("unknown local %q", frag.Var)
		}
	case GlobalVar:
		if !v.globals[frag] {
			return fmt.Errorf("unknown global %q", frag)
		}
	case GlobalSetFragment:
		if !v.globals[frag.Global] {
			return fmt.Errorf("unknown global %q", frag.Global)
		}
	case CallFragment:
		if _, ok := v.prog.Import(frag.Target); !ok {
			return fmt.Errorf("call to unknown function %q", frag.Target)
		}
	case IfFragment:
		if err := v.region("", frag.Then); err != nil {
			return err
		}
		return v.region("", frag.Otherwise)
	case BlockFragment:
		return v.region(frag.Label, frag.Body)
	case LoopFragment:
		return v.region(frag.Label, frag.Body)
	case BranchFragment:
		for i := len(v.labels) - 1; i >= 0; i-- {
			if v.labels[i] == frag.Label {
				return nil
			}
		}
		return fmt.Errorf("branch to %q outside its region", frag.Label)
	case Int64, Int32, OpFragment, CompareFragment, ConvertFragment,
		LoadFragment, StoreFragment, DropFragment, TrapFragment:
	default:
		return fmt.Errorf("unsupported fragment %T", f)
	}
	return nil
}
