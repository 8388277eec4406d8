package ir

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
)

// HostFunc implements an imported function. Arguments arrive in declaration
// order; i32 values occupy the low 32 bits.
type HostFunc func(mem []byte, args []uint64) ([]uint64, error)

// TrapError reports an unrecoverable halt of the executing program.
type TrapError struct {
	Reason string
}

func (e *TrapError) Error() string {
	return "ir: trap: " + e.Reason
}

// IsTrap reports whether err is or wraps a TrapError.
func IsTrap(err error) bool {
	var trap *TrapError
	return errors.As(err, &trap)
}

// Machine executes a Program on a single thread over a private linear memory.
type Machine struct {
	prog    *Program
	host    map[string]HostFunc
	mem     []byte
	globals map[GlobalVar]uint64
	locals  map[Var]uint64
	stack   []uint64
}

// NewMachine validates prog, binds every import to a host function and
// initializes memory, data segments and globals.
func NewMachine(prog *Program, host map[string]HostFunc) (*Machine, error) {
	if err := prog.Validate(); err != nil {
		return nil, err
	}
	bound := make(map[string]HostFunc, len(prog.Imports))
	for _, imp := range prog.Imports {
		fn, ok := host[imp.Name]
		if !ok || fn == nil {
			return nil, fmt.Errorf("ir: no host function for import %s.%s", imp.Module, imp.Name)
		}
		bound[imp.Name] = fn
	}

	m := &Machine{
		prog:    prog,
		host:    bound,
		mem:     make([]byte, int(prog.Memory.Pages)*PageSize),
		globals: make(map[GlobalVar]uint64, len(prog.Globals)),
	}
	for _, seg := range prog.Data {
		copy(m.mem[seg.Offset:], seg.Bytes)
	}
	for _, g := range prog.Globals {
		m.globals[g.Name] = normalize(g.Type, uint64(g.Init))
	}
	return m, nil
}

// Memory exposes the machine's linear memory.
func (m *Machine) Memory() []byte { return m.mem }

// Global returns the current value of a global cell.
func (m *Machine) Global(name GlobalVar) (uint64, bool) {
	v, ok := m.globals[name]
	return v, ok
}

// Local returns the value a local slot held when the entry function
// finished or trapped.
func (m *Machine) Local(name Var) (uint64, bool) {
	v, ok := m.locals[name]
	return v, ok
}

// Run executes the entry function. ctx is checked on every loop iteration.
func (m *Machine) Run(ctx context.Context) error {
	fn, ok := m.prog.Func(m.prog.Entrypoint)
	if !ok {
		return fmt.Errorf("ir: entrypoint %q not found", m.prog.Entrypoint)
	}
	m.locals = make(map[Var]uint64, len(fn.Locals))
	for _, l := range fn.Locals {
		m.locals[l.Name] = 0
	}
	m.stack = m.stack[:0]

	target, branching, err := m.exec(ctx, fn.Body)
	if err != nil {
		return err
	}
	if branching {
		return fmt.Errorf("ir: branch to %q escaped the function", target)
	}
	if len(m.stack) != 0 {
		return fmt.Errorf("ir: %d values left on the operand stack", len(m.stack))
	}
	return nil
}

func normalize(ty ValType, v uint64) uint64 {
	if ty == I32 {
		return uint64(uint32(v))
	}
	return v
}

func (m *Machine) push(v uint64) {
	m.stack = append(m.stack, v)
}

func (m *Machine) pop() (uint64, error) {
	if len(m.stack) == 0 {
		return 0, fmt.Errorf("ir: operand stack underflow")
	}
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v, nil
}

func (m *Machine) pop2() (uint64, uint64, error) {
	b, err := m.pop()
	if err != nil {
		return 0, 0, err
	}
	a, err := m.pop()
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func (m *Machine) exec(ctx context.Context, b Block) (Label, bool, error) {
	for _, f := range b {
		target, branching, err := m.step(ctx, f)
		if err != nil || branching {
			return target, branching, err
		}
	}
	return "", false, nil
}

func (m *Machine) step(ctx context.Context, f Fragment) (Label, bool, error) {
	switch frag := f.(type) {
	case Int64:
		m.push(uint64(frag))
	case Int32:
		m.push(uint64(uint32(frag)))
	case Var:
		m.push(m.locals[frag])
	case LocalSetFragment:
		v, err := m.pop()
		if err != nil {
			return "", false, err
		}
		m.locals[frag.Var] = v
		if frag.Tee {
			m.push(v)
		}
	case GlobalVar:
		m.push(m.globals[frag])
	case GlobalSetFragment:
		v, err := m.pop()
		if err != nil {
			return "", false, err
		}
		m.globals[frag.Global] = v
	case OpFragment:
		a, b, err := m.pop2()
		if err != nil {
			return "", false, err
		}
		v, err := arith(frag, a, b)
		if err != nil {
			return "", false, err
		}
		m.push(v)
	case CompareFragment:
		a, b, err := m.pop2()
		if err != nil {
			return "", false, err
		}
		ok, err := compare(frag, a, b)
		if err != nil {
			return "", false, err
		}
		if ok {
			m.push(1)
		} else {
			m.push(0)
		}
	case ConvertFragment:
		v, err := m.pop()
		if err != nil {
			return "", false, err
		}
		switch frag.Kind {
		case WrapI64, ExtendI32U:
			m.push(uint64(uint32(v)))
		default:
			return "", false, fmt.Errorf("ir: unsupported conversion %d", frag.Kind)
		}
	case LoadFragment:
		addr, err := m.pop()
		if err != nil {
			return "", false, err
		}
		v, err := m.load(frag.Type, uint32(addr))
		if err != nil {
			return "", false, err
		}
		m.push(v)
	case StoreFragment:
		addr, v, err := m.pop2()
		if err != nil {
			return "", false, err
		}
		if err := m.store(frag.Type, uint32(addr), v); err != nil {
			return "", false, err
		}
	case CallFragment:
		if err := m.call(frag.Target); err != nil {
			return "", false, err
		}
	case IfFragment:
		cond, err := m.pop()
		if err != nil {
			return "", false, err
		}
		if uint32(cond) != 0 {
			return m.exec(ctx, frag.Then)
		}
		return m.exec(ctx, frag.Otherwise)
	case BlockFragment:
		target, branching, err := m.exec(ctx, frag.Body)
		if err != nil {
			return "", false, err
		}
		if branching && target == frag.Label {
			return "", false, nil
		}
		return target, branching, nil
	case LoopFragment:
		for {
			if err := ctx.Err(); err != nil {
				return "", false, err
			}
			target, branching, err := m.exec(ctx, frag.Body)
			if err != nil {
				return "", false, err
			}
			if branching && target == frag.Label {
				continue
			}
			return target, branching, nil
		}
	case BranchFragment:
		if frag.Conditional {
			cond, err := m.pop()
			if err != nil {
				return "", false, err
			}
			if uint32(cond) == 0 {
				return "", false, nil
			}
		}
		return frag.Label, true, nil
	case DropFragment:
		if _, err := m.pop(); err != nil {
			return "", false, err
		}
	case TrapFragment:
		return "", false, &TrapError{Reason: "unreachable"}
	default:
		return "", false, fmt.Errorf("ir: unsupported fragment %T", f)
	}
	return "", false, nil
}

func arith(op OpFragment, a, b uint64) (uint64, error) {
	switch op.Type {
	case I64:
		switch op.Kind {
		case OpAdd:
			return a + b, nil
		case OpSub:
			return a - b, nil
		case OpMul:
			return a * b, nil
		case OpShl:
			return a << (b & 63), nil
		case OpShrU:
			return a >> (b & 63), nil
		case OpXor:
			return a ^ b, nil
		}
	case I32:
		x, y := uint32(a), uint32(b)
		switch op.Kind {
		case OpAdd:
			return uint64(x + y), nil
		case OpSub:
			return uint64(x - y), nil
		case OpMul:
			return uint64(x * y), nil
		case OpShl:
			return uint64(x << (y & 31)), nil
		case OpShrU:
			return uint64(x >> (y & 31)), nil
		case OpXor:
			return uint64(x ^ y), nil
		}
	}
	return 0, fmt.Errorf("ir: unsupported operation %s.%s", op.Type, op.Kind)
}

func compare(op CompareFragment, a, b uint64) (bool, error) {
	var sa, sb int64
	var ua, ub uint64
	switch op.Type {
	case I64:
		sa, sb = int64(a), int64(b)
		ua, ub = a, b
	case I32:
		sa, sb = int64(int32(uint32(a))), int64(int32(uint32(b)))
		ua, ub = uint64(uint32(a)), uint64(uint32(b))
	default:
		return false, fmt.Errorf("ir: unsupported comparison type %s", op.Type)
	}
	switch op.Kind {
	case CompareEqual:
		return ua == ub, nil
	case CompareNotEqual:
		return ua != ub, nil
	case CompareLess:
		return sa < sb, nil
	case CompareLessOrEqual:
		return sa <= sb, nil
	case CompareGreater:
		return sa > sb, nil
	case CompareGreaterOrEqual:
		return sa >= sb, nil
	case CompareLessUnsigned:
		return ua < ub, nil
	default:
		return false, fmt.Errorf("ir: unsupported comparison %d", op.Kind)
	}
}

func (m *Machine) bounds(addr uint32, size int32) error {
	if uint64(addr)+uint64(size) > uint64(len(m.mem)) {
		return &TrapError{Reason: fmt.Sprintf("out of bounds memory access at %d", addr)}
	}
	return nil
}

func (m *Machine) load(ty ValType, addr uint32) (uint64, error) {
	if err := m.bounds(addr, ty.Size()); err != nil {
		return 0, err
	}
	switch ty {
	case I32:
		return uint64(binary.LittleEndian.Uint32(m.mem[addr:])), nil
	case I64:
		return binary.LittleEndian.Uint64(m.mem[addr:]), nil
	default:
		return 0, fmt.Errorf("ir: unsupported load type %s", ty)
	}
}

func (m *Machine) store(ty ValType, addr uint32, v uint64) error {
	if err := m.bounds(addr, ty.Size()); err != nil {
		return err
	}
	switch ty {
	case I32:
		binary.LittleEndian.PutUint32(m.mem[addr:], uint32(v))
	case I64:
		binary.LittleEndian.PutUint64(m.mem[addr:], v)
	default:
		return fmt.Errorf("ir: unsupported store type %s", ty)
	}
	return nil
}

func (m *Machine) call(name string) error {
	imp, ok := m.prog.Import(name)
	if !ok {
		return fmt.Errorf("ir: call to unknown function %q", name)
	}
	if len(m.stack) < len(imp.Params) {
		return fmt.Errorf("ir: operand stack underflow calling %s", name)
	}
	n := len(m.stack) - len(imp.Params)
	args := make([]uint64, len(imp.Params))
	for i, ty := range imp.Params {
		args[i] = normalize(ty, m.stack[n+i])
	}
	m.stack = m.stack[:n]

	results, err := m.host[name](m.mem, args)
	if err != nil {
		return fmt.Errorf("ir: %s: %w", name, err)
	}
	if len(results) != len(imp.Results) {
		return fmt.Errorf("ir: %s returned %d values, want %d", name, len(results), len(imp.Results))
	}
	for i, ty := range imp.Results {
		m.push(normalize(ty, results[i]))
	}
	return nil
}
