// Package codegen lowers a typed, normalized program into instructions for
// the structured stack machine described by package ir.
package codegen

import (
	"errors"
	"fmt"

	"github.com/tinyrange/arrayc/internal/ast"
	"github.com/tinyrange/arrayc/internal/ir"
)

var (
	// ErrUntyped reports a node that never went through the type checker.
	ErrUntyped = errors.New("codegen: node has no type")
	// ErrUnknownCall reports a call to a name that is not a builtin.
	ErrUnknownCall = errors.New("codegen: unknown builtin")
	// ErrNotAtomic reports an array operand the normalizer should have
	// replaced with a literal or variable.
	ErrNotAtomic = errors.New("codegen: array operand is not atomic")
	// ErrTier reports a node outside the configured language tier.
	ErrTier = errors.New("codegen: node not available in this language tier")
)

// Message locates a diagnostic string in the data segment.
type Message struct {
	Offset int32
	Length int32
}

// Messages holds the diagnostics reported before a runtime trap.
type Messages struct {
	Capacity Message
	Index    Message
}

// Config fixes the language tier, heap limits and runtime names a Compiler
// lowers against.
type Config struct {
	// Tier is the largest language tier the compiler accepts.
	Tier ast.Tier

	// MaxArrayByteSize bounds length*elementWidth of any allocation.
	MaxArrayByteSize int64

	Messages Messages

	// FreePtr is the global cell holding the heap frontier.
	FreePtr ir.GlobalVar
}

// Scratch slots used while constructing an array.
const (
	arraySlot  ir.Var = "@array"
	cursorSlot ir.Var = "@cursor"
)

// Compiler holds the state for lowering one entry procedure.
type Compiler struct {
	cfg         Config
	labelCount  int
	usedScratch bool
}

// New returns a compiler for one procedure body.
func New(cfg Config) (*Compiler, error) {
	if cfg.Tier == ast.TierArray {
		if cfg.MaxArrayByteSize <= 0 {
			return nil, fmt.Errorf("codegen: max array byte size must be positive (got %d)", cfg.MaxArrayByteSize)
		}
		if cfg.FreePtr == "" {
			return nil, fmt.Errorf("codegen: free pointer global must be named")
		}
	}
	return &Compiler{cfg: cfg}, nil
}

// ScratchLocals returns the compiler-owned local slots the generated code
// refers to. It is only complete once compilation has finished.
func (c *Compiler) ScratchLocals() []ir.Local {
	if !c.usedScratch {
		return nil
	}
	return []ir.Local{
		{Name: arraySlot, Type: ir.I32},
		{Name: cursorSlot, Type: ir.I32},
	}
}

// loopLabels returns a fresh exit/start label pair for one loop.
func (c *Compiler) loopLabels(kind string) (exit, start ir.Label) {
	c.labelCount++
	id := c.labelCount
	exit = ir.Label(fmt.Sprintf("%s_exit_%d", kind, id))
	start = ir.Label(fmt.Sprintf("%s_start_%d", kind, id))
	return exit, start
}

func (c *Compiler) checkTier(kind string, t ast.Tier) error {
	if t > c.cfg.Tier {
		return fmt.Errorf("%w: %s requires the %s tier", ErrTier, kind, t)
	}
	return nil
}

// ValType returns the stack representation of a source type.
func ValType(ty ast.Type) (ir.ValType, error) {
	switch ty.Kind {
	case ast.TypeInt:
		return ir.I64, nil
	case ast.TypeBool, ast.TypeArray:
		return ir.I32, nil
	case ast.TypeVoid:
		return ir.NoResult, nil
	default:
		return ir.NoResult, ErrUntyped
	}
}
