package codegen

import (
	"fmt"

	"github.com/tinyrange/arrayc/internal/ast"
	"github.com/tinyrange/arrayc/internal/ir"
)

// atomic compiles an operand that must be a literal or variable reference.
func (c *Compiler) atomic(what string, e ast.Expr) (ir.Block, error) {
	if e == nil || !ast.IsAtomic(e) {
		return nil, fmt.Errorf("%w: %s is %T", ErrNotAtomic, what, e)
	}
	return c.CompileExpr(e)
}

// allocate guards the requested length, writes the header at the frontier
// and advances the frontier past the new array. The header address is left
// in the array scratch slot.
func (c *Compiler) allocate(length ir.Block, elem ast.Type) ir.Block {
	c.usedScratch = true
	width := ElemWidth(elem)
	free := c.cfg.FreePtr

	return ir.Flatten(
		c.capacityGuards(length, width),

		free,
		ir.LocalSet(arraySlot),

		arraySlot,
		length,
		ir.Convert(ir.WrapI64),
		ir.Int32(headerShift),
		ir.Op(ir.I32, ir.OpShl),
		ir.Int32(ElemKindOf(elem)),
		ir.Op(ir.I32, ir.OpXor),
		ir.Store(ir.I32),

		arraySlot,
		ir.Int32(HeaderSize),
		ir.Op(ir.I32, ir.OpAdd),
		length,
		ir.Convert(ir.WrapI64),
		ir.Int32(width),
		ir.Op(ir.I32, ir.OpMul),
		ir.Op(ir.I32, ir.OpAdd),
		ir.GlobalSet(free),
	)
}

func (c *Compiler) compileStaticArray(e *ast.StaticArray) (ir.Block, error) {
	elem := e.ElemTy
	if !elem.IsValid() {
		var err error
		if elem, err = elemType(e.Type()); err != nil {
			return nil, err
		}
	}
	vt, err := ValType(elem)
	if err != nil {
		return nil, fmt.Errorf("%w: static array element type", err)
	}
	width := ElemWidth(elem)

	out := c.allocate(ir.Block{ir.Int64(len(e.Elems))}, elem)
	for i, el := range e.Elems {
		val, err := c.atomic(fmt.Sprintf("element %d", i), el)
		if err != nil {
			return nil, err
		}
		out = ir.Flatten(out,
			arraySlot,
			ir.Int32(HeaderSize+int64(i)*width),
			ir.Op(ir.I32, ir.OpAdd),
			val,
			ir.Store(vt),
		)
	}
	return ir.Flatten(out, arraySlot), nil
}

func (c *Compiler) compileDynamicArray(e *ast.DynamicArray) (ir.Block, error) {
	elem, err := elemType(e.Type())
	if err != nil {
		return nil, err
	}
	vt, err := ValType(elem)
	if err != nil {
		return nil, fmt.Errorf("%w: dynamic array element type", err)
	}
	width := ElemWidth(elem)

	length, err := c.atomic("array length", e.Len)
	if err != nil {
		return nil, err
	}
	fill, err := c.atomic("array fill", e.Fill)
	if err != nil {
		return nil, err
	}

	exit, start := c.loopLabels("fill")

	// The frontier already points past the last element, so the cursor is
	// checked before each store and a zero-length array stores nothing.
	loop := ir.DeclareBlock(exit, ir.Block{
		ir.Loop(start, ir.Flatten(
			cursorSlot,
			c.cfg.FreePtr,
			ir.Compare(ir.I32, ir.CompareLessUnsigned),
			ir.Int32(0),
			ir.Compare(ir.I32, ir.CompareEqual),
			ir.BranchIf(exit),

			cursorSlot,
			fill,
			ir.Store(vt),

			cursorSlot,
			ir.Int32(width),
			ir.Op(ir.I32, ir.OpAdd),
			ir.LocalSet(cursorSlot),
			ir.Branch(start),
		)),
	})

	return ir.Flatten(
		c.allocate(length, elem),
		arraySlot,
		ir.Int32(HeaderSize),
		ir.Op(ir.I32, ir.OpAdd),
		ir.LocalSet(cursorSlot),
		loop,
		arraySlot,
	), nil
}

// elementRef compiles the guarded address of array[index] and returns the
// element type.
func (c *Compiler) elementRef(array, index ast.Expr) (ir.Block, ast.Type, error) {
	arr, err := c.atomic("indexed array", array)
	if err != nil {
		return nil, ast.Type{}, err
	}
	idx, err := c.atomic("index", index)
	if err != nil {
		return nil, ast.Type{}, err
	}
	elem, err := elemType(array.Type())
	if err != nil {
		return nil, ast.Type{}, err
	}
	return ir.Flatten(
		c.accessGuards(arr, idx),
		elementAddress(arr, idx, ElemWidth(elem)),
	), elem, nil
}

func (c *Compiler) compileIndex(e *ast.Index) (ir.Block, error) {
	addr, elem, err := c.elementRef(e.Array, e.Index)
	if err != nil {
		return nil, err
	}
	vt, err := ValType(elem)
	if err != nil {
		return nil, err
	}
	return ir.Flatten(addr, ir.Load(vt)), nil
}
