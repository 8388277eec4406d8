package codegen

import (
	"fmt"

	"github.com/tinyrange/arrayc/internal/ast"
	"github.com/tinyrange/arrayc/internal/ir"
)

// CompileExpr lowers one expression into instructions that leave exactly
// one value of its representation on the stack, or none for a void call.
func (c *Compiler) CompileExpr(e ast.Expr) (ir.Block, error) {
	if e == nil {
		return nil, fmt.Errorf("codegen: nil expression")
	}
	if !e.Type().IsValid() {
		return nil, fmt.Errorf("%w: %T", ErrUntyped, e)
	}
	if err := c.checkTier(fmt.Sprintf("%T", e), e.Tier()); err != nil {
		return nil, err
	}

	switch v := e.(type) {
	case *ast.IntLiteral:
		return ir.Block{ir.Int64(v.Value)}, nil
	case *ast.BoolLiteral:
		if v.Value {
			return ir.Block{ir.Int32(1)}, nil
		}
		return ir.Block{ir.Int32(0)}, nil
	case *ast.VarRef:
		return ir.Block{ir.Var(v.Name)}, nil
	case *ast.Unary:
		return c.compileUnary(v)
	case *ast.Binary:
		return c.compileBinary(v)
	case *ast.Call:
		return c.compileCall(v)
	case *ast.StaticArray:
		return c.compileStaticArray(v)
	case *ast.DynamicArray:
		return c.compileDynamicArray(v)
	case *ast.Index:
		return c.compileIndex(v)
	default:
		return nil, fmt.Errorf("codegen: unsupported expression %T", e)
	}
}

func (c *Compiler) compileUnary(e *ast.Unary) (ir.Block, error) {
	operand, err := c.CompileExpr(e.Operand)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case ast.OpNeg:
		return ir.Flatten(ir.Int64(0), operand, ir.Op(ir.I64, ir.OpSub)), nil
	case ast.OpNot:
		return ir.Flatten(operand, ir.Int32(0), ir.Compare(ir.I32, ir.CompareEqual)), nil
	default:
		return nil, fmt.Errorf("codegen: unsupported unary operator %s", e.Op)
	}
}

var arithOps = map[ast.BinaryOp]ir.OpKind{
	ast.OpAdd: ir.OpAdd,
	ast.OpSub: ir.OpSub,
	ast.OpMul: ir.OpMul,
}

var relationalOps = map[ast.BinaryOp]ir.CompareKind{
	ast.OpLt: ir.CompareLess,
	ast.OpLe: ir.CompareLessOrEqual,
	ast.OpGt: ir.CompareGreater,
	ast.OpGe: ir.CompareGreaterOrEqual,
}

func (c *Compiler) compileBinary(e *ast.Binary) (ir.Block, error) {
	left, err := c.CompileExpr(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := c.CompileExpr(e.Right)
	if err != nil {
		return nil, err
	}

	if kind, ok := arithOps[e.Op]; ok {
		return ir.Flatten(left, right, ir.Op(ir.I64, kind)), nil
	}
	if kind, ok := relationalOps[e.Op]; ok {
		return ir.Flatten(left, right, ir.Compare(ir.I64, kind)), nil
	}

	switch e.Op {
	case ast.OpEq, ast.OpNe:
		kind := ir.CompareEqual
		if e.Op == ast.OpNe {
			kind = ir.CompareNotEqual
		}
		switch e.Left.Type().Kind {
		case ast.TypeInt:
			return ir.Flatten(left, right, ir.Compare(ir.I64, kind)), nil
		case ast.TypeBool:
			return ir.Flatten(left, right, ir.Compare(ir.I32, kind)), nil
		default:
			return nil, fmt.Errorf("codegen: equality is not defined for %s operands", e.Left.Type())
		}
	case ast.OpAnd:
		// The right operand only runs when the left one is true.
		return ir.Flatten(left, ir.If(ir.I32, right, ir.Block{ir.Int32(0)})), nil
	case ast.OpOr:
		return ir.Flatten(left, ir.If(ir.I32, ir.Block{ir.Int32(1)}, right)), nil
	case ast.OpIs:
		return ir.Flatten(left, right, ir.Compare(ir.I32, ir.CompareEqual)), nil
	default:
		return nil, fmt.Errorf("codegen: unsupported binary operator %s", e.Op)
	}
}
