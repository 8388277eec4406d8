package codegen

import (
	"fmt"

	"github.com/tinyrange/arrayc/internal/ast"
	"github.com/tinyrange/arrayc/internal/ir"
	"github.com/tinyrange/arrayc/internal/runtime"
)

func (c *Compiler) compileCall(call *ast.Call) (ir.Block, error) {
	var args ir.Block
	for _, arg := range call.Args {
		lowered, err := c.CompileExpr(arg)
		if err != nil {
			return nil, err
		}
		args = append(args, lowered...)
	}

	switch call.Name {
	case ast.BuiltinPrint:
		if len(call.Args) != 1 {
			return nil, fmt.Errorf("codegen: print expects 1 argument, got %d", len(call.Args))
		}
		// An indexed read already carries its element type, so array
		// elements holding arrays print as references.
		target, err := printIntrinsic(call.Args[0].Type())
		if err != nil {
			return nil, err
		}
		return ir.Flatten(args, ir.Call(target)), nil
	case ast.BuiltinInput:
		if len(call.Args) != 0 {
			return nil, fmt.Errorf("codegen: input_int expects no arguments, got %d", len(call.Args))
		}
		return ir.Block{ir.Call(runtime.ReadInt)}, nil
	case ast.BuiltinLen:
		if len(call.Args) != 1 {
			return nil, fmt.Errorf("codegen: len expects 1 argument, got %d", len(call.Args))
		}
		if err := c.checkTier("len", ast.TierArray); err != nil {
			return nil, err
		}
		return lengthOf(args), nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownCall, call.Name)
	}
}

func printIntrinsic(ty ast.Type) (string, error) {
	switch ty.Kind {
	case ast.TypeInt:
		return runtime.PrintInt, nil
	case ast.TypeBool:
		return runtime.PrintBool, nil
	case ast.TypeArray:
		return runtime.PrintRef, nil
	default:
		return "", fmt.Errorf("codegen: cannot print a value of type %s", ty)
	}
}
