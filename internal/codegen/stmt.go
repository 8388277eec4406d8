package codegen

import (
	"fmt"

	"github.com/tinyrange/arrayc/internal/ast"
	"github.com/tinyrange/arrayc/internal/ir"
)

// CompileStmts lowers a statement list into a flat sequence that leaves the
// stack as it found it.
func (c *Compiler) CompileStmts(stmts []ast.Stmt) (ir.Block, error) {
	var out ir.Block
	for _, stmt := range stmts {
		lowered, err := c.compileStmt(stmt)
		if err != nil {
			return nil, err
		}
		out = append(out, lowered...)
	}
	return out, nil
}

func (c *Compiler) compileStmt(stmt ast.Stmt) (ir.Block, error) {
	if stmt == nil {
		return nil, fmt.Errorf("codegen: nil statement")
	}
	if err := c.checkTier(fmt.Sprintf("%T", stmt), stmt.Tier()); err != nil {
		return nil, err
	}

	switch s := stmt.(type) {
	case *ast.ExprStmt:
		return c.compileExprStmt(s)
	case *ast.Assign:
		value, err := c.CompileExpr(s.Value)
		if err != nil {
			return nil, err
		}
		return ir.Flatten(value, ir.LocalSet(ir.Var(s.Name))), nil
	case *ast.IndexAssign:
		return c.compileIndexAssign(s)
	case *ast.If:
		return c.compileIf(s)
	case *ast.While:
		return c.compileWhile(s)
	default:
		return nil, fmt.Errorf("codegen: unsupported statement %T", stmt)
	}
}

func (c *Compiler) compileExprStmt(s *ast.ExprStmt) (ir.Block, error) {
	value, err := c.CompileExpr(s.X)
	if err != nil {
		return nil, err
	}
	if s.X.Type().Kind == ast.TypeVoid {
		return value, nil
	}
	return ir.Flatten(value, ir.Drop()), nil
}

func (c *Compiler) compileIndexAssign(s *ast.IndexAssign) (ir.Block, error) {
	addr, _, err := c.elementRef(s.Array, s.Index)
	if err != nil {
		return nil, err
	}
	value, err := c.CompileExpr(s.Value)
	if err != nil {
		return nil, err
	}
	vt, err := ValType(s.Value.Type())
	if err != nil {
		return nil, err
	}
	if vt == ir.NoResult {
		return nil, fmt.Errorf("codegen: cannot store a %s value", s.Value.Type())
	}
	return ir.Flatten(addr, value, ir.Store(vt)), nil
}

func (c *Compiler) compileIf(s *ast.If) (ir.Block, error) {
	cond, err := c.CompileExpr(s.Cond)
	if err != nil {
		return nil, err
	}
	then, err := c.CompileStmts(s.Then)
	if err != nil {
		return nil, err
	}
	otherwise, err := c.CompileStmts(s.Else)
	if err != nil {
		return nil, err
	}
	return ir.Flatten(cond, ir.If(ir.NoResult, then, otherwise)), nil
}

// compileWhile lowers to
//
//	block $exit { loop $start { cond; i32.eqz; br_if $exit; body; br $start } }
func (c *Compiler) compileWhile(s *ast.While) (ir.Block, error) {
	exit, start := c.loopLabels("while")

	cond, err := c.CompileExpr(s.Cond)
	if err != nil {
		return nil, err
	}
	body, err := c.CompileStmts(s.Body)
	if err != nil {
		return nil, err
	}

	return ir.Block{
		ir.DeclareBlock(exit, ir.Block{
			ir.Loop(start, ir.Flatten(
				cond,
				ir.Int32(0),
				ir.Compare(ir.I32, ir.CompareEqual),
				ir.BranchIf(exit),
				body,
				ir.Branch(start),
			)),
		}),
	}, nil
}
