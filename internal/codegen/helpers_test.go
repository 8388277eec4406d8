package codegen

import (
	"testing"

	"github.com/tinyrange/arrayc/internal/ast"
	"github.com/tinyrange/arrayc/internal/ir"
)

var testMessages = Messages{
	Capacity: Message{Offset: 0, Length: 14},
	Index:    Message{Offset: 14, Length: 10},
}

func newTestCompiler(t *testing.T) *Compiler {
	t.Helper()
	c, err := New(Config{
		Tier:             ast.TierArray,
		MaxArrayByteSize: 1 << 20,
		Messages:         testMessages,
		FreePtr:          "@free_ptr",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func intLit(v int64) ast.Expr {
	return &ast.IntLiteral{Typed: ast.Typed{Ty: ast.Int}, Value: v}
}

func boolLit(v bool) ast.Expr {
	return &ast.BoolLiteral{Typed: ast.Typed{Ty: ast.Bool}, Value: v}
}

func ref(name string, ty ast.Type) ast.Expr {
	return &ast.VarRef{Typed: ast.Typed{Ty: ty}, Name: ast.Ident(name)}
}

func bin(op ast.BinaryOp, l, r ast.Expr, ty ast.Type) ast.Expr {
	return &ast.Binary{Typed: ast.Typed{Ty: ty}, Op: op, Left: l, Right: r}
}

func call(name ast.Ident, ty ast.Type, args ...ast.Expr) ast.Expr {
	return &ast.Call{Typed: ast.Typed{Ty: ty}, Name: name, Args: args}
}

func index(arr, idx ast.Expr) ast.Expr {
	return &ast.Index{Typed: ast.Typed{Ty: arr.Type().ElemType()}, Array: arr, Index: idx}
}

func compileLines(t *testing.T, c *Compiler, e ast.Expr) []ir.Line {
	t.Helper()
	b, err := c.CompileExpr(e)
	if err != nil {
		t.Fatalf("CompileExpr: %v", err)
	}
	return ir.Lines(b)
}

func compileStmtLines(t *testing.T, c *Compiler, stmts ...ast.Stmt) []ir.Line {
	t.Helper()
	b, err := c.CompileStmts(stmts)
	if err != nil {
		t.Fatalf("CompileStmts: %v", err)
	}
	return ir.Lines(b)
}
