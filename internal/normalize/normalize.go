// Package normalize rewrites a type-checked module so that every operand
// consumed by an array operation is a literal or a variable reference.
//
// Nested operands are hoisted into fresh typed temporaries assigned just
// before the statement that used them. Evaluation order is preserved: when a
// later operand needs hoisting, earlier non-atomic operands are hoisted first.
// Operands of and/or that need hoisting are moved into a conditional so the
// short-circuit is kept.
package normalize

import (
	"fmt"

	"github.com/tinyrange/arrayc/internal/ast"
)

// TempPrefix starts the name of every introduced temporary. Source
// variables never begin with it.
const TempPrefix = "@tmp"

type normalizer struct {
	env   ast.Env
	temps []ast.Local
	next  int
}

// Module returns the normalized statements of mod together with the
// temporaries it introduced, in creation order. mod must already carry
// types; env is the checker's variable environment.
func Module(mod *ast.Module, env ast.Env) (*ast.Module, []ast.Local, error) {
	if mod == nil {
		return nil, nil, fmt.Errorf("normalize: module must be non-nil")
	}
	n := &normalizer{env: env}
	stmts, err := n.stmts(mod.Stmts)
	if err != nil {
		return nil, nil, err
	}
	return &ast.Module{Stmts: stmts}, n.temps, nil
}

func (n *normalizer) fresh(ty ast.Type) *ast.VarRef {
	for {
		name := ast.Ident(fmt.Sprintf("%s%d", TempPrefix, n.next))
		n.next++
		if _, taken := n.env[name]; taken {
			continue
		}
		n.temps = append(n.temps, ast.Local{Name: name, Type: ty})
		return varRef(name, ty)
	}
}

func varRef(name ast.Ident, ty ast.Type) *ast.VarRef {
	return &ast.VarRef{Typed: ast.Typed{Ty: ty}, Name: name}
}

func assign(dst *ast.VarRef, value ast.Expr) ast.Stmt {
	return &ast.Assign{Name: dst.Name, Value: value}
}

func (n *normalizer) stmts(list []ast.Stmt) ([]ast.Stmt, error) {
	var out []ast.Stmt
	for _, stmt := range list {
		lowered, err := n.stmt(stmt)
		if err != nil {
			return nil, err
		}
		out = append(out, lowered...)
	}
	return out, nil
}

func (n *normalizer) stmt(stmt ast.Stmt) ([]ast.Stmt, error) {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		pre, x, err := n.expr(s.X)
		if err != nil {
			return nil, err
		}
		return append(pre, &ast.ExprStmt{X: x}), nil
	case *ast.Assign:
		pre, value, err := n.expr(s.Value)
		if err != nil {
			return nil, err
		}
		return append(pre, &ast.Assign{Name: s.Name, Value: value}), nil
	case *ast.IndexAssign:
		pre, ops, err := n.atoms(s.Array, s.Index)
		if err != nil {
			return nil, err
		}
		valPre, value, err := n.expr(s.Value)
		if err != nil {
			return nil, err
		}
		pre = append(pre, valPre...)
		return append(pre, &ast.IndexAssign{Array: ops[0], Index: ops[1], Value: value}), nil
	case *ast.If:
		pre, cond, err := n.expr(s.Cond)
		if err != nil {
			return nil, err
		}
		then, err := n.stmts(s.Then)
		if err != nil {
			return nil, err
		}
		otherwise, err := n.stmts(s.Else)
		if err != nil {
			return nil, err
		}
		return append(pre, &ast.If{Cond: cond, Then: then, Else: otherwise}), nil
	case *ast.While:
		return n.while(s)
	default:
		return nil, fmt.Errorf("normalize: unsupported statement %T", stmt)
	}
}

// while re-evaluates a hoisted condition at the end of every iteration:
//
//	pre; t = cond; while t { body; pre; t = cond }
func (n *normalizer) while(s *ast.While) ([]ast.Stmt, error) {
	pre, cond, err := n.expr(s.Cond)
	if err != nil {
		return nil, err
	}
	body, err := n.stmts(s.Body)
	if err != nil {
		return nil, err
	}
	if len(pre) == 0 {
		return []ast.Stmt{&ast.While{Cond: cond, Body: body}}, nil
	}

	t := n.fresh(ast.Bool)
	var out []ast.Stmt
	out = append(out, pre...)
	out = append(out, assign(t, cond))
	body = append(body, pre...)
	body = append(body, assign(t, cond))
	return append(out, &ast.While{Cond: t, Body: body}), nil
}

// expr returns statements to run first and an equivalent expression whose
// array operands are atomic.
func (n *normalizer) expr(e ast.Expr) ([]ast.Stmt, ast.Expr, error) {
	if e == nil {
		return nil, nil, fmt.Errorf("normalize: missing expression")
	}
	if !e.Type().IsValid() {
		return nil, nil, fmt.Errorf("normalize: %T has no type", e)
	}

	switch v := e.(type) {
	case *ast.IntLiteral, *ast.BoolLiteral, *ast.VarRef:
		return nil, e, nil
	case *ast.Unary:
		pre, operand, err := n.expr(v.Operand)
		if err != nil {
			return nil, nil, err
		}
		return pre, &ast.Unary{Typed: v.Typed, Op: v.Op, Operand: operand}, nil
	case *ast.Binary:
		if v.Op == ast.OpAnd || v.Op == ast.OpOr {
			return n.shortCircuit(v)
		}
		pre, ops, err := n.sequence([]ast.Expr{v.Left, v.Right})
		if err != nil {
			return nil, nil, err
		}
		return pre, &ast.Binary{Typed: v.Typed, Op: v.Op, Left: ops[0], Right: ops[1]}, nil
	case *ast.Call:
		pre, args, err := n.sequence(v.Args)
		if err != nil {
			return nil, nil, err
		}
		return pre, &ast.Call{Typed: v.Typed, Name: v.Name, Args: args}, nil
	case *ast.StaticArray:
		pre, elems, err := n.atoms(v.Elems...)
		if err != nil {
			return nil, nil, err
		}
		return pre, &ast.StaticArray{Typed: v.Typed, Elems: elems, ElemTy: v.ElemTy}, nil
	case *ast.DynamicArray:
		pre, ops, err := n.atoms(v.Len, v.Fill)
		if err != nil {
			return nil, nil, err
		}
		return pre, &ast.DynamicArray{Typed: v.Typed, Len: ops[0], Fill: ops[1]}, nil
	case *ast.Index:
		pre, ops, err := n.atoms(v.Array, v.Index)
		if err != nil {
			return nil, nil, err
		}
		return pre, &ast.Index{Typed: v.Typed, Array: ops[0], Index: ops[1]}, nil
	default:
		return nil, nil, fmt.Errorf("normalize: unsupported expression %T", e)
	}
}

// sequence normalizes operands evaluated left to right. When an operand
// needs hoisting, every earlier operand that is not atomic is hoisted ahead
// of it so side effects keep their order.
func (n *normalizer) sequence(exprs []ast.Expr) ([]ast.Stmt, []ast.Expr, error) {
	var pre []ast.Stmt
	out := make([]ast.Expr, len(exprs))
	for i, e := range exprs {
		p, x, err := n.expr(e)
		if err != nil {
			return nil, nil, err
		}
		if len(p) > 0 {
			for j := 0; j < i; j++ {
				if ast.IsAtomic(out[j]) {
					continue
				}
				t := n.fresh(out[j].Type())
				pre = append(pre, assign(t, out[j]))
				out[j] = t
			}
			pre = append(pre, p...)
		}
		out[i] = x
	}
	return pre, out, nil
}

// atoms normalizes operands that must each end up atomic.
func (n *normalizer) atoms(exprs ...ast.Expr) ([]ast.Stmt, []ast.Expr, error) {
	pre, out, err := n.sequence(exprs)
	if err != nil {
		return nil, nil, err
	}
	for i, x := range out {
		if ast.IsAtomic(x) {
			continue
		}
		t := n.fresh(x.Type())
		pre = append(pre, assign(t, x))
		out[i] = t
	}
	return pre, out, nil
}

// shortCircuit keeps the right operand conditional when it needs hoisting:
//
//	and: t = left; if t { pre; t = right }
//	or:  t = left; if t {} else { pre; t = right }
func (n *normalizer) shortCircuit(v *ast.Binary) ([]ast.Stmt, ast.Expr, error) {
	leftPre, left, err := n.expr(v.Left)
	if err != nil {
		return nil, nil, err
	}
	rightPre, right, err := n.expr(v.Right)
	if err != nil {
		return nil, nil, err
	}
	if len(rightPre) == 0 {
		return leftPre, &ast.Binary{Typed: v.Typed, Op: v.Op, Left: left, Right: right}, nil
	}

	t := n.fresh(ast.Bool)
	rest := append(rightPre, assign(t, right))
	branch := &ast.If{Cond: t, Then: rest}
	if v.Op == ast.OpOr {
		branch = &ast.If{Cond: t, Else: rest}
	}
	pre := append(leftPre, assign(t, left), branch)
	return pre, t, nil
}
