// Package check infers variable types and annotates every expression node of
// a module with its static type.
package check

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tinyrange/arrayc/internal/ast"
)

// ErrType is wrapped by every rejection the checker reports.
var ErrType = errors.New("type error")

type checker struct {
	tier ast.Tier
	env  ast.Env
}

// Module type-checks mod in place for the given language tier and returns
// the variable environment. A variable's type is fixed by its first
// assignment in program order; every later assignment must agree and every
// use must follow an assignment.
func Module(mod *ast.Module, tier ast.Tier) (ast.Env, error) {
	if mod == nil {
		return nil, fmt.Errorf("check: module must be non-nil")
	}
	c := &checker{tier: tier, env: make(ast.Env)}
	if err := c.stmts(mod.Stmts); err != nil {
		return nil, err
	}
	return c.env, nil
}

func (c *checker) errorf(format string, args ...any) error {
	return fmt.Errorf("check: %w: %s", ErrType, fmt.Sprintf(format, args...))
}

func (c *checker) allowed(what string, t ast.Tier) error {
	if t > c.tier {
		return c.errorf("%s is not available in the %s language", what, c.tier)
	}
	return nil
}

func (c *checker) stmts(list []ast.Stmt) error {
	for _, stmt := range list {
		if err := c.stmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (c *checker) stmt(stmt ast.Stmt) error {
	if stmt == nil {
		return c.errorf("missing statement")
	}
	if err := c.allowed(fmt.Sprintf("%T", stmt), stmt.Tier()); err != nil {
		return err
	}

	switch s := stmt.(type) {
	case *ast.ExprStmt:
		_, err := c.expr(s.X)
		return err
	case *ast.Assign:
		return c.assign(s)
	case *ast.IndexAssign:
		elem, err := c.indexed(s.Array, s.Index)
		if err != nil {
			return err
		}
		val, err := c.value(s.Value)
		if err != nil {
			return err
		}
		if !val.Equal(elem) {
			return c.errorf("cannot store %s into an element of type %s", val, elem)
		}
		return nil
	case *ast.If:
		if err := c.condition("if", s.Cond); err != nil {
			return err
		}
		if err := c.stmts(s.Then); err != nil {
			return err
		}
		return c.stmts(s.Else)
	case *ast.While:
		if err := c.condition("while", s.Cond); err != nil {
			return err
		}
		return c.stmts(s.Body)
	default:
		return c.errorf("unsupported statement %T", stmt)
	}
}

func (c *checker) assign(s *ast.Assign) error {
	if s.Name == "" || strings.HasPrefix(string(s.Name), "@") {
		return c.errorf("invalid variable name %q", s.Name)
	}
	ty, err := c.value(s.Value)
	if err != nil {
		return err
	}
	if prev, ok := c.env[s.Name]; ok {
		if !prev.Equal(ty) {
			return c.errorf("cannot assign %s to %s of type %s", ty, s.Name, prev)
		}
		return nil
	}
	c.env[s.Name] = ty
	return nil
}

func (c *checker) condition(what string, e ast.Expr) error {
	ty, err := c.expr(e)
	if err != nil {
		return err
	}
	if ty.Kind != ast.TypeBool {
		return c.errorf("%s condition must be bool, got %s", what, ty)
	}
	return nil
}

// value checks an expression whose result is stored or consumed.
func (c *checker) value(e ast.Expr) (ast.Type, error) {
	ty, err := c.expr(e)
	if err != nil {
		return ast.Type{}, err
	}
	if ty.Kind == ast.TypeVoid {
		return ast.Type{}, c.errorf("%T produces no value", e)
	}
	return ty, nil
}

func (c *checker) operand(e ast.Expr, want ast.TypeKind, what string) error {
	ty, err := c.value(e)
	if err != nil {
		return err
	}
	if ty.Kind != want {
		return c.errorf("%s expects %s operands, got %s", what, ast.Type{Kind: want}, ty)
	}
	return nil
}

func (c *checker) expr(e ast.Expr) (ast.Type, error) {
	if e == nil {
		return ast.Type{}, c.errorf("missing expression")
	}
	if err := c.allowed(fmt.Sprintf("%T", e), e.Tier()); err != nil {
		return ast.Type{}, err
	}
	ty, err := c.infer(e)
	if err != nil {
		return ast.Type{}, err
	}
	e.SetType(ty)
	return ty, nil
}

func (c *checker) infer(e ast.Expr) (ast.Type, error) {
	switch v := e.(type) {
	case *ast.IntLiteral:
		return ast.Int, nil
	case *ast.BoolLiteral:
		return ast.Bool, nil
	case *ast.VarRef:
		ty, ok := c.env[v.Name]
		if !ok {
			return ast.Type{}, c.errorf("variable %s used before assignment", v.Name)
		}
		return ty, nil
	case *ast.Unary:
		return c.unary(v)
	case *ast.Binary:
		return c.binary(v)
	case *ast.Call:
		return c.call(v)
	case *ast.StaticArray:
		return c.staticArray(v)
	case *ast.DynamicArray:
		if err := c.operand(v.Len, ast.TypeInt, "array length"); err != nil {
			return ast.Type{}, err
		}
		fill, err := c.value(v.Fill)
		if err != nil {
			return ast.Type{}, err
		}
		return ast.ArrayOf(fill), nil
	case *ast.Index:
		return c.indexed(v.Array, v.Index)
	default:
		return ast.Type{}, c.errorf("unsupported expression %T", e)
	}
}

func (c *checker) unary(v *ast.Unary) (ast.Type, error) {
	switch v.Op {
	case ast.OpNeg:
		return ast.Int, c.operand(v.Operand, ast.TypeInt, "neg")
	case ast.OpNot:
		return ast.Bool, c.operand(v.Operand, ast.TypeBool, "not")
	default:
		return ast.Type{}, c.errorf("unknown unary operator %s", v.Op)
	}
}

func (c *checker) binary(v *ast.Binary) (ast.Type, error) {
	switch v.Op {
	case ast.OpAdd, ast.OpSub, ast.OpMul:
		return ast.Int, c.both(v, ast.TypeInt)
	case ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		return ast.Bool, c.both(v, ast.TypeInt)
	case ast.OpAnd, ast.OpOr:
		return ast.Bool, c.both(v, ast.TypeBool)
	case ast.OpIs:
		left, err := c.value(v.Left)
		if err != nil {
			return ast.Type{}, err
		}
		right, err := c.value(v.Right)
		if err != nil {
			return ast.Type{}, err
		}
		if !left.IsArray() || !right.IsArray() {
			return ast.Type{}, c.errorf("is expects array operands, got %s and %s", left, right)
		}
		return ast.Bool, nil
	case ast.OpEq, ast.OpNe:
		left, err := c.value(v.Left)
		if err != nil {
			return ast.Type{}, err
		}
		right, err := c.value(v.Right)
		if err != nil {
			return ast.Type{}, err
		}
		if left.IsArray() || right.IsArray() {
			return ast.Type{}, c.errorf("%s is not defined for arrays; use is for identity", v.Op)
		}
		if !left.Equal(right) {
			return ast.Type{}, c.errorf("%s operands differ: %s and %s", v.Op, left, right)
		}
		return ast.Bool, nil
	default:
		return ast.Type{}, c.errorf("unknown binary operator %s", v.Op)
	}
}

func (c *checker) both(v *ast.Binary, want ast.TypeKind) error {
	if err := c.operand(v.Left, want, v.Op.String()); err != nil {
		return err
	}
	return c.operand(v.Right, want, v.Op.String())
}

func (c *checker) call(v *ast.Call) (ast.Type, error) {
	switch v.Name {
	case ast.BuiltinPrint:
		if len(v.Args) != 1 {
			return ast.Type{}, c.errorf("print expects 1 argument, got %d", len(v.Args))
		}
		if _, err := c.value(v.Args[0]); err != nil {
			return ast.Type{}, err
		}
		return ast.Void, nil
	case ast.BuiltinInput:
		if len(v.Args) != 0 {
			return ast.Type{}, c.errorf("input_int expects no arguments, got %d", len(v.Args))
		}
		return ast.Int, nil
	case ast.BuiltinLen:
		if err := c.allowed("len", ast.TierArray); err != nil {
			return ast.Type{}, err
		}
		if len(v.Args) != 1 {
			return ast.Type{}, c.errorf("len expects 1 argument, got %d", len(v.Args))
		}
		ty, err := c.value(v.Args[0])
		if err != nil {
			return ast.Type{}, err
		}
		if !ty.IsArray() {
			return ast.Type{}, c.errorf("len expects an array, got %s", ty)
		}
		return ast.Int, nil
	default:
		return ast.Type{}, c.errorf("unknown function %s", v.Name)
	}
}

func (c *checker) staticArray(v *ast.StaticArray) (ast.Type, error) {
	if len(v.Elems) == 0 {
		return ast.Type{}, c.errorf("array literal must have at least one element")
	}
	var elem ast.Type
	for i, el := range v.Elems {
		ty, err := c.value(el)
		if err != nil {
			return ast.Type{}, err
		}
		if i == 0 {
			elem = ty
			continue
		}
		if !ty.Equal(elem) {
			return ast.Type{}, c.errorf("array element %d has type %s, want %s", i, ty, elem)
		}
	}
	v.ElemTy = elem
	return ast.ArrayOf(elem), nil
}

func (c *checker) indexed(array, index ast.Expr) (ast.Type, error) {
	arr, err := c.value(array)
	if err != nil {
		return ast.Type{}, err
	}
	if !arr.IsArray() {
		return ast.Type{}, c.errorf("cannot index a value of type %s", arr)
	}
	if err := c.operand(index, ast.TypeInt, "index"); err != nil {
		return ast.Type{}, err
	}
	return arr.ElemType(), nil
}
