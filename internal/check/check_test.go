package check

import (
	"errors"
	"strings"
	"testing"

	"github.com/tinyrange/arrayc/internal/ast"
)

func decode(t *testing.T, src string) *ast.Module {
	t.Helper()
	mod, err := ast.Decode([]byte(src))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return mod
}

func TestInfersEnvironment(t *testing.T) {
	mod := decode(t, `
- assign: x
  value: 5
- assign: b
  value: {lt: [x, 3]}
- assign: a
  value: {array: [x, x]}
- assign: m
  value: {array: {len: 2, fill: a}}
- assign: {index: [a, 0]}
  value: {call: len, args: [m]}
`)
	last := mod.Stmts[len(mod.Stmts)-1].(*ast.IndexAssign)

	env, err := Module(mod, ast.TierArray)
	if err != nil {
		t.Fatalf("Module: %v", err)
	}
	want := ast.Env{
		"x": ast.Int,
		"b": ast.Bool,
		"a": ast.ArrayOf(ast.Int),
		"m": ast.ArrayOf(ast.ArrayOf(ast.Int)),
	}
	if len(env) != len(want) {
		t.Fatalf("env %v, want %v", env, want)
	}
	for name, ty := range want {
		if !env[name].Equal(ty) {
			t.Errorf("%s: got %s, want %s", name, env[name], ty)
		}
	}

	arr := mod.Stmts[2].(*ast.Assign).Value.(*ast.StaticArray)
	if !arr.ElemTy.Equal(ast.Int) || !arr.Elems[0].Type().Equal(ast.Int) {
		t.Fatalf("static array element types not annotated")
	}
	if !last.Value.Type().Equal(ast.Int) {
		t.Fatalf("len call not annotated")
	}
}

func TestAnnotatesCalls(t *testing.T) {
	mod := decode(t, `
- expr: {call: print, args: [{call: input_int}]}
`)
	if _, err := Module(mod, ast.TierLoop); err != nil {
		t.Fatalf("Module: %v", err)
	}
	printCall := mod.Stmts[0].(*ast.ExprStmt).X.(*ast.Call)
	if printCall.Type().Kind != ast.TypeVoid || !printCall.Args[0].Type().Equal(ast.Int) {
		t.Fatalf("unexpected types %s / %s", printCall.Type(), printCall.Args[0].Type())
	}
}

func TestRejects(t *testing.T) {
	tests := []struct {
		name string
		tier ast.Tier
		src  string
	}{
		{"use before assignment", ast.TierLoop, `[{expr: {call: print, args: [y]}}]`},
		{"reassign other type", ast.TierLoop, `[{assign: x, value: 1}, {assign: x, value: true}]`},
		{"add bools", ast.TierLoop, `[{expr: {add: [true, 1]}}]`},
		{"int condition", ast.TierLoop, `[{if: 1, then: []}]`},
		{"while int condition", ast.TierLoop, `[{while: 0, do: []}]`},
		{"mixed equality", ast.TierLoop, `[{expr: {eq: [1, true]}}]`},
		{"assign void", ast.TierLoop, `[{assign: x, value: {call: print, args: [1]}}]`},
		{"unknown call", ast.TierLoop, `[{expr: {call: sqrt, args: [4]}}]`},
		{"print arity", ast.TierLoop, `[{expr: {call: print, args: [1, 2]}}]`},
		{"arrays in loop tier", ast.TierLoop, `[{assign: a, value: {array: [1]}}]`},
		{"mixed elements", ast.TierArray, `[{assign: a, value: {array: [1, true]}}]`},
		{"empty literal", ast.TierArray, `[{assign: a, value: {array: []}}]`},
		{"bool length", ast.TierArray, `[{assign: a, value: {array: {len: true, fill: 1}}}]`},
		{"index scalar", ast.TierArray, `[{assign: x, value: 1}, {expr: {index: [x, 0]}}]`},
		{"bool index", ast.TierArray, `[{assign: a, value: {array: [1]}}, {expr: {index: [a, true]}}]`},
		{"store wrong type", ast.TierArray, `[{assign: a, value: {array: [1]}}, {assign: {index: [a, 0]}, value: false}]`},
		{"array equality", ast.TierArray, `[{assign: a, value: {array: [1]}}, {expr: {eq: [a, a]}}]`},
		{"is on ints", ast.TierArray, `[{expr: {is: [1, 1]}}]`},
		{"len of int", ast.TierArray, `[{expr: {call: len, args: [3]}}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Module(decode(t, tt.src), tt.tier)
			if !errors.Is(err, ErrType) {
				t.Fatalf("expected type error, got %v", err)
			}
		})
	}
}

func TestAcceptsReferenceIdentity(t *testing.T) {
	mod := decode(t, `
- assign: a
  value: {array: [true]}
- assign: b
  value: a
- expr: {call: print, args: [{is: [a, b]}]}
`)
	if _, err := Module(mod, ast.TierArray); err != nil {
		t.Fatalf("Module: %v", err)
	}
}

func TestTierErrorNamesNode(t *testing.T) {
	tests := []struct {
		src  string
		node string
	}{
		{`[{assign: {index: [a, 0]}, value: 1}]`, "*ast.IndexAssign"},
		{`[{assign: a, value: {array: [1]}}]`, "*ast.StaticArray"},
		{`[{assign: a, value: {array: {len: 2, fill: 0}}}]`, "*ast.DynamicArray"},
	}
	for _, tt := range tests {
		_, err := Module(decode(t, tt.src), ast.TierLoop)
		if !errors.Is(err, ErrType) {
			t.Fatalf("%s: expected ErrType, got %v", tt.src, err)
		}
		if !strings.Contains(err.Error(), tt.node) {
			t.Errorf("%s: error %q does not name %s", tt.src, err, tt.node)
		}
	}
}
