package codegen

import (
	"testing"

	"github.com/tinyrange/arrayc/internal/ast"
	"github.com/tinyrange/arrayc/internal/ir/testutil"
)

func staticArray(elem ast.Type, elems ...ast.Expr) ast.Expr {
	return &ast.StaticArray{Typed: ast.Typed{Ty: ast.ArrayOf(elem)}, Elems: elems, ElemTy: elem}
}

func dynamicArray(elem ast.Type, length, fill ast.Expr) ast.Expr {
	return &ast.DynamicArray{Typed: ast.Typed{Ty: ast.ArrayOf(elem)}, Len: length, Fill: fill}
}

func TestStaticArrayLowering(t *testing.T) {
	c := newTestCompiler(t)
	if len(c.ScratchLocals()) != 0 {
		t.Fatalf("scratch slots reported before any allocation")
	}
	lines := compileLines(t, c, staticArray(ast.Int, ref("x", ast.Int), ref("y", ast.Int)))

	// Both capacity guards report the capacity message.
	testutil.VerifyExpectations(t, lines, testutil.Seq(
		"i64.const 2",
		"i64.const 131072",
		"i64.gt_s",
		"if",
		"i32.const 0",
		"i32.const 14",
		"call $print_err",
		"unreachable",
		"end",
		"i64.const 2",
		"i64.const 0",
		"i64.lt_s",
		"if",
		"i32.const 0",
		"i32.const 14",
		"call $print_err",
		"unreachable",
		"end",
	))
	testutil.VerifySequence(t, lines, testutil.Seq(
		"global.get $@free_ptr",
		"local.set $@array",
		"local.get $@array",
		"i64.const 2",
		"i32.wrap_i64",
		"i32.const 4",
		"i32.shl",
		"i32.const 1",
		"i32.xor",
		"i32.store",
	))
	testutil.VerifySequence(t, lines, testutil.Seq(
		"local.get $@array",
		"i32.const 12",
		"i32.add",
		"local.get $y",
		"i64.store",
		"local.get $@array",
	))
	if got := len(c.ScratchLocals()); got != 2 {
		t.Fatalf("expected 2 scratch locals, got %d", got)
	}
}

func TestNestedArrayTag(t *testing.T) {
	c := newTestCompiler(t)
	inner := ast.ArrayOf(ast.Bool)
	lines := compileLines(t, c, staticArray(inner, ref("p", inner)))
	testutil.VerifySequence(t, lines, testutil.Seq("i32.const 3", "i32.xor", "i32.store"))
	testutil.VerifySequence(t, lines, testutil.Seq("local.get $p", "i32.store"))
}

func TestDynamicArrayLoop(t *testing.T) {
	c := newTestCompiler(t)
	lines := compileLines(t, c, dynamicArray(ast.Bool, ref("n", ast.Int), boolLit(true)))

	testutil.VerifyExpectations(t, lines, testutil.Seq(
		"local.get $n",
		"i64.const 262144",
		"i64.gt_s",
	))
	start := testutil.VerifySequence(t, lines, testutil.Seq(
		"local.get $@array",
		"i32.const 4",
		"i32.add",
		"local.set $@cursor",
		"block $fill_exit_1",
		"loop $fill_start_1",
		"local.get $@cursor",
		"global.get $@free_ptr",
		"i32.lt_u",
		"i32.const 0",
		"i32.eq",
		"br_if $fill_exit_1",
		"local.get $@cursor",
		"i32.const 1",
		"i32.store",
		"local.get $@cursor",
		"i32.const 4",
		"i32.add",
		"local.set $@cursor",
		"br $fill_start_1",
		"end",
		"end",
		"local.get $@array",
	))
	if start+23 != len(lines) {
		t.Fatalf("array reference must be the last instruction")
	}
}

func TestIndexGuards(t *testing.T) {
	c := newTestCompiler(t)
	arr := ref("a", ast.ArrayOf(ast.Int))
	lines := compileLines(t, c, index(arr, ref("i", ast.Int)))

	testutil.VerifyExpectations(t, lines, testutil.Seq(
		"local.get $i",
		"i64.const 0",
		"i64.lt_s",
		"if",
		"i32.const 14",
		"i32.const 10",
		"call $print_err",
		"unreachable",
		"end",
		"local.get $i",
		"local.get $a",
		"i32.load",
		"i32.const 4",
		"i32.shr_u",
		"i64.extend_i32_u",
		"i64.ge_s",
		"if",
		"i32.const 14",
		"i32.const 10",
		"call $print_err",
		"unreachable",
		"end",
		"local.get $a",
		"local.get $i",
		"i32.wrap_i64",
		"i32.const 8",
		"i32.mul",
		"i32.const 4",
		"i32.add",
		"i32.add",
		"i64.load",
	))
}

func TestIndexAssignStoresValueWidth(t *testing.T) {
	c := newTestCompiler(t)
	arr := ref("a", ast.ArrayOf(ast.Bool))
	lines := compileStmtLines(t, c, &ast.IndexAssign{Array: arr, Index: intLit(1), Value: boolLit(false)})
	n := len(lines)
	if lines[n-2].Text != "i32.const 0" || lines[n-1].Text != "i32.store" {
		t.Fatalf("unexpected store tail %v", lines[n-2:])
	}
	if testutil.Count(lines, "call $print_err") != 2 {
		t.Fatalf("index assignment must carry both access guards")
	}
}
