package ir

import (
	"strings"
	"testing"
)

func TestMnemonic(t *testing.T) {
	tests := []struct {
		frag Fragment
		want string
	}{
		{Int64(-5), "i64.const -5"},
		{Int32(14), "i32.const 14"},
		{Var("x"), "local.get $x"},
		{LocalSet("x"), "local.set $x"},
		{LocalTee("x"), "local.tee $x"},
		{Global("@free_ptr"), "global.get $@free_ptr"},
		{GlobalSet("@free_ptr"), "global.set $@free_ptr"},
		{Op(I64, OpSub), "i64.sub"},
		{Op(I32, OpShrU), "i32.shr_u"},
		{Compare(I64, CompareLess), "i64.lt_s"},
		{Compare(I32, CompareLessUnsigned), "i32.lt_u"},
		{Convert(WrapI64), "i32.wrap_i64"},
		{Convert(ExtendI32U), "i64.extend_i32_u"},
		{Load(I32), "i32.load"},
		{Store(I64), "i64.store"},
		{Call("print_i64"), "call $print_i64"},
		{If(I32, nil), "if (result i32)"},
		{If(NoResult, nil), "if"},
		{DeclareBlock("exit_0", nil), "block $exit_0"},
		{Loop("start_0", nil), "loop $start_0"},
		{Branch("start_0"), "br $start_0"},
		{BranchIf("exit_0"), "br_if $exit_0"},
		{Drop(), "drop"},
		{Trap(), "unreachable"},
	}
	for _, tt := range tests {
		if got := Mnemonic(tt.frag); got != tt.want {
			t.Errorf("Mnemonic(%#v) = %q, want %q", tt.frag, got, tt.want)
		}
	}
}

func TestFormatBlockNesting(t *testing.T) {
	b := Block{
		DeclareBlock("exit_0", Block{
			Loop("start_0", Block{
				Var("c"),
				If(NoResult, Block{Int64(1), Call("print_i64")}, Block{Branch("exit_0")}),
				Branch("start_0"),
			}),
		}),
	}
	want := strings.Join([]string{
		"block $exit_0",
		"  loop $start_0",
		"    local.get $c",
		"    if",
		"      i64.const 1",
		"      call $print_i64",
		"    else",
		"      br $exit_0",
		"    end",
		"    br $start_0",
		"  end",
		"end",
		"",
	}, "\n")
	if got := FormatBlock(b); got != want {
		t.Fatalf("unexpected listing:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatProgram(t *testing.T) {
	prog := &Program{
		Entrypoint: "main",
		Imports: []Import{
			{Module: "env", Name: "print_err", Params: []ValType{I32, I32}},
			{Module: "env", Name: "input_i64", Results: []ValType{I64}},
		},
		Memory:  Memory{Module: "env", Name: "memory", Pages: 1},
		Globals: []GlobalConfig{{Name: "@free_ptr", Type: I32, Mutable: true, Init: 24}},
		Data:    []DataSegment{{Offset: 0, Bytes: []byte("Index\"Error")}},
		Funcs: []Func{{
			Name:   "main",
			Export: "main",
			Locals: []Local{{Name: "x", Type: I64}},
			Body:   Block{Call("input_i64"), LocalSet("x")},
		}},
	}
	out := prog.String()
	for _, want := range []string{
		`(import "env" "memory" (memory 1))`,
		`(import "env" "print_err" (func $print_err (param i32 i32)))`,
		`(import "env" "input_i64" (func $input_i64 (result i64)))`,
		`(global $@free_ptr (mut i32) (i32.const 24))`,
		`(data (i32.const 0) "Index\22Error")`,
		`(func $main (export "main")`,
		`(local $x i64)`,
		`    call $input_i64`,
		`    local.set $x`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("listing is missing %q:\n%s", want, out)
		}
	}
}
