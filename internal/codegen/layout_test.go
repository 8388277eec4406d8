package codegen

import (
	"testing"

	"github.com/tinyrange/arrayc/internal/ast"
)

func TestHeaderRoundTrip(t *testing.T) {
	lengths := []uint32{0, 1, 2, 15, 16, 255, 1 << 17, MaxLength}
	kinds := []ElemKind{ElemScalar, ElemArray}
	for _, length := range lengths {
		for _, kind := range kinds {
			gotLen, gotKind := DecodeHeader(EncodeHeader(length, kind))
			if gotLen != length || gotKind != kind {
				t.Fatalf("round trip (%d, %s) = (%d, %s)", length, kind, gotLen, gotKind)
			}
		}
	}
}

func TestHeaderEncoding(t *testing.T) {
	if got := EncodeHeader(3, ElemScalar); got != 0x31 {
		t.Fatalf("EncodeHeader(3, scalar) = %#x, want 0x31", got)
	}
	if got := EncodeHeader(2, ElemArray); got != 0x23 {
		t.Fatalf("EncodeHeader(2, array) = %#x, want 0x23", got)
	}
}

func TestElementClassification(t *testing.T) {
	tests := []struct {
		elem  ast.Type
		kind  ElemKind
		width int64
	}{
		{ast.Int, ElemScalar, 8},
		{ast.Bool, ElemScalar, 4},
		{ast.ArrayOf(ast.Int), ElemArray, 4},
		{ast.ArrayOf(ast.ArrayOf(ast.Bool)), ElemArray, 4},
	}
	for _, tt := range tests {
		if got := ElemKindOf(tt.elem); got != tt.kind {
			t.Errorf("ElemKindOf(%s) = %s, want %s", tt.elem, got, tt.kind)
		}
		if got := ElemWidth(tt.elem); got != tt.width {
			t.Errorf("ElemWidth(%s) = %d, want %d", tt.elem, got, tt.width)
		}
	}
}
