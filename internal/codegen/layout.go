package codegen

import (
	"fmt"

	"github.com/tinyrange/arrayc/internal/ast"
	"github.com/tinyrange/arrayc/internal/ir"
)

// ElemKind is the tag stored in the low nibble of an array header.
type ElemKind uint32

const (
	ElemScalar ElemKind = 1
	ElemArray  ElemKind = 3
)

func (k ElemKind) String() string {
	switch k {
	case ElemScalar:
		return "scalar"
	case ElemArray:
		return "array"
	default:
		return "unknown"
	}
}

const (
	// HeaderSize is the number of bytes preceding the first element.
	HeaderSize  = 4
	headerShift = 4
	tagMask     = 1<<headerShift - 1

	// MaxLength is the largest length a header word can hold.
	MaxLength = 1<<(32-headerShift) - 1
)

// ElemKindOf classifies an element type for the header tag.
func ElemKindOf(elem ast.Type) ElemKind {
	if elem.IsArray() {
		return ElemArray
	}
	return ElemScalar
}

// elemType returns the element type of an array type, or ErrUntyped when
// the node's type is incomplete.
func elemType(ty ast.Type) (ast.Type, error) {
	if !ty.IsArray() || ty.Elem == nil || !ty.Elem.IsValid() {
		return ast.Type{}, fmt.Errorf("%w: %s has no element type", ErrUntyped, ty)
	}
	return *ty.Elem, nil
}

// ElemWidth returns the storage size of one element in bytes.
func ElemWidth(elem ast.Type) int64 {
	if elem.Kind == ast.TypeInt {
		return 8
	}
	return 4
}

// EncodeHeader packs a length and element kind into one header word.
func EncodeHeader(length uint32, kind ElemKind) uint32 {
	return length<<headerShift ^ uint32(kind)
}

// DecodeHeader splits a header word into its length and element kind.
func DecodeHeader(header uint32) (uint32, ElemKind) {
	return header >> headerShift, ElemKind(header & tagMask)
}

// lengthOf reads the header of the array reference pushed by arr and leaves
// its length as an i64.
func lengthOf(arr ir.Block) ir.Block {
	return ir.Flatten(
		arr,
		ir.Load(ir.I32),
		ir.Int32(headerShift),
		ir.Op(ir.I32, ir.OpShrU),
		ir.Convert(ir.ExtendI32U),
	)
}

// elementAddress leaves base + HeaderSize + index*width on the stack.
func elementAddress(arr, index ir.Block, width int64) ir.Block {
	return ir.Flatten(
		arr,
		index,
		ir.Convert(ir.WrapI64),
		ir.Int32(width),
		ir.Op(ir.I32, ir.OpMul),
		ir.Int32(HeaderSize),
		ir.Op(ir.I32, ir.OpAdd),
		ir.Op(ir.I32, ir.OpAdd),
	)
}
