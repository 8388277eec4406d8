package ast

import "fmt"

// TypeKind enumerates the static types of the array language.
type TypeKind int

const (
	TypeInvalid TypeKind = iota
	TypeInt
	TypeBool
	TypeArray
	// TypeVoid is the result of a call that produces no value. It never
	// appears as a variable, operand or element type.
	TypeVoid
)

// Type is a resolved static type. The zero value is TypeInvalid and marks a
// node that has not been through the type checker.
type Type struct {
	Kind TypeKind
	Elem *Type // element type for TypeArray
}

var (
	Int  = Type{Kind: TypeInt}
	Bool = Type{Kind: TypeBool}
	Void = Type{Kind: TypeVoid}
)

// ArrayOf returns the type of heap arrays holding elem values.
func ArrayOf(elem Type) Type {
	e := elem
	return Type{Kind: TypeArray, Elem: &e}
}

func (t Type) IsValid() bool { return t.Kind != TypeInvalid }

func (t Type) IsArray() bool { return t.Kind == TypeArray }

// ElemType returns the element type of an array type. It panics for
// non-array types so misuse surfaces during lowering.
func (t Type) ElemType() Type {
	if t.Kind != TypeArray || t.Elem == nil {
		panic(fmt.Sprintf("ast: %s is not an array type", t))
	}
	return *t.Elem
}

// Equal reports structural equality, descending into nested element types.
func (t Type) Equal(other Type) bool {
	if t.Kind != other.Kind {
		return false
	}
	if t.Kind != TypeArray {
		return true
	}
	if t.Elem == nil || other.Elem == nil {
		return t.Elem == other.Elem
	}
	return t.Elem.Equal(*other.Elem)
}

func (t Type) String() string {
	switch t.Kind {
	case TypeInt:
		return "int"
	case TypeBool:
		return "bool"
	case TypeVoid:
		return "void"
	case TypeArray:
		if t.Elem == nil {
			return "[]?"
		}
		return "[]" + t.Elem.String()
	default:
		return "invalid"
	}
}
