// Package ast defines the typed, normalized program representation consumed
// by the code generator.
//
// Nodes come in two tiers. The loop tier covers integers, booleans,
// conditionals and loops; the array tier extends it with heap arrays. Code
// that only understands the loop tier handles the scalar node set and
// rejects anything reporting TierArray.
package ast

import "sort"

type Ident string

// Tier identifies the smallest language level a node belongs to.
type Tier int

const (
	TierLoop Tier = iota
	TierArray
)

func (t Tier) String() string {
	switch t {
	case TierLoop:
		return "loop"
	case TierArray:
		return "array"
	default:
		return "unknown"
	}
}

// Typed carries the type slot filled in by the checker.
type Typed struct {
	Ty Type
}

func (t *Typed) Type() Type { return t.Ty }

func (t *Typed) SetType(ty Type) { t.Ty = ty }

// Expr is the closed set of expression nodes.
type Expr interface {
	Type() Type
	SetType(Type)
	Tier() Tier
	exprNode()
}

type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpNot
)

func (op UnaryOp) String() string {
	switch op {
	case OpNeg:
		return "neg"
	case OpNot:
		return "not"
	default:
		return "?"
	}
}

type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	// OpIs compares two array references for identity.
	OpIs
)

var binaryOpNames = [...]string{
	OpAdd: "add",
	OpSub: "sub",
	OpMul: "mul",
	OpEq:  "eq",
	OpNe:  "ne",
	OpLt:  "lt",
	OpLe:  "le",
	OpGt:  "gt",
	OpGe:  "ge",
	OpAnd: "and",
	OpOr:  "or",
	OpIs:  "is",
}

func (op BinaryOp) String() string {
	if int(op) < 0 || int(op) >= len(binaryOpNames) {
		return "?"
	}
	return binaryOpNames[op]
}

// LookupBinaryOp maps an operator name to its BinaryOp.
func LookupBinaryOp(name string) (BinaryOp, bool) {
	for op, n := range binaryOpNames {
		if n == name {
			return BinaryOp(op), true
		}
	}
	return 0, false
}

// Loop tier expressions.

type IntLiteral struct {
	Typed
	Value int64
}

type BoolLiteral struct {
	Typed
	Value bool
}

type VarRef struct {
	Typed
	Name Ident
}

type Unary struct {
	Typed
	Op      UnaryOp
	Operand Expr
}

type Binary struct {
	Typed
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// Builtin call names.
const (
	BuiltinPrint Ident = "print"
	BuiltinInput Ident = "input_int"
	BuiltinLen   Ident = "len"
)

type Call struct {
	Typed
	Name Ident
	Args []Expr
}

// Array tier expressions.

// StaticArray allocates an array from a list of elements known at compile
// time. ElemTy is the uniform element type.
type StaticArray struct {
	Typed
	Elems  []Expr
	ElemTy Type
}

// DynamicArray allocates Len elements, each initialized by evaluating Fill.
type DynamicArray struct {
	Typed
	Len  Expr
	Fill Expr
}

type Index struct {
	Typed
	Array Expr
	Index Expr
}

func (*IntLiteral) exprNode()   {}
func (*BoolLiteral) exprNode()  {}
func (*VarRef) exprNode()       {}
func (*Unary) exprNode()        {}
func (*Binary) exprNode()       {}
func (*Call) exprNode()         {}
func (*StaticArray) exprNode()  {}
func (*DynamicArray) exprNode() {}
func (*Index) exprNode()        {}

func (*IntLiteral) Tier() Tier   { return TierLoop }
func (*BoolLiteral) Tier() Tier  { return TierLoop }
func (*VarRef) Tier() Tier       { return TierLoop }
func (*Unary) Tier() Tier        { return TierLoop }
func (*Binary) Tier() Tier       { return TierLoop }
func (*Call) Tier() Tier         { return TierLoop }
func (*StaticArray) Tier() Tier  { return TierArray }
func (*DynamicArray) Tier() Tier { return TierArray }
func (*Index) Tier() Tier        { return TierArray }

// IsAtomic reports whether e is a literal or a bare variable reference.
func IsAtomic(e Expr) bool {
	switch e.(type) {
	case *IntLiteral, *BoolLiteral, *VarRef:
		return true
	default:
		return false
	}
}

// Stmt is the closed set of statement nodes.
type Stmt interface {
	Tier() Tier
	stmtNode()
}

type ExprStmt struct {
	X Expr
}

type Assign struct {
	Name  Ident
	Value Expr
}

type If struct {
	Cond Expr
	Then []Stmt
	Else []Stmt
}

type While struct {
	Cond Expr
	Body []Stmt
}

// IndexAssign stores Value into Array[Index].
type IndexAssign struct {
	Array Expr
	Index Expr
	Value Expr
}

func (*ExprStmt) stmtNode()    {}
func (*Assign) stmtNode()      {}
func (*If) stmtNode()          {}
func (*While) stmtNode()       {}
func (*IndexAssign) stmtNode() {}

func (*ExprStmt) Tier() Tier    { return TierLoop }
func (*Assign) Tier() Tier      { return TierLoop }
func (*If) Tier() Tier          { return TierLoop }
func (*While) Tier() Tier       { return TierLoop }
func (*IndexAssign) Tier() Tier { return TierArray }

// Module is a whole program: the body of the single entry procedure.
type Module struct {
	Stmts []Stmt
}

// Env maps every source variable to its declared type.
type Env map[Ident]Type

// Names returns the variables in a stable order.
func (e Env) Names() []Ident {
	names := make([]Ident, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Local is a compiler-introduced temporary and its type.
type Local struct {
	Name Ident
	Type Type
}
