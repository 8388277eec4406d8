// Package ir models the instruction set of a structured-control-flow stack
// machine. Fragments are plain values; a Block is a flat sequence of them and
// nested regions (If, DeclareBlock, Loop) carry their own Blocks.
package ir

type Fragment interface{}

// ValType is the width of a value on the operand stack.
type ValType uint8

const (
	// NoResult marks a structured region that leaves nothing on the stack.
	NoResult ValType = iota
	I32
	I64
)

func (t ValType) String() string {
	switch t {
	case I32:
		return "i32"
	case I64:
		return "i64"
	default:
		return "none"
	}
}

// Size returns the storage size of the value type in bytes.
func (t ValType) Size() int32 {
	switch t {
	case I32:
		return 4
	case I64:
		return 8
	default:
		return 0
	}
}

type Block []Fragment

// Int64 pushes a 64-bit constant.
type Int64 int64

// Int32 pushes a 32-bit constant.
type Int32 int32

// Var reads a local slot when used as a fragment.
type Var string

// GlobalVar reads a global cell when used as a fragment.
type GlobalVar string

// Global declares a reference to a module-level cell.
func Global(name string) GlobalVar {
	if name == "" {
		panic("ir: global name must be non-empty")
	}
	return GlobalVar(name)
}

func (g GlobalVar) Name() string {
	return string(g)
}

type Label string

type LocalSetFragment struct {
	Var Var
	// Tee leaves the stored value on the stack.
	Tee bool
}

func LocalSet(v Var) Fragment {
	return LocalSetFragment{Var: v}
}

func LocalTee(v Var) Fragment {
	return LocalSetFragment{Var: v, Tee: true}
}

type GlobalSetFragment struct {
	Global GlobalVar
}

func GlobalSet(g GlobalVar) Fragment {
	return GlobalSetFragment{Global: g}
}

type OpKind int

const (
	OpInvalid OpKind = iota
	OpAdd
	OpSub
	OpMul
	OpShl
	OpShrU
	OpXor
)

func (k OpKind) String() string {
	switch k {
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpShl:
		return "shl"
	case OpShrU:
		return "shr_u"
	case OpXor:
		return "xor"
	default:
		return "invalid"
	}
}

// OpFragment pops two operands of Type and pushes the result.
type OpFragment struct {
	Type ValType
	Kind OpKind
}

func Op(ty ValType, kind OpKind) Fragment {
	return OpFragment{Type: ty, Kind: kind}
}

type CompareKind int

const (
	CompareEqual CompareKind = iota
	CompareNotEqual
	CompareLess
	CompareLessOrEqual
	CompareGreater
	CompareGreaterOrEqual
	CompareLessUnsigned
)

func (k CompareKind) String() string {
	switch k {
	case CompareEqual:
		return "eq"
	case CompareNotEqual:
		return "ne"
	case CompareLess:
		return "lt_s"
	case CompareLessOrEqual:
		return "le_s"
	case CompareGreater:
		return "gt_s"
	case CompareGreaterOrEqual:
		return "ge_s"
	case CompareLessUnsigned:
		return "lt_u"
	default:
		return "invalid"
	}
}

// CompareFragment pops two operands of Type and pushes an i32 0/1.
type CompareFragment struct {
	Type ValType
	Kind CompareKind
}

func Compare(ty ValType, kind CompareKind) Fragment {
	return CompareFragment{Type: ty, Kind: kind}
}

type ConvertKind int

const (
	ConvertInvalid ConvertKind = iota
	// WrapI64 truncates an i64 to its low 32 bits.
	WrapI64
	// ExtendI32U zero-extends an i32 to i64.
	ExtendI32U
)

func (k ConvertKind) String() string {
	switch k {
	case WrapI64:
		return "i32.wrap_i64"
	case ExtendI32U:
		return "i64.extend_i32_u"
	default:
		return "invalid"
	}
}

type ConvertFragment struct {
	Kind ConvertKind
}

func Convert(kind ConvertKind) Fragment {
	return ConvertFragment{Kind: kind}
}

// LoadFragment pops an i32 address and pushes the value stored there.
type LoadFragment struct {
	Type ValType
}

func Load(ty ValType) Fragment {
	return LoadFragment{Type: ty}
}

// StoreFragment pops a value and an i32 address, in that order.
type StoreFragment struct {
	Type ValType
}

func Store(ty ValType) Fragment {
	return StoreFragment{Type: ty}
}

// CallFragment invokes an imported function by name.
type CallFragment struct {
	Target string
}

func Call(target string) Fragment {
	if target == "" {
		panic("ir: call target must be non-empty")
	}
	return CallFragment{Target: target}
}

// IfFragment pops an i32 condition and runs Then when it is non-zero.
// Result is the type each arm leaves on the stack, or NoResult.
type IfFragment struct {
	Result    ValType
	Then      Block
	Otherwise Block
}

func If(result ValType, then Block, otherwise ...Block) Fragment {
	if len(otherwise) > 0 {
		return IfFragment{Result: result, Then: then, Otherwise: otherwise[0]}
	}
	return IfFragment{Result: result, Then: then}
}

// BlockFragment is a labelled region; branching to its label exits it.
type BlockFragment struct {
	Label Label
	Body  Block
}

func DeclareBlock(label Label, body Block) Fragment {
	return BlockFragment{Label: label, Body: body}
}

// LoopFragment is a labelled region; branching to its label restarts it.
type LoopFragment struct {
	Label Label
	Body  Block
}

func Loop(label Label, body Block) Fragment {
	return LoopFragment{Label: label, Body: body}
}

// BranchFragment transfers control to an enclosing region's label. A
// conditional branch pops an i32 and only branches when it is non-zero.
type BranchFragment struct {
	Label       Label
	Conditional bool
}

func Branch(label Label) Fragment {
	return BranchFragment{Label: label}
}

func BranchIf(label Label) Fragment {
	return BranchFragment{Label: label, Conditional: true}
}

type DropFragment struct{}

func Drop() Fragment {
	return DropFragment{}
}

// TrapFragment halts the program unconditionally.
type TrapFragment struct{}

func Trap() Fragment {
	return TrapFragment{}
}

// Flatten concatenates blocks and single fragments into one Block, splicing
// nested Blocks in place.
func Flatten(parts ...any) Block {
	var out Block
	for _, part := range parts {
		switch p := part.(type) {
		case nil:
		case Block:
			out = append(out, p...)
		case []Fragment:
			out = append(out, p...)
		default:
			out = append(out, p)
		}
	}
	return out
}

var (
	_ Fragment = Int64(0)
	_ Fragment = Int32(0)
	_ Fragment = Var("")
	_ Fragment = GlobalVar("")
	_ Fragment = LocalSetFragment{}
	_ Fragment = GlobalSetFragment{}
	_ Fragment = OpFragment{}
	_ Fragment = CompareFragment{}
	_ Fragment = ConvertFragment{}
	_ Fragment = LoadFragment{}
	_ Fragment = StoreFragment{}
	_ Fragment = CallFragment{}
	_ Fragment = IfFragment{}
	_ Fragment = BlockFragment{}
	_ Fragment = LoopFragment{}
	_ Fragment = BranchFragment{}
	_ Fragment = DropFragment{}
	_ Fragment = TrapFragment{}
)
