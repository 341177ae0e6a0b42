package ssair

import (
	"math/big"

	"kiln/internal/sema"
	"kiln/internal/source"
)

// Operand is a value an instruction can use without computing it: a named
// variable or a literal
type Operand interface {
	Loc() source.Loc
	isOperand()
}

// Id names a variable of the Vartable
type Id struct {
	ID  int
	Pos source.Loc
}

type BoolLiteral struct {
	Value bool
	Pos   source.Loc
}

type NumberLiteral struct {
	Value *big.Int
	Ty    Type
	Pos   source.Loc
}

func (o *Id) Loc() source.Loc            { return o.Pos }
func (o *BoolLiteral) Loc() source.Loc   { return o.Pos }
func (o *NumberLiteral) Loc() source.Loc { return o.Pos }

func (*Id) isOperand()            {}
func (*BoolLiteral) isOperand()   {}
func (*NumberLiteral) isOperand() {}

// BinaryOperator is a two-operand operator. Signedness and overflow
// checking are part of the operator.
type BinaryOperator int

const (
	Add BinaryOperator = iota
	AddOverflowing
	Sub
	SubOverflowing
	Mul
	MulOverflowing
	Pow
	PowOverflowing
	Div
	UDiv
	Mod
	UMod
	Eq
	Neq
	Lt
	ULt
	Lte
	ULte
	Gt
	UGt
	Gte
	UGte
	BitAnd
	BitOr
	BitXor
	Shl
	Shr
	UShr
)

var binaryOperatorText = [...]string{
	Add:            "+",
	AddOverflowing: "(of)+",
	Sub:            "-",
	SubOverflowing: "(of)-",
	Mul:            "*",
	MulOverflowing: "(of)*",
	Pow:            "**",
	PowOverflowing: "(of)**",
	Div:            "/",
	UDiv:           "(u)/",
	Mod:            "%",
	UMod:           "(u)%",
	Eq:             "==",
	Neq:            "!=",
	Lt:             "<",
	ULt:            "(u)<",
	Lte:            "<=",
	ULte:           "(u)<=",
	Gt:             ">",
	UGt:            "(u)>",
	Gte:            ">=",
	UGte:           "(u)>=",
	BitAnd:         "&",
	BitOr:          "|",
	BitXor:         "^",
	Shl:            "<<",
	Shr:            ">>",
	UShr:           "(u)>>",
}

func (op BinaryOperator) String() string {
	if int(op) < len(binaryOperatorText) {
		return binaryOperatorText[op]
	}
	return "?"
}

type UnaryOperator int

const (
	Not UnaryOperator = iota
	Neg
	NegOverflowing
	BitNot
)

func (op UnaryOperator) String() string {
	switch op {
	case Not:
		return "!"
	case Neg:
		return "-"
	case NegOverflowing:
		return "(of)-"
	default:
		return "~"
	}
}

// Expression computes the value assigned by a Set. Its operands are never
// nested expressions.
type Expression interface {
	Loc() source.Loc
	isExpression()
}

type BinaryExpr struct {
	Pos      source.Loc
	Operator BinaryOperator
	Left     Operand
	Right    Operand
}

type UnaryExpr struct {
	Pos      source.Loc
	Operator UnaryOperator
	Operand  Operand
}

// OperandExpr copies an operand
type OperandExpr struct {
	Operand Operand
}

type BytesLiteral struct {
	Pos   source.Loc
	Ty    Type
	Value []byte
}

// Cast reinterprets Operand as To without changing its width
type Cast struct {
	Pos     source.Loc
	Operand Operand
	To      Type
}

type BytesCast struct {
	Pos     source.Loc
	Operand Operand
	To      Type
}

type ZeroExt struct {
	Pos     source.Loc
	Operand Operand
	To      Type
}

type SignExt struct {
	Pos     source.Loc
	Operand Operand
	To      Type
}

type Trunc struct {
	Pos     source.Loc
	Operand Operand
	To      Type
}

// AllocDynamicBytes allocates Size elements of Ty, filled from Initializer
// when it is not nil
type AllocDynamicBytes struct {
	Pos         source.Loc
	Ty          Type
	Size        Operand
	Initializer []byte
}

// Load dereferences a memory pointer
type Load struct {
	Pos     source.Loc
	Operand Operand
}

type StructMember struct {
	Pos     source.Loc
	Operand Operand
	Member  int
}

type Subscript struct {
	Pos   source.Loc
	Array Operand
	Index Operand
}

type ArrayLength struct {
	Pos   source.Loc
	Array Operand
}

// FunctionArg reads argument ArgNo of the function
type FunctionArg struct {
	Pos   source.Loc
	Ty    Type
	ArgNo int
}

type Builtin struct {
	Pos  source.Loc
	Kind sema.BuiltinKind
	Args []Operand
}

// Undefined is the value of a variable with no initializer, such as a
// memory struct before it is allocated
type Undefined struct {
	Ty Type
}

func (e *BinaryExpr) Loc() source.Loc        { return e.Pos }
func (e *UnaryExpr) Loc() source.Loc         { return e.Pos }
func (e *OperandExpr) Loc() source.Loc       { return e.Operand.Loc() }
func (e *BytesLiteral) Loc() source.Loc      { return e.Pos }
func (e *Cast) Loc() source.Loc              { return e.Pos }
func (e *BytesCast) Loc() source.Loc         { return e.Pos }
func (e *ZeroExt) Loc() source.Loc           { return e.Pos }
func (e *SignExt) Loc() source.Loc           { return e.Pos }
func (e *Trunc) Loc() source.Loc             { return e.Pos }
func (e *AllocDynamicBytes) Loc() source.Loc { return e.Pos }
func (e *Load) Loc() source.Loc              { return e.Pos }
func (e *StructMember) Loc() source.Loc      { return e.Pos }
func (e *Subscript) Loc() source.Loc         { return e.Pos }
func (e *ArrayLength) Loc() source.Loc       { return e.Pos }
func (e *FunctionArg) Loc() source.Loc       { return e.Pos }
func (e *Builtin) Loc() source.Loc           { return e.Pos }
func (e *Undefined) Loc() source.Loc         { return source.Codegen }

func (*BinaryExpr) isExpression()        {}
func (*UnaryExpr) isExpression()         {}
func (*OperandExpr) isExpression()       {}
func (*BytesLiteral) isExpression()      {}
func (*Cast) isExpression()              {}
func (*BytesCast) isExpression()         {}
func (*ZeroExt) isExpression()           {}
func (*SignExt) isExpression()           {}
func (*Trunc) isExpression()             {}
func (*AllocDynamicBytes) isExpression() {}
func (*Load) isExpression()              {}
func (*StructMember) isExpression()      {}
func (*Subscript) isExpression()         {}
func (*ArrayLength) isExpression()       {}
func (*FunctionArg) isExpression()       {}
func (*Builtin) isExpression()           {}
func (*Undefined) isExpression()         {}
