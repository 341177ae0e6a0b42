package sema

import (
	"math/big"

	"kiln/internal/source"
)

// Expression is a typed, immutable expression tree. Expressions are shared
// between the program model and the control flow graph; passes replace
// nodes, they never mutate them.
type Expression interface {
	Loc() source.Loc
	Type() Type
	isExpression()
}

// BinaryOp enumerates the two-operand operators
type BinaryOp int

const (
	Add BinaryOp = iota
	Subtract
	Multiply
	Power
	SignedDivide
	UnsignedDivide
	SignedModulo
	UnsignedModulo
	BitwiseAnd
	BitwiseOr
	BitwiseXor
	ShiftLeft
	ShiftRight
	Equal
	NotEqual
	Less
	LessEqual
	More
	MoreEqual
	And
	Or
)

// IsComparison reports whether op produces a bool from two operands
func (op BinaryOp) IsComparison() bool {
	return op >= Equal && op <= MoreEqual
}

// IsArithmetic reports whether op can overflow
func (op BinaryOp) IsArithmetic() bool {
	return op == Add || op == Subtract || op == Multiply || op == Power
}

// IsCommutative reports whether the operands of op may be swapped
func (op BinaryOp) IsCommutative() bool {
	switch op {
	case Add, Multiply, BitwiseAnd, BitwiseOr, BitwiseXor, Equal, NotEqual:
		return true
	}
	return false
}

// UnaryOp enumerates the single-operand operators
type UnaryOp int

const (
	Not UnaryOp = iota
	BitwiseNot
	Negate
)

// CastKind distinguishes the conversions between types
type CastKind int

const (
	PlainCast CastKind = iota
	ZeroExt
	SignExt
	Trunc
	BytesCast
)

// BuiltinKind enumerates environment reads and intrinsic functions
type BuiltinKind int

const (
	BlockNumber BuiltinKind = iota
	Timestamp
	Sender
	MsgValue
	GasLeft
	Keccak256
)

func (k BuiltinKind) String() string {
	switch k {
	case BlockNumber:
		return "block_number"
	case Timestamp:
		return "timestamp"
	case Sender:
		return "sender"
	case MsgValue:
		return "value"
	case GasLeft:
		return "gasleft"
	default:
		return "keccak256"
	}
}

// Pure reports whether evaluating the builtin twice yields the same value
// with no effect. gasleft() changes with every instruction executed.
func (k BuiltinKind) Pure() bool {
	return k != GasLeft
}

// AccountsKind describes how accounts are supplied to an external call
type AccountsKind int

const (
	AccountsAbsent AccountsKind = iota
	AccountsNone
	AccountsPresent
)

// ExternalAccounts is the account list of an external call. Only targets
// with account-based calls use Present.
type ExternalAccounts struct {
	Kind AccountsKind
	Expr Expression
}

// NumberLiteral is an integer constant
type NumberLiteral struct {
	Pos   source.Loc
	Ty    Type
	Value *big.Int
}

// BoolLiteral is true or false
type BoolLiteral struct {
	Pos   source.Loc
	Value bool
}

// BytesLiteral is a byte string or string constant
type BytesLiteral struct {
	Pos   source.Loc
	Ty    Type
	Value []byte
}

// Variable reads a local variable by id
type Variable struct {
	Pos   source.Loc
	Ty    Type
	VarNo int
}

// FunctionArg reads the function argument at position ArgNo
type FunctionArg struct {
	Pos   source.Loc
	Ty    Type
	ArgNo int
}

// Binary applies a two-operand operator. Overflowing marks wrapping
// arithmetic; Signed selects the signed flavour of shifts and comparisons.
type Binary struct {
	Pos         source.Loc
	Ty          Type
	Op          BinaryOp
	Overflowing bool
	Signed      bool
	Left        Expression
	Right       Expression
}

// Unary applies a single-operand operator
type Unary struct {
	Pos  source.Loc
	Ty   Type
	Op   UnaryOp
	Expr Expression
}

// Cast converts Expr to Ty
type Cast struct {
	Pos  source.Loc
	Ty   Type
	Kind CastKind
	Expr Expression
}

// Subscript indexes an array; ArrayTy is the type of Array
type Subscript struct {
	Pos     source.Loc
	Ty      Type
	ArrayTy Type
	Array   Expression
	Index   Expression
}

// StructMember selects field Member of a struct
type StructMember struct {
	Pos    source.Loc
	Ty     Type
	Expr   Expression
	Member int
}

// Load dereferences a memory pointer
type Load struct {
	Pos  source.Loc
	Ty   Type
	Expr Expression
}

// AllocDynamicBytes allocates a byte array of Size bytes, optionally
// initialised with a compile-time constant
type AllocDynamicBytes struct {
	Pos         source.Loc
	Ty          Type
	Size        Expression
	Initializer []byte
}

// ArrayLengthExpr is the number of elements of a dynamic array
type ArrayLengthExpr struct {
	Pos   source.Loc
	Array Expression
}

// StorageVariable reads a contract variable
type StorageVariable struct {
	Pos      source.Loc
	Ty       Type
	Contract int
	Var      int
}

// InternalCall calls a function of the namespace
type InternalCall struct {
	Pos      source.Loc
	Function int
	Args     []Expression
	Returns  []Type
}

// ExternalCall calls a function of another contract
type ExternalCall struct {
	Pos      source.Loc
	Address  Expression
	Payload  Expression
	Value    Expression
	Gas      Expression
	Accounts ExternalAccounts
	Returns  []Type
}

// Builtin reads the environment or calls an intrinsic
type Builtin struct {
	Pos  source.Loc
	Ty   Type
	Kind BuiltinKind
	Args []Expression
}

// Ternary evaluates Left when Cond holds and Right otherwise
type Ternary struct {
	Pos   source.Loc
	Ty    Type
	Cond  Expression
	Left  Expression
	Right Expression
}

// Undefined is the value of a variable before its first assignment
type Undefined struct {
	Ty Type
}

func (*NumberLiteral) isExpression()     {}
func (*BoolLiteral) isExpression()       {}
func (*BytesLiteral) isExpression()      {}
func (*Variable) isExpression()          {}
func (*FunctionArg) isExpression()       {}
func (*Binary) isExpression()            {}
func (*Unary) isExpression()             {}
func (*Cast) isExpression()              {}
func (*Subscript) isExpression()         {}
func (*StructMember) isExpression()      {}
func (*Load) isExpression()              {}
func (*AllocDynamicBytes) isExpression() {}
func (*ArrayLengthExpr) isExpression()       {}
func (*StorageVariable) isExpression()   {}
func (*InternalCall) isExpression()      {}
func (*ExternalCall) isExpression()      {}
func (*Builtin) isExpression()           {}
func (*Ternary) isExpression()           {}
func (*Undefined) isExpression()         {}

func (e *NumberLiteral) Loc() source.Loc     { return e.Pos }
func (e *BoolLiteral) Loc() source.Loc       { return e.Pos }
func (e *BytesLiteral) Loc() source.Loc      { return e.Pos }
func (e *Variable) Loc() source.Loc          { return e.Pos }
func (e *FunctionArg) Loc() source.Loc       { return e.Pos }
func (e *Binary) Loc() source.Loc            { return e.Pos }
func (e *Unary) Loc() source.Loc             { return e.Pos }
func (e *Cast) Loc() source.Loc              { return e.Pos }
func (e *Subscript) Loc() source.Loc         { return e.Pos }
func (e *StructMember) Loc() source.Loc      { return e.Pos }
func (e *Load) Loc() source.Loc              { return e.Pos }
func (e *AllocDynamicBytes) Loc() source.Loc { return e.Pos }
func (e *ArrayLengthExpr) Loc() source.Loc       { return e.Pos }
func (e *StorageVariable) Loc() source.Loc   { return e.Pos }
func (e *InternalCall) Loc() source.Loc      { return e.Pos }
func (e *ExternalCall) Loc() source.Loc      { return e.Pos }
func (e *Builtin) Loc() source.Loc           { return e.Pos }
func (e *Ternary) Loc() source.Loc           { return e.Pos }
func (e *Undefined) Loc() source.Loc         { return source.Codegen }

func (e *NumberLiteral) Type() Type     { return e.Ty }
func (e *BoolLiteral) Type() Type       { return Bool{} }
func (e *BytesLiteral) Type() Type      { return e.Ty }
func (e *Variable) Type() Type          { return e.Ty }
func (e *FunctionArg) Type() Type       { return e.Ty }
func (e *Binary) Type() Type            { return e.Ty }
func (e *Unary) Type() Type             { return e.Ty }
func (e *Cast) Type() Type              { return e.Ty }
func (e *Subscript) Type() Type         { return e.Ty }
func (e *StructMember) Type() Type      { return e.Ty }
func (e *Load) Type() Type              { return e.Ty }
func (e *AllocDynamicBytes) Type() Type { return e.Ty }
func (e *ArrayLengthExpr) Type() Type       { return Uint{Bits: 32} }
func (e *StorageVariable) Type() Type   { return e.Ty }
func (e *Builtin) Type() Type           { return e.Ty }
func (e *Ternary) Type() Type           { return e.Ty }
func (e *Undefined) Type() Type         { return e.Ty }

// Type returns the first return type, or Void
func (e *InternalCall) Type() Type { return firstOrVoid(e.Returns) }

// Type returns the first return type, or Void
func (e *ExternalCall) Type() Type { return firstOrVoid(e.Returns) }

func firstOrVoid(tys []Type) Type {
	if len(tys) == 0 {
		return Void{}
	}
	return tys[0]
}

// Number builds an integer literal
func Number(loc source.Loc, ty Type, v int64) *NumberLiteral {
	return &NumberLiteral{Pos: loc, Ty: ty, Value: big.NewInt(v)}
}

// Children returns the direct sub-expressions of e in evaluation order
func Children(e Expression) []Expression {
	switch e := e.(type) {
	case *Binary:
		return []Expression{e.Left, e.Right}
	case *Unary:
		return []Expression{e.Expr}
	case *Cast:
		return []Expression{e.Expr}
	case *Subscript:
		return []Expression{e.Array, e.Index}
	case *StructMember:
		return []Expression{e.Expr}
	case *Load:
		return []Expression{e.Expr}
	case *AllocDynamicBytes:
		return []Expression{e.Size}
	case *ArrayLengthExpr:
		return []Expression{e.Array}
	case *InternalCall:
		return e.Args
	case *ExternalCall:
		out := []Expression{e.Address, e.Payload}
		for _, x := range []Expression{e.Value, e.Gas, e.Accounts.Expr} {
			if x != nil {
				out = append(out, x)
			}
		}
		return out
	case *Builtin:
		return e.Args
	case *Ternary:
		return []Expression{e.Cond, e.Left, e.Right}
	}
	return nil
}

// Walk calls fn on e and every sub-expression, parents first. Returning
// false from fn skips the children of that node.
func Walk(e Expression, fn func(Expression) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, c := range Children(e) {
		Walk(c, fn)
	}
}

// Rewrite rebuilds e bottom-up, replacing each node with fn(node) after its
// children have been rewritten. Unchanged subtrees keep their identity.
func Rewrite(e Expression, fn func(Expression) Expression) Expression {
	if e == nil {
		return nil
	}
	return fn(MapChildren(e, func(c Expression) Expression {
		return Rewrite(c, fn)
	}))
}

// MapChildren returns e with each direct sub-expression c replaced by
// fn(c). e itself is returned when no child changes.
func MapChildren(e Expression, fn func(Expression) Expression) Expression {
	apply := func(x Expression) Expression {
		if x == nil {
			return nil
		}
		return fn(x)
	}
	switch n := e.(type) {
	case *Binary:
		l, r := apply(n.Left), apply(n.Right)
		if l != n.Left || r != n.Right {
			c := *n
			c.Left, c.Right = l, r
			return &c
		}
	case *Unary:
		if x := apply(n.Expr); x != n.Expr {
			c := *n
			c.Expr = x
			return &c
		}
	case *Cast:
		if x := apply(n.Expr); x != n.Expr {
			c := *n
			c.Expr = x
			return &c
		}
	case *Subscript:
		a, i := apply(n.Array), apply(n.Index)
		if a != n.Array || i != n.Index {
			c := *n
			c.Array, c.Index = a, i
			return &c
		}
	case *StructMember:
		if x := apply(n.Expr); x != n.Expr {
			c := *n
			c.Expr = x
			return &c
		}
	case *Load:
		if x := apply(n.Expr); x != n.Expr {
			c := *n
			c.Expr = x
			return &c
		}
	case *AllocDynamicBytes:
		if x := apply(n.Size); x != n.Size {
			c := *n
			c.Size = x
			return &c
		}
	case *ArrayLengthExpr:
		if x := apply(n.Array); x != n.Array {
			c := *n
			c.Array = x
			return &c
		}
	case *Builtin:
		if args, changed := mapList(n.Args, fn); changed {
			c := *n
			c.Args = args
			return &c
		}
	case *InternalCall:
		if args, changed := mapList(n.Args, fn); changed {
			c := *n
			c.Args = args
			return &c
		}
	case *ExternalCall:
		addr, payload, value, gas := apply(n.Address), apply(n.Payload), apply(n.Value), apply(n.Gas)
		accounts := apply(n.Accounts.Expr)
		if addr != n.Address || payload != n.Payload || value != n.Value || gas != n.Gas || accounts != n.Accounts.Expr {
			c := *n
			c.Address, c.Payload, c.Value, c.Gas = addr, payload, value, gas
			c.Accounts.Expr = accounts
			return &c
		}
	case *Ternary:
		cond, l, r := apply(n.Cond), apply(n.Left), apply(n.Right)
		if cond != n.Cond || l != n.Left || r != n.Right {
			c := *n
			c.Cond, c.Left, c.Right = cond, l, r
			return &c
		}
	}
	return e
}

func mapList(list []Expression, fn func(Expression) Expression) ([]Expression, bool) {
	changed := false
	out := make([]Expression, len(list))
	for i, x := range list {
		out[i] = fn(x)
		if out[i] != x {
			changed = true
		}
	}
	return out, changed
}

// ReadsVariable reports whether e reads variable varNo
func ReadsVariable(e Expression, varNo int) bool {
	found := false
	Walk(e, func(x Expression) bool {
		if v, ok := x.(*Variable); ok && v.VarNo == varNo {
			found = true
		}
		return !found
	})
	return found
}

// IsLiteral reports whether e is a number, bool or bytes literal
func IsLiteral(e Expression) bool {
	switch e.(type) {
	case *NumberLiteral, *BoolLiteral, *BytesLiteral:
		return true
	}
	return false
}
