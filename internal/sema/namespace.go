package sema

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"kiln/internal/errors"
	"kiln/internal/source"
)

// Target describes the widths a backend fixes for addresses, value
// amounts and function selectors, all in bytes
type Target struct {
	Name           string
	AddressLength  int
	ValueLength    int
	SelectorLength int
}

var (
	EVM      = Target{Name: "evm", AddressLength: 20, ValueLength: 16, SelectorLength: 4}
	Polkadot = Target{Name: "polkadot", AddressLength: 32, ValueLength: 16, SelectorLength: 4}
	Solana   = Target{Name: "solana", AddressLength: 32, ValueLength: 8, SelectorLength: 8}
	Soroban  = Target{Name: "soroban", AddressLength: 32, ValueLength: 8, SelectorLength: 4}
)

// TargetByName finds one of the predefined targets
func TargetByName(name string) (Target, bool) {
	for _, t := range []Target{EVM, Polkadot, Solana, Soroban} {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return Target{}, false
}

// FunctionKind distinguishes the kinds of function-like declarations
type FunctionKind int

const (
	KindFunction FunctionKind = iota
	KindConstructor
	KindModifier
	KindFallback
	KindReceive
)

func (k FunctionKind) String() string {
	switch k {
	case KindConstructor:
		return "constructor"
	case KindModifier:
		return "modifier"
	case KindFallback:
		return "fallback"
	case KindReceive:
		return "receive"
	default:
		return "function"
	}
}

// Mutability of a function with respect to state and value transfer
type Mutability int

const (
	Nonpayable Mutability = iota
	Payable
	View
	Pure
)

// Parameter is a function parameter or return value
type Parameter struct {
	Pos  source.Loc
	Name string
	Ty   Type
}

// ModifierCall applies modifier function Modifier with Args. Args may only
// read the function's arguments, through FunctionArg.
type ModifierCall struct {
	Pos      source.Loc
	Modifier int
	Args     []Expression
}

// Symbol is a declared local variable of a function
type Symbol struct {
	ID   int
	Name string
	Ty   Type
	Pos  source.Loc
}

// Symtable holds the locals of one function. Arguments and Returns map
// parameter positions to symbol ids, -1 for unnamed parameters.
type Symtable struct {
	Vars      map[int]*Symbol
	Arguments []int
	Returns   []int
	nextID    int
}

// NewSymtable creates an empty symbol table
func NewSymtable() *Symtable {
	return &Symtable{Vars: make(map[int]*Symbol)}
}

// Add declares a local and returns its id
func (s *Symtable) Add(name string, ty Type, pos source.Loc) int {
	id := s.nextID
	s.nextID++
	s.Vars[id] = &Symbol{ID: id, Name: name, Ty: ty, Pos: pos}
	return id
}

// NextID is the first id not used by a declared local
func (s *Symtable) NextID() int {
	return s.nextID
}

// IDs returns the declared ids in ascending order
func (s *Symtable) IDs() []int {
	ids := make([]int, 0, len(s.Vars))
	for id := range s.Vars {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Function is a resolved function, constructor or modifier
type Function struct {
	Name       string
	Contract   int
	Kind       FunctionKind
	Pos        source.Loc
	Params     []Parameter
	Returns    []Parameter
	Body       []Statement
	Public     bool
	Mutability Mutability
	Selector   []byte
	Modifiers  []ModifierCall
	Symtable   *Symtable
}

// Signature renders name(type,type)
func (f *Function) Signature() string {
	tys := make([]string, len(f.Params))
	for i, p := range f.Params {
		tys[i] = p.Ty.String()
	}
	return fmt.Sprintf("%s(%s)", f.Name, strings.Join(tys, ","))
}

// ReturnTypes lists the declared return types
func (f *Function) ReturnTypes() []Type {
	tys := make([]Type, len(f.Returns))
	for i, r := range f.Returns {
		tys[i] = r.Ty
	}
	return tys
}

// ContractVariable is a state variable. Constants have no slot.
type ContractVariable struct {
	Pos         source.Loc
	Name        string
	Ty          Type
	Constant    bool
	Initializer Expression
	Slot        *big.Int
}

// ContractDecl groups state variables and functions
type ContractDecl struct {
	Name      string
	Variables []*ContractVariable
	Functions []int
}

// EnumDecl declares an enum; Ty is the integer type backing it
type EnumDecl struct {
	Name   string
	Ty     Type
	Values []string
}

// StructDecl declares a struct
type StructDecl struct {
	Name   string
	Fields []Parameter
}

// UserTypeDecl declares a user-defined value type over Ty
type UserTypeDecl struct {
	Name string
	Ty   Type
}

// Namespace is the resolved program handed to the middle-end. Only the
// diagnostics sink is written to once code generation starts.
type Namespace struct {
	Target      Target
	Enums       []EnumDecl
	Structs     []StructDecl
	UserTypes   []UserTypeDecl
	Contracts   []*ContractDecl
	Functions   []*Function
	Diagnostics *errors.Diagnostics
}

// NewNamespace creates an empty namespace for target
func NewNamespace(target Target) *Namespace {
	return &Namespace{
		Target:      target,
		Diagnostics: errors.NewDiagnostics(),
	}
}

// AddContract registers a contract and returns its number
func (ns *Namespace) AddContract(c *ContractDecl) int {
	ns.Contracts = append(ns.Contracts, c)
	return len(ns.Contracts) - 1
}

// AddFunction registers a function and returns its number. A function with
// Contract >= 0 is also listed on its contract.
func (ns *Namespace) AddFunction(f *Function) int {
	if f.Symtable == nil {
		f.Symtable = NewSymtable()
	}
	ns.Functions = append(ns.Functions, f)
	no := len(ns.Functions) - 1
	if f.Contract >= 0 && f.Contract < len(ns.Contracts) {
		c := ns.Contracts[f.Contract]
		c.Functions = append(c.Functions, no)
	}
	return no
}

// Unwrap resolves enums and user types to the primitive type behind them
func (ns *Namespace) Unwrap(ty Type) Type {
	switch t := ty.(type) {
	case Enum:
		if t.No >= 0 && t.No < len(ns.Enums) {
			return ns.Enums[t.No].Ty
		}
		return Uint{Bits: 8}
	case UserType:
		if t.No >= 0 && t.No < len(ns.UserTypes) {
			return ns.Unwrap(ns.UserTypes[t.No].Ty)
		}
	}
	return ty
}

// Bits returns the width in bits of a value type, or 0 when ty has no
// fixed width
func (ns *Namespace) Bits(ty Type) int {
	switch t := ns.Unwrap(ty).(type) {
	case Bool:
		return 1
	case Int:
		return t.Bits
	case Uint:
		return t.Bits
	case Value:
		return ns.Target.ValueLength * 8
	case Address, Contract:
		return ns.Target.AddressLength * 8
	case Bytes:
		return t.N * 8
	case FunctionSelector:
		return ns.Target.SelectorLength * 8
	}
	return 0
}

// IsSigned reports whether ty is a signed integer once unwrapped
func (ns *Namespace) IsSigned(ty Type) bool {
	return IsSignedInt(ns.Unwrap(ty))
}
