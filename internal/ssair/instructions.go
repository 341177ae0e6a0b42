package ssair

import (
	"kiln/internal/codegen"
	"kiln/internal/sema"
	"kiln/internal/source"
)

// Instruction is one three-address instruction of a Block
type Instruction interface {
	isInstruction()
}

type Nop struct{}

// Set assigns the value of Expr to variable Res
type Set struct {
	Pos  source.Loc
	Res  int
	Expr Expression
}

type Store struct {
	Dest Operand
	Data Operand
}

type LoadStorage struct {
	Pos     source.Loc
	Res     int
	Storage Operand
}

type SetStorage struct {
	Value   Operand
	Storage Operand
}

type ClearStorage struct {
	Storage Operand
}

// PushMemory appends Value to the array in variable Array
type PushMemory struct {
	Res   int
	Array int
	Value Operand
}

type PopMemory struct {
	Pos   source.Loc
	Res   int
	Array int
}

// CallTy is the callee of an internal call
type CallTy interface {
	isCallTy()
}

type StaticCall struct{ CfgNo int }

type DynamicCall struct{ Function Operand }

type BuiltinCall struct{ Function int }

type HostFunctionCall struct{ Name string }

func (StaticCall) isCallTy()       {}
func (DynamicCall) isCallTy()      {}
func (BuiltinCall) isCallTy()      {}
func (HostFunctionCall) isCallTy() {}

type Call struct {
	Pos  source.Loc
	Res  []int
	Call CallTy
	Args []Operand
}

// AccountsKind says how accounts are passed to an external call
type AccountsKind int

const (
	AccountsAbsentArgument AccountsKind = iota
	AccountsNone
	AccountsPresent
)

// ExternalCallAccounts is the account list of an external call; Accounts
// is set only for AccountsPresent
type ExternalCallAccounts struct {
	Kind     AccountsKind
	Accounts Operand
}

// ExternalCall calls another contract. Success is codegen.NoVar when the
// outcome is not kept. Returns receives the decoded return values. Optional
// operands are nil when absent.
type ExternalCall struct {
	Pos      source.Loc
	Success  int
	Returns  []int
	Address  Operand
	Payload  Operand
	Value    Operand
	Gas      Operand
	Accounts ExternalCallAccounts
	CallTy   codegen.CallTy
}

type Print struct {
	Message StringLocation
}

// AssertFailure aborts execution; EncodedArgs may be nil
type AssertFailure struct {
	EncodedArgs Operand
}

type Branch struct {
	Block int
}

type BranchCond struct {
	Cond  Operand
	True  int
	False int
}

type SwitchCase struct {
	Value Operand
	Block int
}

type Switch struct {
	Cond    Operand
	Cases   []SwitchCase
	Default int
}

type Return struct {
	Pos    source.Loc
	Values []Operand
}

type Unreachable struct{}

func (*Nop) isInstruction()           {}
func (*Set) isInstruction()           {}
func (*Store) isInstruction()         {}
func (*LoadStorage) isInstruction()   {}
func (*SetStorage) isInstruction()    {}
func (*ClearStorage) isInstruction()  {}
func (*PushMemory) isInstruction()    {}
func (*PopMemory) isInstruction()     {}
func (*Call) isInstruction()          {}
func (*ExternalCall) isInstruction()  {}
func (*Print) isInstruction()         {}
func (*AssertFailure) isInstruction() {}
func (*Branch) isInstruction()        {}
func (*BranchCond) isInstruction()    {}
func (*Switch) isInstruction()        {}
func (*Return) isInstruction()        {}
func (*Unreachable) isInstruction()   {}

// Defs returns the variables an instruction assigns
func Defs(instr Instruction) []int {
	switch i := instr.(type) {
	case *Set:
		return []int{i.Res}
	case *LoadStorage:
		return []int{i.Res}
	case *PushMemory:
		return []int{i.Res}
	case *PopMemory:
		return []int{i.Res}
	case *Call:
		return i.Res
	case *ExternalCall:
		if i.Success == codegen.NoVar {
			return i.Returns
		}
		return append([]int{i.Success}, i.Returns...)
	}
	return nil
}

// Block is a basic block of the converted function
type Block struct {
	Name         string
	Instructions []Instruction
}

// Parameter is a typed parameter or return value
type Parameter struct {
	Name string
	Ty   Type
}

// Cfg is one function after conversion
type Cfg struct {
	Name       string
	Function   int
	Kind       sema.FunctionKind
	Public     bool
	Nonpayable bool
	Params     []Parameter
	Returns    []Parameter
	Selector   []byte
	Vars       *Vartable
	Blocks     []*Block
}
