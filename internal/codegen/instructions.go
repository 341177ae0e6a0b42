package codegen

import (
	"kiln/internal/sema"
	"kiln/internal/source"
)

// Instr is one instruction of a basic block
type Instr interface {
	isInstr()
}

// Nop does nothing; passes leave it where they delete an instruction
type Nop struct{}

// Set assigns the value of Expr to variable Res
type Set struct {
	Pos  source.Loc
	Res  int
	Expr sema.Expression
}

// InternalCallTy is the callee of an internal call
type InternalCallTy interface {
	isCallTy()
}

// StaticCall calls the CFG with index CfgNo
type StaticCall struct{ CfgNo int }

// DynamicCall calls through a function pointer
type DynamicCall struct{ Expr sema.Expression }

// BuiltinCall calls a builtin function of the namespace
type BuiltinCall struct{ Function int }

// HostFunctionCall calls a function provided by the runtime
type HostFunctionCall struct{ Name string }

func (StaticCall) isCallTy()       {}
func (DynamicCall) isCallTy()      {}
func (BuiltinCall) isCallTy()      {}
func (HostFunctionCall) isCallTy() {}

// Call calls an internal function and assigns its results to Res
type Call struct {
	Pos     source.Loc
	Res     []int
	Returns []sema.Type
	Call    InternalCallTy
	Args    []sema.Expression
}

// Return leaves the function
type Return struct {
	Pos    source.Loc
	Values []sema.Expression
}

// Branch jumps to Block
type Branch struct {
	Block int
}

// BranchCond jumps to True when Cond holds, otherwise to False
type BranchCond struct {
	Cond  sema.Expression
	True  int
	False int
}

// SwitchCase is one arm of a Switch
type SwitchCase struct {
	Value sema.Expression
	Block int
}

// Switch jumps to the first case equal to Cond, otherwise to Default
type Switch struct {
	Cond    sema.Expression
	Cases   []SwitchCase
	Default int
}

// Store writes Data to the memory location Dest
type Store struct {
	Dest sema.Expression
	Data sema.Expression
}

// LoadStorage reads a value of type Ty from storage slot Storage
type LoadStorage struct {
	Pos     source.Loc
	Res     int
	Ty      sema.Type
	Storage sema.Expression
}

// SetStorage writes Value to storage slot Storage
type SetStorage struct {
	Ty      sema.Type
	Value   sema.Expression
	Storage sema.Expression
}

// ClearStorage resets storage slot Storage to its zero value
type ClearStorage struct {
	Ty      sema.Type
	Storage sema.Expression
}

// PushMemory appends Value to the memory array in variable Array
type PushMemory struct {
	Res   int
	Ty    sema.Type
	Array int
	Value sema.Expression
}

// PopMemory removes the last element of the memory array in variable Array
type PopMemory struct {
	Pos   source.Loc
	Res   int
	Ty    sema.Type
	Array int
}

// CallTy is the flavour of an external call
type CallTy int

const (
	CallRegular CallTy = iota
	CallDelegate
	CallStatic
)

func (c CallTy) String() string {
	switch c {
	case CallDelegate:
		return "delegate"
	case CallStatic:
		return "static"
	default:
		return "regular"
	}
}

// ExternalCall calls another contract. Success, when not NoVar, receives
// whether the call succeeded. Returns receives the decoded return values.
type ExternalCall struct {
	Pos      source.Loc
	Success  int
	Returns  []int
	Address  sema.Expression
	Payload  sema.Expression
	Value    sema.Expression
	Gas      sema.Expression
	Accounts sema.ExternalAccounts
	CallTy   CallTy
}

// AssertFailure aborts execution, optionally returning encoded data
type AssertFailure struct {
	EncodedArgs sema.Expression
}

// Print writes a debug message
type Print struct {
	Expr sema.Expression
}

// Unreachable marks a point execution can never reach
type Unreachable struct{}

// NoVar marks an absent result variable
const NoVar = -1

func (*Nop) isInstr()           {}
func (*Set) isInstr()           {}
func (*Call) isInstr()          {}
func (*Return) isInstr()        {}
func (*Branch) isInstr()        {}
func (*BranchCond) isInstr()    {}
func (*Switch) isInstr()        {}
func (*Store) isInstr()         {}
func (*LoadStorage) isInstr()   {}
func (*SetStorage) isInstr()    {}
func (*ClearStorage) isInstr()  {}
func (*PushMemory) isInstr()    {}
func (*PopMemory) isInstr()     {}
func (*ExternalCall) isInstr()  {}
func (*AssertFailure) isInstr() {}
func (*Print) isInstr()         {}
func (*Unreachable) isInstr()   {}

// IsTerminator reports whether instr ends a basic block
func IsTerminator(instr Instr) bool {
	switch instr.(type) {
	case *Return, *Branch, *BranchCond, *Switch, *AssertFailure, *Unreachable:
		return true
	}
	return false
}

// Successors returns the blocks a terminator can jump to
func Successors(instr Instr) []int {
	switch i := instr.(type) {
	case *Branch:
		return []int{i.Block}
	case *BranchCond:
		return []int{i.True, i.False}
	case *Switch:
		out := make([]int, 0, len(i.Cases)+1)
		for _, c := range i.Cases {
			out = append(out, c.Block)
		}
		return append(out, i.Default)
	}
	return nil
}

// Defs returns the variables an instruction assigns
func Defs(instr Instr) []int {
	switch i := instr.(type) {
	case *Set:
		return []int{i.Res}
	case *Call:
		return i.Res
	case *LoadStorage:
		return []int{i.Res}
	case *PushMemory:
		return []int{i.Res, i.Array}
	case *PopMemory:
		return []int{i.Res, i.Array}
	case *ExternalCall:
		if i.Success == NoVar {
			return i.Returns
		}
		return append([]int{i.Success}, i.Returns...)
	}
	return nil
}

// Exprs returns the expressions an instruction evaluates, in order
func Exprs(instr Instr) []sema.Expression {
	var out []sema.Expression
	add := func(es ...sema.Expression) {
		for _, e := range es {
			if e != nil {
				out = append(out, e)
			}
		}
	}
	switch i := instr.(type) {
	case *Set:
		add(i.Expr)
	case *Call:
		if d, ok := i.Call.(DynamicCall); ok {
			add(d.Expr)
		}
		add(i.Args...)
	case *Return:
		add(i.Values...)
	case *BranchCond:
		add(i.Cond)
	case *Switch:
		add(i.Cond)
		for _, c := range i.Cases {
			add(c.Value)
		}
	case *Store:
		add(i.Dest, i.Data)
	case *LoadStorage:
		add(i.Storage)
	case *SetStorage:
		add(i.Value, i.Storage)
	case *ClearStorage:
		add(i.Storage)
	case *PushMemory:
		add(i.Value)
	case *ExternalCall:
		add(i.Address, i.Payload, i.Value, i.Gas, i.Accounts.Expr)
	case *AssertFailure:
		add(i.EncodedArgs)
	case *Print:
		add(i.Expr)
	}
	return out
}

// RewriteExprs replaces, in place, every expression of instr by fn(expr)
func RewriteExprs(instr Instr, fn func(sema.Expression) sema.Expression) {
	apply := func(e sema.Expression) sema.Expression {
		if e == nil {
			return nil
		}
		return fn(e)
	}
	switch i := instr.(type) {
	case *Set:
		i.Expr = apply(i.Expr)
	case *Call:
		if d, ok := i.Call.(DynamicCall); ok {
			i.Call = DynamicCall{Expr: apply(d.Expr)}
		}
		for n := range i.Args {
			i.Args[n] = apply(i.Args[n])
		}
	case *Return:
		for n := range i.Values {
			i.Values[n] = apply(i.Values[n])
		}
	case *BranchCond:
		i.Cond = apply(i.Cond)
	case *Switch:
		i.Cond = apply(i.Cond)
		for n := range i.Cases {
			i.Cases[n].Value = apply(i.Cases[n].Value)
		}
	case *Store:
		i.Dest = apply(i.Dest)
		i.Data = apply(i.Data)
	case *LoadStorage:
		i.Storage = apply(i.Storage)
	case *SetStorage:
		i.Value = apply(i.Value)
		i.Storage = apply(i.Storage)
	case *ClearStorage:
		i.Storage = apply(i.Storage)
	case *PushMemory:
		i.Value = apply(i.Value)
	case *ExternalCall:
		i.Address = apply(i.Address)
		i.Payload = apply(i.Payload)
		i.Value = apply(i.Value)
		i.Gas = apply(i.Gas)
		i.Accounts.Expr = apply(i.Accounts.Expr)
	case *AssertFailure:
		i.EncodedArgs = apply(i.EncodedArgs)
	case *Print:
		i.Expr = apply(i.Expr)
	}
}

// UsesVariable reports whether instr reads variable id
func UsesVariable(instr Instr, id int) bool {
	switch i := instr.(type) {
	case *PushMemory:
		if i.Array == id {
			return true
		}
	case *PopMemory:
		return i.Array == id
	}
	for _, e := range Exprs(instr) {
		if sema.ReadsVariable(e, id) {
			return true
		}
	}
	return false
}
