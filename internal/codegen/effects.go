package codegen

import (
	"math/big"

	"kiln/internal/sema"
)

// Effects describe what an instruction does besides assigning variables

// Effect is one side effect of an instruction
type Effect interface {
	EffectKind() string
}

// AccessType says whether an effect reads or writes
type AccessType string

const (
	AccessRead  AccessType = "read"
	AccessWrite AccessType = "write"
)

// StorageEffect touches contract storage. A nil Slot means the slot is not
// known at compile time.
type StorageEffect struct {
	Type AccessType
	Slot *big.Int
}

func (s *StorageEffect) EffectKind() string { return "storage" }

// MemoryEffect touches memory
type MemoryEffect struct {
	Type AccessType
}

func (m *MemoryEffect) EffectKind() string { return "memory" }

// CallEffect transfers control to other code which may observe or modify
// any state
type CallEffect struct {
	External bool
}

func (c *CallEffect) EffectKind() string { return "call" }

// ControlEffect ends the block
type ControlEffect struct {
	Abort bool
}

func (c *ControlEffect) EffectKind() string { return "control" }

// PureEffect indicates no side effects
type PureEffect struct{}

func (p *PureEffect) EffectKind() string { return "pure" }

// LiteralSlot returns the slot number when a storage expression is a
// literal
func LiteralSlot(e sema.Expression) *big.Int {
	if n, ok := e.(*sema.NumberLiteral); ok {
		return n.Value
	}
	return nil
}

// GetEffects returns the side effects of instr
func GetEffects(instr Instr) []Effect {
	switch i := instr.(type) {
	case *LoadStorage:
		return []Effect{&StorageEffect{Type: AccessRead, Slot: LiteralSlot(i.Storage)}}
	case *SetStorage:
		return []Effect{&StorageEffect{Type: AccessWrite, Slot: LiteralSlot(i.Storage)}}
	case *ClearStorage:
		return []Effect{&StorageEffect{Type: AccessWrite, Slot: LiteralSlot(i.Storage)}}
	case *Store, *PushMemory, *PopMemory:
		return []Effect{&MemoryEffect{Type: AccessWrite}}
	case *Call:
		// the callee is not analysed, so assume it touches everything
		return []Effect{
			&CallEffect{},
			&StorageEffect{Type: AccessRead},
			&StorageEffect{Type: AccessWrite},
		}
	case *ExternalCall:
		return []Effect{
			&CallEffect{External: true},
			&StorageEffect{Type: AccessRead},
			&StorageEffect{Type: AccessWrite},
		}
	case *AssertFailure:
		return []Effect{&ControlEffect{Abort: true}}
	case *Return, *Branch, *BranchCond, *Switch, *Unreachable:
		return []Effect{&ControlEffect{}}
	case *Print:
		return []Effect{&MemoryEffect{Type: AccessRead}}
	case *Set:
		if !IsPureExpr(i.Expr) {
			return []Effect{&MemoryEffect{Type: AccessRead}}
		}
	}
	return []Effect{&PureEffect{}}
}

// IsStorageBarrier reports whether no storage fact may be carried across
// instr: calls, terminators and storage accesses through a computed slot
func IsStorageBarrier(instr Instr) bool {
	for _, eff := range GetEffects(instr) {
		switch e := eff.(type) {
		case *CallEffect, *ControlEffect:
			return true
		case *StorageEffect:
			if e.Slot == nil {
				return true
			}
		}
	}
	return false
}

// IsPureExpr reports whether evaluating e has no effect and always yields
// the same value for the same variable values. Memory loads are excluded
// since memory may change between evaluations.
func IsPureExpr(e sema.Expression) bool {
	pure := true
	sema.Walk(e, func(x sema.Expression) bool {
		switch n := x.(type) {
		case *sema.InternalCall, *sema.ExternalCall, *sema.Undefined,
			*sema.StorageVariable, *sema.Load, *sema.AllocDynamicBytes,
			*sema.Subscript, *sema.ArrayLengthExpr, *sema.StructMember:
			pure = false
		case *sema.Builtin:
			if !n.Kind.Pure() {
				pure = false
			}
		}
		return pure
	})
	return pure
}
