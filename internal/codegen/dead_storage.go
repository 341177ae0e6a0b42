package codegen

import (
	"kiln/internal/sema"
)

// DeadStorage removes redundant storage traffic within a basic block. A
// load of a slot whose value is known from an earlier store or load in the
// same block is forwarded, and a store overwritten before any read is
// dropped. Calls, terminators and accesses through computed slots end
// every fact.
type DeadStorage struct{}

func (ds *DeadStorage) Name() string {
	return "Dead Storage"
}

func (ds *DeadStorage) Description() string {
	return "Forwards storage loads from earlier stores and removes overwritten stores"
}

func (ds *DeadStorage) Apply(cfg *ControlFlowGraph, ns *sema.Namespace) bool {
	changed := false
	for _, block := range cfg.Blocks {
		if ds.optimizeBlock(block) {
			changed = true
		}
	}
	return changed
}

// slotValue is what a slot is known to hold
type slotValue struct {
	ty    sema.Type
	value sema.Expression
}

func (ds *DeadStorage) optimizeBlock(block *BasicBlock) bool {
	changed := false
	known := make(map[string]slotValue)
	// stores not yet read, by slot
	pending := make(map[string]int)
	removed := make(map[int]bool)

	reset := func() {
		known = make(map[string]slotValue)
		pending = make(map[string]int)
	}

	for idx, instr := range block.Instrs {
		if IsStorageBarrier(instr) {
			reset()
			continue
		}

		// a known value that reads a reassigned variable is stale
		for _, def := range Defs(instr) {
			for key, v := range known {
				if sema.ReadsVariable(v.value, def) {
					delete(known, key)
				}
			}
		}

		switch i := instr.(type) {
		case *LoadStorage:
			key := LiteralSlot(i.Storage).String()
			if v, ok := known[key]; ok && sema.TypesEqual(v.ty, i.Ty) {
				block.Instrs[idx] = &Set{Pos: i.Pos, Res: i.Res, Expr: v.value}
				changed = true
			} else {
				delete(pending, key)
				known[key] = slotValue{ty: i.Ty, value: &sema.Variable{Pos: i.Pos, Ty: i.Ty, VarNo: i.Res}}
			}
		case *SetStorage:
			key := LiteralSlot(i.Storage).String()
			if prev, ok := pending[key]; ok {
				removed[prev] = true
				changed = true
			}
			pending[key] = idx
			if forwardable(i.Value) {
				known[key] = slotValue{ty: i.Ty, value: i.Value}
			} else {
				delete(known, key)
			}
		case *ClearStorage:
			key := LiteralSlot(i.Storage).String()
			if prev, ok := pending[key]; ok {
				removed[prev] = true
				changed = true
			}
			pending[key] = idx
			delete(known, key)
		}
	}

	if len(removed) > 0 {
		kept := block.Instrs[:0]
		for idx, instr := range block.Instrs {
			if !removed[idx] {
				kept = append(kept, instr)
			}
		}
		block.Instrs = kept
	}
	return changed
}

// forwardable reports whether a stored value can stand in for a later load
func forwardable(e sema.Expression) bool {
	switch e.(type) {
	case *sema.NumberLiteral, *sema.BoolLiteral, *sema.Variable:
		return true
	}
	return false
}
