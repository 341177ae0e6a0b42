package strength

import (
	"kiln/internal/codegen"
)

// reachingValues computes, for every block reachable from the entry, the
// values each variable may hold on entry to the block. A conditional
// branch whose condition is known only follows the live edge.
func (a *analysis) reachingValues(cfg *codegen.ControlFlowGraph) map[int]Variables {
	entry := make(map[int]Variables)
	if len(cfg.Blocks) == 0 {
		return entry
	}
	entry[0] = make(Variables)

	work := []int{0}
	queued := map[int]bool{0: true}
	for len(work) > 0 {
		block := work[0]
		work = work[1:]
		queued[block] = false

		vars := entry[block].clone()
		for _, instr := range cfg.Blocks[block].Instrs {
			a.transfer(instr, vars)
		}

		for _, succ := range a.liveSuccessors(cfg.Blocks[block].Terminator(), vars) {
			if succ < 0 || succ >= len(cfg.Blocks) {
				continue
			}
			existing, seen := entry[succ]
			if !seen {
				entry[succ] = vars.clone()
			} else if !merge(existing, vars) {
				continue
			}
			if !queued[succ] {
				queued[succ] = true
				work = append(work, succ)
			}
		}
	}
	return entry
}

// liveSuccessors returns the blocks term may branch to
func (a *analysis) liveSuccessors(term codegen.Instr, vars Variables) []int {
	if bc, ok := term.(*codegen.BranchCond); ok {
		if c, known := SingleConstant(a.values(bc.Cond, vars)); known {
			if c.Val.IsZero() {
				return []int{bc.False}
			}
			return []int{bc.True}
		}
	}
	if term == nil {
		return nil
	}
	return codegen.Successors(term)
}

// merge adds incoming to existing and reports whether existing changed.
// A variable missing from either side may hold anything, as does one with
// more than MaxValues values.
func merge(existing, incoming Variables) bool {
	changed := false
	for varNo, set := range existing {
		in, ok := incoming[varNo]
		if !ok {
			delete(existing, varNo)
			changed = true
			continue
		}
		for _, v := range in.ToSlice() {
			if set.Add(v) {
				changed = true
			}
		}
		if set.Cardinality() > MaxValues {
			delete(existing, varNo)
			changed = true
		}
	}
	return changed
}

// transfer updates vars for the effect of instr
func (a *analysis) transfer(instr codegen.Instr, vars Variables) {
	if set, ok := instr.(*codegen.Set); ok {
		values := a.values(set.Expr, vars)
		if values.Cardinality() == 0 || values.Cardinality() > MaxValues || containsUnknown(values) {
			delete(vars, set.Res)
			return
		}
		vars[set.Res] = values
		return
	}
	// calls, storage loads and memory pops produce values nothing is known about
	for _, def := range codegen.Defs(instr) {
		delete(vars, def)
	}
}

func containsUnknown(set Set) bool {
	for _, v := range set.ToSlice() {
		if v.AllUnknown() {
			return true
		}
	}
	return false
}
