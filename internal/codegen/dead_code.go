package codegen

import "kiln/internal/sema"

// DeadCodeElimination removes basic blocks that cannot be reached from the
// entry block and renumbers the branch targets of the remaining ones.
type DeadCodeElimination struct{}

func (dce *DeadCodeElimination) Name() string {
	return "Dead Code Elimination"
}

func (dce *DeadCodeElimination) Description() string {
	return "Removes unreachable basic blocks"
}

func (dce *DeadCodeElimination) Apply(cfg *ControlFlowGraph, ns *sema.Namespace) bool {
	if len(cfg.Blocks) == 0 {
		return false
	}

	reachable := make([]bool, len(cfg.Blocks))
	dce.markReachable(cfg, 0, reachable)

	remap := make([]int, len(cfg.Blocks))
	kept := make([]*BasicBlock, 0, len(cfg.Blocks))
	for no, block := range cfg.Blocks {
		if reachable[no] {
			remap[no] = len(kept)
			kept = append(kept, block)
		} else {
			remap[no] = -1
		}
	}
	if len(kept) == len(cfg.Blocks) {
		return false
	}

	for _, block := range kept {
		if len(block.Instrs) == 0 {
			continue
		}
		switch t := block.Instrs[len(block.Instrs)-1].(type) {
		case *Branch:
			t.Block = remap[t.Block]
		case *BranchCond:
			t.True = remap[t.True]
			t.False = remap[t.False]
		case *Switch:
			for n := range t.Cases {
				t.Cases[n].Block = remap[t.Cases[n].Block]
			}
			t.Default = remap[t.Default]
		}
	}
	cfg.Blocks = kept
	return true
}

// markReachable marks every block reachable from block
func (dce *DeadCodeElimination) markReachable(cfg *ControlFlowGraph, block int, reachable []bool) {
	stack := []int{block}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if b < 0 || b >= len(cfg.Blocks) || reachable[b] {
			continue
		}
		reachable[b] = true
		if term := cfg.Blocks[b].Terminator(); term != nil {
			stack = append(stack, Successors(term)...)
		}
	}
}
