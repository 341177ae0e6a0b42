package codegen

import (
	"fmt"

	"kiln/internal/sema"
)

// Def is one assignment: the Assignment'th variable set by instruction
// Instr of block Block
type Def struct {
	Block      int
	Instr      int
	Assignment int
}

// VarDefs maps each variable to the definitions that may reach a point.
// The flag is set once the value was modified in place after the
// definition, as an array push or a store through it does.
type VarDefs map[int]map[Def]bool

func (vd VarDefs) clone() VarDefs {
	out := make(VarDefs, len(vd))
	for varNo, defs := range vd {
		c := make(map[Def]bool, len(defs))
		for d, modified := range defs {
			c[d] = modified
		}
		out[varNo] = c
	}
	return out
}

// merge adds incoming to vd and reports whether vd changed
func (vd VarDefs) merge(incoming VarDefs) bool {
	changed := false
	for varNo, defs := range incoming {
		entry, ok := vd[varNo]
		if !ok {
			entry = make(map[Def]bool, len(defs))
			vd[varNo] = entry
		}
		for d, modified := range defs {
			old, seen := entry[d]
			if !seen || (modified && !old) {
				entry[d] = old || modified
				changed = true
			}
		}
	}
	return changed
}

type TransferKind int

const (
	// TransferGen makes Def the only definition of Var
	TransferGen TransferKind = iota
	// TransferMod marks the definitions of Var as modified
	TransferMod
	// TransferCopy gives Var the definitions of Src
	TransferCopy
	// TransferKill forgets every definition of Var
	TransferKill
)

// Transfer is one effect of an instruction on the reaching definitions
type Transfer struct {
	Kind TransferKind
	Var  int
	Src  int
	Def  Def
}

func (t Transfer) String() string {
	switch t.Kind {
	case TransferGen:
		return fmt.Sprintf("Gen %%%d = (%d, %d)", t.Var, t.Def.Block, t.Def.Instr)
	case TransferMod:
		return fmt.Sprintf("Mod %%%d", t.Var)
	case TransferCopy:
		return fmt.Sprintf("Copy %%%d from %%%d", t.Var, t.Src)
	default:
		return fmt.Sprintf("Kill %%%d", t.Var)
	}
}

// ApplyTransfers updates vars for the effects of one instruction
func ApplyTransfers(transfers []Transfer, vars VarDefs) {
	for _, t := range transfers {
		switch t.Kind {
		case TransferKill:
			delete(vars, t.Var)
		case TransferMod:
			for d := range vars[t.Var] {
				vars[t.Var][d] = true
			}
		case TransferCopy:
			if defs, ok := vars[t.Src]; ok {
				c := make(map[Def]bool, len(defs))
				for d, modified := range defs {
					c[d] = modified
				}
				vars[t.Var] = c
			}
		case TransferGen:
			if vars[t.Var] == nil {
				vars[t.Var] = make(map[Def]bool)
			}
			vars[t.Var][t.Def] = false
		}
	}
}

// ReachingDefinitions holds the definitions reaching the entry of every
// block and the transfers of each instruction. Blocks the entry cannot
// reach have no entry definitions.
type ReachingDefinitions struct {
	Entry     []VarDefs
	Transfers [][][]Transfer
}

// At returns the definitions reaching instruction instr of block, before
// it executes
func (rd *ReachingDefinitions) At(block, instr int) VarDefs {
	vars := rd.Entry[block].clone()
	for _, ts := range rd.Transfers[block][:instr] {
		ApplyTransfers(ts, vars)
	}
	return vars
}

// FindReachingDefinitions runs a forward dataflow from block 0
func FindReachingDefinitions(cfg *ControlFlowGraph) *ReachingDefinitions {
	rd := &ReachingDefinitions{
		Entry:     make([]VarDefs, len(cfg.Blocks)),
		Transfers: make([][][]Transfer, len(cfg.Blocks)),
	}
	for no, block := range cfg.Blocks {
		rd.Transfers[no] = instrTransfers(no, block)
	}
	if len(cfg.Blocks) == 0 {
		return rd
	}
	rd.Entry[0] = make(VarDefs)

	work := []int{0}
	queued := map[int]bool{0: true}
	for len(work) > 0 {
		block := work[0]
		work = work[1:]
		queued[block] = false

		vars := rd.Entry[block].clone()
		for _, ts := range rd.Transfers[block] {
			ApplyTransfers(ts, vars)
		}

		for _, succ := range Successors(cfg.Blocks[block].Terminator()) {
			if succ < 0 || succ >= len(cfg.Blocks) {
				continue
			}
			if rd.Entry[succ] == nil {
				rd.Entry[succ] = vars.clone()
			} else if !rd.Entry[succ].merge(vars) {
				continue
			}
			if !queued[succ] {
				queued[succ] = true
				work = append(work, succ)
			}
		}
	}
	return rd
}

func instrTransfers(blockNo int, block *BasicBlock) [][]Transfer {
	transfers := make([][]Transfer, len(block.Instrs))
	for instrNo, instr := range block.Instrs {
		set := func(vars ...int) []Transfer {
			var kills, gens []Transfer
			for n, v := range vars {
				kills = append(kills, Transfer{Kind: TransferKill, Var: v})
				gens = append(gens, Transfer{Kind: TransferGen, Var: v, Def: Def{Block: blockNo, Instr: instrNo, Assignment: n}})
			}
			return append(kills, gens...)
		}

		switch i := instr.(type) {
		case *Set:
			if isSelfCopy(i) {
				continue
			}
			if src, ok := i.Expr.(*sema.Variable); ok {
				transfers[instrNo] = []Transfer{
					{Kind: TransferKill, Var: i.Res},
					{Kind: TransferCopy, Var: i.Res, Src: src.VarNo},
				}
			} else {
				transfers[instrNo] = set(i.Res)
			}
		case *PushMemory:
			transfers[instrNo] = append(set(i.Res), Transfer{Kind: TransferMod, Var: i.Array})
		case *PopMemory:
			transfers[instrNo] = append(set(i.Res), Transfer{Kind: TransferMod, Var: i.Array})
		case *Store:
			transfers[instrNo] = modified(i.Dest)
		case *SetStorage:
			transfers[instrNo] = modified(i.Storage)
		case *ClearStorage:
			transfers[instrNo] = modified(i.Storage)
		default:
			transfers[instrNo] = set(Defs(instr)...)
		}
	}
	return transfers
}

// isSelfCopy matches the reconciling sets placed at the top of blocks
// where control flow joins
func isSelfCopy(set *Set) bool {
	v, ok := set.Expr.(*sema.Variable)
	return ok && v.VarNo == set.Res
}

// modified marks the variable a store goes through, if any
func modified(dest sema.Expression) []Transfer {
	if v, ok := arrayVar(dest); ok {
		return []Transfer{{Kind: TransferMod, Var: v}}
	}
	return nil
}

func arrayVar(e sema.Expression) (int, bool) {
	switch n := e.(type) {
	case *sema.Variable:
		return n.VarNo, true
	case *sema.Subscript:
		return arrayVar(n.Array)
	case *sema.StructMember:
		return arrayVar(n.Expr)
	}
	return 0, false
}
