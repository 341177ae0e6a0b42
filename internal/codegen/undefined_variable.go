package codegen

import (
	"kiln/internal/errors"
	"kiln/internal/sema"
	"kiln/internal/source"
)

// FindUndefinedVariables reports every local that may be read while the
// only definition reaching the read leaves it undefined. Only locals
// without a zero value are checked: storage references and internal
// function pointers. Storage initializers are skipped. It returns true
// when an error was reported.
func FindUndefinedVariables(cfg *ControlFlowGraph, ns *sema.Namespace) bool {
	if cfg.Function < 0 {
		return false
	}
	rd := FindReachingDefinitions(cfg)
	exempt := namedReturns(cfg, ns)

	var order []int
	reads := make(map[int][]source.Loc)
	for no, block := range cfg.Blocks {
		if rd.Entry[no] == nil {
			continue
		}
		vars := rd.Entry[no].clone()
		for idx, instr := range block.Instrs {
			if readsValues(instr) {
				for _, e := range Exprs(instr) {
					sema.Walk(e, func(x sema.Expression) bool {
						switch n := x.(type) {
						case *sema.ArrayLengthExpr:
							return false
						case *sema.Variable:
							if !exempt[n.VarNo] && readsUndefined(cfg, n.VarNo, vars) {
								if _, seen := reads[n.VarNo]; !seen {
									order = append(order, n.VarNo)
								}
								reads[n.VarNo] = append(reads[n.VarNo], n.Pos)
							}
							return false
						}
						return true
					})
				}
			}
			ApplyTransfers(rd.Transfers[no][idx], vars)
		}
	}

	for _, id := range order {
		v := cfg.Vars.Lookup(id)
		ns.Diagnostics.Push(errors.UndefinedVariable(v.Name, v.Pos, reads[id]))
	}
	return len(order) > 0
}

// readsValues is false for stores, which write through a variable rather
// than read it, and for reconciling self copies
func readsValues(instr Instr) bool {
	switch i := instr.(type) {
	case *Store:
		return false
	case *Set:
		return !isSelfCopy(i)
	}
	return true
}

func readsUndefined(cfg *ControlFlowGraph, id int, vars VarDefs) bool {
	v := cfg.Vars.Lookup(id)
	if v == nil || !hasNoZeroValue(v.Ty) {
		return false
	}
	for def, modified := range vars[id] {
		if modified {
			continue
		}
		if set, ok := cfg.Blocks[def.Block].Instrs[def.Instr].(*Set); ok {
			if _, undef := set.Expr.(*sema.Undefined); undef {
				return true
			}
		}
	}
	return false
}

func hasNoZeroValue(ty sema.Type) bool {
	switch ty.(type) {
	case sema.StorageRef, sema.InternalFunction:
		return true
	}
	return false
}

// namedReturns are the return variables of the graph's function. They
// are returned as they are, so only storage references among them must be
// assigned.
func namedReturns(cfg *ControlFlowGraph, ns *sema.Namespace) map[int]bool {
	exempt := make(map[int]bool)
	if cfg.Modifier >= 0 || cfg.Function >= len(ns.Functions) {
		return exempt
	}
	f := ns.Functions[cfg.Function]
	if f == nil || f.Symtable == nil {
		return exempt
	}
	for _, id := range f.Symtable.Returns {
		if v := cfg.Vars.Lookup(id); v != nil {
			if _, storage := v.Ty.(sema.StorageRef); !storage {
				exempt[id] = true
			}
		}
	}
	return exempt
}
