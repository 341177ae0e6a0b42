package codegen

import (
	"kiln/internal/errors"
	"kiln/internal/sema"
)

// Verify checks that cfg is well formed: there is an entry block, every
// block ends in its only terminator, every branch target exists and every
// variable read or written is in the vartable.
func Verify(cfg *ControlFlowGraph) error {
	if len(cfg.Blocks) == 0 {
		return errors.NewInternalError("%s: no entry block", cfg.Name)
	}
	for no, block := range cfg.Blocks {
		if len(block.Instrs) == 0 {
			return errors.NewInternalError("%s: block%d %s is empty", cfg.Name, no, block.Name)
		}
		for idx, instr := range block.Instrs {
			last := idx == len(block.Instrs)-1
			if IsTerminator(instr) != last {
				if last {
					return errors.NewInternalError("%s: block%d %s does not end in a terminator", cfg.Name, no, block.Name)
				}
				return errors.NewInternalError("%s: block%d %s has a terminator at instruction %d", cfg.Name, no, block.Name, idx)
			}
			for _, s := range Successors(instr) {
				if s < 0 || s >= len(cfg.Blocks) {
					return errors.NewInternalError("%s: block%d branches to missing block %d", cfg.Name, no, s)
				}
			}
			for _, d := range Defs(instr) {
				if cfg.Vars.Lookup(d) == nil {
					return errors.NewInternalError("%s: block%d assigns unknown variable %d", cfg.Name, no, d)
				}
			}
			if err := verifyReads(cfg, no, instr); err != nil {
				return err
			}
		}
	}
	return nil
}

func verifyReads(cfg *ControlFlowGraph, block int, instr Instr) error {
	var err error
	for _, e := range Exprs(instr) {
		sema.Walk(e, func(x sema.Expression) bool {
			if v, ok := x.(*sema.Variable); ok && err == nil && cfg.Vars.Lookup(v.VarNo) == nil {
				err = errors.NewInternalError("%s: block%d reads unknown variable %d", cfg.Name, block, v.VarNo)
			}
			return err == nil
		})
	}
	return err
}
