package ssair

import (
	"strings"

	"kiln/internal/errors"
)

// Verify checks that every variable cfg reads or writes is in its
// vartable and that no temporary is assigned more than once
func Verify(cfg *Cfg) error {
	assigned := make(map[int]bool)
	for no, block := range cfg.Blocks {
		for _, instr := range block.Instructions {
			for _, id := range Defs(instr) {
				v, ok := cfg.Vars.Var(id)
				if !ok {
					return errors.NewInternalError("%s: block#%d assigns unknown variable %d", cfg.Name, no, id)
				}
				if strings.HasPrefix(v.Name, TempPrefix) && assigned[id] {
					return errors.NewInternalError("%s: block#%d assigns %%%s again", cfg.Name, no, v.Name)
				}
				assigned[id] = true
			}
			for _, op := range Operands(instr) {
				if id, ok := op.(*Id); ok {
					if _, known := cfg.Vars.Var(id.ID); !known {
						return errors.NewInternalError("%s: block#%d reads unknown variable %d", cfg.Name, no, id.ID)
					}
				}
			}
		}
	}
	return nil
}

// Operands returns the operands an instruction reads, in order
func Operands(instr Instruction) []Operand {
	var out []Operand
	add := func(ops ...Operand) {
		for _, op := range ops {
			if op != nil {
				out = append(out, op)
			}
		}
	}
	switch i := instr.(type) {
	case *Set:
		add(exprOperands(i.Expr)...)
	case *Store:
		add(i.Dest, i.Data)
	case *LoadStorage:
		add(i.Storage)
	case *SetStorage:
		add(i.Value, i.Storage)
	case *ClearStorage:
		add(i.Storage)
	case *PushMemory:
		add(&Id{ID: i.Array}, i.Value)
	case *PopMemory:
		add(&Id{ID: i.Array})
	case *Call:
		if d, ok := i.Call.(DynamicCall); ok {
			add(d.Function)
		}
		add(i.Args...)
	case *ExternalCall:
		add(i.Address, i.Payload, i.Value, i.Gas, i.Accounts.Accounts)
	case *Print:
		add(i.Message.RunTime)
	case *AssertFailure:
		add(i.EncodedArgs)
	case *BranchCond:
		add(i.Cond)
	case *Switch:
		add(i.Cond)
		for _, c := range i.Cases {
			add(c.Value)
		}
	case *Return:
		add(i.Values...)
	}
	return out
}

func exprOperands(e Expression) []Operand {
	switch n := e.(type) {
	case *OperandExpr:
		return []Operand{n.Operand}
	case *BinaryExpr:
		return []Operand{n.Left, n.Right}
	case *UnaryExpr:
		return []Operand{n.Operand}
	case *Cast:
		return []Operand{n.Operand}
	case *BytesCast:
		return []Operand{n.Operand}
	case *ZeroExt:
		return []Operand{n.Operand}
	case *SignExt:
		return []Operand{n.Operand}
	case *Trunc:
		return []Operand{n.Operand}
	case *AllocDynamicBytes:
		return []Operand{n.Size}
	case *Load:
		return []Operand{n.Operand}
	case *StructMember:
		return []Operand{n.Operand}
	case *Subscript:
		return []Operand{n.Array, n.Index}
	case *ArrayLength:
		return []Operand{n.Array}
	case *Builtin:
		return n.Args
	}
	return nil
}
