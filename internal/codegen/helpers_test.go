package codegen

import (
	"math/big"

	"kiln/internal/sema"
	"kiln/internal/source"
)

var (
	int32Ty   = sema.Int{Bits: 32}
	uint8Ty   = sema.Uint{Bits: 8}
	uint64Ty  = sema.Uint{Bits: 64}
	uint256Ty = sema.Uint{Bits: 256}
	boolTy    = sema.Bool{}
)

func num(ty sema.Type, v int64) *sema.NumberLiteral {
	return sema.Number(source.Codegen, ty, v)
}

func bigNum(ty sema.Type, v *big.Int) *sema.NumberLiteral {
	return &sema.NumberLiteral{Ty: ty, Value: v}
}

func boolLit(v bool) *sema.BoolLiteral {
	return &sema.BoolLiteral{Value: v}
}

func variable(ty sema.Type, id int) *sema.Variable {
	return &sema.Variable{Ty: ty, VarNo: id}
}

func binary(op sema.BinaryOp, ty sema.Type, l, r sema.Expression) *sema.Binary {
	return &sema.Binary{Ty: ty, Op: op, Signed: sema.IsSignedInt(ty), Left: l, Right: r}
}

func wrapping(op sema.BinaryOp, ty sema.Type, l, r sema.Expression) *sema.Binary {
	b := binary(op, ty, l, r)
	b.Overflowing = true
	return b
}

func compare(op sema.BinaryOp, signed bool, l, r sema.Expression) *sema.Binary {
	return &sema.Binary{Ty: boolTy, Op: op, Signed: signed, Left: l, Right: r}
}

// singleBlock builds a graph of one block over the given locals
func singleBlock(vars map[int]sema.Type, instrs ...Instr) *ControlFlowGraph {
	cfg := NewCFG("test", 0, sema.KindFunction)
	for id := 0; id < len(vars); id++ {
		if ty, ok := vars[id]; ok {
			_ = cfg.Vars.AddKnown(id, varName(id), ty)
		}
	}
	cfg.SetBasicBlock(cfg.NewBlock("entry"))
	for _, i := range instrs {
		cfg.Add(i)
	}
	return cfg
}

func varName(id int) string {
	return string(rune('a' + id))
}

// function declares a free function on ns whose locals are named after
// params and returns, in order, followed by locals
func function(ns *sema.Namespace, name string, params, returns []sema.Parameter, locals []sema.Parameter, body ...sema.Statement) int {
	sym := sema.NewSymtable()
	for _, p := range params {
		sym.Arguments = append(sym.Arguments, sym.Add(p.Name, p.Ty, p.Pos))
	}
	for _, r := range returns {
		if r.Name == "" {
			sym.Returns = append(sym.Returns, -1)
			continue
		}
		sym.Returns = append(sym.Returns, sym.Add(r.Name, r.Ty, r.Pos))
	}
	for _, l := range locals {
		sym.Add(l.Name, l.Ty, l.Pos)
	}
	return ns.AddFunction(&sema.Function{
		Name:     name,
		Contract: -1,
		Kind:     sema.KindFunction,
		Params:   params,
		Returns:  returns,
		Body:     body,
		Public:   true,
		Symtable: sym,
	})
}

func param(name string, ty sema.Type) sema.Parameter {
	return sema.Parameter{Name: name, Ty: ty}
}

func params(ps ...sema.Parameter) []sema.Parameter {
	return ps
}
