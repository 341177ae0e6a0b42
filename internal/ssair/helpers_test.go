package ssair

import (
	"regexp"
	"testing"

	"github.com/kylelemons/godebug/diff"
	"github.com/stretchr/testify/require"
	"kiln/internal/codegen"
	"kiln/internal/sema"
	"kiln/internal/source"
)

var (
	int32Ty  = sema.Int{Bits: 32}
	uint8Ty  = sema.Uint{Bits: 8}
	uint64Ty = sema.Uint{Bits: 64}
	boolTy   = sema.Bool{}
)

func num(ty sema.Type, v int64) *sema.NumberLiteral {
	return sema.Number(source.Codegen, ty, v)
}

func variable(ty sema.Type, id int) *sema.Variable {
	return &sema.Variable{Ty: ty, VarNo: id}
}

func binary(op sema.BinaryOp, ty sema.Type, l, r sema.Expression) *sema.Binary {
	return &sema.Binary{Ty: ty, Op: op, Signed: sema.IsSignedInt(ty), Left: l, Right: r}
}

func compare(op sema.BinaryOp, signed bool, l, r sema.Expression) *sema.Binary {
	return &sema.Binary{Ty: boolTy, Op: op, Signed: signed, Left: l, Right: r}
}

func param(name string, ty sema.Type) sema.Parameter {
	return sema.Parameter{Name: name, Ty: ty}
}

// function declares a public free function whose locals are its params,
// its named returns and then locals
func function(ns *sema.Namespace, name string, params, returns, locals []sema.Parameter, body ...sema.Statement) int {
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

// graph builds a one-block graph over locals named a, b, c...
func graph(vars []sema.Type, instrs ...codegen.Instr) *codegen.ControlFlowGraph {
	cfg := codegen.NewCFG("test", 0, sema.KindFunction)
	cfg.Public = true
	for id, ty := range vars {
		_ = cfg.Vars.AddKnown(id, string(rune('a'+id)), ty)
	}
	cfg.SetBasicBlock(cfg.NewBlock("entry"))
	for _, i := range instrs {
		cfg.Add(i)
	}
	return cfg
}

func convert(t *testing.T, ns *sema.Namespace, cfg *codegen.ControlFlowGraph) *Cfg {
	t.Helper()
	out, err := Convert(ns, cfg)
	require.NoError(t, err)
	require.NoError(t, Verify(out))
	return out
}

func assertText(t *testing.T, want, got string) {
	t.Helper()
	if want != got {
		t.Errorf("text mismatch (-want +got):\n%s", diff.Diff(want, got))
	}
}

var tempAssignment = regexp.MustCompile(`%temp\.ssa_ir\.\d+ =`)

// tempDestinations counts how often each temporary is assigned in text
func tempDestinations(text string) map[string]int {
	counts := make(map[string]int)
	for _, m := range tempAssignment.FindAllString(text, -1) {
		counts[m]++
	}
	return counts
}
