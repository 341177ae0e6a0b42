package strength

import (
	"fmt"
	"math/big"
	"math/rand"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"kiln/internal/codegen"
	"kiln/internal/errors"
	"kiln/internal/sema"
	"kiln/internal/source"
)

var (
	uint64Ty  = sema.Uint{Bits: 64}
	uint256Ty = sema.Uint{Bits: 256}
	int256Ty  = sema.Int{Bits: 256}
	boolTy    = sema.Bool{}
)

func lit(ty sema.Type, v int64) *sema.NumberLiteral {
	return sema.Number(source.Codegen, ty, v)
}

func ref(ty sema.Type, id int) *sema.Variable {
	return &sema.Variable{Ty: ty, VarNo: id}
}

func op(o sema.BinaryOp, ty sema.Type, l, r sema.Expression) *sema.Binary {
	return &sema.Binary{Ty: ty, Op: o, Signed: sema.IsSignedInt(ty), Left: l, Right: r}
}

func cmp(o sema.BinaryOp, l, r sema.Expression) *sema.Binary {
	return &sema.Binary{Ty: boolTy, Op: o, Signed: sema.IsSignedInt(l.Type()), Left: l, Right: r}
}

// graph builds blocks of instructions over locals named a, b, c...
func graph(vars []sema.Type, blocks ...[]codegen.Instr) *codegen.ControlFlowGraph {
	cfg := codegen.NewCFG("test", 0, sema.KindFunction)
	for id, ty := range vars {
		_ = cfg.Vars.AddKnown(id, string(rune('a'+id)), ty)
	}
	for n, instrs := range blocks {
		cfg.SetBasicBlock(cfg.NewBlock(fmt.Sprintf("block%d", n)))
		for _, i := range instrs {
			cfg.Add(i)
		}
	}
	return cfg
}

func notes(ns *sema.Namespace) []string {
	var out []string
	for _, d := range ns.Diagnostics.All() {
		if d.Code == errors.NoteStrengthReduced {
			out = append(out, d.Message)
		}
	}
	return out
}

func reduceOne(t *testing.T, ty sema.Type, e sema.Expression) (*codegen.ControlFlowGraph, *sema.Namespace, bool) {
	t.Helper()
	ns := sema.NewNamespace(sema.EVM)
	cfg := graph([]sema.Type{ty, ty}, []codegen.Instr{
		&codegen.Set{Res: 1, Expr: e},
		&codegen.Return{Values: []sema.Expression{ref(ty, 1)}},
	})
	changed := (&StrengthReduce{}).Apply(cfg, ns)
	return cfg, ns, changed
}

func TestStrengthReduceRewrites(t *testing.T) {
	x := ref(uint256Ty, 0)
	sx := ref(int256Ty, 0)
	// a negative integer of at most 17 bits
	negSmall := op(sema.BitwiseOr, int256Ty, sx, lit(int256Ty, -65536))

	overflowing := op(sema.Multiply, uint256Ty, x, lit(uint256Ty, 16))
	overflowing.Overflowing = true
	flipped := op(sema.Multiply, uint256Ty, lit(uint256Ty, 16), x)
	flipped.Overflowing = true

	tests := []struct {
		name string
		ty   sema.Type
		expr sema.Expression
		want string
		note string
	}{
		{
			name: "unsigned divide by power of two",
			ty:   uint256Ty,
			expr: op(sema.UnsignedDivide, uint256Ty, x, lit(uint256Ty, 8)),
			want: "(%a >> uint256 3)",
			note: "uint256 divide optimized to shift right 3",
		},
		{
			name: "unsigned modulo by power of two",
			ty:   uint256Ty,
			expr: op(sema.UnsignedModulo, uint256Ty, x, lit(uint256Ty, 32)),
			want: "(%a & uint256 31)",
			note: "uint256 modulo optimized to bitwise and 31",
		},
		{
			name: "overflowing multiply by power of two",
			ty:   uint256Ty,
			expr: overflowing,
			want: "(%a << uint256 4)",
			note: "uint256 multiply optimized to shift left 4",
		},
		{
			name: "power of two on the left",
			ty:   uint256Ty,
			expr: flipped,
			want: "(%a << uint256 4)",
			note: "uint256 multiply optimized to shift left 4",
		},
		{
			name: "masked multiply fits 64 bits",
			ty:   uint256Ty,
			expr: op(sema.Multiply, uint256Ty,
				op(sema.BitwiseAnd, uint256Ty, x, lit(uint256Ty, 0xffff)),
				op(sema.BitwiseAnd, uint256Ty, x, lit(uint256Ty, 0xff))),
			want: "(zext uint256 ((trunc uint64 (%a & uint256 65535)) * (trunc uint64 (%a & uint256 255))))",
			note: "uint256 multiply optimized to uint64 multiply",
		},
		{
			name: "masked divide fits 64 bits",
			ty:   uint256Ty,
			expr: op(sema.UnsignedDivide, uint256Ty,
				op(sema.BitwiseAnd, uint256Ty, x, lit(uint256Ty, 0xffffffff)),
				lit(uint256Ty, 7)),
			want: "(zext uint256 (unsigned divide (trunc uint64 (%a & uint256 4294967295)) / (trunc uint64 uint256 7)))",
			note: "uint256 divide optimized to uint64 divide",
		},
		{
			name: "signed divide of non-negative dividend",
			ty:   int256Ty,
			expr: op(sema.SignedDivide, int256Ty,
				op(sema.BitwiseAnd, int256Ty, sx, lit(int256Ty, 0xffff)),
				lit(int256Ty, 8)),
			want: "(signed (%a & int256 65535) >> int256 3)",
			note: "int256 divide optimized to shift right 3",
		},
		{
			name: "signed divide fits 64 bits",
			ty:   int256Ty,
			expr: op(sema.SignedDivide, int256Ty, negSmall, lit(int256Ty, -7)),
			want: "(sext int256 (signed divide (trunc int64 (%a | int256 -65536)) / (trunc int64 int256 -7)))",
			note: "int256 divide optimized to int64 divide",
		},
		{
			name: "signed modulo fits 64 bits",
			ty:   int256Ty,
			expr: op(sema.SignedModulo, int256Ty, negSmall, lit(int256Ty, 1000)),
			want: "(sext int256 (signed modulo (trunc int64 (%a | int256 -65536)) % (trunc int64 int256 1000)))",
			note: "int256 modulo optimized to int64 modulo",
		},
		{
			name: "signed multiply fits 64 bits",
			ty:   int256Ty,
			expr: op(sema.Multiply, int256Ty, negSmall, negSmall),
			want: "(sext int256 ((trunc int64 (%a | int256 -65536)) * (trunc int64 (%a | int256 -65536))))",
			note: "int256 multiply optimized to int64 multiply",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, ns, changed := reduceOne(t, tt.ty, tt.expr)
			require.True(t, changed)
			set := cfg.Blocks[0].Instrs[0].(*codegen.Set)
			assert.Equal(t, tt.want, codegen.NewPrinter(cfg).ExprString(set.Expr))
			assert.Equal(t, []string{tt.note}, notes(ns))
		})
	}
}

func TestStrengthReduceLeavesUnprovable(t *testing.T) {
	x := ref(uint256Ty, 0)
	sx := ref(int256Ty, 0)
	tests := []struct {
		name string
		ty   sema.Type
		expr sema.Expression
	}{
		{"signed divide of unknown sign", int256Ty, op(sema.SignedDivide, int256Ty, sx, lit(int256Ty, 4))},
		{"signed modulo of unknown sign", int256Ty, op(sema.SignedModulo, int256Ty, sx, lit(int256Ty, 4))},
		{"checked multiply by power of two", uint256Ty, op(sema.Multiply, uint256Ty, x, lit(uint256Ty, 8))},
		{"divide by non power of two", uint256Ty, op(sema.UnsignedDivide, uint256Ty, x, lit(uint256Ty, 10))},
		{"narrow type", uint64Ty, op(sema.UnsignedDivide, uint64Ty, ref(uint64Ty, 0), lit(uint64Ty, 8))},
		{"divisor of unknown value", uint256Ty, op(sema.UnsignedDivide, uint256Ty, lit(uint256Ty, 8), x)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, ns, changed := reduceOne(t, tt.ty, tt.expr)
			assert.False(t, changed)
			assert.Same(t, tt.expr, cfg.Blocks[0].Instrs[0].(*codegen.Set).Expr)
			assert.Empty(t, notes(ns))
		})
	}
}

func TestStrengthReduceResolvesBranch(t *testing.T) {
	ns := sema.NewNamespace(sema.EVM)
	cfg := graph([]sema.Type{uint256Ty, boolTy},
		[]codegen.Instr{
			&codegen.Set{Res: 0, Expr: lit(uint256Ty, 5)},
			&codegen.Set{Res: 1, Expr: cmp(sema.More, ref(uint256Ty, 0), lit(uint256Ty, 3))},
			&codegen.BranchCond{Cond: ref(boolTy, 1), True: 1, False: 2},
		},
		[]codegen.Instr{&codegen.Return{Values: []sema.Expression{ref(uint256Ty, 0)}}},
		[]codegen.Instr{&codegen.Return{}},
	)

	require.True(t, (&StrengthReduce{}).Apply(cfg, ns))
	p := codegen.NewPrinter(cfg)
	instrs := cfg.Blocks[0].Instrs
	assert.Equal(t, "ty:bool %b = true", p.InstrString(instrs[1]))
	assert.Equal(t, "branch block1", p.InstrString(instrs[2]))
	assert.Equal(t, []string{"comparison is always true", "condition is always true"}, notes(ns))
}

func TestStrengthReduceLiteralConditionIsSilent(t *testing.T) {
	ns := sema.NewNamespace(sema.EVM)
	cfg := graph(nil,
		[]codegen.Instr{&codegen.BranchCond{Cond: &sema.BoolLiteral{Value: false}, True: 1, False: 2}},
		[]codegen.Instr{&codegen.Return{}},
		[]codegen.Instr{&codegen.Return{}},
	)

	require.True(t, (&StrengthReduce{}).Apply(cfg, ns))
	assert.Equal(t, &codegen.Branch{Block: 2}, cfg.Blocks[0].Instrs[0])
	assert.Empty(t, notes(ns))
}

func TestStrengthReduceFollowsLiveEdge(t *testing.T) {
	// the false edge is dead, so only the true edge's assignment reaches
	// the join
	ns := sema.NewNamespace(sema.EVM)
	div := op(sema.UnsignedDivide, uint256Ty, ref(uint256Ty, 0), ref(uint256Ty, 1))
	cfg := graph([]sema.Type{uint256Ty, uint256Ty, uint256Ty},
		[]codegen.Instr{&codegen.BranchCond{Cond: &sema.BoolLiteral{Value: true}, True: 1, False: 2}},
		[]codegen.Instr{
			&codegen.Set{Res: 1, Expr: lit(uint256Ty, 4)},
			&codegen.Branch{Block: 3},
		},
		[]codegen.Instr{
			&codegen.Set{Res: 1, Expr: lit(uint256Ty, 3)},
			&codegen.Branch{Block: 3},
		},
		[]codegen.Instr{
			&codegen.Set{Res: 2, Expr: div},
			&codegen.Return{Values: []sema.Expression{ref(uint256Ty, 2)}},
		},
	)

	require.True(t, (&StrengthReduce{}).Apply(cfg, ns))
	set := cfg.Blocks[3].Instrs[0].(*codegen.Set)
	assert.Equal(t, "(%a >> uint256 2)", codegen.NewPrinter(cfg).ExprString(set.Expr))
	assert.Contains(t, notes(ns), "uint256 divide optimized to shift right 2")
}

func TestStrengthReduceJoinsValuesAtMerge(t *testing.T) {
	ns := sema.NewNamespace(sema.EVM)
	div := op(sema.UnsignedDivide, uint256Ty, ref(uint256Ty, 0), ref(uint256Ty, 1))
	cfg := graph([]sema.Type{uint256Ty, uint256Ty, uint256Ty, boolTy},
		[]codegen.Instr{&codegen.BranchCond{Cond: ref(boolTy, 3), True: 1, False: 2}},
		[]codegen.Instr{
			&codegen.Set{Res: 1, Expr: lit(uint256Ty, 4)},
			&codegen.Branch{Block: 3},
		},
		[]codegen.Instr{
			&codegen.Set{Res: 1, Expr: lit(uint256Ty, 3)},
			&codegen.Branch{Block: 3},
		},
		[]codegen.Instr{
			&codegen.Set{Res: 2, Expr: div},
			&codegen.Return{Values: []sema.Expression{ref(uint256Ty, 2)}},
		},
	)

	// the divisor is 3 or 4, so no single shift fits
	assert.False(t, (&StrengthReduce{}).Apply(cfg, ns))
	assert.Same(t, div, cfg.Blocks[3].Instrs[0].(*codegen.Set).Expr)
}

func TestStrengthReduceLoopTerminates(t *testing.T) {
	// i counts up in a loop; the analysis gives up on it once it has seen
	// too many values but still bounds i & 255
	ns := sema.NewNamespace(sema.EVM)
	i := func() sema.Expression { return ref(uint256Ty, 0) }
	masked := op(sema.Multiply, uint256Ty, op(sema.BitwiseAnd, uint256Ty, i(), lit(uint256Ty, 255)), lit(uint256Ty, 100))
	plain := op(sema.Multiply, uint256Ty, i(), lit(uint256Ty, 100))
	cfg := graph([]sema.Type{uint256Ty, uint256Ty, uint256Ty},
		[]codegen.Instr{
			&codegen.Set{Res: 0, Expr: lit(uint256Ty, 0)},
			&codegen.Branch{Block: 1},
		},
		[]codegen.Instr{
			&codegen.BranchCond{Cond: cmp(sema.Less, i(), lit(uint256Ty, 10)), True: 2, False: 3},
		},
		[]codegen.Instr{
			&codegen.Set{Res: 1, Expr: masked},
			&codegen.Set{Res: 2, Expr: plain},
			&codegen.Set{Res: 0, Expr: op(sema.Add, uint256Ty, i(), lit(uint256Ty, 1))},
			&codegen.Branch{Block: 1},
		},
		[]codegen.Instr{&codegen.Return{Values: []sema.Expression{i()}}},
	)

	require.True(t, (&StrengthReduce{}).Apply(cfg, ns))
	p := codegen.NewPrinter(cfg)
	body := cfg.Blocks[2].Instrs
	assert.Equal(t, "ty:uint256 %b = (zext uint256 ((trunc uint64 (%a & uint256 255)) * (trunc uint64 uint256 100)))", p.InstrString(body[0]))
	assert.Same(t, plain, body[1].(*codegen.Set).Expr)
	_, isCond := cfg.Blocks[1].Instrs[0].(*codegen.BranchCond)
	assert.True(t, isCond, "the loop condition is not constant")
}

func TestStrengthReduceStopsAtCalls(t *testing.T) {
	ns := sema.NewNamespace(sema.EVM)
	div := op(sema.UnsignedDivide, uint256Ty, ref(uint256Ty, 0), ref(uint256Ty, 1))
	cfg := graph([]sema.Type{uint256Ty, uint256Ty, uint256Ty},
		[]codegen.Instr{
			&codegen.Set{Res: 1, Expr: lit(uint256Ty, 4)},
			&codegen.Call{Res: []int{1}, Call: codegen.StaticCall{CfgNo: 0}},
			&codegen.Set{Res: 2, Expr: div},
			&codegen.Return{},
		},
	)

	assert.False(t, (&StrengthReduce{}).Apply(cfg, ns))
}

func TestStrengthReduceLeavesUndefinedUnknown(t *testing.T) {
	ns := sema.NewNamespace(sema.EVM)
	cfg := graph([]sema.Type{uint256Ty},
		[]codegen.Instr{
			&codegen.Set{Res: 0, Expr: &sema.Undefined{Ty: uint256Ty}},
			&codegen.BranchCond{Cond: cmp(sema.Equal, ref(uint256Ty, 0), lit(uint256Ty, 0)), True: 1, False: 2},
		},
		[]codegen.Instr{&codegen.Return{Values: []sema.Expression{lit(uint256Ty, 1)}}},
		[]codegen.Instr{&codegen.Return{Values: []sema.Expression{lit(uint256Ty, 2)}}},
	)

	assert.False(t, (&StrengthReduce{}).Apply(cfg, ns))
	assert.IsType(t, &codegen.BranchCond{}, cfg.Blocks[0].Instrs[1])
	assert.Empty(t, notes(ns))
}

func TestStrengthReduceKeepsExternalCallResultsUnknown(t *testing.T) {
	ns := sema.NewNamespace(sema.EVM)
	addr := sema.Address{}
	sym := sema.NewSymtable()
	sym.Arguments = append(sym.Arguments, sym.Add("addr", addr, source.Codegen))
	sym.Returns = append(sym.Returns, -1)
	r := sym.Add("r", uint256Ty, source.Codegen)
	f := ns.AddFunction(&sema.Function{
		Name:     "g",
		Contract: -1,
		Kind:     sema.KindFunction,
		Params:   []sema.Parameter{{Name: "addr", Ty: addr}},
		Returns:  []sema.Parameter{{Ty: uint256Ty}},
		Public:   true,
		Symtable: sym,
		Body: []sema.Statement{
			&sema.VariableDecl{VarNo: r, Init: &sema.ExternalCall{
				Address:  ref(addr, 0),
				Payload:  &sema.BytesLiteral{Ty: sema.DynamicBytes{}, Value: []byte{0x01}},
				Accounts: sema.ExternalAccounts{Kind: sema.AccountsAbsent},
				Returns:  []sema.Type{uint256Ty},
			}},
			&sema.If{
				Cond: cmp(sema.Equal, ref(uint256Ty, r), lit(uint256Ty, 0)),
				Then: []sema.Statement{&sema.Return{Values: []sema.Expression{lit(uint256Ty, 1)}}},
			},
			&sema.Return{Values: []sema.Expression{lit(uint256Ty, 2)}},
		},
	})

	cfg, err := codegen.BuildFunction(ns, f, codegen.DefaultOptions())
	require.NoError(t, err)
	branches := func() int {
		n := 0
		for _, b := range cfg.Blocks {
			if _, ok := b.Instrs[len(b.Instrs)-1].(*codegen.BranchCond); ok {
				n++
			}
		}
		return n
	}
	require.Equal(t, 2, branches())

	(&StrengthReduce{}).Apply(cfg, ns)
	require.NoError(t, codegen.Verify(cfg))
	assert.Equal(t, 2, branches(), codegen.PrintCFG(cfg))
	assert.Contains(t, codegen.PrintCFG(cfg), "branchcond (%r == uint256 0)")
	assert.Empty(t, notes(ns))
}

// concrete evaluates the integer expressions the rewrites produce, giving
// each result as an unsigned integer of its type's width
func concrete(t *testing.T, ns *sema.Namespace, e sema.Expression, env map[int]*big.Int) *big.Int {
	t.Helper()
	bits := uint16(ns.Bits(e.Type()))
	switch n := e.(type) {
	case *sema.NumberLiteral:
		return wrap(n.Value, bits)
	case *sema.Variable:
		return env[n.VarNo]
	case *sema.Cast:
		x := concrete(t, ns, n.Expr, env)
		if n.Kind == sema.SignExt {
			x = toSigned(x, uint16(ns.Bits(n.Expr.Type())))
		}
		return wrap(x, bits)
	case *sema.Binary:
		l, r := concrete(t, ns, n.Left, env), concrete(t, ns, n.Right, env)
		var out *big.Int
		switch n.Op {
		case sema.Add:
			out = new(big.Int).Add(l, r)
		case sema.Multiply:
			out = new(big.Int).Mul(l, r)
		case sema.BitwiseAnd:
			out = new(big.Int).And(l, r)
		case sema.BitwiseOr:
			out = new(big.Int).Or(l, r)
		case sema.UnsignedDivide:
			out = new(big.Int).Quo(l, r)
		case sema.UnsignedModulo:
			out = new(big.Int).Rem(l, r)
		case sema.SignedDivide:
			out = new(big.Int).Quo(toSigned(l, bits), toSigned(r, bits))
		case sema.SignedModulo:
			out = new(big.Int).Rem(toSigned(l, bits), toSigned(r, bits))
		case sema.ShiftLeft:
			out = new(big.Int).Lsh(l, uint(r.Uint64()))
		case sema.ShiftRight:
			if n.Signed {
				out = new(big.Int).Rsh(toSigned(l, bits), uint(r.Uint64()))
			} else {
				out = new(big.Int).Rsh(l, uint(r.Uint64()))
			}
		default:
			t.Fatalf("no concrete semantics for %v", n.Op)
		}
		return wrap(out, bits)
	}
	t.Fatalf("no concrete semantics for %T", e)
	return nil
}

func samples(rng *rand.Rand) []*big.Int {
	var out []*big.Int
	for _, s := range []string{"0", "1", "2", "7", "8", "255", "65535", "2147483647", "2147483648",
		"4294967295", "9223372036854775807", "9223372036854775808", "18446744073709551615"} {
		v, _ := new(big.Int).SetString(s, 10)
		out = append(out, v)
	}
	top := modulus(256)
	out = append(out,
		new(big.Int).Sub(top, big.NewInt(1)),
		new(big.Int).Sub(top, big.NewInt(8)),
		new(big.Int).Sub(top, big.NewInt(2147483648)),
		new(big.Int).Rsh(top, 1),
	)
	for i := 0; i < 200; i++ {
		w := uint256.Int{rng.Uint64(), rng.Uint64(), rng.Uint64(), rng.Uint64()}
		// keep some samples small
		w.Rsh(&w, uint(rng.Intn(256)))
		out = append(out, w.ToBig())
	}
	return out
}

func TestStrengthReduceKeepsResults(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	xs := samples(rng)
	ns := sema.NewNamespace(sema.EVM)

	x := ref(uint256Ty, 0)
	sx := ref(int256Ty, 0)
	negSmall := op(sema.BitwiseOr, int256Ty, sx, lit(int256Ty, -65536))
	positive := op(sema.BitwiseAnd, int256Ty, sx, lit(int256Ty, 0xffff))
	wrapMul := op(sema.Multiply, uint256Ty, x, lit(uint256Ty, 1<<20))
	wrapMul.Overflowing = true

	exprs := []struct {
		ty   sema.Type
		expr sema.Expression
	}{
		{uint256Ty, op(sema.UnsignedDivide, uint256Ty, x, lit(uint256Ty, 1<<12))},
		{uint256Ty, op(sema.UnsignedModulo, uint256Ty, x, lit(uint256Ty, 1<<40))},
		{uint256Ty, wrapMul},
		{uint256Ty, op(sema.Multiply, uint256Ty, op(sema.BitwiseAnd, uint256Ty, x, lit(uint256Ty, 0xffffffff)), lit(uint256Ty, 0xffffffff))},
		{uint256Ty, op(sema.UnsignedModulo, uint256Ty, op(sema.BitwiseAnd, uint256Ty, x, lit(uint256Ty, 0xffffffffffff)), lit(uint256Ty, 1000003))},
		{int256Ty, op(sema.SignedDivide, int256Ty, op(sema.BitwiseAnd, int256Ty, sx, lit(int256Ty, 0xffffff)), lit(int256Ty, 16))},
		{int256Ty, op(sema.SignedModulo, int256Ty, op(sema.BitwiseAnd, int256Ty, sx, lit(int256Ty, 0xffffff)), lit(int256Ty, 16))},
		{int256Ty, op(sema.SignedDivide, int256Ty, negSmall, lit(int256Ty, -3))},
		{int256Ty, op(sema.SignedModulo, int256Ty, negSmall, lit(int256Ty, -3))},
		{int256Ty, op(sema.Multiply, int256Ty, negSmall, positive)},
	}

	for n, tt := range exprs {
		cfg, _, changed := reduceOne(t, tt.ty, tt.expr)
		require.True(t, changed, "case %d", n)
		rewritten := cfg.Blocks[0].Instrs[0].(*codegen.Set).Expr
		for _, v := range xs {
			env := map[int]*big.Int{0: v}
			want := concrete(t, ns, tt.expr, env)
			got := concrete(t, ns, rewritten, env)
			if want.Cmp(got) != 0 {
				t.Fatalf("case %d with %s: got %s, want %s", n, v, got, want)
			}
		}
	}
}

func TestStrengthReduceIdempotent(t *testing.T) {
	ns := sema.NewNamespace(sema.EVM)
	x := ref(uint256Ty, 0)
	cfg := graph([]sema.Type{uint256Ty, uint256Ty, uint256Ty, uint256Ty},
		[]codegen.Instr{&codegen.BranchCond{Cond: &sema.BoolLiteral{Value: true}, True: 1, False: 2}},
		[]codegen.Instr{
			&codegen.Set{Res: 1, Expr: op(sema.UnsignedDivide, uint256Ty, x, lit(uint256Ty, 8))},
			&codegen.Set{Res: 2, Expr: op(sema.Multiply, uint256Ty, op(sema.BitwiseAnd, uint256Ty, x, lit(uint256Ty, 0xffff)), lit(uint256Ty, 1000))},
			&codegen.Set{Res: 3, Expr: op(sema.UnsignedModulo, uint256Ty, x, lit(uint256Ty, 16))},
			&codegen.Return{Values: []sema.Expression{ref(uint256Ty, 1), ref(uint256Ty, 2), ref(uint256Ty, 3)}},
		},
		[]codegen.Instr{&codegen.Return{}},
	)

	require.True(t, (&StrengthReduce{}).Apply(cfg, ns))
	first := codegen.PrintCFG(cfg)
	assert.False(t, (&StrengthReduce{}).Apply(cfg, ns))
	assert.Equal(t, first, codegen.PrintCFG(cfg))
}
