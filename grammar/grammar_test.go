package grammar_test

import (
	"strings"
	"testing"

	"github.com/alecthomas/participle/v2"
	"github.com/kylelemons/godebug/diff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"kiln/grammar"
	"kiln/internal/codegen"
	"kiln/internal/sema"
	"kiln/internal/source"
	"kiln/internal/ssair"
)

const celcius = `# function celcius2fahrenheit public:true nonpayable:false
# params: int32 celcius
# returns: int32
block0: # entry
	ty:int32 %celcius = (arg #0)
	return ((signed divide (%celcius * int32 9) / int32 5) + int32 32)
`

const counter = `# function Counter::count public:false selector:0a0b0c0d nonpayable:true
# params: uint64 n
# returns: uint64 total
block0: # entry
	ty:uint64 %n = (arg #0)
	ty:uint64 %total = uint64 0
	ty:uint64 %i = uint64 0
	branch block1
block1: # cond
	# phis: total,i
	branchcond (unsigned less %i < %n), block2, block3
block2: # body
	ty:uint64 %total = (%total + %i)
	ty:uint64 %i = (%i + uint64 1)
	branch block1
block3: # endfor
	set storage slot(uint256 0) ty:uint64 = %total
	%total = load storage slot(uint256 0) ty:uint64
	return %total
`

const pick = `# function pick public:true nonpayable:false
# params: int8 x, bool flag
# returns: int256
block0: # entry
	ty:int8 %x = (arg #0)
	ty:bool %flag = (arg #1)
	ty:int256 %wide = (sext int256 %x)
	ty:bool %neg = (signed less %x < int8 0)
	ty:int256 %w2 = (overflowing %wide * int256 -3)
	ty:int256 %r = (signed %w2 >> int256 2)
	ty:bool %c = (!%flag && %neg)
	switch %x, case int8 1: block1, case int8 -1: block2, default: block3
block1: # one
	%a, %b = call static #2(%wide, true)
	return %a
block2: # minus
	ty:int256 %m = -(signed modulo %wide % int256 7)
	return %m
block3: # other
	print bytes2 hex"0aff"
	clear storage slot(uint256 1) ty:bool
	ty:bytes4 %h = (undefined bytes4)
	nop
	assert-failure: bytes4 hex"deadbeef"
block4: # dead
	unreachable
`

func printAll(cfgs []*codegen.ControlFlowGraph) string {
	var sb strings.Builder
	for _, cfg := range cfgs {
		sb.WriteString(codegen.PrintCFG(cfg))
	}
	return sb.String()
}

func assertText(t *testing.T, want, got string) {
	t.Helper()
	if want != got {
		t.Errorf("text mismatch (-want +got):\n%s", diff.Diff(want, got))
	}
}

// =============================================================================
// ROUND TRIP
// =============================================================================

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"straight line", celcius},
		{"loop with storage", counter},
		{"switch and casts", pick},
		{"several graphs", celcius + counter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfgs, err := grammar.LoadCFG(tt.name, tt.text)
			require.NoError(t, err)
			assertText(t, tt.text, printAll(cfgs))
		})
	}
}

func TestLoadedGraphsAreWellFormed(t *testing.T) {
	cfgs, err := grammar.LoadCFG("all", celcius+counter+pick)
	require.NoError(t, err)
	require.Len(t, cfgs, 3)

	for no, cfg := range cfgs {
		assert.NoError(t, codegen.Verify(cfg), cfg.Name)
		assert.Equal(t, no, cfg.Function)
	}
}

func TestLoadedStructure(t *testing.T) {
	cfgs, err := grammar.LoadCFG("counter", counter)
	require.NoError(t, err)
	cfg := cfgs[0]

	assert.Equal(t, "Counter::count", cfg.Name)
	assert.False(t, cfg.Public)
	assert.True(t, cfg.Nonpayable)
	assert.Equal(t, []byte{0x0a, 0x0b, 0x0c, 0x0d}, cfg.Selector)
	assert.Equal(t, []sema.Parameter{{Name: "n", Ty: sema.Uint{Bits: 64}}}, cfg.Params)
	assert.Equal(t, []int{1, 2}, cfg.Blocks[1].PhiList())

	bc, ok := cfg.Blocks[1].Instrs[0].(*codegen.BranchCond)
	require.True(t, ok)
	cond, ok := bc.Cond.(*sema.Binary)
	require.True(t, ok)
	assert.Equal(t, sema.Less, cond.Op)
	assert.False(t, cond.Signed)
	assert.Equal(t, sema.Bool{}, cond.Ty)
	assert.Equal(t, 2, bc.True)
	assert.Equal(t, 3, bc.False)
}

func TestOperatorsKeepTheirSignedness(t *testing.T) {
	cfgs, err := grammar.LoadCFG("pick", pick)
	require.NoError(t, err)
	entry := cfgs[0].Blocks[0].Instrs

	shift := entry[5].(*codegen.Set).Expr.(*sema.Binary)
	assert.Equal(t, sema.ShiftRight, shift.Op)
	assert.True(t, shift.Signed)

	mul := entry[4].(*codegen.Set).Expr.(*sema.Binary)
	assert.True(t, mul.Overflowing)
	assert.Equal(t, sema.Int{Bits: 256}, mul.Ty)

	neg := cfgs[0].Blocks[2].Instrs[0].(*codegen.Set).Expr.(*sema.Unary)
	assert.Equal(t, sema.Negate, neg.Op)
	assert.Equal(t, sema.SignedModulo, neg.Expr.(*sema.Binary).Op)
}

// =============================================================================
// BUILDER OUTPUT
// =============================================================================

func celciusNamespace() (*sema.Namespace, int) {
	ns := sema.NewNamespace(sema.Polkadot)
	int32Ty := sema.Int{Bits: 32}
	num := func(v int64) sema.Expression { return sema.Number(source.Codegen, int32Ty, v) }
	bin := func(op sema.BinaryOp, l, r sema.Expression) sema.Expression {
		return &sema.Binary{Ty: int32Ty, Op: op, Signed: true, Left: l, Right: r}
	}

	sym := sema.NewSymtable()
	sym.Arguments = append(sym.Arguments, sym.Add("celcius", int32Ty, source.Codegen))
	sym.Returns = append(sym.Returns, -1)
	f := ns.AddFunction(&sema.Function{
		Name:     "celcius2fahrenheit",
		Contract: -1,
		Kind:     sema.KindFunction,
		Params:   []sema.Parameter{{Name: "celcius", Ty: int32Ty}},
		Returns:  []sema.Parameter{{Ty: int32Ty}},
		Body: []sema.Statement{&sema.Return{Values: []sema.Expression{
			bin(sema.Add,
				bin(sema.SignedDivide,
					bin(sema.Multiply, &sema.Variable{Ty: int32Ty, VarNo: 0}, num(9)),
					num(5)),
				num(32)),
		}}},
		Public:   true,
		Symtable: sym,
	})
	return ns, f
}

func TestBuilderOutputLoadsBack(t *testing.T) {
	ns, f := celciusNamespace()
	built, err := codegen.BuildFunction(ns, f, codegen.DefaultOptions())
	require.NoError(t, err)
	text := codegen.PrintCFG(built)

	cfgs, err := grammar.LoadCFG("built", text)
	require.NoError(t, err)
	require.Len(t, cfgs, 1)
	assertText(t, text, codegen.PrintCFG(cfgs[0]))

	lowered, err := ssair.Convert(ns, cfgs[0])
	require.NoError(t, err)
	assert.Contains(t, ssair.PrintCfg(lowered), "int32(%celcius) * int32(9)")
}

// =============================================================================
// ERRORS
// =============================================================================

func TestLoadErrors(t *testing.T) {
	header := "# function f public:true nonpayable:false\n# params:\n# returns:\n"

	tests := []struct {
		name   string
		body   string
		errMsg string
	}{
		{"unsupported type", "block0: # entry\n\tty:string %s = (undefined string)\n\treturn\n", `type "string" is not supported`},
		{"invalid width", "block0: # entry\n\tty:uint7 %s = uint7 1\n\treturn\n", `type "uint7" has an invalid width`},
		{"missing block", "block0: # entry\n\tbranch block7\n", "no block block7"},
		{"blocks out of order", "block1: # entry\n\treturn\n", "expected block0, found block1"},
		{"unspelled signedness", "block0: # entry\n\tty:int8 %a = int8 1\n\treturn (%a / int8 2)\n", "needs signed or unsigned"},
		{"argument out of range", "block0: # entry\n\tty:int8 %a = (arg #0)\n\treturn\n", "argument 0 out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := grammar.LoadCFG(tt.name, header+tt.body)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadErrorCarriesPosition(t *testing.T) {
	src := "# function f public:true nonpayable:false\n# params:\n# returns:\nblock0: # entry\n\tbranch block9\n"
	_, err := grammar.LoadCFG("f.cfg", src)

	var loadErr *grammar.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, 5, loadErr.Pos.Line)
	assert.Equal(t, "f.cfg", loadErr.Pos.Filename)

	report := grammar.FormatParseError(src, err)
	assert.Contains(t, report, "f.cfg at line 5")
	assert.Contains(t, report, "no block block9")
}

func TestInstructionsKeepTextLocations(t *testing.T) {
	cfgs, err := grammar.LoadCFG("celcius.cfg", celcius)
	require.NoError(t, err)

	set := cfgs[0].Blocks[0].Instrs[0].(*codegen.Set)
	assert.Equal(t, source.Loc{File: "celcius.cfg", Line: 5, Column: 2}, set.Pos)

	ret := cfgs[0].Blocks[0].Instrs[1].(*codegen.Return)
	assert.Equal(t, 6, ret.Values[0].Loc().Line)
}

func TestSyntaxErrorIsReportedWithCaret(t *testing.T) {
	src := "# function f public:maybe nonpayable:false\n"
	_, err := grammar.LoadCFG("bad.cfg", src)
	require.Error(t, err)

	_, ok := err.(participle.Error)
	require.True(t, ok, "%T", err)

	report := grammar.FormatParseError(src, err)
	assert.Contains(t, report, "bad.cfg at line 1")
	assert.Contains(t, report, "^")
}
