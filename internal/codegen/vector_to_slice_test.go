package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"kiln/internal/sema"
)

var bytesTy = sema.DynamicBytes{}

func constantBytes() *sema.AllocDynamicBytes {
	return &sema.AllocDynamicBytes{Ty: bytesTy, Size: num(sema.Uint{Bits: 32}, 3), Initializer: []byte("abc")}
}

func TestReadOnlyBytesBecomeSlice(t *testing.T) {
	cfg := singleBlock(map[int]sema.Type{0: bytesTy, 1: sema.Bytes{N: 1}},
		&Set{Res: 0, Expr: constantBytes()},
		&Set{Res: 1, Expr: &sema.Subscript{Ty: sema.Bytes{N: 1}, ArrayTy: bytesTy, Array: variable(bytesTy, 0), Index: num(sema.Uint{Bits: 32}, 1)}},
		&Return{Values: []sema.Expression{variable(sema.Bytes{N: 1}, 1)}},
	)

	require.True(t, (&VectorToSlice{}).Apply(cfg, nil))

	p := NewPrinter(cfg)
	instrs := cfg.Blocks[0].Instrs
	assert.Equal(t, `ty:slice bytes1 %a = (alloc slice bytes1 len uint32 3 hex"616263")`, p.InstrString(instrs[0]))
	assert.Equal(t, "ty:bytes1 %b = (subscript slice bytes1 %a[uint32 1])", p.InstrString(instrs[1]))
	assert.True(t, sema.TypesEqual(sliceOfBytes, cfg.Vars.Lookup(0).Ty))

	assert.False(t, (&VectorToSlice{}).Apply(cfg, nil), "second run changes nothing")
}

func TestWrittenBytesStayVector(t *testing.T) {
	cfg := singleBlock(map[int]sema.Type{0: bytesTy},
		&Set{Res: 0, Expr: constantBytes()},
		&Store{
			Dest: &sema.Subscript{Ty: sema.Ref{Elem: sema.Bytes{N: 1}}, ArrayTy: bytesTy, Array: variable(bytesTy, 0), Index: num(sema.Uint{Bits: 32}, 0)},
			Data: num(sema.Bytes{N: 1}, 0x41),
		},
		&Return{},
	)

	assert.False(t, (&VectorToSlice{}).Apply(cfg, nil))
	assert.True(t, sema.TypesEqual(bytesTy, cfg.Vars.Lookup(0).Ty))
}

func TestWrittenCopyKeepsOriginalVector(t *testing.T) {
	cfg := singleBlock(map[int]sema.Type{0: bytesTy, 1: bytesTy, 2: sema.Bytes{N: 1}},
		&Set{Res: 0, Expr: constantBytes()},
		&Set{Res: 1, Expr: variable(bytesTy, 0)},
		&PushMemory{Res: 2, Ty: sema.Bytes{N: 1}, Array: 1, Value: num(sema.Bytes{N: 1}, 1)},
		&Return{},
	)

	assert.False(t, (&VectorToSlice{}).Apply(cfg, nil))
}

func TestReassignedBytesStayVector(t *testing.T) {
	cfg := singleBlock(map[int]sema.Type{0: bytesTy},
		&Set{Res: 0, Expr: constantBytes()},
		&Set{Res: 0, Expr: constantBytes()},
		&Return{},
	)

	assert.False(t, (&VectorToSlice{}).Apply(cfg, nil))
}

func TestEscapingBytesStayVector(t *testing.T) {
	cfg := singleBlock(map[int]sema.Type{0: bytesTy},
		&Set{Res: 0, Expr: constantBytes()},
		&Call{Call: StaticCall{CfgNo: 1}, Args: []sema.Expression{variable(bytesTy, 0)}},
		&Return{},
	)

	assert.False(t, (&VectorToSlice{}).Apply(cfg, nil))
}

func TestVectorToSliceIdempotent(t *testing.T) {
	cfg := singleBlock(map[int]sema.Type{0: bytesTy, 1: bytesTy, 2: sema.Bytes{N: 1}},
		&Set{Res: 0, Expr: constantBytes()},
		&Set{Res: 1, Expr: constantBytes()},
		&Store{
			Dest: &sema.Subscript{Ty: sema.Ref{Elem: sema.Bytes{N: 1}}, ArrayTy: bytesTy, Array: variable(bytesTy, 1), Index: num(sema.Uint{Bits: 32}, 0)},
			Data: num(sema.Bytes{N: 1}, 0x41),
		},
		&Set{Res: 2, Expr: &sema.Subscript{Ty: sema.Bytes{N: 1}, ArrayTy: bytesTy, Array: variable(bytesTy, 0), Index: num(sema.Uint{Bits: 32}, 2)}},
		&Return{Values: []sema.Expression{variable(sema.Bytes{N: 1}, 2)}},
	)

	require.True(t, (&VectorToSlice{}).Apply(cfg, nil))
	first := PrintCFG(cfg)
	assert.False(t, (&VectorToSlice{}).Apply(cfg, nil))
	assert.Equal(t, first, PrintCFG(cfg))
	assert.True(t, sema.TypesEqual(bytesTy, cfg.Vars.Lookup(1).Ty))
}
