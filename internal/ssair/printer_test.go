package ssair

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"kiln/internal/sema"
)

func printerVars() *Vartable {
	vars := NewVartable(0)
	vars.Add(0, Int{Bits: 32}, sema.Int{Bits: 32}, "x")
	vars.Add(1, Ptr{Elem: Struct{No: 0}}, sema.Struct{No: 0, Name: "S"}, "s")
	vars.Add(2, Ptr{Elem: byteVector}, sema.String{}, "msg")
	vars.NewTemp(Bool{}, sema.Bool{})
	return vars
}

func number(v int64, ty Type) *NumberLiteral {
	return &NumberLiteral{Value: big.NewInt(v), Ty: ty}
}

func TestExprString(t *testing.T) {
	p := NewPrinter(printerVars())
	x := &Id{ID: 0}

	tests := []struct {
		expr     Expression
		expected string
	}{
		{&OperandExpr{Operand: &BoolLiteral{Value: false}}, "false"},
		{&BinaryExpr{Operator: SubOverflowing, Left: x, Right: number(-3, Int{Bits: 32})}, "int32(%x) (of)- int32(-3)"},
		{&UnaryExpr{Operator: NegOverflowing, Operand: x}, "(of)-int32(%x)"},
		{&BytesLiteral{Ty: Bytes{N: 2}, Value: []byte{0x0f, 0xa0}}, `bytes2 hex"0f_a0"`},
		{&AllocDynamicBytes{Ty: Ptr{Elem: byteVector}, Size: number(4, Uint{Bits: 32})}, "alloc ptr<struct.vector<uint8>>[uint32(4)]"},
		{&Load{Operand: &Id{ID: 1}}, "*ptr<struct.0>(%s)"},
		{&StructMember{Operand: &Id{ID: 1}, Member: 2}, "access ptr<struct.0>(%s) member 2"},
		{&FunctionArg{Ty: Int{Bits: 32}, ArgNo: 1}, "int32(arg#1)"},
		{&Builtin{Kind: sema.Keccak256, Args: []Operand{&Id{ID: 2}}}, "builtin: keccak256(ptr<struct.vector<uint8>>(%msg))"},
		{&Undefined{Ty: Ptr{Elem: Struct{No: 0}}}, "undef ptr<struct.0>"},
		{&Cast{Operand: x, To: Uint{Bits: 32}}, "(cast int32(%x) to uint32)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, p.ExprString(tt.expr))
		})
	}
}

func TestInstrString(t *testing.T) {
	p := NewPrinter(printerVars())
	x := &Id{ID: 0}
	temp := &Id{ID: 3}

	tests := []struct {
		instr    Instruction
		expected string
	}{
		{&Nop{}, "nop;"},
		{&Set{Res: 3, Expr: &BinaryExpr{Operator: Gte, Left: x, Right: number(0, Int{Bits: 32})}}, "bool %temp.ssa_ir.3 = int32(%x) >= int32(0);"},
		{&Store{Dest: &Id{ID: 1}, Data: x}, "store int32(%x) to ptr<struct.0>(%s);"},
		{&Print{Message: StringLocation{RunTime: &Id{ID: 2}}}, "print ptr<struct.vector<uint8>>(%msg);"},
		{&Print{Message: StringLocation{CompileTime: []byte(`say "hi"`)}}, `print "say \"hi\"";`},
		{&AssertFailure{EncodedArgs: &Id{ID: 2}}, "assert_failure ptr<struct.vector<uint8>>(%msg);"},
		{&Call{Res: []int{0, 3}, Call: StaticCall{CfgNo: 7}}, "int32 %x, bool %temp.ssa_ir.3 = call function#7();"},
		{&BranchCond{Cond: temp, True: 1, False: 2}, "cbr bool(%temp.ssa_ir.3) block#1 else block#2;"},
		{&Branch{Block: 4}, "br block#4;"},
		{&Return{Values: []Operand{x, &BoolLiteral{Value: true}}}, "return int32(%x), true;"},
		{&Unreachable{}, "unreachable;"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, p.InstrString(tt.instr))
		})
	}
}

func TestStructTypeNames(t *testing.T) {
	assert.Equal(t, "struct.AccountInfo", Struct{Kind: StructAccountInfo}.String())
	assert.Equal(t, "struct.AccountMeta", Struct{Kind: StructAccountMeta}.String())
	assert.Equal(t, "struct.vector<bytes32>", Struct{Kind: StructVector, Elem: Bytes{N: 32}}.String())
	assert.Equal(t, "ptr<struct.3>", Ptr{Elem: Struct{No: 3}}.String())
}

func TestVartableTemps(t *testing.T) {
	vars := NewVartable(5)
	vars.Add(9, Bool{}, sema.Bool{}, "flag")
	tmp := vars.NewTemp(Int{Bits: 8}, sema.Int{Bits: 8})
	assert.Equal(t, 10, tmp.ID, "temporaries start after the highest known id")

	name, err := vars.Name(tmp.ID)
	assert.NoError(t, err)
	assert.Equal(t, "temp.ssa_ir.10", name)

	_, err = vars.Type(42)
	assert.Error(t, err)
	assert.Equal(t, []int{9, 10}, vars.IDs())
}
