package sema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeStrings(t *testing.T) {
	tests := []struct {
		ty       Type
		expected string
	}{
		{Array{Elem: Uint{Bits: 8}, Dims: []ArrayLength{{Fixed: true, N: 4}, {}}}, "uint8[4][]"},
		{Ref{Elem: DynamicBytes{}}, "bytes memory"},
		{Slice{Elem: Bytes{N: 1}}, "slice bytes1"},
		{Mapping{Key: Address{}, Value: Uint{Bits: 256}}, "mapping(address => uint256)"},
		{InternalFunction{Params: []Type{Bool{}, Int{Bits: 8}}, Returns: []Type{String{}}}, "function(bool,int8) internal returns (string)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.ty.String())
	}
}

func TestTypesEqual(t *testing.T) {
	assert.True(t, TypesEqual(Array{Elem: Bool{}, Dims: []ArrayLength{{}}}, Array{Elem: Bool{}, Dims: []ArrayLength{{}}}))
	assert.False(t, TypesEqual(Int{Bits: 8}, Uint{Bits: 8}))
	assert.False(t, TypesEqual(nil, Bool{}))
	assert.True(t, TypesEqual(nil, nil))
}

func TestArrayDeref(t *testing.T) {
	nested := Array{Elem: Uint{Bits: 8}, Dims: []ArrayLength{{Fixed: true, N: 2}, {}}}
	assert.Equal(t, "uint8[2]", ArrayDeref(nested).String())
	assert.Equal(t, "bytes1", ArrayDeref(Ref{Elem: DynamicBytes{}}).String())
	assert.True(t, IsDynamic(nested))
	assert.False(t, IsDynamic(ArrayDeref(nested)))
}

func TestNamespaceBits(t *testing.T) {
	ns := NewNamespace(Solana)
	ns.Enums = append(ns.Enums, EnumDecl{Name: "State", Ty: Uint{Bits: 16}})

	assert.Equal(t, 256, ns.Bits(Address{}))
	assert.Equal(t, 64, ns.Bits(Value{}))
	assert.Equal(t, 16, ns.Bits(Enum{Name: "State", No: 0}))
	assert.Equal(t, 0, ns.Bits(DynamicBytes{}))
	assert.False(t, ns.IsSigned(Enum{No: 0}))

	target, ok := TargetByName("EVM")
	assert.True(t, ok)
	assert.Equal(t, 20, target.AddressLength)
}
