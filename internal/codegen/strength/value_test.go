package strength

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// partial builds a value from a known mask and pattern
func partial(known, val uint64, bits int) Value {
	return newValue(uint256.NewInt(known), uint256.NewInt(val), uint16(bits))
}

func TestConstantWrapsToWidth(t *testing.T) {
	v := Constant(big.NewInt(-1), 8)
	assert.True(t, v.AllKnown())
	assert.Equal(t, "255", v.UnsignedMax().String())
	assert.Equal(t, "-1", v.Int(true).String())
	assert.Equal(t, "255", v.String())

	assert.Equal(t, Constant(big.NewInt(255), 8), v, "equal sets compare equal")
	assert.Equal(t, "0", Constant(big.NewInt(256), 8).UnsignedMin().String())
}

func TestUnknownBounds(t *testing.T) {
	v := Unknown(8)
	assert.True(t, v.AllUnknown())
	assert.Equal(t, "unknown", v.String())
	assert.Equal(t, "0", v.UnsignedMin().String())
	assert.Equal(t, "255", v.UnsignedMax().String())
	assert.Equal(t, "-128", v.SignedMin().String())
	assert.Equal(t, "127", v.SignedMax().String())

	known, _ := v.Sign()
	assert.False(t, known)

	full := Unknown(256)
	assert.Equal(t, new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1)), full.UnsignedMax())
}

func TestPartialBounds(t *testing.T) {
	// low nibble unknown, high nibble 1000
	v := partial(0xf0, 0x80, 8)
	assert.Equal(t, "128", v.UnsignedMin().String())
	assert.Equal(t, "143", v.UnsignedMax().String())
	assert.Equal(t, "-128", v.SignedMin().String())
	assert.Equal(t, "-113", v.SignedMax().String())

	known, negative := v.Sign()
	assert.True(t, known)
	assert.True(t, negative)

	assert.True(t, v.Contains(big.NewInt(0x8a)))
	assert.True(t, v.Contains(big.NewInt(-120)))
	assert.False(t, v.Contains(big.NewInt(0x90)))
}

func TestValueMaskedToWidth(t *testing.T) {
	v := partial(0xffff, 0x1234, 8)
	assert.Equal(t, uint16(8), v.Bits)
	assert.Equal(t, "52", v.String())

	// unknown bits carry no value
	w := partial(0x0f, 0xff, 8)
	assert.Equal(t, partial(0x0f, 0x0f, 8), w)
}

func TestPowerOfTwo(t *testing.T) {
	k, ok := Constant(big.NewInt(64), 256).IsPowerOfTwo()
	assert.True(t, ok)
	assert.Equal(t, uint(6), k)

	_, ok = Constant(big.NewInt(96), 256).IsPowerOfTwo()
	assert.False(t, ok)
	_, ok = Constant(big.NewInt(0), 256).IsPowerOfTwo()
	assert.False(t, ok)
	_, ok = Unknown(256).IsPowerOfTwo()
	assert.False(t, ok)
}

func TestSetHelpers(t *testing.T) {
	set := NewSet(Constant(big.NewInt(3), 16), Constant(big.NewInt(-2), 16))
	_, ok := SingleConstant(set)
	assert.False(t, ok)

	lo, hi, ok := SignedRange(set)
	require.True(t, ok)
	assert.Equal(t, "-2", lo.String())
	assert.Equal(t, "3", hi.String())

	lo, hi, ok = UnsignedRange(set)
	require.True(t, ok)
	assert.Equal(t, "3", lo.String())
	assert.Equal(t, "65534", hi.String())
	assert.False(t, NonNegative(set))

	c, ok := SingleConstant(NewSet(Constant(big.NewInt(7), 16)))
	assert.True(t, ok)
	assert.Equal(t, "7", c.String())

	_, _, ok = UnsignedRange(NewSet())
	assert.False(t, ok)
}

func TestCollapse(t *testing.T) {
	many := NewSet()
	for i := 0; i <= MaxValues; i++ {
		many.Add(Constant(big.NewInt(int64(i*4)), 32))
	}
	joined := collapse(many, 32)
	require.Equal(t, 1, joined.Cardinality())
	j := joined.ToSlice()[0]
	assert.Equal(t, uint16(2), j.trailingZeros(), "multiples of four stay multiples of four")
	assert.True(t, j.Contains(big.NewInt(400)))

	assert.Equal(t, NewSet(Unknown(32)), collapse(NewSet(), 32))
	assert.Equal(t, NewSet(Unknown(32)), collapse(NewSet(Constant(big.NewInt(1), 8)), 32))
}
