package strength

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"kiln/internal/sema"
)

func TestAddKnownBits(t *testing.T) {
	// x0 + 1 with the low bit of x known clear sets the low bit and knows
	// nothing else about the carry
	l := partial(0x01, 0x00, 8)
	r := constantOf(uint256.NewInt(1), 8)
	sum := add(l, r)
	assert.True(t, bit(&sum.Known, 0))
	assert.True(t, bit(&sum.Val, 0))
	assert.False(t, bit(&sum.Known, 1))

	assert.Equal(t, "0", add(Constant(big.NewInt(255), 8), Constant(big.NewInt(1), 8)).String())
	assert.Equal(t, "255", sub(Constant(big.NewInt(0), 8), Constant(big.NewInt(1), 8)).String())
	assert.Equal(t, "251", negate(Constant(big.NewInt(5), 8)).String())
}

func TestMulTrailingZeros(t *testing.T) {
	// multiples of 4 times multiples of 2 are multiples of 8
	l := partial(0x03, 0x00, 16)
	r := partial(0x01, 0x00, 16)
	assert.Equal(t, uint16(3), mul(l, r).trailingZeros())

	// 15 * 15 fits in eight bits
	small := partial(0xfff0, 0, 16)
	assert.Equal(t, "255", mul(small, small).UnsignedMax().String())
}

func TestShifts(t *testing.T) {
	v := partial(0xf0, 0xa0, 8)
	assert.Equal(t, "unknown", shl(v, Unknown(8)).String())

	left := shl(v, Constant(big.NewInt(2), 8))
	assert.Equal(t, uint16(2), left.trailingZeros())
	assert.Equal(t, "0", shl(v, Constant(big.NewInt(300), 8)).String())

	right := shr(v, Constant(big.NewInt(4), 8), false)
	assert.Equal(t, "10", right.String())

	arith := shr(v, Constant(big.NewInt(4), 8), true)
	assert.Equal(t, "250", arith.String())
}

func TestCompareRanges(t *testing.T) {
	small := partial(0xf0, 0x00, 8)
	assert.Equal(t, Bool(true), compare(sema.Less, small, Constant(big.NewInt(16), 8), false))
	assert.Equal(t, Bool(false), compare(sema.More, small, Constant(big.NewInt(15), 8), false))
	assert.Equal(t, Unknown(1), compare(sema.Less, small, Constant(big.NewInt(8), 8), false))

	assert.Equal(t, Bool(false), compare(sema.Equal, small, Constant(big.NewInt(16), 8), false))
	assert.Equal(t, Bool(true), compare(sema.NotEqual, small, Constant(big.NewInt(16), 8), false))
	assert.Equal(t, Unknown(1), compare(sema.Equal, small, Constant(big.NewInt(3), 8), false))

	negative := partial(0x80, 0x80, 8)
	assert.Equal(t, Bool(true), compare(sema.Less, negative, Constant(big.NewInt(0), 8), true))
	assert.Equal(t, Bool(false), compare(sema.Less, negative, Constant(big.NewInt(0), 8), false))
}

func TestExtensions(t *testing.T) {
	negative := partial(0x80, 0x80, 8)
	assert.Equal(t, "-128", sext(negative, 16).SignedMin().String())
	assert.Equal(t, "65535", sext(negative, 16).UnsignedMax().String())
	assert.Equal(t, "255", zext(negative, 16).UnsignedMax().String())
	assert.Equal(t, "unknown", trunc(negative, 4).String())
}

func TestJoin(t *testing.T) {
	j := join(Constant(big.NewInt(4), 8), Constant(big.NewInt(6), 8))
	assert.True(t, j.Contains(big.NewInt(4)))
	assert.True(t, j.Contains(big.NewInt(6)))
	assert.False(t, j.Contains(big.NewInt(5)))
	assert.Equal(t, "6", j.UnsignedMax().String())
}

// The transfer functions are checked against big.Int arithmetic: every
// concrete result of concrete members of the operands must be a member of
// the abstract result.

var widths = []uint16{8, 16, 64, 128, 256}

func randomWord(rng *rand.Rand) uint256.Int {
	return uint256.Int{rng.Uint64(), rng.Uint64(), rng.Uint64(), rng.Uint64()}
}

// randomValue picks a known mask shaped like the values the analysis meets
func randomValue(rng *rand.Rand, bits uint16) Value {
	var known uint256.Int
	switch rng.Intn(6) {
	case 0:
	case 1:
		known = randomWord(rng)
	case 2:
		a, b := randomWord(rng), randomWord(rng)
		known.Or(&a, &b)
	case 3:
		known = mask(bits)
	case 4:
		// a small integer
		m := mask(bits)
		low := mask(uint16(rng.Intn(int(bits) + 1)))
		known = andNot(&m, &low)
	case 5:
		// a multiple of a power of two
		known = mask(uint16(rng.Intn(int(bits) + 1)))
	}
	val := randomWord(rng)
	// lean towards non-negative members
	if rng.Intn(4) == 0 {
		clearBit(&val, bits-1)
	}
	return newValue(&known, &val, bits)
}

// member picks a concrete integer of v
func member(rng *rand.Rand, v Value) *big.Int {
	free := randomWord(rng)
	u := andNot(&free, &v.Known)
	u.Or(&u, &v.Val)
	m := mask(v.Bits)
	u.And(&u, &m)
	return u.ToBig()
}

func modulus(bits uint16) *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), uint(bits))
}

func wrap(x *big.Int, bits uint16) *big.Int {
	return new(big.Int).Mod(x, modulus(bits))
}

func toSigned(x *big.Int, bits uint16) *big.Int {
	if x.Bit(int(bits)-1) == 1 {
		return new(big.Int).Sub(x, modulus(bits))
	}
	return new(big.Int).Set(x)
}

func boolInt(b bool) *big.Int {
	if b {
		return big.NewInt(1)
	}
	return big.NewInt(0)
}

type concreteOp func(x, y *big.Int, bits uint16) (*big.Int, bool)

var binaryOps = map[string]struct {
	abstract func(l, r Value) Value
	concrete concreteOp
}{
	"add": {add, func(x, y *big.Int, bits uint16) (*big.Int, bool) {
		return new(big.Int).Add(x, y), true
	}},
	"sub": {sub, func(x, y *big.Int, bits uint16) (*big.Int, bool) {
		return new(big.Int).Sub(x, y), true
	}},
	"mul": {mul, func(x, y *big.Int, bits uint16) (*big.Int, bool) {
		return new(big.Int).Mul(x, y), true
	}},
	"and": {and, func(x, y *big.Int, bits uint16) (*big.Int, bool) {
		return new(big.Int).And(x, y), true
	}},
	"or": {or, func(x, y *big.Int, bits uint16) (*big.Int, bool) {
		return new(big.Int).Or(x, y), true
	}},
	"xor": {xor, func(x, y *big.Int, bits uint16) (*big.Int, bool) {
		return new(big.Int).Xor(x, y), true
	}},
	"udiv": {udiv, func(x, y *big.Int, bits uint16) (*big.Int, bool) {
		if y.Sign() == 0 {
			return nil, false
		}
		return new(big.Int).Quo(x, y), true
	}},
	"urem": {urem, func(x, y *big.Int, bits uint16) (*big.Int, bool) {
		if y.Sign() == 0 {
			return nil, false
		}
		return new(big.Int).Rem(x, y), true
	}},
	"sdiv": {sdiv, func(x, y *big.Int, bits uint16) (*big.Int, bool) {
		if y.Sign() == 0 {
			return nil, false
		}
		return new(big.Int).Quo(toSigned(x, bits), toSigned(y, bits)), true
	}},
	"srem": {srem, func(x, y *big.Int, bits uint16) (*big.Int, bool) {
		if y.Sign() == 0 {
			return nil, false
		}
		return new(big.Int).Rem(toSigned(x, bits), toSigned(y, bits)), true
	}},
	"join": {join, func(x, y *big.Int, bits uint16) (*big.Int, bool) {
		return x, true
	}},
}

func TestBinaryTransferSoundness(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for name, op := range binaryOps {
		for _, bits := range widths {
			for trial := 0; trial < 300; trial++ {
				l, r := randomValue(rng, bits), randomValue(rng, bits)
				result := op.abstract(l, r)
				require.Equal(t, bits, result.Bits)
				for sample := 0; sample < 8; sample++ {
					x, y := member(rng, l), member(rng, r)
					want, defined := op.concrete(x, y, bits)
					if !defined {
						continue
					}
					if !result.Contains(wrap(want, bits)) {
						t.Fatalf("%s/%d: %s of %s and %s gives %s, not in %s (l=%s r=%s)",
							name, bits, name, x, y, wrap(want, bits), result, l, r)
					}
				}
			}
		}
	}
}

func TestShiftTransferSoundness(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for _, bits := range widths {
		for trial := 0; trial < 300; trial++ {
			l := randomValue(rng, bits)
			amount := uint(rng.Intn(int(bits) + 4))
			r := constantOf(uint256.NewInt(uint64(amount)), bits)

			left, logical, arith := shl(l, r), shr(l, r, false), shr(l, r, true)
			for sample := 0; sample < 8; sample++ {
				x := member(rng, l)
				assert.True(t, left.Contains(wrap(new(big.Int).Lsh(x, amount), bits)), "shl %s by %d", x, amount)
				assert.True(t, logical.Contains(new(big.Int).Rsh(x, amount)), "shr %s by %d", x, amount)
				assert.True(t, arith.Contains(new(big.Int).Rsh(toSigned(x, bits), amount)), "sar %s by %d", x, amount)
			}
		}
	}
}

func TestUnaryTransferSoundness(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	for _, bits := range widths {
		for trial := 0; trial < 300; trial++ {
			v := randomValue(rng, bits)
			inverted, negated := not(v), negate(v)
			to := widths[rng.Intn(len(widths))]
			zero, sign, cut := zext(v, to), sext(v, to), trunc(v, to)
			for sample := 0; sample < 8; sample++ {
				x := member(rng, v)
				assert.True(t, inverted.Contains(new(big.Int).Not(x)), "not %s", x)
				assert.True(t, negated.Contains(new(big.Int).Neg(x)), "negate %s", x)
				assert.True(t, zero.Contains(x), "zext %s to %d", x, to)
				assert.True(t, sign.Contains(toSigned(x, bits)), "sext %s to %d", x, to)
				assert.True(t, cut.Contains(x), "trunc %s to %d", x, to)
			}
		}
	}
}

func TestCompareTransferSoundness(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	ops := []sema.BinaryOp{sema.Equal, sema.NotEqual, sema.Less, sema.LessEqual, sema.More, sema.MoreEqual}
	for _, bits := range widths {
		for trial := 0; trial < 300; trial++ {
			l, r := randomValue(rng, bits), randomValue(rng, bits)
			if rng.Intn(3) == 0 {
				r = l
			}
			op := ops[rng.Intn(len(ops))]
			signed := rng.Intn(2) == 0
			result := compare(op, l, r, signed)
			for sample := 0; sample < 8; sample++ {
				x, y := member(rng, l), member(rng, r)
				if signed {
					x, y = toSigned(x, bits), toSigned(y, bits)
				}
				c := x.Cmp(y)
				var want bool
				switch op {
				case sema.Equal:
					want = c == 0
				case sema.NotEqual:
					want = c != 0
				case sema.Less:
					want = c < 0
				case sema.LessEqual:
					want = c <= 0
				case sema.More:
					want = c > 0
				case sema.MoreEqual:
					want = c >= 0
				}
				assert.True(t, result.Contains(boolInt(want)), "%s %v %s signed=%t", x, op, y, signed)
			}
		}
	}
}

func TestPowTransfer(t *testing.T) {
	assert.Equal(t, "1", pow(Unknown(64), Constant(big.NewInt(0), 64)).String())
	assert.Equal(t, "1024", pow(Constant(big.NewInt(2), 64), Constant(big.NewInt(10), 64)).String())
	assert.Equal(t, "0", pow(Constant(big.NewInt(2), 8), Constant(big.NewInt(8), 8)).String())
	assert.Equal(t, "unknown", pow(Unknown(64), Constant(big.NewInt(3), 64)).String())
}
