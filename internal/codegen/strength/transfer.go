package strength

import (
	"math/big"

	"github.com/holiman/uint256"
	"kiln/internal/sema"
)

// Transfer functions over single values. Each result is sound: a bit is
// only known when every combination of members of the operands gives it
// the same value.

func and(l, r Value) Value {
	var known uint256.Int
	known.And(&l.Known, &r.Known)
	lz, rz := l.knownZeros(), r.knownZeros()
	known.Or(&known, &lz)
	known.Or(&known, &rz)
	var val uint256.Int
	val.And(&l.Val, &r.Val)
	return newValue(&known, &val, l.Bits)
}

func or(l, r Value) Value {
	var known, val uint256.Int
	known.And(&l.Known, &r.Known)
	known.Or(&known, &l.Val)
	known.Or(&known, &r.Val)
	val.Or(&l.Val, &r.Val)
	return newValue(&known, &val, l.Bits)
}

func xor(l, r Value) Value {
	var known, val uint256.Int
	known.And(&l.Known, &r.Known)
	val.Xor(&l.Val, &r.Val)
	return newValue(&known, &val, l.Bits)
}

func not(v Value) Value {
	var val uint256.Int
	val.Not(&v.Val)
	return newValue(&v.Known, &val, v.Bits)
}

// addCarry adds two values and a known carry in. The sums with every
// unknown bit set and with every unknown bit clear give the largest and
// smallest carry into each position; where these agree and both operand
// bits are known, the result bit is known.
func addCarry(l, r Value, carry bool) Value {
	lmax, rmax := l.umax(), r.umax()
	var sumMax, sumMin uint256.Int
	sumMax.Add(&lmax, &rmax)
	sumMin.Add(&l.Val, &r.Val)
	if carry {
		one := uint256.NewInt(1)
		sumMax.Add(&sumMax, one)
		sumMin.Add(&sumMin, one)
	}

	lz, rz := l.knownZeros(), r.knownZeros()
	var carryZero, carryOne uint256.Int
	carryZero.Xor(&sumMax, &lz)
	carryZero.Xor(&carryZero, &rz)
	carryZero.Not(&carryZero)
	carryOne.Xor(&sumMin, &l.Val)
	carryOne.Xor(&carryOne, &r.Val)

	var known uint256.Int
	known.Or(&carryZero, &carryOne)
	known.And(&known, &l.Known)
	known.And(&known, &r.Known)
	return newValue(&known, &sumMin, l.Bits)
}

func add(l, r Value) Value {
	return addCarry(l, r, false)
}

// sub computes l + ^r + 1
func sub(l, r Value) Value {
	return addCarry(l, not(r), true)
}

func negate(v Value) Value {
	return sub(constantOf(new(uint256.Int), v.Bits), v)
}

// knownLow returns how many of the lowest bits are known
func (v Value) knownLow() uint16 {
	var n uint16
	for n < v.Bits && bit(&v.Known, n) {
		n++
	}
	return n
}

// trailingZeros returns how many of the lowest bits are known to be clear
func (v Value) trailingZeros() uint16 {
	var n uint16
	for n < v.Bits && bit(&v.Known, n) && !bit(&v.Val, n) {
		n++
	}
	return n
}

// upTo is every integer from zero to bound
func upTo(bound *big.Int, bits uint16) Value {
	return fromRange(new(big.Int), bound, bits)
}

// fromRange is the smallest value holding every integer from lo to hi.
// The bit patterns of a range that does not cross zero are ordered, so all
// members share the bits above the highest bit in which lo and hi differ.
func fromRange(lo, hi *big.Int, bits uint16) Value {
	if lo.Sign() < 0 && hi.Sign() >= 0 {
		return Unknown(int(bits))
	}
	var l, h, diff uint256.Int
	l.SetFromBig(lo)
	h.SetFromBig(hi)
	m := mask(bits)
	l.And(&l, &m)
	h.And(&h, &m)
	diff.Xor(&l, &h)
	low := mask(uint16(diff.BitLen()))
	known := andNot(&m, &low)
	return newValue(&known, &l, bits)
}

func mul(l, r Value) Value {
	bits := l.Bits
	var prod uint256.Int
	prod.Mul(&l.Val, &r.Val)
	if l.AllKnown() && r.AllKnown() {
		return constantOf(&prod, bits)
	}

	// the low bits of a product depend only on the low bits of its operands
	low := min(l.knownLow(), r.knownLow())
	known := mask(low)
	tz := min(uint(l.trailingZeros())+uint(r.trailingZeros()), uint(bits))
	zeros := mask(uint16(tz))
	known.Or(&known, &zeros)
	lowBits := mask(low)
	prod.And(&prod, &lowBits)

	// a product of bit patterns that cannot wrap leaves the high bits clear
	hi := new(big.Int).Mul(l.UnsignedMax(), r.UnsignedMax())
	if hi.BitLen() <= int(bits) {
		m := mask(bits)
		below := mask(uint16(hi.BitLen()))
		high := andNot(&m, &below)
		known.Or(&known, &high)
	}
	return newValue(&known, &prod, bits)
}

func udiv(l, r Value) Value {
	bits := l.Bits
	if l.AllKnown() && r.AllKnown() {
		if r.Val.IsZero() {
			return Unknown(int(bits))
		}
		var q uint256.Int
		q.Div(&l.Val, &r.Val)
		return constantOf(&q, bits)
	}
	if k, ok := r.IsPowerOfTwo(); ok {
		return shiftRight(l, k, false)
	}
	divisor := r.UnsignedMin()
	if divisor.Sign() == 0 {
		divisor.SetInt64(1)
	}
	return upTo(new(big.Int).Quo(l.UnsignedMax(), divisor), bits)
}

func urem(l, r Value) Value {
	bits := l.Bits
	if l.AllKnown() && r.AllKnown() {
		if r.Val.IsZero() {
			return Unknown(int(bits))
		}
		var q uint256.Int
		q.Mod(&l.Val, &r.Val)
		return constantOf(&q, bits)
	}
	if k, ok := r.IsPowerOfTwo(); ok {
		m := mask(uint16(k))
		return and(l, constantOf(&m, bits))
	}
	bound := l.UnsignedMax()
	if rmax := r.UnsignedMax(); rmax.Sign() > 0 {
		rmax.Sub(rmax, big.NewInt(1))
		if rmax.Cmp(bound) < 0 {
			bound = rmax
		}
	}
	return upTo(bound, bits)
}

// magnitude returns the smallest and largest absolute value of the members
// of a value with a known sign
func magnitude(v Value, negative bool) (lo, hi *big.Int) {
	if negative {
		return new(big.Int).Neg(v.SignedMax()), new(big.Int).Neg(v.SignedMin())
	}
	return v.SignedMin(), v.SignedMax()
}

func sdiv(l, r Value) Value {
	bits := l.Bits
	if l.AllKnown() && r.AllKnown() {
		d := r.Int(true)
		if d.Sign() == 0 {
			return Unknown(int(bits))
		}
		return Constant(new(big.Int).Quo(l.Int(true), d), int(bits))
	}
	lknown, lneg := l.Sign()
	rknown, rneg := r.Sign()
	if !lknown || !rknown {
		return Unknown(int(bits))
	}
	_, lhi := magnitude(l, lneg)
	rlo, _ := magnitude(r, rneg)
	if rlo.Sign() == 0 {
		rlo.SetInt64(1)
	}
	q := new(big.Int).Quo(lhi, rlo)
	// the most negative integer divided by minus one wraps
	if q.BitLen() >= int(bits) {
		return Unknown(int(bits))
	}
	if lneg != rneg {
		return fromRange(new(big.Int).Neg(q), new(big.Int), bits)
	}
	return upTo(q, bits)
}

func srem(l, r Value) Value {
	bits := l.Bits
	if l.AllKnown() && r.AllKnown() {
		d := r.Int(true)
		if d.Sign() == 0 {
			return Unknown(int(bits))
		}
		return Constant(new(big.Int).Rem(l.Int(true), d), int(bits))
	}
	lknown, lneg := l.Sign()
	rknown, rneg := r.Sign()
	if !lknown || !rknown {
		return Unknown(int(bits))
	}
	_, bound := magnitude(l, lneg)
	if _, rhi := magnitude(r, rneg); rhi.Sign() > 0 {
		rhi.Sub(rhi, big.NewInt(1))
		if rhi.Cmp(bound) < 0 {
			bound = rhi
		}
	}
	if bound.BitLen() >= int(bits) {
		return Unknown(int(bits))
	}
	// the remainder takes the sign of the dividend
	if lneg {
		return fromRange(new(big.Int).Neg(bound), new(big.Int), bits)
	}
	return upTo(bound, bits)
}

// shiftAmount returns the shift amount of a known value, capped at bits
func shiftAmount(r Value, bits uint16) (uint, bool) {
	if !r.AllKnown() {
		return 0, false
	}
	if !r.Val.IsUint64() || r.Val.Uint64() > uint64(bits) {
		return uint(bits), true
	}
	return uint(r.Val.Uint64()), true
}

func shl(l, r Value) Value {
	bits := l.Bits
	k, ok := shiftAmount(r, bits)
	if !ok {
		return Unknown(int(bits))
	}
	if k >= uint(bits) {
		return constantOf(new(uint256.Int), bits)
	}
	var known, val uint256.Int
	known.Lsh(&l.Known, k)
	filled := mask(uint16(k))
	known.Or(&known, &filled)
	val.Lsh(&l.Val, k)
	return newValue(&known, &val, bits)
}

func shr(l, r Value, signed bool) Value {
	k, ok := shiftAmount(r, l.Bits)
	if !ok {
		return Unknown(int(l.Bits))
	}
	return shiftRight(l, k, signed)
}

// shiftRight shifts by a known amount; arithmetic shifts copy the sign bit
// into the vacated bits when it is known
func shiftRight(l Value, k uint, signed bool) Value {
	bits := l.Bits
	if k > uint(bits) {
		k = uint(bits)
	}
	var known, val uint256.Int
	known.Rsh(&l.Known, k)
	val.Rsh(&l.Val, k)

	m := mask(bits)
	kept := mask(bits - uint16(k))
	vacated := andNot(&m, &kept)
	if !signed {
		known.Or(&known, &vacated)
		return newValue(&known, &val, bits)
	}
	if signKnown, negative := l.Sign(); signKnown {
		known.Or(&known, &vacated)
		if negative {
			val.Or(&val, &vacated)
		}
	}
	return newValue(&known, &val, bits)
}

func pow(l, r Value) Value {
	bits := l.Bits
	if r.AllKnown() && r.Val.IsZero() {
		return constantOf(uint256.NewInt(1), bits)
	}
	if !l.AllKnown() || !r.AllKnown() {
		return Unknown(int(bits))
	}
	modulus := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	return Constant(new(big.Int).Exp(l.Val.ToBig(), r.Val.ToBig(), modulus), int(bits))
}

// compare is the boolean result of a comparison, known when the ranges of
// the operands decide it
func compare(op sema.BinaryOp, l, r Value, signed bool) Value {
	if l.Bits != r.Bits {
		return Unknown(1)
	}
	if op == sema.Equal || op == sema.NotEqual {
		eq := equal(l, r)
		if eq.AllKnown() && op == sema.NotEqual {
			return not(eq)
		}
		return eq
	}

	var lmin, lmax, rmin, rmax *big.Int
	if signed {
		lmin, lmax, rmin, rmax = l.SignedMin(), l.SignedMax(), r.SignedMin(), r.SignedMax()
	} else {
		lmin, lmax, rmin, rmax = l.UnsignedMin(), l.UnsignedMax(), r.UnsignedMin(), r.UnsignedMax()
	}

	var always, never bool
	switch op {
	case sema.Less:
		always, never = lmax.Cmp(rmin) < 0, lmin.Cmp(rmax) >= 0
	case sema.LessEqual:
		always, never = lmax.Cmp(rmin) <= 0, lmin.Cmp(rmax) > 0
	case sema.More:
		always, never = lmin.Cmp(rmax) > 0, lmax.Cmp(rmin) <= 0
	case sema.MoreEqual:
		always, never = lmin.Cmp(rmax) >= 0, lmax.Cmp(rmin) < 0
	}
	switch {
	case always:
		return Bool(true)
	case never:
		return Bool(false)
	}
	return Unknown(1)
}

func equal(l, r Value) Value {
	if l.AllKnown() && r.AllKnown() {
		return Bool(l.Val.Eq(&r.Val))
	}
	// a bit known in both operands with different values
	var both, diff uint256.Int
	both.And(&l.Known, &r.Known)
	diff.Xor(&l.Val, &r.Val)
	diff.And(&diff, &both)
	if !diff.IsZero() {
		return Bool(false)
	}
	return Unknown(1)
}

func zext(v Value, bits uint16) Value {
	if bits < v.Bits {
		return trunc(v, bits)
	}
	m, old := mask(bits), mask(v.Bits)
	high := andNot(&m, &old)
	var known uint256.Int
	known.Or(&v.Known, &high)
	return newValue(&known, &v.Val, bits)
}

func sext(v Value, bits uint16) Value {
	if bits < v.Bits {
		return trunc(v, bits)
	}
	known, val := v.Known, v.Val
	if signKnown, negative := v.Sign(); signKnown {
		m, old := mask(bits), mask(v.Bits)
		high := andNot(&m, &old)
		known.Or(&known, &high)
		if negative {
			val.Or(&val, &high)
		}
	}
	return newValue(&known, &val, bits)
}

func trunc(v Value, bits uint16) Value {
	return newValue(&v.Known, &v.Val, bits)
}

// join is the most precise single value holding every member of a and b
func join(a, b Value) Value {
	var known, diff uint256.Int
	known.And(&a.Known, &b.Known)
	diff.Xor(&a.Val, &b.Val)
	known = andNot(&known, &diff)
	return newValue(&known, &a.Val, a.Bits)
}
