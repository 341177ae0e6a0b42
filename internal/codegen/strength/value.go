package strength

import (
	"fmt"
	"math/big"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/holiman/uint256"
)

// MaxValues bounds the number of values kept for one variable or
// expression. A variable with more is unknown; an expression with more is
// the join of its values.
const MaxValues = 100

// Value is the set of integers of width Bits that agree with Val on every
// bit set in Known. Known and Val are zero above Bits, and Val is zero
// wherever a bit is unknown, so two Values are equal exactly when they
// describe the same set.
type Value struct {
	Known uint256.Int
	Val   uint256.Int
	Bits  uint16
}

// mask returns the word with the low bits set
func mask(bits uint16) uint256.Int {
	var m uint256.Int
	if bits >= 256 {
		m.Not(&m)
		return m
	}
	m.Lsh(uint256.NewInt(1), uint(bits))
	m.Sub(&m, uint256.NewInt(1))
	return m
}

func newValue(known, val *uint256.Int, bits uint16) Value {
	m := mask(bits)
	v := Value{Bits: bits}
	v.Known.And(known, &m)
	v.Val.And(val, &v.Known)
	return v
}

func bit(x *uint256.Int, i uint16) bool {
	return x[i/64]>>(i%64)&1 == 1
}

func setBit(x *uint256.Int, i uint16) {
	x[i/64] |= 1 << (i % 64)
}

func clearBit(x *uint256.Int, i uint16) {
	x[i/64] &^= 1 << (i % 64)
}

// andNot returns x with the bits of y cleared
func andNot(x, y *uint256.Int) uint256.Int {
	var r uint256.Int
	r.Not(y)
	r.And(&r, x)
	return r
}

// Unknown is the full range of a bits wide integer
func Unknown(bits int) Value {
	return Value{Bits: uint16(bits)}
}

// Constant is the single integer v, wrapped to bits
func Constant(v *big.Int, bits int) Value {
	var u uint256.Int
	u.SetFromBig(v)
	return constantOf(&u, uint16(bits))
}

func constantOf(u *uint256.Int, bits uint16) Value {
	m := mask(bits)
	return newValue(&m, u, bits)
}

// Bool is a known boolean
func Bool(b bool) Value {
	var u uint256.Int
	if b {
		u.SetOne()
	}
	return constantOf(&u, 1)
}

// AllKnown reports whether v is a single integer
func (v Value) AllKnown() bool {
	m := mask(v.Bits)
	return v.Known.Eq(&m)
}

// AllUnknown reports whether no bit of v is known
func (v Value) AllUnknown() bool {
	return v.Known.IsZero()
}

func (v Value) umax() uint256.Int {
	m := mask(v.Bits)
	u := andNot(&m, &v.Known)
	u.Or(&u, &v.Val)
	return u
}

// knownZeros returns the bits known to be clear
func (v Value) knownZeros() uint256.Int {
	return andNot(&v.Known, &v.Val)
}

// UnsignedMin is the smallest member read as unsigned
func (v Value) UnsignedMin() *big.Int {
	return v.Val.ToBig()
}

// UnsignedMax is the largest member read as unsigned
func (v Value) UnsignedMax() *big.Int {
	u := v.umax()
	return u.ToBig()
}

// Sign reports whether the sign bit is known and, if so, whether it is set
func (v Value) Sign() (known, negative bool) {
	if v.Bits == 0 {
		return false, false
	}
	top := v.Bits - 1
	return bit(&v.Known, top), bit(&v.Val, top)
}

// SignedMin is the smallest member read as two's complement
func (v Value) SignedMin() *big.Int {
	u := v.Val
	if known, _ := v.Sign(); !known && v.Bits > 0 {
		setBit(&u, v.Bits-1)
	}
	return signedOf(&u, v.Bits)
}

// SignedMax is the largest member read as two's complement
func (v Value) SignedMax() *big.Int {
	u := v.umax()
	if known, _ := v.Sign(); !known && v.Bits > 0 {
		clearBit(&u, v.Bits-1)
	}
	return signedOf(&u, v.Bits)
}

func signedOf(u *uint256.Int, bits uint16) *big.Int {
	b := u.ToBig()
	if bits > 0 && bit(u, bits-1) {
		b.Sub(b, new(big.Int).Lsh(big.NewInt(1), uint(bits)))
	}
	return b
}

// Int returns the member of a fully known v
func (v Value) Int(signed bool) *big.Int {
	if signed {
		return signedOf(&v.Val, v.Bits)
	}
	return v.Val.ToBig()
}

// Contains reports whether x, wrapped to the width of v, is a member
func (v Value) Contains(x *big.Int) bool {
	var u uint256.Int
	u.SetFromBig(x)
	m := mask(v.Bits)
	u.And(&u, &m)
	u.And(&u, &v.Known)
	return u.Eq(&v.Val)
}

// IsPowerOfTwo returns k when v is the single integer 2^k
func (v Value) IsPowerOfTwo() (uint, bool) {
	if !v.AllKnown() || v.Val.IsZero() {
		return 0, false
	}
	var less uint256.Int
	less.Sub(&v.Val, uint256.NewInt(1))
	less.And(&less, &v.Val)
	if !less.IsZero() {
		return 0, false
	}
	return uint(v.Val.BitLen() - 1), true
}

func (v Value) String() string {
	switch {
	case v.AllKnown():
		return v.Val.ToBig().String()
	case v.AllUnknown():
		return "unknown"
	}
	return fmt.Sprintf("%s known:%s", v.Val.Hex(), v.Known.Hex())
}

// Set holds the values an operand may take
type Set = mapset.Set[Value]

// NewSet returns a set of the given values
func NewSet(vs ...Value) Set {
	return mapset.NewThreadUnsafeSet(vs...)
}

// collapse bounds a set of bits wide values. An empty set, or one holding
// an unknown value or a value of another width, becomes a single unknown
// value; an oversized set becomes the join of its members.
func collapse(set Set, bits uint16) Set {
	if set.Cardinality() == 0 {
		return NewSet(Unknown(int(bits)))
	}
	members := set.ToSlice()
	for _, v := range members {
		if v.Bits != bits || v.AllUnknown() {
			return NewSet(Unknown(int(bits)))
		}
	}
	if len(members) <= MaxValues {
		return set
	}
	j := members[0]
	for _, v := range members[1:] {
		j = join(j, v)
	}
	return NewSet(j)
}

// SingleConstant returns the member of a set holding exactly one fully
// known value
func SingleConstant(set Set) (Value, bool) {
	if set == nil || set.Cardinality() != 1 {
		return Value{}, false
	}
	v := set.ToSlice()[0]
	return v, v.AllKnown()
}

// UnsignedRange returns the smallest and largest unsigned member of any
// value in set
func UnsignedRange(set Set) (lo, hi *big.Int, ok bool) {
	for _, v := range set.ToSlice() {
		vlo, vhi := v.UnsignedMin(), v.UnsignedMax()
		if lo == nil || vlo.Cmp(lo) < 0 {
			lo = vlo
		}
		if hi == nil || vhi.Cmp(hi) > 0 {
			hi = vhi
		}
	}
	return lo, hi, lo != nil
}

// SignedRange returns the smallest and largest signed member of any value
// in set
func SignedRange(set Set) (lo, hi *big.Int, ok bool) {
	for _, v := range set.ToSlice() {
		vlo, vhi := v.SignedMin(), v.SignedMax()
		if lo == nil || vlo.Cmp(lo) < 0 {
			lo = vlo
		}
		if hi == nil || vhi.Cmp(hi) > 0 {
			hi = vhi
		}
	}
	return lo, hi, lo != nil
}

// NonNegative reports whether every value of a non-empty set has a known
// clear sign bit
func NonNegative(set Set) bool {
	if set.Cardinality() == 0 {
		return false
	}
	for _, v := range set.ToSlice() {
		if known, negative := v.Sign(); !known || negative {
			return false
		}
	}
	return true
}
