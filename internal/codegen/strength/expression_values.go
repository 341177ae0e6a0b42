package strength

import (
	"kiln/internal/sema"
)

// Variables maps variable numbers to the values they may hold. A variable
// that is missing may hold anything.
type Variables map[int]Set

func (vars Variables) clone() Variables {
	out := make(Variables, len(vars))
	for k, v := range vars {
		out[k] = v.Clone()
	}
	return out
}

type analysis struct {
	ns *sema.Namespace
}

// width returns the bit width of a tracked type. Integers, bools and value
// amounts are tracked, as are enums and user types over them.
func (a *analysis) width(ty sema.Type) (uint16, bool) {
	switch a.ns.Unwrap(ty).(type) {
	case sema.Int, sema.Uint, sema.Bool, sema.Value:
		bits := a.ns.Bits(ty)
		return uint16(bits), bits > 0 && bits <= 256
	}
	return 0, false
}

// values returns the values e may evaluate to under vars. The set is empty
// when the type of e is not tracked.
func (a *analysis) values(e sema.Expression, vars Variables) Set {
	bits, tracked := a.width(e.Type())
	if !tracked {
		return NewSet()
	}
	return collapse(a.eval(e, bits, vars), bits)
}

func (a *analysis) eval(e sema.Expression, bits uint16, vars Variables) Set {
	switch n := e.(type) {
	case *sema.NumberLiteral:
		return NewSet(Constant(n.Value, int(bits)))
	case *sema.BoolLiteral:
		return NewSet(Bool(n.Value))
	case *sema.Variable:
		if set, ok := vars[n.VarNo]; ok {
			return set.Clone()
		}
	case *sema.Binary:
		return a.binary(n, bits, vars)
	case *sema.Unary:
		operand := a.values(n.Expr, vars)
		switch n.Op {
		case sema.Not, sema.BitwiseNot:
			return mapValues(operand, not)
		case sema.Negate:
			return mapValues(operand, negate)
		}
	case *sema.Cast:
		return a.cast(n, bits, vars)
	case *sema.Ternary:
		cond := a.values(n.Cond, vars)
		if c, ok := SingleConstant(cond); ok {
			if c.Val.IsZero() {
				return a.values(n.Right, vars)
			}
			return a.values(n.Left, vars)
		}
		return a.values(n.Left, vars).Union(a.values(n.Right, vars))
	}
	return NewSet(Unknown(int(bits)))
}

func (a *analysis) binary(n *sema.Binary, bits uint16, vars Variables) Set {
	l := a.values(n.Left, vars)
	r := a.values(n.Right, vars)

	if n.Op.IsComparison() {
		return product(l, r, func(x, y Value) Value {
			return compare(n.Op, x, y, n.Signed)
		})
	}

	var fn func(x, y Value) Value
	switch n.Op {
	case sema.Add:
		fn = add
	case sema.Subtract:
		fn = sub
	case sema.Multiply:
		fn = mul
	case sema.Power:
		fn = pow
	case sema.UnsignedDivide:
		fn = udiv
	case sema.UnsignedModulo:
		fn = urem
	case sema.SignedDivide:
		fn = sdiv
	case sema.SignedModulo:
		fn = srem
	case sema.BitwiseAnd, sema.And:
		fn = and
	case sema.BitwiseOr, sema.Or:
		fn = or
	case sema.BitwiseXor:
		fn = xor
	case sema.ShiftLeft:
		// the shift amount may be of another width
		return product(l, r, func(x, y Value) Value {
			if x.Bits != bits {
				return Unknown(int(bits))
			}
			return shl(x, y)
		})
	case sema.ShiftRight:
		return product(l, r, func(x, y Value) Value {
			if x.Bits != bits {
				return Unknown(int(bits))
			}
			return shr(x, y, n.Signed)
		})
	default:
		return NewSet(Unknown(int(bits)))
	}

	return product(l, r, func(x, y Value) Value {
		if x.Bits != bits || y.Bits != bits {
			return Unknown(int(bits))
		}
		return fn(x, y)
	})
}

func (a *analysis) cast(n *sema.Cast, bits uint16, vars Variables) Set {
	from := a.values(n.Expr, vars)
	switch n.Kind {
	case sema.ZeroExt:
		return mapValues(from, func(v Value) Value { return zext(v, bits) })
	case sema.SignExt:
		return mapValues(from, func(v Value) Value { return sext(v, bits) })
	case sema.Trunc:
		return mapValues(from, func(v Value) Value { return trunc(v, bits) })
	case sema.PlainCast:
		// a cast between types of one width keeps the bit pattern
		return mapValues(from, func(v Value) Value {
			if v.Bits != bits {
				return Unknown(int(bits))
			}
			return v
		})
	}
	return NewSet(Unknown(int(bits)))
}

func product(l, r Set, fn func(x, y Value) Value) Set {
	out := NewSet()
	rs := r.ToSlice()
	for _, x := range l.ToSlice() {
		for _, y := range rs {
			out.Add(fn(x, y))
		}
	}
	return out
}

func mapValues(set Set, fn func(Value) Value) Set {
	out := NewSet()
	for _, v := range set.ToSlice() {
		out.Add(fn(v))
	}
	return out
}
