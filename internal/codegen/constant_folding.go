package codegen

import (
	"math/big"

	"github.com/holiman/uint256"
	"kiln/internal/errors"
	"kiln/internal/sema"
)

// ConstantFolding evaluates expressions over literals at compile time and
// propagates literal assignments within a block. A dry run only reports
// diagnostics.
type ConstantFolding struct {
	Dry bool
}

func (cf *ConstantFolding) Name() string {
	return "Constant Folding"
}

func (cf *ConstantFolding) Description() string {
	return "Evaluates constant expressions at compile time and replaces with literals"
}

func (cf *ConstantFolding) Apply(cfg *ControlFlowGraph, ns *sema.Namespace) bool {
	changed := false
	for _, block := range cfg.Blocks {
		if cf.foldBlock(block, ns) {
			changed = true
		}
	}
	return changed
}

func (cf *ConstantFolding) foldBlock(block *BasicBlock, ns *sema.Namespace) bool {
	changed := false
	consts := make(map[int]sema.Expression)
	f := &folder{ns: ns, consts: consts}

	for idx, instr := range block.Instrs {
		var cond sema.Expression
		if bc, ok := instr.(*BranchCond); ok {
			cond = bc.Cond
		}

		if cf.Dry {
			// evaluate for diagnostics and to keep propagation in step
			var folded []sema.Expression
			for _, e := range Exprs(instr) {
				folded = append(folded, f.fold(e))
			}
			if cond != nil {
				f.constantCondition(cond, folded[0])
			}
			if set, ok := instr.(*Set); ok {
				f.record(set.Res, folded[0])
			} else {
				f.forget(Defs(instr))
			}
			continue
		}

		RewriteExprs(instr, func(e sema.Expression) sema.Expression {
			folded := f.fold(e)
			if folded != e {
				changed = true
			}
			return folded
		})

		switch i := instr.(type) {
		case *Set:
			f.record(i.Res, i.Expr)
		case *BranchCond:
			f.constantCondition(cond, i.Cond)
			if lit, ok := i.Cond.(*sema.BoolLiteral); ok {
				target := i.False
				if lit.Value {
					target = i.True
				}
				block.Instrs[idx] = &Branch{Block: target}
				changed = true
			}
		case *Switch:
			if target, ok := switchTarget(i); ok {
				block.Instrs[idx] = &Branch{Block: target}
				changed = true
			}
		default:
			f.forget(Defs(instr))
		}
	}
	return changed
}

// constantCondition warns about a branch condition written as an
// expression that folds to a literal
func (f *folder) constantCondition(before, after sema.Expression) {
	if _, lit := before.(*sema.BoolLiteral); lit || !before.Loc().IsValid() {
		return
	}
	if v, ok := after.(*sema.BoolLiteral); ok {
		f.ns.Diagnostics.Push(errors.ConstantCondition(v.Value, before.Loc()))
	}
}

// switchTarget resolves a switch on a literal whose cases are all literals
func switchTarget(s *Switch) (int, bool) {
	cond, ok := s.Cond.(*sema.NumberLiteral)
	if !ok {
		return 0, false
	}
	for _, c := range s.Cases {
		v, ok := c.Value.(*sema.NumberLiteral)
		if !ok {
			return 0, false
		}
		if v.Value.Cmp(cond.Value) == 0 {
			return c.Block, true
		}
	}
	return s.Default, true
}

// folder folds expressions against the literals known in one block
type folder struct {
	ns     *sema.Namespace
	consts map[int]sema.Expression
}

func (f *folder) record(res int, e sema.Expression) {
	switch e.(type) {
	case *sema.NumberLiteral, *sema.BoolLiteral:
		f.consts[res] = e
	default:
		delete(f.consts, res)
	}
}

func (f *folder) forget(ids []int) {
	for _, id := range ids {
		delete(f.consts, id)
	}
}

func (f *folder) fold(e sema.Expression) sema.Expression {
	return sema.Rewrite(e, f.foldNode)
}

func (f *folder) foldNode(e sema.Expression) sema.Expression {
	switch n := e.(type) {
	case *sema.Variable:
		switch lit := f.consts[n.VarNo].(type) {
		case *sema.NumberLiteral:
			return &sema.NumberLiteral{Pos: n.Pos, Ty: n.Ty, Value: lit.Value}
		case *sema.BoolLiteral:
			return &sema.BoolLiteral{Pos: n.Pos, Value: lit.Value}
		}
	case *sema.Binary:
		return f.binary(n)
	case *sema.Unary:
		return f.unary(n)
	case *sema.Cast:
		return f.cast(n)
	case *sema.Ternary:
		if c, ok := n.Cond.(*sema.BoolLiteral); ok {
			if c.Value {
				return n.Left
			}
			return n.Right
		}
	}
	return e
}

func (f *folder) binary(n *sema.Binary) sema.Expression {
	if lb, ok := n.Left.(*sema.BoolLiteral); ok {
		if rb, ok := n.Right.(*sema.BoolLiteral); ok {
			switch n.Op {
			case sema.And:
				return &sema.BoolLiteral{Pos: n.Pos, Value: lb.Value && rb.Value}
			case sema.Or:
				return &sema.BoolLiteral{Pos: n.Pos, Value: lb.Value || rb.Value}
			case sema.Equal:
				return &sema.BoolLiteral{Pos: n.Pos, Value: lb.Value == rb.Value}
			case sema.NotEqual:
				return &sema.BoolLiteral{Pos: n.Pos, Value: lb.Value != rb.Value}
			}
		}
		return n
	}

	l, lok := n.Left.(*sema.NumberLiteral)
	r, rok := n.Right.(*sema.NumberLiteral)
	if !lok || !rok {
		return n
	}

	if n.Op.IsComparison() {
		cmp := l.Value.Cmp(r.Value)
		var v bool
		switch n.Op {
		case sema.Equal:
			v = cmp == 0
		case sema.NotEqual:
			v = cmp != 0
		case sema.Less:
			v = cmp < 0
		case sema.LessEqual:
			v = cmp <= 0
		case sema.More:
			v = cmp > 0
		case sema.MoreEqual:
			v = cmp >= 0
		}
		return &sema.BoolLiteral{Pos: n.Pos, Value: v}
	}

	bits := f.ns.Bits(n.Ty)
	if bits == 0 {
		return n
	}
	signed := f.ns.IsSigned(n.Ty)
	a, b := l.Value, r.Value
	switch n.Op {
	case sema.UnsignedDivide, sema.UnsignedModulo:
		a, b = WrapToWidth(a, bits, false), WrapToWidth(b, bits, false)
	case sema.ShiftRight:
		if !n.Signed {
			a = WrapToWidth(a, bits, false)
		}
	}
	res := new(big.Int)
	wraps := n.Overflowing

	switch n.Op {
	case sema.Add:
		res.Add(a, b)
	case sema.Subtract:
		res.Sub(a, b)
	case sema.Multiply:
		res.Mul(a, b)
	case sema.Power:
		if b.Sign() < 0 || !b.IsUint64() || b.Uint64() >= 1<<32 {
			f.ns.Diagnostics.Push(errors.PowerOutOfRange(b.String(), n.Pos))
			return n
		}
		if wraps {
			mod := new(big.Int).Lsh(big.NewInt(1), uint(bits))
			res.Exp(a, b, mod)
		} else {
			if a.CmpAbs(big.NewInt(1)) > 0 && b.Uint64() >= uint64(bits) {
				// |a| >= 2 and a**b needs more than bits bits
				return n
			}
			res.Exp(a, b, nil)
		}
	case sema.SignedDivide, sema.UnsignedDivide, sema.SignedModulo, sema.UnsignedModulo:
		if b.Sign() == 0 {
			f.ns.Diagnostics.Push(errors.DivideByZero(n.Pos))
			return n
		}
		switch n.Op {
		case sema.SignedDivide:
			res.Quo(a, b)
		case sema.UnsignedDivide:
			res.Div(a, b)
		case sema.SignedModulo:
			res.Rem(a, b)
		default:
			res.Mod(a, b)
		}
	case sema.BitwiseAnd:
		res.And(a, b)
		wraps = true
	case sema.BitwiseOr:
		res.Or(a, b)
		wraps = true
	case sema.BitwiseXor:
		res.Xor(a, b)
		wraps = true
	case sema.ShiftLeft, sema.ShiftRight:
		if b.Sign() < 0 || b.Cmp(big.NewInt(int64(bits))) >= 0 {
			direction := "left"
			if n.Op == sema.ShiftRight {
				direction = "right"
			}
			f.ns.Diagnostics.Push(errors.ShiftOutOfRange(direction, b.String(), n.Pos))
			return n
		}
		if n.Op == sema.ShiftLeft {
			res.Lsh(a, uint(b.Uint64()))
		} else {
			res.Rsh(a, uint(b.Uint64()))
		}
		wraps = true
	default:
		return n
	}

	if wraps {
		res = WrapToWidth(res, bits, signed)
	} else if !FitsWidth(res, bits, signed) {
		// checked arithmetic that overflows fails at runtime
		return n
	}
	return &sema.NumberLiteral{Pos: n.Pos, Ty: n.Ty, Value: res}
}

func (f *folder) unary(n *sema.Unary) sema.Expression {
	switch x := n.Expr.(type) {
	case *sema.BoolLiteral:
		if n.Op == sema.Not {
			return &sema.BoolLiteral{Pos: n.Pos, Value: !x.Value}
		}
	case *sema.NumberLiteral:
		bits := f.ns.Bits(n.Ty)
		if bits == 0 {
			return n
		}
		signed := f.ns.IsSigned(n.Ty)
		switch n.Op {
		case sema.BitwiseNot:
			v := WrapToWidth(new(big.Int).Not(x.Value), bits, signed)
			return &sema.NumberLiteral{Pos: n.Pos, Ty: n.Ty, Value: v}
		case sema.Negate:
			v := new(big.Int).Neg(x.Value)
			if !FitsWidth(v, bits, signed) {
				return n
			}
			return &sema.NumberLiteral{Pos: n.Pos, Ty: n.Ty, Value: v}
		}
	}
	return n
}

func (f *folder) cast(n *sema.Cast) sema.Expression {
	x, ok := n.Expr.(*sema.NumberLiteral)
	if !ok || n.Kind == sema.BytesCast {
		return n
	}
	to := f.ns.Bits(n.Ty)
	from := f.ns.Bits(x.Ty)
	if to == 0 || from == 0 {
		return n
	}
	v := x.Value
	if n.Kind == sema.ZeroExt {
		v = WrapToWidth(v, from, false)
	}
	return &sema.NumberLiteral{Pos: n.Pos, Ty: n.Ty, Value: WrapToWidth(v, to, f.ns.IsSigned(n.Ty))}
}

// WrapToWidth reduces v modulo 2^bits, as a two's complement value when
// signed
func WrapToWidth(v *big.Int, bits int, signed bool) *big.Int {
	var u uint256.Int
	u.SetFromBig(v)
	if bits < 256 {
		var mask uint256.Int
		mask.Lsh(uint256.NewInt(1), uint(bits))
		mask.Sub(&mask, uint256.NewInt(1))
		u.And(&u, &mask)
	}
	out := u.ToBig()
	if signed && bits > 0 && out.Bit(bits-1) == 1 {
		out.Sub(out, new(big.Int).Lsh(big.NewInt(1), uint(bits)))
	}
	return out
}

// FitsWidth reports whether v is representable in an integer of the given
// width and signedness
func FitsWidth(v *big.Int, bits int, signed bool) bool {
	if !signed {
		return v.Sign() >= 0 && v.BitLen() <= bits
	}
	limit := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
	min := new(big.Int).Neg(limit)
	return v.Cmp(min) >= 0 && v.Cmp(limit) < 0
}
