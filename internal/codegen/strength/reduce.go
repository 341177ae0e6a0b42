package strength

import (
	"fmt"
	"math"
	"math/big"

	"kiln/internal/codegen"
	"kiln/internal/errors"
	"kiln/internal/sema"
	"kiln/internal/source"
)

// StrengthReduce replaces wide multiplications, divisions and modulo
// operations with cheaper ones when the possible values of their operands
// allow it, and resolves comparisons and branches whose outcome is known.
//
// The possible values of every integer and bool variable are found by a
// forward dataflow over the graph, tracking for each variable up to
// MaxValues values of known bits. Only operations on types of at least 128
// bits are rewritten; narrower ones map onto machine instructions already.
type StrengthReduce struct{}

var _ codegen.OptimizationPass = (*StrengthReduce)(nil)

func (sr *StrengthReduce) Name() string {
	return "Strength Reduction"
}

func (sr *StrengthReduce) Description() string {
	return "Replaces expensive arithmetic with cheaper equivalents using known-bits analysis"
}

func (sr *StrengthReduce) Apply(cfg *codegen.ControlFlowGraph, ns *sema.Namespace) bool {
	a := &analysis{ns: ns}
	entry := a.reachingValues(cfg)

	changed := false
	for no, block := range cfg.Blocks {
		vars, reachable := entry[no]
		if !reachable {
			continue
		}
		r := &reducer{analysis: a, vars: vars.clone()}
		for idx, instr := range block.Instrs {
			codegen.RewriteExprs(instr, func(e sema.Expression) sema.Expression {
				return sema.Rewrite(e, r.reduce)
			})
			if bc, ok := instr.(*codegen.BranchCond); ok {
				if target, known := r.branchTarget(bc); known {
					block.Instrs[idx] = &codegen.Branch{Block: target}
					r.changed = true
				}
			}
			a.transfer(block.Instrs[idx], r.vars)
		}
		if r.changed {
			changed = true
		}
	}
	return changed
}

type reducer struct {
	*analysis
	vars    Variables
	changed bool
}

func (r *reducer) note(loc source.Loc, format string, args ...interface{}) {
	r.changed = true
	if r.ns != nil && r.ns.Diagnostics != nil {
		r.ns.Diagnostics.Push(errors.StrengthReduced(fmt.Sprintf(format, args...), loc))
	}
}

func (r *reducer) reduce(e sema.Expression) sema.Expression {
	n, ok := e.(*sema.Binary)
	if !ok {
		return e
	}
	if n.Op.IsComparison() {
		return r.comparison(n)
	}
	bits, tracked := r.width(n.Ty)
	if !tracked || bits < 128 {
		return e
	}
	switch n.Op {
	case sema.Multiply:
		return r.multiply(n)
	case sema.UnsignedDivide, sema.SignedDivide:
		return r.divide(n, bits)
	case sema.UnsignedModulo, sema.SignedModulo:
		return r.modulo(n, bits)
	}
	return e
}

func (r *reducer) comparison(n *sema.Binary) sema.Expression {
	if !codegen.IsPureExpr(n) {
		return n
	}
	c, ok := SingleConstant(r.values(n, r.vars))
	if !ok {
		return n
	}
	result := !c.Val.IsZero()
	r.note(n.Pos, "comparison is always %t", result)
	return &sema.BoolLiteral{Pos: n.Pos, Value: result}
}

func (r *reducer) branchTarget(bc *codegen.BranchCond) (int, bool) {
	if !codegen.IsPureExpr(bc.Cond) {
		return 0, false
	}
	c, ok := SingleConstant(r.values(bc.Cond, r.vars))
	if !ok {
		return 0, false
	}
	result := !c.Val.IsZero()
	if sema.IsLiteral(bc.Cond) {
		r.changed = true
	} else {
		r.note(bc.Cond.Loc(), "condition is always %t", result)
	}
	if result {
		return bc.True, true
	}
	return bc.False, true
}

func (r *reducer) multiply(n *sema.Binary) sema.Expression {
	left := r.values(n.Left, r.vars)
	right := r.values(n.Right, r.vars)

	// a checked multiply must keep its overflow check, which a shift drops
	if n.Overflowing {
		sides := []struct {
			constant Set
			other    sema.Expression
		}{{right, n.Left}, {left, n.Right}}
		for _, side := range sides {
			if c, ok := SingleConstant(side.constant); ok {
				if k, ok := c.IsPowerOfTwo(); ok && k >= 1 {
					r.note(n.Pos, "%s multiply optimized to shift left %d", n.Ty, k)
					return &sema.Binary{
						Pos:   n.Pos,
						Ty:    n.Ty,
						Op:    sema.ShiftLeft,
						Left:  side.other,
						Right: sema.Number(n.Pos, n.Ty, int64(k)),
					}
				}
			}
		}
	}

	if r.ns.IsSigned(n.Ty) {
		llo, lhi, _ := SignedRange(left)
		rlo, rhi, _ := SignedRange(right)
		if fitsInt64(llo, lhi, rlo, rhi) && productFitsInt64(llo, lhi, rlo, rhi) {
			r.note(n.Pos, "%s multiply optimized to int64 multiply", n.Ty)
			return narrow(n, sema.Int{Bits: 64}, sema.SignExt)
		}
		return n
	}

	_, lhi, lok := UnsignedRange(left)
	_, rhi, rok := UnsignedRange(right)
	if lok && rok && new(big.Int).Mul(lhi, rhi).Cmp(maxUint64) <= 0 {
		r.note(n.Pos, "%s multiply optimized to uint64 multiply", n.Ty)
		return narrow(n, sema.Uint{Bits: 64}, sema.ZeroExt)
	}
	return n
}

func (r *reducer) divide(n *sema.Binary, bits uint16) sema.Expression {
	left := r.values(n.Left, r.vars)
	right := r.values(n.Right, r.vars)
	signed := n.Op == sema.SignedDivide

	if k, ok := r.positivePowerOfTwo(right, bits, signed); ok && k >= 1 {
		// an arithmetic shift rounds towards minus infinity, a division
		// towards zero; they agree on non-negative dividends
		if !signed || NonNegative(left) {
			r.note(n.Pos, "%s divide optimized to shift right %d", n.Ty, k)
			return &sema.Binary{
				Pos:    n.Pos,
				Ty:     n.Ty,
				Op:     sema.ShiftRight,
				Signed: signed,
				Left:   n.Left,
				Right:  sema.Number(n.Pos, n.Ty, int64(k)),
			}
		}
	}
	return r.narrowDivision(n, left, right, signed, "divide")
}

func (r *reducer) modulo(n *sema.Binary, bits uint16) sema.Expression {
	left := r.values(n.Left, r.vars)
	right := r.values(n.Right, r.vars)
	signed := n.Op == sema.SignedModulo

	if k, ok := r.positivePowerOfTwo(right, bits, signed); ok {
		if !signed || NonNegative(left) {
			m := new(big.Int).Lsh(big.NewInt(1), k)
			m.Sub(m, big.NewInt(1))
			r.note(n.Pos, "%s modulo optimized to bitwise and %s", n.Ty, m)
			return &sema.Binary{
				Pos:   n.Pos,
				Ty:    n.Ty,
				Op:    sema.BitwiseAnd,
				Left:  n.Left,
				Right: &sema.NumberLiteral{Pos: n.Pos, Ty: n.Ty, Value: m},
			}
		}
	}
	return r.narrowDivision(n, left, right, signed, "modulo")
}

// positivePowerOfTwo returns k when every value of set is the positive
// integer 2^k
func (r *reducer) positivePowerOfTwo(set Set, bits uint16, signed bool) (uint, bool) {
	c, ok := SingleConstant(set)
	if !ok {
		return 0, false
	}
	k, ok := c.IsPowerOfTwo()
	if !ok || (signed && k >= uint(bits)-1) {
		return 0, false
	}
	return k, true
}

// narrowDivision performs a division or modulo in 64 bits when both
// operands fit
func (r *reducer) narrowDivision(n *sema.Binary, left, right Set, signed bool, what string) sema.Expression {
	if signed {
		llo, lhi, _ := SignedRange(left)
		rlo, rhi, _ := SignedRange(right)
		// the most negative int64 divided by minus one does not fit
		if fitsInt64(llo, lhi, rlo, rhi) && llo.Cmp(minInt64) > 0 {
			r.note(n.Pos, "%s %s optimized to int64 %s", n.Ty, what, what)
			return narrow(n, sema.Int{Bits: 64}, sema.SignExt)
		}
		return n
	}
	_, lhi, lok := UnsignedRange(left)
	_, rhi, rok := UnsignedRange(right)
	if lok && rok && lhi.Cmp(maxUint64) <= 0 && rhi.Cmp(maxUint64) <= 0 {
		r.note(n.Pos, "%s %s optimized to uint64 %s", n.Ty, what, what)
		return narrow(n, sema.Uint{Bits: 64}, sema.ZeroExt)
	}
	return n
}

var (
	maxUint64 = new(big.Int).SetUint64(math.MaxUint64)
	minInt64  = big.NewInt(math.MinInt64)
	maxInt64  = big.NewInt(math.MaxInt64)
)

func fitsInt64(xs ...*big.Int) bool {
	for _, x := range xs {
		if x == nil || x.Cmp(minInt64) < 0 || x.Cmp(maxInt64) > 0 {
			return false
		}
	}
	return true
}

// productFitsInt64 checks the corners of the two ranges
func productFitsInt64(llo, lhi, rlo, rhi *big.Int) bool {
	for _, l := range []*big.Int{llo, lhi} {
		for _, r := range []*big.Int{rlo, rhi} {
			if !fitsInt64(new(big.Int).Mul(l, r)) {
				return false
			}
		}
	}
	return true
}

// narrow performs n in the 64 bit type ty and extends the result back
func narrow(n *sema.Binary, ty sema.Type, ext sema.CastKind) sema.Expression {
	trunc := func(e sema.Expression) sema.Expression {
		return &sema.Cast{Pos: n.Pos, Ty: ty, Kind: sema.Trunc, Expr: e}
	}
	return &sema.Cast{
		Pos:  n.Pos,
		Ty:   n.Ty,
		Kind: ext,
		Expr: &sema.Binary{
			Pos:         n.Pos,
			Ty:          ty,
			Op:          n.Op,
			Overflowing: n.Overflowing,
			Signed:      n.Signed,
			Left:        trunc(n.Left),
			Right:       trunc(n.Right),
		},
	}
}
