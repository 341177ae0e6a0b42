package codegen

import (
	"fmt"
	"strings"

	"kiln/internal/sema"
)

// CommonSubexpressionElimination computes each repeated pure expression of
// a basic block once. The first occurrence keeps its value in the variable
// it is assigned to, or in a fresh cse temporary hoisted in front of it.
type CommonSubexpressionElimination struct{}

func (cse *CommonSubexpressionElimination) Name() string {
	return "Common Subexpression Elimination"
}

func (cse *CommonSubexpressionElimination) Description() string {
	return "Eliminates redundant computations within basic blocks"
}

func (cse *CommonSubexpressionElimination) Apply(cfg *ControlFlowGraph, ns *sema.Namespace) bool {
	changed := false
	for _, block := range cfg.Blocks {
		if cse.optimizeBlock(cfg, block) {
			changed = true
		}
	}
	return changed
}

func (cse *CommonSubexpressionElimination) optimizeBlock(cfg *ControlFlowGraph, block *BasicBlock) bool {
	// count occurrences under the variable versions they see
	counts := make(map[string]int)
	vn := newValueNumbering()
	for _, instr := range block.Instrs {
		for _, e := range Exprs(instr) {
			sema.Walk(e, func(x sema.Expression) bool {
				if isCSECandidate(x) {
					counts[vn.key(x)]++
				}
				return true
			})
		}
		vn.bump(Defs(instr))
	}

	r := &cseRewriter{
		vars:   cfg.Vars,
		counts: counts,
		vn:     newValueNumbering(),
		avail:  make(map[string]holder),
	}

	out := make([]Instr, 0, len(block.Instrs))
	for _, instr := range block.Instrs {
		r.hoisted = r.hoisted[:0]
		var reuse string

		if set, ok := instr.(*Set); ok && isCSECandidate(set.Expr) && counts[r.vn.key(set.Expr)] > 1 {
			key := r.vn.key(set.Expr)
			if v, ok := r.lookup(key, set.Expr); ok {
				set.Expr = v
				r.changed = true
			} else {
				set.Expr = sema.MapChildren(set.Expr, r.visit)
				reuse = key
			}
		} else {
			RewriteExprs(instr, r.visit)
		}

		out = append(out, r.hoisted...)
		out = append(out, instr)
		r.vn.bump(Defs(instr))

		if reuse != "" {
			res := instr.(*Set).Res
			r.avail[reuse] = holder{varNo: res, version: r.vn.versions[res]}
		}
	}

	if r.changed {
		block.Instrs = out
	}
	return r.changed
}

// holder is the variable carrying an available expression, valid while the
// variable keeps the recorded version
type holder struct {
	varNo   int
	version int
}

type cseRewriter struct {
	vars    *Vartable
	counts  map[string]int
	vn      *valueNumbering
	avail   map[string]holder
	hoisted []Instr
	changed bool
}

func (r *cseRewriter) lookup(key string, e sema.Expression) (sema.Expression, bool) {
	h, ok := r.avail[key]
	if !ok || r.vn.versions[h.varNo] != h.version {
		return nil, false
	}
	return &sema.Variable{Pos: e.Loc(), Ty: e.Type(), VarNo: h.varNo}, true
}

// visit replaces the largest repeated sub-expressions of e, top down
func (r *cseRewriter) visit(e sema.Expression) sema.Expression {
	if !isCSECandidate(e) {
		return sema.MapChildren(e, r.visit)
	}
	key := r.vn.key(e)
	if r.counts[key] < 2 {
		return sema.MapChildren(e, r.visit)
	}
	if v, ok := r.lookup(key, e); ok {
		r.changed = true
		return v
	}

	inner := sema.MapChildren(e, r.visit)
	tmp := r.vars.TempName("cse", e.Type())
	r.hoisted = append(r.hoisted, &Set{Pos: e.Loc(), Res: tmp, Expr: inner})
	r.avail[key] = holder{varNo: tmp, version: r.vn.versions[tmp]}
	r.changed = true
	return &sema.Variable{Pos: e.Loc(), Ty: e.Type(), VarNo: tmp}
}

// isCSECandidate reports whether e is an operator over pure operands
func isCSECandidate(e sema.Expression) bool {
	switch e.(type) {
	case *sema.Binary, *sema.Unary, *sema.Cast:
		return IsPureExpr(e)
	}
	return false
}

// valueNumbering keys expressions by their structure and the version of
// every variable they read, so that a reassignment separates the keys
type valueNumbering struct {
	versions map[int]int
}

func newValueNumbering() *valueNumbering {
	return &valueNumbering{versions: make(map[int]int)}
}

func (vn *valueNumbering) bump(defs []int) {
	for _, d := range defs {
		vn.versions[d]++
	}
}

func (vn *valueNumbering) key(e sema.Expression) string {
	var sb strings.Builder
	vn.write(&sb, e)
	return sb.String()
}

func (vn *valueNumbering) write(sb *strings.Builder, e sema.Expression) {
	switch n := e.(type) {
	case *sema.NumberLiteral:
		fmt.Fprintf(sb, "%s %s", n.Ty, n.Value)
	case *sema.BoolLiteral:
		fmt.Fprintf(sb, "%t", n.Value)
	case *sema.BytesLiteral:
		fmt.Fprintf(sb, "%s %x", n.Ty, n.Value)
	case *sema.Variable:
		fmt.Fprintf(sb, "%%%d@%d", n.VarNo, vn.versions[n.VarNo])
	case *sema.FunctionArg:
		fmt.Fprintf(sb, "arg#%d", n.ArgNo)
	case *sema.Binary:
		l, r := vn.key(n.Left), vn.key(n.Right)
		if n.Op.IsCommutative() && r < l {
			l, r = r, l
		}
		fmt.Fprintf(sb, "(%d %t %t %s %s %s)", n.Op, n.Overflowing, n.Signed, n.Ty, l, r)
	case *sema.Unary:
		fmt.Fprintf(sb, "(u%d %s ", n.Op, n.Ty)
		vn.write(sb, n.Expr)
		sb.WriteString(")")
	case *sema.Cast:
		fmt.Fprintf(sb, "(c%d %s ", n.Kind, n.Ty)
		vn.write(sb, n.Expr)
		sb.WriteString(")")
	case *sema.Builtin:
		fmt.Fprintf(sb, "(b%d %s", n.Kind, n.Ty)
		for _, a := range n.Args {
			sb.WriteString(" ")
			vn.write(sb, a)
		}
		sb.WriteString(")")
	default:
		// never equal to another node
		fmt.Fprintf(sb, "?%p", e)
	}
}
