package codegen

import (
	mapset "github.com/deckarep/golang-set/v2"
	"kiln/internal/sema"
)

// VectorToSlice turns constant-initialised byte arrays that are never
// modified into read-only slices over the initialiser.
type VectorToSlice struct{}

func (vs *VectorToSlice) Name() string {
	return "Vector to Slice"
}

func (vs *VectorToSlice) Description() string {
	return "Replaces never-written constant byte arrays with slices"
}

func (vs *VectorToSlice) Apply(cfg *ControlFlowGraph, ns *sema.Namespace) bool {
	allocs := make(map[int]*Set)
	defs := make(map[int]int)
	written := mapset.NewThreadUnsafeSet[int]()
	// copies[x] are the variables assigned a plain copy of x
	copies := make(map[int][]int)

	for _, block := range cfg.Blocks {
		for _, instr := range block.Instrs {
			for _, d := range Defs(instr) {
				defs[d]++
			}
			switch i := instr.(type) {
			case *Set:
				if a, ok := i.Expr.(*sema.AllocDynamicBytes); ok && a.Initializer != nil {
					if _, done := a.Ty.(sema.Slice); !done {
						allocs[i.Res] = i
					}
				}
				if v, ok := i.Expr.(*sema.Variable); ok {
					copies[v.VarNo] = append(copies[v.VarNo], i.Res)
				}
			case *Store:
				markRead(written, i.Dest)
				markRead(written, i.Data)
			case *PushMemory:
				written.Add(i.Array)
			case *PopMemory:
				written.Add(i.Array)
			case *Call:
				for _, a := range i.Args {
					markRead(written, a)
				}
			case *ExternalCall:
				markRead(written, i.Payload)
			case *Return:
				for _, v := range i.Values {
					markRead(written, v)
				}
			}
		}
	}

	// a copy that gets written writes the original too
	for grew := true; grew; {
		grew = false
		for from, tos := range copies {
			if written.Contains(from) {
				continue
			}
			for _, to := range tos {
				if written.Contains(to) || defs[to] > 1 {
					written.Add(from)
					grew = true
					break
				}
			}
		}
	}

	converted := mapset.NewThreadUnsafeSet[int]()
	for varNo, set := range allocs {
		if written.Contains(varNo) || defs[varNo] > 1 {
			continue
		}
		alloc := *set.Expr.(*sema.AllocDynamicBytes)
		alloc.Ty = sliceOfBytes
		set.Expr = &alloc
		if v := cfg.Vars.Lookup(varNo); v != nil {
			v.Ty = sliceOfBytes
		}
		converted.Add(varNo)
	}
	if converted.Cardinality() == 0 {
		return false
	}

	// readers see the new type
	for _, block := range cfg.Blocks {
		for _, instr := range block.Instrs {
			RewriteExprs(instr, func(e sema.Expression) sema.Expression {
				return sema.Rewrite(e, func(x sema.Expression) sema.Expression {
					switch n := x.(type) {
					case *sema.Variable:
						if converted.Contains(n.VarNo) {
							return &sema.Variable{Pos: n.Pos, Ty: sliceOfBytes, VarNo: n.VarNo}
						}
					case *sema.Subscript:
						if v, ok := n.Array.(*sema.Variable); ok && converted.Contains(v.VarNo) {
							c := *n
							c.ArrayTy = sliceOfBytes
							return &c
						}
					}
					return x
				})
			})
		}
	}
	return true
}

var sliceOfBytes sema.Type = sema.Slice{Elem: sema.Bytes{N: 1}}

// markRead records every variable e reads as escaping into a write
func markRead(written mapset.Set[int], e sema.Expression) {
	sema.Walk(e, func(x sema.Expression) bool {
		if v, ok := x.(*sema.Variable); ok {
			written.Add(v.VarNo)
		}
		return true
	})
}
