package codegen

import "kiln/internal/sema"

// OptimizationPass is a transformation of one control flow graph. Apply
// rewrites the graph in place and reports whether anything changed.
type OptimizationPass interface {
	Name() string
	Apply(cfg *ControlFlowGraph, ns *sema.Namespace) bool
	Description() string
}
