package compiler

import (
	"github.com/tliron/commonlog"
	"kiln/internal/codegen"
	"kiln/internal/codegen/strength"
	"kiln/internal/errors"
	"kiln/internal/sema"
)

var log = commonlog.GetLogger("kiln.compiler")

// Pipeline manages the sequence of optimization passes applied to each
// control flow graph
type Pipeline struct {
	passes []codegen.OptimizationPass
}

// NewPipeline creates the pipeline selected by opts. Constant folding always
// runs so the diagnostics it reports do not depend on the enabled passes;
// when disabled it runs dry and leaves the graph untouched.
func NewPipeline(opts codegen.Options) *Pipeline {
	p := &Pipeline{}

	p.AddPass(&codegen.ConstantFolding{Dry: !opts.ConstantFolding})
	if opts.VectorToSlice {
		p.AddPass(&codegen.VectorToSlice{})
	}
	if opts.StrengthReduce {
		p.AddPass(&strength.StrengthReduce{})
	}
	if opts.DeadStorage {
		p.AddPass(&codegen.DeadStorage{})
	}
	if opts.CommonSubexpressionElimination {
		// storage initializers have nothing worth sharing
		p.AddPass(functionsOnly{&codegen.CommonSubexpressionElimination{}})
	}
	if opts.OptLevel != codegen.OptNone {
		p.AddPass(&codegen.DeadCodeElimination{})
	}

	return p
}

// AddPass adds an optimization pass to the end of the pipeline
func (p *Pipeline) AddPass(pass codegen.OptimizationPass) {
	p.passes = append(p.passes, pass)
}

// Passes returns the passes in execution order
func (p *Pipeline) Passes() []codegen.OptimizationPass {
	return p.passes
}

// Run applies every pass to cfg and checks the result is still well formed.
// It returns the names of the passes that changed the graph. A graph that
// reads an undefined variable is reported and not optimized.
func (p *Pipeline) Run(cfg *codegen.ControlFlowGraph, ns *sema.Namespace) ([]string, error) {
	var changed []string
	if codegen.FindUndefinedVariables(cfg, ns) {
		log.Debugf("%s: undefined variables, skipping optimization", cfg.Name)
		return changed, codegen.Verify(cfg)
	}
	for _, pass := range p.passes {
		log.Debugf("%s: running %s", cfg.Name, pass.Name())
		if pass.Apply(cfg, ns) {
			log.Debugf("%s: %s applied optimizations", cfg.Name, pass.Name())
			changed = append(changed, pass.Name())
		}
	}
	if err := codegen.Verify(cfg); err != nil {
		return changed, errors.Wrapf(err, "after optimizing %s", cfg.Name)
	}
	return changed, nil
}

// functionsOnly skips graphs that do not belong to a function
type functionsOnly struct {
	codegen.OptimizationPass
}

func (f functionsOnly) Apply(cfg *codegen.ControlFlowGraph, ns *sema.Namespace) bool {
	if cfg.Function < 0 {
		return false
	}
	return f.OptimizationPass.Apply(cfg, ns)
}
