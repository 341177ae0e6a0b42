package compiler

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"kiln/internal/codegen"
	"kiln/internal/errors"
	"kiln/internal/sema"
	"kiln/internal/ssair"
)

// Options configures a compilation
type Options struct {
	Codegen          codegen.Options
	WarningsAsErrors bool
	// Workers bounds how many graphs are processed at once; zero means
	// runtime.GOMAXPROCS(0)
	Workers int
}

// DefaultOptions enables every pass and uses all available processors
func DefaultOptions() Options {
	return Options{Codegen: codegen.DefaultOptions()}
}

// Output is the result of compiling a namespace. IR[i] is the lowered form
// of Program.CFGs[i], nil for placeholders.
type Output struct {
	Program *codegen.Program
	IR      []*ssair.Cfg
}

// Compile generates the graphs of every function in ns, optimizes them and
// lowers them to SSA-IR. Graphs are processed in parallel; a graph that
// fails does not stop the others and every failure is reported. When the
// namespace collects error diagnostics the output is returned together
// with errors.ErrDiagnostics.
func Compile(ctx context.Context, ns *sema.Namespace, opts Options) (*Output, error) {
	prog, err := codegen.Generate(ns, opts.Codegen)
	if err != nil {
		return nil, err
	}

	ir, err := CompileCFGs(ctx, ns, prog.CFGs, opts)
	out := &Output{Program: prog, IR: ir}
	if err != nil {
		return out, err
	}
	return out, checkDiagnostics(ns, opts)
}

// CompileCFGs optimizes cfgs in place and lowers each one
func CompileCFGs(ctx context.Context, ns *sema.Namespace, cfgs []*codegen.ControlFlowGraph, opts Options) ([]*ssair.Cfg, error) {
	pipeline := NewPipeline(opts.Codegen)
	ir := make([]*ssair.Cfg, len(cfgs))

	err := forEach(ctx, opts.Workers, len(cfgs), func(i int) error {
		cfg := cfgs[i]
		if cfg.IsPlaceholder() {
			return nil
		}
		if err := optimize(pipeline, cfg, ns); err != nil {
			return err
		}
		lowered, err := ssair.Convert(ns, cfg)
		if err != nil {
			return err
		}
		if err := ssair.Verify(lowered); err != nil {
			return err
		}
		ir[i] = lowered
		return nil
	})
	return ir, err
}

// Optimize runs the pipeline selected by opts over cfgs in place
func Optimize(ctx context.Context, ns *sema.Namespace, cfgs []*codegen.ControlFlowGraph, opts Options) error {
	pipeline := NewPipeline(opts.Codegen)
	err := forEach(ctx, opts.Workers, len(cfgs), func(i int) error {
		if cfgs[i].IsPlaceholder() {
			return nil
		}
		return optimize(pipeline, cfgs[i], ns)
	})
	if err != nil {
		return err
	}
	return checkDiagnostics(ns, opts)
}

func optimize(pipeline *Pipeline, cfg *codegen.ControlFlowGraph, ns *sema.Namespace) error {
	start := time.Now()
	changed, err := pipeline.Run(cfg, ns)
	if err != nil {
		return err
	}
	log.Infof("%s: %d blocks, %d passes changed the graph in %s",
		cfg.Name, len(cfg.Blocks), len(changed), time.Since(start))
	return nil
}

// forEach calls fn for 0..n-1 on at most workers goroutines. Errors do not
// cancel the remaining calls; they are joined in index order.
func forEach(ctx context.Context, workers, n int, fn func(i int) error) error {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	errs := make([]error, n)

	var g errgroup.Group
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			errs[i] = ctx.Err()
			continue
		}
		i := i
		g.Go(func() error {
			errs[i] = fn(i)
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

func checkDiagnostics(ns *sema.Namespace, opts Options) error {
	if ns.Diagnostics != nil && ns.Diagnostics.HasErrors(opts.WarningsAsErrors) {
		return errors.ErrDiagnostics
	}
	return nil
}
