package codegen

import (
	mapset "github.com/deckarep/golang-set/v2"
	"kiln/internal/errors"
	"kiln/internal/sema"
	"kiln/internal/source"
)

// BasicBlock is a straight-line sequence of instructions. The last
// instruction is its only terminator.
type BasicBlock struct {
	Name   string
	Instrs []Instr
	Phis   mapset.Set[int]
}

// Terminator returns the last instruction when it ends the block
func (b *BasicBlock) Terminator() Instr {
	if len(b.Instrs) == 0 {
		return nil
	}
	last := b.Instrs[len(b.Instrs)-1]
	if !IsTerminator(last) {
		return nil
	}
	return last
}

// PhiList returns the phi variables in ascending order
func (b *BasicBlock) PhiList() []int {
	return SortedSet(b.Phis)
}

// ControlFlowGraph is the control flow graph of one function, modifier
// expansion or storage initializer. Block 0 is the entry block.
type ControlFlowGraph struct {
	Name       string
	Function   int
	Kind       sema.FunctionKind
	Public     bool
	Nonpayable bool
	Params     []sema.Parameter
	Returns    []sema.Parameter
	Selector   []byte
	Vars       *Vartable
	Blocks     []*BasicBlock
	Modifier   int
	Loc        source.Loc

	current int
}

// NewCFG creates a graph with an empty variable table and no blocks
func NewCFG(name string, function int, kind sema.FunctionKind) *ControlFlowGraph {
	return &ControlFlowGraph{
		Name:     name,
		Function: function,
		Kind:     kind,
		Vars:     NewVartable(0),
		Modifier: -1,
	}
}

// Placeholder creates the graph stored for functions that get no code,
// such as modifier declarations
func Placeholder(name string) *ControlFlowGraph {
	return &ControlFlowGraph{Name: name, Function: -1, Modifier: -1, Vars: NewVartable(0)}
}

// IsPlaceholder reports whether the graph was never generated
func (cfg *ControlFlowGraph) IsPlaceholder() bool {
	return len(cfg.Blocks) == 0
}

// NewBlock appends an empty block and returns its index
func (cfg *ControlFlowGraph) NewBlock(name string) int {
	cfg.Blocks = append(cfg.Blocks, &BasicBlock{Name: name})
	return len(cfg.Blocks) - 1
}

// SetBasicBlock makes block the target of Add
func (cfg *ControlFlowGraph) SetBasicBlock(block int) {
	cfg.current = block
}

// CurrentBlock returns the block Add appends to
func (cfg *ControlFlowGraph) CurrentBlock() int {
	return cfg.current
}

// Add appends instr to the current block, marking the variables it assigns
// as dirty
func (cfg *ControlFlowGraph) Add(instr Instr) {
	for _, id := range Defs(instr) {
		cfg.Vars.SetDirty(id)
	}
	b := cfg.Blocks[cfg.current]
	b.Instrs = append(b.Instrs, instr)
}

// Terminated reports whether the current block already ends in a
// terminator
func (cfg *ControlFlowGraph) Terminated() bool {
	return cfg.Blocks[cfg.current].Terminator() != nil
}

// SetPhis records the variables reconciled at block and prepends one
// reconciling Set per variable, in ascending id order. Variables already
// recorded on the block are skipped.
func (cfg *ControlFlowGraph) SetPhis(block int, vars mapset.Set[int]) {
	b := cfg.Blocks[block]
	if b.Phis == nil {
		b.Phis = mapset.NewThreadUnsafeSet[int]()
	}
	var sets []Instr
	for _, id := range SortedSet(vars) {
		if b.Phis.Contains(id) {
			continue
		}
		b.Phis.Add(id)
		v := cfg.Vars.Lookup(id)
		if v == nil {
			continue
		}
		sets = append(sets, &Set{
			Pos:  source.Codegen,
			Res:  id,
			Expr: &sema.Variable{Pos: source.Codegen, Ty: v.Ty, VarNo: id},
		})
	}
	if len(sets) > 0 {
		b.Instrs = append(sets, b.Instrs...)
	}
}

// Predecessors returns, for each block, the blocks branching to it
func (cfg *ControlFlowGraph) Predecessors() [][]int {
	preds := make([][]int, len(cfg.Blocks))
	for i, b := range cfg.Blocks {
		term := b.Terminator()
		if term == nil {
			continue
		}
		seen := map[int]bool{}
		for _, s := range Successors(term) {
			if !seen[s] && s >= 0 && s < len(preds) {
				preds[s] = append(preds[s], i)
				seen[s] = true
			}
		}
	}
	return preds
}

// ReversePostOrder returns the blocks reachable from the entry in reverse
// post order
func (cfg *ControlFlowGraph) ReversePostOrder() []int {
	if len(cfg.Blocks) == 0 {
		return nil
	}
	visited := make([]bool, len(cfg.Blocks))
	var post []int
	var visit func(int)
	visit = func(n int) {
		visited[n] = true
		if term := cfg.Blocks[n].Terminator(); term != nil {
			for _, s := range Successors(term) {
				if s >= 0 && s < len(cfg.Blocks) && !visited[s] {
					visit(s)
				}
			}
		}
		post = append(post, n)
	}
	visit(0)
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

// ParamTypes lists the parameter types
func (cfg *ControlFlowGraph) ParamTypes() []sema.Type {
	out := make([]sema.Type, len(cfg.Params))
	for i, p := range cfg.Params {
		out[i] = p.Ty
	}
	return out
}

// ReturnTypes lists the return types
func (cfg *ControlFlowGraph) ReturnTypes() []sema.Type {
	out := make([]sema.Type, len(cfg.Returns))
	for i, r := range cfg.Returns {
		out[i] = r.Ty
	}
	return out
}

// Program holds every generated graph of a namespace. FunctionCFG maps a
// function number to the graph callers enter through, -1 for functions
// without code.
type Program struct {
	CFGs        []*ControlFlowGraph
	FunctionCFG []int
}

// Lookup finds a graph by name
func (p *Program) Lookup(name string) (*ControlFlowGraph, error) {
	for _, cfg := range p.CFGs {
		if cfg.Name == name {
			return cfg, nil
		}
	}
	return nil, errors.Newf("no cfg named %q", name)
}
