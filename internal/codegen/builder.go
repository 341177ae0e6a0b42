package codegen

import (
	"fmt"
	"math/big"

	"kiln/internal/errors"
	"kiln/internal/sema"
	"kiln/internal/source"
)

// Builder lowers the statements of one function into a control flow graph
type Builder struct {
	ns          *sema.Namespace
	opts        Options
	functionCFG []int

	cfg       *ControlFlowGraph
	loops     loopScopes
	unchecked bool

	// set while lowering a modifier body
	underscore *underscoreTarget
	// variables returned by a bare return statement
	returnVars []int
}

// underscoreTarget is what the _ placeholder of a modifier calls
type underscoreTarget struct {
	cfgNo   int
	args    []sema.Expression
	returns []int
	types   []sema.Type
}

// Layout assigns graph numbers to functions. A function with modifiers
// occupies one graph per modifier followed by its body graph; callers
// enter through the first. Modifiers get -1.
func Layout(ns *sema.Namespace) ([]int, int) {
	functionCFG := make([]int, len(ns.Functions))
	next := 0
	for no, f := range ns.Functions {
		if f.Kind == sema.KindModifier {
			functionCFG[no] = -1
			continue
		}
		functionCFG[no] = next
		next += len(f.Modifiers) + 1
	}
	return functionCFG, next
}

// Generate builds the graphs of every function in the namespace, followed
// by one storage initializer per contract that needs one
func Generate(ns *sema.Namespace, opts Options) (*Program, error) {
	functionCFG, total := Layout(ns)
	prog := &Program{
		CFGs:        make([]*ControlFlowGraph, total),
		FunctionCFG: functionCFG,
	}

	for no, f := range ns.Functions {
		base := functionCFG[no]
		if base < 0 {
			continue
		}
		for i := range f.Modifiers {
			b := newBuilder(ns, opts, functionCFG)
			cfg, err := b.buildModifierExpansion(no, i, base+i+1)
			if err != nil {
				return nil, errors.Wrapf(err, "function %s", f.Name)
			}
			prog.CFGs[base+i] = cfg
		}

		b := newBuilder(ns, opts, functionCFG)
		name := functionName(ns, f)
		if len(f.Modifiers) > 0 {
			name += "::body"
		}
		cfg, err := b.buildBody(no, name)
		if err != nil {
			return nil, errors.Wrapf(err, "function %s", f.Name)
		}
		if len(f.Modifiers) > 0 {
			cfg.Public = false
			cfg.Selector = nil
		}
		prog.CFGs[base+len(f.Modifiers)] = cfg
	}

	for no, c := range ns.Contracts {
		if !needsStorageInitializer(c) {
			continue
		}
		b := newBuilder(ns, opts, functionCFG)
		cfg, err := b.buildStorageInitializer(no)
		if err != nil {
			return nil, errors.Wrapf(err, "contract %s", c.Name)
		}
		prog.CFGs = append(prog.CFGs, cfg)
	}

	return prog, nil
}

// BuildFunction builds the body graph of one function. Calls to other
// functions refer to the graph numbers Layout assigns.
func BuildFunction(ns *sema.Namespace, funcNo int, opts Options) (*ControlFlowGraph, error) {
	if funcNo < 0 || funcNo >= len(ns.Functions) {
		return nil, errors.NewInternalError("function %d does not exist", funcNo)
	}
	functionCFG, _ := Layout(ns)
	b := newBuilder(ns, opts, functionCFG)
	return b.buildBody(funcNo, functionName(ns, ns.Functions[funcNo]))
}

func newBuilder(ns *sema.Namespace, opts Options, functionCFG []int) *Builder {
	return &Builder{ns: ns, opts: opts, functionCFG: functionCFG}
}

func functionName(ns *sema.Namespace, f *sema.Function) string {
	if f.Contract >= 0 && f.Contract < len(ns.Contracts) {
		return ns.Contracts[f.Contract].Name + "::" + f.Name
	}
	return f.Name
}

func needsStorageInitializer(c *sema.ContractDecl) bool {
	for _, v := range c.Variables {
		if !v.Constant && v.Initializer != nil {
			return true
		}
	}
	return false
}

func (b *Builder) newCFG(name string, funcNo int, f *sema.Function) *ControlFlowGraph {
	cfg := NewCFG(name, funcNo, f.Kind)
	cfg.Public = f.Public
	cfg.Nonpayable = f.Mutability != sema.Payable
	cfg.Params = f.Params
	cfg.Returns = f.Returns
	cfg.Selector = f.Selector
	cfg.Loc = f.Pos
	return cfg
}

// buildBody lowers the body of function funcNo
func (b *Builder) buildBody(funcNo int, name string) (*ControlFlowGraph, error) {
	f := b.ns.Functions[funcNo]
	if f.Kind == sema.KindModifier {
		return nil, errors.NewInternalError("modifier %s has no graph of its own", f.Name)
	}
	if f.Symtable == nil {
		f.Symtable = sema.NewSymtable()
	}

	b.cfg = b.newCFG(name, funcNo, f)
	b.cfg.Vars = FromSymtable(f.Symtable, 0)
	b.cfg.SetBasicBlock(b.cfg.NewBlock("entry"))

	if err := b.bindArguments(f); err != nil {
		return nil, err
	}

	b.returnVars = nil
	for i, id := range f.Symtable.Returns {
		if id < 0 {
			continue
		}
		if _, err := b.cfg.Vars.Get(id); err != nil {
			return nil, err
		}
		b.cfg.Add(&Set{Pos: b.loc(f.Returns[i].Pos), Res: id, Expr: defaultValue(f.Returns[i].Ty)})
		b.returnVars = append(b.returnVars, id)
	}
	if len(b.returnVars) != len(f.Returns) {
		b.returnVars = nil
	}

	reachable, err := b.statements(f.Body)
	if err != nil {
		return nil, err
	}
	if reachable {
		b.implicitReturn(f.ReturnTypes())
	}
	return b.cfg, nil
}

// bindArguments assigns every argument to a variable on entry. Named
// parameters use their declared local; unnamed ones get a temporary.
func (b *Builder) bindArguments(f *sema.Function) error {
	for i, param := range f.Params {
		id := -1
		if i < len(f.Symtable.Arguments) {
			id = f.Symtable.Arguments[i]
		}
		if id < 0 {
			id = b.cfg.Vars.TempNamed("arg", param.Pos, param.Ty)
		} else if _, err := b.cfg.Vars.Get(id); err != nil {
			return err
		}
		b.cfg.Add(&Set{
			Pos:  b.loc(param.Pos),
			Res:  id,
			Expr: &sema.FunctionArg{Pos: param.Pos, Ty: param.Ty, ArgNo: i},
		})
	}
	return nil
}

// implicitReturn ends a body that falls off its end
func (b *Builder) implicitReturn(types []sema.Type) {
	var values []sema.Expression
	if b.returnVars != nil {
		for _, id := range b.returnVars {
			values = append(values, b.variable(id))
		}
	} else {
		for _, ty := range types {
			values = append(values, defaultValue(ty))
		}
	}
	b.cfg.Add(&Return{Pos: source.Codegen, Values: values})
}

// buildModifierExpansion builds the graph running modifier index mod of
// function funcNo; its _ calls graph next
func (b *Builder) buildModifierExpansion(funcNo, mod, next int) (*ControlFlowGraph, error) {
	f := b.ns.Functions[funcNo]
	call := f.Modifiers[mod]
	if call.Modifier < 0 || call.Modifier >= len(b.ns.Functions) {
		return nil, errors.NewInternalError("modifier %d does not exist", call.Modifier)
	}
	m := b.ns.Functions[call.Modifier]
	if m.Kind != sema.KindModifier {
		return nil, errors.NewInternalError("%s is not a modifier", m.Name)
	}
	if m.Symtable == nil {
		m.Symtable = sema.NewSymtable()
	}

	b.cfg = b.newCFG(functionName(b.ns, f)+"::"+m.Name, funcNo, f)
	b.cfg.Modifier = call.Modifier
	if mod > 0 {
		b.cfg.Public = false
		b.cfg.Selector = nil
	}
	b.cfg.Vars = FromSymtable(m.Symtable, 0)
	b.cfg.SetBasicBlock(b.cfg.NewBlock("entry"))

	// the function's arguments, forwarded to the next graph
	args := make([]sema.Expression, len(f.Params))
	for i, param := range f.Params {
		name := param.Name
		if name == "" {
			name = "arg"
		}
		id := b.cfg.Vars.TempNamed(name, param.Pos, param.Ty)
		b.cfg.Add(&Set{
			Pos:  b.loc(param.Pos),
			Res:  id,
			Expr: &sema.FunctionArg{Pos: param.Pos, Ty: param.Ty, ArgNo: i},
		})
		args[i] = b.variable(id)
	}

	// modifier arguments may only read the function's arguments
	for i, arg := range call.Args {
		if i >= len(m.Symtable.Arguments) || m.Symtable.Arguments[i] < 0 {
			continue
		}
		id := m.Symtable.Arguments[i]
		if _, err := b.cfg.Vars.Get(id); err != nil {
			return nil, err
		}
		bound := sema.Rewrite(arg, func(e sema.Expression) sema.Expression {
			if fa, ok := e.(*sema.FunctionArg); ok && fa.ArgNo < len(args) {
				return args[fa.ArgNo]
			}
			return e
		})
		value, err := b.expression(bound)
		if err != nil {
			return nil, err
		}
		b.cfg.Add(&Set{Pos: b.loc(call.Pos), Res: id, Expr: value})
	}

	returns := make([]int, len(f.Returns))
	for i, ret := range f.Returns {
		name := ret.Name
		if name == "" {
			name = "ret"
		}
		returns[i] = b.cfg.Vars.TempNamed(name, ret.Pos, ret.Ty)
		b.cfg.Add(&Set{Pos: source.Codegen, Res: returns[i], Expr: defaultValue(ret.Ty)})
	}

	b.underscore = &underscoreTarget{cfgNo: next, args: args, returns: returns, types: f.ReturnTypes()}
	b.returnVars = returns

	reachable, err := b.statements(m.Body)
	if err != nil {
		return nil, err
	}
	if reachable {
		b.implicitReturn(nil)
	}
	return b.cfg, nil
}

// buildStorageInitializer stores the initial value of every contract
// variable with an initializer
func (b *Builder) buildStorageInitializer(contractNo int) (*ControlFlowGraph, error) {
	c := b.ns.Contracts[contractNo]
	b.cfg = NewCFG(c.Name+"::storage_initializer", -1, sema.KindFunction)
	b.cfg.Nonpayable = true
	b.cfg.SetBasicBlock(b.cfg.NewBlock("entry"))

	for _, v := range c.Variables {
		if v.Constant || v.Initializer == nil {
			continue
		}
		if v.Slot == nil {
			return nil, errors.NewInternalError("variable %s.%s has no storage slot", c.Name, v.Name)
		}
		value, err := b.expression(v.Initializer)
		if err != nil {
			return nil, err
		}
		b.cfg.Add(&SetStorage{Ty: v.Ty, Value: value, Storage: slotLiteral(v.Slot)})
	}
	b.cfg.Add(&Return{Pos: source.Codegen})
	return b.cfg, nil
}

// loc returns the location recorded on an instruction
func (b *Builder) loc(pos source.Loc) source.Loc {
	if b.opts.GenerateDebugInformation {
		return pos
	}
	return source.Codegen
}

func (b *Builder) variable(id int) *sema.Variable {
	v := b.cfg.Vars.Lookup(id)
	return &sema.Variable{Pos: v.Pos, Ty: v.Ty, VarNo: id}
}

func slotLiteral(slot *big.Int) *sema.NumberLiteral {
	return &sema.NumberLiteral{Pos: source.Codegen, Ty: sema.Uint{Bits: 256}, Value: new(big.Int).Set(slot)}
}

// defaultValue is the value of a variable before its first assignment
func defaultValue(ty sema.Type) sema.Expression {
	switch ty.(type) {
	case sema.Bool:
		return &sema.BoolLiteral{Pos: source.Codegen, Value: false}
	case sema.Int, sema.Uint, sema.Value, sema.Address, sema.Contract, sema.Bytes, sema.Enum, sema.FunctionSelector:
		return &sema.NumberLiteral{Pos: source.Codegen, Ty: ty, Value: new(big.Int)}
	}
	return &sema.Undefined{Ty: ty}
}

// runtimeError prints a runtime error message when runtime error logging
// is enabled
func (b *Builder) runtimeError(reason string, loc source.Loc) {
	if !b.opts.LogRuntimeErrors {
		return
	}
	msg := fmt.Sprintf("runtime_error: %s in %s", reason, loc)
	b.cfg.Add(&Print{Expr: &sema.BytesLiteral{Pos: loc, Ty: sema.String{}, Value: []byte(msg)}})
}
