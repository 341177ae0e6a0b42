package grammar

import (
	"encoding/hex"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
	mapset "github.com/deckarep/golang-set/v2"
	"kiln/internal/codegen"
	"kiln/internal/errors"
	"kiln/internal/sema"
	"kiln/internal/source"
)

// LoadCFG parses the text form printed by codegen.PrintCFG back into
// graphs. Only primitive types are understood: bool, intN, uintN and
// bytesN. The graphs are numbered in the order they appear.
func LoadCFG(filename, src string) ([]*codegen.ControlFlowGraph, error) {
	file, err := ParseString(filename, src)
	if err != nil {
		return nil, err
	}
	return build(file)
}

// LoadFile loads every graph in the file at path. The source is returned
// for error reporting.
func LoadFile(path string) ([]*codegen.ControlFlowGraph, string, error) {
	file, src, err := ParseFile(path)
	if err != nil {
		return nil, src, err
	}
	cfgs, err := build(file)
	return cfgs, src, err
}

func build(file *File) ([]*codegen.ControlFlowGraph, error) {
	cfgs := make([]*codegen.ControlFlowGraph, len(file.Graphs))
	for no, g := range file.Graphs {
		cfg, err := load(no, g)
		if err != nil {
			return nil, err
		}
		cfgs[no] = cfg
	}
	return cfgs, nil
}

var typeName = regexp.MustCompile(`^(int|uint|bytes)([0-9]+)$`)

// ParseType resolves a primitive type name
func ParseType(name string) (sema.Type, error) {
	if name == "bool" {
		return sema.Bool{}, nil
	}
	m := typeName.FindStringSubmatch(name)
	if m == nil {
		return nil, errors.Newf("type %q is not supported in the text form", name)
	}
	n, _ := strconv.Atoi(m[2])
	switch m[1] {
	case "int":
		if n >= 8 && n <= 256 && n%8 == 0 {
			return sema.Int{Bits: n}, nil
		}
	case "uint":
		if n >= 8 && n <= 256 && n%8 == 0 {
			return sema.Uint{Bits: n}, nil
		}
	case "bytes":
		if n >= 1 && n <= 32 {
			return sema.Bytes{N: n}, nil
		}
	}
	return nil, errors.Newf("type %q has an invalid width", name)
}

var kinds = map[string]sema.FunctionKind{
	"function":    sema.KindFunction,
	"constructor": sema.KindConstructor,
	"modifier":    sema.KindModifier,
	"fallback":    sema.KindFallback,
	"receive":     sema.KindReceive,
}

type loader struct {
	cfg    *codegen.ControlFlowGraph
	graph  *Graph
	ids    map[string]int
	types  map[string]sema.Type
	blocks map[string]int
}

func load(no int, g *Graph) (*codegen.ControlFlowGraph, error) {
	l := &loader{
		cfg:    codegen.NewCFG(strings.Join(g.Name, "::"), no, kinds[g.Kind]),
		graph:  g,
		ids:    make(map[string]int),
		types:  make(map[string]sema.Type),
		blocks: make(map[string]int),
	}
	if err := l.header(); err != nil {
		return nil, err
	}
	if err := l.declare(); err != nil {
		return nil, err
	}

	for no, b := range g.Blocks {
		if b.Label != blockLabel(no) {
			return nil, l.errorf(b.Pos, "expected %s, found %s", blockLabel(no), b.Label)
		}
		l.blocks[b.Label] = no
		l.cfg.NewBlock(b.Name)
	}
	for no, b := range g.Blocks {
		block := l.cfg.Blocks[no]
		if len(b.Phis) > 0 {
			block.Phis = mapset.NewThreadUnsafeSet[int]()
			for _, name := range b.Phis {
				block.Phis.Add(l.variable(name))
			}
		}
		for _, in := range b.Instrs {
			instr, err := l.instr(in)
			if err != nil {
				return nil, err
			}
			block.Instrs = append(block.Instrs, instr)
		}
	}
	return l.cfg, nil
}

func blockLabel(no int) string {
	return "block" + strconv.Itoa(no)
}

// LoadError is a well-formed text that does not describe a valid graph
type LoadError struct {
	Pos lexer.Position
	Err error
}

func (e *LoadError) Error() string {
	return e.Pos.String() + ": " + e.Err.Error()
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func (l *loader) errorf(pos lexer.Position, format string, args ...interface{}) error {
	return &LoadError{Pos: pos, Err: errors.Newf(format, args...)}
}

func (l *loader) loc(pos lexer.Position) source.Loc {
	return source.Loc{File: pos.Filename, Line: pos.Line, Column: pos.Column}
}

func (l *loader) header() error {
	g := l.graph
	l.cfg.Public = g.Public == "true"
	l.cfg.Nonpayable = g.Nonpayable == "true"
	if g.Selector != nil {
		sel, err := hex.DecodeString(strings.TrimPrefix(*g.Selector, "selector:"))
		if err != nil {
			return l.errorf(g.Pos, "bad selector: %v", err)
		}
		l.cfg.Selector = sel
	}
	var err error
	if l.cfg.Params, err = l.params(g.Params); err != nil {
		return err
	}
	l.cfg.Returns, err = l.params(g.Returns)
	return err
}

func (l *loader) params(list []*Param) ([]sema.Parameter, error) {
	out := make([]sema.Parameter, len(list))
	for i, p := range list {
		ty, err := ParseType(p.Type)
		if err != nil {
			return nil, l.errorf(l.graph.Pos, "%v", err)
		}
		out[i] = sema.Parameter{Name: p.Name, Ty: ty}
	}
	return out, nil
}

// declare gives every variable an id in order of first appearance, typed
// by the instruction that declares it
func (l *loader) declare() error {
	for _, b := range l.graph.Blocks {
		for _, in := range b.Instrs {
			var name, tyName string
			switch {
			case in.Set != nil:
				name, tyName = varName(in.Set.Res), in.Set.Type
			case in.Op != nil && in.Op.LoadStorage != nil && len(in.Results) == 1:
				name, tyName = varName(in.Results[0]), in.Op.LoadStorage.Type
			default:
				continue
			}
			ty, err := ParseType(tyName)
			if err != nil {
				return l.errorf(in.Pos, "%v", err)
			}
			if prev, ok := l.types[name]; ok && prev != ty {
				return l.errorf(in.Pos, "%%%s declared as %s and %s", name, prev, ty)
			}
			l.types[name] = ty
		}
	}
	return nil
}

func varName(v string) string {
	return strings.TrimPrefix(v, "%")
}

// variable returns the id of name, adding it to the vartable on first use
func (l *loader) variable(name string) int {
	if id, ok := l.ids[name]; ok {
		return id
	}
	id := l.cfg.Vars.NextID()
	ty, ok := l.types[name]
	if !ok {
		ty = sema.Unresolved{}
	}
	_ = l.cfg.Vars.AddKnown(id, name, ty)
	l.ids[name] = id
	return id
}

func (l *loader) block(label string, pos lexer.Position) (int, error) {
	no, ok := l.blocks[label]
	if !ok {
		return 0, l.errorf(pos, "no block %s", label)
	}
	return no, nil
}

func (l *loader) instr(in *Instr) (codegen.Instr, error) {
	if in.Set != nil {
		res := l.variable(varName(in.Set.Res))
		e, err := l.expr(in.Set.Expr, l.types[varName(in.Set.Res)])
		if err != nil {
			return nil, err
		}
		return &codegen.Set{Pos: l.loc(in.Pos), Res: res, Expr: e}, nil
	}

	var res []int
	for _, r := range in.Results {
		res = append(res, l.variable(varName(r)))
	}
	op := in.Op
	switch {
	case op.Call != nil:
		return l.call(in.Pos, res, op.Call)
	case op.Return != nil:
		values, err := l.exprs(op.Return.Values)
		if err != nil {
			return nil, err
		}
		return &codegen.Return{Values: values}, nil
	case op.Branch != nil:
		target, err := l.block(*op.Branch, in.Pos)
		if err != nil {
			return nil, err
		}
		return &codegen.Branch{Block: target}, nil
	case op.BranchCond != nil:
		return l.branchCond(in.Pos, op.BranchCond)
	case op.Switch != nil:
		return l.switchOp(in.Pos, op.Switch)
	case op.LoadStorage != nil:
		if len(res) != 1 {
			return nil, l.errorf(in.Pos, "load storage assigns one variable")
		}
		ty, slot, err := l.storage(op.LoadStorage.Type, op.LoadStorage.Slot)
		if err != nil {
			return nil, err
		}
		return &codegen.LoadStorage{Pos: l.loc(in.Pos), Res: res[0], Ty: ty, Storage: slot}, nil
	case op.SetStorage != nil:
		ty, slot, err := l.storage(op.SetStorage.Type, op.SetStorage.Slot)
		if err != nil {
			return nil, err
		}
		value, err := l.expr(op.SetStorage.Value, ty)
		if err != nil {
			return nil, err
		}
		return &codegen.SetStorage{Ty: ty, Value: value, Storage: slot}, nil
	case op.ClearStorage != nil:
		ty, slot, err := l.storage(op.ClearStorage.Type, op.ClearStorage.Slot)
		if err != nil {
			return nil, err
		}
		return &codegen.ClearStorage{Ty: ty, Storage: slot}, nil
	case op.AssertFailure != nil:
		if op.AssertFailure.Args == nil {
			return &codegen.AssertFailure{}, nil
		}
		args, err := l.expr(op.AssertFailure.Args, nil)
		if err != nil {
			return nil, err
		}
		return &codegen.AssertFailure{EncodedArgs: args}, nil
	case op.Print != nil:
		e, err := l.expr(op.Print, nil)
		if err != nil {
			return nil, err
		}
		return &codegen.Print{Expr: e}, nil
	case op.Unreachable:
		return &codegen.Unreachable{}, nil
	case op.Nop:
		return &codegen.Nop{}, nil
	}
	return nil, l.errorf(in.Pos, "unsupported instruction")
}

func (l *loader) call(pos lexer.Position, res []int, c *CallOp) (codegen.Instr, error) {
	args, err := l.exprs(c.Args)
	if err != nil {
		return nil, err
	}
	call := &codegen.Call{Pos: l.loc(pos), Res: res, Args: args}
	for _, id := range res {
		call.Returns = append(call.Returns, l.cfg.Vars.Lookup(id).Ty)
	}
	switch {
	case c.Static != nil:
		n, _ := strconv.Atoi(*c.Static)
		call.Call = codegen.StaticCall{CfgNo: n}
	case c.Builtin != nil:
		n, _ := strconv.Atoi(*c.Builtin)
		call.Call = codegen.BuiltinCall{Function: n}
	default:
		call.Call = codegen.HostFunctionCall{Name: *c.Host}
	}
	return call, nil
}

func (l *loader) branchCond(pos lexer.Position, b *BranchCond) (codegen.Instr, error) {
	cond, err := l.expr(b.Cond, sema.Bool{})
	if err != nil {
		return nil, err
	}
	t, err := l.block(b.True, pos)
	if err != nil {
		return nil, err
	}
	f, err := l.block(b.False, pos)
	if err != nil {
		return nil, err
	}
	return &codegen.BranchCond{Cond: cond, True: t, False: f}, nil
}

func (l *loader) switchOp(pos lexer.Position, s *SwitchOp) (codegen.Instr, error) {
	cond, err := l.expr(s.Cond, nil)
	if err != nil {
		return nil, err
	}
	sw := &codegen.Switch{Cond: cond}
	for _, c := range s.Cases {
		value, err := l.expr(c.Value, cond.Type())
		if err != nil {
			return nil, err
		}
		target, err := l.block(c.Block, pos)
		if err != nil {
			return nil, err
		}
		sw.Cases = append(sw.Cases, codegen.SwitchCase{Value: value, Block: target})
	}
	if sw.Default, err = l.block(s.Default, pos); err != nil {
		return nil, err
	}
	return sw, nil
}

func (l *loader) storage(tyName string, slot *Expr) (sema.Type, sema.Expression, error) {
	ty, err := ParseType(tyName)
	if err != nil {
		return nil, nil, l.errorf(slot.Pos, "%v", err)
	}
	s, err := l.expr(slot, nil)
	if err != nil {
		return nil, nil, err
	}
	return ty, s, nil
}

func (l *loader) exprs(list []*Expr) ([]sema.Expression, error) {
	out := make([]sema.Expression, len(list))
	for i, e := range list {
		var err error
		if out[i], err = l.expr(e, nil); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// expr converts an expression. want is the type the context expects, used
// where the text form leaves a type out.
func (l *loader) expr(e *Expr, want sema.Type) (sema.Expression, error) {
	switch {
	case e.Not != nil:
		inner, err := l.expr(e.Not, sema.Bool{})
		if err != nil {
			return nil, err
		}
		return &sema.Unary{Pos: l.loc(e.Pos), Ty: sema.Bool{}, Op: sema.Not, Expr: inner}, nil
	case e.BitNot != nil:
		return l.unary(sema.BitwiseNot, e.BitNot, want)
	case e.Neg != nil:
		return l.unary(sema.Negate, e.Neg, want)
	case e.Var != nil:
		id := l.variable(varName(*e.Var))
		return &sema.Variable{Pos: l.loc(e.Pos), Ty: l.cfg.Vars.Lookup(id).Ty, VarNo: id}, nil
	case e.Bool != nil:
		return &sema.BoolLiteral{Pos: l.loc(e.Pos), Value: *e.Bool == "true"}, nil
	case e.Literal != nil:
		return l.literal(e)
	case e.Paren != nil:
		return l.paren(e.Pos, e.Paren, want)
	}
	return nil, l.errorf(e.Pos, "empty expression")
}

func (l *loader) unary(op sema.UnaryOp, operand *Expr, want sema.Type) (sema.Expression, error) {
	inner, err := l.expr(operand, want)
	if err != nil {
		return nil, err
	}
	return &sema.Unary{Pos: l.loc(operand.Pos), Ty: inner.Type(), Op: op, Expr: inner}, nil
}

func (l *loader) literal(e *Expr) (sema.Expression, error) {
	ty, err := ParseType(e.Literal.Type)
	if err != nil {
		return nil, l.errorf(e.Pos, "%v", err)
	}
	if e.Literal.Hex != nil {
		digits := strings.TrimSuffix(strings.TrimPrefix(*e.Literal.Hex, `hex"`), `"`)
		value, err := hex.DecodeString(digits)
		if err != nil {
			return nil, l.errorf(e.Pos, "bad hex literal: %v", err)
		}
		return &sema.BytesLiteral{Pos: l.loc(e.Pos), Ty: ty, Value: value}, nil
	}
	value, ok := new(big.Int).SetString(*e.Literal.Number, 10)
	if !ok {
		return nil, l.errorf(e.Pos, "bad number %s", *e.Literal.Number)
	}
	return &sema.NumberLiteral{Pos: l.loc(e.Pos), Ty: ty, Value: value}, nil
}

var castKinds = map[string]sema.CastKind{
	"cast":      sema.PlainCast,
	"zext":      sema.ZeroExt,
	"sext":      sema.SignExt,
	"trunc":     sema.Trunc,
	"bytescast": sema.BytesCast,
}

var binaryOps = map[string]sema.BinaryOp{
	"+":  sema.Add,
	"-":  sema.Subtract,
	"*":  sema.Multiply,
	"**": sema.Power,
	"&":  sema.BitwiseAnd,
	"|":  sema.BitwiseOr,
	"^":  sema.BitwiseXor,
	"<<": sema.ShiftLeft,
	">>": sema.ShiftRight,
	"==": sema.Equal,
	"!=": sema.NotEqual,
	"<":  sema.Less,
	"<=": sema.LessEqual,
	">":  sema.More,
	">=": sema.MoreEqual,
	"&&": sema.And,
	"||": sema.Or,
}

func (l *loader) paren(pos lexer.Position, p *Paren, want sema.Type) (sema.Expression, error) {
	switch {
	case p.Arg != nil:
		n, _ := strconv.Atoi(*p.Arg)
		if n >= len(l.cfg.Params) {
			return nil, l.errorf(pos, "argument %d out of range", n)
		}
		return &sema.FunctionArg{Pos: l.loc(pos), Ty: l.cfg.Params[n].Ty, ArgNo: n}, nil
	case p.Undefined != nil:
		ty, err := ParseType(*p.Undefined)
		if err != nil {
			return nil, l.errorf(pos, "%v", err)
		}
		return &sema.Undefined{Ty: ty}, nil
	case p.Cast != nil:
		ty, err := ParseType(p.Cast.Type)
		if err != nil {
			return nil, l.errorf(pos, "%v", err)
		}
		inner, err := l.expr(p.Cast.Expr, nil)
		if err != nil {
			return nil, err
		}
		return &sema.Cast{Pos: l.loc(pos), Ty: ty, Kind: castKinds[p.Cast.Kind], Expr: inner}, nil
	case p.Overflowing != nil:
		b, err := l.binary(pos, p.Overflowing, want)
		if err != nil {
			return nil, err
		}
		b.Overflowing = true
		return b, nil
	case p.Signed != nil:
		b, err := l.binary(pos, p.Signed.Binary, want)
		if err != nil {
			return nil, err
		}
		b.Signed = p.Signed.Sign == "signed"
		switch {
		case p.Signed.Kind == "divide" && b.Signed:
			b.Op = sema.SignedDivide
		case p.Signed.Kind == "divide":
			b.Op = sema.UnsignedDivide
		case p.Signed.Kind == "modulo" && b.Signed:
			b.Op = sema.SignedModulo
		case p.Signed.Kind == "modulo":
			b.Op = sema.UnsignedModulo
		}
		return b, nil
	}
	b, err := l.binary(pos, p.Binary, want)
	if err != nil {
		return nil, err
	}
	switch b.Op {
	case sema.SignedDivide, sema.SignedModulo, sema.Less, sema.More, sema.LessEqual, sema.MoreEqual:
		// the text form always spells these with their signedness
		return nil, l.errorf(pos, "%s needs signed or unsigned", p.Binary.Op)
	case sema.ShiftRight:
		b.Signed = false
	}
	return b, nil
}

func (l *loader) binary(pos lexer.Position, b *Binary, want sema.Type) (*sema.Binary, error) {
	op, ok := binaryOps[b.Op]
	switch b.Op {
	case "/":
		op, ok = sema.SignedDivide, true
	case "%":
		op, ok = sema.SignedModulo, true
	}
	if !ok {
		return nil, l.errorf(pos, "unknown operator %s", b.Op)
	}

	operandWant := want
	if op.IsComparison() || op == sema.And || op == sema.Or {
		operandWant = nil
	}
	left, err := l.expr(b.Left, operandWant)
	if err != nil {
		return nil, err
	}
	right, err := l.expr(b.Right, operandWant)
	if err != nil {
		return nil, err
	}

	var ty sema.Type
	switch {
	case op.IsComparison() || op == sema.And || op == sema.Or:
		ty = sema.Bool{}
	case want != nil:
		ty = want
	default:
		ty = left.Type()
		if _, unknown := ty.(sema.Unresolved); unknown || ty == nil {
			ty = right.Type()
		}
	}
	return &sema.Binary{
		Pos:    l.loc(pos),
		Ty:     ty,
		Op:     op,
		Signed: sema.IsSignedInt(ty),
		Left:   left,
		Right:  right,
	}, nil
}
