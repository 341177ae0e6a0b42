package ssair

import (
	"kiln/internal/codegen"
	"kiln/internal/errors"
	"kiln/internal/sema"
)

// Converter flattens the expression trees of one control flow graph into
// three-address instructions over typed operands. Every sub-expression
// that is not a literal or a variable gets a fresh temporary, assigned by
// exactly one instruction.
type Converter struct {
	ns   *sema.Namespace
	cfg  *codegen.ControlFlowGraph
	vars *Vartable
}

func NewConverter(ns *sema.Namespace, cfg *codegen.ControlFlowGraph) *Converter {
	return &Converter{ns: ns, cfg: cfg}
}

// Convert lowers cfg
func Convert(ns *sema.Namespace, cfg *codegen.ControlFlowGraph) (*Cfg, error) {
	return NewConverter(ns, cfg).Convert()
}

// Convert lowers the graph. A type or expression the IR cannot represent
// is an internal error.
func (c *Converter) Convert() (*Cfg, error) {
	vars, err := c.vartable()
	if err != nil {
		return nil, errors.Wrapf(err, "lowering %s", c.cfg.Name)
	}
	c.vars = vars
	c.bindArguments()

	out := &Cfg{
		Name:       c.cfg.Name,
		Function:   c.cfg.Function,
		Kind:       c.cfg.Kind,
		Public:     c.cfg.Public,
		Nonpayable: c.cfg.Nonpayable,
		Selector:   c.cfg.Selector,
		Vars:       vars,
	}
	if out.Params, err = c.parameters(c.cfg.Params); err != nil {
		return nil, errors.Wrapf(err, "lowering %s", c.cfg.Name)
	}
	if out.Returns, err = c.parameters(c.cfg.Returns); err != nil {
		return nil, errors.Wrapf(err, "lowering %s", c.cfg.Name)
	}

	for no, block := range c.cfg.Blocks {
		var instrs []Instruction
		for _, instr := range block.Instrs {
			if err := c.lowerInstr(instr, &instrs); err != nil {
				return nil, errors.Wrapf(err, "lowering %s block %d", c.cfg.Name, no)
			}
		}
		out.Blocks = append(out.Blocks, &Block{Name: block.Name, Instructions: instrs})
	}
	return out, nil
}

func (c *Converter) vartable() (*Vartable, error) {
	vars := NewVartable(c.cfg.Vars.NextID())
	for _, id := range c.cfg.Vars.IDs() {
		v := c.cfg.Vars.Lookup(id)
		ty, err := c.FromSemaType(v.Ty)
		if err != nil {
			return nil, errors.Wrapf(err, "variable %s", v.Name)
		}
		vars.Add(id, ty, v.Ty, v.Name)
	}
	return vars, nil
}

// bindArguments records, for every argument copied into a variable, the
// first variable it was copied to
func (c *Converter) bindArguments() {
	for _, block := range c.cfg.Blocks {
		for _, instr := range block.Instrs {
			set, ok := instr.(*codegen.Set)
			if !ok {
				continue
			}
			arg, ok := set.Expr.(*sema.FunctionArg)
			if !ok {
				continue
			}
			if _, bound := c.vars.FunctionArg(arg.ArgNo, arg.Pos); !bound {
				c.vars.AddFunctionArg(arg.ArgNo, set.Res)
			}
		}
	}
}

func (c *Converter) parameters(params []sema.Parameter) ([]Parameter, error) {
	out := make([]Parameter, len(params))
	for i, p := range params {
		ty, err := c.FromSemaType(p.Ty)
		if err != nil {
			return nil, err
		}
		out[i] = Parameter{Name: p.Name, Ty: ty}
	}
	return out, nil
}

// FromSemaType maps a type of the typed program to its IR type
func (c *Converter) FromSemaType(ty sema.Type) (Type, error) {
	return c.lowerType(ty, 0)
}

// lowerType maps ty; reference types are wrapped in a pointer at the outer
// level only
func (c *Converter) lowerType(ty sema.Type, depth int) (Type, error) {
	switch t := ty.(type) {
	case sema.Bool:
		return Bool{}, nil
	case sema.Int:
		return Int{Bits: t.Bits}, nil
	case sema.Uint:
		return Uint{Bits: t.Bits}, nil
	case sema.Value:
		return Uint{Bits: c.ns.Target.ValueLength * 8}, nil
	case sema.Address, sema.Contract:
		return Array{
			Elem: Uint{Bits: 8},
			Dims: []sema.ArrayLength{{Fixed: true, N: c.ns.Target.AddressLength}},
		}, nil
	case sema.Bytes:
		return Bytes{N: t.N}, nil
	case sema.FunctionSelector:
		return Uint{Bits: c.ns.Target.SelectorLength * 8}, nil
	case sema.String, sema.DynamicBytes:
		return wrapPtr(byteVector, depth), nil
	case sema.Array:
		elem, err := c.lowerType(t.Elem, depth+1)
		if err != nil {
			return nil, err
		}
		return wrapPtr(Array{Elem: elem, Dims: t.Dims}, depth), nil
	case sema.Struct:
		return wrapPtr(Struct{Kind: StructUserDefined, No: t.No}, depth), nil
	case sema.Enum, sema.UserType:
		inner := c.ns.Unwrap(t)
		if inner == ty {
			return nil, errors.NewInternalError("type %s is not declared", ty)
		}
		return c.lowerType(inner, 0)
	case sema.Mapping:
		key, err := c.lowerType(t.Key, depth+1)
		if err != nil {
			return nil, err
		}
		value, err := c.lowerType(t.Value, depth+1)
		if err != nil {
			return nil, err
		}
		return Mapping{Key: key, Value: value}, nil
	case sema.Ref:
		elem, err := c.lowerType(t.Elem, depth+1)
		if err != nil {
			return nil, err
		}
		return Ptr{Elem: elem}, nil
	case sema.StorageRef:
		elem, err := c.lowerType(t.Elem, depth+1)
		if err != nil {
			return nil, err
		}
		return StoragePtr{Immutable: t.Immutable, Elem: elem}, nil
	case sema.Slice:
		elem, err := c.lowerType(t.Elem, depth+1)
		if err != nil {
			return nil, err
		}
		return wrapPtr(Slice{Elem: elem}, depth), nil
	case sema.InternalFunction:
		params, err := c.lowerTypes(t.Params, depth+1)
		if err != nil {
			return nil, err
		}
		returns, err := c.lowerTypes(t.Returns, depth+1)
		if err != nil {
			return nil, err
		}
		return wrapPtr(Function{Params: params, Returns: returns}, depth), nil
	}
	return nil, errors.NewInternalError("type %s has no representation in the IR", ty)
}

func (c *Converter) lowerTypes(types []sema.Type, depth int) ([]Type, error) {
	out := make([]Type, len(types))
	for i, t := range types {
		lowered, err := c.lowerType(t, depth)
		if err != nil {
			return nil, err
		}
		out[i] = lowered
	}
	return out, nil
}

func wrapPtr(ty Type, depth int) Type {
	if depth == 0 {
		return Ptr{Elem: ty}
	}
	return ty
}
