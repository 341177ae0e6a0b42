package codegen

import (
	"math/big"

	"kiln/internal/errors"
	"kiln/internal/sema"
	"kiln/internal/source"
)

// expression lowers e into the current block. Calls, storage reads and
// short-circuit operators are emitted as instructions; what remains is a
// tree of pure operators over variables and literals.
func (b *Builder) expression(e sema.Expression) (sema.Expression, error) {
	switch n := e.(type) {
	case *sema.NumberLiteral, *sema.BoolLiteral, *sema.BytesLiteral, *sema.FunctionArg, *sema.Undefined:
		return e, nil

	case *sema.Variable:
		if _, err := b.cfg.Vars.Get(n.VarNo); err != nil {
			return nil, err
		}
		return e, nil

	case *sema.Binary:
		if n.Op == sema.And || n.Op == sema.Or {
			return b.shortCircuit(n)
		}
		left, err := b.expression(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := b.expression(n.Right)
		if err != nil {
			return nil, err
		}
		c := *n
		c.Left, c.Right = left, right
		if b.unchecked && n.Op.IsArithmetic() {
			c.Overflowing = true
		}
		return &c, nil

	case *sema.Unary:
		x, err := b.expression(n.Expr)
		if err != nil {
			return nil, err
		}
		c := *n
		c.Expr = x
		return &c, nil

	case *sema.Cast:
		x, err := b.expression(n.Expr)
		if err != nil {
			return nil, err
		}
		c := *n
		c.Expr = x
		return &c, nil

	case *sema.StructMember:
		x, err := b.expression(n.Expr)
		if err != nil {
			return nil, err
		}
		c := *n
		c.Expr = x
		return &c, nil

	case *sema.Load:
		x, err := b.expression(n.Expr)
		if err != nil {
			return nil, err
		}
		c := *n
		c.Expr = x
		return &c, nil

	case *sema.ArrayLengthExpr:
		x, err := b.expression(n.Array)
		if err != nil {
			return nil, err
		}
		c := *n
		c.Array = x
		return &c, nil

	case *sema.AllocDynamicBytes:
		size, err := b.expression(n.Size)
		if err != nil {
			return nil, err
		}
		c := *n
		c.Size = size
		return &c, nil

	case *sema.Builtin:
		args, err := b.expressions(n.Args)
		if err != nil {
			return nil, err
		}
		c := *n
		c.Args = args
		return &c, nil

	case *sema.Subscript:
		return b.subscript(n)

	case *sema.StorageVariable:
		cv, err := b.contractVariable(n)
		if err != nil {
			return nil, err
		}
		if cv.Constant {
			if cv.Initializer == nil {
				return nil, errors.NewInternalError("constant %s has no value", cv.Name)
			}
			return b.expression(cv.Initializer)
		}
		if cv.Slot == nil {
			return nil, errors.NewInternalError("variable %s has no storage slot", cv.Name)
		}
		res := b.cfg.Vars.TempAnonymous(cv.Ty)
		b.cfg.Add(&LoadStorage{Pos: b.loc(n.Pos), Res: res, Ty: cv.Ty, Storage: slotLiteral(cv.Slot)})
		return b.variable(res), nil

	case *sema.InternalCall:
		return b.internalCall(n)

	case *sema.ExternalCall:
		return b.externalCall(n)

	case *sema.Ternary:
		return b.ternary(n)
	}
	return nil, errors.NewInternalError("unsupported expression %T", e)
}

func (b *Builder) expressions(list []sema.Expression) ([]sema.Expression, error) {
	out := make([]sema.Expression, len(list))
	for i, e := range list {
		x, err := b.expression(e)
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}

// shortCircuit lowers && and || into a diamond assigning a bool temporary
func (b *Builder) shortCircuit(n *sema.Binary) (sema.Expression, error) {
	name, rightName, endName := "and", "and_right_side", "and_end"
	if n.Op == sema.Or {
		name, rightName, endName = "or", "or_right_side", "or_end"
	}

	left, err := b.expression(n.Left)
	if err != nil {
		return nil, err
	}

	pos := b.cfg.Vars.TempName(name, sema.Bool{})
	rightSide := b.cfg.NewBlock(rightName)
	end := b.cfg.NewBlock(endName)

	// the result when the right side is skipped
	b.cfg.Add(&Set{Pos: source.Codegen, Res: pos, Expr: &sema.BoolLiteral{Pos: n.Pos, Value: n.Op == sema.Or}})
	if n.Op == sema.Or {
		b.cfg.Add(&BranchCond{Cond: left, True: end, False: rightSide})
	} else {
		b.cfg.Add(&BranchCond{Cond: left, True: rightSide, False: end})
	}

	b.cfg.Vars.NewDirtyTracker()
	b.cfg.SetBasicBlock(rightSide)
	right, err := b.expression(n.Right)
	if err != nil {
		return nil, err
	}
	b.cfg.Add(&Set{Pos: source.Codegen, Res: pos, Expr: right})
	b.cfg.Add(&Branch{Block: end})

	phis := b.cfg.Vars.PopDirtyTracker()
	phis.Add(pos)
	b.cfg.SetPhis(end, phis)
	b.cfg.SetBasicBlock(end)
	return b.variable(pos), nil
}

// ternary lowers cond ? left : right into a diamond assigning a temporary
func (b *Builder) ternary(n *sema.Ternary) (sema.Expression, error) {
	cond, err := b.expression(n.Cond)
	if err != nil {
		return nil, err
	}
	pos := b.cfg.Vars.TempName("ternary_result", n.Ty)
	leftBlock := b.cfg.NewBlock("left_value")
	rightBlock := b.cfg.NewBlock("right_value")
	done := b.cfg.NewBlock("ternary_done")
	b.cfg.Add(&BranchCond{Cond: cond, True: leftBlock, False: rightBlock})

	b.cfg.Vars.NewDirtyTracker()
	for _, side := range []struct {
		block int
		expr  sema.Expression
	}{{leftBlock, n.Left}, {rightBlock, n.Right}} {
		b.cfg.SetBasicBlock(side.block)
		value, err := b.expression(side.expr)
		if err != nil {
			return nil, err
		}
		b.cfg.Add(&Set{Pos: source.Codegen, Res: pos, Expr: value})
		b.cfg.Add(&Branch{Block: done})
	}
	phis := b.cfg.Vars.PopDirtyTracker()
	phis.Add(pos)
	b.cfg.SetPhis(done, phis)
	b.cfg.SetBasicBlock(done)
	return b.variable(pos), nil
}

// subscript lowers an array index, inserting a bounds check when the
// array has a length
func (b *Builder) subscript(n *sema.Subscript) (sema.Expression, error) {
	array, err := b.expression(n.Array)
	if err != nil {
		return nil, err
	}
	index, err := b.expression(n.Index)
	if err != nil {
		return nil, err
	}

	indexTy := index.Type()
	length := b.arrayLength(n.ArrayTy, array, indexTy)
	if length == nil {
		c := *n
		c.Array, c.Index = array, index
		return &c, nil
	}

	id := b.cfg.Vars.TempName("index", indexTy)
	b.cfg.Add(&Set{Pos: source.Codegen, Res: id, Expr: index})
	indexVar := b.variable(id)

	// generated checks carry no location so folding them stays silent
	var check sema.Expression = &sema.Binary{
		Pos:   source.Codegen,
		Ty:    sema.Bool{},
		Op:    sema.Less,
		Left:  indexVar,
		Right: length,
	}
	if lengthBits, indexBits := b.ns.Bits(length.Type()), b.ns.Bits(indexTy); lengthBits > indexBits {
		check = &sema.Binary{
			Pos:   source.Codegen,
			Ty:    sema.Bool{},
			Op:    sema.Less,
			Left:  &sema.Cast{Pos: source.Codegen, Ty: length.Type(), Kind: sema.ZeroExt, Expr: indexVar},
			Right: length,
		}
	} else if lengthBits < indexBits {
		check = &sema.Binary{
			Pos:   source.Codegen,
			Ty:    sema.Bool{},
			Op:    sema.Less,
			Left:  indexVar,
			Right: &sema.Cast{Pos: source.Codegen, Ty: indexTy, Kind: sema.ZeroExt, Expr: length},
		}
	}

	inBounds := b.cfg.NewBlock("in_bounds")
	outOfBounds := b.cfg.NewBlock("out_of_bounds")
	b.cfg.Add(&BranchCond{Cond: check, True: inBounds, False: outOfBounds})

	b.cfg.SetBasicBlock(outOfBounds)
	b.runtimeError("array index out of bounds", n.Pos)
	b.cfg.Add(&AssertFailure{})

	b.cfg.SetBasicBlock(inBounds)
	c := *n
	c.Array, c.Index = array, indexVar
	return &c, nil
}

// arrayLength returns the length an index into arrayTy is checked
// against, or nil when there is nothing to check
func (b *Builder) arrayLength(arrayTy sema.Type, array sema.Expression, indexTy sema.Type) sema.Expression {
	if !sema.IsInteger(b.ns.Unwrap(indexTy)) {
		return nil
	}
	switch t := sema.Deref(arrayTy).(type) {
	case sema.Array:
		if len(t.Dims) == 0 {
			return nil
		}
		if dim := t.Dims[len(t.Dims)-1]; dim.Fixed {
			return &sema.NumberLiteral{Pos: source.Codegen, Ty: indexTy, Value: big.NewInt(int64(dim.N))}
		}
		return &sema.ArrayLengthExpr{Pos: source.Codegen, Array: array}
	case sema.DynamicBytes, sema.String, sema.Slice:
		return &sema.ArrayLengthExpr{Pos: source.Codegen, Array: array}
	case sema.Bytes:
		return &sema.NumberLiteral{Pos: source.Codegen, Ty: indexTy, Value: big.NewInt(int64(t.N))}
	}
	return nil
}

// internalCall emits a Call assigning one temporary per return value
func (b *Builder) internalCall(n *sema.InternalCall) (sema.Expression, error) {
	if n.Function < 0 || n.Function >= len(b.functionCFG) || b.functionCFG[n.Function] < 0 {
		return nil, errors.NewInternalError("call to function %d which has no code", n.Function)
	}
	args, err := b.expressions(n.Args)
	if err != nil {
		return nil, err
	}
	res := make([]int, len(n.Returns))
	for i, ty := range n.Returns {
		res[i] = b.cfg.Vars.TempAnonymous(ty)
	}
	b.cfg.Add(&Call{
		Pos:     b.loc(n.Pos),
		Res:     res,
		Returns: n.Returns,
		Call:    StaticCall{CfgNo: b.functionCFG[n.Function]},
		Args:    args,
	})
	if len(res) == 0 {
		return &sema.Undefined{Ty: sema.Void{}}, nil
	}
	return b.variable(res[0]), nil
}

// externalCall emits an ExternalCall. When the caller consumes the
// success flag it is the value of the call; otherwise a failed call
// aborts and the first decoded return value is the value of the call.
func (b *Builder) externalCall(n *sema.ExternalCall) (sema.Expression, error) {
	address, err := b.expression(n.Address)
	if err != nil {
		return nil, err
	}
	payload, err := b.expression(n.Payload)
	if err != nil {
		return nil, err
	}
	optional := func(e sema.Expression) (sema.Expression, error) {
		if e == nil {
			return nil, nil
		}
		return b.expression(e)
	}
	value, err := optional(n.Value)
	if err != nil {
		return nil, err
	}
	gas, err := optional(n.Gas)
	if err != nil {
		return nil, err
	}
	accounts := n.Accounts
	if accounts.Expr, err = optional(accounts.Expr); err != nil {
		return nil, err
	}

	success := b.cfg.Vars.TempName("success", sema.Bool{})
	boolResult := len(n.Returns) == 1 && sema.TypesEqual(n.Returns[0], sema.Bool{})
	var returns []int
	if !boolResult {
		for _, ty := range n.Returns {
			returns = append(returns, b.cfg.Vars.TempName("ret", ty))
		}
	}
	b.cfg.Add(&ExternalCall{
		Pos:      b.loc(n.Pos),
		Success:  success,
		Returns:  returns,
		Address:  address,
		Payload:  payload,
		Value:    value,
		Gas:      gas,
		Accounts: accounts,
		CallTy:   CallRegular,
	})

	if boolResult {
		return b.variable(success), nil
	}

	ok := b.cfg.NewBlock("ext_call_ok")
	failed := b.cfg.NewBlock("ext_call_failed")
	b.cfg.Add(&BranchCond{Cond: b.variable(success), True: ok, False: failed})

	b.cfg.SetBasicBlock(failed)
	if b.opts.LogAPIReturnCodes {
		b.cfg.Add(&Print{Expr: &sema.BytesLiteral{Pos: n.Pos, Ty: sema.String{}, Value: []byte("call.failed: external call returned failure")}})
	}
	b.cfg.Add(&AssertFailure{})

	b.cfg.SetBasicBlock(ok)
	if len(returns) == 0 {
		return &sema.Undefined{Ty: n.Type()}, nil
	}
	return b.variable(returns[0]), nil
}
