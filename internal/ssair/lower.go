package ssair

import (
	"kiln/internal/codegen"
	"kiln/internal/errors"
	"kiln/internal/sema"
)

// toOperand converts literals, variables and bound function arguments to
// an operand. It reports false for anything that needs instructions.
func (c *Converter) toOperand(e sema.Expression) (Operand, bool, error) {
	switch n := e.(type) {
	case *sema.NumberLiteral:
		ty, err := c.FromSemaType(n.Ty)
		if err != nil {
			return nil, false, err
		}
		return &NumberLiteral{Value: n.Value, Ty: ty, Pos: n.Pos}, true, nil
	case *sema.BoolLiteral:
		return &BoolLiteral{Value: n.Value, Pos: n.Pos}, true, nil
	case *sema.Variable:
		return &Id{ID: n.VarNo, Pos: n.Pos}, true, nil
	case *sema.FunctionArg:
		if op, ok := c.vars.FunctionArg(n.ArgNo, n.Pos); ok {
			return op, true, nil
		}
	}
	return nil, false, nil
}

// toOperandAndInsns converts e to an operand, first appending to out the
// instructions computing it. The temporary is allocated before the
// operands of e are lowered.
func (c *Converter) toOperandAndInsns(e sema.Expression, out *[]Instruction) (Operand, error) {
	op, ok, err := c.toOperand(e)
	if err != nil || ok {
		return op, err
	}
	ty, err := c.FromSemaType(e.Type())
	if err != nil {
		return nil, err
	}
	tmp := c.vars.NewTemp(ty, e.Type())
	if err := c.lowerExpression(tmp.ID, e, out); err != nil {
		return nil, err
	}
	return tmp, nil
}

// toOptionalOperandAndInsns is toOperandAndInsns for expressions that may
// be absent
func (c *Converter) toOptionalOperandAndInsns(e sema.Expression, out *[]Instruction) (Operand, error) {
	if e == nil {
		return nil, nil
	}
	return c.toOperandAndInsns(e, out)
}

func (c *Converter) toOperandsAndInsns(es []sema.Expression, out *[]Instruction) ([]Operand, error) {
	ops := make([]Operand, len(es))
	for i, e := range es {
		op, err := c.toOperandAndInsns(e, out)
		if err != nil {
			return nil, err
		}
		ops[i] = op
	}
	return ops, nil
}

// StringLocation is a string known at compile time or held in an operand
type StringLocation struct {
	CompileTime []byte
	RunTime     Operand
}

// toStringLocationAndInsns keeps string literals as compile time strings
func (c *Converter) toStringLocationAndInsns(e sema.Expression, out *[]Instruction) (StringLocation, error) {
	if lit, ok := e.(*sema.BytesLiteral); ok {
		return StringLocation{CompileTime: lit.Value}, nil
	}
	op, err := c.toOperandAndInsns(e, out)
	return StringLocation{RunTime: op}, err
}

func (c *Converter) toExternalCallAccountsAndInsns(a sema.ExternalAccounts, out *[]Instruction) (ExternalCallAccounts, error) {
	switch a.Kind {
	case sema.AccountsPresent:
		op, err := c.toOperandAndInsns(a.Expr, out)
		if err != nil {
			return ExternalCallAccounts{}, err
		}
		return ExternalCallAccounts{Kind: AccountsPresent, Accounts: op}, nil
	case sema.AccountsNone:
		return ExternalCallAccounts{Kind: AccountsNone}, nil
	default:
		return ExternalCallAccounts{Kind: AccountsAbsentArgument}, nil
	}
}

func (c *Converter) toInternalCallTyAndInsns(call codegen.InternalCallTy, out *[]Instruction) (CallTy, error) {
	switch t := call.(type) {
	case codegen.StaticCall:
		return StaticCall{CfgNo: t.CfgNo}, nil
	case codegen.BuiltinCall:
		return BuiltinCall{Function: t.Function}, nil
	case codegen.HostFunctionCall:
		return HostFunctionCall{Name: t.Name}, nil
	case codegen.DynamicCall:
		op, err := c.toOperandAndInsns(t.Expr, out)
		if err != nil {
			return nil, err
		}
		return DynamicCall{Function: op}, nil
	}
	return nil, errors.NewInternalError("unknown call type %T", call)
}

// lowerExpression appends the instructions assigning e to variable res
func (c *Converter) lowerExpression(res int, e sema.Expression, out *[]Instruction) error {
	emit := func(expr Expression) error {
		*out = append(*out, &Set{Pos: e.Loc(), Res: res, Expr: expr})
		return nil
	}
	operand := func(e sema.Expression) (Operand, error) {
		return c.toOperandAndInsns(e, out)
	}

	switch n := e.(type) {
	case *sema.NumberLiteral, *sema.BoolLiteral, *sema.Variable:
		op, _, err := c.toOperand(n)
		if err != nil {
			return err
		}
		return emit(&OperandExpr{Operand: op})

	case *sema.FunctionArg:
		ty, err := c.FromSemaType(n.Ty)
		if err != nil {
			return err
		}
		return emit(&FunctionArg{Pos: n.Pos, Ty: ty, ArgNo: n.ArgNo})

	case *sema.BytesLiteral:
		ty, err := c.FromSemaType(n.Ty)
		if err != nil {
			return err
		}
		return emit(&BytesLiteral{Pos: n.Pos, Ty: ty, Value: n.Value})

	case *sema.Binary:
		left, err := operand(n.Left)
		if err != nil {
			return err
		}
		right, err := operand(n.Right)
		if err != nil {
			return err
		}
		return emit(&BinaryExpr{Pos: n.Pos, Operator: binaryOperator(n), Left: left, Right: right})

	case *sema.Unary:
		op, err := operand(n.Expr)
		if err != nil {
			return err
		}
		return emit(&UnaryExpr{Pos: n.Pos, Operator: unaryOperator(n.Op), Operand: op})

	case *sema.Cast:
		op, err := operand(n.Expr)
		if err != nil {
			return err
		}
		to, err := c.FromSemaType(n.Ty)
		if err != nil {
			return err
		}
		switch n.Kind {
		case sema.ZeroExt:
			return emit(&ZeroExt{Pos: n.Pos, Operand: op, To: to})
		case sema.SignExt:
			return emit(&SignExt{Pos: n.Pos, Operand: op, To: to})
		case sema.Trunc:
			return emit(&Trunc{Pos: n.Pos, Operand: op, To: to})
		case sema.BytesCast:
			return emit(&BytesCast{Pos: n.Pos, Operand: op, To: to})
		default:
			return emit(&Cast{Pos: n.Pos, Operand: op, To: to})
		}

	case *sema.Subscript:
		array, err := operand(n.Array)
		if err != nil {
			return err
		}
		index, err := operand(n.Index)
		if err != nil {
			return err
		}
		return emit(&Subscript{Pos: n.Pos, Array: array, Index: index})

	case *sema.StructMember:
		op, err := operand(n.Expr)
		if err != nil {
			return err
		}
		return emit(&StructMember{Pos: n.Pos, Operand: op, Member: n.Member})

	case *sema.Load:
		op, err := operand(n.Expr)
		if err != nil {
			return err
		}
		return emit(&Load{Pos: n.Pos, Operand: op})

	case *sema.AllocDynamicBytes:
		ty, err := c.FromSemaType(n.Ty)
		if err != nil {
			return err
		}
		size, err := operand(n.Size)
		if err != nil {
			return err
		}
		return emit(&AllocDynamicBytes{Pos: n.Pos, Ty: ty, Size: size, Initializer: n.Initializer})

	case *sema.ArrayLengthExpr:
		array, err := operand(n.Array)
		if err != nil {
			return err
		}
		return emit(&ArrayLength{Pos: n.Pos, Array: array})

	case *sema.Builtin:
		args, err := c.toOperandsAndInsns(n.Args, out)
		if err != nil {
			return err
		}
		return emit(&Builtin{Pos: n.Pos, Kind: n.Kind, Args: args})

	case *sema.Undefined:
		ty, err := c.FromSemaType(n.Ty)
		if err != nil {
			return err
		}
		return emit(&Undefined{Ty: ty})
	}

	// storage reads, calls and ternaries become instructions and blocks
	// when the graph is built
	return errors.NewInternalError("%T cannot be lowered at %s", e, e.Loc())
}

func binaryOperator(n *sema.Binary) BinaryOperator {
	pick := func(signed, unsigned BinaryOperator) BinaryOperator {
		if n.Signed {
			return signed
		}
		return unsigned
	}
	checked := func(plain, overflowing BinaryOperator) BinaryOperator {
		if n.Overflowing {
			return overflowing
		}
		return plain
	}

	switch n.Op {
	case sema.Add:
		return checked(Add, AddOverflowing)
	case sema.Subtract:
		return checked(Sub, SubOverflowing)
	case sema.Multiply:
		return checked(Mul, MulOverflowing)
	case sema.Power:
		return checked(Pow, PowOverflowing)
	case sema.SignedDivide:
		return Div
	case sema.UnsignedDivide:
		return UDiv
	case sema.SignedModulo:
		return Mod
	case sema.UnsignedModulo:
		return UMod
	case sema.Equal:
		return Eq
	case sema.NotEqual:
		return Neq
	case sema.Less:
		return pick(Lt, ULt)
	case sema.LessEqual:
		return pick(Lte, ULte)
	case sema.More:
		return pick(Gt, UGt)
	case sema.MoreEqual:
		return pick(Gte, UGte)
	case sema.BitwiseAnd, sema.And:
		return BitAnd
	case sema.BitwiseOr, sema.Or:
		return BitOr
	case sema.BitwiseXor:
		return BitXor
	case sema.ShiftLeft:
		return Shl
	default:
		return pick(Shr, UShr)
	}
}

func unaryOperator(op sema.UnaryOp) UnaryOperator {
	switch op {
	case sema.Not:
		return Not
	case sema.Negate:
		return Neg
	default:
		return BitNot
	}
}

// lowerInstr appends the instructions for one graph instruction
func (c *Converter) lowerInstr(instr codegen.Instr, out *[]Instruction) error {
	operand := func(e sema.Expression) (Operand, error) {
		return c.toOperandAndInsns(e, out)
	}

	switch i := instr.(type) {
	case *codegen.Nop:
		*out = append(*out, &Nop{})

	case *codegen.Set:
		return c.lowerExpression(i.Res, i.Expr, out)

	case *codegen.Call:
		args, err := c.toOperandsAndInsns(i.Args, out)
		if err != nil {
			return err
		}
		call, err := c.toInternalCallTyAndInsns(i.Call, out)
		if err != nil {
			return err
		}
		*out = append(*out, &Call{Pos: i.Pos, Res: append([]int(nil), i.Res...), Call: call, Args: args})

	case *codegen.Return:
		values, err := c.toOperandsAndInsns(i.Values, out)
		if err != nil {
			return err
		}
		*out = append(*out, &Return{Pos: i.Pos, Values: values})

	case *codegen.Branch:
		*out = append(*out, &Branch{Block: i.Block})

	case *codegen.BranchCond:
		cond, err := operand(i.Cond)
		if err != nil {
			return err
		}
		*out = append(*out, &BranchCond{Cond: cond, True: i.True, False: i.False})

	case *codegen.Switch:
		cond, err := operand(i.Cond)
		if err != nil {
			return err
		}
		cases := make([]SwitchCase, len(i.Cases))
		for n, sc := range i.Cases {
			v, err := operand(sc.Value)
			if err != nil {
				return err
			}
			cases[n] = SwitchCase{Value: v, Block: sc.Block}
		}
		*out = append(*out, &Switch{Cond: cond, Cases: cases, Default: i.Default})

	case *codegen.Store:
		dest, err := operand(i.Dest)
		if err != nil {
			return err
		}
		data, err := operand(i.Data)
		if err != nil {
			return err
		}
		*out = append(*out, &Store{Dest: dest, Data: data})

	case *codegen.LoadStorage:
		storage, err := operand(i.Storage)
		if err != nil {
			return err
		}
		*out = append(*out, &LoadStorage{Pos: i.Pos, Res: i.Res, Storage: storage})

	case *codegen.SetStorage:
		value, err := operand(i.Value)
		if err != nil {
			return err
		}
		storage, err := operand(i.Storage)
		if err != nil {
			return err
		}
		*out = append(*out, &SetStorage{Value: value, Storage: storage})

	case *codegen.ClearStorage:
		storage, err := operand(i.Storage)
		if err != nil {
			return err
		}
		*out = append(*out, &ClearStorage{Storage: storage})

	case *codegen.PushMemory:
		value, err := operand(i.Value)
		if err != nil {
			return err
		}
		*out = append(*out, &PushMemory{Res: i.Res, Array: i.Array, Value: value})

	case *codegen.PopMemory:
		*out = append(*out, &PopMemory{Pos: i.Pos, Res: i.Res, Array: i.Array})

	case *codegen.ExternalCall:
		return c.lowerExternalCall(i, out)

	case *codegen.AssertFailure:
		args, err := c.toOptionalOperandAndInsns(i.EncodedArgs, out)
		if err != nil {
			return err
		}
		*out = append(*out, &AssertFailure{EncodedArgs: args})

	case *codegen.Print:
		msg, err := c.toStringLocationAndInsns(i.Expr, out)
		if err != nil {
			return err
		}
		*out = append(*out, &Print{Message: msg})

	case *codegen.Unreachable:
		*out = append(*out, &Unreachable{})

	default:
		return errors.NewInternalError("unknown instruction %T", instr)
	}
	return nil
}

func (c *Converter) lowerExternalCall(i *codegen.ExternalCall, out *[]Instruction) error {
	call := &ExternalCall{Pos: i.Pos, Success: i.Success, Returns: i.Returns, CallTy: i.CallTy}
	var err error
	if call.Address, err = c.toOptionalOperandAndInsns(i.Address, out); err != nil {
		return err
	}
	if call.Payload, err = c.toOptionalOperandAndInsns(i.Payload, out); err != nil {
		return err
	}
	if call.Value, err = c.toOptionalOperandAndInsns(i.Value, out); err != nil {
		return err
	}
	if call.Gas, err = c.toOptionalOperandAndInsns(i.Gas, out); err != nil {
		return err
	}
	if call.Accounts, err = c.toExternalCallAccountsAndInsns(i.Accounts, out); err != nil {
		return err
	}
	*out = append(*out, call)
	return nil
}
