package codegen

import (
	"kiln/internal/errors"
	"kiln/internal/sema"
)

// statements lowers a statement list. It stops at the first statement
// after which the end of the list cannot be reached, and reports whether
// the end is reachable.
func (b *Builder) statements(stmts []sema.Statement) (bool, error) {
	for _, stmt := range stmts {
		reachable, err := b.statement(stmt)
		if err != nil {
			return false, err
		}
		if !reachable {
			return false, nil
		}
	}
	return true, nil
}

// statement lowers one statement and reports whether control can continue
// after it
func (b *Builder) statement(stmt sema.Statement) (bool, error) {
	switch s := stmt.(type) {
	case *sema.VariableDecl:
		return true, b.variableDecl(s)
	case *sema.Assign:
		return true, b.assign(s)
	case *sema.Expr:
		_, err := b.expression(s.Expr)
		return true, err
	case *sema.If:
		return b.ifThenElse(s)
	case *sema.While:
		return b.whileLoop(s)
	case *sema.DoWhile:
		return b.doWhileLoop(s)
	case *sema.For:
		return b.forLoop(s)
	case *sema.Break:
		scope := b.loops.innermost()
		if scope == nil {
			return false, errors.NewInternalError("break outside of a loop at %s", s.Pos)
		}
		scope.broke = true
		b.cfg.Add(&Branch{Block: scope.breakBlock})
		return false, nil
	case *sema.Continue:
		scope := b.loops.innermost()
		if scope == nil {
			return false, errors.NewInternalError("continue outside of a loop at %s", s.Pos)
		}
		b.cfg.Add(&Branch{Block: scope.continueBlock})
		return false, nil
	case *sema.Return:
		return false, b.returnStatement(s)
	case *sema.Revert:
		b.runtimeError("revert encountered", s.Pos)
		b.cfg.Add(&AssertFailure{})
		return false, nil
	case *sema.Assert:
		return true, b.assertStatement(s)
	case *sema.Require:
		return true, b.requireStatement(s)
	case *sema.Print:
		if !b.opts.LogPrints {
			return true, nil
		}
		e, err := b.expression(s.Expr)
		if err != nil {
			return false, err
		}
		b.cfg.Add(&Print{Expr: e})
		return true, nil
	case *sema.Block:
		saved := b.unchecked
		if s.Unchecked {
			b.unchecked = true
		}
		reachable, err := b.statements(s.Statements)
		b.unchecked = saved
		return reachable, err
	case *sema.Underscore:
		return true, b.underscoreStatement(s)
	}
	return false, errors.NewInternalError("unsupported statement %T", stmt)
}

func (b *Builder) variableDecl(s *sema.VariableDecl) error {
	v, err := b.cfg.Vars.Get(s.VarNo)
	if err != nil {
		return err
	}
	var value sema.Expression
	if s.Init != nil {
		if value, err = b.expression(s.Init); err != nil {
			return err
		}
	} else {
		value = defaultValue(v.Ty)
	}
	b.cfg.Add(&Set{Pos: b.loc(s.Pos), Res: s.VarNo, Expr: value})
	return nil
}

func (b *Builder) assign(s *sema.Assign) error {
	switch left := s.Left.(type) {
	case *sema.Variable:
		if _, err := b.cfg.Vars.Get(left.VarNo); err != nil {
			return err
		}
		value, err := b.expression(s.Right)
		if err != nil {
			return err
		}
		b.cfg.Add(&Set{Pos: b.loc(s.Pos), Res: left.VarNo, Expr: value})
		return nil

	case *sema.StorageVariable:
		cv, err := b.contractVariable(left)
		if err != nil {
			return err
		}
		if cv.Constant || cv.Slot == nil {
			return errors.NewInternalError("assignment to constant %s at %s", cv.Name, s.Pos)
		}
		value, err := b.expression(s.Right)
		if err != nil {
			return err
		}
		b.cfg.Add(&SetStorage{Ty: cv.Ty, Value: value, Storage: slotLiteral(cv.Slot)})
		return nil

	case *sema.Subscript:
		dest, err := b.expression(left)
		if err != nil {
			return err
		}
		value, err := b.expression(s.Right)
		if err != nil {
			return err
		}
		b.cfg.Add(&Store{Dest: dest, Data: value})
		return nil
	}
	return errors.NewInternalError("cannot assign to %T at %s", s.Left, s.Pos)
}

func (b *Builder) ifThenElse(s *sema.If) (bool, error) {
	cond, err := b.expression(s.Cond)
	if err != nil {
		return false, err
	}

	thenBlock := b.cfg.NewBlock("then")
	if len(s.Else) == 0 {
		endif := b.cfg.NewBlock("endif")
		b.cfg.Add(&BranchCond{Cond: cond, True: thenBlock, False: endif})

		b.cfg.Vars.NewDirtyTracker()
		b.cfg.SetBasicBlock(thenBlock)
		reachable, err := b.statements(s.Then)
		if err != nil {
			return false, err
		}
		if reachable {
			b.cfg.Add(&Branch{Block: endif})
		}
		b.cfg.SetPhis(endif, b.cfg.Vars.PopDirtyTracker())
		b.cfg.SetBasicBlock(endif)
		return true, nil
	}

	elseBlock := b.cfg.NewBlock("else")
	b.cfg.Add(&BranchCond{Cond: cond, True: thenBlock, False: elseBlock})

	b.cfg.Vars.NewDirtyTracker()
	b.cfg.SetBasicBlock(thenBlock)
	thenReachable, err := b.statements(s.Then)
	if err != nil {
		return false, err
	}
	thenEnd := b.cfg.CurrentBlock()

	b.cfg.SetBasicBlock(elseBlock)
	elseReachable, err := b.statements(s.Else)
	if err != nil {
		return false, err
	}
	elseEnd := b.cfg.CurrentBlock()
	dirty := b.cfg.Vars.PopDirtyTracker()

	if !thenReachable && !elseReachable {
		return false, nil
	}

	endif := b.cfg.NewBlock("endif")
	if thenReachable {
		b.cfg.SetBasicBlock(thenEnd)
		b.cfg.Add(&Branch{Block: endif})
	}
	if elseReachable {
		b.cfg.SetBasicBlock(elseEnd)
		b.cfg.Add(&Branch{Block: endif})
	}
	b.cfg.SetPhis(endif, dirty)
	b.cfg.SetBasicBlock(endif)
	return true, nil
}

func (b *Builder) whileLoop(s *sema.While) (bool, error) {
	condBlock := b.cfg.NewBlock("cond")
	bodyBlock := b.cfg.NewBlock("while_body")
	endBlock := b.cfg.NewBlock("endwhile")

	b.cfg.Add(&Branch{Block: condBlock})
	b.cfg.SetBasicBlock(condBlock)

	b.cfg.Vars.NewDirtyTracker()
	cond, err := b.expression(s.Cond)
	if err != nil {
		return false, err
	}
	b.cfg.Add(&BranchCond{Cond: cond, True: bodyBlock, False: endBlock})

	b.cfg.SetBasicBlock(bodyBlock)
	b.loops.enter(endBlock, condBlock)
	reachable, err := b.statements(s.Body)
	if err != nil {
		return false, err
	}
	if reachable {
		b.cfg.Add(&Branch{Block: condBlock})
	}
	b.loops.leave()

	dirty := b.cfg.Vars.PopDirtyTracker()
	b.cfg.SetPhis(endBlock, dirty)
	b.cfg.SetPhis(condBlock, dirty)
	b.cfg.SetBasicBlock(endBlock)
	return true, nil
}

func (b *Builder) doWhileLoop(s *sema.DoWhile) (bool, error) {
	bodyBlock := b.cfg.NewBlock("body")
	condBlock := b.cfg.NewBlock("conddowhile")
	endBlock := b.cfg.NewBlock("enddowhile")

	b.cfg.Add(&Branch{Block: bodyBlock})
	b.cfg.SetBasicBlock(bodyBlock)

	b.cfg.Vars.NewDirtyTracker()
	b.loops.enter(endBlock, condBlock)
	reachable, err := b.statements(s.Body)
	if err != nil {
		return false, err
	}
	if reachable {
		b.cfg.Add(&Branch{Block: condBlock})
	}
	b.loops.leave()

	b.cfg.SetBasicBlock(condBlock)
	cond, err := b.expression(s.Cond)
	if err != nil {
		return false, err
	}
	b.cfg.Add(&BranchCond{Cond: cond, True: bodyBlock, False: endBlock})

	dirty := b.cfg.Vars.PopDirtyTracker()
	b.cfg.SetPhis(endBlock, dirty)
	b.cfg.SetPhis(bodyBlock, dirty)
	b.cfg.SetPhis(condBlock, dirty)
	b.cfg.SetBasicBlock(endBlock)
	return true, nil
}

func (b *Builder) forLoop(s *sema.For) (bool, error) {
	reachable, err := b.statements(s.Init)
	if err != nil || !reachable {
		return false, err
	}

	condBlock := -1
	if s.Cond != nil {
		condBlock = b.cfg.NewBlock("cond")
	}
	bodyBlock := b.cfg.NewBlock("body")
	nextBlock := b.cfg.NewBlock("next")
	endBlock := b.cfg.NewBlock("endfor")

	head := bodyBlock
	if condBlock >= 0 {
		head = condBlock
	}
	b.cfg.Add(&Branch{Block: head})

	b.cfg.Vars.NewDirtyTracker()
	if condBlock >= 0 {
		b.cfg.SetBasicBlock(condBlock)
		cond, err := b.expression(s.Cond)
		if err != nil {
			return false, err
		}
		b.cfg.Add(&BranchCond{Cond: cond, True: bodyBlock, False: endBlock})
	}

	b.cfg.SetBasicBlock(bodyBlock)
	b.loops.enter(endBlock, nextBlock)
	bodyReachable, err := b.statements(s.Body)
	if err != nil {
		return false, err
	}
	if bodyReachable {
		b.cfg.Add(&Branch{Block: nextBlock})
	}
	broke := b.loops.leave()

	b.cfg.SetBasicBlock(nextBlock)
	nextReachable, err := b.statements(s.Next)
	if err != nil {
		return false, err
	}
	if nextReachable {
		b.cfg.Add(&Branch{Block: head})
	}

	dirty := b.cfg.Vars.PopDirtyTracker()
	b.cfg.SetPhis(nextBlock, dirty)
	b.cfg.SetPhis(bodyBlock, dirty)
	b.cfg.SetPhis(endBlock, dirty)
	b.cfg.SetBasicBlock(endBlock)

	if condBlock < 0 && !broke {
		// for (;;) without break never exits
		b.cfg.Add(&Unreachable{})
		return false, nil
	}
	return true, nil
}

func (b *Builder) returnStatement(s *sema.Return) error {
	values := make([]sema.Expression, 0, len(s.Values))
	for _, v := range s.Values {
		e, err := b.expression(v)
		if err != nil {
			return err
		}
		values = append(values, e)
	}

	if len(values) == 0 && b.returnVars != nil {
		for _, id := range b.returnVars {
			values = append(values, b.variable(id))
		}
	}

	b.cfg.Add(&Return{Pos: b.loc(s.Pos), Values: values})
	return nil
}

func (b *Builder) assertStatement(s *sema.Assert) error {
	cond, err := b.expression(s.Cond)
	if err != nil {
		return err
	}
	pass := b.cfg.NewBlock("noassert")
	fail := b.cfg.NewBlock("doassert")
	b.cfg.Add(&BranchCond{Cond: cond, True: pass, False: fail})

	b.cfg.SetBasicBlock(fail)
	b.runtimeError("assert failure", s.Pos)
	b.cfg.Add(&AssertFailure{})

	b.cfg.SetBasicBlock(pass)
	return nil
}

func (b *Builder) requireStatement(s *sema.Require) error {
	cond, err := b.expression(s.Cond)
	if err != nil {
		return err
	}
	success := b.cfg.NewBlock("success")
	revert := b.cfg.NewBlock("revert")
	b.cfg.Add(&BranchCond{Cond: cond, True: success, False: revert})

	b.cfg.SetBasicBlock(revert)
	var encoded sema.Expression
	if s.Message != "" {
		b.runtimeError(s.Message+" require condition failed", s.Pos)
		encoded = &sema.BytesLiteral{Pos: s.Pos, Ty: sema.String{}, Value: []byte(s.Message)}
	} else {
		b.runtimeError("require condition failed", s.Pos)
	}
	b.cfg.Add(&AssertFailure{EncodedArgs: encoded})

	b.cfg.SetBasicBlock(success)
	return nil
}

// underscoreStatement runs the next modifier, or the function body, and
// collects what it returns
func (b *Builder) underscoreStatement(s *sema.Underscore) error {
	if b.underscore == nil {
		return errors.NewInternalError("placeholder outside of a modifier at %s", s.Pos)
	}
	u := b.underscore
	args := make([]sema.Expression, len(u.args))
	copy(args, u.args)
	b.cfg.Add(&Call{
		Pos:     b.loc(s.Pos),
		Res:     append([]int(nil), u.returns...),
		Returns: u.types,
		Call:    StaticCall{CfgNo: u.cfgNo},
		Args:    args,
	})
	return nil
}

// contractVariable resolves a storage variable reference
func (b *Builder) contractVariable(sv *sema.StorageVariable) (*sema.ContractVariable, error) {
	if sv.Contract < 0 || sv.Contract >= len(b.ns.Contracts) {
		return nil, errors.NewInternalError("contract %d does not exist", sv.Contract)
	}
	c := b.ns.Contracts[sv.Contract]
	if sv.Var < 0 || sv.Var >= len(c.Variables) {
		return nil, errors.NewInternalError("contract %s has no variable %d", c.Name, sv.Var)
	}
	return c.Variables[sv.Var], nil
}
