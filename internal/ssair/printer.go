package ssair

import (
	"fmt"
	"strings"
)

// Printer renders converted functions in their canonical text form. Every
// operand is printed with its type.
type Printer struct {
	vars *Vartable
}

func NewPrinter(vars *Vartable) *Printer {
	return &Printer{vars: vars}
}

// PrintCfg returns the text form of cfg
func PrintCfg(cfg *Cfg) string {
	p := NewPrinter(cfg.Vars)
	var sb strings.Builder
	visibility := "private"
	if cfg.Public {
		visibility = "public"
	}
	fmt.Fprintf(&sb, "%s %s sol#%d %s (%s) returns (%s):\n",
		visibility, cfg.Kind, cfg.Function, cfg.Name, paramTypes(cfg.Params), paramTypes(cfg.Returns))
	for no, block := range cfg.Blocks {
		if no > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "block#%d %s:\n", no, block.Name)
		for _, instr := range block.Instructions {
			sb.WriteString("    ")
			sb.WriteString(p.InstrString(instr))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func paramTypes(params []Parameter) string {
	types := make([]Type, len(params))
	for i, p := range params {
		types[i] = p.Ty
	}
	return typeList(types)
}

func (p *Printer) varType(id int) string {
	if v, ok := p.vars.Var(id); ok {
		return v.Ty.String()
	}
	return "?"
}

func (p *Printer) varName(id int) string {
	if v, ok := p.vars.Var(id); ok {
		return v.Name
	}
	return fmt.Sprintf("%d", id)
}

// lhs renders a destination variable as "ty %name"
func (p *Printer) lhs(id int) string {
	return fmt.Sprintf("%s %%%s", p.varType(id), p.varName(id))
}

// OperandString renders an operand used as a value
func (p *Printer) OperandString(op Operand) string {
	switch o := op.(type) {
	case *Id:
		return fmt.Sprintf("%s(%%%s)", p.varType(o.ID), p.varName(o.ID))
	case *BoolLiteral:
		return fmt.Sprintf("%t", o.Value)
	case *NumberLiteral:
		return fmt.Sprintf("%s(%s)", o.Ty, o.Value)
	}
	return "_"
}

func (p *Printer) operandList(ops []Operand) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = p.OperandString(op)
	}
	return strings.Join(parts, ", ")
}

func hexBytes(b []byte, sep string) string {
	parts := make([]string, len(b))
	for i, c := range b {
		parts[i] = fmt.Sprintf("%02x", c)
	}
	return strings.Join(parts, sep)
}

// ExprString renders the right hand side of a Set
func (p *Printer) ExprString(e Expression) string {
	switch n := e.(type) {
	case *OperandExpr:
		return p.OperandString(n.Operand)
	case *BinaryExpr:
		return fmt.Sprintf("%s %s %s", p.OperandString(n.Left), n.Operator, p.OperandString(n.Right))
	case *UnaryExpr:
		return n.Operator.String() + p.OperandString(n.Operand)
	case *BytesLiteral:
		return fmt.Sprintf("%s hex\"%s\"", n.Ty, hexBytes(n.Value, "_"))
	case *Cast:
		return fmt.Sprintf("(cast %s to %s)", p.OperandString(n.Operand), n.To)
	case *BytesCast:
		return fmt.Sprintf("(cast %s to %s)", p.OperandString(n.Operand), n.To)
	case *ZeroExt:
		return fmt.Sprintf("(zext %s to %s)", p.OperandString(n.Operand), n.To)
	case *SignExt:
		return fmt.Sprintf("(sext %s to %s)", p.OperandString(n.Operand), n.To)
	case *Trunc:
		return fmt.Sprintf("(trunc %s to %s)", p.OperandString(n.Operand), n.To)
	case *AllocDynamicBytes:
		s := fmt.Sprintf("alloc %s[%s]", n.Ty, p.OperandString(n.Size))
		if n.Initializer != nil {
			s += " {" + hexBytes(n.Initializer, ", ") + "}"
		}
		return s
	case *Load:
		return "*" + p.OperandString(n.Operand)
	case *StructMember:
		return fmt.Sprintf("access %s member %d", p.OperandString(n.Operand), n.Member)
	case *Subscript:
		return fmt.Sprintf("%s[%s]", p.OperandString(n.Array), p.OperandString(n.Index))
	case *ArrayLength:
		return fmt.Sprintf("array_len(%s)", p.OperandString(n.Array))
	case *FunctionArg:
		return fmt.Sprintf("%s(arg#%d)", n.Ty, n.ArgNo)
	case *Builtin:
		return fmt.Sprintf("builtin: %s(%s)", n.Kind, p.operandList(n.Args))
	case *Undefined:
		return fmt.Sprintf("undef %s", n.Ty)
	}
	return fmt.Sprintf("<%T>", e)
}

func (p *Printer) optional(label string, op Operand) string {
	if op == nil {
		return label + ":_"
	}
	return label + ":" + p.OperandString(op)
}

func (p *Printer) callTyString(c CallTy) string {
	switch t := c.(type) {
	case StaticCall:
		return fmt.Sprintf("function#%d", t.CfgNo)
	case BuiltinCall:
		return fmt.Sprintf("builtin#%d", t.Function)
	case HostFunctionCall:
		return "host_function#" + t.Name
	case DynamicCall:
		return p.OperandString(t.Function)
	}
	return "_"
}

// InstrString renders one instruction, without indentation
func (p *Printer) InstrString(instr Instruction) string {
	switch i := instr.(type) {
	case *Nop:
		return "nop;"
	case *Set:
		return fmt.Sprintf("%s = %s;", p.lhs(i.Res), p.ExprString(i.Expr))
	case *Store:
		return fmt.Sprintf("store %s to %s;", p.OperandString(i.Data), p.OperandString(i.Dest))
	case *LoadStorage:
		return fmt.Sprintf("%s = load_storage %s;", p.lhs(i.Res), p.OperandString(i.Storage))
	case *SetStorage:
		return fmt.Sprintf("set_storage %s %s;", p.OperandString(i.Storage), p.OperandString(i.Value))
	case *ClearStorage:
		return fmt.Sprintf("clear_storage %s;", p.OperandString(i.Storage))
	case *PushMemory:
		return fmt.Sprintf("%s = push_mem %s %s;", p.lhs(i.Res), p.OperandString(&Id{ID: i.Array}), p.OperandString(i.Value))
	case *PopMemory:
		return fmt.Sprintf("%s = pop_mem %s;", p.lhs(i.Res), p.OperandString(&Id{ID: i.Array}))
	case *Call:
		res := make([]string, len(i.Res))
		for n, id := range i.Res {
			res[n] = p.lhs(id)
		}
		call := fmt.Sprintf("call %s(%s);", p.callTyString(i.Call), p.operandList(i.Args))
		if len(res) == 0 {
			return call
		}
		return strings.Join(res, ", ") + " = " + call
	case *ExternalCall:
		return p.externalCall(i)
	case *Print:
		if i.Message.RunTime != nil {
			return fmt.Sprintf("print %s;", p.OperandString(i.Message.RunTime))
		}
		return fmt.Sprintf("print %q;", i.Message.CompileTime)
	case *AssertFailure:
		if i.EncodedArgs == nil {
			return "assert_failure;"
		}
		return fmt.Sprintf("assert_failure %s;", p.OperandString(i.EncodedArgs))
	case *Branch:
		return fmt.Sprintf("br block#%d;", i.Block)
	case *BranchCond:
		return fmt.Sprintf("cbr %s block#%d else block#%d;", p.OperandString(i.Cond), i.True, i.False)
	case *Switch:
		var sb strings.Builder
		fmt.Fprintf(&sb, "switch %s:", p.OperandString(i.Cond))
		for _, c := range i.Cases {
			fmt.Fprintf(&sb, "\n    case:    %s => block#%d", p.OperandString(c.Value), c.Block)
		}
		fmt.Fprintf(&sb, "\n    default: block#%d;", i.Default)
		return sb.String()
	case *Return:
		if len(i.Values) == 0 {
			return "return;"
		}
		return fmt.Sprintf("return %s;", p.operandList(i.Values))
	case *Unreachable:
		return "unreachable;"
	}
	return fmt.Sprintf("<%T>;", instr)
}

func (p *Printer) externalCall(i *ExternalCall) string {
	success := "_"
	if i.Success >= 0 {
		success = p.lhs(i.Success)
	}
	accounts := "accounts:absent"
	switch i.Accounts.Kind {
	case AccountsNone:
		accounts = "accounts:none"
	case AccountsPresent:
		accounts = "accounts:" + p.OperandString(i.Accounts.Accounts)
	}
	if len(i.Returns) > 0 {
		lhs := []string{success}
		for _, id := range i.Returns {
			lhs = append(lhs, p.lhs(id))
		}
		success = strings.Join(lhs, ", ")
	}
	return fmt.Sprintf("%s = call_ext [%s] %s %s %s %s %s;",
		success, i.CallTy,
		p.optional("address", i.Address),
		p.optional("payload", i.Payload),
		p.optional("value", i.Value),
		p.optional("gas", i.Gas),
		accounts)
}
