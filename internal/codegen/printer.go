package codegen

import (
	"encoding/hex"
	"fmt"
	"strings"

	"kiln/internal/sema"
)

// Printer renders control flow graphs in their canonical text form
type Printer struct {
	indent int
	output strings.Builder
	cfg    *ControlFlowGraph
}

// NewPrinter creates a printer for one graph
func NewPrinter(cfg *ControlFlowGraph) *Printer {
	return &Printer{cfg: cfg}
}

// PrintCFG returns the text form of a graph
func PrintCFG(cfg *ControlFlowGraph) string {
	p := NewPrinter(cfg)
	p.printCFG()
	return p.output.String()
}

// PrintProgram returns the text form of every generated graph, separated
// by blank lines
func PrintProgram(prog *Program) string {
	var parts []string
	for _, cfg := range prog.CFGs {
		if cfg.IsPlaceholder() {
			continue
		}
		parts = append(parts, PrintCFG(cfg))
	}
	return strings.Join(parts, "\n")
}

func (p *Printer) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.output.WriteString("\t")
	}
}

func (p *Printer) writeLine(format string, args ...interface{}) {
	p.writeIndent()
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

func (p *Printer) printCFG() {
	cfg := p.cfg
	header := fmt.Sprintf("# %s %s public:%t", cfg.Kind, cfg.Name, cfg.Public)
	if len(cfg.Selector) > 0 {
		header += " selector:" + hex.EncodeToString(cfg.Selector)
	}
	header += fmt.Sprintf(" nonpayable:%t", cfg.Nonpayable)
	p.writeLine("%s", header)
	p.writeLine("%s", strings.TrimSpace("# params: "+paramList(cfg.Params)))
	p.writeLine("%s", strings.TrimSpace("# returns: "+paramList(cfg.Returns)))

	for i, b := range cfg.Blocks {
		p.writeLine("block%d: # %s", i, b.Name)
		p.indent++
		if phis := b.PhiList(); len(phis) > 0 {
			names := make([]string, len(phis))
			for n, id := range phis {
				names[n] = cfg.Vars.Name(id)
			}
			p.writeLine("# phis: %s", strings.Join(names, ","))
		}
		for _, instr := range b.Instrs {
			p.writeLine("%s", p.InstrString(instr))
		}
		p.indent--
	}
}

func paramList(params []sema.Parameter) string {
	parts := make([]string, len(params))
	for i, param := range params {
		if param.Name == "" {
			parts[i] = param.Ty.String()
		} else {
			parts[i] = param.Ty.String() + " " + param.Name
		}
	}
	return strings.Join(parts, ", ")
}

func (p *Printer) varName(id int) string {
	return "%" + p.cfg.Vars.Name(id)
}

func (p *Printer) exprList(list []sema.Expression) string {
	parts := make([]string, len(list))
	for i, e := range list {
		parts[i] = p.ExprString(e)
	}
	return strings.Join(parts, ", ")
}

// InstrString renders one instruction
func (p *Printer) InstrString(instr Instr) string {
	switch i := instr.(type) {
	case *Nop:
		return "nop"
	case *Set:
		return fmt.Sprintf("ty:%s %s = %s", p.varType(i.Res), p.varName(i.Res), p.ExprString(i.Expr))
	case *Call:
		prefix := ""
		if len(i.Res) > 0 {
			names := make([]string, len(i.Res))
			for n, id := range i.Res {
				names[n] = p.varName(id)
			}
			prefix = strings.Join(names, ", ") + " = "
		}
		return fmt.Sprintf("%scall %s(%s)", prefix, p.callTyString(i.Call), p.exprList(i.Args))
	case *Return:
		if len(i.Values) == 0 {
			return "return"
		}
		return "return " + p.exprList(i.Values)
	case *Branch:
		return fmt.Sprintf("branch block%d", i.Block)
	case *BranchCond:
		return fmt.Sprintf("branchcond %s, block%d, block%d", p.ExprString(i.Cond), i.True, i.False)
	case *Switch:
		var sb strings.Builder
		sb.WriteString("switch " + p.ExprString(i.Cond))
		for _, c := range i.Cases {
			fmt.Fprintf(&sb, ", case %s: block%d", p.ExprString(c.Value), c.Block)
		}
		fmt.Fprintf(&sb, ", default: block%d", i.Default)
		return sb.String()
	case *Store:
		return fmt.Sprintf("store %s, %s", p.ExprString(i.Dest), p.ExprString(i.Data))
	case *LoadStorage:
		return fmt.Sprintf("%s = load storage slot(%s) ty:%s", p.varName(i.Res), p.ExprString(i.Storage), i.Ty)
	case *SetStorage:
		return fmt.Sprintf("set storage slot(%s) ty:%s = %s", p.ExprString(i.Storage), i.Ty, p.ExprString(i.Value))
	case *ClearStorage:
		return fmt.Sprintf("clear storage slot(%s) ty:%s", p.ExprString(i.Storage), i.Ty)
	case *PushMemory:
		return fmt.Sprintf("%s = push array %s ty:%s value:%s", p.varName(i.Res), p.varName(i.Array), i.Ty, p.ExprString(i.Value))
	case *PopMemory:
		return fmt.Sprintf("%s = pop array %s ty:%s", p.varName(i.Res), p.varName(i.Array), i.Ty)
	case *ExternalCall:
		var sb strings.Builder
		if i.Success != NoVar {
			sb.WriteString(p.varName(i.Success) + " = ")
		}
		fmt.Fprintf(&sb, "external call::%s address:%s payload:%s", i.CallTy, p.ExprString(i.Address), p.ExprString(i.Payload))
		if i.Value != nil {
			sb.WriteString(" value:" + p.ExprString(i.Value))
		}
		if i.Gas != nil {
			sb.WriteString(" gas:" + p.ExprString(i.Gas))
		}
		switch i.Accounts.Kind {
		case sema.AccountsNone:
			sb.WriteString(" accounts:[]")
		case sema.AccountsPresent:
			sb.WriteString(" accounts:" + p.ExprString(i.Accounts.Expr))
		}
		if len(i.Returns) > 0 {
			names := make([]string, len(i.Returns))
			for n, id := range i.Returns {
				names[n] = p.varName(id)
			}
			sb.WriteString(" returns:" + strings.Join(names, ", "))
		}
		return sb.String()
	case *AssertFailure:
		if i.EncodedArgs == nil {
			return "assert-failure"
		}
		return "assert-failure: " + p.ExprString(i.EncodedArgs)
	case *Print:
		return "print " + p.ExprString(i.Expr)
	case *Unreachable:
		return "unreachable"
	}
	return fmt.Sprintf("<unknown %T>", instr)
}

func (p *Printer) varType(id int) string {
	if v := p.cfg.Vars.Lookup(id); v != nil && v.Ty != nil {
		return v.Ty.String()
	}
	return "unresolved"
}

func (p *Printer) callTyString(c InternalCallTy) string {
	switch c := c.(type) {
	case StaticCall:
		return fmt.Sprintf("static #%d", c.CfgNo)
	case DynamicCall:
		return "dynamic " + p.ExprString(c.Expr)
	case BuiltinCall:
		return fmt.Sprintf("builtin #%d", c.Function)
	case HostFunctionCall:
		return "host " + c.Name
	}
	return "?"
}

var binaryOpText = map[sema.BinaryOp]string{
	sema.Add:            "+",
	sema.Subtract:       "-",
	sema.Multiply:       "*",
	sema.Power:          "**",
	sema.SignedDivide:   "/",
	sema.UnsignedDivide: "/",
	sema.SignedModulo:   "%",
	sema.UnsignedModulo: "%",
	sema.BitwiseAnd:     "&",
	sema.BitwiseOr:      "|",
	sema.BitwiseXor:     "^",
	sema.ShiftLeft:      "<<",
	sema.ShiftRight:     ">>",
	sema.Equal:          "==",
	sema.NotEqual:       "!=",
	sema.Less:           "<",
	sema.LessEqual:      "<=",
	sema.More:           ">",
	sema.MoreEqual:      ">=",
	sema.And:            "&&",
	sema.Or:             "||",
}

// BinaryOpText returns the operator symbol used in the text form
func BinaryOpText(op sema.BinaryOp) string {
	return binaryOpText[op]
}

func signedness(signed bool) string {
	if signed {
		return "signed"
	}
	return "unsigned"
}

// ExprString renders an expression
func (p *Printer) ExprString(e sema.Expression) string {
	switch e := e.(type) {
	case nil:
		return "<nil>"
	case *sema.NumberLiteral:
		return fmt.Sprintf("%s %s", e.Ty, e.Value)
	case *sema.BoolLiteral:
		return fmt.Sprintf("%t", e.Value)
	case *sema.BytesLiteral:
		return fmt.Sprintf("%s hex\"%s\"", e.Ty, hex.EncodeToString(e.Value))
	case *sema.Variable:
		return p.varName(e.VarNo)
	case *sema.FunctionArg:
		return fmt.Sprintf("(arg #%d)", e.ArgNo)
	case *sema.Binary:
		l, r := p.ExprString(e.Left), p.ExprString(e.Right)
		op := binaryOpText[e.Op]
		switch e.Op {
		case sema.SignedDivide:
			return fmt.Sprintf("(signed divide %s / %s)", l, r)
		case sema.UnsignedDivide:
			return fmt.Sprintf("(unsigned divide %s / %s)", l, r)
		case sema.SignedModulo:
			return fmt.Sprintf("(signed modulo %s %% %s)", l, r)
		case sema.UnsignedModulo:
			return fmt.Sprintf("(unsigned modulo %s %% %s)", l, r)
		case sema.More:
			return fmt.Sprintf("(%s more %s > %s)", signedness(e.Signed), l, r)
		case sema.Less:
			return fmt.Sprintf("(%s less %s < %s)", signedness(e.Signed), l, r)
		case sema.MoreEqual, sema.LessEqual:
			return fmt.Sprintf("(%s %s %s %s)", signedness(e.Signed), l, op, r)
		case sema.ShiftRight:
			if e.Signed {
				return fmt.Sprintf("(signed %s >> %s)", l, r)
			}
		case sema.Add, sema.Subtract, sema.Multiply, sema.Power, sema.ShiftLeft:
			if e.Overflowing {
				return fmt.Sprintf("(overflowing %s %s %s)", l, op, r)
			}
		}
		return fmt.Sprintf("(%s %s %s)", l, op, r)
	case *sema.Unary:
		switch e.Op {
		case sema.Not:
			return "!" + p.ExprString(e.Expr)
		case sema.BitwiseNot:
			return "~" + p.ExprString(e.Expr)
		default:
			return "-" + p.ExprString(e.Expr)
		}
	case *sema.Cast:
		kind := map[sema.CastKind]string{
			sema.PlainCast: "cast",
			sema.ZeroExt:   "zext",
			sema.SignExt:   "sext",
			sema.Trunc:     "trunc",
			sema.BytesCast: "bytescast",
		}[e.Kind]
		return fmt.Sprintf("(%s %s %s)", kind, e.Ty, p.ExprString(e.Expr))
	case *sema.Subscript:
		return fmt.Sprintf("(subscript %s %s[%s])", e.ArrayTy, p.ExprString(e.Array), p.ExprString(e.Index))
	case *sema.StructMember:
		return fmt.Sprintf("(struct %s field %d)", p.ExprString(e.Expr), e.Member)
	case *sema.Load:
		return fmt.Sprintf("(load %s)", p.ExprString(e.Expr))
	case *sema.AllocDynamicBytes:
		if e.Initializer != nil {
			return fmt.Sprintf("(alloc %s len %s hex\"%s\")", e.Ty, p.ExprString(e.Size), hex.EncodeToString(e.Initializer))
		}
		return fmt.Sprintf("(alloc %s len %s)", e.Ty, p.ExprString(e.Size))
	case *sema.ArrayLengthExpr:
		return fmt.Sprintf("(array length %s)", p.ExprString(e.Array))
	case *sema.StorageVariable:
		return fmt.Sprintf("(storage var %d.%d)", e.Contract, e.Var)
	case *sema.InternalCall:
		return fmt.Sprintf("(call #%d(%s))", e.Function, p.exprList(e.Args))
	case *sema.ExternalCall:
		return fmt.Sprintf("(external call %s(%s))", p.ExprString(e.Address), p.ExprString(e.Payload))
	case *sema.Builtin:
		return fmt.Sprintf("(builtin %s(%s))", e.Kind, p.exprList(e.Args))
	case *sema.Ternary:
		return fmt.Sprintf("(%s ? %s : %s)", p.ExprString(e.Cond), p.ExprString(e.Left), p.ExprString(e.Right))
	case *sema.Undefined:
		return fmt.Sprintf("(undefined %s)", e.Ty)
	}
	return fmt.Sprintf("<unknown %T>", e)
}
