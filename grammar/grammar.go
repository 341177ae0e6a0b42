package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// File is a sequence of control flow graphs in their text form
type File struct {
	Graphs []*Graph `@@*`
}

type Graph struct {
	Pos        lexer.Position
	Kind       string   `"#" @("function" | "constructor" | "modifier" | "fallback" | "receive")`
	Name       []string `@Ident { "::" @Ident }`
	Public     string   `"public" ":" @("true" | "false")`
	Selector   *string  `[ @Selector ]`
	Nonpayable string   `"nonpayable" ":" @("true" | "false")`
	Params     []*Param `"#" "params" ":" [ @@ { "," @@ } ]`
	Returns    []*Param `"#" "returns" ":" [ @@ { "," @@ } ]`
	Blocks     []*Block `@@*`
}

type Param struct {
	Type string `@Ident`
	Name string `[ @Ident ]`
}

type Block struct {
	Pos    lexer.Position
	Label  string   `@Block ":"`
	Name   string   `"#" @Ident`
	Phis   []string `[ "#" "phis" ":" @Ident { "," @Ident } ]`
	Instrs []*Instr `@@*`
}

type Instr struct {
	Pos     lexer.Position
	Set     *SetInstr `  @@`
	Results []string  `| ( [ @Var { "," @Var } "=" ]`
	Op      *Op       `  @@ )`
}

type SetInstr struct {
	Type string `"ty" ":" @Ident`
	Res  string `@Var "="`
	Expr *Expr  `@@`
}

type Op struct {
	Call          *CallOp     `  @@`
	Return        *ReturnOp   `| @@`
	Branch        *string     `| "branch" @Block`
	BranchCond    *BranchCond `| @@`
	Switch        *SwitchOp   `| @@`
	LoadStorage   *StorageOp  `| "load" @@`
	SetStorage    *SetStorage `| @@`
	ClearStorage  *StorageOp  `| "clear" @@`
	AssertFailure *AssertOp   `| @@`
	Print         *Expr       `| "print" @@`
	Unreachable   bool        `| @"unreachable"`
	Nop           bool        `| @"nop"`
}

type CallOp struct {
	Static  *string `"call" ( "static" "#" @Number`
	Builtin *string `       | "builtin" "#" @Number`
	Host    *string `       | "host" @Ident )`
	Args    []*Expr `"(" [ @@ { "," @@ } ] ")"`
}

type ReturnOp struct {
	Values []*Expr `"return" [ @@ { "," @@ } ]`
}

type BranchCond struct {
	Cond  *Expr  `"branchcond" @@ ","`
	True  string `@Block ","`
	False string `@Block`
}

type SwitchOp struct {
	Cond    *Expr   `"switch" @@`
	Cases   []*Case `{ "," @@ }`
	Default string  `"," "default" ":" @Block`
}

type Case struct {
	Value *Expr  `"case" @@ ":"`
	Block string `@Block`
}

// StorageOp is the slot and type shared by storage loads and clears
type StorageOp struct {
	Slot *Expr  `"storage" "slot" "(" @@ ")"`
	Type string `"ty" ":" @Ident`
}

type SetStorage struct {
	Slot  *Expr  `"set" "storage" "slot" "(" @@ ")"`
	Type  string `"ty" ":" @Ident`
	Value *Expr  `"=" @@`
}

type AssertOp struct {
	Args *Expr `"assert" "-" "failure" [ ":" @@ ]`
}

type Expr struct {
	Pos     lexer.Position
	Not     *Expr    `  "!" @@`
	BitNot  *Expr    `| "~" @@`
	Neg     *Expr    `| "-" @@`
	Var     *string  `| @Var`
	Bool    *string  `| @("true" | "false")`
	Literal *Literal `| @@`
	Paren   *Paren   `| "(" @@ ")"`
}

type Literal struct {
	Type   string  `@Ident`
	Number *string `( @Number`
	Hex    *string `| @Hex )`
}

type Paren struct {
	Arg         *string   `  "arg" "#" @Number`
	Undefined   *string   `| "undefined" @Ident`
	Cast        *CastExpr `| @@`
	Overflowing *Binary   `| "overflowing" @@`
	Signed      *Signed   `| @@`
	Binary      *Binary   `| @@`
}

type CastExpr struct {
	Kind string `@("cast" | "zext" | "sext" | "trunc" | "bytescast")`
	Type string `@Ident`
	Expr *Expr  `@@`
}

// Signed is an operation whose signedness is spelled out
type Signed struct {
	Sign   string  `@("signed" | "unsigned")`
	Kind   string  `[ @("divide" | "modulo" | "more" | "less") ]`
	Binary *Binary `@@`
}

type Binary struct {
	Left  *Expr  `@@`
	Op    string `@Operator`
	Right *Expr  `@@`
}
