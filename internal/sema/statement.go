package sema

import "kiln/internal/source"

// Statement is a resolved statement of a function body
type Statement interface {
	Loc() source.Loc
	isStatement()
}

// VariableDecl declares local VarNo, optionally initialised
type VariableDecl struct {
	Pos   source.Loc
	VarNo int
	Init  Expression
}

// Assign stores Right into Left. Left is a Variable, a StorageVariable or a
// Subscript of a memory array.
type Assign struct {
	Pos   source.Loc
	Left  Expression
	Right Expression
}

// Expr evaluates an expression for its effects
type Expr struct {
	Pos  source.Loc
	Expr Expression
}

// If runs Then when Cond holds and Else otherwise
type If struct {
	Pos  source.Loc
	Cond Expression
	Then []Statement
	Else []Statement
}

// While loops over Body while Cond holds
type While struct {
	Pos  source.Loc
	Cond Expression
	Body []Statement
}

// DoWhile runs Body, then repeats while Cond holds
type DoWhile struct {
	Pos  source.Loc
	Body []Statement
	Cond Expression
}

// For is a C-style loop; a nil Cond loops forever
type For struct {
	Pos  source.Loc
	Init []Statement
	Cond Expression
	Next []Statement
	Body []Statement
}

// Break leaves the innermost loop
type Break struct{ Pos source.Loc }

// Continue starts the next iteration of the innermost loop
type Continue struct{ Pos source.Loc }

// Return leaves the function with Values
type Return struct {
	Pos    source.Loc
	Values []Expression
}

// Revert aborts execution and undoes its effects
type Revert struct{ Pos source.Loc }

// Assert aborts execution when Cond does not hold
type Assert struct {
	Pos  source.Loc
	Cond Expression
}

// Require aborts execution with Message when Cond does not hold
type Require struct {
	Pos     source.Loc
	Cond    Expression
	Message string
}

// Print writes a debug message
type Print struct {
	Pos  source.Loc
	Expr Expression
}

// Block groups statements; Unchecked blocks use wrapping arithmetic
type Block struct {
	Pos        source.Loc
	Unchecked  bool
	Statements []Statement
}

// Underscore marks where a modifier runs the modified function
type Underscore struct{ Pos source.Loc }

func (*VariableDecl) isStatement() {}
func (*Assign) isStatement()       {}
func (*Expr) isStatement()         {}
func (*If) isStatement()           {}
func (*While) isStatement()        {}
func (*DoWhile) isStatement()      {}
func (*For) isStatement()          {}
func (*Break) isStatement()        {}
func (*Continue) isStatement()     {}
func (*Return) isStatement()       {}
func (*Revert) isStatement()       {}
func (*Assert) isStatement()       {}
func (*Require) isStatement()      {}
func (*Print) isStatement()        {}
func (*Block) isStatement()        {}
func (*Underscore) isStatement()   {}

func (s *VariableDecl) Loc() source.Loc { return s.Pos }
func (s *Assign) Loc() source.Loc       { return s.Pos }
func (s *Expr) Loc() source.Loc         { return s.Pos }
func (s *If) Loc() source.Loc           { return s.Pos }
func (s *While) Loc() source.Loc        { return s.Pos }
func (s *DoWhile) Loc() source.Loc      { return s.Pos }
func (s *For) Loc() source.Loc          { return s.Pos }
func (s *Break) Loc() source.Loc        { return s.Pos }
func (s *Continue) Loc() source.Loc     { return s.Pos }
func (s *Return) Loc() source.Loc       { return s.Pos }
func (s *Revert) Loc() source.Loc       { return s.Pos }
func (s *Assert) Loc() source.Loc       { return s.Pos }
func (s *Require) Loc() source.Loc      { return s.Pos }
func (s *Print) Loc() source.Loc        { return s.Pos }
func (s *Block) Loc() source.Loc        { return s.Pos }
func (s *Underscore) Loc() source.Loc   { return s.Pos }
