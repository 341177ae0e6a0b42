package ssair

import (
	"fmt"
	"sort"

	"kiln/internal/errors"
	"kiln/internal/sema"
	"kiln/internal/source"
)

// TempPrefix starts the name of every temporary the converter creates
const TempPrefix = "temp.ssa_ir."

// Var is a named value of the IR. SemaTy keeps the type it had in the
// typed program.
type Var struct {
	ID     int
	Ty     Type
	SemaTy sema.Type
	Name   string
}

// Vartable holds the variables of one converted function. Function
// arguments are bound to the variable their value was first copied to.
type Vartable struct {
	vars   map[int]*Var
	args   map[int]int
	nextID int
}

// NewVartable creates an empty table whose first temporary is nextID
func NewVartable(nextID int) *Vartable {
	return &Vartable{
		vars:   make(map[int]*Var),
		args:   make(map[int]int),
		nextID: nextID,
	}
}

// Add registers a variable with an existing id
func (vt *Vartable) Add(id int, ty Type, semaTy sema.Type, name string) {
	vt.vars[id] = &Var{ID: id, Ty: ty, SemaTy: semaTy, Name: name}
	if id >= vt.nextID {
		vt.nextID = id + 1
	}
}

// NewTemp creates a fresh temporary and returns an operand naming it
func (vt *Vartable) NewTemp(ty Type, semaTy sema.Type) *Id {
	id := vt.nextID
	vt.nextID++
	vt.vars[id] = &Var{ID: id, Ty: ty, SemaTy: semaTy, Name: fmt.Sprintf("%s%d", TempPrefix, id)}
	return &Id{ID: id, Pos: source.Codegen}
}

// Var returns the variable with the given id
func (vt *Vartable) Var(id int) (*Var, bool) {
	v, ok := vt.vars[id]
	return v, ok
}

func (vt *Vartable) Type(id int) (Type, error) {
	v, ok := vt.vars[id]
	if !ok {
		return nil, errors.NewInternalError("variable %d not found", id)
	}
	return v.Ty, nil
}

func (vt *Vartable) Name(id int) (string, error) {
	v, ok := vt.vars[id]
	if !ok {
		return "", errors.NewInternalError("variable %d not found", id)
	}
	return v.Name, nil
}

// Len is the number of variables in the table
func (vt *Vartable) Len() int {
	return len(vt.vars)
}

// IDs returns the variable ids in ascending order
func (vt *Vartable) IDs() []int {
	ids := make([]int, 0, len(vt.vars))
	for id := range vt.vars {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// AddFunctionArg binds argument argNo to variable id
func (vt *Vartable) AddFunctionArg(argNo, id int) {
	vt.args[argNo] = id
}

// FunctionArg returns the variable argument argNo is bound to
func (vt *Vartable) FunctionArg(argNo int, pos source.Loc) (*Id, bool) {
	id, ok := vt.args[argNo]
	if !ok {
		return nil, false
	}
	return &Id{ID: id, Pos: pos}, true
}

// GetFunctionArg is FunctionArg for callers that need the argument to be
// bound already
func (vt *Vartable) GetFunctionArg(argNo int, pos source.Loc) (*Id, error) {
	op, ok := vt.FunctionArg(argNo, pos)
	if !ok {
		return nil, errors.NewInternalError("function argument %d is not bound to a variable", argNo)
	}
	return op, nil
}
