package codegen

import (
	"fmt"
	"math/big"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"kiln/internal/errors"
	"kiln/internal/sema"
	"kiln/internal/source"
)

// StorageKind says where a variable lives
type StorageKind int

const (
	StorageLocal StorageKind = iota
	StorageConstant
	StorageContract
)

// Storage is the storage class of a variable. Constant variables name the
// contract variable they fold to; contract variables carry their slot.
type Storage struct {
	Kind     StorageKind
	Contract int
	Var      int
	Slot     *big.Int
}

// Variable is an entry of the Vartable
type Variable struct {
	ID      int
	Name    string
	Pos     source.Loc
	Ty      sema.Type
	Storage Storage
}

// DirtyTracker collects the variables below Limit assigned within a region
type DirtyTracker struct {
	Limit int
	Set   mapset.Set[int]
}

// Vartable maps variable ids to their metadata for one function. Ids are
// handed out by a counter owned by the table.
type Vartable struct {
	vars   map[int]*Variable
	nextID int
	dirty  []*DirtyTracker
}

// NewVartable creates an empty table whose first fresh id is nextID
func NewVartable(nextID int) *Vartable {
	return &Vartable{
		vars:   make(map[int]*Variable),
		nextID: nextID,
	}
}

// FromSymtable creates a table holding the declared locals of a function
func FromSymtable(sym *sema.Symtable, nextID int) *Vartable {
	if nextID < sym.NextID() {
		nextID = sym.NextID()
	}
	vt := NewVartable(nextID)
	for _, id := range sym.IDs() {
		s := sym.Vars[id]
		vt.vars[id] = &Variable{
			ID:   id,
			Name: vt.makeUnique(s.Name, id),
			Pos:  s.Pos,
			Ty:   s.Ty,
		}
	}
	return vt
}

func (vt *Vartable) makeUnique(name string, id int) string {
	if name == "" {
		return fmt.Sprintf("temp.%d", id)
	}
	for _, v := range vt.vars {
		if v.Name == name {
			return fmt.Sprintf("%s.%d", name, id)
		}
	}
	return name
}

// AddKnown registers a variable whose id was assigned elsewhere
func (vt *Vartable) AddKnown(id int, name string, ty sema.Type) error {
	if _, ok := vt.vars[id]; ok {
		return errors.NewInternalError("variable %d already in vartable", id)
	}
	vt.vars[id] = &Variable{ID: id, Name: vt.makeUnique(name, id), Ty: ty}
	if id >= vt.nextID {
		vt.nextID = id + 1
	}
	return nil
}

func (vt *Vartable) fresh(name string, loc source.Loc, ty sema.Type) int {
	id := vt.nextID
	vt.nextID++
	vt.vars[id] = &Variable{ID: id, Name: name, Pos: loc, Ty: ty}
	return id
}

// TempAnonymous creates a temporary named temp.<id>
func (vt *Vartable) TempAnonymous(ty sema.Type) int {
	return vt.fresh(fmt.Sprintf("temp.%d", vt.nextID), source.Codegen, ty)
}

// TempNamed creates a temporary for a source identifier, named <name>.temp.<id>
func (vt *Vartable) TempNamed(name string, loc source.Loc, ty sema.Type) int {
	return vt.fresh(fmt.Sprintf("%s.temp.%d", name, vt.nextID), loc, ty)
}

// TempName creates a compiler scratch variable named <name>.temp.<id>
func (vt *Vartable) TempName(name string, ty sema.Type) int {
	return vt.TempNamed(name, source.Codegen, ty)
}

// AddStorageVar creates a variable standing for a contract variable
func (vt *Vartable) AddStorageVar(name string, ty sema.Type, storage Storage) int {
	id := vt.fresh(fmt.Sprintf("%s.temp.%d", name, vt.nextID), source.Codegen, ty)
	vt.vars[id].Storage = storage
	return id
}

// Get looks up a variable; a missing id is an internal error
func (vt *Vartable) Get(id int) (*Variable, error) {
	v, ok := vt.vars[id]
	if !ok {
		return nil, errors.NewInternalError("variable %d is not in the vartable", id)
	}
	return v, nil
}

// Lookup returns the variable or nil
func (vt *Vartable) Lookup(id int) *Variable {
	return vt.vars[id]
}

// Name returns the display name of a variable, or "<id>" when unknown
func (vt *Vartable) Name(id int) string {
	if v, ok := vt.vars[id]; ok {
		return v.Name
	}
	return fmt.Sprintf("<%d>", id)
}

// NextID is the id the next temporary will receive
func (vt *Vartable) NextID() int {
	return vt.nextID
}

// Len returns the number of variables
func (vt *Vartable) Len() int {
	return len(vt.vars)
}

// IDs returns every variable id in ascending order
func (vt *Vartable) IDs() []int {
	ids := make([]int, 0, len(vt.vars))
	for id := range vt.vars {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// SetDirty records an assignment to id in every tracker the variable
// predates
func (vt *Vartable) SetDirty(id int) {
	for _, t := range vt.dirty {
		if id < t.Limit {
			t.Set.Add(id)
		}
	}
}

// NewDirtyTracker starts tracking assignments. Variables created after
// this call are never reported by the tracker.
func (vt *Vartable) NewDirtyTracker() {
	vt.dirty = append(vt.dirty, &DirtyTracker{
		Limit: vt.nextID,
		Set:   mapset.NewThreadUnsafeSet[int](),
	})
}

// PopDirtyTracker ends the innermost tracker and returns the variables
// assigned while it was active
func (vt *Vartable) PopDirtyTracker() mapset.Set[int] {
	if len(vt.dirty) == 0 {
		return mapset.NewThreadUnsafeSet[int]()
	}
	t := vt.dirty[len(vt.dirty)-1]
	vt.dirty = vt.dirty[:len(vt.dirty)-1]
	return t.Set
}

// Trackers returns the depth of the dirty tracker stack
func (vt *Vartable) Trackers() int {
	return len(vt.dirty)
}

// SortedSet returns the members of a variable set in ascending order
func SortedSet(set mapset.Set[int]) []int {
	if set == nil {
		return nil
	}
	ids := set.ToSlice()
	sort.Ints(ids)
	return ids
}
