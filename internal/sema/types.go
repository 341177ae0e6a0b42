package sema

import (
	"fmt"
	"strings"
)

// Type is a resolved type of the source language.
type Type interface {
	String() string
	isType()
}

// Bool is the boolean type
type Bool struct{}

// Int is a signed integer of Bits width
type Int struct{ Bits int }

// Uint is an unsigned integer of Bits width
type Uint struct{ Bits int }

// Value is the target's native currency amount
type Value struct{}

// Address is an account address; payable addresses can receive value
type Address struct{ Payable bool }

// Contract is a reference to a deployed contract of the given contract number
type Contract struct {
	No   int
	Name string
}

// Bytes is a fixed length byte array, bytes1 to bytes32
type Bytes struct{ N int }

// DynamicBytes is a growable byte array in memory
type DynamicBytes struct{}

// String is a growable utf-8 string in memory
type String struct{}

// ArrayLength is one dimension of an array; Fixed dimensions carry N
type ArrayLength struct {
	Fixed bool
	N     int
}

// Array is an array of Elem; Dims lists dimensions innermost first
type Array struct {
	Elem Type
	Dims []ArrayLength
}

// Enum is a user-defined enum
type Enum struct {
	No   int
	Name string
}

// Struct is a user-defined struct
type Struct struct {
	No   int
	Name string
}

// Mapping is a storage mapping from Key to Value
type Mapping struct {
	Key   Type
	Value Type
}

// Ref is a reference to a value in memory
type Ref struct{ Elem Type }

// StorageRef is a reference to a value in contract storage
type StorageRef struct {
	Immutable bool
	Elem      Type
}

// UserType is a user-defined value type wrapping a primitive
type UserType struct {
	No   int
	Name string
}

// FunctionSelector is the selector of an external function
type FunctionSelector struct{}

// Slice is a read-only view of an array
type Slice struct{ Elem Type }

// InternalFunction is a pointer to a function within the same contract
type InternalFunction struct {
	Params  []Type
	Returns []Type
}

// Void is the type of expressions without value
type Void struct{}

// Unreachable is the type of expressions which never return
type Unreachable struct{}

// Unresolved is a placeholder left by a failed resolution
type Unresolved struct{}

func (Bool) isType()             {}
func (Int) isType()              {}
func (Uint) isType()             {}
func (Value) isType()            {}
func (Address) isType()          {}
func (Contract) isType()         {}
func (Bytes) isType()            {}
func (DynamicBytes) isType()     {}
func (String) isType()           {}
func (Array) isType()            {}
func (Enum) isType()             {}
func (Struct) isType()           {}
func (Mapping) isType()          {}
func (Ref) isType()              {}
func (StorageRef) isType()       {}
func (UserType) isType()         {}
func (FunctionSelector) isType() {}
func (Slice) isType()            {}
func (InternalFunction) isType() {}
func (Void) isType()             {}
func (Unreachable) isType()      {}
func (Unresolved) isType()       {}

func (Bool) String() string    { return "bool" }
func (t Int) String() string   { return fmt.Sprintf("int%d", t.Bits) }
func (t Uint) String() string  { return fmt.Sprintf("uint%d", t.Bits) }
func (Value) String() string   { return "value" }
func (t Bytes) String() string { return fmt.Sprintf("bytes%d", t.N) }

func (t Address) String() string {
	if t.Payable {
		return "address payable"
	}
	return "address"
}

func (t Contract) String() string       { return "contract " + t.Name }
func (DynamicBytes) String() string     { return "bytes" }
func (String) String() string           { return "string" }
func (t Enum) String() string           { return "enum " + t.Name }
func (t Struct) String() string         { return "struct " + t.Name }
func (t Ref) String() string            { return t.Elem.String() + " memory" }
func (t UserType) String() string       { return "usertype " + t.Name }
func (FunctionSelector) String() string { return "function_selector" }
func (t Slice) String() string          { return "slice " + t.Elem.String() }
func (Void) String() string             { return "void" }
func (Unreachable) String() string      { return "unreachable" }
func (Unresolved) String() string       { return "unresolved" }

func (t Array) String() string {
	var sb strings.Builder
	sb.WriteString(t.Elem.String())
	for _, d := range t.Dims {
		if d.Fixed {
			fmt.Fprintf(&sb, "[%d]", d.N)
		} else {
			sb.WriteString("[]")
		}
	}
	return sb.String()
}

func (t Mapping) String() string {
	return fmt.Sprintf("mapping(%s => %s)", t.Key, t.Value)
}

func (t StorageRef) String() string {
	if t.Immutable {
		return t.Elem.String() + " storage immutable"
	}
	return t.Elem.String() + " storage"
}

func (t InternalFunction) String() string {
	return fmt.Sprintf("function(%s) internal returns (%s)", joinTypes(t.Params), joinTypes(t.Returns))
}

func joinTypes(tys []Type) string {
	parts := make([]string, len(tys))
	for i, ty := range tys {
		parts[i] = ty.String()
	}
	return strings.Join(parts, ",")
}

// TypesEqual compares two types structurally
func TypesEqual(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.String() == b.String()
}

// IsSignedInt reports whether ty is a signed integer
func IsSignedInt(ty Type) bool {
	_, ok := ty.(Int)
	return ok
}

// IsInteger reports whether ty is Int or Uint
func IsInteger(ty Type) bool {
	switch ty.(type) {
	case Int, Uint:
		return true
	}
	return false
}

// IsReference reports whether values of ty live behind a pointer
func IsReference(ty Type) bool {
	switch ty.(type) {
	case Array, Struct, DynamicBytes, String, Ref, Slice:
		return true
	}
	return false
}

// IsDynamic reports whether ty has a length known only at runtime
func IsDynamic(ty Type) bool {
	switch t := ty.(type) {
	case DynamicBytes, String, Slice:
		return true
	case Array:
		return len(t.Dims) > 0 && !t.Dims[len(t.Dims)-1].Fixed
	case Ref:
		return IsDynamic(t.Elem)
	}
	return false
}

// ArrayDeref returns the element type after one subscript
func ArrayDeref(ty Type) Type {
	switch t := ty.(type) {
	case Array:
		if len(t.Dims) <= 1 {
			return t.Elem
		}
		return Array{Elem: t.Elem, Dims: t.Dims[:len(t.Dims)-1]}
	case DynamicBytes, String:
		return Bytes{N: 1}
	case Slice:
		return t.Elem
	case Ref:
		return ArrayDeref(t.Elem)
	case Bytes:
		return Bytes{N: 1}
	}
	return Unresolved{}
}

// Deref strips one level of memory or storage reference
func Deref(ty Type) Type {
	switch t := ty.(type) {
	case Ref:
		return t.Elem
	case StorageRef:
		return t.Elem
	}
	return ty
}
