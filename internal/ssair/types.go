package ssair

import (
	"fmt"
	"strings"

	"kiln/internal/sema"
)

// Type is the explicit type of an operand. Every operand of the IR has one;
// there is no implicit widening between them.
type Type interface {
	fmt.Stringer
	isType()
}

type Bool struct{}

type Int struct{ Bits int }

type Uint struct{ Bits int }

// Bytes is a fixed-length byte array of N bytes
type Bytes struct{ N int }

// Ptr points to a value in memory
type Ptr struct{ Elem Type }

// StoragePtr points to a storage slot
type StoragePtr struct {
	Immutable bool
	Elem      Type
}

type Function struct {
	Params  []Type
	Returns []Type
}

type Mapping struct {
	Key   Type
	Value Type
}

// Array dimensions are listed innermost first, as in the typed program
type Array struct {
	Elem Type
	Dims []sema.ArrayLength
}

type Slice struct{ Elem Type }

// StructKind says which layout a Struct type has
type StructKind int

const (
	StructUserDefined StructKind = iota
	StructVector
	StructAccountInfo
	StructAccountMeta
)

// Struct is a struct layout. No numbers the user-defined struct; Elem is
// the element type of a vector.
type Struct struct {
	Kind StructKind
	No   int
	Elem Type
}

func (Bool) isType()       {}
func (Int) isType()        {}
func (Uint) isType()       {}
func (Bytes) isType()      {}
func (Ptr) isType()        {}
func (StoragePtr) isType() {}
func (Function) isType()   {}
func (Mapping) isType()    {}
func (Array) isType()      {}
func (Slice) isType()      {}
func (Struct) isType()     {}

func (Bool) String() string    { return "bool" }
func (t Int) String() string   { return fmt.Sprintf("int%d", t.Bits) }
func (t Uint) String() string  { return fmt.Sprintf("uint%d", t.Bits) }
func (t Bytes) String() string { return fmt.Sprintf("bytes%d", t.N) }
func (t Ptr) String() string   { return fmt.Sprintf("ptr<%s>", t.Elem) }
func (t Slice) String() string { return fmt.Sprintf("slice<%s>", t.Elem) }

func (t StoragePtr) String() string {
	if t.Immutable {
		return fmt.Sprintf("const_storage_ptr<%s>", t.Elem)
	}
	return fmt.Sprintf("storage_ptr<%s>", t.Elem)
}

func (t Function) String() string {
	return fmt.Sprintf("function (%s) returns (%s)", typeList(t.Params), typeList(t.Returns))
}

func (t Mapping) String() string {
	return fmt.Sprintf("mapping(%s => %s)", t.Key, t.Value)
}

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

func (t Struct) String() string {
	switch t.Kind {
	case StructVector:
		return fmt.Sprintf("struct.vector<%s>", t.Elem)
	case StructAccountInfo:
		return "struct.AccountInfo"
	case StructAccountMeta:
		return "struct.AccountMeta"
	default:
		return fmt.Sprintf("struct.%d", t.No)
	}
}

func typeList(types []Type) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

// byteVector is the layout of strings and dynamic bytes
var byteVector = Struct{Kind: StructVector, Elem: Uint{Bits: 8}}
