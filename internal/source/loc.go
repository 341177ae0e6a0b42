// Package source holds source positions shared by every compiler layer.
package source

import "fmt"

// Loc is a span in a source file. The zero Loc marks compiler generated code.
type Loc struct {
	File   string
	Line   int
	Column int
	Length int
}

// Codegen is the location given to instructions the compiler invents.
var Codegen = Loc{}

// IsValid reports whether the location points into a real file.
func (l Loc) IsValid() bool {
	return l.Line > 0
}

func (l Loc) String() string {
	if !l.IsValid() {
		return "<codegen>"
	}
	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Before orders locations by file, then line, then column.
func (l Loc) Before(other Loc) bool {
	if l.File != other.File {
		return l.File < other.File
	}
	if l.Line != other.Line {
		return l.Line < other.Line
	}
	return l.Column < other.Column
}
