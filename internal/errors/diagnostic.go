package errors

import (
	"sort"
	"sync"

	"kiln/internal/source"
)

// ErrorLevel represents the severity of a diagnostic
type ErrorLevel int

const (
	Debug ErrorLevel = iota
	Info
	Warning
	Error
)

func (l ErrorLevel) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warning:
		return "warning"
	default:
		return "error"
	}
}

// ErrorKind classifies which phase produced a diagnostic
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindTypeError
	KindCodegenError
	KindWarning
)

// Note is a secondary message pointing at another location
type Note struct {
	Loc     source.Loc
	Message string
}

// Diagnostic is a user-facing message produced while compiling
type Diagnostic struct {
	Level   ErrorLevel
	Kind    ErrorKind
	Code    string
	Loc     source.Loc
	Message string
	Notes   []Note
}

// Diagnostics is the sink shared by every function of a compilation.
// It is safe for concurrent use.
type Diagnostics struct {
	mu   sync.Mutex
	list []Diagnostic
}

// NewDiagnostics creates an empty sink
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{}
}

// Push appends a diagnostic
func (d *Diagnostics) Push(diag Diagnostic) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.list = append(d.list, diag)
}

// Len returns the number of recorded diagnostics
func (d *Diagnostics) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.list)
}

// HasErrors reports whether any diagnostic is at Error level. With
// warningsAsErrors set, warnings count as well.
func (d *Diagnostics) HasErrors(warningsAsErrors bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, diag := range d.list {
		if diag.Level == Error || warningsAsErrors && diag.Level == Warning {
			return true
		}
	}
	return false
}

// All returns the diagnostics ordered by location, then level, then
// message, so reports are stable no matter which worker produced them.
func (d *Diagnostics) All() []Diagnostic {
	d.mu.Lock()
	out := make([]Diagnostic, len(d.list))
	copy(out, d.list)
	d.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Loc != b.Loc {
			return a.Loc.Before(b.Loc)
		}
		if a.Level != b.Level {
			return a.Level > b.Level
		}
		return a.Message < b.Message
	})
	return out
}

// Filter returns the diagnostics at or above the given level
func (d *Diagnostics) Filter(min ErrorLevel) []Diagnostic {
	var out []Diagnostic
	for _, diag := range d.All() {
		if diag.Level >= min {
			out = append(out, diag)
		}
	}
	return out
}
