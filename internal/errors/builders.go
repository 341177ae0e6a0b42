package errors

import (
	"fmt"

	"kiln/internal/source"
)

// DiagnosticBuilder provides a fluent interface for creating diagnostics
type DiagnosticBuilder struct {
	diag Diagnostic
}

// NewError creates a new error-level diagnostic builder
func NewError(code, message string, loc source.Loc) *DiagnosticBuilder {
	return &DiagnosticBuilder{
		diag: Diagnostic{
			Level:   Error,
			Kind:    KindCodegenError,
			Code:    code,
			Message: message,
			Loc:     loc,
		},
	}
}

// NewWarning creates a new warning builder
func NewWarning(code, message string, loc source.Loc) *DiagnosticBuilder {
	return &DiagnosticBuilder{
		diag: Diagnostic{
			Level:   Warning,
			Kind:    KindWarning,
			Code:    code,
			Message: message,
			Loc:     loc,
		},
	}
}

// NewInfo creates an informational diagnostic builder
func NewInfo(code, message string, loc source.Loc) *DiagnosticBuilder {
	return &DiagnosticBuilder{
		diag: Diagnostic{
			Level:   Info,
			Kind:    KindNone,
			Code:    code,
			Message: message,
			Loc:     loc,
		},
	}
}

// WithKind overrides the diagnostic kind
func (b *DiagnosticBuilder) WithKind(kind ErrorKind) *DiagnosticBuilder {
	b.diag.Kind = kind
	return b
}

// WithNote adds a note pointing at another location
func (b *DiagnosticBuilder) WithNote(loc source.Loc, message string) *DiagnosticBuilder {
	b.diag.Notes = append(b.diag.Notes, Note{Loc: loc, Message: message})
	return b
}

// Build returns the completed diagnostic
func (b *DiagnosticBuilder) Build() Diagnostic {
	return b.diag
}

// Common diagnostics

// UndefinedVariable reports a local declared at loc that is read, at each
// of reads, before being assigned
func UndefinedVariable(name string, loc source.Loc, reads []source.Loc) Diagnostic {
	b := NewError(ErrorUndefinedVariable, fmt.Sprintf("variable '%s' is undefined", name), loc).WithKind(KindTypeError)
	for _, read := range reads {
		b.WithNote(read, "variable read before being defined")
	}
	return b.Build()
}

// DivideByZero reports a division or modulo whose divisor folds to zero
func DivideByZero(loc source.Loc) Diagnostic {
	return NewError(ErrorDivideByZero, "divide by zero", loc).Build()
}

// ShiftOutOfRange reports a constant shift by an amount the operand cannot hold
func ShiftOutOfRange(direction, amount string, loc source.Loc) Diagnostic {
	return NewError(ErrorShiftOutOfRange,
		fmt.Sprintf("%s shift by %s is not possible", direction, amount), loc).Build()
}

// PowerOutOfRange reports a constant exponentiation that cannot be evaluated
func PowerOutOfRange(exponent string, loc source.Loc) Diagnostic {
	return NewError(ErrorPowerOutOfRange, fmt.Sprintf("power %s not possible", exponent), loc).Build()
}

// ConstantCondition warns about a branch that always goes the same way
func ConstantCondition(value bool, loc source.Loc) Diagnostic {
	return NewWarning(WarningConstantCondition, fmt.Sprintf("condition is always %t", value), loc).Build()
}

// StrengthReduced records that an operation was rewritten to a cheaper one
func StrengthReduced(message string, loc source.Loc) Diagnostic {
	return NewInfo(NoteStrengthReduced, message, loc).Build()
}
