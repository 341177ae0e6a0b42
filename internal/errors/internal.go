package errors

import (
	stderrors "errors"

	crdb "github.com/cockroachdb/errors"
)

// ErrDiagnostics is returned when compilation finished but reported errors
var ErrDiagnostics = crdb.New("compilation reported errors")

// NewInternalError reports a defect in the compiler or in the program model
// handed to it. Internal errors abort the compilation.
func NewInternalError(format string, args ...interface{}) error {
	return crdb.AssertionFailedWithDepthf(1, "internal compiler error: "+format, args...)
}

// IsInternal reports whether err, or anything it wraps, is an internal error
func IsInternal(err error) bool {
	return crdb.HasAssertionFailure(err)
}

// Wrapf annotates err with context, keeping its internal-error marker
func Wrapf(err error, format string, args ...interface{}) error {
	return crdb.Wrapf(err, format, args...)
}

// Newf creates a plain error with a stack trace
func Newf(format string, args ...interface{}) error {
	return crdb.Newf(format, args...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return crdb.Is(err, target)
}

// Join combines the non-nil errors, returning nil when there are none
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return crdb.As(err, target)
}
