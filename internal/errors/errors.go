// Package errors is the single import point for error handling. It re-exports
// the stdlib inspection helpers next to the pkg/errors constructors so callers
// get stack traces without juggling two imports.
package errors

import (
	stderrors "errors"

	pkgerrors "github.com/pkg/errors"
)

// Constructors. These capture a stack trace at the call site.

// New returns an error with the given text and a stack trace.
func New(text string) error {
	return pkgerrors.New(text)
}

// Errorf formats an error and attaches a stack trace.
func Errorf(format string, args ...any) error {
	return pkgerrors.Errorf(format, args...)
}

// Annotation. Wrapping a nil error returns nil.

// Wrap annotates err with a message and a stack trace.
func Wrap(err error, message string) error {
	return pkgerrors.Wrap(err, message)
}

// Wrapf annotates err with a formatted message and a stack trace.
func Wrapf(err error, format string, args ...any) error {
	return pkgerrors.Wrapf(err, format, args...)
}

// WithStack attaches a stack trace to err without changing its message.
func WithStack(err error) error {
	return pkgerrors.WithStack(err)
}

// WithMessage annotates err with a message, without a new stack trace.
func WithMessage(err error, message string) error {
	return pkgerrors.WithMessage(err, message)
}

// Inspection. Straight passthroughs to the stdlib.

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree matching target's type.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Unwrap returns err's immediate cause, or nil.
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}

// Join combines errs into a single error.
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}
