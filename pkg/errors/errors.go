// Package errors augments standard errors with a Wrap() method,
// so that sentinel error values declared by the store and metastore
// packages can carry a nested cause without resorting to
// fmt.Errorf("%w", err).
package errors

import (
	stderr "errors"
)

var _ error = New("")

// New builds a new Error from a message
func New(msg string) *Error {
	return &Error{msg: msg}
}

// Error is an error with a message and an optional nested cause.
//
// Unlike github.com/pkg/errors, wrapping starts from an error value,
// not from text: sentinels remain matchable with errors.Is while
// still pointing at the underlying failure.
type Error struct {
	msg string
	err error
}

// Error message
func (e *Error) Error() string {
	return e.msg
}

// Unwrap the nested error, if any
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// Wrap returns a copy of this error with a nested cause attached.
//
// A copy is returned rather than mutating the receiver, so that
// package-level sentinels may be wrapped concurrently.
func (e *Error) Wrap(err error) *Error {
	return &Error{msg: e.msg, err: err}
}

// WrapMessage attaches a nested cause built from a plain message
func (e *Error) WrapMessage(msg string) *Error {
	return e.Wrap(New(msg))
}

// Is reports whether this error matches the target.
//
// Two Errors match when they share the same message, so a wrapped
// copy still matches the sentinel it was derived from.
func (e *Error) Is(target error) bool {
	if e == target {
		return true
	}
	other, ok := target.(*Error)
	return ok && e.msg == other.msg
}

// As finds the first error in err's chain that matches target
// (a shortcut to the standard library errors.As)
func As(err error, target interface{}) bool {
	return stderr.As(err, target)
}

// Is reports whether any error in err's chain matches target
// (a shortcut to the standard library errors.Is)
func Is(err, target error) bool {
	return stderr.Is(err, target)
}
