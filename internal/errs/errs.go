// Package errs defines the error kinds shared across the task manager.
// Components wrap underlying errors with a kind so callers can branch on
// the failure category without inspecting messages.
package errs

import (
	"context"
	"errors"
	"fmt"
)

// Kind categorizes an error for callers and external clients.
type Kind string

const (
	// KindNotFound indicates an entity or id is absent.
	KindNotFound Kind = "not_found"
	// KindAlreadyExists indicates a duplicate create.
	KindAlreadyExists Kind = "already_exists"
	// KindValidation indicates bad input or an enum out of range.
	KindValidation Kind = "validation"
	// KindCycle indicates an edge would form a dependency cycle.
	KindCycle Kind = "cycle"
	// KindResource indicates over-capacity or no available agent.
	KindResource Kind = "resource"
	// KindParsing indicates LM or file content was not parseable.
	KindParsing Kind = "parsing"
	// KindSystem indicates I/O, permission, or internal invariant failure.
	KindSystem Kind = "system"
	// KindCancelled indicates caller-requested termination.
	KindCancelled Kind = "cancelled"
	// KindTimeout indicates a watchdog violation.
	KindTimeout Kind = "timeout"
)

// Error is a kinded error with an operation name for context.
type Error struct {
	// Kind is the failure category.
	Kind Kind
	// Op is the operation that failed, e.g. "store.CreateTask".
	Op string
	// Err is the wrapped cause, if any.
	Err error
	// Msg is an optional human-readable detail.
	Msg string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %s: %v", e.Op, e.Kind, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// E constructs a kinded error.
func E(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap constructs a kinded error around a cause.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Wrapf constructs a kinded error around a cause with a formatted detail.
func Wrapf(kind Kind, op string, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: err, Msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from an error chain. Context cancellation reports
// KindCancelled; unclassified errors report KindSystem.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}
	return KindSystem
}

// Is reports whether the error chain carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
