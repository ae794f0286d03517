// Package fault provides structured error types shared across the arbor
// engine.
//
// Every failure that crosses a package boundary carries a machine-readable
// Code so callers can branch on the category without string matching:
//
//	_, err := eng.GetCompilation(ctx, "p1")
//	if fault.Is(err, fault.CodeNotFound) {
//	    // unknown project
//	}
//
// Errors created elsewhere are attached as the Cause and remain visible to
// errors.Is/As through Unwrap.
package fault

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

const (
	// CodeCyclicDependency rejects a workspace mutation that would make the
	// project dependency graph cyclic. The workspace is left unchanged.
	CodeCyclicDependency Code = "CYCLIC_DEPENDENCY"

	// CodeNotFound signals an unknown workspace entity or an unresolvable
	// exact identifier.
	CodeNotFound Code = "NOT_FOUND"

	// CodeCancelled signals cooperative cancellation of a long-running
	// operation. Partial results may accompany it.
	CodeCancelled Code = "CANCELLED"

	// CodeCapacityExceeded signals an artifact larger than the cache can
	// admit. The artifact is still usable, it is just never cached.
	CodeCapacityExceeded Code = "CAPACITY_EXCEEDED"

	// CodePartialLoad signals that part of an external metadata module could
	// not be read. The readable portion is available.
	CodePartialLoad Code = "PARTIAL_LOAD"

	// CodeCompileDiagnostics signals that a compilation carries diagnostics
	// and its artifact is partial.
	CodeCompileDiagnostics Code = "COMPILE_DIAGNOSTICS"

	// CodeInternal covers unexpected internal failures.
	CodeInternal Code = "INTERNAL"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error. It returns the empty
// string when no *Error is present in the chain.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
