// Package errs provides the unified error type used across all of rgddl.
//
// Every subsystem (schema loader, DDL compiler, database introspection,
// filestore, server) wraps its native errors into *errs.Error before
// returning them. Callers use the Is* predicates to decide how to react
// (exit status, HTTP status) without importing subsystem packages.
//
// Usage:
//
//	// In the compiler, report a dangling reference:
//	return errs.New(errs.ErrKindUnresolvedReference, "orders.cust_id -> customer.id: no such table")
//
//	// In a command, map to an exit status:
//	if errs.IsUsage(err) {
//	    os.Exit(2)
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing subsystem-specific codes.
type ErrKind int

const (
	ErrKindUnknown             ErrKind = iota
	ErrKindNotFound                    // no object, no bucket, no table
	ErrKindConnectionFailed            // cannot reach the backend
	ErrKindTimeout                     // context deadline / cancellation
	ErrKindQueryFailed                 // SQL or storage operation error
	ErrKindInvalidInput                // malformed template or bad arguments
	ErrKindPermissionDenied            // access denied / auth failure
	ErrKindUnresolvedReference         // ref_tab/ref_col points nowhere
	ErrKindCyclicReference             // reference chain revisits a column
	ErrKindUsage                       // wrong command-line invocation
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindQueryFailed:
		return "query_failed"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindPermissionDenied:
		return "permission_denied"
	case ErrKindUnresolvedReference:
		return "unresolved_reference"
	case ErrKindCyclicReference:
		return "cyclic_reference"
	case ErrKindUsage:
		return "usage"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all rgddl subsystems.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // original lower-level error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is New with a format string.
func Newf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// --- Predicates ---

// IsNotFound reports whether err represents a missing object, bucket or table.
func IsNotFound(err error) bool {
	return KindOf(err) == ErrKindNotFound
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return KindOf(err) == ErrKindTimeout
}

// IsConnectionFailed reports whether err is a connectivity or auth failure.
func IsConnectionFailed(err error) bool {
	return KindOf(err) == ErrKindConnectionFailed
}

// IsQueryFailed reports whether err is a backend operation failure.
func IsQueryFailed(err error) bool {
	return KindOf(err) == ErrKindQueryFailed
}

// IsInvalidInput reports whether err was caused by a malformed template
// or bad arguments from the caller.
func IsInvalidInput(err error) bool {
	return KindOf(err) == ErrKindInvalidInput
}

// IsPermissionDenied reports whether err is an access control failure.
func IsPermissionDenied(err error) bool {
	return KindOf(err) == ErrKindPermissionDenied
}

// IsUnresolvedReference reports whether err is a reference to a table or
// column that does not exist in the template.
func IsUnresolvedReference(err error) bool {
	return KindOf(err) == ErrKindUnresolvedReference
}

// IsCyclicReference reports whether err is a reference chain that loops.
func IsCyclicReference(err error) bool {
	return KindOf(err) == ErrKindCyclicReference
}

// IsUsage reports whether err is a command-line usage error.
func IsUsage(err error) bool {
	return KindOf(err) == ErrKindUsage
}

// KindOf extracts the ErrKind from any error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
