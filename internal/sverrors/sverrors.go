// Package sverrors implements the stable error-kind taxonomy that every
// tool handler in this server surfaces to callers: a machine-readable
// kind plus a one-line human message, never a stack trace or absolute
// path.
package sverrors

import (
	"errors"
	"fmt"
)

// Kind identifies the category of a failure. Kinds are stable across
// versions; callers may branch on them.
type Kind string

const (
	InvalidInput Kind = "InvalidInput"
	UnsafePath   Kind = "UnsafePath"
	NotFound     Kind = "NotFound"
	Conflict     Kind = "Conflict"
	Timeout      Kind = "Timeout"
	ChainBroken  Kind = "ChainBroken"
	Internal     Kind = "Internal"
)

// Error is a kind-tagged error. Internal errors keep their wrapped cause
// out of the caller-facing message (the MCP tool layer logs it locally
// under an incident id); every other kind's Message is safe to hand back
// to the caller verbatim.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a caller-facing error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an error of the given kind carrying an underlying cause.
// The cause is retained for logging via Unwrap and Error() but is never
// included in the caller-facing message returned by CallerMessage.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// KindOf extracts the Kind of err, defaulting to Internal for any error
// that was not produced by this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// CallerMessage returns the text that is safe to return across the MCP
// surface: for Internal errors this deliberately drops the wrapped
// cause (which may contain absolute paths or I/O detail) and returns a
// generic message instead.
func CallerMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Kind == Internal {
			return "internal error"
		}
		return e.Message
	}
	return "internal error"
}

// Is reports whether KindOf(err) is kind; an error not produced by this
// package counts as Internal.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
