// Package corerrors defines the error-kind taxonomy shared by every
// subsystem in the routing core. Kinds are not Go types per component;
// every component returns the same small set of kinds so callers can
// pattern-match on Kind rather than on concrete error types.
package corerrors

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies an Error. Callers should switch on Kind, never on the
// concrete *Error type, to decide how to react.
type Kind string

const (
	// KindCircuitOpen means admission was denied by a breaker.
	KindCircuitOpen Kind = "circuit_open"
	// KindNoProviders means no candidates remained after filtering.
	KindNoProviders Kind = "no_providers"
	// KindNotFound means an unknown id/collection/subsystem was referenced.
	KindNotFound Kind = "not_found"
	// KindTimeout means a bounded wait was exceeded.
	KindTimeout Kind = "timeout"
	// KindBackend means an upstream provider or datastore failed.
	KindBackend Kind = "backend"
	// KindIO means a persistence operation failed.
	KindIO Kind = "io"
	// KindInternal means a runtime invariant was violated.
	KindInternal Kind = "internal"
)

// Error is the single error type the core returns. Detail carries the
// human-readable message; Cause, when present, is preserved for Unwrap.
type Error struct {
	Kind    Kind
	Detail  string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Unwrap allows errors.Is/errors.As to see through to Cause.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, so callers
// can write errors.Is(err, corerrors.CircuitOpen("x")) style checks.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

// CircuitOpen builds a KindCircuitOpen error for breaker id.
func CircuitOpen(id string) *Error {
	return &Error{Kind: KindCircuitOpen, Detail: fmt.Sprintf("circuit %q is open", id)}
}

// NoProviders builds a KindNoProviders error describing the selection context.
func NoProviders(context string) *Error {
	return &Error{Kind: KindNoProviders, Detail: fmt.Sprintf("no providers available: %s", context)}
}

// NotFound builds a KindNotFound error for an unknown resource.
func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Detail: fmt.Sprintf("not found: %s", resource)}
}

// Timeout builds a KindTimeout error naming the operation and the bound
// that was exceeded.
func Timeout(operation string, after time.Duration) *Error {
	return &Error{Kind: KindTimeout, Detail: fmt.Sprintf("%s timed out after %s", operation, after)}
}

// Backend wraps an upstream failure verbatim, preserving the original
// message and the original error for Unwrap.
func Backend(detail string, cause error) *Error {
	return &Error{Kind: KindBackend, Detail: detail, Cause: cause}
}

// IO wraps a persistence failure.
func IO(detail string, cause error) *Error {
	return &Error{Kind: KindIO, Detail: detail, Cause: cause}
}

// Internal builds a KindInternal error for an invariant violation caught
// at runtime. Reserve panics for programmer errors detected at startup
// (invalid weight sums, invalid regexes); use Internal for anything
// discovered mid-flight that callers should still receive as a result.
func Internal(detail string) *Error {
	return &Error{Kind: KindInternal, Detail: detail}
}

// KindOf extracts the Kind of err, or "" if err is not a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
