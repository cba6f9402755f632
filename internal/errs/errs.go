// Package errs defines the error taxonomy surfaced by the compiler core.
// Fatal conditions are collapsed into a single abstract CompileError before
// crossing into frontend code; recoverable
// conditions (cache miss, cache write failure) are never wrapped into errors
// at all and are logged only by their caller.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a CompileError so callers can branch without string
// matching on the message.
type Kind int

const (
	// InvariantViolation is a programmer error: a pass left the IR in a
	// state that breaks an IR well-formedness invariant. Process-aborting
	// in spirit; callers that catch it should treat it as fatal.
	InvariantViolation Kind = iota
	// Unsupported marks a construct a backend cannot lower.
	Unsupported
	// DeviceError wraps a failure from the abstract Device/JitSession
	// interface (allocate, copy, launch, module load).
	DeviceError
	// CacheFingerprintCollision indicates cache_kernel was called twice for
	// the same fingerprint; the caller should have looked up first.
	CacheFingerprintCollision
)

func (k Kind) String() string {
	switch k {
	case InvariantViolation:
		return "invariant_violation"
	case Unsupported:
		return "unsupported"
	case DeviceError:
		return "device_error"
	case CacheFingerprintCollision:
		return "cache_fingerprint_collision"
	default:
		return "unknown"
	}
}

// CompileError is the single abstract error type the compilation core
// surfaces to the frontend.
type CompileError struct {
	Kind  Kind
	Cause error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("quadrants: %s: %v", e.Kind, e.Cause)
}

func (e *CompileError) Unwrap() error { return e.Cause }

// New builds a CompileError of the given kind from a formatted message,
// attaching a stack trace via pkg/errors so InvariantViolation conditions
// are debuggable.
func New(kind Kind, format string, args ...any) *CompileError {
	return &CompileError{Kind: kind, Cause: errors.Errorf(format, args...)}
}

// Wrap attaches kind and a stack trace to an existing error.
func Wrap(kind Kind, cause error, msg string) *CompileError {
	if cause == nil {
		return nil
	}
	return &CompileError{Kind: kind, Cause: errors.Wrap(cause, msg)}
}

// Invariant is a convenience constructor for the common invariant-broken
// case raised from inside a pass.
func Invariant(format string, args ...any) *CompileError {
	return New(InvariantViolation, format, args...)
}

// IsKind reports whether err is a *CompileError of the given kind.
func IsKind(err error, kind Kind) bool {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}
