package serrors

import (
	"errors"
	"fmt"
)

// Kind is a marker interface implemented by all semantic error kinds created
// with NewKind. It allows distinguishing semantic kinds from ordinary errors.
type Kind interface {
	error
	isKind()
}

// kind is an unexported implementation of Kind used as a sentinel value for a
// semantic error category.
type kind struct{ s string }

func (k kind) Error() string { return k.s }
func (k kind) isKind()       {}

// NewKind creates a new semantic error kind (a sentinel) with the provided
// name/description. Kinds are comparable and can be used with errors.Is/As
// through the serrors.Error wrapper.
func NewKind(name string) Kind { return kind{s: name} }

// Default Kinds provide the categories used across the comparison pipeline.
// They are implemented as sentinels and can be used with errors.Is/As
// through the Error wrapper defined in this package.
var (
	// ErrInvalidInput indicates a malformed request (URL, viewport, options).
	// It is raised before any browser resource is opened.
	ErrInvalidInput = NewKind("INVALID_INPUT")
	// ErrNavigationTimeout indicates a page did not finish loading within its budget.
	ErrNavigationTimeout = NewKind("NAVIGATION_TIMEOUT")
	// ErrNavigationFailure indicates the browser could not load a page.
	ErrNavigationFailure = NewKind("NAVIGATION_FAILURE")
	// ErrStabilizationFailure indicates a pre-capture step failed hard.
	ErrStabilizationFailure = NewKind("STABILIZATION_FAILURE")
	// ErrStabilizationWaitTimeout indicates a wait selector never appeared.
	// It is never surfaced to callers; the orchestrator discards it.
	ErrStabilizationWaitTimeout = NewKind("STABILIZATION_WAIT_TIMEOUT")
	// ErrCaptureFailure indicates the screenshot itself could not be taken or decoded.
	ErrCaptureFailure = NewKind("CAPTURE_FAILURE")
	// ErrEmptyImage indicates an image with a zero dimension.
	ErrEmptyImage = NewKind("EMPTY_IMAGE")
	// ErrBufferMismatch indicates a pixel buffer whose length does not match its dimensions.
	ErrBufferMismatch = NewKind("BUFFER_MISMATCH")
	// ErrMethodNotAllowed indicates an HTTP method the endpoint does not serve.
	ErrMethodNotAllowed = NewKind("METHOD_NOT_ALLOWED")
	// ErrUnauthorized indicates missing or invalid authentication.
	ErrUnauthorized = NewKind("UNAUTHORIZED")
	// ErrInternal indicates an internal server error.
	ErrInternal = NewKind("INTERNAL")
	// ErrTimeout indicates the operation timed out.
	ErrTimeout = NewKind("TIMEOUT")
	// ErrUnavailable indicates the service is temporarily unavailable.
	ErrUnavailable = NewKind("UNAVAILABLE")
)

// KindOf returns the first semantic kind found in err's chain, or
// ErrInternal when err carries none.
func KindOf(err error) Kind {
	var k Kind
	if errors.As(err, &k) {
		return k
	}

	return ErrInternal
}

// Error is a semantic error: a kind, an optional message and an optional
// cause. errors.Is and errors.As match either the kind or anything in the
// cause chain, so callers can test for ErrNavigationTimeout and for
// context.DeadlineExceeded on the same value.
//
// Error() prints "<msg>: <cause>", falling back to whichever of the two is
// set, and finally to the kind name.
type Error struct {
	kind Kind
	err  error
	msg  string
}

// With returns an error of kind k described by a formatted message.
func With(k Kind, msgFmt string, args ...any) *Error {
	return &Error{kind: k, msg: fmt.Sprintf(msgFmt, args...)}
}

// Wrap returns an error of kind k wrapping err, described by a formatted message.
func Wrap(k Kind, err error, msgFmt string, args ...any) *Error {
	return &Error{kind: k, err: err, msg: fmt.Sprintf(msgFmt, args...)}
}

// KindOnly returns an error carrying only k.
func KindOnly(k Kind) *Error { return &Error{kind: k} }

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	switch {
	case e.msg != "" && e.err != nil:
		return e.msg + ": " + e.err.Error()
	case e.msg != "":
		return e.msg
	case e.err != nil:
		return e.err.Error()
	case e.kind != nil:
		return e.kind.Error()
	default:
		return "unknown error"
	}
}

func (e *Error) Unwrap() error { return e.err }

// Is matches target against the kind first, then the cause chain.
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return e == nil && target == nil
	}

	return (e.kind != nil && errors.Is(e.kind, target)) || (e.err != nil && errors.Is(e.err, target))
}

// As assigns the kind or a matching error of the cause chain to target.
func (e *Error) As(target any) bool {
	if e == nil || target == nil {
		return false
	}

	return (e.kind != nil && errors.As(e.kind, target)) || (e.err != nil && errors.As(e.err, target))
}

// Kind returns the kind, or nil.
func (e *Error) Kind() Kind { return e.kind }

// Message returns the message without the cause.
func (e *Error) Message() string { return e.msg }

// Cause returns the wrapped error, or nil.
func (e *Error) Cause() error { return e.err }
