package lifecycle

import (
	"errors"
	"fmt"
)

// Kind classifies a gateway failure. Each kind maps to one stable response
// code so callers can tell "retry with different input" from "retry later"
// from "do not retry".
type Kind string

const (
	// KindInvalidTransition means the (current, target) pair is not in the
	// transition table. Recoverable by choosing a legal target.
	KindInvalidTransition Kind = "invalid_transition"
	// KindPermissionDenied means the actor holds none of the required
	// capability tokens, or failed an identity-equality check.
	KindPermissionDenied Kind = "permission_denied"
	// KindDomain means a business guard failed: missing reason, out-of-range
	// score, duplicate active warrant, already-decided approval, severity
	// mismatch.
	KindDomain Kind = "domain_error"
	// KindNotFound means the entity id does not exist.
	KindNotFound Kind = "not_found"
	// KindConflict means the storage transaction could not commit. This is
	// the only kind eligible for caller-side retry of the same request.
	KindConflict Kind = "conflict"
)

// Error is the gateway error type. All four request-terminal kinds plus the
// retryable conflict kind flow through it.
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

// Code returns the stable wire code for the error kind.
func (e *Error) Code() string { return string(e.Kind) }

// NewInvalidTransition reports an illegal (current, target) pair.
func NewInvalidTransition(kind, from, to string) *Error {
	return &Error{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("%s transition %s -> %s is not allowed", kind, from, to),
	}
}

// NewPermissionDenied reports a failed capability or identity check.
func NewPermissionDenied(format string, args ...interface{}) *Error {
	return &Error{Kind: KindPermissionDenied, Message: fmt.Sprintf(format, args...)}
}

// NewDomainError reports a failed business guard.
func NewDomainError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindDomain, Message: fmt.Sprintf(format, args...)}
}

// NewNotFound reports a missing entity.
func NewNotFound(kind string, id fmt.Stringer) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %s not found", kind, id)}
}

// NewConflict wraps a storage commit conflict.
func NewConflict(cause error) *Error {
	return &Error{Kind: KindConflict, Message: "storage conflict, retry the request", cause: cause}
}

// KindOf extracts the failure kind, or "" for non-gateway errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsInvalidTransition reports whether err is an illegal-pair rejection.
func IsInvalidTransition(err error) bool { return KindOf(err) == KindInvalidTransition }

// IsPermissionDenied reports whether err is an authorization rejection.
func IsPermissionDenied(err error) bool { return KindOf(err) == KindPermissionDenied }

// IsDomainError reports whether err is a business-guard rejection.
func IsDomainError(err error) bool { return KindOf(err) == KindDomain }

// IsNotFound reports whether err is a missing-entity rejection.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsConflict reports whether err is a retryable commit conflict.
func IsConflict(err error) bool { return KindOf(err) == KindConflict }
