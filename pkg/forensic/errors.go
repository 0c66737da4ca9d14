package forensic

import (
	"errors"
	"fmt"
)

// Kind categorizes pipeline failures. Extraction degradation is deliberately
// absent: a failed deep inspection is downgraded to a diagnostic attribute,
// never surfaced as an error.
type Kind string

const (
	KindCapacity             Kind = "capacity"
	KindIntegrityComputation Kind = "integrity_computation"
	KindSealing              Kind = "sealing"
	KindIllegalOperation     Kind = "illegal_operation"
	KindAnchor               Kind = "anchor"
	KindReportGeneration     Kind = "report_generation"
)

// AnchorReason subdivides anchor failures for the caller's retry and
// re-authentication decisions.
type AnchorReason string

const (
	ReasonIdentityUnavailable AnchorReason = "identity_unavailable"
	ReasonDeclined            AnchorReason = "declined"
	ReasonNetwork             AnchorReason = "network"
)

// Error is the structured failure carried across the pipeline boundary:
// a kind for dispatch, a human-readable message, and a suggested remedy so
// callers can display the failure without inspecting internals.
type Error struct {
	Kind    Kind
	Reason  AnchorReason
	Message string
	Remedy  string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches two Errors on kind, so sentinel comparisons like
// errors.Is(err, &Error{Kind: KindCapacity}) work across wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewError builds a structured pipeline error.
func NewError(kind Kind, message, remedy string) *Error {
	return &Error{Kind: kind, Message: message, Remedy: remedy}
}

// WrapError builds a structured pipeline error around an underlying cause.
func WrapError(kind Kind, message, remedy string, err error) *Error {
	return &Error{Kind: kind, Message: message, Remedy: remedy, Err: err}
}

// AnchorFailure builds an anchor error with its categorized reason.
func AnchorFailure(reason AnchorReason, message string, err error) *Error {
	remedy := "retry the anchoring request"
	if reason == ReasonIdentityUnavailable {
		remedy = "connect an identity and retry"
	}
	return &Error{Kind: KindAnchor, Reason: reason, Message: message, Remedy: remedy, Err: err}
}

// KindOf extracts the pipeline error kind, or an empty Kind for foreign
// errors.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
