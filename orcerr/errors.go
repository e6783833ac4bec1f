// Package orcerr defines the core's error taxonomy (spec §7): a closed
// set of six kinds carried as typed values instead of ad hoc errors or
// exceptions-as-control-flow.
package orcerr

import (
	"errors"
	"fmt"
)

// Kind discriminates the six error categories the core produces.
type Kind string

const (
	KindValidation         Kind = "validation_error"
	KindNotFound           Kind = "not_found"
	KindStateConflict      Kind = "state_conflict"
	KindResourceUnavailable Kind = "resource_unavailable"
	KindExecution          Kind = "execution_error"
	KindAccessDenied       Kind = "access_denied"
)

// Error is the common shape for every core error. Callers discriminate
// with errors.As and inspect Kind rather than matching on message text.
type Error struct {
	Kind    Kind
	Op      string // the operation that failed, e.g. "RegisterWorkflowTemplate"
	Subject string // the id/name the operation concerned, e.g. a workflow_id
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("%s: %s (%s): %s", e.Op, e.Kind, e.Subject, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an Error of the given kind.
func New(kind Kind, op, subject, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Subject: subject, Message: message, Cause: cause}
}

func Validation(op, subject, message string) *Error {
	return New(KindValidation, op, subject, message, nil)
}

func NotFound(op, subject string) *Error {
	return New(KindNotFound, op, subject, "not found", nil)
}

func StateConflict(op, subject, message string) *Error {
	return New(KindStateConflict, op, subject, message, nil)
}

func ResourceUnavailable(op, subject, message string, cause error) *Error {
	return New(KindResourceUnavailable, op, subject, message, cause)
}

func Execution(op, subject, message string, cause error) *Error {
	return New(KindExecution, op, subject, message, cause)
}

func AccessDenied(op, subject, message string) *Error {
	return New(KindAccessDenied, op, subject, message, nil)
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
