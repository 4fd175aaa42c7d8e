// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package round

import (
	"context"
	"errors"
)

// Code is a machine-readable error code
type Code string

const (
	// Validation failures
	CodeMissingScale  Code = "MISSING_SCALE"
	CodeInvalidScale  Code = "INVALID_SCALE"
	CodeMissingTicket Code = "MISSING_TICKET"
	CodeMissingVote   Code = "MISSING_VOTE"
	CodeInvalidVote   Code = "INVALID_VOTE"

	// Precondition failures
	CodeChannelNotConfigured Code = "CHANNEL_NOT_CONFIGURED"
	CodeNoActiveSession      Code = "NO_ACTIVE_SESSION"

	// Collaborator failures
	CodeStoreFailure Code = "STORE_FAILURE"
)

// Kind groups codes by how they are reported
type Kind int

const (
	KindValidation Kind = iota
	KindPrecondition
	KindCollaborator
)

func (c Code) Kind() Kind {
	switch c {
	case CodeChannelNotConfigured, CodeNoActiveSession:
		return KindPrecondition
	case CodeStoreFailure:
		return KindCollaborator
	default:
		return KindValidation
	}
}

// Error is returned by every Controller operation that fails.
// No state is mutated by validation or precondition failures.
type Error struct {
	Code      Code
	Message   string            // Internal message (for logs)
	Metadata  map[string]string // Values for the user-facing text
	Retryable bool
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Sentinels for errors.Is
var (
	ErrMissingScale         = &Error{Code: CodeMissingScale, Message: "missing scale"}
	ErrInvalidScale         = &Error{Code: CodeInvalidScale, Message: "invalid scale"}
	ErrMissingTicket        = &Error{Code: CodeMissingTicket, Message: "missing ticket"}
	ErrMissingVote          = &Error{Code: CodeMissingVote, Message: "missing vote"}
	ErrInvalidVote          = &Error{Code: CodeInvalidVote, Message: "invalid vote"}
	ErrChannelNotConfigured = &Error{Code: CodeChannelNotConfigured, Message: "channel not configured"}
	ErrNoActiveSession      = &Error{Code: CodeNoActiveSession, Message: "no active session"}
	ErrStoreFailure         = &Error{Code: CodeStoreFailure, Message: "store failure"}
)

func newError(code Code, message string, metadata map[string]string) *Error {
	return &Error{Code: code, Message: message, Metadata: metadata}
}

// storeFailure wraps a collaborator error. Timeouts are worth retrying.
func storeFailure(op string, cause error) *Error {
	return &Error{
		Code:      CodeStoreFailure,
		Message:   op,
		Retryable: errors.Is(cause, context.DeadlineExceeded),
		Cause:     cause,
	}
}
