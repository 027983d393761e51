package models

import (
	"errors"
	"fmt"
)

// ErrorCode classifies engine failures so transport layers can render
// them without inspecting wrapped causes.
type ErrorCode string

const (
	ErrNotFound            ErrorCode = "not_found"
	ErrInvalidState        ErrorCode = "invalid_state"
	ErrUnauthorized        ErrorCode = "unauthorized"
	ErrTimingViolation     ErrorCode = "timing_violation"
	ErrDuplicateSubmission ErrorCode = "duplicate_submission"
	ErrValidation          ErrorCode = "validation_error"
	ErrStore               ErrorCode = "store_error"
	ErrUnknown             ErrorCode = "unknown"
)

// Error is the typed failure returned across the engine boundary.
// Reason is the user-visible rejection string.
type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NotFound(reason string) *Error {
	return &Error{Code: ErrNotFound, Reason: reason}
}

func InvalidState(reason string) *Error {
	return &Error{Code: ErrInvalidState, Reason: reason}
}

func Unauthorized(reason string) *Error {
	return &Error{Code: ErrUnauthorized, Reason: reason}
}

func TimingViolation(reason string) *Error {
	return &Error{Code: ErrTimingViolation, Reason: reason}
}

func DuplicateSubmission(reason string) *Error {
	return &Error{Code: ErrDuplicateSubmission, Reason: reason}
}

func Validation(reason string) *Error {
	return &Error{Code: ErrValidation, Reason: reason}
}

func StoreFailure(reason string, err error) *Error {
	return &Error{Code: ErrStore, Reason: reason, Err: err}
}

// CodeOf extracts the ErrorCode from err, or ErrUnknown for errors
// that did not originate in the engine.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrUnknown
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// ReasonOf returns the user-visible reason, falling back to the raw
// error text for non-engine errors.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return err.Error()
}
