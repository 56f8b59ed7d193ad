package apperr

import (
	"errors"
	"fmt"
)

// Error codes
const (
	CodeServer          = "SERVER_ERROR"
	CodeAlreadyAnswered = "ALREADY_ANSWERED"
	CodeValidation      = "VALIDATION_ERROR"
	CodeAuth            = "AUTH_ERROR"
	CodeNotFound        = "NOT_FOUND"
)

// Error is an application error carrying an error code and, when the error
// originated from a backend envelope, the envelope's semantic status.
type Error struct {
	Code    string // error code (e.g. "SERVER_ERROR", "ALREADY_ANSWERED")
	Message string // human-readable error message
	Status  int    // backend envelope status, 0 when not applicable
	Err     error  // wrapped underlying error (optional)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error wrapping support
func (e *Error) Unwrap() error {
	return e.Err
}

// NewServerError creates a SERVER_ERROR: a non-success envelope, a transport
// failure or a malformed payload. Always retryable from the caller's side.
func NewServerError(message string, err error) *Error {
	if message == "" {
		message = "backend request failed"
	}
	return &Error{
		Code:    CodeServer,
		Message: message,
		Status:  500,
		Err:     err,
	}
}

// NewAlreadyAnswered creates an ALREADY_ANSWERED outcome for a question probe.
// This is a domain outcome, not a failure: callers skip the question.
func NewAlreadyAnswered(questionID string) *Error {
	return &Error{
		Code:    CodeAlreadyAnswered,
		Message: fmt.Sprintf("question %s was already answered in this session", questionID),
	}
}

// NewValidationError creates a client-side VALIDATION_ERROR; no network call
// was (or should be) made for the rejected action.
func NewValidationError(field string, reason string) *Error {
	return &Error{
		Code:    CodeValidation,
		Message: fmt.Sprintf("validation failed for %s: %s", field, reason),
		Status:  400,
	}
}

// NewAuthError creates an AUTH_ERROR: no authenticated user is present.
func NewAuthError(reason string) *Error {
	return &Error{
		Code:    CodeAuth,
		Message: reason,
		Status:  401,
	}
}

// NewNotFoundError creates a NOT_FOUND error
func NewNotFoundError(resource string, id any) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found: %v", resource, id),
		Status:  404,
	}
}

func is(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// IsAlreadyAnswered reports whether err is an ALREADY_ANSWERED outcome.
func IsAlreadyAnswered(err error) bool { return is(err, CodeAlreadyAnswered) }

// IsServerError reports whether err is a SERVER_ERROR.
func IsServerError(err error) bool { return is(err, CodeServer) }

// IsValidation reports whether err is a VALIDATION_ERROR.
func IsValidation(err error) bool { return is(err, CodeValidation) }

// IsAuth reports whether err is an AUTH_ERROR.
func IsAuth(err error) bool { return is(err, CodeAuth) }

// IsNotFound reports whether err is a NOT_FOUND error.
func IsNotFound(err error) bool { return is(err, CodeNotFound) }
