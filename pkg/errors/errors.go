package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrPreconditionFailed = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrInvalidWeights     = New("INVALID_WEIGHTS", http.StatusBadRequest, "assessment weights must sum to 100")
	ErrLocked             = New("LOCKED", http.StatusLocked, "resource is busy, retry later")
)

// Assessment engine errors.
var (
	ErrReference         = New("REFERENCE_NOT_FOUND", http.StatusNotFound, "referenced resource not found")
	ErrDuplicate         = New("DUPLICATE", http.StatusConflict, "resource already exists")
	ErrOutOfOrder        = New("STAGE_OUT_OF_ORDER", http.StatusConflict, "assessment stage conducted out of order")
	ErrAlreadyConducted  = New("STAGE_ALREADY_CONDUCTED", http.StatusConflict, "assessment stage already conducted")
	ErrStageNotConducted = New("STAGE_NOT_CONDUCTED", http.StatusPreconditionFailed, "assessment stage not conducted")
	ErrNotEnrolled       = New("NOT_ENROLLED", http.StatusPreconditionFailed, "student has no active enrollment")
	ErrNoSetup           = New("NO_ASSESSMENT_SETUP", http.StatusPreconditionFailed, "no assessment configured for grade and subject")
	ErrDependency        = New("DEPENDENCY_ERROR", http.StatusConflict, "resource is still referenced")
)

// ErrCacheMiss signals a cache lookup without a stored value.
var ErrCacheMiss = errors.New("cache miss")

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Is reports whether err carries the same code as target.
func Is(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code == target.Code
	}
	return false
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
