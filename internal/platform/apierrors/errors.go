// Package apierrors is the platform's typed error taxonomy. HTTP handlers
// and middleware classify failures into one of the categories below instead
// of passing a bare error up the stack, so the caller can decide
// retry-vs-drop-vs-DLQ without string matching. The event consumers do not
// use it; they return plain Go errors.
package apierrors

import (
	"fmt"
	"net/http"
)

type Classification string

const (
	Validation         Classification = "VALIDATION"
	AuthN              Classification = "AUTHN"
	AuthZ              Classification = "AUTHZ"
	RateLimited        Classification = "RATE_LIMITED"
	Conflict           Classification = "CONFLICT"
	Transient          Classification = "TRANSIENT"
	Terminal           Classification = "TERMINAL"
	InvariantViolation Classification = "INVARIANT_VIOLATION"
)

// APIError is the one error type every HTTP boundary deals in.
type APIError struct {
	Code           string         `json:"code"`
	Message        string         `json:"message"`
	Classification Classification `json:"-"`
	Status         int            `json:"-"`
}

func (e APIError) Error() string {
	return e.Message
}

// Retryable reports whether a consumer should re-attempt the operation that
// produced this error rather than routing it to a dead-letter destination.
func (e APIError) Retryable() bool {
	return e.Classification == Transient
}

const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeRateLimited        = "RATE_LIMIT_EXCEEDED"
	CodeConflict           = "CONFLICT"
	CodeNotFound           = "NOT_FOUND"
	CodeTransient          = "TRANSIENT_ERROR"
	CodeTerminal           = "TERMINAL_ERROR"
	CodeInvariantViolation = "INVARIANT_VIOLATION"
	CodeInternal           = "INTERNAL_SERVER_ERROR"
)

func NewValidationError(message string) APIError {
	return APIError{Code: CodeValidation, Message: message, Classification: Validation, Status: http.StatusBadRequest}
}

func NewUnauthorizedError(message string) APIError {
	return APIError{Code: CodeUnauthorized, Message: message, Classification: AuthN, Status: http.StatusUnauthorized}
}

func NewForbiddenError(message string) APIError {
	return APIError{Code: CodeForbidden, Message: message, Classification: AuthZ, Status: http.StatusForbidden}
}

func NewRateLimitedError() APIError {
	return APIError{
		Code:           CodeRateLimited,
		Message:        "rate limit exceeded, retry later",
		Classification: RateLimited,
		Status:         http.StatusTooManyRequests,
	}
}

func NewConflictError(message string) APIError {
	return APIError{Code: CodeConflict, Message: message, Classification: Conflict, Status: http.StatusConflict}
}

func NewNotFoundError(resource string) APIError {
	return APIError{
		Code:           CodeNotFound,
		Message:        fmt.Sprintf("%s not found", resource),
		Classification: Terminal,
		Status:         http.StatusNotFound,
	}
}

func NewTransientError(message string) APIError {
	return APIError{Code: CodeTransient, Message: message, Classification: Transient, Status: http.StatusServiceUnavailable}
}

func NewTerminalError(message string) APIError {
	return APIError{Code: CodeTerminal, Message: message, Classification: Terminal, Status: http.StatusUnprocessableEntity}
}

func NewInvariantViolationError(message string) APIError {
	return APIError{
		Code:           CodeInvariantViolation,
		Message:        message,
		Classification: InvariantViolation,
		Status:         http.StatusConflict,
	}
}

func NewInternalError(message string) APIError {
	return APIError{Code: CodeInternal, Message: message, Classification: Terminal, Status: http.StatusInternalServerError}
}
