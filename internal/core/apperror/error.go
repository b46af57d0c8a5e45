// Package apperror provides structured error handling for the ledger engine.
// All business errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes grouped by failure class
const (
	// Infrastructure errors (5xx)
	CodeInternal    = "INTERNAL_ERROR"
	CodePersistence = "PERSISTENCE_ERROR"
	CodeTimeout     = "TIMEOUT_ERROR"

	// Validation errors (400)
	CodeValidation          = "VALIDATION_ERROR"
	CodeConstraint          = "CONSTRAINT_ERROR"
	CodeInsufficientPayment = "INSUFFICIENT_PAYMENT"

	// Authorization errors (401, 403)
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeStateConflict = "STATE_CONFLICT"
	CodeConflict      = "CONFLICT"
	CodeIdempotency   = "IDEMPOTENCY_CONFLICT"

	// Upstream collaborators (502). Absorbed by the booker, never
	// surfaced as a booking failure.
	CodeUpstream = "UPSTREAM_ERROR"
)

// AppError is the standard error type for the platform.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, amounts, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewConstraint creates a movement-invariant violation error (400).
// Raised when an append would break a ledger invariant, e.g. a non-positive
// magnitude or a missing business date.
func NewConstraint(message string) *AppError {
	return &AppError{
		Code:       CodeConstraint,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewInsufficientPayment is returned when the tendered amount does not
// cover the computed net total. Raised before any persistence.
func NewInsufficientPayment(tendered, required string) *AppError {
	return &AppError{
		Code:       CodeInsufficientPayment,
		Message:    "Tendered amount does not cover total",
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"tendered": tendered, "required": required},
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewStateConflict is returned when a referenced header entity is not in a
// bookable state, e.g. booking a sale against a closed register session.
func NewStateConflict(message string) *AppError {
	return &AppError{
		Code:       CodeStateConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewUpstream creates an upstream collaborator error (tax calculator
// unreachable, timeout, malformed response).
func NewUpstream(service string, err error) *AppError {
	return &AppError{
		Code:       CodeUpstream,
		Message:    fmt.Sprintf("%s unavailable", service),
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"service": service},
		Err:        err,
	}
}

// NewPersistence wraps a transaction commit failure. The whole booking
// transaction is rolled back; callers must retry the booking as a unit.
func NewPersistence(err error) *AppError {
	return &AppError{
		Code:       CodePersistence,
		Message:    "Persistence failure",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbidden creates an authorization error (403)
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewIdempotencyConflict creates error when operation is already in progress
func NewIdempotencyConflict(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotency,
		Message:    "Operation already in progress or completed",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// NewIdempotencyMismatch is returned when the same idempotency key is reused for
// a different request (different user/operation/body hash).
func NewIdempotencyMismatch(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotency,
		Message:    "Idempotency key mismatch",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == CodeNotFound
	}
	return false
}

// IsUpstream checks if error is CodeUpstream
func IsUpstream(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == CodeUpstream
	}
	return false
}

// IsStateConflict checks if error is CodeStateConflict
func IsStateConflict(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == CodeStateConflict
	}
	return false
}
