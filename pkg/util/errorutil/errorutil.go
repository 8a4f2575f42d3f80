package errorutil

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error codes shared by services and the HTTP error middleware.
const (
	CodeValidation           = "VALIDATION_FAILED"
	CodeInvalidAction        = "INVALID_ACTION"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeInvalidSignature     = "INVALID_SIGNATURE"
	CodeForbidden            = "FORBIDDEN"
	CodeNotFound             = "NOT_FOUND"
	CodeConflict             = "CONFLICT"
	CodeInvalidTransition    = "INVALID_TRANSITION"
	CodeAttendanceRequired   = "ATTENDANCE_REQUIRED"
	CodePaymentNotVerified   = "PAYMENT_NOT_VERIFIED"
	CodePaymentUnavailable   = "PAYMENT_SERVICE_UNAVAILABLE"
	CodePaymentNotConfigured = "PAYMENT_NOT_CONFIGURED"
	CodeRateLimited          = "RATE_LIMITED"
	CodeInternal             = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewInvalidAction(action string) error {
	return NewDomainError(CodeInvalidAction, fmt.Sprintf("invalid action: %s", action), http.StatusBadRequest,
		map[string]any{"action": action})
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewInvalidSignature() error {
	return NewDomainError(CodeInvalidSignature, "invalid webhook signature", http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

// NewInvalidTransition reports an action that the current state does not allow.
func NewInvalidTransition(message string, details map[string]any) error {
	return NewDomainError(CodeInvalidTransition, message, http.StatusConflict, details)
}

func NewAttendanceRequired() error {
	return NewDomainError(CodeAttendanceRequired,
		"you must be checked in to start a task; please mark attendance first",
		http.StatusConflict, nil)
}

func NewPaymentNotVerified(details map[string]any) error {
	return NewDomainError(CodePaymentNotVerified, "payment not verified", http.StatusBadRequest, details)
}

// NewPaymentUnavailable hides upstream diagnostics behind a generic message.
// The cause is kept for server-side logging only.
func NewPaymentUnavailable(cause error) error {
	return &DomainError{
		Code:       CodePaymentUnavailable,
		Message:    "payment service unavailable, please try again later",
		HTTPStatus: http.StatusBadGateway,
		Err:        cause,
	}
}

func NewPaymentNotConfigured() error {
	return NewDomainError(CodePaymentNotConfigured,
		"payment service is not configured, please contact the administrator",
		http.StatusServiceUnavailable, nil)
}

func NewRateLimited(message string) error {
	return NewDomainError(CodeRateLimited, message, http.StatusTooManyRequests, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
		return &DomainError{
			Code:       CodeNotFound,
			Message:    "resource not found",
			HTTPStatus: http.StatusNotFound,
			Details:    map[string]any{},
			Err:        err,
		}
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}

// IsCode reports whether err carries the given DomainError code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
