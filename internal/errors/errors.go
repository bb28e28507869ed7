package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeDecode       ErrorType = "decode"
	ErrorTypeNoReferences ErrorType = "no_references"
	ErrorTypeNetwork      ErrorType = "network"
	ErrorTypeTimeout      ErrorType = "timeout"
	ErrorTypeRateLimited  ErrorType = "rate_limited"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeInternal     ErrorType = "internal"
)

var statusByType = map[ErrorType]int{
	ErrorTypeValidation:   http.StatusBadRequest,
	ErrorTypeDecode:       http.StatusUnprocessableEntity,
	ErrorTypeNoReferences: http.StatusServiceUnavailable,
	ErrorTypeNetwork:      http.StatusBadGateway,
	ErrorTypeTimeout:      http.StatusGatewayTimeout,
	ErrorTypeRateLimited:  http.StatusTooManyRequests,
	ErrorTypeNotFound:     http.StatusNotFound,
	ErrorTypeInternal:     http.StatusInternalServerError,
}

// StatusCode returns the HTTP status answered for errors of type t
func (t ErrorType) StatusCode() int {
	if code, ok := statusByType[t]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

// New creates an AppError of type t
func New(t ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		StatusCode: t.StatusCode(),
		Cause:      cause,
	}
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches another AppError of the same type, so errors.Is works with
// a bare &AppError{Type: ...} target
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Message == "" && t.Type == e.Type
}

// WithDetails returns a copy carrying extra detail for the response
func (e *AppError) WithDetails(format string, args ...interface{}) *AppError {
	out := *e
	out.Details = fmt.Sprintf(format, args...)
	return &out
}

// NewValidationError reports a malformed request
func NewValidationError(message string, cause error) *AppError {
	return New(ErrorTypeValidation, message, cause)
}

// NewDecodeError reports a candidate image that could not be read
func NewDecodeError(message string, cause error) *AppError {
	return New(ErrorTypeDecode, message, cause)
}

// NewNoReferencesError reports that no reference data is available
func NewNoReferencesError(message string, cause error) *AppError {
	return New(ErrorTypeNoReferences, message, cause)
}

// NewNetworkError reports a failed download of a remote image
func NewNetworkError(message string, cause error) *AppError {
	return New(ErrorTypeNetwork, message, cause)
}

func NewTimeoutError(message string, cause error) *AppError {
	return New(ErrorTypeTimeout, message, cause)
}

// NewRateLimitedError reports a client exceeding the request rate
func NewRateLimitedError(message string) *AppError {
	return New(ErrorTypeRateLimited, message, nil)
}

func NewNotFoundError(message string, cause error) *AppError {
	return New(ErrorTypeNotFound, message, cause)
}

func NewInternalError(message string, cause error) *AppError {
	return New(ErrorTypeInternal, message, cause)
}

// IsType checks if the error chain holds an AppError of a specific type
func IsType(err error, errorType ErrorType) bool {
	return errors.Is(err, &AppError{Type: errorType})
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
