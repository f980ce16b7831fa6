package domain

import (
	"errors"
	"net/http"
)

// Domain-specific errors for better error handling and user feedback
var (
	// ErrLinkNotFound is returned when a short code doesn't exist
	ErrLinkNotFound = errors.New("link not found")

	// ErrQuotaExceeded is returned when a link's click quota could not be claimed
	ErrQuotaExceeded = errors.New("click quota exceeded")

	// ErrInvalidURL is returned when the provided target URL is invalid
	ErrInvalidURL = errors.New("invalid URL format")

	// ErrInvalidPolicy is returned when a restriction policy fails validation
	ErrInvalidPolicy = errors.New("invalid restriction policy")

	// ErrShortCodeTaken is returned when a custom alias is already in use
	ErrShortCodeTaken = errors.New("short code already exists")

	// ErrShortCodeInvalid is returned when a short code has invalid characters
	ErrShortCodeInvalid = errors.New("short code contains invalid characters")

	// ErrAnalyticsQueueFull is returned when a click job is dropped
	ErrAnalyticsQueueFull = errors.New("analytics queue full")

	// ErrRecorderClosed is returned when recording after shutdown started
	ErrRecorderClosed = errors.New("click recorder closed")
)

// AppError wraps errors with additional context for better debugging
type AppError struct {
	Err        error  // Original error
	Message    string // User-friendly message
	StatusCode int    // HTTP status code
	Internal   bool   // Whether to log as internal error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Unwrap returns the wrapped error for errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a 400 validation error
func NewValidationError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewInternalError creates a 500 internal server error
func NewInternalError(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "Internal server error occurred",
		StatusCode: http.StatusInternalServerError,
		Internal:   true,
	}
}
