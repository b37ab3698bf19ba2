package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConfig       = errors.New("configuration error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigError marks a failure that must abort startup: threshold invariant
// violations and malformed catalogs never surface to an end user mid-run.
func NewConfigError(message string) *AppError {
	return NewAppError("CONFIG_ERROR", message, ErrConfig)
}

func NewConfigErrorf(format string, args ...any) *AppError {
	return NewConfigError(fmt.Sprintf(format, args...))
}

// IsConfigError reports whether err belongs to the startup-fatal class.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfig)
}
