package errors

import (
	"errors"
	"fmt"
)

var (
	// Operation errors
	ErrOperationNotFound      = errors.New("operation not found")
	ErrInvalidOperationKind   = errors.New("invalid operation kind")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrMaxRetriesExceeded     = errors.New("max retries exceeded")
	ErrNotRetryable           = errors.New("operation is not in a retryable state")
	ErrEmptyPayload           = errors.New("operation payload cannot be empty")

	// Dispatch errors
	ErrHandlerNotFound = errors.New("no handler registered for operation kind")

	// Provider errors
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrProviderRejected    = errors.New("request rejected by provider")
	ErrProviderTimeout     = errors.New("provider request timeout")

	// Store errors
	ErrStoreUnavailable = errors.New("persistent store unavailable")

	// Cache errors
	ErrCacheKeyEmpty = errors.New("cache key cannot be empty")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidInput     = errors.New("invalid input")
)

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
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

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
