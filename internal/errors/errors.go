package errors

import (
	"fmt"
)

// BeamError is the structured error type for beam.
// It provides rich context for error handling, logging, and user presentation.
type BeamError struct {
	// Code is the unique error code (e.g., "ERR_201_STORE_OPEN").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Store, Gateway, ...).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error
}

// Error implements the error interface.
func (e *BeamError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *BeamError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with BeamError.
func (e *BeamError) Is(target error) bool {
	if t, ok := target.(*BeamError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *BeamError) WithDetail(key, value string) *BeamError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new BeamError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *BeamError {
	return &BeamError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates a BeamError from an existing error.
// The error's message becomes the BeamError message.
func Wrap(code string, err error) *BeamError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// StoreIOError creates a usage-store write/transaction error.
func StoreIOError(message string, cause error) *BeamError {
	return New(ErrCodeStoreWrite, message, cause)
}

// InvalidStateError creates a state machine contract violation error.
// These are programmer errors, surfaced synchronously, never retried.
func InvalidStateError(message string) *BeamError {
	return New(ErrCodeInvalidState, message, nil)
}

// ProviderFailure creates a provider execution error.
func ProviderFailure(providerID string, cause error) *BeamError {
	return New(ErrCodeProviderFailed, fmt.Sprintf("provider %s failed", providerID), cause).
		WithDetail("provider", providerID)
}

// GatewayBindError creates a rendezvous endpoint bind error.
func GatewayBindError(message string, cause error) *BeamError {
	return New(ErrCodeGatewayBind, message, cause)
}

// GatewayTimeout creates a bounded-wait expiry error.
func GatewayTimeout(message string, cause error) *BeamError {
	return New(ErrCodeGatewayTimeout, message, cause)
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort startup.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if be, ok := err.(*BeamError); ok {
		return be.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a BeamError.
// Returns empty string if not a BeamError.
func GetCode(err error) string {
	if be, ok := err.(*BeamError); ok {
		return be.Code
	}
	return ""
}

// GetCategory extracts the category from a BeamError.
// Returns empty string if not a BeamError.
func GetCategory(err error) Category {
	if be, ok := err.(*BeamError); ok {
		return be.Category
	}
	return ""
}
