// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrMissingAPIKey    = errors.New("missing API key")
	ErrNoProviders      = errors.New("no providers enabled")
	ErrNoScreenshots    = errors.New("no screenshots available")
	ErrBlankFrame       = errors.New("captured frame is blank")
	ErrAllProvidersFail = errors.New("all providers failed")
)

// ProviderError represents an error from an LLM provider API.
type ProviderError struct {
	Provider  string
	Operation string
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error [%s] %s: %v", e.Provider, e.Operation, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a new ProviderError.
func NewProviderError(provider, operation string, err error) *ProviderError {
	return &ProviderError{
		Provider:  provider,
		Operation: operation,
		Err:       err,
	}
}

// CaptureError represents an error while capturing a chart screenshot.
type CaptureError struct {
	Symbol string
	View   string
	Reason string
	Err    error
}

func (e *CaptureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("capture error [%s/%s]: %s: %v", e.Symbol, e.View, e.Reason, e.Err)
	}
	return fmt.Sprintf("capture error [%s/%s]: %s", e.Symbol, e.View, e.Reason)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// NewCaptureError creates a new CaptureError.
func NewCaptureError(symbol, view, reason string, err error) *CaptureError {
	return &CaptureError{
		Symbol: symbol,
		View:   view,
		Reason: reason,
		Err:    err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

