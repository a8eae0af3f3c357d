// Package errors provides domain-specific error types and sentinel errors
// for improved error handling across the application.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrNotFound indicates a requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates user provided invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrInvalidSignature indicates the X-Hub-Signature-256 header did not match the body.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrNotPageObject indicates a webhook delivery that is not from a page subscription.
	ErrNotPageObject = errors.New("webhook object is not a page")

	// ErrMalformedResponse indicates an upstream API answered with an undecodable body.
	ErrMalformedResponse = errors.New("malformed upstream response")
)

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidInput reports whether err is or wraps ErrInvalidInput.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsTimeout reports whether err is or wraps ErrTimeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// ClassifyTransport marks client timeouts (deadline exceeded or a net.Error
// reporting Timeout) with ErrTimeout so callers can tell them apart.
func ClassifyTransport(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}

// ValidationError represents input validation failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// APIError represents a failed call to an external HTTP API
// (Messenger Send API, Messenger Profile API, order lookup service).
type APIError struct {
	Service    string
	URL        string
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s api error (url=%s, status=%d): %v", e.Service, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s api error (url=%s): %v", e.Service, e.URL, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError creates a new API error.
// The URL should already have credentials stripped.
func NewAPIError(service, url string, statusCode int, err error) *APIError {
	return &APIError{
		Service:    service,
		URL:        url,
		StatusCode: statusCode,
		Err:        err,
	}
}
