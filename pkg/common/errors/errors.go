package errors

import (
	"errors"
	"fmt"
	"net"
	"syscall"
)

// Common error types used across the buzzflow library

var (
	// ErrClosed indicates that an operation was attempted on a closed resource
	ErrClosed = errors.New("resource is closed")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCapacityExceeded indicates that a capacity limit was exceeded
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrInvalidConfiguration indicates invalid configuration parameters
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrRateLimited indicates that a request was rate limited
	ErrRateLimited = errors.New("rate limited")

	// ErrUnavailable indicates that a dependency is temporarily unavailable
	ErrUnavailable = errors.New("service unavailable")

	// ErrQuotaExhausted indicates that a vendor API quota window is spent
	ErrQuotaExhausted = errors.New("quota exhausted")

	// ErrLimiterClosed is reported to callers whose queued tasks were
	// abandoned because the limiter was closed
	ErrLimiterClosed = errors.New("limiter closed")

	// ErrLimiterReset is reported to callers whose queued tasks were
	// abandoned by a limiter reset
	ErrLimiterReset = errors.New("limiter reset")

	// ErrNotFound indicates that a requested record does not exist
	ErrNotFound = errors.New("not found")
)

// StatusError carries an HTTP status from a vendor API response so callers
// can classify it without re-parsing the response.
type StatusError struct {
	StatusCode int
	URL        string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http %d from %s: %s", e.StatusCode, e.URL, e.Message)
	}
	return fmt.Sprintf("http %d from %s", e.StatusCode, e.URL)
}

// Unwrap maps retryable statuses onto the matching sentinel errors so that
// errors.Is(err, ErrRateLimited) works on a raw 429 response.
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case 429:
		return ErrRateLimited
	case 503:
		return ErrUnavailable
	}
	return nil
}

// NewStatusError creates a StatusError for a vendor API response.
func NewStatusError(statusCode int, url, message string) *StatusError {
	return &StatusError{StatusCode: statusCode, URL: url, Message: message}
}

// IsRetryable returns true if the error indicates a transient condition that
// might be resolved by retrying the operation: known transient network
// failures (timeout, connection reset, connection refused, DNS) or an HTTP
// 429/503 from a vendor API. All other errors are terminal.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnavailable) {
		return true
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == 429 || statusErr.StatusCode == 503
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	return errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ETIMEDOUT)
}

// IsTemporary returns true if the error indicates a temporary condition
func IsTemporary(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrQuotaExhausted)
}

// IsValidationError returns true if the error is a configuration validation error
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// ValidationError describes an invalid configuration value for a component.
type ValidationError struct {
	Module string
	Field  string
	Value  interface{}
	Reason string
	Hint   string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: invalid %s=%v (%s)", e.Module, e.Field, e.Value, e.Reason)
	if e.Hint != "" {
		msg += " - " + e.Hint
	}
	return msg
}

// Unwrap returns ErrInvalidConfiguration so callers can match the category.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// NewValidationError creates a ValidationError for the given module and field.
func NewValidationError(module, field string, value interface{}, reason string) *ValidationError {
	return &ValidationError{
		Module: module,
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// WithHint attaches a usage hint to the error and returns the same instance
// for chaining.
func (e *ValidationError) WithHint(hint string) *ValidationError {
	e.Hint = hint
	return e
}

// OperationError wraps a failure of a named operation with its module and
// optional context, preserving the cause for errors.Is/As.
type OperationError struct {
	Module    string
	Operation string
	Cause     error
	Context   string
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("%s.%s failed: %v", e.Module, e.Operation, e.Cause)
	if e.Context != "" {
		msg += " (" + e.Context + ")"
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *OperationError) Unwrap() error {
	return e.Cause
}

// NewOperationError creates an OperationError wrapping the given cause.
func NewOperationError(module, operation string, cause error) *OperationError {
	return &OperationError{
		Module:    module,
		Operation: operation,
		Cause:     cause,
	}
}

// WithContext attaches additional context to the error and returns the same
// instance for chaining.
func (e *OperationError) WithContext(context string) *OperationError {
	e.Context = context
	return e
}
