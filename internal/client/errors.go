package client

import (
	"errors"
	"fmt"

	"github.com/muurk/pulseguard/internal/portal"
)

// Error types for portal communication and client usage

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a connection-level error (refused, timeout, DNS)
	ErrTypeNetwork ErrorType = iota
	// ErrTypeHTTP indicates an HTTP-level error (non-2xx status code)
	ErrTypeHTTP
	// ErrTypeAuth indicates the portal rejected the credentials
	ErrTypeAuth
	// ErrTypeParse indicates an unusable response body (version token,
	// sync token, or page content)
	ErrTypeParse
	// ErrTypeUsage indicates a programmer error (invalid HTTP method,
	// synchronous call without a session runtime, uninitialized client)
	ErrTypeUsage
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeAuth:
		return "Authentication Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeUsage:
		return "Usage Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// PortalError represents an error from portal communication or from
// misuse of the client API
type PortalError struct {
	Type       ErrorType // Category of error
	Message    string    // Human-readable error message
	StatusCode int       // HTTP status code (if applicable)
	Err        error     // Underlying error (if any)
	Retryable  bool      // Whether the condition is transient
}

// Error implements the error interface
func (e *PortalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *PortalError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a network-level error. Connection failures
// are always treated as transient.
func NewNetworkError(message string, err error) *PortalError {
	return &PortalError{
		Type:      ErrTypeNetwork,
		Message:   message,
		Err:       err,
		Retryable: true,
	}
}

// NewHTTPError creates an HTTP status error. The Retryable flag tracks
// the portal's recoverable status set (429, 500, 502, 503, 504).
func NewHTTPError(statusCode int, message string) *PortalError {
	return &PortalError{
		Type:       ErrTypeHTTP,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  portal.RecoverableStatus(statusCode),
	}
}

// NewAuthError creates an authentication error
func NewAuthError(message string) *PortalError {
	return &PortalError{
		Type:    ErrTypeAuth,
		Message: message,
	}
}

// NewParseError creates a parse error for an unusable response body
func NewParseError(message string, err error) *PortalError {
	return &PortalError{
		Type:    ErrTypeParse,
		Message: message,
		Err:     err,
	}
}

// NewUsageError creates a programmer-usage error
func NewUsageError(message string) *PortalError {
	return &PortalError{
		Type:    ErrTypeUsage,
		Message: message,
	}
}

// IsRetryable reports whether err is a transient portal condition
func IsRetryable(err error) bool {
	var perr *PortalError
	if errors.As(err, &perr) {
		return perr.Retryable
	}
	return false
}

// IsUsageError reports whether err is a programmer-usage error
func IsUsageError(err error) bool {
	var perr *PortalError
	if errors.As(err, &perr) {
		return perr.Type == ErrTypeUsage
	}
	return false
}
