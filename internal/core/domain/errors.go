// Package domain defines the core domain vocabulary shared by chatmesh nodes.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a chatmesh error with a structured error code.
// Codes have the form CM-<AREA>-<NNNN>; two errors match under errors.Is
// when their codes are equal.
type DomainError struct {
	Code    string // Error code (e.g., "CM-WIRE-4990")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// Wrap wraps an error with this domain error as the cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return e.WithCause(cause)
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Stream Errors (WIRE)
// ============================================================================

var (
	// ErrStreamClosed indicates the remote endpoint closed the stream or a
	// read failed. It ends that connection only.
	ErrStreamClosed = NewDomainError("CM-WIRE-4990", "stream closed")

	// ErrFrameTooLarge indicates a frame header announced an impossible length.
	ErrFrameTooLarge = NewDomainError("CM-WIRE-4130", "frame length out of range")
)

// ============================================================================
// Action Errors (ACTN)
// ============================================================================

var (
	// ErrMalformedAction indicates a frame that cannot be dispatched.
	ErrMalformedAction = NewDomainError("CM-ACTN-4000", "malformed action")

	// ErrUnknownAction indicates a message type with no registered handler.
	ErrUnknownAction = NewDomainError("CM-ACTN-4040", "unknown action")

	// ErrTypeMismatch indicates a payload whose content kind differs from the
	// kind declared by the handler of its message type.
	ErrTypeMismatch = NewDomainError("CM-ACTN-4150", "content type mismatch")
)

// ============================================================================
// Configuration Errors (CONF)
// ============================================================================

var (
	// ErrConfiguration indicates a node could not be constructed: a socket
	// could not be bound or a peer host could not be resolved.
	ErrConfiguration = NewDomainError("CM-CONF-5000", "configuration fault")
)

// ============================================================================
// Send Errors (SEND)
// ============================================================================

var (
	// ErrTransientSend indicates a send that failed without proving the link
	// dead. A dead link surfaces later as ErrStreamClosed.
	ErrTransientSend = NewDomainError("CM-SEND-5030", "transient send fault")
)

// IsMalformed reports whether err rejects a frame at dispatch time.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedAction) ||
		errors.Is(err, ErrUnknownAction) ||
		errors.Is(err, ErrTypeMismatch)
}
