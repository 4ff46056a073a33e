package errors

import (
	"fmt"
)

// Default messages used when the origin provides none.
const (
	MsgServerDefault  = "An error occurred"
	MsgNetwork        = "Network error. Please check your connection."
	MsgSetupDefault   = "An unexpected error occurred"
	MsgInvalidBody    = "invalid response body"
	MsgValidationFail = "validation failed"
)

// Error is the normalized error. Status is meaningful for KindServer and
// KindNetwork (always 0); request setup and validation errors carry no status.
type Error struct {
	// Kind classifies the origin of the failure.
	Kind Kind `json:"kind"`
	// Message is a human-readable description.
	Message string `json:"message"`
	// Status is the HTTP status code, 0 for network failures.
	Status int `json:"status,omitempty"`
	// Code is the machine-readable code, when one is known.
	Code ErrorCode `json:"code,omitempty"`
	// Retryable reports whether the failure is transient.
	Retryable bool `json:"retryable"`
	// Details carries extra context, e.g. per-field validation messages.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error, if any.
	Cause error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Code)
	}
	if e.Kind == KindServer {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// HasStatus reports whether Status carries a meaningful value.
func (e *Error) HasStatus() bool {
	return e.Kind == KindServer || e.Kind == KindNetwork
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Server creates an error for a non-2xx response. Only 5xx responses are
// transient.
func Server(status int, message string, code ErrorCode) *Error {
	if message == "" {
		message = MsgServerDefault
	}
	return &Error{
		Kind:      KindServer,
		Message:   message,
		Status:    status,
		Code:      code,
		Retryable: status >= 500,
	}
}

// Network creates an error for a request that was sent but got no response,
// including timeouts.
func Network(cause error) *Error {
	return &Error{
		Kind:      KindNetwork,
		Message:   MsgNetwork,
		Status:    0,
		Retryable: true,
		Cause:     cause,
	}
}

// RequestSetup creates an error for a request that was never sent.
func RequestSetup(cause error) *Error {
	msg := MsgSetupDefault
	if cause != nil && cause.Error() != "" {
		msg = cause.Error()
	}
	return &Error{
		Kind:      KindRequestSetup,
		Message:   msg,
		Retryable: false,
		Cause:     cause,
	}
}

// InvalidResponse creates an error for a 2xx response whose body could not be
// decoded.
func InvalidResponse(status int, cause error) *Error {
	e := Server(status, MsgInvalidBody, ErrCodeInvalidResponse)
	e.Retryable = false
	e.Cause = cause
	return e
}

// FieldError describes one invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validation creates a form-level validation error.
func Validation(message string, fields ...FieldError) *Error {
	if message == "" {
		message = MsgValidationFail
	}
	e := &Error{
		Kind:    KindValidation,
		Message: message,
		Code:    ErrCodeValidation,
	}
	if len(fields) > 0 {
		e.WithDetail("fields", fields)
	}
	return e
}
