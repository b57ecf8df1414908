// Package errors holds the application error types and the translator that
// turns any error surfaced by a handler into a problem response.
package errors

import (
	"fmt"
	"net/http"
	"reflect"
	"runtime/debug"
)

const (
	// DefaultTitle is used for system errors raised without a title.
	DefaultTitle = "API Error Occurred"
	// DefaultMessage is used when an error carries no message at all.
	DefaultMessage = "API Error occurred. Please contact support or administrator."
)

// SystemError is a domain error raised explicitly with its own status and title.
type SystemError struct {
	Message string
	title   string
	Status  int
	Cause   error
}

// NewSystemError creates a system error. A zero status renders as 500 and an
// empty title as DefaultTitle.
func NewSystemError(message, title string, status int, cause error) *SystemError {
	return &SystemError{
		Message: message,
		title:   title,
		Status:  status,
		Cause:   cause,
	}
}

// Error implements the error interface
func (e *SystemError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *SystemError) Unwrap() error { return e.Cause }

// StatusCode returns the HTTP status carried by the error.
func (e *SystemError) StatusCode() int { return e.Status }

// Title returns the problem title carried by the error.
func (e *SystemError) Title() string {
	if e.title == "" {
		return DefaultTitle
	}
	return e.title
}

// Detail returns the human readable message.
func (e *SystemError) Detail() string { return e.Message }

// ValidationError reports invalid caller input, raised before any outbound call.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string   { return e.Message }
func (e *ValidationError) StatusCode() int { return http.StatusBadRequest }
func (e *ValidationError) Title() string   { return http.StatusText(http.StatusBadRequest) }
func (e *ValidationError) Detail() string  { return e.Message }

// StatusError is a plain client error that only carries an HTTP status, such as
// an unknown route. It renders with the status' default title.
type StatusError struct {
	Status  int
	Message string
}

// NewStatusError creates a status error
func NewStatusError(status int, message string) *StatusError {
	return &StatusError{Status: status, Message: message}
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return http.StatusText(e.Status)
	}
	return e.Message
}

// PanicError wraps a value recovered from a panicking handler.
type PanicError struct {
	Value any
	Stack []byte
}

// NewPanicError captures the recovered value and the current stack.
func NewPanicError(value any) *PanicError {
	return &PanicError{Value: value, Stack: debug.Stack()}
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// Unwrap exposes the recovered value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Kind returns the name used to tag error metrics: the error's own Kind()
// when it has one, otherwise the name of its concrete type.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	if k, ok := err.(interface{ Kind() string }); ok {
		return k.Kind()
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return "error"
	}
	return t.Name()
}
