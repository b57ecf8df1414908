package integration

import (
	"fmt"
	"net/http"
)

// DefaultTitle is the problem title used for upstream failures that carry no
// title of their own.
const DefaultTitle = "API Error Occurred"

// UpstreamError is the closed set of failures the Client reports. Every
// outbound failure is one of *NotFoundError, *ClientError, *NetworkError or
// *UnexpectedError; callers never see the transport's own error types.
type UpstreamError interface {
	error
	Unwrap() error
	// StatusCode is the upstream HTTP status, or 0 when no response was obtained.
	StatusCode() int
	Title() string
	Detail() string
	Kind() string

	upstream()
}

var (
	_ UpstreamError = (*NotFoundError)(nil)
	_ UpstreamError = (*ClientError)(nil)
	_ UpstreamError = (*NetworkError)(nil)
	_ UpstreamError = (*UnexpectedError)(nil)
)

// NotFoundError reports an upstream 404.
type NotFoundError struct {
	// Resource describes what was looked up, e.g. "Post with id 7".
	Resource string
	Message  string
	Cause    error
}

func (e *NotFoundError) Error() string   { return e.Message }
func (e *NotFoundError) Unwrap() error   { return e.Cause }
func (e *NotFoundError) StatusCode() int { return http.StatusNotFound }
func (e *NotFoundError) Title() string   { return "Resource Not Found" }
func (e *NotFoundError) Detail() string  { return e.Message }
func (e *NotFoundError) Kind() string    { return "NotFoundError" }
func (e *NotFoundError) upstream()       {}

// ClientError reports any other non-2xx upstream response. Body holds the raw
// response body for diagnostics.
type ClientError struct {
	Status  int
	Body    string
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
	}
	return fmt.Sprintf("%s (status %d): %s", e.Message, e.Status, e.Body)
}
func (e *ClientError) Unwrap() error   { return e.Cause }
func (e *ClientError) StatusCode() int { return e.Status }
func (e *ClientError) Title() string   { return DefaultTitle }
func (e *ClientError) Kind() string    { return "ClientError" }
func (e *ClientError) upstream()       {}

// Detail prefers the upstream body, which is what the caller needs to see.
func (e *ClientError) Detail() string {
	if e.Body != "" {
		return e.Body
	}
	return e.Message
}

// NetworkError reports a transport failure before any response was obtained:
// timeouts, refused connections, DNS failures, or an open circuit breaker.
type NetworkError struct {
	Message string
	Cause   error
}

func (e *NetworkError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}
func (e *NetworkError) Unwrap() error   { return e.Cause }
func (e *NetworkError) StatusCode() int { return 0 }
func (e *NetworkError) Title() string   { return DefaultTitle }
func (e *NetworkError) Detail() string  { return e.Message }
func (e *NetworkError) Kind() string    { return "NetworkError" }
func (e *NetworkError) upstream()       {}

// UnexpectedError reports anything not classified above, such as a malformed
// or empty response body.
type UnexpectedError struct {
	Message string
	Cause   error
}

func (e *UnexpectedError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}
func (e *UnexpectedError) Unwrap() error   { return e.Cause }
func (e *UnexpectedError) StatusCode() int { return 0 }
func (e *UnexpectedError) Title() string   { return DefaultTitle }
func (e *UnexpectedError) Detail() string  { return e.Message }
func (e *UnexpectedError) Kind() string    { return "UnexpectedError" }
func (e *UnexpectedError) upstream()       {}
