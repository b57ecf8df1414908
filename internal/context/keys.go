// Package context provides the request-scoped state shared by the interceptor chain.
//
// Every inbound request gets exactly one RequestState. Interceptors stash what they
// need between their pre and post phases here instead of in globals, so concurrent
// requests never see each other's spans, timings or correlation ids.
package context

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// contextKey is used for context values
type contextKey struct {
	name string
}

// RequestStateKey is the key used to store the RequestState in context
var RequestStateKey = contextKey{"requestState"}

// TraceContext identifies the span serving a request and, when the trace was
// continued from a caller, the remote parent it was continued from.
type TraceContext struct {
	TraceID       string
	SpanID        string
	ParentTraceID string
	ParentSpanID  string
}

// Continued reports whether the span was started as a child of a remote parent.
func (tc TraceContext) Continued() bool {
	return tc.ParentTraceID != "" && tc.ParentSpanID != ""
}

// TimingSample is the latency handle created by the metrics pre phase.
type TimingSample struct {
	StartedAt time.Time
}

// RequestState is the per-request bag threaded through the interceptor chain.
type RequestState struct {
	mu          sync.Mutex
	span        trace.Span
	activation  context.Context
	trace       TraceContext
	timing      *TimingSample
	err         error
	correlation *Correlation
}

// NewRequestState creates an empty state with its own correlation store.
func NewRequestState() *RequestState {
	return &RequestState{correlation: &Correlation{}}
}

// SetSpan stores the request span and the context it was activated in.
func (s *RequestState) SetSpan(span trace.Span, activation context.Context, tc TraceContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.span = span
	s.activation = activation
	s.trace = tc
}

// TakeSpan returns the stored span and activation and forgets them.
// Both are nil when no span was stored.
func (s *RequestState) TakeSpan() (trace.Span, context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	span, activation := s.span, s.activation
	s.span, s.activation = nil, nil
	return span, activation
}

// TraceContext returns the identifiers published for this request.
func (s *RequestState) TraceContext() TraceContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trace
}

// SetTiming attaches the latency sample started by the metrics pre phase.
func (s *RequestState) SetTiming(sample *TimingSample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timing = sample
}

// TakeTiming returns the latency sample and detaches it, so a sample is
// consumed at most once.
func (s *RequestState) TakeTiming() *TimingSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	sample := s.timing
	s.timing = nil
	return sample
}

// RecordError remembers the error that terminated request processing.
// The first recorded error wins.
func (s *RequestState) RecordError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Err returns the recorded error, if any.
func (s *RequestState) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Correlation returns the request's correlation store.
func (s *RequestState) Correlation() *Correlation {
	return s.correlation
}

// WithRequestState adds the request state to context
func WithRequestState(ctx context.Context, state *RequestState) context.Context {
	return context.WithValue(ctx, RequestStateKey, state)
}

// RequestStateFromContext extracts the request state from context.
// Returns nil when the request did not pass through the interceptor chain.
func RequestStateFromContext(ctx context.Context) *RequestState {
	state, _ := ctx.Value(RequestStateKey).(*RequestState)
	return state
}
