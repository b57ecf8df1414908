package context

import (
	"context"
	"sync"
)

// Correlation keys stamped on every log line of a request.
const (
	TraceIDKey = "trace_id"
	SpanIDKey  = "span_id"
)

// Correlation is the request-scoped store used to stamp log lines with the
// trace and span ids. It is valid between the trace interceptor's pre and post
// phases and is cleared on the way out.
type Correlation struct {
	mu      sync.RWMutex
	traceID string
	spanID  string
}

// Put publishes the ids of the active span.
func (c *Correlation) Put(traceID, spanID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.traceID = traceID
	c.spanID = spanID
}

// Get returns the published ids; both are empty when nothing is published.
func (c *Correlation) Get() (traceID, spanID string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.traceID, c.spanID
}

// Entries returns the published ids keyed by their correlation key.
func (c *Correlation) Entries() map[string]string {
	traceID, spanID := c.Get()
	entries := make(map[string]string, 2)
	if traceID != "" {
		entries[TraceIDKey] = traceID
	}
	if spanID != "" {
		entries[SpanIDKey] = spanID
	}
	return entries
}

// Clear removes all entries.
func (c *Correlation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.traceID = ""
	c.spanID = ""
}

// CorrelationFromContext returns the correlation store of the request carried by
// ctx, or nil outside of a request.
func CorrelationFromContext(ctx context.Context) *Correlation {
	if state := RequestStateFromContext(ctx); state != nil {
		return state.Correlation()
	}
	return nil
}

// Headers carrying the correlation ids on inbound responses and outbound requests.
const (
	TraceIDHeader = "X-Trace-Id"
	SpanIDHeader  = "X-Span-Id"
)
