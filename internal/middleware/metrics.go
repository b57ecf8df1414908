package middleware

import (
	"net/http"

	appctx "audition-backend/internal/context"
	"audition-backend/internal/observability"

	"github.com/go-chi/chi/v5"
)

// MetricsInterceptor counts requests and errors and times every request.
type MetricsInterceptor struct {
	collector *observability.Collector
}

// NewMetricsInterceptor creates a metrics interceptor
func NewMetricsInterceptor(collector *observability.Collector) *MetricsInterceptor {
	return &MetricsInterceptor{collector: collector}
}

func (m *MetricsInterceptor) PreHandle(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
	m.collector.RequestsTotal.Inc()
	if state := appctx.RequestStateFromContext(r.Context()); state != nil {
		state.SetTiming(m.collector.StartTimer())
	}
	return r, true
}

// AfterCompletion records the latency observation and the error count
// independently; a failed request gets both.
func (m *MetricsInterceptor) AfterCompletion(r *http.Request, status int, err error) {
	if state := appctx.RequestStateFromContext(r.Context()); state != nil {
		m.collector.ObserveRequest(state.TakeTiming(), r.Method, routePattern(r), status)
	}
	if err != nil || status >= http.StatusBadRequest {
		m.collector.RequestErrors.Inc()
	}
}

// routePattern names the matched route, such as /posts/{id}, so the latency
// series stay bounded. Requests chi did not route keep their raw path.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
