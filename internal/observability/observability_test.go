package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appctx "audition-backend/internal/context"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{" warn ", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewLogger(t *testing.T) {
	logger, level, err := NewLogger(LoggingConfig{Level: "warn", Format: "json"})
	require.NoError(t, err)
	require.NotNil(t, logger)

	assert.Equal(t, zapcore.WarnLevel, level.Level())
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	level.SetLevel(zapcore.DebugLevel)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestLoggerWithContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	t.Run("Should stamp correlation ids of the request", func(t *testing.T) {
		state := appctx.NewRequestState()
		state.Correlation().Put("4bf92f3577b34da6a3ce929d0e0e4736", "00f067aa0ba902b7")
		ctx := appctx.WithRequestState(context.Background(), state)

		LoggerWithContext(ctx, base).Info("hello")

		entry := logs.TakeAll()[0]
		fields := entry.ContextMap()
		assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
		assert.Equal(t, "00f067aa0ba902b7", fields["span_id"])
	})

	t.Run("Should leave logger untouched outside of a request", func(t *testing.T) {
		LoggerWithContext(context.Background(), base).Info("hello")

		entry := logs.TakeAll()[0]
		assert.NotContains(t, entry.ContextMap(), "trace_id")
	})

	t.Run("Should not stamp ids once correlation is cleared", func(t *testing.T) {
		state := appctx.NewRequestState()
		state.Correlation().Put("t", "s")
		state.Correlation().Clear()
		ctx := appctx.WithRequestState(context.Background(), state)

		LoggerWithContext(ctx, base).Info("hello")

		assert.NotContains(t, logs.TakeAll()[0].ContextMap(), "trace_id")
	})
}

func TestErrorChain(t *testing.T) {
	root := errors.New("connection refused")
	wrapped := fmt.Errorf("dial upstream: %w", root)
	outer := fmt.Errorf("get post: %w", wrapped)

	assert.Equal(t, []string{
		"get post: dial upstream: connection refused",
		"dial upstream: connection refused",
		"connection refused",
	}, ErrorChain(outer))

	joined := errors.Join(errors.New("a"), errors.New("b"))
	assert.Equal(t, []string{"a\nb", "a", "b"}, ErrorChain(joined))

	assert.Nil(t, ErrorChain(nil))
}

func TestCollector_ObserveRequest(t *testing.T) {
	c := NewCollector("")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return start }

	sample := c.StartTimer()
	c.now = func() time.Time { return start.Add(250 * time.Millisecond) }
	c.ObserveRequest(sample, http.MethodGet, "/posts/1", http.StatusNotFound)

	assert.Equal(t, 1, testutil.CollectAndCount(c.RequestDuration))

	families, err := c.Registry().Gather()
	require.NoError(t, err)
	found := false
	for _, mf := range families {
		if mf.GetName() != "http_server_requests_seconds" {
			continue
		}
		found = true
		m := mf.GetMetric()[0]
		labels := map[string]string{}
		for _, lp := range m.GetLabel() {
			labels[lp.GetName()] = lp.GetValue()
		}
		assert.Equal(t, map[string]string{"method": "GET", "uri": "/posts/1", "status": "404"}, labels)
		assert.Equal(t, uint64(1), m.GetHistogram().GetSampleCount())
		assert.InDelta(t, 0.25, m.GetHistogram().GetSampleSum(), 1e-9)
	}
	assert.True(t, found)
}

func TestCollector_ObserveRequest_NilSample(t *testing.T) {
	c := NewCollector("")
	c.ObserveRequest(nil, http.MethodGet, "/posts", http.StatusOK)
	assert.Equal(t, 0, testutil.CollectAndCount(c.RequestDuration))
}

func TestCollector_Counters(t *testing.T) {
	c := NewCollector("")

	c.RequestsTotal.Inc()
	c.RequestErrors.Inc()
	c.ExceptionsMain.WithLabelValues("errorString").Inc()
	c.ObserveUpstream("getPost", "success", 10*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.RequestsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.RequestErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ExceptionsMain.WithLabelValues("errorString")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.UpstreamRequests.WithLabelValues("getPost", "success")))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("")
	c.RequestsTotal.Inc()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_server_requests_total 1")
}

func TestInitTracing(t *testing.T) {
	tp, err := InitTracing(context.Background(), TracingConfig{Environment: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	assert.Equal(t, DefaultServiceName, tp.config.ServiceName)
	assert.Equal(t, 1.0, tp.config.SampleRate)

	_, span := tp.Tracer().Start(context.Background(), "op")
	defer span.End()
	assert.True(t, span.SpanContext().IsValid())
}
