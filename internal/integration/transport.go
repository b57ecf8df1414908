package integration

import (
	"bytes"
	"io"
	"net/http"
	"time"

	appctx "audition-backend/internal/context"
	"audition-backend/internal/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// loggingTransport logs every outbound exchange and stamps it with the ids of
// the span it was issued from, so the upstream can join the trace.
type loggingTransport struct {
	next   http.RoundTripper
	logger *zap.Logger
	// maxLoggedBody bounds how much of a response body is logged at debug level.
	maxLoggedBody int64
}

func newLoggingTransport(next http.RoundTripper, logger *zap.Logger) *loggingTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &loggingTransport{next: next, logger: logger, maxLoggedBody: 4 << 10}
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	req = req.Clone(ctx)
	injectTraceHeaders(req)

	logger := observability.LoggerWithContext(ctx, t.logger)
	logger.Info("Outbound request",
		zap.String("method", req.Method),
		zap.String("uri", req.URL.String()),
	)

	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		logger.Warn("Outbound request failed",
			zap.String("uri", req.URL.String()),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}

	fields := []zap.Field{
		zap.String("uri", req.URL.String()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	}
	if logger.Core().Enabled(zapcore.DebugLevel) {
		body, rerr := io.ReadAll(io.LimitReader(resp.Body, t.maxLoggedBody))
		if rerr == nil {
			resp.Body = struct {
				io.Reader
				io.Closer
			}{io.MultiReader(bytes.NewReader(body), resp.Body), resp.Body}
			fields = append(fields, zap.ByteString("body", body))
		}
		logger.Debug("Outbound response", fields...)
	} else {
		logger.Info("Outbound response", fields...)
	}
	return resp, nil
}

// injectTraceHeaders writes the ids of the active span both as the service's
// own correlation headers and as W3C trace context. Outside of a span it
// falls back to the inbound request's correlation ids.
func injectTraceHeaders(req *http.Request) {
	ctx := req.Context()
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		req.Header.Set(appctx.TraceIDHeader, sc.TraceID().String())
		req.Header.Set(appctx.SpanIDHeader, sc.SpanID().String())
		otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
		return
	}
	if corr := appctx.CorrelationFromContext(ctx); corr != nil {
		if traceID, spanID := corr.Get(); traceID != "" {
			req.Header.Set(appctx.TraceIDHeader, traceID)
			req.Header.Set(appctx.SpanIDHeader, spanID)
		}
	}
}
