package middleware

import (
	"net/http"

	appctx "audition-backend/internal/context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// ServerSpanName names the span opened for every inbound request.
	ServerSpanName = "http_request"
	// SpanErrorMessage is the status description of spans whose request failed.
	SpanErrorMessage = "Exception occurred during request processing"
)

// TraceInterceptor opens a server span per request. A request carrying both
// X-Trace-Id and X-Span-Id continues that trace; any other request starts a
// new one. The ids of the span are echoed in the same response headers and
// published to the request's correlation store.
type TraceInterceptor struct {
	tracer trace.Tracer
}

// NewTraceInterceptor creates a trace interceptor
func NewTraceInterceptor(tracer trace.Tracer) *TraceInterceptor {
	return &TraceInterceptor{tracer: tracer}
}

func (t *TraceInterceptor) PreHandle(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
	ctx := r.Context()
	opts := []trace.SpanStartOption{
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(r.Method),
			semconv.URLPathKey.String(r.URL.Path),
		),
	}

	var tc appctx.TraceContext
	if parent, ok := remoteParent(r.Header); ok {
		ctx = trace.ContextWithRemoteSpanContext(ctx, parent)
		tc.ParentTraceID = parent.TraceID().String()
		tc.ParentSpanID = parent.SpanID().String()
	} else {
		opts = append(opts, trace.WithNewRoot())
	}

	ctx, span := t.tracer.Start(ctx, ServerSpanName, opts...)

	// A no-op tracer hands back the remote parent as the new span.
	sc := span.SpanContext()
	if !sc.IsValid() || (tc.Continued() && sc.SpanID().String() == tc.ParentSpanID) {
		sc = generateSpanContext(tc)
		ctx = trace.ContextWithSpanContext(ctx, sc)
	}
	tc.TraceID = sc.TraceID().String()
	tc.SpanID = sc.SpanID().String()

	w.Header().Set(appctx.TraceIDHeader, tc.TraceID)
	w.Header().Set(appctx.SpanIDHeader, tc.SpanID)

	if state := appctx.RequestStateFromContext(ctx); state != nil {
		state.Correlation().Put(tc.TraceID, tc.SpanID)
		state.SetSpan(span, ctx, tc)
	}

	return r.WithContext(ctx), true
}

func (t *TraceInterceptor) AfterCompletion(r *http.Request, status int, err error) {
	state := appctx.RequestStateFromContext(r.Context())
	if state == nil {
		return
	}
	span, _ := state.TakeSpan()
	if span == nil {
		return
	}
	defer state.Correlation().Clear()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, SpanErrorMessage)
	}
	span.SetAttributes(semconv.HTTPResponseStatusCodeKey.Int(status))
	span.End()
}

// remoteParent reads the caller's trace from the correlation headers. Both
// headers must be present and well formed.
func remoteParent(h http.Header) (trace.SpanContext, bool) {
	traceID, err := trace.TraceIDFromHex(h.Get(appctx.TraceIDHeader))
	if err != nil {
		return trace.SpanContext{}, false
	}
	spanID, err := trace.SpanIDFromHex(h.Get(appctx.SpanIDHeader))
	if err != nil {
		return trace.SpanContext{}, false
	}
	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	}), true
}

// generateSpanContext makes up ids when the tracer does not produce real
// spans, so callers and upstream calls still get correlation headers. A
// continued trace keeps its id.
func generateSpanContext(tc appctx.TraceContext) trace.SpanContext {
	id := uuid.New()
	traceID := trace.TraceID(id)
	if tc.Continued() {
		if parent, err := trace.TraceIDFromHex(tc.ParentTraceID); err == nil {
			traceID = parent
		}
	}
	var spanID trace.SpanID
	copy(spanID[:], id[8:])
	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	})
}
