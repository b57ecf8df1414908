package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"audition-backend/internal/domain"
	apperrors "audition-backend/internal/errors"
	"audition-backend/internal/integration"
	"audition-backend/internal/interfaces/http/rest/handlers"
	"audition-backend/internal/middleware"
	"audition-backend/internal/observability"
	"audition-backend/internal/service"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

type testServer struct {
	handler       http.Handler
	metrics       *observability.Collector
	spans         *tracetest.SpanRecorder
	commentsCalls *atomic.Int32
}

func fakeUpstream(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	commentsCalls := &atomic.Int32{}
	mux := http.NewServeMux()
	mux.HandleFunc("/posts", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"userId":1,"id":1,"title":"sunt aut facere","body":"quia et suscipit"},
			{"userId":1,"id":2,"title":"qui est esse","body":"est rerum tempore vitae"},
			{"userId":1,"id":7,"title":"magnam facilis","body":"repellat aliquid"}
		]`)
	})
	mux.HandleFunc("/posts/7", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"userId":1,"id":7,"title":"magnam facilis","body":"repellat aliquid"}`)
	})
	mux.HandleFunc("/posts/7/comments", func(w http.ResponseWriter, r *http.Request) {
		commentsCalls.Add(1)
		fmt.Fprint(w, `[{"postId":7,"id":31,"name":"ut quo","email":"a@example.com","body":"first"}]`)
	})
	mux.HandleFunc("/posts/500", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"upstream exploded"}`, http.StatusInternalServerError)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "{}", http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, commentsCalls
}

func newTestServer(t *testing.T, svc handlers.PostService, readiness ...ReadinessCheck) *testServer {
	t.Helper()
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	logger := zap.NewNop()
	metrics := observability.NewCollector("")
	errorHandler := apperrors.NewErrorHandler(logger, metrics)
	chain := middleware.NewChain(
		middleware.NewTraceInterceptor(tp.Tracer("test")),
		middleware.NewLoggingInterceptor(logger),
		middleware.NewMetricsInterceptor(metrics),
	).WithRecoverer(errorHandler.Handle)

	var commentsCalls *atomic.Int32
	if svc == nil {
		upstream, calls := fakeUpstream(t)
		commentsCalls = calls
		client := integration.NewClient(integration.ClientConfig{BaseURL: upstream.URL, Timeout: 2 * time.Second},
			logger, metrics, tp.Tracer("test"))
		svc = service.NewPostService(client, logger)
	}

	router := NewRouter(handlers.NewPostHandler(svc, logger), errorHandler, chain, metrics, logger,
		RouterConfig{AllowedOrigins: []string{"https://example.com"}}, readiness...)

	return &testServer{
		handler:       router.Setup(),
		metrics:       metrics,
		spans:         spans,
		commentsCalls: commentsCalls,
	}
}

func (s *testServer) do(t *testing.T, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// serverSpans returns the ended inbound request spans.
func (s *testServer) serverSpans() []sdktrace.ReadOnlySpan {
	var out []sdktrace.ReadOnlySpan
	for _, span := range s.spans.Ended() {
		if span.Name() == middleware.ServerSpanName {
			out = append(out, span)
		}
	}
	return out
}

func problemOf(t *testing.T, rec *httptest.ResponseRecorder) apperrors.ProblemResponse {
	t.Helper()
	require.Equal(t, apperrors.ProblemContentType, rec.Header().Get("Content-Type"))
	var p apperrors.ProblemResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

type failingService struct {
	err error
}

func (f failingService) ListPosts(context.Context, string) ([]domain.Post, error) { return nil, f.err }
func (f failingService) GetPost(context.Context, int) (*domain.Post, error)       { return nil, f.err }
func (f failingService) GetPostWithComments(context.Context, int) (*domain.Post, error) {
	return nil, f.err
}
func (f failingService) GetComments(context.Context, int) ([]domain.Comment, error) { return nil, f.err }

func TestRouter_ListPosts(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/posts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var posts []domain.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posts))
	assert.Len(t, posts, 3)

	rec = s.do(t, http.MethodGet, "/posts?filterString=est", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, 2, posts[0].ID)
}

func TestRouter_GetPost(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/posts/7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "comments")

	var post domain.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &post))
	assert.Equal(t, 7, post.ID)
	assert.Equal(t, "magnam facilis", post.Title)
	assert.Equal(t, int32(0), s.commentsCalls.Load())
}

func TestRouter_GetPostWithComments(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/posts/7?includeComments=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var post domain.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &post))
	require.Len(t, post.Comments, 1)
	assert.Equal(t, 31, post.Comments[0].ID)
	assert.Equal(t, int32(1), s.commentsCalls.Load())
}

func TestRouter_GetComments(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/posts/7/comments", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var comments []domain.Comment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &comments))
	require.Len(t, comments, 1)
	assert.Equal(t, "first", comments[0].Body)
}

func TestRouter_UpstreamNotFound(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/posts/404", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	p := problemOf(t, rec)
	assert.Equal(t, "Resource Not Found", p.Title)
	assert.Contains(t, p.Detail, "404")
	assert.Equal(t, "/posts/404", p.Instance)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.ExceptionsSystem.WithLabelValues("NotFoundError")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.RequestErrors))
}

func TestRouter_UpstreamNotFoundSkipsComments(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/posts/404?includeComments=true", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, int32(0), s.commentsCalls.Load())
}

func TestRouter_UpstreamServerError(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/posts/500", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	p := problemOf(t, rec)
	assert.Equal(t, apperrors.DefaultTitle, p.Title)
	assert.Contains(t, p.Detail, "upstream exploded")
}

func TestRouter_InvalidPostID(t *testing.T) {
	tests := []struct {
		target     string
		wantDetail string
	}{
		{target: "/posts/abc", wantDetail: "Invalid Post ID format."},
		{target: "/posts/abc/comments", wantDetail: "Invalid Post ID format."},
		{target: "/posts/0", wantDetail: "Post ID must be positive"},
		{target: "/posts/-3/comments", wantDetail: "Post ID must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			s := newTestServer(t, nil)

			rec := s.do(t, http.MethodGet, tt.target, nil)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			p := problemOf(t, rec)
			assert.Equal(t, "Bad Request", p.Title)
			assert.Equal(t, tt.wantDetail, p.Detail)
			assert.Equal(t, 0.0, testutil.ToFloat64(s.metrics.UpstreamRequests.WithLabelValues("getPost", "success")))
		})
	}
}

func TestRouter_GenericErrorScenario(t *testing.T) {
	s := newTestServer(t, failingService{err: errors.New("something broke")})

	rec := s.do(t, http.MethodGet, "/posts/1", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal Server Error", problemOf(t, rec).Title)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.ExceptionsMain.WithLabelValues("errorString")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.RequestErrors))

	spans := s.serverSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, middleware.SpanErrorMessage, spans[0].Status().Description)
}

func TestRouter_TraceHeadersOnEveryResponse(t *testing.T) {
	s := newTestServer(t, nil)

	for _, target := range []string{"/posts", "/posts/7", "/posts/404", "/posts/abc", "/posts/500", "/nope", "/posts/7/unknown"} {
		t.Run(target, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, target, nil)
			assert.NotEmpty(t, rec.Header().Get("X-Trace-Id"))
			assert.NotEmpty(t, rec.Header().Get("X-Span-Id"))
		})
	}
}

func TestRouter_TraceContinuation(t *testing.T) {
	s := newTestServer(t, nil)
	inbound := map[string]string{
		"X-Trace-Id": "4bf92f3577b34da6a3ce929d0e0e4736",
		"X-Span-Id":  "00f067aa0ba902b7",
	}

	rec := s.do(t, http.MethodGet, "/posts/7", inbound)
	assert.Equal(t, inbound["X-Trace-Id"], rec.Header().Get("X-Trace-Id"))

	rec = s.do(t, http.MethodGet, "/posts/7", map[string]string{"X-Trace-Id": inbound["X-Trace-Id"]})
	assert.NotEqual(t, inbound["X-Trace-Id"], rec.Header().Get("X-Trace-Id"))
}

func TestRouter_UpstreamSpansAreChildrenOfRequestSpan(t *testing.T) {
	s := newTestServer(t, nil)

	s.do(t, http.MethodGet, "/posts/7?includeComments=true", nil)

	server := s.serverSpans()
	require.Len(t, server, 1)
	var children int
	for _, span := range s.spans.Ended() {
		if strings.HasPrefix(span.Name(), "upstream.") {
			children++
			assert.Equal(t, server[0].SpanContext().SpanID(), span.Parent().SpanID())
		}
	}
	assert.Equal(t, 2, children)
}

func TestRouter_OneLatencyObservationPerRequest(t *testing.T) {
	s := newTestServer(t, nil)

	s.do(t, http.MethodGet, "/posts/7", nil)
	s.do(t, http.MethodGet, "/posts/404", nil)
	s.do(t, http.MethodGet, "/posts/abc", nil)

	assert.Equal(t, 3.0, testutil.ToFloat64(s.metrics.RequestsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.metrics.RequestErrors))
	assert.Equal(t, 3, testutil.CollectAndCount(s.metrics.RequestDuration))
	assert.True(t, s.metrics.RequestDuration.DeleteLabelValues("GET", "/posts/{id}", "200"))
	assert.True(t, s.metrics.RequestDuration.DeleteLabelValues("GET", "/posts/{id}", "404"))
	assert.True(t, s.metrics.RequestDuration.DeleteLabelValues("GET", "/posts/{id}", "400"))
}

func TestRouter_UnknownRoutes(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", problemOf(t, rec).Title)

	rec = s.do(t, http.MethodDelete, "/posts/7", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	assert.Len(t, s.serverSpans(), 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(s.metrics.RequestsTotal))
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	t.Run("health", func(t *testing.T) {
		s := newTestServer(t, nil)
		rec := s.do(t, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
		assert.Empty(t, rec.Header().Get("X-Trace-Id"))
	})

	t.Run("ready", func(t *testing.T) {
		s := newTestServer(t, nil)
		rec := s.do(t, http.MethodGet, "/ready", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not ready", func(t *testing.T) {
		s := newTestServer(t, nil, func(context.Context) error { return errors.New("upstream down") })
		rec := s.do(t, http.MethodGet, "/ready", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("metrics", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.do(t, http.MethodGet, "/posts/7", nil)

		rec := s.do(t, http.MethodGet, "/metrics", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "http_server_requests_total 1")
		assert.Contains(t, body, `http_server_requests_seconds_count{method="GET",status="200",uri="/posts/7"} 1`)
		assert.Contains(t, body, `upstream_requests_total{operation="getPost",outcome="success"} 1`)
	})
}

func TestRouter_CORSExposesTraceHeaders(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/posts/7", map[string]string{"Origin": "https://example.com"})

	assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "X-Trace-Id")
}

func TestRouter_RequestDeadline(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(300 * time.Millisecond):
			fmt.Fprint(w, `{"userId":1,"id":7,"title":"t","body":"b"}`)
		}
	}))
	t.Cleanup(upstream.Close)

	logger := zap.NewNop()
	metrics := observability.NewCollector("")
	errorHandler := apperrors.NewErrorHandler(logger, metrics)
	chain := middleware.NewChain(middleware.NewMetricsInterceptor(metrics)).WithRecoverer(errorHandler.Handle)
	client := integration.NewClient(integration.ClientConfig{BaseURL: upstream.URL, Timeout: 2 * time.Second}, logger, metrics, nil)
	router := NewRouter(handlers.NewPostHandler(service.NewPostService(client, logger), logger), errorHandler, chain,
		metrics, logger, RouterConfig{RequestTimeout: 50 * time.Millisecond})

	rec := httptest.NewRecorder()
	router.Setup().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts/7", nil))

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	p := problemOf(t, rec)
	assert.Equal(t, http.StatusGatewayTimeout, p.Status)
	assert.Equal(t, apperrors.RequestTimeoutMessage, p.Detail)
	assert.Equal(t, 0, testutil.CollectAndCount(metrics.ExceptionsSystem))
	assert.Equal(t, 0, testutil.CollectAndCount(metrics.ExceptionsMain))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.UpstreamRequests.WithLabelValues("getPost", "deadline_exceeded")))
}
