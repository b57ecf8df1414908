package middleware

import (
	"net/http"

	"audition-backend/internal/observability"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// nullValue is logged in place of absent request attributes.
const nullValue = "null"

// LoggingInterceptor logs every request and its outcome.
type LoggingInterceptor struct {
	logger *zap.Logger
}

// NewLoggingInterceptor creates a request logging interceptor
func NewLoggingInterceptor(logger *zap.Logger) *LoggingInterceptor {
	return &LoggingInterceptor{logger: logger}
}

func (l *LoggingInterceptor) PreHandle(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
	remoteUser, _, _ := r.BasicAuth()

	observability.LoggerWithContext(r.Context(), l.logger).Info("Request",
		zap.String("uri", orNull(r.URL.Path)),
		zap.String("method", orNull(r.Method)),
		zap.String("query", orNull(r.URL.RawQuery)),
		zap.String("remote_user", orNull(remoteUser)),
		zap.String("request_id", orNull(middleware.GetReqID(r.Context()))),
	)
	return r, true
}

func (l *LoggingInterceptor) AfterCompletion(r *http.Request, status int, err error) {
	logger := observability.LoggerWithContext(r.Context(), l.logger)
	logger.Info("Response", zap.Int("status", status))

	if err != nil {
		logger.Error("Request to "+r.URL.Path+" resulted in an exception",
			zap.String("uri", r.URL.Path),
			zap.Error(err),
			zap.Strings("error_chain", observability.ErrorChain(err)),
		)
	}
}

func orNull(s string) string {
	if s == "" {
		return nullValue
	}
	return s
}
