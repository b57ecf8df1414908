package errors

import (
	"context"
	"errors"
	"net/http"

	appctx "audition-backend/internal/context"
	"audition-backend/internal/integration"
	"audition-backend/internal/observability"

	"go.uber.org/zap"
)

// RequestTimeoutMessage is the detail of a request cut off by its deadline.
const RequestTimeoutMessage = "Request processing exceeded the configured timeout"

// HandlerFunc is an HTTP handler that reports failure by returning an error
// instead of writing the response itself.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// problemError is implemented by domain errors that carry their own status
// and title.
type problemError interface {
	error
	StatusCode() int
	Title() string
	Detail() string
}

// ErrorHandler translates handler errors into problem responses.
type ErrorHandler struct {
	logger  *zap.Logger
	metrics *observability.Collector
}

// NewErrorHandler creates a new error handler. metrics may be nil.
func NewErrorHandler(logger *zap.Logger, metrics *observability.Collector) *ErrorHandler {
	return &ErrorHandler{
		logger:  logger,
		metrics: metrics,
	}
}

// Wrap adapts fn to an http.HandlerFunc. Returned errors and panics are
// translated by Handle.
func (h *ErrorHandler) Wrap(fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.Handle(w, r, NewPanicError(rec))
			}
		}()

		if err := fn(w, r); err != nil {
			h.Handle(w, r, err)
		}
	}
}

// Handle records err on the request, logs it and writes the problem response.
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	if state := appctx.RequestStateFromContext(r.Context()); state != nil {
		state.RecordError(err)
	}

	problem := h.translate(err)
	problem.Instance = r.URL.Path

	h.logError(r, err, problem)

	if werr := problem.write(w); werr != nil {
		observability.LoggerWithContext(r.Context(), h.logger).Error("Failed to encode problem response",
			zap.Error(werr),
			zap.Int("status", problem.Status),
		)
	}
}

// NotFound answers requests for unknown routes.
func (h *ErrorHandler) NotFound() http.HandlerFunc {
	return h.Wrap(func(w http.ResponseWriter, r *http.Request) error {
		return NewStatusError(http.StatusNotFound, "No handler found for "+r.Method+" "+r.URL.Path)
	})
}

// MethodNotAllowed answers requests whose route exists for other methods.
func (h *ErrorHandler) MethodNotAllowed() http.HandlerFunc {
	return h.Wrap(func(w http.ResponseWriter, r *http.Request) error {
		return NewStatusError(http.StatusMethodNotAllowed, "Request method '"+r.Method+"' is not supported")
	})
}

// translate maps err onto a problem response and counts it.
//
// Client errors reported by the upstream or raised with a bare status keep
// their status and render with the default title. Domain errors keep their own
// status and title. A request that ran out of time is a 504. Anything else is
// an internal error.
func (h *ErrorHandler) translate(err error) ProblemResponse {
	var clientErr *integration.ClientError
	if errors.As(err, &clientErr) {
		return NewProblemResponse(statusOr500(clientErr.StatusCode()), DefaultTitle, clientErr.Detail(), "")
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return NewProblemResponse(statusOr500(statusErr.Status), "", statusErr.Error(), "")
	}

	var domainErr problemError
	if errors.As(err, &domainErr) {
		if h.metrics != nil {
			h.metrics.ExceptionsSystem.WithLabelValues(Kind(domainErr)).Inc()
		}
		return NewProblemResponse(statusOr500(domainErr.StatusCode()), domainErr.Title(), domainErr.Detail(), "")
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewProblemResponse(http.StatusGatewayTimeout, "", RequestTimeoutMessage, "")
	}

	if h.metrics != nil {
		h.metrics.ExceptionsMain.WithLabelValues(Kind(err)).Inc()
	}
	return NewProblemResponse(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), err.Error(), "")
}

// logError logs the error with a level matching its status
func (h *ErrorHandler) logError(r *http.Request, err error, problem ProblemResponse) {
	logger := observability.LoggerWithContext(r.Context(), h.logger)
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", problem.Status),
		zap.String("title", problem.Title),
		zap.String("error_kind", Kind(err)),
		zap.Error(err),
		zap.Strings("error_chain", observability.ErrorChain(err)),
	}

	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		fields = append(fields, zap.ByteString("stack", panicErr.Stack))
	}

	switch {
	case problem.Status >= 500:
		logger.Error(problem.Detail, fields...)
	default:
		logger.Warn(problem.Detail, fields...)
	}
}

func statusOr500(status int) int {
	if status < 400 || status > 599 {
		return http.StatusInternalServerError
	}
	return status
}
