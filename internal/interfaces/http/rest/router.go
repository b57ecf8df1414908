// Package rest wires the HTTP routes of the posts API.
package rest

import (
	"context"
	"net/http"
	"time"

	apperrors "audition-backend/internal/errors"
	"audition-backend/internal/interfaces/http/rest/handlers"
	"audition-backend/internal/middleware"
	"audition-backend/internal/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterConfig holds the HTTP settings of the router
type RouterConfig struct {
	AllowedOrigins []string
	// RequestTimeout bounds the time a request may spend in the API handlers.
	RequestTimeout time.Duration
}

// ReadinessCheck reports whether a dependency is ready to serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Router creates and configures the HTTP router
type Router struct {
	postHandler  *handlers.PostHandler
	errorHandler *apperrors.ErrorHandler
	chain        *middleware.Chain
	metrics      *observability.Collector
	logger       *zap.Logger
	config       RouterConfig
	readiness    []ReadinessCheck
}

// NewRouter creates a new router instance
func NewRouter(
	postHandler *handlers.PostHandler,
	errorHandler *apperrors.ErrorHandler,
	chain *middleware.Chain,
	metrics *observability.Collector,
	logger *zap.Logger,
	config RouterConfig,
	readiness ...ReadinessCheck,
) *Router {
	return &Router{
		postHandler:  postHandler,
		errorHandler: errorHandler,
		chain:        chain,
		metrics:      metrics,
		logger:       logger,
		config:       config,
		readiness:    readiness,
	}
}

// Setup configures all routes and middleware. API routes, and requests that
// match no route, run through the interceptor chain; the operational
// endpoints do not.
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)

	origins := rt.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Trace-Id", "X-Span-Id"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Trace-Id", "X-Span-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	router.Method(http.MethodGet, "/metrics", rt.metrics.Handler())

	router.NotFound(rt.chain.Handler(rt.errorHandler.NotFound()).ServeHTTP)
	router.MethodNotAllowed(rt.chain.Handler(rt.errorHandler.MethodNotAllowed()).ServeHTTP)

	router.Group(func(r chi.Router) {
		r.Use(rt.chain.Handler)
		if rt.config.RequestTimeout > 0 {
			r.Use(requestDeadline(rt.config.RequestTimeout))
		}

		r.Route("/posts", func(r chi.Router) {
			// Already inside the chain.
			r.NotFound(rt.errorHandler.NotFound())
			r.MethodNotAllowed(rt.errorHandler.MethodNotAllowed())

			wrap := rt.errorHandler.Wrap
			r.Get("/", wrap(rt.postHandler.ListPosts))
			r.Get("/{id}", wrap(rt.postHandler.GetPost))
			r.Get("/{id}/comments", wrap(rt.postHandler.GetComments))
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	for _, check := range rt.readiness {
		if err := check(req.Context()); err != nil {
			rt.logger.Warn("Readiness check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"not ready"}`))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// requestDeadline bounds the request context. Unlike chi's Timeout it never
// writes a response itself; a handler cut off by the deadline reports it as
// an error and the error translator answers with 504.
func requestDeadline(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
