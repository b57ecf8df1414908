// Package di wires the service's dependencies with google/wire.
package di

import (
	"context"
	"time"

	"audition-backend/internal/config"
	apperrors "audition-backend/internal/errors"
	"audition-backend/internal/integration"
	"audition-backend/internal/interfaces/http/rest"
	"audition-backend/internal/interfaces/http/rest/handlers"
	"audition-backend/internal/middleware"
	"audition-backend/internal/observability"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// Version is the build version reported in traces and by the CLI.
type Version string

// Logging bundles the root logger with the level that controls it at runtime.
type Logging struct {
	Logger *zap.Logger
	Level  zap.AtomicLevel
}

// ProvideLogging creates the root logger
func ProvideLogging(cfg *config.Config) (*Logging, func(), error) {
	logger, level, err := observability.NewLogger(observability.LoggingConfig{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		return nil, nil, err
	}
	logger = logger.With(zap.String("environment", string(cfg.Environment)))
	cleanup := func() {
		_ = logger.Sync()
	}
	return &Logging{Logger: logger, Level: level}, cleanup, nil
}

// ProvideLogger exposes the root logger
func ProvideLogger(l *Logging) *zap.Logger {
	return l.Logger
}

// ProvideTracer creates the service tracer. With tracing disabled a no-op
// tracer is returned and the trace interceptor generates its own ids.
func ProvideTracer(ctx context.Context, cfg *config.Config, version Version, logger *zap.Logger) (trace.Tracer, func(), error) {
	if !cfg.Tracing.Enabled {
		logger.Info("Tracing disabled")
		return noop.NewTracerProvider().Tracer(cfg.Tracing.ServiceName), func() {}, nil
	}

	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName: cfg.Tracing.ServiceName,
		Version:     string(version),
		Environment: string(cfg.Environment),
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Tracing initialized",
		zap.String("service", cfg.Tracing.ServiceName),
		zap.String("endpoint", cfg.Tracing.Endpoint),
		zap.Float64("sample_rate", cfg.Tracing.SampleRate),
	)

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shut down tracer provider", zap.Error(err))
		}
	}
	return tp.Tracer(), cleanup, nil
}

// ProvideMetrics creates the metrics collector
func ProvideMetrics() *observability.Collector {
	return observability.NewCollector("")
}

// ProvideClient creates the upstream posts client
func ProvideClient(cfg *config.Config, logger *zap.Logger, metrics *observability.Collector, tracer trace.Tracer) *integration.Client {
	breaker := cfg.Upstream.Breaker
	return integration.NewClient(integration.ClientConfig{
		BaseURL:              cfg.Upstream.BaseURL,
		Timeout:              cfg.Upstream.Timeout,
		EnableCircuitBreaker: cfg.Upstream.EnableCircuitBreaker,
		Breaker: integration.BreakerConfig{
			Name:             "upstream",
			MaxRequests:      breaker.MaxRequests,
			Interval:         breaker.Interval,
			Timeout:          breaker.Timeout,
			FailureThreshold: breaker.FailureThreshold,
			MinRequests:      breaker.MinRequests,
		},
	}, logger, metrics, tracer)
}

// ProvideChain creates the interceptor chain run around every API request.
// Tracing runs first so the other interceptors log and measure inside the span.
func ProvideChain(tracer trace.Tracer, logger *zap.Logger, metrics *observability.Collector, errorHandler *apperrors.ErrorHandler) *middleware.Chain {
	return middleware.NewChain(
		middleware.NewTraceInterceptor(tracer),
		middleware.NewLoggingInterceptor(logger),
		middleware.NewMetricsInterceptor(metrics),
	).WithRecoverer(errorHandler.Handle)
}

// ProvideRouterConfig extracts the router settings
func ProvideRouterConfig(cfg *config.Config) rest.RouterConfig {
	return rest.RouterConfig{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
	}
}

// ProvideReadinessChecks lists the checks behind /ready
func ProvideReadinessChecks(client *integration.Client) []rest.ReadinessCheck {
	return []rest.ReadinessCheck{client.Ready}
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	postHandler *handlers.PostHandler,
	errorHandler *apperrors.ErrorHandler,
	chain *middleware.Chain,
	metrics *observability.Collector,
	logger *zap.Logger,
	routerConfig rest.RouterConfig,
	checks []rest.ReadinessCheck,
) *rest.Router {
	return rest.NewRouter(postHandler, errorHandler, chain, metrics, logger, routerConfig, checks...)
}
