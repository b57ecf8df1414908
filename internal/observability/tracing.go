package observability

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// DefaultServiceName is used when no service name is configured.
const DefaultServiceName = "audition-api"

// TracerProvider wraps the OpenTelemetry SDK provider with the tracer the
// service uses for inbound and outbound spans.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	config   TracingConfig
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	ServiceName string
	Version     string
	Environment string
	// Endpoint is the OTLP gRPC collector address. Spans are created but not
	// exported when it is empty.
	Endpoint   string
	Insecure   bool
	SampleRate float64
}

// InitTracing builds the tracer provider and installs it as the global one.
func InitTracing(ctx context.Context, config TracingConfig, opts ...sdktrace.TracerProviderOption) (*TracerProvider, error) {
	if config.ServiceName == "" {
		config.ServiceName = DefaultServiceName
	}
	if config.SampleRate == 0 {
		config.SampleRate = getSampleRate(config.Environment)
	}

	res, err := createResource(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	options := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(config.SampleRate))),
	}

	if config.Endpoint != "" {
		exporter, err := createOTLPExporter(ctx, config)
		if err != nil {
			return nil, fmt.Errorf("failed to create exporter: %w", err)
		}
		options = append(options, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(append(options, opts...)...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &TracerProvider{
		provider: tp,
		tracer:   tp.Tracer(config.ServiceName),
		config:   config,
	}, nil
}

// createOTLPExporter creates an OTLP gRPC exporter
func createOTLPExporter(ctx context.Context, config TracingConfig) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
}

// createResource creates a resource describing this service
func createResource(config TracingConfig) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(config.ServiceName),
		attribute.String("deployment.environment", config.Environment),
	}
	if config.Version != "" {
		attrs = append(attrs, semconv.ServiceVersion(config.Version))
	}
	if hostname, err := os.Hostname(); err == nil {
		attrs = append(attrs, semconv.HostName(hostname))
	}

	return resource.Merge(
		resource.Default(),
		resource.NewSchemaless(attrs...),
	)
}

// getSampleRate returns the default sample rate for an environment
func getSampleRate(environment string) float64 {
	switch environment {
	case "production":
		return 0.1
	default:
		return 1.0
	}
}

// Tracer returns the service tracer.
func (tp *TracerProvider) Tracer() trace.Tracer {
	return tp.tracer
}

// Shutdown flushes pending spans and stops the provider.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	return tp.provider.Shutdown(ctx)
}
