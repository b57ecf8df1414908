package observability

import (
	"net/http"
	"strconv"
	"time"

	appctx "audition-backend/internal/context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application.
//
// Metric names follow the Prometheus spelling of the dotted meter names the
// service has always exposed: http.server.requests.total becomes
// http_server_requests_total, the http.server.requests timer becomes the
// http_server_requests_seconds histogram, and so on.
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP server metrics
	RequestsTotal   prometheus.Counter
	RequestErrors   prometheus.Counter
	RequestDuration *prometheus.HistogramVec

	// Error translator metrics
	ExceptionsMain   *prometheus.CounterVec
	ExceptionsSystem *prometheus.CounterVec

	// Upstream client metrics
	UpstreamRequests *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec

	now func() time.Time
}

// NewCollector creates a new metrics collector backed by its own registry.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_server_requests_total",
			Help:      "Total number of HTTP requests",
		},
	)

	requestErrors := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_server_requests_errors_total",
			Help:      "Total number of HTTP request errors",
		},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_server_requests_seconds",
			Help:      "HTTP Server Requests",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "uri", "status"},
	)

	exceptionsMain := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exceptions_main_total",
			Help:      "Unclassified errors translated into a problem response",
		},
		[]string{"exception"},
	)

	exceptionsSystem := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exceptions_system_total",
			Help:      "Domain errors translated into a problem response",
		},
		[]string{"exception"},
	)

	upstreamRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Outbound calls to the upstream API by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	upstreamDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Outbound call duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	registry.MustRegister(
		requestsTotal,
		requestErrors,
		requestDuration,
		exceptionsMain,
		exceptionsSystem,
		upstreamRequests,
		upstreamDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Collector{
		registry:         registry,
		RequestsTotal:    requestsTotal,
		RequestErrors:    requestErrors,
		RequestDuration:  requestDuration,
		ExceptionsMain:   exceptionsMain,
		ExceptionsSystem: exceptionsSystem,
		UpstreamRequests: upstreamRequests,
		UpstreamDuration: upstreamDuration,
		now:              time.Now,
	}
}

// StartTimer starts a latency sample for one request.
func (c *Collector) StartTimer() *appctx.TimingSample {
	return &appctx.TimingSample{StartedAt: c.now()}
}

// ObserveRequest stops sample and records it on the request duration histogram.
func (c *Collector) ObserveRequest(sample *appctx.TimingSample, method, uri string, status int) {
	if sample == nil {
		return
	}
	c.RequestDuration.WithLabelValues(method, uri, strconv.Itoa(status)).
		Observe(c.now().Sub(sample.StartedAt).Seconds())
}

// ObserveUpstream records one outbound call.
func (c *Collector) ObserveUpstream(operation, outcome string, duration time.Duration) {
	c.UpstreamRequests.WithLabelValues(operation, outcome).Inc()
	c.UpstreamDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// Registry returns the Prometheus registry for this collector
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler exposes the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
