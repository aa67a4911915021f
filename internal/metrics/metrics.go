// Package metrics provides Prometheus metrics for the dispatcher.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Default histogram buckets for request latency.
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// Metrics holds all Prometheus metric collectors for the dispatcher.
type Metrics struct {
	Registry *prometheus.Registry

	scrapePath string

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	BackendDuration  prometheus.Histogram
	BackendResponses *prometheus.CounterVec
	ProxyFailures    *prometheus.CounterVec
}

// New creates a Metrics instance with a custom registry and all collectors
// registered. scrapePath is the route the registry is exposed on.
func New(scrapePath string) *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry:   reg,
		scrapePath: scrapePath,

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xmrig_webui_http_requests_total",
			Help: "Total inbound HTTP requests.",
		}, []string{"method", "status_code", "route"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "xmrig_webui_http_request_duration_seconds",
			Help:    "Inbound HTTP request latency in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method", "status_code", "route"}),

		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "xmrig_webui_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed.",
		}),

		BackendDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "xmrig_webui_backend_request_duration_seconds",
			Help:    "Backend fetch latency in seconds.",
			Buckets: defaultBuckets,
		}),

		BackendResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xmrig_webui_backend_responses_total",
			Help: "Total backend responses by status code.",
		}, []string{"status_code"}),

		ProxyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xmrig_webui_proxy_failures_total",
			Help: "Proxied requests answered with 500, by failure kind.",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.BackendDuration,
		m.BackendResponses,
		m.ProxyFailures,
	)

	return m
}

// knownMethods lists the allowed HTTP method label values (bounded cardinality).
var knownMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// NormalizeMethod returns a bounded HTTP method label for Prometheus metrics.
// Non-standard methods are mapped to "other" to prevent cardinality explosion.
func NormalizeMethod(method string) string {
	if knownMethods[method] {
		return method
	}
	return "other"
}

// knownPrefixes lists the dispatcher-owned route labels. Everything else is
// a static file request.
var knownPrefixes = []string{"/api", "/healthz", "/proxy/status"}

// NormalizePath returns a bounded route label for Prometheus metrics.
func NormalizePath(path string) string {
	for _, prefix := range knownPrefixes {
		if hasRoutePrefix(path, prefix) {
			return prefix
		}
	}
	return "static"
}

// Route is NormalizePath plus the configured scrape path, which is labelled
// "metrics" wherever it is mounted.
func (m *Metrics) Route(path string) string {
	if m.scrapePath != "" && hasRoutePrefix(path, m.scrapePath) {
		return "metrics"
	}
	return NormalizePath(path)
}

func hasRoutePrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/") || strings.HasPrefix(path, prefix+"?")
}
