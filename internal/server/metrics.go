package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's collectors on a private registry, so several
// servers (and tests) can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	queries         *prometheus.CounterVec
	queryDuration   prometheus.Histogram
	queryRows       prometheus.Histogram
	blocksWritten   prometheus.Counter
}

// NewMetrics registers the discourse collectors plus the Go runtime and
// process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "discourse_http_requests_total",
			Help: "HTTP requests processed, by route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "discourse_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		queries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "discourse_query_executions_total",
			Help: "Query executions, by outcome.",
		}, []string{"outcome"}),
		queryDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "discourse_query_duration_seconds",
			Help:    "Time spent executing compiled programs.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		queryRows: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "discourse_query_rows",
			Help:    "Rows returned per query before pagination.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		blocksWritten: f.NewCounter(prometheus.CounterOpts{
			Name: "discourse_blocks_written_total",
			Help: "Blocks appended to the graph through the API.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
