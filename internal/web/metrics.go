package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Field commit outcomes.
const (
	commitSaved   = "saved"
	commitFailed  = "failed"
	commitSkipped = "skipped"
)

// Metrics are the back-office's Prometheus collectors. Each router owns its
// own registry.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	commits  *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pekarna",
			Name:      "http_requests_total",
			Help:      "Page and form requests by route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pekarna",
			Name:      "http_request_duration_seconds",
			Help:      "Time spent serving page and form requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pekarna",
			Name:      "field_commits_total",
			Help:      "Blur commits by endpoint and outcome.",
		}, []string{"endpoint", "result"}),
	}
	m.registry.MustRegister(
		m.requests, m.duration, m.commits,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observe(method, route string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) commit(endpoint, result string) {
	m.commits.WithLabelValues(endpoint, result).Inc()
}
