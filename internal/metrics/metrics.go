// Package metrics provides Prometheus metrics for the metadata service
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/geomd/metaschema/internal/validation"
)

// Metrics holds all Prometheus metrics of the service.
// Each instance owns its registry so tests can create as many as they need.
type Metrics struct {
	Registry *prometheus.Registry

	// HTTP request metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Validation metrics
	ValidationsTotal  *prometheus.CounterVec
	ViolationsTotal   *prometheus.CounterVec
	CacheLookupsTotal *prometheus.CounterVec

	// Store metrics
	RecordsStoredTotal prometheus.Counter

	// WebSocket metrics
	StreamConnections prometheus.Gauge
}

// New creates and registers all metrics on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metaschema_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "metaschema_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		ValidationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metaschema_validations_total",
				Help: "Total number of validated records",
			},
			[]string{"type", "result"},
		),
		ViolationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metaschema_violations_total",
				Help: "Total number of reported violations",
			},
			[]string{"kind", "severity"},
		),
		CacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metaschema_report_cache_lookups_total",
				Help: "Validation report cache lookups",
			},
			[]string{"result"},
		),

		RecordsStoredTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "metaschema_records_stored_total",
				Help: "Total number of records written to the store",
			},
		),

		StreamConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "metaschema_stream_connections",
				Help: "Number of open validation stream connections",
			},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// RecordHTTPRequest records one served request
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordValidation records the outcome of one validation run
func (m *Metrics) RecordValidation(typeName string, vs validation.Violations) {
	result := "valid"
	if !vs.Valid() {
		result = "invalid"
	}
	m.ValidationsTotal.WithLabelValues(typeName, result).Inc()
	for _, v := range vs {
		m.ViolationsTotal.WithLabelValues(string(v.Kind), string(v.Severity)).Inc()
	}
}

// RecordCacheLookup records a report cache hit or miss
func (m *Metrics) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}
