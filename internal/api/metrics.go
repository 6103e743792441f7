package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	genverr "github.com/sajjad-MoBe/genv/internal/errors"
)

const metricsNamespace = "genv"

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Request metrics
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	requestErrors   *prometheus.CounterVec

	// Storage metrics
	storageKeys    prometheus.Gauge
	storageErrors  *prometheus.CounterVec
	storageLatency *prometheus.HistogramVec

	// Auth metrics
	authAttempts *prometheus.CounterVec
}

// NewMetrics registers the server metrics with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "operation", "status"},
		),
		requestTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "operation", "status"},
		),
		requestErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_errors_total",
				Help:      "Total number of HTTP requests answered with an error status",
			},
			[]string{"method", "operation", "status"},
		),

		storageKeys: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "storage_keys_total",
				Help:      "Number of variables in the table",
			},
		),
		storageErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "storage_errors_total",
				Help:      "Total number of snapshot errors",
			},
			[]string{"operation", "error_type"},
		),
		storageLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "storage_operation_duration_seconds",
				Help:      "Duration of snapshot operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		authAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "auth_attempts_total",
				Help:      "Total number of authentication attempts",
			},
			[]string{"result"},
		),
	}
}

// Middleware records request metrics labelled by operation
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := newResponseWriter(w)

		next.ServeHTTP(rw, r)

		operation := operationOf(r.URL.Path)
		status := strconv.Itoa(rw.statusCode)
		m.requestDuration.WithLabelValues(r.Method, operation, status).Observe(time.Since(start).Seconds())
		m.requestTotal.WithLabelValues(r.Method, operation, status).Inc()
		if rw.statusCode >= http.StatusBadRequest {
			m.requestErrors.WithLabelValues(r.Method, operation, status).Inc()
		}
	})
}

// RecordStorageMetrics records a snapshot operation
func (m *Metrics) RecordStorageMetrics(operation string, duration time.Duration, err error) {
	m.storageLatency.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		m.storageErrors.WithLabelValues(operation, string(genverr.TypeOf(err))).Inc()
	}
}

// RecordAuthMetrics records the outcome of an authentication attempt
func (m *Metrics) RecordAuthMetrics(err error) {
	if err != nil {
		m.authAttempts.WithLabelValues("failure").Inc()
		return
	}
	m.authAttempts.WithLabelValues("success").Inc()
}

// UpdateStorageMetrics updates the table size gauge
func (m *Metrics) UpdateStorageMetrics(keys int) {
	m.storageKeys.Set(float64(keys))
}

// ObservePersist adapts Metrics to the table's persist observer
func (m *Metrics) ObservePersist(keys int, duration time.Duration, err error) {
	if err != nil {
		err = genverr.New(genverr.ErrorTypeStorage, "snapshot save failed", err)
	}
	m.RecordStorageMetrics("save", duration, err)
	if err == nil {
		m.UpdateStorageMetrics(keys)
	}
}

// operationOf keeps label cardinality bounded to the known operations
func operationOf(path string) string {
	first, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	switch first {
	case "get", "set", "all":
		return first
	default:
		return "unknown"
	}
}
