// Package metrics exposes Prometheus instrumentation for the HTTP API, the
// stipend engine and the event store.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kollel/stipend-engine/stipend"
)

// Service owns a private registry so tests can create as many as they like.
type Service struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	batchDuration   prometheus.Histogram
	batchesTotal    prometheus.Counter
	studentsTotal   prometheus.Counter
	anomaliesTotal  prometheus.Counter
	warningsTotal   *prometheus.CounterVec
	payout          prometheus.Histogram
	dbQueryDuration *prometheus.HistogramVec
}

func New() *Service {
	registry := prometheus.NewRegistry()

	s := &Service{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stipend_batch_duration_seconds",
			Help:    "Time spent computing one batch",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		batchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stipend_batches_total",
			Help: "Number of computed batches",
		}),
		studentsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stipend_students_total",
			Help: "Number of student results produced",
		}),
		anomaliesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stipend_parse_anomalies_total",
			Help: "Time values that could not be read",
		}),
		warningsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stipend_warnings_total",
			Help: "Warnings attached to student results, by code",
		}, []string{"code"}),
		payout: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stipend_payout_shekels",
			Help:    "Distribution of grand totals",
			Buckets: prometheus.LinearBuckets(0, 250, 10),
		}),
		dbQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries",
			Buckets: prometheus.DefBuckets,
		}, []string{"query"}),
	}

	registry.MustRegister(
		s.requestDuration, s.requestTotal,
		s.batchDuration, s.batchesTotal, s.studentsTotal, s.anomaliesTotal, s.warningsTotal, s.payout,
		s.dbQueryDuration,
		collectors.NewGoCollector(),
	)
	s.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return s
}

// Handler exposes the Prometheus HTTP handler.
func (m *Service) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry is exposed for tests.
func (m *Service) Registry() *prometheus.Registry { return m.registry }

// ObserveHTTPRequest records request metrics.
func (m *Service) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// Middleware records every request under its chi route pattern, so that
// path parameters do not explode label cardinality.
func (m *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			path = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.ObserveHTTPRequest(r.Method, path, status, time.Since(start))
	})
}

// ObserveStudent implements stipend.Recorder.
func (m *Service) ObserveStudent(r stipend.StudentResult) {
	if m == nil {
		return
	}
	m.studentsTotal.Inc()
	m.payout.Observe(r.GrandTotal.Float64())
	for _, w := range r.Warnings {
		m.warningsTotal.WithLabelValues(string(w.Code)).Inc()
	}
}

// ObserveBatch implements stipend.Recorder.
func (m *Service) ObserveBatch(_ int, anomalies int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.batchesTotal.Inc()
	m.anomaliesTotal.Add(float64(anomalies))
	m.batchDuration.Observe(elapsed.Seconds())
}

// ObserveDBQuery records database query timing.
func (m *Service) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}
