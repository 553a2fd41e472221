// Package metrics exposes the daemon's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	TaskTotal           *prometheus.CounterVec
	TaskDuration        *prometheus.HistogramVec
	OCRAttemptsTotal    *prometheus.CounterVec
	OCRDuration         prometheus.Histogram
	LLMRequestsTotal    *prometheus.CounterVec
	LLMDuration         prometheus.Histogram
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New builds the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TaskTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "task_total", Help: "Total number of processed tasks"},
			[]string{"task_name", "status"},
		),
		TaskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "task_duration_seconds", Help: "Task processing duration in seconds", Buckets: prometheus.DefBuckets},
			[]string{"task_name"},
		),
		OCRAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "ocr_attempts_total", Help: "Total number of OCR attempts"},
			[]string{"status"},
		),
		OCRDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{Name: "ocr_duration_seconds", Help: "OCR download and recognition duration in seconds", Buckets: prometheus.DefBuckets},
		),
		LLMRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "llm_requests_total", Help: "Total number of generative-text extraction requests"},
			[]string{"status"},
		),
		LLMDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{Name: "llm_duration_seconds", Help: "Generative-text extraction duration in seconds", Buckets: prometheus.DefBuckets},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "http_requests_total", Help: "Total number of HTTP requests"},
			[]string{"handler", "method", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds", Buckets: prometheus.DefBuckets},
			[]string{"handler", "method"},
		),
	}
	reg.MustRegister(
		m.TaskTotal, m.TaskDuration,
		m.OCRAttemptsTotal, m.OCRDuration,
		m.LLMRequestsTotal, m.LLMDuration,
		m.HTTPRequestsTotal, m.HTTPRequestDuration,
	)
	return m
}

// LLMRequest records one extractor call.
func (m *Metrics) LLMRequest(status string, d time.Duration) {
	m.LLMRequestsTotal.WithLabelValues(status).Inc()
	m.LLMDuration.Observe(d.Seconds())
}

// OCRAttempt records one attachment download and read.
func (m *Metrics) OCRAttempt(status string, d time.Duration) {
	m.OCRAttemptsTotal.WithLabelValues(status).Inc()
	m.OCRDuration.Observe(d.Seconds())
}

// Task records one submission's terminal status.
func (m *Metrics) Task(name, status string, d time.Duration) {
	m.TaskTotal.WithLabelValues(name, status).Inc()
	m.TaskDuration.WithLabelValues(name).Observe(d.Seconds())
}

// InstrumentHandler wraps an HTTP handler with Prometheus instrumentation
func (m *Metrics) InstrumentHandler(handlerName string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		// Wrap ResponseWriter to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		m.HTTPRequestsTotal.WithLabelValues(handlerName, r.Method, strconv.Itoa(wrapped.statusCode)).Inc()
		m.HTTPRequestDuration.WithLabelValues(handlerName, r.Method).Observe(time.Since(startTime).Seconds())
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
