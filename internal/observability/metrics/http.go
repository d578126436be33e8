package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// APIMetrics covers the HTTP front end and the pipeline outcomes it drives.
type APIMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	ingestTotal        *prometheus.CounterVec
	ingestChunks       *prometheus.HistogramVec
	askTotal           *prometheus.CounterVec
	askRetrievedChunks *prometheus.HistogramVec
	askNoContextTotal  *prometheus.CounterVec
	askDuration        *prometheus.HistogramVec
}

func NewAPIMetrics(service string) *APIMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "corpus",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "corpus",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "corpus",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	ingestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "corpus",
			Subsystem: "ingest",
			Name:      "documents_total",
			Help:      "Total ingestion calls by outcome.",
		},
		[]string{"service", "tenant", "outcome"},
	)
	ingestChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "corpus",
			Subsystem: "ingest",
			Name:      "chunks_per_document",
			Help:      "Distribution of indexed chunks per accepted document.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100, 200},
		},
		[]string{"service", "tenant"},
	)
	askTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "corpus",
			Subsystem: "ask",
			Name:      "requests_total",
			Help:      "Total successful ask requests.",
		},
		[]string{"service", "tenant"},
	)
	askRetrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "corpus",
			Subsystem: "ask",
			Name:      "retrieved_chunks",
			Help:      "Distribution of retrieved passages per ask request.",
			Buckets:   []float64{0, 1, 2, 3, 4, 6, 8},
		},
		[]string{"service", "tenant"},
	)
	askNoContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "corpus",
			Subsystem: "ask",
			Name:      "no_context_total",
			Help:      "Total ask requests answered without retrieved context.",
		},
		[]string{"service", "tenant"},
	)
	askDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "corpus",
			Subsystem: "ask",
			Name:      "duration_seconds",
			Help:      "Ask execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "tenant"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		ingestTotal,
		ingestChunks,
		askTotal,
		askRetrievedChunks,
		askNoContextTotal,
		askDuration,
	)

	return &APIMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		ingestTotal:        ingestTotal,
		ingestChunks:       ingestChunks,
		askTotal:           askTotal,
		askRetrievedChunks: askRetrievedChunks,
		askNoContextTotal:  askNoContextTotal,
		askDuration:        askDuration,
	}
}

func (m *APIMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *APIMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/bindings/"):
		return "/v1/bindings/{channel_id}"
	default:
		return path
	}
}

func (m *APIMetrics) RecordIngest(service, tenant, outcome string, chunks int) {
	m.ingestTotal.WithLabelValues(service, tenant, outcome).Inc()
	if outcome == "accepted" {
		m.ingestChunks.WithLabelValues(service, tenant).Observe(float64(chunks))
	}
}

func (m *APIMetrics) RecordAsk(service, tenant string, sourceCount int, duration time.Duration) {
	m.askTotal.WithLabelValues(service, tenant).Inc()
	m.askRetrievedChunks.WithLabelValues(service, tenant).Observe(float64(sourceCount))
	m.askDuration.WithLabelValues(service, tenant).Observe(duration.Seconds())
	if sourceCount == 0 {
		m.askNoContextTotal.WithLabelValues(service, tenant).Inc()
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
