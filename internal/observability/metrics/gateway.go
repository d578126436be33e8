package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// GatewayMetrics covers the chat gateway's message handling.
type GatewayMetrics struct {
	registry *prometheus.Registry

	messagesTotal   *prometheus.CounterVec
	handleDuration  *prometheus.HistogramVec
	messageInFlight prometheus.Gauge
}

func NewGatewayMetrics(service string) *GatewayMetrics {
	registry := prometheus.NewRegistry()

	messagesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "corpus",
			Subsystem: "gateway",
			Name:      "messages_total",
			Help:      "Total handled chat messages by outcome.",
		},
		[]string{"service", "outcome"},
	)
	handleDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "corpus",
			Subsystem: "gateway",
			Name:      "handle_duration_seconds",
			Help:      "Chat message handling duration in seconds by outcome.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "outcome"},
	)
	messageInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "corpus",
			Subsystem: "gateway",
			Name:      "messages_in_flight",
			Help:      "Number of chat messages being handled.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(messagesTotal, handleDuration, messageInFlight)

	return &GatewayMetrics{
		registry:        registry,
		messagesTotal:   messagesTotal,
		handleDuration:  handleDuration,
		messageInFlight: messageInFlight,
	}
}

func (m *GatewayMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *GatewayMetrics) StartMessage() {
	m.messageInFlight.Inc()
}

func (m *GatewayMetrics) FinishMessage(service, outcome string, duration time.Duration) {
	m.messageInFlight.Dec()
	if outcome == "" {
		outcome = "unknown"
	}
	m.messagesTotal.WithLabelValues(service, outcome).Inc()
	m.handleDuration.WithLabelValues(service, outcome).Observe(duration.Seconds())
}
