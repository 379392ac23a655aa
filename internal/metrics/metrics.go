package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type CheckoutMetrics struct {
	Attempts         *prometheus.CounterVec
	GatewayLatencyMS prometheus.Histogram
}

func NewCheckoutMetrics(service string) *CheckoutMetrics {
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bizportal",
		Subsystem: service,
		Name:      "checkout_attempts_total",
		Help:      "Total number of checkout attempts by outcome.",
	}, []string{"outcome"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "bizportal",
		Subsystem: service,
		Name:      "gateway_request_duration_ms",
		Help:      "Payment gateway request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	})

	prometheus.MustRegister(attempts, latency)
	return &CheckoutMetrics{Attempts: attempts, GatewayLatencyMS: latency}
}

func (m *CheckoutMetrics) Observe(outcome string) {
	if m == nil {
		return
	}
	m.Attempts.WithLabelValues(outcome).Inc()
}

func (m *CheckoutMetrics) ObserveGatewayLatency(ms float64) {
	if m == nil {
		return
	}
	m.GatewayLatencyMS.Observe(ms)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
