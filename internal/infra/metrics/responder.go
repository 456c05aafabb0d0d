package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(responderCallsLatencyMs, responderFallbacksTotal)
}

var (
	responderCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "responder_calls_latency_ms",
			Help:    "AI responder latency distribution in milliseconds.",
			Buckets: []float64{50, 100, 200, 400, 800, 1600, 3000, 5000, 10000, 20000},
		},
		[]string{"provider", "intent", "success"},
	)

	responderFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "responder_fallbacks_total",
			Help: "Replies answered with canned text because the responder failed.",
		},
		[]string{"intent"},
	)
)

func ObserveResponder(provider, intent string, took time.Duration, success bool) {
	responderCallsLatencyMs.
		WithLabelValues(norm(provider), norm(intent), strconv.FormatBool(success)).
		Observe(float64(took.Milliseconds()))
}

func IncResponderFallback(intent string) {
	responderFallbacksTotal.WithLabelValues(norm(intent)).Inc()
}
