package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		dispatchEventsTotal,
		dispatchRecipientsTotal,
		dispatchDuration,
		platformEventsTotal,
	)
}

var (
	dispatchEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_events_total",
			Help: "Notification events dispatched, by kind and whether anyone was in the audience.",
		},
		[]string{"kind", "audience"},
	)

	dispatchRecipientsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_recipients_total",
			Help: "Per-recipient delivery outcomes (delivered|failed).",
		},
		[]string{"kind", "outcome"},
	)

	dispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_dispatch_seconds",
			Help:    "Wall time of one fan-out including every recipient.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	platformEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platform_events_consumed_total",
			Help: "Platform events read from NATS by type and result (ok|invalid|error).",
		},
		[]string{"type", "result"},
	)
)

// ObserveDispatch records one finished fan-out.
func ObserveDispatch(kind string, attempted, delivered int, took time.Duration) {
	k := norm(kind)
	audience := "some"
	if attempted == 0 {
		audience = "empty"
	}
	dispatchEventsTotal.WithLabelValues(k, audience).Inc()
	if attempted == 0 {
		return
	}
	dispatchRecipientsTotal.WithLabelValues(k, "delivered").Add(float64(delivered))
	dispatchRecipientsTotal.WithLabelValues(k, "failed").Add(float64(attempted - delivered))
	dispatchDuration.WithLabelValues(k).Observe(took.Seconds())
}

func IncPlatformEvent(eventType, result string) {
	platformEventsTotal.WithLabelValues(norm(eventType), norm(result)).Inc()
}
