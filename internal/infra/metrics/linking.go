package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		linkCodesIssuedTotal,
		linkRedemptionsTotal,
		linkCodesSweptTotal,
		accountLinksActive,
		accountUnlinksTotal,
	)
}

var (
	linkCodesIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "link_codes_issued_total",
			Help: "Linking codes handed out, by role and whether a demo code was returned.",
		},
		[]string{"role", "demo"},
	)

	linkRedemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "link_redemptions_total",
			Help: "Linking code redemptions by result (ok|not_found|expired|already_used|error).",
		},
		[]string{"result"},
	)

	linkCodesSweptTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "link_codes_swept_total",
			Help: "Expired linking codes evicted by the periodic sweep.",
		},
	)

	accountLinksActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "account_links_active",
			Help: "Number of platform users currently linked to a chat.",
		},
	)

	accountUnlinksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "account_unlinks_total",
			Help: "Explicit unlinks by origin (bot|api).",
		},
		[]string{"origin"},
	)
)

func IncCodeIssued(role string, demo bool) {
	d := "false"
	if demo {
		d = "true"
	}
	linkCodesIssuedTotal.WithLabelValues(norm(role), d).Inc()
}

func IncRedemption(result string) {
	linkRedemptionsTotal.WithLabelValues(norm(result)).Inc()
}

func AddCodesSwept(n int) {
	if n > 0 {
		linkCodesSweptTotal.Add(float64(n))
	}
}

func SetActiveLinks(n int) {
	accountLinksActive.Set(float64(n))
}

func IncUnlink(origin string) {
	accountUnlinksTotal.WithLabelValues(norm(origin)).Inc()
}
