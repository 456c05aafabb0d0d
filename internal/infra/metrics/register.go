package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	pending      []prometheus.Collector
	registerOnce sync.Once
)

// register queues collectors from each file's init; nothing is exported
// until MustRegister runs.
func register(cs ...prometheus.Collector) {
	pending = append(pending, cs...)
}

// MustRegister exposes every collector on the default registry. Safe to call more than once.
func MustRegister() {
	registerOnce.Do(func() { MustRegisterWith(prometheus.DefaultRegisterer) })
}

// MustRegisterWith registers the collectors on reg; tests pass a fresh registry.
func MustRegisterWith(reg prometheus.Registerer) {
	reg.MustRegister(pending...)
}

// norm turns free-form values into stable label values.
func norm(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "":
		return "unknown"
	case len(s) > 32:
		return s[:32]
	}
	return s
}
