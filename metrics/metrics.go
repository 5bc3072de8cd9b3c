// Package metrics provides a Prometheus-backed mmdbreader.MetricsHooks
// implementation, for services that want lookup counters and latency
// histograms without hand-rolling instrumentation around every call site.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Hooks implements mmdbreader.MetricsHooks using a set of Prometheus
// collectors. The zero value is not usable; construct with New.
type Hooks struct {
	lookups  *prometheus.CounterVec
	duration prometheus.Histogram
}

// New builds a Hooks and registers its collectors with reg. namespace is
// used as the Prometheus metric namespace (e.g. "geoip"); pass "" to omit
// it.
func New(reg prometheus.Registerer, namespace string) *Hooks {
	h := &Hooks{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mmdb_lookups_total",
			Help:      "Total number of MaxMind DB lookups, labeled by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mmdb_lookup_duration_seconds",
			Help:      "Duration of MaxMind DB lookups.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(h.lookups, h.duration)
	return h
}

// ObserveLookup implements mmdbreader.MetricsHooks.
func (h *Hooks) ObserveLookup(duration time.Duration, found bool, err error) {
	outcome := "miss"
	switch {
	case err != nil:
		outcome = "error"
	case found:
		outcome = "hit"
	}
	h.lookups.WithLabelValues(outcome).Inc()
	h.duration.Observe(duration.Seconds())
}
