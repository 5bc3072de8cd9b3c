package mmdbreader

import "time"

// MetricsHooks receives lookup observations from a Reader configured with
// WithMetricsHooks. Implementations must be safe for concurrent use, since
// Lookup may be called from many goroutines at once. The metrics package in
// this module provides a Prometheus-backed implementation.
type MetricsHooks interface {
	// ObserveLookup is called once per Lookup, after the search tree walk
	// and any data section resolution have completed. found reports
	// whether the address resolved to a data record; err is the error the
	// Result will report, if any.
	ObserveLookup(duration time.Duration, found bool, err error)
}

func metricsNow() time.Time {
	return time.Now()
}

func (r *Reader) observeLookup(start time.Time, res Result) {
	if r.hooks == nil {
		return
	}
	r.hooks.ObserveLookup(time.Since(start), res.Found(), res.Err())
}
