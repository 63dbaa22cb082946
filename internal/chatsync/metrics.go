package chatsync

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "wirechat_poll"

	resultLabel = "result"
)

// Fetch results.
const (
	fetchApplied  = "applied"
	fetchStale    = "stale"
	fetchOutdated = "outdated"
	fetchError    = "error"
	fetchExpired  = "expired"
)

// Post results.
const (
	postOK       = "ok"
	postFailed   = "failed"
	postCensored = "censored"
	postBlocked  = "blocked"
)

// Metrics counts what the sync loop did. A nil *Metrics records nothing.
type Metrics struct {
	Reg          *prometheus.Registry
	Fetches      *prometheus.CounterVec
	TicksSkipped prometheus.Counter
	TicksDropped prometheus.Counter
	Posts        *prometheus.CounterVec
}

// NewMetrics registers the sync counters on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Reg: reg,
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Message fetches by outcome.",
		}, []string{resultLabel}),
		TicksSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_skipped_total",
			Help:      "Poll ticks skipped because a fetch was still in flight.",
		}),
		TicksDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_dropped_total",
			Help:      "Poll ticks dropped because the loop was busy.",
		}),
		Posts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_total",
			Help:      "Message submissions by outcome.",
		}, []string{resultLabel}),
	}

	reg.MustRegister(m.Fetches)
	reg.MustRegister(m.TicksSkipped)
	reg.MustRegister(m.TicksDropped)
	reg.MustRegister(m.Posts)

	return m
}

func (m *Metrics) fetch(result string) {
	if m != nil {
		m.Fetches.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) post(result string) {
	if m != nil {
		m.Posts.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) tickSkipped() {
	if m != nil {
		m.TicksSkipped.Inc()
	}
}

func (m *Metrics) tickDropped() {
	if m != nil {
		m.TicksDropped.Inc()
	}
}
