// Package metrics exposes Prometheus counters for searches, gate decisions,
// website probes and script generation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "coldcall"

const (
	SearchResultOK    = "ok"
	SearchResultEmpty = "empty"
	SearchResultError = "error"
	SearchResultDemo  = "demo"

	ScriptResultOK    = "ok"
	ScriptResultError = "error"
	ScriptResultDemo  = "demo"
)

type Metrics struct {
	gateDecisions    *prometheus.CounterVec
	contactsRecorded prometheus.Counter
	searches         *prometheus.CounterVec
	searchDuration   prometheus.Histogram
	probes           *prometheus.CounterVec
	scripts          *prometheus.CounterVec
	exports          prometheus.Counter
}

// New registers the collectors with reg. Passing nil uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		gateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_decisions_total",
			Help:      "Usage gate decisions by outcome.",
		}, []string{"outcome"}),
		contactsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contacts_recorded_total",
			Help:      "Business contacts counted against daily limits.",
		}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Business searches by result.",
		}, []string{"result"}),
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Latency of places provider searches.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "website_probes_total",
			Help:      "Website reachability probes by status.",
		}, []string{"status"}),
		scripts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scripts_generated_total",
			Help:      "Cold call script generations by result.",
		}, []string{"result"}),
		exports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "CSV exports served.",
		}),
	}

	reg.MustRegister(
		m.gateDecisions,
		m.contactsRecorded,
		m.searches,
		m.searchDuration,
		m.probes,
		m.scripts,
		m.exports,
	)
	return m
}

// All methods are safe on a nil receiver so metrics stay optional.

func (m *Metrics) GateDecision(outcome string) {
	if m == nil {
		return
	}
	m.gateDecisions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ContactsRecorded(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.contactsRecorded.Add(float64(n))
}

func (m *Metrics) Search(result string, seconds float64) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(result).Inc()
	if seconds > 0 {
		m.searchDuration.Observe(seconds)
	}
}

func (m *Metrics) Probe(status string) {
	if m == nil {
		return
	}
	m.probes.WithLabelValues(status).Inc()
}

func (m *Metrics) Script(result string) {
	if m == nil {
		return
	}
	m.scripts.WithLabelValues(result).Inc()
}

func (m *Metrics) Export() {
	if m == nil {
		return
	}
	m.exports.Inc()
}
