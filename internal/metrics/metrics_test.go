package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.GateDecision("allowed")
	m.GateDecision("allowed")
	m.GateDecision("denied")
	m.ContactsRecorded(12)
	m.ContactsRecorded(-1)
	m.Search(SearchResultOK, 0.3)
	m.Probe("live")
	m.Script(ScriptResultError)
	m.Export()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.gateDecisions.WithLabelValues("allowed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gateDecisions.WithLabelValues("denied")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.contactsRecorded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.searches.WithLabelValues(SearchResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.probes.WithLabelValues("live")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scripts.WithLabelValues(ScriptResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exports))
	assert.Equal(t, 1, testutil.CollectAndCount(m.searchDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.GateDecision("allowed")
		m.ContactsRecorded(3)
		m.Search(SearchResultError, 1)
		m.Probe("unreachable")
		m.Script(ScriptResultOK)
		m.Export()
	})
}
