package services

import (
	"coldcall-api/internal/config"
	"coldcall-api/internal/metrics"
	"coldcall-api/internal/models"
	"coldcall-api/internal/repository"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestGate(t *testing.T, limit, threshold int, window time.Duration) (UsageGate, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	cfg := &config.RateLimitConfig{
		DailyLimit:          limit,
		SuspiciousThreshold: threshold,
		SuspiciousWindow:    window,
	}
	require.NoError(t, cfg.Validate())
	return NewUsageGate(repository.NewUsageRepository(), cfg, WithClock(clock.Now)), clock
}

func TestUsageGateDeniesAtDailyLimit(t *testing.T) {
	gate, _ := newTestGate(t, 100, 1000, time.Minute)

	gate.Record("a", 99)
	d := gate.Check("a")
	assert.Equal(t, models.Allowed, d.Outcome)
	assert.Equal(t, 1, d.Remaining)

	gate.Record("a", 1)
	d = gate.Check("a")
	assert.Equal(t, models.Denied, d.Outcome)
	assert.Equal(t, models.ReasonDailyLimit, d.Reason)
	assert.Equal(t, 100, d.Count)
	assert.Equal(t, 0, d.Remaining)
}

func TestUsageGateNewDayStartsFresh(t *testing.T) {
	gate, clock := newTestGate(t, 10, 1000, time.Minute)

	gate.Record("a", 10)
	require.Equal(t, models.Denied, gate.Check("a").Outcome)

	clock.Advance(24 * time.Hour)
	d := gate.Check("a")
	assert.Equal(t, models.Allowed, d.Outcome)
	assert.Equal(t, 0, d.Count)
	assert.Equal(t, time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), d.ResetAt)
}

func TestUsageGateRecordIsAdditiveAndNeverDecreases(t *testing.T) {
	gate, _ := newTestGate(t, 100, 1000, time.Minute)

	assert.Equal(t, 3, gate.Record("a", 3).Count)
	assert.Equal(t, 7, gate.Record("a", 4).Count)
	assert.Equal(t, 7, gate.Record("a", -2).Count)
	assert.Equal(t, 7, gate.Record("a", 0).Count)
}

func TestUsageGateIdentitiesAreIndependent(t *testing.T) {
	gate, _ := newTestGate(t, 5, 1000, time.Minute)

	gate.Record("a", 5)

	assert.Equal(t, models.Denied, gate.Check("a").Outcome)
	assert.Equal(t, models.Allowed, gate.Check("b").Outcome)
	assert.Equal(t, 0, gate.Check("b").Count)
}

func TestUsageGateFlagsBurstsUntilWindowPasses(t *testing.T) {
	gate, clock := newTestGate(t, 100, 10, 10*time.Minute)

	gate.Record("a", 6)
	assert.Equal(t, models.Allowed, gate.Check("a").Outcome)

	gate.Record("a", 6)
	d := gate.Check("a")
	assert.Equal(t, models.Flagged, d.Outcome)
	assert.Equal(t, models.ReasonSuspicious, d.Reason)
	assert.Equal(t, models.Allowed, gate.Check("b").Outcome)

	clock.Advance(10 * time.Minute)
	assert.Equal(t, models.Allowed, gate.Check("a").Outcome)
}

func TestUsageGateSlowUsageIsNotFlagged(t *testing.T) {
	gate, clock := newTestGate(t, 100, 10, 10*time.Minute)

	for i := 0; i < 5; i++ {
		gate.Record("a", 5)
		clock.Advance(10 * time.Minute)
	}

	d := gate.Check("a")
	assert.Equal(t, models.Allowed, d.Outcome)
	assert.Equal(t, 25, d.Count)
}

func TestUsageGateLimitTakesPrecedenceOverFlag(t *testing.T) {
	gate, _ := newTestGate(t, 20, 10, 10*time.Minute)

	gate.Record("a", 20)

	d := gate.Check("a")
	assert.Equal(t, models.Denied, d.Outcome)
	assert.Equal(t, models.ReasonDailyLimit, d.Reason)
}

func TestUsageGateReportsMetrics(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	gate := NewUsageGate(repository.NewUsageRepository(), &config.RateLimitConfig{
		DailyLimit:          2,
		SuspiciousThreshold: 100,
		SuspiciousWindow:    time.Minute,
	}, WithClock(clock.Now), WithGateMetrics(m))

	gate.Check("a")
	gate.Record("a", 2)
	assert.Equal(t, models.Denied, gate.Check("a").Outcome)
	gate.Stats("a")

	expected := `
# HELP coldcall_gate_decisions_total Usage gate decisions by outcome.
# TYPE coldcall_gate_decisions_total counter
coldcall_gate_decisions_total{outcome="allowed"} 1
coldcall_gate_decisions_total{outcome="denied"} 1
# HELP coldcall_contacts_recorded_total Business contacts counted against daily limits.
# TYPE coldcall_contacts_recorded_total counter
coldcall_contacts_recorded_total 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"coldcall_gate_decisions_total", "coldcall_contacts_recorded_total"))
}

func TestUsageGateReserveClampsToRemaining(t *testing.T) {
	gate, _ := newTestGate(t, 25, 1000, time.Minute)

	granted, d := gate.Reserve("a", 20)
	assert.Equal(t, 20, granted)
	assert.Equal(t, models.Allowed, d.Outcome)
	assert.Equal(t, 5, d.Remaining)

	granted, d = gate.Reserve("a", 20)
	assert.Equal(t, 5, granted)
	assert.Equal(t, models.Denied, d.Outcome)
	assert.Equal(t, 25, d.Count)

	granted, _ = gate.Reserve("a", 20)
	assert.Zero(t, granted)

	granted, d = gate.Reserve("b", -4)
	assert.Zero(t, granted)
	assert.Zero(t, d.Count)
}

func TestUsageGateConcurrentReservationsStayWithinLimit(t *testing.T) {
	gate, _ := newTestGate(t, 100, 10000, time.Minute)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, _ := gate.Reserve("a", 7)
			mu.Lock()
			granted += n
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, granted)
	assert.Equal(t, 100, gate.Stats("a").Count)
}

func TestUsageGateLargeBatchDoesNotFlagOnItsOwn(t *testing.T) {
	gate, clock := newTestGate(t, 1000, 50, 10*time.Minute)

	d := gate.Record("a", 60)
	assert.Equal(t, models.Allowed, d.Outcome)

	clock.Advance(time.Minute)
	d = gate.Record("a", 60)
	assert.Equal(t, models.Flagged, d.Outcome)
	assert.Equal(t, models.ReasonSuspicious, d.Reason)
}
