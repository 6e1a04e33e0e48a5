package services

import (
	"coldcall-api/internal/config"
	"coldcall-api/internal/logger"
	"coldcall-api/internal/metrics"
	"coldcall-api/internal/models"
	"coldcall-api/internal/repository"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// UsageGate decides whether an identity may surface more business contacts
// today. The daily limit is checked before suspicious velocity.
type UsageGate interface {
	Check(identity string) models.Decision
	Record(identity string, n int) models.Decision
	Reserve(identity string, want int) (int, models.Decision)
	Stats(identity string) models.Decision
}

type GateOption func(*usageGate)

// WithClock replaces time.Now, mainly for tests that move across days.
func WithClock(now func() time.Time) GateOption {
	return func(g *usageGate) {
		g.now = now
	}
}

func WithGateMetrics(m *metrics.Metrics) GateOption {
	return func(g *usageGate) {
		g.metrics = m
	}
}

type usageGate struct {
	repo    repository.UsageRepository
	cfg     *config.RateLimitConfig
	now     func() time.Time
	metrics *metrics.Metrics

	// countMu serializes read-then-increment of daily counts.
	countMu sync.Mutex

	mu           sync.Mutex
	velocity     map[string]*rate.Limiter
	flaggedUntil map[string]time.Time
	lastDay      string
}

func NewUsageGate(repo repository.UsageRepository, cfg *config.RateLimitConfig, opts ...GateOption) UsageGate {
	g := &usageGate{
		repo:         repo,
		cfg:          cfg,
		now:          time.Now,
		velocity:     make(map[string]*rate.Limiter),
		flaggedUntil: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *usageGate) Check(identity string) models.Decision {
	now := g.now()
	decision := g.decide(identity, now)
	g.metrics.GateDecision(string(decision.Outcome))
	return decision
}

// Stats reports the same decision as Check without counting it as a gate
// evaluation.
func (g *usageGate) Stats(identity string) models.Decision {
	return g.decide(identity, g.now())
}

// Record adds n contacts to today's count and feeds the velocity detector.
// Non-positive n changes nothing.
func (g *usageGate) Record(identity string, n int) models.Decision {
	now := g.now()
	day := now.Format(models.DayLayout)

	if n > 0 {
		g.countMu.Lock()
		g.repo.IncrementUsage(identity, day, n)
		g.countMu.Unlock()
		g.afterCount(identity, day, n, now)
	}
	return g.decide(identity, now)
}

// Reserve grants up to want contacts from what is left of today's limit and
// counts them in one step. Concurrent reservations never exceed the limit
// together. The returned decision reflects the count after the grant.
func (g *usageGate) Reserve(identity string, want int) (int, models.Decision) {
	now := g.now()
	day := now.Format(models.DayLayout)

	g.countMu.Lock()
	left := max(g.cfg.DailyLimit-g.repo.GetUsage(identity, day).Count, 0)
	granted := min(max(want, 0), left)
	if granted > 0 {
		g.repo.IncrementUsage(identity, day, granted)
	}
	g.countMu.Unlock()

	if granted > 0 {
		g.afterCount(identity, day, granted, now)
	}
	return granted, g.decide(identity, now)
}

func (g *usageGate) afterCount(identity, day string, n int, now time.Time) {
	g.metrics.ContactsRecorded(n)
	g.observeVelocity(identity, n, now)
	g.pruneOnRollover(day, now)
}

func (g *usageGate) decide(identity string, now time.Time) models.Decision {
	usage := g.repo.GetUsage(identity, now.Format(models.DayLayout))
	limit := g.cfg.DailyLimit

	decision := models.Decision{
		Outcome:   models.Allowed,
		Count:     usage.Count,
		Limit:     limit,
		Remaining: max(limit-usage.Count, 0),
		ResetAt:   nextDay(now),
	}

	switch {
	case usage.Count >= limit:
		decision.Outcome = models.Denied
		decision.Reason = models.ReasonDailyLimit
	case g.isFlagged(identity, now):
		decision.Outcome = models.Flagged
		decision.Reason = models.ReasonSuspicious
	}
	return decision
}

func (g *usageGate) observeVelocity(identity string, n int, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	lim, ok := g.velocity[identity]
	if !ok {
		every := g.cfg.SuspiciousWindow / time.Duration(g.cfg.SuspiciousThreshold)
		lim = rate.NewLimiter(rate.Every(every), g.cfg.SuspiciousThreshold)
		g.velocity[identity] = lim
	}

	// Batches larger than the burst count as a full bucket.
	tokens := min(n, lim.Burst())
	if !lim.AllowN(now, tokens) {
		until := now.Add(g.cfg.SuspiciousWindow)
		g.flaggedUntil[identity] = until
		logger.LogEvent(logrus.WarnLevel, "Suspicious contact velocity", logrus.Fields{
			"identity":      identity,
			"contacts":      n,
			"threshold":     g.cfg.SuspiciousThreshold,
			"flagged_until": until,
		})
	}
}

func (g *usageGate) isFlagged(identity string, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	until, ok := g.flaggedUntil[identity]
	if !ok {
		return false
	}
	if !now.Before(until) {
		delete(g.flaggedUntil, identity)
		return false
	}
	return true
}

// pruneOnRollover drops yesterday's counters and idle velocity state the
// first time a new day is seen.
func (g *usageGate) pruneOnRollover(day string, now time.Time) {
	g.mu.Lock()
	if g.lastDay == day {
		g.mu.Unlock()
		return
	}
	first := g.lastDay == ""
	g.lastDay = day
	if !first {
		for identity := range g.velocity {
			if until, flagged := g.flaggedUntil[identity]; !flagged || !now.Before(until) {
				delete(g.velocity, identity)
				delete(g.flaggedUntil, identity)
			}
		}
	}
	g.mu.Unlock()

	if !first {
		removed := g.repo.PruneBefore(day)
		logger.LogEvent(logrus.DebugLevel, "Pruned usage records", logrus.Fields{
			"day":     day,
			"removed": removed,
		})
	}
}

func nextDay(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
}
