package repository

import (
	"coldcall-api/internal/models"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUsageRepositoryCountsPerIdentityAndDay(t *testing.T) {
	repo := NewUsageRepository()

	assert.Equal(t, 0, repo.GetUsage("a", "2024-05-01").Count)

	repo.IncrementUsage("a", "2024-05-01", 3)
	repo.IncrementUsage("a", "2024-05-01", 2)
	repo.IncrementUsage("b", "2024-05-01", 7)
	repo.IncrementUsage("a", "2024-05-02", 1)

	assert.Equal(t, 5, repo.GetUsage("a", "2024-05-01").Count)
	assert.Equal(t, 7, repo.GetUsage("b", "2024-05-01").Count)
	assert.Equal(t, 1, repo.GetUsage("a", "2024-05-02").Count)
}

func TestUsageRepositoryIgnoresNonPositiveIncrements(t *testing.T) {
	repo := NewUsageRepository()
	repo.IncrementUsage("a", "2024-05-01", 4)

	rec := repo.IncrementUsage("a", "2024-05-01", -3)
	assert.Equal(t, 4, rec.Count)
	rec = repo.IncrementUsage("a", "2024-05-01", 0)
	assert.Equal(t, 4, rec.Count)
}

func TestUsageRepositoryPruneBefore(t *testing.T) {
	repo := NewUsageRepository()
	repo.IncrementUsage("a", "2024-04-30", 1)
	repo.IncrementUsage("b", "2024-04-29", 1)
	repo.IncrementUsage("a", "2024-05-01", 1)

	assert.Equal(t, 2, repo.PruneBefore("2024-05-01"))
	assert.Equal(t, 1, repo.GetUsage("a", "2024-05-01").Count)
	assert.Equal(t, 0, repo.GetUsage("a", "2024-04-30").Count)
}

func TestUsageRepositoryConcurrentIncrements(t *testing.T) {
	repo := NewUsageRepository()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			repo.IncrementUsage("a", "2024-05-01", 2)
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, repo.GetUsage("a", "2024-05-01").Count)
}

func TestSessionRepositoryReturnsCopies(t *testing.T) {
	repo := NewSessionRepository()

	repo.Update("a", func(s *models.Session) {
		s.ServiceDescription = "SEO audits"
		s.Results = []models.ResultRow{{Business: models.Business{Name: "Cafe"}}}
	})

	got := repo.Get("a")
	got.Results[0].Business.Name = "mutated"

	assert.Equal(t, "Cafe", repo.Get("a").Results[0].Business.Name)
	assert.Equal(t, "SEO audits", repo.Get("a").ServiceDescription)
	assert.False(t, repo.Get("a").UpdatedAt.IsZero())
	assert.Empty(t, repo.Get("b").Results)

	repo.Delete("a")
	assert.Empty(t, repo.Get("a").ServiceDescription)
}

type stepClock struct {
	t time.Time
}

func (c *stepClock) Now() time.Time { return c.t }

func TestSessionRepositoryPruneIdle(t *testing.T) {
	clock := &stepClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	repo := NewSessionRepository(WithSessionClock(clock.Now))

	repo.Update("old", func(s *models.Session) { s.LastCategory = "plumber" })
	clock.t = clock.t.Add(2 * time.Hour)
	repo.Update("fresh", func(s *models.Session) { s.LastCategory = "dentist" })

	assert.Equal(t, 1, repo.PruneIdle(clock.t.Add(-time.Hour)))
	assert.Empty(t, repo.Get("old").LastCategory)
	assert.Equal(t, "dentist", repo.Get("fresh").LastCategory)
	assert.Zero(t, repo.PruneIdle(clock.t.Add(-time.Hour)))
}

func TestSessionRepositorySweepsIdleSessionsOnUpdate(t *testing.T) {
	clock := &stepClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	repo := NewSessionRepository(WithSessionClock(clock.Now), WithSessionIdleTTL(3*time.Hour))

	repo.Update("idle", func(s *models.Session) { s.ServiceDescription = "SEO" })
	repo.Update("busy", func(s *models.Session) { s.ServiceDescription = "Bookkeeping" })

	clock.t = clock.t.Add(2 * time.Hour)
	repo.Update("busy", func(s *models.Session) {})
	assert.Equal(t, "SEO", repo.Get("idle").ServiceDescription)

	clock.t = clock.t.Add(2 * time.Hour)
	repo.Update("busy", func(s *models.Session) {})

	assert.Empty(t, repo.Get("idle").ServiceDescription)
	assert.Equal(t, "Bookkeeping", repo.Get("busy").ServiceDescription)
}
