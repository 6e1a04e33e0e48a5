package repository

import (
	"coldcall-api/internal/models"
	"sync"
)

// UsageRepository stores contact counts keyed by identity and calendar day.
// Counts only ever grow.
type UsageRepository interface {
	GetUsage(identity, day string) models.UsageRecord
	IncrementUsage(identity, day string, n int) models.UsageRecord
	PruneBefore(day string) int
}

type usageKey struct {
	identity string
	day      string
}

type memoryUsageRepository struct {
	mu     sync.Mutex
	counts map[usageKey]int
}

func NewUsageRepository() UsageRepository {
	return &memoryUsageRepository{counts: make(map[usageKey]int)}
}

func (r *memoryUsageRepository) GetUsage(identity, day string) models.UsageRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	return models.UsageRecord{
		Identity: identity,
		Day:      day,
		Count:    r.counts[usageKey{identity, day}],
	}
}

func (r *memoryUsageRepository) IncrementUsage(identity, day string, n int) models.UsageRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := usageKey{identity, day}
	if n > 0 {
		r.counts[key] += n
	}
	return models.UsageRecord{Identity: identity, Day: day, Count: r.counts[key]}
}

// PruneBefore drops records for days strictly before day. Day keys use
// models.DayLayout so lexical order is calendar order.
func (r *memoryUsageRepository) PruneBefore(day string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key := range r.counts {
		if key.day < day {
			delete(r.counts, key)
			removed++
		}
	}
	return removed
}
