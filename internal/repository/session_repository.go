package repository

import (
	"coldcall-api/internal/models"
	"sync"
	"time"
)

const (
	DefaultSessionIdleTTL = 24 * time.Hour
	sessionSweepInterval  = time.Hour
)

type SessionRepository interface {
	Get(identity string) models.Session
	Update(identity string, fn func(s *models.Session)) models.Session
	Delete(identity string)
	PruneIdle(before time.Time) int
}

type SessionOption func(*memorySessionRepository)

// WithSessionIdleTTL sets how long an untouched session is kept. Zero or
// negative keeps the default.
func WithSessionIdleTTL(ttl time.Duration) SessionOption {
	return func(r *memorySessionRepository) {
		if ttl > 0 {
			r.idleTTL = ttl
		}
	}
}

func WithSessionClock(now func() time.Time) SessionOption {
	return func(r *memorySessionRepository) {
		r.now = now
	}
}

type memorySessionRepository struct {
	mu        sync.Mutex
	sessions  map[string]*models.Session
	now       func() time.Time
	idleTTL   time.Duration
	lastSweep time.Time
}

// NewSessionRepository keeps sessions in memory. Sessions idle for longer
// than the TTL are swept lazily on Update, at most once per hour.
func NewSessionRepository(opts ...SessionOption) SessionRepository {
	r := &memorySessionRepository{
		sessions: make(map[string]*models.Session),
		now:      time.Now,
		idleTTL:  DefaultSessionIdleTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.lastSweep = r.now()
	return r
}

// Get returns a copy of the session, or an empty one for unknown identities.
func (r *memorySessionRepository) Get(identity string) models.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[identity]
	if !ok {
		return models.Session{Identity: identity}
	}
	return cloneSession(s)
}

// Update applies fn to the stored session under the lock and returns a copy
// of the result.
func (r *memorySessionRepository) Update(identity string, fn func(s *models.Session)) models.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.Sub(r.lastSweep) >= sessionSweepInterval {
		r.pruneLocked(now.Add(-r.idleTTL))
		r.lastSweep = now
	}

	s, ok := r.sessions[identity]
	if !ok {
		s = &models.Session{Identity: identity}
		r.sessions[identity] = s
	}
	fn(s)
	s.UpdatedAt = now
	return cloneSession(s)
}

func (r *memorySessionRepository) Delete(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, identity)
}

// PruneIdle removes sessions last updated before the cutoff and returns how
// many were dropped.
func (r *memorySessionRepository) PruneIdle(before time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pruneLocked(before)
}

func (r *memorySessionRepository) pruneLocked(before time.Time) int {
	removed := 0
	for identity, s := range r.sessions {
		if s.UpdatedAt.Before(before) {
			delete(r.sessions, identity)
			removed++
		}
	}
	return removed
}

func cloneSession(s *models.Session) models.Session {
	out := *s
	out.Results = append([]models.ResultRow(nil), s.Results...)
	out.History = append([]models.SearchHistoryEntry(nil), s.History...)
	return out
}
