package middleware

import (
	"coldcall-api/internal/models"
	"coldcall-api/internal/services"
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

const RateLimitReasonHeader = "X-RateLimit-Reason"

// UsageReporter reports today's gate decision for an identity without
// changing it.
type UsageReporter interface {
	Usage(identity string) models.Decision
}

type RateLimiter struct {
	usage UsageReporter
	now   func() time.Time
}

func NewRateLimiter(usage UsageReporter) *RateLimiter {
	return &RateLimiter{usage: usage, now: time.Now}
}

// RateLimit rejects gated routes once the caller is denied or flagged and
// adds X-RateLimit headers to every response it lets through.
func (rl *RateLimiter) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := services.IdentityFromContext(r.Context())
		if !ok {
			http.Error(w, "Session not found", http.StatusUnauthorized)
			return
		}

		decision := rl.usage.Usage(identity)
		SetRateLimitHeaders(w, decision)

		if !decision.Allowed() {
			retry := int(decision.ResetAt.Sub(rl.now()).Seconds())
			if decision.Outcome == models.Flagged {
				retry = 60
			}
			if retry > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(retry))
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{
					"code":    "RATE_LIMITED",
					"message": decision.Reason,
				},
				"usage": decision,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// SetRateLimitHeaders writes the standard X-RateLimit headers for d.
func SetRateLimitHeaders(w http.ResponseWriter, d models.Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
	if d.Reason != "" {
		w.Header().Set(RateLimitReasonHeader, d.Reason)
	} else {
		w.Header().Del(RateLimitReasonHeader)
	}
}
