package middleware

import (
	"coldcall-api/internal/models"
	"coldcall-api/internal/services"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identityEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, _ := services.IdentityFromContext(r.Context())
		w.Write([]byte(identity))
	})
}

func TestSessionMiddlewareMintsCookie(t *testing.T) {
	h := SessionMiddleware(false)(identityEcho())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	identity := rec.Body.String()
	_, err := uuid.Parse(identity)
	require.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.Equal(t, identity, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, identity, rec.Header().Get(SessionHeader))
}

func TestSessionMiddlewareReusesValidIdentity(t *testing.T) {
	h := SessionMiddleware(false)(identityEcho())
	existing := uuid.NewString()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: existing})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, existing, rec.Body.String())

	fromHeader := uuid.NewString()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(SessionHeader, fromHeader)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, fromHeader, rec.Body.String())
	assert.Empty(t, rec.Result().Cookies())
}

func TestSessionMiddlewareReplacesGarbage(t *testing.T) {
	h := SessionMiddleware(false)(identityEcho())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "../../etc/passwd"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.NotEqual(t, "../../etc/passwd", rec.Body.String())
	_, err := uuid.Parse(rec.Body.String())
	assert.NoError(t, err)
}

type fixedUsage struct {
	decision models.Decision
}

func (f fixedUsage) Usage(string) models.Decision { return f.decision }

func TestRateLimitAllowsAndSetsHeaders(t *testing.T) {
	reset := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(fixedUsage{models.Decision{Outcome: models.Allowed, Limit: 100, Remaining: 60, Count: 40, ResetAt: reset}})

	called := false
	h := SessionMiddleware(false)(rl.RateLimit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/search", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "100", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "60", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "1714608000", rec.Header().Get("X-RateLimit-Reset"))
	assert.Empty(t, rec.Header().Get(RateLimitReasonHeader))
}

func TestRateLimitRejectsDeniedAndFlagged(t *testing.T) {
	tests := []struct {
		name     string
		decision models.Decision
	}{
		{"denied", models.Decision{Outcome: models.Denied, Reason: models.ReasonDailyLimit, Limit: 100, Count: 100, ResetAt: time.Now().Add(time.Hour)}},
		{"flagged", models.Decision{Outcome: models.Flagged, Reason: models.ReasonSuspicious, Limit: 100, Remaining: 40, ResetAt: time.Now().Add(time.Hour)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := NewRateLimiter(fixedUsage{tt.decision})
			h := SessionMiddleware(false)(rl.RateLimit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler must not run")
			})))

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/search", nil))

			assert.Equal(t, http.StatusTooManyRequests, rec.Code)
			assert.Equal(t, tt.decision.Reason, rec.Header().Get(RateLimitReasonHeader))
			assert.NotEmpty(t, rec.Header().Get("Retry-After"))
			assert.Contains(t, rec.Body.String(), tt.decision.Reason)
		})
	}
}

func TestRateLimitRequiresSession(t *testing.T) {
	rl := NewRateLimiter(fixedUsage{})
	rec := httptest.NewRecorder()
	rl.RateLimit(identityEcho()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestIDAndLogging(t *testing.T) {
	var seen string
	h := RequestID(LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = services.RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
}
