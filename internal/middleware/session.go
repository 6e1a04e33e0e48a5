package middleware

import (
	"coldcall-api/internal/services"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const (
	SessionCookieName = "coldcall_session"
	SessionHeader     = "X-Session-Id"

	sessionMaxAge = 30 * 24 * 60 * 60
)

// SessionMiddleware gives every caller an opaque identity. Browsers get a
// cookie; API clients may send X-Session-Id instead. Anything that is not a
// UUID is replaced with a fresh one.
func SessionMiddleware(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, fromHeader := identityFromRequest(r)
			if identity == "" {
				identity = uuid.NewString()
			}

			if !fromHeader {
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookieName,
					Value:    identity,
					Path:     "/",
					MaxAge:   sessionMaxAge,
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			w.Header().Set(SessionHeader, identity)

			ctx := services.WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func identityFromRequest(r *http.Request) (string, bool) {
	if id, ok := parseIdentity(r.Header.Get(SessionHeader)); ok {
		return id, true
	}
	if c, err := r.Cookie(SessionCookieName); err == nil {
		if id, ok := parseIdentity(c.Value); ok {
			return id, false
		}
	}
	return "", false
}

func parseIdentity(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", false
	}
	return id.String(), true
}
