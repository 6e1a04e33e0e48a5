package middleware

import (
	"coldcall-api/internal/logger"
	"coldcall-api/internal/services"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// LoggingMiddleware logs the details of each request and response
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		fields := logrus.Fields{
			"method":        r.Method,
			"url":           r.URL.Path,
			"status_code":   rw.statusCode,
			"bytes":         rw.bytes,
			"response_time": time.Since(start).Milliseconds(),
			"ip":            r.RemoteAddr,
		}
		if id := services.RequestIDFromContext(r.Context()); id != "" {
			fields["request_id"] = id
		}
		if identity, ok := services.IdentityFromContext(r.Context()); ok {
			fields["identity"] = identity
		}

		level := logrus.InfoLevel
		if rw.statusCode >= http.StatusInternalServerError {
			level = logrus.ErrorLevel
		}
		logger.LogEvent(level, "Request handled", fields)
	})
}

// responseWriter is a wrapper around http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	bytes       int
	wroteHeader bool
}

// WriteHeader captures the status code
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}
