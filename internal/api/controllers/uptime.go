package controllers

import (
	"fmt"
	"net/http"
	"sync"
	"time"
)

const maxResponseSamples = 1000

// UptimeTracker keeps request statistics for the health report.
type UptimeTracker struct {
	mu            sync.RWMutex
	startTime     time.Time
	responseTimes []time.Duration
	errorCount    int
	totalRequests int

	avgResponseThreshold time.Duration
	errorRateThreshold   float64
	now                  func() time.Time
}

type UptimeStats struct {
	StartedAt     time.Time `json:"started_at"`
	Uptime        string    `json:"uptime"`
	Requests      int       `json:"requests"`
	ErrorRate     float64   `json:"error_rate"`
	AvgResponseMs int64     `json:"avg_response_ms"`
	Anomalies     []string  `json:"anomalies,omitempty"`
}

func NewUptimeTracker() *UptimeTracker {
	return &UptimeTracker{
		startTime:            time.Now(),
		responseTimes:        make([]time.Duration, 0, maxResponseSamples),
		avgResponseThreshold: 2 * time.Second,
		errorRateThreshold:   0.05,
		now:                  time.Now,
	}
}

// RecordRequest stores one response time. Only 5xx responses count as
// errors; refused searches are expected traffic.
func (t *UptimeTracker) RecordRequest(responseTime time.Duration, isError bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.responseTimes = append(t.responseTimes, responseTime)
	if len(t.responseTimes) > maxResponseSamples {
		t.responseTimes = t.responseTimes[1:]
	}
	t.totalRequests++
	if isError {
		t.errorCount++
	}
}

func (t *UptimeTracker) Snapshot() UptimeStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stats := UptimeStats{
		StartedAt: t.startTime,
		Uptime:    t.now().Sub(t.startTime).Round(time.Second).String(),
		Requests:  t.totalRequests,
	}
	if t.totalRequests > 0 {
		stats.ErrorRate = float64(t.errorCount) / float64(t.totalRequests)
	}
	avg := t.avgResponseTime()
	stats.AvgResponseMs = avg.Milliseconds()

	if avg > t.avgResponseThreshold {
		stats.Anomalies = append(stats.Anomalies, fmt.Sprintf("High average response time: %v", avg.Round(time.Millisecond)))
	}
	if stats.ErrorRate > t.errorRateThreshold {
		stats.Anomalies = append(stats.Anomalies, fmt.Sprintf("High error rate: %.2f%%", stats.ErrorRate*100))
	}
	return stats
}

func (t *UptimeTracker) avgResponseTime() time.Duration {
	if len(t.responseTimes) == 0 {
		return 0
	}
	var total time.Duration
	for _, rt := range t.responseTimes {
		total += rt
	}
	return total / time.Duration(len(t.responseTimes))
}

// Middleware wraps an http.Handler and records request data
func (t *UptimeTracker) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		defer func() {
			if p := recover(); p != nil {
				t.RecordRequest(time.Since(start), true)
				panic(p)
			}
			t.RecordRequest(time.Since(start), rw.statusCode >= http.StatusInternalServerError)
		}()

		next.ServeHTTP(rw, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
