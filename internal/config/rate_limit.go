package config

import (
	"fmt"
	"time"
)

const (
	DefaultDailyLimit          = 100
	DefaultSuspiciousThreshold = 50
	DefaultSuspiciousWindow    = 10 * time.Minute
)

// RateLimitConfig bounds how many contacts one session may surface.
// SuspiciousThreshold contacts inside SuspiciousWindow flags the session.
type RateLimitConfig struct {
	DailyLimit          int
	SuspiciousThreshold int
	SuspiciousWindow    time.Duration
}

func NewRateLimitConfig() (*RateLimitConfig, error) {
	limit, err := getEnvInt("DAILY_CONTACT_LIMIT", DefaultDailyLimit)
	if err != nil {
		return nil, err
	}
	threshold, err := getEnvInt("SUSPICIOUS_THRESHOLD", DefaultSuspiciousThreshold)
	if err != nil {
		return nil, err
	}
	window, err := getEnvDuration("SUSPICIOUS_WINDOW", DefaultSuspiciousWindow)
	if err != nil {
		return nil, err
	}

	cfg := &RateLimitConfig{
		DailyLimit:          limit,
		SuspiciousThreshold: threshold,
		SuspiciousWindow:    window,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *RateLimitConfig) Validate() error {
	if c.DailyLimit < 1 {
		return fmt.Errorf("DAILY_CONTACT_LIMIT must be a positive integer, got %d", c.DailyLimit)
	}
	if c.SuspiciousThreshold < 1 {
		return fmt.Errorf("SUSPICIOUS_THRESHOLD must be a positive integer, got %d", c.SuspiciousThreshold)
	}
	if c.SuspiciousWindow <= 0 {
		return fmt.Errorf("SUSPICIOUS_WINDOW must be a positive duration, got %s", c.SuspiciousWindow)
	}
	return nil
}
