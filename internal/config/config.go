// Package config loads and validates environment variables at startup.
// Missing provider keys switch that provider to demo mode; malformed values
// fail fast.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration for the service.
type Config struct {
	Env  string
	Port string

	LogLevel  string
	LogFormat string
	LogFile   string

	AllowedOrigins []string

	PlacesAPIKey  string
	PlacesBaseURL string
	MaxResults    int

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	ProbeTimeout     time.Duration
	ProbeConcurrency int

	SessionIdleTTL time.Duration

	RateLimit *RateLimitConfig
	Cache     *CacheConfig
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	maxResults, err := getEnvInt("MAX_RESULTS", 20)
	if err != nil {
		return nil, err
	}
	if maxResults < 1 || maxResults > 60 {
		return nil, fmt.Errorf("MAX_RESULTS must be between 1 and 60, got %d", maxResults)
	}

	probeTimeout, err := getEnvDuration("PROBE_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	probeConcurrency, err := getEnvInt("PROBE_CONCURRENCY", 5)
	if err != nil {
		return nil, err
	}
	if probeConcurrency < 1 {
		return nil, fmt.Errorf("PROBE_CONCURRENCY must be a positive integer, got %d", probeConcurrency)
	}

	sessionIdleTTL, err := getEnvDuration("SESSION_IDLE_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	if sessionIdleTTL <= 0 {
		return nil, fmt.Errorf("SESSION_IDLE_TTL must be positive, got %s", sessionIdleTTL)
	}

	rateLimit, err := NewRateLimitConfig()
	if err != nil {
		return nil, err
	}
	// One full page of results must fit inside the velocity burst.
	if maxResults > rateLimit.SuspiciousThreshold {
		return nil, fmt.Errorf("MAX_RESULTS (%d) must not exceed SUSPICIOUS_THRESHOLD (%d)",
			maxResults, rateLimit.SuspiciousThreshold)
	}
	cache, err := NewCacheConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Env:              getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "5050"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "json"),
		LogFile:          getEnv("LOG_FILE", ""),
		AllowedOrigins:   splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		PlacesAPIKey:     getEnv("GOOGLE_MAPS_API_KEY", ""),
		PlacesBaseURL:    getEnv("PLACES_BASE_URL", "https://maps.googleapis.com/maps/api"),
		MaxResults:       maxResults,
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		ProbeTimeout:     probeTimeout,
		ProbeConcurrency: probeConcurrency,
		SessionIdleTTL:   sessionIdleTTL,
		RateLimit:        rateLimit,
		Cache:            cache,
	}, nil
}

// PlacesDemo reports whether business search runs on canned data.
func (c *Config) PlacesDemo() bool {
	return c.PlacesAPIKey == ""
}

// ScriptsDemo reports whether scripts come from the fixed template.
func (c *Config) ScriptsDemo() bool {
	return c.OpenAIAPIKey == ""
}

func getEnvInt(key string, def int) (int, error) {
	value := strings.TrimSpace(getEnv(key, ""))
	if value == "" {
		return def, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, value)
	}
	return parsed, nil
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(key, ""))
	if value == "" {
		return def, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 5s or 10m, got %q", key, value)
	}
	return parsed, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
