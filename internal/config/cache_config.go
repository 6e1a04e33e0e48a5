package config

import (
	"os"
	"time"
)

type CacheConfig struct {
	Enabled       bool
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	DefaultTTL    time.Duration
}

// NewCacheConfig reads the Redis settings. The cache is only enabled when
// REDIS_HOST is set; otherwise search results are cached in process.
func NewCacheConfig() (*CacheConfig, error) {
	db, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	ttl, err := getEnvDuration("CACHE_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}

	return &CacheConfig{
		Enabled:       getEnv("REDIS_HOST", "") != "",
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       db,
		DefaultTTL:    ttl,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}
