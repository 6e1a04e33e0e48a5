package services

import (
	"coldcall-api/internal/config"
	"coldcall-api/internal/logger"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

type CacheService interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// NewCacheService returns a Redis backed cache when Redis is configured and
// reachable, and an in-process cache otherwise.
func NewCacheService(ctx context.Context, cfg *config.CacheConfig) CacheService {
	if cfg == nil || !cfg.Enabled {
		return NewMemoryCacheService()
	}

	cache, err := NewRedisCacheService(ctx, cfg)
	if err != nil {
		logger.LogEvent(logrus.WarnLevel, "Redis unavailable, using in-memory cache", logrus.Fields{
			"addr":  fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
			"error": err.Error(),
		})
		return NewMemoryCacheService()
	}
	return cache
}

type RedisCacheService struct {
	client *redis.Client
}

func NewRedisCacheService(ctx context.Context, cfg *config.CacheConfig) (*RedisCacheService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if _, err := client.Ping(pingCtx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return &RedisCacheService{client: client}, nil
}

func (c *RedisCacheService) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	return val, err
}

func (c *RedisCacheService) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %v", err)
	}
	return c.client.Set(ctx, key, jsonData, expiration).Err()
}

func (c *RedisCacheService) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *RedisCacheService) DeleteByPattern(ctx context.Context, pattern string) error {
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		err := c.client.Del(ctx, iter.Val()).Err()
		if err != nil {
			return err
		}
	}
	return iter.Err()
}

func (c *RedisCacheService) Close() error {
	return c.client.Close()
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryCacheService mirrors RedisCacheService for single-process use:
// values are stored JSON encoded and expire lazily on read.
type MemoryCacheService struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCacheService() *MemoryCacheService {
	return &MemoryCacheService{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCacheService) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return "", ErrCacheMiss
	}
	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return "", ErrCacheMiss
	}
	return entry.value, nil
}

func (c *MemoryCacheService) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %v", err)
	}

	entry := memoryEntry{value: string(jsonData)}
	if expiration > 0 {
		entry.expiresAt = c.now().Add(expiration)
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return nil
}

func (c *MemoryCacheService) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// DeleteByPattern accepts the glob syntax of Redis SCAN MATCH for the common
// cases (*, ? and character classes).
func (c *MemoryCacheService) DeleteByPattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		matched, err := path.Match(pattern, key)
		if err != nil {
			return err
		}
		if matched {
			delete(c.entries, key)
		}
	}
	return nil
}
