package services

import (
	"coldcall-api/internal/logger"
	"coldcall-api/internal/metrics"
	"coldcall-api/internal/models"
	apperrors "coldcall-api/internal/pkg/errors"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const searchCachePrefix = "places:"

// SearchService runs a business search and applies the client-side filters.
// Provider order is preserved.
type SearchService interface {
	Search(ctx context.Context, params models.SearchParams) ([]models.Business, error)
	Demo() bool
}

type SearchOption func(*searchService)

func WithSearchCacheTTL(ttl time.Duration) SearchOption {
	return func(s *searchService) {
		s.ttl = ttl
	}
}

func WithSearchMetrics(m *metrics.Metrics) SearchOption {
	return func(s *searchService) {
		s.metrics = m
	}
}

// WithDemoSearch marks results as canned data.
func WithDemoSearch(demo bool) SearchOption {
	return func(s *searchService) {
		s.demo = demo
	}
}

type searchService struct {
	provider PlacesProvider
	cache    CacheService
	ttl      time.Duration
	demo     bool
	metrics  *metrics.Metrics
}

func NewSearchService(provider PlacesProvider, cache CacheService, opts ...SearchOption) SearchService {
	s := &searchService{
		provider: provider,
		cache:    cache,
		ttl:      15 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *searchService) Demo() bool {
	return s.demo
}

func (s *searchService) Search(ctx context.Context, params models.SearchParams) ([]models.Business, error) {
	location := strings.TrimSpace(params.Location)
	category := strings.TrimSpace(params.Category)
	if location == "" {
		return nil, apperrors.InvalidInput("Location is required")
	}
	if category == "" {
		return nil, apperrors.InvalidInput("Business category is required")
	}
	radiusMeters := params.ClampedRadiusKm() * 1000

	businesses, err := s.fetch(ctx, location, category, radiusMeters)
	if err != nil {
		return nil, err
	}
	return ApplyFilters(businesses, params.Filters), nil
}

func (s *searchService) fetch(ctx context.Context, location, category string, radiusMeters int) ([]models.Business, error) {
	key := searchCacheKey(location, category, radiusMeters)
	if cached, ok := s.fromCache(ctx, key); ok {
		return cached, nil
	}

	start := time.Now()
	businesses, err := s.provider.SearchNearby(ctx, location, category, radiusMeters)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		s.metrics.Search(metrics.SearchResultError, elapsed)
		logger.LogEvent(logrus.WarnLevel, "Business search failed", logrus.Fields{
			"location": location,
			"category": category,
			"radius_m": radiusMeters,
			"error":    err.Error(),
		})
		return nil, apperrors.Provider(err, "Business search failed. Please try again.")
	}

	switch {
	case s.demo:
		s.metrics.Search(metrics.SearchResultDemo, elapsed)
	case len(businesses) == 0:
		s.metrics.Search(metrics.SearchResultEmpty, elapsed)
	default:
		s.metrics.Search(metrics.SearchResultOK, elapsed)
	}

	if s.cache != nil && !s.demo {
		if err := s.cache.Set(ctx, key, businesses, s.ttl); err != nil {
			logger.LogEvent(logrus.WarnLevel, "Failed to cache search results", logrus.Fields{
				"key":   key,
				"error": err.Error(),
			})
		}
	}
	return businesses, nil
}

func (s *searchService) fromCache(ctx context.Context, key string) ([]models.Business, bool) {
	if s.cache == nil || s.demo {
		return nil, false
	}

	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			logger.LogEvent(logrus.WarnLevel, "Cache read failed", logrus.Fields{"key": key, "error": err.Error()})
		}
		return nil, false
	}

	var businesses []models.Business
	if err := json.Unmarshal([]byte(raw), &businesses); err != nil {
		logger.LogEvent(logrus.WarnLevel, "Discarding corrupt cache entry", logrus.Fields{"key": key, "error": err.Error()})
		_ = s.cache.Delete(ctx, key)
		return nil, false
	}
	return businesses, true
}

// ApplyFilters keeps listings that meet the minimum rating and, when asked,
// have a website. LiveWebsiteOnly needs probe results and is applied by the
// caller after probing.
func ApplyFilters(businesses []models.Business, f models.SearchFilters) []models.Business {
	out := make([]models.Business, 0, len(businesses))
	for _, b := range businesses {
		if f.MinRating > 0 && b.Rating < f.MinRating {
			continue
		}
		if (f.RequireWebsite || f.LiveWebsiteOnly) && !b.HasWebsite() {
			continue
		}
		out = append(out, b)
	}
	return out
}

// ClearSearchCache drops every cached provider result.
func ClearSearchCache(ctx context.Context, cache CacheService) error {
	if err := cache.DeleteByPattern(ctx, searchCachePrefix+"*"); err != nil {
		return apperrors.Wrap(err, "Could not clear the search cache")
	}
	return nil
}

func searchCacheKey(location, category string, radiusMeters int) string {
	return fmt.Sprintf("%s%s|%s|%d", searchCachePrefix,
		strings.ToLower(location), strings.ToLower(category), radiusMeters)
}
