// Package app wires configuration into the service graph shared by the HTTP
// server and the command line tool.
package app

import (
	"coldcall-api/internal/config"
	"coldcall-api/internal/logger"
	"coldcall-api/internal/metrics"
	"coldcall-api/internal/repository"
	"coldcall-api/internal/services"
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

type App struct {
	Config   *config.Config
	Outreach *services.OutreachService
	Metrics  *metrics.Metrics
	Cache    services.CacheService

	// CacheBackend is "redis" or "memory".
	CacheBackend string
}

// New builds every service from cfg. A missing provider key selects the demo
// implementation for that provider only.
func New(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*App, error) {
	cache := services.NewCacheService(ctx, cfg.Cache)
	backend := "memory"
	if _, ok := cache.(*services.RedisCacheService); ok {
		backend = "redis"
	}

	var provider services.PlacesProvider
	if cfg.PlacesDemo() {
		logger.LogEvent(logrus.WarnLevel, "GOOGLE_MAPS_API_KEY not set, business search runs in demo mode", nil)
		provider = services.NewDemoPlacesProvider()
	} else {
		provider = services.NewGooglePlacesClient(cfg.PlacesAPIKey,
			services.WithPlacesBaseURL(cfg.PlacesBaseURL),
			services.WithMaxResults(cfg.MaxResults),
		)
	}

	var scripts services.ScriptGenerator
	if cfg.ScriptsDemo() {
		logger.LogEvent(logrus.WarnLevel, "OPENAI_API_KEY not set, scripts use the demo template", nil)
		scripts = services.NewDemoScriptGenerator(m)
	} else {
		gen, err := services.NewOpenAIScriptGenerator(services.ScriptConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Metrics: m,
		})
		if err != nil {
			return nil, fmt.Errorf("script generator: %w", err)
		}
		scripts = gen
	}

	search := services.NewSearchService(provider, cache,
		services.WithSearchCacheTTL(cfg.Cache.DefaultTTL),
		services.WithSearchMetrics(m),
		services.WithDemoSearch(cfg.PlacesDemo()),
	)
	probe := services.NewWebsiteProbe(
		services.WithProbeTimeout(cfg.ProbeTimeout),
		services.WithProbeConcurrency(cfg.ProbeConcurrency),
		services.WithProbeMetrics(m),
	)
	gate := services.NewUsageGate(repository.NewUsageRepository(), cfg.RateLimit, services.WithGateMetrics(m))
	sessions := repository.NewSessionRepository(repository.WithSessionIdleTTL(cfg.SessionIdleTTL))

	return &App{
		Config:       cfg,
		Outreach:     services.NewOutreachService(gate, search, probe, scripts, sessions, m),
		Metrics:      m,
		Cache:        cache,
		CacheBackend: backend,
	}, nil
}

// Close releases the Redis connection when one is open.
func (a *App) Close() error {
	if c, ok := a.Cache.(*services.RedisCacheService); ok {
		return c.Close()
	}
	return nil
}
