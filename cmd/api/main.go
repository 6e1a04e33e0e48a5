package main

import (
	"coldcall-api/internal/api"
	"coldcall-api/internal/api/controllers"
	"coldcall-api/internal/app"
	"coldcall-api/internal/config"
	"coldcall-api/internal/logger"
	"coldcall-api/internal/metrics"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.LogEvent(logrus.WarnLevel, "No .env file loaded", logrus.Fields{"error": err.Error()})
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Logger.Fatalf("Invalid configuration: %v", err)
	}
	if err := logger.Configure(cfg.LogLevel, cfg.LogFormat, cfg.LogFile); err != nil {
		logger.Logger.Fatalf("Failed to configure logger: %v", err)
	}

	ctx := context.Background()
	application, err := app.New(ctx, cfg, metrics.New(nil))
	if err != nil {
		logger.Logger.Fatalf("Failed to initialise services: %v", err)
	}
	defer application.Close()

	health := controllers.HealthCheck{
		CacheBackend: application.CacheBackend,
		DemoSearch:   cfg.PlacesDemo(),
		DemoScripts:  cfg.ScriptsDemo(),
		Endpoints:    map[string]string{},
		Uptime:       controllers.NewUptimeTracker(),
	}
	if !cfg.PlacesDemo() {
		health.Endpoints["Google Places API"] = cfg.PlacesBaseURL
	}
	if !cfg.ScriptsDemo() {
		health.Endpoints["OpenAI API"] = cfg.OpenAIBaseURL
	}

	router := api.SetupRoutes(api.RouterConfig{
		Outreach:      application.Outreach,
		Health:        health,
		Metrics:       promhttp.Handler(),
		SecureCookies: cfg.Env == "production",
	})

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-Id",
			"X-Session-Id",
		},
		ExposedHeaders: []string{
			"Content-Disposition",
			"Retry-After",
			"X-Request-Id",
			"X-Session-Id",
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
			"X-RateLimit-Reason",
		},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	})

	// Script generation can take most of a minute.
	srv := &http.Server{
		Handler:      corsMiddleware.Handler(router),
		Addr:         ":" + cfg.Port,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
	}

	go func() {
		logger.LogEvent(logrus.InfoLevel, "Server starting", logrus.Fields{
			"port":         cfg.Port,
			"env":          cfg.Env,
			"demo_search":  cfg.PlacesDemo(),
			"demo_scripts": cfg.ScriptsDemo(),
			"cache":        application.CacheBackend,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.LogEvent(logrus.InfoLevel, "Shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.LogEvent(logrus.ErrorLevel, "Shutdown error", logrus.Fields{"error": err.Error()})
	}
	logger.LogEvent(logrus.InfoLevel, "Stopped", nil)
}
