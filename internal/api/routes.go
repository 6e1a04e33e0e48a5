package api

import (
	"coldcall-api/internal/api/controllers"
	"coldcall-api/internal/api/handlers"
	"coldcall-api/internal/middleware"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	Outreach      handlers.Outreach
	Health        controllers.HealthCheck
	Metrics       http.Handler
	SecureCookies bool
}

// SetupRoutes builds the HTML and JSON surfaces on one chi router. Search
// and script routes sit behind the usage gate middleware.
func SetupRoutes(cfg RouterConfig) *chi.Mux {
	router := chi.NewRouter()
	router.Use(chimw.Recoverer)
	if cfg.Health.Uptime != nil {
		router.Use(cfg.Health.Uptime.Middleware)
	}
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware)

	router.Get("/health", controllers.HealthCheckHandler(cfg.Health))
	if cfg.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	rateLimiter := middleware.NewRateLimiter(cfg.Outreach)

	uiHandler := handlers.NewUIHandler(cfg.Outreach)
	searchHandler := handlers.NewSearchHandler(cfg.Outreach)
	scriptHandler := handlers.NewScriptHandler(cfg.Outreach)
	sessionHandler := handlers.NewSessionHandler(cfg.Outreach)
	exportHandler := handlers.NewExportHandler(cfg.Outreach)
	usageHandler := handlers.NewUsageHandler(cfg.Outreach)

	router.Group(func(r chi.Router) {
		r.Use(middleware.SessionMiddleware(cfg.SecureCookies))

		r.Get("/", uiHandler.Index)
		r.Post("/service", uiHandler.UpdateService)
		r.Post("/clear", uiHandler.Clear)
		r.Get("/export.csv", exportHandler.Export)
		r.Post("/search", uiHandler.Search)
		r.Post("/scripts/{placeID}", uiHandler.GenerateScript)

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/services", sessionHandler.ListServices)
			r.Get("/session", sessionHandler.GetSession)
			r.Delete("/session", sessionHandler.DeleteSession)
			r.Put("/session/service", sessionHandler.UpdateService)
			r.Delete("/session/results", sessionHandler.ClearResults)
			r.Get("/export", exportHandler.Export)
			r.Get("/usage", usageHandler.GetCurrentUsage)

			r.Group(func(r chi.Router) {
				r.Use(rateLimiter.RateLimit)
				r.Post("/search", searchHandler.Search)
				r.Post("/scripts/{placeID}", scriptHandler.GenerateScript)
			})
		})
	})

	return router
}
