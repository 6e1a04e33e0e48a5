package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

type HealthCheckResponse struct {
	Status           string            `json:"status"`
	Cache            string            `json:"cache"`
	Providers        map[string]string `json:"providers"`
	ExternalServices map[string]string `json:"external_services,omitempty"`
	Uptime           *UptimeStats      `json:"uptime,omitempty"`
}

// HealthCheck describes what the running process is wired to.
type HealthCheck struct {
	CacheBackend string
	DemoSearch   bool
	DemoScripts  bool

	// Endpoints are probed only when the request asks for ?deep=1.
	Endpoints map[string]string
	Client    *http.Client
	Uptime    *UptimeTracker
}

// HealthCheckHandler reports API health, provider modes and, on request,
// whether external services answer.
func HealthCheckHandler(hc HealthCheck) http.HandlerFunc {
	if hc.Client == nil {
		hc.Client = &http.Client{Timeout: 5 * time.Second}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		response := HealthCheckResponse{
			Status: "API is running",
			Cache:  hc.CacheBackend,
			Providers: map[string]string{
				"places":  providerMode(hc.DemoSearch, "google"),
				"scripts": providerMode(hc.DemoScripts, "openai"),
			},
		}

		if hc.Uptime != nil {
			stats := hc.Uptime.Snapshot()
			response.Uptime = &stats
		}

		if r.URL.Query().Get("deep") == "1" && len(hc.Endpoints) > 0 {
			response.ExternalServices = checkExternalServices(r.Context(), hc.Client, hc.Endpoints)
		}

		respondWithJSON(w, http.StatusOK, response)
	}
}

func providerMode(demo bool, live string) string {
	if demo {
		return "demo"
	}
	return live
}

// respondWithJSON sends a JSON response
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func checkExternalServices(ctx context.Context, client *http.Client, endpoints map[string]string) map[string]string {
	names := make([]string, 0, len(endpoints))
	for name := range endpoints {
		names = append(names, name)
	}
	statuses := make([]string, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			statuses[i] = checkExternalService(gctx, client, endpoints[name])
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]string, len(names))
	for i, name := range names {
		out[name] = statuses[i]
	}
	return out
}

// checkExternalService checks the status of an external service. Any answer
// below 500 means the service is up, since API roots often reply 401 or 404.
func checkExternalService(ctx context.Context, client *http.Client, url string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "Unreachable"
	}

	resp, err := client.Do(req)
	if err != nil {
		return "Unreachable"
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusInternalServerError {
		return "Available"
	}
	return "Unavailable"
}
