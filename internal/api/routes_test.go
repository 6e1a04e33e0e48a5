package api

import (
	"coldcall-api/internal/api/controllers"
	"coldcall-api/internal/config"
	"coldcall-api/internal/metrics"
	"coldcall-api/internal/middleware"
	"coldcall-api/internal/models"
	"coldcall-api/internal/repository"
	"coldcall-api/internal/services"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedPlaces struct {
	businesses []models.Business
}

func (p *fixedPlaces) SearchNearby(ctx context.Context, location, keyword string, radiusMeters int) ([]models.Business, error) {
	return p.businesses, nil
}

var testBusinesses = []models.Business{
	{PlaceID: "p1", Name: "Ace Plumbing", Address: "1 Main St", Phone: "+1 512-555-0101", Rating: 4.6, Category: "Plumber"},
	{PlaceID: "p2", Name: "Bolt Electric", Address: "2 Main St", Rating: 3.9, Category: "Electrician"},
	{PlaceID: "p3", Name: "Cedar Roofing", Address: "3 Main St", Website: "https://cedar.example", Rating: 4.1},
}

func newTestRouter(t *testing.T, dailyLimit int) http.Handler {
	t.Helper()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	gate := services.NewUsageGate(repository.NewUsageRepository(), &config.RateLimitConfig{
		DailyLimit:          dailyLimit,
		SuspiciousThreshold: 1000,
		SuspiciousWindow:    time.Minute,
	}, services.WithGateMetrics(m))
	search := services.NewSearchService(&fixedPlaces{businesses: testBusinesses}, services.NewMemoryCacheService(),
		services.WithSearchMetrics(m))
	outreach := services.NewOutreachService(gate, search, services.NewWebsiteProbe(),
		services.NewDemoScriptGenerator(m), repository.NewSessionRepository(), m)

	return SetupRoutes(RouterConfig{
		Outreach: outreach,
		Health:   controllers.HealthCheck{CacheBackend: "memory", DemoScripts: true},
		Metrics:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
}

func do(t *testing.T, h http.Handler, method, target, identity string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if identity != "" {
		req.Header.Set(middleware.SessionHeader, identity)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const searchBody = `{"location":"Austin, TX","category":"plumber","radius_km":10}`

func TestHealth(t *testing.T) {
	router := newTestRouter(t, 10)

	rec := do(t, router, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body controllers.HealthCheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "memory", body.Cache)
	assert.Equal(t, "google", body.Providers["places"])
	assert.Equal(t, "demo", body.Providers["scripts"])
	assert.Empty(t, body.ExternalServices)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}

func TestSearchAPI(t *testing.T) {
	router := newTestRouter(t, 10)
	identity := uuid.NewString()

	rec := do(t, router, http.MethodPost, "/api/v1/search", identity, searchBody)
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 3, result.Shown)
	assert.Equal(t, "Ace Plumbing", result.Rows[0].Business.Name)
	assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "7", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, identity, rec.Header().Get(middleware.SessionHeader))

	rec = do(t, router, http.MethodGet, "/api/v1/usage", identity, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var usage models.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &usage))
	assert.Equal(t, 3, usage.Count)
}

func TestSearchAPI_InvalidInput(t *testing.T) {
	router := newTestRouter(t, 10)
	identity := uuid.NewString()

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"location":`},
		{"missing location", `{"category":"plumber"}`},
		{"rating out of range", `{"location":"Austin","category":"plumber","filters":{"min_rating":9}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/v1/search", identity, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"code":"INVALID_INPUT"`)
		})
	}
}

func TestSearchAPI_DailyLimit(t *testing.T) {
	router := newTestRouter(t, 2)
	identity := uuid.NewString()

	rec := do(t, router, http.MethodPost, "/api/v1/search", identity, searchBody)
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Shown)
	assert.True(t, result.Truncated)

	rec = do(t, router, http.MethodPost, "/api/v1/search", identity, searchBody)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, models.ReasonDailyLimit, rec.Header().Get(middleware.RateLimitReasonHeader))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	other := do(t, router, http.MethodPost, "/api/v1/search", uuid.NewString(), searchBody)
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestScriptAPI(t *testing.T) {
	router := newTestRouter(t, 10)
	identity := uuid.NewString()

	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/api/v1/search", identity, searchBody).Code)

	rec := do(t, router, http.MethodPost, "/api/v1/scripts/p1", identity, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPut, "/api/v1/session/service", identity, `{"description":"bookkeeping"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"demo_scripts":true`)

	rec = do(t, router, http.MethodPost, "/api/v1/scripts/unknown", identity, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/v1/scripts/p1", identity, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var row models.ResultRow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &row))
	assert.Contains(t, row.Script, "Ace Plumbing")
	assert.Contains(t, row.Script, "bookkeeping")
}

func TestExportAPI(t *testing.T) {
	router := newTestRouter(t, 10)
	identity := uuid.NewString()

	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/api/v1/search", identity, searchBody).Code)

	rec := do(t, router, http.MethodGet, "/api/v1/export", identity, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "business_contacts_")

	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "Cedar Roofing", records[3][0])
	assert.Equal(t, "https://cedar.example", records[3][5])

	rec = do(t, router, http.MethodDelete, "/api/v1/session/results", identity, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/v1/export", identity, "")
	records, err = csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestDeleteSessionKeepsUsage(t *testing.T) {
	router := newTestRouter(t, 10)
	identity := uuid.NewString()

	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/api/v1/search", identity, searchBody).Code)
	require.Equal(t, http.StatusOK, do(t, router, http.MethodPut, "/api/v1/session/service", identity, `{"description":"bookkeeping"}`).Code)

	rec := do(t, router, http.MethodDelete, "/api/v1/session", identity, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/v1/session", identity, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		ServiceDescription string             `json:"service_description"`
		Results            []models.ResultRow `json:"results"`
		Usage              models.Decision    `json:"usage"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.ServiceDescription)
	assert.Empty(t, body.Results)
	assert.Equal(t, 3, body.Usage.Count)
}

func TestServicesList(t *testing.T) {
	router := newTestRouter(t, 10)

	rec := do(t, router, http.MethodGet, "/api/v1/services", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, models.ServicePresets, body["services"])
}

func TestUI_IndexSetsSessionCookie(t *testing.T) {
	router := newTestRouter(t, 10)

	rec := do(t, router, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Cold Calling Assistant")

	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			found = true
			_, err := uuid.Parse(c.Value)
			assert.NoError(t, err)
		}
	}
	assert.True(t, found)
}

func TestUI_SearchFormRendersResults(t *testing.T) {
	router := newTestRouter(t, 10)
	identity := uuid.NewString()

	form := url.Values{
		"location":   {"Austin, TX"},
		"category":   {"plumber"},
		"radius_km":  {"10"},
		"min_rating": {"4"},
	}
	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: identity})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Found 2 businesses.")
	assert.Contains(t, body, "Ace Plumbing")
	assert.Contains(t, body, "Cedar Roofing")
	assert.NotContains(t, body, "Bolt Electric")
	assert.Contains(t, body, `href="tel:`)
	assert.Contains(t, body, "/export.csv")
}

func TestUI_SearchFormShowsErrorsInline(t *testing.T) {
	router := newTestRouter(t, 10)

	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader("category=plumber"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Location is required")
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, 10)
	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/api/v1/search", uuid.NewString(), searchBody).Code)

	rec := do(t, router, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "coldcall_contacts_recorded_total 3")
}
