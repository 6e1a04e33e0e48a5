package services

import (
	"coldcall-api/internal/logger"
	"coldcall-api/internal/models"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPlacesBaseURL = "https://maps.googleapis.com/maps/api"
	DefaultMaxResults    = 20

	// Google returns at most 20 results per page and 3 pages per query.
	placesPageSize = 20
	placesMaxPages = 3
)

// PlacesProvider finds businesses near a free-text location.
type PlacesProvider interface {
	SearchNearby(ctx context.Context, location, keyword string, radiusMeters int) ([]models.Business, error)
}

// GooglePlacesClient talks to the Google Geocoding, Nearby Search and Place
// Details JSON APIs.
type GooglePlacesClient struct {
	client             *http.Client
	apiKey             string
	baseURL            string
	maxResults         int
	pageTokenDelay     time.Duration
	detailsConcurrency int
}

type PlacesOption func(*GooglePlacesClient)

func WithPlacesBaseURL(baseURL string) PlacesOption {
	return func(c *GooglePlacesClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func WithPlacesHTTPClient(client *http.Client) PlacesOption {
	return func(c *GooglePlacesClient) {
		c.client = client
	}
}

func WithMaxResults(n int) PlacesOption {
	return func(c *GooglePlacesClient) {
		if n > 0 {
			c.maxResults = n
		}
	}
}

// WithPageTokenDelay sets how long to wait before using a next_page_token.
// Google rejects tokens that are used too early.
func WithPageTokenDelay(d time.Duration) PlacesOption {
	return func(c *GooglePlacesClient) {
		c.pageTokenDelay = d
	}
}

func NewGooglePlacesClient(apiKey string, opts ...PlacesOption) *GooglePlacesClient {
	c := &GooglePlacesClient{
		client:             &http.Client{Timeout: 15 * time.Second},
		apiKey:             apiKey,
		baseURL:            DefaultPlacesBaseURL,
		maxResults:         DefaultMaxResults,
		pageTokenDelay:     2 * time.Second,
		detailsConcurrency: 5,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type placesLatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location placesLatLng `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

type nearbyPlace struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	Vicinity         string   `json:"vicinity"`
	Rating           float64  `json:"rating"`
	UserRatingsTotal int      `json:"user_ratings_total"`
	Types            []string `json:"types"`
	BusinessStatus   string   `json:"business_status"`
	Geometry         struct {
		Location placesLatLng `json:"location"`
	} `json:"geometry"`
}

type nearbyResponse struct {
	Status        string        `json:"status"`
	ErrorMessage  string        `json:"error_message"`
	NextPageToken string        `json:"next_page_token"`
	Results       []nearbyPlace `json:"results"`
}

type detailsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Result       struct {
		Name                 string   `json:"name"`
		FormattedAddress     string   `json:"formatted_address"`
		FormattedPhoneNumber string   `json:"formatted_phone_number"`
		Website              string   `json:"website"`
		URL                  string   `json:"url"`
		Rating               float64  `json:"rating"`
		UserRatingsTotal     int      `json:"user_ratings_total"`
		Types                []string `json:"types"`
	} `json:"result"`
}

// SearchNearby geocodes location, pages through Nearby Search until
// maxResults listings are collected and enriches each with Place Details.
// A location that cannot be geocoded yields no results and no error.
func (c *GooglePlacesClient) SearchNearby(ctx context.Context, location, keyword string, radiusMeters int) ([]models.Business, error) {
	center, found, err := c.geocode(ctx, location)
	if err != nil {
		return nil, err
	}
	if !found {
		logger.LogEvent(logrus.InfoLevel, "Location not found", logrus.Fields{"location": location})
		return []models.Business{}, nil
	}

	var places []nearbyPlace
	pageToken := ""
	for page := 0; page < placesMaxPages && len(places) < c.maxResults; page++ {
		if pageToken != "" && c.pageTokenDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.pageTokenDelay):
			}
		}

		resp, err := c.nearby(ctx, center, radiusMeters, keyword, pageToken)
		if err != nil {
			return nil, err
		}
		places = append(places, resp.Results...)

		pageToken = resp.NextPageToken
		if pageToken == "" || len(resp.Results) < placesPageSize {
			break
		}
	}
	if len(places) > c.maxResults {
		places = places[:c.maxResults]
	}

	return c.enrich(ctx, places), nil
}

func (c *GooglePlacesClient) geocode(ctx context.Context, location string) (placesLatLng, bool, error) {
	var resp geocodeResponse
	if err := c.getJSON(ctx, "geocode", url.Values{"address": {location}}, &resp); err != nil {
		return placesLatLng{}, false, err
	}
	if err := checkPlacesStatus("geocode", resp.Status, resp.ErrorMessage); err != nil {
		return placesLatLng{}, false, err
	}
	if len(resp.Results) == 0 {
		return placesLatLng{}, false, nil
	}
	return resp.Results[0].Geometry.Location, true, nil
}

func (c *GooglePlacesClient) nearby(ctx context.Context, center placesLatLng, radiusMeters int, keyword, pageToken string) (*nearbyResponse, error) {
	params := url.Values{}
	if pageToken != "" {
		params.Set("pagetoken", pageToken)
	} else {
		params.Set("location", formatLatLng(center))
		params.Set("radius", strconv.Itoa(radiusMeters))
		params.Set("keyword", keyword)
		params.Set("type", "establishment")
	}

	var resp nearbyResponse
	if err := c.getJSON(ctx, "place/nearbysearch", params, &resp); err != nil {
		return nil, err
	}
	if err := checkPlacesStatus("nearbysearch", resp.Status, resp.ErrorMessage); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *GooglePlacesClient) details(ctx context.Context, placeID string) (*detailsResponse, error) {
	params := url.Values{
		"place_id": {placeID},
		"fields":   {"name,formatted_address,formatted_phone_number,website,url,rating,user_ratings_total,types"},
	}

	var resp detailsResponse
	if err := c.getJSON(ctx, "place/details", params, &resp); err != nil {
		return nil, err
	}
	if err := checkPlacesStatus("details", resp.Status, resp.ErrorMessage); err != nil {
		return nil, err
	}
	return &resp, nil
}

// enrich fetches Place Details for every listing in parallel. A failed
// details call keeps the basic listing. Output order equals input order.
func (c *GooglePlacesClient) enrich(ctx context.Context, places []nearbyPlace) []models.Business {
	businesses := make([]models.Business, len(places))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.detailsConcurrency)
	for i, p := range places {
		i, p := i, p
		businesses[i] = businessFromNearby(p)
		if p.PlaceID == "" {
			continue
		}
		g.Go(func() error {
			d, err := c.details(gctx, p.PlaceID)
			if err != nil {
				logger.LogEvent(logrus.WarnLevel, "Place details failed", logrus.Fields{
					"place_id": p.PlaceID,
					"error":    err.Error(),
				})
				return nil
			}
			applyDetails(&businesses[i], d)
			return nil
		})
	}
	_ = g.Wait()

	return businesses
}

func (c *GooglePlacesClient) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	params.Set("key", c.apiKey)
	reqURL := fmt.Sprintf("%s/%s/json?%s", c.baseURL, endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("places %s: build request: %w", endpoint, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("places %s: %w", endpoint, redactKey(err, c.apiKey))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("places %s: status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("places %s: decode response: %w", endpoint, err)
	}
	return nil
}

// checkPlacesStatus treats OK and ZERO_RESULTS as success; anything else
// (REQUEST_DENIED, OVER_QUERY_LIMIT, INVALID_REQUEST...) is a failure.
func checkPlacesStatus(endpoint, status, message string) error {
	switch status {
	case "OK", "ZERO_RESULTS":
		return nil
	}
	if message != "" {
		return fmt.Errorf("places %s: %s: %s", endpoint, status, message)
	}
	return fmt.Errorf("places %s: %s", endpoint, status)
}

func businessFromNearby(p nearbyPlace) models.Business {
	name := p.Name
	if name == "" {
		name = "Unknown"
	}
	b := models.Business{
		PlaceID:        p.PlaceID,
		Name:           name,
		Address:        p.Vicinity,
		Category:       models.CategoryFromTypes(p.Types),
		Types:          p.Types,
		Rating:         p.Rating,
		TotalRatings:   p.UserRatingsTotal,
		Latitude:       p.Geometry.Location.Lat,
		Longitude:      p.Geometry.Location.Lng,
		BusinessStatus: p.BusinessStatus,
	}
	if p.PlaceID != "" {
		b.MapsURL = "https://www.google.com/maps/place/?q=place_id:" + p.PlaceID
	}
	return b
}

func applyDetails(b *models.Business, d *detailsResponse) {
	r := d.Result
	if r.FormattedAddress != "" {
		b.Address = r.FormattedAddress
	}
	b.Phone = r.FormattedPhoneNumber
	b.Website = r.Website
	if r.URL != "" {
		b.MapsURL = r.URL
	}
	if r.Rating > 0 {
		b.Rating = r.Rating
		b.TotalRatings = r.UserRatingsTotal
	}
	if len(r.Types) > 0 {
		b.Types = r.Types
		b.Category = models.CategoryFromTypes(r.Types)
	}
}

func formatLatLng(p placesLatLng) string {
	return strconv.FormatFloat(p.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(p.Lng, 'f', 6, 64)
}

// redactKey strips the API key from url.Error messages before they are
// logged or returned.
func redactKey(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(err.Error(), key, "REDACTED"))
}
