package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinRadiusKm = 1
	MaxRadiusKm = 50
)

type SearchFilters struct {
	MinRating       float64 `json:"min_rating"`
	RequireWebsite  bool    `json:"require_website"`
	LiveWebsiteOnly bool    `json:"live_website_only"`
}

type SearchParams struct {
	Location       string        `json:"location"`
	Category       string        `json:"category"`
	RadiusKm       int           `json:"radius_km"`
	Filters        SearchFilters `json:"filters"`
	VerifyWebsites bool          `json:"verify_websites"`
}

// ClampedRadiusKm returns the radius forced into [MinRadiusKm, MaxRadiusKm].
func (p SearchParams) ClampedRadiusKm() int {
	switch {
	case p.RadiusKm < MinRadiusKm:
		return MinRadiusKm
	case p.RadiusKm > MaxRadiusKm:
		return MaxRadiusKm
	default:
		return p.RadiusKm
	}
}

type SearchHistoryEntry struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Location  string    `json:"location"`
	Category  string    `json:"category"`
	RadiusKm  int       `json:"radius_km"`
	Count     int       `json:"count"`
}

// SearchResult is what a search hands back to the caller. Total counts rows
// after filtering; Shown may be smaller when the daily allowance ran out.
type SearchResult struct {
	Rows      []ResultRow `json:"rows"`
	Total     int         `json:"total"`
	Shown     int         `json:"shown"`
	Truncated bool        `json:"truncated"`
	Decision  Decision    `json:"usage"`
	Demo      bool        `json:"demo"`
}

type ScriptRequest struct {
	ServiceDescription string
	SearchCategory     string
	Business           Business
}
