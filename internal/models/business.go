package models

import "strings"

// Business is one places-provider listing. It is not modified after the
// search that produced it.
type Business struct {
	PlaceID        string   `json:"place_id"`
	Name           string   `json:"name"`
	Address        string   `json:"address"`
	Phone          string   `json:"phone"`
	Category       string   `json:"category"`
	Types          []string `json:"types,omitempty"`
	Rating         float64  `json:"rating"`
	TotalRatings   int      `json:"total_ratings"`
	Website        string   `json:"website"`
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	MapsURL        string   `json:"maps_url,omitempty"`
	BusinessStatus string   `json:"business_status,omitempty"`
}

func (b Business) HasWebsite() bool {
	return strings.TrimSpace(b.Website) != ""
}

// CategoryFromTypes turns the first provider type into a readable label,
// e.g. "hair_care" becomes "Hair Care".
func CategoryFromTypes(types []string) string {
	for _, t := range types {
		if t == "" || t == "point_of_interest" || t == "establishment" {
			continue
		}
		words := strings.Split(t, "_")
		for i, w := range words {
			if w != "" {
				words[i] = strings.ToUpper(w[:1]) + w[1:]
			}
		}
		return strings.Join(words, " ")
	}
	return "Business"
}

type WebsiteStatus string

const (
	WebsiteUnchecked   WebsiteStatus = "unchecked"
	WebsiteLive        WebsiteStatus = "live"
	WebsiteUnreachable WebsiteStatus = "unreachable"
)

// ResultRow is a business as shown to the user: the listing, the outcome of
// the website probe and the generated script, if any.
type ResultRow struct {
	Business Business      `json:"business"`
	Website  WebsiteStatus `json:"website_status"`
	Script   string        `json:"script,omitempty"`
}

func NewResultRows(businesses []Business) []ResultRow {
	rows := make([]ResultRow, len(businesses))
	for i, b := range businesses {
		rows[i] = ResultRow{Business: b, Website: WebsiteUnchecked}
	}
	return rows
}
