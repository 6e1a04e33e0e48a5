package models

import "time"

const MaxSearchHistory = 5

// Session is everything remembered for one anonymous identity between
// requests. It lives in memory only.
type Session struct {
	Identity           string               `json:"identity"`
	ServiceDescription string               `json:"service_description"`
	LastCategory       string               `json:"last_category"`
	Results            []ResultRow          `json:"results"`
	History            []SearchHistoryEntry `json:"history"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

// ServicePresets are offered as starting points for the service description.
var ServicePresets = []string{
	"Digital Marketing Services",
	"Web Design & Development",
	"SEO & Online Visibility",
	"Social Media Management",
	"Google Ads & PPC",
	"Email Marketing",
	"Content Creation",
	"Business Consulting",
	"Financial Services",
	"Insurance Services",
	"Real Estate Services",
	"Legal Services",
	"Accounting & Bookkeeping",
	"HR & Recruitment",
	"IT Support & Services",
	"Cleaning Services",
	"Landscaping & Maintenance",
	"Restaurant Services",
	"Healthcare Services",
}
