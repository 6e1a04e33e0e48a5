package services

import (
	"coldcall-api/internal/models"
	"context"
	"strings"
)

// DemoPlacesProvider serves canned listings when no places API key is
// configured, so the rest of the flow can be tried without credentials.
type DemoPlacesProvider struct{}

func NewDemoPlacesProvider() *DemoPlacesProvider {
	return &DemoPlacesProvider{}
}

func (p *DemoPlacesProvider) SearchNearby(ctx context.Context, location, keyword string, radiusMeters int) ([]models.Business, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	category := strings.TrimSpace(keyword)
	if category == "" {
		category = "Business"
	}

	out := make([]models.Business, len(demoBusinesses))
	for i, b := range demoBusinesses {
		b.Category = category
		if location != "" {
			b.Address = b.Address + " (near " + location + ")"
		}
		out[i] = b
	}
	return out, nil
}

var demoBusinesses = []models.Business{
	{
		PlaceID:      "demo_1",
		Name:         "Demo Restaurant",
		Address:      "123 Main St, New York, NY 10001",
		Phone:        "+1-555-0123",
		Website:      "https://demo-restaurant.com",
		Rating:       4.5,
		TotalRatings: 120,
		Latitude:     40.7506,
		Longitude:    -73.9972,
		MapsURL:      "https://maps.google.com/?cid=demo1",
	},
	{
		PlaceID:      "demo_2",
		Name:         "Sample Marketing Agency",
		Address:      "456 Business Ave, New York, NY 10002",
		Phone:        "+1-555-0456",
		Website:      "https://sample-agency.com",
		Rating:       4.2,
		TotalRatings: 85,
		Latitude:     40.7157,
		Longitude:    -73.9863,
		MapsURL:      "https://maps.google.com/?cid=demo2",
	},
	{
		PlaceID:      "demo_3",
		Name:         "Local Coffee Shop",
		Address:      "789 Coffee St, New York, NY 10003",
		Phone:        "+1-555-0789",
		Website:      "https://local-coffee.com",
		Rating:       4.8,
		TotalRatings: 200,
		Latitude:     40.7317,
		Longitude:    -73.9892,
		MapsURL:      "https://maps.google.com/?cid=demo3",
	},
}
