package geocoding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/geoplot/internal/models"
	"googlemaps.github.io/maps"
)

// GoogleProvider geocodes through the Google Maps Geocoding API client.
type GoogleProvider struct {
	client GoogleAPIClient // client is the Google Maps API client
	region string          // region is an optional ccTLD bias, e.g. "us"
	log    *slog.Logger
}

// GoogleAPIClient is the subset of *maps.Client used by the provider.
type GoogleAPIClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// NewGoogleProvider wraps an initialized Google Maps client.
func NewGoogleProvider(client GoogleAPIClient, log *slog.Logger) *GoogleProvider {
	return &GoogleProvider{client: client, log: log}
}

// WithRegion returns a copy of the provider that biases results towards region.
func (gp *GoogleProvider) WithRegion(region string) *GoogleProvider {
	cp := *gp
	cp.region = region
	return &cp
}

// Geocode resolves the address to the location of the first result.
// ZERO_RESULTS comes back from the client as an empty slice and is reported as ErrEmptyResponse.
func (gp *GoogleProvider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	gp.log.DebugContext(ctx, "Geocoding using Google Maps", "address", address)

	req := maps.GeocodingRequest{Address: address, Region: gp.region}
	results, err := gp.client.Geocode(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to geocode address: %w", redactURL(err))
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("google: %w", ErrEmptyResponse)
	}
	loc := results[0].Geometry.Location

	return &models.Coordinates{Latitude: loc.Lat, Longitude: loc.Lng}, nil
}
