package geocoding

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/UnknownOlympus/geoplot/internal/models"
)

// NominatimBaseURL is the public OpenStreetMap search endpoint.
const NominatimBaseURL = "https://nominatim.openstreetmap.org/search"

// nominatimUserAgent MUST include contact info per the Nominatim usage policy:
// https://operations.osmfoundation.org/policies/nominatim/
const nominatimUserAgent = "Geoplot/1.0 (https://github.com/UnknownOlympus/geoplot)"

// NominatimProvider implements the Provider interface using OpenStreetMap's Nominatim API.
// It needs no credential. The public instance allows 1 request/second for fair use.
type NominatimProvider struct {
	client    HTTPClient
	baseURL   string
	userAgent string
	log       *slog.Logger
}

type nominatimResponse struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NewNominatimProvider creates a Nominatim provider against the public endpoint.
func NewNominatimProvider(log *slog.Logger) *NominatimProvider {
	const timeout = 10
	return NewNominatimProviderWithClient(&http.Client{Timeout: timeout * time.Second}, log)
}

// NewNominatimProviderWithClient creates a Nominatim provider with a custom HTTP client.
func NewNominatimProviderWithClient(client HTTPClient, log *slog.Logger) *NominatimProvider {
	return &NominatimProvider{
		client:    client,
		baseURL:   NominatimBaseURL,
		userAgent: nominatimUserAgent,
		log:       log,
	}
}

// Geocode sends the address as a single free-text query and returns the top match.
func (np *NominatimProvider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	np.log.DebugContext(ctx, "Geocoding using Nominatim", "address", address)

	if address == "" {
		return nil, fmt.Errorf("nominatim: %w", ErrEmptyAddress)
	}

	var results []nominatimResponse
	err := getJSON(ctx, np.client, np.log, jsonRequest{
		provider: "nominatim",
		baseURL:  np.baseURL,
		query: url.Values{
			"q":      {address},
			"format": {"json"},
			"limit":  {"1"},
		},
		header: http.Header{"User-Agent": {np.userAgent}},
	}, &results)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("nominatim: %w", ErrEmptyResponse)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("nominatim: %w: invalid latitude: %s", ErrInvalidCoordinates, results[0].Lat)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("nominatim: %w: invalid longitude: %s", ErrInvalidCoordinates, results[0].Lon)
	}

	np.log.DebugContext(ctx, "Nominatim found result", "match", results[0].DisplayName, "lat", lat, "lon", lon)

	return &models.Coordinates{Latitude: lat, Longitude: lon}, nil
}
