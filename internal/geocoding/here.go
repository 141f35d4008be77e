package geocoding

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/UnknownOlympus/geoplot/internal/models"
	"golang.org/x/time/rate"
)

// HereBaseURL is the HERE Geocoding & Search v7 endpoint.
const HereBaseURL = "https://geocode.search.hereapi.com/v1/geocode"

// HereProvider implements geocoding using the HERE Geocoding & Search API.
// It is the default provider; the API key is sent as the apiKey query parameter.
type HereProvider struct {
	client  HTTPClient
	baseURL string
	apiKey  string
	log     *slog.Logger
	limiter *rate.Limiter
}

type hereResponse struct {
	Items []struct {
		Title    string `json:"title"`
		Position *struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"position"`
	} `json:"items"`
}

// NewHereProvider creates a HERE provider. A rateLimit of zero disables client side limiting.
func NewHereProvider(apiKey string, rateLimit int, log *slog.Logger) *HereProvider {
	const timeout = 10

	limiter := rate.NewLimiter(rate.Inf, 0)
	if rateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(rateLimit), rateLimit)
	}

	return NewHereProviderWithClient(&http.Client{Timeout: timeout * time.Second}, apiKey, limiter, log)
}

// NewHereProviderWithClient allows injecting a custom HTTP client and limiter.
func NewHereProviderWithClient(client HTTPClient, apiKey string, limiter *rate.Limiter, log *slog.Logger) *HereProvider {
	return &HereProvider{
		client:  client,
		baseURL: HereBaseURL,
		apiKey:  apiKey,
		log:     log,
		limiter: limiter,
	}
}

// Geocode returns the position of the first item HERE matches for the address.
func (hp *HereProvider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	if err := hp.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	hp.log.DebugContext(ctx, "Geocoding using HERE", "address", address)

	if address == "" {
		return nil, fmt.Errorf("here: %w", ErrEmptyAddress)
	}

	var result hereResponse
	err := getJSON(ctx, hp.client, hp.log, jsonRequest{
		provider: "here",
		baseURL:  hp.baseURL,
		query: url.Values{
			"q":      {address},
			"limit":  {"1"},
			"apiKey": {hp.apiKey},
		},
		header: http.Header{"Accept": {"application/json"}},
	}, &result)
	if err != nil {
		return nil, err
	}

	if len(result.Items) == 0 {
		return nil, fmt.Errorf("here: %w", ErrEmptyResponse)
	}

	item := result.Items[0]
	if item.Position == nil {
		return nil, fmt.Errorf("here: %w", ErrInvalidCoordinates)
	}

	hp.log.DebugContext(ctx, "HERE found result", "match", item.Title)

	return &models.Coordinates{Latitude: item.Position.Lat, Longitude: item.Position.Lng}, nil
}
