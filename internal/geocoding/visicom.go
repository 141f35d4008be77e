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

// VisicomBaseURL -- Visicom API base URL.
const VisicomBaseURL = "https://api.visicom.ua/data-api/5.0/uk/geocode.json"

// VisicomProvider implements geocoding using the Visicom Data API.
type VisicomProvider struct {
	client  HTTPClient
	baseURL string
	apiKey  string
	log     *slog.Logger
	limiter *rate.Limiter
}

// Visicom API response (simplified for geocoding use-case).
type visicomResponse struct {
	Geometry struct {
		Coordinates []float64 `json:"coordinates"` // [lon, lat]
	} `json:"geo_centroid"`
}

// NewVisicomProvider creates a new Visicom geocoding provider.
func NewVisicomProvider(apiKey string, rateLimit int, log *slog.Logger) *VisicomProvider {
	const timeout = 10

	return NewVisicomProviderWithClient(
		&http.Client{Timeout: timeout * time.Second},
		apiKey,
		rate.NewLimiter(rate.Limit(rateLimit), rateLimit),
		log,
	)
}

// NewVisicomProviderWithClient allows injecting custom HTTP client.
func NewVisicomProviderWithClient(
	client HTTPClient,
	apiKey string,
	limiter *rate.Limiter,
	log *slog.Logger,
) *VisicomProvider {
	return &VisicomProvider{
		client:  client,
		baseURL: VisicomBaseURL,
		apiKey:  apiKey,
		log:     log,
		limiter: limiter,
	}
}

// Geocode converts address into geographic coordinates using Visicom API.
func (vp *VisicomProvider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	const coordsListLength = 2

	if err := vp.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	vp.log.DebugContext(ctx, "Geocoding using Visicom", "address", address)

	if address == "" {
		return nil, fmt.Errorf("visicom: %w", ErrEmptyAddress)
	}

	var result visicomResponse
	err := getJSON(ctx, vp.client, vp.log, jsonRequest{
		provider: "visicom",
		baseURL:  vp.baseURL,
		query: url.Values{
			"text":  {address},
			"limit": {"1"},
			"key":   {vp.apiKey},
		},
		header: http.Header{"Accept": {"application/json"}},
	}, &result)
	if err != nil {
		return nil, err
	}

	coords := result.Geometry.Coordinates
	if len(coords) == 0 {
		return nil, fmt.Errorf("visicom: %w", ErrEmptyResponse)
	}
	if len(coords) != coordsListLength {
		return nil, fmt.Errorf("visicom: %w", ErrInvalidCoordinates)
	}

	return &models.Coordinates{Latitude: coords[1], Longitude: coords[0]}, nil
}
