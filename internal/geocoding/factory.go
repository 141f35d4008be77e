package geocoding

import (
	"fmt"
	"log/slog"

	"googlemaps.github.io/maps"
)

// ProviderType represents the type of geocoding provider.
type ProviderType string

const (
	// ProviderTypeHere represents the HERE Geocoding & Search API (default).
	ProviderTypeHere ProviderType = "here"
	// ProviderTypeGoogle represents Google Maps geocoding provider.
	ProviderTypeGoogle ProviderType = "google"
	// ProviderTypeNominatim represents OpenStreetMap Nominatim geocoding provider.
	ProviderTypeNominatim ProviderType = "nominatim"
	// ProviderTypeVisicom represents Visicom Maps geocoding provider.
	ProviderTypeVisicom ProviderType = "visicom"
)

// ProviderConfig holds configuration for creating a geocoding provider.
// APIKey is the credential supplied by the user for the current run.
type ProviderConfig struct {
	Type      ProviderType // vendor to build
	APIKey    string       // credential of the current run, never logged
	RateLimit int          // requests per second enforced by the vendor client, 0 = unlimited
	Region    string       // optional region bias (Google)
	Logger    *slog.Logger // logger handed to the provider
}

// RequiresKey reports whether the provider type needs a credential.
func (t ProviderType) RequiresKey() bool {
	return t != ProviderTypeNominatim
}

// NewProvider creates a geocoding provider based on the provided configuration.
// It is called once per run so that the run's credential is bound to the client.
func NewProvider(config ProviderConfig) (Provider, error) {
	switch config.Type {
	case ProviderTypeHere:
		return newHereProvider(config)
	case ProviderTypeGoogle:
		return newGoogleProvider(config)
	case ProviderTypeNominatim:
		return NewNominatimProvider(config.Logger), nil
	case ProviderTypeVisicom:
		return newVisicomProvider(config)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", config.Type)
	}
}

func newHereProvider(config ProviderConfig) (Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w for HERE provider", ErrAPIKeyRequired)
	}

	return NewHereProvider(config.APIKey, config.RateLimit, config.Logger), nil
}

func newGoogleProvider(config ProviderConfig) (Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w for Google provider", ErrAPIKeyRequired)
	}

	clientOpts := []maps.ClientOption{
		maps.WithAPIKey(config.APIKey),
	}
	if config.RateLimit > 0 {
		clientOpts = append(clientOpts, maps.WithRateLimit(config.RateLimit))
	}

	client, err := maps.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	return NewGoogleProvider(client, config.Logger).WithRegion(config.Region), nil
}

func newVisicomProvider(config ProviderConfig) (Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w for Visicom provider", ErrAPIKeyRequired)
	}

	if config.RateLimit == 0 {
		config.RateLimit = 5
		config.Logger.Warn("Rate limit for Visicom API not set, set a default value", "value", config.RateLimit)
	}

	return NewVisicomProvider(config.APIKey, config.RateLimit, config.Logger), nil
}
