package geocoding

import (
	"context"
	"errors"

	"github.com/UnknownOlympus/geoplot/internal/models"
)

// Provider is the geocoding collaborator contract: given an address string it
// returns the coordinates of the best match or an error. The credential is bound
// when the provider is constructed, so every call of one run uses the same key.
type Provider interface {
	Geocode(ctx context.Context, address string) (*models.Coordinates, error)
}

// Errors shared by all providers. Provider specific context is added by wrapping.
var (
	ErrEmptyResponse      = errors.New("geocoding API returned empty response")
	ErrEmptyAddress       = errors.New("empty address")
	ErrInvalidCoordinates = errors.New("geocoding API returned invalid coordinates")
	ErrUnauthorized       = errors.New("geocoding API rejected the credential")
	ErrAPIKeyRequired     = errors.New("API key is required")
)
