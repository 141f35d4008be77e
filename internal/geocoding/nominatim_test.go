package geocoding_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/UnknownOlympus/geoplot/internal/geocoding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNominatimProvider_Geocode(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("successful geocoding", func(t *testing.T) {
		calls := 0
		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				calls++
				assert.Equal(t, "GET", req.Method)
				assert.Contains(t, req.URL.String(), "nominatim.openstreetmap.org")
				assert.Equal(t, "1600 Amphitheatre Parkway, Mountain View, CA", req.URL.Query().Get("q"))
				assert.Equal(t, "json", req.URL.Query().Get("format"))
				assert.Equal(t, "1", req.URL.Query().Get("limit"))
				assert.Equal(
					t,
					"Geoplot/1.0 (https://github.com/UnknownOlympus/geoplot)",
					req.Header.Get("User-Agent"),
				)

				responseBody := `[{"lat":"37.4224764","lon":"-122.0842499","display_name":"Google Building 40"}]`
				return &http.Response{
					StatusCode: http.StatusOK,
					Body:       io.NopCloser(bytes.NewBufferString(responseBody)),
				}, nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, logger)
		coords, err := provider.Geocode(ctx, "1600 Amphitheatre Parkway, Mountain View, CA")

		require.NoError(t, err)
		require.NotNil(t, coords)
		assert.InEpsilon(t, 37.4224764, coords.Latitude, 0.0001)
		assert.InEpsilon(t, -122.0842499, coords.Longitude, 0.0001)
		assert.Equal(t, 1, calls, "one request per address")
	})

	t.Run("no fallback requests for multi-part address", func(t *testing.T) {
		calls := 0
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				calls++
				return &http.Response{
					StatusCode: http.StatusOK,
					Body:       io.NopCloser(bytes.NewBufferString(`[]`)),
				}, nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, logger)
		_, err := provider.Geocode(ctx, "Unknown Street, Nowhere, ZZ, Atlantis, 00000")

		require.ErrorIs(t, err, geocoding.ErrEmptyResponse)
		assert.Equal(t, 1, calls)
	})

	t.Run("empty address", func(t *testing.T) {
		provider := geocoding.NewNominatimProviderWithClient(respondWith(http.StatusOK, `[]`), logger)
		coords, err := provider.Geocode(ctx, "")

		require.ErrorIs(t, err, geocoding.ErrEmptyAddress)
		require.Nil(t, coords)
	})

	t.Run("HTTP error status", func(t *testing.T) {
		provider := geocoding.NewNominatimProviderWithClient(
			respondWith(http.StatusTooManyRequests, `{"error":"Rate limit exceeded"}`), logger)
		coords, err := provider.Geocode(ctx, "some address")

		require.Error(t, err)
		require.Nil(t, coords)
		assert.Contains(t, err.Error(), "nominatim API returned status 429")

		var statusErr *geocoding.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusTooManyRequests, statusErr.Code)
	})

	t.Run("forbidden maps to unauthorized", func(t *testing.T) {
		provider := geocoding.NewNominatimProviderWithClient(respondWith(http.StatusForbidden, `blocked`), logger)
		_, err := provider.Geocode(ctx, "some address")

		require.ErrorIs(t, err, geocoding.ErrUnauthorized)
	})

	t.Run("invalid JSON response", func(t *testing.T) {
		provider := geocoding.NewNominatimProviderWithClient(respondWith(http.StatusOK, `invalid json`), logger)
		coords, err := provider.Geocode(ctx, "some address")

		require.Error(t, err)
		require.Nil(t, coords)
		assert.Contains(t, err.Error(), "failed to decode nominatim response")
	})

	t.Run("invalid latitude in response", func(t *testing.T) {
		provider := geocoding.NewNominatimProviderWithClient(
			respondWith(http.StatusOK, `[{"lat":"invalid","lon":"-122.0842499"}]`), logger)
		coords, err := provider.Geocode(ctx, "some address")

		require.Nil(t, coords)
		require.ErrorIs(t, err, geocoding.ErrInvalidCoordinates)
		assert.Contains(t, err.Error(), "invalid latitude")
	})

	t.Run("invalid longitude in response", func(t *testing.T) {
		provider := geocoding.NewNominatimProviderWithClient(
			respondWith(http.StatusOK, `[{"lat":"37.4224764","lon":"invalid"}]`), logger)
		coords, err := provider.Geocode(ctx, "some address")

		require.Nil(t, coords)
		require.ErrorIs(t, err, geocoding.ErrInvalidCoordinates)
		assert.Contains(t, err.Error(), "invalid longitude")
	})

	t.Run("HTTP client returns error", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return nil, assert.AnError
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, logger)
		coords, err := provider.Geocode(ctx, "some address")

		require.ErrorIs(t, err, assert.AnError)
		require.Nil(t, coords)
		assert.Contains(t, err.Error(), "failed to execute geocoding request")
	})

	t.Run("context cancellation", func(t *testing.T) {
		newCtx, cancel := context.WithCancel(context.Background())
		cancel()

		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				return nil, req.Context().Err()
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, logger)
		coords, err := provider.Geocode(newCtx, "some address")

		require.ErrorIs(t, err, context.Canceled)
		require.Nil(t, coords)
	})
}

func TestNewNominatimProvider(t *testing.T) {
	provider := geocoding.NewNominatimProvider(slog.Default())

	require.NotNil(t, provider)
}
