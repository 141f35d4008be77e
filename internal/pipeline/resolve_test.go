package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"testing"

	"github.com/UnknownOlympus/geoplot/internal/geocoding"
	"github.com/UnknownOlympus/geoplot/internal/metrics"
	"github.com/UnknownOlympus/geoplot/internal/models"
	"github.com/UnknownOlympus/geoplot/internal/pipeline"
	"github.com/UnknownOlympus/geoplot/test/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestMetrics() *metrics.Metrics {
	return metrics.NewMetrics(prometheus.NewRegistry())
}

func TestResolver_Resolve(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	t.Run("one call per row in input order", func(t *testing.T) {
		provider := mocks.NewProvider(t)
		m := newTestMetrics()
		var calls []string

		for i, addr := range []string{"first", "second", "first"} {
			coords := &models.Coordinates{Latitude: float64(i), Longitude: float64(i)}
			provider.On("Geocode", mock.Anything, addr).
				Run(func(args mock.Arguments) { calls = append(calls, args.String(1)) }).
				Return(coords, nil).Once()
		}

		resolver := pipeline.NewResolver(logger, provider, "here", m)
		out, err := resolver.Resolve(t.Context(), []models.NormalizedRecord{
			{UniqueID: "1", Address: "first"},
			{UniqueID: "2", Address: "second"},
			{UniqueID: "3", Address: "first"},
		})

		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second", "first"}, calls, "no dedup, no reordering")
		require.Len(t, out, 3)
		for i, rec := range out {
			assert.Equal(t, fmt.Sprint(i+1), rec.UniqueID)
			require.NotNil(t, rec.Coordinates)
		}
		assert.InDelta(t, 3, testutil.ToFloat64(m.GeocodeRequests.WithLabelValues("success")), 0)
	})

	t.Run("failures are absorbed", func(t *testing.T) {
		provider := mocks.NewProvider(t)
		m := newTestMetrics()
		provider.On("Geocode", mock.Anything, "down").Return(nil, assert.AnError).Once()
		provider.On("Geocode", mock.Anything, "nowhere").
			Return(nil, fmt.Errorf("here: %w", geocoding.ErrEmptyResponse)).Once()
		provider.On("Geocode", mock.Anything, "mars").
			Return(&models.Coordinates{Latitude: 123, Longitude: 0}, nil).Once()
		provider.On("Geocode", mock.Anything, "nil").Return(nil, nil).Once()

		resolver := pipeline.NewResolver(logger, provider, "here", m)
		out, err := resolver.Resolve(t.Context(), []models.NormalizedRecord{
			{UniqueID: "1", Address: "down"},
			{UniqueID: "2", Address: "nowhere"},
			{UniqueID: "3", Address: "mars"},
			{UniqueID: "4", Address: "nil"},
		})

		require.NoError(t, err)
		require.Len(t, out, 4)
		for _, rec := range out {
			assert.False(t, rec.Resolved(), rec.UniqueID)
			assert.Nil(t, rec.Coordinates)
		}
		assert.InDelta(t, 1, testutil.ToFloat64(m.APIErrors), 0)
		assert.InDelta(t, 2, testutil.ToFloat64(m.GeocodeRequests.WithLabelValues("not_found")), 0)
		assert.InDelta(t, 1, testutil.ToFloat64(m.GeocodeRequests.WithLabelValues("invalid")), 0)
	})

	t.Run("address prefix is sent but not stored", func(t *testing.T) {
		provider := mocks.NewProvider(t)
		provider.On("Geocode", mock.Anything, "Kyiv, Khreshchatyk 1").
			Return(&models.Coordinates{Latitude: 50.45, Longitude: 30.52}, nil).Once()

		resolver := pipeline.NewResolver(logger, provider, "visicom", newTestMetrics(),
			pipeline.WithAddressPrefix("Kyiv, "))
		out, err := resolver.Resolve(t.Context(), []models.NormalizedRecord{{UniqueID: "1", Address: "Khreshchatyk 1"}})

		require.NoError(t, err)
		assert.Equal(t, "Khreshchatyk 1", out[0].Address)
	})

	t.Run("progress is reported after every row", func(t *testing.T) {
		provider := mocks.NewProvider(t)
		provider.On("Geocode", mock.Anything, mock.Anything).Return(nil, assert.AnError).Twice()

		var progress [][2]int
		resolver := pipeline.NewResolver(logger, provider, "here", newTestMetrics(),
			pipeline.WithProgress(func(done, total int) { progress = append(progress, [2]int{done, total}) }))
		_, err := resolver.Resolve(t.Context(), []models.NormalizedRecord{{Address: "a"}, {Address: "b"}})

		require.NoError(t, err)
		assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, progress)
	})

	t.Run("cancelled context stops the run", func(t *testing.T) {
		provider := mocks.NewProvider(t)
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		resolver := pipeline.NewResolver(logger, provider, "here", newTestMetrics())
		out, err := resolver.Resolve(ctx, []models.NormalizedRecord{{Address: "a"}})

		require.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, out)
	})
}

type unreachable struct{}

func (unreachable) RoundTrip(req *http.Request) (*http.Response, error) {
	return nil, errors.New("dial tcp: lookup " + req.URL.Hostname() + ": no such host")
}

func TestResolver_CredentialNeverLogged(t *testing.T) {
	const secret = "SECRET-KEY-123"
	offline := &http.Client{Transport: unreachable{}}
	unlimited := rate.NewLimiter(rate.Inf, 0)

	googleClient := mocks.NewGoogleAPIClient(t)
	googleClient.On("Geocode", mock.Anything, mock.Anything).Return(nil, &url.Error{
		Op:  "Get",
		URL: "https://maps.googleapis.com/maps/api/geocode/json?address=Paris&key=" + secret,
		Err: errors.New("dial tcp: lookup maps.googleapis.com: no such host"),
	}).Maybe()

	tests := []struct {
		name     string
		provider func(log *slog.Logger) geocoding.Provider
	}{
		{
			name: "here",
			provider: func(log *slog.Logger) geocoding.Provider {
				return geocoding.NewHereProviderWithClient(offline, secret, unlimited, log)
			},
		},
		{
			name: "visicom",
			provider: func(log *slog.Logger) geocoding.Provider {
				return geocoding.NewVisicomProviderWithClient(offline, secret, unlimited, log)
			},
		},
		{
			name: "google",
			provider: func(log *slog.Logger) geocoding.Provider {
				return geocoding.NewGoogleProvider(googleClient, log)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
			m := newTestMetrics()

			resolver := pipeline.NewResolver(log, tt.provider(log), tt.name, m)
			out, err := resolver.Resolve(t.Context(), []models.NormalizedRecord{{UniqueID: "1", Address: "Paris"}})

			require.NoError(t, err)
			require.Len(t, out, 1)
			assert.False(t, out[0].Resolved())
			assert.InDelta(t, 1, testutil.ToFloat64(m.APIErrors), 0)
			assert.Contains(t, buf.String(), "Failed to geocode")
			assert.Contains(t, buf.String(), "no such host")
			assert.NotContains(t, buf.String(), secret)
		})
	}
}
