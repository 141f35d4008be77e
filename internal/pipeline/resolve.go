package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/geoplot/internal/geocoding"
	"github.com/UnknownOlympus/geoplot/internal/metrics"
	"github.com/UnknownOlympus/geoplot/internal/models"
)

// ProgressFunc is called after every row with the number of rows done so far.
type ProgressFunc func(done, total int)

// Resolver sends each address to the provider exactly once, in input order.
// Failures are absorbed: the row is marked unresolved and the error is logged.
type Resolver struct {
	log           *slog.Logger
	provider      geocoding.Provider
	providerName  string
	metrics       *metrics.Metrics
	addressPrefix string
	onProgress    ProgressFunc
}

// ResolverOption customizes a Resolver.
type ResolverOption func(*Resolver)

// WithAddressPrefix prepends prefix to every address sent to the provider.
// The stored record keeps the unprefixed address.
func WithAddressPrefix(prefix string) ResolverOption {
	return func(r *Resolver) { r.addressPrefix = prefix }
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) ResolverOption {
	return func(r *Resolver) { r.onProgress = fn }
}

func NewResolver(
	log *slog.Logger,
	provider geocoding.Provider,
	providerName string,
	m *metrics.Metrics,
	opts ...ResolverOption,
) *Resolver {
	r := &Resolver{
		log:          log,
		provider:     provider,
		providerName: providerName,
		metrics:      m,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve geocodes the records sequentially. The output has one entry per input
// record in the same order. It only fails when ctx is done before all rows are sent.
func (r *Resolver) Resolve(ctx context.Context, records []models.NormalizedRecord) ([]models.GeocodedRecord, error) {
	out := make([]models.GeocodedRecord, len(records))
	total := len(records)

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("resolve stopped after %d of %d rows: %w", i, total, err)
		}

		out[i] = models.GeocodedRecord{NormalizedRecord: rec, Coordinates: r.resolveOne(ctx, rec)}

		if r.onProgress != nil {
			r.onProgress(i+1, total)
		}
	}

	return out, nil
}

func (r *Resolver) resolveOne(ctx context.Context, rec models.NormalizedRecord) *models.Coordinates {
	startTime := time.Now()
	coords, err := r.provider.Geocode(ctx, r.addressPrefix+rec.Address)
	r.metrics.RequestSeconds.WithLabelValues(r.providerName).Observe(time.Since(startTime).Seconds())

	switch {
	case errors.Is(err, geocoding.ErrEmptyResponse):
		r.log.InfoContext(ctx, "No match for address", "unique_id", rec.UniqueID, "address", rec.Address)
		r.metrics.GeocodeRequests.WithLabelValues("not_found").Inc()
		return nil
	case err != nil:
		r.log.ErrorContext(ctx, "Failed to geocode",
			"unique_id", rec.UniqueID,
			"address", rec.Address,
			"error", err,
		)
		r.metrics.GeocodeRequests.WithLabelValues("failure").Inc()
		r.metrics.APIErrors.Inc()
		return nil
	case coords == nil:
		r.metrics.GeocodeRequests.WithLabelValues("not_found").Inc()
		return nil
	case !coords.Valid():
		r.log.WarnContext(ctx, "Provider returned coordinates out of range",
			"unique_id", rec.UniqueID,
			"lat", coords.Latitude,
			"lon", coords.Longitude,
		)
		r.metrics.GeocodeRequests.WithLabelValues("invalid").Inc()
		return nil
	}

	r.metrics.GeocodeRequests.WithLabelValues("success").Inc()

	return coords
}
