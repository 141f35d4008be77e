package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/geoplot/internal/geocoding"
	"github.com/UnknownOlympus/geoplot/internal/metrics"
	"github.com/UnknownOlympus/geoplot/internal/models"
	"github.com/UnknownOlympus/geoplot/internal/pipeline"
	"github.com/UnknownOlympus/geoplot/internal/repository"
	"github.com/google/uuid"
)

// ProviderFactory builds a provider bound to one credential.
type ProviderFactory func(config geocoding.ProviderConfig) (geocoding.Provider, error)

// Sweeper drops state that has been idle since before cutoff and reports how much it dropped.
type Sweeper interface {
	Sweep(ctx context.Context, cutoff time.Time) int
}

// Options configures a GeocodingService.
type Options struct {
	ProviderType  geocoding.ProviderType
	RateLimit     int
	Region        string
	AddressPrefix string
	SessionTTL    time.Duration
	Interval      time.Duration
}

// GeocodingService runs the pipeline once per request, caches the resulting Run
// and periodically evicts expired runs and sessions.
type GeocodingService struct {
	log         *slog.Logger         // Logger for logging service activities
	repo        repository.Interface // Run cache
	metrics     *metrics.Metrics     // Metrics for tracking service performance
	opts        Options
	newProvider ProviderFactory
	sweepers    []Sweeper
	now         func() time.Time
}

// NewGeocodingService creates a new instance of GeocodingService.
func NewGeocodingService(
	log *slog.Logger,
	repo repository.Interface,
	metrics *metrics.Metrics,
	opts Options,
) *GeocodingService {
	return &GeocodingService{
		log:         log,
		repo:        repo,
		metrics:     metrics,
		opts:        opts,
		newProvider: geocoding.NewProvider,
		now:         time.Now,
	}
}

// AddSweeper registers state the janitor should expire along with cached runs.
func (gs *GeocodingService) AddSweeper(s Sweeper) {
	gs.sweepers = append(gs.sweepers, s)
}

// Geocode runs decode, validation, normalization, resolution and aggregation
// once over the upload and stores the result as a new Run.
func (gs *GeocodingService) Geocode(ctx context.Context, req models.GeocodeRequest) (*models.Run, error) {
	gs.metrics.ActiveRuns.Inc()
	defer gs.metrics.ActiveRuns.Dec()

	provider, err := gs.newProvider(geocoding.ProviderConfig{
		Type:      gs.opts.ProviderType,
		APIKey:    req.Credential,
		RateLimit: gs.opts.RateLimit,
		Region:    gs.opts.Region,
		Logger:    gs.log,
	})
	if err != nil {
		gs.metrics.Runs.WithLabelValues(metrics.OutcomeFailure).Inc()
		gs.log.WarnContext(ctx, "Failed to create geocoding provider", "type", gs.opts.ProviderType, "error", err)
		return nil, err
	}

	resolverOpts := []pipeline.ResolverOption{pipeline.WithAddressPrefix(gs.opts.AddressPrefix)}
	if req.OnProgress != nil {
		resolverOpts = append(resolverOpts, pipeline.WithProgress(req.OnProgress))
	}
	resolver := pipeline.NewResolver(gs.log, provider, string(gs.opts.ProviderType), gs.metrics, resolverOpts...)

	result, err := pipeline.New(gs.log, resolver).Run(ctx, req.Raw, req.Filename, req.Encoding)
	if err != nil {
		gs.metrics.Runs.WithLabelValues(outcome(err)).Inc()
		return nil, err
	}

	run := models.Run{
		ID:        uuid.NewString(),
		Filename:  req.Filename,
		Layout:    result.Layout,
		Results:   result.Results,
		CreatedAt: gs.now(),
	}
	if err = gs.repo.SaveRun(ctx, run); err != nil {
		// The run is still returned so the caller can show it; only later lookups by ID fail.
		gs.log.ErrorContext(ctx, "Failed to cache run", "run", run.ID, "error", err)
	}

	gs.metrics.Runs.WithLabelValues(metrics.OutcomeSuccess).Inc()
	gs.log.InfoContext(ctx, "Run completed", "run", run.ID, "count", run.Results.Count())

	return &run, nil
}

// GetRun returns a cached run.
func (gs *GeocodingService) GetRun(ctx context.Context, id string) (*models.Run, error) {
	return gs.repo.GetRun(ctx, id)
}

// Run starts the janitor, which periodically evicts runs and sessions older than the session TTL.
// It listens for a cancellation signal from the context to gracefully stop the service.
func (gs *GeocodingService) Run(ctx context.Context) {
	ticker := time.NewTicker(gs.opts.Interval)
	defer ticker.Stop()

	gs.log.InfoContext(ctx, "Janitor started...", "interval", gs.opts.Interval, "ttl", gs.opts.SessionTTL)

	for {
		select {
		case <-ctx.Done():
			gs.log.InfoContext(ctx, "Janitor stopped.")
			return
		case <-ticker.C:
			gs.sweep(ctx)
		}
	}
}

func (gs *GeocodingService) sweep(ctx context.Context) {
	cutoff := gs.now().Add(-gs.opts.SessionTTL)

	deleted, err := gs.repo.DeleteRunsBefore(ctx, cutoff)
	if err != nil {
		gs.log.ErrorContext(ctx, "Failed to evict expired runs", "error", err)
	} else if deleted > 0 {
		gs.metrics.RunsEvicted.Add(float64(deleted))
		gs.log.InfoContext(ctx, "Evicted expired runs", "count", deleted)
	}

	for _, s := range gs.sweepers {
		if n := s.Sweep(ctx, cutoff); n > 0 {
			gs.log.InfoContext(ctx, "Evicted idle sessions", "count", n)
		}
	}
}

func outcome(err error) string {
	switch {
	case errors.Is(err, pipeline.ErrDecode):
		return metrics.OutcomeDecodeError
	case errors.Is(err, pipeline.ErrSchema):
		return metrics.OutcomeSchemaError
	case errors.Is(err, pipeline.ErrEmptyResult):
		return metrics.OutcomeEmptyResult
	default:
		return metrics.OutcomeFailure
	}
}
