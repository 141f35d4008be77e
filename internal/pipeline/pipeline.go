// Package pipeline turns an uploaded address file into a set of resolved map points:
// decode, validate the layout, normalize addresses, geocode each row once and
// keep the rows that resolved.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/UnknownOlympus/geoplot/internal/models"
)

// Result is the outcome of one successful pass.
type Result struct {
	Layout  models.Layout
	Rows    int
	Results models.ResultSet
}

// Pipeline runs the stages in order. It keeps no state between runs.
type Pipeline struct {
	log      *slog.Logger
	resolver *Resolver
}

func New(log *slog.Logger, resolver *Resolver) *Pipeline {
	return &Pipeline{log: log, resolver: resolver}
}

// Prepare runs every stage that does not talk to the provider.
func Prepare(raw []byte, filename, encoding string) (models.Layout, []models.NormalizedRecord, error) {
	table, err := Decode(raw, filename, encoding)
	if err != nil {
		return models.LayoutUnknown, nil, err
	}

	layout, err := DetectLayout(table.Header)
	if err != nil {
		return models.LayoutUnknown, nil, err
	}

	records, err := Records(table, layout)
	if err != nil {
		return models.LayoutUnknown, nil, err
	}

	return layout, Normalize(records), nil
}

// Run executes the whole pipeline over one upload.
func (p *Pipeline) Run(ctx context.Context, raw []byte, filename, encoding string) (*Result, error) {
	layout, normalized, err := Prepare(raw, filename, encoding)
	if err != nil {
		p.log.WarnContext(ctx, "Upload rejected", "filename", filename, "error", err)
		return nil, err
	}

	p.log.InfoContext(ctx, "Geocoding upload", "filename", filename, "layout", layout.String(), "rows", len(normalized))

	geocoded, err := p.resolver.Resolve(ctx, normalized)
	if err != nil {
		return nil, err
	}

	results, err := Aggregate(geocoded)
	if err != nil {
		p.log.WarnContext(ctx, "No address resolved", "filename", filename, "rows", len(normalized))
		return nil, err
	}

	p.log.InfoContext(ctx, "Geocoding finished", "filename", filename, "resolved", results.Count(), "rows", len(normalized))

	return &Result{Layout: layout, Rows: len(normalized), Results: results}, nil
}
