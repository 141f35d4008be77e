package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/geoplot/internal/models"
	"github.com/jackc/pgx/v5"
)

// Repository stores runs in PostgreSQL. The result set is kept as jsonb.
type Repository struct {
	db  Database
	log *slog.Logger
}

// NewRepository creates a new instance of Repository with the provided Database.
// It returns a pointer to the newly created Repository.
func NewRepository(db Database, log *slog.Logger) *Repository {
	return &Repository{db: db, log: log}
}

// EnsureSchema creates the runs table when it does not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS geoplot_runs (
			run_id     TEXT PRIMARY KEY,
			filename   TEXT NOT NULL,
			layout     TEXT NOT NULL,
			results    JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
	`

	if _, err := r.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}

	return nil
}

// SaveRun inserts the run, replacing a previous row with the same ID.
func (r *Repository) SaveRun(ctx context.Context, run models.Run) error {
	query := `
		INSERT INTO geoplot_runs (run_id, filename, layout, results, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id) DO UPDATE
		SET filename = EXCLUDED.filename,
			layout = EXCLUDED.layout,
			results = EXCLUDED.results,
			created_at = EXCLUDED.created_at;
	`

	payload, err := json.Marshal(run.Results)
	if err != nil {
		return fmt.Errorf("failed to encode run results: %w", err)
	}

	_, err = r.db.Exec(ctx, query, run.ID, run.Filename, run.Layout.String(), payload, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	r.log.DebugContext(ctx, "Run saved", "run", run.ID, "count", run.Results.Count())

	return nil
}

// GetRun loads a run by ID. It returns ErrRunNotFound when there is none.
func (r *Repository) GetRun(ctx context.Context, id string) (*models.Run, error) {
	query := `
		SELECT run_id, filename, layout, results, created_at
		FROM geoplot_runs
		WHERE run_id = $1;
	`

	var (
		run     models.Run
		layout  string
		payload []byte
	)
	err := r.db.QueryRow(ctx, query, id).Scan(&run.ID, &run.Filename, &layout, &payload, &run.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	if err = json.Unmarshal(payload, &run.Results); err != nil {
		return nil, fmt.Errorf("failed to decode run results: %w", err)
	}
	run.Layout = models.ParseLayout(layout)

	return &run, nil
}

// DeleteRunsBefore removes runs created before cutoff and returns how many were deleted.
func (r *Repository) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM geoplot_runs
		WHERE created_at < $1;
	`

	tag, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired runs: %w", err)
	}

	return tag.RowsAffected(), nil
}
