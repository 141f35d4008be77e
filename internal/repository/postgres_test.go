package repository_test

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/UnknownOlympus/geoplot/internal/models"
	"github.com/UnknownOlympus/geoplot/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	saveRunQuery = `
		INSERT INTO geoplot_runs (run_id, filename, layout, results, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id) DO UPDATE
	`
	getRunQuery = `
		SELECT run_id, filename, layout, results, created_at
		FROM geoplot_runs
		WHERE run_id = $1;
	`
	deleteRunsQuery = `
		DELETE FROM geoplot_runs
		WHERE created_at < $1;
	`
)

func testRun() models.Run {
	return models.Run{
		ID:       "5f0c3a5e-0d36-4c61-9f5e-8d7f0e0b7a11",
		Filename: "addresses.csv",
		Layout:   models.LayoutAddress,
		Results: models.ResultSet{Records: []models.GeocodedRecord{{
			NormalizedRecord: models.NormalizedRecord{
				UniqueID: "1",
				Address:  "1600 Amphitheatre Parkway, Mountain View, CA",
			},
			Coordinates: &models.Coordinates{Latitude: 37.422, Longitude: -122.084},
		}}},
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSaveRun(t *testing.T) {
	t.Parallel()
	logger := slog.Default()
	ctx := t.Context()
	run := testRun()
	payload, err := json.Marshal(run.Results)
	require.NoError(t, err)

	t.Run("error - exec", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectExec(regexp.QuoteMeta(saveRunQuery)).
			WithArgs(run.ID, run.Filename, "address", payload, run.CreatedAt).
			WillReturnError(assert.AnError)

		err = repo.SaveRun(ctx, run)

		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to save run")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectExec(regexp.QuoteMeta(saveRunQuery)).
			WithArgs(run.ID, run.Filename, "address", payload, run.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.SaveRun(ctx, run))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetRun(t *testing.T) {
	t.Parallel()
	logger := slog.Default()
	ctx := t.Context()
	run := testRun()
	columns := []string{"run_id", "filename", "layout", "results", "created_at"}

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(getRunQuery)).WithArgs("missing").WillReturnError(pgx.ErrNoRows)

		got, err := repo.GetRun(ctx, "missing")

		require.Nil(t, got)
		require.ErrorIs(t, err, repository.ErrRunNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - query", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(getRunQuery)).WithArgs(run.ID).WillReturnError(assert.AnError)

		_, err = repo.GetRun(ctx, run.ID)

		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to query run")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - corrupt results", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(getRunQuery)).WithArgs(run.ID).WillReturnRows(
			pgxmock.NewRows(columns).AddRow(run.ID, run.Filename, "address", []byte("{"), run.CreatedAt),
		)

		_, err = repo.GetRun(ctx, run.ID)

		require.ErrorContains(t, err, "failed to decode run results")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)
		payload, err := json.Marshal(run.Results)
		require.NoError(t, err)

		mock.ExpectQuery(regexp.QuoteMeta(getRunQuery)).WithArgs(run.ID).WillReturnRows(
			pgxmock.NewRows(columns).AddRow(run.ID, run.Filename, "address", payload, run.CreatedAt),
		)

		got, err := repo.GetRun(ctx, run.ID)

		require.NoError(t, err)
		assert.Equal(t, run, *got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDeleteRunsBefore(t *testing.T) {
	t.Parallel()
	logger := slog.Default()
	ctx := t.Context()
	cutoff := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("error - exec", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectExec(regexp.QuoteMeta(deleteRunsQuery)).WithArgs(cutoff).WillReturnError(assert.AnError)

		n, err := repo.DeleteRunsBefore(ctx, cutoff)

		require.ErrorIs(t, err, assert.AnError)
		assert.Zero(t, n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectExec(regexp.QuoteMeta(deleteRunsQuery)).WithArgs(cutoff).
			WillReturnResult(pgxmock.NewResult("DELETE", 3))

		n, err := repo.DeleteRunsBefore(ctx, cutoff)

		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEnsureSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := repository.NewRepository(mock, slog.Default())

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS geoplot_runs")).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, repo.EnsureSchema(t.Context()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
