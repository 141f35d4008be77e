//go:build integration

package repository_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/UnknownOlympus/geoplot/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRepository_Postgres(t *testing.T) {
	ctx := t.Context()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("geoplot"),
		postgres.WithUsername("geoplot"),
		postgres.WithPassword("geoplot"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	repo := repository.NewRepository(pool, slog.Default())
	require.NoError(t, repo.EnsureSchema(ctx))

	run := testRun()
	require.NoError(t, repo.SaveRun(ctx, run))
	require.NoError(t, repo.SaveRun(ctx, run), "saving twice replaces the row")

	got, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Results, got.Results)
	assert.Equal(t, run.Layout, got.Layout)
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))

	n, err := repo.DeleteRunsBefore(ctx, run.CreatedAt.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.GetRun(ctx, run.ID)
	require.ErrorIs(t, err, repository.ErrRunNotFound)
}
