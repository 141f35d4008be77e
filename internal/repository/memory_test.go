package repository_test

import (
	"testing"
	"time"

	"github.com/UnknownOlympus/geoplot/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository(t *testing.T) {
	ctx := t.Context()
	repo := repository.NewMemoryRepository()
	run := testRun()

	_, err := repo.GetRun(ctx, run.ID)
	require.ErrorIs(t, err, repository.ErrRunNotFound)

	require.NoError(t, repo.SaveRun(ctx, run))

	got, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run, *got)

	n, err := repo.DeleteRunsBefore(ctx, run.CreatedAt)
	require.NoError(t, err)
	assert.Zero(t, n, "cutoff is exclusive")

	n, err = repo.DeleteRunsBefore(ctx, run.CreatedAt.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.GetRun(ctx, run.ID)
	require.ErrorIs(t, err, repository.ErrRunNotFound)
}
