package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Household-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
	"github.com/ndewijer/Household-Ledger-Backend/internal/repository"
	"github.com/ndewijer/Household-Ledger-Backend/internal/testutil"
)

// TestRunRepository tests recording and listing pipeline runs.
//
// WHY: The operator API and the scheduler rely on the run log to report the
// outcome of runs and to detect runs interrupted by a restart.
func TestRunRepository(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewRunRepository(db)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 3, 0, 0, 0, time.UTC)

	failed := testutil.NewRun(base).Failed("continuity", "unregistered identifier").Build(t, db)
	succeeded := testutil.NewRun(base.Add(time.Hour)).Succeeded("2024-02-29").Build(t, db)
	running := testutil.NewRun(base.Add(2 * time.Hour)).Build(t, db)

	t.Run("get returns the stored run", func(t *testing.T) {
		got, err := repo.Get(ctx, failed.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusFailed, got.Status)
		assert.Equal(t, "continuity", got.Stage)
		assert.Equal(t, "unregistered identifier", got.Error)
		require.NotNil(t, got.FinishedAt)
		assert.True(t, got.StartedAt.Equal(base))
		assert.Empty(t, got.LatestDate)

		got, err = repo.Get(ctx, succeeded.ID)
		require.NoError(t, err)
		assert.Equal(t, "2024-02-29", got.LatestDate)
	})

	t.Run("get unknown run", func(t *testing.T) {
		_, err := repo.Get(ctx, testutil.MakeID())
		assert.ErrorIs(t, err, apperrors.ErrRunNotFound)
	})

	t.Run("finish unknown run", func(t *testing.T) {
		run := model.PipelineRun{ID: testutil.MakeID(), Status: model.RunStatusSucceeded}
		assert.ErrorIs(t, repo.Finish(ctx, &run), apperrors.ErrRunNotFound)
	})

	t.Run("list is newest first and limited", func(t *testing.T) {
		runs, err := repo.List(ctx, 2)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, running.ID, runs[0].ID)
		assert.Equal(t, succeeded.ID, runs[1].ID)
	})

	t.Run("fail interrupted marks only running runs", func(t *testing.T) {
		n, err := repo.FailInterrupted(ctx, base.Add(3*time.Hour))
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		got, err := repo.Get(ctx, running.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusFailed, got.Status)
		assert.Equal(t, "interrupted", got.Error)

		got, err = repo.Get(ctx, succeeded.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusSucceeded, got.Status)
	})
}
