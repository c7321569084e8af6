package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/issuesync/internal/core/domain"
)

func TestSchedulerStore_Tasks(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	tasks := store.SchedulerStore()
	ran := time.Date(2024, 3, 10, 12, 0, 0, 123456789, time.UTC)

	t.Run("unknown task", func(t *testing.T) {
		task, err := tasks.GetTask(ctx, domain.TaskIDSync)
		require.NoError(t, err)
		assert.Nil(t, task)

		list, err := tasks.ListTasks(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("round trip keeps sub-second instants", func(t *testing.T) {
		want := domain.ScheduledTask{
			ID:          domain.TaskIDSync,
			Name:        "Issue Sync",
			Interval:    45 * time.Minute,
			Enabled:     true,
			LastRun:     ran,
			NextRun:     ran.Add(45 * time.Minute),
			LastSuccess: ran.Add(time.Minute),
		}
		require.NoError(t, tasks.SaveTask(ctx, &want))

		got, err := tasks.GetTask(ctx, domain.TaskIDSync)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, want, *got)
	})

	t.Run("save replaces", func(t *testing.T) {
		require.NoError(t, tasks.SaveTask(ctx, &domain.ScheduledTask{
			ID:        domain.TaskIDSync,
			Name:      "Issue Sync",
			Interval:  time.Hour,
			LastError: "rate limited",
		}))

		got, err := tasks.GetTask(ctx, domain.TaskIDSync)
		require.NoError(t, err)
		assert.Equal(t, time.Hour, got.Interval)
		assert.False(t, got.Enabled)
		assert.Equal(t, "rate limited", got.LastError)
		assert.True(t, got.LastRun.IsZero())
	})

	t.Run("list is ordered by id", func(t *testing.T) {
		require.NoError(t, tasks.SaveTask(ctx, &domain.ScheduledTask{ID: domain.TaskIDReconcile, Name: "Reconciliation Sweep", Interval: 24 * time.Hour}))

		list, err := tasks.ListTasks(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, domain.TaskIDSync, list[0].ID)
		assert.Equal(t, domain.TaskIDReconcile, list[1].ID)
	})

	t.Run("invalid input", func(t *testing.T) {
		assert.ErrorIs(t, tasks.SaveTask(ctx, nil), domain.ErrInvalidInput)
		assert.ErrorIs(t, tasks.SaveTask(ctx, &domain.ScheduledTask{}), domain.ErrInvalidInput)
		assert.ErrorIs(t, tasks.RecordResult(ctx, nil), domain.ErrInvalidInput)
	})
}

func TestSchedulerStore_History(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	tasks := store.SchedulerStore()
	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		r := domain.TaskResult{
			TaskID:         domain.TaskIDSync,
			StartedAt:      base.Add(time.Duration(i) * time.Hour),
			EndedAt:        base.Add(time.Duration(i)*time.Hour + time.Minute),
			Success:        i%2 == 0,
			ItemsProcessed: i,
		}
		if !r.Success {
			r.Error = "boom"
		}
		require.NoError(t, tasks.RecordResult(ctx, &r))
	}
	require.NoError(t, tasks.RecordResult(ctx, &domain.TaskResult{
		TaskID: domain.TaskIDReconcile, StartedAt: base, EndedAt: base, Success: true,
	}))

	t.Run("newest first with limit", func(t *testing.T) {
		history, err := tasks.GetTaskHistory(ctx, domain.TaskIDSync, 2)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, 4, history[0].ItemsProcessed)
		assert.True(t, history[0].Success)
		assert.Equal(t, 3, history[1].ItemsProcessed)
		assert.Equal(t, "boom", history[1].Error)
		assert.Equal(t, base.Add(3*time.Hour), history[1].StartedAt)
		assert.Equal(t, base.Add(3*time.Hour+time.Minute), history[1].EndedAt)
	})

	t.Run("zero limit returns all", func(t *testing.T) {
		history, err := tasks.GetTaskHistory(ctx, domain.TaskIDSync, 0)
		require.NoError(t, err)
		assert.Len(t, history, 5)
	})

	t.Run("prune keeps the newest per task", func(t *testing.T) {
		require.NoError(t, tasks.PruneHistory(ctx, 2))

		history, err := tasks.GetTaskHistory(ctx, domain.TaskIDSync, 0)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, 4, history[0].ItemsProcessed)
		assert.Equal(t, 3, history[1].ItemsProcessed)

		history, err = tasks.GetTaskHistory(ctx, domain.TaskIDReconcile, 0)
		require.NoError(t, err)
		assert.Len(t, history, 1)
	})

	t.Run("unknown task", func(t *testing.T) {
		history, err := tasks.GetTaskHistory(ctx, "unknown", 10)
		require.NoError(t, err)
		assert.Empty(t, history)
	})
}

func TestNullString(t *testing.T) {
	assert.Nil(t, nullString(""))
	assert.Equal(t, "x", nullString("x"))
}
