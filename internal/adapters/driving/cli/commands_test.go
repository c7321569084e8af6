package cli

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/issuesync/internal/core/domain"
)

var (
	widgets = domain.Repository{Owner: "acme", Name: "widgets"}
	gadgets = domain.Repository{Owner: "acme", Name: "gadgets", Private: true}
)

func TestSyncCmd(t *testing.T) {
	report := &domain.RunReport{Results: []domain.RepoResult{
		{Repo: widgets, Pages: 3, Unchanged: 1, Documents: 40, FailedItems: 2},
		{Repo: gadgets, Pages: 1, Documents: 7},
	}}

	t.Run("all repositories", func(t *testing.T) {
		orch := &mockSyncOrchestrator{report: report}
		out, err := execute(t, &Services{Sync: orch}, "sync")
		require.NoError(t, err)

		assert.True(t, orch.all)
		assert.Contains(t, out, "Synchronising all repositories...")
		assert.Contains(t, out, "acme/widgets")
		assert.Contains(t, out, "3 pages (1 unchanged), 40 documents, 2 rejected")
		assert.Contains(t, out, "Synchronised 47 documents.")
	})

	t.Run("named repositories keep configured visibility", func(t *testing.T) {
		orch := &mockSyncOrchestrator{report: &domain.RunReport{}}
		svc := &Services{Sync: orch, Configured: []domain.Repository{gadgets}}

		out, err := execute(t, svc, "sync", "acme/gadgets", "acme/widgets")
		require.NoError(t, err)

		assert.False(t, orch.all)
		assert.Contains(t, out, "Synchronising 2 repositories...")
		require.Len(t, orch.synced, 2)
		assert.Equal(t, gadgets, orch.synced[0])
		assert.Equal(t, domain.Repository{Owner: "acme", Name: "widgets", Unresolved: true}, orch.synced[1])
	})

	t.Run("invalid repository argument", func(t *testing.T) {
		orch := &mockSyncOrchestrator{report: &domain.RunReport{}}
		_, err := execute(t, &Services{Sync: orch}, "sync", "widgets")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Nil(t, orch.synced)
	})

	t.Run("failed repository", func(t *testing.T) {
		repoErr := &domain.RepoError{Owner: "acme", Repo: "widgets", Page: 2, Err: domain.ErrIndexUnavailable}
		failed := &domain.RunReport{Results: []domain.RepoResult{{Repo: widgets, Err: repoErr}}}
		orch := &mockSyncOrchestrator{report: failed, err: failed.Err()}

		out, err := execute(t, &Services{Sync: orch}, "sync")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
		assert.Contains(t, err.Error(), "sync failed")
		assert.Contains(t, out, "FAILED:")
	})

	t.Run("not configured", func(t *testing.T) {
		_, err := execute(t, &Services{}, "sync")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sync service not configured")
	})
}

func TestReconcileCmd(t *testing.T) {
	t.Run("prints the sweep summary", func(t *testing.T) {
		rec := &mockReconciler{report: domain.ReconcileReport{Candidates: 5, Transferred: 2, Unchanged: 2, Failed: 1}}
		out, err := execute(t, &Services{Reconciler: rec}, "reconcile")
		require.NoError(t, err)
		assert.Contains(t, out, "Reviewed 5 stale documents: 2 transferred, 2 unchanged, 1 failed.")
	})

	t.Run("error still prints partial counts", func(t *testing.T) {
		rec := &mockReconciler{
			report: domain.ReconcileReport{Candidates: 1, Unchanged: 1},
			err:    domain.ErrIndexUnavailable,
		}
		out, err := execute(t, &Services{Reconciler: rec}, "reconcile")
		assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
		assert.Contains(t, out, "Reviewed 1 stale documents")
	})

	t.Run("not configured", func(t *testing.T) {
		_, err := execute(t, &Services{}, "reconcile")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reconciler not configured")
	})
}

func TestWatermarksCmd(t *testing.T) {
	t.Run("renders a table", func(t *testing.T) {
		lastRun := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
		wms := &mockWatermarkService{wms: []domain.Watermark{
			{Key: domain.RepoKey("acme", "widgets"), LastRun: lastRun, UpdatedAt: lastRun},
			{Key: domain.PageKey("acme", "widgets", 1), ETag: `"abc"`, NextCursor: "2", UpdatedAt: lastRun},
		}}

		out, err := execute(t, &Services{Watermarks: wms}, "watermarks", "acme/widgets")
		require.NoError(t, err)

		assert.Equal(t, widgets, wms.repo)
		assert.Contains(t, out, "KEY")
		assert.Contains(t, out, "NEXT CURSOR")
		assert.Contains(t, out, "2024-03-10T12:00:00Z")
		assert.Contains(t, out, `"abc"`)
	})

	t.Run("empty", func(t *testing.T) {
		out, err := execute(t, &Services{Watermarks: &mockWatermarkService{}}, "watermarks", "acme/widgets")
		require.NoError(t, err)
		assert.Contains(t, out, "No watermarks stored for acme/widgets.")
	})

	t.Run("requires one repository", func(t *testing.T) {
		_, err := execute(t, &Services{Watermarks: &mockWatermarkService{}}, "watermarks")
		assert.Error(t, err)
	})

	t.Run("invalid repository", func(t *testing.T) {
		_, err := execute(t, &Services{Watermarks: &mockWatermarkService{}}, "watermarks", "acme")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "-", formatTime(time.Time{}))
	assert.Equal(t, "-", dash(""))
	assert.Equal(t, "x", dash("x"))
}

func TestReposCmd(t *testing.T) {
	t.Run("lists visibility", func(t *testing.T) {
		repos := &mockRepositoryService{accessible: []domain.Repository{widgets, gadgets}}
		out, err := execute(t, &Services{Repos: repos}, "repos")
		require.NoError(t, err)
		assert.Regexp(t, `acme/widgets\s+public`, out)
		assert.Regexp(t, `acme/gadgets\s+private`, out)
	})

	t.Run("none", func(t *testing.T) {
		out, err := execute(t, &Services{Repos: &mockRepositoryService{}}, "repos")
		require.NoError(t, err)
		assert.Contains(t, out, "No repositories found.")
	})
}

func TestServeCmd(t *testing.T) {
	t.Run("cancellation stops cleanly", func(t *testing.T) {
		sched := &mockScheduler{startErr: context.Canceled}
		out, err := execute(t, &Services{Scheduler: sched}, "serve")
		require.NoError(t, err)
		assert.True(t, sched.stopped)
		assert.Contains(t, out, "Scheduler stopped.")
	})

	t.Run("start failure", func(t *testing.T) {
		sched := &mockScheduler{startErr: errors.New("load tasks")}
		_, err := execute(t, &Services{Scheduler: sched}, "serve")
		assert.EqualError(t, err, "load tasks")
		assert.True(t, sched.stopped)
	})

	t.Run("not configured", func(t *testing.T) {
		_, err := execute(t, &Services{}, "serve")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "scheduler not configured")
	})
}
