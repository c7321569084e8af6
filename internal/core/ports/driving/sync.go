package driving

import (
	"context"

	"github.com/custodia-labs/issuesync/internal/core/domain"
)

// SyncOrchestrator coordinates issue synchronisation into the index.
type SyncOrchestrator interface {
	// SyncAll synchronises every configured repository. All repositories
	// are attempted; the report carries each outcome and the error joins
	// every failed repository's error.
	SyncAll(ctx context.Context) (*domain.RunReport, error)

	// Sync synchronises the given repositories only.
	Sync(ctx context.Context, repos []domain.Repository) (*domain.RunReport, error)

	// SyncRepo synchronises one repository.
	SyncRepo(ctx context.Context, repo domain.Repository) domain.RepoResult
}

// Reconciler corrects documents whose issue left its recorded location.
type Reconciler interface {
	// Sweep reviews one batch of stale open documents in every namespace.
	Sweep(ctx context.Context) (domain.ReconcileReport, error)
}

// WatermarkService exposes stored sync progress to operators.
type WatermarkService interface {
	// Watermarks lists every watermark of one repository.
	Watermarks(ctx context.Context, repo domain.Repository) ([]domain.Watermark, error)
}

// RepositoryService lists sync targets.
type RepositoryService interface {
	// Accessible lists the repositories the credentials can read.
	Accessible(ctx context.Context) ([]domain.Repository, error)
}
