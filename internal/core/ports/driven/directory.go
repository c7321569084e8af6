package driven

import (
	"context"

	"github.com/custodia-labs/issuesync/internal/core/domain"
)

// RepositoryDirectory answers questions about repositories themselves.
type RepositoryDirectory interface {
	// Repositories lists the repositories the credentials can read issues
	// from.
	Repositories(ctx context.Context) ([]domain.Repository, error)

	// Visibility returns repo with Private set from the source.
	Visibility(ctx context.Context, repo domain.Repository) (domain.Repository, error)
}
