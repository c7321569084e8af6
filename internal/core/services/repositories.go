package services

import (
	"context"

	"github.com/custodia-labs/issuesync/internal/core/domain"
	"github.com/custodia-labs/issuesync/internal/core/ports/driven"
	"github.com/custodia-labs/issuesync/internal/core/ports/driving"
)

// Ensure RepositoryService implements the interface.
var _ driving.RepositoryService = (*RepositoryService)(nil)

// RepositoryService lists the repositories the credentials can read.
type RepositoryService struct {
	dir driven.RepositoryDirectory
}

// NewRepositoryService creates a new repository service.
func NewRepositoryService(dir driven.RepositoryDirectory) *RepositoryService {
	return &RepositoryService{dir: dir}
}

// Accessible lists the repositories the credentials can read.
func (s *RepositoryService) Accessible(ctx context.Context) ([]domain.Repository, error) {
	return s.dir.Repositories(ctx)
}
