package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/issuesync/internal/core/domain"
	"github.com/custodia-labs/issuesync/internal/core/ports/driven"
	"github.com/custodia-labs/issuesync/internal/core/ports/driving"
)

// Ensure WatermarkService implements the interface.
var _ driving.WatermarkService = (*WatermarkService)(nil)

// WatermarkService exposes stored sync progress.
type WatermarkService struct {
	store driven.WatermarkStore
}

// NewWatermarkService creates a new watermark service.
func NewWatermarkService(store driven.WatermarkStore) *WatermarkService {
	return &WatermarkService{store: store}
}

// Watermarks lists every watermark of repo.
func (s *WatermarkService) Watermarks(ctx context.Context, repo domain.Repository) ([]domain.Watermark, error) {
	wms, err := s.store.List(ctx, repo.Owner, repo.Name)
	if err != nil {
		return nil, fmt.Errorf("list watermarks %s: %w", repo, err)
	}
	return wms, nil
}
