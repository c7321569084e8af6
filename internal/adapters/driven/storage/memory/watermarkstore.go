package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/issuesync/internal/core/domain"
	"github.com/custodia-labs/issuesync/internal/core/ports/driven"
)

// Ensure WatermarkStore implements the interface.
var _ driven.WatermarkStore = (*WatermarkStore)(nil)

// WatermarkStore is an in-memory implementation of driven.WatermarkStore.
type WatermarkStore struct {
	mu         sync.RWMutex
	watermarks map[domain.WatermarkKey]domain.Watermark
}

// NewWatermarkStore creates a new in-memory watermark store.
func NewWatermarkStore() *WatermarkStore {
	return &WatermarkStore{
		watermarks: make(map[domain.WatermarkKey]domain.Watermark),
	}
}

// Save stores or updates a watermark.
func (s *WatermarkStore) Save(_ context.Context, wm domain.Watermark) error {
	if wm.UpdatedAt.IsZero() {
		wm.UpdatedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.watermarks[wm.Key]; ok {
		wm = prev.Merge(wm)
	}
	s.watermarks[wm.Key] = wm
	return nil
}

// Get retrieves the watermark for key.
func (s *WatermarkStore) Get(_ context.Context, key domain.WatermarkKey) (*domain.Watermark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wm, ok := s.watermarks[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &wm, nil
}

// List returns every watermark of a repository ordered by page.
func (s *WatermarkStore) List(_ context.Context, owner, repo string) ([]domain.Watermark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Watermark
	for key, wm := range s.watermarks {
		if key.Owner == owner && key.Repo == repo {
			out = append(out, wm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.Page < out[j].Key.Page })
	return out, nil
}
