package driven

import (
	"context"

	"github.com/custodia-labs/issuesync/internal/core/domain"
)

// WatermarkStore persists sync progress.
type WatermarkStore interface {
	// Get retrieves the watermark for key.
	// Returns domain.ErrNotFound if none was saved yet.
	Get(ctx context.Context, key domain.WatermarkKey) (*domain.Watermark, error)

	// Save stores or updates a watermark. LastRun never moves backwards:
	// the stored value is merged with Watermark.Merge.
	Save(ctx context.Context, wm domain.Watermark) error

	// List returns every watermark of one repository, repository-level key
	// first and pages in ascending order.
	List(ctx context.Context, owner, repo string) ([]domain.Watermark, error)
}
