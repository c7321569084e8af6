package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/custodia-labs/issuesync/internal/core/domain"
	"github.com/custodia-labs/issuesync/internal/core/ports/driven"
)

// CommitResult is the outcome of committing one page.
type CommitResult struct {
	// Written counts documents the index accepted.
	Written int

	// Failed lists the documents the index rejected.
	Failed []domain.ItemResult

	// WatermarkSaved is set when the page's watermark was persisted.
	WatermarkSaved bool
}

// BulkWriter commits a page of documents to the index and then persists
// the page's watermark.
type BulkWriter struct {
	index driven.DocumentIndex
	store driven.WatermarkStore
}

// NewBulkWriter creates a bulk writer.
func NewBulkWriter(index driven.DocumentIndex, store driven.WatermarkStore) *BulkWriter {
	return &BulkWriter{index: index, store: store}
}

// Commit writes docs in one bulk request and saves wm afterwards.
//
// An empty page makes no index call. Items rejected by the index are
// logged and counted but do not hold the watermark back. A failure of the
// request as a whole is returned and the watermark is left untouched.
func (w *BulkWriter) Commit(
	ctx context.Context,
	repo domain.Repository,
	page int,
	docs []domain.Document,
	wm *domain.Watermark,
) (CommitResult, error) {
	var result CommitResult

	if len(docs) > 0 {
		items, err := w.index.Upsert(ctx, repo.Namespace(), docs)
		if err != nil {
			return result, fmt.Errorf("bulk write page %d: %w", page, err)
		}
		for _, item := range items {
			if item.OK {
				result.Written++
				continue
			}
			result.Failed = append(result.Failed, item)
			slog.WarnContext(ctx, "document rejected by index",
				"document_id", item.ID,
				"error", item.Error)
		}
	}

	if wm != nil {
		if err := w.SaveWatermark(ctx, *wm); err != nil {
			return result, err
		}
		result.WatermarkSaved = true
	}

	slog.DebugContext(ctx, "page committed",
		"written", result.Written,
		"failed", len(result.Failed))
	return result, nil
}

// SaveWatermark persists wm.
func (w *BulkWriter) SaveWatermark(ctx context.Context, wm domain.Watermark) error {
	if err := w.store.Save(ctx, wm); err != nil {
		return fmt.Errorf("save watermark %s: %w", wm.Key, err)
	}
	return nil
}
