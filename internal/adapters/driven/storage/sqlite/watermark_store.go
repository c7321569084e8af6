package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/issuesync/internal/core/domain"
	"github.com/custodia-labs/issuesync/internal/core/ports/driven"
)

// watermarkStore implements driven.WatermarkStore.
type watermarkStore struct {
	store *Store
}

var _ driven.WatermarkStore = (*watermarkStore)(nil)

// Save stores or updates a watermark. An existing LastRun is never moved
// backwards.
func (s *watermarkStore) Save(ctx context.Context, wm domain.Watermark) error {
	updatedAt := wm.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO watermarks (owner, repo, page, last_run, etag, next_cursor, lookahead, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner, repo, page) DO UPDATE SET
			last_run = CASE
				WHEN excluded.last_run IS NULL THEN watermarks.last_run
				WHEN watermarks.last_run IS NULL THEN excluded.last_run
				ELSE MAX(watermarks.last_run, excluded.last_run)
			END,
			etag = excluded.etag,
			next_cursor = excluded.next_cursor,
			lookahead = excluded.lookahead,
			updated_at = excluded.updated_at
	`, wm.Key.Owner, wm.Key.Repo, wm.Key.Page,
		formatInstant(wm.LastRun), nullString(wm.ETag), nullString(wm.NextCursor), nullString(wm.Lookahead),
		updatedAt.UTC().Format(instantLayout))

	if err != nil {
		return fmt.Errorf("saving watermark %s: %w", wm.Key, err)
	}
	return nil
}

// Get retrieves the watermark for key.
func (s *watermarkStore) Get(ctx context.Context, key domain.WatermarkKey) (*domain.Watermark, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT owner, repo, page, last_run, etag, next_cursor, lookahead, updated_at
		FROM watermarks WHERE owner = ? AND repo = ? AND page = ?
	`, key.Owner, key.Repo, key.Page)

	wm, err := scanWatermark(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning watermark %s: %w", key, err)
	}
	return wm, nil
}

// List returns every watermark of a repository ordered by page.
func (s *watermarkStore) List(ctx context.Context, owner, repo string) ([]domain.Watermark, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT owner, repo, page, last_run, etag, next_cursor, lookahead, updated_at
		FROM watermarks WHERE owner = ? AND repo = ?
		ORDER BY page
	`, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("querying watermarks: %w", err)
	}
	defer rows.Close()

	var out []domain.Watermark //nolint:prealloc // size unknown from query
	for rows.Next() {
		wm, err := scanWatermark(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning watermark: %w", err)
		}
		out = append(out, *wm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating watermarks: %w", err)
	}
	return out, nil
}

func scanWatermark(row rowScanner) (*domain.Watermark, error) {
	var wm domain.Watermark
	var lastRun, etag, nextCursor, lookahead sql.NullString
	var updatedAt string

	if err := row.Scan(&wm.Key.Owner, &wm.Key.Repo, &wm.Key.Page,
		&lastRun, &etag, &nextCursor, &lookahead, &updatedAt); err != nil {
		return nil, err
	}

	wm.LastRun = parseInstant(lastRun)
	wm.ETag = etag.String
	wm.NextCursor = nextCursor.String
	wm.Lookahead = lookahead.String
	wm.UpdatedAt = parseInstant(sql.NullString{String: updatedAt, Valid: true})
	return &wm, nil
}
