package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/issuesync/internal/core/domain"
	"github.com/custodia-labs/issuesync/internal/core/ports/driven"
)

// ErrCursorLoop is returned when the source hands out a next cursor the
// paginator already followed.
var ErrCursorLoop = errors.New("pagination cursor repeated")

// Paginator walks one repository's issue listing page by page, resuming
// from the stored watermarks. It is not safe for concurrent use; each
// repository run owns its own paginator.
type Paginator struct {
	source driven.IssueSource
	store  driven.WatermarkStore
	mode   domain.SyncMode
	repo   domain.Repository
	now    func() time.Time

	started bool
	done    bool
	number  int
	cursor  string
	since   *time.Time
	visited map[string]struct{}
}

// NewPaginator creates a paginator for repo.
func NewPaginator(
	source driven.IssueSource,
	store driven.WatermarkStore,
	mode domain.SyncMode,
	repo domain.Repository,
) *Paginator {
	return &Paginator{
		source:  source,
		store:   store,
		mode:    mode,
		repo:    repo,
		now:     time.Now,
		visited: make(map[string]struct{}),
	}
}

// Next fetches the next page. It returns nil and no error once the last
// page was returned.
func (p *Paginator) Next(ctx context.Context) (*domain.Page, error) {
	if p.done {
		return nil, nil
	}
	if !p.started {
		if err := p.start(ctx); err != nil {
			return nil, err
		}
		p.started = true
	}

	p.number++
	req := driven.ListRequest{
		Owner:  p.repo.Owner,
		Repo:   p.repo.Name,
		Cursor: p.cursor,
		Since:  p.since,
	}

	var cached *domain.Watermark
	if p.mode == domain.SyncModeETag {
		wm, err := p.store.Get(ctx, domain.PageKey(p.repo.Owner, p.repo.Name, p.number))
		switch {
		case err == nil:
			cached = wm
			req.ETag = wm.ETag
		case !errors.Is(err, domain.ErrNotFound):
			return nil, fmt.Errorf("load page watermark: %w", err)
		}
	}

	page, err := p.source.ListIssues(ctx, req)
	if err != nil {
		return nil, err
	}
	page.Number = p.number

	if page.Meta.NotModified {
		if cached == nil {
			return nil, fmt.Errorf("%w: unchanged answer for page %d without a stored fingerprint",
				domain.ErrMalformedResponse, p.number)
		}
		page.Issues = nil
		page.Meta.NextCursor = cached.NextCursor
		page.Meta.Lookahead = cached.Lookahead
		if page.Meta.ETag == "" {
			page.Meta.ETag = cached.ETag
		}
	}

	next := page.Meta.NextCursor
	if next == "" && page.Meta.NotModified {
		// A full last page answers unchanged even after the listing grew
		// past it.
		next = page.Meta.Lookahead
	}
	if next == "" {
		p.done = true
		return page, nil
	}
	if _, seen := p.visited[next]; seen {
		p.done = true
		return nil, fmt.Errorf("%w: %q after page %d", ErrCursorLoop, next, p.number)
	}
	p.visited[next] = struct{}{}
	p.cursor = next
	return page, nil
}

// PageNumber returns the number of the page most recently requested,
// 0 before the first call to Next.
func (p *Paginator) PageNumber() int {
	return p.number
}

// Watermark returns the progress marker to persist once page is committed.
// Only the conditional-fetch mode keeps per-page watermarks; in since mode
// the repository watermark is written by the caller at the end of a run.
func (p *Paginator) Watermark(page *domain.Page) *domain.Watermark {
	if p.mode != domain.SyncModeETag || page == nil {
		return nil
	}
	return &domain.Watermark{
		Key:        domain.PageKey(p.repo.Owner, p.repo.Name, page.Number),
		ETag:       page.Meta.ETag,
		NextCursor: page.Meta.NextCursor,
		Lookahead:  page.Meta.Lookahead,
		UpdatedAt:  p.now().UTC(),
	}
}

func (p *Paginator) start(ctx context.Context) error {
	if p.mode != domain.SyncModeSince {
		return nil
	}
	wm, err := p.store.Get(ctx, domain.RepoKey(p.repo.Owner, p.repo.Name))
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load watermark: %w", err)
	}
	if !wm.LastRun.IsZero() {
		since := wm.LastRun
		p.since = &since
	}
	return nil
}
