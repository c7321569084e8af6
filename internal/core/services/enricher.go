package services

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/issuesync/internal/core/domain"
	"github.com/custodia-labs/issuesync/internal/core/ports/driven"
)

// DefaultEnrichWorkers bounds concurrent timeline fetches per page.
const DefaultEnrichWorkers = 4

// Enricher attaches relocation facts to open issues by reading their
// event timelines.
type Enricher struct {
	source  driven.IssueSource
	workers int
}

// NewEnricher creates an enricher running at most workers timeline fetches
// at a time. A non-positive value uses DefaultEnrichWorkers.
func NewEnricher(source driven.IssueSource, workers int) *Enricher {
	if workers <= 0 {
		workers = DefaultEnrichWorkers
	}
	return &Enricher{source: source, workers: workers}
}

// Enrich returns one Enrichment per issue, index-aligned with issues.
// Closed issues are skipped. A failed lookup is logged and yields no
// auxiliary data; it never fails the page.
func (e *Enricher) Enrich(ctx context.Context, repo domain.Repository, issues []domain.RawIssue) []domain.Enrichment {
	out := make([]domain.Enrichment, len(issues))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i := range issues {
		if !issues[i].IsOpen() {
			continue
		}
		number := issues[i].Number
		g.Go(func() error {
			events, err := e.source.Timeline(ctx, repo.Owner, repo.Name, number)
			if err != nil {
				slog.WarnContext(ctx, "timeline lookup failed",
					"issue", number,
					"error", err)
				return nil
			}
			out[i] = domain.Enrichment{Relocation: latestRelocation(events, repo)}
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// latestRelocation picks the most recent transferred event. Later entries
// win ties.
func latestRelocation(events []domain.TimelineEvent, repo domain.Repository) *domain.RelocationEvent {
	var latest *domain.TimelineEvent
	for i := range events {
		ev := &events[i]
		if ev.Event != domain.EventTransferred {
			continue
		}
		if latest == nil || !ev.CreatedAt.Before(latest.CreatedAt) {
			latest = ev
		}
	}
	if latest == nil {
		return nil
	}
	return &domain.RelocationEvent{
		From: latest.PreviousRepository,
		To:   repo.FullName(),
		At:   latest.CreatedAt,
	}
}
