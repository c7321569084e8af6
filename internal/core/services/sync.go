package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/issuesync/internal/core/domain"
	"github.com/custodia-labs/issuesync/internal/core/ports/driven"
	"github.com/custodia-labs/issuesync/internal/core/ports/driving"
	"github.com/custodia-labs/issuesync/internal/logger"
)

// Ensure SyncOrchestrator implements the interface.
var _ driving.SyncOrchestrator = (*SyncOrchestrator)(nil)

// DefaultConcurrency bounds concurrent repository runs.
const DefaultConcurrency = 4

// SyncConfig configures a SyncOrchestrator.
type SyncConfig struct {
	Mode domain.SyncMode

	// Concurrency bounds concurrent repository runs. Defaults to
	// DefaultConcurrency.
	Concurrency int

	// Repositories is the set SyncAll covers.
	Repositories []domain.Repository

	// Directory looks up the visibility of Unresolved repositories inside
	// their own run. Without it they are treated as public.
	Directory driven.RepositoryDirectory

	// Now defaults to time.Now.
	Now func() time.Time
}

// SyncOrchestrator runs the paginate, enrich, normalise and commit
// pipeline for every repository.
type SyncOrchestrator struct {
	cfg        SyncConfig
	source     driven.IssueSource
	store      driven.WatermarkStore
	normaliser driven.Normaliser
	enricher   *Enricher
	writer     *BulkWriter

	mu         sync.Mutex
	visibility map[string]bool
}

// NewSyncOrchestrator creates a new sync orchestrator. The source and index
// clients are shared by every repository run.
func NewSyncOrchestrator(
	cfg SyncConfig,
	source driven.IssueSource,
	store driven.WatermarkStore,
	index driven.DocumentIndex,
	normaliser driven.Normaliser,
	enricher *Enricher,
) *SyncOrchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if enricher == nil {
		enricher = NewEnricher(source, DefaultEnrichWorkers)
	}
	return &SyncOrchestrator{
		cfg:        cfg,
		source:     source,
		store:      store,
		normaliser: normaliser,
		enricher:   enricher,
		writer:     NewBulkWriter(index, store),
		visibility: make(map[string]bool),
	}
}

// SyncAll synchronises every configured repository.
func (o *SyncOrchestrator) SyncAll(ctx context.Context) (*domain.RunReport, error) {
	return o.Sync(ctx, o.cfg.Repositories)
}

// Sync synchronises repos concurrently. A failing repository never
// cancels its siblings; the returned error joins every failure.
func (o *SyncOrchestrator) Sync(ctx context.Context, repos []domain.Repository) (*domain.RunReport, error) {
	if !o.cfg.Mode.Valid() {
		return nil, fmt.Errorf("%w: unknown sync mode %q", domain.ErrInvalidConfig, o.cfg.Mode)
	}

	report := &domain.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: o.cfg.Now().UTC(),
		Results:   make([]domain.RepoResult, len(repos)),
	}
	ctx = logger.WithFields(ctx, logger.Fields{RunID: report.RunID, Component: "issuesync.sync"})

	sp := logger.StartSpan(ctx, "sync.run", trace.WithAttributes(
		attribute.String("run_id", report.RunID),
		attribute.Int("repositories", len(repos)),
	))
	defer sp.End()
	ctx = sp.Context()

	slog.InfoContext(ctx, "sync run started",
		"mode", string(o.cfg.Mode),
		"repositories", len(repos))

	var g errgroup.Group
	g.SetLimit(o.cfg.Concurrency)
	for i, repo := range repos {
		g.Go(func() error {
			report.Results[i] = o.SyncRepo(ctx, repo)
			return nil
		})
	}
	_ = g.Wait()

	report.EndedAt = o.cfg.Now().UTC()
	err := report.Err()
	sp.RecordError(err)

	slog.InfoContext(ctx, "sync run finished",
		"documents", report.Documents(),
		"failed_repositories", len(report.Failed()),
		"duration", report.EndedAt.Sub(report.StartedAt))
	return report, err
}

// SyncRepo synchronises one repository. The outcome, including any error,
// is carried by the result.
func (o *SyncOrchestrator) SyncRepo(ctx context.Context, repo domain.Repository) domain.RepoResult {
	result := domain.RepoResult{Repo: repo, StartedAt: o.cfg.Now().UTC()}

	ctx = logger.WithFields(ctx, logger.Fields{Owner: repo.Owner, Repo: repo.Name})
	sp := logger.StartSpan(ctx, "sync.repository", trace.WithAttributes(
		attribute.String("repository", repo.FullName()),
	))
	defer sp.End()
	ctx = sp.Context()

	page := 0
	repo, err := o.resolve(ctx, repo)
	if err == nil {
		result.Repo = repo
		page, err = o.run(ctx, repo, &result)
	}
	result.EndedAt = o.cfg.Now().UTC()
	if err != nil {
		result.Err = &domain.RepoError{Owner: repo.Owner, Repo: repo.Name, Page: page, Err: err}
		sp.RecordError(result.Err)
		slog.ErrorContext(logger.WithFields(ctx, logger.Fields{Page: page}), "repository sync failed",
			"error", err,
			"pages", result.Pages,
			"documents", result.Documents)
		return result
	}

	slog.InfoContext(ctx, "repository synced",
		"pages", result.Pages,
		"unchanged", result.Unchanged,
		"documents", result.Documents,
		"failed_items", result.FailedItems,
		"duration", result.EndedAt.Sub(result.StartedAt))
	return result
}

// resolve completes the visibility of an Unresolved repository. Successful
// lookups are remembered for later runs; failures are retried next run.
func (o *SyncOrchestrator) resolve(ctx context.Context, repo domain.Repository) (domain.Repository, error) {
	if !repo.Unresolved || o.cfg.Directory == nil {
		return repo, nil
	}
	key := repo.FullName()

	o.mu.Lock()
	private, ok := o.visibility[key]
	o.mu.Unlock()
	if !ok {
		resolved, err := o.cfg.Directory.Visibility(ctx, repo)
		if err != nil {
			return repo, fmt.Errorf("resolve visibility: %w", err)
		}
		private = resolved.Private

		o.mu.Lock()
		o.visibility[key] = private
		o.mu.Unlock()
		slog.DebugContext(ctx, "repository visibility resolved", "private", private)
	}

	repo.Private = private
	repo.Unresolved = false
	return repo, nil
}

// run walks every page of repo. It returns the page being processed when
// an error aborted the run.
func (o *SyncOrchestrator) run(ctx context.Context, repo domain.Repository, result *domain.RepoResult) (int, error) {
	paginator := NewPaginator(o.source, o.store, o.cfg.Mode, repo)
	paginator.now = o.cfg.Now

	for {
		if err := ctx.Err(); err != nil {
			return paginator.PageNumber(), err
		}

		page, err := paginator.Next(ctx)
		if err != nil {
			return paginator.PageNumber(), fmt.Errorf("fetch page: %w", err)
		}
		if page == nil {
			break
		}

		pctx := logger.WithFields(ctx, logger.Fields{Page: page.Number})
		result.Pages++

		var docs []domain.Document
		if page.Meta.NotModified {
			result.Unchanged++
			slog.DebugContext(pctx, "page unchanged")
		} else {
			docs = o.normalise(pctx, repo, page.Issues)
		}

		committed, err := o.writer.Commit(pctx, repo, page.Number, docs, paginator.Watermark(page))
		if err != nil {
			return page.Number, err
		}
		result.Documents += committed.Written
		result.FailedItems += len(committed.Failed)

		slog.DebugContext(pctx, "page processed",
			"issues", len(page.Issues),
			"rate_remaining", page.Meta.Rate.Remaining)
	}

	if o.cfg.Mode == domain.SyncModeSince {
		wm := domain.Watermark{
			Key:       domain.RepoKey(repo.Owner, repo.Name),
			LastRun:   result.StartedAt,
			UpdatedAt: o.cfg.Now().UTC(),
		}
		if err := o.writer.SaveWatermark(ctx, wm); err != nil {
			return paginator.PageNumber(), err
		}
	}
	return 0, nil
}

func (o *SyncOrchestrator) normalise(ctx context.Context, repo domain.Repository, issues []domain.RawIssue) []domain.Document {
	aux := o.enricher.Enrich(ctx, repo, issues)
	fetchedAt := o.cfg.Now().UTC()

	docs := make([]domain.Document, 0, len(issues))
	for i := range issues {
		docs = append(docs, o.normaliser.Normalise(&issues[i], aux[i], fetchedAt))
	}
	return docs
}

