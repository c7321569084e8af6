package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/issuesync/internal/core/domain"
	"github.com/custodia-labs/issuesync/internal/core/ports/driven"
	"github.com/custodia-labs/issuesync/internal/core/ports/driving"
	"github.com/custodia-labs/issuesync/internal/logger"
)

// Ensure Reconciler implements the interface.
var _ driving.Reconciler = (*Reconciler)(nil)

// Reconciliation defaults.
const (
	DefaultStaleAfter     = 60 * 24 * time.Hour
	DefaultReconcileBatch = 500
	DefaultProbeWorkers   = 4
)

// DefaultRelocatedStatuses are the probe answers treated as "the issue no
// longer lives here".
func DefaultRelocatedStatuses() []int {
	return []int{http.StatusNotFound, http.StatusMovedPermanently}
}

// ReconcilerConfig configures a Reconciler.
type ReconcilerConfig struct {
	// StaleAfter is how long an open document may go without updates
	// before it is probed.
	StaleAfter time.Duration

	// BatchSize caps the candidates reviewed per sweep. The budget is
	// split across namespaces; a namespace with fewer candidates than its
	// share hands the remainder to the next.
	BatchSize int

	// RelocatedStatuses are the probe status codes that transition a
	// document to transferred.
	RelocatedStatuses []int

	// Namespaces defaults to every namespace.
	Namespaces []domain.Namespace

	// Workers bounds concurrent probes.
	Workers int

	Now func() time.Time
}

func (c ReconcilerConfig) withDefaults() ReconcilerConfig {
	if c.StaleAfter <= 0 {
		c.StaleAfter = DefaultStaleAfter
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultReconcileBatch
	}
	if len(c.RelocatedStatuses) == 0 {
		c.RelocatedStatuses = DefaultRelocatedStatuses()
	}
	if len(c.Namespaces) == 0 {
		c.Namespaces = domain.Namespaces()
	}
	if c.Workers <= 0 {
		c.Workers = DefaultProbeWorkers
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Reconciler finds open documents that have not changed for a long time
// and checks that their issue still exists where it was recorded.
type Reconciler struct {
	cfg       ReconcilerConfig
	source    driven.IssueSource
	index     driven.DocumentIndex
	relocated map[int]struct{}
}

// NewReconciler creates a reconciler.
func NewReconciler(cfg ReconcilerConfig, source driven.IssueSource, index driven.DocumentIndex) *Reconciler {
	cfg = cfg.withDefaults()
	relocated := make(map[int]struct{}, len(cfg.RelocatedStatuses))
	for _, code := range cfg.RelocatedStatuses {
		relocated[code] = struct{}{}
	}
	return &Reconciler{cfg: cfg, source: source, index: index, relocated: relocated}
}

// Sweep reviews at most one batch of candidates across all namespaces. A
// namespace whose candidate query fails does not stop the others.
func (r *Reconciler) Sweep(ctx context.Context) (domain.ReconcileReport, error) {
	ctx = logger.WithFields(ctx, logger.Fields{Component: "issuesync.reconciler"})
	sp := logger.StartSpan(ctx, "reconcile.sweep")
	defer sp.End()
	ctx = sp.Context()

	var (
		total domain.ReconcileReport
		errs  []error
	)
	remaining := r.cfg.BatchSize
	for i, ns := range r.cfg.Namespaces {
		if remaining <= 0 {
			break
		}
		left := len(r.cfg.Namespaces) - i
		share := (remaining + left - 1) / left
		report, err := r.sweepNamespace(ctx, ns, share)
		remaining -= report.Candidates
		total.Add(report)
		if err != nil {
			errs = append(errs, fmt.Errorf("namespace %s: %w", ns, err))
		}
	}

	err := errors.Join(errs...)
	sp.RecordError(err)
	slog.InfoContext(ctx, "reconciliation sweep finished",
		"candidates", total.Candidates,
		"transferred", total.Transferred,
		"unchanged", total.Unchanged,
		"failed", total.Failed)
	return total, err
}

// SweepNamespace reviews one batch of candidates in ns.
func (r *Reconciler) SweepNamespace(ctx context.Context, ns domain.Namespace) (domain.ReconcileReport, error) {
	return r.sweepNamespace(ctx, ns, r.cfg.BatchSize)
}

func (r *Reconciler) sweepNamespace(ctx context.Context, ns domain.Namespace, limit int) (domain.ReconcileReport, error) {
	var report domain.ReconcileReport

	candidates, err := r.index.FindStale(ctx, ns, domain.StaleQuery{
		State:         domain.StateOpen,
		UpdatedBefore: r.cfg.Now().Add(-r.cfg.StaleAfter).UTC(),
		Limit:         limit,
	})
	if err != nil {
		return report, fmt.Errorf("find stale documents: %w", err)
	}
	report.Candidates = len(candidates)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(r.cfg.Workers)
	for _, ref := range candidates {
		g.Go(func() error {
			outcome := r.review(ctx, ns, ref)
			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case outcomeTransferred:
				report.Transferred++
			case outcomeUnchanged:
				report.Unchanged++
			default:
				report.Failed++
			}
			return nil
		})
	}
	_ = g.Wait()

	slog.DebugContext(ctx, "namespace reconciled",
		"namespace", string(ns),
		"candidates", report.Candidates,
		"transferred", report.Transferred)
	return report, nil
}

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeUnchanged
	outcomeTransferred
)

// review probes one candidate and transitions it when the source reports
// it relocated. Errors are logged and not retried inline; the document is
// picked up again by a later sweep.
func (r *Reconciler) review(ctx context.Context, ns domain.Namespace, ref domain.DocumentRef) outcome {
	ctx = logger.WithFields(ctx, logger.Fields{Owner: ref.Owner, Repo: ref.Repo})

	probe, err := r.source.Probe(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		slog.WarnContext(ctx, "probe failed",
			"issue", ref.Number,
			"document_id", ref.ID,
			"error", err)
		return outcomeFailed
	}

	if _, ok := r.relocated[probe.StatusCode]; !ok {
		slog.DebugContext(ctx, "issue still in place",
			"issue", ref.Number,
			"status", probe.StatusCode)
		return outcomeUnchanged
	}

	if err := r.index.MarkTransferred(ctx, ns, ref.ID); err != nil {
		slog.WarnContext(ctx, "mark transferred failed",
			"issue", ref.Number,
			"document_id", ref.ID,
			"error", err)
		return outcomeFailed
	}

	slog.InfoContext(ctx, "issue relocated",
		"issue", ref.Number,
		"document_id", ref.ID,
		"status", probe.StatusCode,
		"location", probe.Location)
	return outcomeTransferred
}
