package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/issuesync/internal/core/domain"
	"github.com/custodia-labs/issuesync/internal/core/ports/driven"
	"github.com/custodia-labs/issuesync/internal/core/ports/driving"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

const (
	// historyRetention is the number of results kept per task.
	historyRetention = 100

	// DefaultCheckInterval is how often the scheduler looks for due tasks.
	DefaultCheckInterval = time.Minute
)

// taskFunc runs one pass and returns the number of items it processed.
type taskFunc func(ctx context.Context) (int, error)

// Scheduler runs the sync pass and the reconciliation sweep on their
// intervals. A task never overlaps itself: a task still running when it
// becomes due again is skipped until it finishes.
type Scheduler struct {
	config domain.SchedulerConfig
	store  driven.SchedulerStore
	tasks  map[string]taskFunc
	names  map[string]string

	// CheckInterval and Now may be replaced before Start.
	CheckInterval time.Duration
	Now           func() time.Time

	mu       sync.Mutex
	running  bool
	inflight map[string]bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler. A nil orchestrator or reconciler
// leaves its task a no-op.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	syncOrch driving.SyncOrchestrator,
	reconciler driving.Reconciler,
) *Scheduler {
	s := &Scheduler{
		config:        config,
		store:         store,
		CheckInterval: DefaultCheckInterval,
		Now:           time.Now,
		inflight:      make(map[string]bool),
		names: map[string]string{
			domain.TaskIDSync:      "Issue Sync",
			domain.TaskIDReconcile: "Reconciliation Sweep",
		},
	}
	s.tasks = map[string]taskFunc{
		domain.TaskIDSync: func(ctx context.Context) (int, error) {
			if syncOrch == nil {
				return 0, nil
			}
			report, err := syncOrch.SyncAll(ctx)
			if report == nil {
				return 0, err
			}
			return report.Documents(), err
		},
		domain.TaskIDReconcile: func(ctx context.Context) (int, error) {
			if reconciler == nil {
				return 0, nil
			}
			report, err := reconciler.Sweep(ctx)
			return report.Transferred, err
		},
	}
	return s
}

// Start registers the configured tasks and runs due tasks until ctx is
// cancelled (returning ctx.Err()) or Stop is called (returning nil).
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	if err := s.register(ctx); err != nil {
		slog.ErrorContext(ctx, "scheduler: registering tasks failed", "error", err)
	}

	ticker := time.NewTicker(s.CheckInterval)
	defer ticker.Stop()

	s.dispatch(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			s.dispatch(ctx)
		}
	}
}

// Stop ends the loop and waits for running tasks to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// register stores every enabled task. Stored state of known tasks is kept;
// a changed interval reschedules the next run from now.
func (s *Scheduler) register(ctx context.Context) error {
	for _, id := range []string{domain.TaskIDSync, domain.TaskIDReconcile} {
		cfg := s.config.GetTaskConfig(id)

		task, err := s.store.GetTask(ctx, id)
		if err != nil {
			return err
		}
		switch {
		case task == nil && !cfg.Enabled:
			continue
		case task == nil:
			task = &domain.ScheduledTask{ID: id, Name: s.names[id], Interval: cfg.Interval}
		case task.Interval != cfg.Interval && cfg.Enabled:
			task.Interval = cfg.Interval
			task.NextRun = s.Now().Add(cfg.Interval)
		}
		task.Enabled = cfg.Enabled

		if err := s.store.SaveTask(ctx, task); err != nil {
			return err
		}
	}
	return nil
}

// dispatch starts every due task that is not already running.
func (s *Scheduler) dispatch(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "scheduler: listing tasks failed", "error", err)
		return
	}

	now := s.Now()
	for i := range tasks {
		task := tasks[i]
		if !task.Due(now) {
			continue
		}
		fn, ok := s.tasks[task.ID]
		if !ok {
			slog.WarnContext(ctx, "scheduler: unknown task", "task_id", task.ID)
			continue
		}

		s.mu.Lock()
		if s.inflight[task.ID] {
			s.mu.Unlock()
			continue
		}
		s.inflight[task.ID] = true
		s.wg.Add(1)
		s.mu.Unlock()

		go s.execute(ctx, task, fn)
	}
}

// execute runs one task and persists its outcome.
func (s *Scheduler) execute(ctx context.Context, task domain.ScheduledTask, fn taskFunc) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.inflight, task.ID)
		s.mu.Unlock()
	}()

	result := domain.TaskResult{TaskID: task.ID, StartedAt: s.Now()}
	slog.InfoContext(ctx, "scheduler: task started", "task_id", task.ID)

	n, err := fn(ctx)
	result.EndedAt = s.Now()
	result.ItemsProcessed = n
	result.Success = err == nil
	if err != nil {
		result.Error = err.Error()
		slog.ErrorContext(ctx, "scheduler: task failed", "task_id", task.ID, "error", err)
	} else {
		slog.InfoContext(ctx, "scheduler: task finished",
			"task_id", task.ID,
			"items", n,
			"duration", result.EndedAt.Sub(result.StartedAt),
		)
	}

	task.Complete(result)
	if err := s.store.SaveTask(ctx, &task); err != nil {
		slog.ErrorContext(ctx, "scheduler: saving task failed", "task_id", task.ID, "error", err)
	}
	if err := s.store.RecordResult(ctx, &result); err != nil {
		slog.ErrorContext(ctx, "scheduler: recording result failed", "task_id", task.ID, "error", err)
	}
	if err := s.store.PruneHistory(ctx, historyRetention); err != nil {
		slog.ErrorContext(ctx, "scheduler: pruning history failed", "error", err)
	}
}
