package driven

import (
	"context"

	"github.com/custodia-labs/issuesync/internal/core/domain"
)

// SchedulerStore keeps the serve loop's task state and run history so that
// intervals carry over a restart.
type SchedulerStore interface {
	// GetTask returns nil and no error when the task is unknown.
	GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error)

	ListTasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// SaveTask creates the task or replaces the stored one with its ID.
	SaveTask(ctx context.Context, task *domain.ScheduledTask) error

	RecordResult(ctx context.Context, result *domain.TaskResult) error

	// GetTaskHistory returns up to limit results, newest first. A limit of
	// zero returns all.
	GetTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)

	// PruneHistory keeps the newest keep results of every task.
	PruneHistory(ctx context.Context, keep int) error
}
