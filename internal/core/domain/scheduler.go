package domain

import "time"

// Identifiers of the serve loop tasks.
const (
	TaskIDSync      = "issue-sync"
	TaskIDReconcile = "reconcile"
)

// ScheduledTask is the persisted state of one recurring pass.
type ScheduledTask struct {
	ID       string
	Name     string
	Interval time.Duration
	Enabled  bool

	LastRun     time.Time
	NextRun     time.Time
	LastSuccess time.Time

	// LastError is the message of the last failed run, empty after a
	// success.
	LastError string
}

// Due reports whether the task should start at now. A task that never ran
// is due immediately.
func (t *ScheduledTask) Due(now time.Time) bool {
	return t.Enabled && !t.NextRun.After(now)
}

// Complete folds the outcome of a run into the task and schedules the next
// run one interval after the run ended.
func (t *ScheduledTask) Complete(r TaskResult) {
	t.LastRun = r.StartedAt
	t.NextRun = r.EndedAt.Add(t.Interval)
	if r.Success {
		t.LastSuccess = r.EndedAt
		t.LastError = ""
		return
	}
	t.LastError = r.Error
}

// TaskResult is one run of a task.
type TaskResult struct {
	TaskID    string
	StartedAt time.Time
	EndedAt   time.Time
	Success   bool
	Error     string

	// ItemsProcessed counts documents committed (sync) or transitioned
	// (reconcile).
	ItemsProcessed int
}

// TaskConfig enables a task and sets its interval.
type TaskConfig struct {
	Enabled  bool
	Interval time.Duration
}

// SchedulerConfig holds the configuration of every task by ID.
type SchedulerConfig struct {
	TaskConfigs map[string]TaskConfig
}

// GetTaskConfig returns the zero TaskConfig (disabled) for an unknown task.
func (c *SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	return c.TaskConfigs[taskID]
}

// DefaultSchedulerConfig syncs hourly and reconciles daily.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		TaskConfigs: map[string]TaskConfig{
			TaskIDSync:      {Enabled: true, Interval: time.Hour},
			TaskIDReconcile: {Enabled: true, Interval: 24 * time.Hour},
		},
	}
}
