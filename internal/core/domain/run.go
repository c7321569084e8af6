package domain

import (
	"errors"
	"time"
)

// RepoResult is the outcome of one repository's synchronisation task.
type RepoResult struct {
	Repo Repository

	// Pages counts pages processed, including unchanged ones.
	Pages int

	// Unchanged counts pages the source confirmed as not modified.
	Unchanged int

	// Documents counts documents the index accepted.
	Documents int

	// FailedItems counts documents the index rejected.
	FailedItems int

	StartedAt time.Time
	EndedAt   time.Time

	// Err is non-nil when the run aborted. It is a *RepoError.
	Err error
}

// OK reports whether the repository run completed.
func (r RepoResult) OK() bool {
	return r.Err == nil
}

// RunReport aggregates every repository's outcome for one run.
type RunReport struct {
	RunID     string
	StartedAt time.Time
	EndedAt   time.Time
	Results   []RepoResult
}

// Failed returns the results of repositories whose run aborted.
func (r *RunReport) Failed() []RepoResult {
	var failed []RepoResult
	for _, res := range r.Results {
		if !res.OK() {
			failed = append(failed, res)
		}
	}
	return failed
}

// Err joins every repository failure, or returns nil when all succeeded.
func (r *RunReport) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, res.Err)
	}
	return errors.Join(errs...)
}

// Documents sums committed documents over all repositories.
func (r *RunReport) Documents() int {
	n := 0
	for _, res := range r.Results {
		n += res.Documents
	}
	return n
}

// ReconcileReport is the outcome of one reconciliation sweep.
type ReconcileReport struct {
	Candidates  int
	Transferred int
	Unchanged   int
	Failed      int
}

// Add accumulates other into r.
func (r *ReconcileReport) Add(other ReconcileReport) {
	r.Candidates += other.Candidates
	r.Transferred += other.Transferred
	r.Unchanged += other.Unchanged
	r.Failed += other.Failed
}
