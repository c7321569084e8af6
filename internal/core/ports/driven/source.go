package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/issuesync/internal/core/domain"
)

// ListRequest selects one page of a repository's issue listing.
type ListRequest struct {
	Owner string
	Repo  string

	// Cursor is the opaque next cursor of the previous page.
	// Empty requests the first page.
	Cursor string

	// Since restricts the listing to issues updated at or after the instant.
	Since *time.Time

	// ETag makes the request conditional. A matching fingerprint yields a
	// page with Meta.NotModified set and no issues.
	ETag string
}

// IssueSource is the read side of the upstream issue tracker.
// Implementations are safe for concurrent use by multiple repository runs.
type IssueSource interface {
	// ListIssues fetches one page of issues in creation order, ascending.
	// Transient failures are retried internally; a returned error is fatal
	// for the repository run.
	ListIssues(ctx context.Context, req ListRequest) (*domain.Page, error)

	// Timeline returns the full event timeline of one issue.
	Timeline(ctx context.Context, owner, repo string, number int) ([]domain.TimelineEvent, error)

	// Probe checks whether an issue still resolves at its recorded
	// location. Redirects are reported, never followed. Not-found and
	// moved answers are results, not errors.
	Probe(ctx context.Context, owner, repo string, number int) (domain.ProbeResult, error)
}
