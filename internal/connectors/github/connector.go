package github

import (
	"context"

	"github.com/custodia-labs/issuesync/internal/core/domain"
	"github.com/custodia-labs/issuesync/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var (
	_ driven.IssueSource         = (*Connector)(nil)
	_ driven.RepositoryDirectory = (*Connector)(nil)
)

// Connector exposes a Client as the core's issue source.
type Connector struct {
	client *Client

	// installation is set when the client authenticates as an app
	// installation, which changes how accessible repositories are listed.
	installation bool
}

// New creates a new GitHub connector over a shared client.
func New(client *Client, installation bool) *Connector {
	return &Connector{client: client, installation: installation}
}

// Client returns the underlying client.
func (c *Connector) Client() *Client {
	return c.client
}

// ListIssues fetches one page of issues.
func (c *Connector) ListIssues(ctx context.Context, req driven.ListRequest) (*domain.Page, error) {
	return c.client.ListIssuePage(ctx, req)
}

// Timeline returns the full event timeline of one issue.
func (c *Connector) Timeline(ctx context.Context, owner, repo string, number int) ([]domain.TimelineEvent, error) {
	return c.client.ListTimeline(ctx, owner, repo, number)
}

// Probe checks whether an issue still resolves at owner/repo#number.
func (c *Connector) Probe(ctx context.Context, owner, repo string, number int) (domain.ProbeResult, error) {
	return c.client.ProbeIssue(ctx, owner, repo, number)
}

// Repositories lists the repositories with issues enabled that the
// credentials can see, skipping archived repositories and forks.
func (c *Connector) Repositories(ctx context.Context) ([]domain.Repository, error) {
	repos, err := c.client.ListAccessibleRepos(ctx, c.installation)
	if err != nil {
		return nil, err
	}
	repos = FilterRepos(repos, false, false)

	out := make([]domain.Repository, 0, len(repos))
	for _, r := range repos {
		out = append(out, ToRepository(r))
	}
	return out, nil
}

// Visibility returns repo with Private set from the source.
func (c *Connector) Visibility(ctx context.Context, repo domain.Repository) (domain.Repository, error) {
	return c.client.ResolveVisibility(ctx, repo)
}
