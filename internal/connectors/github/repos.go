package github

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v80/github"

	"github.com/custodia-labs/issuesync/internal/core/domain"
)

// ListAccessibleRepos returns every repository the credentials can see.
// Token credentials list the user's owned, collaborator and organisation
// repositories; app installations list the installation's repositories.
func (c *Client) ListAccessibleRepos(ctx context.Context, installation bool) ([]*gh.Repository, error) {
	if installation {
		return c.listInstallationRepos(ctx)
	}

	var allRepos []*gh.Repository

	opts := &gh.RepositoryListByAuthenticatedUserOptions{
		Visibility:  "all",                                    // public + private
		Affiliation: "owner,collaborator,organization_member", // all relationships
		Sort:        "full_name",
		Direction:   "asc",
		ListOptions: gh.ListOptions{PerPage: PageSize},
	}

	for {
		var repos []*gh.Repository
		resp, err := c.do(ctx, "list repos", func(ctx context.Context) (*gh.Response, error) {
			var resp *gh.Response
			var err error
			repos, resp, err = c.gh.Repositories.ListByAuthenticatedUser(ctx, opts)
			return resp, err
		})
		if err != nil {
			return nil, err
		}

		allRepos = append(allRepos, repos...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allRepos, nil
}

func (c *Client) listInstallationRepos(ctx context.Context) ([]*gh.Repository, error) {
	var allRepos []*gh.Repository
	opts := &gh.ListOptions{PerPage: PageSize}

	for {
		var list *gh.ListRepositories
		resp, err := c.do(ctx, "list installation repos", func(ctx context.Context) (*gh.Response, error) {
			var resp *gh.Response
			var err error
			list, resp, err = c.gh.Apps.ListRepos(ctx, opts)
			return resp, err
		})
		if err != nil {
			return nil, err
		}

		if list != nil {
			allRepos = append(allRepos, list.Repositories...)
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allRepos, nil
}

// GetRepository fetches a single repository.
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*gh.Repository, error) {
	var repository *gh.Repository
	_, err := c.do(ctx, "get repo", func(ctx context.Context) (*gh.Response, error) {
		var resp *gh.Response
		var err error
		repository, resp, err = c.gh.Repositories.Get(ctx, owner, repo)
		return resp, err
	})
	if err != nil {
		return nil, err
	}
	return repository, nil
}

// FilterRepos filters repositories based on criteria.
func FilterRepos(repos []*gh.Repository, includeArchived, includeForks bool) []*gh.Repository {
	filtered := make([]*gh.Repository, 0, len(repos))
	for _, r := range repos {
		if r.GetArchived() && !includeArchived {
			continue
		}
		if r.GetFork() && !includeForks {
			continue
		}
		if r.GetDisabled() {
			continue
		}
		if !r.GetHasIssues() {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

// ToRepository maps a go-github repository onto a sync target.
func ToRepository(r *gh.Repository) domain.Repository {
	return domain.Repository{
		Owner:   r.GetOwner().GetLogin(),
		Name:    r.GetName(),
		Private: r.GetPrivate(),
	}
}

// ResolveVisibility returns repo with Private set from the source.
func (c *Client) ResolveVisibility(ctx context.Context, repo domain.Repository) (domain.Repository, error) {
	r, err := c.GetRepository(ctx, repo.Owner, repo.Name)
	if err != nil {
		return repo, fmt.Errorf("resolve visibility of %s: %w", repo, err)
	}
	repo.Private = r.GetPrivate()
	return repo, nil
}
