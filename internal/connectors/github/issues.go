package github

import (
	"context"
	"errors"
	"net/http"
	"time"

	gh "github.com/google/go-github/v80/github"

	"github.com/custodia-labs/issuesync/internal/core/domain"
	"github.com/custodia-labs/issuesync/internal/core/ports/driven"
)

// ListIssuePage fetches one page of a repository's issues in creation
// order, ascending, including pull requests. A conditional request
// confirmed unchanged yields a page with Meta.NotModified set.
func (c *Client) ListIssuePage(ctx context.Context, req driven.ListRequest) (*domain.Page, error) {
	cursor, err := DecodeCursor(req.Cursor)
	if err != nil {
		return nil, err
	}

	opts := &gh.IssueListByRepoOptions{
		State:     "all",
		Sort:      "created",
		Direction: "asc",
		ListOptions: gh.ListOptions{
			Page:    cursor.Page,
			PerPage: PageSize,
		},
	}
	if req.Since != nil {
		opts.Since = *req.Since
	}

	var issues []*gh.Issue
	resp, err := c.do(withETag(ctx, req.ETag), "list issues", func(ctx context.Context) (*gh.Response, error) {
		var resp *gh.Response
		var err error
		issues, resp, err = c.gh.Issues.ListByRepo(ctx, req.Owner, req.Repo, opts)
		return resp, err
	})

	page := &domain.Page{Number: cursor.Page}
	if err != nil {
		if isNotModified(err) {
			page.Issues = []domain.RawIssue{}
			page.Meta = domain.PageMeta{
				ETag:        req.ETag,
				NotModified: true,
				Rate:        c.rateLimiter.Budget(),
			}
			return page, nil
		}
		return nil, err
	}

	page.Issues = make([]domain.RawIssue, 0, len(issues))
	for _, issue := range issues {
		if issue == nil {
			continue
		}
		raw := ConvertIssue(issue)
		raw.Owner, raw.Repo = req.Owner, req.Repo
		page.Issues = append(page.Issues, raw)
	}
	page.Meta = domain.PageMeta{
		NextCursor: PageCursor(resp.NextPage),
		ETag:       resp.Header.Get("ETag"),
		Rate:       c.rateLimiter.Budget(),
	}
	if resp.NextPage == 0 && len(issues) >= PageSize {
		page.Meta.Lookahead = PageCursor(cursor.Page + 1)
	}
	return page, nil
}

// isNotModified reports whether err is a 304 answer to a conditional request.
func isNotModified(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotModified
}

// ConvertIssue maps a go-github issue onto a raw issue. An absent
// assignees field stays nil; an empty one stays empty.
func ConvertIssue(issue *gh.Issue) domain.RawIssue {
	raw := domain.RawIssue{
		ID:                issue.GetID(),
		Number:            issue.GetNumber(),
		Title:             issue.GetTitle(),
		Body:              issue.GetBody(),
		State:             issue.GetState(),
		AuthorAssociation: issue.GetAuthorAssociation(),
		CreatedAt:         timestampPtr(issue.CreatedAt),
		UpdatedAt:         timestampPtr(issue.UpdatedAt),
		ClosedAt:          timestampPtr(issue.ClosedAt),
		HTMLURL:           issue.GetHTMLURL(),
	}

	if u := issue.GetUser(); u != nil {
		raw.User = &domain.RawUser{ID: u.GetID(), Login: u.GetLogin()}
	}

	if issue.Labels != nil {
		raw.Labels = make([]domain.RawLabel, 0, len(issue.Labels))
		for _, l := range issue.Labels {
			if l == nil {
				continue
			}
			raw.Labels = append(raw.Labels, domain.RawLabel{Name: l.GetName(), Color: l.GetColor()})
		}
	}

	if issue.Assignees != nil {
		raw.Assignees = make([]domain.RawUser, 0, len(issue.Assignees))
		for _, a := range issue.Assignees {
			if a == nil {
				continue
			}
			raw.Assignees = append(raw.Assignees, domain.RawUser{ID: a.GetID(), Login: a.GetLogin()})
		}
	}

	if r := issue.Reactions; r != nil {
		raw.Reactions = &domain.RawReactions{
			TotalCount: r.GetTotalCount(),
			PlusOne:    r.GetPlusOne(),
			MinusOne:   r.GetMinusOne(),
			Laugh:      r.GetLaugh(),
			Hooray:     r.GetHooray(),
			Confused:   r.GetConfused(),
			Heart:      r.GetHeart(),
			Rocket:     r.GetRocket(),
			Eyes:       r.GetEyes(),
		}
	}

	if issue.IsPullRequest() {
		raw.PullRequestURL = issue.GetPullRequestLinks().GetURL()
		if raw.PullRequestURL == "" {
			raw.PullRequestURL = issue.GetHTMLURL()
		}
	}

	return raw
}

// timestampPtr converts an optional go-github timestamp.
func timestampPtr(ts *gh.Timestamp) *time.Time {
	if ts == nil || ts.Time.IsZero() {
		return nil
	}
	t := ts.Time.UTC()
	return &t
}
