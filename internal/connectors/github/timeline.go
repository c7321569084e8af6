package github

import (
	"context"
	"fmt"
	"net/url"

	gh "github.com/google/go-github/v80/github"

	"github.com/custodia-labs/issuesync/internal/core/domain"
)

// timelineEvent is the subset of a timeline entry the enricher needs.
// go-github's Timeline type does not expose previous_repository, which
// transferred events carry.
type timelineEvent struct {
	Event              string        `json:"event"`
	CreatedAt          *gh.Timestamp `json:"created_at,omitempty"`
	PreviousRepository *struct {
		FullName string `json:"full_name"`
	} `json:"previous_repository,omitempty"`
}

// ListTimeline returns every event of an issue's timeline, following
// pagination.
func (c *Client) ListTimeline(ctx context.Context, owner, repo string, number int) ([]domain.TimelineEvent, error) {
	var all []domain.TimelineEvent
	page := 1

	for page != 0 {
		select {
		case <-ctx.Done():
			return all, ctx.Err()
		default:
		}

		u := fmt.Sprintf("repos/%s/%s/issues/%d/timeline?per_page=%d&page=%d",
			url.PathEscape(owner), url.PathEscape(repo), number, PageSize, page)

		var events []timelineEvent
		resp, err := c.do(ctx, "list timeline", func(ctx context.Context) (*gh.Response, error) {
			req, err := c.gh.NewRequest("GET", u, nil)
			if err != nil {
				return nil, err
			}
			return c.gh.Do(ctx, req, &events)
		})
		if err != nil {
			return nil, err
		}

		for _, e := range events {
			ev := domain.TimelineEvent{Event: e.Event}
			if e.CreatedAt != nil {
				ev.CreatedAt = e.CreatedAt.Time.UTC()
			}
			if e.PreviousRepository != nil {
				ev.PreviousRepository = e.PreviousRepository.FullName
			}
			all = append(all, ev)
		}

		page = resp.NextPage
	}

	return all, nil
}
