package github

import (
	"context"
	"errors"
	"net/http"

	gh "github.com/google/go-github/v80/github"

	"github.com/custodia-labs/issuesync/internal/core/domain"
)

// ProbeIssue requests one issue without following redirects and reports
// the status the source answered with. Redirects and 404/410 answers are
// results; rate limits and server errors go through the retry policy and
// anything else is returned as an error.
func (c *Client) ProbeIssue(ctx context.Context, owner, repo string, number int) (domain.ProbeResult, error) {
	resp, err := c.do(ctx, "probe issue", func(ctx context.Context) (*gh.Response, error) {
		_, resp, err := c.probe.Issues.Get(ctx, owner, repo, number)
		return resp, err
	})
	if err == nil {
		return domain.ProbeResult{StatusCode: resp.StatusCode}, nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode >= 300 && apiErr.StatusCode < 400:
			return domain.ProbeResult{StatusCode: apiErr.StatusCode, Location: apiErr.Location}, nil
		case apiErr.StatusCode == http.StatusNotFound, apiErr.StatusCode == http.StatusGone:
			return domain.ProbeResult{StatusCode: apiErr.StatusCode}, nil
		}
	}
	return domain.ProbeResult{}, err
}
