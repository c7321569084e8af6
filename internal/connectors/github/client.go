package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	gh "github.com/google/go-github/v80/github"

	"github.com/custodia-labs/issuesync/internal/core/domain"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second
)

// Client wraps the go-github client with rate limiting, retries and error
// mapping. It is safe for concurrent use and meant to be constructed once
// per process.
type Client struct {
	gh          *gh.Client
	probe       *gh.Client // same transport, redirects not followed
	rateLimiter *RateLimiter
	retry       RetryPolicy
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewClient creates a GitHub API client on top of an authenticated HTTP
// client (see NewHTTPClient). httpClient is not modified.
func NewClient(httpClient *http.Client, cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	baseURL, err := parseBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	hc := *httpClient
	hc.Transport = &conditionalTransport{base: httpClient.Transport}
	main := gh.NewClient(&hc)
	main.BaseURL = baseURL

	pc := hc
	pc.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	probe := gh.NewClient(&pc)
	probe.BaseURL = baseURL

	return &Client{
		gh:          main,
		probe:       probe,
		rateLimiter: NewRateLimiter(cfg.RequestsPerSecond),
		retry:       cfg.Retry,
		sleep:       sleepContext,
	}, nil
}

// GitHub returns the underlying go-github client.
func (c *Client) GitHub() *gh.Client {
	return c.gh
}

// RateLimiter returns the rate limiter for external access.
func (c *Client) RateLimiter() *RateLimiter {
	return c.rateLimiter
}

// do runs call under the rate limiter and the retry policy. Errors are
// mapped through wrapError; a retryable error the policy gave up on is
// wrapped in ErrRetriesExhausted.
func (c *Client) do(ctx context.Context, op string, call func(ctx context.Context) (*gh.Response, error)) (*gh.Response, error) {
	for attempt := 1; ; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		resp, err := call(ctx)
		c.updateRateLimitFromResponse(resp)
		if err == nil {
			return resp, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return resp, ctxErr
		}

		err = c.wrapError(err, op)
		decision := c.retry.Decide(attempt, err)
		if !decision.Retry {
			if Retryable(err) {
				return resp, fmt.Errorf("%s: %w after %d attempts: %w", op, ErrRetriesExhausted, attempt, err)
			}
			return resp, err
		}

		slog.WarnContext(ctx, "github request failed, retrying",
			"op", op, "attempt", attempt, "after", decision.After, "err", err)
		if err := c.sleep(ctx, decision.After); err != nil {
			return resp, err
		}
	}
}

// updateRateLimitFromResponse updates the rate limiter from GitHub response headers.
func (c *Client) updateRateLimitFromResponse(resp *gh.Response) {
	if resp == nil || resp.Response == nil {
		return
	}
	c.rateLimiter.UpdateFromResponse(resp.Response)
}

// wrapError converts go-github errors to our error types.
func (c *Client) wrapError(err error, operation string) error {
	if err == nil {
		return nil
	}

	// Check for rate limit errors first: they are not ErrorResponses.
	var rateLimitErr *gh.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return &RateLimitError{
			ResetAt:   rateLimitErr.Rate.Reset.Time,
			Remaining: rateLimitErr.Rate.Remaining,
			Limit:     rateLimitErr.Rate.Limit,
		}
	}

	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		retryAfter := abuseErr.GetRetryAfter()
		if retryAfter <= 0 {
			retryAfter = time.Minute
		}
		budget := c.rateLimiter.Budget()
		return &RateLimitError{
			RetryAfter: retryAfter,
			Remaining:  budget.Remaining,
			Limit:      budget.Limit,
		}
	}

	var redirectErr *gh.RedirectionError
	if errors.As(err, &redirectErr) {
		apiErr := &APIError{StatusCode: redirectErr.StatusCode, Message: "redirect"}
		if redirectErr.Location != nil {
			apiErr.Location = redirectErr.Location.String()
		}
		if redirectErr.Response != nil && redirectErr.Response.Request != nil {
			apiErr.URL = redirectErr.Response.Request.URL.String()
		}
		return apiErr
	}

	// Check for GitHub error response
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		apiErr := &APIError{
			StatusCode: ghErr.Response.StatusCode,
			Message:    ghErr.Message,
		}
		if ghErr.Response.Request != nil {
			apiErr.URL = ghErr.Response.Request.URL.String()
		}
		if apiErr.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%s: %w: %w", operation, domain.ErrAuthInvalid, apiErr)
		}
		return apiErr
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return fmt.Errorf("%s: %w: %w", operation, domain.ErrMalformedResponse, err)
	}

	return fmt.Errorf("%s: %w", operation, err)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// etagKey carries the entity tag of a conditional request in a context.
type etagKey struct{}

// withETag marks requests made with ctx as conditional on etag.
func withETag(ctx context.Context, etag string) context.Context {
	if etag == "" {
		return ctx
	}
	return context.WithValue(ctx, etagKey{}, etag)
}

// conditionalTransport adds If-None-Match to requests whose context carries
// an entity tag.
type conditionalTransport struct {
	base http.RoundTripper
}

func (t *conditionalTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if etag, ok := req.Context().Value(etagKey{}).(string); ok && etag != "" {
		req = req.Clone(req.Context())
		req.Header.Set("If-None-Match", etag)
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}
