package github

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/custodia-labs/issuesync/internal/core/domain"
)

var (
	// ErrRetriesExhausted indicates a request kept failing after the retry
	// policy gave up. It wraps the last error.
	ErrRetriesExhausted = errors.New("github: retries exhausted")

	// ErrInvalidCursor indicates the cursor format is invalid.
	ErrInvalidCursor = errors.New("github: invalid cursor format")

	// ErrInvalidPrivateKey indicates the app private key could not be parsed.
	ErrInvalidPrivateKey = errors.New("github: invalid app private key")
)

// RateLimitError is a rate limit answer. Primary limits carry the reset
// instant; secondary limits carry RetryAfter.
type RateLimitError struct {
	ResetAt    time.Time
	RetryAfter time.Duration
	Remaining  int
	Limit      int
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("github: secondary rate limit exceeded, retry after %s", e.RetryAfter)
	}
	return fmt.Sprintf("github: rate limit exceeded, resets at %s", e.ResetAt.Format(time.RFC3339))
}

// Unwrap lets callers match the error against domain.ErrRateLimited.
func (e *RateLimitError) Unwrap() error {
	return domain.ErrRateLimited
}

// APIError is a non-success answer from the API.
type APIError struct {
	StatusCode int
	Message    string
	URL        string

	// Location is the redirect target of a 3xx answer.
	Location string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: %s: %d %s", e.URL, e.StatusCode, e.Message)
}

// statusCode returns the HTTP status carried by err, 0 if none.
func statusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsNotFound reports a 404 answer.
func IsNotFound(err error) bool { return statusCode(err) == http.StatusNotFound }

// IsUnauthorized reports a 401 answer.
func IsUnauthorized(err error) bool { return statusCode(err) == http.StatusUnauthorized }

// IsForbidden reports a 403 answer.
func IsForbidden(err error) bool { return statusCode(err) == http.StatusForbidden }

// IsServerError reports a 5xx answer.
func IsServerError(err error) bool { return statusCode(err) >= http.StatusInternalServerError }

// IsRateLimited reports a primary or secondary rate limit, or a 429.
func IsRateLimited(err error) bool {
	var rlErr *RateLimitError
	return errors.As(err, &rlErr) || statusCode(err) == http.StatusTooManyRequests
}
