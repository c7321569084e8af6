package github

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/issuesync/internal/core/domain"
)

const (
	// DefaultBaseURL is the public GitHub REST endpoint.
	DefaultBaseURL = "https://api.github.com/"

	// PageSize is the number of issues requested per page.
	PageSize = 100
)

// Config holds the settings of a GitHub client.
// The zero value selects api.github.com, the default request rate and the
// default retry policy.
type Config struct {
	// BaseURL overrides the REST endpoint (GitHub Enterprise, tests).
	BaseURL string

	// RequestsPerSecond is the proactive request rate. Zero uses ProactiveRate.
	RequestsPerSecond float64

	// Retry decides how failed requests are retried. Nil uses
	// DefaultRetryPolicy.
	Retry RetryPolicy

	// Timeout bounds a single HTTP request. Zero uses DefaultTimeout.
	Timeout time.Duration
}

// withDefaults returns a copy of c with unset fields defaulted.
func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = ProactiveRate
	}
	if c.Retry == nil {
		c.Retry = DefaultRetryPolicy()
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// parseBaseURL parses a REST endpoint, ensuring the trailing slash
// go-github requires.
func parseBaseURL(raw string) (*url.URL, error) {
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: github base url %q: %w", domain.ErrInvalidConfig, raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: github base url %q is not absolute", domain.ErrInvalidConfig, raw)
	}
	return u, nil
}
