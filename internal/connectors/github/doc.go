// Package github implements the issue source on top of the GitHub REST API.
//
// # Architecture
//
// The package follows the driven port pattern defined in [driven.IssueSource].
// It comprises the following components:
//
//   - Connector: implements the port over a shared Client
//   - Client: handles GitHub API communication with rate limiting and retries
//   - Config: endpoint, request rate and retry policy
//   - Cursor: the opaque page position stored in watermarks
//
// # Authentication
//
// Credentials are resolved once by [NewHTTPClient] from a [domain.Auth]:
//
//   - [domain.TokenAuth]: a personal access token, sent as a static bearer
//     token. Requires the 'repo' scope for private repositories.
//
//   - [domain.AppAuth]: a GitHub App installation. An RS256 JWT signed with
//     the app's private key is exchanged for an installation token, which
//     is cached until shortly before it expires.
//
// # Rate Limiting
//
// The client implements a dual-strategy rate limiting approach:
//
//  1. Proactive throttling: a token bucket limits requests to the configured
//     rate (1.2 requests per second by default). When the declared budget
//     cannot sustain that rate until the reset, the bucket slows down to
//     spread the remaining requests over the window.
//
//  2. Reactive handling: the client monitors X-RateLimit-Remaining and
//     X-RateLimit-Reset headers. Below a reserve of requests it waits until
//     the reset time before continuing.
//
// # Retries
//
// Every request goes through a [RetryPolicy]. The default
// [ExponentialBackoff] retries network failures, 5xx and 429 answers and
// rate limit rejections up to five attempts, waiting for the declared
// reset when the server provides one. Giving up on a transient failure
// yields [ErrRetriesExhausted].
//
// # Conditional Requests
//
// Issue pages can be requested with a known ETag. A 304 answer is not an
// error: it produces a page with no issues and Meta.NotModified set.
//
// # Probes
//
// [Client.ProbeIssue] uses a client that does not follow redirects, so a
// moved issue is reported as 301 with its new location instead of being
// silently resolved.
package github
