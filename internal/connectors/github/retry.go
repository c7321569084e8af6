package github

import (
	"errors"
	"io"
	"net"
	"syscall"
	"time"
)

// RetryDecision is the outcome of a retry policy for one failed attempt.
type RetryDecision struct {
	// Retry is false when the caller must give up.
	Retry bool

	// After is how long to wait before the next attempt.
	After time.Duration
}

// GiveUp is the decision to stop retrying.
var GiveUp = RetryDecision{}

// RetryPolicy decides whether a failed request is attempted again.
// Decide must be pure: it may not sleep, log or mutate shared state.
// attempt is the 1-based number of the attempt that just failed.
type RetryPolicy interface {
	Decide(attempt int, err error) RetryDecision
}

// RetryPolicyFunc adapts a function to RetryPolicy.
type RetryPolicyFunc func(attempt int, err error) RetryDecision

// Decide calls f.
func (f RetryPolicyFunc) Decide(attempt int, err error) RetryDecision {
	return f(attempt, err)
}

// NoRetry never retries.
var NoRetry RetryPolicy = RetryPolicyFunc(func(int, error) RetryDecision { return GiveUp })

const (
	// DefaultInitialBackoff is the delay after the first failed attempt.
	DefaultInitialBackoff = time.Second

	// DefaultMaxBackoff caps the exponential delay.
	DefaultMaxBackoff = 60 * time.Second

	// DefaultMaxAttempts is the attempt ceiling, first attempt included.
	DefaultMaxAttempts = 5

	// DefaultMaxResetWait caps how long a rate limited request waits for
	// the declared reset.
	DefaultMaxResetWait = 15 * time.Minute
)

// ExponentialBackoff retries transient failures with capped exponential
// delays. Rate limit errors wait for the server-declared reset instead.
type ExponentialBackoff struct {
	Initial      time.Duration
	Max          time.Duration
	MaxAttempts  int
	MaxResetWait time.Duration

	// Now is the clock used to turn reset instants into delays.
	// Nil uses time.Now.
	Now func() time.Time
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() ExponentialBackoff {
	return ExponentialBackoff{
		Initial:      DefaultInitialBackoff,
		Max:          DefaultMaxBackoff,
		MaxAttempts:  DefaultMaxAttempts,
		MaxResetWait: DefaultMaxResetWait,
	}
}

// Decide implements RetryPolicy.
func (b ExponentialBackoff) Decide(attempt int, err error) RetryDecision {
	if err == nil || attempt >= b.MaxAttempts || !Retryable(err) {
		return GiveUp
	}

	var rl *RateLimitError
	if errors.As(err, &rl) {
		if wait, ok := b.resetWait(rl); ok {
			return RetryDecision{Retry: true, After: wait}
		}
	}

	return RetryDecision{Retry: true, After: b.backoff(attempt)}
}

// backoff returns Initial * 2^(attempt-1), capped at Max.
func (b ExponentialBackoff) backoff(attempt int) time.Duration {
	d := b.Initial
	for i := 1; i < attempt; i++ {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			return b.Max
		}
	}
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}

// resetWait returns the delay the server asked for, if it declared one.
func (b ExponentialBackoff) resetWait(rl *RateLimitError) (time.Duration, bool) {
	var wait time.Duration
	switch {
	case rl.RetryAfter > 0:
		wait = rl.RetryAfter
	case !rl.ResetAt.IsZero():
		now := time.Now
		if b.Now != nil {
			now = b.Now
		}
		wait = rl.ResetAt.Sub(now())
		if wait < 0 {
			wait = 0
		}
	default:
		return 0, false
	}
	if b.MaxResetWait > 0 && wait > b.MaxResetWait {
		wait = b.MaxResetWait
	}
	return wait, true
}

// Retryable reports whether err is transient: network failures, 5xx and
// 429 answers, primary and secondary rate limits. Callers check their own
// context before retrying.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if IsRateLimited(err) || IsServerError(err) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
