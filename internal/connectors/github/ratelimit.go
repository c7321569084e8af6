package github

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/issuesync/internal/core/domain"
)

const (
	// GitHubRateLimit is the hourly quota assumed before the first response.
	GitHubRateLimit = 5000

	// ProactiveRate is the default request rate, about 4320 per hour.
	ProactiveRate = 1.2

	// MinBuffer is the remaining quota below which Wait holds until reset.
	MinBuffer = 100

	HeaderRateLimit     = "X-RateLimit-Limit"
	HeaderRateRemaining = "X-RateLimit-Remaining"
	HeaderRateReset     = "X-RateLimit-Reset"
	HeaderRetryAfter    = "Retry-After"
)

// RateLimiter paces requests against the quota GitHub declares.
//
// A token bucket runs at the configured rate. Each response updates the
// declared budget; when the remaining quota cannot sustain the base rate
// until the reset, the bucket slows to spread it over the window. With
// fewer than MinBuffer requests left, Wait holds until the reset.
type RateLimiter struct {
	bucket *rate.Limiter
	base   rate.Limit
	now    func() time.Time

	mu     sync.Mutex
	budget domain.RateBudget
}

// NewRateLimiter returns a limiter pacing at rps requests per second. A
// non-positive rps uses ProactiveRate.
func NewRateLimiter(rps float64) *RateLimiter {
	if rps <= 0 {
		rps = ProactiveRate
	}
	return &RateLimiter{
		bucket: rate.NewLimiter(rate.Limit(rps), 1),
		base:   rate.Limit(rps),
		now:    time.Now,
		budget: domain.RateBudget{Limit: GitHubRateLimit, Remaining: GitHubRateLimit},
	}
}

// Wait blocks until a request may be sent or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.bucket.Wait(ctx); err != nil {
		return err
	}

	hold := r.holdFor()
	if hold <= 0 {
		return nil
	}
	timer := time.NewTimer(hold)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// holdFor returns how long to wait for the quota to reset.
func (r *RateLimiter) holdFor() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.budget.Remaining >= MinBuffer {
		return 0
	}
	return r.budget.Reset.Sub(r.now())
}

// UpdateFromResponse records the budget declared in resp's headers. A
// response without a remaining count leaves the pace unchanged.
func (r *RateLimiter) UpdateFromResponse(resp *http.Response) {
	if resp == nil {
		return
	}
	remaining, ok := headerInt(resp.Header, HeaderRateRemaining)
	if !ok {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.budget.Remaining = int(remaining)
	if limit, ok := headerInt(resp.Header, HeaderRateLimit); ok {
		r.budget.Limit = int(limit)
	}
	if reset, ok := headerInt(resp.Header, HeaderRateReset); ok {
		r.budget.Reset = time.Unix(reset, 0)
	}
	r.bucket.SetLimit(r.pace())
}

// pace spreads the remaining budget over the time left until reset, never
// faster than the base rate. Caller holds r.mu.
func (r *RateLimiter) pace() rate.Limit {
	window := r.budget.Reset.Sub(r.now())
	if window <= 0 || r.budget.Remaining <= 0 {
		return r.base
	}
	return min(rate.Limit(float64(r.budget.Remaining)/window.Seconds()), r.base)
}

// Rate returns the current request rate.
func (r *RateLimiter) Rate() rate.Limit {
	return r.bucket.Limit()
}

// Budget returns the last declared budget.
func (r *RateLimiter) Budget() domain.RateBudget {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.budget
}

func headerInt(h http.Header, key string) (int64, bool) {
	v := h.Get(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	return n, err == nil
}
