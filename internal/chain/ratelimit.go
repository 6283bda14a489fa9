package chain

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter throttles requests per node URL with a token bucket.
// Limiters are created lazily and shared by every client of the same node.
type RateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewRateLimiter creates a limiter allowing ratePerSecond requests per node
// with the given burst. A non-positive rate disables limiting.
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	limit := rate.Limit(ratePerSecond)
	if ratePerSecond <= 0 {
		limit = rate.Inf
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    max(burst, 1),
	}
}

// DefaultRateLimiter allows 10 requests per second per node with a burst of 20.
func DefaultRateLimiter() *RateLimiter {
	return NewRateLimiter(10, 20)
}

// Wait blocks until a request to nodeURL may proceed.
// A nil limiter never blocks.
func (r *RateLimiter) Wait(ctx context.Context, nodeURL string) error {
	if r == nil {
		return nil
	}
	return r.limiter(nodeURL).Wait(ctx)
}

// Allow reports whether a request to nodeURL may proceed now.
func (r *RateLimiter) Allow(nodeURL string) bool {
	if r == nil {
		return true
	}
	return r.limiter(nodeURL).Allow()
}

func (r *RateLimiter) limiter(nodeURL string) *rate.Limiter {
	r.mu.RLock()
	l, ok := r.limiters[nodeURL]
	r.mu.RUnlock()
	if ok {
		return l
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok = r.limiters[nodeURL]; ok {
		return l
	}
	l = rate.NewLimiter(r.limit, r.burst)
	r.limiters[nodeURL] = l
	return l
}
