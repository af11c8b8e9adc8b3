package vision

import (
	"context"
	"sync"
	"time"
)

// RateLimiter enforces a minimum interval between operations.
// It is safe for concurrent use; concurrent callers are serialized so
// that no two operations start within the interval.
//
// Design decision: A minimum-interval limiter is simpler than a token
// bucket and matches how vision APIs meter usage (requests per minute).
// One limiter is shared by all personas and all concurrent checks so the
// process as a whole stays under the limit.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// NewRateLimiter creates a RateLimiter with the given minimum interval
// between operations. A non-positive interval disables limiting.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{interval: interval}
}

// Wait blocks until the minimum interval since the previous operation has
// elapsed, then records the current time as the new reference point.
// It returns early with the context's error if the context is canceled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r.interval <= 0 {
		return nil
	}

	r.mu.Lock()
	now := time.Now()
	next := r.last.Add(r.interval)
	if next.Before(now) {
		next = now
	}
	wait := next.Sub(now)
	// Reserve the slot before sleeping so concurrent callers queue up
	// behind each other instead of all waking at the same instant.
	r.last = next
	r.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
