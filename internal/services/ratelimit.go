package services

import (
	"sync"
	"time"
)

// RateLimiter is an in-memory per-account, per-operation fixed-window
// limiter. State lives in process memory and resets on restart.
type RateLimiter struct {
	mu          sync.Mutex
	window      time.Duration
	maxRequests int
	buckets     map[string][]time.Time
	now         func() time.Time
}

// NewRateLimiter allows maxRequests per (account, key) per window.
func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		window:      window,
		maxRequests: maxRequests,
		buckets:     make(map[string][]time.Time),
		now:         time.Now,
	}
}

// Allow records one request and reports whether it is within the limit.
func (r *RateLimiter) Allow(accountID, key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	cutoff := now.Add(-r.window)
	bucket := r.buckets[accountID+"|"+key]

	kept := bucket[:0]
	for _, t := range bucket {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= r.maxRequests {
		r.buckets[accountID+"|"+key] = kept
		return false
	}
	r.buckets[accountID+"|"+key] = append(kept, now)
	return true
}
