package server

import (
	"sync"
	"time"
)

// rateLimiter counts requests per key in fixed windows. It protects the
// write endpoints from a runaway client; it is not a fairness scheduler.
type rateLimiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	counts  map[string]int
	windowN int64
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:  limit,
		window: window,
		counts: make(map[string]int),
	}
}

// Allow records one request for key and reports whether it fits in the
// current window. All counters reset together when the window rolls over.
func (r *rateLimiter) Allow(key string) bool {
	if key == "" {
		return false
	}

	n := time.Now().UnixNano() / int64(r.window)
	r.mu.Lock()
	defer r.mu.Unlock()

	if n != r.windowN {
		r.windowN = n
		clear(r.counts)
	}
	if r.counts[key] >= r.limit {
		return false
	}
	r.counts[key]++
	return true
}
