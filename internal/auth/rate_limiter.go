package auth

import (
	"sync"
	"time"
)

// RateLimiter counts requests per user in fixed hourly buckets, not a
// sliding window. A burst straddling a bucket boundary can admit up to
// twice the nominal ceiling in a short interval.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]map[int64]int
	now     func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]map[int64]int),
		now:     time.Now,
	}
}

// Allow checks the role's hourly ceiling for the user and records the
// request when admitted. Unlimited roles always pass with no bookkeeping.
// A rejected request is not counted.
func (l *RateLimiter) Allow(userID, role string) bool {
	r, ok := Roles[role]
	if !ok {
		return false
	}
	if r.RateLimit == 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UTC()
	bucket := now.Truncate(time.Hour).Unix()
	cutoff := now.Add(-time.Hour).Unix()

	window, ok := l.windows[userID]
	if !ok {
		window = make(map[int64]int)
		l.windows[userID] = window
	}
	for ts := range window {
		if ts < cutoff {
			delete(window, ts)
		}
	}

	if window[bucket] >= r.RateLimit {
		return false
	}
	window[bucket]++
	return true
}
