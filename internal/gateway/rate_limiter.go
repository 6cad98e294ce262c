package gateway

import (
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter caps inbound RPC frames per client using a token bucket per
// connection id, refilled at rpm/60 tokens per second with a small burst.
type RateLimiter struct {
	rpm     int
	burst   int
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// NewRateLimiter builds a limiter. rpm<=0 disables limiting entirely.
func NewRateLimiter(rpm int, burst int) *RateLimiter {
	return &RateLimiter{rpm: rpm, burst: burst, buckets: make(map[string]*rate.Limiter)}
}

// Enabled reports whether rate limiting is active.
func (l *RateLimiter) Enabled() bool { return l.rpm > 0 }

// Allow reports whether clientID may send another frame right now.
func (l *RateLimiter) Allow(clientID string) bool {
	if !l.Enabled() {
		return true
	}
	l.mu.Lock()
	b, ok := l.buckets[clientID]
	if !ok {
		b = rate.NewLimiter(rate.Limit(float64(l.rpm)/60.0), l.burst)
		l.buckets[clientID] = b
	}
	l.mu.Unlock()
	return b.Allow()
}
