package tools

import (
	"sync"

	"golang.org/x/time/rate"
)

// ToolRateLimiter caps how often any single tool name can run, independent
// of the gateway's per-client connection limiter.
type ToolRateLimiter struct {
	perHour float64
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// NewToolRateLimiter builds a limiter allowing perHour calls per tool name,
// refilled continuously, with a burst of up to 1/6th of the hourly quota
// (minimum 1) so a tool isn't starved by a single dense burst of calls.
func NewToolRateLimiter(perHour int) *ToolRateLimiter {
	burst := perHour / 6
	if burst < 1 {
		burst = 1
	}
	return &ToolRateLimiter{
		perHour: float64(perHour),
		buckets: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether another call to the named tool is permitted now.
func (l *ToolRateLimiter) Allow(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[name]
	if !ok {
		burst := int(l.perHour / 6)
		if burst < 1 {
			burst = 1
		}
		b = rate.NewLimiter(rate.Limit(l.perHour/3600.0), burst)
		l.buckets[name] = b
	}
	return b.Allow()
}
