package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// MemoryLimiter paces searches with one x/time token bucket per source name.
// All sources share the same refill rate and burst capacity. Source names are
// bounded by registration, so limiters are never evicted.
type MemoryLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewMemoryLimiter creates a per-source limiter.
//   - perSecond: sustained searches per second per source
//   - burst: maximum burst size
func NewMemoryLimiter(perSecond float64, burst int) *MemoryLimiter {
	return &MemoryLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether a search attempt against the source may proceed now.
// False means the attempt should be delayed, not dropped.
func (m *MemoryLimiter) Allow(_ context.Context, source string) (bool, error) {
	m.mu.Lock()
	l, ok := m.limiters[source]
	if !ok {
		l = rate.NewLimiter(m.limit, m.burst)
		m.limiters[source] = l
	}
	m.mu.Unlock()
	return l.Allow(), nil
}

// Close releases nothing; present to satisfy Limiter.
func (m *MemoryLimiter) Close() error { return nil }
