// Package ratelimit paces outbound source searches.
//
// Genealogy sites throttle aggressive clients, so the executor asks the
// limiter before each search attempt. The key space is the set of source
// names, which are small and bounded, so the in-memory limiter keeps one token
// bucket per source with no eviction.
package ratelimit

import "context"

// Limiter decides whether a search attempt against a source should proceed.
// Implementations must be safe for concurrent use. Errors signal a limiter
// malfunction; callers treat errors as fail-open rather than blocking runs.
type Limiter interface {
	Allow(ctx context.Context, source string) (bool, error)
	Close() error
}

// NoopLimiter permits every attempt. Used when pacing is disabled.
type NoopLimiter struct{}

// Allow always returns true.
func (NoopLimiter) Allow(context.Context, string) (bool, error) { return true, nil }

// Close is a no-op.
func (NoopLimiter) Close() error { return nil }
