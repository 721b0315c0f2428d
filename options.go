package keifu

import (
	"log/slog"
	"time"
)

// Option configures an App.
type Option func(*resolvedOptions)

// resolvedOptions holds all extension points after applying defaults.
// Unexported; callers use the With* functions.
type resolvedOptions struct {
	logger          *slog.Logger
	version         string
	sources         []Source
	adjudicator     Adjudicator
	caps            *BudgetCaps
	cachePath       string
	cacheTTL        time.Duration
	rateLimitRPS    float64
	rateLimitBurst  int
	rateLimitSet    bool
	strictCitations *bool
}

// WithLogger sets the structured logger for the App.
// If not set, the default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithVersion sets the version string reported in logs and the MCP server.
func WithVersion(version string) Option {
	return func(o *resolvedOptions) { o.version = version }
}

// WithSource registers a genealogical data source. Multiple sources may be
// registered; duplicate names fail New().
func WithSource(s Source) Option {
	return func(o *resolvedOptions) { o.sources = append(o.sources, s) }
}

// WithAdjudicator replaces the auto-detected conflict adjudicator
// (Ollama/OpenAI/rules). Only the last call wins.
func WithAdjudicator(a Adjudicator) Option {
	return func(o *resolvedOptions) { o.adjudicator = a }
}

// WithBudgetCaps overrides the budget caps from config (KEIFU_MAX_* env vars).
// Zero-valued fields keep their configured values.
func WithBudgetCaps(caps BudgetCaps) Option {
	return func(o *resolvedOptions) { o.caps = &caps }
}

// WithResultCache enables the on-disk search result cache at path
// (KEIFU_CACHE_PATH env var). ttl <= 0 keeps the configured TTL.
func WithResultCache(path string, ttl time.Duration) Option {
	return func(o *resolvedOptions) {
		o.cachePath = path
		o.cacheTTL = ttl
	}
}

// WithRateLimit overrides per-source search pacing: rps sustained searches
// per second with the given burst. rps <= 0 disables rate limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *resolvedOptions) {
		o.rateLimitRPS = rps
		o.rateLimitBurst = burst
		o.rateLimitSet = true
	}
}

// WithStrictCitations toggles the hallucination firewall
// (KEIFU_STRICT_CITATIONS env var). When strict, an extracted claim whose
// citation snippet does not occur in its source text is discarded.
func WithStrictCitations(strict bool) Option {
	return func(o *resolvedOptions) { o.strictCitations = &strict }
}
