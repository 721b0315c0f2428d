// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Budget caps.
	MaxTotalBudgetSeconds float64
	MaxSources            int
	MaxTotalResults       int // Cap on the sum of per-source result limits.

	// Adjudicator settings.
	AdjudicatorProvider string // "auto", "openai", "ollama", "rules", or "noop"
	OpenAIAPIKey        string
	OpenAIModel         string
	OllamaURL           string
	OllamaModel         string

	// Result cache settings.
	CachePath string        // SQLite file path; empty disables caching.
	CacheTTL  time.Duration // Entries older than this are evicted on read.

	// Rate limiting.
	RateLimitPerSource float64 // Sustained searches per second per source.
	RateLimitBurst     int

	// Hallucination firewall.
	StrictCitations bool

	// OTEL settings.
	OTELEndpoint string
	ServiceName  string

	// Operational settings.
	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		MaxTotalBudgetSeconds: envFloat("KEIFU_MAX_BUDGET_SECONDS", 300),
		MaxSources:            envInt("KEIFU_MAX_SOURCES", 20),
		MaxTotalResults:       envInt("KEIFU_MAX_TOTAL_RESULTS", 500),
		AdjudicatorProvider:   envStr("KEIFU_ADJUDICATOR_PROVIDER", "auto"),
		OpenAIAPIKey:          envStr("OPENAI_API_KEY", ""),
		OpenAIModel:           envStr("KEIFU_OPENAI_MODEL", "gpt-4o-mini"),
		OllamaURL:             envStr("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:           envStr("OLLAMA_MODEL", "llama3.1"),
		CachePath:             envStr("KEIFU_CACHE_PATH", ""),
		CacheTTL:              envDuration("KEIFU_CACHE_TTL", time.Hour),
		RateLimitPerSource:    envFloat("KEIFU_RATE_LIMIT_PER_SOURCE", 2),
		RateLimitBurst:        envInt("KEIFU_RATE_LIMIT_BURST", 4),
		StrictCitations:       envBool("KEIFU_STRICT_CITATIONS", true),
		OTELEndpoint:          envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:           envStr("OTEL_SERVICE_NAME", "keifu"),
		LogLevel:              envStr("KEIFU_LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present and coherent.
func (c Config) Validate() error {
	if c.MaxTotalBudgetSeconds <= 0 {
		return fmt.Errorf("config: KEIFU_MAX_BUDGET_SECONDS must be positive")
	}
	if c.MaxSources <= 0 {
		return fmt.Errorf("config: KEIFU_MAX_SOURCES must be positive")
	}
	if c.MaxTotalResults <= 0 {
		return fmt.Errorf("config: KEIFU_MAX_TOTAL_RESULTS must be positive")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("config: KEIFU_CACHE_TTL must be positive")
	}
	switch c.AdjudicatorProvider {
	case "auto", "openai", "ollama", "rules", "noop":
	default:
		return fmt.Errorf("config: unknown KEIFU_ADJUDICATOR_PROVIDER %q", c.AdjudicatorProvider)
	}
	if c.AdjudicatorProvider == "openai" && c.OpenAIAPIKey == "" {
		return fmt.Errorf("config: OPENAI_API_KEY is required when KEIFU_ADJUDICATOR_PROVIDER=openai")
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
