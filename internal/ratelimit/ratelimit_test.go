package ratelimit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keifu-ai/keifu/internal/ratelimit"
)

func TestMemoryLimiterBurst(t *testing.T) {
	ctx := context.Background()
	// 1 token/s refill is irrelevant here; the burst governs.
	limiter := ratelimit.NewMemoryLimiter(1, 3)

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "arkivdigital")
		require.NoError(t, err)
		assert.True(t, ok, "request %d within burst", i+1)
	}

	ok, err := limiter.Allow(ctx, "arkivdigital")
	require.NoError(t, err)
	assert.False(t, ok, "burst exhausted")
}

func TestMemoryLimiterPerSourceBuckets(t *testing.T) {
	ctx := context.Background()
	limiter := ratelimit.NewMemoryLimiter(1, 1)

	ok, err := limiter.Allow(ctx, "source-a")
	require.NoError(t, err)
	assert.True(t, ok)

	// source-a is drained, source-b has its own bucket.
	ok, _ = limiter.Allow(ctx, "source-a")
	assert.False(t, ok)
	ok, _ = limiter.Allow(ctx, "source-b")
	assert.True(t, ok)
}

func TestNoopLimiterAlwaysAllows(t *testing.T) {
	ctx := context.Background()
	limiter := ratelimit.NoopLimiter{}

	for i := 0; i < 100; i++ {
		ok, err := limiter.Allow(ctx, "anything")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.NoError(t, limiter.Close())
}
