package cache_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keifu-ai/keifu/internal/cache"
	"github.com/keifu-ai/keifu/internal/model"
	"github.com/keifu-ai/keifu/internal/testutil"
)

func newStore(t *testing.T, ttl time.Duration) *cache.SQLiteStore {
	t.Helper()
	store, err := cache.NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"), ttl, testutil.Logger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestQueryKeyDeterministic(t *testing.T) {
	q := model.SearchQuery{Surname: "Lindqvist", BirthYear: model.YearRange{Year: 1882}}
	assert.Equal(t, cache.QueryKey(q), cache.QueryKey(q))
	assert.Len(t, cache.QueryKey(q), 32)

	other := model.SearchQuery{Surname: "Lindquist", BirthYear: model.YearRange{Year: 1882}}
	assert.NotEqual(t, cache.QueryKey(q), cache.QueryKey(other))
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, time.Hour)

	records := []model.RawRecord{
		testutil.Record("arkivdigital", "r1", map[string]string{"full_name": "Erik Lindqvist"}),
	}
	require.NoError(t, store.Put(ctx, "arkivdigital", "key1", records))

	got, hit, err := store.Get(ctx, "arkivdigital", "key1")
	require.NoError(t, err)
	require.True(t, hit)
	require.Len(t, got, 1)
	assert.Equal(t, "Erik Lindqvist", got[0].ExtractedFields["full_name"])
}

func TestGetMiss(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, time.Hour)

	_, hit, err := store.Get(ctx, "arkivdigital", "nope")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestGetScopedBySource(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, time.Hour)

	records := []model.RawRecord{testutil.Record("a", "r1", nil)}
	require.NoError(t, store.Put(ctx, "source-a", "key", records))

	_, hit, err := store.Get(ctx, "source-b", "key")
	require.NoError(t, err)
	assert.False(t, hit, "same key under a different source must miss")
}

func TestPutReplaces(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, time.Hour)

	require.NoError(t, store.Put(ctx, "s", "k", []model.RawRecord{testutil.Record("s", "old", nil)}))
	require.NoError(t, store.Put(ctx, "s", "k", []model.RawRecord{testutil.Record("s", "new", nil)}))

	got, hit, err := store.Get(ctx, "s", "k")
	require.NoError(t, err)
	require.True(t, hit)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].RecordID)
}

func TestTTLExpiry(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, time.Nanosecond)

	require.NoError(t, store.Put(ctx, "s", "k", []model.RawRecord{testutil.Record("s", "r1", nil)}))
	time.Sleep(10 * time.Millisecond)

	_, hit, err := store.Get(ctx, "s", "k")
	require.NoError(t, err)
	assert.False(t, hit, "expired entry must miss")
}
