package blobstore

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/psmatrix/internal/cache"
)

type countingStore struct {
	*MemoryStore
	opens atomic.Int64
}

func (c *countingStore) Open(ctx context.Context, name string) (Blob, error) {
	c.opens.Add(1)
	return c.MemoryStore.Open(ctx, name)
}

func TestCachingStore_Open(t *testing.T) {
	ctx := t.Context()
	inner := &countingStore{MemoryStore: NewMemoryStore()}
	require.NoError(t, inner.Put(ctx, "matrices/1/v1.pmap", []byte("map-v1")))

	store := NewCachingStore(inner, cache.NewLRU(1<<20, nil), nil)

	for range 3 {
		got, err := ReadAll(ctx, store, "matrices/1/v1.pmap")
		require.NoError(t, err)
		assert.Equal(t, "map-v1", string(got))
	}

	assert.Equal(t, int64(1), inner.opens.Load())
	hits, misses := store.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)
}

func TestCachingStore_NotFound(t *testing.T) {
	store := NewCachingStore(NewMemoryStore(), cache.NewLRU(1<<20, nil), nil)

	_, err := store.Open(t.Context(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCachingStore_PutInvalidates(t *testing.T) {
	ctx := t.Context()
	inner := &countingStore{MemoryStore: NewMemoryStore()}
	store := NewCachingStore(inner, cache.NewLRU(1<<20, nil), nil)

	require.NoError(t, store.Put(ctx, "x", []byte("one")))
	got, err := ReadAll(ctx, store, "x")
	require.NoError(t, err)
	assert.Equal(t, "one", string(got))

	require.NoError(t, store.Put(ctx, "x", []byte("two")))
	got, err = ReadAll(ctx, store, "x")
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))

	require.NoError(t, store.Delete(ctx, "x"))
	_, err = store.Open(ctx, "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCachingStore_Uncacheable(t *testing.T) {
	ctx := t.Context()
	inner := &countingStore{MemoryStore: NewMemoryStore()}
	require.NoError(t, inner.Put(ctx, "matrices/1/CURRENT", []byte("1")))

	store := NewCachingStore(inner, cache.NewLRU(1<<20, nil), func(name string) bool {
		return !strings.HasSuffix(name, "/CURRENT")
	})

	for range 2 {
		_, err := ReadAll(ctx, store, "matrices/1/CURRENT")
		require.NoError(t, err)
	}
	// Each ReadAll opens the inner store once.
	assert.Equal(t, int64(2), inner.opens.Load())

	hits, misses := store.Stats()
	assert.Zero(t, hits)
	assert.Zero(t, misses)
}
