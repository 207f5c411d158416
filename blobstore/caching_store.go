package blobstore

import (
	"context"

	"github.com/hupe1980/psmatrix/internal/cache"
)

// CachingStore wraps a BlobStore and keeps whole blobs in a cache.
//
// Only names accepted by the cacheable predicate are cached; everything else
// (for example mutable CURRENT pointers) passes straight through. Writes and
// deletes invalidate the cached copy.
type CachingStore struct {
	inner     BlobStore
	cache     cache.BlobCache
	cacheable func(name string) bool
}

// NewCachingStore creates a new caching store. A nil cacheable caches every blob.
func NewCachingStore(inner BlobStore, c cache.BlobCache, cacheable func(name string) bool) *CachingStore {
	if cacheable == nil {
		cacheable = func(string) bool { return true }
	}
	return &CachingStore{
		inner:     inner,
		cache:     c,
		cacheable: cacheable,
	}
}

func blobKey(name string) cache.CacheKey {
	return cache.CacheKey{Kind: cache.CacheKindBlob, Path: name}
}

// Open returns the cached blob if present, otherwise reads it through.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	if !s.cacheable(name) {
		return s.inner.Open(ctx, name)
	}

	key := blobKey(name)
	if data, ok := s.cache.Get(ctx, key); ok {
		return &memoryBlob{data: data}, nil
	}

	data, err := ReadAll(ctx, s.inner, name)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, data)

	return &memoryBlob{data: data}, nil
}

// Put writes through to the underlying store.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.invalidate(name)
	return s.inner.Put(ctx, name, data)
}

// PutIfNotExists forwards to the underlying store when it supports
// conditional writes and otherwise falls back to an existence check.
func (s *CachingStore) PutIfNotExists(ctx context.Context, name string, data []byte) error {
	s.invalidate(name)
	if cp, ok := s.inner.(ConditionalPutter); ok {
		return cp.PutIfNotExists(ctx, name, data)
	}
	return putIfAbsent(ctx, s.inner, name, data)
}

// Delete deletes from the underlying store.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.invalidate(name)
	return s.inner.Delete(ctx, name)
}

// List lists blobs from the underlying store.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// Stats returns cache hits and misses.
func (s *CachingStore) Stats() (hits, misses int64) {
	return s.cache.Stats()
}

func (s *CachingStore) invalidate(name string) {
	key := blobKey(name)
	s.cache.Invalidate(func(k cache.CacheKey) bool { return k == key })
}
