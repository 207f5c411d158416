package cache

import "context"

// CacheKind is used to separate key spaces.
type CacheKind uint8

const (
	CacheKindUnknown      CacheKind = iota
	CacheKindBlob                   // generic immutable blob contents
	CacheKindPartitionMap           // encoded partition maps
)

// CacheKey identifies a cached blob. Cached values must be immutable, so
// mutable objects (pointers such as CURRENT) are never cached.
type CacheKey struct {
	Kind CacheKind
	// MatrixID and Version are optional; set for partition maps.
	MatrixID int32
	Version  uint64
	// Path identifies the source blob.
	Path string
}

// BlobCache is a byte-oriented cache for immutable blobs.
// Returned slices must be treated as read-only.
type BlobCache interface {
	// Get returns a cached blob. ok=false if missing.
	Get(ctx context.Context, key CacheKey) (b []byte, ok bool)
	// Set caches a blob. The cache retains b; callers must not modify it.
	Set(ctx context.Context, key CacheKey, b []byte)
	// Invalidate removes entries matching the predicate.
	Invalidate(predicate func(key CacheKey) bool)
	// Close releases any resources held by the cache.
	Close() error
	// Stats returns cache statistics.
	Stats() (hits, misses int64)
}
