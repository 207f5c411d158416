package locator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/psmatrix/blobstore"
	"github.com/hupe1980/psmatrix/internal/cache"
	"github.com/hupe1980/psmatrix/internal/resource"
	"github.com/hupe1980/psmatrix/partition"
)

// DefaultCacheBytes is the map cache capacity used when BlobOptions leaves it unset.
const DefaultCacheBytes = 16 << 20

// ErrVersionMismatch is returned when a published map does not belong to
// the matrix whose pointer references it.
var ErrVersionMismatch = errors.New("partition map does not match its pointer")

// CurrentPath returns the name of a matrix's version pointer.
func CurrentPath(matrixID int32) string {
	return fmt.Sprintf("matrices/%d/CURRENT", matrixID)
}

// MapPath returns the name of a published map version.
func MapPath(matrixID int32, version uint64) string {
	return fmt.Sprintf("matrices/%d/v%d.pmap", matrixID, version)
}

// BlobOptions configures a BlobLocator.
type BlobOptions struct {
	// Cache holds encoded maps. Defaults to an LRU of CacheBytes.
	Cache cache.BlobCache
	// CacheBytes sizes the default cache. Default: DefaultCacheBytes.
	CacheBytes int64
	// Resources accounts cache memory when the default cache is built.
	Resources *resource.Controller
	// PrefetchConcurrency bounds parallel fetches in Prefetch. Default: GOMAXPROCS.
	PrefetchConcurrency int
	// Logger receives debug events for fetches. Default: discard.
	Logger *slog.Logger
}

// BlobLocator resolves partition maps from a blobstore.
type BlobLocator struct {
	store  blobstore.BlobStore
	cache  cache.BlobCache
	limit  int
	logger *slog.Logger
	group  singleflight.Group
}

// NewBlobLocator creates a locator over store.
func NewBlobLocator(store blobstore.BlobStore, opts BlobOptions) *BlobLocator {
	if opts.CacheBytes <= 0 {
		opts.CacheBytes = DefaultCacheBytes
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewLRU(opts.CacheBytes, opts.Resources)
	}
	if opts.PrefetchConcurrency <= 0 {
		opts.PrefetchConcurrency = runtime.GOMAXPROCS(0)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &BlobLocator{
		store:  store,
		cache:  opts.Cache,
		limit:  opts.PrefetchConcurrency,
		logger: opts.Logger,
	}
}

// Current returns the live version of a matrix.
func (l *BlobLocator) Current(ctx context.Context, matrixID int32) (uint64, error) {
	b, err := blobstore.ReadAll(ctx, l.store, CurrentPath(matrixID))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return 0, fmt.Errorf("%w: %d", ErrUnknownMatrix, matrixID)
		}
		return 0, fmt.Errorf("locator: read pointer of matrix %d: %w", matrixID, err)
	}

	v, err := strconv.ParseUint(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("locator: matrix %d has a malformed pointer %q: %w", matrixID, b, err)
	}
	return v, nil
}

// LookupPartitions implements Locator.
func (l *BlobLocator) LookupPartitions(ctx context.Context, matrixID int32) (*partition.Map, error) {
	version, err := l.Current(ctx, matrixID)
	if err != nil {
		return nil, err
	}
	return l.Load(ctx, matrixID, version)
}

// Load returns a specific published version of a matrix's map.
func (l *BlobLocator) Load(ctx context.Context, matrixID int32, version uint64) (*partition.Map, error) {
	path := MapPath(matrixID, version)
	key := cache.CacheKey{
		Kind:     cache.CacheKindPartitionMap,
		MatrixID: matrixID,
		Version:  version,
		Path:     path,
	}

	data, ok := l.cache.Get(ctx, key)
	if !ok {
		// The fetch is shared by every caller of this version, so it must
		// outlive the first caller's cancellation. Each caller still stops
		// waiting when its own ctx ends.
		fetchCtx := context.WithoutCancel(ctx)
		ch := l.group.DoChan(path, func() (any, error) {
			b, err := blobstore.ReadAll(fetchCtx, l.store, path)
			if err != nil {
				return nil, err
			}
			l.cache.Set(fetchCtx, key, b)
			l.logger.DebugContext(fetchCtx, "fetched partition map",
				slog.Int("matrix_id", int(matrixID)),
				slog.Uint64("version", version),
				slog.Int("bytes", len(b)))
			return b, nil
		})

		var res singleflight.Result
		select {
		case res = <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if err := res.Err; err != nil {
			if errors.Is(err, blobstore.ErrNotFound) {
				return nil, fmt.Errorf("%w: %d version %d", ErrUnknownMatrix, matrixID, version)
			}
			return nil, fmt.Errorf("locator: fetch %s: %w", path, err)
		}
		data = res.Val.([]byte)
	}

	pm, err := partition.DecodeMap(data)
	if err != nil {
		return nil, fmt.Errorf("locator: decode %s: %w", path, err)
	}
	if pm.MatrixID() != matrixID {
		return nil, fmt.Errorf("%w: %s holds matrix %d", ErrVersionMismatch, path, pm.MatrixID())
	}
	return pm, nil
}

// Publish stores pm as the given version and moves the matrix pointer to it.
// A version is written once; republishing an existing version fails with
// blobstore.ErrExists unless the stored bytes are identical.
func (l *BlobLocator) Publish(ctx context.Context, pm *partition.Map, version uint64) error {
	data, err := pm.Encode()
	if err != nil {
		return fmt.Errorf("locator: encode matrix %d: %w", pm.MatrixID(), err)
	}

	path := MapPath(pm.MatrixID(), version)
	if err := blobstore.PutIfNotExists(ctx, l.store, path, data); err != nil {
		if !errors.Is(err, blobstore.ErrExists) {
			return fmt.Errorf("locator: publish %s: %w", path, err)
		}
		existing, rerr := blobstore.ReadAll(ctx, l.store, path)
		if rerr != nil || !slices.Equal(existing, data) {
			return fmt.Errorf("locator: publish %s: %w", path, err)
		}
	}

	if err := l.store.Put(ctx, CurrentPath(pm.MatrixID()), []byte(strconv.FormatUint(version, 10))); err != nil {
		return fmt.Errorf("locator: move pointer of matrix %d: %w", pm.MatrixID(), err)
	}

	l.logger.InfoContext(ctx, "published partition map",
		slog.Int("matrix_id", int(pm.MatrixID())),
		slog.Uint64("version", version),
		slog.Int("partitions", pm.Len()))
	return nil
}

// Versions lists the published versions of a matrix in ascending order.
func (l *BlobLocator) Versions(ctx context.Context, matrixID int32) ([]uint64, error) {
	dir := fmt.Sprintf("matrices/%d/", matrixID)
	names, err := l.store.List(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("locator: list %s: %w", dir, err)
	}

	var versions []uint64
	for _, name := range names {
		base, ok := strings.CutPrefix(name, dir+"v")
		if !ok {
			continue
		}
		num, ok := strings.CutSuffix(base, ".pmap")
		if !ok {
			continue
		}
		if v, err := strconv.ParseUint(num, 10, 64); err == nil {
			versions = append(versions, v)
		}
	}
	slices.Sort(versions)
	return versions, nil
}

// Prefetch resolves the current maps of several matrices in parallel so
// later lookups only read pointers. It stops at the first failure.
func (l *BlobLocator) Prefetch(ctx context.Context, matrixIDs []int32) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.limit)

	for _, id := range matrixIDs {
		g.Go(func() error {
			_, err := l.LookupPartitions(ctx, id)
			return err
		})
	}
	return g.Wait()
}

// Invalidate drops every cached version of a matrix.
func (l *BlobLocator) Invalidate(matrixID int32) {
	l.cache.Invalidate(func(k cache.CacheKey) bool {
		return k.Kind == cache.CacheKindPartitionMap && k.MatrixID == matrixID
	})
}

// CacheStats returns hits and misses of the map cache.
func (l *BlobLocator) CacheStats() (hits, misses int64) {
	return l.cache.Stats()
}
