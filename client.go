package psmatrix

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/hupe1980/psmatrix/dispatch"
	"github.com/hupe1980/psmatrix/internal/resource"
	"github.com/hupe1980/psmatrix/locator"
	"github.com/hupe1980/psmatrix/merger"
	"github.com/hupe1980/psmatrix/model"
	"github.com/hupe1980/psmatrix/partition"
	"github.com/hupe1980/psmatrix/protocol"
	"github.com/hupe1980/psmatrix/result"
	"github.com/hupe1980/psmatrix/splitter"
)

// Client performs partition-aware reads and writes against a partitioned
// matrix store. It is safe for concurrent use.
type Client struct {
	locator locator.Locator
	coord   *dispatch.Coordinator
	rc      *resource.Controller
	metrics MetricsCollector
	logger  *Logger
	closed  atomic.Bool
}

// New creates a Client resolving partitions through loc and reaching shards
// through t.
func New(loc locator.Locator, t dispatch.Transport, optFns ...Option) *Client {
	o := applyOptions(optFns)

	rc := resource.NewController(resource.Config{
		MemoryLimitBytes:     o.memoryLimit,
		MaxInFlight:          o.maxInFlight,
		BandwidthBytesPerSec: o.bandwidth,
	})

	coord := dispatch.New(t, dispatch.Options{
		Timeout:     o.timeout,
		Compression: o.compression,
		FailFast:    o.failFast,
		Resources:   rc,
		Logger:      o.logger.Logger,
		Observer:    callObserver{mc: o.metricsCollector},
	})

	return &Client{
		locator: loc,
		coord:   coord,
		rc:      rc,
		metrics: o.metricsCollector,
		logger:  o.logger,
	}
}

// Close marks the client closed. In-flight operations complete normally.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	return nil
}

// InFlight returns the number of partition calls currently outstanding.
func (c *Client) InFlight() int64 {
	return c.rc.InFlight()
}

// IndexedGet reads the given column indices of row 0 of a matrix, the usual
// layout of a parameter vector. See IndexedGetRow.
func (c *Client) IndexedGet(ctx context.Context, matrixID int32, indices []int64, t model.ElemType) (*GlobalResult, error) {
	return c.IndexedGetRow(ctx, matrixID, 0, indices, t)
}

// IndexedGetRow reads the given column indices of one row. Indices may be
// unsorted and may repeat; the result follows their order. On any partition
// failure it returns a *PartialFailureError and no result.
func (c *Client) IndexedGetRow(ctx context.Context, matrixID int32, row int64, indices []int64, t model.ElemType) (*GlobalResult, error) {
	start := time.Now()
	res, parts, err := c.indexedGet(ctx, matrixID, row, indices, t)
	err = translateError(err)

	c.metrics.RecordGet(len(indices), time.Since(start), err)
	c.logger.LogGet(ctx, "indexed get", matrixID, len(indices), parts, err)
	return res, err
}

func (c *Client) indexedGet(ctx context.Context, matrixID int32, row int64, indices []int64, t model.ElemType) (*GlobalResult, int, error) {
	if err := c.check(t); err != nil {
		return nil, 0, err
	}
	pm, err := c.lookup(ctx, matrixID)
	if err != nil {
		return nil, 0, err
	}

	split, err := splitter.SplitIndices(pm, row, indices)
	if err != nil {
		return nil, 0, err
	}

	release, err := c.reserve(ctx, int64(len(indices))*int64(t.Width()))
	if err != nil {
		return nil, len(split.Subs), err
	}
	defer release()

	reqs := make([]*protocol.Request, len(split.Subs))
	for i, sub := range split.Subs {
		reqs[i] = &protocol.Request{
			Op:       protocol.OpIndexGet,
			ElemType: t,
			Key:      sub.Key,
			Row:      row,
			Indices:  sub.Indices,
		}
	}

	results, err := c.dispatch(ctx, reqs)
	if err != nil {
		return nil, len(reqs), err
	}

	vals, err := merger.MergeValues(split, t, results)
	if err != nil {
		return nil, len(reqs), err
	}

	return &GlobalResult{
		MatrixID: matrixID,
		Row:      row,
		Indices:  slices.Clone(indices),
		Values:   vals,
	}, len(reqs), nil
}

// GetRows reads whole rows. Every column partition of a row's band is asked
// for its segment and the segments are joined in column order.
func (c *Client) GetRows(ctx context.Context, matrixID int32, rows []int64, t model.ElemType) (*RowsResult, error) {
	start := time.Now()
	res, parts, err := c.getRows(ctx, matrixID, rows, t)
	err = translateError(err)

	c.metrics.RecordGet(len(rows), time.Since(start), err)
	c.logger.LogGet(ctx, "get rows", matrixID, len(rows), parts, err)
	return res, err
}

func (c *Client) getRows(ctx context.Context, matrixID int32, rows []int64, t model.ElemType) (*RowsResult, int, error) {
	if err := c.check(t); err != nil {
		return nil, 0, err
	}
	pm, err := c.lookup(ctx, matrixID)
	if err != nil {
		return nil, 0, err
	}

	split, err := splitter.SplitRows(pm, rows)
	if err != nil {
		return nil, 0, err
	}

	release, err := c.reserve(ctx, int64(len(rows))*pm.Cols()*int64(t.Width()))
	if err != nil {
		return nil, len(split.Subs), err
	}
	defer release()

	reqs := make([]*protocol.Request, len(split.Subs))
	for i, sub := range split.Subs {
		reqs[i] = &protocol.Request{
			Op:       protocol.OpGetRows,
			ElemType: t,
			Key:      sub.Key,
			Indices:  sub.Indices,
		}
	}

	results, err := c.dispatch(ctx, reqs)
	if err != nil {
		return nil, len(reqs), err
	}

	vals, err := merger.MergeRows(split, t, pm.Cols(), results)
	if err != nil {
		return nil, len(reqs), err
	}

	return &RowsResult{
		MatrixID: matrixID,
		Rows:     slices.Clone(rows),
		Cols:     pm.Cols(),
		Values:   vals,
	}, len(reqs), nil
}

// PullPathTail fetches the recorded path tails of the given keys. Each key
// is a row id served by the first partition of its band. Keys without a
// recorded path are absent from the returned map.
func (c *Client) PullPathTail(ctx context.Context, matrixID int32, keys []int64) (map[int64][]int64, error) {
	start := time.Now()
	paths, parts, err := c.pullPathTail(ctx, matrixID, keys)
	err = translateError(err)

	c.metrics.RecordGet(len(keys), time.Since(start), err)
	c.logger.LogGet(ctx, "pull path tail", matrixID, len(keys), parts, err)
	return paths, err
}

func (c *Client) pullPathTail(ctx context.Context, matrixID int32, keys []int64) (map[int64][]int64, int, error) {
	if c.closed.Load() {
		return nil, 0, ErrClosed
	}
	pm, err := c.lookup(ctx, matrixID)
	if err != nil {
		return nil, 0, err
	}

	split, err := splitter.SplitKeys(pm, keys)
	if err != nil {
		return nil, 0, err
	}

	reqs := make([]*protocol.Request, len(split.Subs))
	for i, sub := range split.Subs {
		reqs[i] = &protocol.Request{
			Op:       protocol.OpPullPathTail,
			ElemType: model.ElemLong,
			Key:      sub.Key,
			Indices:  sub.Indices,
		}
	}

	results, err := c.dispatch(ctx, reqs)
	if err != nil {
		return nil, len(reqs), err
	}

	paths, err := merger.MergePaths(split, results)
	if err != nil {
		return nil, len(reqs), err
	}
	return paths, len(reqs), nil
}

// IndexedUpdate applies values to the given column indices of one row.
// values[i] goes to indices[i]; with UpdateAdd repeated indices accumulate.
// It returns the number of applied entries. On partial failure the
// partitions not listed in the error have applied their share.
func (c *Client) IndexedUpdate(ctx context.Context, matrixID int32, row int64, indices []int64, values model.Values, op model.UpdateOp) (int, error) {
	start := time.Now()
	applied, err := c.indexedUpdate(ctx, matrixID, row, indices, values, op)
	err = translateError(err)

	c.metrics.RecordUpdate(len(indices), time.Since(start), err)
	c.logger.LogUpdate(ctx, matrixID, applied, err)
	return applied, err
}

func (c *Client) indexedUpdate(ctx context.Context, matrixID int32, row int64, indices []int64, values model.Values, op model.UpdateOp) (int, error) {
	if err := c.check(values.Type); err != nil {
		return 0, err
	}
	if !op.Valid() {
		return 0, fmt.Errorf("%w: update op %d", ErrInvalidArgument, op)
	}
	if values.Len() != len(indices) {
		return 0, fmt.Errorf("%w: %d values for %d indices", ErrInvalidArgument, values.Len(), len(indices))
	}

	pm, err := c.lookup(ctx, matrixID)
	if err != nil {
		return 0, err
	}

	split, err := splitter.SplitIndices(pm, row, indices)
	if err != nil {
		return 0, err
	}

	shares, err := split.Gather(values)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	reqs := make([]*protocol.Request, len(split.Subs))
	for i, sub := range split.Subs {
		reqs[i] = &protocol.Request{
			Op:       protocol.OpIndexUpdate,
			ElemType: values.Type,
			Key:      sub.Key,
			Row:      row,
			Indices:  sub.Indices,
			UpdateOp: op,
			Values:   shares[i],
		}
	}

	results, err := c.dispatch(ctx, reqs)
	if err != nil {
		return 0, err
	}
	return merger.CountAcks(split, results)
}

func (c *Client) check(t model.ElemType) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if !t.Valid() {
		return fmt.Errorf("%w: element type %d", ErrInvalidArgument, t)
	}
	return nil
}

func (c *Client) lookup(ctx context.Context, matrixID int32) (*partition.Map, error) {
	pm, err := c.locator.LookupPartitions(ctx, matrixID)
	if err != nil {
		return nil, fmt.Errorf("lookup partitions of matrix %d: %w", matrixID, err)
	}
	return pm, nil
}

// reserve accounts the result buffer against the memory limit.
func (c *Client) reserve(ctx context.Context, n int64) (func(), error) {
	if err := c.rc.AcquireMemory(ctx, n); err != nil {
		return nil, fmt.Errorf("reserve %d bytes for results: %w", n, err)
	}
	return func() { c.rc.ReleaseMemory(n) }, nil
}

func (c *Client) dispatch(ctx context.Context, reqs []*protocol.Request) ([]result.PartitionResult, error) {
	results, err := c.coord.Dispatch(ctx, reqs)
	if err != nil {
		var pf *dispatch.PartialFailureError
		if errors.As(err, &pf) {
			c.metrics.RecordPartialFailure(len(pf.Failures), pf.Total)
			for _, f := range pf.Failures {
				c.logger.LogPartitionFailure(ctx, f.Key, f.Err)
			}
		}
		return nil, err
	}
	return results, nil
}
