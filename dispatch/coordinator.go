package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/hupe1980/psmatrix/codec"
	"github.com/hupe1980/psmatrix/internal/resource"
	"github.com/hupe1980/psmatrix/partition"
	"github.com/hupe1980/psmatrix/protocol"
	"github.com/hupe1980/psmatrix/result"
)

// DefaultTimeout bounds a fan-out whose context carries no deadline.
const DefaultTimeout = 5 * time.Second

// DefaultCompressThreshold is the smallest request body that gets compressed.
const DefaultCompressThreshold = 4 << 10

// Transport delivers one request frame to a shard and returns its reply frame.
// Implementations must honor ctx cancellation.
type Transport interface {
	Send(ctx context.Context, addr string, frame []byte) ([]byte, error)
}

// Observer receives one callback per completed partition call, including
// calls that finish after the fan-out gave up on them. It must be safe for
// concurrent use.
type Observer interface {
	ObservePartitionCall(key partition.Key, op protocol.Op, d time.Duration, sent, recv int, err error)
}

// Options configures a Coordinator.
type Options struct {
	// Timeout applies when the caller's context has no deadline.
	// Zero means DefaultTimeout.
	Timeout time.Duration

	// Compression is applied to request bodies of at least CompressThreshold bytes.
	Compression       codec.Compression
	CompressThreshold int

	// FailFast abandons the remaining partitions after the first failure.
	FailFast bool

	// Resources bounds in-flight calls and outbound bandwidth. May be nil.
	Resources *resource.Controller

	Logger   *slog.Logger
	Observer Observer
}

// Coordinator issues partition calls concurrently. It is safe for concurrent use.
type Coordinator struct {
	transport Transport
	opts      Options
	logger    *slog.Logger
}

// requestIDs is shared by every Coordinator in the process, so two clients
// on one transport never put the same id on the wire.
var requestIDs atomic.Uint64

// New creates a Coordinator sending over t.
func New(t Transport, opts Options) *Coordinator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.CompressThreshold <= 0 {
		opts.CompressThreshold = DefaultCompressThreshold
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Coordinator{transport: t, opts: opts, logger: logger}
}

type outcome struct {
	i   int
	res result.PartitionResult
	err error
}

// Dispatch sends every request concurrently and returns the results aligned
// with reqs. Each request's ID is assigned by Dispatch. On any failure it
// returns a *PartialFailureError and no results.
func (c *Coordinator) Dispatch(ctx context.Context, reqs []*protocol.Request) ([]result.PartitionResult, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	// fanCtx is canceled on return so abandoned calls release their
	// resources even when the deadline has not fired yet.
	fanCtx, cancelFan := context.WithCancel(ctx)
	defer cancelFan()

	// Buffered so abandoned goroutines never block on send.
	resultsCh := make(chan outcome, len(reqs))
	for i, req := range reqs {
		req.ID = requestIDs.Add(1)
		go func() {
			res, err := c.call(fanCtx, req)
			resultsCh <- outcome{i: i, res: res, err: err}
		}()
	}

	results, errs := c.gather(ctx, resultsCh, len(reqs))
	if !slices.ContainsFunc(errs, func(err error) bool { return err != nil }) {
		return results, nil
	}

	pf := &PartialFailureError{MatrixID: reqs[0].Key.MatrixID, Total: len(reqs)}
	for i, err := range errs {
		if err == nil {
			continue
		}
		pf.Failures = append(pf.Failures, PartitionError{Key: reqs[i].Key, Err: err})
		c.logger.Debug("partition call failed",
			"matrix", reqs[i].Key.MatrixID,
			"partition", reqs[i].Key.PartitionID,
			"addr", reqs[i].Key.Addr,
			"op", reqs[i].Op.String(),
			"request_id", reqs[i].ID,
			"error", err,
		)
	}
	return nil, pf
}

// gather collects n outcomes until all arrived, the deadline passed or, in
// fail-fast mode, one failed. Partitions without an outcome get the reason
// collection stopped as their error.
func (c *Coordinator) gather(ctx context.Context, resultsCh <-chan outcome, n int) ([]result.PartitionResult, []error) {
	results := make([]result.PartitionResult, n)
	errs := make([]error, n)
	done := make([]bool, n)
	pending := n
	var abandoned error

	// record stores one outcome and reports whether collection should stop.
	record := func(o outcome) bool {
		done[o.i] = true
		pending--
		if o.err != nil {
			errs[o.i] = o.err
			if c.opts.FailFast {
				abandoned = ErrCanceled
				return true
			}
			return false
		}
		results[o.i] = o.res
		return false
	}

collect:
	for pending > 0 {
		select {
		case o := <-resultsCh:
			if record(o) {
				break collect
			}
		case <-ctx.Done():
			abandoned = ErrTimeout
			if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
				abandoned = ctx.Err()
			}
			// Outcomes that arrived before the deadline still count.
			for pending > 0 {
				select {
				case o := <-resultsCh:
					if record(o) {
						break collect
					}
				default:
					break collect
				}
			}
		}
	}

	for i := range n {
		if !done[i] {
			errs[i] = abandoned
		}
	}
	return results, errs
}

// call performs one partition round trip.
func (c *Coordinator) call(ctx context.Context, req *protocol.Request) (res result.PartitionResult, err error) {
	start := time.Now()
	var sent, recv int
	defer func() {
		if c.opts.Observer != nil {
			c.opts.Observer.ObservePartitionCall(req.Key, req.Op, time.Since(start), sent, recv, err)
		}
	}()

	rc := c.opts.Resources
	if err := rc.AcquireCall(ctx); err != nil {
		return nil, classify(ctx, req.Key.Addr, err)
	}
	defer rc.ReleaseCall()

	comp := codec.CompressionNone
	if c.opts.Compression != codec.CompressionNone && req.BodySize() >= c.opts.CompressThreshold {
		comp = c.opts.Compression
	}
	frame, err := protocol.EncodeRequest(req, comp)
	if err != nil {
		return nil, err
	}
	sent = len(frame)

	if err := rc.AcquireIO(ctx, len(frame)); err != nil {
		return nil, classify(ctx, req.Key.Addr, err)
	}

	reply, err := c.transport.Send(ctx, req.Key.Addr, frame)
	if err != nil {
		return nil, classify(ctx, req.Key.Addr, err)
	}
	recv = len(reply)

	resp, err := protocol.DecodeResponse(reply)
	if err != nil {
		return nil, err
	}
	if resp.ID != req.ID {
		return nil, &StaleReplyError{Want: req.ID, Got: resp.ID}
	}
	if resp.Status == protocol.StatusError {
		return nil, &RemoteError{Code: resp.Code, Message: resp.Message}
	}
	return resp.Result, nil
}

// classify maps transport and context errors onto the dispatch taxonomy.
func classify(ctx context.Context, addr string, err error) error {
	var (
		unreachable *UnreachableError
		remote      *RemoteError
		decode      *codec.DecodeError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ErrTimeout
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return ErrCanceled
	case errors.As(err, &unreachable), errors.As(err, &remote), errors.As(err, &decode):
		return err
	default:
		return &UnreachableError{Addr: addr, Err: err}
	}
}
