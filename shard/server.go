package shard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/psmatrix/codec"
	"github.com/hupe1980/psmatrix/model"
	"github.com/hupe1980/psmatrix/partition"
	"github.com/hupe1980/psmatrix/protocol"
	"github.com/hupe1980/psmatrix/result"
)

// ContentType is the media type of request and response frames over HTTP.
const ContentType = "application/octet-stream"

// DefaultMaxFrameBytes bounds an HTTP request body.
const DefaultMaxFrameBytes = 64 << 20

// ErrPartitionExists is returned when a partition is registered twice.
var ErrPartitionExists = errors.New("partition already registered")

// Options configures a Server.
type Options struct {
	// Compression is applied to response bodies of at least CompressThreshold bytes.
	Compression       codec.Compression
	CompressThreshold int

	// MaxFrameBytes bounds an HTTP request body. Zero means DefaultMaxFrameBytes.
	MaxFrameBytes int64

	Logger *slog.Logger
}

type partID struct {
	matrix int32
	part   int32
}

// Server executes partition requests against local partitions.
// It is safe for concurrent use.
type Server struct {
	opts   Options
	logger *slog.Logger

	mu    sync.RWMutex
	parts map[partID]*Partition

	handled atomic.Int64
	failed  atomic.Int64
}

// NewServer creates an empty Server.
func NewServer(opts Options) *Server {
	if opts.CompressThreshold <= 0 {
		opts.CompressThreshold = 4 << 10
	}
	if opts.MaxFrameBytes <= 0 {
		opts.MaxFrameBytes = DefaultMaxFrameBytes
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{opts: opts, logger: logger, parts: make(map[partID]*Partition)}
}

// AddPartition registers an empty (zeroed) partition.
func (s *Server) AddPartition(key partition.Key, t model.ElemType) (*Partition, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("add partition %d: %w", key.PartitionID, model.ErrTypeMismatch)
	}
	id := partID{key.MatrixID, key.PartitionID}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.parts[id]; ok {
		return nil, fmt.Errorf("%w: matrix %d partition %d", ErrPartitionExists, key.MatrixID, key.PartitionID)
	}
	p := newPartition(key, t)
	s.parts[id] = p
	return p, nil
}

// Partition returns a registered partition.
func (s *Server) Partition(matrixID, partitionID int32) (*Partition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.parts[partID{matrixID, partitionID}]
	return p, ok
}

// LoadMatrix registers every partition of pm owned by addr and fills it
// from gen. Partitions are filled concurrently.
func (s *Server) LoadMatrix(ctx context.Context, pm *partition.Map, addr string, t model.ElemType, gen func(row, col int64) float64) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for _, key := range pm.Keys() {
		if key.Addr != addr {
			continue
		}
		p, err := s.AddPartition(key, t)
		if err != nil {
			return err
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			vals := model.NewValues(t, int(key.Rows()*key.Cols()))
			i := 0
			for r := key.RowStart; r < key.RowEnd; r++ {
				for c := key.ColStart; c < key.ColEnd; c++ {
					v := gen(r, c)
					switch t {
					case model.ElemDouble:
						vals.Doubles[i] = v
					case model.ElemFloat:
						vals.Floats[i] = float32(v)
					case model.ElemLong:
						vals.Longs[i] = int64(v)
					}
					i++
				}
			}
			return p.Load(vals)
		})
	}
	return g.Wait()
}

// Stats returns the number of handled and failed requests.
func (s *Server) Stats() (handled, failed int64) {
	return s.handled.Load(), s.failed.Load()
}

// requestError is answered as a protocol error frame.
type requestError struct {
	code protocol.ErrorCode
	msg  string
}

func (e *requestError) Error() string { return e.msg }

func reject(code protocol.ErrorCode, format string, args ...any) error {
	return &requestError{code: code, msg: fmt.Sprintf(format, args...)}
}

// Handle executes one request frame and returns the response frame.
func (s *Server) Handle(ctx context.Context, frame []byte) []byte {
	s.handled.Add(1)

	req, err := protocol.DecodeRequest(frame)
	if err != nil {
		id, _ := protocol.PeekRequestID(frame)
		return s.fail(id, &requestError{code: protocol.CodeBadRequest, msg: err.Error()})
	}

	res, err := s.execute(ctx, req)
	if err != nil {
		return s.fail(req.ID, err)
	}

	comp := codec.CompressionNone
	if s.opts.Compression != codec.CompressionNone && res.SizeOf() >= s.opts.CompressThreshold {
		comp = s.opts.Compression
	}
	reply, err := protocol.EncodeResponse(req.ID, res, comp)
	if err != nil {
		return s.fail(req.ID, err)
	}
	return reply
}

func (s *Server) fail(id uint64, err error) []byte {
	s.failed.Add(1)
	code := protocol.CodeInternal
	var re *requestError
	if errors.As(err, &re) {
		code = re.code
	}
	s.logger.Debug("request rejected", "request_id", id, "code", code.String(), "error", err)
	return protocol.EncodeError(id, code, err.Error())
}

func (s *Server) execute(ctx context.Context, req *protocol.Request) (result.PartitionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, ok := s.Partition(req.Key.MatrixID, req.Key.PartitionID)
	if !ok || p.key != req.Key {
		return nil, reject(protocol.CodeUnknownPartition, "partition %s not served here", req.Key)
	}
	// Path tails are element-type independent.
	if req.Op != protocol.OpPullPathTail && req.ElemType != p.elem {
		return nil, reject(protocol.CodeTypeMismatch, "partition %d stores %s, request wants %s", p.key.PartitionID, p.elem, req.ElemType)
	}

	switch req.Op {
	case protocol.OpIndexGet:
		if err := checkIndices(p.key, req.Row, req.Indices); err != nil {
			return nil, err
		}
		return &result.ArrayResult{PartKey: p.key, Values: p.get(req.Row, req.Indices)}, nil

	case protocol.OpIndexUpdate:
		if err := checkIndices(p.key, req.Row, req.Indices); err != nil {
			return nil, err
		}
		if !req.UpdateOp.Valid() {
			return nil, reject(protocol.CodeBadRequest, "unknown update op %d", req.UpdateOp)
		}
		p.update(req.UpdateOp, req.Row, req.Indices, req.Values)
		return &result.AckResult{PartKey: p.key, Applied: len(req.Indices)}, nil

	case protocol.OpGetRows:
		if err := checkRows(p.key, req.Indices); err != nil {
			return nil, err
		}
		return &result.RowsResult{PartKey: p.key, Rows: req.Indices, Values: p.rows(req.Indices)}, nil

	case protocol.OpPullPathTail:
		if err := checkRows(p.key, req.Indices); err != nil {
			return nil, err
		}
		return &result.PathMapResult{PartKey: p.key, Paths: p.pathTails(req.Indices)}, nil

	default:
		return nil, reject(protocol.CodeBadRequest, "unsupported op %s", req.Op)
	}
}

func checkIndices(key partition.Key, row int64, cols []int64) error {
	if !key.ContainsRow(row) {
		return reject(protocol.CodeOutOfRange, "row %d outside [%d,%d)", row, key.RowStart, key.RowEnd)
	}
	for _, c := range cols {
		if !key.ContainsCol(c) {
			return reject(protocol.CodeOutOfRange, "column %d outside [%d,%d)", c, key.ColStart, key.ColEnd)
		}
	}
	return nil
}

func checkRows(key partition.Key, rows []int64) error {
	for _, r := range rows {
		if !key.ContainsRow(r) {
			return reject(protocol.CodeOutOfRange, "row %d outside [%d,%d)", r, key.RowStart, key.RowEnd)
		}
	}
	return nil
}

// ServeHTTP answers a POSTed request frame with a response frame.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	frame, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxFrameBytes))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}
	reply := s.Handle(r.Context(), frame)
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(reply)
}
