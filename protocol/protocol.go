package protocol

import (
	"errors"
	"fmt"

	"github.com/hupe1980/psmatrix/codec"
	"github.com/hupe1980/psmatrix/internal/conv"
	"github.com/hupe1980/psmatrix/model"
	"github.com/hupe1980/psmatrix/partition"
	"github.com/hupe1980/psmatrix/result"
)

// HeaderSize is the size of the request header ([uint64 id][uint8 flags]).
const HeaderSize = codec.SizeUint64 + codec.SizeUint8

const compressionMask = 0x03

var (
	errUnknownOp          = errors.New("unknown op")
	errUnknownStatus      = errors.New("unknown status")
	errBadWidth           = errors.New("index width must be 4 or 8")
	errUnknownCompression = errors.New("unknown compression")
	errValueCount         = errors.New("value count does not match index count")
)

// Op selects the shard-side operation.
type Op uint8

const (
	OpIndexGet     Op = 1
	OpGetRows      Op = 2
	OpPullPathTail Op = 3
	OpIndexUpdate  Op = 4
)

func (op Op) String() string {
	switch op {
	case OpIndexGet:
		return "index-get"
	case OpGetRows:
		return "get-rows"
	case OpPullPathTail:
		return "pull-path-tail"
	case OpIndexUpdate:
		return "index-update"
	default:
		return fmt.Sprintf("Op(%d)", uint8(op))
	}
}

// Request is one partition call.
type Request struct {
	ID       uint64
	Op       Op
	ElemType model.ElemType
	Key      partition.Key

	// Row is the target row of OpIndexGet and OpIndexUpdate.
	Row int64
	// Indices holds column indices for OpIndexGet/OpIndexUpdate and row ids
	// (or path keys) for OpGetRows/OpPullPathTail.
	Indices []int64

	// UpdateOp and Values are set for OpIndexUpdate only.
	UpdateOp model.UpdateOp
	Values   model.Values
}

func (r *Request) indexed() bool { return r.Op == OpIndexGet || r.Op == OpIndexUpdate }

// indexWidth returns 4 when every index fits in an int32.
func (r *Request) indexWidth() int {
	if conv.FitsInt32(r.Indices) {
		return codec.SizeInt32
	}
	return codec.SizeInt64
}

// BodySize returns the exact size of the uncompressed request body.
func (r *Request) BodySize() int {
	n := 2*codec.SizeUint8 + r.Key.SizeOf()
	if !r.indexed() {
		return n + codec.SizeInt64s(len(r.Indices))
	}
	n += codec.SizeInt64 + codec.SizeUint8 + codec.SizeInt32 + len(r.Indices)*r.indexWidth()
	if r.Op == OpIndexUpdate {
		n += codec.SizeUint8 + codec.SizeValues(r.Values)
	}
	return n
}

func (r *Request) encodeBody() ([]byte, error) {
	w := codec.NewWriter(r.BodySize())
	w.PutUint8(uint8(r.Op))
	w.PutUint8(uint8(r.ElemType))
	r.Key.Encode(w)

	if !r.indexed() {
		w.PutInt64s(r.Indices)
		return w.Finish()
	}

	w.PutInt64(r.Row)
	if r.indexWidth() == codec.SizeInt32 {
		w.PutUint8(codec.SizeInt32)
		narrow := make([]int32, len(r.Indices))
		for i, idx := range r.Indices {
			narrow[i] = int32(idx)
		}
		w.PutInt32s(narrow)
	} else {
		w.PutUint8(codec.SizeInt64)
		w.PutInt64s(r.Indices)
	}
	if r.Op == OpIndexUpdate {
		w.PutUint8(uint8(r.UpdateOp))
		w.PutValues(r.Values)
	}
	return w.Finish()
}

// EncodeRequest frames r, compressing the body with c.
func EncodeRequest(r *Request, c codec.Compression) ([]byte, error) {
	body, err := r.encodeBody()
	if err != nil {
		return nil, err
	}
	return frame(r.ID, c, nil, body)
}

// frame prepends [id][flags] and any extra header bytes to the (possibly
// compressed) body.
func frame(id uint64, c codec.Compression, extra []byte, body []byte) ([]byte, error) {
	if c != codec.CompressionNone {
		var err error
		if body, err = codec.CompressBlock(body, c); err != nil {
			return nil, err
		}
	}
	w := codec.NewWriter(HeaderSize + len(extra) + len(body))
	w.PutUint64(id)
	w.PutUint8(uint8(c))
	w.PutBytes(extra)
	w.PutBytes(body)
	return w.Finish()
}

// PeekRequestID returns the request id of a request or response frame.
func PeekRequestID(frame []byte) (uint64, error) {
	rd := codec.NewReader(frame)
	id := rd.Uint64()
	return id, rd.Err()
}

// unframe reads the header and returns the decompressed remainder.
func unframe(frame []byte, extra int) (id uint64, hdr []byte, body []byte, err error) {
	rd := codec.NewReader(frame)
	id = rd.Uint64()
	flags := rd.Uint8()
	hdr = rd.Bytes(extra)
	if err := rd.Err(); err != nil {
		return id, nil, nil, err
	}
	c := codec.Compression(flags & compressionMask)
	if c > codec.CompressionZSTD {
		return id, nil, nil, codec.NewDecodeError(codec.SizeUint64, "flags", fmt.Errorf("%w: %d", errUnknownCompression, c))
	}
	body = rd.Bytes(rd.Remaining())
	if c != codec.CompressionNone {
		if body, err = codec.DecompressBlock(body, c); err != nil {
			return id, nil, nil, err
		}
	}
	return id, hdr, body, nil
}

// DecodeRequest parses a request frame.
func DecodeRequest(frame []byte) (*Request, error) {
	id, _, body, err := unframe(frame, 0)
	if err != nil {
		return nil, err
	}

	rd := codec.NewReader(body)
	r := &Request{ID: id}
	r.Op = Op(rd.Uint8())
	r.ElemType = model.ElemType(rd.Uint8())
	r.Key = partition.DecodeKey(rd)
	if rd.Err() != nil {
		return nil, rd.Err()
	}

	switch r.Op {
	case OpGetRows, OpPullPathTail:
		r.Indices = rd.Int64s()
	case OpIndexGet, OpIndexUpdate:
		r.Row = rd.Int64()
		switch width := rd.Uint8(); width {
		case codec.SizeInt32:
			narrow := rd.Int32s()
			r.Indices = make([]int64, len(narrow))
			for i, idx := range narrow {
				r.Indices[i] = int64(idx)
			}
		case codec.SizeInt64:
			r.Indices = rd.Int64s()
		default:
			rd.Fail("index width", errBadWidth)
		}
		if r.Op == OpIndexUpdate && rd.Err() == nil {
			r.UpdateOp = model.UpdateOp(rd.Uint8())
			r.Values = rd.Values(r.ElemType)
			if rd.Err() == nil && r.Values.Len() != len(r.Indices) {
				rd.Fail("update values", errValueCount)
			}
		}
	default:
		rd.Fail("op", fmt.Errorf("%w: %d", errUnknownOp, r.Op))
	}

	if err := rd.Done(); err != nil {
		return nil, err
	}
	return r, nil
}

// Status is the outcome tag of a response.
type Status uint8

const (
	StatusOK    Status = 0
	StatusError Status = 1
)

// ErrorCode classifies a shard-side failure.
type ErrorCode uint8

const (
	CodeInternal         ErrorCode = 1
	CodeBadRequest       ErrorCode = 2
	CodeTypeMismatch     ErrorCode = 3
	CodeOutOfRange       ErrorCode = 4
	CodeUnknownPartition ErrorCode = 5
)

func (c ErrorCode) String() string {
	switch c {
	case CodeInternal:
		return "internal"
	case CodeBadRequest:
		return "bad request"
	case CodeTypeMismatch:
		return "type mismatch"
	case CodeOutOfRange:
		return "out of range"
	case CodeUnknownPartition:
		return "unknown partition"
	default:
		return fmt.Sprintf("ErrorCode(%d)", uint8(c))
	}
}

// Response is a decoded response frame. Result is set for StatusOK;
// Code and Message are set for StatusError.
type Response struct {
	ID      uint64
	Status  Status
	Result  result.PartitionResult
	Code    ErrorCode
	Message string
}

// EncodeResponse frames a successful result, compressing the body with c.
func EncodeResponse(id uint64, res result.PartitionResult, c codec.Compression) ([]byte, error) {
	body, err := result.Encode(res)
	if err != nil {
		return nil, err
	}
	return frame(id, c, []byte{byte(StatusOK)}, body)
}

// EncodeError frames a shard-side failure. Error bodies are never compressed.
func EncodeError(id uint64, code ErrorCode, msg string) []byte {
	w := codec.NewWriter(HeaderSize + 2*codec.SizeUint8 + codec.SizeString(msg))
	w.PutUint64(id)
	w.PutUint8(uint8(codec.CompressionNone))
	w.PutUint8(uint8(StatusError))
	w.PutUint8(uint8(code))
	w.PutString(msg)
	// Sized exactly above; Finish cannot fail.
	b, _ := w.Finish()
	return b
}

// DecodeResponse parses a response frame.
func DecodeResponse(frame []byte) (*Response, error) {
	id, hdr, body, err := unframe(frame, codec.SizeUint8)
	if err != nil {
		return nil, err
	}

	resp := &Response{ID: id, Status: Status(hdr[0])}
	switch resp.Status {
	case StatusOK:
		res, err := result.Decode(body)
		if err != nil {
			return nil, err
		}
		resp.Result = res
	case StatusError:
		rd := codec.NewReader(body)
		resp.Code = ErrorCode(rd.Uint8())
		resp.Message = rd.Str()
		if err := rd.Done(); err != nil {
			return nil, err
		}
	default:
		return nil, codec.NewDecodeError(HeaderSize, "status", fmt.Errorf("%w: %d", errUnknownStatus, resp.Status))
	}
	return resp, nil
}
