package result

import (
	"errors"
	"fmt"

	"github.com/hupe1980/psmatrix/codec"
	"github.com/hupe1980/psmatrix/model"
	"github.com/hupe1980/psmatrix/partition"
)

// Kind tags a result frame.
type Kind uint8

const (
	KindDoubleArray Kind = 1
	KindFloatArray  Kind = 2
	KindLongArray   Kind = 3
	KindPathMap     Kind = 4
	KindRows        Kind = 5
	KindAck         Kind = 6
)

func (k Kind) String() string {
	switch k {
	case KindDoubleArray:
		return "double-array"
	case KindFloatArray:
		return "float-array"
	case KindLongArray:
		return "long-array"
	case KindPathMap:
		return "path-map"
	case KindRows:
		return "rows"
	case KindAck:
		return "ack"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

var (
	errUnknownKind  = errors.New("unknown result kind")
	errRowsShape    = errors.New("row values do not match rows x partition columns")
	errUnknownType  = errors.New("unknown element type")
	errNegativeAcks = errors.New("negative ack count")
)

// PartitionResult is the response of one shard for one sub-request.
type PartitionResult interface {
	// Key returns the partition the result was computed for.
	Key() partition.Key
	// Kind returns the frame tag.
	Kind() Kind
	// SizeOf returns the exact encoded size of the result frame.
	SizeOf() int

	encodePayload(w *codec.Writer)
	payloadSize() int
}

func frameSize(r PartitionResult) int {
	k := r.Key()
	return codec.SizeUint8 + k.SizeOf() + r.payloadSize()
}

// EncodeTo appends the result frame to w.
func EncodeTo(w *codec.Writer, r PartitionResult) {
	w.PutUint8(uint8(r.Kind()))
	r.Key().Encode(w)
	r.encodePayload(w)
}

// Encode serializes r into an exactly sized buffer.
func Encode(r PartitionResult) ([]byte, error) {
	w := codec.NewWriter(r.SizeOf())
	EncodeTo(w, r)
	return w.Finish()
}

// Decode parses a standalone result frame.
func Decode(b []byte) (PartitionResult, error) {
	rd := codec.NewReader(b)
	res := DecodeFrom(rd)
	if err := rd.Done(); err != nil {
		return nil, err
	}
	return res, nil
}

// DecodeFrom reads one result frame from rd. Failures are recorded on rd.
func DecodeFrom(rd *codec.Reader) PartitionResult {
	kind := Kind(rd.Uint8())
	key := partition.DecodeKey(rd)
	if rd.Err() != nil {
		return nil
	}

	switch kind {
	case KindDoubleArray:
		return &ArrayResult{PartKey: key, Values: model.Doubles(rd.Float64s())}
	case KindFloatArray:
		return &ArrayResult{PartKey: key, Values: model.Floats(rd.Float32s())}
	case KindLongArray:
		return &ArrayResult{PartKey: key, Values: model.Longs(rd.Int64s())}
	case KindPathMap:
		return &PathMapResult{PartKey: key, Paths: rd.LongArrayMap()}
	case KindRows:
		return decodeRows(rd, key)
	case KindAck:
		n := rd.Int32()
		if n < 0 {
			rd.Fail("ack count", errNegativeAcks)
		}
		return &AckResult{PartKey: key, Applied: int(n)}
	default:
		rd.Fail("result kind", fmt.Errorf("%w: %d", errUnknownKind, kind))
		return nil
	}
}

// ArrayResult holds one value per requested index, in sub-request order.
type ArrayResult struct {
	PartKey partition.Key
	Values  model.Values
}

func (r *ArrayResult) Key() partition.Key { return r.PartKey }

func (r *ArrayResult) Kind() Kind {
	switch r.Values.Type {
	case model.ElemFloat:
		return KindFloatArray
	case model.ElemLong:
		return KindLongArray
	default:
		return KindDoubleArray
	}
}

func (r *ArrayResult) SizeOf() int { return frameSize(r) }

func (r *ArrayResult) payloadSize() int { return codec.SizeValues(r.Values) }

func (r *ArrayResult) encodePayload(w *codec.Writer) { w.PutValues(r.Values) }

// PathMapResult maps requested keys to their path tails. Keys without a
// path are absent.
type PathMapResult struct {
	PartKey partition.Key
	Paths   map[int64][]int64
}

func (r *PathMapResult) Key() partition.Key { return r.PartKey }

func (r *PathMapResult) Kind() Kind { return KindPathMap }

func (r *PathMapResult) SizeOf() int { return frameSize(r) }

func (r *PathMapResult) payloadSize() int { return codec.SizeLongArrayMap(r.Paths) }

func (r *PathMapResult) encodePayload(w *codec.Writer) { w.PutLongArrayMap(r.Paths) }

// RowsResult holds the partition's column segment of each requested row.
// Values is row-major with width PartKey.Cols().
type RowsResult struct {
	PartKey partition.Key
	Rows    []int64
	Values  model.Values
}

func (r *RowsResult) Key() partition.Key { return r.PartKey }

func (r *RowsResult) Kind() Kind { return KindRows }

func (r *RowsResult) SizeOf() int { return frameSize(r) }

// Row returns the segment of the i-th row.
func (r *RowsResult) Row(i int) model.Values {
	w := int(r.PartKey.Cols())
	return r.Values.Slice(i*w, (i+1)*w)
}

func (r *RowsResult) payloadSize() int {
	return codec.SizeUint8 + codec.SizeInt64s(len(r.Rows)) + codec.SizeValues(r.Values)
}

func (r *RowsResult) encodePayload(w *codec.Writer) {
	w.PutUint8(uint8(r.Values.Type))
	w.PutInt64s(r.Rows)
	w.PutValues(r.Values)
}

func decodeRows(rd *codec.Reader, key partition.Key) PartitionResult {
	t := model.ElemType(rd.Uint8())
	if rd.Err() == nil && !t.Valid() {
		rd.Fail("rows element type", fmt.Errorf("%w: %d", errUnknownType, t))
		return nil
	}
	rows := rd.Int64s()
	vals := rd.Values(t)
	if rd.Err() != nil {
		return nil
	}
	if int64(vals.Len()) != int64(len(rows))*key.Cols() {
		rd.Fail("rows values", errRowsShape)
		return nil
	}
	return &RowsResult{PartKey: key, Rows: rows, Values: vals}
}

// AckResult acknowledges an update and reports how many elements were applied.
type AckResult struct {
	PartKey partition.Key
	Applied int
}

func (r *AckResult) Key() partition.Key { return r.PartKey }

func (r *AckResult) Kind() Kind { return KindAck }

func (r *AckResult) SizeOf() int { return frameSize(r) }

func (r *AckResult) payloadSize() int { return codec.SizeInt32 }

func (r *AckResult) encodePayload(w *codec.Writer) { w.PutInt32(int32(r.Applied)) }
