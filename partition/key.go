package partition

import (
	"errors"
	"fmt"

	"github.com/hupe1980/psmatrix/codec"
)

var errEmptyRange = errors.New("empty or inverted range")

// Key identifies a contiguous block of a matrix owned by one shard.
// Keys are immutable values and are comparable with ==.
type Key struct {
	MatrixID    int32
	PartitionID int32
	RowStart    int64
	RowEnd      int64
	ColStart    int64
	ColEnd      int64
	// Addr is the owning shard's transport address.
	Addr string
}

// ContainsRow reports whether row lies in [RowStart, RowEnd).
func (k Key) ContainsRow(row int64) bool { return row >= k.RowStart && row < k.RowEnd }

// ContainsCol reports whether col lies in [ColStart, ColEnd).
func (k Key) ContainsCol(col int64) bool { return col >= k.ColStart && col < k.ColEnd }

// Rows returns the number of rows in the partition.
func (k Key) Rows() int64 { return k.RowEnd - k.RowStart }

// Cols returns the number of columns in the partition.
func (k Key) Cols() int64 { return k.ColEnd - k.ColStart }

func (k Key) String() string {
	return fmt.Sprintf("matrix=%d part=%d rows=[%d,%d) cols=[%d,%d) addr=%s",
		k.MatrixID, k.PartitionID, k.RowStart, k.RowEnd, k.ColStart, k.ColEnd, k.Addr)
}

// SizeOf returns the encoded size of the key.
func (k Key) SizeOf() int {
	return 2*codec.SizeInt32 + 4*codec.SizeInt64 + codec.SizeString(k.Addr)
}

// Encode writes the key in wire order.
func (k Key) Encode(w *codec.Writer) {
	w.PutInt32(k.MatrixID)
	w.PutInt32(k.PartitionID)
	w.PutInt64(k.RowStart)
	w.PutInt64(k.RowEnd)
	w.PutInt64(k.ColStart)
	w.PutInt64(k.ColEnd)
	w.PutString(k.Addr)
}

// DecodeKey reads a key written by Encode. Inverted ranges are reported as
// decode failures on r.
func DecodeKey(r *codec.Reader) Key {
	k := Key{
		MatrixID:    r.Int32(),
		PartitionID: r.Int32(),
		RowStart:    r.Int64(),
		RowEnd:      r.Int64(),
		ColStart:    r.Int64(),
		ColEnd:      r.Int64(),
		Addr:        r.Str(),
	}
	if r.Err() == nil && (k.RowStart >= k.RowEnd || k.ColStart >= k.ColEnd) {
		r.Fail("partition key", errEmptyRange)
	}
	return k
}
