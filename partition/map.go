package partition

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/hupe1980/psmatrix/codec"
)

// ErrInvalidMap is returned when a set of keys does not form a valid banded
// layout of the declared matrix shape.
var ErrInvalidMap = errors.New("invalid partition map")

type band struct {
	rowStart int64
	rowEnd   int64
	lo, hi   int // keys[lo:hi], sorted by ColStart
}

// Map is the validated partition layout of one matrix.
// A Map is immutable and safe for concurrent use.
type Map struct {
	matrixID int32
	rows     int64
	cols     int64
	keys     []Key
	bands    []band
}

// NewMap validates keys against the matrix shape and builds a Map.
// Keys may be given in any order.
func NewMap(matrixID int32, rows, cols int64, keys []Key) (*Map, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: shape %dx%d", ErrInvalidMap, rows, cols)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no partitions", ErrInvalidMap)
	}

	sorted := slices.Clone(keys)
	slices.SortFunc(sorted, func(a, b Key) int {
		if a.RowStart != b.RowStart {
			return cmp.Compare(a.RowStart, b.RowStart)
		}
		return cmp.Compare(a.ColStart, b.ColStart)
	})

	ids := make(map[int32]struct{}, len(sorted))
	for _, k := range sorted {
		if k.MatrixID != matrixID {
			return nil, fmt.Errorf("%w: partition %d belongs to matrix %d", ErrInvalidMap, k.PartitionID, k.MatrixID)
		}
		if k.RowStart >= k.RowEnd || k.ColStart >= k.ColEnd {
			return nil, fmt.Errorf("%w: partition %d has an empty range", ErrInvalidMap, k.PartitionID)
		}
		if _, dup := ids[k.PartitionID]; dup {
			return nil, fmt.Errorf("%w: duplicate partition id %d", ErrInvalidMap, k.PartitionID)
		}
		ids[k.PartitionID] = struct{}{}
	}

	m := &Map{matrixID: matrixID, rows: rows, cols: cols, keys: sorted}

	var nextRow int64
	for lo := 0; lo < len(sorted); {
		first := sorted[lo]
		if first.RowStart != nextRow {
			return nil, fmt.Errorf("%w: rows [%d,%d) not covered exactly", ErrInvalidMap, nextRow, first.RowStart)
		}
		hi := lo
		var nextCol int64
		for hi < len(sorted) && sorted[hi].RowStart == first.RowStart {
			k := sorted[hi]
			if k.RowEnd != first.RowEnd {
				return nil, fmt.Errorf("%w: partition %d is not aligned with its row band [%d,%d)",
					ErrInvalidMap, k.PartitionID, first.RowStart, first.RowEnd)
			}
			if k.ColStart != nextCol {
				return nil, fmt.Errorf("%w: band [%d,%d) columns [%d,%d) not covered exactly",
					ErrInvalidMap, first.RowStart, first.RowEnd, nextCol, k.ColStart)
			}
			nextCol = k.ColEnd
			hi++
		}
		if nextCol != cols {
			return nil, fmt.Errorf("%w: band [%d,%d) ends at column %d, want %d",
				ErrInvalidMap, first.RowStart, first.RowEnd, nextCol, cols)
		}
		m.bands = append(m.bands, band{rowStart: first.RowStart, rowEnd: first.RowEnd, lo: lo, hi: hi})
		nextRow = first.RowEnd
		lo = hi
	}
	if nextRow != rows {
		return nil, fmt.Errorf("%w: bands end at row %d, want %d", ErrInvalidMap, nextRow, rows)
	}
	return m, nil
}

// MatrixID returns the matrix this map describes.
func (m *Map) MatrixID() int32 { return m.matrixID }

// Rows returns the declared row count.
func (m *Map) Rows() int64 { return m.rows }

// Cols returns the declared column count.
func (m *Map) Cols() int64 { return m.cols }

// Len returns the number of partitions.
func (m *Map) Len() int { return len(m.keys) }

// Key returns the i-th partition in (RowStart, ColStart) order.
func (m *Map) Key(i int) Key { return m.keys[i] }

// Keys returns a copy of all partitions in (RowStart, ColStart) order.
func (m *Map) Keys() []Key { return slices.Clone(m.keys) }

func (m *Map) bandFor(row int64) (band, bool) {
	if row < 0 || row >= m.rows {
		return band{}, false
	}
	i := sort.Search(len(m.bands), func(i int) bool { return m.bands[i].rowEnd > row })
	return m.bands[i], true
}

// Locate returns the ordinal of the partition owning (row, col).
func (m *Map) Locate(row, col int64) (int, bool) {
	b, ok := m.bandFor(row)
	if !ok || col < 0 || col >= m.cols {
		return 0, false
	}
	n := b.hi - b.lo
	j := sort.Search(n, func(i int) bool { return m.keys[b.lo+i].ColEnd > col })
	return b.lo + j, true
}

// LocateRow returns the ordinals [lo, hi) of every partition holding a segment
// of row, in column order.
func (m *Map) LocateRow(row int64) (lo, hi int, ok bool) {
	b, ok := m.bandFor(row)
	if !ok {
		return 0, 0, false
	}
	return b.lo, b.hi, true
}

// SizeOf returns the encoded size of the map.
func (m *Map) SizeOf() int {
	n := codec.SizeInt32 + 2*codec.SizeInt64 + codec.SizeInt32
	for _, k := range m.keys {
		n += k.SizeOf()
	}
	return n
}

// Encode serializes the map: [int32 matrixID][int64 rows][int64 cols][int32 n][Key...].
func (m *Map) Encode() ([]byte, error) {
	w := codec.NewWriter(m.SizeOf())
	w.PutInt32(m.matrixID)
	w.PutInt64(m.rows)
	w.PutInt64(m.cols)
	w.PutInt32(int32(len(m.keys)))
	for _, k := range m.keys {
		k.Encode(w)
	}
	return w.Finish()
}

// DecodeMap parses and validates a map produced by Encode.
func DecodeMap(b []byte) (*Map, error) {
	r := codec.NewReader(b)
	matrixID := r.Int32()
	rows := r.Int64()
	cols := r.Int64()
	n := int(r.Int32())
	if r.Err() == nil && (n < 0 || n > r.Remaining()) {
		r.Fail("partition count", fmt.Errorf("count %d exceeds frame", n))
	}
	var keys []Key
	if r.Err() == nil {
		keys = make([]Key, 0, n)
		for i := 0; i < n && r.Err() == nil; i++ {
			keys = append(keys, DecodeKey(r))
		}
	}
	if err := r.Done(); err != nil {
		return nil, err
	}
	return NewMap(matrixID, rows, cols, keys)
}
