package splitter

import (
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/psmatrix/model"
	"github.com/hupe1980/psmatrix/partition"
)

// ErrOutOfBounds is matched by every *OutOfBoundsError.
var ErrOutOfBounds = errors.New("index out of matrix bounds")

// OutOfBoundsError reports the first requested index that maps to no partition.
type OutOfBoundsError struct {
	MatrixID int32
	// Position is the offending entry's position in the caller's request.
	Position int
	Row      int64
	// Col is -1 for row-oriented requests.
	Col int64
}

func (e *OutOfBoundsError) Error() string {
	if e.Col < 0 {
		return fmt.Sprintf("matrix %d: row %d at position %d is out of bounds", e.MatrixID, e.Row, e.Position)
	}
	return fmt.Sprintf("matrix %d: index (%d,%d) at position %d is out of bounds", e.MatrixID, e.Row, e.Col, e.Position)
}

// Is makes every OutOfBoundsError match ErrOutOfBounds.
func (e *OutOfBoundsError) Is(target error) bool { return target == ErrOutOfBounds }

// SubRequest is the slice of a request owned by one partition.
type SubRequest struct {
	Key partition.Key
	// Ordinal is the partition's position in the Map.
	Ordinal int
	// Indices are column indices (SplitIndices) or row ids (SplitRows, SplitKeys).
	Indices []int64
	// Positions[j] is the caller position of Indices[j].
	Positions []int
}

// Split is the result of splitting one request.
type Split struct {
	MatrixID int32
	// Row is the target row of an index split.
	Row int64
	// Total is the caller's request length.
	Total int
	// Partitions is the size of the Map the split was computed against.
	Partitions int
	// Subs are ordered by partition ordinal.
	Subs []SubRequest
}

// Coverage returns the set of caller positions present in the split.
// A row split covers a position once per column segment.
func (s *Split) Coverage() *roaring.Bitmap {
	bm := roaring.New()
	for _, sub := range s.Subs {
		for _, pos := range sub.Positions {
			bm.Add(uint32(pos))
		}
	}
	return bm
}

// Gather splits caller-ordered values along the split's back-mapping.
// vals must have Total elements.
func (s *Split) Gather(vals model.Values) ([]model.Values, error) {
	if vals.Len() != s.Total {
		return nil, fmt.Errorf("gather: %d values for %d indices", vals.Len(), s.Total)
	}
	out := make([]model.Values, len(s.Subs))
	for i, sub := range s.Subs {
		v := model.NewValues(vals.Type, len(sub.Positions))
		for j, pos := range sub.Positions {
			v.Set(j, vals, pos)
		}
		out[i] = v
	}
	return out, nil
}

// group builds sub-requests in ordinal order. assign(i) returns the ordinal
// range [lo, hi) that entry i goes to.
func group(pm *partition.Map, row int64, n int, assign func(i int) (lo, hi int), value func(i int) int64) *Split {
	counts := make([]int, pm.Len())
	for i := 0; i < n; i++ {
		lo, hi := assign(i)
		for o := lo; o < hi; o++ {
			counts[o]++
		}
	}

	// slot[o] is the index into Subs for ordinal o, or -1.
	slot := make([]int, pm.Len())
	s := &Split{MatrixID: pm.MatrixID(), Row: row, Total: n, Partitions: pm.Len()}
	for o, c := range counts {
		slot[o] = -1
		if c == 0 {
			continue
		}
		slot[o] = len(s.Subs)
		s.Subs = append(s.Subs, SubRequest{
			Key:       pm.Key(o),
			Ordinal:   o,
			Indices:   make([]int64, 0, c),
			Positions: make([]int, 0, c),
		})
	}

	for i := 0; i < n; i++ {
		lo, hi := assign(i)
		for o := lo; o < hi; o++ {
			sub := &s.Subs[slot[o]]
			sub.Indices = append(sub.Indices, value(i))
			sub.Positions = append(sub.Positions, i)
		}
	}
	return s
}

// SplitIndices assigns each column index of row to the partition owning
// (row, index).
func SplitIndices(pm *partition.Map, row int64, indices []int64) (*Split, error) {
	ords := make([]int, len(indices))
	for i, col := range indices {
		o, ok := pm.Locate(row, col)
		if !ok {
			return nil, &OutOfBoundsError{MatrixID: pm.MatrixID(), Position: i, Row: row, Col: col}
		}
		ords[i] = o
	}
	return group(pm, row, len(indices),
		func(i int) (int, int) { return ords[i], ords[i] + 1 },
		func(i int) int64 { return indices[i] },
	), nil
}

// SplitRows assigns each row to every partition of its band, so the row can
// be reassembled from column segments.
func SplitRows(pm *partition.Map, rows []int64) (*Split, error) {
	los := make([]int, len(rows))
	his := make([]int, len(rows))
	for i, r := range rows {
		lo, hi, ok := pm.LocateRow(r)
		if !ok {
			return nil, &OutOfBoundsError{MatrixID: pm.MatrixID(), Position: i, Row: r, Col: -1}
		}
		los[i], his[i] = lo, hi
	}
	return group(pm, 0, len(rows),
		func(i int) (int, int) { return los[i], his[i] },
		func(i int) int64 { return rows[i] },
	), nil
}

// SplitKeys assigns each key, interpreted as a row id, to the first column
// partition of its band.
func SplitKeys(pm *partition.Map, keys []int64) (*Split, error) {
	ords := make([]int, len(keys))
	for i, k := range keys {
		lo, _, ok := pm.LocateRow(k)
		if !ok {
			return nil, &OutOfBoundsError{MatrixID: pm.MatrixID(), Position: i, Row: k, Col: -1}
		}
		ords[i] = lo
	}
	return group(pm, 0, len(keys),
		func(i int) (int, int) { return ords[i], ords[i] + 1 },
		func(i int) int64 { return keys[i] },
	), nil
}
