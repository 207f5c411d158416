package merger

import (
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/psmatrix/model"
	"github.com/hupe1980/psmatrix/result"
	"github.com/hupe1980/psmatrix/splitter"
)

var (
	// ErrKeyMismatch is returned when a result was computed for a different
	// partition than its sub-request.
	ErrKeyMismatch = errors.New("result partition does not match sub-request")
	// ErrCountMismatch is returned when a result holds the wrong number of entries.
	ErrCountMismatch = errors.New("result entry count does not match sub-request")
	// ErrUnexpectedKind is returned when a result variant does not fit the merge.
	ErrUnexpectedKind = errors.New("unexpected result kind")
	// ErrPlacement is returned when a caller position is written twice or never.
	ErrPlacement = errors.New("merge placement violated")
)

// MergeError identifies the sub-request a merge check failed on.
type MergeError struct {
	PartitionID int32
	Err         error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge partition %d: %v", e.PartitionID, e.Err)
}

func (e *MergeError) Unwrap() error { return e.Err }

func check(split *splitter.Split, results []result.PartitionResult) error {
	if len(results) != len(split.Subs) {
		return fmt.Errorf("%w: %d results for %d sub-requests", ErrCountMismatch, len(results), len(split.Subs))
	}
	for i, sub := range split.Subs {
		if results[i] == nil || results[i].Key() != sub.Key {
			return &MergeError{PartitionID: sub.Key.PartitionID, Err: ErrKeyMismatch}
		}
	}
	return nil
}

// MergeValues places array results into a vector of split.Total elements of
// type t.
func MergeValues(split *splitter.Split, t model.ElemType, results []result.PartitionResult) (model.Values, error) {
	if err := check(split, results); err != nil {
		return model.Values{}, err
	}

	out := model.NewValues(t, split.Total)
	placed := roaring.New()
	for i, sub := range split.Subs {
		ar, ok := results[i].(*result.ArrayResult)
		if !ok {
			return model.Values{}, &MergeError{PartitionID: sub.Key.PartitionID, Err: fmt.Errorf("%w: %s", ErrUnexpectedKind, results[i].Kind())}
		}
		if err := ar.Values.CheckType(t); err != nil {
			return model.Values{}, &MergeError{PartitionID: sub.Key.PartitionID, Err: err}
		}
		if ar.Values.Len() != len(sub.Positions) {
			return model.Values{}, &MergeError{
				PartitionID: sub.Key.PartitionID,
				Err:         fmt.Errorf("%w: got %d, want %d", ErrCountMismatch, ar.Values.Len(), len(sub.Positions)),
			}
		}
		for j, pos := range sub.Positions {
			if !placed.CheckedAdd(uint32(pos)) {
				return model.Values{}, fmt.Errorf("%w: position %d written twice", ErrPlacement, pos)
			}
			out.Set(pos, ar.Values, j)
		}
	}
	if got := placed.GetCardinality(); got != uint64(split.Total) {
		return model.Values{}, fmt.Errorf("%w: %d of %d positions written", ErrPlacement, got, split.Total)
	}
	return out, nil
}

// MergeRows assembles full rows of width cols from column segments. The
// result is row-major in caller order.
func MergeRows(split *splitter.Split, t model.ElemType, cols int64, results []result.PartitionResult) (model.Values, error) {
	if err := check(split, results); err != nil {
		return model.Values{}, err
	}

	out := model.NewValues(t, split.Total*int(cols))
	// One bit per (caller position, partition) pair, plus per-row widths
	// to prove every row is covered edge to edge. The pair space exceeds
	// 32 bits for long requests against large maps.
	placed := roaring64.New()
	filled := make([]int64, split.Total)
	for i, sub := range split.Subs {
		rr, ok := results[i].(*result.RowsResult)
		if !ok {
			return model.Values{}, &MergeError{PartitionID: sub.Key.PartitionID, Err: fmt.Errorf("%w: %s", ErrUnexpectedKind, results[i].Kind())}
		}
		if err := rr.Values.CheckType(t); err != nil {
			return model.Values{}, &MergeError{PartitionID: sub.Key.PartitionID, Err: err}
		}
		if len(rr.Rows) != len(sub.Positions) {
			return model.Values{}, &MergeError{
				PartitionID: sub.Key.PartitionID,
				Err:         fmt.Errorf("%w: got %d rows, want %d", ErrCountMismatch, len(rr.Rows), len(sub.Positions)),
			}
		}

		width := sub.Key.Cols()
		for j, pos := range sub.Positions {
			if rr.Rows[j] != sub.Indices[j] {
				return model.Values{}, &MergeError{
					PartitionID: sub.Key.PartitionID,
					Err:         fmt.Errorf("%w: row %d in place of %d", ErrKeyMismatch, rr.Rows[j], sub.Indices[j]),
				}
			}
			if !placed.CheckedAdd(uint64(pos)*uint64(split.Partitions) + uint64(sub.Ordinal)) {
				return model.Values{}, fmt.Errorf("%w: row position %d segment %d written twice", ErrPlacement, pos, sub.Ordinal)
			}
			base := pos*int(cols) + int(sub.Key.ColStart)
			seg := rr.Row(j)
			for c := 0; c < int(width); c++ {
				out.Set(base+c, seg, c)
			}
			filled[pos] += width
		}
	}
	for pos, w := range filled {
		if w != cols {
			return model.Values{}, fmt.Errorf("%w: row position %d has %d of %d columns", ErrPlacement, pos, w, cols)
		}
	}
	return out, nil
}

// MergePaths unions path-map results into a map keyed by requested key.
// Keys for which no shard holds a path are absent from the result.
func MergePaths(split *splitter.Split, results []result.PartitionResult) (map[int64][]int64, error) {
	if err := check(split, results); err != nil {
		return nil, err
	}

	out := make(map[int64][]int64, split.Total)
	placed := roaring.New()
	for i, sub := range split.Subs {
		pr, ok := results[i].(*result.PathMapResult)
		if !ok {
			return nil, &MergeError{PartitionID: sub.Key.PartitionID, Err: fmt.Errorf("%w: %s", ErrUnexpectedKind, results[i].Kind())}
		}

		requested := make(map[int64]struct{}, len(sub.Indices))
		for j, k := range sub.Indices {
			requested[k] = struct{}{}
			if !placed.CheckedAdd(uint32(sub.Positions[j])) {
				return nil, fmt.Errorf("%w: position %d written twice", ErrPlacement, sub.Positions[j])
			}
		}
		for k, path := range pr.Paths {
			if _, ok := requested[k]; !ok {
				return nil, &MergeError{PartitionID: sub.Key.PartitionID, Err: fmt.Errorf("%w: unrequested key %d", ErrKeyMismatch, k)}
			}
			out[k] = path
		}
	}
	if got := placed.GetCardinality(); got != uint64(split.Total) {
		return nil, fmt.Errorf("%w: %d of %d positions covered", ErrPlacement, got, split.Total)
	}
	return out, nil
}

// CountAcks sums the applied counts of update acknowledgements and checks
// each against its sub-request.
func CountAcks(split *splitter.Split, results []result.PartitionResult) (int, error) {
	if err := check(split, results); err != nil {
		return 0, err
	}
	total := 0
	for i, sub := range split.Subs {
		ack, ok := results[i].(*result.AckResult)
		if !ok {
			return 0, &MergeError{PartitionID: sub.Key.PartitionID, Err: fmt.Errorf("%w: %s", ErrUnexpectedKind, results[i].Kind())}
		}
		if ack.Applied != len(sub.Indices) {
			return 0, &MergeError{
				PartitionID: sub.Key.PartitionID,
				Err:         fmt.Errorf("%w: applied %d, want %d", ErrCountMismatch, ack.Applied, len(sub.Indices)),
			}
		}
		total += ack.Applied
	}
	return total, nil
}
