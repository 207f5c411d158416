package psmatrix

import "github.com/hupe1980/psmatrix/model"

// GlobalResult holds the values of an indexed get in caller order:
// Values element i belongs to Indices[i].
type GlobalResult struct {
	MatrixID int32
	Row      int64
	Indices  []int64
	Values   model.Values
}

// Len returns the number of entries.
func (r *GlobalResult) Len() int { return r.Values.Len() }

// Doubles returns the values of a double result.
func (r *GlobalResult) Doubles() []float64 { return r.Values.Doubles }

// Floats returns the values of a float result.
func (r *GlobalResult) Floats() []float32 { return r.Values.Floats }

// Longs returns the values of a long result.
func (r *GlobalResult) Longs() []int64 { return r.Values.Longs }

// RowsResult holds full rows in caller order, row-major.
type RowsResult struct {
	MatrixID int32
	Rows     []int64
	Cols     int64
	Values   model.Values
}

// Row returns the i-th requested row. It shares the result's backing array.
func (r *RowsResult) Row(i int) model.Values {
	w := int(r.Cols)
	return r.Values.Slice(i*w, (i+1)*w)
}
