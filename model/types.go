package model

import (
	"errors"
	"fmt"
)

// ErrTypeMismatch is returned when two value vectors (or a request and a
// stored partition) disagree on the element type.
var ErrTypeMismatch = errors.New("element type mismatch")

// ElemType tags the element type of a matrix or a request.
type ElemType uint8

const (
	// ElemDouble stores float64 elements.
	ElemDouble ElemType = 1
	// ElemFloat stores float32 elements.
	ElemFloat ElemType = 2
	// ElemLong stores int64 elements.
	ElemLong ElemType = 3
)

// Valid reports whether t is a known element type.
func (t ElemType) Valid() bool {
	return t >= ElemDouble && t <= ElemLong
}

// Width returns the encoded width of a single element in bytes.
func (t ElemType) Width() int {
	switch t {
	case ElemFloat:
		return 4
	case ElemDouble, ElemLong:
		return 8
	default:
		return 0
	}
}

func (t ElemType) String() string {
	switch t {
	case ElemDouble:
		return "double"
	case ElemFloat:
		return "float"
	case ElemLong:
		return "long"
	default:
		return fmt.Sprintf("ElemType(%d)", uint8(t))
	}
}

// UpdateOp selects how pushed values are applied to stored elements.
type UpdateOp uint8

const (
	// UpdateSet overwrites stored elements.
	UpdateSet UpdateOp = 1
	// UpdateAdd adds to stored elements (increment).
	UpdateAdd UpdateOp = 2
)

// Valid reports whether op is a known update operation.
func (op UpdateOp) Valid() bool {
	return op == UpdateSet || op == UpdateAdd
}

func (op UpdateOp) String() string {
	switch op {
	case UpdateSet:
		return "set"
	case UpdateAdd:
		return "add"
	default:
		return fmt.Sprintf("UpdateOp(%d)", uint8(op))
	}
}

// Values is a typed vector. Only the slice matching Type is populated.
type Values struct {
	Type    ElemType
	Doubles []float64
	Floats  []float32
	Longs   []int64
}

// NewValues allocates a zeroed vector of n elements of type t.
func NewValues(t ElemType, n int) Values {
	v := Values{Type: t}
	switch t {
	case ElemDouble:
		v.Doubles = make([]float64, n)
	case ElemFloat:
		v.Floats = make([]float32, n)
	case ElemLong:
		v.Longs = make([]int64, n)
	}
	return v
}

// Doubles wraps a float64 slice without copying.
func Doubles(vs []float64) Values { return Values{Type: ElemDouble, Doubles: vs} }

// Floats wraps a float32 slice without copying.
func Floats(vs []float32) Values { return Values{Type: ElemFloat, Floats: vs} }

// Longs wraps an int64 slice without copying.
func Longs(vs []int64) Values { return Values{Type: ElemLong, Longs: vs} }

// Len returns the number of elements.
func (v Values) Len() int {
	switch v.Type {
	case ElemDouble:
		return len(v.Doubles)
	case ElemFloat:
		return len(v.Floats)
	case ElemLong:
		return len(v.Longs)
	default:
		return 0
	}
}

// Slice returns the sub-vector [i, j) sharing the backing array.
func (v Values) Slice(i, j int) Values {
	out := Values{Type: v.Type}
	switch v.Type {
	case ElemDouble:
		out.Doubles = v.Doubles[i:j]
	case ElemFloat:
		out.Floats = v.Floats[i:j]
	case ElemLong:
		out.Longs = v.Longs[i:j]
	}
	return out
}

// Set copies src[srcIdx] into v[dstIdx]. Both vectors must share a type.
func (v Values) Set(dstIdx int, src Values, srcIdx int) {
	switch v.Type {
	case ElemDouble:
		v.Doubles[dstIdx] = src.Doubles[srcIdx]
	case ElemFloat:
		v.Floats[dstIdx] = src.Floats[srcIdx]
	case ElemLong:
		v.Longs[dstIdx] = src.Longs[srcIdx]
	}
}

// Apply combines src[srcIdx] into v[dstIdx] according to op.
func (v Values) Apply(op UpdateOp, dstIdx int, src Values, srcIdx int) {
	if op == UpdateSet {
		v.Set(dstIdx, src, srcIdx)
		return
	}
	switch v.Type {
	case ElemDouble:
		v.Doubles[dstIdx] += src.Doubles[srcIdx]
	case ElemFloat:
		v.Floats[dstIdx] += src.Floats[srcIdx]
	case ElemLong:
		v.Longs[dstIdx] += src.Longs[srcIdx]
	}
}

// CheckType returns ErrTypeMismatch (wrapped) when v is not of type want.
func (v Values) CheckType(want ElemType) error {
	if v.Type != want {
		return fmt.Errorf("%w: got %s, want %s", ErrTypeMismatch, v.Type, want)
	}
	return nil
}
