package codec

import "github.com/hupe1980/psmatrix/model"

// Fixed widths of the primitive encodings.
const (
	SizeUint8   = 1
	SizeInt32   = 4
	SizeInt64   = 8
	SizeUint64  = 8
	SizeFloat32 = 4
	SizeFloat64 = 8
)

// SizeString returns the encoded size of a length-prefixed string.
func SizeString(s string) int { return SizeInt32 + len(s) }

// SizeInt32s returns the encoded size of a length-prefixed int32 array of n elements.
func SizeInt32s(n int) int { return SizeInt32 + n*SizeInt32 }

// SizeInt64s returns the encoded size of a length-prefixed int64 array of n elements.
func SizeInt64s(n int) int { return SizeInt32 + n*SizeInt64 }

// SizeFloat32s returns the encoded size of a length-prefixed float32 array of n elements.
func SizeFloat32s(n int) int { return SizeInt32 + n*SizeFloat32 }

// SizeFloat64s returns the encoded size of a length-prefixed float64 array of n elements.
func SizeFloat64s(n int) int { return SizeInt32 + n*SizeFloat64 }

// SizeValues returns the encoded size of a typed value vector.
func SizeValues(v model.Values) int {
	return SizeInt32 + v.Len()*v.Type.Width()
}

// SizeLongArrayMap returns the encoded size of a long-array map.
func SizeLongArrayMap(m map[int64][]int64) int {
	n := SizeInt32
	for _, vs := range m {
		n += SizeInt64 + SizeInt64s(len(vs))
	}
	return n
}
