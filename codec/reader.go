package codec

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/hupe1980/psmatrix/model"
)

var errNegativeCount = errors.New("negative count")

// Reader decodes a frame with a sticky error.
type Reader struct {
	buf []byte
	off int
	err error
}

// NewReader returns a Reader positioned at the start of b.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Offset returns the current read position.
func (r *Reader) Offset() int { return r.off }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

// Err returns the first decode failure, if any.
func (r *Reader) Err() error { return r.err }

// Fail records a semantic decode failure (unknown tag, inconsistent count).
// The first failure wins.
func (r *Reader) Fail(what string, cause error) {
	if r.err == nil {
		r.err = NewDecodeError(r.off, what, cause)
	}
}

// Done returns the sticky error, or a DecodeError when unread bytes remain.
func (r *Reader) Done() error {
	if r.err != nil {
		return r.err
	}
	if r.off != len(r.buf) {
		return &DecodeError{Offset: r.off, What: "trailing bytes", Have: len(r.buf) - r.off}
	}
	return nil
}

func (r *Reader) take(n int, what string) []byte {
	if r.err != nil {
		return nil
	}
	if n > len(r.buf)-r.off {
		r.err = &DecodeError{Offset: r.off, What: what, Need: n, Have: len(r.buf) - r.off}
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

// count reads an int32 element count and checks that count*width bytes remain.
func (r *Reader) count(width int, what string) int {
	b := r.take(SizeInt32, what+" count")
	if b == nil {
		return 0
	}
	n := int(int32(binary.LittleEndian.Uint32(b)))
	if n < 0 {
		r.err = NewDecodeError(r.off-SizeInt32, what+" count", errNegativeCount)
		return 0
	}
	if width > 0 && n > (len(r.buf)-r.off)/width {
		r.err = &DecodeError{Offset: r.off, What: what, Need: n * width, Have: len(r.buf) - r.off}
		return 0
	}
	return n
}

// Uint8 reads a single byte.
func (r *Reader) Uint8() uint8 {
	b := r.take(SizeUint8, "uint8")
	if b == nil {
		return 0
	}
	return b[0]
}

// Int32 reads a little-endian int32.
func (r *Reader) Int32() int32 {
	b := r.take(SizeInt32, "int32")
	if b == nil {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b))
}

// Int64 reads a little-endian int64.
func (r *Reader) Int64() int64 {
	b := r.take(SizeInt64, "int64")
	if b == nil {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(b))
}

// Uint64 reads a little-endian uint64.
func (r *Reader) Uint64() uint64 {
	b := r.take(SizeUint64, "uint64")
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// Float32 reads an IEEE-754 float32.
func (r *Reader) Float32() float32 {
	b := r.take(SizeFloat32, "float32")
	if b == nil {
		return 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

// Float64 reads an IEEE-754 float64.
func (r *Reader) Float64() float64 {
	b := r.take(SizeFloat64, "float64")
	if b == nil {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

// Str reads a length-prefixed string.
func (r *Reader) Str() string {
	n := r.count(1, "string")
	b := r.take(n, "string")
	if b == nil {
		return ""
	}
	return string(b)
}

// Bytes returns the next n raw bytes without copying.
func (r *Reader) Bytes(n int) []byte {
	return r.take(n, "bytes")
}

// Int32s reads a length-prefixed int32 array.
func (r *Reader) Int32s() []int32 {
	n := r.count(SizeInt32, "int32 array")
	b := r.take(n*SizeInt32, "int32 array")
	if b == nil {
		return nil
	}
	out := make([]int32, n)
	if nativeLittleEndian {
		copy(int32Bytes(out), b)
		return out
	}
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(b[i*SizeInt32:]))
	}
	return out
}

// Int64s reads a length-prefixed int64 array.
func (r *Reader) Int64s() []int64 {
	n := r.count(SizeInt64, "int64 array")
	b := r.take(n*SizeInt64, "int64 array")
	if b == nil {
		return nil
	}
	out := make([]int64, n)
	if nativeLittleEndian {
		copy(int64Bytes(out), b)
		return out
	}
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(b[i*SizeInt64:]))
	}
	return out
}

// Float32s reads a length-prefixed float32 array.
func (r *Reader) Float32s() []float32 {
	n := r.count(SizeFloat32, "float32 array")
	b := r.take(n*SizeFloat32, "float32 array")
	if b == nil {
		return nil
	}
	out := make([]float32, n)
	if nativeLittleEndian {
		copy(float32Bytes(out), b)
		return out
	}
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*SizeFloat32:]))
	}
	return out
}

// Float64s reads a length-prefixed float64 array.
func (r *Reader) Float64s() []float64 {
	n := r.count(SizeFloat64, "float64 array")
	b := r.take(n*SizeFloat64, "float64 array")
	if b == nil {
		return nil
	}
	out := make([]float64, n)
	if nativeLittleEndian {
		copy(float64Bytes(out), b)
		return out
	}
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*SizeFloat64:]))
	}
	return out
}

// Values reads a length-prefixed array of element type t.
func (r *Reader) Values(t model.ElemType) model.Values {
	switch t {
	case model.ElemDouble:
		return model.Doubles(r.Float64s())
	case model.ElemFloat:
		return model.Floats(r.Float32s())
	case model.ElemLong:
		return model.Longs(r.Int64s())
	default:
		r.Fail("values", model.ErrTypeMismatch)
		return model.Values{Type: t}
	}
}

// LongArrayMap reads a long-array map. Duplicate keys are rejected.
func (r *Reader) LongArrayMap() map[int64][]int64 {
	// Each entry needs at least a key and an array count.
	n := r.count(SizeInt64+SizeInt32, "long array map")
	if r.err != nil {
		return nil
	}
	m := make(map[int64][]int64, n)
	for i := 0; i < n; i++ {
		k := r.Int64()
		vs := r.Int64s()
		if r.err != nil {
			return nil
		}
		if _, dup := m[k]; dup {
			r.Fail("long array map", errors.New("duplicate key"))
			return nil
		}
		m[k] = vs
	}
	return m
}
