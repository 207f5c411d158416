package codec

import (
	"encoding/binary"
	"maps"
	"math"
	"slices"

	"github.com/hupe1980/psmatrix/internal/conv"
	"github.com/hupe1980/psmatrix/model"
)

// Writer encodes into a buffer pre-sized with the Size* helpers.
//
// Writes past the end of the buffer do not grow it; they record an
// *EncodeOverflowError that Finish reports.
type Writer struct {
	buf []byte
	off int
	err error
}

// NewWriter returns a Writer over a fresh buffer of exactly size bytes.
func NewWriter(size int) *Writer {
	return &Writer{buf: make([]byte, size)}
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return w.off }

// Cap returns the pre-computed frame size.
func (w *Writer) Cap() int { return len(w.buf) }

// Err returns the first overflow recorded, if any.
func (w *Writer) Err() error { return w.err }

// Finish returns the encoded frame. It fails when the writer overflowed or
// when fewer bytes were written than the frame was sized for.
func (w *Writer) Finish() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	if w.off != len(w.buf) {
		return nil, &EncodeOverflowError{Expected: len(w.buf), Written: w.off}
	}
	return w.buf, nil
}

func (w *Writer) reserve(n int) []byte {
	if w.err != nil {
		return nil
	}
	if w.off+n > len(w.buf) {
		w.err = &EncodeOverflowError{Expected: len(w.buf), Written: w.off + n}
		return nil
	}
	b := w.buf[w.off : w.off+n]
	w.off += n
	return b
}

func (w *Writer) putCount(n int) {
	c, err := conv.IntToInt32(n)
	if err != nil {
		if w.err == nil {
			w.err = &EncodeOverflowError{Expected: len(w.buf), Written: w.off, Reason: err.Error()}
		}
		return
	}
	w.PutInt32(c)
}

// PutUint8 writes a single byte.
func (w *Writer) PutUint8(v uint8) {
	if b := w.reserve(SizeUint8); b != nil {
		b[0] = v
	}
}

// PutInt32 writes a little-endian int32.
func (w *Writer) PutInt32(v int32) {
	if b := w.reserve(SizeInt32); b != nil {
		binary.LittleEndian.PutUint32(b, uint32(v))
	}
}

// PutInt64 writes a little-endian int64.
func (w *Writer) PutInt64(v int64) {
	if b := w.reserve(SizeInt64); b != nil {
		binary.LittleEndian.PutUint64(b, uint64(v))
	}
}

// PutUint64 writes a little-endian uint64.
func (w *Writer) PutUint64(v uint64) {
	if b := w.reserve(SizeUint64); b != nil {
		binary.LittleEndian.PutUint64(b, v)
	}
}

// PutFloat32 writes an IEEE-754 float32.
func (w *Writer) PutFloat32(v float32) {
	if b := w.reserve(SizeFloat32); b != nil {
		binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	}
}

// PutFloat64 writes an IEEE-754 float64.
func (w *Writer) PutFloat64(v float64) {
	if b := w.reserve(SizeFloat64); b != nil {
		binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	}
}

// PutString writes a length-prefixed string.
func (w *Writer) PutString(s string) {
	w.putCount(len(s))
	if b := w.reserve(len(s)); b != nil {
		copy(b, s)
	}
}

// PutBytes writes raw bytes without a length prefix.
func (w *Writer) PutBytes(p []byte) {
	if b := w.reserve(len(p)); b != nil {
		copy(b, p)
	}
}

// PutInt32s writes a length-prefixed int32 array.
func (w *Writer) PutInt32s(vs []int32) {
	w.putCount(len(vs))
	b := w.reserve(len(vs) * SizeInt32)
	if b == nil {
		return
	}
	if nativeLittleEndian {
		copy(b, int32Bytes(vs))
		return
	}
	for i, v := range vs {
		binary.LittleEndian.PutUint32(b[i*SizeInt32:], uint32(v))
	}
}

// PutInt64s writes a length-prefixed int64 array.
func (w *Writer) PutInt64s(vs []int64) {
	w.putCount(len(vs))
	b := w.reserve(len(vs) * SizeInt64)
	if b == nil {
		return
	}
	if nativeLittleEndian {
		copy(b, int64Bytes(vs))
		return
	}
	for i, v := range vs {
		binary.LittleEndian.PutUint64(b[i*SizeInt64:], uint64(v))
	}
}

// PutFloat32s writes a length-prefixed float32 array.
func (w *Writer) PutFloat32s(vs []float32) {
	w.putCount(len(vs))
	b := w.reserve(len(vs) * SizeFloat32)
	if b == nil {
		return
	}
	if nativeLittleEndian {
		copy(b, float32Bytes(vs))
		return
	}
	for i, v := range vs {
		binary.LittleEndian.PutUint32(b[i*SizeFloat32:], math.Float32bits(v))
	}
}

// PutFloat64s writes a length-prefixed float64 array.
func (w *Writer) PutFloat64s(vs []float64) {
	w.putCount(len(vs))
	b := w.reserve(len(vs) * SizeFloat64)
	if b == nil {
		return
	}
	if nativeLittleEndian {
		copy(b, float64Bytes(vs))
		return
	}
	for i, v := range vs {
		binary.LittleEndian.PutUint64(b[i*SizeFloat64:], math.Float64bits(v))
	}
}

// PutValues writes a typed vector as a length-prefixed array of its element
// type. The type tag itself is not written; frames carry it separately.
func (w *Writer) PutValues(v model.Values) {
	switch v.Type {
	case model.ElemDouble:
		w.PutFloat64s(v.Doubles)
	case model.ElemFloat:
		w.PutFloat32s(v.Floats)
	case model.ElemLong:
		w.PutInt64s(v.Longs)
	default:
		if w.err == nil {
			w.err = &EncodeOverflowError{Expected: len(w.buf), Written: w.off, Reason: "unknown element type " + v.Type.String()}
		}
	}
}

// PutLongArrayMap writes a long-array map with keys in ascending order.
func (w *Writer) PutLongArrayMap(m map[int64][]int64) {
	w.putCount(len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		w.PutInt64(k)
		w.PutInt64s(m[k])
	}
}
