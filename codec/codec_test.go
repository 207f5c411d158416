package codec

import (
	"bytes"
	"encoding/binary"
	"math"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/psmatrix/model"
)

func TestRoundTrip_Primitives(t *testing.T) {
	size := SizeUint8 + SizeInt32 + SizeInt64 + SizeUint64 + SizeFloat32 + SizeFloat64 + SizeString("shard-1:7070")
	w := NewWriter(size)
	w.PutUint8(7)
	w.PutInt32(-12)
	w.PutInt64(math.MinInt64)
	w.PutUint64(math.MaxUint64)
	w.PutFloat32(1.25)
	w.PutFloat64(math.Inf(-1))
	w.PutString("shard-1:7070")

	buf, err := w.Finish()
	require.NoError(t, err)
	require.Len(t, buf, size)

	r := NewReader(buf)
	assert.Equal(t, uint8(7), r.Uint8())
	assert.Equal(t, int32(-12), r.Int32())
	assert.Equal(t, int64(math.MinInt64), r.Int64())
	assert.Equal(t, uint64(math.MaxUint64), r.Uint64())
	assert.Equal(t, float32(1.25), r.Float32())
	assert.True(t, math.IsInf(r.Float64(), -1))
	assert.Equal(t, "shard-1:7070", r.Str())
	require.NoError(t, r.Done())
}

func TestRoundTrip_Arrays(t *testing.T) {
	tests := []struct {
		name   string
		values model.Values
	}{
		{"doubles", model.Doubles([]float64{1.5, -2.25, 0, math.MaxFloat64})},
		{"floats", model.Floats([]float32{3.5, -1})},
		{"longs", model.Longs([]int64{math.MaxInt64, -1, 0})},
		{"empty doubles", model.Doubles([]float64{})},
		{"empty floats", model.Floats([]float32{})},
		{"empty longs", model.Longs([]int64{})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWriter(SizeValues(tt.values))
			w.PutValues(tt.values)
			buf, err := w.Finish()
			require.NoError(t, err)

			r := NewReader(buf)
			got := r.Values(tt.values.Type)
			require.NoError(t, r.Done())
			assert.Equal(t, tt.values, got)
		})
	}
}

func TestRoundTrip_Int32s(t *testing.T) {
	in := []int32{7, 2, 9, 0, math.MinInt32}
	w := NewWriter(SizeInt32s(len(in)) + SizeInt32s(0))
	w.PutInt32s(in)
	w.PutInt32s([]int32{})
	buf, err := w.Finish()
	require.NoError(t, err)

	r := NewReader(buf)
	assert.Equal(t, in, r.Int32s())
	assert.Equal(t, []int32{}, r.Int32s())
	require.NoError(t, r.Done())
}

func TestRoundTrip_LongArrayMap(t *testing.T) {
	tests := []struct {
		name string
		m    map[int64][]int64
	}{
		{"empty", map[int64][]int64{}},
		{"single", map[int64][]int64{42: {1, 2, 3}}},
		{"mixed", map[int64][]int64{9: {}, -3: {100}, 5: {7, 7, 7}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWriter(SizeLongArrayMap(tt.m))
			w.PutLongArrayMap(tt.m)
			buf, err := w.Finish()
			require.NoError(t, err)

			r := NewReader(buf)
			got := r.LongArrayMap()
			require.NoError(t, r.Done())
			assert.Equal(t, tt.m, got)
		})
	}
}

func TestLongArrayMap_Deterministic(t *testing.T) {
	m := map[int64][]int64{3: {1}, 1: {2}, 2: {3}}
	encode := func() []byte {
		w := NewWriter(SizeLongArrayMap(m))
		w.PutLongArrayMap(m)
		buf, err := w.Finish()
		require.NoError(t, err)
		return buf
	}
	first := encode()
	for i := 0; i < 10; i++ {
		assert.True(t, bytes.Equal(first, encode()))
	}
}

func TestWriter_Overflow(t *testing.T) {
	t.Run("write past end", func(t *testing.T) {
		w := NewWriter(SizeInt32)
		w.PutInt64(1)
		_, err := w.Finish()
		require.ErrorIs(t, err, ErrEncodeOverflow)

		var oe *EncodeOverflowError
		require.ErrorAs(t, err, &oe)
		assert.Equal(t, SizeInt32, oe.Expected)
	})

	t.Run("short write", func(t *testing.T) {
		w := NewWriter(SizeInt64)
		w.PutInt32(1)
		_, err := w.Finish()
		var oe *EncodeOverflowError
		require.ErrorAs(t, err, &oe)
		assert.Equal(t, SizeInt64, oe.Expected)
		assert.Equal(t, SizeInt32, oe.Written)
	})

	t.Run("sticky", func(t *testing.T) {
		w := NewWriter(2)
		w.PutInt32(1)
		w.PutUint8(1)
		assert.Equal(t, 0, w.Len())
		assert.Error(t, w.Err())
	})
}

func TestReader_Truncated(t *testing.T) {
	w := NewWriter(SizeFloat64s(3))
	w.PutFloat64s([]float64{1, 2, 3})
	buf, err := w.Finish()
	require.NoError(t, err)

	for cut := 0; cut < len(buf); cut++ {
		r := NewReader(buf[:cut])
		_ = r.Float64s()
		err := r.Done()
		require.Error(t, err, "cut=%d", cut)
		assert.ErrorIs(t, err, ErrCorrupt)
	}
}

func TestReader_NegativeCount(t *testing.T) {
	w := NewWriter(SizeInt32)
	w.PutInt32(-5)
	buf, err := w.Finish()
	require.NoError(t, err)

	r := NewReader(buf)
	assert.Nil(t, r.Int64s())
	var de *DecodeError
	require.ErrorAs(t, r.Err(), &de)
	assert.Equal(t, "int64 array count", de.What)
}

func TestReader_HugeCountDoesNotAllocate(t *testing.T) {
	w := NewWriter(SizeInt32 + SizeInt64)
	w.PutInt32(math.MaxInt32)
	w.PutInt64(1)
	buf, err := w.Finish()
	require.NoError(t, err)

	r := NewReader(buf)
	assert.Nil(t, r.Float64s())
	assert.ErrorIs(t, r.Err(), ErrCorrupt)
}

func TestReader_TrailingBytes(t *testing.T) {
	r := NewReader([]byte{1, 2})
	r.Uint8()
	err := r.Done()
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestReader_DuplicateMapKey(t *testing.T) {
	size := SizeInt32 + 2*(SizeInt64+SizeInt64s(0))
	w := NewWriter(size)
	w.PutInt32(2)
	w.PutInt64(1)
	w.PutInt64s([]int64{})
	w.PutInt64(1)
	w.PutInt64s([]int64{})
	buf, err := w.Finish()
	require.NoError(t, err)

	r := NewReader(buf)
	assert.Nil(t, r.LongArrayMap())
	assert.ErrorIs(t, r.Err(), ErrCorrupt)
}

func TestCompressBlock(t *testing.T) {
	compressible := bytes.Repeat([]byte("partition-key"), 512)
	random := make([]byte, 256)
	for i := range random {
		random[i] = byte(i*131 + 7)
	}

	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			for _, data := range [][]byte{compressible, random, {}} {
				block, err := CompressBlock(data, c)
				require.NoError(t, err)
				if c != CompressionNone && len(data) == len(compressible) {
					assert.Less(t, len(block), len(data))
				}

				got, err := DecompressBlock(block, c)
				require.NoError(t, err)
				assert.Equal(t, len(data), len(got))
				assert.True(t, bytes.Equal(data, got))
			}
		})
	}
}

func TestDecompressBlock_Corrupt(t *testing.T) {
	_, err := DecompressBlock([]byte{1, 2, 3}, CompressionLZ4)
	assert.ErrorIs(t, err, ErrCorrupt)

	block, err := CompressBlock(bytes.Repeat([]byte("x"), 1024), CompressionZSTD)
	require.NoError(t, err)
	_, err = DecompressBlock(block[:len(block)-1], CompressionZSTD)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestDecompressBlock_RejectsOversizedHeader(t *testing.T) {
	header := func(rawLen, compLen uint32, payload ...byte) []byte {
		b := make([]byte, BlockHeaderSize, BlockHeaderSize+len(payload))
		binary.LittleEndian.PutUint32(b[0:], rawLen)
		binary.LittleEndian.PutUint32(b[4:], compLen)
		return append(b, payload...)
	}

	tests := []struct {
		name  string
		block []byte
		c     Compression
	}{
		{"lz4 huge raw length", header(0xF0000000, 1, 0), CompressionLZ4},
		{"lz4 impossible ratio", header(1<<20, 4, 0, 0, 0, 0), CompressionLZ4},
		{"zstd huge raw length", header(0xF0000000, 1, 0), CompressionZSTD},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var before, after runtime.MemStats
			runtime.ReadMemStats(&before)

			_, err := DecompressBlock(tt.block, tt.c)
			require.ErrorIs(t, err, ErrCorrupt)

			runtime.ReadMemStats(&after)
			assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(1<<20))
		})
	}
}
