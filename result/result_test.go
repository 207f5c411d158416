package result

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/psmatrix/codec"
	"github.com/hupe1980/psmatrix/model"
	"github.com/hupe1980/psmatrix/partition"
)

var testKey = partition.Key{MatrixID: 4, PartitionID: 1, RowStart: 0, RowEnd: 2, ColStart: 5, ColEnd: 8, Addr: "shard-1"}

func roundTrip(t *testing.T, r PartitionResult) PartitionResult {
	t.Helper()
	buf, err := Encode(r)
	require.NoError(t, err)
	require.Len(t, buf, r.SizeOf())

	got, err := Decode(buf)
	require.NoError(t, err)
	return got
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		res  PartitionResult
		kind Kind
	}{
		{"doubles", &ArrayResult{PartKey: testKey, Values: model.Doubles([]float64{20, 0, -1.5})}, KindDoubleArray},
		{"empty doubles", &ArrayResult{PartKey: testKey, Values: model.Doubles([]float64{})}, KindDoubleArray},
		{"floats", &ArrayResult{PartKey: testKey, Values: model.Floats([]float32{1.25, 2})}, KindFloatArray},
		{"longs", &ArrayResult{PartKey: testKey, Values: model.Longs([]int64{1 << 40, -3})}, KindLongArray},
		{"paths", &PathMapResult{PartKey: testKey, Paths: map[int64][]int64{7: {1, 2, 3}, -2: {}}}, KindPathMap},
		{"empty paths", &PathMapResult{PartKey: testKey, Paths: map[int64][]int64{}}, KindPathMap},
		{"rows", &RowsResult{PartKey: testKey, Rows: []int64{1, 0}, Values: model.Doubles([]float64{1, 2, 3, 4, 5, 6})}, KindRows},
		{"no rows", &RowsResult{PartKey: testKey, Rows: []int64{}, Values: model.Longs([]int64{})}, KindRows},
		{"ack", &AckResult{PartKey: testKey, Applied: 12}, KindAck},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.res.Kind())
			got := roundTrip(t, tt.res)
			assert.Equal(t, tt.res, got)
			assert.Equal(t, testKey, got.Key())
		})
	}
}

func TestRowsResult_Row(t *testing.T) {
	r := &RowsResult{PartKey: testKey, Rows: []int64{1, 0}, Values: model.Doubles([]float64{1, 2, 3, 4, 5, 6})}
	assert.Equal(t, []float64{4, 5, 6}, r.Row(1).Doubles)
}

func TestDecode_Truncated(t *testing.T) {
	buf, err := Encode(&ArrayResult{PartKey: testKey, Values: model.Doubles([]float64{1, 2, 3})})
	require.NoError(t, err)

	for cut := 0; cut < len(buf); cut++ {
		_, err := Decode(buf[:cut])
		require.ErrorIs(t, err, codec.ErrCorrupt, "cut=%d", cut)
	}
}

func TestDecode_UnknownKind(t *testing.T) {
	buf, err := Encode(&AckResult{PartKey: testKey, Applied: 1})
	require.NoError(t, err)
	buf[0] = 99

	_, err = Decode(buf)
	var de *codec.DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "result kind", de.What)
}

func TestDecode_RowsShapeMismatch(t *testing.T) {
	// Two rows of a three-column partition need six values.
	bad := &RowsResult{PartKey: testKey, Rows: []int64{0, 1}, Values: model.Doubles([]float64{1, 2, 3})}
	buf, err := Encode(bad)
	require.NoError(t, err)

	_, err = Decode(buf)
	assert.ErrorIs(t, err, codec.ErrCorrupt)
}

func TestEncode_UnknownElemType(t *testing.T) {
	_, err := Encode(&RowsResult{PartKey: testKey, Rows: []int64{}, Values: model.Values{Type: 42}})
	assert.ErrorIs(t, err, codec.ErrEncodeOverflow)
}
