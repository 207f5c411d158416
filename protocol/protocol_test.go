package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/psmatrix/codec"
	"github.com/hupe1980/psmatrix/model"
	"github.com/hupe1980/psmatrix/partition"
	"github.com/hupe1980/psmatrix/result"
)

var key = partition.Key{MatrixID: 1, PartitionID: 1, RowStart: 0, RowEnd: 1, ColStart: 5, ColEnd: 10, Addr: "s1"}

func TestRequest_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		req  *Request
	}{
		{"index get narrow", &Request{ID: 7, Op: OpIndexGet, ElemType: model.ElemDouble, Key: key, Row: 0, Indices: []int64{7, 9}}},
		{"index get wide", &Request{ID: 8, Op: OpIndexGet, ElemType: model.ElemLong, Key: key, Row: 3, Indices: []int64{1 << 33, 5}}},
		{"index get empty", &Request{ID: 9, Op: OpIndexGet, ElemType: model.ElemFloat, Key: key, Indices: []int64{}}},
		{"get rows", &Request{ID: 10, Op: OpGetRows, ElemType: model.ElemDouble, Key: key, Indices: []int64{0, 0}}},
		{"path tail", &Request{ID: 11, Op: OpPullPathTail, ElemType: model.ElemLong, Key: key, Indices: []int64{42}}},
		{"update", &Request{
			ID: 12, Op: OpIndexUpdate, ElemType: model.ElemFloat, Key: key, Indices: []int64{6, 8},
			UpdateOp: model.UpdateAdd, Values: model.Floats([]float32{0.5, -1}),
		}},
	}

	for _, tt := range tests {
		for _, c := range []codec.Compression{codec.CompressionNone, codec.CompressionLZ4, codec.CompressionZSTD} {
			t.Run(tt.name+"/"+c.String(), func(t *testing.T) {
				frame, err := EncodeRequest(tt.req, c)
				require.NoError(t, err)
				if c == codec.CompressionNone {
					assert.Len(t, frame, HeaderSize+tt.req.BodySize())
				}

				id, err := PeekRequestID(frame)
				require.NoError(t, err)
				assert.Equal(t, tt.req.ID, id)

				got, err := DecodeRequest(frame)
				require.NoError(t, err)
				assert.Equal(t, tt.req, got)
			})
		}
	}
}

func TestRequest_NarrowIndicesAreSmaller(t *testing.T) {
	narrow := &Request{Op: OpIndexGet, ElemType: model.ElemDouble, Key: key, Indices: []int64{1, 2, 3}}
	wide := &Request{Op: OpIndexGet, ElemType: model.ElemDouble, Key: key, Indices: []int64{1, 2, 1 << 40}}
	assert.Equal(t, 3*4, wide.BodySize()-narrow.BodySize())
}

func TestDecodeRequest_Errors(t *testing.T) {
	frame, err := EncodeRequest(&Request{ID: 1, Op: OpIndexGet, ElemType: model.ElemDouble, Key: key, Indices: []int64{5}}, codec.CompressionNone)
	require.NoError(t, err)

	t.Run("truncated", func(t *testing.T) {
		for cut := 0; cut < len(frame); cut++ {
			_, err := DecodeRequest(frame[:cut])
			require.ErrorIs(t, err, codec.ErrCorrupt, "cut=%d", cut)
		}
	})

	t.Run("unknown op", func(t *testing.T) {
		bad := append([]byte(nil), frame...)
		bad[HeaderSize] = 77
		_, err := DecodeRequest(bad)
		assert.ErrorIs(t, err, codec.ErrCorrupt)
	})

	t.Run("unknown compression", func(t *testing.T) {
		bad := append([]byte(nil), frame...)
		bad[codec.SizeUint64] = 3
		_, err := DecodeRequest(bad)
		assert.ErrorIs(t, err, codec.ErrCorrupt)
	})

	t.Run("update value count", func(t *testing.T) {
		req := &Request{
			ID: 2, Op: OpIndexUpdate, ElemType: model.ElemDouble, Key: key, Indices: []int64{5, 6},
			UpdateOp: model.UpdateSet, Values: model.Doubles([]float64{1}),
		}
		frame, err := EncodeRequest(req, codec.CompressionNone)
		require.NoError(t, err)
		_, err = DecodeRequest(frame)
		assert.ErrorIs(t, err, codec.ErrCorrupt)
	})
}

func TestResponse_RoundTrip(t *testing.T) {
	res := &result.ArrayResult{PartKey: key, Values: model.Doubles([]float64{70, 90})}

	for _, c := range []codec.Compression{codec.CompressionNone, codec.CompressionLZ4, codec.CompressionZSTD} {
		frame, err := EncodeResponse(42, res, c)
		require.NoError(t, err)

		id, err := PeekRequestID(frame)
		require.NoError(t, err)
		assert.Equal(t, uint64(42), id)

		resp, err := DecodeResponse(frame)
		require.NoError(t, err)
		assert.Equal(t, StatusOK, resp.Status)
		assert.Equal(t, res, resp.Result)
	}
}

func TestResponse_Error(t *testing.T) {
	frame := EncodeError(5, CodeTypeMismatch, "partition stores long")

	resp, err := DecodeResponse(frame)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), resp.ID)
	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, CodeTypeMismatch, resp.Code)
	assert.Equal(t, "partition stores long", resp.Message)
	assert.Nil(t, resp.Result)
}

func TestDecodeResponse_UnknownStatus(t *testing.T) {
	frame := EncodeError(5, CodeInternal, "x")
	frame[HeaderSize] = 9
	_, err := DecodeResponse(frame)
	assert.ErrorIs(t, err, codec.ErrCorrupt)
}
