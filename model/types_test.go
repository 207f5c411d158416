package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElemType(t *testing.T) {
	assert.True(t, ElemDouble.Valid())
	assert.True(t, ElemLong.Valid())
	assert.False(t, ElemType(0).Valid())
	assert.False(t, ElemType(9).Valid())

	assert.Equal(t, 8, ElemDouble.Width())
	assert.Equal(t, 4, ElemFloat.Width())
	assert.Equal(t, 8, ElemLong.Width())
	assert.Equal(t, 0, ElemType(9).Width())

	assert.Equal(t, "double", ElemDouble.String())
	assert.Equal(t, "ElemType(9)", ElemType(9).String())
}

func TestValues_SetAndApply(t *testing.T) {
	dst := NewValues(ElemDouble, 3)
	src := Doubles([]float64{1.5, 2.5})

	dst.Set(2, src, 0)
	dst.Apply(UpdateAdd, 2, src, 1)
	dst.Apply(UpdateSet, 0, src, 1)

	assert.Equal(t, []float64{2.5, 0, 4}, dst.Doubles)
	assert.Equal(t, 3, dst.Len())
}

func TestValues_Slice(t *testing.T) {
	v := Longs([]int64{1, 2, 3, 4})
	s := v.Slice(1, 3)
	assert.Equal(t, []int64{2, 3}, s.Longs)
	assert.Equal(t, ElemLong, s.Type)

	f := Floats([]float32{1, 2}).Slice(0, 0)
	assert.Equal(t, 0, f.Len())
}

func TestValues_CheckType(t *testing.T) {
	require.NoError(t, Floats(nil).CheckType(ElemFloat))
	err := Floats(nil).CheckType(ElemDouble)
	assert.ErrorIs(t, err, ErrTypeMismatch)
}
