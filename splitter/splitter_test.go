package splitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/psmatrix/model"
	"github.com/hupe1980/psmatrix/partition"
	"github.com/hupe1980/psmatrix/testutil"
)

func scenarioMap(t *testing.T) *partition.Map {
	t.Helper()
	m, err := partition.NewMap(1, 1, 10, []partition.Key{
		{MatrixID: 1, PartitionID: 0, RowStart: 0, RowEnd: 1, ColStart: 0, ColEnd: 5, Addr: "s0"},
		{MatrixID: 1, PartitionID: 1, RowStart: 0, RowEnd: 1, ColStart: 5, ColEnd: 10, Addr: "s1"},
	})
	require.NoError(t, err)
	return m
}

func TestSplitIndices_Scenario(t *testing.T) {
	pm := scenarioMap(t)

	s, err := SplitIndices(pm, 0, []int64{7, 2, 9, 0})
	require.NoError(t, err)
	require.Len(t, s.Subs, 2)
	assert.Equal(t, 4, s.Total)

	p0, p1 := s.Subs[0], s.Subs[1]
	assert.Equal(t, int32(0), p0.Key.PartitionID)
	assert.Equal(t, []int64{2, 0}, p0.Indices)
	assert.Equal(t, []int{1, 3}, p0.Positions)

	assert.Equal(t, int32(1), p1.Key.PartitionID)
	assert.Equal(t, []int64{7, 9}, p1.Indices)
	assert.Equal(t, []int{0, 2}, p1.Positions)
}

func TestSplitIndices_OmitsEmptyPartitions(t *testing.T) {
	pm := scenarioMap(t)

	s, err := SplitIndices(pm, 0, []int64{6, 6, 8})
	require.NoError(t, err)
	require.Len(t, s.Subs, 1)
	assert.Equal(t, 1, s.Subs[0].Ordinal)
	assert.Equal(t, []int64{6, 6, 8}, s.Subs[0].Indices)
}

func TestSplitIndices_Empty(t *testing.T) {
	s, err := SplitIndices(scenarioMap(t), 0, nil)
	require.NoError(t, err)
	assert.Empty(t, s.Subs)
	assert.True(t, s.Coverage().IsEmpty())
}

func TestSplitIndices_OutOfBounds(t *testing.T) {
	pm := scenarioMap(t)

	tests := []struct {
		name string
		row  int64
		idx  []int64
		pos  int
	}{
		{"past end", 0, []int64{1, 10}, 1},
		{"negative", 0, []int64{-1}, 0},
		{"bad row", 1, []int64{0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SplitIndices(pm, tt.row, tt.idx)
			require.ErrorIs(t, err, ErrOutOfBounds)
			var oob *OutOfBoundsError
			require.ErrorAs(t, err, &oob)
			assert.Equal(t, tt.pos, oob.Position)
			assert.Equal(t, int32(1), oob.MatrixID)
		})
	}
}

// Every caller position appears exactly once, and each entry lands in the
// partition that owns it.
func TestSplitIndices_CoverageProperty(t *testing.T) {
	rng := testutil.NewRNG(1)
	for trial := 0; trial < 50; trial++ {
		cols := int64(1 + rng.Intn(500))
		block := int64(1 + rng.Intn(64))
		pm, err := partition.NewGrid(2, 3, cols, 1, block, []string{"a", "b", "c"})
		require.NoError(t, err)

		row := int64(rng.Intn(3))
		idx := make([]int64, rng.Intn(200))
		for i := range idx {
			idx[i] = rng.Int63n(cols)
		}

		s, err := SplitIndices(pm, row, idx)
		require.NoError(t, err)

		seen := 0
		for _, sub := range s.Subs {
			require.Len(t, sub.Positions, len(sub.Indices))
			for j, pos := range sub.Positions {
				assert.Equal(t, idx[pos], sub.Indices[j])
				assert.True(t, sub.Key.ContainsCol(sub.Indices[j]))
				assert.True(t, sub.Key.ContainsRow(row))
			}
			seen += len(sub.Positions)
		}
		assert.Equal(t, len(idx), seen)
		assert.Equal(t, uint64(len(idx)), s.Coverage().GetCardinality())
	}
}

func TestSplitRows(t *testing.T) {
	// 3 bands of 2 rows, 2 column blocks each.
	pm, err := partition.NewGrid(5, 6, 8, 2, 4, []string{"a", "b"})
	require.NoError(t, err)

	s, err := SplitRows(pm, []int64{5, 0, 1})
	require.NoError(t, err)
	require.Len(t, s.Subs, 4)

	// Band [0,2) gets rows 0 and 1 in both column segments.
	assert.Equal(t, []int64{0, 1}, s.Subs[0].Indices)
	assert.Equal(t, []int{1, 2}, s.Subs[0].Positions)
	assert.Equal(t, []int64{0, 1}, s.Subs[1].Indices)
	assert.Equal(t, int64(4), s.Subs[1].Key.ColStart)

	// Band [4,6) gets row 5.
	assert.Equal(t, []int64{5}, s.Subs[2].Indices)
	assert.Equal(t, []int{0}, s.Subs[3].Positions)

	_, err = SplitRows(pm, []int64{0, 6})
	var oob *OutOfBoundsError
	require.ErrorAs(t, err, &oob)
	assert.Equal(t, int64(-1), oob.Col)
	assert.Equal(t, 1, oob.Position)
}

func TestSplitKeys(t *testing.T) {
	pm, err := partition.NewGrid(5, 6, 8, 2, 4, []string{"a", "b"})
	require.NoError(t, err)

	s, err := SplitKeys(pm, []int64{3, 2, 0})
	require.NoError(t, err)
	require.Len(t, s.Subs, 2)
	for _, sub := range s.Subs {
		assert.Equal(t, int64(0), sub.Key.ColStart)
	}
	assert.Equal(t, []int64{0}, s.Subs[0].Indices)
	assert.Equal(t, []int64{3, 2}, s.Subs[1].Indices)

	_, err = SplitKeys(pm, []int64{-4})
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestSplit_Gather(t *testing.T) {
	s, err := SplitIndices(scenarioMap(t), 0, []int64{7, 2, 9, 0})
	require.NoError(t, err)

	parts, err := s.Gather(model.Doubles([]float64{70, 20, 90, 0}))
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Equal(t, []float64{20, 0}, parts[0].Doubles)
	assert.Equal(t, []float64{70, 90}, parts[1].Doubles)

	_, err = s.Gather(model.Doubles([]float64{1}))
	assert.Error(t, err)
}
