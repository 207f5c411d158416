package partition

import "fmt"

// NewGrid blocks a rows x cols matrix into rowBlock x colBlock partitions and
// assigns them to addrs round-robin in (row, col) order. Edge blocks are
// truncated to the matrix shape. Partition ids are assigned sequentially.
func NewGrid(matrixID int32, rows, cols, rowBlock, colBlock int64, addrs []string) (*Map, error) {
	if rowBlock <= 0 || colBlock <= 0 {
		return nil, fmt.Errorf("%w: block %dx%d", ErrInvalidMap, rowBlock, colBlock)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: no shard addresses", ErrInvalidMap)
	}

	var keys []Key
	var id int32
	for r := int64(0); r < rows; r += rowBlock {
		for c := int64(0); c < cols; c += colBlock {
			keys = append(keys, Key{
				MatrixID:    matrixID,
				PartitionID: id,
				RowStart:    r,
				RowEnd:      min(r+rowBlock, rows),
				ColStart:    c,
				ColEnd:      min(c+colBlock, cols),
				Addr:        addrs[int(id)%len(addrs)],
			})
			id++
		}
	}
	return NewMap(matrixID, rows, cols, keys)
}
