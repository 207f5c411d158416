package shard

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/hupe1980/psmatrix/model"
	"github.com/hupe1980/psmatrix/partition"
)

// Partition is the dense local block of one partition.Key.
type Partition struct {
	key  partition.Key
	elem model.ElemType

	mu    sync.RWMutex
	data  model.Values // row-major, key.Rows() x key.Cols()
	paths map[int64][]int64
}

func newPartition(key partition.Key, t model.ElemType) *Partition {
	return &Partition{
		key:   key,
		elem:  t,
		data:  model.NewValues(t, int(key.Rows()*key.Cols())),
		paths: make(map[int64][]int64),
	}
}

// Key returns the partition key.
func (p *Partition) Key() partition.Key { return p.key }

// ElemType returns the stored element type.
func (p *Partition) ElemType() model.ElemType { return p.elem }

func (p *Partition) offset(row, col int64) int {
	return int((row-p.key.RowStart)*p.key.Cols() + (col - p.key.ColStart))
}

// Load replaces the partition contents with row-major vals.
func (p *Partition) Load(vals model.Values) error {
	if err := vals.CheckType(p.elem); err != nil {
		return err
	}
	if want := int(p.key.Rows() * p.key.Cols()); vals.Len() != want {
		return fmt.Errorf("load partition %d: %d values, want %d", p.key.PartitionID, vals.Len(), want)
	}
	p.mu.Lock()
	p.data = vals
	p.mu.Unlock()
	return nil
}

// SetPath stores the path tail of key. key must be a row of the partition.
func (p *Partition) SetPath(key int64, path []int64) error {
	if !p.key.ContainsRow(key) {
		return fmt.Errorf("path key %d outside rows [%d,%d)", key, p.key.RowStart, p.key.RowEnd)
	}
	p.mu.Lock()
	p.paths[key] = slices.Clone(path)
	p.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the partition contents.
func (p *Partition) Snapshot() model.Values {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := model.NewValues(p.elem, p.data.Len())
	for i := 0; i < out.Len(); i++ {
		out.Set(i, p.data, i)
	}
	return out
}

func (p *Partition) get(row int64, cols []int64) model.Values {
	out := model.NewValues(p.elem, len(cols))
	p.mu.RLock()
	defer p.mu.RUnlock()
	for j, c := range cols {
		out.Set(j, p.data, p.offset(row, c))
	}
	return out
}

func (p *Partition) update(op model.UpdateOp, row int64, cols []int64, vals model.Values) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for j, c := range cols {
		p.data.Apply(op, p.offset(row, c), vals, j)
	}
}

func (p *Partition) rows(rows []int64) model.Values {
	w := int(p.key.Cols())
	out := model.NewValues(p.elem, len(rows)*w)
	p.mu.RLock()
	defer p.mu.RUnlock()
	for i, r := range rows {
		base := p.offset(r, p.key.ColStart)
		for c := 0; c < w; c++ {
			out.Set(i*w+c, p.data, base+c)
		}
	}
	return out
}

func (p *Partition) pathTails(keys []int64) map[int64][]int64 {
	out := make(map[int64][]int64, len(keys))
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, k := range keys {
		if path, ok := p.paths[k]; ok {
			out[k] = path
		}
	}
	return out
}

// PathKeys returns the keys holding a path, ascending.
func (p *Partition) PathKeys() []int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Sorted(maps.Keys(p.paths))
}
