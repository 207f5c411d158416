package locator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/psmatrix/partition"
)

// ErrUnknownMatrix is returned when no partition map exists for a matrix.
var ErrUnknownMatrix = errors.New("unknown matrix")

// Locator returns the ordered partition layout of a matrix.
type Locator interface {
	LookupPartitions(ctx context.Context, matrixID int32) (*partition.Map, error)
}

// StaticLocator serves partition maps held in memory.
type StaticLocator struct {
	mu   sync.RWMutex
	maps map[int32]*partition.Map
}

// NewStatic returns a locator serving the given maps.
func NewStatic(maps ...*partition.Map) *StaticLocator {
	s := &StaticLocator{maps: make(map[int32]*partition.Map, len(maps))}
	for _, pm := range maps {
		s.maps[pm.MatrixID()] = pm
	}
	return s
}

// Set registers or replaces the map of pm's matrix.
func (s *StaticLocator) Set(pm *partition.Map) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maps[pm.MatrixID()] = pm
}

// Remove forgets a matrix.
func (s *StaticLocator) Remove(matrixID int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.maps, matrixID)
}

// LookupPartitions implements Locator.
func (s *StaticLocator) LookupPartitions(ctx context.Context, matrixID int32) (*partition.Map, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	pm, ok := s.maps[matrixID]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMatrix, matrixID)
	}
	return pm, nil
}
