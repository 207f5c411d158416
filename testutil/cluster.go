package testutil

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/psmatrix/locator"
	"github.com/hupe1980/psmatrix/model"
	"github.com/hupe1980/psmatrix/partition"
	"github.com/hupe1980/psmatrix/shard"
	"github.com/hupe1980/psmatrix/transport"
)

// Cluster is an in-process set of shards reachable over a loopback transport.
type Cluster struct {
	Transport *transport.Loopback
	Locator   *locator.StaticLocator
	Servers   map[string]*shard.Server
	Addrs     []string
}

// NewCluster starts n shards named shard-0 through shard-(n-1).
func NewCluster(tb testing.TB, n int) *Cluster {
	tb.Helper()

	c := &Cluster{
		Transport: transport.NewLoopback(),
		Locator:   locator.NewStatic(),
		Servers:   make(map[string]*shard.Server, n),
	}
	for i := range n {
		addr := fmt.Sprintf("shard-%d", i)
		srv := shard.NewServer(shard.Options{})
		c.Transport.Register(addr, srv)
		c.Servers[addr] = srv
		c.Addrs = append(c.Addrs, addr)
	}

	// Let delayed replies finish before the test's goroutine check.
	tb.Cleanup(c.Transport.Wait)
	return c
}

// Load registers pm with the locator and fills each owning shard's
// partitions with gen(row, col).
func (c *Cluster) Load(tb testing.TB, pm *partition.Map, t model.ElemType, gen func(row, col int64) float64) {
	tb.Helper()

	for addr, srv := range c.Servers {
		require.NoError(tb, srv.LoadMatrix(tb.Context(), pm, addr, t, gen))
	}
	c.Locator.Set(pm)
}

// Grid builds a partition map spread round-robin over the cluster's shards
// and loads it with Cell values.
func (c *Cluster) Grid(tb testing.TB, matrixID int32, rows, cols, rowBlock, colBlock int64, t model.ElemType) *partition.Map {
	tb.Helper()

	pm, err := partition.NewGrid(matrixID, rows, cols, rowBlock, colBlock, c.Addrs)
	require.NoError(tb, err)
	c.Load(tb, pm, t, Cell)
	return pm
}
