// Package testutil provides testing utilities for psmatrix.
//
// This package is intended for use in tests and benchmarks only.
//
// # Random Index Generation
//
//	rng := testutil.NewRNG(seed)
//	idx := rng.Indices(100, cols) // uniform, repeats allowed
//	testutil.Shuffle(rng, idx)
//
// # Loopback Cluster
//
//	c := testutil.NewCluster(t, 3)
//	pm := c.Grid(t, 1, 10, 100, 5, 25, model.ElemDouble)
//	client := psmatrix.New(c.Locator, c.Transport)
package testutil
