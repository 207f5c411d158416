// Package shard is a minimal in-memory shard executor.
//
// A Server holds dense partitions (row-major, one element type each) and
// optional path maps, and answers protocol request frames. It exists so the
// split/dispatch/merge path can run end to end in tests and demos; it is not
// a storage engine.
//
// Every failure is answered with a protocol error frame rather than a Go
// error, so callers always see a typed *dispatch.RemoteError.
//
//	srv := shard.NewServer(shard.Options{})
//	srv.LoadMatrix(ctx, pm, "shard-0", model.ElemDouble, func(r, c int64) float64 {
//	    return float64(r*1000 + c)
//	})
//	reply := srv.Handle(ctx, frame)
package shard
