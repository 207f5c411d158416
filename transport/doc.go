// Package transport provides dispatch.Transport implementations.
//
// Loopback delivers frames to in-process handlers asynchronously and matches
// replies to callers by request id, the way an async RPC channel would. A
// reply that arrives after its caller gave up finds no pending entry and is
// dropped and counted. Per-address faults (delay, loss, refusal) make the
// failure paths of the dispatch layer reproducible in tests.
//
// HTTP posts frames to shards serving shard.Server over net/http.
package transport
