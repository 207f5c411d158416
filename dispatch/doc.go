// Package dispatch fans partition requests out to shards and collects the
// replies under a single deadline.
//
// Each request gets its own goroutine and a request id taken from a
// monotonically increasing counter. Replies are drained in completion order,
// so one slow shard never delays collection of the others. When the
// deadline expires, every partition that has not answered is reported as
// ErrTimeout and its goroutine is abandoned; a late reply is dropped because
// its request id no longer matches anything the caller waits for.
//
// Dispatch never returns a partial result set. If any partition fails, the
// caller gets a *PartialFailureError naming exactly the failed partitions,
// each with a typed cause:
//
//	ErrTimeout            deadline expired before the reply arrived
//	*UnreachableError     the transport could not deliver the frame
//	*RemoteError          the shard answered with an error status
//	*codec.DecodeError    the reply frame was malformed
//	*StaleReplyError      the reply carried another request's id
//	ErrCanceled           abandoned after a sibling failed (fail-fast only)
//
// Nothing is retried; retry policy belongs to the caller.
package dispatch
