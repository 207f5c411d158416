package dispatch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/psmatrix/partition"
	"github.com/hupe1980/psmatrix/protocol"
)

var (
	// ErrTimeout is reported for partitions that did not answer before the deadline.
	ErrTimeout = errors.New("partition call timed out")

	// ErrCanceled is reported for partitions abandoned after a sibling failed
	// in fail-fast mode. It is not a failure of the partition itself.
	ErrCanceled = errors.New("partition call canceled")

	// ErrPartialFailure is matched by every *PartialFailureError.
	ErrPartialFailure = errors.New("partial failure")
)

// UnreachableError reports a transport-level failure to reach a shard.
type UnreachableError struct {
	Addr string
	Err  error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("shard %s unreachable: %v", e.Addr, e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// RemoteError reports an error status returned by a shard.
type RemoteError struct {
	Code    protocol.ErrorCode
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error (%s): %s", e.Code, e.Message)
}

// StaleReplyError reports a reply whose request id does not match the call.
type StaleReplyError struct {
	Want uint64
	Got  uint64
}

func (e *StaleReplyError) Error() string {
	return fmt.Sprintf("stale reply: got request id %d, want %d", e.Got, e.Want)
}

// PartitionError pairs a failed partition with its cause.
type PartitionError struct {
	Key partition.Key
	Err error
}

func (e PartitionError) Error() string {
	return fmt.Sprintf("partition %d@%s: %v", e.Key.PartitionID, e.Key.Addr, e.Err)
}

func (e PartitionError) Unwrap() error { return e.Err }

// PartialFailureError reports that at least one partition of a fan-out did
// not succeed. No result is produced alongside it.
type PartialFailureError struct {
	MatrixID int32
	// Total is the number of partitions the request was sent to.
	Total int
	// Failures are ordered by partition position in the request.
	Failures []PartitionError
}

func (e *PartialFailureError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "matrix %d: %d of %d partitions failed", e.MatrixID, len(e.Failures), e.Total)
	for i, f := range e.Failures {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		b.WriteString(f.Error())
	}
	return b.String()
}

// Is makes every PartialFailureError match ErrPartialFailure.
func (e *PartialFailureError) Is(target error) bool { return target == ErrPartialFailure }

// Unwrap exposes the per-partition causes to errors.Is and errors.As.
func (e *PartialFailureError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// Failed returns the keys of the failed partitions.
func (e *PartialFailureError) Failed() []partition.Key {
	keys := make([]partition.Key, len(e.Failures))
	for i, f := range e.Failures {
		keys[i] = f.Key
	}
	return keys
}

// FailedIDs returns the ids of the failed partitions.
func (e *PartialFailureError) FailedIDs() []int32 {
	ids := make([]int32, len(e.Failures))
	for i, f := range e.Failures {
		ids[i] = f.Key.PartitionID
	}
	return ids
}
