package psmatrix

import (
	"errors"
	"fmt"

	"github.com/hupe1980/psmatrix/codec"
	"github.com/hupe1980/psmatrix/dispatch"
	"github.com/hupe1980/psmatrix/internal/resource"
	"github.com/hupe1980/psmatrix/locator"
	"github.com/hupe1980/psmatrix/merger"
	"github.com/hupe1980/psmatrix/model"
	"github.com/hupe1980/psmatrix/splitter"
)

var (
	// ErrClosed is returned by operations on a closed Client.
	ErrClosed = errors.New("client is closed")

	// ErrInvalidArgument is returned for malformed requests such as an
	// unknown element type or mismatched value counts.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInconsistentResult is returned when shard answers do not assemble
	// into exactly one value per requested entry.
	ErrInconsistentResult = errors.New("inconsistent partition results")

	// ErrResourceExhausted is returned when the result buffer does not fit
	// the configured memory limit.
	ErrResourceExhausted = resource.ErrMemoryLimitExceeded

	// ErrTypeMismatch is returned when a shard holds a different element type.
	ErrTypeMismatch = model.ErrTypeMismatch

	// ErrUnknownMatrix is returned when no partition map exists for a matrix.
	ErrUnknownMatrix = locator.ErrUnknownMatrix

	// ErrOutOfBounds matches every *OutOfBoundsError.
	ErrOutOfBounds = splitter.ErrOutOfBounds

	// ErrTimeout is reported for partitions that missed the deadline.
	ErrTimeout = dispatch.ErrTimeout

	// ErrPartialFailure matches every *PartialFailureError.
	ErrPartialFailure = dispatch.ErrPartialFailure

	// ErrCorrupt is reported for frames that fail to decode.
	ErrCorrupt = codec.ErrCorrupt

	// ErrEncodeOverflow is returned when a request exceeds the wire format limits.
	ErrEncodeOverflow = codec.ErrEncodeOverflow
)

type (
	// OutOfBoundsError names the first requested index no partition owns.
	OutOfBoundsError = splitter.OutOfBoundsError
	// PartialFailureError lists the partitions that did not succeed.
	PartialFailureError = dispatch.PartialFailureError
	// PartitionError pairs a failed partition with its cause.
	PartitionError = dispatch.PartitionError
	// UnreachableError reports a transport failure to reach a shard.
	UnreachableError = dispatch.UnreachableError
	// RemoteError reports an error status returned by a shard.
	RemoteError = dispatch.RemoteError
	// DecodeError reports a malformed frame.
	DecodeError = codec.DecodeError
)

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Already public.
	if errors.Is(err, ErrPartialFailure) || errors.Is(err, ErrOutOfBounds) ||
		errors.Is(err, ErrUnknownMatrix) || errors.Is(err, ErrClosed) ||
		errors.Is(err, ErrInvalidArgument) {
		return err
	}

	// Merge checks failing means a shard answered with the wrong shape.
	var me *merger.MergeError
	if errors.As(err, &me) || errors.Is(err, merger.ErrPlacement) ||
		errors.Is(err, merger.ErrCountMismatch) || errors.Is(err, merger.ErrKeyMismatch) {
		return fmt.Errorf("%w: %w", ErrInconsistentResult, err)
	}

	return err
}
