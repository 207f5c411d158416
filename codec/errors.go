package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrCorrupt is matched by every *DecodeError.
	ErrCorrupt = errors.New("corrupt frame")

	// ErrEncodeOverflow is matched by every *EncodeOverflowError.
	ErrEncodeOverflow = errors.New("encode size mismatch")
)

// DecodeError describes a malformed or truncated buffer.
type DecodeError struct {
	// Offset is the reader position at which decoding failed.
	Offset int
	// What names the field being decoded.
	What string
	// Need and Have are byte counts for short reads (both zero otherwise).
	Need int
	Have int
	cause error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("decode %s at offset %d", e.What, e.Offset)
	if e.Need > 0 {
		msg += fmt.Sprintf(": need %d bytes, have %d", e.Need, e.Have)
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

// Is makes every DecodeError match ErrCorrupt.
func (e *DecodeError) Is(target error) bool { return target == ErrCorrupt }

func (e *DecodeError) Unwrap() error { return e.cause }

// NewDecodeError builds a DecodeError for semantic failures detected by
// callers (unknown tags, inconsistent counts).
func NewDecodeError(offset int, what string, cause error) *DecodeError {
	return &DecodeError{Offset: offset, What: what, cause: cause}
}

// EncodeOverflowError reports that a frame's computed size disagreed with the
// bytes actually written. It always indicates a sizing bug.
type EncodeOverflowError struct {
	Expected int
	Written  int
	Reason   string
}

func (e *EncodeOverflowError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("encode overflow: %s", e.Reason)
	}
	return fmt.Sprintf("encode overflow: sized %d bytes, wrote %d", e.Expected, e.Written)
}

// Is makes every EncodeOverflowError match ErrEncodeOverflow.
func (e *EncodeOverflowError) Is(target error) bool { return target == ErrEncodeOverflow }
