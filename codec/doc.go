// Package codec implements the compact binary encoding shared by every
// psmatrix request and result frame.
//
// Encoding is a single pass: callers compute the exact frame size with the
// Size* helpers, allocate a Writer of that size, write, and call Finish.
// Finish fails with *EncodeOverflowError when the bytes written disagree with
// the pre-computed size, so a sizing bug can never truncate a frame silently.
//
// Decoding uses a Reader with a sticky error: after the first short or
// malformed read every subsequent read returns a zero value and Err reports a
// *DecodeError. Slice counts are validated against the remaining buffer before
// anything is allocated.
//
// # Layout
//
// All fixed-width values are little-endian. Arrays are prefixed with an int32
// element count. Long-array maps are written as
//
//	[int32 entries] { [int64 key][int32 n][int64 v_0] ... [int64 v_n-1] }
//
// with keys in ascending order, so equal maps always encode to equal bytes.
//
// Changing the layout is a wire-breaking change.
package codec
