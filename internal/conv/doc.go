// Package conv provides safe integer type conversion utilities.
//
// These functions perform bounds checking to prevent integer overflow/underflow
// when converting between Go's platform-dependent int and the fixed-width
// integers used on the wire.
//
// Use cases:
//   - Validating untrusted counts and lengths decoded from frames
//   - Narrowing 64-bit indices into compact 32-bit wire encodings
//
// For conversions that are provably safe by domain constraints (e.g., loop
// indices, bounded counters), use direct type casts instead to avoid overhead.
package conv
