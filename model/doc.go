// Package model defines the element types and typed value vectors shared by
// every layer of psmatrix.
//
// # Element Types
//
//   - ElemDouble: float64 values
//   - ElemFloat:  float32 values
//   - ElemLong:   int64 values
//
// A Values vector carries exactly one populated backing slice, selected by its
// Type. Values are never coerced between element types: a request declared as
// ElemDouble is decoded, merged and returned as float64 end to end.
package model
