// Package merger reassembles per-partition results into caller order.
//
// Merging runs single-threaded after every partition has succeeded. Each
// function takes the Split a request was built from and the results aligned
// with Split.Subs, checks that each result belongs to its sub-request, has
// the requested element type and the expected number of entries, then writes
// every value at its caller position. Placement is tracked in a roaring
// bitmap; a position written twice or never written is reported as
// ErrPlacement, which always indicates a bug upstream.
package merger
