// Package splitter partitions a caller's index set by owning partition.
//
// Every split keeps a back-mapping from each sub-request entry to its
// position in the caller's request, so the merger can restore caller order
// without sorting. Partitions that receive no entries are omitted, and an
// index outside the matrix fails the whole split before anything is sent.
package splitter
