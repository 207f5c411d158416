// Package partition describes how a logical matrix is split across shards.
//
// A Key names one partition: a half-open row range, a half-open column range
// and the address of the shard that owns it. A Map is the validated, ordered
// set of keys for one matrix.
//
// # Layout
//
// Maps are banded. Partitions that share a row range form a band; bands tile
// the row space [0, rows) and, inside each band, column ranges tile [0, cols):
//
//	         cols 0 ........... 5 ........... 10
//	rows 0   | P0 [0,4)x[0,5)   | P1 [0,4)x[5,10) |
//	rows 4   | P2 [4,8)x[0,10)                    |
//
// This is the layout a parameter server produces when it blocks a matrix by
// rows and then by columns. Locate resolves a (row, col) pair with two binary
// searches, so lookups cost O(log P).
package partition
