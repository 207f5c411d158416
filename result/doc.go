// Package result defines the per-partition results returned by shards.
//
// PartitionResult is a closed union. Every variant carries the partition.Key
// it was computed for and an exact SizeOf, so a result frame is encoded in a
// single pre-sized pass:
//
//	[uint8 kind][partition.Key][payload]
//
// Payloads by kind:
//
//	KindDoubleArray  [int32 n][float64...]
//	KindFloatArray   [int32 n][float32...]
//	KindLongArray    [int32 n][int64...]
//	KindPathMap      [int32 entries]{[int64 key][int32 len][int64...]}
//	KindRows         [uint8 elemType][int32 rows][int64 row...][int32 n][elements...]
//	KindAck          [int32 applied]
package result
