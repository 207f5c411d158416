// Package psmatrix provides partition-aware indexed reads and writes for a
// matrix that is split into row and column blocks across many shards.
//
// A Client resolves a matrix's partition layout through a locator, splits a
// request by owning partition, sends the sub-requests concurrently under a
// single deadline, and merges the answers back into caller order. A request
// either succeeds completely or fails with an error naming every partition
// that did not answer.
//
// # Quick Start
//
//	pm, _ := partition.NewGrid(1, 1, 1000, 1, 250, []string{"shard-a:8080", "shard-b:8080"})
//	loc := locator.NewStatic(pm)
//	tr := transport.NewHTTP(transport.HTTPOptions{})
//
//	c := psmatrix.New(loc, tr, psmatrix.WithTimeout(time.Second))
//	res, err := c.IndexedGet(ctx, 1, []int64{7, 2, 900, 0}, model.ElemDouble)
//	if err != nil {
//	    var pf *psmatrix.PartialFailureError
//	    if errors.As(err, &pf) {
//	        log.Printf("partitions %v failed", pf.FailedIDs())
//	    }
//	    return err
//	}
//	fmt.Println(res.Doubles())
//
// # Operations
//
//   - IndexedGet / IndexedGetRow: values at column indices of one row
//   - GetRows: whole rows assembled from their column segments
//   - PullPathTail: recorded path tails keyed by row id
//   - IndexedUpdate: set or add values at column indices of one row
//
// # Publishing Layouts
//
// locator.BlobLocator reads partition maps published to a blobstore
// (memory, local filesystem, S3 with optional DynamoDB commits, MinIO) and
// caches them in a memory-bounded LRU.
package psmatrix
