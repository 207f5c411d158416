// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("psmatrix/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	loc := locator.NewBlobLocator(store, locator.BlobOptions{})
//
// # Features
//
//   - Range reads for partial fetches
//   - CRC32C checksums on upload, multipart uploads for large blobs
//   - Conditional create (If-None-Match) for immutable versioned blobs
//   - DDBCommitStore: DynamoDB-backed CURRENT pointers for concurrent publishers
//   - Automatic pagination for listing
package s3
