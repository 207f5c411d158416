// Package locator resolves a matrix id to its partition map.
//
// StaticLocator serves maps registered in process. BlobLocator reads maps
// published to a blobstore under
//
//	matrices/<id>/CURRENT         decimal version of the live map
//	matrices/<id>/v<version>.pmap encoded partition.Map
//
// Versioned map blobs are immutable, so their bytes are cached in an LRU.
// CURRENT is read on every lookup so a newly published version takes effect
// immediately.
package locator
