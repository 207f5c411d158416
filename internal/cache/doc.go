// Package cache provides an LRU cache for immutable blobs.
//
// The LRU holds whole blobs (encoded partition maps) keyed by kind and
// path. Its byte size is bounded locally and, when a resource.Controller is
// supplied, every cached byte is also reserved against the client-wide
// memory budget, so a full budget makes the cache decline entries instead of
// growing.
package cache
