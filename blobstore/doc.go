// Package blobstore provides storage abstraction for persisted bitmaps.
//
// BlobStore is the interface for reading and writing immutable blobs
// (encoded bitmaps, catalog manifests and the CURRENT pointer).
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process map, for tests and scratch catalogs
//   - LocalStore: local filesystem with mmap reads and atomic writes
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//   - s3.DDBCommitStore: any store plus DynamoDB conditional commits
//   - minio.Store: MinIO and other S3-compatible servers
//
// # Custom Implementations
//
// Implement the BlobStore interface to support custom storage backends:
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Stores that can publish a version with compare-and-swap semantics also
// implement Committer; the catalog then detects concurrent writers.
package blobstore
