// Package blobstore provides storage abstraction for immutable index files.
//
// BlobStore is the interface for reading and writing serialized indexes.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem with memory-mapped reads
//   - MemoryStore: in-memory store for tests
//   - CachingStore: local read-through cache in front of a remote store
//   - s3.Store: Amazon S3
//   - minio.Store: any S3-compatible endpoint via the MinIO client
//
// # Custom Implementations
//
// Implement the BlobStore interface to support custom storage backends:
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)           // Open for reading
//	    Create(ctx, name) (WritableBlob, error) // Create for writing
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
package blobstore
