// Package s3 provides an Amazon S3 implementation of the
// blobstore.BlobStore interface, plus a DynamoDB-backed pointer store
// for publishing index versions.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	store := s3.NewStore(s3.NewFromConfig(cfg), "my-bucket", "indexes/")
//
// # Features
//
//   - Range reads for efficient partial fetches
//   - Streaming multipart uploads for large index files
//   - Automatic pagination for listing
//   - Configurable key prefix for multi-tenant isolation
//   - Atomic latest-version pointer via DynamoDB conditional writes
package s3
