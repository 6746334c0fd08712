// Package blobstore provides the storage abstraction underneath indexlib's
// directory layer.
//
// BlobStore is a flat, prefix-addressable namespace of immutable blobs
// (version files, segment files, task resources). Implementations must be
// safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, atomic writes via temp file + rename,
//     exclusive creation via hard links, mmap-backed reads
//   - MemoryStore: in-process map, for tests
//   - FaultyStore: wrapper injecting errors, for tests
//   - s3.Store / s3.DDBCommitStore: Amazon S3, optionally with DynamoDB
//     conditional writes for exclusive version publication
//   - minio.Store: MinIO and other S3-compatible servers
//
// # Atomicity
//
// Put and PutIfAbsent are whole-object operations: a concurrent reader sees
// either the previous state or the complete new blob. PutIfAbsent is the
// compare-and-swap primitive the commit protocol builds on; it must fail with
// an error satisfying errors.Is(err, ErrExists) when the name is taken.
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Create(ctx, name) (WritableBlob, error)
//	    Put(ctx, name, data) error
//	    PutIfAbsent(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Stores with a native rename may implement Renamer.
package blobstore
