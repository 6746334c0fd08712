// Package s3 provides S3 implementations of the blobstore.BlobStore interface.
//
// # Usage
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "tables/orders")
//
// For backends without conditional writes, wrap the store with a DynamoDB
// commit table:
//
//	commit := s3.NewDDBCommitStore(store, dynamodb.NewFromConfig(cfg),
//	    "indexlib-commits", "s3://my-bucket/tables/orders")
//
// # Features
//
//   - Range reads for efficient partial fetches
//   - Multipart uploads for large segment files
//   - Exclusive creates via If-None-Match or DynamoDB conditional writes
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
