// Package minio provides a BlobStore implementation using the MinIO client.
//
// It works against MinIO and other S3-compatible systems (Ceph, Garage,
// SeaweedFS) without pulling in the AWS SDK.
//
// # Basic Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "my-bucket", "tables/orders")
//	tbl, err := indexlib.Open(ctx, store)
//
// PutIfAbsent sends "If-None-Match: *". The server must support conditional
// writes (MinIO and AWS S3 do); otherwise concurrent publishes to one table
// are not exclusive.
package minio
