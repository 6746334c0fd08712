// Package directory provides the scoped file-system view used by every
// indexlib component: versions, segments, fences and task resources are all
// read and written through a Directory.
//
// A Directory is a BlobStore plus a path prefix. Directories are key prefixes;
// MakeDirectory writes a hidden marker so that empty directories are visible
// on object stores too.
//
//	root := directory.New(blobstore.NewLocalStore("/data/orders"), "")
//	seg, err := root.MakeDirectory(ctx, "segment_3_level_0")
//	err = seg.Store(ctx, "segment_info", data)
//
// Errors from the underlying store are classified with the status package:
// missing blobs satisfy status.IsNotFound and lost exclusive creates satisfy
// status.IsExist.
package directory
