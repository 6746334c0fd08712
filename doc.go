// Package indexlib manages the segments and versions of a multi-version
// index table.
//
// A table is a set of immutable segment directories plus a sequence of
// version files, each naming the segments that form one consistent
// snapshot. Writers work inside private fences and publish versions with an
// exclusive create, so two writers racing for the same version id never
// overwrite each other. After a crash, recovery reconciles the segment
// directories left behind with the last committed version.
//
// # Quick Start
//
//	ctx := context.Background()
//	store := blobstore.NewLocalStore("./table")
//	t, _ := indexlib.Open(ctx, store, indexlib.WithFencePrefix("builder"))
//	defer t.Close()
//
//	b := t.NewBuilder()
//	id := b.LastSegmentID() + 1
//	dir, _ := t.CreateSegmentDirectory(ctx, id)
//	// ... write segment files into dir ...
//	_ = segment.WriteInfo(ctx, dir, segment.Info{DocCount: n, Finalized: true})
//	b.AddSegmentWithBranch(id, t.Fence().Name())
//	v, _ := t.Commit(ctx, b, true)
//
// # Storage
//
// Tables live in any blobstore.BlobStore: a local directory, memory, Amazon
// S3 (optionally with a DynamoDB commit table for exclusive version
// creation) or MinIO.
//
// # Index Tasks
//
// Long-running build and merge pipelines are expressed as an
// indextask.Plan and run with RunTask. Operations run stage by stage and
// hand artifacts to each other through the task's resource manager.
//
// # Garbage Collection
//
// Vacuum deletes versions outside the retention policy and the segments
// referenced only by them. Versions in use by the session are kept.
package indexlib
