// Package version implements the version data model of a table: which
// segments form a consistent snapshot, where ingestion resumes, which schema
// generations are live and which long-running index tasks are queued.
//
// A Version is immutable; derive new ones with a Builder:
//
//	b := latest.ToBuilder()
//	b.SetVersionID(latest.ID() + 1)
//	b.AddSegmentWithBranch(7, fenceName)
//	next := b.Finalize()
//
// Versions are stored as JSON files named "version.<id>" next to segment
// directories named "segment_<id>_level_0".
package version
