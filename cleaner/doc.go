// Package cleaner garbage-collects versions and the segments only they
// reference.
//
// A Cleaner keeps the latest version, the versions selected by its
// RetentionPolicy and every version held by an open reader. Version files
// outside that set are deleted, followed by the segment directories that no
// kept version references. Segments that no version has ever referenced are
// left alone since a writer may still be building them.
//
// Vacuum deletes nothing when any version file fails to load: its segments
// are unknown, so no segment can be proven unreferenced.
package cleaner
