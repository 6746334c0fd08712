package version

// SegmentID identifies a segment within a table.
type SegmentID int32

// VersionID identifies a committed version within a table.
type VersionID int32

// SchemaID identifies a schema generation.
type SchemaID uint32

const (
	// InvalidSegmentID marks the absence of a segment.
	InvalidSegmentID SegmentID = -1
	// InvalidVersionID marks the absence of a version.
	InvalidVersionID VersionID = -1

	// DefaultSchemaID is the schema id of tables that never evolved.
	DefaultSchemaID SchemaID = 0

	// MergedSegmentIDMask is set on ids of segments produced by merges.
	// Merged and normal segment ids occupy disjoint ranges.
	MergedSegmentIDMask SegmentID = 1 << 29

	// PublicVersionIDMask is set on ids of versions produced by merges.
	PublicVersionIDMask VersionID = 1 << 29
	// PrivateVersionIDMask is set on ids of versions private to one writer.
	PrivateVersionIDMask VersionID = 1 << 30
)

// IsMergedSegmentID reports whether id was allocated from the merged range.
func IsMergedSegmentID(id SegmentID) bool {
	return id != InvalidSegmentID && id&MergedSegmentIDMask != 0
}

// IsPublicVersionID reports whether id was allocated from the public range.
func IsPublicVersionID(id VersionID) bool {
	return id != InvalidVersionID && id&PublicVersionIDMask != 0
}

// IsPrivateVersionID reports whether id was allocated from the private range.
func IsPrivateVersionID(id VersionID) bool {
	return id != InvalidVersionID && id&PrivateVersionIDMask != 0
}

// SameSegmentRange reports whether a and b are both merged or both normal ids.
func SameSegmentRange(a, b SegmentID) bool {
	return IsMergedSegmentID(a) == IsMergedSegmentID(b)
}
