package version

import (
	"maps"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
)

// FormatVersion is the on-disk format written by this package.
const FormatVersion = 2

// Version is an immutable snapshot of a table: an ordered set of segments
// plus the metadata needed to resume ingestion and coordinate writers.
//
// Versions are produced by a Builder. A *Version must not be modified; use
// ToBuilder to derive a new one.
type Version struct {
	id            VersionID
	segments      []SegmentID
	branches      []string
	membership    *roaring.Bitmap
	lastSegmentID SegmentID
	timestamp     int64
	commitTime    int64
	locator       Locator
	schemaID      SchemaID
	readSchemaID  SchemaID
	roadMap       []SchemaID
	formatVersion int
	fenceName     string
	sealed        bool
	versionLine   VersionLine
	tasks         []IndexTaskMeta
	statistics    []SegmentStatistics
	temperatures  []SegmentTemperatureMeta
	descriptions  map[string]string
}

// Invalid returns the version of a table that has none committed.
func Invalid() *Version {
	return NewBuilder(InvalidVersionID).Finalize()
}

// IsValid reports whether the version has an id.
func (v *Version) IsValid() bool { return v.id != InvalidVersionID }

// ID returns the version id.
func (v *Version) ID() VersionID { return v.id }

// Coord returns the coordinate of the version.
func (v *Version) Coord() VersionCoord {
	return VersionCoord{FenceName: v.fenceName, VersionID: v.id}
}

// Segments returns the segment ids in ascending order.
func (v *Version) Segments() []SegmentID { return slices.Clone(v.segments) }

// SegmentCount returns the number of segments.
func (v *Version) SegmentCount() int { return len(v.segments) }

// SegmentAt returns the i-th segment id.
func (v *Version) SegmentAt(i int) SegmentID { return v.segments[i] }

// HasSegment reports whether id is part of the version.
func (v *Version) HasSegment(id SegmentID) bool {
	return id >= 0 && v.membership.Contains(uint32(id))
}

// BranchName returns the name of the fence that produced segment id, or ""
// when the segment lives in the global root or is not part of the version.
func (v *Version) BranchName(id SegmentID) string {
	i, ok := slices.BinarySearch(v.segments, id)
	if !ok {
		return ""
	}
	return v.branches[i]
}

// BranchNames returns the branch names parallel to Segments.
func (v *Version) BranchNames() []string { return slices.Clone(v.branches) }

// LastSegmentID returns the highest segment id ever added along this
// version's lineage, or InvalidSegmentID.
func (v *Version) LastSegmentID() SegmentID { return v.lastSegmentID }

// Timestamp returns the logical event time in Unix microseconds.
func (v *Version) Timestamp() int64 { return v.timestamp }

// CommitTime returns the wall-clock commit time in Unix microseconds.
func (v *Version) CommitTime() int64 { return v.commitTime }

// Locator returns the ingestion checkpoint.
func (v *Version) Locator() Locator { return v.locator }

// SchemaID returns the schema id the version was written with.
func (v *Version) SchemaID() SchemaID { return v.schemaID }

// ReadSchemaID returns the schema id readers should use.
func (v *Version) ReadSchemaID() SchemaID { return v.readSchemaID }

// SchemaRoadMap returns every schema id ever active, oldest first.
func (v *Version) SchemaRoadMap() []SchemaID { return slices.Clone(v.roadMap) }

// FormatVersion returns the on-disk format version.
func (v *Version) FormatVersion() int { return v.formatVersion }

// FenceName returns the name of the writer that committed the version.
func (v *Version) FenceName() string { return v.fenceName }

// Sealed reports whether the version is closed to incremental extension.
func (v *Version) Sealed() bool { return v.sealed }

// VersionLine returns the lineage of the version.
func (v *Version) VersionLine() VersionLine { return v.versionLine.clone() }

// IndexTasks returns the index task queue.
func (v *Version) IndexTasks() []IndexTaskMeta {
	out := make([]IndexTaskMeta, len(v.tasks))
	for i, t := range v.tasks {
		out[i] = t.clone()
	}
	return out
}

// IndexTask returns the task identified by (taskType, taskName).
func (v *Version) IndexTask(taskType, taskName string) (IndexTaskMeta, bool) {
	for _, t := range v.tasks {
		if t.Same(taskType, taskName) {
			return t.clone(), true
		}
	}
	return IndexTaskMeta{}, false
}

// SegmentStatistics returns the statistics recorded for segment id.
func (v *Version) SegmentStatistics(id SegmentID) (SegmentStatistics, bool) {
	for _, s := range v.statistics {
		if s.SegmentID == id {
			return s.clone(), true
		}
	}
	return SegmentStatistics{}, false
}

// AllSegmentStatistics returns the statistics of every segment that has some.
func (v *Version) AllSegmentStatistics() []SegmentStatistics {
	out := make([]SegmentStatistics, len(v.statistics))
	for i, s := range v.statistics {
		out[i] = s.clone()
	}
	return out
}

// SegmentTemperature returns the temperature meta of segment id.
func (v *Version) SegmentTemperature(id SegmentID) (SegmentTemperatureMeta, bool) {
	for _, t := range v.temperatures {
		if t.SegmentID == id {
			return t, true
		}
	}
	return SegmentTemperatureMeta{}, false
}

// Description returns the free-form description stored under key.
func (v *Version) Description(key string) (string, bool) {
	d, ok := v.descriptions[key]
	return d, ok
}

// Descriptions returns all free-form descriptions.
func (v *Version) Descriptions() map[string]string { return maps.Clone(v.descriptions) }

// Diff returns the segments present in v but not in base, and those present
// in base but not in v.
func (v *Version) Diff(base *Version) (added, removed []SegmentID) {
	for _, id := range roaring.AndNot(v.membership, base.membership).ToArray() {
		added = append(added, SegmentID(id))
	}
	for _, id := range roaring.AndNot(base.membership, v.membership).ToArray() {
		removed = append(removed, SegmentID(id))
	}
	return added, removed
}

// Equal reports whether both versions carry identical content.
func (v *Version) Equal(other *Version) bool {
	if v == other {
		return true
	}
	if v == nil || other == nil {
		return false
	}
	return v.id == other.id &&
		slices.Equal(v.segments, other.segments) &&
		slices.Equal(v.branches, other.branches) &&
		v.lastSegmentID == other.lastSegmentID &&
		v.timestamp == other.timestamp &&
		v.commitTime == other.commitTime &&
		v.locator.Equal(other.locator) &&
		v.schemaID == other.schemaID &&
		v.readSchemaID == other.readSchemaID &&
		slices.Equal(v.roadMap, other.roadMap) &&
		v.formatVersion == other.formatVersion &&
		v.fenceName == other.fenceName &&
		v.sealed == other.sealed &&
		v.versionLine.Equal(other.versionLine) &&
		slices.EqualFunc(v.tasks, other.tasks, IndexTaskMeta.Equal) &&
		slices.EqualFunc(v.statistics, other.statistics, SegmentStatistics.Equal) &&
		slices.Equal(v.temperatures, other.temperatures) &&
		maps.Equal(v.descriptions, other.descriptions)
}

// ToBuilder returns a builder for a version derived from v. The builder
// starts with v's content and a version line whose parent is v.
func (v *Version) ToBuilder(optFns ...BuilderOption) *Builder {
	b := NewBuilder(v.id, optFns...)
	b.v = v.clone()
	if v.IsValid() {
		b.v.versionLine = v.versionLine.Derive(v.Coord())
	}
	return b
}

func (v *Version) clone() *Version {
	c := *v
	c.segments = slices.Clone(v.segments)
	c.branches = slices.Clone(v.branches)
	c.membership = v.membership.Clone()
	c.roadMap = slices.Clone(v.roadMap)
	c.versionLine = v.versionLine.clone()
	c.tasks = v.IndexTasks()
	c.statistics = v.AllSegmentStatistics()
	c.temperatures = slices.Clone(v.temperatures)
	c.descriptions = maps.Clone(v.descriptions)
	return &c
}

// Stamp returns a copy of v as committed by fenceName at commitTime (Unix
// microseconds). The copy's own coordinate is appended to its version line.
func (v *Version) Stamp(fenceName string, commitTime int64) *Version {
	c := v.clone()
	c.fenceName = fenceName
	c.commitTime = commitTime
	c.versionLine.AddCurrentVersion(c.Coord())
	return c
}
