package version

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/indexlib/status"
)

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithClock sets the clock used to stamp index task times.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) {
		b.now = now
	}
}

// Builder assembles a Version. It is not safe for concurrent use.
//
// Build returns a snapshot and leaves the builder usable; Finalize hands over
// the builder's state and any further mutation panics.
type Builder struct {
	v         *Version
	now       func() time.Time
	finalized bool
}

// NewBuilder returns a builder for an empty version with the given id.
func NewBuilder(id VersionID, optFns ...BuilderOption) *Builder {
	b := &Builder{
		v: &Version{
			id:            id,
			membership:    roaring.New(),
			lastSegmentID: InvalidSegmentID,
			roadMap:       []SchemaID{DefaultSchemaID},
			formatVersion: FormatVersion,
			versionLine:   NewVersionLine(),
		},
		now: time.Now,
	}
	for _, fn := range optFns {
		fn(b)
	}
	return b
}

func (b *Builder) mutable() *Version {
	if b.finalized {
		panic("version: builder used after Finalize")
	}
	return b.v
}

// Build returns an immutable snapshot of the current state.
func (b *Builder) Build() *Version {
	return b.mutable().clone()
}

// Finalize returns the built version and freezes the builder.
func (b *Builder) Finalize() *Version {
	v := b.mutable()
	b.finalized = true
	return v
}

// VersionID returns the id the version will carry.
func (b *Builder) VersionID() VersionID { return b.v.id }

// LastSegmentID returns the highest segment id added so far.
func (b *Builder) LastSegmentID() SegmentID { return b.v.lastSegmentID }

// HasSegment reports whether id was added.
func (b *Builder) HasSegment(id SegmentID) bool { return b.v.HasSegment(id) }

// Segments returns the segment ids added so far.
func (b *Builder) Segments() []SegmentID { return b.v.Segments() }

// SetVersionID sets the version id.
func (b *Builder) SetVersionID(id VersionID) {
	b.mutable().id = id
}

// AddSegment adds a segment stored in the global root. It reports false if
// the segment is already present.
func (b *Builder) AddSegment(id SegmentID) bool {
	return b.AddSegmentWithBranch(id, "")
}

// AddSegmentWithBranch adds a segment stored in the fence named branch.
// Segments stay sorted; adding a present segment is a no-op returning false.
func (b *Builder) AddSegmentWithBranch(id SegmentID, branch string) bool {
	v := b.mutable()
	if id < 0 {
		return false
	}
	i, found := slices.BinarySearch(v.segments, id)
	if found {
		return false
	}
	v.segments = slices.Insert(v.segments, i, id)
	v.branches = slices.Insert(v.branches, i, branch)
	v.membership.Add(uint32(id))
	if id > v.lastSegmentID {
		v.lastSegmentID = id
	}
	return true
}

// RemoveSegment removes a segment with its statistics and temperature. The
// last segment id is not lowered.
func (b *Builder) RemoveSegment(id SegmentID) bool {
	v := b.mutable()
	i, found := slices.BinarySearch(v.segments, id)
	if !found {
		return false
	}
	v.segments = slices.Delete(v.segments, i, i+1)
	v.branches = slices.Delete(v.branches, i, i+1)
	v.membership.Remove(uint32(id))
	v.statistics = slices.DeleteFunc(v.statistics, func(s SegmentStatistics) bool { return s.SegmentID == id })
	v.temperatures = slices.DeleteFunc(v.temperatures, func(t SegmentTemperatureMeta) bool { return t.SegmentID == id })
	return true
}

// SetLastSegmentID raises the last segment id. Lower values are ignored.
func (b *Builder) SetLastSegmentID(id SegmentID) {
	v := b.mutable()
	if id > v.lastSegmentID {
		v.lastSegmentID = id
	}
}

// SetTimestamp sets the logical event time in Unix microseconds.
func (b *Builder) SetTimestamp(ts int64) {
	b.mutable().timestamp = ts
}

// SetCommitTime sets the wall-clock commit time in Unix microseconds.
func (b *Builder) SetCommitTime(ts int64) {
	b.mutable().commitTime = ts
}

// SetLocator sets the ingestion checkpoint.
func (b *Builder) SetLocator(l Locator) {
	l.UserData = slices.Clone(l.UserData)
	b.mutable().locator = l
}

// SetFenceName sets the writer identity.
func (b *Builder) SetFenceName(name string) {
	b.mutable().fenceName = name
}

// SetSchemaID sets the write schema id and records it in the road map.
func (b *Builder) SetSchemaID(id SchemaID) {
	v := b.mutable()
	v.schemaID = id
	if !slices.Contains(v.roadMap, id) {
		v.roadMap = append(v.roadMap, id)
	}
}

// SetReadSchemaID sets the schema id readers should use.
func (b *Builder) SetReadSchemaID(id SchemaID) {
	b.mutable().readSchemaID = id
}

// SetFormatVersion overrides the on-disk format version.
func (b *Builder) SetFormatVersion(fv int) {
	b.mutable().formatVersion = fv
}

// Seal marks the version as closed to incremental extension.
func (b *Builder) Seal() {
	b.mutable().sealed = true
}

// SetVersionLine replaces the lineage.
func (b *Builder) SetVersionLine(l VersionLine) {
	b.mutable().versionLine = l.clone()
}

// AddCurrentVersionToLine appends the version's own coordinate to its line.
func (b *Builder) AddCurrentVersionToLine() {
	v := b.mutable()
	v.versionLine.AddCurrentVersion(v.Coord())
}

// SetSegmentStatistics records statistics for a member segment.
func (b *Builder) SetSegmentStatistics(s SegmentStatistics) error {
	v := b.mutable()
	if !v.HasSegment(s.SegmentID) {
		return fmt.Errorf("segment statistics: segment %d: %w", s.SegmentID, status.ErrNotFound)
	}
	s = s.clone()
	for i := range v.statistics {
		if v.statistics[i].SegmentID == s.SegmentID {
			v.statistics[i] = s
			return nil
		}
	}
	v.statistics = append(v.statistics, s)
	slices.SortFunc(v.statistics, func(a, b SegmentStatistics) int { return int(a.SegmentID - b.SegmentID) })
	return nil
}

// SetSegmentTemperature records the temperature of a member segment.
func (b *Builder) SetSegmentTemperature(t SegmentTemperatureMeta) error {
	v := b.mutable()
	if !v.HasSegment(t.SegmentID) {
		return fmt.Errorf("segment temperature: segment %d: %w", t.SegmentID, status.ErrNotFound)
	}
	for i := range v.temperatures {
		if v.temperatures[i].SegmentID == t.SegmentID {
			v.temperatures[i] = t
			return nil
		}
	}
	v.temperatures = append(v.temperatures, t)
	slices.SortFunc(v.temperatures, func(a, b SegmentTemperatureMeta) int { return int(a.SegmentID - b.SegmentID) })
	return nil
}

// SetDescription stores a free-form description.
func (b *Builder) SetDescription(key, value string) {
	v := b.mutable()
	if v.descriptions == nil {
		v.descriptions = make(map[string]string)
	}
	v.descriptions[key] = value
}

func (b *Builder) findTask(taskType, taskName string) int {
	return slices.IndexFunc(b.v.tasks, func(t IndexTaskMeta) bool { return t.Same(taskType, taskName) })
}

func (b *Builder) stamp(prev int64) int64 {
	ts := b.now().UnixMicro()
	if ts <= prev {
		ts = prev + 1
	}
	return ts
}

// AddIndexTask enqueues a task in the ready state. The first registration
// wins: it reports false and keeps the existing entry if the task is known.
func (b *Builder) AddIndexTask(taskType, taskName string, params map[string]string) bool {
	v := b.mutable()
	if b.findTask(taskType, taskName) >= 0 {
		return false
	}
	v.tasks = append(v.tasks, IndexTaskMeta{
		TaskType:  taskType,
		TaskName:  taskName,
		State:     TaskReady,
		Params:    maps.Clone(params),
		BeginTime: b.stamp(0),
	})
	return true
}

// OverwriteIndexTask replaces the params of a task and resets it to ready
// with a begin time later than any previous one.
func (b *Builder) OverwriteIndexTask(taskType, taskName string, params map[string]string) {
	v := b.mutable()
	i := b.findTask(taskType, taskName)
	if i < 0 {
		b.AddIndexTask(taskType, taskName, params)
		return
	}
	t := &v.tasks[i]
	t.State = TaskReady
	t.Params = maps.Clone(params)
	t.EndTime = 0
	t.BeginTime = b.stamp(t.BeginTime)
}

// UpdateIndexTaskState moves a task to state. Moving into TaskDone clears
// the params and stamps the end time.
func (b *Builder) UpdateIndexTaskState(taskType, taskName string, state IndexTaskState) error {
	v := b.mutable()
	i := b.findTask(taskType, taskName)
	if i < 0 {
		return fmt.Errorf("index task %s/%s: %w", taskType, taskName, status.ErrNotFound)
	}
	t := &v.tasks[i]
	if !ValidateStateTransfer(t.State, state) {
		return status.InvalidArgsf("index task %s/%s: %s -> %s not allowed", taskType, taskName, t.State, state)
	}
	if state == TaskDone && t.State != TaskDone {
		t.Params = nil
		t.EndTime = b.stamp(t.BeginTime)
	}
	t.State = state
	return nil
}

// SetIndexTaskComment attaches a comment to a task.
func (b *Builder) SetIndexTaskComment(taskType, taskName, comment string) error {
	v := b.mutable()
	i := b.findTask(taskType, taskName)
	if i < 0 {
		return fmt.Errorf("index task %s/%s: %w", taskType, taskName, status.ErrNotFound)
	}
	v.tasks[i].Comment = comment
	return nil
}

// RemoveIndexTask drops a task from the queue.
func (b *Builder) RemoveIndexTask(taskType, taskName string) bool {
	v := b.mutable()
	i := b.findTask(taskType, taskName)
	if i < 0 {
		return false
	}
	v.tasks = slices.Delete(v.tasks, i, i+1)
	return true
}
