package cleaner

import (
	"context"
	"testing"
	"time"

	"github.com/hupe1980/indexlib/blobstore"
	"github.com/hupe1980/indexlib/directory"
	"github.com/hupe1980/indexlib/fence"
	"github.com/hupe1980/indexlib/metrics"
	"github.com/hupe1980/indexlib/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Unix(1_700_000_000, 0)

type seg struct {
	id     version.SegmentID
	branch string
}

func publish(t *testing.T, root *directory.Directory, id version.VersionID, age time.Duration, segs ...seg) {
	t.Helper()
	ctx := context.Background()

	b := version.NewBuilder(id)
	for _, s := range segs {
		b.AddSegmentWithBranch(s.id, s.branch)

		base := root
		if s.branch != "" {
			base = root.Sub(fence.DirName(s.branch))
		}
		d, err := base.MakeDirectory(ctx, version.SegmentDirName(s.id))
		require.NoError(t, err)
		require.NoError(t, d.Store(ctx, "data", []byte("x")))
	}
	b.SetCommitTime(now.Add(-age).UnixMicro())
	require.NoError(t, version.Store(ctx, root, b.Finalize()))
}

func newTable(t *testing.T) *directory.Directory {
	t.Helper()
	return newTableOn(t, blobstore.NewMemoryStore())
}

func newTableOn(t *testing.T, store blobstore.BlobStore) *directory.Directory {
	t.Helper()
	root := directory.New(store, "table")
	publish(t, root, 1, 3*time.Hour, seg{id: 0})
	publish(t, root, 2, 2*time.Hour, seg{id: 0}, seg{id: 1})
	publish(t, root, 3, time.Minute, seg{id: 1}, seg{id: 2})
	return root
}

func listing(t *testing.T, root *directory.Directory) ([]version.VersionID, []version.SegmentID) {
	t.Helper()
	ctx := context.Background()
	vs, err := version.ListVersions(ctx, root)
	require.NoError(t, err)
	ss, err := version.ListSegments(ctx, root)
	require.NoError(t, err)
	return vs, ss
}

func TestVacuum_KeepVersions(t *testing.T) {
	ctx := context.Background()
	root := newTable(t)
	m := &metrics.Basic{}

	res, err := New(RetentionPolicy{KeepVersions: 1}, WithMetrics(m)).Vacuum(ctx, root)
	require.NoError(t, err)

	assert.Equal(t, []version.VersionID{3}, res.KeptVersions)
	assert.Equal(t, []version.VersionID{1, 2}, res.RemovedVersions)
	assert.Equal(t, []SegmentRef{{ID: 0}}, res.RemovedSegments)

	vs, ss := listing(t, root)
	assert.Equal(t, []version.VersionID{3}, vs)
	assert.Equal(t, []version.SegmentID{1, 2}, ss)

	assert.Equal(t, int64(2), m.Stats().VacuumVersions)
}

func TestVacuum_ZeroPolicyKeepsLatest(t *testing.T) {
	ctx := context.Background()
	root := newTable(t)

	res, err := New(RetentionPolicy{}).Vacuum(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, []version.VersionID{3}, res.KeptVersions)
}

func TestVacuum_UnreadableVersionDeletesNothing(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewFaultyStore(blobstore.NewMemoryStore())
	root := newTableOn(t, store)
	store.AddFault(blobstore.Fault{Op: blobstore.OpOpen, Pattern: "version.2", Times: 1})
	m := &metrics.Basic{}

	c := New(RetentionPolicy{KeepVersions: 2}, WithMetrics(m))
	res, err := c.Vacuum(ctx, root)
	require.ErrorIs(t, err, blobstore.ErrInjected)
	assert.Empty(t, res.RemovedVersions)
	assert.Empty(t, res.RemovedSegments)
	assert.Equal(t, int64(1), m.Stats().VacuumErrors)

	vs, ss := listing(t, root)
	assert.Equal(t, []version.VersionID{1, 2, 3}, vs)
	assert.Equal(t, []version.SegmentID{0, 1, 2}, ss)

	// Once version 2 reads again, its segment 0 is kept.
	res, err = c.Vacuum(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, []version.VersionID{2, 3}, res.KeptVersions)
	assert.Equal(t, []version.VersionID{1}, res.RemovedVersions)
	assert.Empty(t, res.RemovedSegments)

	vs, ss = listing(t, root)
	assert.Equal(t, []version.VersionID{2, 3}, vs)
	assert.Equal(t, []version.SegmentID{0, 1, 2}, ss)
}

func TestVacuum_KeepDuration(t *testing.T) {
	ctx := context.Background()
	root := newTable(t)

	c := New(RetentionPolicy{KeepDuration: 150 * time.Minute}, WithClock(func() time.Time { return now }))
	res, err := c.Vacuum(ctx, root)
	require.NoError(t, err)

	assert.Equal(t, []version.VersionID{2, 3}, res.KeptVersions)
	assert.Equal(t, []version.VersionID{1}, res.RemovedVersions)
	assert.Empty(t, res.RemovedSegments)

	_, ss := listing(t, root)
	assert.Equal(t, []version.SegmentID{0, 1, 2}, ss)
}

func TestVacuum_ReaderTracker(t *testing.T) {
	ctx := context.Background()
	root := newTable(t)

	tracker := NewReaderTracker()
	tracker.Acquire(1)

	res, err := New(RetentionPolicy{KeepVersions: 1}, WithReaderTracker(tracker)).Vacuum(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, []version.VersionID{1, 3}, res.KeptVersions)
	assert.Equal(t, []version.VersionID{2}, res.RemovedVersions)
	assert.Empty(t, res.RemovedSegments)

	tracker.Release(1)
	res, err = New(RetentionPolicy{KeepVersions: 1}, WithReaderTracker(tracker)).Vacuum(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, []version.VersionID{1}, res.RemovedVersions)
	assert.Equal(t, []SegmentRef{{ID: 0}}, res.RemovedSegments)
}

func TestVacuum_Fences(t *testing.T) {
	ctx := context.Background()
	root := directory.New(blobstore.NewMemoryStore(), "")

	publish(t, root, 1, time.Hour, seg{id: 0, branch: "old"}, seg{id: 1, branch: "live"})
	publish(t, root, 2, 0, seg{id: 1, branch: "live"}, seg{id: 2, branch: "live"})

	_, err := fence.New(ctx, root, "building")
	require.NoError(t, err)
	_, err = fence.New(ctx, root, "abandoned")
	require.NoError(t, err)

	res, err := New(RetentionPolicy{KeepVersions: 1}, WithRemoveFences("building")).Vacuum(ctx, root)
	require.NoError(t, err)

	assert.Equal(t, []version.VersionID{1}, res.RemovedVersions)
	assert.Empty(t, res.RemovedSegments)
	assert.Equal(t, []string{"abandoned", "old"}, res.RemovedFences)

	names, err := fence.List(ctx, root)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"building", "live"}, names)
}

func TestVacuum_FenceSegmentsWithoutFenceRemoval(t *testing.T) {
	ctx := context.Background()
	root := directory.New(blobstore.NewMemoryStore(), "")

	publish(t, root, 1, time.Hour, seg{id: 0, branch: "w"})
	publish(t, root, 2, 0, seg{id: 1, branch: "w"})

	res, err := New(RetentionPolicy{KeepVersions: 1}).Vacuum(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, []SegmentRef{{Branch: "w", ID: 0}}, res.RemovedSegments)
	assert.Empty(t, res.RemovedFences)

	ss, err := version.ListSegments(ctx, root.Sub(fence.DirName("w")))
	require.NoError(t, err)
	assert.Equal(t, []version.SegmentID{1}, ss)
}

func TestVacuum_Empty(t *testing.T) {
	root := directory.New(blobstore.NewMemoryStore(), "")
	res, err := New(RetentionPolicy{KeepVersions: 1}).Vacuum(context.Background(), root)
	require.NoError(t, err)
	assert.Empty(t, res.RemovedVersions)
}

func TestReaderTracker(t *testing.T) {
	tr := NewReaderTracker()
	tr.Acquire(4)
	tr.Acquire(4)
	tr.Acquire(2)
	assert.Equal(t, []version.VersionID{2, 4}, tr.Versions())

	tr.Release(4)
	assert.True(t, tr.InUse(4))
	tr.Release(4)
	assert.False(t, tr.InUse(4))
	tr.Release(9)
	assert.Equal(t, []version.VersionID{2}, tr.Versions())
}
