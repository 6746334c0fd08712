package version

import (
	"context"
	"testing"

	"github.com/hupe1980/indexlib/blobstore"
	"github.com/hupe1980/indexlib/directory"
	"github.com/hupe1980/indexlib/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentDirName(t *testing.T) {
	for _, id := range []SegmentID{0, 1, 42, MergedSegmentIDMask | 7} {
		name := SegmentDirName(id)
		got, ok := SegmentIDFromDirName(name)
		require.True(t, ok, name)
		assert.Equal(t, id, got)
	}

	assert.Equal(t, "segment_3_level_0", SegmentDirName(3))

	for _, name := range []string{"segment_", "segment_x_level_0", "segment_3", "segment_3_level_0.bak", "version.3", "seg_3_level_0"} {
		_, ok := SegmentIDFromDirName(name)
		assert.False(t, ok, name)
	}
}

func TestVersionFileName(t *testing.T) {
	assert.Equal(t, "version.10", VersionFileName(10))

	id, err := VersionIDFromFileName("version.10")
	require.NoError(t, err)
	assert.Equal(t, VersionID(10), id)

	_, err = VersionIDFromFileName("version.1x")
	assert.True(t, status.IsConfigError(err))

	_, err = VersionIDFromFileName("version.-1")
	assert.True(t, status.IsConfigError(err))

	_, err = VersionIDFromFileName("segment_1_level_0")
	assert.True(t, status.IsInvalidArgs(err))

	assert.True(t, IsVersionFileName("version.0"))
	assert.False(t, IsVersionFileName("version.0.tmp"))
	assert.False(t, IsVersionFileName("version."))
}

func TestListing(t *testing.T) {
	ctx := context.Background()
	dir := directory.New(blobstore.NewMemoryStore(), "table")

	for _, id := range []SegmentID{10, 2, 1} {
		_, err := dir.MakeDirectory(ctx, SegmentDirName(id))
		require.NoError(t, err)
	}
	for _, name := range []string{"version.10", "version.2", "version.x", "entry_table", "segment_x_level_0/a"} {
		require.NoError(t, dir.Store(ctx, name, []byte(`{"versionid": 0}`)))
	}
	_, err := dir.MakeDirectory(ctx, "__FENCE__abc")
	require.NoError(t, err)

	segs, err := ListSegments(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, []SegmentID{1, 2, 10}, segs)

	versions, err := ListVersions(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, []VersionID{2, 10}, versions)
}

func TestListing_Empty(t *testing.T) {
	ctx := context.Background()
	dir := directory.New(blobstore.NewMemoryStore(), "table")

	segs, err := ListSegments(ctx, dir)
	require.NoError(t, err)
	assert.Empty(t, segs)

	v, err := LoadLatest(ctx, dir)
	require.NoError(t, err)
	assert.False(t, v.IsValid())
	assert.Zero(t, v.SegmentCount())
}

func TestStoreLoad(t *testing.T) {
	ctx := context.Background()
	dir := directory.New(blobstore.NewLocalStore(t.TempDir()), "")

	for id := VersionID(0); id < 3; id++ {
		b := NewBuilder(id)
		b.AddSegment(SegmentID(id))
		require.NoError(t, Store(ctx, dir, b.Finalize()))
	}

	latest, err := LoadLatest(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, VersionID(2), latest.ID())
	assert.Equal(t, []SegmentID{2}, latest.Segments())

	v1, err := Load(ctx, dir, 1)
	require.NoError(t, err)
	assert.Equal(t, []SegmentID{1}, v1.Segments())

	_, err = Load(ctx, dir, 7)
	assert.True(t, status.IsNotFound(err))

	err = StoreIfAbsent(ctx, dir, NewBuilder(1).Finalize())
	assert.True(t, status.IsExist(err))
}

func TestLoad_Errors(t *testing.T) {
	ctx := context.Background()
	dir := directory.New(blobstore.NewMemoryStore(), "")

	require.NoError(t, dir.Store(ctx, "version.3", []byte(`{"versionid": 4}`)))
	_, err := Load(ctx, dir, 3)
	assert.True(t, status.IsCorruption(err))

	require.NoError(t, dir.Store(ctx, "version.5", []byte(`not json`)))
	_, err = LoadLatest(ctx, dir)
	assert.True(t, status.IsConfigError(err))
	assert.Contains(t, err.Error(), "version.5")
}
