package indextask

import (
	"context"
	"testing"

	"github.com/hupe1980/indexlib/blobstore"
	"github.com/hupe1980/indexlib/directory"
	"github.com/hupe1980/indexlib/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const otherType = "other"

type otherResource struct {
	name string
}

func (r *otherResource) Name() string { return r.name }
func (r *otherResource) Type() string { return otherType }
func (r *otherResource) Store(ctx context.Context, dir *directory.Directory) error {
	return dir.Store(ctx, "other", []byte(r.name))
}
func (r *otherResource) Load(context.Context, *directory.Directory) error { return nil }

func newManager(t *testing.T, root *directory.Directory, workDir string) *ResourceManager {
	t.Helper()
	reg := NewRegistry()
	reg.Register(otherType, func(name string) Resource { return &otherResource{name: name} })

	m := NewResourceManager()
	require.NoError(t, m.Init(context.Background(), root, workDir, ResourceManagerConfig{Factory: reg}))
	return m
}

func createData(t *testing.T, m *ResourceManager, name, payload string) *DataResource {
	t.Helper()
	r, err := m.CreateResource(context.Background(), name, DataResourceType)
	require.NoError(t, err)
	d, err := As[*DataResource](r)
	require.NoError(t, err)
	d.Data = []byte(payload)
	return d
}

func TestResourceManager_Lifecycle(t *testing.T) {
	ctx := context.Background()
	root := directory.New(blobstore.NewMemoryStore(), "task")
	m := newManager(t, root, "work")

	_, err := m.LoadResource(ctx, "dict", DataResourceType)
	assert.True(t, status.IsNotFound(err))

	createData(t, m, "dict", "hello")

	// Created but not committed.
	_, err = m.LoadResource(ctx, "dict", DataResourceType)
	assert.True(t, status.IsNotFound(err))
	_, err = m.CreateResource(ctx, "dict", DataResourceType)
	assert.True(t, status.IsExist(err))

	require.NoError(t, m.CommitResource(ctx, "dict"))
	require.NoError(t, m.CommitResource(ctx, "dict"))

	_, err = m.CreateResource(ctx, "dict", DataResourceType)
	assert.True(t, status.IsExist(err))
	_, err = m.CreateResource(ctx, "dict", otherType)
	assert.True(t, status.IsCorruption(err))

	first, err := m.LoadResource(ctx, "dict", DataResourceType)
	require.NoError(t, err)
	second, err := m.LoadResource(ctx, "dict", DataResourceType)
	require.NoError(t, err)
	assert.Same(t, first, second)

	_, err = m.LoadResource(ctx, "dict", otherType)
	assert.True(t, status.IsCorruption(err))

	m.ReleaseResource("dict")
	reloaded, err := m.LoadResource(ctx, "dict", DataResourceType)
	require.NoError(t, err)
	assert.NotSame(t, first, reloaded)

	d, err := As[*DataResource](reloaded)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(d.Data))
	assert.Equal(t, directory.CompressionZstd, d.Compression)
}

func TestResourceManager_ReloadAcrossInstances(t *testing.T) {
	ctx := context.Background()
	root := directory.New(blobstore.NewMemoryStore(), "")

	m := newManager(t, root, "work")
	createData(t, m, "stats", "42")
	require.NoError(t, m.CommitResource(ctx, "stats"))

	fresh := newManager(t, root, "work")
	r, err := fresh.LoadResource(ctx, "stats", DataResourceType)
	require.NoError(t, err)
	d, err := As[*DataResource](r)
	require.NoError(t, err)
	assert.Equal(t, "42", string(d.Data))

	_, err = fresh.LoadResource(ctx, "stats", otherType)
	assert.True(t, status.IsCorruption(err))
}

func TestResourceManager_LinkDeleted(t *testing.T) {
	ctx := context.Background()
	root := directory.New(blobstore.NewMemoryStore(), "")
	m := newManager(t, root, "work")

	createData(t, m, "a", "x")
	require.NoError(t, m.CommitResource(ctx, "a"))
	m.ReleaseResource("a")

	require.NoError(t, m.WorkDir().RemoveFile(ctx, LinkFileName("a")))
	_, err := m.LoadResource(ctx, "a", DataResourceType)
	assert.True(t, status.IsNotFound(err))
}

func TestResourceManager_WorkDirIsolation(t *testing.T) {
	ctx := context.Background()
	root := directory.New(blobstore.NewMemoryStore(), "")
	m := newManager(t, root, "run-1")

	createData(t, m, "a", "x")
	require.NoError(t, m.CommitResource(ctx, "a"))

	reg := NewRegistry()
	require.NoError(t, m.Init(ctx, root, "run-2", ResourceManagerConfig{Factory: reg}))
	_, err := m.LoadResource(ctx, "a", DataResourceType)
	assert.True(t, status.IsNotFound(err))

	createData(t, m, "a", "y")
	require.NoError(t, m.CommitResource(ctx, "a"))
}

func TestResourceManager_Errors(t *testing.T) {
	ctx := context.Background()
	root := directory.New(blobstore.NewMemoryStore(), "")

	_, err := NewResourceManager().CreateResource(ctx, "a", DataResourceType)
	assert.True(t, status.IsInvalidArgs(err))

	m := newManager(t, root, "work")
	_, err = m.CreateResource(ctx, "a", "unknown")
	assert.True(t, status.IsCorruption(err))

	_, err = m.CreateResource(ctx, "", DataResourceType)
	assert.True(t, status.IsInvalidArgs(err))

	err = m.CommitResource(ctx, "never-created")
	assert.True(t, status.IsNotFound(err))

	assert.True(t, status.IsInvalidArgs(m.Init(ctx, root, "", ResourceManagerConfig{})))
}

func TestResourceNaming(t *testing.T) {
	assert.Equal(t, "__link__dict", LinkFileName("dict"))
	assert.Equal(t, "__resource__dict", DataDirName("dict"))
	assert.NotEqual(t, LinkFileName("a"), LinkFileName("b"))
}

func TestAs(t *testing.T) {
	var r Resource = &otherResource{name: "o"}
	_, err := As[*DataResource](r)
	assert.True(t, status.IsCorruption(err))

	o, err := As[*otherResource](r)
	require.NoError(t, err)
	assert.Equal(t, "o", o.Name())

	_, err = As[*DataResource](nil)
	assert.True(t, status.IsCorruption(err))
}
