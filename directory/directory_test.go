package directory

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/hupe1980/indexlib/blobstore"
	"github.com/hupe1980/indexlib/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func forEachStore(t *testing.T, fn func(t *testing.T, d *Directory)) {
	t.Run("Local", func(t *testing.T) {
		fn(t, New(blobstore.NewLocalStore(t.TempDir()), "tables/orders"))
	})
	t.Run("Memory", func(t *testing.T) {
		fn(t, New(blobstore.NewMemoryStore(), "tables/orders"))
	})
}

func TestDirectory_StoreLoad(t *testing.T) {
	forEachStore(t, func(t *testing.T, d *Directory) {
		ctx := context.Background()

		require.NoError(t, d.Store(ctx, "version.0", []byte(`{"versionid":0}`)))

		data, err := d.Load(ctx, "version.0")
		require.NoError(t, err)
		assert.Equal(t, `{"versionid":0}`, string(data))

		n, err := d.GetFileLength(ctx, "version.0")
		require.NoError(t, err)
		assert.Equal(t, int64(15), n)

		_, err = d.Load(ctx, "version.1")
		assert.True(t, status.IsNotFound(err))

		_, ok, err := d.LoadMayNonExist(ctx, "version.1")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, d.Store(ctx, "empty", nil))
		data, err = d.Load(ctx, "empty")
		require.NoError(t, err)
		assert.Empty(t, data)
	})
}

func TestDirectory_StoreIfAbsent(t *testing.T) {
	forEachStore(t, func(t *testing.T, d *Directory) {
		ctx := context.Background()

		require.NoError(t, d.StoreIfAbsent(ctx, "version.7", []byte("a")))
		err := d.StoreIfAbsent(ctx, "version.7", []byte("b"))
		assert.True(t, status.IsExist(err))

		data, err := d.Load(ctx, "version.7")
		require.NoError(t, err)
		assert.Equal(t, "a", string(data))
	})
}

func TestDirectory_Directories(t *testing.T) {
	forEachStore(t, func(t *testing.T, d *Directory) {
		ctx := context.Background()

		ok, err := d.IsDir(ctx, "segment_0_level_0")
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = d.GetDirectory(ctx, "segment_0_level_0", true)
		assert.True(t, status.IsNotFound(err))

		seg, err := d.MakeDirectory(ctx, "segment_0_level_0")
		require.NoError(t, err)

		ok, err = d.IsDir(ctx, "segment_0_level_0")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = d.IsExist(ctx, "segment_0_level_0")
		require.NoError(t, err)
		assert.True(t, ok)

		// An empty directory is listed.
		names, err := d.ListDir(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"segment_0_level_0"}, names)

		require.NoError(t, seg.Store(ctx, "segment_info", []byte("{}")))
		require.NoError(t, seg.Store(ctx, "attribute/price/data", []byte("x")))
		require.NoError(t, d.Store(ctx, "version.0", []byte("{}")))

		names, err = d.ListDir(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"segment_0_level_0", "version.0"}, names)

		names, err = seg.ListDir(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"attribute", "segment_info"}, names)

		ok, err = d.IsDir(ctx, "version.0")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, d.RemoveDirectory(ctx, "segment_0_level_0"))
		ok, err = d.IsExist(ctx, "segment_0_level_0")
		require.NoError(t, err)
		assert.False(t, ok)

		// Removing again is not an error.
		require.NoError(t, d.RemoveDirectory(ctx, "segment_0_level_0"))
		require.NoError(t, d.RemoveFile(ctx, "missing"))
	})
}

func TestDirectory_ListDirMissing(t *testing.T) {
	forEachStore(t, func(t *testing.T, d *Directory) {
		names, err := d.ListDir(context.Background(), "nope")
		require.NoError(t, err)
		assert.Empty(t, names)
	})
}

func TestDirectory_Rename(t *testing.T) {
	forEachStore(t, func(t *testing.T, d *Directory) {
		ctx := context.Background()

		src, err := d.MakeDirectory(ctx, "__resource__tmp")
		require.NoError(t, err)
		require.NoError(t, src.Store(ctx, "data", []byte("payload")))

		require.NoError(t, d.Rename(ctx, "__resource__tmp", "__resource__final"))

		data, err := d.Load(ctx, "__resource__final/data")
		require.NoError(t, err)
		assert.Equal(t, "payload", string(data))

		ok, err := d.IsExist(ctx, "__resource__tmp")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, d.Store(ctx, "a", []byte("1")))
		require.NoError(t, d.Store(ctx, "b", []byte("2")))
		err = d.Rename(ctx, "a", "b")
		assert.True(t, status.IsExist(err))
	})
}

func TestDirectory_RenameWithoutNativeSupport(t *testing.T) {
	ctx := context.Background()
	store := &noRenameStore{BlobStore: blobstore.NewMemoryStore()}
	d := New(store, "")

	require.NoError(t, d.Store(ctx, "src/x", []byte("1")))
	require.NoError(t, d.Store(ctx, "src/y/z", []byte("2")))
	require.NoError(t, d.Rename(ctx, "src", "dst"))

	files, err := d.ListFiles(ctx, "dst")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y/z"}, files)

	files, err = d.ListFiles(ctx, "src")
	require.NoError(t, err)
	assert.Empty(t, files)

	err = d.Rename(ctx, "src", "other")
	assert.True(t, status.IsNotFound(err))
}

type noRenameStore struct {
	blobstore.BlobStore
}

func TestDirectory_Compression(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionZstd, CompressionLZ4} {
		t.Run(c.String(), func(t *testing.T) {
			ctx := context.Background()
			d := New(blobstore.NewMemoryStore(), "")

			payload := bytes.Repeat([]byte("resource payload "), 512)

			w, err := d.CreateFileWriter(ctx, "__resource__r/data", WriterOptions{Compression: c})
			require.NoError(t, err)
			_, err = w.Write(payload)
			require.NoError(t, err)
			assert.Equal(t, int64(len(payload)), w.Length())
			require.NoError(t, w.Close())

			size, err := d.GetFileLength(ctx, "__resource__r/data")
			require.NoError(t, err)
			if c != CompressionNone {
				assert.Less(t, size, int64(len(payload)))
			}

			r, err := d.CreateFileReader(ctx, "__resource__r/data")
			require.NoError(t, err)
			got, err := io.ReadAll(r)
			require.NoError(t, err)
			require.NoError(t, r.Close())

			assert.Equal(t, c, r.Compression())
			assert.Equal(t, payload, got)
		})
	}
}

func TestDirectory_ReaderOnShortFile(t *testing.T) {
	ctx := context.Background()
	d := New(blobstore.NewMemoryStore(), "")
	require.NoError(t, d.Store(ctx, "tiny", []byte("ab")))

	r, err := d.CreateFileReader(ctx, "tiny")
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "ab", string(got))
}

func TestDirectory_Paths(t *testing.T) {
	dir := t.TempDir()
	d := New(blobstore.NewLocalStore(dir), "root").Sub("__FENCE__a")
	assert.Equal(t, "root/__FENCE__a/version.1", d.OutputPath("version.1"))
	assert.Equal(t, filepath.Join(dir, "root", "__FENCE__a", "version.1"), d.PhysicalPath("version.1"))
	assert.Contains(t, d.DebugString(), "root/__FENCE__a")

	m := New(blobstore.NewMemoryStore(), "/x/../y/")
	assert.Equal(t, "y", m.Root())
	assert.Equal(t, "y/z", m.PhysicalPath("z"))
}

func TestParseCompression(t *testing.T) {
	c, err := ParseCompression("zstd")
	require.NoError(t, err)
	assert.Equal(t, CompressionZstd, c)

	_, err = ParseCompression("snappy")
	assert.True(t, status.IsInvalidArgs(err))
}
