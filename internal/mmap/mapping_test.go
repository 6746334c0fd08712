package mmap

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "version.1")
	require.NoError(t, os.WriteFile(path, []byte(`{"versionid":1}`), 0o644))

	m, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 15, m.Size())
	assert.Equal(t, `{"versionid":1}`, string(m.Bytes()))

	buf := make([]byte, 9)
	n, err := m.ReadAt(buf, 2)
	require.NoError(t, err)
	assert.Equal(t, 9, n)
	assert.Equal(t, `versionid`, string(buf))

	_, err = m.ReadAt(buf, 20)
	assert.ErrorIs(t, err, io.EOF)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Nil(t, m.Bytes())

	_, err = m.ReadAt(buf, 0)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpenEmptyAndMissing(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))

	m, err := Open(empty)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Size())
	require.NoError(t, m.Close())

	_, err = Open(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
