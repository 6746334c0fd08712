package blobstore

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/hupe1980/indexlib/internal/mmap"
)

const tempMarker = ".tmp-"

// LocalStore implements BlobStore using the local file system.
//
// Blob names use forward slashes and map to paths below root. Writes go to a
// temporary file that is synced and then renamed (Put) or hard linked
// (PutIfAbsent) into place, so readers never observe partial content.
type LocalStore struct {
	root string
}

// NewLocalStore creates a new LocalStore rooted at the given directory.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

// Root returns the root directory of the store.
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}

// Open opens a blob for reading.
func (s *LocalStore) Open(_ context.Context, name string) (Blob, error) {
	// Local reads are served from a read-only mapping.
	m, err := mmap.Open(s.path(name))
	if err != nil {
		return nil, err
	}
	return &localBlob{m: m}, nil
}

// Create creates a new blob for streaming writes.
func (s *LocalStore) Create(_ context.Context, name string) (WritableBlob, error) {
	final := s.path(name)
	f, err := s.tempFile(final)
	if err != nil {
		return nil, err
	}
	return &localWritableBlob{f: f, final: final}, nil
}

// Put writes a blob atomically.
func (s *LocalStore) Put(_ context.Context, name string, data []byte) error {
	final := s.path(name)
	tmp, err := s.writeTemp(final, data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return syncDir(filepath.Dir(final))
}

// PutIfAbsent writes a blob atomically unless it already exists.
func (s *LocalStore) PutIfAbsent(_ context.Context, name string, data []byte) error {
	final := s.path(name)
	tmp, err := s.writeTemp(final, data)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	// link(2) fails with EEXIST instead of replacing the target.
	if err := os.Link(tmp, final); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return &fs.PathError{Op: "put-if-absent", Path: final, Err: ErrExists}
		}
		return err
	}
	return syncDir(filepath.Dir(final))
}

// Delete removes a blob and prunes parent directories left empty.
func (s *LocalStore) Delete(_ context.Context, name string) error {
	p := s.path(name)
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	s.pruneEmptyParents(filepath.Dir(p))
	return nil
}

// Rename moves a blob or a whole prefix tree.
func (s *LocalStore) Rename(_ context.Context, oldName, newName string) error {
	dst := s.path(newName)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if _, err := os.Stat(dst); err == nil {
		return &fs.PathError{Op: "rename", Path: dst, Err: ErrExists}
	}
	if err := os.Rename(s.path(oldName), dst); err != nil {
		return err
	}
	s.pruneEmptyParents(filepath.Dir(s.path(oldName)))
	return nil
}

// List returns all blob names below root that start with prefix.
func (s *LocalStore) List(_ context.Context, prefix string) ([]string, error) {
	start := s.root
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		start = s.path(prefix[:i])
	}

	var names []string
	err := filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || strings.Contains(d.Name(), tempMarker) {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(rel, prefix) {
			names = append(names, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func (s *LocalStore) tempFile(final string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(final+tempMarker+uuid.NewString(), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
}

func (s *LocalStore) writeTemp(final string, data []byte) (string, error) {
	f, err := s.tempFile(final)
	if err != nil {
		return "", err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return tmp, nil
}

func (s *LocalStore) pruneEmptyParents(dir string) {
	root := filepath.Clean(s.root)
	for dir = filepath.Clean(dir); dir != root && strings.HasPrefix(dir, root); dir = filepath.Dir(dir) {
		// Remove fails on non-empty directories, which ends the walk.
		if err := os.Remove(dir); err != nil {
			return
		}
	}
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	// Some platforms reject fsync on directories; the rename is already durable there.
	_ = d.Sync()
	return nil
}

type localBlob struct {
	m *mmap.Mapping
}

func (b *localBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	return b.m.ReadAt(p, off)
}

func (b *localBlob) ReadRange(_ context.Context, off, length int64) (io.ReadCloser, error) {
	if off >= int64(b.m.Size()) {
		return nil, io.EOF
	}
	return io.NopCloser(io.NewSectionReader(b.m, off, length)), nil
}

func (b *localBlob) Close() error {
	return b.m.Close()
}

func (b *localBlob) Size() int64 {
	return int64(b.m.Size())
}

func (b *localBlob) Bytes() ([]byte, error) {
	return b.m.Bytes(), nil
}

type localWritableBlob struct {
	f      *os.File
	final  string
	closed bool
}

func (w *localWritableBlob) Write(p []byte) (int, error) {
	return w.f.Write(p)
}

func (w *localWritableBlob) Sync() error {
	return w.f.Sync()
}

// Close syncs the temporary file and renames it into place.
func (w *localWritableBlob) Close() error {
	if w.closed {
		return os.ErrClosed
	}
	w.closed = true
	tmp := w.f.Name()
	if err := w.f.Sync(); err != nil {
		w.f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := w.f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, w.final); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return syncDir(filepath.Dir(w.final))
}
