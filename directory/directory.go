package directory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hupe1980/indexlib/blobstore"
	"github.com/hupe1980/indexlib/status"
	"golang.org/x/sync/errgroup"
)

// MarkerName is the hidden blob that makes a directory visible on its own.
const MarkerName = ".dir"

const removeParallelism = 8

// Directory is a scoped view of a BlobStore below a path prefix.
//
// A Directory is a value handle; it is safe for concurrent use when the
// underlying BlobStore is.
type Directory struct {
	store  blobstore.BlobStore
	root   string
	logger *slog.Logger
}

// Option configures a Directory.
type Option func(*Directory)

// WithLogger sets the logger used for best-effort operations.
func WithLogger(l *slog.Logger) Option {
	return func(d *Directory) {
		d.logger = l
	}
}

// New returns a Directory rooted at root inside store. An empty root is the
// top of the store.
func New(store blobstore.BlobStore, root string, optFns ...Option) *Directory {
	d := &Directory{
		store:  store,
		root:   clean(root),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, fn := range optFns {
		fn(d)
	}
	return d
}

func clean(p string) string {
	p = path.Clean("/" + filepath.ToSlash(p))
	return strings.TrimPrefix(p, "/")
}

// BlobStore returns the underlying store.
func (d *Directory) BlobStore() blobstore.BlobStore { return d.store }

// Root returns the logical path of the directory inside its store.
func (d *Directory) Root() string { return d.root }

// Logger returns the directory logger.
func (d *Directory) Logger() *slog.Logger { return d.logger }

func (d *Directory) key(p string) string {
	return clean(path.Join(d.root, p))
}

// Sub returns the directory at p without checking that it exists.
func (d *Directory) Sub(p string) *Directory {
	return &Directory{store: d.store, root: d.key(p), logger: d.logger}
}

// OutputPath returns the logical path of p inside the store.
func (d *Directory) OutputPath(p string) string {
	return d.key(p)
}

// PhysicalPath returns the location of p on the backing medium. For local
// stores this is a file-system path; otherwise it is the logical path.
func (d *Directory) PhysicalPath(p string) string {
	if r, ok := d.store.(interface{ Root() string }); ok {
		return filepath.Join(r.Root(), filepath.FromSlash(d.key(p)))
	}
	return d.key(p)
}

// DebugString describes the directory for logs.
func (d *Directory) DebugString() string {
	return fmt.Sprintf("directory{store=%T root=%q}", d.store, d.root)
}

func dirPrefix(key string) string {
	if key == "" {
		return ""
	}
	return key + "/"
}

func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, blobstore.ErrNotFound) && !errors.Is(err, status.ErrNotFound):
		return fmt.Errorf("%w: %w", status.ErrNotFound, err)
	case errors.Is(err, blobstore.ErrExists) && !errors.Is(err, status.ErrExist):
		return fmt.Errorf("%w: %w", status.ErrExist, err)
	default:
		return err
	}
}

// MakeDirectory creates p and its parents and returns the directory handle.
// Creating an existing directory is not an error.
func (d *Directory) MakeDirectory(ctx context.Context, p string) (*Directory, error) {
	key := d.key(p)
	for k := key; k != "" && k != "."; k = path.Dir(k) {
		if err := d.store.Put(ctx, path.Join(k, MarkerName), nil); err != nil {
			return nil, fmt.Errorf("make directory %s: %w", key, classify(err))
		}
	}
	return &Directory{store: d.store, root: key, logger: d.logger}, nil
}

// GetDirectory returns the sub directory p. With mustExist, a missing
// directory is reported as status.ErrNotFound.
func (d *Directory) GetDirectory(ctx context.Context, p string, mustExist bool) (*Directory, error) {
	if mustExist {
		ok, err := d.IsDir(ctx, p)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("directory %s: %w", d.key(p), status.ErrNotFound)
		}
	}
	return d.Sub(p), nil
}

// IsExist reports whether p names a file or a directory.
func (d *Directory) IsExist(ctx context.Context, p string) (bool, error) {
	key := d.key(p)
	names, err := d.store.List(ctx, key)
	if err != nil {
		return false, classify(err)
	}
	for _, n := range names {
		if n == key || strings.HasPrefix(n, dirPrefix(key)) {
			return true, nil
		}
	}
	return false, nil
}

// IsDir reports whether p names a directory.
func (d *Directory) IsDir(ctx context.Context, p string) (bool, error) {
	key := d.key(p)
	names, err := d.store.List(ctx, dirPrefix(key))
	if err != nil {
		return false, classify(err)
	}
	return len(names) > 0, nil
}

// ListDir returns the sorted names of the immediate children of p.
// A missing directory lists as empty.
func (d *Directory) ListDir(ctx context.Context, p string) ([]string, error) {
	prefix := dirPrefix(d.key(p))
	names, err := d.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, classify(err))
	}

	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, n := range names {
		rest := strings.TrimPrefix(n, prefix)
		if rest == "" || rest == MarkerName {
			continue
		}
		child, _, _ := strings.Cut(rest, "/")
		if _, ok := seen[child]; ok {
			continue
		}
		seen[child] = struct{}{}
		out = append(out, child)
	}
	sort.Strings(out)
	return out, nil
}

// ListFiles returns every file below p as paths relative to p, markers excluded.
func (d *Directory) ListFiles(ctx context.Context, p string) ([]string, error) {
	prefix := dirPrefix(d.key(p))
	names, err := d.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, classify(err))
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		rest := strings.TrimPrefix(n, prefix)
		if rest == "" || path.Base(rest) == MarkerName {
			continue
		}
		out = append(out, rest)
	}
	return out, nil
}

// GetFileLength returns the stored size of the file p in bytes.
func (d *Directory) GetFileLength(ctx context.Context, p string) (int64, error) {
	b, err := d.store.Open(ctx, d.key(p))
	if err != nil {
		return 0, fmt.Errorf("file length %s: %w", d.key(p), classify(err))
	}
	defer b.Close()
	return b.Size(), nil
}

// Store writes content to p atomically, replacing an existing file.
func (d *Directory) Store(ctx context.Context, p string, content []byte) error {
	if err := d.store.Put(ctx, d.key(p), content); err != nil {
		return fmt.Errorf("store %s: %w", d.key(p), classify(err))
	}
	return nil
}

// StoreIfAbsent writes content to p atomically unless p already exists, in
// which case it returns an error satisfying status.IsExist.
func (d *Directory) StoreIfAbsent(ctx context.Context, p string, content []byte) error {
	if err := d.store.PutIfAbsent(ctx, d.key(p), content); err != nil {
		return fmt.Errorf("store %s: %w", d.key(p), classify(err))
	}
	return nil
}

// Load reads the whole file p.
func (d *Directory) Load(ctx context.Context, p string) ([]byte, error) {
	data, err := blobstore.ReadAll(ctx, d.store, d.key(p))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", d.key(p), classify(err))
	}
	return data, nil
}

// LoadMayNonExist reads the whole file p and reports false when it is absent.
func (d *Directory) LoadMayNonExist(ctx context.Context, p string) ([]byte, bool, error) {
	data, err := d.Load(ctx, p)
	if err != nil {
		if status.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// RemoveFile deletes p. A missing file is not an error.
func (d *Directory) RemoveFile(ctx context.Context, p string) error {
	if err := d.store.Delete(ctx, d.key(p)); err != nil {
		return fmt.Errorf("remove %s: %w", d.key(p), classify(err))
	}
	return nil
}

// RemoveDirectory deletes p and everything below it. A missing directory
// is not an error.
func (d *Directory) RemoveDirectory(ctx context.Context, p string) error {
	key := d.key(p)
	if key == "" {
		return status.InvalidArgsf("refusing to remove store root")
	}

	names, err := d.store.List(ctx, dirPrefix(key))
	if err != nil {
		return fmt.Errorf("remove directory %s: %w", key, classify(err))
	}

	var markers []string
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(removeParallelism)
	for _, n := range names {
		if path.Base(n) == MarkerName {
			markers = append(markers, n)
			continue
		}
		g.Go(func() error {
			return d.store.Delete(gctx, n)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("remove directory %s: %w", key, classify(err))
	}

	// Markers go last, deepest first, so an interrupted removal still
	// shows the directory.
	sort.Slice(markers, func(i, j int) bool { return len(markers[i]) > len(markers[j]) })
	for _, m := range markers {
		if err := d.store.Delete(ctx, m); err != nil {
			return fmt.Errorf("remove directory %s: %w", key, classify(err))
		}
	}

	d.logger.Debug("Removed directory", "path", key, "files", len(names))
	return nil
}

// Rename moves the file or directory oldPath to newPath. The destination
// must not exist.
func (d *Directory) Rename(ctx context.Context, oldPath, newPath string) error {
	src, dst := d.key(oldPath), d.key(newPath)

	exists, err := d.IsExist(ctx, newPath)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("rename %s to %s: %w", src, dst, status.ErrExist)
	}

	if r, ok := d.store.(blobstore.Renamer); ok {
		if err := r.Rename(ctx, src, dst); err != nil {
			return fmt.Errorf("rename %s to %s: %w", src, dst, classify(err))
		}
		return nil
	}

	return d.copyRename(ctx, src, dst)
}

func (d *Directory) copyRename(ctx context.Context, src, dst string) error {
	names, err := d.store.List(ctx, src)
	if err != nil {
		return classify(err)
	}

	var moved []string
	for _, n := range names {
		var target string
		switch {
		case n == src:
			target = dst
		case strings.HasPrefix(n, src+"/"):
			target = dst + strings.TrimPrefix(n, src)
		default:
			continue
		}
		data, err := blobstore.ReadAll(ctx, d.store, n)
		if err != nil {
			return fmt.Errorf("rename %s: %w", n, classify(err))
		}
		if err := d.store.Put(ctx, target, data); err != nil {
			return fmt.Errorf("rename %s: %w", n, classify(err))
		}
		moved = append(moved, n)
	}
	if len(moved) == 0 {
		return fmt.Errorf("rename %s: %w", src, status.ErrNotFound)
	}

	for _, n := range moved {
		if err := d.store.Delete(ctx, n); err != nil {
			return fmt.Errorf("rename %s: %w", n, classify(err))
		}
	}
	return nil
}

// WriterOptions configures CreateFileWriter.
type WriterOptions struct {
	Compression Compression
}

// FileWriter streams a file into the directory. The file becomes visible
// when Close returns without error.
type FileWriter struct {
	path   string
	blob   blobstore.WritableBlob
	w      io.WriteCloser
	n      int64
	closed bool
}

// CreateFileWriter opens a streaming writer for p.
func (d *Directory) CreateFileWriter(ctx context.Context, p string, opts WriterOptions) (*FileWriter, error) {
	blob, err := d.store.Create(ctx, d.key(p))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", d.key(p), classify(err))
	}
	w, err := newCompressor(blob, opts.Compression)
	if err != nil {
		_ = blob.Close()
		return nil, fmt.Errorf("create %s: %w", d.key(p), err)
	}
	return &FileWriter{path: d.key(p), blob: blob, w: w}, nil
}

// Write appends uncompressed bytes to the file.
func (w *FileWriter) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.n += int64(n)
	return n, err
}

// Length returns the number of uncompressed bytes written so far.
func (w *FileWriter) Length() int64 { return w.n }

// Path returns the logical path of the file.
func (w *FileWriter) Path() string { return w.path }

// Close flushes the codec and publishes the file.
func (w *FileWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.w.Close(); err != nil {
		_ = w.blob.Close()
		return fmt.Errorf("close %s: %w", w.path, err)
	}
	if err := w.blob.Close(); err != nil {
		return fmt.Errorf("close %s: %w", w.path, classify(err))
	}
	return nil
}

// FileReader reads a file written by CreateFileWriter or Store.
type FileReader struct {
	io.Reader
	blob        blobstore.Blob
	body        io.ReadCloser
	dec         io.ReadCloser
	compression Compression
}

// CreateFileReader opens p for sequential reading, decompressing transparently.
func (d *Directory) CreateFileReader(ctx context.Context, p string) (*FileReader, error) {
	blob, err := d.store.Open(ctx, d.key(p))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.key(p), classify(err))
	}

	var body io.ReadCloser = io.NopCloser(strings.NewReader(""))
	if blob.Size() > 0 {
		body, err = blob.ReadRange(ctx, 0, blob.Size())
		if err != nil {
			_ = blob.Close()
			return nil, fmt.Errorf("open %s: %w", d.key(p), classify(err))
		}
	}

	dec, c, err := newDecompressor(body)
	if err != nil {
		_ = body.Close()
		_ = blob.Close()
		return nil, fmt.Errorf("open %s: %w", d.key(p), err)
	}
	return &FileReader{Reader: dec, blob: blob, body: body, dec: dec, compression: c}, nil
}

// Compression returns the codec detected in the file header.
func (r *FileReader) Compression() Compression { return r.compression }

// Close releases the reader.
func (r *FileReader) Close() error {
	_ = r.dec.Close()
	_ = r.body.Close()
	return r.blob.Close()
}
