package blobstore

import (
	"context"
	"io"
	"os"
)

var (
	// ErrNotFound is returned when a blob does not exist.
	//
	// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
	// The default maps to `os.ErrNotExist`.
	ErrNotFound = os.ErrNotExist

	// ErrExists is returned by PutIfAbsent when the blob is already present.
	ErrExists = os.ErrExist
)

// BlobStore is an abstraction for accessing immutable data blobs
// (version files, segment files, task resources).
//
// Implementations must be safe for concurrent use.
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)

	// Create creates a blob for streaming writes. The blob becomes visible on Close.
	Create(ctx context.Context, name string) (WritableBlob, error)

	// Put writes a blob atomically, replacing any previous content.
	Put(ctx context.Context, name string, data []byte) error

	// PutIfAbsent writes a blob atomically only if no blob with that name exists.
	// It returns an error satisfying errors.Is(err, ErrExists) otherwise.
	PutIfAbsent(ctx context.Context, name string, data []byte) error

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names of all blobs starting with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Renamer is implemented by stores with a native rename. Rename moves the
// blob oldName, or every blob below the prefix oldName+"/", to newName.
type Renamer interface {
	Rename(ctx context.Context, oldName, newName string) error
}

// Blob is a read-only handle to a data blob.
type Blob interface {
	io.Closer

	// ReadAt reads len(p) bytes starting at off.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)

	// ReadRange returns a reader over [off, off+length).
	ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error)

	// Size returns the size of the blob in bytes.
	Size() int64
}

// WritableBlob is a handle for streaming writes.
type WritableBlob interface {
	io.WriteCloser
	Sync() error
}

// Mappable is an optional interface for Blobs that support memory mapping.
type Mappable interface {
	// Bytes returns the underlying byte slice.
	// The slice is valid until the Blob is closed.
	Bytes() ([]byte, error)
}

// ReadAll reads the whole content of the named blob.
func ReadAll(ctx context.Context, store BlobStore, name string) ([]byte, error) {
	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	if b.Size() == 0 {
		return []byte{}, nil
	}

	if m, ok := b.(Mappable); ok {
		data, err := m.Bytes()
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}

	rc, err := b.ReadRange(ctx, 0, b.Size())
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
