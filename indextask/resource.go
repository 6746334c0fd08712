package indextask

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/hupe1980/indexlib/directory"
	"github.com/hupe1980/indexlib/status"
)

// Resource is a named, typed artifact handed between operations.
// Store and Load persist it into and restore it from a directory owned by
// the ResourceManager.
type Resource interface {
	Name() string
	Type() string
	Store(ctx context.Context, dir *directory.Directory) error
	Load(ctx context.Context, dir *directory.Directory) error
}

// ResourceCreator returns an empty resource called name.
type ResourceCreator func(name string) Resource

// ResourceCreatorFactory instantiates resources by type tag.
type ResourceCreatorFactory interface {
	CreateResource(resourceType, name string) (Resource, bool)
}

// Registry is a ResourceCreatorFactory backed by a map of creators.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	creators map[string]ResourceCreator
}

// NewRegistry returns a registry that knows DataResourceType.
func NewRegistry() *Registry {
	r := &Registry{creators: make(map[string]ResourceCreator)}
	r.Register(DataResourceType, func(name string) Resource { return NewDataResource(name) })
	return r
}

// Register binds resourceType to creator.
func (r *Registry) Register(resourceType string, creator ResourceCreator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creators[resourceType] = creator
}

// CreateResource implements ResourceCreatorFactory.
func (r *Registry) CreateResource(resourceType, name string) (Resource, bool) {
	r.mu.RLock()
	creator, ok := r.creators[resourceType]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return creator(name), true
}

// As casts r to its concrete type. A mismatch satisfies status.IsCorruption.
func As[T Resource](r Resource) (T, error) {
	t, ok := r.(T)
	if !ok {
		var zero T
		name, typ := "<nil>", "<nil>"
		if r != nil {
			name, typ = r.Name(), r.Type()
		}
		return zero, status.Corruptf("resource %s of type %s is %T", name, typ, zero)
	}
	return t, nil
}

// DataResourceType is the type tag of DataResource.
const DataResourceType = "data"

const dataFileName = "data"

// DataResource is a resource holding an opaque byte payload.
type DataResource struct {
	name        string
	Data        []byte
	Compression directory.Compression
}

// NewDataResource returns an empty zstd-compressed data resource.
func NewDataResource(name string) *DataResource {
	return &DataResource{name: name, Compression: directory.CompressionZstd}
}

// Name implements Resource.
func (r *DataResource) Name() string { return r.name }

// Type implements Resource.
func (r *DataResource) Type() string { return DataResourceType }

// Store implements Resource.
func (r *DataResource) Store(ctx context.Context, dir *directory.Directory) error {
	w, err := dir.CreateFileWriter(ctx, dataFileName, directory.WriterOptions{Compression: r.Compression})
	if err != nil {
		return err
	}
	if _, err := w.Write(r.Data); err != nil {
		_ = w.Close()
		return fmt.Errorf("store resource %s: %w", r.name, err)
	}
	return w.Close()
}

// Load implements Resource.
func (r *DataResource) Load(ctx context.Context, dir *directory.Directory) error {
	rd, err := dir.CreateFileReader(ctx, dataFileName)
	if err != nil {
		return err
	}
	defer rd.Close()

	data, err := io.ReadAll(rd)
	if err != nil {
		return fmt.Errorf("load resource %s: %w", r.name, err)
	}
	r.Data = data
	r.Compression = rd.Compression()
	return nil
}
