package indextask

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/hupe1980/indexlib/directory"
	"github.com/hupe1980/indexlib/internal/resource"
	"github.com/hupe1980/indexlib/status"
)

const (
	linkFilePrefix = "__link__"
	dataDirPrefix  = "__resource__"
)

// LinkFileName returns the name of the link file of resource name.
func LinkFileName(name string) string { return linkFilePrefix + name }

// DataDirName returns the name of the data directory of resource name.
func DataDirName(name string) string { return dataDirPrefix + name }

// ResourceManagerConfig configures a ResourceManager.
type ResourceManagerConfig struct {
	// Factory instantiates resources by type. Defaults to NewRegistry().
	Factory ResourceCreatorFactory
	// Controller throttles commit IO. Optional.
	Controller *resource.Controller
	// Logger defaults to a discarding logger.
	Logger *slog.Logger
}

type link struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Dir  string `json:"dir"`
}

// ResourceManager stores resources created by operations of one index task.
// It is safe for concurrent use.
type ResourceManager struct {
	mu      sync.Mutex
	workDir *directory.Directory
	factory ResourceCreatorFactory
	rc      *resource.Controller
	logger  *slog.Logger
	pending map[string]Resource
	loaded  map[string]Resource
}

// NewResourceManager returns an uninitialized manager.
func NewResourceManager() *ResourceManager {
	return &ResourceManager{
		pending: make(map[string]Resource),
		loaded:  make(map[string]Resource),
	}
}

// Init binds the manager to root/workDirName. Calling Init again with
// another work directory isolates later calls from earlier ones and drops
// all cached resources.
func (m *ResourceManager) Init(ctx context.Context, root *directory.Directory, workDirName string, cfg ResourceManagerConfig) error {
	if root == nil || workDirName == "" || strings.Contains(workDirName, "..") {
		return status.InvalidArgsf("resource work dir %q", workDirName)
	}
	workDir, err := root.MakeDirectory(ctx, workDirName)
	if err != nil {
		return fmt.Errorf("init resource manager: %w", err)
	}

	if cfg.Factory == nil {
		cfg.Factory = NewRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.workDir = workDir
	m.factory = cfg.Factory
	m.rc = cfg.Controller
	m.logger = cfg.Logger
	m.pending = make(map[string]Resource)
	m.loaded = make(map[string]Resource)
	return nil
}

// WorkDir returns the directory the manager is bound to.
func (m *ResourceManager) WorkDir() *directory.Directory {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.workDir
}

func (m *ResourceManager) checkInit() error {
	if m.workDir == nil {
		return status.InvalidArgsf("resource manager not initialized")
	}
	return nil
}

func checkName(name string) error {
	if name == "" || strings.Contains(name, "/") {
		return status.InvalidArgsf("resource name %q", name)
	}
	return nil
}

func (m *ResourceManager) readLink(ctx context.Context, name string) (link, bool, error) {
	data, ok, err := m.workDir.LoadMayNonExist(ctx, LinkFileName(name))
	if err != nil || !ok {
		return link{}, false, err
	}
	var l link
	if err := json.Unmarshal(data, &l); err != nil {
		return link{}, false, status.NewParseError(m.workDir.OutputPath(LinkFileName(name)), err)
	}
	return l, true, nil
}

// CreateResource returns a new writable resource of resourceType. It fails
// with status.ErrExist if name is already created or committed and with
// status.ErrCorruption if resourceType is unknown or differs from the
// committed type.
func (m *ResourceManager) CreateResource(ctx context.Context, name, resourceType string) (Resource, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkInit(); err != nil {
		return nil, err
	}

	l, committed, err := m.readLink(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("create resource %s: %w", name, err)
	}
	if committed {
		if l.Type != resourceType {
			return nil, status.Corruptf("resource %s committed as %s, requested %s", name, l.Type, resourceType)
		}
		return nil, fmt.Errorf("create resource %s: %w", name, status.ErrExist)
	}
	if _, ok := m.pending[name]; ok {
		return nil, fmt.Errorf("create resource %s: %w", name, status.ErrExist)
	}

	r, ok := m.factory.CreateResource(resourceType, name)
	if !ok {
		return nil, status.Corruptf("unknown resource type %s for %s", resourceType, name)
	}
	m.pending[name] = r
	return r, nil
}

// CommitResource persists a created resource and publishes its link.
// Committing a committed resource is a no-op.
func (m *ResourceManager) CommitResource(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkInit(); err != nil {
		return err
	}

	if _, committed, err := m.readLink(ctx, name); err != nil {
		return fmt.Errorf("commit resource %s: %w", name, err)
	} else if committed {
		return nil
	}

	r, ok := m.pending[name]
	if !ok {
		return fmt.Errorf("commit resource %s: %w", name, status.ErrNotFound)
	}

	// Debris of an interrupted commit.
	if err := m.workDir.RemoveDirectory(ctx, DataDirName(name)); err != nil {
		return fmt.Errorf("commit resource %s: %w", name, err)
	}
	dataDir, err := m.workDir.MakeDirectory(ctx, DataDirName(name))
	if err != nil {
		return fmt.Errorf("commit resource %s: %w", name, err)
	}
	if err := r.Store(ctx, dataDir); err != nil {
		return fmt.Errorf("commit resource %s: %w", name, err)
	}
	if err := m.throttle(ctx, dataDir); err != nil {
		return fmt.Errorf("commit resource %s: %w", name, err)
	}

	data, err := json.Marshal(link{Name: name, Type: r.Type(), Dir: DataDirName(name)})
	if err != nil {
		return err
	}
	if err := m.workDir.StoreIfAbsent(ctx, LinkFileName(name), data); err != nil && !status.IsExist(err) {
		return fmt.Errorf("commit resource %s: %w", name, err)
	}

	delete(m.pending, name)
	m.loaded[name] = r
	m.logger.DebugContext(ctx, "Committed resource", "resource", name, "type", r.Type())
	return nil
}

func (m *ResourceManager) throttle(ctx context.Context, dir *directory.Directory) error {
	if m.rc == nil {
		return nil
	}
	files, err := dir.ListFiles(ctx, "")
	if err != nil {
		return err
	}
	for _, f := range files {
		n, err := dir.GetFileLength(ctx, f)
		if err != nil {
			return err
		}
		if err := m.rc.AcquireIO(ctx, int(n)); err != nil {
			return err
		}
	}
	return nil
}

// LoadResource returns the committed resource name. Repeated loads return
// the same instance until the resource is released. A missing link
// satisfies status.IsNotFound and a type mismatch status.IsCorruption.
func (m *ResourceManager) LoadResource(ctx context.Context, name, resourceType string) (Resource, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkInit(); err != nil {
		return nil, err
	}

	if r, ok := m.loaded[name]; ok {
		if r.Type() != resourceType {
			return nil, status.Corruptf("resource %s is %s, requested %s", name, r.Type(), resourceType)
		}
		return r, nil
	}

	l, ok, err := m.readLink(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load resource %s: %w", name, err)
	}
	if !ok {
		return nil, fmt.Errorf("load resource %s: %w", name, status.ErrNotFound)
	}
	if l.Type != resourceType {
		return nil, status.Corruptf("resource %s is %s, requested %s", name, l.Type, resourceType)
	}

	r, ok := m.factory.CreateResource(l.Type, name)
	if !ok {
		return nil, status.Corruptf("unknown resource type %s for %s", l.Type, name)
	}
	if err := r.Load(ctx, m.workDir.Sub(l.Dir)); err != nil {
		return nil, fmt.Errorf("load resource %s: %w", name, err)
	}
	m.loaded[name] = r
	return r, nil
}

// ReleaseResource evicts name from the cache. The next LoadResource reads
// it from storage again.
func (m *ResourceManager) ReleaseResource(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.loaded, name)
}
