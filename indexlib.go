package indexlib

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/indexlib/blobstore"
	"github.com/hupe1980/indexlib/cleaner"
	"github.com/hupe1980/indexlib/commit"
	"github.com/hupe1980/indexlib/directory"
	"github.com/hupe1980/indexlib/fence"
	"github.com/hupe1980/indexlib/indextask"
	"github.com/hupe1980/indexlib/internal/cache"
	"github.com/hupe1980/indexlib/internal/resource"
	"github.com/hupe1980/indexlib/recovery"
	"github.com/hupe1980/indexlib/status"
	"github.com/hupe1980/indexlib/version"
)

const (
	defaultFencePrefix      = "writer"
	defaultVersionCacheSize = 16
	taskWorkDirPrefix       = "__task__"
)

// Table is a writer session on one table.
//
// A Table owns a fence. Segments are created inside it and become visible
// to other sessions when a version referencing them is published. Table is
// safe for concurrent use.
type Table struct {
	mu      sync.RWMutex
	current *version.Version
	closed  bool

	root      *directory.Directory
	fence     *fence.Fence
	committer *commit.Committer
	rc        *resource.Controller
	tracker   *cleaner.ReaderTracker
	versions  *cache.LRU[version.VersionID, *version.Version]
	logger    *Logger
	opts      options
}

// Open opens the table stored in store. It loads the latest published
// version, creates or reopens the session fence and recovers segments a
// crashed session left in it.
func Open(ctx context.Context, store blobstore.BlobStore, optFns ...Option) (*Table, error) {
	opts := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		fencePrefix:      defaultFencePrefix,
		recoveryMode:     recovery.ModeSegment,
		retryPolicy:      commit.DefaultRetryPolicy,
		versionCacheSize: defaultVersionCacheSize,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	logger := opts.logger.WithTable(opts.rootPrefix)
	root := directory.New(store, opts.rootPrefix, directory.WithLogger(logger.Logger))

	latest, err := version.LoadLatest(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}

	name := opts.fenceName
	if name == "" {
		name = fence.GenerateName(opts.fencePrefix)
	}
	f, err := fence.New(ctx, root, name)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	logger = logger.WithFence(f.Name())

	rc := resource.NewController(opts.resourceConfig)

	strategy := recovery.New(opts.recoveryMode,
		recovery.WithBranch(f.Name()),
		recovery.WithLogger(logger.Logger),
		recovery.WithMetrics(opts.metricsCollector),
		recovery.WithResourceController(rc),
	)
	res, err := strategy.RecoverFrom(ctx, f.Root(), latest)
	logger.LogRecovery(ctx, res.Version.ID(), len(res.Adopted), len(res.Removed), err)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}

	// Segments below the published watermark that neither the recovered
	// version nor a version committed in the fence references are debris.
	committed, err := version.LoadAll(ctx, f.Root())
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	if _, err := strategy.RemoveUselessSegments(ctx, f.Root(), append(committed, res.Version)...); err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}

	t := &Table{
		current: res.Version,
		root:    root,
		fence:   f,
		committer: commit.New(
			commit.WithLogger(logger.Logger),
			commit.WithMetrics(opts.metricsCollector),
			commit.WithResourceController(rc),
		),
		rc:       rc,
		tracker:  cleaner.NewReaderTracker(),
		versions: cache.NewLRU[version.VersionID, *version.Version](opts.versionCacheSize),
		logger:   logger,
		opts:     opts,
	}
	if t.current.IsValid() {
		t.tracker.Acquire(t.current.ID())
	}
	return t, nil
}

// Root returns the global root directory of the table.
func (t *Table) Root() *directory.Directory { return t.root }

// Fence returns the fence of the session.
func (t *Table) Fence() *fence.Fence { return t.fence }

// Version returns the version the session works on. It is invalid for an
// empty table.
func (t *Table) Version() *version.Version {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// LoadVersion loads published version id from the global root. Recently
// loaded versions are served from memory.
func (t *Table) LoadVersion(ctx context.Context, id version.VersionID) (*version.Version, error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	if v, ok := t.versions.Get(id); ok {
		return v, nil
	}
	v, err := version.Load(ctx, t.root, id)
	if err != nil {
		return nil, err
	}
	t.versions.Set(id, v)
	return v, nil
}

// NewBuilder returns a builder deriving the next version from the current
// one.
func (t *Table) NewBuilder() *version.Builder {
	cur := t.Version()
	if !cur.IsValid() {
		return version.NewBuilder(0)
	}
	b := cur.ToBuilder()
	b.SetVersionID(cur.ID() + 1)
	return b
}

// CreateSegmentDirectory creates the directory of segment id in the
// session fence. Add the segment to a builder with
// AddSegmentWithBranch(id, t.Fence().Name()).
func (t *Table) CreateSegmentDirectory(ctx context.Context, id version.SegmentID) (*directory.Directory, error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	return t.fence.CreateSegmentDirectory(ctx, id)
}

// SegmentDirectory resolves the directory of segment id of v.
func (t *Table) SegmentDirectory(v *version.Version, id version.SegmentID) (*directory.Directory, error) {
	return fence.SegmentDirectory(t.root, v, id)
}

// Commit commits the version assembled by b into the session fence. With
// publish it also publishes the version to the global root; losing a race
// for the version id moves b to a fresh id and retries under the retry
// policy. The committed version becomes the session's current version.
func (t *Table) Commit(ctx context.Context, b *version.Builder, publish bool, extraFiles ...commit.ExtraFile) (*version.Version, error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}

	var (
		v   *version.Version
		err error
	)
	if publish {
		v, err = t.committer.PublishWithRetry(ctx, b, t.fence, extraFiles, t.opts.retryPolicy())
	} else {
		v, err = t.committer.Commit(ctx, b.Build(), t.fence, extraFiles)
	}
	t.logger.LogCommit(ctx, b.VersionID(), publish, err)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	prev := t.current
	t.current = v
	t.mu.Unlock()

	t.tracker.Acquire(v.ID())
	if prev.IsValid() {
		t.tracker.Release(prev.ID())
	}
	return v, nil
}

// Reload switches the session to the latest published version if it is
// newer than the current one.
func (t *Table) Reload(ctx context.Context) (*version.Version, error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	latest, err := version.LoadLatest(ctx, t.root)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	prev := t.current
	if latest.ID() > prev.ID() {
		t.current = latest
	}
	cur := t.current
	t.mu.Unlock()

	if cur != prev {
		t.tracker.Acquire(cur.ID())
		if prev.IsValid() {
			t.tracker.Release(prev.ID())
		}
	}
	return cur, nil
}

// Hold pins version id against Vacuum until the returned function is
// called.
func (t *Table) Hold(id version.VersionID) (release func()) {
	t.tracker.Acquire(id)
	var once sync.Once
	return func() {
		once.Do(func() { t.tracker.Release(id) })
	}
}

// RunTask schedules plan with operations from registry. The task's
// resources live in a work directory inside the session fence, so a failed
// task rerun with the same name resumes after its finished operations. The
// work directory is removed once the task succeeded.
func (t *Table) RunTask(ctx context.Context, plan indextask.Plan, registry *indextask.OperationRegistry, optFns ...indextask.TaskContextOption) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	if plan.TaskName == "" {
		return status.InvalidArgsf("task without name")
	}

	workDir := taskWorkDirPrefix + plan.TaskName
	rm := indextask.NewResourceManager()
	if err := rm.Init(ctx, t.fence.Root(), workDir, indextask.ResourceManagerConfig{
		Controller: t.rc,
		Logger:     t.logger.Logger,
	}); err != nil {
		return err
	}

	optFns = append([]indextask.TaskContextOption{indextask.WithBaseVersion(t.Version())}, optFns...)
	tc := indextask.NewTaskContext(t.fence, rm, optFns...)

	engine := indextask.NewEngine(registry,
		indextask.WithController(t.rc),
		indextask.WithEngineLogger(t.logger.Logger),
		indextask.WithEngineMetrics(t.opts.metricsCollector),
	)
	err := engine.ScheduleTask(ctx, plan, tc)
	if err == nil {
		err = t.fence.Root().RemoveDirectory(ctx, workDir)
	}
	t.logger.LogTask(ctx, plan.TaskName, len(plan.Operations), err)
	return err
}

// Vacuum applies the retention policy to the global root. Versions held by
// this session are kept. See WithFenceRemoval for the fences it deletes.
func (t *Table) Vacuum(ctx context.Context) (cleaner.Result, error) {
	if err := t.checkOpen(); err != nil {
		return cleaner.Result{}, err
	}

	optFns := []cleaner.Option{
		cleaner.WithReaderTracker(t.tracker),
		cleaner.WithLogger(t.logger.Logger),
		cleaner.WithMetrics(t.opts.metricsCollector),
		cleaner.WithResourceController(t.rc),
	}
	if t.opts.removeFences {
		protected := append([]string{t.fence.Name()}, t.opts.protectedFences...)
		optFns = append(optFns, cleaner.WithRemoveFences(protected...))
	}

	res, err := cleaner.New(t.opts.retention, optFns...).Vacuum(ctx, t.root)
	for _, id := range res.RemovedVersions {
		t.versions.Remove(id)
	}
	t.logger.LogVacuum(ctx, len(res.RemovedVersions), len(res.RemovedSegments), err)
	return res, err
}

// Close ends the session. The fence and everything committed stay in
// place.
func (t *Table) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.current.IsValid() {
		t.tracker.Release(t.current.ID())
	}
	return nil
}

func (t *Table) checkOpen() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return ErrClosed
	}
	return nil
}
