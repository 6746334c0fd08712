package cleaner

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/hupe1980/indexlib/directory"
	"github.com/hupe1980/indexlib/fence"
	"github.com/hupe1980/indexlib/internal/resource"
	"github.com/hupe1980/indexlib/metrics"
	"github.com/hupe1980/indexlib/version"
)

// RetentionPolicy defines rules for retaining old versions. The latest
// version is always kept.
type RetentionPolicy struct {
	// KeepVersions is the number of most recent versions to keep.
	KeepVersions int
	// KeepDuration keeps versions committed within this duration.
	KeepDuration time.Duration
}

// Result reports what a vacuum removed.
type Result struct {
	KeptVersions    []version.VersionID
	RemovedVersions []version.VersionID
	RemovedSegments []SegmentRef
	RemovedFences   []string
}

// SegmentRef locates a segment directory. An empty Branch is the global
// root.
type SegmentRef struct {
	Branch string
	ID     version.SegmentID
}

// Cleaner vacuums a table root.
type Cleaner struct {
	policy       RetentionPolicy
	tracker      *ReaderTracker
	removeFences bool
	protected    []string
	logger       *slog.Logger
	metrics      metrics.Collector
	now          func() time.Time
	rc           *resource.Controller
}

// Option configures a Cleaner.
type Option func(*Cleaner)

// WithReaderTracker keeps every version held by the tracker's readers.
func WithReaderTracker(t *ReaderTracker) Option {
	return func(c *Cleaner) {
		c.tracker = t
	}
}

// WithRemoveFences also deletes fences that no kept version references,
// except the protected ones.
func WithRemoveFences(protected ...string) Option {
	return func(c *Cleaner) {
		c.removeFences = true
		c.protected = append(c.protected, protected...)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cleaner) {
		c.logger = l
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m metrics.Collector) Option {
	return func(c *Cleaner) {
		c.metrics = m
	}
}

// WithClock sets the clock used by KeepDuration.
func WithClock(now func() time.Time) Option {
	return func(c *Cleaner) {
		c.now = now
	}
}

// WithResourceController throttles deletes.
func WithResourceController(rc *resource.Controller) Option {
	return func(c *Cleaner) {
		c.rc = rc
	}
}

// New returns a Cleaner applying policy.
func New(policy RetentionPolicy, optFns ...Option) *Cleaner {
	c := &Cleaner{
		policy:  policy,
		logger:  slog.New(slog.DiscardHandler),
		metrics: metrics.Noop{},
		now:     time.Now,
	}
	for _, fn := range optFns {
		fn(c)
	}
	return c
}

// Vacuum removes the versions of root outside the retention set and the
// segments referenced only by them. Deletion is best effort: failures are
// collected and returned after every candidate has been tried.
func (c *Cleaner) Vacuum(ctx context.Context, root *directory.Directory) (Result, error) {
	start := time.Now()
	res, err := c.vacuum(ctx, root)
	c.metrics.RecordVacuum(len(res.RemovedVersions), len(res.RemovedSegments), time.Since(start), err)
	if err != nil {
		return res, fmt.Errorf("vacuum %s: %w", root.DebugString(), err)
	}

	c.logger.InfoContext(ctx, "Vacuum completed",
		"dir", root.DebugString(),
		"kept_versions", len(res.KeptVersions),
		"removed_versions", len(res.RemovedVersions),
		"removed_segments", len(res.RemovedSegments),
		"removed_fences", len(res.RemovedFences),
		"duration", time.Since(start),
	)
	return res, nil
}

func (c *Cleaner) vacuum(ctx context.Context, root *directory.Directory) (Result, error) {
	var res Result

	ids, err := version.ListVersions(ctx, root)
	if err != nil {
		return res, err
	}
	if len(ids) == 0 {
		return res, nil
	}

	versions := make(map[version.VersionID]*version.Version, len(ids))
	for _, id := range ids {
		// Every segment a kept version references must be known before
		// anything is deleted, so one unreadable version aborts the run.
		v, err := version.Load(ctx, root, id)
		if err != nil {
			return res, err
		}
		versions[id] = v
	}

	keep := c.retain(ids, versions)

	referenced := make(map[SegmentRef]struct{})
	candidates := make(map[SegmentRef]*version.Version)
	liveFences := make(map[string]struct{})
	for _, id := range ids {
		v := versions[id]
		_, kept := keep[id]
		if kept {
			res.KeptVersions = append(res.KeptVersions, id)
		}
		if kept && v.FenceName() != "" {
			liveFences[v.FenceName()] = struct{}{}
		}
		for i := range v.SegmentCount() {
			ref := SegmentRef{Branch: v.BranchName(v.SegmentAt(i)), ID: v.SegmentAt(i)}
			if kept {
				referenced[ref] = struct{}{}
				if ref.Branch != "" {
					liveFences[ref.Branch] = struct{}{}
				}
			} else {
				candidates[ref] = v
			}
		}
	}

	var result *multierror.Error

	for _, id := range ids {
		if _, kept := keep[id]; kept {
			continue
		}
		if err := c.rc.AcquireDelete(ctx); err != nil {
			return res, multierror.Append(result, err).ErrorOrNil()
		}
		if err := root.RemoveFile(ctx, version.VersionFileName(id)); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		res.RemovedVersions = append(res.RemovedVersions, id)
	}

	var doomed map[string]struct{}
	if c.removeFences {
		doomed, err = c.unusedFences(ctx, root, liveFences)
		if err != nil {
			return res, multierror.Append(result, err).ErrorOrNil()
		}
	}

	refs := make([]SegmentRef, 0, len(candidates))
	for ref := range candidates {
		if _, ok := referenced[ref]; ok {
			continue
		}
		if _, ok := doomed[ref.Branch]; ok && ref.Branch != "" {
			continue
		}
		refs = append(refs, ref)
	}
	slices.SortFunc(refs, func(a, b SegmentRef) int {
		if a.Branch != b.Branch {
			return strings.Compare(a.Branch, b.Branch)
		}
		return cmp.Compare(a.ID, b.ID)
	})

	for _, ref := range refs {
		dir, err := fence.SegmentDirectory(root, candidates[ref], ref.ID)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if err := c.rc.AcquireDelete(ctx); err != nil {
			return res, multierror.Append(result, err).ErrorOrNil()
		}
		if err := dir.RemoveDirectory(ctx, ""); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		res.RemovedSegments = append(res.RemovedSegments, ref)
	}

	for _, name := range slices.Sorted(maps.Keys(doomed)) {
		if err := c.rc.AcquireDelete(ctx); err != nil {
			return res, multierror.Append(result, err).ErrorOrNil()
		}
		if err := fence.Remove(ctx, root, name); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		res.RemovedFences = append(res.RemovedFences, name)
	}

	return res, result.ErrorOrNil()
}

// retain selects the versions kept by the policy, the readers and the
// latest-version rule. ids is ascending.
func (c *Cleaner) retain(ids []version.VersionID, versions map[version.VersionID]*version.Version) map[version.VersionID]struct{} {
	keep := make(map[version.VersionID]struct{})
	keep[ids[len(ids)-1]] = struct{}{}

	for i := len(ids) - 1; i >= 0 && len(ids)-i <= c.policy.KeepVersions; i-- {
		keep[ids[i]] = struct{}{}
	}

	if c.policy.KeepDuration > 0 {
		cutoff := c.now().Add(-c.policy.KeepDuration).UnixMicro()
		for id, v := range versions {
			if v.CommitTime() >= cutoff {
				keep[id] = struct{}{}
			}
		}
	}

	if c.tracker != nil {
		for _, id := range c.tracker.Versions() {
			keep[id] = struct{}{}
		}
	}
	return keep
}

// unusedFences returns the fences below root that no kept version
// references and that are not protected.
func (c *Cleaner) unusedFences(ctx context.Context, root *directory.Directory, live map[string]struct{}) (map[string]struct{}, error) {
	names, err := fence.List(ctx, root)
	if err != nil {
		return nil, err
	}
	unused := make(map[string]struct{})
	for _, name := range names {
		if _, ok := live[name]; ok || slices.Contains(c.protected, name) {
			continue
		}
		unused[name] = struct{}{}
	}
	return unused, nil
}
