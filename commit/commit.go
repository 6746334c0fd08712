// Package commit turns candidate versions into durable state.
//
// Commit writes a version file into the writer's fence. CommitAndPublish
// additionally publishes it into the table's global root with an exclusive
// create: when two fences race for the same version id exactly one wins and
// the other observes an error satisfying status.IsExist, while its fenced
// copy stays in place.
package commit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hupe1980/indexlib/fence"
	"github.com/hupe1980/indexlib/internal/resource"
	"github.com/hupe1980/indexlib/metrics"
	"github.com/hupe1980/indexlib/status"
	"github.com/hupe1980/indexlib/version"
	"golang.org/x/sync/errgroup"
)

// ExtraFile is an auxiliary file committed alongside a version.
type ExtraFile struct {
	Name    string
	Content []byte
}

// Committer commits versions. It is safe for concurrent use.
type Committer struct {
	logger  *slog.Logger
	metrics metrics.Collector
	now     func() time.Time
	rc      *resource.Controller
}

// Option configures a Committer.
type Option func(*Committer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Committer) {
		c.logger = l
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m metrics.Collector) Option {
	return func(c *Committer) {
		c.metrics = m
	}
}

// WithClock sets the clock used for commit times.
func WithClock(now func() time.Time) Option {
	return func(c *Committer) {
		c.now = now
	}
}

// WithResourceController throttles extra file writes.
func WithResourceController(rc *resource.Controller) Option {
	return func(c *Committer) {
		c.rc = rc
	}
}

// New returns a Committer.
func New(optFns ...Option) *Committer {
	c := &Committer{
		logger:  slog.New(slog.DiscardHandler),
		metrics: metrics.Noop{},
		now:     time.Now,
	}
	for _, fn := range optFns {
		fn(c)
	}
	return c
}

func validate(v *version.Version, f *fence.Fence) error {
	if v == nil || !v.IsValid() {
		return status.InvalidArgsf("commit requires a valid version id")
	}
	if f == nil || f.Name() == "" {
		return status.InvalidArgsf("commit requires a named fence")
	}
	return nil
}

// Commit writes v and extraFiles into the fence root. The returned version
// carries the commit time, the fence name and its own coordinate in its
// version line.
func (c *Committer) Commit(ctx context.Context, v *version.Version, f *fence.Fence, extraFiles []ExtraFile) (*version.Version, error) {
	start := time.Now()
	committed, err := c.commit(ctx, v, f, extraFiles)
	c.metrics.RecordCommit(time.Since(start), err)
	if err != nil {
		return nil, err
	}
	c.logger.InfoContext(ctx, "Version committed",
		"version_id", committed.ID(),
		"fence", f.Name(),
		"segments", committed.SegmentCount(),
		"duration", time.Since(start),
	)
	return committed, nil
}

func (c *Committer) commit(ctx context.Context, v *version.Version, f *fence.Fence, extraFiles []ExtraFile) (*version.Version, error) {
	if err := validate(v, f); err != nil {
		return nil, err
	}

	for _, ef := range extraFiles {
		if ef.Name == "" || version.IsVersionFileName(ef.Name) {
			return nil, status.InvalidArgsf("extra file name %q", ef.Name)
		}
	}

	root := f.Root()

	g, gctx := errgroup.WithContext(ctx)
	for _, ef := range extraFiles {
		g.Go(func() error {
			if err := c.rc.AcquireIO(gctx, len(ef.Content)); err != nil {
				return err
			}
			return root.Store(gctx, ef.Name, ef.Content)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("commit version %d: %w", v.ID(), err)
	}

	committed := v.Stamp(f.Name(), c.now().UnixMicro())
	if err := version.Store(ctx, root, committed); err != nil {
		return nil, fmt.Errorf("commit version %d: %w", v.ID(), err)
	}
	return committed, nil
}

// CommitAndPublish commits v into the fence and then publishes the version
// file into the global root. If the global root already holds a version
// with the same id the error satisfies status.IsExist.
func (c *Committer) CommitAndPublish(ctx context.Context, v *version.Version, f *fence.Fence, extraFiles []ExtraFile) (*version.Version, error) {
	committed, err := c.Commit(ctx, v, f, extraFiles)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	err = version.StoreIfAbsent(ctx, f.GlobalRoot(), committed)
	conflict := status.IsExist(err)
	c.metrics.RecordPublish(time.Since(start), conflict, err)

	switch {
	case conflict:
		c.logger.WarnContext(ctx, "Version already published by another writer",
			"version_id", committed.ID(),
			"fence", f.Name(),
		)
		return nil, fmt.Errorf("publish version %d: %w", committed.ID(), err)
	case err != nil:
		return nil, fmt.Errorf("publish version %d: %w", committed.ID(), err)
	}

	c.logger.InfoContext(ctx, "Version published",
		"version_id", committed.ID(),
		"fence", f.Name(),
	)
	return committed, nil
}

// DefaultRetryPolicy is the policy used by PublishWithRetry when none is given.
func DefaultRetryPolicy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = time.Second
	return backoff.WithMaxRetries(b, 8)
}

// PublishWithRetry publishes the version assembled by b. Each time another
// writer wins the race, the version id is moved past the highest id in the
// global root and the publish is retried under policy. Earlier publishes are
// never rolled back. b holds the final version id on return.
func (c *Committer) PublishWithRetry(ctx context.Context, b *version.Builder, f *fence.Fence, extraFiles []ExtraFile, policy backoff.BackOff) (*version.Version, error) {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}

	var published *version.Version
	op := func() error {
		v, err := c.CommitAndPublish(ctx, b.Build(), f, extraFiles)
		if err == nil {
			published = v
			return nil
		}
		if !status.IsExist(err) {
			return backoff.Permanent(err)
		}

		ids, lerr := version.ListVersions(ctx, f.GlobalRoot())
		if lerr != nil {
			return backoff.Permanent(lerr)
		}
		next := b.VersionID() + 1
		if n := len(ids); n > 0 && ids[n-1] >= next {
			next = ids[n-1] + 1
		}
		c.logger.InfoContext(ctx, "Retrying publish with new version id",
			"version_id", b.VersionID(),
			"next_version_id", next,
			"fence", f.Name(),
		)
		b.SetVersionID(next)
		return err
	}

	if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
		return nil, err
	}
	return published, nil
}
