package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hashicorp/go-multierror"
	"github.com/hupe1980/indexlib/directory"
	"github.com/hupe1980/indexlib/internal/resource"
	"github.com/hupe1980/indexlib/metrics"
	"github.com/hupe1980/indexlib/segment"
	"github.com/hupe1980/indexlib/version"
)

// Mode selects the recovery granularity.
type Mode int

const (
	// ModeSegment adopts finalized lost segments into the version.
	ModeSegment Mode = iota
	// ModeVersion keeps the committed version and deletes all lost segments.
	ModeVersion
)

// String returns the name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeSegment:
		return "segment"
	case ModeVersion:
		return "version"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Result is the outcome of a recovery.
type Result struct {
	// Version is the latest usable version. It is invalid if the directory
	// had no committed version and nothing could be adopted.
	Version *version.Version
	// Adopted lists the segments added to the version.
	Adopted []version.SegmentID
	// Removed lists the segment directories that were deleted.
	Removed []version.SegmentID
}

// Strategy recovers directories.
type Strategy struct {
	mode    Mode
	branch  string
	logger  *slog.Logger
	metrics metrics.Collector
	rc      *resource.Controller
}

// Option configures a Strategy.
type Option func(*Strategy)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Strategy) {
		s.logger = l
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m metrics.Collector) Option {
	return func(s *Strategy) {
		s.metrics = m
	}
}

// WithResourceController throttles deletes.
func WithResourceController(rc *resource.Controller) Option {
	return func(s *Strategy) {
		s.rc = rc
	}
}

// WithBranch records adopted segments under the named fence instead of the
// global root. Use it when the recovered directory is a fence root.
func WithBranch(fenceName string) Option {
	return func(s *Strategy) {
		s.branch = fenceName
	}
}

// New returns a Strategy operating in mode.
func New(mode Mode, optFns ...Option) *Strategy {
	s := &Strategy{
		mode:    mode,
		logger:  slog.New(slog.DiscardHandler),
		metrics: metrics.Noop{},
	}
	for _, fn := range optFns {
		fn(s)
	}
	return s
}

// Mode returns the recovery granularity.
func (s *Strategy) Mode() Mode { return s.mode }

// Recover loads the latest version committed in dir and reconciles dir with
// it.
func (s *Strategy) Recover(ctx context.Context, dir *directory.Directory) (Result, error) {
	base, err := version.LoadLatest(ctx, dir)
	if err != nil {
		return Result{}, fmt.Errorf("recover %s: %w", dir.DebugString(), err)
	}
	return s.RecoverFrom(ctx, dir, base)
}

// RecoverFrom reconciles the segment directories in dir with base. base may
// be invalid, in which case every segment in dir is lost.
func (s *Strategy) RecoverFrom(ctx context.Context, dir *directory.Directory, base *version.Version) (Result, error) {
	start := time.Now()
	res, err := s.recover(ctx, dir, base)
	s.metrics.RecordRecovery(len(res.Adopted), len(res.Removed), time.Since(start), err)
	if err != nil {
		return res, fmt.Errorf("recover %s: %w", dir.DebugString(), err)
	}

	if len(res.Adopted) > 0 || len(res.Removed) > 0 {
		s.logger.InfoContext(ctx, "Recovered directory",
			"dir", dir.DebugString(),
			"mode", s.mode.String(),
			"version_id", res.Version.ID(),
			"adopted", len(res.Adopted),
			"removed", len(res.Removed),
			"duration", time.Since(start),
		)
	}
	return res, nil
}

func (s *Strategy) recover(ctx context.Context, dir *directory.Directory, base *version.Version) (Result, error) {
	if base == nil {
		base = version.Invalid()
	}
	res := Result{Version: base}

	onDisk, err := version.ListSegments(ctx, dir)
	if err != nil {
		return res, err
	}

	normal, merged := lostSegments(base, onDisk)
	if len(normal) == 0 && len(merged) == 0 {
		return res, nil
	}

	var garbage []version.SegmentID
	if s.mode == ModeVersion {
		garbage = append(normal, merged...)
	} else {
		b := base.ToBuilder()
		if !base.IsValid() {
			b.SetVersionID(0)
		}
		for _, lost := range [][]version.SegmentID{normal, merged} {
			adopted, rest, err := s.adopt(ctx, dir, b, lost)
			if err != nil {
				return res, err
			}
			res.Adopted = append(res.Adopted, adopted...)
			garbage = append(garbage, rest...)
		}
		if len(res.Adopted) > 0 {
			res.Version = b.Finalize()
		}
	}

	removed, err := s.remove(ctx, dir, garbage)
	res.Removed = removed
	return res, err
}

// adopt walks lost in increasing order and adds segments to b until the
// first unrecoverable one, which is returned with all later ids as garbage.
func (s *Strategy) adopt(ctx context.Context, dir *directory.Directory, b *version.Builder, lost []version.SegmentID) (adopted, garbage []version.SegmentID, err error) {
	for i, id := range lost {
		info, ok, err := segment.IsRecoverable(ctx, dir.Sub(version.SegmentDirName(id)))
		if err != nil {
			return adopted, nil, err
		}
		if !ok {
			s.logger.DebugContext(ctx, "Stopping at unrecoverable segment",
				"dir", dir.DebugString(),
				"segment_id", id,
			)
			return adopted, lost[i:], nil
		}

		b.AddSegmentWithBranch(id, s.branch)
		b.SetTimestamp(info.Timestamp)
		if !info.Locator.IsEmpty() {
			b.SetLocator(info.Locator)
		}
		adopted = append(adopted, id)
	}
	return adopted, nil, nil
}

func (s *Strategy) remove(ctx context.Context, dir *directory.Directory, ids []version.SegmentID) ([]version.SegmentID, error) {
	var (
		removed []version.SegmentID
		result  *multierror.Error
	)
	for _, id := range ids {
		if err := s.rc.AcquireDelete(ctx); err != nil {
			return removed, multierror.Append(result, err).ErrorOrNil()
		}
		if err := dir.RemoveDirectory(ctx, version.SegmentDirName(id)); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		s.logger.DebugContext(ctx, "Removed segment directory",
			"dir", dir.DebugString(),
			"segment_id", id,
		)
		removed = append(removed, id)
	}
	return removed, result.ErrorOrNil()
}

// lostSegments splits the on-disk ids newer than base into the normal and
// merged ranges, each ascending.
func lostSegments(base *version.Version, onDisk []version.SegmentID) (normal, merged []version.SegmentID) {
	lastNormal, lastMerged := version.InvalidSegmentID, version.InvalidSegmentID
	if base.IsValid() {
		for _, id := range append(base.Segments(), base.LastSegmentID()) {
			switch {
			case id < 0:
			case version.IsMergedSegmentID(id):
				lastMerged = max(lastMerged, id)
			default:
				lastNormal = max(lastNormal, id)
			}
		}
	}

	for _, id := range onDisk {
		switch {
		case version.IsMergedSegmentID(id):
			if id > lastMerged {
				merged = append(merged, id)
			}
		case id > lastNormal:
			normal = append(normal, id)
		}
	}
	return normal, merged
}

// RemoveUselessSegments deletes every segment directory in dir that none of
// keep references. Only segments recorded under the strategy's branch count
// as references, so a segment of another fence with the same id does not
// protect one in dir. It returns the removed ids.
func (s *Strategy) RemoveUselessSegments(ctx context.Context, dir *directory.Directory, keep ...*version.Version) ([]version.SegmentID, error) {
	onDisk, err := version.ListSegments(ctx, dir)
	if err != nil {
		return nil, err
	}

	useless := roaring.New()
	for _, id := range onDisk {
		useless.Add(uint32(id))
	}
	members := roaring.New()
	for _, v := range keep {
		if v == nil {
			continue
		}
		for _, id := range v.Segments() {
			if v.BranchName(id) == s.branch {
				members.Add(uint32(id))
			}
		}
	}
	useless.AndNot(members)

	ids := make([]version.SegmentID, 0, useless.GetCardinality())
	it := useless.Iterator()
	for it.HasNext() {
		ids = append(ids, version.SegmentID(it.Next()))
	}

	removed, err := s.remove(ctx, dir, ids)
	if len(removed) > 0 {
		s.logger.InfoContext(ctx, "Removed useless segments",
			"dir", dir.DebugString(),
			"removed", len(removed),
		)
	}
	return removed, err
}
