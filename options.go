package indexlib

import (
	"github.com/cenkalti/backoff/v4"
	"github.com/hupe1980/indexlib/cleaner"
	"github.com/hupe1980/indexlib/internal/resource"
	"github.com/hupe1980/indexlib/recovery"
)

// ResourceConfig bounds the workers, memory and IO of a table.
type ResourceConfig = resource.Config

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	rootPrefix       string
	fenceName        string
	fencePrefix      string
	recoveryMode     recovery.Mode
	retention        cleaner.RetentionPolicy
	removeFences     bool
	protectedFences  []string
	resourceConfig   ResourceConfig
	retryPolicy      func() backoff.BackOff
	versionCacheSize int
}

// Option configures Open.
type Option func(*options)

// WithLogger sets the logger. Defaults to NoopLogger.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector sets the metrics collector.
func WithMetricsCollector(m MetricsCollector) Option {
	return func(o *options) {
		if m == nil {
			m = NoopMetricsCollector{}
		}
		o.metricsCollector = m
	}
}

// WithRoot places the table below prefix in the blob store.
func WithRoot(prefix string) Option {
	return func(o *options) {
		o.rootPrefix = prefix
	}
}

// WithFenceName reopens the fence called name instead of creating a fresh
// one. Segments left in it by a crashed session are recovered.
func WithFenceName(name string) Option {
	return func(o *options) {
		o.fenceName = name
	}
}

// WithFencePrefix sets the prefix of generated fence names.
func WithFencePrefix(prefix string) Option {
	return func(o *options) {
		o.fencePrefix = prefix
	}
}

// WithRecoveryMode sets the recovery granularity used on open.
// Defaults to recovery.ModeSegment.
func WithRecoveryMode(m recovery.Mode) Option {
	return func(o *options) {
		o.recoveryMode = m
	}
}

// WithRetentionPolicy sets the policy applied by Vacuum.
func WithRetentionPolicy(p cleaner.RetentionPolicy) Option {
	return func(o *options) {
		o.retention = p
	}
}

// WithFenceRemoval lets Vacuum delete fences that no kept version
// references. The table's own fence and the protected fences are never
// removed.
//
// Vacuum cannot tell an abandoned fence from the fence of another live
// writer that has not published yet: such a fence is deleted together with
// the segments it is building. Name every other live writer in protect, or
// only enable fence removal while no other writer is open.
func WithFenceRemoval(protect ...string) Option {
	return func(o *options) {
		o.removeFences = true
		o.protectedFences = append(o.protectedFences, protect...)
	}
}

// WithResourceConfig bounds workers, memory and IO of the table.
func WithResourceConfig(cfg ResourceConfig) Option {
	return func(o *options) {
		o.resourceConfig = cfg
	}
}

// WithRetryPolicy sets the policy of publish retries after losing a race
// for a version id. newPolicy is called once per commit.
func WithRetryPolicy(newPolicy func() backoff.BackOff) Option {
	return func(o *options) {
		o.retryPolicy = newPolicy
	}
}

// WithVersionCacheSize sets how many loaded versions LoadVersion keeps in
// memory. Zero disables the cache. Defaults to 16.
func WithVersionCacheSize(n int) Option {
	return func(o *options) {
		o.versionCacheSize = n
	}
}
