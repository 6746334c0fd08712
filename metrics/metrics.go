// Package metrics defines the operational metrics hooks of indexlib.
//
// Components accept a Collector; the default is Noop. Basic keeps atomic
// counters in memory and Prometheus exports to a prometheus.Registerer.
package metrics

import (
	"sync/atomic"
	"time"
)

// Collector receives operational events.
type Collector interface {
	// RecordCommit is called after each fence-local version commit.
	RecordCommit(duration time.Duration, err error)

	// RecordPublish is called after each attempt to publish a version into
	// the global root. conflict is true when another writer won the race.
	RecordPublish(duration time.Duration, conflict bool, err error)

	// RecordRecovery is called after each recovery run.
	RecordRecovery(adopted, removed int, duration time.Duration, err error)

	// RecordOperation is called after each index task operation.
	RecordOperation(opType string, duration time.Duration, err error)

	// RecordVacuum is called after each version garbage collection.
	RecordVacuum(versionsRemoved, segmentsRemoved int, duration time.Duration, err error)
}

// Noop is a Collector that discards everything.
type Noop struct{}

func (Noop) RecordCommit(time.Duration, error)             {}
func (Noop) RecordPublish(time.Duration, bool, error)      {}
func (Noop) RecordRecovery(int, int, time.Duration, error) {}
func (Noop) RecordOperation(string, time.Duration, error)  {}
func (Noop) RecordVacuum(int, int, time.Duration, error)   {}

// Basic provides simple in-memory metrics collection.
type Basic struct {
	CommitCount      atomic.Int64
	CommitErrors     atomic.Int64
	CommitTotalNanos atomic.Int64
	PublishCount     atomic.Int64
	PublishConflicts atomic.Int64
	PublishErrors    atomic.Int64
	RecoveryCount    atomic.Int64
	RecoveryAdopted  atomic.Int64
	RecoveryRemoved  atomic.Int64
	RecoveryErrors   atomic.Int64
	OperationCount   atomic.Int64
	OperationErrors  atomic.Int64
	OperationNanos   atomic.Int64
	VacuumCount      atomic.Int64
	VacuumVersions   atomic.Int64
	VacuumSegments   atomic.Int64
	VacuumErrors     atomic.Int64
}

// RecordCommit implements Collector.
func (b *Basic) RecordCommit(duration time.Duration, err error) {
	b.CommitCount.Add(1)
	b.CommitTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.CommitErrors.Add(1)
	}
}

// RecordPublish implements Collector.
func (b *Basic) RecordPublish(_ time.Duration, conflict bool, err error) {
	b.PublishCount.Add(1)
	switch {
	case conflict:
		b.PublishConflicts.Add(1)
	case err != nil:
		b.PublishErrors.Add(1)
	}
}

// RecordRecovery implements Collector.
func (b *Basic) RecordRecovery(adopted, removed int, _ time.Duration, err error) {
	b.RecoveryCount.Add(1)
	b.RecoveryAdopted.Add(int64(adopted))
	b.RecoveryRemoved.Add(int64(removed))
	if err != nil {
		b.RecoveryErrors.Add(1)
	}
}

// RecordOperation implements Collector.
func (b *Basic) RecordOperation(_ string, duration time.Duration, err error) {
	b.OperationCount.Add(1)
	b.OperationNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.OperationErrors.Add(1)
	}
}

// RecordVacuum implements Collector.
func (b *Basic) RecordVacuum(versionsRemoved, segmentsRemoved int, _ time.Duration, err error) {
	b.VacuumCount.Add(1)
	b.VacuumVersions.Add(int64(versionsRemoved))
	b.VacuumSegments.Add(int64(segmentsRemoved))
	if err != nil {
		b.VacuumErrors.Add(1)
	}
}

// Stats returns a snapshot of the counters.
func (b *Basic) Stats() BasicStats {
	s := BasicStats{
		CommitCount:      b.CommitCount.Load(),
		CommitErrors:     b.CommitErrors.Load(),
		PublishCount:     b.PublishCount.Load(),
		PublishConflicts: b.PublishConflicts.Load(),
		PublishErrors:    b.PublishErrors.Load(),
		RecoveryCount:    b.RecoveryCount.Load(),
		RecoveryAdopted:  b.RecoveryAdopted.Load(),
		RecoveryRemoved:  b.RecoveryRemoved.Load(),
		RecoveryErrors:   b.RecoveryErrors.Load(),
		OperationCount:   b.OperationCount.Load(),
		OperationErrors:  b.OperationErrors.Load(),
		VacuumCount:      b.VacuumCount.Load(),
		VacuumVersions:   b.VacuumVersions.Load(),
		VacuumSegments:   b.VacuumSegments.Load(),
		VacuumErrors:     b.VacuumErrors.Load(),
	}
	if s.CommitCount > 0 {
		s.CommitAvgNanos = b.CommitTotalNanos.Load() / s.CommitCount
	}
	if s.OperationCount > 0 {
		s.OperationAvgNanos = b.OperationNanos.Load() / s.OperationCount
	}
	return s
}

// BasicStats is a snapshot of Basic.
type BasicStats struct {
	CommitCount       int64
	CommitErrors      int64
	CommitAvgNanos    int64
	PublishCount      int64
	PublishConflicts  int64
	PublishErrors     int64
	RecoveryCount     int64
	RecoveryAdopted   int64
	RecoveryRemoved   int64
	RecoveryErrors    int64
	OperationCount    int64
	OperationErrors   int64
	OperationAvgNanos int64
	VacuumCount       int64
	VacuumVersions    int64
	VacuumSegments    int64
	VacuumErrors      int64
}
