package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Collector = Noop{}
	_ Collector = (*Basic)(nil)
	_ Collector = (*Prometheus)(nil)
)

func TestBasic(t *testing.T) {
	b := &Basic{}
	errBoom := errors.New("boom")

	b.RecordCommit(2*time.Millisecond, nil)
	b.RecordCommit(4*time.Millisecond, errBoom)
	b.RecordPublish(time.Millisecond, true, errBoom)
	b.RecordPublish(time.Millisecond, false, nil)
	b.RecordRecovery(2, 3, time.Millisecond, nil)
	b.RecordOperation("merge", time.Millisecond, errBoom)
	b.RecordVacuum(4, 5, time.Millisecond, nil)

	s := b.Stats()
	assert.Equal(t, int64(2), s.CommitCount)
	assert.Equal(t, int64(1), s.CommitErrors)
	assert.Equal(t, (3 * time.Millisecond).Nanoseconds(), s.CommitAvgNanos)
	assert.Equal(t, int64(2), s.PublishCount)
	assert.Equal(t, int64(1), s.PublishConflicts)
	assert.Equal(t, int64(0), s.PublishErrors)
	assert.Equal(t, int64(2), s.RecoveryAdopted)
	assert.Equal(t, int64(3), s.RecoveryRemoved)
	assert.Equal(t, int64(1), s.OperationErrors)
	assert.Equal(t, int64(4), s.VacuumVersions)
	assert.Equal(t, int64(5), s.VacuumSegments)
}

func TestPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewPrometheus(reg)
	require.NoError(t, err)

	p.RecordCommit(time.Millisecond, nil)
	p.RecordPublish(time.Millisecond, true, errors.New("exists"))
	p.RecordRecovery(1, 2, time.Millisecond, nil)
	p.RecordOperation("build", time.Millisecond, nil)
	p.RecordVacuum(3, 4, time.Millisecond, nil)

	families, err := reg.Gather()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				values[mf.GetName()] += c.GetValue()
			}
		}
	}

	assert.Equal(t, 1.0, values["indexlib_commits_total"])
	assert.Equal(t, 1.0, values["indexlib_publishes_total"])
	assert.Equal(t, 3.0, values["indexlib_recovery_segments_total"])
	assert.Equal(t, 1.0, values["indexlib_task_operations_total"])
	assert.Equal(t, 7.0, values["indexlib_vacuum_removed_total"])

	// A second registration on the same registry fails.
	_, err = NewPrometheus(reg)
	assert.Error(t, err)
}
