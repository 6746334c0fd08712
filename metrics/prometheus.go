package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "indexlib"

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Prometheus is a Collector exporting to Prometheus.
type Prometheus struct {
	commits         *prometheus.CounterVec
	commitLatency   prometheus.Histogram
	publishes       *prometheus.CounterVec
	recoveries      *prometheus.CounterVec
	recoveredSegs   *prometheus.CounterVec
	operations      *prometheus.CounterVec
	operationLat    *prometheus.HistogramVec
	vacuums         *prometheus.CounterVec
	vacuumedObjects *prometheus.CounterVec
}

// NewPrometheus creates the collectors and registers them with reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commits_total",
			Help:      "Fence-local version commits by result.",
		}, []string{"result"}),
		commitLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "commit_duration_seconds",
			Help:      "Latency of fence-local version commits.",
			Buckets:   prometheus.DefBuckets,
		}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publishes_total",
			Help:      "Version publish attempts by result.",
		}, []string{"result"}),
		recoveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recoveries_total",
			Help:      "Recovery runs by result.",
		}, []string{"result"}),
		recoveredSegs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recovery_segments_total",
			Help:      "Segments adopted or removed by recovery.",
		}, []string{"action"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_operations_total",
			Help:      "Index task operations by type and result.",
		}, []string{"type", "result"}),
		operationLat: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_operation_duration_seconds",
			Help:      "Latency of index task operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
		vacuums: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vacuums_total",
			Help:      "Version garbage collection runs by result.",
		}, []string{"result"}),
		vacuumedObjects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vacuum_removed_total",
			Help:      "Versions and segments removed by garbage collection.",
		}, []string{"kind"}),
	}

	for _, c := range []prometheus.Collector{
		p.commits, p.commitLatency, p.publishes, p.recoveries, p.recoveredSegs,
		p.operations, p.operationLat, p.vacuums, p.vacuumedObjects,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// RecordCommit implements Collector.
func (p *Prometheus) RecordCommit(duration time.Duration, err error) {
	p.commits.WithLabelValues(result(err)).Inc()
	p.commitLatency.Observe(duration.Seconds())
}

// RecordPublish implements Collector.
func (p *Prometheus) RecordPublish(_ time.Duration, conflict bool, err error) {
	r := result(err)
	if conflict {
		r = "conflict"
	}
	p.publishes.WithLabelValues(r).Inc()
}

// RecordRecovery implements Collector.
func (p *Prometheus) RecordRecovery(adopted, removed int, _ time.Duration, err error) {
	p.recoveries.WithLabelValues(result(err)).Inc()
	p.recoveredSegs.WithLabelValues("adopted").Add(float64(adopted))
	p.recoveredSegs.WithLabelValues("removed").Add(float64(removed))
}

// RecordOperation implements Collector.
func (p *Prometheus) RecordOperation(opType string, duration time.Duration, err error) {
	p.operations.WithLabelValues(opType, result(err)).Inc()
	p.operationLat.WithLabelValues(opType).Observe(duration.Seconds())
}

// RecordVacuum implements Collector.
func (p *Prometheus) RecordVacuum(versionsRemoved, segmentsRemoved int, _ time.Duration, err error) {
	p.vacuums.WithLabelValues(result(err)).Inc()
	p.vacuumedObjects.WithLabelValues("version").Add(float64(versionsRemoved))
	p.vacuumedObjects.WithLabelValues("segment").Add(float64(segmentsRemoved))
}
