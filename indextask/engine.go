package indextask

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hupe1980/indexlib/directory"
	"github.com/hupe1980/indexlib/internal/resource"
	"github.com/hupe1980/indexlib/metrics"
	"github.com/hupe1980/indexlib/status"
	"golang.org/x/sync/errgroup"
)

const doneMarkerPrefix = "__op_done__"

// DoneMarkerName returns the name of the file marking operation id as done.
func DoneMarkerName(id OperationID) string {
	return fmt.Sprintf("%s%d", doneMarkerPrefix, id)
}

// doneMarker records which operation of which task finished. A marker only
// counts for an operation of the same task with an equal description.
type doneMarker struct {
	Task      string               `json:"task"`
	Operation OperationDescription `json:"operation"`
}

// Engine schedules plans stage by stage.
type Engine struct {
	registry *OperationRegistry
	rc       *resource.Controller
	memory   int64
	logger   *slog.Logger
	metrics  metrics.Collector
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithController bounds the operations running at once.
func WithController(rc *resource.Controller) EngineOption {
	return func(e *Engine) {
		e.rc = rc
	}
}

// WithOperationMemory reserves bytes of the controller's memory budget for
// each running operation.
func WithOperationMemory(bytes int64) EngineOption {
	return func(e *Engine) {
		e.memory = bytes
	}
}

// WithEngineLogger sets the logger.
func WithEngineLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithEngineMetrics sets the metrics collector.
func WithEngineMetrics(m metrics.Collector) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine returns an engine creating operations from registry.
func NewEngine(registry *OperationRegistry, optFns ...EngineOption) *Engine {
	e := &Engine{
		registry: registry,
		logger:   slog.New(slog.DiscardHandler),
		metrics:  metrics.Noop{},
	}
	for _, fn := range optFns {
		fn(e)
	}
	return e
}

// ScheduleTask runs plan. The operations of a stage run concurrently and the
// next stage starts once all of them succeeded; the first failure aborts the
// remaining stages. A plan without computable stages fails with
// status.ErrInvalidPlan.
//
// When tc has a resource manager, every successful operation leaves a done
// marker in its work directory. A ScheduleTask of the same plan after a
// failure skips the operations that already finished. The markers are
// removed once the whole task succeeded, so a finished task runs in full
// when scheduled again.
func (e *Engine) ScheduleTask(ctx context.Context, plan Plan, tc *TaskContext) error {
	if tc == nil {
		return status.InvalidArgsf("task %s without task context", plan.TaskName)
	}
	if len(plan.Operations) == 0 {
		return nil
	}

	nodes, err := plan.NodeMap()
	if err != nil {
		return err
	}
	stages := ComputeTopoStages(nodes)
	if len(stages) == 0 {
		return fmt.Errorf("%w: task %s has a cyclic or dangling dependency", status.ErrInvalidPlan, plan.TaskName)
	}

	ops := make(map[OperationID]Operation, len(nodes))
	for id, desc := range nodes {
		op, err := e.registry.Create(desc)
		if err != nil {
			return err
		}
		ops[id] = op
	}

	var workDir *directory.Directory
	if rm := tc.ResourceManager(); rm != nil {
		workDir = rm.WorkDir()
	}

	start := time.Now()
	e.logger.InfoContext(ctx, "Scheduling task",
		"task", plan.TaskName,
		"task_type", plan.TaskType,
		"operations", len(nodes),
		"stages", len(stages),
	)

	for i, stage := range stages {
		g, gctx := errgroup.WithContext(ctx)
		for _, id := range stage {
			desc := nodes[id]
			g.Go(func() error {
				return e.run(gctx, plan.TaskName, desc, ops[id], tc, workDir)
			})
		}
		if err := g.Wait(); err != nil {
			e.logger.ErrorContext(ctx, "Task failed",
				"task", plan.TaskName,
				"stage", i,
				"error", err,
			)
			return fmt.Errorf("task %s stage %d: %w", plan.TaskName, i, err)
		}
	}

	if workDir != nil {
		if err := clearDoneMarkers(ctx, workDir); err != nil {
			return fmt.Errorf("task %s: %w", plan.TaskName, err)
		}
	}

	e.logger.InfoContext(ctx, "Task completed",
		"task", plan.TaskName,
		"duration", time.Since(start),
	)
	return nil
}

func (e *Engine) run(ctx context.Context, task string, desc OperationDescription, op Operation, tc *TaskContext, workDir *directory.Directory) error {
	marker := DoneMarkerName(desc.ID)
	if workDir != nil {
		done, err := isDone(ctx, workDir, marker, task, desc)
		if err != nil {
			return err
		}
		if done {
			e.logger.DebugContext(ctx, "Skipping finished operation", "operation_id", desc.ID, "operation_type", desc.Type)
			return nil
		}
	}

	start := time.Now()
	err := e.rc.Run(ctx, e.memory, func(ctx context.Context) error {
		return op.Execute(ctx, tc.forOperation(desc.ID))
	})
	e.metrics.RecordOperation(desc.Type, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("operation %d (%s): %w", desc.ID, desc.Type, err)
	}

	if workDir != nil {
		data, err := json.Marshal(doneMarker{Task: task, Operation: desc})
		if err != nil {
			return err
		}
		if err := workDir.Store(ctx, marker, data); err != nil {
			return err
		}
	}
	return nil
}

// isDone reports whether marker records desc of task as finished. A marker
// left by another task or another operation is removed.
func isDone(ctx context.Context, workDir *directory.Directory, marker, task string, desc OperationDescription) (bool, error) {
	data, ok, err := workDir.LoadMayNonExist(ctx, marker)
	if err != nil || !ok {
		return false, err
	}
	var m doneMarker
	if err := json.Unmarshal(data, &m); err == nil && m.Task == task && m.Operation.Equal(desc) {
		return true, nil
	}
	return false, workDir.RemoveFile(ctx, marker)
}

func clearDoneMarkers(ctx context.Context, workDir *directory.Directory) error {
	names, err := workDir.ListDir(ctx, "")
	if err != nil {
		return err
	}
	for _, name := range names {
		if !strings.HasPrefix(name, doneMarkerPrefix) {
			continue
		}
		if err := workDir.RemoveFile(ctx, name); err != nil {
			return err
		}
	}
	return nil
}
