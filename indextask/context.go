package indextask

import (
	"context"
	"fmt"
	"maps"

	"github.com/google/uuid"
	"github.com/hupe1980/indexlib/directory"
	"github.com/hupe1980/indexlib/fence"
	"github.com/hupe1980/indexlib/status"
	"github.com/hupe1980/indexlib/version"
)

// TaskContext is shared by all operations of one scheduled task.
// Operations only read it; they write through the resource manager or
// their own operation directory.
type TaskContext struct {
	fence     *fence.Fence
	resources *ResourceManager
	base      *version.Version
	epochID   string
	params    map[string]string
	opID      OperationID
}

// TaskContextOption configures a TaskContext.
type TaskContextOption func(*TaskContext)

// WithBaseVersion sets the version the task builds on.
func WithBaseVersion(v *version.Version) TaskContextOption {
	return func(tc *TaskContext) {
		tc.base = v
	}
}

// WithEpochID sets the epoch of the task. It defaults to a random id.
func WithEpochID(id string) TaskContextOption {
	return func(tc *TaskContext) {
		tc.epochID = id
	}
}

// WithParams sets read-only task parameters.
func WithParams(params map[string]string) TaskContextOption {
	return func(tc *TaskContext) {
		tc.params = maps.Clone(params)
	}
}

// NewTaskContext returns a context for a task writing into f.
func NewTaskContext(f *fence.Fence, rm *ResourceManager, optFns ...TaskContextOption) *TaskContext {
	tc := &TaskContext{
		fence:     f,
		resources: rm,
		base:      version.Invalid(),
		epochID:   uuid.NewString(),
		opID:      -1,
	}
	for _, fn := range optFns {
		fn(tc)
	}
	return tc
}

// forOperation returns a copy bound to operation id.
func (tc *TaskContext) forOperation(id OperationID) *TaskContext {
	c := *tc
	c.opID = id
	return &c
}

// Fence returns the fence of the writer running the task.
func (tc *TaskContext) Fence() *fence.Fence { return tc.fence }

// FenceRoot returns the private directory of the fence.
func (tc *TaskContext) FenceRoot() *directory.Directory { return tc.fence.Root() }

// ResourceManager returns the resource manager of the task.
func (tc *TaskContext) ResourceManager() *ResourceManager { return tc.resources }

// BaseVersion returns the version the task builds on.
func (tc *TaskContext) BaseVersion() *version.Version { return tc.base }

// EpochID returns the epoch of the task.
func (tc *TaskContext) EpochID() string { return tc.epochID }

// OperationID returns the id of the running operation, or -1 outside of
// one.
func (tc *TaskContext) OperationID() OperationID { return tc.opID }

// Param returns a task parameter.
func (tc *TaskContext) Param(key string) (string, bool) {
	v, ok := tc.params[key]
	return v, ok
}

// Params returns a copy of the task parameters.
func (tc *TaskContext) Params() map[string]string { return maps.Clone(tc.params) }

// OperationDirectory creates and returns the private directory of the
// running operation inside the fence.
func (tc *TaskContext) OperationDirectory(ctx context.Context) (*directory.Directory, error) {
	if tc.opID < 0 {
		return nil, status.InvalidArgsf("operation directory requested outside of an operation")
	}
	return tc.FenceRoot().MakeDirectory(ctx, fmt.Sprintf("op_%s_%d", tc.epochID, tc.opID))
}
