package indextask

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/hupe1980/indexlib/status"
)

// OperationID identifies an operation within a plan.
type OperationID int64

// OperationDescription is a serializable unit of work.
type OperationDescription struct {
	ID        OperationID       `json:"id"`
	Type      string            `json:"operation_type"`
	DependsOn []OperationID     `json:"depends,omitempty"`
	Params    map[string]string `json:"parameters,omitempty"`
}

// NewOperationDescription returns a description without dependencies.
func NewOperationDescription(id OperationID, opType string) OperationDescription {
	return OperationDescription{ID: id, Type: opType}
}

// AddDepends adds dependencies. Duplicates are ignored.
func (d *OperationDescription) AddDepends(ids ...OperationID) {
	for _, id := range ids {
		if !slices.Contains(d.DependsOn, id) {
			d.DependsOn = append(d.DependsOn, id)
		}
	}
}

// SetParam sets a parameter.
func (d *OperationDescription) SetParam(key, value string) {
	if d.Params == nil {
		d.Params = make(map[string]string)
	}
	d.Params[key] = value
}

// Param returns a parameter.
func (d OperationDescription) Param(key string) (string, bool) {
	v, ok := d.Params[key]
	return v, ok
}

// Equal reports structural equality. Dependency order is irrelevant.
func (d OperationDescription) Equal(other OperationDescription) bool {
	return d.ID == other.ID &&
		d.Type == other.Type &&
		maps.Equal(d.Params, other.Params) &&
		slices.Equal(dependencySet(d.DependsOn), dependencySet(other.DependsOn))
}

func dependencySet(ids []OperationID) []OperationID {
	s := slices.Clone(ids)
	slices.Sort(s)
	return slices.Compact(s)
}

// Plan is the set of operations of one index task.
type Plan struct {
	TaskName   string                 `json:"task_name"`
	TaskType   string                 `json:"task_type"`
	Operations []OperationDescription `json:"operations"`
}

// AddOperation appends op to the plan.
func (p *Plan) AddOperation(op OperationDescription) {
	p.Operations = append(p.Operations, op)
}

// Operation returns the operation with the given id.
func (p Plan) Operation(id OperationID) (OperationDescription, bool) {
	for _, op := range p.Operations {
		if op.ID == id {
			return op, true
		}
	}
	return OperationDescription{}, false
}

// NodeMap indexes the operations by id. Duplicate ids are InvalidPlan.
func (p Plan) NodeMap() (map[OperationID]OperationDescription, error) {
	nodes := make(map[OperationID]OperationDescription, len(p.Operations))
	for _, op := range p.Operations {
		if _, dup := nodes[op.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate operation id %d", status.ErrInvalidPlan, op.ID)
		}
		nodes[op.ID] = op
	}
	return nodes, nil
}

// MarshalPlan encodes p as JSON.
func MarshalPlan(p Plan) ([]byte, error) {
	return json.Marshal(p)
}

// UnmarshalPlan decodes a JSON plan. Malformed input satisfies
// status.IsConfigError.
func UnmarshalPlan(data []byte) (Plan, error) {
	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return Plan{}, status.NewParseError("plan", err)
	}
	for _, op := range p.Operations {
		if op.Type == "" {
			return Plan{}, status.NewParseError("plan", fmt.Errorf("operation %d has no type", op.ID))
		}
	}
	return p, nil
}

// Operation is an executable unit of work.
type Operation interface {
	Execute(ctx context.Context, tc *TaskContext) error
}

// OperationFunc adapts a function to Operation.
type OperationFunc func(ctx context.Context, tc *TaskContext) error

// Execute implements Operation.
func (f OperationFunc) Execute(ctx context.Context, tc *TaskContext) error {
	return f(ctx, tc)
}

// OperationCreator instantiates the operation described by desc.
type OperationCreator func(desc OperationDescription) (Operation, error)

// OperationRegistry maps operation type tags to creators.
// It is safe for concurrent use.
type OperationRegistry struct {
	mu       sync.RWMutex
	creators map[string]OperationCreator
}

// NewOperationRegistry returns an empty registry.
func NewOperationRegistry() *OperationRegistry {
	return &OperationRegistry{creators: make(map[string]OperationCreator)}
}

// Register binds opType to creator, replacing an earlier binding.
func (r *OperationRegistry) Register(opType string, creator OperationCreator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creators[opType] = creator
}

// Create instantiates desc. Unknown types satisfy status.IsInvalidPlan.
func (r *OperationRegistry) Create(desc OperationDescription) (Operation, error) {
	r.mu.RLock()
	creator, ok := r.creators[desc.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown operation type %q", status.ErrInvalidPlan, desc.Type)
	}
	op, err := creator(desc)
	if err != nil {
		return nil, fmt.Errorf("create operation %d (%s): %w", desc.ID, desc.Type, err)
	}
	return op, nil
}
