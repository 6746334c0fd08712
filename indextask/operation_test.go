package indextask

import (
	"testing"

	"github.com/hupe1980/indexlib/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationDescription_Equal(t *testing.T) {
	a := NewOperationDescription(3, "merge")
	a.AddDepends(1, 2, 1)
	a.SetParam("level", "2")

	b := NewOperationDescription(3, "merge")
	b.AddDepends(2, 1)
	b.SetParam("level", "2")

	assert.Equal(t, []OperationID{1, 2}, a.DependsOn)
	assert.True(t, a.Equal(b))

	b.SetParam("level", "3")
	assert.False(t, a.Equal(b))

	c := NewOperationDescription(3, "merge")
	c.AddDepends(1)
	c.SetParam("level", "2")
	assert.False(t, a.Equal(c))

	v, ok := a.Param("level")
	assert.True(t, ok)
	assert.Equal(t, "2", v)
}

func TestPlan_Codec(t *testing.T) {
	plan := Plan{TaskName: "optimize", TaskType: "merge"}
	plan.AddOperation(op(0))
	plan.AddOperation(op(1, 0))

	data, err := MarshalPlan(plan)
	require.NoError(t, err)
	decoded, err := UnmarshalPlan(data)
	require.NoError(t, err)

	assert.Equal(t, plan.TaskName, decoded.TaskName)
	require.Len(t, decoded.Operations, 2)
	for i := range plan.Operations {
		assert.True(t, plan.Operations[i].Equal(decoded.Operations[i]))
	}

	_, err = UnmarshalPlan([]byte(`{"operations": [{"id": 1, "parameters": {"a": 1}}]}`))
	assert.True(t, status.IsConfigError(err))

	_, err = UnmarshalPlan([]byte(`{"operations": [{"id": 1}]}`))
	assert.True(t, status.IsConfigError(err))
}

func TestPlan_NodeMap(t *testing.T) {
	plan := Plan{Operations: []OperationDescription{op(0), op(0)}}
	_, err := plan.NodeMap()
	assert.True(t, status.IsInvalidPlan(err))

	d, ok := Plan{Operations: []OperationDescription{op(4)}}.Operation(4)
	assert.True(t, ok)
	assert.Equal(t, OperationID(4), d.ID)
}

func TestOperationRegistry(t *testing.T) {
	r := NewOperationRegistry()
	r.Register("noop", func(OperationDescription) (Operation, error) {
		return OperationFunc(nil), nil
	})

	_, err := r.Create(op(0))
	require.NoError(t, err)

	_, err = r.Create(NewOperationDescription(1, "unknown"))
	assert.True(t, status.IsInvalidPlan(err))
}
