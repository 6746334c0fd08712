package indextask

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func nodeMap(ops ...OperationDescription) map[OperationID]OperationDescription {
	m := make(map[OperationID]OperationDescription, len(ops))
	for _, op := range ops {
		m[op.ID] = op
	}
	return m
}

func op(id OperationID, deps ...OperationID) OperationDescription {
	d := NewOperationDescription(id, "noop")
	d.AddDepends(deps...)
	return d
}

func TestComputeTopoStages(t *testing.T) {
	tests := []struct {
		name string
		ops  []OperationDescription
		want [][]OperationID
	}{
		{
			name: "diamond",
			ops:  []OperationDescription{op(0), op(1, 0), op(2, 0), op(3, 1, 2)},
			want: [][]OperationID{{0}, {1, 2}, {3}},
		},
		{
			name: "disconnected components share stages",
			ops:  []OperationDescription{op(0), op(1, 0), op(10), op(11, 10), op(12, 11)},
			want: [][]OperationID{{0, 10}, {1, 11}, {12}},
		},
		{
			name: "independent",
			ops:  []OperationDescription{op(5), op(3), op(4)},
			want: [][]OperationID{{3, 4, 5}},
		},
		{
			name: "duplicate dependency",
			ops:  []OperationDescription{op(0), {ID: 1, Type: "noop", DependsOn: []OperationID{0, 0}}},
			want: [][]OperationID{{0}, {1}},
		},
		{
			name: "cycle",
			ops:  []OperationDescription{op(0, 2), op(1, 0), op(2, 1)},
		},
		{
			name: "disconnected cycle",
			ops:  []OperationDescription{op(0), op(1, 0), op(2, 3), op(3, 2)},
		},
		{
			name: "self dependency",
			ops:  []OperationDescription{op(0), op(1, 1)},
		},
		{
			name: "missing dependency",
			ops:  []OperationDescription{op(0), op(1, 7)},
		},
		{
			name: "empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTopoStages(nodeMap(tt.ops...))
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
