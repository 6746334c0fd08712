package indextask

import (
	"slices"
)

// node is an arena entry; edges refer to other entries by index.
type node struct {
	id         OperationID
	dependents []int
	inDegree   int
}

// ComputeTopoStages groups the operations of nodes into stages. Every
// operation of a stage depends only on operations of earlier stages.
// Operation ids within a stage are ascending.
//
// The result is empty both for an empty input and for an invalid graph: a
// dependency on an unknown id, a self dependency or a cycle anywhere in the
// graph.
func ComputeTopoStages(nodes map[OperationID]OperationDescription) [][]OperationID {
	if len(nodes) == 0 {
		return nil
	}

	ids := make([]OperationID, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	index := make(map[OperationID]int, len(ids))
	arena := make([]node, len(ids))
	for i, id := range ids {
		index[id] = i
		arena[i].id = id
	}

	for i, id := range ids {
		for _, dep := range dependencySet(nodes[id].DependsOn) {
			j, ok := index[dep]
			if !ok || j == i {
				return nil
			}
			arena[j].dependents = append(arena[j].dependents, i)
			arena[i].inDegree++
		}
	}

	var ready []int
	for i := range arena {
		if arena[i].inDegree == 0 {
			ready = append(ready, i)
		}
	}

	var stages [][]OperationID
	remaining := len(arena)
	for remaining > 0 {
		if len(ready) == 0 {
			return nil
		}
		stage := make([]OperationID, 0, len(ready))
		var next []int
		for _, i := range ready {
			stage = append(stage, arena[i].id)
			for _, d := range arena[i].dependents {
				arena[d].inDegree--
				if arena[d].inDegree == 0 {
					next = append(next, d)
				}
			}
		}
		remaining -= len(ready)
		slices.Sort(stage)
		stages = append(stages, stage)
		ready = next
	}
	return stages
}
