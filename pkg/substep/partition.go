package substep

import (
	"fmt"

	"github.com/sosflow/sosflow/pkg/target"
	"github.com/sosflow/sosflow/pkg/workflow"
)

// partition splits inputs/sources into base groups per the group_by scheme,
// before paired_with/group_with/for_each/pattern are applied. Indices
// assigned here are provisional; Expand renumbers densely after for_each
// expansion.
func partition(inputs []target.Target, sources []string, spec workflow.GroupBySpec) ([][]int, error) {
	n := len(inputs)

	switch spec.Kind {
	case workflow.GroupByAll:
		if n == 0 {
			// "An empty list with no group_by yields one group with empty
			// inputs" — GroupByAll is also the implicit default, so we
			// can't distinguish "no group_by given" from "group_by='all'
			// given" at this layer; callers pass an explicit flag for the
			// empty+explicit case (see Expand).
			return [][]int{{}}, nil
		}
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return [][]int{idx}, nil

	case workflow.GroupBySingle:
		return fixedChunks(n, 1), nil

	case workflow.GroupByFixed:
		if spec.N <= 0 {
			return nil, fmt.Errorf("substep: group_by fixed size must be > 0, got %d", spec.N)
		}
		return fixedChunks(n, spec.N), nil

	case workflow.GroupByPairwise:
		// Sliding-window pairs (i, i+1); a lone input (n == 1) forms one
		// group of one. See DESIGN.md for this Open Question resolution.
		if n == 0 {
			return nil, nil
		}
		if n == 1 {
			return [][]int{{0}}, nil
		}
		groups := make([][]int, 0, n-1)
		for i := 0; i < n-1; i++ {
			groups = append(groups, []int{i, i + 1})
		}
		return groups, nil

	case workflow.GroupByCombinations:
		// All 2-combinations of the input indices.
		if n < 2 {
			if n == 0 {
				return nil, nil
			}
			return [][]int{{0}}, nil
		}
		var groups [][]int
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				groups = append(groups, []int{i, j})
			}
		}
		return groups, nil

	case workflow.GroupByCallable:
		if spec.Fn == nil {
			return nil, fmt.Errorf("substep: group_by callable has no function")
		}
		return spec.Fn(n), nil

	default:
		return nil, fmt.Errorf("substep: unknown group_by kind %v", spec.Kind)
	}
}

// fixedChunks partitions [0,n) into chunks of size k, with a smaller final
// chunk for any remainder, per spec.md §4.3 ("leftover remainders at the
// tail form a smaller final group").
func fixedChunks(n, k int) [][]int {
	if n == 0 {
		return nil
	}
	var groups [][]int
	for start := 0; start < n; start += k {
		end := start + k
		if end > n {
			end = n
		}
		idx := make([]int, end-start)
		for i := range idx {
			idx[i] = start + i
		}
		groups = append(groups, idx)
	}
	return groups
}
