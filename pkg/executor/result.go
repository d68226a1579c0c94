package executor

import "time"

// Result is the full outcome of one Execute call across every task in the
// graph, analogous to plan.GraphExecutionResult generalized from "node
// results" to "task results".
type Result struct {
	Name        string
	TaskResults map[string]*TaskResult // keyed by dag.NodeID as string, stable across json round-trips
	Status      Status
	StartTime   time.Time
	EndTime     time.Time
}

func newResult(name string) *Result {
	return &Result{
		Name:        name,
		TaskResults: make(map[string]*TaskResult),
		Status:      StatusPending,
		StartTime:   time.Now(),
	}
}

// OrderedOutputs returns the TaskResults of stepName's successful tasks,
// ordered by GroupIndex regardless of the order tasks actually finished in (spec.md §4.3 "step_output collects in declaration
// order, not completion order").
func (r *Result) OrderedOutputs(stepName string) []TaskResult {
	var out []TaskResult
	for _, tr := range r.TaskResults {
		if tr.StepName == stepName && tr.Status == StatusSuccess {
			out = append(out, *tr)
		}
	}
	for i := 1; i < len(out); i++ {
		j := i
		for j > 0 && out[j-1].GroupIndex > out[j].GroupIndex {
			out[j-1], out[j] = out[j], out[j-1]
			j--
		}
	}
	return out
}
