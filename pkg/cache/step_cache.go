package cache

import "time"

// StepCache is scoped to one step's lifetime (all of its substep groups),
// falling back to the workflow scope on a miss.
type StepCache = Cache

// NewStepCache creates a step-scoped cache chained to parent.
func NewStepCache(parent WorkflowCache) StepCache {
	return New(30*time.Minute, 5*time.Minute, parent)
}
