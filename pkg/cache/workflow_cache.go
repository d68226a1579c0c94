package cache

// WorkflowCache is the top-level scope, living for the whole run: shared
// variables published with no enclosing step outlive every step that ran.
type WorkflowCache = Cache

// NewWorkflowCache creates the root cache for a workflow run. Its entries
// never expire on their own; the run's lifetime bounds them.
func NewWorkflowCache() WorkflowCache {
	return New(0, 0, nil)
}
