package cache

import "time"

// SubstepCache is scoped to a single substep group's execution, falling
// back to its step's scope and from there to the workflow scope.
type SubstepCache = Cache

// NewSubstepCache creates a substep-scoped cache chained to parent.
func NewSubstepCache(parent StepCache) SubstepCache {
	return New(5*time.Minute, time.Minute, parent)
}
