// Package substep turns a step's input clause plus its grouping/pairing/
// iteration options into an ordered list of substep Groups (spec.md §4.3).
// Grounded on plan.ExecutionFragment's builder shape (ordered construction,
// dense indices) from the teacher, generalized from "build a sub-graph of
// nodes" to "build an ordered list of groups".
package substep

import (
	"github.com/sosflow/sosflow/pkg/exprbridge"
	"github.com/sosflow/sosflow/pkg/target"
)

// Group is one execution unit within a step: an ordered list of input
// targets, its bound variables, and one source label per input.
type Group struct {
	Index     int
	Inputs    []target.Target
	BoundVars exprbridge.Env
	Sources   []string
	// InputAttrs holds the per-target attributes paired_with/group_with
	// attach to each input (e.g. "_name" -> value), one entry per Inputs
	// index, parallel to Inputs.
	InputAttrs []exprbridge.Env
}

// Result is the full expansion of a step's input clause.
type Result struct {
	Groups     []Group
	Concurrent bool
}

func cloneEnv(e exprbridge.Env) exprbridge.Env {
	out := make(exprbridge.Env, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}
