// Package exprbridge is the narrow adapter over the external, sandboxed
// expression evaluator that resolves user expressions appearing inside
// input/output/depends clauses and step bodies (spec.md §4.3/§6). The
// evaluator's own language/semantics are an explicit Non-goal; this package
// only fixes the interface the rest of the engine programs against, grounded
// on the teacher's step.StepContext / runner.Runner shape: small interfaces
// that hide a pluggable backend.
package exprbridge

import "context"

// Env is an immutable variable environment: bound variables visible to an
// expression (for_each axis values, paired_with values, shared variables
// from upstream steps).
type Env map[string]interface{}

// Merge returns a new Env containing e's bindings overridden by other's.
func (e Env) Merge(other Env) Env {
	out := make(Env, len(e)+len(other))
	for k, v := range e {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Evaluator resolves expressions and executes step-body text against an
// Env. Implementations must be re-entrant across concurrent workers (spec.md
// §6: "must be re-entrant across workers").
type Evaluator interface {
	// Eval resolves a single expression (e.g. an output template, a
	// group_by callable) to a value.
	Eval(ctx context.Context, expr string, env Env) (interface{}, error)

	// ExecBody runs a step's post-input body text and returns the
	// environment delta it produced (new/updated bound variables). The
	// executor's TemplateActionRunner merges each block's delta into the Env
	// of the blocks after it and the executor stores the substep's delta in
	// TaskResult.Env; `shared=` names are not propagated to any enclosing
	// scope.
	ExecBody(ctx context.Context, body string, env Env) (Env, error)
}
