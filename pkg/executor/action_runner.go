package executor

import (
	"context"
	"fmt"

	"github.com/sosflow/sosflow/pkg/exprbridge"
)

// TemplateActionRunner runs a task's action blocks through an
// exprbridge.Evaluator, one block at a time, threading each block's
// environment delta into the next (spec.md §4.3: "statements in a step's
// body execute in order, sharing one environment").
type TemplateActionRunner struct {
	Evaluator exprbridge.Evaluator
}

func (r *TemplateActionRunner) RunActions(ctx context.Context, t *Task) (map[string]interface{}, error) {
	env := t.Group.BoundVars
	if env == nil {
		env = exprbridge.Env{}
	}
	delta := exprbridge.Env{}

	for i, action := range t.Actions {
		out, err := r.Evaluator.ExecBody(ctx, action.Text, env)
		if err != nil {
			if action.AllowError {
				continue
			}
			return delta, fmt.Errorf("executor: action %d of step %q failed: %w", i, t.StepName, err)
		}
		env = env.Merge(out)
		delta = delta.Merge(out)
	}
	return delta, nil
}
