package exprbridge

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
)

// CELEvaluator is an optional Evaluator backend for workflows that need a
// real (sandboxed, side-effect-free) expression language instead of
// TemplateEvaluator's text/template substitution. Grounded on
// stacklok-toolhive's google/cel-go dependency (used there for its Cedar/CEL
// policy evaluation) — the nearest pack precedent for "a sandboxed
// expression evaluator behind a narrow interface", adopted here rather than
// hand-rolling one, per the "never fall back to stdlib where the ecosystem
// shows a way" rule.
type CELEvaluator struct {
	env *cel.Env
}

// NewCELEvaluator builds a base CEL environment that declares no variables.
// Every variable bound in the Env passed to Eval is declared at Eval time via
// a per-call sub-environment (envFor), since the bound-variable set varies
// per substep group.
func NewCELEvaluator() (*CELEvaluator, error) {
	env, err := cel.NewEnv()
	if err != nil {
		return nil, fmt.Errorf("exprbridge: cel.NewEnv: %w", err)
	}
	return &CELEvaluator{env: env}, nil
}

func (e *CELEvaluator) envFor(vars Env) (*cel.Env, error) {
	opts := make([]cel.EnvOption, 0, len(vars))
	for name := range vars {
		// Bound variables vary per substep group (for_each axes,
		// paired_with values), so every name is declared dynamically typed
		// rather than pre-declared with a fixed CEL type.
		opts = append(opts, cel.Variable(name, cel.DynType))
	}
	return e.env.Extend(opts...)
}

func (e *CELEvaluator) Eval(ctx context.Context, expr string, env Env) (interface{}, error) {
	celEnv, err := e.envFor(env)
	if err != nil {
		return nil, fmt.Errorf("exprbridge: extend cel env: %w", err)
	}
	ast, iss := celEnv.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("exprbridge: compile %q: %w", expr, iss.Err())
	}
	prg, err := celEnv.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("exprbridge: program %q: %w", expr, err)
	}
	out, _, err := prg.ContextEval(ctx, map[string]interface{}(env))
	if err != nil {
		return nil, fmt.Errorf("exprbridge: eval %q: %w", expr, err)
	}
	return out.Value(), nil
}

func (e *CELEvaluator) ExecBody(ctx context.Context, body string, env Env) (Env, error) {
	delta := Env{}
	acc := env
	for _, line := range splitLines(body) {
		line = trimSpace(line)
		if line == "" || line[0] == '#' {
			continue
		}
		name, expr, ok := splitAssignment(line)
		if !ok {
			continue
		}
		val, err := e.Eval(ctx, expr, acc)
		if err != nil {
			return nil, err
		}
		delta[name] = val
		acc = acc.Merge(Env{name: val})
	}
	return delta, nil
}
