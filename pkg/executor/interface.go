package executor

import (
	"context"

	"go.uber.org/zap"
)

// ExecuteContext is the ambient context threaded through a run, grounded on
// engine.EngineExecuteContext generalized from "host-scoped step context"
// to "run-scoped cancellation + logging".
type ExecuteContext interface {
	GoContext() context.Context
	Logger() *zap.Logger
}

// ActionRunner executes one step's action blocks against a bound
// environment and reports the environment delta (spec.md §4.3 body
// execution semantics: `var = expr` lines and `sos_step`-style shell
// bodies, here represented opaquely via the exprbridge.Evaluator the
// caller wires in).
type ActionRunner interface {
	RunActions(ctx context.Context, t *Task) (envDelta map[string]interface{}, err error)
}

type baseContext struct {
	ctx context.Context
	log *zap.Logger
}

// NewContext builds an ExecuteContext from a context.Context and logger.
func NewContext(ctx context.Context, log *zap.Logger) ExecuteContext {
	if log == nil {
		log = zap.NewNop()
	}
	return &baseContext{ctx: ctx, log: log}
}

func (b *baseContext) GoContext() context.Context { return b.ctx }
func (b *baseContext) Logger() *zap.Logger         { return b.log }
