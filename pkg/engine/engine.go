// Package engine wires the seven components together into a runnable
// workflow: it walks a parsed workflow.AST, orders its steps, expands each
// step's substeps, and builds the flat dag.Graph of substep Tasks the
// executor consumes. Grounded on the teacher's dagExecutor/orchestration
// split: pkg/engine owns "what order do steps run in", pkg/executor owns
// "run this graph of tasks".
package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sosflow/sosflow/pkg/cache"
	"github.com/sosflow/sosflow/pkg/config"
	"github.com/sosflow/sosflow/pkg/dag"
	"github.com/sosflow/sosflow/pkg/executor"
	"github.com/sosflow/sosflow/pkg/exprbridge"
	"github.com/sosflow/sosflow/pkg/resolver"
	"github.com/sosflow/sosflow/pkg/signature"
	"github.com/sosflow/sosflow/pkg/target"
	"github.com/sosflow/sosflow/pkg/workflow"
)

// Engine plans and runs one parsed workflow.
type Engine struct {
	AST       *workflow.AST
	Cfg       *config.Config
	Store     *signature.Store
	TargetRes *target.Resolver
	Resolver  *resolver.Resolver
	Evaluator exprbridge.Evaluator
	Runner    executor.ActionRunner
	Log       *zap.Logger

	// WorkflowCache is the workflow-scoped level of the
	// Workflow->Step->Substep cache hierarchy. Plan and Run do not read or
	// write it, and shared= variables are not published into it.
	WorkflowCache cache.WorkflowCache

	// Target restricts planning to one named workflow (spec.md §6 "run
	// <script> [workflow]"): only that step and its transitive producers
	// are included. Empty means every forward step in the script runs.
	Target string
}

// New builds an Engine with the standard collaborator set: a
// TemplateEvaluator/TemplateActionRunner pair, a fresh target.Resolver, and
// a resolver.Resolver bound to ast. Callers that need CEL expressions or a
// different ActionRunner can override the fields after construction.
func New(ast *workflow.AST, cfg *config.Config, store *signature.Store, log *zap.Logger) *Engine {
	evaluator := exprbridge.NewTemplateEvaluator()
	return &Engine{
		AST:           ast,
		Cfg:           cfg,
		Store:         store,
		TargetRes:     target.NewResolver(),
		Resolver:      resolver.New(ast),
		Evaluator:     evaluator,
		Runner:        &executor.TemplateActionRunner{Evaluator: evaluator},
		Log:           log,
		WorkflowCache: cache.NewWorkflowCache(),
	}
}

// Run plans the workflow and executes it to completion.
func (e *Engine) Run(ctx context.Context, dryRun bool) (*executor.Result, error) {
	g, tasks, err := e.Plan(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: plan: %w", err)
	}

	exec := executor.New(e.Runner, e.Store)
	exec.Resolver = e.Resolver
	exec.TargetRes = e.TargetRes
	exec.Evaluator = e.Evaluator
	if e.Cfg != nil {
		if e.Cfg.WorkerCount > 0 {
			exec.MaxWorkers = e.Cfg.WorkerCount
		}
		exec.ForceMode = e.Cfg.ForceMode
	}

	execCtx := executor.NewContext(ctx, e.Log)
	return exec.Execute(execCtx, g, tasks, dryRun)
}
