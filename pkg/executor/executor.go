// Package executor is the scheduler loop of spec.md §4.5/§4.7: it walks a
// dag.Graph of substep Tasks, consults the signature store before
// dispatching each one, runs ready tasks under a bounded worker pool, and
// cascades skips on failure. Generalized from engine.dagExecutor.Execute
// (host-parallel node dispatch) to substep-parallel task dispatch: "host"
// becomes "substep group", "step.Step" becomes "Task.Actions run through an
// ActionRunner".
package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sosflow/sosflow/pkg/dag"
	"github.com/sosflow/sosflow/pkg/exprbridge"
	"github.com/sosflow/sosflow/pkg/resolver"
	"github.com/sosflow/sosflow/pkg/signature"
	"github.com/sosflow/sosflow/pkg/target"
)

// Executor runs a dag.Graph of Tasks to completion.
type Executor struct {
	MaxWorkers int
	Store      *signature.Store
	Resolver   *resolver.Resolver
	TargetRes  *target.Resolver
	Runner     ActionRunner
	Evaluator  exprbridge.Evaluator
	ForceMode  signature.ForceMode
}

// New builds an Executor with sane defaults (grounded on
// engine.NewExecutor's maxWorkers default).
func New(runner ActionRunner, store *signature.Store) *Executor {
	return &Executor{
		MaxWorkers: 10,
		Store:      store,
		Runner:     runner,
		ForceMode:  signature.ForceDefault,
	}
}

// Execute runs every task reachable from g's roots in dependency order,
// returning once the graph is exhausted or every remaining task has been
// skipped due to a failed ancestor.
func (e *Executor) Execute(ctx ExecuteContext, g *dag.Graph, tasks map[dag.NodeID]*Task, dryRun bool) (*Result, error) {
	log := ctx.Logger()
	result := newResult("run")

	ids := g.NodeIDs()
	for _, id := range ids {
		t, ok := tasks[id]
		if !ok {
			return nil, fmt.Errorf("executor: no task registered for node %q", id)
		}
		result.TaskResults[string(id)] = newTaskResult(t)
	}

	if dryRun {
		e.dryRun(log, ids, tasks, result)
		result.EndTime = time.Now()
		result.Status = StatusSuccess
		return result, nil
	}

	if err := g.Validate(); err != nil {
		result.Status = StatusFailed
		result.EndTime = time.Now()
		return result, fmt.Errorf("executor: graph validation failed: %w", err)
	}

	inDegree := make(map[dag.NodeID]int, len(ids))
	for _, id := range ids {
		inDegree[id] = len(g.Node(id).Dependencies)
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, e.MaxWorkers)
	failedNodes := make(map[dag.NodeID]bool)
	processed := 0

	queue := make([]dag.NodeID, 0, len(ids))
	for _, id := range ids {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	if len(queue) == 0 && len(ids) > 0 {
		result.Status = StatusFailed
		result.EndTime = time.Now()
		return result, fmt.Errorf("executor: no ready task in a non-empty graph, possibly a cycle")
	}

	for {
		mu.Lock()
		if len(queue) == 0 && processed == len(ids) {
			mu.Unlock()
			break
		}
		if len(queue) == 0 {
			mu.Unlock()
			time.Sleep(10 * time.Millisecond)
			continue
		}

		id := queue[0]
		queue = queue[1:]

		skip := false
		for _, d := range g.Node(id).Dependencies {
			if failedNodes[d.On] {
				skip = true
				break
			}
		}
		if skip {
			tr := result.TaskResults[string(id)]
			tr.Status = StatusSkipped
			tr.Message = "skipped: a dependency failed"
			tr.StartTime = time.Now()
			tr.EndTime = time.Now()
			failedNodes[id] = true
			processed++
			e.cascadeSkip(g, id, result, failedNodes, &processed)
			mu.Unlock()
			continue
		}
		mu.Unlock()

		wg.Add(1)
		sem <- struct{}{}
		go func(id dag.NodeID) {
			defer wg.Done()
			defer func() { <-sem }()

			t := tasks[id]
			tr := result.TaskResults[string(id)]
			mu.Lock()
			tr.Status = StatusRunning
			tr.StartTime = time.Now()
			mu.Unlock()

			e.runTask(ctx.GoContext(), t, tr, log)

			mu.Lock()
			defer mu.Unlock()
			processed++
			if tr.Status == StatusFailed {
				failedNodes[id] = true
				e.cascadeSkip(g, id, result, failedNodes, &processed)
				return
			}
			for _, dependentID := range g.Dependents(id) {
				if failedNodes[dependentID] {
					continue
				}
				inDegree[dependentID]--
				if inDegree[dependentID] == 0 {
					queue = append(queue, dependentID)
				}
			}
		}(id)
	}

	wg.Wait()

	finalStatus := StatusSuccess
	for _, tr := range result.TaskResults {
		if tr.Status == StatusFailed {
			finalStatus = StatusFailed
			break
		}
	}
	result.Status = finalStatus
	result.EndTime = time.Now()
	return result, nil
}

// RunNested executes a nested workflow invocation (spec.md §9 `sos_run`-style
// sub-workflow calls). It always inherits the enclosing run's DryRun flag
// rather than accepting its own — resolving the Open Question "should a
// nested run honor its own dry-run flag or the parent's" in favor of the
// parent, since a nested step that writes real files while its parent only
// plans would desynchronize the two runs' resolved state (see DESIGN.md).
func (e *Executor) RunNested(ctx ExecuteContext, g *dag.Graph, tasks map[dag.NodeID]*Task, parentDryRun bool) (*Result, error) {
	return e.Execute(ctx, g, tasks, parentDryRun)
}

// cascadeSkip marks every still-pending descendant of a failed node as
// Skipped, recursively, mirroring engine.dagExecutor.markDependentsSkipped
// generalized to the dag.Graph's Dependents index. Caller must hold mu.
func (e *Executor) cascadeSkip(g *dag.Graph, failed dag.NodeID, result *Result, failedNodes map[dag.NodeID]bool, processed *int) {
	for _, depID := range g.Dependents(failed) {
		if failedNodes[depID] {
			continue
		}
		tr := result.TaskResults[string(depID)]
		if tr.Status == StatusPending || tr.Status == StatusRunning {
			tr.Status = StatusSkipped
			tr.Message = fmt.Sprintf("skipped: prerequisite %q failed", failed)
			if tr.StartTime.IsZero() {
				tr.StartTime = time.Now()
			}
			tr.EndTime = time.Now()
			failedNodes[depID] = true
			*processed++
			e.cascadeSkip(g, depID, result, failedNodes, processed)
		}
	}
}

// runTask decides whether t should be skipped (stop_if, signature hit) and
// otherwise runs its actions, records a fresh signature, and declares its
// outputs to the resolver.
func (e *Executor) runTask(ctx context.Context, t *Task, tr *TaskResult, log *zap.Logger) {
	if t.StopIf {
		tr.Status = StatusSuccess
		tr.Message = "stop_if: substep produced no output"
		tr.EndTime = time.Now()
		return
	}

	if e.Store != nil {
		hit, recorded, err := e.Store.Lookup(t.signatureKey(), t.StepName, t.Digest, e.ForceMode)
		if err != nil {
			tr.Status = StatusFailed
			tr.Message = err.Error()
			tr.EndTime = time.Now()
			return
		}
		if hit {
			outputs := recordsToOutputs(recorded, t.OutputLabel)
			tr.Status = StatusSkipped
			tr.Message = "signature unchanged"
			tr.Outputs = outputs
			if e.Resolver != nil {
				for _, o := range outputs {
					e.Resolver.Declare(o, t.StepName, 0)
				}
			}
			tr.EndTime = time.Now()
			return
		}
	}

	envDelta, runErr := e.Runner.RunActions(ctx, t)
	if runErr != nil {
		if t.AllowError {
			tr.Status = StatusSuccess
			tr.Message = fmt.Sprintf("allow_error: %v", runErr)
		} else {
			tr.Status = StatusFailed
			tr.Message = runErr.Error()
			e.cleanupOutputs(t, log)
			tr.EndTime = time.Now()
			return
		}
	} else {
		tr.Status = StatusSuccess
	}

	outputs := e.renderOutputs(ctx, t, log)
	tr.Outputs = outputs
	tr.Env = envDelta

	if e.Store != nil && e.ForceMode != signature.ForceIgnore {
		if err := e.Store.Record(t.signatureKey(), t.StepName, t.Digest, e.outputRecords(outputs)); err != nil {
			log.Warn("failed to record signature", zap.String("step", t.StepName), zap.Error(err))
		}
	}
	if e.Resolver != nil {
		for _, o := range outputs {
			e.Resolver.Declare(o, t.StepName, 0)
		}
	}
	if t.Zap && e.TargetRes != nil {
		for _, in := range t.Group.Inputs {
			if err := e.TargetRes.Zap(in); err != nil {
				log.Warn("zap failed", zap.String("target", in.Key()), zap.Error(err))
			}
		}
	}
	tr.EndTime = time.Now()
}

func (t *Task) signatureKey() string {
	return fmt.Sprintf("%s#%d", t.StepName, t.GroupIndex)
}

// renderOutputs evaluates t's output templates against its group's bound
// variables, producing one FileTarget per template. A template that fails
// to evaluate is skipped rather than aborting the whole task, since output
// rendering happens after the action has already succeeded.
func (e *Executor) renderOutputs(ctx context.Context, t *Task, log *zap.Logger) []target.Target {
	var outputs []target.Target
	for _, tmpl := range t.OutputTemplates {
		path := tmpl
		if e.Evaluator != nil {
			v, err := e.Evaluator.Eval(ctx, tmpl, t.Group.BoundVars)
			if err != nil {
				log.Warn("output template evaluation failed", zap.String("template", tmpl), zap.Error(err))
				continue
			}
			if s, ok := v.(string); ok {
				path = s
			}
		}
		f := target.NewFile(path)
		if t.OutputLabel != "" {
			outputs = append(outputs, f.WithSource(t.OutputLabel))
			continue
		}
		outputs = append(outputs, f)
	}
	return outputs
}

// outputRecords flattens t's rendered outputs (Files, or a NamedOutput's
// Files) into the flat (path, digest) pairs the signature store records,
// so a later Lookup can tell whether every one of them still exists.
func (e *Executor) outputRecords(outputs []target.Target) []signature.OutputRecord {
	var recs []signature.OutputRecord
	add := func(f *target.File) {
		digest := ""
		if e.TargetRes != nil {
			if d, err := e.TargetRes.DigestHex(f); err == nil {
				digest = d
			}
		}
		recs = append(recs, signature.OutputRecord{Path: f.Path, Digest: digest})
	}
	for _, o := range outputs {
		switch v := o.(type) {
		case *target.File:
			add(v)
		case *target.NamedOutput:
			for _, f := range v.Files {
				add(f)
			}
		}
	}
	return recs
}

// recordsToOutputs rebuilds the FileTargets a signature hit declares as its
// step's outputs, tagged with label as their source (mirroring the
// OutputLabel a fresh run would attach in renderOutputs). A recorded
// NamedOutput's grouping isn't preserved across this round-trip, only its
// individual files, which is sufficient for resolver.Declare/output_from.
func recordsToOutputs(recs []signature.OutputRecord, label string) []target.Target {
	var outputs []target.Target
	for _, r := range recs {
		f := target.NewFile(r.Path)
		if label != "" {
			outputs = append(outputs, f.WithSource(label))
			continue
		}
		outputs = append(outputs, f)
	}
	return outputs
}

// cleanupOutputs deletes any partial outputs left behind by a failed,
// non-allow_error run, so a retry never observes a half-written artifact
// (spec.md §4.5 "failure deletes the outputs it was about to produce").
func (e *Executor) cleanupOutputs(t *Task, log *zap.Logger) {
	if e.TargetRes == nil {
		return
	}
	for _, tmpl := range t.OutputTemplates {
		f := target.NewFile(tmpl)
		if err := e.TargetRes.Delete(f); err != nil {
			log.Debug("output cleanup skipped", zap.String("path", tmpl), zap.Error(err))
		}
	}
}

// dryRun marks every task Skipped without running it, touching each
// declared output as a placeholder so downstream dry-run dependents see a
// plausible file list without real execution, and deleting the placeholders
// it created once every task has been visited (spec.md §4.5 "dry-run
// touch-then-delete").
func (e *Executor) dryRun(log *zap.Logger, ids []dag.NodeID, tasks map[dag.NodeID]*Task, result *Result) {
	var placeholders []*target.File
	for _, id := range ids {
		t := tasks[id]
		tr := result.TaskResults[string(id)]
		tr.Status = StatusSkipped
		tr.Message = "dry run"
		tr.StartTime = time.Now()

		if e.TargetRes != nil {
			for _, tmpl := range t.OutputTemplates {
				f := target.NewFile(tmpl)
				if created, err := e.TargetRes.TouchPlaceholder(f); err == nil && created {
					placeholders = append(placeholders, f)
				}
			}
		}
		tr.EndTime = time.Now()
	}
	for _, f := range placeholders {
		e.TargetRes.Delete(f)
	}
}
