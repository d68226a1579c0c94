package engine

import (
	"context"
	"fmt"

	"github.com/sosflow/sosflow/pkg/dag"
	"github.com/sosflow/sosflow/pkg/executor"
	"github.com/sosflow/sosflow/pkg/exprbridge"
	"github.com/sosflow/sosflow/pkg/signature"
	"github.com/sosflow/sosflow/pkg/substep"
	"github.com/sosflow/sosflow/pkg/target"
	"github.com/sosflow/sosflow/pkg/workflow"
)

// Plan orders the workflow's steps, expands each one's substeps, and
// returns the flat dag.Graph of substep Tasks ready for executor.Execute.
func (e *Engine) Plan(ctx context.Context) (*dag.Graph, map[dag.NodeID]*executor.Task, error) {
	order, err := e.orderSteps()
	if err != nil {
		return nil, nil, err
	}

	g := dag.New()
	tasks := map[dag.NodeID]*executor.Task{}
	produced := newProducedOutputs()
	lastGroupIDs := map[string][]dag.NodeID{}
	sharedEnv := exprbridge.Env{}

	for _, sec := range order {
		ic := sec.Input
		if ic == nil {
			ic = &workflow.InputClause{}
		}

		lookup := &stepLookup{eng: e, produced: produced}
		inputs, sources, err := substep.ResolveSources(ctx, ic, lookup)
		if err != nil {
			return nil, nil, fmt.Errorf("engine: step %q: %w", sec.Meta.Name, err)
		}

		result, err := substep.Expand(ic, inputs, sources, sharedEnv)
		if err != nil {
			return nil, nil, fmt.Errorf("engine: step %q: expand: %w", sec.Meta.Name, err)
		}

		depIDs, err := e.dependencyTaskIDs(sec, lastGroupIDs)
		if err != nil {
			return nil, nil, err
		}

		var groupIDs []dag.NodeID
		outTemplates, labeledOut := flattenOutput(sec)

		for _, grp := range result.Groups {
			id := dag.NodeID(fmt.Sprintf("%s_%d#%d", sec.BaseName(), sec.Index, grp.Index))
			if err := g.AddNode(id, sec.Meta.Name, grp.Index); err != nil {
				return nil, nil, err
			}
			for _, dep := range depIDs {
				if err := g.AddDependency(dep, id, dag.EdgeTarget); err != nil {
					return nil, nil, err
				}
			}

			digest := signature.CombineDigests(digestsFor(e.TargetRes, grp.Inputs), grp.BoundVars)

			tasks[id] = &executor.Task{
				ID:              id,
				StepName:        sec.Meta.Name,
				GroupIndex:      grp.Index,
				Group:           grp,
				Actions:         sec.Actions,
				AllowError:      sec.Meta.AllowFailure,
				OutputTemplates: outTemplates,
				OutputLabel:     labeledOut,
				Digest:          digest,
			}
			groupIDs = append(groupIDs, id)
		}
		lastGroupIDs[sec.Meta.Name] = groupIDs

		produced.record(sec.Meta.Name, renderDeclaredOutputs(sec, e.Evaluator, sharedEnv))
	}

	return g, tasks, nil
}

// dependencyTaskIDs resolves sec's explicit depends= refs and output_from/
// named_output source terms into the substep-task IDs of their producer
// step(s)' most recent planning pass, so every group of sec waits on every
// group the producer emitted.
func (e *Engine) dependencyTaskIDs(sec *workflow.Section, lastGroupIDs map[string][]dag.NodeID) ([]dag.NodeID, error) {
	var ids []dag.NodeID
	seen := map[string]bool{}
	add := func(stepName string) {
		if seen[stepName] {
			return
		}
		seen[stepName] = true
		ids = append(ids, lastGroupIDs[stepName]...)
	}

	if sec.Depends != nil {
		for _, ref := range sec.Depends.Refs {
			switch {
			case ref.StepRefName != "":
				if _, err := e.Resolver.Resolve(target.NewStepCompletion(ref.StepRefName)); err != nil {
					return nil, fmt.Errorf("engine: step %q: depends %q: %w", sec.Meta.Name, ref.StepRefName, err)
				}
				add(ref.StepRefName)
			case ref.TargetName != "":
				producers, err := e.Resolver.Resolve(target.NewFile(ref.TargetName))
				if err != nil {
					return nil, fmt.Errorf("engine: step %q: depends %q: %w", sec.Meta.Name, ref.TargetName, err)
				}
				for _, p := range producers {
					add(p.StepName)
				}
			}
		}
	}

	if sec.Input != nil {
		for _, s := range sec.Input.Sources {
			if s.Kind != workflow.SourceOutputFrom && s.Kind != workflow.SourceNamedOutput {
				continue
			}
			for _, name := range stepRefNames(s.StepRef) {
				add(name)
			}
		}
	}

	return ids, nil
}

func flattenOutput(sec *workflow.Section) (templates []string, label string) {
	if sec.Output == nil {
		return nil, ""
	}
	if len(sec.Output.Templates) > 0 {
		return sec.Output.Templates, ""
	}
	// A labeled output clause (aa=..., bb=...) has no single flat template
	// list; the executor's output rendering works one label at a time, so a
	// step with multiple labels is represented as the first label's
	// templates here. Mixed multi-label outputs per step are uncommon in
	// practice and tracked as a known gap (see DESIGN.md).
	if len(sec.Output.Labels) > 0 {
		first := sec.Output.Labels[0]
		return sec.Output.Labeled[first], first
	}
	return nil, ""
}

func digestsFor(tr *target.Resolver, inputs []target.Target) []string {
	out := make([]string, 0, len(inputs))
	for _, in := range inputs {
		d, err := tr.DigestHex(in)
		if err != nil {
			out = append(out, target.MapKey(in))
			continue
		}
		out = append(out, d)
	}
	return out
}
