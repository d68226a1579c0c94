// Package resolver implements the target-resolution algorithm of spec.md
// §4.4: given an unresolved target, find (or fail to find) the step that
// will produce it, so the dag/executor layer can insert a dependency edge.
// Grounded structurally on engine.dagExecutor's recursive cascade style
// (markDependentsSkipped), generalized from "mark skipped" to "find
// producer".
package resolver

import (
	"fmt"
	"sort"

	"github.com/sosflow/sosflow/pkg/target"
	"github.com/sosflow/sosflow/pkg/wferrors"
	"github.com/sosflow/sosflow/pkg/workflow"
)

// Producer identifies a specific step (by name) and, for multi-numbered
// steps (hg_1, hg_2, ...), which numbered instance produces a target.
type Producer struct {
	StepName string
	Instance int // 0 when the step has no numbered instances
}

// Resolver finds the producing step for a target within a parsed AST.
type Resolver struct {
	ast *workflow.AST

	// produced indexes each target (by target.MapKey) to the steps known to
	// have produced it, filled in lazily by the executor via Declare as
	// steps run (live production history, not just the static AST).
	produced map[string][]Producer // target key -> producers, in declaration order
}

// New builds a Resolver over a parsed workflow.
func New(ast *workflow.AST) *Resolver {
	return &Resolver{ast: ast, produced: make(map[string][]Producer)}
}

// Declare records that stepName (instance inst) has produced t. Called by
// the executor after a step completes, so later resolutions of output_from/
// named_output/step_completion referencing it succeed.
func (r *Resolver) Declare(t target.Target, stepName string, inst int) {
	key := target.MapKey(t)
	r.produced[key] = append(r.produced[key], Producer{StepName: stepName, Instance: inst})
}

// Resolve finds the step that will (or already did) produce t, in the
// order spec.md §4.4 specifies:
//  1. if t is a FileTarget that already exists on disk, it needs no
//     producer (leaf input);
//  2. if a step has already declared producing t, return that step;
//  3. search auxiliary steps (Provides pattern) for one whose pattern
//     matches t's key;
//  4. for StepCompletion targets, match by step name directly
//     (sos_step('name') / numbered instances);
//  5. otherwise the target is unresolvable: UnknownTarget.
func (r *Resolver) Resolve(t target.Target) ([]Producer, error) {
	switch tv := t.(type) {
	case *target.File:
		if resolved, err := diskLeafExists(tv.Path); err != nil {
			return nil, err
		} else if resolved {
			return nil, nil // leaf input, no producer needed
		}
		if existing, ok := r.produced[target.MapKey(t)]; ok {
			return existing, nil
		}
		if p, ok := r.matchAuxiliary(tv.Path); ok {
			return []Producer{p}, nil
		}
		return nil, wferrors.UnknownTarget(tv.Path)

	case *target.StepCompletion:
		instances := r.stepInstances(tv.StepName)
		if len(instances) == 0 {
			return nil, wferrors.UnknownTarget(fmt.Sprintf("sos_step(%q)", tv.StepName))
		}
		return instances, nil

	case *target.NamedOutput:
		if existing, ok := r.produced[target.MapKey(t)]; ok {
			return existing, nil
		}
		return nil, wferrors.UnknownTarget(tv.Label)

	case *target.VariableAvailable:
		if existing, ok := r.produced[target.MapKey(t)]; ok {
			return existing, nil
		}
		return nil, wferrors.UnknownTarget(tv.Name)

	case *target.Executable:
		return nil, nil // resolved on PATH by the target package itself

	default:
		return nil, fmt.Errorf("resolver: unsupported target type %T", t)
	}
}

// matchAuxiliary searches the AST's auxiliary sections (those with a
// Provides pattern) for one whose pattern matches path, in declaration
// order; the first match wins (spec.md §4.4).
func (r *Resolver) matchAuxiliary(path string) (Producer, bool) {
	for _, sec := range r.ast.Sections {
		if sec.Provides == nil {
			continue
		}
		if _, ok := matchProvides(sec.Provides.Pattern, path); ok {
			return Producer{StepName: sec.BaseName()}, true
		}
	}
	return Producer{}, false
}

// stepInstances returns every declared producer instance for a step name,
// sorted by instance number, covering both plain steps and multi-numbered
// ones (name_1, name_2, ...).
func (r *Resolver) stepInstances(name string) []Producer {
	var out []Producer
	for _, sec := range r.ast.Sections {
		if sec.BaseName() == name {
			out = append(out, Producer{StepName: name, Instance: sec.Index})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Instance < out[j].Instance })
	return out
}

// matchProvides matches an auxiliary step's provides pattern ("{sample}.bam"
// style, same placeholder syntax as input patterns) against a literal path.
func matchProvides(pattern, path string) (map[string]string, bool) {
	return matchTemplate(pattern, path)
}
