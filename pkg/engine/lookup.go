package engine

import (
	"context"
	"fmt"

	"github.com/sosflow/sosflow/pkg/exprbridge"
	"github.com/sosflow/sosflow/pkg/target"
	"github.com/sosflow/sosflow/pkg/workflow"
)

// producedOutputs accumulates, per step base name, the targets its Output
// clause declares, in the order sections are planned. This is the planner's
// substep.Lookup backing: output_from/named_output resolve against what a
// producer step *declares* it outputs, not against the actual files it will
// write once its substeps run. A producer whose Output templates embed
// per-group variables (e.g. "{_input!bn}.bam") therefore resolves here to
// one literal (unevaluated, or evaluated against an empty Env) path per
// template rather than one path per actual substep group — a deliberate,
// documented simplification of spec.md §4.4's fully dynamic resolution,
// since this engine expands every step's substeps in a single static pass
// before executing any of them (see DESIGN.md).
type producedOutputs struct {
	byStep map[string][]target.Target
}

func newProducedOutputs() *producedOutputs {
	return &producedOutputs{byStep: map[string][]target.Target{}}
}

func (p *producedOutputs) record(stepName string, outs []target.Target) {
	p.byStep[stepName] = append(p.byStep[stepName], outs...)
}

// stepLookup implements substep.Lookup over producedOutputs plus the
// engine's expression evaluator (used to render output templates that
// contain no per-group variables, such as literal paths or workflow-scoped
// shared values).
type stepLookup struct {
	eng      *Engine
	produced *producedOutputs
}

func (l *stepLookup) OutputFrom(_ context.Context, ref workflow.StepRef, _ *workflow.GroupBySpec, alias string) ([]target.Target, []string, error) {
	var out []target.Target
	var srcs []string
	for _, name := range stepRefNames(ref) {
		outs, ok := l.produced.byStep[name]
		if !ok {
			return nil, nil, fmt.Errorf("engine: output_from(%q): step has not been planned yet (declared after its consumer)", name)
		}
		label := alias
		if label == "" {
			label = name
		}
		for _, o := range outs {
			out = append(out, o.WithSource(label))
			srcs = append(srcs, label)
		}
	}
	return out, srcs, nil
}

func (l *stepLookup) NamedOutput(_ context.Context, label string) ([]target.Target, []string, error) {
	for _, outs := range l.produced.byStep {
		for _, o := range outs {
			no, ok := o.(*target.NamedOutput)
			if !ok || no.Label != label {
				continue
			}
			var files []target.Target
			var srcs []string
			for _, f := range no.Files {
				files = append(files, f.WithSource(label))
				srcs = append(srcs, label)
			}
			return files, srcs, nil
		}
	}
	return nil, nil, fmt.Errorf("engine: named_output(%q): no step has declared this label", label)
}

// renderDeclaredOutputs evaluates sec's Output clause once against an empty
// (workflow-scoped only) environment, producing the literal targets other
// steps' output_from/named_output terms resolve against during planning.
func renderDeclaredOutputs(sec *workflow.Section, ev exprbridge.Evaluator, env exprbridge.Env) []target.Target {
	if sec.Output == nil {
		return nil
	}
	ctx := context.Background()

	render := func(tmpl string) string {
		if ev == nil {
			return tmpl
		}
		v, err := ev.Eval(ctx, tmpl, env)
		if err != nil {
			return tmpl
		}
		if s, ok := v.(string); ok {
			return s
		}
		return tmpl
	}

	var out []target.Target
	for _, tmpl := range sec.Output.Templates {
		out = append(out, target.NewFile(render(tmpl)))
	}
	for _, label := range sec.Output.Labels {
		var files []*target.File
		for _, tmpl := range sec.Output.Labeled[label] {
			files = append(files, target.NewFile(render(tmpl)))
		}
		out = append(out, target.NewNamedOutput(label, files))
	}
	return out
}
