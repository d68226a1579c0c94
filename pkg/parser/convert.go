package parser

import (
	"github.com/pkg/errors"

	"github.com/sosflow/sosflow/pkg/workflow"
)

func convertAST(doc *workflowDoc) (*workflow.AST, error) {
	ast := &workflow.AST{Name: doc.Name}
	for i := range doc.Sections {
		sec, err := convertSection(&doc.Sections[i])
		if err != nil {
			return nil, errors.Wrapf(err, "section %q", doc.Sections[i].Name)
		}
		ast.Sections = append(ast.Sections, sec)
	}
	return ast, nil
}

func convertSection(d *sectionDoc) (*workflow.Section, error) {
	sec := &workflow.Section{
		Meta: workflow.StepMeta{
			Name:         d.Name,
			Description:  d.Description,
			Hidden:       d.Hidden,
			AllowFailure: d.AllowFailure,
		},
		Index:  d.Index,
		Shared: d.Shared,
	}

	if d.Provides != "" {
		sec.Provides = &workflow.ProvidesPattern{Pattern: d.Provides}
	}

	if len(d.Depends) > 0 {
		dc := &workflow.DependsClause{}
		for _, dr := range d.Depends {
			dc.Refs = append(dc.Refs, workflow.DependsRef{
				TargetName:   dr.Target,
				StepRefName:  dr.Step,
				VariableName: dr.Variable,
			})
		}
		sec.Depends = dc
	}

	if d.Input != nil {
		ic, err := convertInput(d.Input)
		if err != nil {
			return nil, err
		}
		sec.Input = ic
	}

	if d.Output != nil {
		sec.Output = convertOutput(d.Output)
	}

	for _, a := range d.Actions {
		sec.Actions = append(sec.Actions, workflow.ActionBlock{
			Text:        a.Text,
			AllowError:  a.AllowError,
			Interpreter: a.Interpreter,
		})
	}

	return sec, nil
}

func convertStepRef(d *stepRefDoc) workflow.StepRef {
	if d == nil {
		return workflow.StepRef{}
	}
	ref := workflow.StepRef{Name: d.Name}
	if d.RelIndex != nil {
		ref.HasRel = true
		ref.RelIndex = *d.RelIndex
	}
	for i := range d.List {
		ref.List = append(ref.List, convertStepRef(&d.List[i]))
	}
	return ref
}

func convertGroupBy(d *groupByDoc) (workflow.GroupBySpec, error) {
	if d == nil {
		return workflow.GroupBySpec{}, nil
	}
	spec := workflow.GroupBySpec{N: d.N, Explicit: true}
	switch d.Kind {
	case "", "all":
		spec.Kind = workflow.GroupByAll
	case "fixed":
		spec.Kind = workflow.GroupByFixed
	case "single":
		spec.Kind = workflow.GroupBySingle
	case "pairwise":
		spec.Kind = workflow.GroupByPairwise
	case "combinations":
		spec.Kind = workflow.GroupByCombinations
	case "callable":
		// A callable group_by needs a Go func(int) [][]int, which the YAML
		// front end cannot express. Callers that need it build the
		// workflow.AST by hand instead of through this package.
		return workflow.GroupBySpec{}, errors.New("group_by: kind \"callable\" is not representable in YAML, construct the AST directly")
	default:
		return workflow.GroupBySpec{}, errors.Errorf("group_by: unknown kind %q", d.Kind)
	}
	return spec, nil
}

func convertInput(d *inputDoc) (*workflow.InputClause, error) {
	ic := &workflow.InputClause{Concurrent: d.Concurrent}

	for _, s := range d.Sources {
		term, err := convertSourceTerm(&s)
		if err != nil {
			return nil, err
		}
		ic.Sources = append(ic.Sources, term)
	}

	gb, err := convertGroupBy(d.GroupBy)
	if err != nil {
		return nil, err
	}
	ic.GroupBy = gb

	for _, pw := range d.PairedWith {
		ic.PairedWith = append(ic.PairedWith, workflow.PairedWith{Name: pw.Name, Values: pw.Values})
	}
	for _, gw := range d.GroupWith {
		ic.GroupWith = append(ic.GroupWith, workflow.GroupWith{Name: gw.Name, Values: gw.Values})
	}
	for _, fe := range d.ForEach {
		ic.ForEach = append(ic.ForEach, workflow.ForEachAxis{Keys: fe.Keys, Values: fe.Values})
	}

	return ic, nil
}

func convertSourceTerm(d *sourceTermDoc) (workflow.SourceTerm, error) {
	switch {
	case d.OutputFrom != nil:
		term := workflow.SourceTerm{
			Kind:    workflow.SourceOutputFrom,
			StepRef: convertStepRef(d.OutputFrom),
			Alias:   d.Alias,
		}
		if d.GroupBy != nil {
			gb, err := convertGroupBy(d.GroupBy)
			if err != nil {
				return workflow.SourceTerm{}, err
			}
			term.GroupByOpt = &gb
		}
		return term, nil
	case d.NamedOutput != nil:
		return workflow.SourceTerm{
			Kind:    workflow.SourceNamedOutput,
			StepRef: convertStepRef(d.NamedOutput),
			Label:   d.Label,
			Alias:   d.Alias,
		}, nil
	case d.Glob != "":
		return workflow.SourceTerm{Kind: workflow.SourceGlob, Pattern: d.Glob, Dynamic: d.Dynamic}, nil
	default:
		return workflow.SourceTerm{Kind: workflow.SourceLiteral, Path: d.Path}, nil
	}
}

func convertOutput(d *outputDoc) *workflow.OutputClause {
	oc := &workflow.OutputClause{Templates: d.Templates}
	if len(d.Labeled) > 0 {
		oc.Labeled = make(map[string][]string, len(d.Labeled))
		for _, l := range d.Labeled {
			oc.Labels = append(oc.Labels, l.Label)
			oc.Labeled[l.Label] = l.Templates
		}
	}
	return oc
}
