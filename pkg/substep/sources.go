package substep

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sosflow/sosflow/pkg/target"
	"github.com/sosflow/sosflow/pkg/workflow"
)

// Lookup resolves the non-literal source terms of an input clause
// (output_from, named_output, dynamic globs) against live DAG/signature
// state. Implemented by pkg/engine (stepLookup), which has visibility
// into other steps' outputs; kept as an interface here to avoid an import
// cycle (substep must not depend on dag/executor).
type Lookup interface {
	// OutputFrom resolves output_from(ref, group_by=...) to the referenced
	// step instance(s)' step_output, applying ref's own group_by if set
	// (the per-term group_by of output_from is independent of the
	// enclosing input clause's group_by and is collapsed here into a flat
	// ordered list with one source label per target, matching the aliased
	// step/label per spec.md §4.4).
	OutputFrom(ctx context.Context, ref workflow.StepRef, groupBy *workflow.GroupBySpec, alias string) ([]target.Target, []string, error)
	// NamedOutput resolves named_output(label) to every FileTarget the
	// label has ever produced, in production order.
	NamedOutput(ctx context.Context, label string) ([]target.Target, []string, error)
}

// ResolveSources concatenates ic's source terms in order into a flat
// target list plus one source label per target (spec.md §4.3 "Source terms
// concatenate in order").
func ResolveSources(ctx context.Context, ic *workflow.InputClause, lookup Lookup) ([]target.Target, []string, error) {
	var inputs []target.Target
	var sources []string

	for _, term := range ic.Sources {
		switch term.Kind {
		case workflow.SourceLiteral:
			inputs = append(inputs, target.NewFile(term.Path))
			sources = append(sources, "")

		case workflow.SourceGlob:
			matches, err := globMatch(term.Pattern)
			if err != nil {
				return nil, nil, fmt.Errorf("substep: glob %q: %w", term.Pattern, err)
			}
			for _, m := range matches {
				inputs = append(inputs, target.NewFile(m))
				sources = append(sources, "")
			}

		case workflow.SourceOutputFrom:
			ts, srcs, err := lookup.OutputFrom(ctx, term.StepRef, term.GroupByOpt, term.Alias)
			if err != nil {
				return nil, nil, err
			}
			inputs = append(inputs, ts...)
			sources = append(sources, srcs...)

		case workflow.SourceNamedOutput:
			ts, srcs, err := lookup.NamedOutput(ctx, term.Label)
			if err != nil {
				return nil, nil, err
			}
			inputs = append(inputs, ts...)
			sources = append(sources, srcs...)

		default:
			return nil, nil, fmt.Errorf("substep: unknown source term kind %v", term.Kind)
		}
	}
	return inputs, sources, nil
}

// globMatch expands a glob source term. Recursive "**" patterns use
// doublestar (path/filepath.Glob cannot express them); plain patterns are
// passed straight through.
func globMatch(pattern string) ([]string, error) {
	if hasDoubleStar(pattern) {
		return doublestar.FilepathGlob(pattern)
	}
	return filepath.Glob(pattern)
}

func hasDoubleStar(pattern string) bool {
	for i := 0; i+1 < len(pattern); i++ {
		if pattern[i] == '*' && pattern[i+1] == '*' {
			return true
		}
	}
	return false
}
