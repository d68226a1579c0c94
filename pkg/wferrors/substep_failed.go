package wferrors

import (
	"fmt"
	"strings"
)

// SubstepFailure is one substep's diagnostic, keyed by (stepName, index) per
// spec's SubstepFailed(stepName, index, diagnostic).
type SubstepFailure struct {
	StepName   string
	Index      int
	Diagnostic string
}

// SubstepFailedGroup accumulates every failing substep of a single step so
// they can be surfaced together once all siblings have settled ("collected
// errors" semantics). Grounded on
// pkg/errors/validation.ValidationErrors (teacher): an Add-then-Error
// accumulator, generalized from free-text validation messages to structured
// per-substep diagnostics.
type SubstepFailedGroup struct {
	StepName string
	Failures []SubstepFailure
}

// Add records one more failing substep.
func (g *SubstepFailedGroup) Add(index int, diagnostic string) {
	g.Failures = append(g.Failures, SubstepFailure{
		StepName:   g.StepName,
		Index:      index,
		Diagnostic: diagnostic,
	})
}

// HasFailures reports whether any substep failed.
func (g *SubstepFailedGroup) HasFailures() bool {
	return len(g.Failures) > 0
}

// Err renders the accumulated failures into a single *Error whose Kind is
// KindSubstepFailed, or nil if nothing failed.
func (g *SubstepFailedGroup) Err() *Error {
	if !g.HasFailures() {
		return nil
	}
	lines := make([]string, len(g.Failures))
	for i, f := range g.Failures {
		lines[i] = fmt.Sprintf("%s[%d]: %s", f.StepName, f.Index, f.Diagnostic)
	}
	return &Error{
		Kind: KindSubstepFailed,
		Msg:  fmt.Sprintf("step %q: %d substep(s) failed", g.StepName, len(g.Failures)),
		Cause: fmt.Errorf(strings.Join(lines, "; ")),
	}
}
