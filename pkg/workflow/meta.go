package workflow

// StepMeta carries common metadata for a step, grounded on (and adapted
// almost verbatim from) pkg/spec.StepMeta in the teacher: the same four
// fields, now describing a workflow step instead of a cluster-deployment
// step.
type StepMeta struct {
	// Name is the step's unique name (forward step) or rule name (auxiliary
	// step).
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Description is a human-readable summary.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Hidden suppresses the step's action text from logs (sensitive steps).
	Hidden bool `json:"hidden,omitempty" yaml:"hidden,omitempty"`

	// AllowFailure is the step-level allow_error: a substep whose actions
	// fail is reported as successful. Action blocks do not inherit it; a
	// failing block without its own allow_error still ends that substep's
	// remaining blocks.
	AllowFailure bool `json:"allowFailure,omitempty" yaml:"allowFailure,omitempty"`
}
