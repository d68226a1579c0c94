// Package target implements the engine's Target model: the universe of
// nameable artifacts (files, named outputs, step completions, variable
// availabilities). Grounded on the teacher's small-interface, concrete-struct
// style (connector.Host, plan.ExecutionNode) rather than a class hierarchy,
// per spec.md §9 "Polymorphic Target via tagged variants".
package target

import (
	"fmt"
)

// Kind tags the variant of a Target.
type Kind int

const (
	KindFile Kind = iota
	KindNamedOutput
	KindStepCompletion
	KindVariableAvailable
	KindExecutable
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindNamedOutput:
		return "named_output"
	case KindStepCompletion:
		return "step_completion"
	case KindVariableAvailable:
		return "variable_available"
	case KindExecutable:
		return "executable"
	default:
		return "unknown"
	}
}

// Target is a nameable artifact. Identity is Kind()+Key(); Source is
// provenance-only metadata and never participates in equality/identity, per
// spec.md §3 ("A target carries an optional source attribute ... used only
// for provenance routing").
type Target interface {
	Kind() Kind
	// Key uniquely identifies this target within its Kind, stable across
	// runs; used for map keys, dedup, and signature substep keys.
	Key() string
	// Source returns the provenance label (producing step/rule name, output
	// label, or consumer-chosen alias), or "" if none has been attached.
	Source() string
	// WithSource returns a copy of the target with Source attached. Targets
	// are otherwise treated as immutable value objects once constructed.
	WithSource(source string) Target
	String() string
}

// File is a FileTarget: a path on disk.
type File struct {
	Path string
	src  string
}

func NewFile(path string) *File { return &File{Path: path} }

func (f *File) Kind() Kind          { return KindFile }
func (f *File) Key() string         { return f.Path }
func (f *File) Source() string      { return f.src }
func (f *File) String() string      { return fmt.Sprintf("FileTarget(%s)", f.Path) }
func (f *File) WithSource(s string) Target {
	cp := *f
	cp.src = s
	return &cp
}

// NamedOutput is a labeled output of a step's output directive (e.g. "aa",
// "bb"); resolved when every one of Files is resolved.
type NamedOutput struct {
	Label string
	Files []*File
	src   string
}

func NewNamedOutput(label string, files []*File) *NamedOutput {
	return &NamedOutput{Label: label, Files: files}
}

func (n *NamedOutput) Kind() Kind     { return KindNamedOutput }
func (n *NamedOutput) Key() string    { return n.Label }
func (n *NamedOutput) Source() string { return n.src }
func (n *NamedOutput) String() string { return fmt.Sprintf("NamedOutput(%s)", n.Label) }
func (n *NamedOutput) WithSource(s string) Target {
	cp := *n
	cp.src = s
	return &cp
}

// StepCompletion resolves when every substep of the named step (and, for
// multi-numbered steps like hg_1/hg_2, every numbered instance) has
// terminated non-failing.
type StepCompletion struct {
	StepName string
	src      string
}

func NewStepCompletion(name string) *StepCompletion { return &StepCompletion{StepName: name} }

func (s *StepCompletion) Kind() Kind     { return KindStepCompletion }
func (s *StepCompletion) Key() string    { return s.StepName }
func (s *StepCompletion) Source() string { return s.src }
func (s *StepCompletion) String() string { return fmt.Sprintf("StepCompletion(%s)", s.StepName) }
func (s *StepCompletion) WithSource(src string) Target {
	cp := *s
	cp.src = src
	return &cp
}

// VariableAvailable resolves once the named shared variable has been
// published by its owning step (spec.md §9 environment handoff).
type VariableAvailable struct {
	Name string
	src  string
}

func NewVariableAvailable(name string) *VariableAvailable { return &VariableAvailable{Name: name} }

func (v *VariableAvailable) Kind() Kind     { return KindVariableAvailable }
func (v *VariableAvailable) Key() string    { return v.Name }
func (v *VariableAvailable) Source() string { return v.src }
func (v *VariableAvailable) String() string { return fmt.Sprintf("VariableAvailable(%s)", v.Name) }
func (v *VariableAvailable) WithSource(src string) Target {
	cp := *v
	cp.src = src
	return &cp
}

// Executable names an on-PATH or sandbox-provided binary required by an
// action block.
type Executable struct {
	Name string
	src  string
}

func NewExecutable(name string) *Executable { return &Executable{Name: name} }

func (e *Executable) Kind() Kind     { return KindExecutable }
func (e *Executable) Key() string    { return e.Name }
func (e *Executable) Source() string { return e.src }
func (e *Executable) String() string { return fmt.Sprintf("Executable(%s)", e.Name) }
func (e *Executable) WithSource(src string) Target {
	cp := *e
	cp.src = src
	return &cp
}

// MapKey is the stable identity used by maps/sets that dedup targets
// ("equality ignores metadata").
func MapKey(t Target) string {
	return fmt.Sprintf("%s:%s", t.Kind(), t.Key())
}

// Equal reports whether two targets have the same identity (Kind+Key),
// ignoring Source and any other metadata.
func Equal(a, b Target) bool {
	return a.Kind() == b.Kind() && a.Key() == b.Key()
}
