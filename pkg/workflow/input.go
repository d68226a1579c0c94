package workflow

// InputClause is a step's input directive: an ordered composition of source
// terms plus the grouping/pairing/iteration operators of spec.md §4.3.
type InputClause struct {
	Sources []SourceTerm

	GroupBy    GroupBySpec
	PairedWith []PairedWith
	GroupWith  []GroupWith
	ForEach    []ForEachAxis
	Patterns   []string
	Concurrent *bool // nil = default true
}

// SourceTermKind tags a SourceTerm variant.
type SourceTermKind int

const (
	SourceLiteral SourceTermKind = iota
	SourceGlob
	SourceOutputFrom
	SourceNamedOutput
)

// SourceTerm is one element of the input clause's source-term
// concatenation.
type SourceTerm struct {
	Kind SourceTermKind

	// SourceLiteral
	Path string

	// SourceGlob
	Pattern string
	Dynamic bool // re-globbed at substep time

	// SourceOutputFrom / SourceNamedOutput
	StepRef     StepRef
	Label       string // named_output label
	GroupByOpt  *GroupBySpec
	Alias       string // consumer-chosen alias ("K" in `K=output_from(...)`)
}

// StepRef identifies a forward step by name, relative index, or a list of
// such (spec.md §4.3: "A stepRef may be a name, a relative index
// (-1 = immediately preceding forward step), or a list of such").
type StepRef struct {
	Name     string
	RelIndex int // 0 means "unset"; use HasRelIndex
	HasRel   bool
	List     []StepRef
}

// GroupByKind tags the grouping scheme for group_by.
type GroupByKind int

const (
	GroupByAll GroupByKind = iota // default: one group containing all inputs
	GroupByFixed
	GroupBySingle
	GroupByPairwise
	GroupByCombinations
	GroupByCallable
)

// GroupBySpec describes the group_by option.
type GroupBySpec struct {
	Kind GroupByKind
	N    int                 // for GroupByFixed
	Fn   func(n int) [][]int // for GroupByCallable: returns index groups given input length

	// Explicit distinguishes "group_by='all' was written" from "group_by
	// was omitted" — both default-construct to GroupByAll, but only the
	// omitted case gets the empty-input single-empty-group special case
	// (spec.md §4.3).
	Explicit bool
}

// PairedWith is one paired_with side-sequence; its length must equal the
// input length. Values[i] becomes `_Name` on the i-th input target and a
// per-group variable `_Name` listing the values in that group.
type PairedWith struct {
	Name   string
	Values []interface{}
}

// GroupWith is like PairedWith but scoped per-group (length == number of
// groups), binding one scalar per group.
type GroupWith struct {
	Name   string
	Values []interface{}
}

// ForEachAxis is one outer-product iteration axis.
type ForEachAxis struct {
	// Keys names the bound variable(s). len(Keys) == 1 for a simple named
	// axis; >1 for a comma-separated multi-key axis bound to tuples.
	Keys []string
	// Values holds one entry per axis position. For a single-key axis each
	// entry is a scalar; for a multi-key axis each entry is a
	// []interface{} tuple aligned with Keys; for a tabular axis each entry
	// is a map[string]interface{} row.
	Values []interface{}
}

// OutputClause is a step's output directive: either a flat list of
// templates, or a labeled set (aa=..., bb=...) for named_output.
type OutputClause struct {
	// Templates is used when the output directive has no labels.
	Templates []string
	// Labeled maps a label to its templates, preserving declaration order
	// via Labels.
	Labels   []string
	Labeled  map[string][]string
}
