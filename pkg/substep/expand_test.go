package substep

import (
	"testing"

	"github.com/sosflow/sosflow/pkg/exprbridge"
	"github.com/sosflow/sosflow/pkg/target"
	"github.com/sosflow/sosflow/pkg/workflow"
)

func files(paths ...string) []target.Target {
	out := make([]target.Target, len(paths))
	for i, p := range paths {
		out[i] = target.NewFile(p)
	}
	return out
}

func srcs(n int) []string {
	return make([]string, n)
}

// group_by=1 (single) + paired_with: two inputs paired with two var values
// must yield two substeps, each carrying its own paired value.
func TestExpandGroupBySingleWithPairedWith(t *testing.T) {
	inputs := files("a.txt", "b.txt")
	ic := &workflow.InputClause{
		GroupBy:    workflow.GroupBySpec{Kind: workflow.GroupBySingle},
		PairedWith: []workflow.PairedWith{{Name: "vars", Values: []interface{}{1, 2}}},
	}

	res, err := Expand(ic, inputs, srcs(2), exprbridge.Env{})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(res.Groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(res.Groups))
	}
	if got := res.Groups[0].BoundVars["_vars"]; got.([]interface{})[0] != 1 {
		t.Errorf("group 0 _vars = %v, want [1]", got)
	}
	if got := res.Groups[1].BoundVars["_vars"]; got.([]interface{})[0] != 2 {
		t.Errorf("group 1 _vars = %v, want [2]", got)
	}
	if res.Groups[0].InputAttrs[0]["_vars"] != 1 {
		t.Errorf("group 0 input attr _vars = %v, want 1", res.Groups[0].InputAttrs[0]["_vars"])
	}
}

// for_each outer product: base groups from paired_with(names) form the
// inner loop, the for_each axis (c) forms the outer loop: _names sequence
// "a a b c a a b c", c sequence "1 1 1 1 2 2 2 2".
func TestExpandForEachOuterProduct(t *testing.T) {
	inputs := files("a.pdf", "a.txt", "b.txt", "c.txt")
	ic := &workflow.InputClause{
		GroupBy:    workflow.GroupBySpec{Kind: workflow.GroupBySingle},
		PairedWith: []workflow.PairedWith{{Name: "names", Values: []interface{}{"a", "a", "b", "c"}}},
		ForEach:    []workflow.ForEachAxis{{Keys: []string{"c"}, Values: []interface{}{"1", "2"}}},
	}

	res, err := Expand(ic, inputs, srcs(4), exprbridge.Env{})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(res.Groups) != 8 {
		t.Fatalf("got %d groups, want 8 (4 base x 2 for_each)", len(res.Groups))
	}

	wantNames := []string{"a", "a", "b", "c", "a", "a", "b", "c"}
	wantC := []string{"1", "1", "1", "1", "2", "2", "2", "2"}
	for i, g := range res.Groups {
		names, ok := g.BoundVars["_names"].([]interface{})
		if !ok || len(names) != 1 || names[0] != wantNames[i] {
			t.Errorf("group %d _names = %v, want [%v]", i, g.BoundVars["_names"], wantNames[i])
		}
		if got := g.BoundVars["c"]; got != wantC[i] {
			t.Errorf("group %d c = %v, want %v", i, got, wantC[i])
		}
		if g.Index != i {
			t.Errorf("group %d Index = %d, want %d", i, g.Index, i)
		}
	}
}

// Minimal for_each scenario matching spec.md's canonical example directly:
// three single-input groups paired with three names, iterated over two c values.
func TestExpandForEachCanonicalSpecExample(t *testing.T) {
	inputs := files("x1", "x2", "x3")
	ic := &workflow.InputClause{
		GroupBy:    workflow.GroupBySpec{Kind: workflow.GroupBySingle},
		PairedWith: []workflow.PairedWith{{Name: "names", Values: []interface{}{"a", "b", "c"}}},
		ForEach:    []workflow.ForEachAxis{{Keys: []string{"c"}, Values: []interface{}{"1", "2"}}},
	}

	res, err := Expand(ic, inputs, srcs(3), exprbridge.Env{})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(res.Groups) != 6 {
		t.Fatalf("got %d groups, want 6", len(res.Groups))
	}
	wantNames := []string{"a", "b", "c", "a", "b", "c"}
	wantC := []string{"1", "1", "1", "2", "2", "2"}
	for i, g := range res.Groups {
		names, ok := g.BoundVars["_names"].([]interface{})
		if !ok || len(names) != 1 || names[0] != wantNames[i] {
			t.Errorf("group %d _names = %v, want [%v]", i, g.BoundVars["_names"], wantNames[i])
		}
		if g.BoundVars["c"] != wantC[i] {
			t.Errorf("group %d c = %v, want %v", i, g.BoundVars["c"], wantC[i])
		}
	}
}

// Determinism: identical inputs/env expanded twice must produce identical
// group sequences (spec.md §8 invariant 1).
func TestExpandIsDeterministic(t *testing.T) {
	inputs := files("a.txt", "b.txt", "c.txt", "d.txt")
	ic := &workflow.InputClause{
		GroupBy: workflow.GroupBySpec{Kind: workflow.GroupByFixed, N: 2},
		ForEach: []workflow.ForEachAxis{{Keys: []string{"i"}, Values: []interface{}{0, 1, 2}}},
	}

	first, err := Expand(ic, inputs, srcs(4), exprbridge.Env{"seed": 1})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	second, err := Expand(ic, inputs, srcs(4), exprbridge.Env{"seed": 1})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(first.Groups) != len(second.Groups) {
		t.Fatalf("non-deterministic group count: %d vs %d", len(first.Groups), len(second.Groups))
	}
	for i := range first.Groups {
		a, b := first.Groups[i], second.Groups[i]
		if len(a.Inputs) != len(b.Inputs) {
			t.Fatalf("group %d: non-deterministic input count", i)
		}
		for k := range a.Inputs {
			if a.Inputs[k].Key() != b.Inputs[k].Key() {
				t.Errorf("group %d input %d: %s != %s", i, k, a.Inputs[k].Key(), b.Inputs[k].Key())
			}
		}
		if a.BoundVars["i"] != b.BoundVars["i"] {
			t.Errorf("group %d: bound var i mismatch %v != %v", i, a.BoundVars["i"], b.BoundVars["i"])
		}
	}
}

// group_by='all' (default, implicit) collapses every input into one group.
func TestExpandGroupByAllDefault(t *testing.T) {
	inputs := files("a.txt", "b.txt", "c.txt")
	ic := &workflow.InputClause{}

	res, err := Expand(ic, inputs, srcs(3), exprbridge.Env{})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(res.Groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(res.Groups))
	}
	if len(res.Groups[0].Inputs) != 3 {
		t.Fatalf("got %d inputs in the single group, want 3", len(res.Groups[0].Inputs))
	}
}

// An empty input list with no group_by yields one group with empty inputs,
// so input-less action steps still run once.
func TestExpandEmptyInputsNoGroupBy(t *testing.T) {
	ic := &workflow.InputClause{}
	res, err := Expand(ic, nil, nil, exprbridge.Env{})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(res.Groups) != 1 || len(res.Groups[0].Inputs) != 0 {
		t.Fatalf("got %+v, want one empty-input group", res.Groups)
	}
}

// An empty input list with an explicit group_by yields zero groups.
func TestExpandEmptyInputsExplicitGroupBy(t *testing.T) {
	ic := &workflow.InputClause{GroupBy: workflow.GroupBySpec{Kind: workflow.GroupByAll, Explicit: true}}
	res, err := Expand(ic, nil, nil, exprbridge.Env{})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(res.Groups) != 0 {
		t.Fatalf("got %d groups, want 0", len(res.Groups))
	}
}

func TestExpandConcurrentDefaultsTrue(t *testing.T) {
	ic := &workflow.InputClause{GroupBy: workflow.GroupBySpec{Kind: workflow.GroupBySingle}}
	res, err := Expand(ic, files("a.txt"), srcs(1), exprbridge.Env{})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if !res.Concurrent {
		t.Error("Concurrent should default to true")
	}

	f := false
	ic.Concurrent = &f
	res, err = Expand(ic, files("a.txt"), srcs(1), exprbridge.Env{})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if res.Concurrent {
		t.Error("Concurrent should be false when explicitly set")
	}
}
