package substep

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sosflow/sosflow/pkg/exprbridge"
	"github.com/sosflow/sosflow/pkg/target"
	"github.com/sosflow/sosflow/pkg/workflow"
)

// Expand is the deterministic core of the substep expander: given the same
// step text (not consulted here directly, but implicit in ic), the same
// resolved input target list, and the same bound environment, it always
// produces the same group list (spec.md §8 invariant 1).
func Expand(ic *workflow.InputClause, inputs []target.Target, sources []string, base exprbridge.Env) (Result, error) {
	if len(sources) != len(inputs) {
		return Result{}, fmt.Errorf("substep: %d inputs but %d source labels", len(inputs), len(sources))
	}

	n := len(inputs)
	spec := ic.GroupBy

	if n == 0 {
		if !spec.Explicit {
			// "An empty list with no group_by yields one group with empty
			// inputs (allows input-less actions to run once)."
			g := Group{Index: 0, Inputs: nil, Sources: nil, BoundVars: cloneEnv(base)}
			res, err := applyForEach([]Group{g}, ic.ForEach)
			res.Concurrent = isConcurrent(ic)
			return res, err
		}
		// "An empty input list with group_by specified yields zero substep
		// groups (noop, legal)."
		return Result{Concurrent: isConcurrent(ic)}, nil
	}

	idxGroups, err := partition(inputs, sources, spec)
	if err != nil {
		return Result{}, err
	}

	if err := validatePairedWith(ic.PairedWith, n); err != nil {
		return Result{}, err
	}
	if err := validateGroupWith(ic.GroupWith, len(idxGroups)); err != nil {
		return Result{}, err
	}

	groups := make([]Group, 0, len(idxGroups))
	for gi, idx := range idxGroups {
		g := Group{
			Index:      gi,
			BoundVars:  cloneEnv(base),
			InputAttrs: make([]exprbridge.Env, len(idx)),
		}
		for k, i := range idx {
			g.Inputs = append(g.Inputs, inputs[i])
			g.Sources = append(g.Sources, sources[i])
			g.InputAttrs[k] = exprbridge.Env{}
		}
		for _, pw := range ic.PairedWith {
			values := make([]interface{}, len(idx))
			for k, i := range idx {
				values[k] = pw.Values[i]
				g.InputAttrs[k]["_"+pw.Name] = pw.Values[i]
			}
			g.BoundVars["_"+pw.Name] = values
		}
		for _, gw := range ic.GroupWith {
			val := gw.Values[gi]
			g.BoundVars["_"+gw.Name] = val
			for k := range idx {
				g.InputAttrs[k]["_"+gw.Name] = val
			}
		}
		applyPattern(&g, ic.Patterns)
		groups = append(groups, g)
	}

	res, err := applyForEach(groups, ic.ForEach)
	if err != nil {
		return Result{}, err
	}
	res.Concurrent = isConcurrent(ic)
	return res, nil
}

// applyForEach performs the outer product of for_each axes (outer loop)
// over the base groups (inner loop), per spec.md §4.3 ordering rule, and
// assigns dense final _index values.
func applyForEach(base []Group, axes []workflow.ForEachAxis) (Result, error) {
	combos := [][]axisBinding{{}}
	for _, axis := range axes {
		var next [][]axisBinding
		for _, combo := range combos {
			for _, v := range axis.Values {
				b := axisBinding{axis: axis, value: v}
				nc := make([]axisBinding, len(combo), len(combo)+1)
				copy(nc, combo)
				nc = append(nc, b)
				next = append(next, nc)
			}
		}
		combos = next
	}

	var out []Group
	idx := 0
	for _, combo := range combos {
		for _, g := range base {
			ng := Group{
				Inputs:     g.Inputs,
				Sources:    g.Sources,
				InputAttrs: g.InputAttrs,
				BoundVars:  cloneEnv(g.BoundVars),
			}
			for _, b := range combo {
				bindAxis(ng.BoundVars, b)
			}
			ng.Index = idx
			ng.BoundVars["_index"] = idx
			idx++
			out = append(out, ng)
		}
	}
	return Result{Groups: out}, nil
}

type axisBinding struct {
	axis  workflow.ForEachAxis
	value interface{}
}

func bindAxis(env exprbridge.Env, b axisBinding) {
	if len(b.axis.Keys) == 1 {
		env[b.axis.Keys[0]] = b.value
		return
	}
	// Multi-key axis: value is a tuple ([]interface{}) or a map row.
	if row, ok := b.value.(map[string]interface{}); ok {
		for _, k := range b.axis.Keys {
			env[k] = row[k]
		}
		return
	}
	if tuple, ok := b.value.([]interface{}); ok {
		for i, k := range b.axis.Keys {
			if i < len(tuple) {
				env[k] = tuple[i]
			}
		}
	}
}

func validatePairedWith(pairs []workflow.PairedWith, n int) error {
	for _, p := range pairs {
		if len(p.Values) != n {
			return fmt.Errorf("substep: paired_with %q has %d values, want %d (input length)", p.Name, len(p.Values), n)
		}
	}
	return nil
}

func validateGroupWith(pairs []workflow.GroupWith, numGroups int) error {
	for _, p := range pairs {
		if len(p.Values) != numGroups {
			return fmt.Errorf("substep: group_with %q has %d values, want %d (group count)", p.Name, len(p.Values), numGroups)
		}
	}
	return nil
}

// applyPattern matches a group's inputs' basenames against ic.Patterns in
// order; the first pattern that matches wins. A group whose inputs fail to
// match any pattern is still produced with unset capture vars.
func applyPattern(g *Group, patterns []string) {
	if len(patterns) == 0 || len(g.Inputs) == 0 {
		return
	}
	f, ok := g.Inputs[0].(*target.File)
	if !ok {
		return
	}
	base := filepath.Base(f.Path)
	for _, p := range patterns {
		if caps, ok := matchPattern(p, base); ok {
			for k, v := range caps {
				g.BoundVars[k] = v
			}
			return
		}
	}
}

// matchPattern matches a `{name}`-templated pattern against s, returning
// captured names. Only literal segments + single `{name}` placeholders are
// supported (no regex metacharacters), matching spec.md's "format-with-
// placeholders templates".
func matchPattern(pattern, s string) (map[string]string, bool) {
	caps := map[string]string{}
	pi, si := 0, 0
	for pi < len(pattern) {
		if pattern[pi] == '{' {
			end := strings.IndexByte(pattern[pi:], '}')
			if end < 0 {
				return nil, false
			}
			name := pattern[pi+1 : pi+end]
			pi += end + 1
			// Determine the literal that follows the placeholder, if any,
			// to bound the capture.
			nextLit := ""
			if pi < len(pattern) {
				nextEnd := strings.IndexByte(pattern[pi:], '{')
				if nextEnd < 0 {
					nextLit = pattern[pi:]
				} else {
					nextLit = pattern[pi : pi+nextEnd]
				}
			}
			var capEnd int
			if nextLit == "" {
				capEnd = len(s)
			} else {
				rel := strings.Index(s[si:], nextLit)
				if rel < 0 {
					return nil, false
				}
				capEnd = si + rel
			}
			if capEnd < si {
				return nil, false
			}
			caps[name] = s[si:capEnd]
			si = capEnd
			continue
		}
		if si >= len(s) || s[si] != pattern[pi] {
			return nil, false
		}
		pi++
		si++
	}
	if si != len(s) {
		return nil, false
	}
	return caps, true
}

func isConcurrent(ic *workflow.InputClause) bool {
	if ic.Concurrent == nil {
		return true
	}
	return *ic.Concurrent
}
