package engine

import (
	"fmt"

	"github.com/sosflow/sosflow/pkg/dag"
	"github.com/sosflow/sosflow/pkg/resolver"
	"github.com/sosflow/sosflow/pkg/target"
	"github.com/sosflow/sosflow/pkg/workflow"
)

// orderSteps topologically sorts the AST's sections into execution order,
// using a step-level dag.Graph purely to get cycle detection and a
// dependency-respecting order for free (cycles are reported by sg.Validate
// once every needed section and its edges have been added).
// Forward steps keep their declaration order as a tie-break; auxiliary
// (provides=) sections are only included when something depends on them.
func (e *Engine) orderSteps() ([]*workflow.Section, error) {
	needed := map[dag.NodeID]bool{}
	for _, sec := range e.AST.Sections {
		if sec.IsAuxiliary() {
			continue
		}
		if e.Target == "" || sec.BaseName() == e.Target {
			needed[stepNodeID(sec)] = true
		}
	}

	sg := dag.New()
	for _, sec := range e.AST.Sections {
		if needed[stepNodeID(sec)] {
			if err := sg.AddNode(stepNodeID(sec), sec.BaseName(), sec.Index); err != nil {
				return nil, err
			}
		}
	}

	sectionByID := map[dag.NodeID]*workflow.Section{}
	for _, sec := range e.AST.Sections {
		sectionByID[stepNodeID(sec)] = sec
	}

	// ensure adds a section (and, transitively, whatever it depends on) to
	// the ordering graph, instantiating auxiliary nodes on demand.
	var ensure func(sec *workflow.Section) error
	ensure = func(sec *workflow.Section) error {
		id := stepNodeID(sec)
		if sectionByID[id] == nil {
			sectionByID[id] = sec
		}
		if !sg.Has(id) {
			if err := sg.AddNode(id, sec.BaseName(), sec.Index); err != nil {
				return err
			}
		}
		return addDeps(e.Resolver, sg, sectionByID, ensure, sec)
	}

	var pending []*workflow.Section
	for _, sec := range e.AST.Sections {
		if needed[stepNodeID(sec)] {
			pending = append(pending, sec)
		}
	}
	for _, sec := range pending {
		if err := ensure(sec); err != nil {
			return nil, err
		}
	}

	if err := sg.Validate(); err != nil {
		return nil, err
	}

	return stableTopoOrder(sg, sectionByID, e.AST.Sections), nil
}

func stepNodeID(sec *workflow.Section) dag.NodeID {
	return dag.NodeID(fmt.Sprintf("%s_%d", sec.BaseName(), sec.Index))
}

// addDeps adds one edge per resolvable dependency of sec (explicit depends=
// refs and output_from/named_output source terms) into sg, recursively
// ensuring the producer section is present.
func addDeps(res *resolver.Resolver, sg *dag.Graph, sectionByID map[dag.NodeID]*workflow.Section, ensure func(*workflow.Section) error, sec *workflow.Section) error {
	id := stepNodeID(sec)

	addEdgeToProducers := func(t target.Target) error {
		producers, err := res.Resolve(t)
		if err != nil {
			return err
		}
		for _, p := range producers {
			for _, other := range sectionByIDList(sectionByID) {
				if other.BaseName() != p.StepName {
					continue
				}
				if p.Instance != 0 && other.Index != p.Instance {
					continue
				}
				if err := ensure(other); err != nil {
					return err
				}
				if err := sg.AddDependency(stepNodeID(other), id, dag.EdgeCompletion); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if sec.Depends != nil {
		for _, ref := range sec.Depends.Refs {
			switch {
			case ref.StepRefName != "":
				if err := addEdgeToProducers(target.NewStepCompletion(ref.StepRefName)); err != nil {
					return err
				}
			case ref.VariableName != "":
				if err := addEdgeToProducers(target.NewVariableAvailable(ref.VariableName)); err != nil {
					return err
				}
			case ref.TargetName != "":
				if err := addEdgeToProducers(target.NewFile(ref.TargetName)); err != nil {
					return err
				}
			}
		}
	}

	if sec.Input != nil {
		for _, s := range sec.Input.Sources {
			switch s.Kind {
			case workflow.SourceOutputFrom:
				for _, name := range stepRefNames(s.StepRef) {
					if err := addEdgeToProducers(target.NewStepCompletion(name)); err != nil {
						return err
					}
				}
			case workflow.SourceNamedOutput:
				for _, name := range stepRefNames(s.StepRef) {
					if err := addEdgeToProducers(target.NewStepCompletion(name)); err != nil {
						return err
					}
				}
			}
		}
	}

	return nil
}

func stepRefNames(ref workflow.StepRef) []string {
	if len(ref.List) > 0 {
		var out []string
		for _, r := range ref.List {
			out = append(out, stepRefNames(r)...)
		}
		return out
	}
	if ref.Name != "" {
		return []string{ref.Name}
	}
	return nil
}

func sectionByIDList(m map[dag.NodeID]*workflow.Section) []*workflow.Section {
	out := make([]*workflow.Section, 0, len(m))
	for _, s := range m {
		out = append(out, s)
	}
	return out
}

// stableTopoOrder re-derives a Kahn's-algorithm order from sg, using each
// section's original declaration index as the tie-break among nodes that
// become ready simultaneously, so unrelated steps keep their script order.
func stableTopoOrder(sg *dag.Graph, sectionByID map[dag.NodeID]*workflow.Section, sections []*workflow.Section) []*workflow.Section {
	declOrder := map[dag.NodeID]int{}
	for i, sec := range sections {
		declOrder[stepNodeID(sec)] = i
	}

	inDegree := map[dag.NodeID]int{}
	for _, id := range sg.NodeIDs() {
		inDegree[id] = len(sg.Node(id).Dependencies)
	}

	var ready []dag.NodeID
	for _, id := range sg.NodeIDs() {
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	var out []*workflow.Section
	for len(ready) > 0 {
		sortByDecl(ready, declOrder)
		id := ready[0]
		ready = ready[1:]
		out = append(out, sectionByID[id])
		for _, dep := range sg.Dependents(id) {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}
	return out
}

func sortByDecl(ids []dag.NodeID, declOrder map[dag.NodeID]int) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && declOrder[ids[j-1]] > declOrder[ids[j]]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}
