package engine

import (
	"fmt"
	"testing"

	"github.com/sosflow/sosflow/pkg/parser"
	"github.com/sosflow/sosflow/pkg/resolver"
	"github.com/sosflow/sosflow/pkg/workflow"
)

const twoStepDoc = `
name: demo
sections:
  - name: align
    input:
      sources:
        - path: ref.fa
    output:
      templates: ["out.bam"]
    actions:
      - text: "touch out.bam"
  - name: report
    input:
      sources:
        - outputFrom:
            name: align
    actions:
      - text: "touch report.txt"
`

func newTestEngine(t *testing.T, doc string) *Engine {
	t.Helper()
	ast, err := parser.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parser.Parse: %v", err)
	}
	return &Engine{AST: ast, Resolver: newResolverFor(t, ast)}
}

func newResolverFor(t *testing.T, ast *workflow.AST) *resolver.Resolver {
	t.Helper()
	return resolver.New(ast)
}

func TestOrderStepsRespectsDependencies(t *testing.T) {
	e := newTestEngine(t, twoStepDoc)
	order, err := e.orderSteps()
	if err != nil {
		t.Fatalf("orderSteps: %v", err)
	}
	if len(order) != 2 {
		t.Fatalf("len(order) = %d, want 2", len(order))
	}
	if order[0].Meta.Name != "align" || order[1].Meta.Name != "report" {
		t.Fatalf("order = [%s %s], want [align report]", order[0].Meta.Name, order[1].Meta.Name)
	}
}

const targetedDoc = `
name: demo
sections:
  - name: one
    actions:
      - text: "touch one.txt"
  - name: two
    actions:
      - text: "touch two.txt"
`

func TestOrderStepsFiltersByTarget(t *testing.T) {
	ast, err := parser.Parse([]byte(targetedDoc))
	if err != nil {
		t.Fatalf("parser.Parse: %v", err)
	}
	e := &Engine{AST: ast, Resolver: newResolverFor(t, ast), Target: "one"}
	order, err := e.orderSteps()
	if err != nil {
		t.Fatalf("orderSteps: %v", err)
	}
	if len(order) != 1 || order[0].Meta.Name != "one" {
		t.Fatalf("order = %v, want just [one]", order)
	}
}

const cyclicDoc = `
name: demo
sections:
  - name: a
    depends:
      - step: b
    actions:
      - text: "touch a.txt"
  - name: b
    depends:
      - step: a
    actions:
      - text: "touch b.txt"
`

func TestOrderStepsRejectsCycles(t *testing.T) {
	e := newTestEngine(t, cyclicDoc)
	if _, err := e.orderSteps(); err == nil {
		t.Fatal("expected a cycle error")
	}
}

// Spec.md §8 "auxiliary depending on forward" scenario: an auxiliary rule
// providing a_2 depends on the multi-numbered forward step hg (instances
// hg_1, hg_2), and a default step depends on a_2. Both hg instances must
// be scheduled before the auxiliary, and the auxiliary before the
// dependent step.
const auxiliaryDependsOnForwardDoc = `
name: demo
sections:
  - name: hg
    index: 1
    actions:
      - text: "touch hg_1.done"
  - name: hg
    index: 2
    actions:
      - text: "touch hg_2.done"
  - name: a_2
    provides: a_2
    depends:
      - step: hg
    actions:
      - text: "touch a_2"
  - name: use_a2
    depends:
      - target: a_2
    actions:
      - text: "touch report.txt"
`

func TestOrderStepsAuxiliaryDependsOnMultiNumberedForward(t *testing.T) {
	e := newTestEngine(t, auxiliaryDependsOnForwardDoc)
	order, err := e.orderSteps()
	if err != nil {
		t.Fatalf("orderSteps: %v", err)
	}

	pos := map[string]int{}
	for i, sec := range order {
		pos[fmt.Sprintf("%s_%d", sec.BaseName(), sec.Index)] = i
	}

	if _, ok := pos["hg_1"]; !ok {
		t.Fatal("hg instance 1 missing from order")
	}
	if _, ok := pos["hg_2"]; !ok {
		t.Fatal("hg instance 2 missing from order")
	}
	auxPos, ok := pos["a_2_0"]
	if !ok {
		t.Fatal("auxiliary a_2 missing from order")
	}
	usePos, ok := pos["use_a2_0"]
	if !ok {
		t.Fatal("use_a2 missing from order")
	}

	if pos["hg_1"] >= auxPos || pos["hg_2"] >= auxPos {
		t.Fatalf("both hg instances must precede the auxiliary: hg_1=%d hg_2=%d a_2=%d", pos["hg_1"], pos["hg_2"], auxPos)
	}
	if auxPos >= usePos {
		t.Fatalf("auxiliary a_2 must precede its dependent: a_2=%d use_a2=%d", auxPos, usePos)
	}
}
