package executor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/sosflow/sosflow/pkg/dag"
	"github.com/sosflow/sosflow/pkg/exprbridge"
	"github.com/sosflow/sosflow/pkg/signature"
	"github.com/sosflow/sosflow/pkg/substep"
	"github.com/sosflow/sosflow/pkg/target"
)

type recordingRunner struct {
	mu  sync.Mutex
	ran []string
	err map[string]error
}

func (r *recordingRunner) RunActions(ctx context.Context, t *Task) (map[string]interface{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ran = append(r.ran, string(t.ID))
	if err, ok := r.err[string(t.ID)]; ok {
		return nil, err
	}
	return map[string]interface{}{"ran": t.ID}, nil
}

func newTestStore(t *testing.T) *signature.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	s, err := signature.Open(path, nil)
	if err != nil {
		t.Fatalf("signature.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestExecuteRunsInDependencyOrder(t *testing.T) {
	g := dag.New()
	g.AddNode("a", "stepA", 0)
	g.AddNode("b", "stepB", 0)
	g.AddDependency("a", "b", dag.EdgeTarget)

	runner := &recordingRunner{err: map[string]error{}}
	ex := New(runner, newTestStore(t))

	tasks := map[dag.NodeID]*Task{
		"a": {ID: "a", StepName: "stepA", Group: groupWithVars(nil), Digest: "d-a"},
		"b": {ID: "b", StepName: "stepB", Group: groupWithVars(nil), Digest: "d-b"},
	}

	res, err := ex.Execute(NewContext(context.Background(), zap.NewNop()), g, tasks, false)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Status != StatusSuccess {
		t.Fatalf("status = %v, want Success", res.Status)
	}
	if len(runner.ran) != 2 || runner.ran[0] != "a" || runner.ran[1] != "b" {
		t.Fatalf("ran order = %v, want [a b]", runner.ran)
	}
}

func TestExecuteCascadesSkipOnFailure(t *testing.T) {
	g := dag.New()
	g.AddNode("a", "stepA", 0)
	g.AddNode("b", "stepB", 0)
	g.AddNode("c", "stepC", 0)
	g.AddDependency("a", "b", dag.EdgeTarget)
	g.AddDependency("b", "c", dag.EdgeTarget)

	runner := &recordingRunner{err: map[string]error{"a": errors.New("boom")}}
	ex := New(runner, newTestStore(t))

	tasks := map[dag.NodeID]*Task{
		"a": {ID: "a", StepName: "stepA", Group: groupWithVars(nil), Digest: "d-a"},
		"b": {ID: "b", StepName: "stepB", Group: groupWithVars(nil), Digest: "d-b"},
		"c": {ID: "c", StepName: "stepC", Group: groupWithVars(nil), Digest: "d-c"},
	}

	res, err := ex.Execute(NewContext(context.Background(), zap.NewNop()), g, tasks, false)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Status != StatusFailed {
		t.Fatalf("status = %v, want Failed", res.Status)
	}
	if res.TaskResults["b"].Status != StatusSkipped || res.TaskResults["c"].Status != StatusSkipped {
		t.Fatalf("b=%v c=%v, want both Skipped", res.TaskResults["b"].Status, res.TaskResults["c"].Status)
	}
}

func TestExecuteSkipsOnUnchangedSignature(t *testing.T) {
	g := dag.New()
	g.AddNode("a", "stepA", 0)

	runner := &recordingRunner{err: map[string]error{}}
	store := newTestStore(t)
	if err := store.Record("stepA#0", "stepA", "same-digest", nil); err != nil {
		t.Fatal(err)
	}
	ex := New(runner, store)

	tasks := map[dag.NodeID]*Task{
		"a": {ID: "a", StepName: "stepA", GroupIndex: 0, Group: groupWithVars(nil), Digest: "same-digest"},
	}

	res, err := ex.Execute(NewContext(context.Background(), zap.NewNop()), g, tasks, false)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.TaskResults["a"].Status != StatusSkipped {
		t.Fatalf("status = %v, want Skipped due to signature hit", res.TaskResults["a"].Status)
	}
	if len(runner.ran) != 0 {
		t.Fatalf("runner should not have run a signature-hit task, ran %v", runner.ran)
	}
}

func TestExecuteAllowErrorDowngradesFailure(t *testing.T) {
	g := dag.New()
	g.AddNode("a", "stepA", 0)

	runner := &recordingRunner{err: map[string]error{"a": errors.New("transient")}}
	ex := New(runner, newTestStore(t))

	tasks := map[dag.NodeID]*Task{
		"a": {ID: "a", StepName: "stepA", Group: groupWithVars(nil), Digest: "d-a", AllowError: true},
	}

	res, err := ex.Execute(NewContext(context.Background(), zap.NewNop()), g, tasks, false)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Status != StatusSuccess || res.TaskResults["a"].Status != StatusSuccess {
		t.Fatalf("allow_error should downgrade failure to success, got %v", res.TaskResults["a"].Status)
	}
}

func TestExecuteStopIfSkipsWithoutRunning(t *testing.T) {
	g := dag.New()
	g.AddNode("a", "stepA", 0)

	runner := &recordingRunner{err: map[string]error{}}
	ex := New(runner, newTestStore(t))

	tasks := map[dag.NodeID]*Task{
		"a": {ID: "a", StepName: "stepA", Group: groupWithVars(nil), Digest: "d-a", StopIf: true},
	}

	res, err := ex.Execute(NewContext(context.Background(), zap.NewNop()), g, tasks, false)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.TaskResults["a"].Status != StatusSuccess {
		t.Fatalf("stop_if task should be vacuously successful, got %v", res.TaskResults["a"].Status)
	}
	if len(runner.ran) != 0 {
		t.Fatalf("stop_if task must not run its actions, ran %v", runner.ran)
	}
}

// Spec.md §8 "failure cleanup" scenario: an auxiliary rule touches its
// output then runs an invalid command; a downstream step depends on that
// output. Expected: neither the failed producer's output nor the
// downstream step's output survive the failed run, and the downstream
// step never runs.
func TestExecuteFailureCleanupRemovesPartialOutputs(t *testing.T) {
	dir := t.TempDir()
	failedCSV := filepath.Join(dir, "failed.csv")
	resultCSV := filepath.Join(dir, "result.csv")

	// Simulate the producing action having already written its output
	// before the subsequent invalid command made it fail.
	if err := os.WriteFile(failedCSV, []byte("partial"), 0o644); err != nil {
		t.Fatalf("seed failed.csv: %v", err)
	}

	g := dag.New()
	g.AddNode("producer", "makeFailed", 0)
	g.AddNode("consumer", "makeResult", 0)
	g.AddDependency("producer", "consumer", dag.EdgeTarget)

	runner := &recordingRunner{err: map[string]error{"producer": errors.New("invalid command")}}
	ex := New(runner, newTestStore(t))
	ex.TargetRes = target.NewResolver()

	tasks := map[dag.NodeID]*Task{
		"producer": {ID: "producer", StepName: "makeFailed", Group: groupWithVars(nil), Digest: "d-producer", OutputTemplates: []string{failedCSV}},
		"consumer": {ID: "consumer", StepName: "makeResult", Group: groupWithVars(nil), Digest: "d-consumer", OutputTemplates: []string{resultCSV}},
	}

	res, err := ex.Execute(NewContext(context.Background(), zap.NewNop()), g, tasks, false)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Status != StatusFailed {
		t.Fatalf("status = %v, want Failed", res.Status)
	}
	if res.TaskResults["consumer"].Status != StatusSkipped {
		t.Fatalf("consumer status = %v, want Skipped", res.TaskResults["consumer"].Status)
	}
	if len(runner.ran) != 1 || runner.ran[0] != "producer" {
		t.Fatalf("only the producer should have run, ran %v", runner.ran)
	}
	if _, err := os.Stat(failedCSV); !os.IsNotExist(err) {
		t.Errorf("failed.csv should have been cleaned up after the producer failed, stat err = %v", err)
	}
	if _, err := os.Stat(resultCSV); !os.IsNotExist(err) {
		t.Errorf("result.csv should never have been created, stat err = %v", err)
	}
}

func groupWithVars(vars exprbridge.Env) substep.Group {
	return substep.Group{BoundVars: vars}
}
