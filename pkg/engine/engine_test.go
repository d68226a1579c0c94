package engine

import (
	"context"
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/sosflow/sosflow/pkg/executor"
	"github.com/sosflow/sosflow/pkg/parser"
	"github.com/sosflow/sosflow/pkg/signature"
)

func TestEngineRunDryRunSucceeds(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	ast, err := parser.Parse([]byte(twoStepDoc))
	if err != nil {
		t.Fatalf("parser.Parse: %v", err)
	}

	store, err := signature.Open(dir+"/journal.jsonl", nil)
	if err != nil {
		t.Fatalf("signature.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	e := New(ast, nil, store, zap.NewNop())
	result, err := e.Run(context.Background(), true)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != executor.StatusSuccess {
		t.Fatalf("Status = %v, want Success", result.Status)
	}
	if len(result.TaskResults) != 2 {
		t.Fatalf("len(TaskResults) = %d, want 2", len(result.TaskResults))
	}
}

func TestEngineRunUnresolvedDependencyFails(t *testing.T) {
	ast, err := parser.Parse([]byte(`
name: demo
sections:
  - name: orphan
    depends:
      - target: does-not-exist.txt
    actions:
      - text: "touch x"
`))
	if err != nil {
		t.Fatalf("parser.Parse: %v", err)
	}

	store, err := signature.Open(t.TempDir()+"/journal.jsonl", nil)
	if err != nil {
		t.Fatalf("signature.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	e := New(ast, nil, store, zap.NewNop())
	if _, err := e.Run(context.Background(), true); err == nil {
		t.Fatal("expected an UnknownTarget error for an unresolved dependency")
	}
}
