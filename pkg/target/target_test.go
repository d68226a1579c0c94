package target

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileTargetResolve(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.txt")

	r := NewResolver()
	st, err := r.Resolve(context.Background(), NewFile(p))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if st != Missing {
		t.Fatalf("expected Missing before creation, got %v", st)
	}

	if err := os.WriteFile(p, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	st, err = r.Resolve(context.Background(), NewFile(p))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if st != Resolved {
		t.Fatalf("expected Resolved after creation, got %v", st)
	}
}

func TestDigestStableForUnchangedContent(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(p, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := NewResolver()
	d1, err := r.DigestHex(NewFile(p))
	if err != nil {
		t.Fatal(err)
	}
	d2, err := r.DigestHex(NewFile(p))
	if err != nil {
		t.Fatal(err)
	}
	if d1 != d2 {
		t.Fatalf("digest not stable: %s != %s", d1, d2)
	}

	if err := os.WriteFile(p, []byte("world"), 0o644); err != nil {
		t.Fatal(err)
	}
	d3, err := r.DigestHex(NewFile(p))
	if err != nil {
		t.Fatal(err)
	}
	if d3 == d1 {
		t.Fatalf("digest did not change after content changed")
	}
}

func TestZapKeepsMarkerNotContent(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(p, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := NewResolver()
	ft := NewFile(p)
	if err := r.Zap(ft); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Fatalf("expected original content removed after zap")
	}
	if !IsZapped(ft) {
		t.Fatalf("expected IsZapped true after zap")
	}
}

func TestEqualityIgnoresSource(t *testing.T) {
	a := NewFile("/x/a.txt")
	b := a.WithSource("stepA")
	if !Equal(a, b) {
		t.Fatalf("expected targets to be equal regardless of source")
	}
	if b.Source() != "stepA" {
		t.Fatalf("expected source to be attached")
	}
	if a.Source() != "" {
		t.Fatalf("original target must remain unmodified (immutable WithSource)")
	}
}

func TestDuplicateFileTargetsPreserved(t *testing.T) {
	// spec.md §4.1: duplicates are preserved in ordered containers.
	inputs := []Target{NewFile("a.txt"), NewFile("a.txt"), NewFile("b.txt")}
	if len(inputs) != 3 {
		t.Fatalf("expected duplicates preserved, got %d", len(inputs))
	}
}
