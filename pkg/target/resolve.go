package target

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Status is the result of Resolve.
type Status int

const (
	Missing Status = iota
	Resolved
)

// DefaultDigestSizeLimit is the default ceiling below which Digest hashes
// full file content; above it, Digest falls back to size+mtime. Grounded on
// spec.md §4.1 ("digest is content-based for files under a configurable
// size limit, size+mtime fallback above it"); overridable via the
// Resolver's SizeLimit field.
const DefaultDigestSizeLimit = 64 * 1024 * 1024 // 64MiB

// Resolver evaluates on-disk/engine state for targets. A single Resolver is
// shared across workers; it holds no mutable state besides its size limit,
// so it is safe for concurrent use the same way the teacher's stateless
// workers are (engine.runStepOnHost takes no shared state).
type Resolver struct {
	SizeLimit int64
	// StepCompletions reports whether every substep of a step (and every
	// numbered instance of it) has terminated non-failing. Supplied by the
	// executor so target resolution can observe step state without the
	// target package depending on dag/executor (avoids an import cycle).
	StepCompletions func(stepName string) (bool, error)
	// VariablesAvailable reports whether a shared variable has been published.
	VariablesAvailable func(name string) bool
}

func NewResolver() *Resolver {
	return &Resolver{SizeLimit: DefaultDigestSizeLimit}
}

// NormalizePath returns the absolute, symlink-resolved form of p. Grounded
// on common/paths.go's path-constant conventions, generalized from a fixed
// .kubexm/<cluster> tree to arbitrary workflow-relative paths.
func NormalizePath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("normalize path %q: %w", p, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	// Not present yet (e.g. a not-yet-produced output) — abs path is still
	// a stable identity.
	return abs, nil
}

// Resolve reports whether t is currently satisfied.
func (r *Resolver) Resolve(ctx context.Context, t Target) (Status, error) {
	switch v := t.(type) {
	case *File:
		if _, err := os.Stat(v.Path); err != nil {
			if os.IsNotExist(err) {
				return Missing, nil
			}
			return Missing, err
		}
		return Resolved, nil
	case *NamedOutput:
		for _, f := range v.Files {
			st, err := r.Resolve(ctx, f)
			if err != nil || st != Resolved {
				return Missing, err
			}
		}
		return Resolved, nil
	case *StepCompletion:
		if r.StepCompletions == nil {
			return Missing, fmt.Errorf("target: no StepCompletions oracle configured")
		}
		ok, err := r.StepCompletions(v.StepName)
		if err != nil {
			return Missing, err
		}
		if ok {
			return Resolved, nil
		}
		return Missing, nil
	case *VariableAvailable:
		if r.VariablesAvailable != nil && r.VariablesAvailable(v.Name) {
			return Resolved, nil
		}
		return Missing, nil
	case *Executable:
		path, err := execLookPath(v.Name)
		if err != nil || path == "" {
			return Missing, nil
		}
		return Resolved, nil
	default:
		return Missing, fmt.Errorf("target: unknown target type %T", t)
	}
}

// Digest returns a content-derived fingerprint for t. For files at or below
// SizeLimit this is a sha256 of the content; above it it falls back to
// "size:<bytes>:mtime:<unixNano>". Stat, open and read errors are returned.
func (r *Resolver) Digest(t Target) ([]byte, error) {
	f, ok := t.(*File)
	if !ok {
		return []byte(MapKey(t)), nil
	}
	info, err := os.Stat(f.Path)
	if err != nil {
		return nil, err
	}
	limit := r.SizeLimit
	if limit <= 0 {
		limit = DefaultDigestSizeLimit
	}
	if info.Size() > limit {
		return []byte(fmt.Sprintf("size:%d:mtime:%d", info.Size(), info.ModTime().UnixNano())), nil
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	h := sha256.New()
	if _, err := io.Copy(h, fh); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

// DigestHex is a convenience wrapper returning Digest as a hex string.
func (r *Resolver) DigestHex(t Target) (string, error) {
	b, err := r.Digest(t)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// zappedSuffix is appended to a file's path to form its marker path.
const zappedSuffix = ".zapped"

// Zap writes a marker file beside t's backing file (its path plus
// ".zapped") and removes the file itself. Per spec.md §4.5 "_input.zap()".
// Only IsZapped consults the marker: Resolve reports a zapped file as
// Missing, and a signature record whose output was zapped no longer hits.
func (r *Resolver) Zap(t Target) error {
	f, ok := t.(*File)
	if !ok {
		return fmt.Errorf("target: Zap only supported on FileTarget, got %T", t)
	}
	marker := f.Path + zappedSuffix
	if err := os.WriteFile(marker, []byte("zapped\n"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// IsZapped reports whether t's marker file exists in place of its content.
func IsZapped(t Target) bool {
	f, ok := t.(*File)
	if !ok {
		return false
	}
	_, err := os.Stat(f.Path + zappedSuffix)
	return err == nil
}

// Touch creates t's backing file if absent, or updates its mtime if present.
func (r *Resolver) Touch(t Target) error {
	_, err := r.touch(t)
	return err
}

// TouchPlaceholder is Touch plus whether it actually created the file (as
// opposed to finding it already present and only bumping its mtime). Dry-run
// needs this distinction: a placeholder it created itself is safe to delete
// afterward, but a pre-existing file must be left alone (spec.md §4.5 "the
// filesystem appears unchanged").
func (r *Resolver) TouchPlaceholder(t Target) (created bool, err error) {
	return r.touch(t)
}

func (r *Resolver) touch(t Target) (created bool, err error) {
	f, ok := t.(*File)
	if !ok {
		return false, fmt.Errorf("target: Touch only supported on FileTarget, got %T", t)
	}
	if dir := filepath.Dir(f.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, err
		}
	}
	now := time.Now()
	if fh, err := os.OpenFile(f.Path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644); err == nil {
		fh.Close()
		return true, os.Chtimes(f.Path, now, now)
	}
	if _, err := os.Stat(f.Path); err == nil {
		return false, os.Chtimes(f.Path, now, now)
	}
	return false, nil
}

// Delete removes t's backing file(s), used to clean outputs of a failed
// (non-allow_error) substep per spec.md §4.5/§7.
func (r *Resolver) Delete(t Target) error {
	switch v := t.(type) {
	case *File:
		if err := os.Remove(v.Path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	case *NamedOutput:
		for _, f := range v.Files {
			if err := r.Delete(f); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}
