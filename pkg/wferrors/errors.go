// Package wferrors defines the typed error kinds raised by the workflow
// engine (spec: target resolution, DAG construction, substep execution).
package wferrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies which clause of the error handling design produced an error.
type Kind string

const (
	KindParse         Kind = "ParseError"
	KindUnknownTarget  Kind = "UnknownTarget"
	KindCyclic         Kind = "CyclicDependency"
	KindDuplicateOut   Kind = "DuplicateOutput"
	KindSubstepFailed  Kind = "SubstepFailed"
	KindSignatureCorrupt Kind = "SignatureCorrupt"
	KindTimeout        Kind = "Timeout"
	KindCancelled      Kind = "Cancelled"
)

// Error is the concrete error type for every engine-raised failure. It wraps
// an underlying cause (often from a collaborator, e.g. the parser) the same
// way the teacher wraps connector/runner failures with fmt.Errorf("...: %w").
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(k Kind, msg string) *Error {
	return &Error{Kind: k, Msg: msg, Cause: errors.New(msg)}
}

// ParseError re-raises a collaborator (parser) failure.
func ParseError(cause error) *Error {
	return &Error{Kind: KindParse, Msg: "parsing workflow script failed", Cause: cause}
}

// UnknownTarget reports that the Resolver could not find or synthesize a
// producer for t.
func UnknownTarget(name string) *Error {
	return newErr(KindUnknownTarget, fmt.Sprintf("no producer for target %q", name))
}

// CyclicDependency reports a dependency cycle found in the graph, given as
// the path of node IDs around it.
func CyclicDependency(path []string) *Error {
	return newErr(KindCyclic, fmt.Sprintf("cyclic dependency: %v", path))
}

// DuplicateOutput reports two substeps declaring the same output path.
func DuplicateOutput(path string, stepA, stepB string) *Error {
	return newErr(KindDuplicateOut, fmt.Sprintf("output %q declared by both %q and %q", path, stepA, stepB))
}

// SignatureCorrupt reports a signature journal that could not be replayed.
func SignatureCorrupt(cause error) *Error {
	return &Error{Kind: KindSignatureCorrupt, Msg: "signature journal is corrupt", Cause: cause}
}

// Timeout reports a deadline exceeded while waiting on a suspension point.
func Timeout(where string) *Error {
	return newErr(KindTimeout, fmt.Sprintf("timed out waiting on %s", where))
}

// Cancelled reports a user interrupt or cascade cancellation.
func Cancelled(reason string) *Error {
	return newErr(KindCancelled, reason)
}
