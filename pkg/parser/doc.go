// Package parser is a concrete, swappable producer of a workflow.AST from a
// YAML workflow document, grounded on the teacher's
// pkg/parser/yaml_parser.go (there a stub returning a hardcoded
// v1alpha1.Cluster; here an actual unmarshal-and-convert pipeline). The
// engine itself only ever consumes the already-parsed workflow.AST, so this
// package is a front end rather than part of the core.
package parser
