// Package config loads and validates the engine's run configuration,
// following the teacher's load -> defaults -> validate pipeline (its
// config.ParseFromFile / SetDefaults_Cluster / Validate_Cluster sequence),
// generalized from a Kubernetes cluster spec to a workflow run spec.
package config

import "github.com/sosflow/sosflow/pkg/signature"

// Config is the engine's run configuration (spec.md §6 CLI surface plus
// the execution knobs the executor/signature packages need).
type Config struct {
	// WorkerCount bounds concurrent substep dispatch (spec.md §5, -j flag).
	WorkerCount int `yaml:"workerCount"`

	// ForceMode controls signature-store consultation (spec.md §4.2).
	ForceMode signature.ForceMode `yaml:"-"`
	ForceModeName string `yaml:"forceMode"`

	// DryRun touches and deletes placeholder outputs instead of running
	// actions (spec.md §4.5, --dryrun flag).
	DryRun bool `yaml:"dryRun"`

	// WorkspaceDir is the root directory holding the signature journal and
	// any other per-run state (spec.md §6, ".sosflow/<run-id>/...").
	WorkspaceDir string `yaml:"workspaceDir"`

	// Verbose is loaded from the config file only; the CLI does not read it
	// (its --verbose flag sets the console log level instead).
	Verbose bool `yaml:"verbose"`
}
