package config

import "path/filepath"

// RunDir returns the per-run workspace directory under cfg.WorkspaceDir,
// e.g. ".sosflow/<run-id>/", grounded on the teacher's
// ".kubexm/<cluster>/..." layout convention (common/directory_constants.go,
// common/paths.go) adapted from a per-cluster to a per-run directory.
func (c *Config) RunDir(runID string) string {
	return filepath.Join(c.WorkspaceDir, runID)
}

// JournalPath is the signature store's append-only journal file for a run.
func (c *Config) JournalPath(runID string) string {
	return filepath.Join(c.RunDir(runID), "signatures.journal")
}

// IndexPath is the signature store's compacted index snapshot for a run.
func (c *Config) IndexPath(runID string) string {
	return filepath.Join(c.RunDir(runID), "signatures.idx")
}

// ExecutionLogPath is the run's structured execution log file.
func (c *Config) ExecutionLogPath(runID string) string {
	return filepath.Join(c.RunDir(runID), "execution.log")
}
