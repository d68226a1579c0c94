package config

import "runtime"

const (
	DefaultWorkspaceDir = ".sosflow"
	DefaultForceMode    = "default"
)

// SetDefaults applies default values to fields the user left unset,
// mirroring the teacher's SetDefaults_Cluster (in-place, nil-safe).
func SetDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = runtime.NumCPU()
	}
	if cfg.WorkspaceDir == "" {
		cfg.WorkspaceDir = DefaultWorkspaceDir
	}
	if cfg.ForceModeName == "" {
		cfg.ForceModeName = DefaultForceMode
	}
}
