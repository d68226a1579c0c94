package config

import (
	"fmt"
	"strings"

	"github.com/sosflow/sosflow/pkg/signature"
)

// validationErrors collects every problem found so the user sees them all
// at once, mirroring the teacher's ValidationErrors accumulate-then-report
// style (grounded on pkg/errors/validation.ValidationErrors).
type validationErrors struct {
	errs []string
}

func (v *validationErrors) add(format string, args ...interface{}) {
	v.errs = append(v.errs, fmt.Sprintf(format, args...))
}

func (v *validationErrors) err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return fmt.Errorf("config: %s", strings.Join(v.errs, "; "))
}

var forceModes = map[string]signature.ForceMode{
	"default": signature.ForceDefault,
	"force":   signature.ForceRun,
	"ignore":  signature.ForceIgnore,
	"build":   signature.ForceBuildOnly,
	"assert":  signature.ForceAssert,
}

// Validate checks cfg for internal consistency after defaults have been
// applied, resolving ForceModeName into the typed ForceMode the rest of the
// engine consumes.
func Validate(cfg *Config) error {
	ve := &validationErrors{}

	if cfg.WorkerCount < 1 {
		ve.add("workerCount must be >= 1, got %d", cfg.WorkerCount)
	}
	if cfg.WorkspaceDir == "" {
		ve.add("workspaceDir must not be empty")
	}

	mode, ok := forceModes[cfg.ForceModeName]
	if !ok {
		ve.add("forceMode %q is not one of default|force|ignore|build|assert", cfg.ForceModeName)
	} else {
		cfg.ForceMode = mode
	}

	return ve.err()
}
