package executor

import (
	"time"

	"github.com/sosflow/sosflow/pkg/dag"
	"github.com/sosflow/sosflow/pkg/exprbridge"
	"github.com/sosflow/sosflow/pkg/substep"
	"github.com/sosflow/sosflow/pkg/target"
	"github.com/sosflow/sosflow/pkg/workflow"
)

// Task is one dispatchable unit: a single substep group of a step, with
// everything the executor needs to decide whether to skip it, run it, and
// record the outcome. Generalizes plan.ExecutionNode from "step x hosts" to
// "step x substep group".
type Task struct {
	ID         dag.NodeID
	StepName   string
	GroupIndex int
	Group      substep.Group
	Actions    []workflow.ActionBlock
	AllowError bool
	StopIf     bool // true when the step's stop_if expression evaluated true
	Zap        bool // true when the step calls _input.zap()

	// OutputTemplates are unresolved; the executor renders them against the
	// group's BoundVars via the Evaluator to get concrete output paths.
	OutputTemplates []string
	OutputLabel     string // set when this step's output is named_output(label)

	// Digest is the precomputed signature digest for this task's inputs +
	// bound vars (see signature.CombineDigests), supplied by the caller so
	// the executor stays decoupled from how digesting is done.
	Digest string
}

// TaskResult is the outcome of running (or skipping) one Task.
type TaskResult struct {
	ID         dag.NodeID
	StepName   string
	GroupIndex int
	Status     Status
	Message    string
	Outputs    []target.Target
	Env        exprbridge.Env // delta of every variable this task's actions set
	StartTime  time.Time
	EndTime    time.Time
}

func newTaskResult(t *Task) *TaskResult {
	return &TaskResult{ID: t.ID, StepName: t.StepName, GroupIndex: t.GroupIndex, Status: StatusPending}
}
