// api/schemas/results.go
package schemas

import "time"

// StepStatus is the outcome of a single step.
type StepStatus string

const (
	StepPassed  StepStatus = "passed"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

// StepResult records the outcome of one executed (or skipped) step.
// The interpreter appends exactly one per step it visits, in program order,
// including the marker result for a conditional block.
type StepResult struct {
	StepIndex int        `json:"stepIndex"`
	Action    Action     `json:"action"`
	Target    string     `json:"target,omitempty"`
	Status    StepStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	// ScreenshotRef is a path relative to the run's output directory,
	// populated when a failure screenshot was captured.
	ScreenshotRef string `json:"screenshotRef,omitempty"`
	// ConditionMet is set only on "if" marker results.
	ConditionMet *bool `json:"conditionMet,omitempty"`
}

// RunStatus is the overall outcome of a run.
type RunStatus string

const (
	RunPassed RunStatus = "passed"
	RunFailed RunStatus = "failed"
)

// ExecutionResult is the full record of one run. Status is failed iff any
// step result is failed.
type ExecutionResult struct {
	RunID       string       `json:"runId"`
	TestCase    string       `json:"testCase,omitempty"`
	Status      RunStatus    `json:"status"`
	Steps       []StepResult `json:"steps"`
	StartedAt   time.Time    `json:"startedAt"`
	CompletedAt time.Time    `json:"completedAt"`
	// VideoRef is reserved for drivers that record the session; unset when
	// recording is unavailable.
	VideoRef string `json:"videoRef,omitempty"`
}

// Passed reports whether every step result passed or was skipped.
func (r *ExecutionResult) Passed() bool {
	for i := range r.Steps {
		if r.Steps[i].Status == StepFailed {
			return false
		}
	}
	return true
}
