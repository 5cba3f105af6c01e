// api/schemas/steps.go
package schemas

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Action identifies what a test step does. The vocabulary is fixed; anything
// outside it is treated as a no-op by the interpreter rather than a failure.
type Action string

const (
	ActionNavigate Action = "navigate"
	ActionClick    Action = "click"
	ActionInput    Action = "input"
	ActionUpload   Action = "upload"
	ActionVerify   Action = "verify"
	ActionBack     Action = "back"
	ActionRefresh  Action = "refresh"
	ActionWait     Action = "wait"
	ActionSet      Action = "set"
	ActionStore    Action = "store"
	ActionAssign   Action = "assign"
	ActionIf       Action = "if"
	ActionElse     Action = "else"
	ActionEndIf    Action = "endif"
)

// IsAssignment reports whether the action writes a variable.
// "set", "store" and "assign" are synonyms kept for author convenience.
func (a Action) IsAssignment() bool {
	return a == ActionSet || a == ActionStore || a == ActionAssign
}

// IsControl reports whether the action is a conditional-block marker.
func (a Action) IsControl() bool {
	return a == ActionIf || a == ActionElse || a == ActionEndIf
}

// TestStep is a single abstract instruction of a test case. Steps are
// immutable once parsed; variable substitution produces new strings and never
// writes back into the step.
type TestStep struct {
	Action Action `yaml:"action" json:"action"`
	// Target identifies the element the step acts on. It is either free text
	// ("Sign In"), an explicit locator ("css=#login"), or, for an "if" step,
	// an inline single-line action to run when the condition holds.
	Target string `yaml:"target,omitempty" json:"target,omitempty"`
	Value  string `yaml:"value,omitempty" json:"value,omitempty"`
	// Condition is evaluated for "if" steps. See the interpreter package for
	// the accepted grammar.
	Condition string `yaml:"condition,omitempty" json:"condition,omitempty"`
	// UseAI delegates element matching to the semantic resolver instead of
	// the locator heuristics, and widens the step timeout accordingly.
	UseAI bool `yaml:"useAI,omitempty" json:"useAI,omitempty"`
	// WaitAfterMs pauses after the step succeeds, for pages that need time
	// to settle before the next instruction.
	WaitAfterMs int `yaml:"waitAfterMs,omitempty" json:"waitAfterMs,omitempty"`
}

// TestCase is an ordered sequence of steps, consumed read-only by a run.
type TestCase struct {
	Name  string     `yaml:"name,omitempty" json:"name,omitempty"`
	Steps []TestStep `yaml:"steps" json:"steps"`
}

// RunOptions carries per-run settings supplied by the caller.
type RunOptions struct {
	// RunID, when set, names the run; otherwise one is generated. Callers set
	// it so artifact paths are known before the run starts.
	RunID    string
	Headless bool
	// SlowMoMs inserts a pacing delay before every physical browser action.
	SlowMoMs int
	// Email and Password, when set, are pre-seeded into the variable store
	// as ${email} and ${password} before the first step runs.
	Email    string
	Password string
	// OutputDir receives the JSON report and failure screenshots.
	OutputDir string
	// GlobalTimeout bounds the whole run. Zero means no bound beyond the
	// per-step adaptive timeouts.
	GlobalTimeout time.Duration
}

// LoadTestCase reads a test case from a YAML or JSON file. The format is
// chosen by extension, with YAML accepted for anything that is not .json.
func LoadTestCase(path string) (*TestCase, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read test case: %w", err)
	}

	var tc TestCase
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(raw, &tc); err != nil {
			return nil, fmt.Errorf("parse test case %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(raw, &tc); err != nil {
			return nil, fmt.Errorf("parse test case %s: %w", path, err)
		}
	}

	if len(tc.Steps) == 0 {
		return nil, fmt.Errorf("test case %s contains no steps", path)
	}
	for i := range tc.Steps {
		tc.Steps[i].Action = Action(strings.ToLower(strings.TrimSpace(string(tc.Steps[i].Action))))
	}
	if tc.Name == "" {
		tc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &tc, nil
}
