// api/schemas/steps_test.go
package schemas

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTestCaseYAML(t *testing.T) {
	path := writeTemp(t, "login.yaml", `
name: login flow
steps:
  - action: Navigate
    target: https://app.test/login
  - action: INPUT
    target: Email Address
    value: ${email}
  - action: click
    target: Sign In
    waitAfterMs: 250
`)

	tc, err := LoadTestCase(path)
	require.NoError(t, err)
	assert.Equal(t, "login flow", tc.Name)
	require.Len(t, tc.Steps, 3)
	// Actions are normalized to lower case regardless of authoring style.
	assert.Equal(t, ActionNavigate, tc.Steps[0].Action)
	assert.Equal(t, ActionInput, tc.Steps[1].Action)
	assert.Equal(t, ActionClick, tc.Steps[2].Action)
	assert.Equal(t, 250, tc.Steps[2].WaitAfterMs)
}

func TestLoadTestCaseJSON(t *testing.T) {
	path := writeTemp(t, "case.json", `{
  "steps": [
    {"action": "navigate", "target": "https://app.test"},
    {"action": "verify", "target": "Dashboard", "useAI": true}
  ]
}`)

	tc, err := LoadTestCase(path)
	require.NoError(t, err)
	assert.Equal(t, "case", tc.Name, "name defaults to the file basename")
	require.Len(t, tc.Steps, 2)
	assert.True(t, tc.Steps[1].UseAI)
}

func TestLoadTestCaseEmptySteps(t *testing.T) {
	path := writeTemp(t, "empty.yaml", `name: empty`)
	_, err := LoadTestCase(path)
	assert.Error(t, err)
}

func TestLoadTestCaseMissingFile(t *testing.T) {
	_, err := LoadTestCase(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestActionPredicates(t *testing.T) {
	assert.True(t, ActionSet.IsAssignment())
	assert.True(t, ActionStore.IsAssignment())
	assert.True(t, ActionAssign.IsAssignment())
	assert.False(t, ActionClick.IsAssignment())

	assert.True(t, ActionIf.IsControl())
	assert.True(t, ActionElse.IsControl())
	assert.True(t, ActionEndIf.IsControl())
	assert.False(t, ActionWait.IsControl())
}

func TestExecutionResultPassed(t *testing.T) {
	r := &ExecutionResult{Steps: []StepResult{
		{Status: StepPassed},
		{Status: StepSkipped},
	}}
	assert.True(t, r.Passed())

	r.Steps = append(r.Steps, StepResult{Status: StepFailed})
	assert.False(t, r.Passed())
}

func TestElementStrategyNavigational(t *testing.T) {
	tests := []struct {
		name string
		s    ElementStrategy
		want bool
	}{
		{"href in reasoning", ElementStrategy{Reasoning: "href fragment match"}, true},
		{"nav in selector", ElementStrategy{Selector: ".main-nav a"}, true},
		{"button reasoning", ElementStrategy{Reasoning: "exact text match on clickable <button>"}, true},
		{"plain", ElementStrategy{Selector: "#thing", Reasoning: "class name heuristic"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.s.Navigational())
		})
	}
}
