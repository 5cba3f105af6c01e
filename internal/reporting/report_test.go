// internal/reporting/report_test.go
package reporting

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stridr-dev/stridr/api/schemas"
)

func sampleResult() *schemas.ExecutionResult {
	return &schemas.ExecutionResult{
		RunID:    "run-1",
		TestCase: "login flow",
		Status:   schemas.RunPassed,
		Steps: []schemas.StepResult{
			{StepIndex: 0, Action: schemas.ActionNavigate, Target: "https://app.test", Status: schemas.StepPassed},
			{StepIndex: 1, Action: schemas.ActionClick, Target: "Sign In", Status: schemas.StepPassed},
		},
		StartedAt:   time.Now().Add(-time.Minute),
		CompletedAt: time.Now(),
	}
}

func TestWriteReport(t *testing.T) {
	out := t.TempDir()
	r := NewReporter(nil, out, "run-1")
	assert.Equal(t, filepath.Join(out, "run-1"), r.Dir())

	path, err := r.WriteReport(sampleResult())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "run-1", "report.json"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var got schemas.ExecutionResult
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, "login flow", got.TestCase)
	assert.Len(t, got.Steps, 2)
}

func TestSaveScreenshot(t *testing.T) {
	out := t.TempDir()
	r := NewReporter(nil, out, "run-2")

	png := []byte{0x89, 'P', 'N', 'G'}
	name, err := r.SaveScreenshot(4, png)
	require.NoError(t, err)
	assert.Equal(t, "step-004-failure.png", name, "the returned name is relative to the run directory")

	raw, err := os.ReadFile(filepath.Join(r.Dir(), name))
	require.NoError(t, err)
	assert.Equal(t, png, raw)
}

func TestNewReporterDefaultsOutputDir(t *testing.T) {
	r := NewReporter(nil, "", "run-3")
	assert.Equal(t, filepath.Join("stridr-runs", "run-3"), r.Dir())
}
