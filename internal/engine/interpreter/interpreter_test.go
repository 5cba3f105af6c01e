// internal/engine/interpreter/interpreter_test.go
package interpreter

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stridr-dev/stridr/api/schemas"
	"github.com/stridr-dev/stridr/internal/config"
	"github.com/stridr-dev/stridr/internal/engine/executor"
	"github.com/stridr-dev/stridr/internal/engine/locator"
	"github.com/stridr-dev/stridr/internal/engine/resolver"
)

var errNoMatch = errors.New("no match")

// fakeDriver scripts the full driver surface by candidate query string.
type fakeDriver struct {
	attached map[string]bool
	visible  map[string]bool
	bodyText string
	url      string
	title    string
	snapshot []schemas.FrameSnapshot

	navs    []string
	clicks  []string
	fills   map[string]string
	files   map[string][]string
	backs   int
	reloads int
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		attached: map[string]bool{},
		visible:  map[string]bool{},
		fills:    map[string]string{},
		files:    map[string][]string{},
	}
}

func (f *fakeDriver) matches(c locator.Candidate) bool {
	return f.attached[c.Query] || f.visible[c.Query]
}

func (f *fakeDriver) URL(ctx context.Context) (string, error)         { return f.url, nil }
func (f *fakeDriver) Title(ctx context.Context) (string, error)       { return f.title, nil }
func (f *fakeDriver) VisibleText(ctx context.Context) (string, error) { return f.bodyText, nil }

func (f *fakeDriver) WaitAttached(ctx context.Context, c locator.Candidate, _ time.Duration) error {
	if f.matches(c) {
		return nil
	}
	return errNoMatch
}

func (f *fakeDriver) WaitVisible(ctx context.Context, c locator.Candidate, _ time.Duration) error {
	if f.visible[c.Query] {
		return nil
	}
	return errNoMatch
}

func (f *fakeDriver) Click(ctx context.Context, c locator.Candidate, _ time.Duration) error {
	if !f.matches(c) {
		return errNoMatch
	}
	f.clicks = append(f.clicks, c.Query)
	return nil
}

func (f *fakeDriver) Fill(ctx context.Context, c locator.Candidate, value string, _ time.Duration) error {
	if !f.matches(c) {
		return errNoMatch
	}
	f.fills[c.Query] = value
	return nil
}

func (f *fakeDriver) DispatchClick(ctx context.Context, c locator.Candidate) error { return errNoMatch }

func (f *fakeDriver) ElementState(ctx context.Context, c locator.Candidate) (executor.ElementState, error) {
	if f.matches(c) {
		return executor.ElementState{Exists: true, Visible: true}, nil
	}
	return executor.ElementState{}, nil
}

func (f *fakeDriver) ElementText(ctx context.Context, c locator.Candidate) (string, error) {
	return "", nil
}

func (f *fakeDriver) IsVisible(ctx context.Context, c locator.Candidate) (bool, error) {
	return f.visible[c.Query], nil
}

func (f *fakeDriver) SetFiles(ctx context.Context, c locator.Candidate, files []string) error {
	f.files[c.Query] = files
	return nil
}

func (f *fakeDriver) ClickStrategy(ctx context.Context, s schemas.ElementStrategy, _ time.Duration) error {
	return errNoMatch
}

func (f *fakeDriver) StrategyVisible(ctx context.Context, s schemas.ElementStrategy) (bool, error) {
	return false, nil
}

func (f *fakeDriver) ScrollTop(ctx context.Context) error            { return nil }
func (f *fakeDriver) ScrollBy(ctx context.Context, pixels int) error { return nil }
func (f *fakeDriver) Sleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

func (f *fakeDriver) WaitNetworkIdle(ctx context.Context, quiet, timeout time.Duration) error {
	return errors.New("network busy")
}

func (f *fakeDriver) Snapshot(ctx context.Context) ([]schemas.FrameSnapshot, error) {
	return f.snapshot, nil
}

func (f *fakeDriver) Navigate(ctx context.Context, url string) error {
	f.navs = append(f.navs, url)
	f.url = url
	return nil
}

func (f *fakeDriver) Back(ctx context.Context) error   { f.backs++; return nil }
func (f *fakeDriver) Reload(ctx context.Context) error { f.reloads++; return nil }

func (f *fakeDriver) Screenshot(ctx context.Context) ([]byte, error) {
	return []byte{0x89, 'P', 'N', 'G'}, nil
}

var _ Driver = (*fakeDriver)(nil)

// fakeSink records saved screenshots by step index.
type fakeSink struct {
	saved map[int][]byte
}

func newFakeSink() *fakeSink { return &fakeSink{saved: map[int][]byte{}} }

func (s *fakeSink) SaveScreenshot(stepIndex int, png []byte) (string, error) {
	s.saved[stepIndex] = png
	return fmt.Sprintf("step-%03d-failure.png", stepIndex), nil
}

func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		BaseStepTimeout:     2 * time.Second,
		SemanticStepTimeout: 2 * time.Second,
		SignInTimeout:       2 * time.Second,
		MenuTimeout:         2 * time.Second,
		DropdownTimeout:     2 * time.Second,
		SettingsTimeout:     2 * time.Second,
		CreationTimeout:     2 * time.Second,
		WaitFloor:           time.Millisecond,
		AttachTimeout:       5 * time.Millisecond,
		ActionTimeout:       5 * time.Millisecond,
		RetryVisibleWait:    5 * time.Millisecond,
		RetryActionTimeout:  20 * time.Millisecond,
		ForcedClickLimit:    8,
		ScrollIncrements:    1,
		NetworkIdleQuiet:    time.Millisecond,
		NetworkIdleTimeout:  2 * time.Millisecond,
	}
}

func newTestInterpreter(driver *fakeDriver, sink ArtifactSink) *Interpreter {
	return New(nil, driver, resolver.New(nil), testEngineConfig(), sink)
}

func TestRunLoginFlow(t *testing.T) {
	driver := newFakeDriver()
	driver.attached[`input[type="email"]`] = true
	driver.attached[`input[type="password"]`] = true
	driver.attached[`button[type="submit"]`] = true
	driver.visible[`//*[contains(normalize-space(.), 'Dashboard')]`] = true

	tc := &schemas.TestCase{
		Name: "login",
		Steps: []schemas.TestStep{
			{Action: schemas.ActionNavigate, Target: "https://app.test/login"},
			{Action: schemas.ActionInput, Target: "Email Address", Value: "${email}"},
			{Action: schemas.ActionInput, Target: "Your Password", Value: "${password}"},
			{Action: schemas.ActionClick, Target: "Sign In"},
			{Action: schemas.ActionVerify, Target: "Dashboard"},
		},
	}

	it := newTestInterpreter(driver, nil)
	result, err := it.Run(context.Background(), tc, schemas.RunOptions{
		Email:    "user@example.com",
		Password: "hunter2",
	})

	require.NoError(t, err)
	assert.Equal(t, schemas.RunPassed, result.Status)
	require.Len(t, result.Steps, 5)
	for _, s := range result.Steps {
		assert.Equal(t, schemas.StepPassed, s.Status, "step %d", s.StepIndex)
	}
	assert.Equal(t, []string{"https://app.test/login"}, driver.navs)
	assert.Equal(t, "user@example.com", driver.fills[`input[type="email"]`])
	assert.Equal(t, "hunter2", driver.fills[`input[type="password"]`])
	assert.NotEmpty(t, result.RunID)
}

func TestRunConditionalFalseTakesElseBranch(t *testing.T) {
	driver := newFakeDriver()
	driver.bodyText = "Hello stranger"

	tc := &schemas.TestCase{
		Name: "conditional",
		Steps: []schemas.TestStep{
			{Action: schemas.ActionIf, Condition: "text=Welcome back -> seen"},
			{Action: schemas.ActionNavigate, Target: "https://app.test/known"},
			{Action: schemas.ActionElse},
			{Action: schemas.ActionNavigate, Target: "https://app.test/${seen}"},
			{Action: schemas.ActionEndIf},
		},
	}

	it := newTestInterpreter(driver, nil)
	result, err := it.Run(context.Background(), tc, schemas.RunOptions{})

	require.NoError(t, err)
	assert.Equal(t, schemas.RunPassed, result.Status)
	require.Len(t, result.Steps, 2, "marker plus the else-branch step")

	marker := result.Steps[0]
	assert.Equal(t, schemas.ActionIf, marker.Action)
	assert.Equal(t, schemas.StepSkipped, marker.Status)
	require.NotNil(t, marker.ConditionMet)
	assert.False(t, *marker.ConditionMet)

	// The capture variable recorded the negative outcome as the literal
	// "false", visible through substitution in the else branch.
	assert.Equal(t, []string{"https://app.test/false"}, driver.navs)
}

func TestRunConditionalTrueSkipsElseBranch(t *testing.T) {
	driver := newFakeDriver()
	driver.bodyText = "Welcome back, Alice"

	tc := &schemas.TestCase{
		Name: "conditional-true",
		Steps: []schemas.TestStep{
			{Action: schemas.ActionIf, Condition: "text=Welcome back"},
			{Action: schemas.ActionNavigate, Target: "https://app.test/a"},
			{Action: schemas.ActionElse},
			{Action: schemas.ActionNavigate, Target: "https://app.test/b"},
			{Action: schemas.ActionEndIf},
			{Action: schemas.ActionNavigate, Target: "https://app.test/c"},
		},
	}

	it := newTestInterpreter(driver, nil)
	result, err := it.Run(context.Background(), tc, schemas.RunOptions{})

	require.NoError(t, err)
	assert.Equal(t, schemas.RunPassed, result.Status)
	assert.Equal(t, []string{"https://app.test/a", "https://app.test/c"}, driver.navs)

	marker := result.Steps[0]
	assert.Equal(t, schemas.StepPassed, marker.Status)
	require.NotNil(t, marker.ConditionMet)
	assert.True(t, *marker.ConditionMet)
}

func TestRunStandaloneIfExecutesInlineAction(t *testing.T) {
	driver := newFakeDriver()
	driver.bodyText = "Welcome back"

	tc := &schemas.TestCase{
		Name: "standalone",
		Steps: []schemas.TestStep{
			{Action: schemas.ActionIf, Condition: "text=Welcome back", Target: "set greeted=yes"},
			{Action: schemas.ActionNavigate, Target: "https://app.test/${greeted}"},
		},
	}

	it := newTestInterpreter(driver, nil)
	result, err := it.Run(context.Background(), tc, schemas.RunOptions{})

	require.NoError(t, err)
	assert.Equal(t, schemas.RunPassed, result.Status)
	assert.Equal(t, []string{"https://app.test/yes"}, driver.navs)
	// Marker, inline assignment, navigate.
	assert.Len(t, result.Steps, 3)
}

func TestRunStandaloneIfFalseAssignsFalse(t *testing.T) {
	driver := newFakeDriver()
	driver.bodyText = "nothing here"

	tc := &schemas.TestCase{
		Name: "standalone-false",
		Steps: []schemas.TestStep{
			{Action: schemas.ActionIf, Condition: "text=Welcome back", Target: "set greeted=yes"},
			{Action: schemas.ActionNavigate, Target: "https://app.test/${greeted}"},
		},
	}

	it := newTestInterpreter(driver, nil)
	result, err := it.Run(context.Background(), tc, schemas.RunOptions{})

	require.NoError(t, err)
	assert.Equal(t, schemas.RunPassed, result.Status)
	assert.Equal(t, []string{"https://app.test/false"}, driver.navs,
		"inline set in a false branch records the literal false")
	assert.Equal(t, schemas.StepSkipped, result.Steps[0].Status)
}

func TestRunFailureAbortsAndCapturesScreenshot(t *testing.T) {
	driver := newFakeDriver()
	sink := newFakeSink()

	tc := &schemas.TestCase{
		Name: "failing",
		Steps: []schemas.TestStep{
			{Action: schemas.ActionClick, Target: "Missing Thing"},
			{Action: schemas.ActionNavigate, Target: "https://app.test/never"},
		},
	}

	it := newTestInterpreter(driver, sink)
	result, err := it.Run(context.Background(), tc, schemas.RunOptions{})

	require.NoError(t, err, "step failure is reported through the result, not the error")
	assert.Equal(t, schemas.RunFailed, result.Status)
	require.Len(t, result.Steps, 1, "fail-fast: nothing after the failed step runs")

	failed := result.Steps[0]
	assert.Equal(t, schemas.StepFailed, failed.Status)
	assert.NotEmpty(t, failed.Error)
	assert.Equal(t, "step-000-failure.png", failed.ScreenshotRef)
	assert.NotEmpty(t, sink.saved[0])
	assert.Empty(t, driver.navs)
}

func TestRunFailedStepCarriesTypedErrorText(t *testing.T) {
	driver := newFakeDriver()

	tc := &schemas.TestCase{
		Name:  "typed",
		Steps: []schemas.TestStep{{Action: schemas.ActionVerify, Target: "Absent Banner"}},
	}

	it := newTestInterpreter(driver, nil)
	result, err := it.Run(context.Background(), tc, schemas.RunOptions{})

	require.NoError(t, err)
	require.Len(t, result.Steps, 1)
	assert.Contains(t, result.Steps[0].Error, "nothing visible matches")
}

func TestRunUploadFlow(t *testing.T) {
	driver := newFakeDriver()
	driver.attached[`input[type="file"]`] = true

	tc := &schemas.TestCase{
		Name: "upload",
		Steps: []schemas.TestStep{
			{Action: schemas.ActionUpload, Target: "Receipt", Value: "file:/tmp/receipt.pdf"},
		},
	}

	it := newTestInterpreter(driver, nil)
	result, err := it.Run(context.Background(), tc, schemas.RunOptions{})

	require.NoError(t, err)
	assert.Equal(t, schemas.RunPassed, result.Status)
	assert.Equal(t, []string{"/tmp/receipt.pdf"}, driver.files[`input[type="file"]`])
}

func TestRunBackRefreshWaitAndAssignments(t *testing.T) {
	driver := newFakeDriver()

	tc := &schemas.TestCase{
		Name: "misc",
		Steps: []schemas.TestStep{
			{Action: schemas.ActionBack},
			{Action: schemas.ActionRefresh},
			{Action: schemas.ActionWait, Target: "1"},
			{Action: schemas.ActionStore, Target: "plan", Value: "pro"},
			{Action: schemas.ActionNavigate, Target: "https://app.test/${plan}"},
		},
	}

	it := newTestInterpreter(driver, nil)
	result, err := it.Run(context.Background(), tc, schemas.RunOptions{})

	require.NoError(t, err)
	assert.Equal(t, schemas.RunPassed, result.Status)
	assert.Equal(t, 1, driver.backs)
	assert.Equal(t, 1, driver.reloads)
	assert.Equal(t, []string{"https://app.test/pro"}, driver.navs)
}

func TestRunHonorsProvidedRunID(t *testing.T) {
	driver := newFakeDriver()

	tc := &schemas.TestCase{
		Name:  "id",
		Steps: []schemas.TestStep{{Action: schemas.ActionStore, Target: "x", Value: "1"}},
	}

	it := newTestInterpreter(driver, nil)
	result, err := it.Run(context.Background(), tc, schemas.RunOptions{RunID: "fixed-id"})

	require.NoError(t, err)
	assert.Equal(t, "fixed-id", result.RunID)
}

func TestRunRejectsEmptyCase(t *testing.T) {
	it := newTestInterpreter(newFakeDriver(), nil)
	_, err := it.Run(context.Background(), &schemas.TestCase{Name: "empty"}, schemas.RunOptions{})
	assert.Error(t, err)
}

func TestStepTimeoutTable(t *testing.T) {
	it := newTestInterpreter(newFakeDriver(), nil)
	cfg := it.cfg

	tests := []struct {
		name   string
		step   schemas.TestStep
		target string
		want   time.Duration
	}{
		{"sign in beats semantic", schemas.TestStep{UseAI: true}, "Sign In now", cfg.SignInTimeout},
		{"semantic flag", schemas.TestStep{UseAI: true}, "Reports panel", cfg.SemanticStepTimeout},
		{"menu", schemas.TestStep{}, "expand workspace menu", cfg.MenuTimeout},
		{"dropdown", schemas.TestStep{}, "choose an option", cfg.DropdownTimeout},
		{"settings", schemas.TestStep{}, "open advanced settings", cfg.SettingsTimeout},
		{"creation", schemas.TestStep{}, "create a new project", cfg.CreationTimeout},
		{"base", schemas.TestStep{}, "anything else", cfg.BaseStepTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, it.stepTimeout(tt.step, tt.target))
		})
	}
}

func TestWaitDurationParsing(t *testing.T) {
	it := newTestInterpreter(newFakeDriver(), nil)

	assert.Equal(t, 3*time.Second, it.waitDuration("3", ""))
	assert.Equal(t, 3*time.Second, it.waitDuration("3s", ""))
	assert.Equal(t, 4*time.Second, it.waitDuration("4sec", ""))
	assert.Equal(t, 500*time.Millisecond, it.waitDuration("500ms", ""))
	assert.Equal(t, 2*time.Second, it.waitDuration("", "2"))
	// Garbage and sub-floor values clamp to the floor.
	assert.Equal(t, it.cfg.WaitFloor, it.waitDuration("soon", ""))
}
