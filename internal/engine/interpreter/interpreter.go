// internal/engine/interpreter/interpreter.go
// Package interpreter drives a test case step by step: variable substitution,
// adaptive timeouts, conditional blocks, and per-step outcome recording. All
// run state lives in a per-run context value created inside Run, so one
// engine instance can serve concurrent runs safely.
package interpreter

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/stridr-dev/stridr/api/schemas"
	"github.com/stridr-dev/stridr/internal/config"
	"github.com/stridr-dev/stridr/internal/engine/executor"
	"github.com/stridr-dev/stridr/internal/engine/locator"
	"github.com/stridr-dev/stridr/internal/engine/resolver"
	"github.com/stridr-dev/stridr/internal/engine/vars"
)

// Driver is the full browser surface the interpreter needs: everything the
// executor drives plus navigation and screenshots.
type Driver interface {
	executor.Page

	Navigate(ctx context.Context, url string) error
	Back(ctx context.Context) error
	Reload(ctx context.Context) error
	Screenshot(ctx context.Context) ([]byte, error)
}

// ArtifactSink persists failure screenshots and returns a reference for the
// step result. A nil sink disables screenshot capture.
type ArtifactSink interface {
	SaveScreenshot(stepIndex int, png []byte) (string, error)
}

// Interpreter executes test cases. It holds only immutable collaborators;
// per-run state never lands on this struct.
type Interpreter struct {
	logger   *zap.Logger
	driver   Driver
	resolver *resolver.Resolver
	cfg      config.EngineConfig
	sink     ArtifactSink
}

// runContext is the execution context of a single run: the variable store,
// the append-only result log, and the executor bound to this run's pacing.
type runContext struct {
	vars    *vars.Store
	results []schemas.StepResult
	exec    *executor.Executor
	// jumps maps an "else" step index to the index execution resumes at,
	// installed when the matching if-branch was taken.
	jumps map[int]int
}

func (rc *runContext) record(r schemas.StepResult) {
	rc.results = append(rc.results, r)
}

// New creates an interpreter. sink may be nil.
func New(logger *zap.Logger, driver Driver, res *resolver.Resolver, cfg config.EngineConfig, sink ArtifactSink) *Interpreter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interpreter{
		logger:   logger.Named("interpreter"),
		driver:   driver,
		resolver: res,
		cfg:      cfg,
		sink:     sink,
	}
}

// Run executes the test case to completion or first failure (fail-fast).
// A step failure is reported through the result's status, not through the
// returned error; the error is reserved for run-infrastructure problems.
func (it *Interpreter) Run(ctx context.Context, tc *schemas.TestCase, opts schemas.RunOptions) (*schemas.ExecutionResult, error) {
	if tc == nil || len(tc.Steps) == 0 {
		return nil, errors.New("test case has no steps")
	}

	if opts.GlobalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.GlobalTimeout)
		defer cancel()
	}

	var limiter *rate.Limiter
	if opts.SlowMoMs > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Duration(opts.SlowMoMs)*time.Millisecond), 1)
	}

	rc := &runContext{
		vars:  vars.New(),
		exec:  executor.New(it.logger, it.driver, it.resolver, it.cfg, limiter),
		jumps: make(map[int]int),
	}
	if opts.Email != "" {
		rc.vars.Assign("email", opts.Email)
	}
	if opts.Password != "" {
		rc.vars.Assign("password", opts.Password)
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	result := &schemas.ExecutionResult{
		RunID:     runID,
		TestCase:  tc.Name,
		StartedAt: time.Now().UTC(),
	}
	it.logger.Info("Starting run.",
		zap.String("run_id", result.RunID),
		zap.String("test_case", tc.Name),
		zap.Int("steps", len(tc.Steps)))

	aborted := false
	steps := tc.Steps
	for i := 0; i < len(steps) && !aborted; {
		step := steps[i]

		switch step.Action {
		case schemas.ActionIf:
			next, ok := it.handleIf(ctx, rc, steps, i)
			aborted = !ok
			i = next

		case schemas.ActionElse:
			// Reaching an else at the top of the loop means the if-branch
			// just finished; jump past the block if a jump was installed.
			if next, ok := rc.jumps[i]; ok {
				i = next
			} else {
				i++
			}

		case schemas.ActionEndIf:
			i++

		default:
			ok := it.runStep(ctx, rc, step, i)
			aborted = !ok
			i++
		}
	}

	result.Steps = rc.results
	result.CompletedAt = time.Now().UTC()
	if result.Passed() {
		result.Status = schemas.RunPassed
	} else {
		result.Status = schemas.RunFailed
	}
	it.logger.Info("Run complete.",
		zap.String("run_id", result.RunID),
		zap.String("status", string(result.Status)),
		zap.Int("results", len(result.Steps)))
	return result, nil
}

// handleIf evaluates a conditional step and returns the index execution
// resumes at, plus false when an inline action failed and the run aborts.
func (it *Interpreter) handleIf(ctx context.Context, rc *runContext, steps []schemas.TestStep, i int) (int, bool) {
	step := steps[i]
	outcome := it.evalCondition(ctx, rc, step.Condition)

	// Capture bookkeeping: the matched text on success, the "false" literal
	// on failure so later steps can branch on "did this check fail".
	if outcome.captureVar != "" {
		if outcome.met {
			rc.vars.Assign(outcome.captureVar, outcome.matched)
		} else {
			rc.vars.Assign(outcome.captureVar, "false")
		}
	}

	inlineTarget := rc.vars.Substitute(step.Target)
	inlineStep, hasInline := parseInline(inlineTarget)

	if !outcome.met && hasInline && inlineStep.Action.IsAssignment() {
		// Negative-branch bookkeeping for set-style inline actions.
		rc.vars.Assign(inlineStep.Target, "false")
	}

	marker := schemas.StepResult{
		StepIndex:    i,
		Action:       step.Action,
		Target:       step.Condition,
		Timestamp:    time.Now().UTC(),
		ConditionMet: &outcome.met,
	}
	if outcome.met {
		marker.Status = schemas.StepPassed
	} else {
		marker.Status = schemas.StepSkipped
	}

	// Standalone if: an inline action with no adjacent else/endif. The
	// action runs when true and execution falls through; no block scan.
	standalone := hasInline &&
		(i+1 >= len(steps) || (steps[i+1].Action != schemas.ActionElse && steps[i+1].Action != schemas.ActionEndIf))
	if standalone {
		rc.record(marker)
		if outcome.met {
			if ok := it.runStep(ctx, rc, inlineStep, i); !ok {
				return i + 1, false
			}
		}
		return i + 1, true
	}

	elseIdx, endifIdx := scanBlock(steps, i)
	rc.record(marker)

	if outcome.met {
		if hasInline {
			if ok := it.runStep(ctx, rc, inlineStep, i); !ok {
				return i + 1, false
			}
		}
		if elseIdx >= 0 {
			// Skip the else branch once the if branch finishes.
			rc.jumps[elseIdx] = endifIdx + 1
		}
		return i + 1, true
	}

	if elseIdx >= 0 {
		return elseIdx + 1, true
	}
	return endifIdx + 1, true
}

// runStep executes one non-control step under its adaptive timeout and
// records the outcome. Returns false when the run must abort.
func (it *Interpreter) runStep(ctx context.Context, rc *runContext, step schemas.TestStep, index int) bool {
	target := rc.vars.Substitute(step.Target)
	value := rc.vars.Substitute(step.Value)

	res := schemas.StepResult{
		StepIndex: index,
		Action:    step.Action,
		Target:    target,
		Timestamp: time.Now().UTC(),
	}

	var err error
	if it.exemptFromTimeout(step) {
		// Wait steps and semantically-matched verifies own their timing.
		err = it.executeAction(ctx, rc, step, target, value)
	} else {
		stepCtx, cancel := context.WithTimeout(ctx, it.stepTimeout(step, target))
		err = it.executeAction(stepCtx, rc, step, target, value)
		if err != nil && stepCtx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("step timed out after %v: %w", it.stepTimeout(step, target), err)
		}
		cancel()
	}

	if err != nil {
		res.Status = schemas.StepFailed
		res.Error = err.Error()
		res.ScreenshotRef = it.captureFailure(ctx, index)
		rc.record(res)
		it.logger.Error("Step failed; aborting run.",
			zap.Int("step", index),
			zap.String("action", string(step.Action)),
			zap.String("target", target),
			zap.Error(err))
		return false
	}

	res.Status = schemas.StepPassed
	rc.record(res)

	if step.WaitAfterMs > 0 {
		if err := it.driver.Sleep(ctx, time.Duration(step.WaitAfterMs)*time.Millisecond); err != nil {
			it.logger.Debug("Post-step wait interrupted.", zap.Error(err))
		}
	}
	return true
}

// executeAction dispatches a single substituted step to the executor or the
// driver. Unrecognized actions are a deliberate no-op, not a failure.
func (it *Interpreter) executeAction(ctx context.Context, rc *runContext, step schemas.TestStep, target, value string) error {
	switch step.Action {
	case schemas.ActionNavigate:
		return it.driver.Navigate(ctx, target)

	case schemas.ActionClick:
		candidates := locator.Generate(target, locator.KindClick)
		return rc.exec.Click(ctx, candidates, target, step.UseAI)

	case schemas.ActionInput:
		candidates := locator.Generate(target, locator.KindInput)
		return rc.exec.Fill(ctx, candidates, target, value)

	case schemas.ActionUpload:
		file := strings.TrimPrefix(value, "file:")
		candidates := locator.Generate(target, locator.KindClick)
		return rc.exec.Upload(ctx, candidates, target, file)

	case schemas.ActionVerify:
		if step.UseAI {
			frames, err := it.driver.Snapshot(ctx)
			if err != nil {
				return err
			}
			if _, ok := it.resolver.FindText(frames, target); !ok {
				return &executor.AssertionMismatchError{Target: target}
			}
			return nil
		}
		candidates := locator.Generate(target, locator.KindVerify)
		return rc.exec.AssertVisible(ctx, candidates, target)

	case schemas.ActionBack:
		return it.driver.Back(ctx)

	case schemas.ActionRefresh:
		return it.driver.Reload(ctx)

	case schemas.ActionWait:
		return it.driver.Sleep(ctx, it.waitDuration(target, value))

	case schemas.ActionSet, schemas.ActionStore, schemas.ActionAssign:
		rc.vars.Assign(target, value)
		return nil

	default:
		it.logger.Warn("Unknown action; treating as no-op.",
			zap.String("action", string(step.Action)), zap.Int("step", -1))
		return nil
	}
}

// captureFailure takes a screenshot for a failed step. Best effort; a
// screenshot failure never masks the step error.
func (it *Interpreter) captureFailure(ctx context.Context, index int) string {
	if it.sink == nil {
		return ""
	}
	png, err := it.driver.Screenshot(ctx)
	if err != nil || len(png) == 0 {
		it.logger.Debug("Failure screenshot unavailable.", zap.Error(err))
		return ""
	}
	ref, err := it.sink.SaveScreenshot(index, png)
	if err != nil {
		it.logger.Warn("Failed to persist failure screenshot.", zap.Error(err))
		return ""
	}
	return ref
}

// -- Adaptive timeouts --

var (
	signInVocab   = regexp.MustCompile(`(?i)\b(sign[ -]?in|log[ -]?in|login|anmelden)\b`)
	menuVocab     = regexp.MustCompile(`(?i)\b(workspace|expand|menu)\b`)
	dropdownVocab = regexp.MustCompile(`(?i)\b(option|choose|select|dropdown)\b`)
	settingsVocab = regexp.MustCompile(`(?i)advanced\s+settings|\bsettings\b`)
	creationVocab = regexp.MustCompile(`(?i)\b(create|new)\b.*\b(project|workspace|item)\b`)
)

// exemptFromTimeout reports whether the step owns its timing and must not be
// raced against the adaptive timeout.
func (it *Interpreter) exemptFromTimeout(step schemas.TestStep) bool {
	if step.Action == schemas.ActionWait {
		return true
	}
	return step.Action == schemas.ActionVerify && step.UseAI
}

// stepTimeout picks the adaptive timeout by first-matching rule. Rule order
// matters: sign-in beats the semantic flag, the menu rule beats the settings
// rule, and so on down to the base timeout.
func (it *Interpreter) stepTimeout(step schemas.TestStep, target string) time.Duration {
	switch {
	case signInVocab.MatchString(target):
		return it.cfg.SignInTimeout
	case step.UseAI:
		return it.cfg.SemanticStepTimeout
	case menuVocab.MatchString(target):
		return it.cfg.MenuTimeout
	case dropdownVocab.MatchString(target):
		return it.cfg.DropdownTimeout
	case settingsVocab.MatchString(target):
		return it.cfg.SettingsTimeout
	case creationVocab.MatchString(target):
		return it.cfg.CreationTimeout
	default:
		return it.cfg.BaseStepTimeout
	}
}

// waitDuration parses a wait step's duration from its target or value
// ("3", "3s", "3sec", "1500ms"), clamped to the configured floor.
func (it *Interpreter) waitDuration(target, value string) time.Duration {
	raw := strings.TrimSpace(target)
	if raw == "" {
		raw = strings.TrimSpace(value)
	}
	raw = strings.ToLower(raw)

	var d time.Duration
	switch {
	case strings.HasSuffix(raw, "ms"):
		if n, err := strconv.Atoi(strings.TrimSuffix(raw, "ms")); err == nil {
			d = time.Duration(n) * time.Millisecond
		}
	case strings.HasSuffix(raw, "sec"):
		if n, err := strconv.Atoi(strings.TrimSuffix(raw, "sec")); err == nil {
			d = time.Duration(n) * time.Second
		}
	case strings.HasSuffix(raw, "s"):
		if n, err := strconv.Atoi(strings.TrimSuffix(raw, "s")); err == nil {
			d = time.Duration(n) * time.Second
		}
	default:
		if n, err := strconv.Atoi(raw); err == nil {
			d = time.Duration(n) * time.Second
		}
	}

	if d < it.cfg.WaitFloor {
		return it.cfg.WaitFloor
	}
	return d
}
