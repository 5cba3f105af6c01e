// internal/engine/executor/executor.go
// Package executor performs physical interactions against a resolved page.
// Every public operation runs the same escalation protocol: a quick pass over
// all candidates, a scroll-sweep retry with longer timeouts to force lazy
// content to mount, and (for clicks) a forced-dispatch pass followed by the
// semantic resolver as the last resort. Per-candidate failures are swallowed
// and retried at the next tier; only exhaustion of the final tier surfaces.
package executor

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/stridr-dev/stridr/internal/config"
	"github.com/stridr-dev/stridr/internal/engine/locator"
	"github.com/stridr-dev/stridr/internal/engine/resolver"
)

// Executor drives a Page with escalating aggressiveness. One executor is
// created per run; it holds no per-step state.
type Executor struct {
	logger   *zap.Logger
	page     Page
	resolver *resolver.Resolver
	cfg      config.EngineConfig
	// limiter paces physical actions when slow motion is requested; nil
	// disables pacing.
	limiter *rate.Limiter
	// containerSelectors back the "new content container" heuristic of the
	// click-effectiveness oracle. Overridable because the useful set is
	// application-specific.
	containerSelectors []string
}

// defaultContainerSelectors are common content-wrapper selectors whose
// appearance after a click implies the page advanced.
var defaultContainerSelectors = []string{
	"main", "[role='main']", ".content", ".main-content", ".dashboard", "#app", "#root",
}

// New creates an executor for one run. limiter may be nil.
func New(logger *zap.Logger, page Page, res *resolver.Resolver, cfg config.EngineConfig, limiter *rate.Limiter) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		logger:             logger.Named("executor"),
		page:               page,
		resolver:           res,
		cfg:                cfg,
		limiter:            limiter,
		containerSelectors: defaultContainerSelectors,
	}
}

// SetContainerSelectors replaces the oracle's content-container heuristic
// set, for callers tuning the policy to their application.
func (e *Executor) SetContainerSelectors(selectors []string) {
	if len(selectors) > 0 {
		e.containerSelectors = selectors
	}
}

// pace blocks until the slow-motion limiter admits the next physical action.
func (e *Executor) pace(ctx context.Context) error {
	if e.limiter == nil {
		return nil
	}
	return e.limiter.Wait(ctx)
}

// Click resolves the target through the candidate passes and clicks it.
// semanticFirst routes the click straight to the semantic resolver before the
// candidate passes, for steps explicitly flagged for semantic matching.
func (e *Executor) Click(ctx context.Context, candidates []locator.Candidate, target string, semanticFirst bool) error {
	if semanticFirst {
		if err := e.clickSemantic(ctx, target); err == nil {
			return nil
		}
		e.logger.Debug("Semantic-first click failed, falling back to candidate passes.",
			zap.String("target", target))
	}

	// Pass 1: quick. Require attachment within a short window, act fast.
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.page.WaitAttached(ctx, c, e.cfg.AttachTimeout); err != nil {
			continue
		}
		if err := e.pace(ctx); err != nil {
			return err
		}
		if err := e.page.Click(ctx, c, e.cfg.ActionTimeout); err == nil {
			e.logger.Debug("Click succeeded on quick pass.", zap.String("candidate", c.Desc))
			return nil
		}
	}

	// Pass 2: scroll-sweep, then retry everything with longer timeouts.
	if err := e.scrollSweep(ctx); err != nil {
		return err
	}
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.page.WaitVisible(ctx, c, e.cfg.RetryVisibleWait); err != nil {
			continue
		}
		if err := e.pace(ctx); err != nil {
			return err
		}
		if err := e.page.Click(ctx, c, e.cfg.RetryActionTimeout); err == nil {
			e.logger.Debug("Click succeeded after scroll-sweep.", zap.String("candidate", c.Desc))
			return nil
		}
	}

	// Pass 3: forced. Dispatch native/synthetic clicks on a bounded prefix,
	// bypassing visibility and actionability checks.
	limit := e.cfg.ForcedClickLimit
	if limit <= 0 || limit > len(candidates) {
		limit = len(candidates)
	}
	for _, c := range candidates[:limit] {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.page.DispatchClick(ctx, c); err == nil {
			e.logger.Debug("Forced click dispatched.", zap.String("candidate", c.Desc))
			return nil
		}
	}

	// Last resort: semantic resolution with the effectiveness oracle.
	if !semanticFirst {
		if err := e.clickSemantic(ctx, target); err == nil {
			return nil
		}
	}

	return &ElementNotResolvedError{Target: target, Candidates: len(candidates)}
}

// clickSemantic snapshots every frame, asks the resolver for ranked
// strategies, and tries each in order. A strategy click only counts when the
// effectiveness oracle accepts it.
func (e *Executor) clickSemantic(ctx context.Context, target string) error {
	frames, err := e.page.Snapshot(ctx)
	if err != nil {
		return err
	}
	strategies := e.resolver.Resolve(frames, target)
	if len(strategies) == 0 {
		return &ElementNotResolvedError{Target: target}
	}

	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return err
		}
		preURL, _ := e.page.URL(ctx)
		preTitle, _ := e.page.Title(ctx)

		if err := e.pace(ctx); err != nil {
			return err
		}
		if err := e.page.ClickStrategy(ctx, s, e.cfg.RetryActionTimeout); err != nil {
			e.logger.Debug("Strategy click failed.",
				zap.String("reasoning", s.Reasoning), zap.Error(err))
			continue
		}
		if e.clickEffective(ctx, s, preURL, preTitle) {
			e.logger.Debug("Semantic click accepted.",
				zap.String("reasoning", s.Reasoning),
				zap.Float64("confidence", s.Confidence))
			return nil
		}
		e.logger.Debug("Strategy click rejected by oracle.", zap.String("reasoning", s.Reasoning))
	}
	return &ElementNotResolvedError{Target: target}
}

// Fill resolves the target and types the value into it. The target must not
// be disabled, read-only or hidden; fills are never forced.
func (e *Executor) Fill(ctx context.Context, candidates []locator.Candidate, target, value string) error {
	sawNonFillable := false

	attempt := func(c locator.Candidate, visibleWait, actionTimeout time.Duration) (bool, error) {
		if err := e.page.WaitAttached(ctx, c, visibleWait); err != nil {
			return false, nil
		}
		state, err := e.page.ElementState(ctx, c)
		if err != nil {
			return false, nil
		}
		if state.Exists && !state.Fillable() {
			sawNonFillable = true
			return false, nil
		}
		if !state.Exists {
			return false, nil
		}
		if err := e.pace(ctx); err != nil {
			return false, err
		}
		if err := e.page.Fill(ctx, c, value, actionTimeout); err != nil {
			return false, nil
		}
		return true, nil
	}

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := attempt(c, e.cfg.AttachTimeout, e.cfg.ActionTimeout)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}

	if err := e.scrollSweep(ctx); err != nil {
		return err
	}
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := attempt(c, e.cfg.RetryVisibleWait, e.cfg.RetryActionTimeout)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}

	if sawNonFillable {
		return &ActionNotActionableError{Target: target, Reason: "matched element is disabled, read-only or hidden"}
	}
	return &ElementNotResolvedError{Target: target, Candidates: len(candidates)}
}

// AssertVisible succeeds when any candidate matches a visible element, with
// one scroll-sweep retry.
func (e *Executor) AssertVisible(ctx context.Context, candidates []locator.Candidate, target string) error {
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.page.WaitVisible(ctx, c, e.cfg.AttachTimeout); err == nil {
			return nil
		}
	}

	if err := e.scrollSweep(ctx); err != nil {
		return err
	}
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.page.WaitVisible(ctx, c, e.cfg.RetryVisibleWait); err == nil {
			return nil
		}
	}
	return &AssertionMismatchError{Target: target}
}

// Upload sets files on a file input. When no file input is directly
// resolvable it clicks the named trigger (which typically mounts the input)
// and polls for an input to attach.
func (e *Executor) Upload(ctx context.Context, triggerCandidates []locator.Candidate, target, file string) error {
	fileInput := locator.Candidate{Strategy: locator.CSS, Query: `input[type="file"]`, Desc: "file input"}

	// A file input may already be present.
	if err := e.page.WaitAttached(ctx, fileInput, e.cfg.AttachTimeout); err == nil {
		return e.page.SetFiles(ctx, fileInput, []string{file})
	}

	// Click the trigger, then wait for an input to mount.
	if err := e.Click(ctx, triggerCandidates, target, false); err != nil {
		return &UploadTargetMissingError{Target: target}
	}

	deadline := time.Now().Add(e.cfg.RetryActionTimeout)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.page.WaitAttached(ctx, fileInput, e.cfg.AttachTimeout); err == nil {
			return e.page.SetFiles(ctx, fileInput, []string{file})
		}
		if err := e.page.Sleep(ctx, 200*time.Millisecond); err != nil {
			return err
		}
	}
	return &UploadTargetMissingError{Target: target}
}

// scrollSweep resets to the top of the page and issues several wheel
// increments with short pauses so lazily-rendered content mounts before the
// retry pass.
func (e *Executor) scrollSweep(ctx context.Context) error {
	if err := e.page.ScrollTop(ctx); err != nil {
		e.logger.Debug("Scroll-to-top failed during sweep.", zap.Error(err))
	}
	increments := e.cfg.ScrollIncrements
	if increments <= 0 {
		increments = 5
	}
	for i := 0; i < increments; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.page.ScrollBy(ctx, 600); err != nil {
			e.logger.Debug("Scroll increment failed during sweep.", zap.Error(err))
		}
		if err := e.page.Sleep(ctx, 150*time.Millisecond); err != nil {
			return err
		}
	}
	return nil
}
