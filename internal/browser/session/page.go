// internal/browser/session/page.go
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/stridr-dev/stridr/api/schemas"
	"github.com/stridr-dev/stridr/internal/engine/executor"
	"github.com/stridr-dev/stridr/internal/engine/interpreter"
	"github.com/stridr-dev/stridr/internal/engine/locator"
)

// Session satisfies the engine's full driver surface.
var _ interpreter.Driver = (*Session)(nil)

// queryOptions maps a locator candidate to its chromedp selector form.
func queryOptions(c locator.Candidate) (string, chromedp.QueryOption) {
	if c.Strategy == locator.XPath {
		return c.Query, chromedp.BySearch
	}
	return c.Query, chromedp.ByQuery
}

// WaitAttached waits until the candidate matches at least one node in the DOM,
// visible or not.
func (s *Session) WaitAttached(ctx context.Context, c locator.Candidate, timeout time.Duration) error {
	q, opt := queryOptions(c)
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.RunActions(opCtx, chromedp.WaitReady(q, opt))
}

// WaitVisible waits until the candidate matches a visible node.
func (s *Session) WaitVisible(ctx context.Context, c locator.Candidate, timeout time.Duration) error {
	q, opt := queryOptions(c)
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.RunActions(opCtx, chromedp.WaitVisible(q, opt))
}

// Click performs a trusted input click on the first match.
func (s *Session) Click(ctx context.Context, c locator.Candidate, timeout time.Duration) error {
	q, opt := queryOptions(c)
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := s.RunActions(opCtx,
		chromedp.ScrollIntoView(q, opt),
		chromedp.Click(q, opt),
	)
	if err != nil && opCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return fmt.Errorf("click on %q timed out after %v: %w", c.Desc, timeout, err)
	}
	return err
}

// Fill clears the first match and types the value into it, key by key so
// framework change listeners fire.
func (s *Session) Fill(ctx context.Context, c locator.Candidate, value string, timeout time.Duration) error {
	q, opt := queryOptions(c)
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := s.RunActions(opCtx,
		chromedp.ScrollIntoView(q, opt),
		chromedp.Clear(q, opt),
		chromedp.SendKeys(q, value, opt),
	)
	if err != nil && opCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return fmt.Errorf("fill of %q timed out after %v: %w", c.Desc, timeout, err)
	}
	return err
}

// DispatchClick invokes the element's native click() (falling back to a
// synthetic mouse event) on the first match, bypassing every visibility and
// actionability check.
func (s *Session) DispatchClick(ctx context.Context, c locator.Candidate) error {
	script := fmt.Sprintf(dispatchClickScript, jsonEncode(string(c.Strategy)), jsonEncode(c.Query), c.InFrame)

	var clicked bool
	if err := s.evalJSON(ctx, script, &clicked); err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("no element matches %q for forced click", c.Desc)
	}
	s.logger.Debug("Dispatched forced click.", zap.String("candidate", c.Desc))
	return nil
}

// ElementState reports existence and interactability of the first match.
func (s *Session) ElementState(ctx context.Context, c locator.Candidate) (executor.ElementState, error) {
	script := fmt.Sprintf(elementStateScript, jsonEncode(string(c.Strategy)), jsonEncode(c.Query), c.InFrame)

	var state executor.ElementState
	if err := s.evalJSON(ctx, script, &state); err != nil {
		return executor.ElementState{}, err
	}
	return state, nil
}

// ElementText returns the trimmed text content of the first match, or empty
// when nothing matches.
func (s *Session) ElementText(ctx context.Context, c locator.Candidate) (string, error) {
	script := fmt.Sprintf(elementTextScript, jsonEncode(string(c.Strategy)), jsonEncode(c.Query), c.InFrame)

	var text string
	if err := s.evalJSON(ctx, script, &text); err != nil {
		return "", err
	}
	return text, nil
}

// IsVisible reports whether the first match is rendered and visible.
func (s *Session) IsVisible(ctx context.Context, c locator.Candidate) (bool, error) {
	script := fmt.Sprintf(isVisibleScript, jsonEncode(string(c.Strategy)), jsonEncode(c.Query), c.InFrame)

	var visible bool
	if err := s.evalJSON(ctx, script, &visible); err != nil {
		return false, err
	}
	return visible, nil
}

// SetFiles attaches local files to the first matching file input.
func (s *Session) SetFiles(ctx context.Context, c locator.Candidate, files []string) error {
	q, opt := queryOptions(c)
	return s.RunActions(ctx, chromedp.SetUploadFiles(q, files, opt))
}

// VisibleText returns the rendered text of the main document body.
func (s *Session) VisibleText(ctx context.Context) (string, error) {
	var text string
	if err := s.evalJSON(ctx, visibleTextScript, &text); err != nil {
		return "", err
	}
	return text, nil
}

// -- Strategy-level operations --

// ClickStrategy clicks the element a semantic strategy points at. Strategies
// targeting a named frame are routed into that frame's document; the click is
// dispatched in-page because trusted input events cannot cross into
// same-origin subframes through the top-level target.
func (s *Session) ClickStrategy(ctx context.Context, st schemas.ElementStrategy, timeout time.Duration) error {
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if st.Frame == "" {
		c := candidateFromStrategy(st)
		if err := s.Click(opCtx, c, timeout); err == nil {
			return nil
		}
		// Fall through to the in-page dispatch when the trusted click fails,
		// typically because of an overlay intercepting the pointer.
		return s.DispatchClick(opCtx, c)
	}

	script := fmt.Sprintf(frameClickScript,
		jsonEncode(st.Frame), jsonEncode(string(st.Kind)), jsonEncode(st.Selector))

	var clicked bool
	if err := s.evalJSON(opCtx, script, &clicked); err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("strategy selector matched nothing in frame %q", st.Frame)
	}
	return nil
}

// StrategyVisible reports whether the strategy's selector still matches a
// visible element, in the main document or the strategy's frame.
func (s *Session) StrategyVisible(ctx context.Context, st schemas.ElementStrategy) (bool, error) {
	if st.Frame == "" {
		return s.IsVisible(ctx, candidateFromStrategy(st))
	}

	script := fmt.Sprintf(frameVisibleScript,
		jsonEncode(st.Frame), jsonEncode(string(st.Kind)), jsonEncode(st.Selector))

	var visible bool
	if err := s.evalJSON(ctx, script, &visible); err != nil {
		return false, err
	}
	return visible, nil
}

func candidateFromStrategy(st schemas.ElementStrategy) locator.Candidate {
	strategy := locator.CSS
	if st.Kind == schemas.StrategyXPath {
		strategy = locator.XPath
	}
	return locator.Candidate{Strategy: strategy, Query: st.Selector, Desc: st.Reasoning}
}

// -- Page motion --

// ScrollTop scrolls the main document to the top.
func (s *Session) ScrollTop(ctx context.Context) error {
	var ignored bool
	return s.evalJSON(ctx, `(() => { window.scrollTo(0, 0); return true; })()`, &ignored)
}

// ScrollBy scrolls the main document down by the given pixel amount.
func (s *Session) ScrollBy(ctx context.Context, pixels int) error {
	var ignored bool
	script := fmt.Sprintf(`(() => { window.scrollBy(0, %d); return true; })()`, pixels)
	return s.evalJSON(ctx, script, &ignored)
}

// Snapshot serializes the main document and every reachable same-origin frame,
// annotating invisible elements so the resolver can skip them.
func (s *Session) Snapshot(ctx context.Context) ([]schemas.FrameSnapshot, error) {
	var raw json.RawMessage
	if err := s.evalJSON(ctx, snapshotScript, &raw); err != nil {
		return nil, fmt.Errorf("frame snapshot failed: %w", err)
	}

	var frames []schemas.FrameSnapshot
	if err := json.Unmarshal(raw, &frames); err != nil {
		return nil, fmt.Errorf("failed to decode frame snapshot: %w", err)
	}
	s.logger.Debug("Captured frame snapshot.", zap.Int("frames", len(frames)))
	return frames, nil
}
