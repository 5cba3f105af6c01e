// internal/engine/executor/oracle.go
package executor

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/stridr-dev/stridr/api/schemas"
	"github.com/stridr-dev/stridr/internal/engine/locator"
)

// clickEffective decides, after a strategy click returned without error,
// whether the click actually achieved its intended effect. The checks run as
// an ordered short-circuit chain:
//
//  1. the clicked element's known text matches the intended target text
//     exactly or as a reciprocal substring;
//  2. the strategy is navigation-typed and the page URL changed;
//  3. otherwise a secondary validator: URL change, title change, exact-text
//     strategies (lenient), network idle, clicked selector gone, or a new
//     content container appearing.
func (e *Executor) clickEffective(ctx context.Context, s schemas.ElementStrategy, preURL, preTitle string) bool {
	if textMatches(s.ElementText, s.TargetText) {
		return true
	}

	curURL, _ := e.page.URL(ctx)
	urlChanged := curURL != "" && curURL != preURL

	if s.Navigational() && urlChanged {
		return true
	}

	return e.validateClick(ctx, s, urlChanged, preTitle)
}

// validateClick is the secondary chain consulted when neither primary check
// holds. Each rule is cheap-to-expensive ordered and the first hit wins.
func (e *Executor) validateClick(ctx context.Context, s schemas.ElementStrategy, urlChanged bool, preTitle string) bool {
	if urlChanged {
		return true
	}

	if curTitle, err := e.page.Title(ctx); err == nil && curTitle != "" && curTitle != preTitle {
		return true
	}

	// Exact text-match strategies almost certainly landed on the right
	// element; accept leniently even without an observable page effect.
	if strings.Contains(s.Reasoning, "exact text match") {
		return true
	}

	if err := e.page.WaitNetworkIdle(ctx, e.cfg.NetworkIdleQuiet, e.cfg.NetworkIdleTimeout); err == nil {
		return true
	}

	// The previously-clicked selector disappearing implies navigation away.
	if visible, err := e.page.StrategyVisible(ctx, s); err == nil && !visible {
		return true
	}

	// Generic "new content container" heuristic.
	for _, sel := range e.containerSelectors {
		c := locator.Candidate{Strategy: locator.CSS, Query: sel, Desc: "content container"}
		if visible, err := e.page.IsVisible(ctx, c); err == nil && visible {
			return true
		}
	}

	e.logger.Debug("Click validation exhausted every signal.",
		zap.String("reasoning", s.Reasoning))
	return false
}

// textMatches reports whether clicked-element text and intended target text
// agree: exact (case-insensitive) or reciprocal substring.
func textMatches(elementText, targetText string) bool {
	a := strings.TrimSpace(strings.ToLower(elementText))
	b := strings.TrimSpace(strings.ToLower(targetText))
	if a == "" || b == "" {
		return false
	}
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}
