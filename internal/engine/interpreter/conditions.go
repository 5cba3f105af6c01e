// internal/engine/interpreter/conditions.go
package interpreter

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/stridr-dev/stridr/internal/engine/locator"
)

// Condition grammar, optionally suffixed "-> varName" to capture the match:
//
//	text=<t> [with ai]      visible-text search (exact, case-insensitive,
//	                        then whitespace-tolerant; "with ai" delegates to
//	                        the semantic resolver's frame-wide text search)
//	element=<selector>      element visibility
//	css=.. xpath=.. [ # . //  selector visibility
//	[variable] <name> =|== <value>   case-insensitive compare with
//	                        true/false boolean-string equivalence
//	<anything else>         case-insensitive visible-text existence
//
// Evaluation failures (malformed selectors, driver errors) are treated as
// condition-false; a condition must never crash a run.

var (
	varComparePattern = regexp.MustCompile(`^(?:\[?[Vv]ariable\]?\s+)?([A-Za-z0-9_.-]+)\s*(==|=)\s*(.+)$`)
	// explicitVarPrefix recognizes the spelled-out "[variable] name ..." form,
	// which must win over the bracket selector heuristic.
	explicitVarPrefix = regexp.MustCompile(`^\[?[Vv]ariable\]?\s`)
)

type conditionOutcome struct {
	met        bool
	matched    string
	captureVar string
}

func (it *Interpreter) evalCondition(ctx context.Context, rc *runContext, raw string) conditionOutcome {
	out := conditionOutcome{}

	cond := strings.TrimSpace(rc.vars.Substitute(raw))
	if idx := strings.LastIndex(cond, "->"); idx >= 0 {
		out.captureVar = strings.TrimSpace(cond[idx+2:])
		cond = strings.TrimSpace(cond[:idx])
	}
	if cond == "" {
		return out
	}

	useAI := false
	if trimmed, found := strings.CutSuffix(cond, " with ai"); found {
		useAI = true
		cond = strings.TrimSpace(trimmed)
	}

	switch {
	case strings.HasPrefix(cond, "text="):
		text := strings.TrimSpace(cond[len("text="):])
		out.met, out.matched = it.textExists(ctx, text, useAI)

	case strings.HasPrefix(cond, "element="):
		sel := strings.TrimSpace(cond[len("element="):])
		out.met = it.selectorVisible(ctx, sel)
		out.matched = sel

	case isSelectorLike(cond) && !explicitVarPrefix.MatchString(cond):
		out.met = it.selectorVisible(ctx, cond)
		out.matched = cond

	default:
		if m := varComparePattern.FindStringSubmatch(cond); m != nil {
			if stored, ok := rc.vars.Get(m[1]); ok {
				out.met = valuesEqual(stored, strings.TrimSpace(m[3]))
				out.matched = stored
				return out
			}
		}
		// Bare string: case-insensitive visible-text existence.
		out.met, out.matched = it.textExists(ctx, cond, useAI)
	}
	return out
}

// textExists searches the page's visible text, escalating exact ->
// case-insensitive -> whitespace-tolerant. With useAI the search runs over
// every frame snapshot through the semantic resolver instead.
func (it *Interpreter) textExists(ctx context.Context, text string, useAI bool) (bool, string) {
	if text == "" {
		return false, ""
	}

	if useAI {
		frames, err := it.driver.Snapshot(ctx)
		if err != nil {
			it.logger.Debug("Snapshot failed during condition evaluation.", zap.Error(err))
			return false, ""
		}
		matched, ok := it.resolver.FindText(frames, text)
		return ok, matched
	}

	visible, err := it.driver.VisibleText(ctx)
	if err != nil {
		it.logger.Debug("Visible-text read failed during condition evaluation.", zap.Error(err))
		return false, ""
	}

	if strings.Contains(visible, text) {
		return true, text
	}
	if idx := strings.Index(strings.ToLower(visible), strings.ToLower(text)); idx >= 0 {
		return true, visible[idx : idx+len(text)]
	}
	// Last tier: whitespace-tolerant match, so "Welcome back" still finds
	// rendered text that wraps or collapses onto multiple lines.
	words := strings.Fields(text)
	if len(words) < 2 {
		return false, ""
	}
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	re, err := regexp.Compile(`(?i)` + strings.Join(words, `\s+`))
	if err != nil {
		return false, ""
	}
	if m := re.FindString(visible); m != "" {
		return true, m
	}
	return false, ""
}

// selectorVisible checks whether a css/xpath selector matches a visible
// element; any error counts as not visible.
func (it *Interpreter) selectorVisible(ctx context.Context, sel string) bool {
	c := candidateForSelector(sel)
	visible, err := it.driver.IsVisible(ctx, c)
	if err != nil {
		it.logger.Debug("Selector visibility check failed; treating condition as false.",
			zap.String("selector", sel), zap.Error(err))
		return false
	}
	return visible
}

func candidateForSelector(sel string) locator.Candidate {
	switch {
	case strings.HasPrefix(sel, "xpath="):
		return locator.Candidate{Strategy: locator.XPath, Query: sel[len("xpath="):], Desc: "condition selector"}
	case strings.HasPrefix(sel, "css="):
		return locator.Candidate{Strategy: locator.CSS, Query: sel[len("css="):], Desc: "condition selector"}
	case strings.HasPrefix(sel, "//"):
		return locator.Candidate{Strategy: locator.XPath, Query: sel, Desc: "condition selector"}
	default:
		return locator.Candidate{Strategy: locator.CSS, Query: sel, Desc: "condition selector"}
	}
}

func isSelectorLike(s string) bool {
	for _, prefix := range [...]string{"css=", "xpath=", "[", "#", ".", "//"} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// valuesEqual compares condition values case-insensitively, with
// boolean-string equivalence so "true"/"True"/"TRUE" agree.
func valuesEqual(stored, expected string) bool {
	if strings.EqualFold(stored, expected) {
		return true
	}
	normalize := func(s string) string {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true":
			return "true"
		case "false":
			return "false"
		}
		return s
	}
	return normalize(stored) == normalize(expected)
}
