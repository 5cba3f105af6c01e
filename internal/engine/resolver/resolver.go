// internal/engine/resolver/resolver.go
// Package resolver is the last-resort semantic element resolver. Given
// per-frame snapshots of the rendered page, it produces a ranked list of
// scored, reasoned element strategies for a free-text target. It is invoked
// only after the executor has exhausted the locator-candidate escalation.
package resolver

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/stridr-dev/stridr/api/schemas"
)

// HiddenAttr marks elements whose computed visibility was false when the
// snapshot was captured. The session annotates them in-page so the resolver
// never has to re-derive layout.
const HiddenAttr = "data-stridr-hidden"

// Base priorities and confidences of the generation taxonomy. The uniform
// boost pass stacks on top of these, it never replaces them.
const (
	prioExactClickable   = 100
	prioExact            = 90
	prioRoleMatch        = 72
	prioNavComponent     = 70
	prioAriaLabel        = 68
	prioPartialClickable = 65
	prioHrefFragment     = 65
	prioPartial          = 60
	prioAllWords         = 55
	prioClassName        = 50
	prioTemplateBase     = 40

	framePenalty = 5
)

// Resolver scores elements across all frames of a snapshot. It is stateless
// between calls; every resolution attempt produces fresh strategies.
type Resolver struct {
	logger *zap.Logger
}

// New creates a resolver. A nil logger is replaced with a nop logger.
func New(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{logger: logger.Named("resolver")}
}

// Resolve produces the ranked strategy list for target across every frame in
// the snapshot. The result is sorted by non-increasing priority; ties keep
// generation order. An empty target yields nil.
func (r *Resolver) Resolve(frames []schemas.FrameSnapshot, target string) []schemas.ElementStrategy {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil
	}

	var all []schemas.ElementStrategy
	for _, frame := range frames {
		strategies, err := r.resolveFrame(frame, target)
		if err != nil {
			r.logger.Debug("Skipping unparseable frame snapshot.",
				zap.String("frame", frame.Name), zap.Error(err))
			continue
		}
		all = append(all, strategies...)
	}

	applyBoosts(all)

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Priority > all[j].Priority
	})

	r.logger.Debug("Semantic resolution complete.",
		zap.String("target", target), zap.Int("strategies", len(all)))
	return all
}

// resolveFrame runs the full taxonomy over a single frame document.
func (r *Resolver) resolveFrame(frame schemas.FrameSnapshot, target string) ([]schemas.ElementStrategy, error) {
	doc, err := htmlquery.Parse(strings.NewReader(frame.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse frame html: %w", err)
	}

	var out []schemas.ElementStrategy
	for _, node := range htmlquery.Find(doc, "//*") {
		if !isCandidateNode(node) {
			continue
		}
		out = append(out, scoreElement(node, target)...)
	}

	// Fixed generic XPath templates as a catch-all, strictly decreasing
	// confidence so they always rank below any real element match.
	for i, tmpl := range genericTemplates(target) {
		out = append(out, schemas.ElementStrategy{
			Kind:       schemas.StrategyXPath,
			Selector:   tmpl,
			Confidence: 0.70 - 0.05*float64(i),
			Priority:   prioTemplateBase - i,
			Reasoning:  fmt.Sprintf("generic xpath template #%d", i+1),
			TargetText: target,
		})
	}

	for i := range out {
		if !frame.Main {
			out[i].Priority -= framePenalty
			out[i].Reasoning += fmt.Sprintf(" [frame: %s]", frame.Name)
			out[i].Frame = frame.Name
		}
	}
	return out, nil
}

// scoreElement applies the per-element taxonomy and returns every strategy
// the element qualifies for.
func scoreElement(node *html.Node, target string) []schemas.ElementStrategy {
	data := extract(node)
	if data.text == "" && len(data.attrs) == 0 {
		return nil
	}

	var out []schemas.ElementStrategy
	selector := uniqueXPath(node)
	if selector == "" {
		return nil
	}

	targetNorm := normalize(target)
	textNorm := normalize(data.text)
	clickable := data.clickAffordant()
	slug := strings.Join(strings.Fields(strings.ToLower(targetNorm)), "-")

	add := func(kind schemas.StrategyKind, conf float64, prio int, reason string) {
		out = append(out, schemas.ElementStrategy{
			Kind:        kind,
			Selector:    selector,
			Confidence:  conf,
			Priority:    prio,
			Reasoning:   reason,
			TargetText:  target,
			ElementText: data.text,
		})
	}

	switch {
	case textNorm != "" && strings.EqualFold(textNorm, targetNorm):
		if clickable {
			add(schemas.StrategyText, 0.99, prioExactClickable,
				fmt.Sprintf("exact text match on clickable <%s>", data.tag))
		} else {
			add(schemas.StrategyText, 0.95, prioExact, "exact text match")
		}
	case textNorm != "" && containsFold(textNorm, targetNorm):
		if clickable {
			add(schemas.StrategyText, 0.80, prioPartialClickable,
				fmt.Sprintf("partial text match on clickable <%s>", data.tag))
		} else {
			add(schemas.StrategyText, 0.75, prioPartial, "partial text match")
		}
	case textNorm != "" && allWordsPresent(textNorm, targetNorm):
		add(schemas.StrategyText, 0.70, prioAllWords, "all target words present")
	}

	// Attribute-derived strategies are independent of the text outcome.
	if role := data.attrs["role"]; role != "" && containsFold(textNorm, targetNorm) {
		add(schemas.StrategyRole, 0.84, prioRoleMatch, fmt.Sprintf("aria role %q with matching text", role))
	}
	if cls := data.attrs["class"]; cls != "" {
		if containsFold(textNorm, targetNorm) && containsAny(cls, "nav", "tab", "menu", "header") {
			add(schemas.StrategyCSS, 0.82, prioNavComponent, "navigation component pattern")
		}
		if slug != "" && containsFold(cls, slug) {
			add(schemas.StrategyCSS, 0.68, prioClassName, "class name heuristic")
		}
	}
	if href := data.attrs["href"]; href != "" && slug != "" && containsFold(href, slug) {
		add(schemas.StrategyAttribute, 0.78, prioHrefFragment, "href fragment match")
	}
	for _, attr := range [...]string{"aria-label", "title"} {
		if v := data.attrs[attr]; v != "" && containsFold(v, targetNorm) {
			add(schemas.StrategyAttribute, 0.80, prioAriaLabel, fmt.Sprintf("%s attribute match", attr))
		}
	}

	return out
}

// applyBoosts is the uniform post-pass: exact matches, partial matches and
// generically clickable strategies get additional priority and confidence on
// top of their generation-time scores. The boosts stack.
func applyBoosts(strategies []schemas.ElementStrategy) {
	for i := range strategies {
		s := &strategies[i]
		switch {
		case strings.Contains(s.Reasoning, "exact text match"):
			s.Priority += 20
			s.Confidence += 0.10
		case strings.Contains(s.Reasoning, "partial text match"):
			s.Priority += 10
			s.Confidence += 0.05
		}
		if s.Navigational() {
			s.Priority += 5
			s.Confidence += 0.02
		}
		if s.Confidence > 0.99 {
			s.Confidence = 0.99
		}
	}
}

// genericTemplates is the fixed catch-all template list, most specific first.
func genericTemplates(target string) []string {
	lit := xpathLiteral(target)
	return []string{
		fmt.Sprintf(`//button[contains(normalize-space(.), %s)]`, lit),
		fmt.Sprintf(`//a[contains(normalize-space(.), %s)]`, lit),
		fmt.Sprintf(`//*[@role='button' and contains(normalize-space(.), %s)]`, lit),
		fmt.Sprintf(`//*[@role='tab' and contains(normalize-space(.), %s)]`, lit),
		fmt.Sprintf(`//*[contains(@class,'btn') and contains(normalize-space(.), %s)]`, lit),
		fmt.Sprintf(`//*[contains(@aria-label, %s)]`, lit),
		fmt.Sprintf(`//*[contains(normalize-space(.), %s)]`, lit),
	}
}

// -- Element data extraction --

type elementData struct {
	tag   string
	attrs map[string]string
	text  string
}

// clickAffordant reports whether interacting with the element is expected to
// behave like a click target: anchors, buttons, clickable ARIA roles, or
// anything carrying an href.
func (d elementData) clickAffordant() bool {
	switch d.tag {
	case "a", "button":
		return true
	}
	switch d.attrs["role"] {
	case "button", "tab", "link", "menuitem":
		return true
	}
	if _, ok := d.attrs["href"]; ok {
		return true
	}
	if d.tag == "input" {
		t := strings.ToLower(d.attrs["type"])
		return t == "submit" || t == "button"
	}
	return false
}

func extract(node *html.Node) elementData {
	attrs := make(map[string]string, len(node.Attr))
	for _, a := range node.Attr {
		attrs[a.Key] = a.Val
	}
	text := strings.TrimSpace(htmlquery.InnerText(node))
	if len(text) > 128 {
		cut := 128
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return elementData{tag: strings.ToLower(node.Data), attrs: attrs, text: text}
}

// isCandidateNode filters the element walk down to visible, content-bearing
// elements. Visibility relies on the capture-time annotation.
func isCandidateNode(node *html.Node) bool {
	if node.Type != html.ElementNode {
		return false
	}
	switch strings.ToLower(node.Data) {
	case "html", "body", "head", "script", "style", "meta", "link", "noscript", "title":
		return false
	}
	for _, a := range node.Attr {
		switch a.Key {
		case HiddenAttr:
			return false
		case "hidden":
			return false
		case "type":
			if strings.EqualFold(a.Val, "hidden") {
				return false
			}
		case "style":
			if containsFold(a.Val, "display:none") || containsFold(a.Val, "display: none") ||
				containsFold(a.Val, "visibility:hidden") || containsFold(a.Val, "visibility: hidden") {
				return false
			}
		}
	}
	return true
}

// -- Small string helpers --

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if containsFold(s, sub) {
			return true
		}
	}
	return false
}

func allWordsPresent(text, target string) bool {
	words := strings.Fields(strings.ToLower(target))
	if len(words) < 2 {
		return false
	}
	lower := strings.ToLower(text)
	for _, w := range words {
		if !strings.Contains(lower, w) {
			return false
		}
	}
	return true
}

// xpathLiteral quotes s as an XPath string literal.
func xpathLiteral(s string) string {
	if !strings.Contains(s, `'`) {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, `'`)
	var sb strings.Builder
	sb.WriteString("concat(")
	for i, p := range parts {
		if i > 0 {
			sb.WriteString(`, "'", `)
		}
		sb.WriteString("'" + p + "'")
	}
	sb.WriteString(")")
	return sb.String()
}
