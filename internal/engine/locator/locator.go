// internal/engine/locator/locator.go
// Package locator turns a step's textual target into an ordered list of
// declarative locator candidates. Generation is a pure function of the target
// string and the action kind; candidates are re-evaluated against the live
// DOM each time they are tried, so nothing here holds element references.
package locator

import (
	"fmt"
	"regexp"
	"strings"
)

// Strategy is the query language a candidate is expressed in. Role, test-id
// and text heuristics are compiled down to XPath so the driver only has to
// understand two languages.
type Strategy string

const (
	CSS   Strategy = "css"
	XPath Strategy = "xpath"
)

// ActionKind tells the generator what the caller intends to do with the
// element, which changes candidate ordering (input targets prefer form
// controls, click targets prefer affordances).
type ActionKind string

const (
	KindClick  ActionKind = "click"
	KindInput  ActionKind = "input"
	KindVerify ActionKind = "verify"
)

// Candidate is one declarative way of finding zero or more elements.
type Candidate struct {
	Strategy Strategy
	Query    string
	// InFrame marks candidates that should additionally be evaluated inside
	// every reachable child frame, since target UIs commonly render content
	// in nested frames.
	InFrame bool
	// Desc explains the heuristic that produced the candidate, for logs.
	Desc string
}

var (
	tokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

	authPattern     = regexp.MustCompile(`(?i)\b(sign\s*in|log\s*in|login|submit|continue|anmelden|connexion|iniciar)\b`)
	dropdownPattern = regexp.MustCompile(`(?i)\b(select|option|choose|dropdown|menu item)\b`)
)

// multilingualTerms maps non-English domain vocabulary to attribute-based
// fallback candidates. The table is deliberately small; it covers the
// authentication and navigation terms that show up in localized fixtures.
var multilingualTerms = map[string][]Candidate{
	"anmelden": {
		{Strategy: CSS, Query: `button[type="submit"]`, Desc: "multilingual: german sign-in submit"},
		{Strategy: CSS, Query: `input[type="submit"]`, Desc: "multilingual: german sign-in submit input"},
	},
	"iniciar sesión": {
		{Strategy: CSS, Query: `button[type="submit"]`, Desc: "multilingual: spanish sign-in submit"},
	},
	"se connecter": {
		{Strategy: CSS, Query: `button[type="submit"]`, Desc: "multilingual: french sign-in submit"},
	},
	"einstellungen": {
		{Strategy: XPath, Query: `//*[@aria-label and contains(@aria-label, 'ettings')]`, Desc: "multilingual: german settings aria fallback"},
	},
}

// Generate returns the ordered candidate list for a target. The list is never
// empty for a non-empty target: a generic contains-text fallback is always
// appended. Duplicates are not pruned; the executor stops at first success.
func Generate(target string, kind ActionKind) []Candidate {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil
	}

	// Explicit locators bypass every heuristic.
	if c, ok := parseDirect(target); ok {
		return []Candidate{c}
	}

	var out []Candidate
	if tokenPattern.MatchString(target) {
		out = tokenCandidates(target, kind)
	} else {
		out = freeTextCandidates(target, kind)
	}

	// Generic fallback, always present so the list is never empty.
	out = append(out, Candidate{
		Strategy: XPath,
		Query:    fmt.Sprintf(`//*[contains(normalize-space(.), %s)]`, xpathLiteral(target)),
		Desc:     "generic contains-text fallback",
	})
	return out
}

// parseDirect recognizes explicit-locator prefixes and returns the single
// candidate they denote.
func parseDirect(target string) (Candidate, bool) {
	switch {
	case strings.HasPrefix(target, "xpath="):
		return Candidate{Strategy: XPath, Query: target[len("xpath="):], Desc: "explicit xpath"}, true
	case strings.HasPrefix(target, "//"):
		return Candidate{Strategy: XPath, Query: target, Desc: "explicit xpath"}, true
	case strings.HasPrefix(target, "css="):
		return Candidate{Strategy: CSS, Query: target[len("css="):], Desc: "explicit css"}, true
	case strings.HasPrefix(target, "id="):
		return Candidate{Strategy: CSS, Query: fmt.Sprintf(`[id=%s]`, cssLiteral(target[len("id="):])), Desc: "explicit id"}, true
	case strings.HasPrefix(target, "link="):
		text := target[len("link="):]
		return Candidate{Strategy: XPath, Query: fmt.Sprintf(`//a[normalize-space(.)=%s]`, xpathLiteral(text)), Desc: "explicit link text"}, true
	case strings.HasPrefix(target, "partialLink="):
		text := target[len("partialLink="):]
		return Candidate{Strategy: XPath, Query: fmt.Sprintf(`//a[contains(normalize-space(.), %s)]`, xpathLiteral(text)), Desc: "explicit partial link text"}, true
	case strings.HasPrefix(target, "href="):
		frag := target[len("href="):]
		return Candidate{Strategy: CSS, Query: fmt.Sprintf(`a[href*=%s]`, cssLiteral(frag)), Desc: "explicit href fragment"}, true
	}
	return Candidate{}, false
}

// tokenCandidates handles bare identifier-like targets ("submit-btn",
// "email"). Attribute-style candidates come first because tokens are almost
// always ids or test ids, not visible copy.
func tokenCandidates(token string, kind ActionKind) []Candidate {
	lower := strings.ToLower(token)
	slug := slugify(token)

	out := []Candidate{
		{Strategy: CSS, Query: fmt.Sprintf(`[data-testid=%s]`, cssLiteral(token)), Desc: "test-id exact"},
		{Strategy: XPath, Query: fmt.Sprintf(`//*[%s=%s]`, lowered("@data-testid"), xpathLiteral(lower)), Desc: "test-id case-insensitive"},
		{Strategy: CSS, Query: fmt.Sprintf(`[data-testid*=%s]`, cssLiteral(token)), Desc: "test-id substring"},
		{Strategy: CSS, Query: fmt.Sprintf(`[data-test-id=%s]`, cssLiteral(token)), Desc: "test-id variant"},
		{Strategy: CSS, Query: fmt.Sprintf(`[data-test=%s]`, cssLiteral(token)), Desc: "test attribute"},
		{Strategy: CSS, Query: fmt.Sprintf(`[id=%s]`, cssLiteral(token)), Desc: "id exact"},
		{Strategy: XPath, Query: fmt.Sprintf(`//*[%s=%s]`, lowered("@id"), xpathLiteral(lower)), Desc: "id case-insensitive"},
		{Strategy: CSS, Query: fmt.Sprintf(`[id*=%s]`, cssLiteral(token)), Desc: "id substring"},
		{Strategy: CSS, Query: fmt.Sprintf(`[name=%s]`, cssLiteral(token)), Desc: "name attribute"},
	}
	if slug != lower {
		out = append(out, Candidate{Strategy: CSS, Query: fmt.Sprintf(`[data-testid*=%s]`, cssLiteral(slug)), Desc: "slug test-id substring"})
	}

	if kind == KindInput {
		out = append(out,
			Candidate{Strategy: CSS, Query: fmt.Sprintf(`input[name*=%s]`, cssLiteral(lower)), Desc: "input name substring"},
			Candidate{Strategy: CSS, Query: fmt.Sprintf(`input[placeholder*=%s i]`, cssLiteral(token)), Desc: "input placeholder substring"},
			Candidate{Strategy: CSS, Query: fmt.Sprintf(`textarea[name*=%s]`, cssLiteral(lower)), Desc: "textarea name substring"},
		)
	}

	// Role/text fallbacks in case the token is actually visible copy.
	out = append(out,
		Candidate{Strategy: XPath, Query: fmt.Sprintf(`//button[normalize-space(.)=%s]`, xpathLiteral(token)), Desc: "button text"},
		Candidate{Strategy: XPath, Query: fmt.Sprintf(`//a[normalize-space(.)=%s]`, xpathLiteral(token)), Desc: "anchor text"},
		Candidate{Strategy: XPath, Query: fmt.Sprintf(`//*[@role='button' and contains(normalize-space(.), %s)]`, xpathLiteral(token)), Desc: "role=button text"},
	)
	return out
}

// freeTextCandidates handles multi-word human targets ("Sign In",
// "Advanced Settings"). Priority order follows observed reliability:
// test ids, action-specific literals, affordance roles, frame-scoped
// variants, literal text, dropdown patterns, multilingual fallbacks.
func freeTextCandidates(target string, kind ActionKind) []Candidate {
	slug := slugify(target)
	lit := xpathLiteral(target)

	out := []Candidate{
		{Strategy: CSS, Query: fmt.Sprintf(`[data-testid=%s]`, cssLiteral(slug)), Desc: "slugified test-id exact"},
		{Strategy: CSS, Query: fmt.Sprintf(`[data-testid*=%s]`, cssLiteral(slug)), Desc: "slugified test-id substring"},
		{Strategy: CSS, Query: fmt.Sprintf(`[id*=%s]`, cssLiteral(slug)), Desc: "slugified id substring"},
	}

	// Action-specific literal patterns: authentication-like targets map onto
	// submit affordances for both click and input.
	if (kind == KindClick || kind == KindInput) && authPattern.MatchString(target) {
		out = append(out,
			Candidate{Strategy: CSS, Query: `button[type="submit"]`, Desc: "auth submit button"},
			Candidate{Strategy: CSS, Query: `input[type="submit"]`, Desc: "auth submit input"},
			Candidate{Strategy: XPath, Query: fmt.Sprintf(`//button[contains(normalize-space(.), %s)]`, lit), Desc: "auth button contains"},
		)
	}

	if kind == KindInput {
		out = append(out, inputCandidates(target)...)
	}

	affordances := []Candidate{
		{Strategy: XPath, Query: fmt.Sprintf(`//a[normalize-space(.)=%s]`, lit), Desc: "anchor exact text"},
		{Strategy: XPath, Query: fmt.Sprintf(`//button[normalize-space(.)=%s]`, lit), Desc: "button exact text"},
		{Strategy: XPath, Query: fmt.Sprintf(`//*[@role='tab' and contains(normalize-space(.), %s)]`, lit), Desc: "role=tab"},
		{Strategy: XPath, Query: fmt.Sprintf(`//*[@role='button' and contains(normalize-space(.), %s)]`, lit), Desc: "role=button"},
		{Strategy: XPath, Query: fmt.Sprintf(`//*[@role='link' and contains(normalize-space(.), %s)]`, lit), Desc: "role=link"},
		{Strategy: XPath, Query: fmt.Sprintf(`//a[contains(normalize-space(.), %s)]`, lit), Desc: "anchor contains text"},
		{Strategy: XPath, Query: fmt.Sprintf(`//button[contains(normalize-space(.), %s)]`, lit), Desc: "button contains text"},
	}
	out = append(out, affordances...)

	// Frame-scoped equivalents of the affordance candidates.
	for _, c := range affordances {
		c.InFrame = true
		c.Desc = c.Desc + " (nested frame)"
		out = append(out, c)
	}

	// Literal and normalized text variants.
	out = append(out,
		Candidate{Strategy: XPath, Query: fmt.Sprintf(`//*[text()=%s]`, lit), Desc: "literal text node"},
		Candidate{Strategy: XPath, Query: fmt.Sprintf(`//*[normalize-space(text())=%s]`, lit), Desc: "normalized text node"},
		Candidate{Strategy: XPath, Query: fmt.Sprintf(`//span[contains(normalize-space(.), %s)]`, lit), Desc: "span contains text"},
	)

	// Dropdown / option / menu-item vocabulary.
	if kind != KindInput || dropdownPattern.MatchString(target) {
		out = append(out,
			Candidate{Strategy: XPath, Query: fmt.Sprintf(`//option[normalize-space(.)=%s]`, lit), Desc: "select option"},
			Candidate{Strategy: XPath, Query: fmt.Sprintf(`//li[@role='option' and contains(normalize-space(.), %s)]`, lit), Desc: "listbox option"},
			Candidate{Strategy: XPath, Query: fmt.Sprintf(`//*[@role='menuitem' and contains(normalize-space(.), %s)]`, lit), Desc: "menu item"},
		)
	}

	// Multilingual attribute-based fallbacks.
	lower := strings.ToLower(target)
	for term, candidates := range multilingualTerms {
		if strings.Contains(lower, term) {
			out = append(out, candidates...)
		}
	}

	return out
}

// inputCandidates generates form-control candidates for an input target,
// including the label-to-control hop for targets naming a visible label.
func inputCandidates(target string) []Candidate {
	lit := xpathLiteral(target)
	lower := strings.ToLower(target)
	slug := slugify(target)

	out := []Candidate{
		{Strategy: CSS, Query: fmt.Sprintf(`input[placeholder*=%s i]`, cssLiteral(target)), Desc: "placeholder substring"},
		{Strategy: CSS, Query: fmt.Sprintf(`input[aria-label*=%s i]`, cssLiteral(target)), Desc: "aria-label substring"},
		{Strategy: XPath, Query: fmt.Sprintf(`//label[contains(normalize-space(.), %s)]/following::input[1]`, lit), Desc: "label following input"},
		{Strategy: XPath, Query: fmt.Sprintf(`//label[contains(normalize-space(.), %s)]//input`, lit), Desc: "label nested input"},
		{Strategy: CSS, Query: fmt.Sprintf(`input[name*=%s]`, cssLiteral(slug)), Desc: "name slug substring"},
		{Strategy: CSS, Query: fmt.Sprintf(`textarea[placeholder*=%s i]`, cssLiteral(target)), Desc: "textarea placeholder"},
	}

	// Well-known field shapes.
	if strings.Contains(lower, "email") {
		out = append(out, Candidate{Strategy: CSS, Query: `input[type="email"]`, Desc: "email input type"})
	}
	if strings.Contains(lower, "password") {
		out = append(out, Candidate{Strategy: CSS, Query: `input[type="password"]`, Desc: "password input type"})
	}
	if strings.Contains(lower, "search") {
		out = append(out, Candidate{Strategy: CSS, Query: `input[type="search"]`, Desc: "search input type"})
	}
	return out
}

// -- String helpers --

// slugify lowercases and dash-joins a phrase ("Sign In" -> "sign-in").
func slugify(s string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	return strings.Join(fields, "-")
}

// xpathLiteral quotes s as an XPath string literal, switching to concat()
// when s contains both quote characters.
func xpathLiteral(s string) string {
	switch {
	case !strings.Contains(s, `'`):
		return "'" + s + "'"
	case !strings.Contains(s, `"`):
		return `"` + s + `"`
	default:
		// Mixed quotes require concat('a', "'", 'b', ...).
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
}

// cssLiteral quotes s for use inside a CSS attribute selector.
func cssLiteral(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// lowered builds the XPath 1.0 translate() expression lowercasing an
// attribute reference, since XPath 1.0 has no lower-case().
func lowered(attr string) string {
	return fmt.Sprintf(`translate(%s,'ABCDEFGHIJKLMNOPQRSTUVWXYZ','abcdefghijklmnopqrstuvwxyz')`, attr)
}
