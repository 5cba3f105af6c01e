// internal/engine/resolver/text.go
package resolver

import (
	"regexp"
	"strings"

	"github.com/antchfx/htmlquery"

	"github.com/stridr-dev/stridr/api/schemas"
)

// FindText searches the visible text of every frame for the given phrase and
// returns the matched text. Matching escalates: exact, case-insensitive, then
// partial regex. Used by "with ai" condition evaluation, where plain
// substring search over page text is not strict enough.
func (r *Resolver) FindText(frames []schemas.FrameSnapshot, text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}

	visible := make([]string, 0, len(frames))
	for _, frame := range frames {
		doc, err := htmlquery.Parse(strings.NewReader(frame.HTML))
		if err != nil {
			continue
		}
		for _, node := range htmlquery.Find(doc, "//*") {
			if !isCandidateNode(node) {
				continue
			}
			if t := normalize(htmlquery.InnerText(node)); t != "" {
				visible = append(visible, t)
			}
		}
	}

	// Exact.
	for _, t := range visible {
		if t == text {
			return t, true
		}
	}
	// Case-insensitive.
	for _, t := range visible {
		if strings.EqualFold(t, text) {
			return t, true
		}
	}
	// Partial, via quoted regex so metacharacters in the phrase stay literal.
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(text))
	if err != nil {
		return "", false
	}
	for _, t := range visible {
		if m := re.FindString(t); m != "" {
			return m, true
		}
	}
	return "", false
}
