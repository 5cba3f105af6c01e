// internal/engine/interpreter/inline.go
package interpreter

import (
	"regexp"
	"strings"

	"github.com/stridr-dev/stridr/api/schemas"
)

// Inline actions are single-line commands carried in an "if" step's target,
// executed when the condition holds. Grammar:
//
//	click <target> [with ai]
//	enter <value> in|into|on <target> [with ai]
//	verify <target> [with ai]
//	back | refresh
//	wait <n>sec
//	set|store|assign <name>=<value>

var (
	assignPattern = regexp.MustCompile(`(?i)^(set|store|assign)\s+([A-Za-z0-9_.-]+)\s*=\s*(.*)$`)
	waitPattern   = regexp.MustCompile(`(?i)^wait\s+(\d+)\s*(sec|s)?$`)
)

// enterSeparators in scan order; the last occurrence of any of them splits
// value from target, so values containing "in" or "on" parse correctly.
var enterSeparators = []string{" in ", " into ", " on "}

// parseInline parses s as an inline action. ok is false when s is not a
// recognized command, in which case s was ordinary target text.
func parseInline(s string) (schemas.TestStep, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return schemas.TestStep{}, false
	}

	useAI := false
	if trimmed, found := strings.CutSuffix(s, " with ai"); found {
		useAI = true
		s = strings.TrimSpace(trimmed)
	}

	lower := strings.ToLower(s)
	switch {
	case lower == "back":
		return schemas.TestStep{Action: schemas.ActionBack}, true
	case lower == "refresh":
		return schemas.TestStep{Action: schemas.ActionRefresh}, true
	}

	if m := waitPattern.FindStringSubmatch(s); m != nil {
		return schemas.TestStep{Action: schemas.ActionWait, Target: m[1]}, true
	}

	if m := assignPattern.FindStringSubmatch(s); m != nil {
		return schemas.TestStep{
			Action: schemas.Action(strings.ToLower(m[1])),
			Target: m[2],
			Value:  strings.TrimSpace(m[3]),
		}, true
	}

	if rest, found := cutPrefixFold(s, "click "); found {
		return schemas.TestStep{Action: schemas.ActionClick, Target: strings.TrimSpace(rest), UseAI: useAI}, true
	}
	if rest, found := cutPrefixFold(s, "verify "); found {
		return schemas.TestStep{Action: schemas.ActionVerify, Target: strings.TrimSpace(rest), UseAI: useAI}, true
	}
	if rest, found := cutPrefixFold(s, "enter "); found {
		value, target, ok := splitEnter(rest)
		if !ok {
			return schemas.TestStep{}, false
		}
		return schemas.TestStep{Action: schemas.ActionInput, Target: target, Value: value, UseAI: useAI}, true
	}

	return schemas.TestStep{}, false
}

// splitEnter splits "enter" argument text at the last matching separator.
func splitEnter(s string) (value, target string, ok bool) {
	best := -1
	bestLen := 0
	for _, sep := range enterSeparators {
		if idx := strings.LastIndex(strings.ToLower(s), sep); idx > best {
			best = idx
			bestLen = len(sep)
		}
	}
	if best < 0 {
		return "", "", false
	}
	return strings.TrimSpace(s[:best]), strings.TrimSpace(s[best+bestLen:]), true
}

// cutPrefixFold is strings.CutPrefix with case-insensitive prefix matching.
func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}
