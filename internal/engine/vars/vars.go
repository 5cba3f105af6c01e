// internal/engine/vars/vars.go
// Package vars holds the flat variable store scoped to one test run and the
// ${name} substitution applied to step targets and values.
package vars

import (
	"regexp"
	"strings"
)

var refPattern = regexp.MustCompile(`\$\{([A-Za-z0-9_.-]+)\}`)

// Store maps variable names to string values. It is owned by a single run's
// execution context and mutated only by that run's interpreter, so no
// locking is required.
type Store struct {
	values map[string]string
}

// New returns an empty store.
func New() *Store {
	return &Store{values: make(map[string]string)}
}

// Assign sets name to value, silently overwriting any previous value.
func (s *Store) Assign(name, value string) {
	s.values[strings.TrimSpace(name)] = value
}

// Get returns the value for name and whether it exists.
func (s *Store) Get(name string) (string, bool) {
	v, ok := s.values[strings.TrimSpace(name)]
	return v, ok
}

// Len returns the number of stored variables.
func (s *Store) Len() int { return len(s.values) }

// Substitute replaces every ${name} occurrence with the stored value.
// References to unknown names are left verbatim; authors rely on this to
// pass literal ${...} tokens through to the page. Idempotent for strings
// whose stored values contain no further references.
func (s *Store) Substitute(text string) string {
	if !strings.Contains(text, "${") {
		return text
	}
	return refPattern.ReplaceAllStringFunc(text, func(ref string) string {
		name := ref[2 : len(ref)-1]
		if v, ok := s.values[name]; ok {
			return v
		}
		return ref
	})
}
