// internal/engine/executor/errors.go
package executor

import "fmt"

// The failure taxonomy is expressed as typed errors so callers match on the
// type with errors.As, never on message text.

// ElementNotResolvedError is raised when every resolution tier (candidate
// passes, forced clicks, semantic strategies) has been exhausted.
type ElementNotResolvedError struct {
	Target string
	// Candidates is how many locator candidates were attempted before the
	// semantic tier was consulted.
	Candidates int
}

func (e *ElementNotResolvedError) Error() string {
	return fmt.Sprintf("element not resolved for target %q after %d candidates", e.Target, e.Candidates)
}

// ActionNotActionableError is raised when an element was found but is
// disabled, read-only or hidden for the requested action.
type ActionNotActionableError struct {
	Target string
	Reason string
}

func (e *ActionNotActionableError) Error() string {
	return fmt.Sprintf("element for target %q is not actionable: %s", e.Target, e.Reason)
}

// AssertionMismatchError is raised when a verify step finds nothing matching.
type AssertionMismatchError struct {
	Target string
}

func (e *AssertionMismatchError) Error() string {
	return fmt.Sprintf("nothing visible matches %q", e.Target)
}

// UploadTargetMissingError is raised when no file input is discoverable after
// every fallback tier, including clicking the named trigger.
type UploadTargetMissingError struct {
	Target string
}

func (e *UploadTargetMissingError) Error() string {
	return fmt.Sprintf("no file input discoverable for upload target %q", e.Target)
}
