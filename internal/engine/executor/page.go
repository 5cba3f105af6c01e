// internal/engine/executor/page.go
package executor

import (
	"context"
	"time"

	"github.com/stridr-dev/stridr/api/schemas"
	"github.com/stridr-dev/stridr/internal/engine/locator"
)

// ElementState is the interactability snapshot of the first element matching
// a candidate, used to guard fills against non-fillable targets.
type ElementState struct {
	Exists   bool
	Visible  bool
	Disabled bool
	ReadOnly bool
}

// Fillable reports whether a fill may be attempted. Fills are never forced
// into disabled, read-only or hidden elements.
func (s ElementState) Fillable() bool {
	return s.Exists && s.Visible && !s.Disabled && !s.ReadOnly
}

// Page is the browser surface the executor drives. The chromedp session
// implements it; tests substitute a scripted fake. Candidates are declarative
// and re-evaluated against the current DOM on every call, so a method may
// succeed after an earlier identical call failed.
type Page interface {
	// Readers.
	URL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	VisibleText(ctx context.Context) (string, error)

	// Candidate-level queries and actions.
	WaitAttached(ctx context.Context, c locator.Candidate, timeout time.Duration) error
	WaitVisible(ctx context.Context, c locator.Candidate, timeout time.Duration) error
	Click(ctx context.Context, c locator.Candidate, timeout time.Duration) error
	Fill(ctx context.Context, c locator.Candidate, value string, timeout time.Duration) error
	// DispatchClick bypasses visibility and actionability checks by invoking
	// a native click or synthetic click event on the first match.
	DispatchClick(ctx context.Context, c locator.Candidate) error
	ElementState(ctx context.Context, c locator.Candidate) (ElementState, error)
	ElementText(ctx context.Context, c locator.Candidate) (string, error)
	IsVisible(ctx context.Context, c locator.Candidate) (bool, error)
	SetFiles(ctx context.Context, c locator.Candidate, files []string) error

	// Strategy-level actions; the session routes non-main-frame strategies
	// to the right frame.
	ClickStrategy(ctx context.Context, s schemas.ElementStrategy, timeout time.Duration) error
	StrategyVisible(ctx context.Context, s schemas.ElementStrategy) (bool, error)

	// Page-level motion and waits.
	ScrollTop(ctx context.Context) error
	ScrollBy(ctx context.Context, pixels int) error
	Sleep(ctx context.Context, d time.Duration) error
	WaitNetworkIdle(ctx context.Context, quiet, timeout time.Duration) error

	// Snapshot serializes every reachable frame for semantic resolution.
	Snapshot(ctx context.Context) ([]schemas.FrameSnapshot, error)
}
