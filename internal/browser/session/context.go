// internal/browser/session/context.go
package session

import (
	"context"
	"time"
)

// CombineContext derives a context from primary that is canceled when either
// primary or secondary is done. chromedp contexts carry the CDP target in
// their values, so operational deadlines must be layered on top of the
// session context rather than replacing it; this keeps the target reachable
// while honoring the caller's deadline.
func CombineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)

	go func() {
		select {
		case <-secondary.Done():
			cancel()
		case <-combined.Done():
		}
	}()

	return combined, cancel
}

// valueOnlyContext inherits values from its parent but ignores the parent's
// deadline and cancellation.
type valueOnlyContext struct {
	context.Context
}

func (valueOnlyContext) Deadline() (time.Time, bool) { return time.Time{}, false }
func (valueOnlyContext) Done() <-chan struct{}       { return nil }
func (valueOnlyContext) Err() error                  { return nil }

// Detach returns a context carrying ctx's values that survives ctx's
// cancellation. Used for cleanup work that must outlive a failed step.
func Detach(ctx context.Context) context.Context {
	return valueOnlyContext{ctx}
}

// captureContext derives a context for artifact capture: it keeps ctx's
// values but not its deadline or cancellation, bounded by d. Failure
// artifacts must still be collectable once the step that produced them has
// timed out.
func captureContext(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(Detach(ctx), d)
}
