// internal/browser/session/session.go
// Package session owns the Chrome instance. A Session implements the driver
// surface the engine needs: lifecycle, navigation, candidate- and
// strategy-level interactions, frame snapshots, and network-idle waits. All
// operations layer their deadline onto the long-lived browser context with
// CombineContext so the CDP target stays reachable.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stridr-dev/stridr/internal/config"
)

// NavigationTimeoutError is raised when a page load does not complete within
// the configured navigation timeout.
type NavigationTimeoutError struct {
	URL     string
	Timeout time.Duration
}

func (e *NavigationTimeoutError) Error() string {
	return fmt.Sprintf("navigation to %q timed out after %v", e.URL, e.Timeout)
}

// Session is a single browser session bound to one Chrome instance.
type Session struct {
	id     string
	logger *zap.Logger
	cfg    config.BrowserConfig

	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	closeOnce sync.Once

	// Network activity bookkeeping for WaitNetworkIdle.
	mu           sync.Mutex
	inflight     map[network.RequestID]struct{}
	lastActivity time.Time
}

// NewSession launches Chrome and attaches a CDP session to it. The returned
// session must be closed with Close.
func NewSession(parentCtx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sessionID := uuid.New().String()
	log := logger.Named("session").With(zap.String("session_id", sessionID))

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.WindowSize(windowDim(cfg.WindowWidth, 1440), windowDim(cfg.WindowHeight, 900)),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.IgnoreTLS {
		opts = append(opts, chromedp.Flag("ignore-certificate-errors", true))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parentCtx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		id:            sessionID,
		logger:        log,
		cfg:           cfg,
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		inflight:      make(map[network.RequestID]struct{}),
		lastActivity:  time.Now(),
	}
	s.listenNetwork()

	// Start the browser eagerly so the first step doesn't pay the launch cost
	// under its own timeout.
	if err := chromedp.Run(browserCtx, network.Enable()); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	log.Info("Browser session started.", zap.Bool("headless", cfg.Headless))
	return s, nil
}

func windowDim(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Close tears down the CDP session and the Chrome process. Safe to call more
// than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.logger.Info("Closing browser session.")
		s.browserCancel()
		s.allocCancel()
	})
	return nil
}

// RunActions executes chromedp actions under the combination of the session
// context and the caller's operational context. The cause of a failure is
// whichever context (or action) actually broke.
func (s *Session) RunActions(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(s.browserCtx, ctx)
	defer cancel()

	err := chromedp.Run(runCtx, actions...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if ctxErr := s.browserCtx.Err(); ctxErr != nil {
			return fmt.Errorf("browser session closed: %w", ctxErr)
		}
	}
	return err
}

// listenNetwork registers the CDP event listener that feeds the in-flight
// request set behind WaitNetworkIdle.
func (s *Session) listenNetwork() {
	chromedp.ListenTarget(s.browserCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			s.mu.Lock()
			s.inflight[e.RequestID] = struct{}{}
			s.lastActivity = time.Now()
			s.mu.Unlock()
		case *network.EventLoadingFinished:
			s.requestDone(e.RequestID)
		case *network.EventLoadingFailed:
			s.requestDone(e.RequestID)
		}
	})
}

func (s *Session) requestDone(id network.RequestID) {
	s.mu.Lock()
	delete(s.inflight, id)
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// WaitNetworkIdle blocks until no request has been in flight for the quiet
// period, or fails at the timeout.
func (s *Session) WaitNetworkIdle(ctx context.Context, quiet, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		s.mu.Lock()
		idle := len(s.inflight) == 0 && time.Since(s.lastActivity) >= quiet
		s.mu.Unlock()
		if idle {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("network did not go idle within %v", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// -- Navigation --

// Navigate loads the URL and waits for the document plus the configured
// post-load quiet period.
func (s *Session) Navigate(ctx context.Context, url string) error {
	timeout := s.cfg.NavigationTimeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.logger.Info("Navigating.", zap.String("url", url))
	err := s.RunActions(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		if navCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return &NavigationTimeoutError{URL: url, Timeout: timeout}
		}
		return fmt.Errorf("navigation to %q failed: %w", url, err)
	}

	if s.cfg.PostLoadWait > 0 {
		if err := s.RunActions(ctx, chromedp.Sleep(s.cfg.PostLoadWait)); err != nil {
			return err
		}
	}
	return nil
}

// Back navigates one entry back in the history.
func (s *Session) Back(ctx context.Context) error {
	return s.RunActions(ctx,
		chromedp.NavigateBack(),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// Reload reloads the current page.
func (s *Session) Reload(ctx context.Context) error {
	return s.RunActions(ctx,
		chromedp.Reload(),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// screenshotTimeout bounds a capture on its own, since the caller's deadline
// has usually already fired by the time a failure screenshot is requested.
const screenshotTimeout = 10 * time.Second

// Screenshot captures a viewport screenshot as PNG. The capture detaches from
// the caller's deadline and cancellation so it still works for a step that
// just timed out; the browser context still bounds it.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	opCtx, cancel := captureContext(ctx, screenshotTimeout)
	defer cancel()

	var buf []byte
	if err := s.RunActions(opCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return buf, nil
}

// -- Simple readers --

// URL returns the top frame's current location.
func (s *Session) URL(ctx context.Context) (string, error) {
	var u string
	if err := s.RunActions(ctx, chromedp.Location(&u)); err != nil {
		return "", err
	}
	return u, nil
}

// Title returns the current document title.
func (s *Session) Title(ctx context.Context) (string, error) {
	var t string
	if err := s.RunActions(ctx, chromedp.Title(&t)); err != nil {
		return "", err
	}
	return t, nil
}

// Sleep pauses for d, respecting both the operational and session contexts.
func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	return s.RunActions(ctx, chromedp.Sleep(d))
}
