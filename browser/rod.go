package browser

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

// stableWindow is how long the DOM must stay unchanged to count as settled.
const stableWindow = 500 * time.Millisecond

// LaunchConfig controls how the headless browser is started.
type LaunchConfig struct {
	Headless bool
	// Bin is the Chrome executable. Empty lets rod find or download one.
	Bin       string
	UserAgent string
	// NavigationTimeout bounds each page load.
	NavigationTimeout time.Duration
}

// DefaultLaunchConfig returns the settings used for scheduled runs.
func DefaultLaunchConfig() LaunchConfig {
	return LaunchConfig{
		Headless:          true,
		UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		NavigationTimeout: 30 * time.Second,
	}
}

// Rod drives a headless Chrome through go-rod. The page HTML is snapshotted
// into a goquery document after every navigation and settle.
type Rod struct {
	launcher   *launcher.Launcher
	browser    *rod.Browser
	page       *rod.Page
	current    Document
	navTimeout time.Duration
	logger     zerolog.Logger
}

// Launch starts Chrome and opens a blank page. Any failure is reported as
// ErrUnavailable. Callers must Close the returned driver.
func Launch(ctx context.Context, cfg LaunchConfig, logger zerolog.Logger) (*Rod, error) {
	l := launcher.New().
		Context(ctx).
		Headless(cfg.Headless).
		NoSandbox(true).
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("window-size", "1920,1080")
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to launch chrome: %v", ErrUnavailable, err)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("%w: failed to connect to chrome: %v", ErrUnavailable, err)
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		b.Close()
		l.Kill()
		return nil, fmt.Errorf("%w: failed to open page: %v", ErrUnavailable, err)
	}

	if cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: cfg.UserAgent}); err != nil {
			logger.Warn().Err(err).Msg("Failed to set user agent")
		}
	}

	navTimeout := cfg.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = DefaultLaunchConfig().NavigationTimeout
	}

	logger.Debug().Str("control_url", controlURL).Bool("headless", cfg.Headless).Msg("Browser launched")

	return &Rod{
		launcher:   l,
		browser:    b,
		page:       page,
		navTimeout: navTimeout,
		logger:     logger,
	}, nil
}

// Close shuts the browser down and removes its profile directory.
func (r *Rod) Close() error {
	err := r.browser.Close()
	r.launcher.Kill()
	r.launcher.Cleanup()
	r.logger.Debug().Msg("Browser closed")
	return err
}

// Navigate implements Driver.
func (r *Rod) Navigate(ctx context.Context, url string) error {
	p := r.page.Context(ctx).Timeout(r.navTimeout)

	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("failed waiting for %s to load: %w", url, err)
	}

	return r.snapshot(ctx)
}

// WaitUntilSettled implements Driver. Reaching the timeout is not an error;
// the page is used as rendered so far.
func (r *Rod) WaitUntilSettled(ctx context.Context, timeout time.Duration) error {
	err := r.page.Context(ctx).Timeout(timeout).WaitStable(stableWindow)
	if err != nil && !(errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil) {
		return fmt.Errorf("failed waiting for page to settle: %w", err)
	}

	return r.snapshot(ctx)
}

// Click implements Driver.
func (r *Rod) Click(ctx context.Context, selector, text string) error {
	p := r.page.Context(ctx).Timeout(r.navTimeout)

	pattern := `^\s*` + regexp.QuoteMeta(text) + `\s*$`
	el, err := p.ElementR(selector, pattern)
	if err != nil {
		return fmt.Errorf("failed to find %q with text %q: %w", selector, text, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("failed to click %q: %w", text, err)
	}

	return r.snapshot(ctx)
}

// URL implements Document.
func (r *Rod) URL() string {
	if r.current == nil {
		return ""
	}
	return r.current.URL()
}

// QuerySingle implements Document.
func (r *Rod) QuerySingle(selector string) (Node, bool) {
	if r.current == nil {
		return nil, false
	}
	return r.current.QuerySingle(selector)
}

// QueryAll implements Document.
func (r *Rod) QueryAll(selector string) []Node {
	if r.current == nil {
		return nil
	}
	return r.current.QueryAll(selector)
}

func (r *Rod) snapshot(ctx context.Context) error {
	p := r.page.Context(ctx)

	html, err := p.HTML()
	if err != nil {
		return fmt.Errorf("failed to read page html: %w", err)
	}

	info, err := p.Info()
	if err != nil {
		return fmt.Errorf("failed to read page info: %w", err)
	}

	doc, err := ParseDocument(info.URL, html)
	if err != nil {
		return fmt.Errorf("failed to parse html: %w", err)
	}
	r.current = doc

	return nil
}
