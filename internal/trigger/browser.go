package trigger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"

	"github.com/ligustah/acquire/pkg/acquire"
)

// BrowserOptions configures a browser trigger.
type BrowserOptions struct {
	// URL is a template rendered with the unit and opened for each unit.
	URL string

	// Selector, when set, is clicked after the page loads to start the
	// export.
	Selector string

	// WatchDir is where the browser is told to save downloads.
	WatchDir string

	Headless bool

	// Bin is the browser executable. Empty means auto-detect.
	Bin string

	// Timeout bounds each navigation and click.
	// Default: 30s
	Timeout time.Duration

	Logger zerolog.Logger
}

// Browser drives a Chromium instance that downloads straight into the
// watched directory.
type Browser struct {
	url  *template.Template
	opts BrowserOptions

	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// NewBrowser launches the browser and points its downloads at
// opts.WatchDir. Close must be called to shut it down.
func NewBrowser(ctx context.Context, opts BrowserOptions) (*Browser, error) {
	if opts.URL == "" {
		return nil, errors.New("trigger: browser url is required")
	}
	if opts.WatchDir == "" {
		return nil, errors.New("trigger: watch dir is required")
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	tmpl, err := parseTemplate("url", opts.URL)
	if err != nil {
		return nil, err
	}

	l := launcher.New().
		Headless(opts.Headless).
		Set("disable-blink-features", "AutomationControlled")
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}

	controlURL, err := l.Context(ctx).Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	err = proto.BrowserSetDownloadBehavior{
		Behavior:     proto.BrowserSetDownloadBehaviorBehaviorAllow,
		DownloadPath: opts.WatchDir,
	}.Call(browser)
	if err != nil {
		browser.Close()
		l.Kill()
		return nil, fmt.Errorf("set download behavior: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		browser.Close()
		l.Kill()
		return nil, fmt.Errorf("open page: %w", err)
	}

	return &Browser{
		url:      tmpl,
		opts:     opts,
		launcher: l,
		browser:  browser,
		page:     page,
	}, nil
}

// Fire opens the unit's URL and, if configured, clicks the export element.
func (b *Browser) Fire(ctx context.Context, unit acquire.UnitRequest) error {
	u, err := render(b.url, unit)
	if err != nil {
		return err
	}

	page := b.page.Context(ctx).Timeout(b.opts.Timeout)
	defer page.CancelTimeout()

	// Navigations that turn into downloads are reported as aborted.
	if err := page.Navigate(u); err != nil && !isDownloadAbort(err) {
		return fmt.Errorf("navigate %s: %w", u, err)
	}

	if b.opts.Selector == "" {
		return nil
	}

	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}
	el, err := page.Element(b.opts.Selector)
	if err != nil {
		return fmt.Errorf("find %s: %w", b.opts.Selector, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %s: %w", b.opts.Selector, err)
	}

	b.opts.Logger.Debug().Str("unit", unit.ID).Str("url", u).Msg("export clicked")
	return nil
}

// Reset reloads the current page so the next unit starts from a fresh
// state.
func (b *Browser) Reset(ctx context.Context) error {
	page := b.page.Context(ctx).Timeout(b.opts.Timeout)
	defer page.CancelTimeout()

	if err := page.Reload(); err != nil && !isDownloadAbort(err) {
		return fmt.Errorf("reload: %w", err)
	}
	return nil
}

// Close shuts the browser down.
func (b *Browser) Close() error {
	err := b.browser.Close()
	b.launcher.Kill()
	return err
}

func isDownloadAbort(err error) bool {
	return strings.Contains(err.Error(), "net::ERR_ABORTED")
}
