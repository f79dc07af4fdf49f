// Package browser renders pages with a headless Chrome driven through chromedp.
package browser

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"golang.org/x/sync/semaphore"

	"screamshot-server/internal/domain/screenshot"
	"screamshot-server/internal/platform/errors"
	"screamshot-server/internal/platform/logging"
	"screamshot-server/internal/platform/observability"
)

// lifecycleEvents maps wait_until values to Chrome page lifecycle event names.
var lifecycleEvents = map[string]string{
	screenshot.WaitLoad:             "load",
	screenshot.WaitDOMContentLoaded: "DOMContentLoaded",
	screenshot.WaitNetworkIdle0:     "networkIdle",
	screenshot.WaitNetworkIdle2:     "networkAlmostIdle",
}

// Config configures the Chrome process or remote endpoint.
type Config struct {
	ExecPath      string
	RemoteURL     string
	Headless      bool
	NoSandbox     bool
	UserAgent     string
	Timeout       time.Duration
	DefaultWidth  int
	DefaultHeight int
	// MaxTabs bounds concurrent captures. Further callers wait for a free tab.
	MaxTabs int
}

// Generator keeps one browser alive and opens a fresh tab per capture.
type Generator struct {
	cfg    Config
	logger *logging.Logger
	tabs   *semaphore.Weighted

	mu            sync.Mutex
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// New prepares a generator. The browser starts lazily on first capture or Start.
func New(cfg Config, logger *logging.Logger) *Generator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.DefaultWidth <= 0 {
		cfg.DefaultWidth = 800
	}
	if cfg.DefaultHeight <= 0 {
		cfg.DefaultHeight = 600
	}
	if cfg.MaxTabs <= 0 {
		cfg.MaxTabs = 4
	}
	return &Generator{cfg: cfg, logger: logger, tabs: semaphore.NewWeighted(int64(cfg.MaxTabs))}
}

// Start launches (or connects to) the browser.
func (g *Generator) Start(ctx context.Context) error {
	_, err := g.browser(ctx)
	return err
}

func (g *Generator) browser(ctx context.Context) (context.Context, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.browserCtx != nil && g.browserCtx.Err() == nil {
		return g.browserCtx, nil
	}
	// a dead browser still holds its allocator and process
	g.release()

	if g.cfg.RemoteURL != "" {
		g.allocCtx, g.allocCancel = chromedp.NewRemoteAllocator(context.Background(), g.cfg.RemoteURL)
	} else {
		opts := append([]chromedp.ExecAllocatorOption(nil), chromedp.DefaultExecAllocatorOptions[:]...)
		opts = append(opts,
			chromedp.Flag("headless", g.cfg.Headless),
			chromedp.Flag("hide-scrollbars", true),
			chromedp.WindowSize(g.cfg.DefaultWidth, g.cfg.DefaultHeight),
		)
		if g.cfg.ExecPath != "" {
			opts = append(opts, chromedp.ExecPath(g.cfg.ExecPath))
		}
		if g.cfg.NoSandbox {
			opts = append(opts, chromedp.NoSandbox)
		}
		if g.cfg.UserAgent != "" {
			opts = append(opts, chromedp.UserAgent(g.cfg.UserAgent))
		}
		g.allocCtx, g.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}

	g.browserCtx, g.browserCancel = chromedp.NewContext(g.allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			g.logger.DebugTag(logging.TagBrowser, format, args...)
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			g.logger.WarnTag(logging.TagBrowser, format, args...)
		}),
	)

	startCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()
	browserCancel := g.browserCancel
	stop := context.AfterFunc(startCtx, func() {
		if stderrors.Is(startCtx.Err(), context.DeadlineExceeded) {
			browserCancel()
		}
	})
	defer stop()

	if err := chromedp.Run(g.browserCtx); err != nil {
		g.release()
		return nil, errors.Wrap(errors.KindCapture, "browser.start", "start browser", err)
	}

	g.logger.InfoTag(logging.TagBrowser, "browser ready (remote=%t)", g.cfg.RemoteURL != "")
	return g.browserCtx, nil
}

// Close shuts the browser down.
func (g *Generator) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.release()
	return nil
}

// release cancels the current browser and allocator. Callers hold g.mu.
func (g *Generator) release() {
	if g.browserCancel != nil {
		g.browserCancel()
	}
	if g.allocCancel != nil {
		g.allocCancel()
	}
	g.browserCtx, g.browserCancel = nil, nil
	g.allocCtx, g.allocCancel = nil, nil
}

// Generate captures url according to opts.
func (g *Generator) Generate(ctx context.Context, target string, opts screenshot.Options) (_ []byte, err error) {
	ctx, end := observability.StartSpan(ctx, "browser", "generate")
	defer func() { end(err) }()

	if err := checkURL(target); err != nil {
		return nil, screenshot.BadURL(target, err)
	}

	if err := g.tabs.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer g.tabs.Release(1)

	browserCtx, err := g.browser(ctx)
	if err != nil {
		return nil, err
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, g.cfg.Timeout)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	started := time.Now()
	var buf []byte
	err = chromedp.Run(tabCtx, g.tasks(target, opts, &buf))
	if err != nil {
		return nil, g.classify(ctx, tabCtx, target, opts, err)
	}

	g.logger.DebugTag(logging.TagBrowser, "captured %s in %s (%d bytes)", target, time.Since(started).Round(time.Millisecond), len(buf))
	return buf, nil
}

func (g *Generator) tasks(target string, opts screenshot.Options, buf *[]byte) chromedp.Tasks {
	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = g.cfg.DefaultWidth
	}
	if height <= 0 {
		height = g.cfg.DefaultHeight
	}

	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(width), int64(height)),
	}
	if header := authorizationHeader(opts.Credentials); header != "" {
		tasks = append(tasks,
			network.Enable(),
			network.SetExtraHTTPHeaders(network.Headers{"Authorization": header}),
		)
	}

	waitUntil := opts.WaitUntil
	if len(waitUntil) == 0 {
		waitUntil = []string{screenshot.WaitLoad}
	}
	tasks = append(tasks, navigateAndWait(target, waitUntil))

	if opts.WaitFor != "" {
		tasks = append(tasks, chromedp.WaitVisible(opts.WaitFor, chromedp.ByQuery))
	}

	if opts.Selector != "" {
		tasks = append(tasks,
			requireNode(opts.Selector),
			chromedp.Screenshot(opts.Selector, buf, chromedp.ByQuery, chromedp.NodeVisible),
		)
	} else {
		tasks = append(tasks, chromedp.CaptureScreenshot(buf))
	}
	return tasks
}

// navigateAndWait navigates and blocks until every requested lifecycle event fired.
func navigateAndWait(target string, waitUntil []string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		wanted := make([]string, 0, len(waitUntil))
		for _, w := range waitUntil {
			if name, ok := lifecycleEvents[w]; ok {
				wanted = append(wanted, name)
			}
		}

		var mu sync.Mutex
		seen := map[string]bool{}
		done := make(chan struct{}, 1)

		listenCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		chromedp.ListenTarget(listenCtx, func(ev any) {
			e, ok := ev.(*page.EventLifecycleEvent)
			if !ok {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			// about:blank may replay its events before our navigation starts
			if e.Name == "init" {
				clear(seen)
				select {
				case <-done:
				default:
				}
				return
			}
			seen[e.Name] = true
			for _, name := range wanted {
				if !seen[name] {
					return
				}
			}
			select {
			case done <- struct{}{}:
			default:
			}
		})

		if err := page.SetLifecycleEventsEnabled(true).Do(ctx); err != nil {
			return err
		}
		if err := chromedp.Navigate(target).Do(ctx); err != nil {
			return &navigationError{err: err}
		}

		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return &navigationError{err: ctx.Err()}
		}
	})
}

// requireNode fails fast instead of letting chromedp poll for a node that never appears.
func requireNode(selector string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var nodes []*cdp.Node
		if err := chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)).Do(ctx); err != nil {
			return &selectorError{err: err}
		}
		if len(nodes) == 0 {
			return &selectorError{}
		}
		return nil
	})
}

type navigationError struct{ err error }

func (e *navigationError) Error() string { return "navigation: " + e.err.Error() }
func (e *navigationError) Unwrap() error { return e.err }

type selectorError struct{ err error }

func (e *selectorError) Error() string {
	if e.err == nil {
		return "selector matched no node"
	}
	return "selector: " + e.err.Error()
}
func (e *selectorError) Unwrap() error { return e.err }

// classify separates expected failures from unexpected ones.
func (g *Generator) classify(reqCtx, tabCtx context.Context, target string, opts screenshot.Options, err error) error {
	var nav *navigationError
	var sel *selectorError
	switch {
	case reqCtx.Err() != nil:
		return errors.Wrap(errors.KindCapture, "browser.generate", "request cancelled", reqCtx.Err())
	case stderrors.As(err, &sel):
		return screenshot.BadSelector(opts.Selector, err)
	case stderrors.As(err, &nav):
		if strings.Contains(err.Error(), "net::ERR_INVALID_URL") {
			return screenshot.BadURL(target, nav.err)
		}
		return screenshot.NetworkFailure(target, nav.err)
	case stderrors.Is(tabCtx.Err(), context.DeadlineExceeded):
		if opts.WaitFor != "" {
			return screenshot.BadSelector(opts.WaitFor, fmt.Errorf("not visible after %s", g.cfg.Timeout))
		}
		return screenshot.NetworkFailure(target, fmt.Errorf("timed out after %s", g.cfg.Timeout))
	default:
		g.logger.ErrorTag(logging.TagBrowser, "capture of %s failed: %v", target, err)
		return errors.Wrap(errors.KindCapture, "browser.generate", "capture failed", err)
	}
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "http", "https":
		if u.Host == "" {
			return fmt.Errorf("missing host")
		}
	case "file":
	default:
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return nil
}

// authorizationHeader builds the header for credentials. Username and
// password take precedence over token_in_header.
func authorizationHeader(c *screenshot.Credentials) string {
	if c == nil {
		return ""
	}
	if c.Username != "" || c.Password != "" {
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(c.Username+":"+c.Password))
	}
	token := strings.TrimSpace(c.TokenInHeader)
	if token == "" {
		return ""
	}
	if strings.Contains(token, " ") {
		return token
	}
	return "Bearer " + token
}
