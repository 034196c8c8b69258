package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"

	"socsync/pkg/contracts/domain"
)

// ChromeOptions configures the Chrome session
type ChromeOptions struct {
	Headless bool
	ExecPath string
	Width    int
	Height   int
	Logger   *slog.Logger
}

// ChromeBrowser drives a headless Chrome through the DevTools protocol
type ChromeBrowser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	logger      *slog.Logger

	mu        sync.Mutex
	suggested map[string]string
	completed chan downloadResult

	closeOnce sync.Once
	closeErr  error
}

type downloadResult struct {
	guid string
	name string
	err  error
}

// NewChromeFactory returns a BrowserFactory that launches Chrome with opts
func NewChromeFactory(opts ChromeOptions) BrowserFactory {
	return func(ctx context.Context) (Browser, error) {
		return NewChromeBrowser(ctx, opts)
	}
}

// NewChromeBrowser launches an isolated Chrome instance. The browser lives
// until Close; ctx only bounds the launch.
func NewChromeBrowser(ctx context.Context, opts ChromeOptions) (*ChromeBrowser, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "chrome"))

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.DisableGPU,
		chromedp.WindowSize(opts.Width, opts.Height),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	// The session must outlive the launch context, values are kept for logging.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	tabCtx, cancel := chromedp.NewContext(allocCtx, chromedp.WithErrorf(func(format string, args ...interface{}) {
		logger.Debug("chromedp error", slog.String("message", fmt.Sprintf(format, args...)))
	}))

	b := &ChromeBrowser{
		ctx:         tabCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		logger:      logger,
		suggested:   make(map[string]string),
	}

	chromedp.ListenTarget(tabCtx, b.onEvent)

	start := time.Now()
	// The first Run on the tab context starts the browser process.
	errCh := make(chan error, 1)
	go func() {
		errCh <- chromedp.Run(tabCtx, chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)))
	}()
	select {
	case err := <-errCh:
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
	case <-ctx.Done():
		_ = b.Close()
		return nil, ctx.Err()
	}

	logger.Info("Chrome started",
		slog.Bool("headless", opts.Headless),
		slog.Int("width", opts.Width),
		slog.Int("height", opts.Height),
		slog.Duration("startup", time.Since(start)))
	return b, nil
}

// Navigate loads target. A change of fragment only is applied in place so
// single-page routes do not wait for a load event that never fires.
func (b *ChromeBrowser) Navigate(ctx context.Context, target string) error {
	return b.run(ctx, "navigate", chromedp.ActionFunc(func(ctx context.Context) error {
		var current string
		if err := chromedp.Location(&current).Do(ctx); err == nil && sameDocument(current, target) {
			return chromedp.Evaluate(fmt.Sprintf("window.location.href = %s", jsString(target)), nil).Do(ctx)
		}
		return chromedp.Navigate(target).Do(ctx)
	}))
}

// WaitVisible blocks until the element is visible
func (b *ChromeBrowser) WaitVisible(ctx context.Context, loc Locator) error {
	return b.run(ctx, "wait_visible "+loc.String(), chromedp.WaitVisible(loc.Query(), chromedp.BySearch))
}

// Visible evaluates a visibility probe for loc in the page
func (b *ChromeBrowser) Visible(ctx context.Context, loc Locator) (bool, error) {
	var visible bool
	err := b.run(ctx, "visible "+loc.String(), chromedp.Evaluate(visibilityProbe(loc), &visible))
	return visible, err
}

// Fill clears the input and types value into it
func (b *ChromeBrowser) Fill(ctx context.Context, loc Locator, value string) error {
	q := loc.Query()
	return b.run(ctx, "fill "+loc.String(),
		chromedp.WaitVisible(q, chromedp.BySearch),
		chromedp.Clear(q, chromedp.BySearch),
		chromedp.SendKeys(q, value, chromedp.BySearch),
	)
}

// Click clicks the first element matched by loc
func (b *ChromeBrowser) Click(ctx context.Context, loc Locator) error {
	return b.run(ctx, "click "+loc.String(), chromedp.Click(loc.Query(), chromedp.BySearch))
}

// PressKey dispatches a key event to the page
func (b *ChromeBrowser) PressKey(ctx context.Context, key string) error {
	return b.run(ctx, "press_key", chromedp.KeyEvent(key))
}

// Download enables downloads into dir, clicks trigger and waits until the
// browser reports the download completed. The file is renamed from the
// browser's GUID to the suggested filename.
func (b *ChromeBrowser) Download(ctx context.Context, trigger Locator, dir string) (*domain.DownloadArtifact, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	done := make(chan downloadResult, 1)
	b.mu.Lock()
	b.completed = done
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.completed = nil
		b.mu.Unlock()
	}()

	err = b.run(ctx, "download "+trigger.String(),
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllowAndName).
			WithDownloadPath(absDir).
			WithEventsEnabled(true),
		chromedp.Click(trigger.Query(), chromedp.BySearch),
	)
	if err != nil {
		return nil, err
	}

	var res downloadResult
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-done:
	}
	if res.err != nil {
		return nil, res.err
	}

	name := filepath.Base(res.name)
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = res.guid
	}
	final := filepath.Join(absDir, name)
	if err := os.Rename(filepath.Join(absDir, res.guid), final); err != nil {
		return nil, fmt.Errorf("rename download %s: %w", res.guid, err)
	}
	info, err := os.Stat(final)
	if err != nil {
		return nil, err
	}

	b.logger.Info("Download completed",
		slog.String("file", final),
		slog.Int64("size", info.Size()))
	return &domain.DownloadArtifact{
		Path:          final,
		SuggestedName: res.name,
		Size:          info.Size(),
		CompletedAt:   time.Now(),
	}, nil
}

// Close shuts the tab and the browser process down
func (b *ChromeBrowser) Close() error {
	b.closeOnce.Do(func() {
		b.closeErr = chromedp.Cancel(b.ctx)
		b.cancel()
		b.allocCancel()
		b.logger.Debug("Chrome closed")
	})
	return b.closeErr
}

// onEvent runs on the chromedp event loop and must not block
func (b *ChromeBrowser) onEvent(ev interface{}) {
	switch ev := ev.(type) {
	case *browser.EventDownloadWillBegin:
		b.mu.Lock()
		b.suggested[ev.GUID] = ev.SuggestedFilename
		b.mu.Unlock()
	case *browser.EventDownloadProgress:
		var res downloadResult
		switch ev.State {
		case browser.DownloadProgressStateCompleted:
			res = downloadResult{guid: ev.GUID}
		case browser.DownloadProgressStateCanceled:
			res = downloadResult{guid: ev.GUID, err: fmt.Errorf("download %s was cancelled by the browser", ev.GUID)}
		default:
			return
		}
		b.mu.Lock()
		res.name = b.suggested[ev.GUID]
		delete(b.suggested, ev.GUID)
		done := b.completed
		b.mu.Unlock()
		if done != nil {
			select {
			case done <- res:
			default:
			}
		}
	}
}

// run executes actions on the tab bound to the caller's ctx
func (b *ChromeBrowser) run(ctx context.Context, name string, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(b.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, b.timedAction(name, chromedp.Tasks(actions)))
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (b *ChromeBrowser) timedAction(name string, act chromedp.Action) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		start := time.Now()
		err := act.Do(ctx)
		b.logger.Debug("Browser action",
			slog.String("action", name),
			slog.Duration("duration", time.Since(start)),
			slog.Bool("ok", err == nil))
		return err
	})
}

func sameDocument(current, target string) bool {
	cu, err := url.Parse(current)
	if err != nil {
		return false
	}
	tu, err := url.Parse(target)
	if err != nil {
		return false
	}
	return cu.Scheme == tu.Scheme && cu.Host == tu.Host && cu.Path == tu.Path && cu.RawQuery == tu.RawQuery
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// visibilityProbe returns a JS expression that is true when loc matches a
// rendered element
func visibilityProbe(loc Locator) string {
	var find string
	if loc.IsCSS() {
		find = fmt.Sprintf("document.querySelector(%s)", jsString(loc.Query()))
	} else {
		find = fmt.Sprintf("document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue", jsString(loc.Query()))
	}
	return fmt.Sprintf(`(() => {
	const el = %s;
	if (!el) return false;
	const style = window.getComputedStyle(el);
	if (style.visibility === "hidden" || style.display === "none") return false;
	return el.getClientRects().length > 0;
})()`, find)
}
