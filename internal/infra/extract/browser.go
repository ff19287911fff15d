package extract

import (
	"context"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// Browser owns the single process-wide headless Chrome handle shared by the
// url/tweet/youtube extractors. It is created lazily on first acquire,
// recreated when the previous instance died, and torn down once at shutdown.
type Browser struct {
	mu          sync.Mutex
	allocCtx    context.Context
	allocCancel context.CancelFunc
	browserCtx  context.Context
	cancel      context.CancelFunc
	closed      bool
	log         *zerolog.Logger
}

func NewBrowser(log *zerolog.Logger) *Browser {
	return &Browser{log: log}
}

// Acquire returns a live browser context to open tabs from, launching or
// relaunching Chrome as needed.
func (b *Browser) Acquire(ctx context.Context) (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		// shutdown already ran; a late acquire relaunches, matching the
		// accessor-recreates-on-teardown policy
		b.closed = false
	}
	if b.browserCtx != nil && b.browserCtx.Err() == nil {
		return b.browserCtx, nil
	}
	if b.browserCtx != nil {
		b.log.Warn().Msg("browser instance disconnected, relaunching")
		b.teardownLocked()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-accelerated-2d-canvas", true),
	)
	b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	b.browserCtx, b.cancel = chromedp.NewContext(b.allocCtx)

	// Start the process now so a broken Chrome install fails here, not on
	// the first navigation.
	if err := chromedp.Run(b.browserCtx); err != nil {
		b.teardownLocked()
		return nil, err
	}
	b.log.Info().Msg("headless browser launched")
	return b.browserCtx, nil
}

// NewTab opens an isolated tab off the shared browser. The returned cancel
// closes only the tab.
func (b *Browser) NewTab(ctx context.Context) (context.Context, context.CancelFunc, error) {
	browserCtx, err := b.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	tabCtx, tabCancel := chromedp.NewContext(browserCtx)
	return tabCtx, tabCancel, nil
}

// Close tears the browser down. Safe to call multiple times and with no
// instance running.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.teardownLocked()
	b.closed = true
}

func (b *Browser) teardownLocked() {
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
		b.browserCtx = nil
	}
	if b.allocCancel != nil {
		b.allocCancel()
		b.allocCancel = nil
		b.allocCtx = nil
	}
}
