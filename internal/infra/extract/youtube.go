package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"

	"card-index-pipeline/internal/domain"
	"card-index-pipeline/internal/domain/ports/adapter"
)

// YouTubeExtractor drives the shared browser through a third-party
// page-based audio-conversion flow, waits for the converted file to land in
// the job's scratch directory and hands it to the audio adapter.
type YouTubeExtractor struct {
	browser         *Browser
	audio           *AudioExtractor
	converterURL    string
	pageTimeout     time.Duration
	downloadTimeout time.Duration
}

var _ adapter.Extractor = (*YouTubeExtractor)(nil)

func NewYouTubeExtractor(browser *Browser, audio *AudioExtractor, converterURL string, pageTimeout, downloadTimeout time.Duration) *YouTubeExtractor {
	if pageTimeout <= 0 {
		pageTimeout = 60 * time.Second
	}
	if downloadTimeout <= 0 {
		downloadTimeout = 10 * time.Minute
	}
	return &YouTubeExtractor{
		browser:         browser,
		audio:           audio,
		converterURL:    converterURL,
		pageTimeout:     pageTimeout,
		downloadTimeout: downloadTimeout,
	}
}

func (e *YouTubeExtractor) Extract(ctx context.Context, req adapter.Request) (string, error) {
	audioFile, err := e.downloadAudio(ctx, req.Card.Source, req.ScratchDir)
	if err != nil {
		return "", err
	}
	return e.audio.TranscribeFile(ctx, audioFile)
}

func (e *YouTubeExtractor) downloadAudio(ctx context.Context, videoURL, scratchDir string) (string, error) {
	tabCtx, tabCancel, err := e.browser.NewTab(ctx)
	if err != nil {
		return "", fmt.Errorf("acquire browser: %w", err)
	}
	defer tabCancel()

	runCtx, cancel := context.WithTimeout(tabCtx, e.downloadTimeout)
	defer cancel()

	err = chromedp.Run(runCtx,
		cdpbrowser.SetDownloadBehavior(cdpbrowser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(scratchDir),
		chromedp.Navigate(e.converterURL),
		chromedp.WaitVisible(`input[type="text"]`, chromedp.ByQuery),
		chromedp.SendKeys(`input[type="text"]`, videoURL, chromedp.ByQuery),
		chromedp.Click(`button[type="submit"]`, chromedp.ByQuery),
		chromedp.WaitVisible(`a[download], a[href*=".mp3"], a[href*="download"]`, chromedp.ByQuery),
		chromedp.Click(`a[download], a[href*=".mp3"], a[href*="download"]`, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("conversion flow for %s: %w", videoURL, err)
	}

	return e.waitForDownload(runCtx, scratchDir)
}

// waitForDownload polls the scratch directory until an .mp3 shows up and has
// stopped growing, bounded by the surrounding context deadline.
func (e *YouTubeExtractor) waitForDownload(ctx context.Context, dir string) (string, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", domain.ErrDownloadTimeout
		case <-ticker.C:
			entries, err := os.ReadDir(dir)
			if err != nil {
				return "", fmt.Errorf("read scratch dir: %w", err)
			}
			for _, entry := range entries {
				if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".mp3") {
					continue
				}
				path := filepath.Join(dir, entry.Name())
				if fileSettled(path) {
					return path, nil
				}
			}
		}
	}
}

// fileSettled reports whether the file's size is stable across a short pause,
// i.e. the browser finished writing it.
func fileSettled(path string) bool {
	before, err := os.Stat(path)
	if err != nil {
		return false
	}
	time.Sleep(1 * time.Second)
	after, err := os.Stat(path)
	if err != nil {
		return false
	}
	return before.Size() == after.Size() && after.Size() > 0
}
