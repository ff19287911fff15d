package extract

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	readability "github.com/go-shiori/go-readability"

	"card-index-pipeline/internal/domain"
	"card-index-pipeline/internal/domain/ports/adapter"
	"card-index-pipeline/internal/util"
)

// WebExtractor renders the page in the shared headless browser and pulls the
// readable main content out of the resulting DOM. Serves both url and tweet
// cards; tweets are just pages that need JS to render.
type WebExtractor struct {
	browser     *Browser
	pageTimeout time.Duration
}

var _ adapter.Extractor = (*WebExtractor)(nil)

func NewWebExtractor(browser *Browser, pageTimeout time.Duration) *WebExtractor {
	if pageTimeout <= 0 {
		pageTimeout = 60 * time.Second
	}
	return &WebExtractor{browser: browser, pageTimeout: pageTimeout}
}

func (e *WebExtractor) Extract(ctx context.Context, req adapter.Request) (string, error) {
	pageURL := strings.TrimSpace(req.Card.Source)
	parsed, err := url.Parse(pageURL)
	if err != nil || parsed.Scheme == "" {
		return "", fmt.Errorf("invalid url %q: %w", pageURL, domain.ErrInvalidArgument)
	}

	tabCtx, tabCancel, err := e.browser.NewTab(ctx)
	if err != nil {
		return "", fmt.Errorf("acquire browser: %w", err)
	}
	defer tabCancel()

	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, e.pageTimeout)
	defer timeoutCancel()

	var html string
	err = chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("load page %s: %w", pageURL, err)
	}
	if html == "" {
		return "", fmt.Errorf("%s: %w", pageURL, domain.ErrNoExtractableContent)
	}

	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return "", fmt.Errorf("parse readable content from %s: %w", pageURL, err)
	}

	text := util.NormalizeWhitespace(util.SanitizeText(article.TextContent))
	if text == "" {
		return "", fmt.Errorf("%s: %w", pageURL, domain.ErrNoExtractableContent)
	}
	return text, nil
}
