package chromedp

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-shiori/go-readability"
	"github.com/mohammad-safakhou/briefer/internal/helpers"
	"github.com/mohammad-safakhou/briefer/tools/web_fetch/models"
)

// Fetch renders pages in headless Chrome, for sources that build their
// content with JavaScript.
type Fetch struct {
	Timeout   time.Duration
	MaxChars  int
	UserAgent string
}

func (f Fetch) Exec(ctx context.Context, url string) (models.Result, error) {
	if strings.TrimSpace(url) == "" {
		return models.Result{}, errors.New("invalid url")
	}
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}
	t0 := time.Now()

	html, status, err := f.fetchHTML(ctx, url)
	if err != nil {
		return models.Result{URL: url, Status: status, RenderMS: int(time.Since(t0) / time.Millisecond)}, err
	}

	// Prefer the readable article; fall back to the whole body.
	var title, text string
	article, err := readability.FromReader(strings.NewReader(html), mustParseURL(url))
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		title = strings.TrimSpace(article.Title)
		text = helpers.Excerpt(article.TextContent, f.MaxChars)
	} else {
		text = helpers.PlainText(html, f.MaxChars)
	}

	sum := sha1.Sum([]byte(html))
	return models.Result{
		URL:      url,
		Title:    title,
		Text:     text,
		HTMLHash: hex.EncodeToString(sum[:]),
		Status:   status,
		RenderMS: int(time.Since(t0) / time.Millisecond),
	}, nil
}

// fetchHTML navigates to url and returns the rendered document together with
// the main response status. Non-2xx responses stop before rendering.
func (f Fetch) fetchHTML(ctx context.Context, url string) (string, int, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
	)
	if f.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(f.UserAgent))
	}
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	resp, err := chromedp.RunResponse(bctx, chromedp.Navigate(url))
	if err != nil {
		return "", 0, err
	}
	status := http.StatusOK
	if resp != nil {
		status = int(resp.Status)
	}
	if err := models.CheckStatus(url, status); err != nil {
		return "", status, err
	}

	var html string
	err = chromedp.Run(bctx,
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return html, status, err
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return &url.URL{}
	}
	return u
}
