package web_fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mohammad-safakhou/briefer/tools/web_fetch/chromedp"
	"github.com/mohammad-safakhou/briefer/tools/web_fetch/httpfetch"
	"github.com/mohammad-safakhou/briefer/tools/web_fetch/models"
)

const (
	DefaultTimeout  = 20 * time.Second
	MaxCharsDefault = 3000
)

type WebFetcher interface {
	Exec(ctx context.Context, url string) (models.Result, error)
}

type FetcherType string

const (
	HTTPFetcherType     FetcherType = "http"
	ChromedpFetcherType FetcherType = "chromedp"
)

// Options tune a fetcher. Zero values fall back to package defaults.
type Options struct {
	Timeout   time.Duration
	MaxChars  int
	UserAgent string
	Client    *http.Client
}

func NewWebFetcher(fetcherType FetcherType, opts Options) (WebFetcher, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = MaxCharsDefault
	}

	switch fetcherType {
	case HTTPFetcherType, "":
		return httpfetch.Fetch{Client: opts.Client, Timeout: opts.Timeout, MaxChars: opts.MaxChars, UserAgent: opts.UserAgent}, nil
	case ChromedpFetcherType:
		return chromedp.Fetch{Timeout: opts.Timeout, MaxChars: opts.MaxChars, UserAgent: opts.UserAgent}, nil
	default:
		return nil, fmt.Errorf("unsupported fetcher type %q", fetcherType)
	}
}
