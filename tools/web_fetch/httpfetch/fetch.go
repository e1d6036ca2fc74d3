package httpfetch

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mohammad-safakhou/briefer/internal/helpers"
	"github.com/mohammad-safakhou/briefer/tools/web_fetch/models"
)

// maxBodyBytes bounds how much of a response is read before sanitizing.
const maxBodyBytes = 2 << 20

// Fetch retrieves pages with a plain HTTP GET and reduces them to text.
type Fetch struct {
	Client    *http.Client
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

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.Result{URL: url}, err
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return models.Result{URL: url, RenderMS: elapsedMS(t0)}, err
	}
	defer resp.Body.Close()

	if err := models.CheckStatus(url, resp.StatusCode); err != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return models.Result{URL: url, Status: resp.StatusCode, RenderMS: elapsedMS(t0)}, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return models.Result{URL: url, Status: resp.StatusCode, RenderMS: elapsedMS(t0)}, err
	}

	var text string
	if strings.Contains(resp.Header.Get("Content-Type"), "text/plain") {
		text = helpers.Excerpt(string(body), f.MaxChars)
	} else {
		text = helpers.PlainText(string(body), f.MaxChars)
	}

	sum := sha1.Sum(body)
	return models.Result{
		URL:      url,
		Text:     text,
		HTMLHash: hex.EncodeToString(sum[:]),
		Status:   resp.StatusCode,
		RenderMS: elapsedMS(t0),
	}, nil
}

func elapsedMS(t0 time.Time) int {
	return int(time.Since(t0) / time.Millisecond)
}
