package httpfetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/mohammad-safakhou/briefer/internal/helpers"
	"github.com/mohammad-safakhou/briefer/tools/web_fetch/models"
)

func TestFetch_NonSuccessStatusReturnsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	res, err := Fetch{MaxChars: 3000}.Exec(context.Background(), srv.URL)
	var se *models.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Status != http.StatusNotFound || res.Status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d / %d", se.Status, res.Status)
	}
	if !strings.Contains(err.Error(), "404") || !strings.Contains(err.Error(), srv.URL) {
		t.Fatalf("error should mention status and url: %q", err.Error())
	}
}

func TestFetch_ExtractsBodyText(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>T</title></head><body><h1>Headline</h1>
<p>Some   body text.</p></body></html>`))
	}))
	defer srv.Close()

	res, err := Fetch{MaxChars: 3000, UserAgent: "briefer-test"}.Exec(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if res.Text != "Headline Some body text." {
		t.Fatalf("unexpected text %q", res.Text)
	}
	if gotUA != "briefer-test" {
		t.Fatalf("expected user agent to be sent, got %q", gotUA)
	}
	if res.Status != http.StatusOK || res.HTMLHash == "" {
		t.Fatalf("unexpected result metadata %+v", res)
	}
}

func TestFetch_EmptyPageYieldsSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body></body></html>`))
	}))
	defer srv.Close()

	res, err := Fetch{}.Exec(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if res.Text != helpers.NoContent {
		t.Fatalf("expected sentinel, got %q", res.Text)
	}
}

func TestFetch_TruncatesLongPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>" + strings.Repeat("<p>lorem ipsum</p>", 1000) + "</body></html>"))
	}))
	defer srv.Close()

	res, err := Fetch{MaxChars: 3000}.Exec(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if n := utf8.RuneCountInString(res.Text); n > 3000 {
		t.Fatalf("expected at most 3000 runes, got %d", n)
	}
}

func TestFetch_PlainTextIsNotParsedAsHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("a <b> c\n\n d"))
	}))
	defer srv.Close()

	res, err := Fetch{}.Exec(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if res.Text != "a <b> c d" {
		t.Fatalf("unexpected text %q", res.Text)
	}
}

func TestFetch_TimeoutSurfacesAsError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := Fetch{Timeout: 50 * time.Millisecond}.Exec(context.Background(), srv.URL)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestFetch_RejectsBlankURL(t *testing.T) {
	if _, err := (Fetch{}).Exec(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for blank url")
	}
}
