package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/mohammad-safakhou/briefer/internal/agent"
	"github.com/mohammad-safakhou/briefer/internal/briefing"
	"github.com/mohammad-safakhou/briefer/internal/sources"
	"github.com/mohammad-safakhou/briefer/internal/vault"
	"github.com/prometheus/client_golang/prometheus"
)

type fakeRunner struct {
	res   briefing.Result
	err   error
	calls atomic.Int32
}

func (f *fakeRunner) Run(ctx context.Context, _ ...agent.Listener) (briefing.Result, error) {
	f.calls.Add(1)
	return f.res, f.err
}

type fixture struct {
	e        *echo.Echo
	registry *sources.Registry
	vaultDir string
	runner   *fakeRunner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	reg := sources.NewRegistry(sources.NewFileStore(filepath.Join(dir, "sources.json")), nil)
	vaultDir := filepath.Join(dir, "vault")
	runner := &fakeRunner{res: briefing.Result{Filename: "Daily-Briefing-2025-01-02.md", Turns: 3}}
	e := New(Options{
		Registry: reg,
		Vault:    vault.New(vaultDir),
		Runner:   runner,
		Gatherer: prometheus.NewRegistry(),
	})
	return &fixture{e: e, registry: reg, vaultDir: vaultDir, runner: runner}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var he HTTPError
	if err := json.Unmarshal(rec.Body.Bytes(), &he); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return he.Error
}

func TestSourcesLifecycle(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/sources", `{"name":"The Verge","url":"https://www.theverge.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("add: expected 200 got %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/api/sources", `{"name":"Again","url":"https://www.theverge.com"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate: expected 409 got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "source already exists" {
		t.Fatalf("unexpected error %q", msg)
	}

	rec = f.do(t, http.MethodPost, "/api/sources/toggle", `{"url":"https://www.theverge.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle: expected 200 got %d", rec.Code)
	}
	var tr ToggleResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &tr); err != nil {
		t.Fatalf("decode toggle: %v", err)
	}
	if !tr.OK || tr.Active {
		t.Fatalf("expected source paused, got %+v", tr)
	}

	rec = f.do(t, http.MethodPost, "/api/sources/active", `{"name":"The Verge","active":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("set active: expected 200 got %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/sources", "")
	var doc sources.Document
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(doc.Sources) != 1 || !doc.Sources[0].Active {
		t.Fatalf("unexpected document %+v", doc)
	}

	rec = f.do(t, http.MethodDelete, "/api/sources", `{"url":"https://www.theverge.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("remove: expected 200 got %d", rec.Code)
	}
	rec = f.do(t, http.MethodDelete, "/api/sources", `{"url":"https://www.theverge.com"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second remove: expected 404 got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "source not found" {
		t.Fatalf("unexpected error %q", msg)
	}
}

func TestSourcesValidation(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		method, path, body string
	}{
		{http.MethodPost, "/api/sources", `{"name":"x"}`},
		{http.MethodPost, "/api/sources/toggle", `{}`},
		{http.MethodDelete, "/api/sources", `{}`},
		{http.MethodPost, "/api/sources/active", `{"url":"https://a","active":"yes"}`},
		{http.MethodPost, "/api/sources", `{not json`},
	}
	for _, tc := range cases {
		rec := f.do(t, tc.method, tc.path, tc.body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s %s %s: expected 400 got %d", tc.method, tc.path, tc.body, rec.Code)
		}
		if msg := decodeError(t, rec); strings.HasPrefix(msg, "Error: ") {
			t.Fatalf("http errors should not carry the tool prefix: %q", msg)
		}
	}
}

func TestListSourcesHandlerDirect(t *testing.T) {
	f := newFixture(t)
	if _, err := f.registry.Add(context.Background(), "A", "https://a", true); err != nil {
		t.Fatalf("Add: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/sources", nil)
	rec := httptest.NewRecorder()
	c := f.e.NewContext(req, rec)
	h := &SourcesHandler{Registry: f.registry}
	if err := h.list(c); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"url":"https://a"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestRunEndpoint(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/run", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var resp RunResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.OK || resp.Result.Filename != "Daily-Briefing-2025-01-02.md" {
		t.Fatalf("unexpected response %+v", resp)
	}

	f.runner.err = briefing.ErrRunInProgress
	if rec := f.do(t, http.MethodPost, "/api/run", ""); rec.Code != http.StatusConflict {
		t.Fatalf("busy: expected 409 got %d", rec.Code)
	}

	f.runner.err = &agent.RunError{Turn: 1, Err: &agent.ModelError{Message: "quota"}}
	rec = f.do(t, http.MethodPost, "/api/run", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("failed run: expected 500 got %d", rec.Code)
	}
	if !strings.Contains(decodeError(t, rec), "quota") {
		t.Fatalf("error should carry the model message: %s", rec.Body.String())
	}
	if got := f.runner.calls.Load(); got != 3 {
		t.Fatalf("expected 3 runs, got %d", got)
	}
}

func TestReportsEndpoints(t *testing.T) {
	f := newFixture(t)
	if err := os.MkdirAll(f.vaultDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"Daily-Briefing-2025-01-01.md", "Daily-Briefing-2025-01-02.md", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(f.vaultDir, name), []byte("# "+name), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	rec := f.do(t, http.MethodGet, "/api/reports", "")
	var list struct {
		Reports []vault.Report `json:"reports"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Reports) != 2 || list.Reports[0].Name != "Daily-Briefing-2025-01-02.md" {
		t.Fatalf("unexpected listing %+v", list.Reports)
	}

	rec = f.do(t, http.MethodGet, "/api/reports/Daily-Briefing-2025-01-01", "")
	var rc ReportContent
	if err := json.Unmarshal(rec.Body.Bytes(), &rc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rc.Content != "# Daily-Briefing-2025-01-01.md" {
		t.Fatalf("unexpected content %q", rc.Content)
	}

	if rec := f.do(t, http.MethodGet, "/api/reports/missing.md", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing: expected 404 got %d", rec.Code)
	}
}

func TestProbesAndConsole(t *testing.T) {
	f := newFixture(t)
	if rec := f.do(t, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}
	if rec := f.do(t, http.MethodGet, "/metrics", ""); rec.Code != http.StatusOK {
		t.Fatalf("metrics: %d", rec.Code)
	}
	rec := f.do(t, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Personal News Briefing") {
		t.Fatalf("console: %d", rec.Code)
	}
}

func TestToHTTPError(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{sources.ErrDuplicateSource, http.StatusConflict},
		{sources.ErrNotFound, http.StatusNotFound},
		{vault.ErrInvalidFilename, http.StatusBadRequest},
		{briefing.ErrRunInProgress, http.StatusConflict},
		{os.ErrNotExist, http.StatusNotFound},
		{errors.New("disk full"), http.StatusInternalServerError},
		{echo.NewHTTPError(http.StatusTeapot, "tea"), http.StatusTeapot},
	}
	for _, tc := range cases {
		if got := toHTTPError(tc.err).Code; got != tc.code {
			t.Fatalf("%v: expected %d got %d", tc.err, tc.code, got)
		}
	}
}
