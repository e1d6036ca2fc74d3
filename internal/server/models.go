package server

import "github.com/mohammad-safakhou/briefer/internal/briefing"

// HTTPError is a generic error envelope returned by the server.
type HTTPError struct {
	Error string `json:"error"`
}

// OKResponse acknowledges a mutation.
type OKResponse struct {
	OK bool `json:"ok"`
}

// ToggleResponse reports the new state of a toggled source.
type ToggleResponse struct {
	OK     bool `json:"ok"`
	Active bool `json:"active"`
}

// RunResponse is returned by POST /api/run.
type RunResponse struct {
	OK     bool            `json:"ok"`
	Result briefing.Result `json:"result"`
}

// ReportContent is a single report read from the vault.
type ReportContent struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}
