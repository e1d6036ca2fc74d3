package models

import "fmt"

// Result is the outcome of fetching one page.
type Result struct {
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
	Text     string `json:"text"`
	HTMLHash string `json:"html_hash,omitempty"`
	Status   int    `json:"status"`
	RenderMS int    `json:"render_ms"`
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.Status, e.URL)
}

// CheckStatus returns a *StatusError unless status is 2xx.
func CheckStatus(url string, status int) error {
	if status < 200 || status > 299 {
		return &StatusError{URL: url, Status: status}
	}
	return nil
}
