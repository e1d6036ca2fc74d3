package tools

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/mohammad-safakhou/briefer/internal/agent"
	"github.com/mohammad-safakhou/briefer/tools/web_fetch"
	"github.com/mohammad-safakhou/briefer/tools/web_fetch/models"
)

type FetchURL struct {
	Fetcher web_fetch.WebFetcher
}

func (FetchURL) Definition() agent.ToolDefinition {
	return agent.ToolDefinition{
		Name:        FetchURLName,
		Label:       "Fetch URL",
		Description: "Fetches text content from a URL.",
		Parameters: agent.ObjectSchema(map[string]any{
			"url": map[string]any{"type": "string", "format": "uri", "description": "The URL to fetch"},
		}, "url"),
	}
}

func (t FetchURL) Execute(ctx context.Context, call agent.ToolCall) (agent.ToolResult, error) {
	var args struct {
		URL string `json:"url"`
	}
	if err := decodeArgs(call, &args); err != nil {
		return agent.ToolResult{}, err
	}
	target := strings.TrimSpace(args.URL)
	if err := validateURL(target); err != nil {
		return agent.ToolResult{}, err
	}

	res, err := t.Fetcher.Exec(ctx, target)
	var se *models.StatusError
	if errors.As(err, &se) {
		return agent.ErrorResult(call, se), nil
	}
	if err != nil {
		return agent.ToolResult{}, err
	}
	return agent.TextResult(call, res.Text, map[string]any{
		"url":           target,
		"contentLength": utf8.RuneCountInString(res.Text),
	}), nil
}

func validateURL(raw string) error {
	if raw == "" {
		return errors.New("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid url %q: missing host", raw)
	}
	return nil
}
