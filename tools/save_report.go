package tools

import (
	"context"
	"fmt"

	"github.com/mohammad-safakhou/briefer/internal/agent"
	"github.com/mohammad-safakhou/briefer/internal/vault"
)

type SaveReport struct {
	Vault *vault.Writer
}

func (SaveReport) Definition() agent.ToolDefinition {
	return agent.ToolDefinition{
		Name:        SaveReportName,
		Label:       "Save to Obsidian",
		Description: "Saves markdown content to a file in Obsidian.",
		Parameters: agent.ObjectSchema(map[string]any{
			"filename": stringProp("The filename to save (with or without .md extension)"),
			"content":  stringProp("The markdown content to save"),
		}, "filename", "content"),
	}
}

func (t SaveReport) Execute(ctx context.Context, call agent.ToolCall) (agent.ToolResult, error) {
	var args struct {
		Filename string `json:"filename"`
		Content  string `json:"content"`
	}
	if err := decodeArgs(call, &args); err != nil {
		return agent.ToolResult{}, err
	}
	rep, err := t.Vault.Save(ctx, args.Filename, args.Content)
	if err != nil {
		return agent.ToolResult{}, err
	}
	return agent.TextResult(call, fmt.Sprintf("Saved to %s", rep.Path), map[string]any{
		"path":     rep.Path,
		"filename": rep.Name,
	}), nil
}
