package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mohammad-safakhou/briefer/internal/agent"
	"github.com/mohammad-safakhou/briefer/internal/sources"
)

type GetSources struct {
	Registry *sources.Registry
}

func (GetSources) Definition() agent.ToolDefinition {
	return agent.ToolDefinition{
		Name:        GetSourcesName,
		Label:       "Get Sources",
		Description: "Reads the list of news sources to check.",
		Parameters:  agent.ObjectSchema(nil),
	}
}

// Execute returns storage failures as Go errors; the dispatcher encodes them.
func (t GetSources) Execute(ctx context.Context, call agent.ToolCall) (agent.ToolResult, error) {
	doc, err := t.Registry.Document(ctx)
	if err != nil {
		return agent.ToolResult{}, err
	}
	doc = doc.Clone()
	text, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return agent.ToolResult{}, err
	}
	return agent.TextResult(call, string(text), doc), nil
}

type ManageSources struct {
	Registry *sources.Registry
}

func (ManageSources) Definition() agent.ToolDefinition {
	return agent.ToolDefinition{
		Name:        ManageSourcesName,
		Label:       "Manage Sources",
		Description: "Adds, removes, toggles or activates a news source in the registry.",
		Parameters: agent.ObjectSchema(map[string]any{
			"action": map[string]any{
				"type":        "string",
				"enum":        []string{sources.KindAdd, sources.KindRemove, sources.KindToggle, sources.KindSetActive},
				"description": "The action to perform: add, remove, toggle, or set_active",
			},
			"name":   stringProp("The name of the source"),
			"url":    stringProp("The URL of the source"),
			"active": map[string]any{"type": "boolean", "description": "Whether the source is active"},
		}, "action"),
	}
}

func (t ManageSources) Execute(ctx context.Context, call agent.ToolCall) (agent.ToolResult, error) {
	action, err := sources.DecodeAction(call.Arguments)
	if err != nil {
		var ae *sources.ArgumentError
		if errors.As(err, &ae) {
			return agent.FailureResult(call, ae.Text), nil
		}
		return agent.ToolResult{}, err
	}

	src, err := t.Registry.Apply(ctx, action)
	switch {
	case errors.Is(err, sources.ErrDuplicateSource):
		return agent.FailureResult(call, fmt.Sprintf("Source already exists: %s", addURL(action))), nil
	case errors.Is(err, sources.ErrNotFound):
		return agent.FailureResult(call, "Source not found"), nil
	case err != nil:
		return agent.ToolResult{}, err
	}

	switch action.(type) {
	case sources.AddAction:
		return agent.TextResult(call, fmt.Sprintf("Added source: %s", src.Name),
			map[string]any{"action": sources.KindAdd, "name": src.Name, "url": src.URL}), nil
	case sources.RemoveAction:
		return agent.TextResult(call, fmt.Sprintf("Removed source: %s", src.Name),
			map[string]any{"action": sources.KindRemove, "source": src}), nil
	case sources.ToggleAction:
		return agent.TextResult(call, fmt.Sprintf("Toggled source: %s -> %t", src.Name, src.Active),
			map[string]any{"action": sources.KindToggle, "source": src}), nil
	default:
		return agent.TextResult(call, fmt.Sprintf("Updated source: %s -> %t", src.Name, src.Active),
			map[string]any{"action": sources.KindSetActive, "source": src}), nil
	}
}

// addURL is the URL an add action tried to register.
func addURL(a sources.Action) string {
	if add, ok := a.(sources.AddAction); ok {
		return add.URL
	}
	return ""
}
