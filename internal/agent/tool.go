package agent

import (
	"context"
	"fmt"
)

// ToolDefinition is the schema a model sees for one tool.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Label       string         `json:"label,omitempty"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Tool is one callable capability. Execute may return a Go error; the
// Dispatcher turns it into an error result.
type Tool interface {
	Definition() ToolDefinition
	Execute(ctx context.Context, call ToolCall) (ToolResult, error)
}

// Executor runs tool calls for the loop. Execute never fails: every problem
// comes back as a ToolResult with IsError set.
type Executor interface {
	Definitions() []ToolDefinition
	Execute(ctx context.Context, call ToolCall) ToolResult
}

// TextResult is a successful result.
func TextResult(call ToolCall, text string, details any) ToolResult {
	return ToolResult{CallID: call.ID, Name: call.Name, Content: text, Details: details}
}

// FailureResult reports a validated domain failure with its own wording.
func FailureResult(call ToolCall, text string) ToolResult {
	return ToolResult{
		CallID:  call.ID,
		Name:    call.Name,
		Content: text,
		Details: map[string]any{"error": text},
		IsError: true,
	}
}

// ErrorResult encodes an unexpected error as "Error: <message>".
func ErrorResult(call ToolCall, err error) ToolResult {
	return FailureResult(call, fmt.Sprintf("Error: %v", err))
}

// ObjectSchema builds a JSON schema object for tool parameters.
func ObjectSchema(properties map[string]any, required ...string) map[string]any {
	if properties == nil {
		properties = map[string]any{}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
