// Package agent implements the orchestration loop that turns one instruction
// into a bounded sequence of tool calls.
package agent

import (
	"encoding/json"
	"slices"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

type StopReason string

const (
	StopReasonStop    StopReason = "stop"
	StopReasonToolUse StopReason = "tool_use"
	StopReasonLength  StopReason = "length"
	StopReasonError   StopReason = "error"
)

// ToolCall is one model request to invoke a tool.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolResult answers exactly one ToolCall. Failures are results with IsError
// set, never Go errors.
type ToolResult struct {
	CallID  string `json:"call_id"`
	Name    string `json:"name"`
	Content string `json:"content"`
	Details any    `json:"details,omitempty"`
	IsError bool   `json:"is_error,omitempty"`
}

type Message struct {
	Role         Role       `json:"role"`
	Content      string     `json:"content,omitempty"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID   string     `json:"tool_call_id,omitempty"`
	Name         string     `json:"name,omitempty"`
	IsError      bool       `json:"is_error,omitempty"`
	StopReason   StopReason `json:"stop_reason,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// Failed reports whether the model itself ended the turn with an error.
func (m Message) Failed() bool {
	return m.StopReason == StopReasonError
}

func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

func ToolResultMessage(r ToolResult) Message {
	return Message{
		Role:       RoleTool,
		Content:    r.Content,
		ToolCallID: r.CallID,
		Name:       r.Name,
		IsError:    r.IsError,
	}
}

func CloneMessage(m Message) Message {
	out := m
	if m.ToolCalls != nil {
		out.ToolCalls = make([]ToolCall, len(m.ToolCalls))
		for i, c := range m.ToolCalls {
			out.ToolCalls[i] = c
			out.ToolCalls[i].Arguments = slices.Clone(c.Arguments)
		}
	}
	return out
}

func CloneMessages(in []Message) []Message {
	if in == nil {
		return nil
	}
	out := make([]Message, len(in))
	for i := range in {
		out[i] = CloneMessage(in[i])
	}
	return out
}
