// Package agenttest provides deterministic models for loop tests.
package agenttest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mohammad-safakhou/briefer/internal/agent"
)

// Response configures one model turn in a scripted sequence.
type Response struct {
	Message agent.Message
	Err     error
}

// ScriptedModel replays responses in order and records every request.
type ScriptedModel struct {
	mu        sync.Mutex
	index     int
	responses []Response
	requests  []agent.Request
}

func NewScriptedModel(responses ...Response) *ScriptedModel {
	cloned := make([]Response, len(responses))
	copy(cloned, responses)
	return &ScriptedModel{responses: cloned}
}

var _ agent.Model = (*ScriptedModel)(nil)

func (m *ScriptedModel) Generate(ctx context.Context, req agent.Request) (agent.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, agent.Request{
		System:   req.System,
		Messages: agent.CloneMessages(req.Messages),
		Tools:    append([]agent.ToolDefinition(nil), req.Tools...),
	})
	if err := ctx.Err(); err != nil {
		return agent.Message{}, err
	}
	if m.index >= len(m.responses) {
		return agent.Message{}, fmt.Errorf("script exhausted at step %d", m.index+1)
	}
	current := m.responses[m.index]
	m.index++
	if current.Err != nil {
		return agent.Message{}, current.Err
	}
	msg := agent.CloneMessage(current.Message)
	if msg.Role == "" {
		msg.Role = agent.RoleAssistant
	}
	return msg, nil
}

// Requests returns what the model was asked, one entry per turn.
func (m *ScriptedModel) Requests() []agent.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]agent.Request(nil), m.requests...)
}

// Calls is a scripted turn that requests the given tool calls.
func Calls(calls ...agent.ToolCall) Response {
	return Response{Message: agent.Message{Role: agent.RoleAssistant, ToolCalls: calls, StopReason: agent.StopReasonToolUse}}
}

// Final is a scripted turn with no tool calls.
func Final(text string) Response {
	return Response{Message: agent.Message{Role: agent.RoleAssistant, Content: text, StopReason: agent.StopReasonStop}}
}

// Failure is a scripted turn that stops with an error.
func Failure(msg string) Response {
	return Response{Message: agent.Message{Role: agent.RoleAssistant, StopReason: agent.StopReasonError, ErrorMessage: msg}}
}

// Call builds a tool call with JSON-encoded arguments.
func Call(id, name string, args any) agent.ToolCall {
	var raw json.RawMessage
	if args != nil {
		b, err := json.Marshal(args)
		if err != nil {
			panic(err)
		}
		raw = b
	}
	return agent.ToolCall{ID: id, Name: name, Arguments: raw}
}
