package openai_provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mohammad-safakhou/briefer/internal/agent"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o"
)

var ErrMissingKey = errors.New("OPENAI_API_KEY not set")

// client implements agent.Model over the Chat Completions API.
type client struct {
	apiKey     string
	model      string
	baseURL    string
	maxTokens  int
	httpClient *http.Client
}

type Option func(*client)

func WithBaseURL(u string) Option { return func(c *client) { c.baseURL = u } }

func WithHTTPClient(h *http.Client) Option { return func(c *client) { c.httpClient = h } }

func WithMaxTokens(n int) Option { return func(c *client) { c.maxTokens = n } }

func NewOpenAIClient(apiKey, model string, timeout time.Duration, opts ...Option) *client {
	if model == "" {
		model = DefaultModel
	}
	c := &client{
		apiKey:     apiKey,
		model:      model,
		baseURL:    DefaultBaseURL,
		maxTokens:  4096,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type message struct {
	Role       string     `json:"role"`
	Content    *string    `json:"content"`
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type toolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type tool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	} `json:"function"`
}

type request struct {
	Model     string    `json:"model"`
	Messages  []message `json:"messages"`
	Tools     []tool    `json:"tools,omitempty"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

type response struct {
	Choices []struct {
		Message struct {
			Content   *string    `json:"content"`
			ToolCalls []toolCall `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *client) Generate(ctx context.Context, req agent.Request) (agent.Message, error) {
	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return agent.Message{}, fmt.Errorf("failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return agent.Message{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return agent.Message{}, ctx.Err()
		}
		return failed(fmt.Sprintf("failed to send request: %v", err)), nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return failed(fmt.Sprintf("failed to read response: %v", err)), nil
	}
	var out response
	decodeErr := json.Unmarshal(raw, &out)
	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("API returned status: %d", resp.StatusCode)
		if decodeErr == nil && out.Error != nil && out.Error.Message != "" {
			msg += ": " + out.Error.Message
		}
		return failed(msg), nil
	}
	if decodeErr != nil {
		return failed(fmt.Sprintf("failed to parse response: %v", decodeErr)), nil
	}
	if len(out.Choices) == 0 {
		return failed("no choices in response"), nil
	}
	return toAgentMessage(out.Choices[0].Message.Content, out.Choices[0].Message.ToolCalls, out.Choices[0].FinishReason), nil
}

func (c *client) buildRequest(req agent.Request) request {
	r := request{Model: c.model, MaxTokens: c.maxTokens}
	if req.System != "" {
		sys := req.System
		r.Messages = append(r.Messages, message{Role: "system", Content: &sys})
	}
	for _, m := range req.Messages {
		content := m.Content
		switch m.Role {
		case agent.RoleAssistant:
			msg := message{Role: "assistant"}
			if content != "" {
				msg.Content = &content
			}
			for _, tc := range m.ToolCalls {
				var call toolCall
				call.ID, call.Type = tc.ID, "function"
				call.Function.Name = tc.Name
				call.Function.Arguments = string(argumentsOrEmpty(tc.Arguments))
				msg.ToolCalls = append(msg.ToolCalls, call)
			}
			r.Messages = append(r.Messages, msg)
		case agent.RoleTool:
			r.Messages = append(r.Messages, message{Role: "tool", Content: &content, ToolCallID: m.ToolCallID})
		default:
			r.Messages = append(r.Messages, message{Role: "user", Content: &content})
		}
	}
	for _, d := range req.Tools {
		var t tool
		t.Type = "function"
		t.Function.Name = d.Name
		t.Function.Description = d.Description
		t.Function.Parameters = d.Parameters
		r.Tools = append(r.Tools, t)
	}
	return r
}

func toAgentMessage(content *string, calls []toolCall, finish string) agent.Message {
	msg := agent.Message{Role: agent.RoleAssistant}
	if content != nil {
		msg.Content = *content
	}
	for _, tc := range calls {
		id := tc.ID
		if id == "" {
			id = uuid.NewString()
		}
		msg.ToolCalls = append(msg.ToolCalls, agent.ToolCall{
			ID:        id,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(argumentsOrEmpty([]byte(tc.Function.Arguments))),
		})
	}
	switch finish {
	case "tool_calls":
		msg.StopReason = agent.StopReasonToolUse
	case "length":
		msg.StopReason = agent.StopReasonLength
	default:
		msg.StopReason = agent.StopReasonStop
	}
	return msg
}

func argumentsOrEmpty(b []byte) []byte {
	if len(bytes.TrimSpace(b)) == 0 {
		return []byte("{}")
	}
	return b
}

func failed(msg string) agent.Message {
	return agent.Message{Role: agent.RoleAssistant, StopReason: agent.StopReasonError, ErrorMessage: msg}
}

var _ agent.Model = (*client)(nil)
