package anthropic_provider

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
	DefaultBaseURL = "https://api.anthropic.com/v1"
	DefaultModel   = "claude-3-5-sonnet-20241022"
	apiVersion     = "2023-06-01"
)

var ErrMissingKey = errors.New("ANTHROPIC_API_KEY not set")

// client implements agent.Model over the Messages API.
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

func NewAnthropicClient(apiKey, model string, timeout time.Duration, opts ...Option) *client {
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

type block struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

type message struct {
	Role    string  `json:"role"`
	Content []block `json:"content"`
}

type tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
	Tools     []tool    `json:"tools,omitempty"`
}

type response struct {
	Content    []block `json:"content"`
	StopReason string  `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *client) Generate(ctx context.Context, req agent.Request) (agent.Message, error) {
	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return agent.Message{}, fmt.Errorf("failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return agent.Message{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

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

	msg := agent.Message{Role: agent.RoleAssistant}
	for _, b := range out.Content {
		switch b.Type {
		case "text":
			msg.Content += b.Text
		case "tool_use":
			id := b.ID
			if id == "" {
				id = uuid.NewString()
			}
			args := b.Input
			if len(args) == 0 {
				args = json.RawMessage("{}")
			}
			msg.ToolCalls = append(msg.ToolCalls, agent.ToolCall{ID: id, Name: b.Name, Arguments: args})
		}
	}
	switch out.StopReason {
	case "tool_use":
		msg.StopReason = agent.StopReasonToolUse
	case "max_tokens":
		msg.StopReason = agent.StopReasonLength
	default:
		msg.StopReason = agent.StopReasonStop
	}
	return msg, nil
}

// buildRequest maps the transcript onto alternating user/assistant turns;
// consecutive tool results join one user message.
func (c *client) buildRequest(req agent.Request) request {
	r := request{Model: c.model, MaxTokens: c.maxTokens, System: req.System}
	for _, m := range req.Messages {
		switch m.Role {
		case agent.RoleAssistant:
			var blocks []block
			if m.Content != "" {
				blocks = append(blocks, block{Type: "text", Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				input := tc.Arguments
				if len(bytes.TrimSpace(input)) == 0 {
					input = json.RawMessage("{}")
				}
				blocks = append(blocks, block{Type: "tool_use", ID: tc.ID, Name: tc.Name, Input: input})
			}
			if len(blocks) == 0 {
				blocks = []block{{Type: "text", Text: " "}}
			}
			r.Messages = append(r.Messages, message{Role: "assistant", Content: blocks})
		case agent.RoleTool:
			res := block{Type: "tool_result", ToolUseID: m.ToolCallID, Content: m.Content, IsError: m.IsError}
			if n := len(r.Messages); n > 0 && r.Messages[n-1].Role == "user" && isToolResults(r.Messages[n-1]) {
				r.Messages[n-1].Content = append(r.Messages[n-1].Content, res)
				continue
			}
			r.Messages = append(r.Messages, message{Role: "user", Content: []block{res}})
		default:
			r.Messages = append(r.Messages, message{Role: "user", Content: []block{{Type: "text", Text: m.Content}}})
		}
	}
	for _, d := range req.Tools {
		r.Tools = append(r.Tools, tool{Name: d.Name, Description: d.Description, InputSchema: d.Parameters})
	}
	return r
}

func isToolResults(m message) bool {
	for _, b := range m.Content {
		if b.Type != "tool_result" {
			return false
		}
	}
	return len(m.Content) > 0
}

func failed(msg string) agent.Message {
	return agent.Message{Role: agent.RoleAssistant, StopReason: agent.StopReasonError, ErrorMessage: msg}
}

var _ agent.Model = (*client)(nil)
