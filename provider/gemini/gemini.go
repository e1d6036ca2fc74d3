package gemini_provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mohammad-safakhou/briefer/internal/agent"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.0-flash-exp"

var ErrMissingKey = errors.New("GEMINI_API_KEY or GOOGLE_API_KEY not set")

// client implements agent.Model over the Gemini API.
type client struct {
	genai *genai.Client
	model string
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*client, error) {
	if apiKey == "" {
		return nil, ErrMissingKey
	}
	if model == "" {
		model = DefaultModel
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &client{genai: c, model: model}, nil
}

func (c *client) Generate(ctx context.Context, req agent.Request) (agent.Message, error) {
	contents, err := buildContents(req.Messages)
	if err != nil {
		return agent.Message{}, err
	}
	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, d := range req.Tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:                 d.Name,
				Description:          d.Description,
				ParametersJsonSchema: d.Parameters,
			})
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	resp, err := c.genai.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		if ctx.Err() != nil {
			return agent.Message{}, ctx.Err()
		}
		return failed(err.Error()), nil
	}
	return toAgentMessage(resp), nil
}

// buildContents maps the transcript onto user/model contents. Tool results
// become function responses on a user turn.
func buildContents(msgs []agent.Message) ([]*genai.Content, error) {
	var out []*genai.Content
	for _, m := range msgs {
		switch m.Role {
		case agent.RoleAssistant:
			content := &genai.Content{Role: "model"}
			if m.Content != "" {
				content.Parts = append(content.Parts, &genai.Part{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				args := map[string]any{}
				if len(tc.Arguments) > 0 {
					if err := json.Unmarshal(tc.Arguments, &args); err != nil {
						return nil, fmt.Errorf("tool call %s arguments: %w", tc.ID, err)
					}
				}
				content.Parts = append(content.Parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID: tc.ID, Name: tc.Name, Args: args,
				}})
			}
			if len(content.Parts) > 0 {
				out = append(out, content)
			}
		case agent.RoleTool:
			key := "output"
			if m.IsError {
				key = "error"
			}
			part := &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID: m.ToolCallID, Name: m.Name, Response: map[string]any{key: m.Content},
			}}
			if n := len(out); n > 0 && out[n-1].Role == "user" && out[n-1].Parts[0].FunctionResponse != nil {
				out[n-1].Parts = append(out[n-1].Parts, part)
				continue
			}
			out = append(out, &genai.Content{Role: "user", Parts: []*genai.Part{part}})
		default:
			out = append(out, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: m.Content}}})
		}
	}
	return out, nil
}

func toAgentMessage(resp *genai.GenerateContentResponse) agent.Message {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return failed("no candidates in response")
	}
	cand := resp.Candidates[0]
	msg := agent.Message{Role: agent.RoleAssistant}
	var text strings.Builder
	for _, p := range cand.Content.Parts {
		if p == nil {
			continue
		}
		if p.FunctionCall != nil {
			id := p.FunctionCall.ID
			if id == "" {
				id = uuid.NewString()
			}
			args, err := json.Marshal(p.FunctionCall.Args)
			if err != nil || p.FunctionCall.Args == nil {
				args = []byte("{}")
			}
			msg.ToolCalls = append(msg.ToolCalls, agent.ToolCall{ID: id, Name: p.FunctionCall.Name, Arguments: args})
			continue
		}
		if p.Text != "" && !p.Thought {
			text.WriteString(p.Text)
		}
	}
	msg.Content = text.String()
	switch {
	case len(msg.ToolCalls) > 0:
		msg.StopReason = agent.StopReasonToolUse
	case cand.FinishReason == genai.FinishReasonMaxTokens:
		msg.StopReason = agent.StopReasonLength
	default:
		msg.StopReason = agent.StopReasonStop
	}
	return msg
}

func failed(msg string) agent.Message {
	return agent.Message{Role: agent.RoleAssistant, StopReason: agent.StopReasonError, ErrorMessage: msg}
}

var _ agent.Model = (*client)(nil)
