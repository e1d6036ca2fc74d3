package agent

import "context"

// Request is everything a model needs to choose its next action.
type Request struct {
	System   string
	Messages []Message
	Tools    []ToolDefinition
}

// Model is the external reasoning component. A returned error, or a message
// whose StopReason is StopReasonError, fails the run.
type Model interface {
	Generate(ctx context.Context, req Request) (Message, error)
}
