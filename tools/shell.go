package tools

import (
	"context"

	"github.com/mohammad-safakhou/briefer/internal/agent"
	"github.com/mohammad-safakhou/briefer/internal/shell"
)

// RunShell exposes the host shell to the model.
type RunShell struct {
	Executor *shell.Executor
}

func (RunShell) Definition() agent.ToolDefinition {
	return agent.ToolDefinition{
		Name:        RunShellName,
		Label:       "Run Shell Command",
		Description: "Executes a command in the shell.",
		Parameters: agent.ObjectSchema(map[string]any{
			"command": stringProp("The command to execute"),
		}, "command"),
	}
}

func (t RunShell) Execute(ctx context.Context, call agent.ToolCall) (agent.ToolResult, error) {
	var args struct {
		Command string `json:"command"`
	}
	if err := decodeArgs(call, &args); err != nil {
		return agent.ToolResult{}, err
	}
	out, err := t.Executor.Run(ctx, args.Command)
	if err != nil {
		return agent.ToolResult{}, err
	}
	return agent.TextResult(call, out.Text(), map[string]any{
		"command": args.Command,
		"stdout":  out.Stdout,
		"stderr":  out.Stderr,
	}), nil
}
