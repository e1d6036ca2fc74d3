// Package tools is the catalog of capabilities the briefing agent can call.
package tools

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mohammad-safakhou/briefer/internal/agent"
	"github.com/mohammad-safakhou/briefer/internal/shell"
	"github.com/mohammad-safakhou/briefer/internal/sources"
	"github.com/mohammad-safakhou/briefer/internal/vault"
	"github.com/mohammad-safakhou/briefer/tools/web_fetch"
	"go.uber.org/zap"
)

// Tool names as the model sees them.
const (
	FetchURLName      = "fetch_url"
	SaveReportName    = "save_to_obsidian"
	GetSourcesName    = "get_sources"
	ManageSourcesName = "manage_sources"
	RunShellName      = "run_shell_command"
)

// Deps are the components the catalog wraps.
type Deps struct {
	Fetcher    web_fetch.WebFetcher
	Registry   *sources.Registry
	Vault      *vault.Writer
	Shell      *shell.Executor
	AllowShell bool
	Timeout    time.Duration
	Logger     *zap.Logger
}

// All returns the tools in catalog order. run_shell_command is included only
// when AllowShell is set.
func All(d Deps) []agent.Tool {
	out := []agent.Tool{
		FetchURL{Fetcher: d.Fetcher},
		SaveReport{Vault: d.Vault},
		GetSources{Registry: d.Registry},
		ManageSources{Registry: d.Registry},
	}
	if d.AllowShell {
		sh := d.Shell
		if sh == nil {
			sh = &shell.Executor{}
		}
		out = append(out, RunShell{Executor: sh})
	}
	return out
}

// NewDispatcher builds the dispatch table over All(d).
func NewDispatcher(d Deps) (*agent.Dispatcher, error) {
	return agent.NewDispatcher(d.Timeout, d.Logger, All(d)...)
}

func stringProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func decodeArgs(call agent.ToolCall, v any) error {
	if len(call.Arguments) == 0 {
		return nil
	}
	if err := json.Unmarshal(call.Arguments, v); err != nil {
		return fmt.Errorf("invalid arguments for %s: %w", call.Name, err)
	}
	return nil
}
