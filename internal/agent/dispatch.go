package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultToolTimeout bounds a single tool invocation.
const DefaultToolTimeout = 2 * time.Minute

var dispatchTracer trace.Tracer = otel.Tracer("briefer/internal/agent/dispatch")

// Dispatcher is the fixed tool catalog exposed to the model.
type Dispatcher struct {
	tools   map[string]Tool
	defs    []ToolDefinition
	timeout time.Duration
	logger  *zap.Logger
}

// NewDispatcher builds the catalog. Tool names must be unique.
func NewDispatcher(timeout time.Duration, logger *zap.Logger, tools ...Tool) (*Dispatcher, error) {
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{tools: make(map[string]Tool, len(tools)), timeout: timeout, logger: logger}
	for _, t := range tools {
		if t == nil {
			return nil, errors.New("nil tool")
		}
		def := t.Definition()
		if def.Name == "" {
			return nil, errors.New("tool name is required")
		}
		if _, dup := d.tools[def.Name]; dup {
			return nil, fmt.Errorf("duplicate tool %q", def.Name)
		}
		d.tools[def.Name] = t
		d.defs = append(d.defs, def)
	}
	return d, nil
}

func (d *Dispatcher) Definitions() []ToolDefinition {
	out := make([]ToolDefinition, len(d.defs))
	copy(out, d.defs)
	return out
}

// Execute runs one call. Unknown tools, returned errors, panics and timeouts
// all come back as error results. A timed-out tool is waited for before
// Execute returns, so tools must honor ctx.
func (d *Dispatcher) Execute(ctx context.Context, call ToolCall) ToolResult {
	ctx, span := dispatchTracer.Start(ctx, "tool."+call.Name,
		trace.WithAttributes(
			attribute.String("tool.name", call.Name),
			attribute.String("tool.call_id", call.ID),
		))
	defer span.End()

	res := d.execute(ctx, call)
	if res.CallID == "" {
		res.CallID = call.ID
	}
	if res.Name == "" {
		res.Name = call.Name
	}
	if res.IsError {
		span.SetStatus(codes.Error, res.Content)
		d.logger.Warn("tool failed", zap.String("tool", call.Name), zap.String("result", res.Content))
	}
	return res
}

func (d *Dispatcher) execute(ctx context.Context, call ToolCall) ToolResult {
	tool, ok := d.tools[call.Name]
	if !ok {
		return ErrorResult(call, fmt.Errorf("tool %q is not defined", call.Name))
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	type outcome struct {
		res ToolResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("tool %s panicked: %v", call.Name, r)}
			}
		}()
		res, err := tool.Execute(ctx, call)
		done <- outcome{res: res, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return ErrorResult(call, out.err)
		}
		return out.res
	case <-ctx.Done():
		// The next call must not start while this one is still running.
		<-done
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrorResult(call, fmt.Errorf("tool %s timed out after %s", call.Name, d.timeout))
		}
		return ErrorResult(call, ctx.Err())
	}
}
