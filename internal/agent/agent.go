package agent

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultMaxTurns bounds model turns per run.
const DefaultMaxTurns = 25

var agentTracer trace.Tracer = otel.Tracer("briefer/internal/agent")

type Status string

const (
	StatusIdle        Status = "idle"
	StatusRunning     Status = "running"
	StatusToolPending Status = "tool_pending"
	StatusFailed      Status = "failed"
)

type Config struct {
	Model        Model
	Tools        Executor
	SystemPrompt string
	MaxTurns     int
	Logger       *zap.Logger
}

// State is a snapshot of the agent.
type State struct {
	Status   Status
	Turns    int
	Messages []Message
	Err      error
}

// Agent drives one run at a time: Prompt starts it, WaitForIdle joins it.
type Agent struct {
	model    Model
	tools    Executor
	system   string
	maxTurns int
	logger   *zap.Logger
	subs     subscribers

	mu       sync.Mutex
	status   Status
	active   bool
	turns    int
	messages []Message
	err      error
	done     chan struct{}
}

func New(cfg Config) (*Agent, error) {
	if cfg.Model == nil {
		return nil, ErrNoModel
	}
	if cfg.Tools == nil {
		return nil, ErrNoTools
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Agent{
		model:    cfg.Model,
		tools:    cfg.Tools,
		system:   cfg.SystemPrompt,
		maxTurns: cfg.MaxTurns,
		logger:   cfg.Logger,
		subs:     subscribers{logger: cfg.Logger},
		status:   StatusIdle,
	}, nil
}

// Subscribe registers l for events of subsequent runs.
func (a *Agent) Subscribe(l Listener) (unsubscribe func()) {
	return a.subs.add(l)
}

// Prompt starts a run for text on its own goroutine and returns immediately.
// The previous run's transcript is discarded. ctx bounds the whole run.
func (a *Agent) Prompt(ctx context.Context, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.active {
		return ErrBusy
	}
	a.active = true
	a.status = StatusRunning
	a.turns = 0
	a.err = nil
	a.messages = []Message{UserMessage(text)}
	a.done = make(chan struct{})

	go a.run(ctx, a.done)
	return nil
}

// WaitForIdle blocks until the current run settles. It returns the run error
// of a failed run, or ctx.Err() if ctx ends first. Without a run it returns
// nil immediately.
func (a *Agent) WaitForIdle(ctx context.Context) error {
	a.mu.Lock()
	done := a.done
	a.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Run is Prompt followed by WaitForIdle.
func (a *Agent) Run(ctx context.Context, text string) error {
	if err := a.Prompt(ctx, text); err != nil {
		return err
	}
	return a.WaitForIdle(ctx)
}

func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return State{
		Status:   a.status,
		Turns:    a.turns,
		Messages: CloneMessages(a.messages),
		Err:      a.err,
	}
}

func (a *Agent) run(ctx context.Context, done chan struct{}) {
	ctx, span := agentTracer.Start(ctx, "agent.run")
	defer span.End()

	a.emit(Event{Type: EventAgentStart})
	prompt := a.snapshot()[0]
	a.emit(Event{Type: EventMessageStart, Role: prompt.Role})
	a.emit(Event{Type: EventMessageEnd, Role: prompt.Role, Message: &prompt})

	err := a.loop(ctx)

	a.mu.Lock()
	if err != nil {
		a.status = StatusFailed
		a.err = err
	} else {
		a.status = StatusIdle
	}
	turns := a.turns
	a.mu.Unlock()

	span.SetAttributes(attribute.Int("agent.turns", turns))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.logger.Error("agent run failed", zap.Int("turns", turns), zap.Error(err))
	} else {
		a.logger.Info("agent run settled", zap.Int("turns", turns))
	}
	a.emit(Event{Type: EventAgentEnd, Turn: turns, Err: err})

	a.mu.Lock()
	a.active = false
	close(done)
	a.mu.Unlock()
}

func (a *Agent) loop(ctx context.Context) error {
	defs := a.tools.Definitions()
	for turn := 1; ; turn++ {
		if turn > a.maxTurns {
			return &RunError{Turn: turn - 1, Err: ErrMaxTurnsExceeded}
		}
		if err := ctx.Err(); err != nil {
			return &RunError{Turn: turn, Err: err}
		}
		a.setTurn(turn, StatusRunning)
		a.emit(Event{Type: EventTurnStart, Turn: turn})
		a.emit(Event{Type: EventMessageStart, Turn: turn, Role: RoleAssistant})

		msg, err := a.model.Generate(ctx, Request{
			System:   a.system,
			Messages: a.snapshot(),
			Tools:    defs,
		})
		if err != nil {
			a.emit(Event{Type: EventMessageEnd, Turn: turn, Role: RoleAssistant,
				Message: &Message{Role: RoleAssistant, StopReason: StopReasonError, ErrorMessage: err.Error()}})
			a.emit(Event{Type: EventTurnEnd, Turn: turn})
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return &RunError{Turn: turn, Err: ctxErr}
			}
			return &RunError{Turn: turn, Err: err}
		}
		if msg.Role == "" {
			msg.Role = RoleAssistant
		}
		a.append(msg)
		a.emit(Event{Type: EventMessageEnd, Turn: turn, Role: msg.Role, Message: &msg})

		if msg.Failed() {
			a.emit(Event{Type: EventTurnEnd, Turn: turn})
			return &RunError{Turn: turn, Err: &ModelError{Message: msg.ErrorMessage}}
		}
		if len(msg.ToolCalls) == 0 {
			a.emit(Event{Type: EventTurnEnd, Turn: turn})
			return nil
		}

		a.setTurn(turn, StatusToolPending)
		for _, call := range msg.ToolCalls {
			a.emit(Event{Type: EventToolExecutionStart, Turn: turn, ToolCall: &call})
			res := a.tools.Execute(ctx, call)
			a.emit(Event{Type: EventToolExecutionEnd, Turn: turn, ToolCall: &call, Result: &res})

			toolMsg := ToolResultMessage(res)
			a.emit(Event{Type: EventMessageStart, Turn: turn, Role: RoleTool})
			a.append(toolMsg)
			a.emit(Event{Type: EventMessageEnd, Turn: turn, Role: RoleTool, Message: &toolMsg})
		}
		a.emit(Event{Type: EventTurnEnd, Turn: turn})
	}
}

func (a *Agent) emit(ev Event) {
	a.subs.publish(ev)
}

func (a *Agent) setTurn(turn int, status Status) {
	a.mu.Lock()
	a.turns = turn
	a.status = status
	a.mu.Unlock()
}

func (a *Agent) append(m Message) {
	a.mu.Lock()
	a.messages = append(a.messages, CloneMessage(m))
	a.mu.Unlock()
}

func (a *Agent) snapshot() []Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return CloneMessages(a.messages)
}
