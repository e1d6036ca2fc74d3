package agent_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mohammad-safakhou/briefer/internal/agent"
	"github.com/mohammad-safakhou/briefer/internal/agent/agenttest"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// echoTool returns its "text" argument and counts calls.
type echoTool struct {
	mu    sync.Mutex
	calls []string
	block chan struct{}
}

func (e *echoTool) Definition() agent.ToolDefinition {
	return agent.ToolDefinition{
		Name:        "echo",
		Description: "echoes text",
		Parameters:  agent.ObjectSchema(map[string]any{"text": map[string]any{"type": "string"}}, "text"),
	}
}

func (e *echoTool) Execute(ctx context.Context, call agent.ToolCall) (agent.ToolResult, error) {
	if e.block != nil {
		select {
		case <-e.block:
		case <-ctx.Done():
			return agent.ToolResult{}, ctx.Err()
		}
	}
	var args struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(call.Arguments, &args); err != nil {
		return agent.ToolResult{}, err
	}
	e.mu.Lock()
	e.calls = append(e.calls, args.Text)
	e.mu.Unlock()
	return agent.TextResult(call, args.Text, nil), nil
}

func (e *echoTool) seen() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

func newAgent(t *testing.T, model agent.Model, maxTurns int, tools ...agent.Tool) *agent.Agent {
	t.Helper()
	d, err := agent.NewDispatcher(time.Second, nil, tools...)
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	a, err := agent.New(agent.Config{Model: model, Tools: d, SystemPrompt: "sys", MaxTurns: maxTurns})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestAgent_SettlesAfterScriptedToolCalls(t *testing.T) {
	echo := &echoTool{}
	model := agenttest.NewScriptedModel(
		agenttest.Calls(agenttest.Call("1", "echo", map[string]string{"text": "a"})),
		agenttest.Calls(
			agenttest.Call("2", "echo", map[string]string{"text": "b"}),
			agenttest.Call("3", "echo", map[string]string{"text": "c"}),
		),
		agenttest.Final("done"),
	)
	a := newAgent(t, model, 10, echo)

	if err := a.Run(context.Background(), "go"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := echo.seen(); len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("tool calls out of order: %v", got)
	}
	st := a.State()
	if st.Status != agent.StatusIdle || st.Turns != 3 {
		t.Fatalf("unexpected state %+v", st)
	}
	// user, assistant, tool, assistant, tool, tool, assistant
	if len(st.Messages) != 7 {
		t.Fatalf("expected 7 messages, got %d", len(st.Messages))
	}
	if st.Messages[len(st.Messages)-1].Content != "done" {
		t.Fatalf("expected final answer last")
	}

	reqs := model.Requests()
	if len(reqs) != 3 || reqs[0].System != "sys" || len(reqs[0].Tools) != 1 {
		t.Fatalf("unexpected requests %+v", reqs)
	}
	if len(reqs[1].Messages) != 3 || reqs[1].Messages[2].Role != agent.RoleTool || reqs[1].Messages[2].Content != "a" {
		t.Fatalf("tool result not fed back: %+v", reqs[1].Messages)
	}
}

func TestAgent_ErrorStopReasonFailsRun(t *testing.T) {
	model := agenttest.NewScriptedModel(agenttest.Failure("quota exceeded"))
	a := newAgent(t, model, 5, &echoTool{})

	err := a.Run(context.Background(), "go")
	var runErr *agent.RunError
	if !errors.As(err, &runErr) {
		t.Fatalf("expected RunError, got %v", err)
	}
	var modelErr *agent.ModelError
	if !errors.As(err, &modelErr) || modelErr.Message != "quota exceeded" {
		t.Fatalf("expected model error message, got %v", err)
	}
	if st := a.State(); st.Status != agent.StatusFailed || st.Err == nil {
		t.Fatalf("expected failed state, got %+v", st)
	}
}

func TestAgent_GenerateErrorFailsRun(t *testing.T) {
	boom := errors.New("network down")
	a := newAgent(t, agenttest.NewScriptedModel(agenttest.Response{Err: boom}), 5, &echoTool{})
	if err := a.Run(context.Background(), "go"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped model error, got %v", err)
	}
}

func TestAgent_MaxTurnsBound(t *testing.T) {
	var script []agenttest.Response
	for i := 0; i < 10; i++ {
		script = append(script, agenttest.Calls(agenttest.Call("x", "echo", map[string]string{"text": "again"})))
	}
	echo := &echoTool{}
	a := newAgent(t, agenttest.NewScriptedModel(script...), 3, echo)

	err := a.Run(context.Background(), "loop forever")
	if !errors.Is(err, agent.ErrMaxTurnsExceeded) {
		t.Fatalf("expected ErrMaxTurnsExceeded, got %v", err)
	}
	if n := len(echo.seen()); n != 3 {
		t.Fatalf("expected 3 dispatches before the bound, got %d", n)
	}
}

func TestAgent_ToolErrorsAreFedBackNotFatal(t *testing.T) {
	model := agenttest.NewScriptedModel(
		agenttest.Calls(agenttest.Call("1", "missing_tool", nil)),
		agenttest.Final("recovered"),
	)
	a := newAgent(t, model, 5, &echoTool{})
	if err := a.Run(context.Background(), "go"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	msgs := a.State().Messages
	tool := msgs[2]
	if tool.Role != agent.RoleTool || !tool.IsError || tool.Content != `Error: tool "missing_tool" is not defined` {
		t.Fatalf("unexpected tool message %+v", tool)
	}
}

func TestAgent_PromptWhileRunningIsBusy(t *testing.T) {
	echo := &echoTool{block: make(chan struct{})}
	model := agenttest.NewScriptedModel(
		agenttest.Calls(agenttest.Call("1", "echo", map[string]string{"text": "a"})),
		agenttest.Final("ok"),
	)
	a := newAgent(t, model, 5, echo)

	started := make(chan struct{})
	var once sync.Once
	a.Subscribe(func(ev agent.Event) {
		if ev.Type == agent.EventToolExecutionStart {
			once.Do(func() { close(started) })
		}
	})

	if err := a.Prompt(context.Background(), "first"); err != nil {
		t.Fatalf("Prompt: %v", err)
	}
	<-started
	if err := a.Prompt(context.Background(), "second"); !errors.Is(err, agent.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if st := a.State(); st.Status != agent.StatusToolPending {
		t.Fatalf("expected tool_pending, got %s", st.Status)
	}
	close(echo.block)
	if err := a.WaitForIdle(context.Background()); err != nil {
		t.Fatalf("WaitForIdle: %v", err)
	}
}

func TestAgent_WaitForIdleHonorsCallerContext(t *testing.T) {
	echo := &echoTool{block: make(chan struct{})}
	model := agenttest.NewScriptedModel(
		agenttest.Calls(agenttest.Call("1", "echo", map[string]string{"text": "a"})),
		agenttest.Final("ok"),
	)
	a := newAgent(t, model, 5, echo)
	if err := a.Prompt(context.Background(), "go"); err != nil {
		t.Fatalf("Prompt: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := a.WaitForIdle(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
	close(echo.block)
	if err := a.WaitForIdle(context.Background()); err != nil {
		t.Fatalf("WaitForIdle: %v", err)
	}
}

func TestAgent_CancelledRunFails(t *testing.T) {
	echo := &echoTool{block: make(chan struct{})}
	model := agenttest.NewScriptedModel(
		agenttest.Calls(agenttest.Call("1", "echo", map[string]string{"text": "a"})),
		agenttest.Final("never"),
	)
	a := newAgent(t, model, 5, echo)
	ctx, cancel := context.WithCancel(context.Background())
	if err := a.Prompt(ctx, "go"); err != nil {
		t.Fatalf("Prompt: %v", err)
	}
	cancel()
	if err := a.WaitForIdle(context.Background()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled run, got %v", err)
	}
}

func TestAgent_WaitForIdleWithoutRun(t *testing.T) {
	a := newAgent(t, agenttest.NewScriptedModel(), 1, &echoTool{})
	if err := a.WaitForIdle(context.Background()); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestAgent_RunAgainAfterFailure(t *testing.T) {
	model := agenttest.NewScriptedModel(agenttest.Failure("first"), agenttest.Final("second"))
	a := newAgent(t, model, 5, &echoTool{})
	if err := a.Run(context.Background(), "one"); err == nil {
		t.Fatalf("expected first run to fail")
	}
	if err := a.Run(context.Background(), "two"); err != nil {
		t.Fatalf("second run: %v", err)
	}
	msgs := a.State().Messages
	if len(msgs) != 2 || msgs[0].Content != "two" {
		t.Fatalf("expected fresh transcript, got %+v", msgs)
	}
}

func TestAgent_EventSequence(t *testing.T) {
	model := agenttest.NewScriptedModel(
		agenttest.Calls(agenttest.Call("1", "echo", map[string]string{"text": "a"})),
		agenttest.Final("ok"),
	)
	a := newAgent(t, model, 5, &echoTool{})

	var mu sync.Mutex
	var got []agent.EventType
	a.Subscribe(func(ev agent.Event) {
		mu.Lock()
		got = append(got, ev.Type)
		mu.Unlock()
	})
	if err := a.Run(context.Background(), "go"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []agent.EventType{
		agent.EventAgentStart,
		agent.EventMessageStart, agent.EventMessageEnd,
		agent.EventTurnStart,
		agent.EventMessageStart, agent.EventMessageEnd,
		agent.EventToolExecutionStart, agent.EventToolExecutionEnd,
		agent.EventMessageStart, agent.EventMessageEnd,
		agent.EventTurnEnd,
		agent.EventTurnStart,
		agent.EventMessageStart, agent.EventMessageEnd,
		agent.EventTurnEnd,
		agent.EventAgentEnd,
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: expected %s, got %s (%v)", i, want[i], got[i], got)
		}
	}
}

func TestAgent_PanickingSubscriberDoesNotAffectRun(t *testing.T) {
	model := agenttest.NewScriptedModel(
		agenttest.Calls(agenttest.Call("1", "echo", map[string]string{"text": "a"})),
		agenttest.Final("ok"),
	)
	echo := &echoTool{}
	a := newAgent(t, model, 5, echo)
	a.Subscribe(func(agent.Event) { panic("listener bug") })

	var ends int
	unsubscribe := a.Subscribe(func(ev agent.Event) {
		if ev.Type == agent.EventAgentEnd {
			ends++
		}
	})
	if err := a.Run(context.Background(), "go"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ends != 1 || len(echo.seen()) != 1 {
		t.Fatalf("run affected by panicking listener: ends=%d calls=%v", ends, echo.seen())
	}

	unsubscribe()
	if err := a.Run(context.Background(), "again"); err == nil {
		// script exhausted: the run fails, but the removed listener must not see it
		t.Fatalf("expected exhausted script to fail")
	}
	if ends != 1 {
		t.Fatalf("unsubscribed listener still called")
	}
}

func TestAgent_ListenerMutationDoesNotLeakIntoTranscript(t *testing.T) {
	model := agenttest.NewScriptedModel(agenttest.Final("original"))
	a := newAgent(t, model, 5, &echoTool{})
	a.Subscribe(func(ev agent.Event) {
		if ev.Message != nil {
			ev.Message.Content = "tampered"
		}
	})
	if err := a.Run(context.Background(), "go"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := a.State().Messages[1].Content; got != "original" {
		t.Fatalf("listener altered transcript: %q", got)
	}
}

func TestNew_RequiresModelAndTools(t *testing.T) {
	if _, err := agent.New(agent.Config{}); !errors.Is(err, agent.ErrNoModel) {
		t.Fatalf("expected ErrNoModel, got %v", err)
	}
	if _, err := agent.New(agent.Config{Model: agenttest.NewScriptedModel()}); !errors.Is(err, agent.ErrNoTools) {
		t.Fatalf("expected ErrNoTools, got %v", err)
	}
}
