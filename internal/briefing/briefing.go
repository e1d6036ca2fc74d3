// Package briefing runs the daily briefing: one fresh agent per run over the
// shared tool catalog.
package briefing

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/mohammad-safakhou/briefer/internal/agent"
	"go.uber.org/zap"
)

const SystemPrompt = `You are a Daily News Briefer.
1. Call 'get_sources' to see what to read.
2. For each active source, use 'fetch_url'.
3. Synthesize all findings into one 'Daily Briefing' markdown report.
4. Save it using 'save_to_obsidian' with today's date.`

const filenamePrefix = "Daily-Briefing-"

var ErrRunInProgress = errors.New("a briefing run is already in progress")

// ReportFilename is the vault filename for the briefing of date (UTC day).
func ReportFilename(date time.Time) string {
	return filenamePrefix + date.UTC().Format(time.DateOnly) + ".md"
}

// Prompt is the instruction given to the agent for date.
func Prompt(date time.Time) string {
	return "Generate my daily briefing now. Use filename " + ReportFilename(date)
}

// ModelFactory returns the model for one run, so settings edits apply to the
// next run without a restart.
type ModelFactory func(ctx context.Context) (agent.Model, error)

type Options struct {
	Models    ModelFactory
	Tools     agent.Executor
	MaxTurns  int
	Logger    *zap.Logger
	Listeners []agent.Listener
	Now       func() time.Time
}

// Result summarizes a finished run.
type Result struct {
	Filename string        `json:"filename"`
	Turns    int           `json:"turns"`
	Messages int           `json:"messages"`
	Summary  string        `json:"summary,omitempty"`
	Duration time.Duration `json:"duration"`
}

type Service struct {
	models    ModelFactory
	tools     agent.Executor
	maxTurns  int
	logger    *zap.Logger
	listeners []agent.Listener
	now       func() time.Time
	running   atomic.Bool
}

func NewService(opts Options) (*Service, error) {
	if opts.Models == nil {
		return nil, errors.New("briefing: model factory is required")
	}
	if opts.Tools == nil {
		return nil, errors.New("briefing: tools are required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		models:    opts.Models,
		tools:     opts.Tools,
		maxTurns:  opts.MaxTurns,
		logger:    opts.Logger,
		listeners: append([]agent.Listener{LogEvents(opts.Logger)}, opts.Listeners...),
		now:       opts.Now,
	}, nil
}

// Running reports whether a run is in progress.
func (s *Service) Running() bool {
	return s.running.Load()
}

// Run executes one briefing and blocks until the agent settles. extra
// listeners observe only this run.
func (s *Service) Run(ctx context.Context, extra ...agent.Listener) (Result, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Result{}, ErrRunInProgress
	}
	defer s.running.Store(false)

	began := time.Now()
	start := s.now()
	filename := ReportFilename(start)
	model, err := s.models(ctx)
	if err != nil {
		return Result{Filename: filename}, fmt.Errorf("select model: %w", err)
	}

	a, err := agent.New(agent.Config{
		Model:        model,
		Tools:        s.tools,
		SystemPrompt: SystemPrompt,
		MaxTurns:     s.maxTurns,
		Logger:       s.logger,
	})
	if err != nil {
		return Result{Filename: filename}, err
	}
	for _, l := range s.listeners {
		a.Subscribe(l)
	}
	for _, l := range extra {
		a.Subscribe(l)
	}

	s.logger.Info("starting daily briefing", zap.String("filename", filename))
	runErr := a.Run(ctx, Prompt(start))

	st := a.State()
	res := Result{
		Filename: filename,
		Turns:    st.Turns,
		Messages: len(st.Messages),
		Duration: time.Since(began),
	}
	if n := len(st.Messages); n > 0 && st.Messages[n-1].Role == agent.RoleAssistant {
		res.Summary = st.Messages[n-1].Content
	}
	if runErr != nil {
		return res, runErr
	}
	s.logger.Info("daily briefing finished",
		zap.String("filename", filename),
		zap.Int("turns", res.Turns),
		zap.Int("messages", res.Messages))
	return res, nil
}

// LogEvents logs the agent side-channel.
func LogEvents(logger *zap.Logger) agent.Listener {
	return func(ev agent.Event) {
		switch ev.Type {
		case agent.EventMessageEnd:
			if ev.Message != nil && ev.Message.Failed() {
				logger.Error("model error", zap.Int("turn", ev.Turn), zap.String("error", ev.Message.ErrorMessage))
				return
			}
			logger.Debug("agent event", zap.String("type", string(ev.Type)), zap.String("role", string(ev.Role)), zap.Int("turn", ev.Turn))
		case agent.EventToolExecutionStart:
			logger.Info("tool call", zap.Int("turn", ev.Turn), zap.String("tool", ev.ToolCall.Name))
		case agent.EventToolExecutionEnd:
			if ev.Result != nil && ev.Result.IsError {
				logger.Warn("tool returned error", zap.String("tool", ev.ToolCall.Name), zap.String("content", ev.Result.Content))
			}
		case agent.EventAgentEnd:
			if ev.Err != nil {
				logger.Error("agent failed", zap.Int("turns", ev.Turn), zap.Error(ev.Err))
			}
		default:
			logger.Debug("agent event", zap.String("type", string(ev.Type)), zap.Int("turn", ev.Turn))
		}
	}
}
