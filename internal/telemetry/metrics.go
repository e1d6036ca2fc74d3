package telemetry

import (
	"sync"
	"time"

	"github.com/mohammad-safakhou/briefer/internal/agent"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors fed by agent events.
type Metrics struct {
	Runs         *prometheus.CounterVec
	ToolCalls    *prometheus.CounterVec
	ToolDuration *prometheus.HistogramVec
	Turns        prometheus.Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "briefer_agent_runs_total",
			Help: "Agent runs by final status.",
		}, []string{"status"}),
		ToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "briefer_tool_calls_total",
			Help: "Dispatched tool calls by tool and outcome.",
		}, []string{"tool", "outcome"}),
		ToolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "briefer_tool_call_duration_seconds",
			Help:    "Tool call latency.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"tool"}),
		Turns: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "briefer_agent_turns",
			Help:    "Model turns per run.",
			Buckets: prometheus.LinearBuckets(1, 2, 13),
		}),
	}
}

// Register adds the collectors to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Runs, m.ToolCalls, m.ToolDuration, m.Turns} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns metrics registered once with the prometheus default registry.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = NewMetrics()
		_ = defaultMetrics.Register(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// Listener returns an agent event listener recording one run. Use a fresh
// listener per run.
func (m *Metrics) Listener() agent.Listener {
	var mu sync.Mutex
	started := map[string]time.Time{}
	return func(ev agent.Event) {
		switch ev.Type {
		case agent.EventToolExecutionStart:
			mu.Lock()
			started[ev.ToolCall.ID] = time.Now()
			mu.Unlock()
		case agent.EventToolExecutionEnd:
			outcome := "ok"
			if ev.Result != nil && ev.Result.IsError {
				outcome = "error"
			}
			m.ToolCalls.WithLabelValues(ev.ToolCall.Name, outcome).Inc()
			mu.Lock()
			t0, ok := started[ev.ToolCall.ID]
			delete(started, ev.ToolCall.ID)
			mu.Unlock()
			if ok {
				m.ToolDuration.WithLabelValues(ev.ToolCall.Name).Observe(time.Since(t0).Seconds())
			}
		case agent.EventAgentEnd:
			status := "idle"
			if ev.Err != nil {
				status = "failed"
			}
			m.Runs.WithLabelValues(status).Inc()
			m.Turns.Observe(float64(ev.Turn))
		}
	}
}
