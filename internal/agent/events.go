package agent

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

type EventType string

const (
	EventAgentStart         EventType = "agent_start"
	EventTurnStart          EventType = "turn_start"
	EventMessageStart       EventType = "message_start"
	EventMessageEnd         EventType = "message_end"
	EventToolExecutionStart EventType = "tool_execution_start"
	EventToolExecutionEnd   EventType = "tool_execution_end"
	EventTurnEnd            EventType = "turn_end"
	EventAgentEnd           EventType = "agent_end"
)

// Event is one observable step of a run. Pointer fields are copies owned by
// the receiver.
type Event struct {
	Type     EventType
	Turn     int
	Role     Role
	Message  *Message
	ToolCall *ToolCall
	Result   *ToolResult
	// Err is set on agent_end for a failed run.
	Err error
}

// Listener observes events. It runs on the loop goroutine and cannot change
// the run's state; a panic is recovered and logged.
type Listener func(Event)

type subscribers struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]Listener
	logger *zap.Logger
}

func (s *subscribers) add(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = map[int]Listener{}
	}
	id := s.nextID
	s.nextID++
	s.fns[id] = l
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.fns, id)
			s.mu.Unlock()
		})
	}
}

func (s *subscribers) publish(ev Event) {
	s.mu.Lock()
	fns := make([]Listener, 0, len(s.fns))
	// Deliver in subscription order.
	for i := 0; i < s.nextID; i++ {
		if fn, ok := s.fns[i]; ok {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		s.deliver(fn, copyEvent(ev))
	}
}

func (s *subscribers) deliver(fn Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("event listener panicked",
				zap.String("event", string(ev.Type)),
				zap.String("panic", fmt.Sprint(r)))
		}
	}()
	fn(ev)
}

func copyEvent(ev Event) Event {
	if ev.Message != nil {
		m := CloneMessage(*ev.Message)
		ev.Message = &m
	}
	if ev.ToolCall != nil {
		c := *ev.ToolCall
		c.Arguments = append([]byte(nil), c.Arguments...)
		ev.ToolCall = &c
	}
	if ev.Result != nil {
		r := *ev.Result
		ev.Result = &r
	}
	return ev
}
