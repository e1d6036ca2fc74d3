package agent

import (
	"errors"
	"fmt"
)

var (
	ErrBusy             = errors.New("agent is already running")
	ErrMaxTurnsExceeded = errors.New("max turns exceeded")
	ErrNoModel          = errors.New("model is required")
	ErrNoTools          = errors.New("tool executor is required")
)

// RunError is a run-level failure: the model turn itself failed, the turn
// budget ran out, or the run context ended.
type RunError struct {
	Turn int
	Err  error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("agent run failed at turn %d: %v", e.Turn, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// ModelError carries the error message of a turn that stopped with StopReasonError.
type ModelError struct {
	Message string
}

func (e *ModelError) Error() string {
	if e.Message == "" {
		return "model turn ended with an error"
	}
	return "model error: " + e.Message
}
