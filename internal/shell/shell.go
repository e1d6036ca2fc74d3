// Package shell runs host commands for the run_shell_command tool.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// NoOutput is returned by Output.Text when the command printed nothing.
const NoOutput = "Command completed with no output"

const waitDelay = 500 * time.Millisecond

var ErrEmptyCommand = errors.New("command is required")

type Output struct {
	Stdout string
	Stderr string
}

// Text prefers stdout, then stderr, then NoOutput.
func (o Output) Text() string {
	if o.Stdout != "" {
		return o.Stdout
	}
	if o.Stderr != "" {
		return o.Stderr
	}
	return NoOutput
}

// Executor runs a command string through the platform shell.
type Executor struct {
	// Shell overrides the interpreter, e.g. []string{"bash", "-c"}.
	Shell   []string
	Dir     string
	Timeout time.Duration
}

func (e Executor) Run(ctx context.Context, command string) (Output, error) {
	if strings.TrimSpace(command) == "" {
		return Output{}, ErrEmptyCommand
	}
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	argv := e.argv(command)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = e.Dir
	// Children of the shell may hold the pipes open after it is killed.
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			if e.Timeout > 0 {
				return out, fmt.Errorf("command timed out after %s: %s", e.Timeout, command)
			}
			return out, fmt.Errorf("command timed out: %s", command)
		}
		if msg := strings.TrimSpace(out.Stderr); msg != "" {
			return out, fmt.Errorf("command failed: %s: %w\n%s", command, err, msg)
		}
		return out, fmt.Errorf("command failed: %s: %w", command, err)
	}
	return out, nil
}

func (e Executor) argv(command string) []string {
	if len(e.Shell) > 0 {
		return append(append([]string{}, e.Shell...), command)
	}
	if runtime.GOOS == "windows" {
		return []string{"cmd", "/C", command}
	}
	return []string{"sh", "-c", command}
}
