package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Runner executes a single command inside a prepared workspace directory.
//
// Implementations report timeouts through Output.TimedOut and non-zero exits
// through Output.ExitCode. A returned error means the command could not be
// started at all.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Output, error)
}

// Command describes one process invocation. Path and Args are resolved
// relative to Dir so the same command works for every Runner.
type Command struct {
	Path    string
	Args    []string
	Dir     string
	Stdin   string
	Timeout time.Duration
}

// Output captures what a finished (or killed) process produced.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	TimedOut bool
}

// ErrCompilerNotFound indicates the configured compiler binary is not installed.
var ErrCompilerNotFound = errors.New("compiler not found")

// LocalRunner runs commands as host subprocesses.
type LocalRunner struct {
	// WaitDelay bounds how long Run waits for output pipes after the process is killed.
	WaitDelay time.Duration
}

// NewLocalRunner builds a runner backed by os/exec.
func NewLocalRunner() *LocalRunner {
	return &LocalRunner{WaitDelay: time.Second}
}

// Run starts the process and waits for it, killing it once the timeout elapses.
func (r *LocalRunner) Run(parent context.Context, cmd Command) (Output, error) {
	ctx := parent
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, cmd.Timeout)
		defer cancel()
	}

	path := cmd.Path
	if cmd.Dir != "" && strings.HasPrefix(path, "./") {
		path = filepath.Join(cmd.Dir, path)
	}

	proc := exec.CommandContext(ctx, path, cmd.Args...)
	proc.Dir = cmd.Dir
	proc.WaitDelay = r.WaitDelay
	if cmd.Stdin != "" {
		proc.Stdin = strings.NewReader(cmd.Stdin)
	}

	var stdout, stderr bytes.Buffer
	proc.Stdout = &stdout
	proc.Stderr = &stderr

	start := time.Now()
	err := proc.Run()
	out := Output{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if ctx.Err() == context.DeadlineExceeded {
		out.TimedOut = true
		out.ExitCode = -1
		return out, nil
	}

	if err == nil {
		return out, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
		return out, nil
	}

	if errors.Is(err, exec.ErrNotFound) {
		return out, fmt.Errorf("%s: %w", cmd.Path, ErrCompilerNotFound)
	}

	return out, fmt.Errorf("start %s: %w", cmd.Path, err)
}
