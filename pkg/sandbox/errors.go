package sandbox

import (
	"fmt"
	"strings"
	"time"
)

const (
	compileMessageLimit = 200
	runtimeMessageLimit = 200
)

// CompilationError is returned when the compiler exits with a non-zero status.
type CompilationError struct {
	ExitCode int
	Stderr   string
}

func (e *CompilationError) Error() string {
	msg := truncate(strings.TrimSpace(e.Stderr), compileMessageLimit)
	if msg == "" {
		return fmt.Sprintf("compilation failed with exit code %d", e.ExitCode)
	}
	return "compilation failed: " + msg
}

// RuntimeError is returned when the compiled program exits with a non-zero status.
type RuntimeError struct {
	ExitCode int
	Stderr   string
}

func (e *RuntimeError) Error() string {
	msg := truncate(strings.TrimSpace(e.Stderr), runtimeMessageLimit)
	if msg == "" {
		return fmt.Sprintf("program exited with code %d", e.ExitCode)
	}
	return fmt.Sprintf("program exited with code %d: %s", e.ExitCode, msg)
}

// Stage names the sandbox step that exceeded its time bound.
type Stage string

const (
	StageCompile Stage = "compile"
	StageRun     Stage = "run"
	StageSyntax  Stage = "syntax"
)

// TimeoutError is returned when a compile, run or syntax check exceeds its bound.
type TimeoutError struct {
	Stage Stage
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Stage, e.Limit)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
