package sandbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gema",
		Subsystem: "sandbox",
		Name:      "stage_duration_seconds",
		Help:      "Duration of sandbox compile, run and syntax-check stages",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage"})

	stageTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gema",
		Subsystem: "sandbox",
		Name:      "stage_timeouts_total",
		Help:      "Number of sandbox stages that hit their time bound",
	}, []string{"stage"})

	stageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gema",
		Subsystem: "sandbox",
		Name:      "stage_failures_total",
		Help:      "Number of sandbox stages that exited with a non-zero status",
	}, []string{"stage"})
)

const (
	sourceFileName = "main.c"
	binaryFileName = "prog"
)

// Config describes compiler and time-bound settings for the sandbox.
type Config struct {
	Compiler       string
	CompileFlags   []string
	SyntaxFlags    []string
	CompileTimeout time.Duration
	RunTimeout     time.Duration
	SyntaxTimeout  time.Duration
	WorkspaceRoot  string
	Logger         zerolog.Logger
}

// DefaultConfig returns gcc with warnings and the 10s/5s/10s bounds.
func DefaultConfig() Config {
	return Config{
		Compiler:       "gcc",
		CompileFlags:   []string{"-Wall", "-Wextra", "-std=c11"},
		SyntaxFlags:    []string{"-fsyntax-only", "-Wall", "-Wextra", "-std=c11"},
		CompileTimeout: 10 * time.Second,
		RunTimeout:     5 * time.Second,
		SyntaxTimeout:  10 * time.Second,
	}
}

// Sandbox compiles and runs C submissions in per-invocation temporary workspaces.
type Sandbox struct {
	runner Runner
	cfg    Config
	tracer trace.Tracer
	logger zerolog.Logger
}

// New builds a sandbox on top of the provided runner. Zero-valued config
// fields take their DefaultConfig values.
func New(runner Runner, cfg Config) *Sandbox {
	defaults := DefaultConfig()
	if cfg.Compiler == "" {
		cfg.Compiler = defaults.Compiler
	}
	if cfg.CompileFlags == nil {
		cfg.CompileFlags = defaults.CompileFlags
	}
	if cfg.SyntaxFlags == nil {
		cfg.SyntaxFlags = defaults.SyntaxFlags
	}
	if cfg.CompileTimeout <= 0 {
		cfg.CompileTimeout = defaults.CompileTimeout
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = defaults.RunTimeout
	}
	if cfg.SyntaxTimeout <= 0 {
		cfg.SyntaxTimeout = defaults.SyntaxTimeout
	}
	if cfg.WorkspaceRoot == "" {
		cfg.WorkspaceRoot = os.TempDir()
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &Sandbox{
		runner: runner,
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/gema-autograder/pkg/sandbox"),
		logger: logger.With().Str("component", "sandbox").Logger(),
	}
}

// Execute compiles code and runs the binary once with input on stdin,
// returning the trimmed standard output.
func (s *Sandbox) Execute(parent context.Context, code, input string) (string, error) {
	ctx, span := s.tracer.Start(parent, "sandbox.execute")
	defer span.End()

	output, err := s.withWorkspace(code, func(workspace string) (string, error) {
		compileArgs := append(append([]string{}, s.cfg.CompileFlags...), "-o", binaryFileName, sourceFileName, "-lm")
		compiled, err := s.invoke(ctx, StageCompile, Command{
			Path:    s.cfg.Compiler,
			Args:    compileArgs,
			Dir:     workspace,
			Timeout: s.cfg.CompileTimeout,
		})
		if err != nil {
			return "", err
		}
		if compiled.ExitCode != 0 {
			return "", &CompilationError{ExitCode: compiled.ExitCode, Stderr: compiled.Stderr}
		}

		ran, err := s.invoke(ctx, StageRun, Command{
			Path:    "./" + binaryFileName,
			Dir:     workspace,
			Stdin:   input,
			Timeout: s.cfg.RunTimeout,
		})
		if err != nil {
			return "", err
		}
		if ran.ExitCode != 0 {
			return "", &RuntimeError{ExitCode: ran.ExitCode, Stderr: ran.Stderr}
		}

		return strings.TrimSpace(ran.Stdout), nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return output, err
}

// CheckSyntax runs the compiler in syntax-only mode. A non-zero exit is not an
// error; callers inspect Output.ExitCode and Output.Stderr.
func (s *Sandbox) CheckSyntax(parent context.Context, code string) (Output, error) {
	ctx, span := s.tracer.Start(parent, "sandbox.check_syntax")
	defer span.End()

	var result Output
	_, err := s.withWorkspace(code, func(workspace string) (string, error) {
		args := append(append([]string{}, s.cfg.SyntaxFlags...), sourceFileName)
		out, err := s.invoke(ctx, StageSyntax, Command{
			Path:    s.cfg.Compiler,
			Args:    args,
			Dir:     workspace,
			Timeout: s.cfg.SyntaxTimeout,
		})
		result = out
		return "", err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

func (s *Sandbox) withWorkspace(code string, fn func(workspace string) (string, error)) (string, error) {
	workspace, err := os.MkdirTemp(s.cfg.WorkspaceRoot, "grade-")
	if err != nil {
		return "", fmt.Errorf("create workspace: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workspace); err != nil {
			s.logger.Warn().Err(err).Str("workspace", workspace).Msg("failed to remove workspace")
		}
	}()

	if err := os.WriteFile(filepath.Join(workspace, sourceFileName), []byte(code), 0o600); err != nil {
		return "", fmt.Errorf("write source: %w", err)
	}

	return fn(workspace)
}

func (s *Sandbox) invoke(ctx context.Context, stage Stage, cmd Command) (Output, error) {
	ctx, span := s.tracer.Start(ctx, "sandbox."+string(stage), trace.WithAttributes(
		attribute.String("sandbox.stage", string(stage)),
	))
	defer span.End()

	out, err := s.runner.Run(ctx, cmd)
	stageDuration.WithLabelValues(string(stage)).Observe(out.Duration.Seconds())
	if err != nil {
		return out, err
	}

	if out.TimedOut {
		stageTimeouts.WithLabelValues(string(stage)).Inc()
		span.SetStatus(codes.Error, "timed out")
		return out, &TimeoutError{Stage: stage, Limit: cmd.Timeout}
	}

	if out.ExitCode != 0 {
		stageFailures.WithLabelValues(string(stage)).Inc()
		span.SetAttributes(attribute.Int("sandbox.exit_code", out.ExitCode))
	}

	return out, nil
}
