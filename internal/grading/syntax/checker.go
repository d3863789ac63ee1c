package syntax

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-autograder/pkg/sandbox"
)

// Mode records how a syntax result was produced.
type Mode string

const (
	ModeCompiler Mode = "compiler"
	ModeBasic    Mode = "basic"
	ModeTimeout  Mode = "timeout"
)

const (
	maxListedErrors  = 3
	errorTextLimit   = 100
	errorMarker      = "error:"
	warningMarker    = "warning:"
	noErrorsParsed   = 80
	singleErrorScore = 60
	fewErrorsScore   = 40
	manyErrorsScore  = 15
)

// Runner is the part of the sandbox the checker needs.
type Runner interface {
	CheckSyntax(ctx context.Context, code string) (sandbox.Output, error)
}

// Result is a 0-100 syntax classification plus student-facing detail.
type Result struct {
	Score        int           `json:"score"`
	Message      string        `json:"message"`
	Mode         Mode          `json:"mode"`
	Errors       []string      `json:"errors,omitempty"`
	Warnings     int           `json:"warnings"`
	Explanations []Explanation `json:"explanations,omitempty"`
}

// Checker scores syntax validity through the compiler, falling back to
// BasicCheck when no compiler is installed.
type Checker struct {
	runner Runner
	logger zerolog.Logger
}

// NewChecker builds a syntax checker.
func NewChecker(runner Runner, logger zerolog.Logger) *Checker {
	return &Checker{
		runner: runner,
		logger: logger.With().Str("component", "syntax_checker").Logger(),
	}
}

// Check classifies code. It never fails; infrastructure problems degrade to
// the basic checker.
func (c *Checker) Check(ctx context.Context, code string) Result {
	out, err := c.runner.CheckSyntax(ctx, code)
	if err != nil {
		var timeoutErr *sandbox.TimeoutError
		switch {
		case errors.As(err, &timeoutErr):
			return Result{
				Score:   0,
				Mode:    ModeTimeout,
				Message: fmt.Sprintf("Syntax check timed out after %s", timeoutErr.Limit),
			}
		case errors.Is(err, sandbox.ErrCompilerNotFound):
			c.logger.Warn().Msg("compiler not available, using basic syntax check")
		default:
			c.logger.Warn().Err(err).Msg("syntax check failed, using basic syntax check")
		}
		return BasicCheck(code)
	}

	return ScoreDiagnostics(out.ExitCode, out.Stderr)
}

// ScoreDiagnostics maps a compiler exit status and its stderr to a Result.
func ScoreDiagnostics(exitCode int, stderr string) Result {
	warnings := 0
	for _, line := range strings.Split(stderr, "\n") {
		if strings.Contains(line, warningMarker) {
			warnings++
		}
	}

	if exitCode == 0 {
		msg := "Code syntax is correct"
		if warnings > 0 {
			msg = fmt.Sprintf("Code syntax is correct (%d compiler warning(s))", warnings)
		}
		return Result{Score: 100, Message: msg, Mode: ModeCompiler, Warnings: warnings}
	}

	errs := extractErrors(stderr)
	result := Result{
		Score:        scoreForErrorCount(len(errs)),
		Mode:         ModeCompiler,
		Errors:       errs,
		Warnings:     warnings,
		Explanations: ExplainAll(stderr),
	}

	if len(errs) == 0 {
		result.Message = "Compilation failed without a specific error message"
		return result
	}

	listed := errs
	if len(listed) > maxListedErrors {
		listed = listed[:maxListedErrors]
	}
	msg := fmt.Sprintf("Found %d syntax error(s): %s", len(errs), strings.Join(listed, "; "))
	if extra := len(errs) - len(listed); extra > 0 {
		msg += fmt.Sprintf(" (and %d more)", extra)
	}
	result.Message = msg
	return result
}

func scoreForErrorCount(n int) int {
	switch {
	case n == 0:
		return noErrorsParsed
	case n == 1:
		return singleErrorScore
	case n <= 3:
		return fewErrorsScore
	default:
		return manyErrorsScore
	}
}

func extractErrors(stderr string) []string {
	var errs []string
	for _, line := range strings.Split(stderr, "\n") {
		idx := strings.Index(line, errorMarker)
		if idx < 0 {
			continue
		}
		desc := strings.TrimSpace(line[idx+len(errorMarker):])
		if desc == "" {
			desc = strings.TrimSpace(line)
		}
		errs = append(errs, truncate(desc, errorTextLimit))
	}
	return errs
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
