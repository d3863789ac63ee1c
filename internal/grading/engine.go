package grading

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/gema-autograder/internal/grading/analysis"
	"github.com/noah-isme/gema-autograder/internal/grading/compare"
	"github.com/noah-isme/gema-autograder/internal/grading/predictor"
	"github.com/noah-isme/gema-autograder/internal/grading/requirements"
	"github.com/noah-isme/gema-autograder/internal/grading/similarity"
	"github.com/noah-isme/gema-autograder/internal/grading/syntax"
	"github.com/noah-isme/gema-autograder/internal/observability"
	"github.com/noah-isme/gema-autograder/pkg/sandbox"
)

// Executor compiles code and runs it once with input on stdin.
type Executor interface {
	Execute(ctx context.Context, code, input string) (string, error)
}

// SyntaxChecker classifies syntax validity. It must not fail.
type SyntaxChecker interface {
	Check(ctx context.Context, code string) syntax.Result
}

// PeerSource lists the latest submissions of other students for an activity.
type PeerSource interface {
	ListPeers(ctx context.Context, activityID, excludeStudentID uint) ([]similarity.Peer, error)
}

// Config holds the engine's immutable settings.
type Config struct {
	// SyntaxGate is the syntax score below which correctness and logic are zeroed.
	SyntaxGate      int
	TestConcurrency int
	Rules           []analysis.Rule
}

// DefaultSyntaxGate is the standard syntax score correctness and logic analysis requires.
const DefaultSyntaxGate = 85

// DefaultConfig returns the standard gate and four parallel test cases.
func DefaultConfig() Config {
	return Config{SyntaxGate: DefaultSyntaxGate, TestConcurrency: 4}
}

// Engine grades submissions. It is safe for concurrent use; every call to
// Grade is independent apart from reading the shared predictor.
type Engine struct {
	cfg       Config
	executor  Executor
	syntax    SyntaxChecker
	analyzer  *analysis.Analyzer
	predictor atomic.Pointer[predictor.Predictor]
	peers     PeerSource
	tracer    trace.Tracer
	logger    zerolog.Logger
}

// NewEngine wires the grading pipeline. model and peers may be nil.
func NewEngine(cfg Config, executor Executor, checker SyntaxChecker, model *predictor.Predictor, peers PeerSource, logger zerolog.Logger) *Engine {
	defaults := DefaultConfig()
	if cfg.SyntaxGate <= 0 {
		cfg.SyntaxGate = defaults.SyntaxGate
	}
	if cfg.TestConcurrency <= 0 {
		cfg.TestConcurrency = defaults.TestConcurrency
	}

	e := &Engine{
		cfg:      cfg,
		executor: executor,
		syntax:   checker,
		analyzer: analysis.New(cfg.Rules...),
		peers:    peers,
		tracer:   otel.Tracer("github.com/noah-isme/gema-autograder/internal/grading"),
		logger:   logger.With().Str("component", "grading_engine").Logger(),
	}
	e.predictor.Store(model)
	return e
}

// SetPredictor swaps the model used by subsequent gradings. Runs already in
// flight keep the predictor they started with.
func (e *Engine) SetPredictor(model *predictor.Predictor) {
	e.predictor.Store(model)
}

// ModelLoaded reports whether a trained predictor is in use.
func (e *Engine) ModelLoaded() bool {
	return e.predictor.Load().Available()
}

// Grade runs the full pipeline. It never fails: a panic in any stage yields
// a Failed result with every score at zero.
func (e *Engine) Grade(parent context.Context, activity Activity, sub Submission) (result Result) {
	start := time.Now()
	runID := uuid.NewString()
	state := StateRequirementExtraction

	ctx, span := e.tracer.Start(parent, "grading.grade", trace.WithAttributes(
		attribute.String("grading.run_id", runID),
		attribute.Int64("grading.activity_id", int64(activity.ID)),
		attribute.Int64("grading.submission_id", int64(sub.ID)),
	))
	defer span.End()

	logger := e.logger.With().
		Str("run_id", runID).
		Uint("activity_id", activity.ID).
		Uint("submission_id", sub.ID).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Str("state", string(state)).Msg("grading run failed")
			span.SetStatus(codes.Error, "grading failed")
			result = Result{
				RunID:    runID,
				State:    StateFailed,
				FailedAt: state,
				Error:    fmt.Sprintf("grading failed during %s: %v", state, r),
				Feedback: failedFeedback("An unexpected error occurred while grading this submission"),
			}
		}
		observability.GradingRuns().WithLabelValues(string(result.State)).Inc()
		observability.GradingDuration().Observe(time.Since(start).Seconds())
	}()

	code := sub.Code
	result.RunID = runID

	req := requirements.Extract(activity.Description, activity.Instructions)
	reqReport := requirements.CheckCode(code, req)
	result.RequirementScore = reqReport.Score

	state = StateSyntaxGate
	synRes := e.syntax.Check(ctx, code)
	result.SyntaxScore = clampScore(synRes.Score)
	result.Feedback.Syntax = syntaxSection(synRes, e.cfg.SyntaxGate)
	result.TestsTotal = len(activity.TestCases)

	result.Similarity = e.Similarity(ctx, activity.ID, sub.StudentID, code)

	gated := result.SyntaxScore < e.cfg.SyntaxGate
	if gated {
		logger.Info().Int("syntax_score", result.SyntaxScore).Msg("syntax gate closed, skipping analysis")
		result.Feedback.Correctness = skippedSection("Correctness was not evaluated because the code has syntax errors")
		result.Feedback.Semantics = skippedSection("Logic was not evaluated because the code has syntax errors")
	} else {
		state = StateTestExecution
		tests := e.runTests(ctx, code, activity.TestCases, logger)
		if len(tests) == 0 {
			result.CorrectnessScore = NoTestCasesScore
		} else {
			for _, t := range tests {
				if t.Status == TestPassed {
					result.TestsPassed++
				}
			}
			result.CorrectnessScore = percentOf(result.TestsPassed, len(tests))
		}
		result.Feedback.Correctness = correctnessSection(result.CorrectnessScore, tests)

		state = StateStaticAnalysis
		report := e.analyzer.Analyze(code, len(req.Required()))
		result.LogicScore = report.LogicScore
		blended := e.blend(code, report, result.SyntaxScore, logger)
		result.Feedback.Semantics = semanticsSection(semanticsInput{
			analysis:     report,
			requirements: reqReport,
			blended:      blended,
			similarity:   result.Similarity,
		})
	}

	state = StatePenaltyApplication
	weights := activity.Weights.orDefault()
	// Category scores keep their gated values; the penalty only reaches the total.
	scores := Scores{Correctness: result.CorrectnessScore, Syntax: result.SyntaxScore, Logic: result.LogicScore}
	if pct := PenaltyPercent(activity.DueDate, sub.SubmittedAt); pct > 0 {
		penalized := ApplyPenalty(scores, weights, pct)
		result.PenaltyPercent = pct
		result.Feedback.Penalty = penaltySection(pct, pct/PenaltyPerWeek, scores, penalized)
		scores = penalized
	}

	state = StateFeedbackAssembly
	result.TotalScore = Total(scores, weights)
	result.State = StateDone

	span.SetAttributes(
		attribute.Int("grading.total_score", result.TotalScore),
		attribute.Bool("grading.syntax_gated", gated),
	)
	logger.Info().
		Int("total", result.TotalScore).
		Int("correctness", result.CorrectnessScore).
		Int("syntax", result.SyntaxScore).
		Int("logic", result.LogicScore).
		Int("requirements", result.RequirementScore).
		Dur("duration", time.Since(start)).
		Msg("grading run completed")

	return result
}

// Similarity compares code with the peer corpus. Lookup failures give the
// neutral result.
func (e *Engine) Similarity(ctx context.Context, activityID, studentID uint, code string) similarity.Result {
	if e.peers == nil {
		return similarity.Neutral("Similarity check is not configured")
	}

	peers, err := e.peers.ListPeers(ctx, activityID, studentID)
	if err != nil {
		e.logger.Warn().Err(err).Uint("activity_id", activityID).Msg("failed to load peer submissions")
		return similarity.Neutral("Similarity check is temporarily unavailable")
	}

	res := similarity.Detect(code, peers)
	if res.Flagged {
		observability.SimilarityFlags().Inc()
	}
	return res
}

func (e *Engine) runTests(ctx context.Context, code string, cases []TestCase, logger zerolog.Logger) []TestResult {
	if len(cases) == 0 {
		return nil
	}

	prompts := compare.PromptsFromSource(code)
	results := make([]TestResult, len(cases))

	var g errgroup.Group
	g.SetLimit(e.cfg.TestConcurrency)
	for i, tc := range cases {
		g.Go(func() error {
			results[i] = e.runTest(ctx, code, i+1, tc, prompts, logger)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (e *Engine) runTest(ctx context.Context, code string, n int, tc TestCase, prompts []string, logger zerolog.Logger) (res TestResult) {
	res = TestResult{Case: n, Input: tc.Input, Expected: tc.Expected, Status: TestFailed}
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Int("case", n).Msg("test case panicked")
			res.Status = TestFailed
			res.Error = "Internal error while running this test case"
		}
		observability.TestCases().WithLabelValues(res.Status).Inc()
	}()

	out, err := e.executor.Execute(ctx, code, tc.Input)
	if err != nil {
		logger.Warn().Err(err).Int("case", n).Msg("test case execution failed")
		res.Error = describeExecutionError(err)
		return res
	}

	res.Actual = out
	if compare.CompareFlexible(out, tc.Expected, prompts) {
		res.Status = TestPassed
	}
	return res
}

func describeExecutionError(err error) string {
	var (
		compileErr *sandbox.CompilationError
		runtimeErr *sandbox.RuntimeError
		timeoutErr *sandbox.TimeoutError
	)
	switch {
	case errors.As(err, &timeoutErr):
		if timeoutErr.Stage == sandbox.StageCompile {
			return fmt.Sprintf("Compilation timed out after %s", timeoutErr.Limit)
		}
		return fmt.Sprintf("Time limit exceeded (%s)", timeoutErr.Limit)
	case errors.As(err, &compileErr):
		return compileErr.Error()
	case errors.As(err, &runtimeErr):
		return runtimeErr.Error()
	default:
		return "Execution failed: " + err.Error()
	}
}

func (e *Engine) blend(code string, report analysis.Report, syntaxScore int, logger zerolog.Logger) predictor.Blended {
	pred, err := e.predictor.Load().Predict(code)
	if err != nil {
		if errors.Is(err, predictor.ErrPredictorUnavailable) {
			observability.PredictorFallbacks().WithLabelValues("unavailable").Inc()
		} else {
			logger.Warn().Err(err).Msg("predictor failed, using heuristic scores")
			observability.PredictorFallbacks().WithLabelValues("error").Inc()
		}
	}
	return predictor.Blend(pred, err, report.CorrectnessScore, syntaxScore, report.LogicScore)
}
