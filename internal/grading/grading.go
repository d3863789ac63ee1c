// Package grading runs a C submission through the full grading pipeline:
// requirement extraction, the syntax gate, test execution, static analysis,
// the overdue penalty and feedback assembly.
package grading

import (
	"time"

	"github.com/noah-isme/gema-autograder/internal/grading/similarity"
)

// State is a step of the grading state machine.
type State string

const (
	StateRequirementExtraction State = "requirement_extraction"
	StateSyntaxGate            State = "syntax_gate"
	StateTestExecution         State = "test_execution"
	StateStaticAnalysis        State = "static_analysis"
	StatePenaltyApplication    State = "penalty_application"
	StateFeedbackAssembly      State = "feedback_assembly"
	StateDone                  State = "done"
	StateFailed                State = "failed"
)

// Weights are the rubric percentages used to combine category scores.
type Weights struct {
	Correctness int `json:"correctness"`
	Syntax      int `json:"syntax"`
	Logic       int `json:"logic"`
}

// DefaultWeights apply when an activity carries no usable rubric.
func DefaultWeights() Weights {
	return Weights{Correctness: 40, Syntax: 30, Logic: 30}
}

func (w Weights) sum() int {
	return w.Correctness + w.Syntax + w.Logic
}

func (w Weights) orDefault() Weights {
	if w.Correctness < 0 || w.Syntax < 0 || w.Logic < 0 || w.sum() == 0 {
		return DefaultWeights()
	}
	return w
}

// TestCase is one stdin input with its expected output.
type TestCase struct {
	Input    string `json:"input"`
	Expected string `json:"expected"`
}

// Activity is the instructor-defined exercise a submission is graded against.
type Activity struct {
	ID           uint
	Title        string
	Description  string
	Instructions string
	StarterCode  string
	DueDate      *time.Time
	Weights      Weights
	TestCases    []TestCase
}

// Submission is the code under grading. Grading never mutates it.
type Submission struct {
	ID          uint
	StudentID   uint
	ActivityID  uint
	Code        string
	SubmittedAt time.Time
}

// Result is the outcome of one grading run. All scores lie in [0,100].
type Result struct {
	RunID            string            `json:"run_id"`
	State            State             `json:"state"`
	FailedAt         State             `json:"failed_at,omitempty"`
	Error            string            `json:"error,omitempty"`
	CorrectnessScore int               `json:"correctness_score"`
	SyntaxScore      int               `json:"syntax_score"`
	LogicScore       int               `json:"logic_score"`
	RequirementScore int               `json:"requirement_score"`
	TotalScore       int               `json:"total_score"`
	PenaltyPercent   int               `json:"penalty_percent"`
	TestsPassed      int               `json:"tests_passed"`
	TestsTotal       int               `json:"tests_total"`
	Feedback         Feedback          `json:"feedback"`
	Similarity       similarity.Result `json:"similarity"`
}

// Feedback is the student-facing payload.
type Feedback struct {
	Syntax      Section  `json:"syntax"`
	Correctness Section  `json:"correctness"`
	Semantics   Section  `json:"semantics"`
	Penalty     *Section `json:"penalty,omitempty"`
}

// Section is one block of feedback. Score is a percentage string such as "85%".
type Section struct {
	Status      string       `json:"status"`
	Message     string       `json:"message"`
	Score       string       `json:"score"`
	Details     []string     `json:"details,omitempty"`
	Suggestions []string     `json:"suggestions,omitempty"`
	TestResults []TestResult `json:"test_results,omitempty"`
	Issues      []string     `json:"issues,omitempty"`
	Analysis    []string     `json:"analysis,omitempty"`
}

// Test result statuses.
const (
	TestPassed = "Passed"
	TestFailed = "Failed"
)

// TestResult reports one executed test case.
type TestResult struct {
	Case     int    `json:"case"`
	Input    string `json:"input"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}
