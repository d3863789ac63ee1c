package grading

import (
	"fmt"

	"github.com/noah-isme/gema-autograder/internal/grading/analysis"
	"github.com/noah-isme/gema-autograder/internal/grading/predictor"
	"github.com/noah-isme/gema-autograder/internal/grading/requirements"
	"github.com/noah-isme/gema-autograder/internal/grading/similarity"
	"github.com/noah-isme/gema-autograder/internal/grading/syntax"
)

// Section statuses.
const (
	StatusPassed  = "passed"
	StatusPartial = "partial"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
	StatusNeutral = "neutral"
	StatusApplied = "applied"
	StatusError   = "error"
)

// NoTestCasesScore is the correctness given when an activity defines no tests.
const NoTestCasesScore = 50

// Band is a logic-score rating.
type Band struct {
	Name        string
	Min         int
	Message     string
	Suggestions []string
}

var bands = []Band{
	{
		Name:    "Excellent",
		Min:     90,
		Message: "Excellent program logic and structure",
		Suggestions: []string{
			"Keep practicing with more complex problems",
		},
	},
	{
		Name:    "Very Good",
		Min:     80,
		Message: "Very good logic with minor areas to polish",
		Suggestions: []string{
			"Review the listed issues to reach an excellent rating",
			"Add comments where the intent of a block is not obvious",
		},
	},
	{
		Name:    "Good",
		Min:     70,
		Message: "Good logic overall, but some parts need attention",
		Suggestions: []string{
			"Initialize every variable before using it",
			"Check loop conditions so every loop terminates",
		},
	},
	{
		Name:    "Needs Improvement",
		Min:     60,
		Message: "The program logic needs improvement",
		Suggestions: []string{
			"Break the program into smaller functions",
			"Trace the program by hand with a small input",
			"Guard divisions and array indexes against invalid values",
		},
	},
	{
		Name:    "Poor",
		Min:     0,
		Message: "The program logic has significant problems",
		Suggestions: []string{
			"Re-read the activity instructions and plan the algorithm first",
			"Start from a minimal working program and extend it step by step",
			"Ask your instructor for help with the concepts involved",
		},
	},
}

// LogicBand returns the rating for a logic score.
func LogicBand(score int) Band {
	for _, b := range bands {
		if score >= b.Min {
			return b
		}
	}
	return bands[len(bands)-1]
}

func percent(score int) string {
	return fmt.Sprintf("%d%%", score)
}

func syntaxSection(res syntax.Result, gate int) Section {
	sec := Section{
		Status:  StatusPassed,
		Message: res.Message,
		Score:   percent(res.Score),
	}
	if res.Score < gate {
		sec.Status = StatusFailed
		sec.Details = res.Errors
		seen := make(map[string]bool)
		for _, ex := range res.Explanations {
			issue := ex.Cause
			if ex.Line > 0 {
				issue = fmt.Sprintf("Line %d: %s", ex.Line, ex.Cause)
			}
			sec.Issues = append(sec.Issues, issue)
			for _, s := range ex.Suggestions {
				if !seen[s] {
					seen[s] = true
					sec.Suggestions = append(sec.Suggestions, s)
				}
			}
		}
		if len(sec.Suggestions) == 0 {
			sec.Suggestions = []string{"Fix the syntax errors reported by the compiler before resubmitting"}
		}
		return sec
	}
	if res.Warnings > 0 {
		sec.Suggestions = []string{"Review the compiler warnings; they often point at logic mistakes"}
	}
	if res.Mode == syntax.ModeBasic {
		sec.Details = append(sec.Details, "Checked without a compiler; the result is approximate")
	}
	return sec
}

func correctnessSection(score int, results []TestResult) Section {
	if len(results) == 0 {
		return Section{
			Status:  StatusNeutral,
			Message: fmt.Sprintf("No test cases are defined for this activity; correctness defaults to %d%%", NoTestCasesScore),
			Score:   percent(score),
		}
	}

	passed := 0
	for _, r := range results {
		if r.Status == TestPassed {
			passed++
		}
	}

	sec := Section{
		Message:     fmt.Sprintf("Passed %d of %d test cases", passed, len(results)),
		Score:       percent(score),
		TestResults: results,
	}
	switch passed {
	case len(results):
		sec.Status = StatusPassed
	case 0:
		sec.Status = StatusFailed
	default:
		sec.Status = StatusPartial
	}
	if passed < len(results) {
		sec.Suggestions = []string{
			"Compare your output with the expected output of the failed test cases",
			"Check that the program reads its input in the expected order",
		}
	}
	return sec
}

func skippedSection(reason string) Section {
	return Section{Status: StatusSkipped, Message: reason, Score: percent(0)}
}

type semanticsInput struct {
	analysis     analysis.Report
	requirements requirements.Report
	blended      predictor.Blended
	similarity   similarity.Result
}

func semanticsSection(in semanticsInput) Section {
	band := LogicBand(in.analysis.LogicScore)
	sec := Section{
		Status:      band.Name,
		Message:     band.Message,
		Score:       percent(in.analysis.LogicScore),
		Suggestions: append([]string(nil), band.Suggestions...),
	}

	if in.requirements.Feedback != "" {
		sec.Details = append(sec.Details, in.requirements.Feedback)
	}
	if in.analysis.Feedback != "" {
		sec.Details = append(sec.Details, in.analysis.Feedback)
	}

	sec.Issues = append(sec.Issues, in.analysis.Issues...)
	for _, name := range in.requirements.Missing {
		sec.Issues = append(sec.Issues, "Missing requirement: "+name)
	}
	if in.similarity.Flagged {
		sec.Issues = append(sec.Issues, in.similarity.Message)
	}

	for _, cs := range in.analysis.Categories {
		sec.Analysis = append(sec.Analysis, fmt.Sprintf("%s: %d%%", cs.Category.Label(), cs.Score))
		if cs.Score < analysis.NeedsImprovementBelow {
			sec.Suggestions = append(sec.Suggestions, cs.Category.Label()+" needs improvement")
		}
	}
	sec.Analysis = append(sec.Analysis, fmt.Sprintf("Requirements met: %d%%", in.requirements.Score))
	sec.Analysis = append(sec.Analysis, in.analysis.Warnings...)
	if in.blended.UsedModel {
		sec.Analysis = append(sec.Analysis,
			fmt.Sprintf("Estimated correctness: %d%%", in.blended.Correctness),
			fmt.Sprintf("Estimated syntax quality: %d%%", in.blended.Syntax),
		)
	}
	return sec
}

func penaltySection(percentage, weeks int, before, after Scores) *Section {
	if percentage <= 0 {
		return nil
	}
	return &Section{
		Status:  StatusApplied,
		Message: fmt.Sprintf("Submitted %d week(s) late: %d%% late penalty applied", weeks, percentage),
		Score:   percent(percentage),
		Details: []string{
			fmt.Sprintf("Correctness: %d%% -> %d%%", before.Correctness, after.Correctness),
			fmt.Sprintf("Syntax: %d%% -> %d%%", before.Syntax, after.Syntax),
			fmt.Sprintf("Logic: %d%% -> %d%%", before.Logic, after.Logic),
		},
	}
}

func failedFeedback(message string) Feedback {
	sec := Section{Status: StatusError, Message: message, Score: percent(0)}
	return Feedback{Syntax: sec, Correctness: sec, Semantics: sec}
}
