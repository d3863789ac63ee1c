// Package analysis scores C code from lexical and structural signals: a
// correctness estimate and a weighted logic score built from a list of
// independent rules.
package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/noah-isme/gema-autograder/internal/grading/csource"
)

// NeedsImprovementBelow is the sub-score under which a category gets a
// feedback message.
const NeedsImprovementBelow = 70

// CategoryScore is one logic sub-score.
type CategoryScore struct {
	Category Category `json:"category"`
	Score    int      `json:"score"`
	Weight   float64  `json:"weight"`
}

// Report is the full static analysis of one submission.
type Report struct {
	CorrectnessScore int             `json:"correctness_score"`
	LogicScore       int             `json:"logic_score"`
	Categories       []CategoryScore `json:"categories"`
	Issues           []string        `json:"issues,omitempty"`
	Warnings         []string        `json:"warnings,omitempty"`
	Hardcoded        bool            `json:"hardcoded"`
	LengthMessage    string          `json:"length_message"`
	Notes            []string        `json:"notes,omitempty"`
	Feedback         string          `json:"feedback"`
}

// Category returns the score of c, or 0 when absent.
func (r Report) Category(c Category) int {
	for _, cs := range r.Categories {
		if cs.Category == c {
			return cs.Score
		}
	}
	return 0
}

// Analyzer applies a fixed rule list. It holds no mutable state.
type Analyzer struct {
	rules []Rule
}

// New returns an Analyzer over rules, or DefaultRules when rules is empty.
func New(rules ...Rule) *Analyzer {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Analyzer{rules: rules}
}

// Analyze scores code. requiredFeatures is the number of constructs the
// activity asks for and sets the expected code length.
func (a *Analyzer) Analyze(code string, requiredFeatures int) Report {
	src := csource.Parse(code)

	scores := make(map[Category]int, len(categoryOrder))
	for _, c := range categoryOrder {
		scores[c] = 100
	}

	var report Report
	for _, rule := range a.rules {
		f := rule.evaluate(src)
		scores[rule.Category] += f.Delta
		report.Issues = append(report.Issues, f.Issues...)
		report.Warnings = append(report.Warnings, f.Warnings...)
	}

	weighted := 0.0
	for _, c := range categoryOrder {
		s := clamp(scores[c])
		report.Categories = append(report.Categories, CategoryScore{Category: c, Score: s, Weight: categoryWeights[c]})
		weighted += float64(s) * categoryWeights[c]
	}

	report.LogicScore = clamp(int(math.Round(weighted)))
	report.CorrectnessScore = correctnessScore(src)
	report.Hardcoded = isHardcodedOutput(src)
	report.LengthMessage = lengthMessage(len(src.CodeLines()), requiredFeatures)
	report.Notes = structureNotes(src)
	report.Feedback = report.feedback()
	return report
}

func (r Report) feedback() string {
	var parts []string
	for _, cs := range r.Categories {
		if cs.Score < NeedsImprovementBelow {
			parts = append(parts, cs.Category.Label()+" needs improvement")
		}
	}
	parts = append(parts, r.LengthMessage)
	parts = append(parts, r.Notes...)
	return strings.Join(parts, ". ")
}

// LengthWindow is the expected number of code lines for an activity that
// demands requiredFeatures constructs.
func LengthWindow(requiredFeatures int) (lo, hi int) {
	switch {
	case requiredFeatures <= 2:
		return 5, 40
	case requiredFeatures <= 5:
		return 10, 80
	default:
		return 20, 150
	}
}

func lengthMessage(lines, requiredFeatures int) string {
	lo, hi := LengthWindow(requiredFeatures)
	switch {
	case lines < lo:
		return fmt.Sprintf("Code seems too short for this activity (%d lines, expected at least %d)", lines, lo)
	case lines > hi:
		return fmt.Sprintf("Code is longer than expected (%d lines, expected at most %d); consider simplifying", lines, hi)
	default:
		return fmt.Sprintf("Code length is appropriate (%d lines)", lines)
	}
}

func structureNotes(src *csource.Source) []string {
	var notes []string
	if diff := src.BraceBalance(); diff > 0 {
		notes = append(notes, fmt.Sprintf("%d opening brace(s) are not closed", diff))
	} else if diff < 0 {
		notes = append(notes, fmt.Sprintf("%d closing brace(s) have no matching opening brace", -diff))
	}
	if src.Has(mainCall) && !mainReturnsZero(src) {
		notes = append(notes, "main should end with 'return 0;'")
	}
	return notes
}
