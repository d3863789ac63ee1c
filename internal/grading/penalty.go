package grading

import (
	"math"
	"time"
)

const (
	secondsPerWeek = 604800
	// PenaltyPerWeek is the percentage deducted for each started overdue week.
	PenaltyPerWeek = 20
)

// WeeksOverdue counts started weeks between due and submitted. Submissions
// on or before the due date are not overdue. Fractions of a second are ignored.
func WeeksOverdue(due, submitted time.Time) int {
	seconds := int64(submitted.Sub(due) / time.Second)
	if seconds <= 0 {
		return 0
	}
	weeks := seconds / secondsPerWeek
	if seconds%secondsPerWeek > 0 {
		weeks++
	}
	return int(weeks)
}

// PenaltyPercent is the overdue deduction for a submission, or 0 when the
// activity has no due date.
func PenaltyPercent(due *time.Time, submitted time.Time) int {
	if due == nil || submitted.IsZero() {
		return 0
	}
	return WeeksOverdue(*due, submitted) * PenaltyPerWeek
}

// Scores groups the three rubric categories.
type Scores struct {
	Correctness int
	Syntax      int
	Logic       int
}

// ApplyPenalty distributes percent across the categories in proportion to
// their weights. Each category score becomes a weighted contribution, loses
// its share of the penalty (floored at 0), and is scaled back to 0-100.
// Penalty a category cannot absorb is not moved to the others.
func ApplyPenalty(s Scores, w Weights, percent int) Scores {
	if percent <= 0 {
		return s
	}
	total := float64(w.sum())
	if total <= 0 {
		return s
	}

	apply := func(score, weight int) int {
		if weight <= 0 {
			return score
		}
		contribution := float64(score) * float64(weight) / 100
		share := float64(percent) * float64(weight) / total
		remaining := math.Max(0, contribution-share)
		return clampScore(int(math.Round(remaining * 100 / float64(weight))))
	}

	return Scores{
		Correctness: apply(s.Correctness, w.Correctness),
		Syntax:      apply(s.Syntax, w.Syntax),
		Logic:       apply(s.Logic, w.Logic),
	}
}

// Total combines category scores with the rubric weights.
func Total(s Scores, w Weights) int {
	sum := float64(s.Correctness*w.Correctness+s.Syntax*w.Syntax+s.Logic*w.Logic) / 100
	return clampScore(int(math.Round(sum)))
}

func clampScore(v int) int {
	return max(0, min(100, v))
}

func percentOf(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return clampScore(int(math.Round(float64(part) * 100 / float64(whole))))
}
