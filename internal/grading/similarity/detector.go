package similarity

import (
	"fmt"
	"math"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Level buckets a similarity ratio.
type Level string

const (
	LevelVeryHigh Level = "very_high"
	LevelHigh     Level = "high"
	LevelModerate Level = "moderate"
	LevelLow      Level = "low"
	LevelVeryLow  Level = "very_low"
	LevelNeutral  Level = "neutral"
)

// FlagThreshold is the ratio above which a submission is flagged.
const FlagThreshold = 0.75

// Peer is another submission for the same activity.
type Peer struct {
	SubmissionID uint
	Code         string
}

// Result is the similarity outcome for one submission. MatchedSubmissionID
// names the closest peer and is meant for instructors only.
type Result struct {
	Score               int     `json:"score"`
	Level               Level   `json:"level"`
	Message             string  `json:"message"`
	Flagged             bool    `json:"flagged"`
	MaxRatio            float64 `json:"max_ratio"`
	MatchedSubmissionID uint    `json:"matched_submission_id,omitempty"`
	Compared            int     `json:"compared"`
}

// Neutral is the result used when similarity cannot be computed.
func Neutral(reason string) Result {
	return Result{Score: 100, Level: LevelNeutral, Message: reason}
}

// Ratio is the longest-matching-blocks ratio of two normalized sources,
// compared token by token.
func Ratio(a, b string) float64 {
	m := difflib.NewMatcherWithJunk(strings.Fields(a), strings.Fields(b), false, nil)
	return m.Ratio()
}

// Detect compares code with every peer and reports the closest match. The
// caller excludes the author's own submissions from peers.
func Detect(code string, peers []Peer) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Neutral(fmt.Sprintf("Similarity check unavailable: %v", r))
		}
	}()

	if len(peers) == 0 {
		return Neutral("No other submissions to compare against")
	}

	normalized := Normalize(code)
	best := -1.0
	var bestID uint
	compared := 0
	for _, p := range peers {
		if strings.TrimSpace(p.Code) == "" {
			continue
		}
		compared++
		if r := Ratio(normalized, Normalize(p.Code)); r > best {
			best = r
			bestID = p.SubmissionID
		}
	}
	if compared == 0 {
		return Neutral("No other submissions to compare against")
	}

	return FromRatio(best, bestID, compared)
}

// FromRatio builds a Result from the maximum ratio found.
func FromRatio(ratio float64, matchedID uint, compared int) Result {
	level := levelFor(ratio)
	percent := int(math.Round(ratio * 100))
	return Result{
		Score:               int(math.Max(0, math.Round(100-ratio*100))),
		Level:               level,
		Message:             message(level, percent),
		Flagged:             ratio > FlagThreshold,
		MaxRatio:            ratio,
		MatchedSubmissionID: matchedID,
		Compared:            compared,
	}
}

func levelFor(ratio float64) Level {
	switch {
	case ratio > 0.9:
		return LevelVeryHigh
	case ratio > FlagThreshold:
		return LevelHigh
	case ratio > 0.6:
		return LevelModerate
	case ratio > 0.4:
		return LevelLow
	default:
		return LevelVeryLow
	}
}

func message(level Level, percent int) string {
	switch level {
	case LevelVeryHigh:
		return fmt.Sprintf("Very high similarity (%d%%) to another submission was detected", percent)
	case LevelHigh:
		return fmt.Sprintf("High similarity (%d%%) to another submission; make sure the work is your own", percent)
	case LevelModerate:
		return fmt.Sprintf("Moderate similarity (%d%%) with other submissions", percent)
	case LevelLow:
		return fmt.Sprintf("Low similarity (%d%%) with other submissions", percent)
	default:
		return "Code appears to be original"
	}
}
