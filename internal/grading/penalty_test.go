package grading

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWeeksOverdue(t *testing.T) {
	due := time.Date(2026, 5, 4, 23, 59, 0, 0, time.UTC)

	cases := []struct {
		name  string
		late  time.Duration
		weeks int
	}{
		{"early", -time.Hour, 0},
		{"on time", 0, 0},
		{"one second late", time.Second, 1},
		{"exactly one week", 7 * 24 * time.Hour, 1},
		{"ten days", 10 * 24 * time.Hour, 2},
		{"exactly two weeks", 14 * 24 * time.Hour, 2},
		{"sub second", 500 * time.Millisecond, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.weeks, WeeksOverdue(due, due.Add(tc.late)))
		})
	}
}

func TestPenaltyPercent(t *testing.T) {
	due := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	require.Equal(t, 40, PenaltyPercent(&due, due.Add(864000*time.Second)))
	require.Zero(t, PenaltyPercent(nil, due.Add(864000*time.Second)))
	require.Zero(t, PenaltyPercent(&due, time.Time{}))
}

func TestApplyPenalty(t *testing.T) {
	w := Weights{Correctness: 40, Syntax: 30, Logic: 30}

	got := ApplyPenalty(Scores{Correctness: 100, Syntax: 100, Logic: 80}, w, 40)
	require.Equal(t, Scores{Correctness: 60, Syntax: 60, Logic: 40}, got)

	floored := ApplyPenalty(Scores{Correctness: 30, Syntax: 100, Logic: 10}, w, 40)
	require.Equal(t, Scores{Correctness: 0, Syntax: 60, Logic: 0}, floored)

	untouched := Scores{Correctness: 70, Syntax: 80, Logic: 90}
	require.Equal(t, untouched, ApplyPenalty(untouched, w, 0))

	zeroLogic := ApplyPenalty(Scores{Correctness: 100, Syntax: 100, Logic: 55}, Weights{Correctness: 50, Syntax: 50}, 20)
	require.Equal(t, Scores{Correctness: 80, Syntax: 80, Logic: 55}, zeroLogic)
}

func TestTotal(t *testing.T) {
	require.Equal(t, 79, Total(Scores{Correctness: 75, Syntax: 100, Logic: 64}, Weights{Correctness: 40, Syntax: 30, Logic: 30}))
	require.Equal(t, 100, Total(Scores{Correctness: 100, Syntax: 100, Logic: 100}, Weights{Correctness: 60, Syntax: 60, Logic: 60}))
	require.Equal(t, DefaultWeights(), Weights{}.orDefault())
	require.Equal(t, DefaultWeights(), Weights{Correctness: -10, Syntax: 60, Logic: 50}.orDefault())
}

func TestLogicBand(t *testing.T) {
	cases := map[int]string{
		100: "Excellent",
		90:  "Excellent",
		89:  "Very Good",
		80:  "Very Good",
		70:  "Good",
		60:  "Needs Improvement",
		59:  "Poor",
		0:   "Poor",
	}
	for score, name := range cases {
		require.Equal(t, name, LogicBand(score).Name, "score %d", score)
	}
}

func TestParseTestCases(t *testing.T) {
	raw := []byte(`[
		{"input": "5", "expected": "25"},
		{"input": "3", "output": "9"},
		{"expected": "hello"},
		{"input": "7"},
		{"input": 4, "expected": "16"},
		"not an object",
		null
	]`)

	cases, dropped, err := ParseTestCases(raw)
	require.NoError(t, err)
	require.Equal(t, 4, dropped)
	require.Equal(t, []TestCase{
		{Input: "5", Expected: "25"},
		{Input: "3", Expected: "9"},
		{Input: "", Expected: "hello"},
	}, cases)

	encoded, err := EncodeTestCases(cases)
	require.NoError(t, err)
	again, dropped, err := ParseTestCases(encoded)
	require.NoError(t, err)
	require.Zero(t, dropped)
	require.Equal(t, cases, again)
}

func TestParseTestCasesEmptyAndInvalid(t *testing.T) {
	cases, dropped, err := ParseTestCases(nil)
	require.NoError(t, err)
	require.Empty(t, cases)
	require.Zero(t, dropped)

	_, _, err = ParseTestCases([]byte(`{"input": "1"}`))
	require.Error(t, err)
}
