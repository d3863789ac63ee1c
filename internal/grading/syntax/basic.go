package syntax

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/noah-isme/gema-autograder/internal/grading/csource"
)

var (
	mainPattern        = regexp.MustCompile(`\bmain\s*\(`)
	controlHeader      = regexp.MustCompile(`^(if|else|for|while|do|switch)\b`)
	caseLabel          = regexp.MustCompile(`^(case\b.*|default\s*):$`)
	functionHeaderLine = regexp.MustCompile(`^[A-Za-z_][\w\s\*]*\([^;]*\)\s*$`)
)

// BasicCheck is the compiler-free fallback: brace and parenthesis balance,
// a main function, and a line scan for missing semicolons. It starts at 100
// and subtracts bounded penalties.
func BasicCheck(code string) Result {
	src := csource.Parse(code)
	score := 100
	var issues []string

	if diff := src.BraceBalance(); diff != 0 {
		score -= min(30, 10*abs(diff))
		issues = append(issues, fmt.Sprintf("Unbalanced braces (%+d)", diff))
	}
	if diff := src.ParenBalance(); diff != 0 {
		score -= min(30, 10*abs(diff))
		issues = append(issues, fmt.Sprintf("Unbalanced parentheses (%+d)", diff))
	}
	if !mainPattern.MatchString(src.Bare) {
		score -= 30
		issues = append(issues, "No main function found")
	}
	if missing := missingSemicolons(src); missing > 0 {
		score -= min(30, 5*missing)
		issues = append(issues, fmt.Sprintf("%d line(s) may be missing a semicolon", missing))
	}

	if score < 0 {
		score = 0
	}

	msg := "Basic syntax check passed (compiler unavailable)"
	if len(issues) > 0 {
		msg = "Basic syntax check (compiler unavailable): " + strings.Join(issues, "; ")
	}

	return Result{Score: score, Message: msg, Mode: ModeBasic, Errors: issues}
}

func missingSemicolons(src *csource.Source) int {
	count := 0
	for _, line := range strings.Split(src.Bare, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		last := line[len(line)-1]
		switch last {
		case ';', '{', '}', ',', ':', '(', '\\':
			continue
		}
		if controlHeader.MatchString(line) || caseLabel.MatchString(line) || functionHeaderLine.MatchString(line) {
			continue
		}
		if strings.HasSuffix(line, "&&") || strings.HasSuffix(line, "||") {
			continue
		}
		count++
	}
	return count
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
